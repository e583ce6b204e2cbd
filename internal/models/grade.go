package models

import "time"

// Grade is the score of one student on one activity.
type Grade struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ActivityID uint      `json:"activity_id" gorm:"not null;uniqueIndex:idx_grade_activity_student"`
	StudentID  uint      `json:"student_id" gorm:"not null;uniqueIndex:idx_grade_activity_student;index"`
	Score      float64   `json:"score" gorm:"not null"`
	Note       *string   `json:"note" gorm:"type:text"`
	GradedAt   time.Time `json:"graded_at" gorm:"not null"`
	GradedBy   uint      `json:"graded_by" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Grade) TableName() string {
	return "grades"
}

// UnitFinalGrade is the per-student result computed when a unit closes.
type UnitFinalGrade struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UnitID     uint      `json:"unit_id" gorm:"not null;uniqueIndex:idx_final_unit_student"`
	StudentID  uint      `json:"student_id" gorm:"not null;uniqueIndex:idx_final_unit_student"`
	ZonaScore  float64   `json:"zona_score"`
	FinalScore float64   `json:"final_score"`
	Total      int       `json:"total"`
	ComputedAt time.Time `json:"computed_at"`
}

func (UnitFinalGrade) TableName() string {
	return "unit_final_grades"
}
