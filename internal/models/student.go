package models

import "time"

type Student struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Code      string `json:"code" gorm:"size:30;index"`
	FirstName string `json:"first_name" gorm:"not null;size:100"`
	LastName  string `json:"last_name" gorm:"not null;size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Student) TableName() string {
	return "students"
}

func (s Student) FullName() string {
	return s.LastName + ", " + s.FirstName
}

// Enrollment places a student in a grade/section/shift for a school year.
type Enrollment struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	StudentID uint `json:"student_id" gorm:"not null;index"`
	GradeID   uint `json:"grade_id" gorm:"not null;index:idx_enrollment_group"`
	SectionID uint `json:"section_id" gorm:"not null;index:idx_enrollment_group"`
	ShiftID   uint `json:"shift_id" gorm:"not null;index:idx_enrollment_group"`
	Year      int  `json:"year" gorm:"not null;index:idx_enrollment_group"`
	Active    bool `json:"active" gorm:"not null;index"`

	Student Student `json:"student" gorm:"foreignKey:StudentID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
