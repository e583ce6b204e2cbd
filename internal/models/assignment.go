package models

import (
	"time"

	"gorm.io/gorm"
)

// UnitsPerAssignment is the number of grading units every course assignment is split into.
const UnitsPerAssignment = 4

// CourseAssignment pairs a teacher with a course for one grade/section/shift/year.
type CourseAssignment struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	TeacherID uint `json:"teacher_id" gorm:"not null;index" validate:"required"`
	CourseID  uint `json:"course_id" gorm:"not null;index" validate:"required"`
	GradeID   uint `json:"grade_id" gorm:"not null" validate:"required"`
	SectionID uint `json:"section_id" gorm:"not null" validate:"required"`
	ShiftID   uint `json:"shift_id" gorm:"not null" validate:"required"`
	Year      int  `json:"year" gorm:"not null;index" validate:"required,min=2000,max=2100"`
	Active    bool `json:"active" gorm:"not null;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Units []Unit `json:"units,omitempty" gorm:"foreignKey:AssignmentID"`
}

func (CourseAssignment) TableName() string {
	return "course_assignments"
}
