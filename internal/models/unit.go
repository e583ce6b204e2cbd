package models

import (
	"time"

	"gorm.io/gorm"
)

type UnitStatus string

const (
	UnitOpen   UnitStatus = "open"
	UnitClosed UnitStatus = "closed"
)

// Unit is one of the four grading periods of a course assignment.
type Unit struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	AssignmentID uint       `json:"assignment_id" gorm:"not null;index;uniqueIndex:idx_unit_assignment_number"`
	Number       int        `json:"number" gorm:"not null;uniqueIndex:idx_unit_assignment_number" validate:"unit_number"`
	Name         string     `json:"name" gorm:"not null;size:100"`
	ZonaWeight   int        `json:"zona_weight" gorm:"not null" validate:"min=0,max=100"`
	FinalWeight  int        `json:"final_weight" gorm:"not null" validate:"min=0,max=100"`
	IsActive     bool       `json:"is_active" gorm:"not null;index"`
	IsEnabled    bool       `json:"is_enabled" gorm:"not null"`
	Status       UnitStatus `json:"status" gorm:"default:open;size:10;index"`
	ClosedAt     *time.Time `json:"closed_at"`
	ClosedBy     *uint      `json:"closed_by"`
	ReopenedAt   *time.Time `json:"reopened_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Assignment *CourseAssignment `json:"assignment,omitempty" gorm:"foreignKey:AssignmentID"`
}

func (Unit) TableName() string {
	return "units"
}

func (u *Unit) IsClosed() bool {
	return u.Status == UnitClosed
}

// IsReopened reports whether an approved reopen request put the unit back in edition.
func (u *Unit) IsReopened() bool {
	return u.ReopenedAt != nil && !u.IsClosed()
}

// WeightFor returns the point ceiling configured for an activity category.
func (u *Unit) WeightFor(category ActivityCategory) int {
	if category == CategoryFinal {
		return u.FinalWeight
	}
	return u.ZonaWeight
}
