package models

import (
	"time"

	"gorm.io/gorm"
)

type ActivityCategory string

const (
	CategoryZona  ActivityCategory = "zona"
	CategoryFinal ActivityCategory = "final"
)

func (c ActivityCategory) IsValid() bool {
	return c == CategoryZona || c == CategoryFinal
}

// Activity is a gradable task inside a unit. Its MaxPoints count against the
// unit ceiling of its category while it is enabled.
type Activity struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	UnitID      uint             `json:"unit_id" gorm:"not null;index"`
	Name        string           `json:"name" gorm:"not null;size:200"`
	Description *string          `json:"description" gorm:"type:text"`
	Category    ActivityCategory `json:"category" gorm:"not null;size:10;index"`
	MaxPoints   float64          `json:"max_points" gorm:"not null"`
	DueDate     *time.Time       `json:"due_date"`
	Enabled     bool             `json:"enabled" gorm:"not null"`
	CreatedBy   uint             `json:"created_by" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Activity) TableName() string {
	return "activities"
}
