package models

import "time"

type ReopenStatus string

const (
	ReopenPending  ReopenStatus = "pending"
	ReopenApproved ReopenStatus = "approved"
	ReopenRejected ReopenStatus = "rejected"
)

// MinReopenReasonLength is the shortest justification accepted for a reopen request.
const MinReopenReasonLength = 20

type ReopenRequest struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	UnitID         uint         `json:"unit_id" gorm:"not null;index"`
	RequestedBy    uint         `json:"requested_by" gorm:"not null;index"`
	Reason         string       `json:"reason" gorm:"not null;type:text"`
	Status         ReopenStatus `json:"status" gorm:"not null;default:pending;size:10;index"`
	ResolvedBy     *uint        `json:"resolved_by"`
	ResolvedAt     *time.Time   `json:"resolved_at"`
	ResolutionNote *string      `json:"resolution_note" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Unit *Unit `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
}

func (ReopenRequest) TableName() string {
	return "reopen_requests"
}

func (r *ReopenRequest) IsPending() bool {
	return r.Status == ReopenPending
}
