package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActivityCreated    AuditAction = "activity_created"
	AuditActivityUpdated    AuditAction = "activity_updated"
	AuditActivityDeleted    AuditAction = "activity_deleted"
	AuditGradesRecorded     AuditAction = "grades_recorded"
	AuditUnitActivated      AuditAction = "unit_activated"
	AuditUnitClosed         AuditAction = "unit_closed"
	AuditUnitWeightsUpdated AuditAction = "unit_weights_updated"
	AuditReopenRequested    AuditAction = "reopen_requested"
	AuditReopenResolved     AuditAction = "reopen_resolved"
	AuditAssignmentCreated  AuditAction = "assignment_created"
	AuditAssignmentDeleted  AuditAction = "assignment_deleted"
	AuditGradeSheetExported AuditAction = "grade_sheet_exported"
)

// AuditLog is one entry of the bitácora.
type AuditLog struct {
	ID      uint        `json:"id" gorm:"primaryKey"`
	ActorID uint        `json:"actor_id" gorm:"not null;index"`
	Action  AuditAction `json:"action" gorm:"not null;size:50;index"`
	Detail  string      `json:"detail" gorm:"type:text"`

	TargetType string         `json:"target_type" gorm:"size:50;index"`
	TargetID   *uint          `json:"target_id" gorm:"index"`
	Metadata   datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	RequestID  *string        `json:"request_id" gorm:"size:36"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
