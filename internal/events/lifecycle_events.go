package events

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventType represents the kinds of grading lifecycle events
type EventType string

const (
	// Unit events
	EventUnitActivated EventType = "unit.activated"
	EventUnitClosed    EventType = "unit.closed"

	// Grading events
	EventGradesRecorded  EventType = "grades.recorded"
	EventActivityChanged EventType = "activity.changed"

	// Reopen events
	EventReopenRequested EventType = "reopen.requested"
	EventReopenResolved  EventType = "reopen.resolved"
)

const (
	eventSource  = "grading-service"
	eventVersion = "1.0"
)

// LifecycleEvent is the envelope every published event shares
type LifecycleEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	ActorID   uint                   `json:"actor_id"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewLifecycleEvent stamps a payload with a fresh id and the current time
func NewLifecycleEvent(eventType EventType, actorID uint, data interface{}) *LifecycleEvent {
	return &LifecycleEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		ActorID:   actorID,
		Data:      data,
	}
}

// Unit event payloads

type UnitActivatedEvent struct {
	AssignmentID uint `json:"assignment_id"`
	UnitID       uint `json:"unit_id"`
	UnitNumber   int  `json:"unit_number"`
}

type UnitClosedEvent struct {
	AssignmentID  uint           `json:"assignment_id"`
	UnitID        uint           `json:"unit_id"`
	UnitNumber    int            `json:"unit_number"`
	NextUnitID    *uint          `json:"next_unit_id,omitempty"`
	StudentCount  int            `json:"student_count"`
	ClosedAt      time.Time      `json:"closed_at"`
	FinalGrades   datatypes.JSON `json:"final_grades,omitempty"`
	ActivityCount int            `json:"activity_count"`
}

// Grading event payloads

type GradesRecordedEvent struct {
	UnitID     uint `json:"unit_id"`
	ActivityID uint `json:"activity_id"`
	Created    int  `json:"created"`
	Updated    int  `json:"updated"`
	Skipped    int  `json:"skipped"`
}

type ActivityChangedEvent struct {
	UnitID     uint   `json:"unit_id"`
	ActivityID uint   `json:"activity_id"`
	Change     string `json:"change"` // created, updated or deleted
}

// Reopen event payloads

type ReopenRequestedEvent struct {
	RequestID   uint   `json:"request_id"`
	UnitID      uint   `json:"unit_id"`
	RequestedBy uint   `json:"requested_by"`
	Reason      string `json:"reason"`
}

type ReopenResolvedEvent struct {
	RequestID uint   `json:"request_id"`
	UnitID    uint   `json:"unit_id"`
	Approved  bool   `json:"approved"`
	Note      string `json:"note,omitempty"`
}
