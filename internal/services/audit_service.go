package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/datatypes"
)

// AuditSink receives the bitácora entries written after grade-affecting mutations
type AuditSink interface {
	Record(ctx context.Context, actorID uint, action models.AuditAction, detail string) error
	RecordEntry(ctx context.Context, entry *AuditEntry) error
}

// AuditService is the sink plus read access for administrators
type AuditService interface {
	AuditSink
	ListByActor(ctx context.Context, actor models.Actor, actorID uint, limit int) ([]*models.AuditLog, error)
}

// AuditEntry is a bitácora line with an optional target and metadata
type AuditEntry struct {
	ActorID    uint
	Action     models.AuditAction
	Detail     string
	TargetType string
	TargetID   uint
	Metadata   map[string]interface{}
}

type auditService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewAuditService(repo repositories.Repository, logger *slog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger,
	}
}

func (s *auditService) Record(ctx context.Context, actorID uint, action models.AuditAction, detail string) error {
	return s.RecordEntry(ctx, &AuditEntry{ActorID: actorID, Action: action, Detail: detail})
}

func (s *auditService) RecordEntry(ctx context.Context, entry *AuditEntry) error {
	log := &models.AuditLog{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		Detail:     entry.Detail,
		TargetType: entry.TargetType,
	}
	if entry.TargetID != 0 {
		id := entry.TargetID
		log.TargetID = &id
	}
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
		log.Metadata = datatypes.JSON(raw)
	}
	if requestID, ok := RequestIDFrom(ctx); ok {
		log.RequestID = &requestID
	}

	if err := s.repo.Audit().Create(ctx, nil, log); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *auditService) ListByActor(ctx context.Context, actor models.Actor, actorID uint, limit int) ([]*models.AuditLog, error) {
	if actor.ID == 0 {
		return nil, ErrUnauthenticated
	}
	// staff read anyone's trail, everybody else only their own
	if !actor.IsStaff() && actor.ID != actorID {
		return nil, NewPermissionError(actor.ID, actorID, "audit_log", "list", "can only read own audit trail")
	}
	return s.repo.Audit().ListByActor(ctx, nil, actorID, limit)
}
