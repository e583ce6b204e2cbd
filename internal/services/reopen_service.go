package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/colegio-digital/grading-service/internal/events"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

// ReopenService handles requests to put a closed unit back in edition
type ReopenService interface {
	RequestReopen(ctx context.Context, actor models.Actor, unitID uint, input *ReopenRequestInput) (*models.ReopenRequest, error)
	ResolveReopen(ctx context.Context, actor models.Actor, requestID uint, input *ResolveReopenInput) (*models.ReopenRequest, error)
	ListMine(ctx context.Context, actor models.Actor, limit, offset int) (*ReopenRequestList, error)
	ListPending(ctx context.Context, actor models.Actor, limit, offset int) (*ReopenRequestList, error)
}

type reopenService struct {
	*serviceBase
}

func NewReopenService(deps Dependencies) ReopenService {
	return &reopenService{serviceBase: newServiceBase(deps, "reopen")}
}

func (s *reopenService) RequestReopen(ctx context.Context, actor models.Actor, unitID uint, input *ReopenRequestInput) (request *models.ReopenRequest, err error) {
	op := s.log.WithOperation(ctx, "request_reopen", actor.ID)
	defer func() { op.LogResult(unitID, "unit", err) }()

	if err = authorize(actor, CapRequestReopen, "unit", unitID); err != nil {
		return nil, err
	}
	if errs := s.validator.Business().ValidateReopenReason(input.Reason); len(errs) > 0 {
		return nil, errs
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		unit, err := s.lockUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if err := authorizeAssignment(actor, CapRequestReopen, unit.Assignment); err != nil {
			return err
		}
		if !unit.IsClosed() {
			return wrapRule(ErrUnitNotClosed, "reopen_closed_unit", "", map[string]interface{}{
				"unit_id": unitID,
				"status":  unit.Status,
			})
		}

		// the unit row lock makes this check and the insert atomic
		pending, err := s.repo.Reopen().HasPending(ctx, tx, unitID)
		if err != nil {
			return fmt.Errorf("failed to check pending requests: %w", err)
		}
		if pending {
			return ErrDuplicateReopenRequest
		}

		request = &models.ReopenRequest{
			UnitID:      unitID,
			RequestedBy: actor.ID,
			Reason:      strings.TrimSpace(input.Reason),
			Status:      models.ReopenPending,
		}
		if err := s.repo.Reopen().Create(ctx, tx, request); err != nil {
			return fmt.Errorf("failed to create reopen request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditReopenRequested,
		Detail:     fmt.Sprintf("reopen of unit %d requested: %s", unitID, request.Reason),
		TargetType: "reopen_request",
		TargetID:   request.ID,
		Metadata:   map[string]interface{}{"unit_id": unitID},
	})
	s.publish(ctx, events.EventReopenRequested, actor.ID, events.ReopenRequestedEvent{
		RequestID:   request.ID,
		UnitID:      unitID,
		RequestedBy: actor.ID,
		Reason:      request.Reason,
	})
	return request, nil
}

// ResolveReopen approves or rejects a pending request. Approval reopens the
// unit and keeps every recorded grade and final grade.
func (s *reopenService) ResolveReopen(ctx context.Context, actor models.Actor, requestID uint, input *ResolveReopenInput) (request *models.ReopenRequest, err error) {
	op := s.log.WithOperation(ctx, "resolve_reopen", actor.ID)
	defer func() { op.LogResult(requestID, "reopen_request", err) }()

	if err = authorize(actor, CapResolveReopen, "reopen_request", requestID); err != nil {
		return nil, err
	}
	if err = s.validator.ValidateStruct(input); err != nil {
		return nil, err
	}
	approve := *input.Approve

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		request, err = s.repo.Reopen().LockByID(ctx, tx, requestID)
		if err != nil {
			return notFound(err, ErrReopenRequestNotFound)
		}
		if !request.IsPending() {
			return ErrReopenAlreadyResolved
		}

		unit, err := s.lockUnit(ctx, tx, request.UnitID)
		if err != nil {
			return err
		}

		now := time.Now()
		resolver := actor.ID
		request.ResolvedBy = &resolver
		request.ResolvedAt = &now
		request.ResolutionNote = input.Note
		request.Status = models.ReopenRejected

		if approve {
			request.Status = models.ReopenApproved
			if unit.IsClosed() {
				unit.Status = models.UnitOpen
				unit.ReopenedAt = &now
				if err := s.repo.Unit().Update(ctx, tx, unit); err != nil {
					return fmt.Errorf("failed to reopen unit: %w", err)
				}
			}
		}

		if err := s.repo.Reopen().Update(ctx, tx, request); err != nil {
			return fmt.Errorf("failed to resolve reopen request: %w", err)
		}
		request.Unit = unit
		return nil
	})
	if err != nil {
		return nil, err
	}

	var note string
	if input.Note != nil {
		note = *input.Note
	}
	if approve {
		s.invalidateUnit(ctx, request.UnitID)
	}
	s.recordAudit(ctx, &AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditReopenResolved,
		Detail:     fmt.Sprintf("reopen request %d for unit %d %s", request.ID, request.UnitID, request.Status),
		TargetType: "reopen_request",
		TargetID:   request.ID,
		Metadata: map[string]interface{}{
			"unit_id":  request.UnitID,
			"approved": approve,
			"note":     note,
		},
	})
	s.publish(ctx, events.EventReopenResolved, actor.ID, events.ReopenResolvedEvent{
		RequestID: request.ID,
		UnitID:    request.UnitID,
		Approved:  approve,
		Note:      note,
	})
	return request, nil
}

func (s *reopenService) ListMine(ctx context.Context, actor models.Actor, limit, offset int) (*ReopenRequestList, error) {
	if err := authorize(actor, CapRequestReopen, "reopen_request", 0); err != nil {
		return nil, err
	}
	requestedBy := actor.ID
	return s.list(ctx, repositories.ReopenFilters{RequestedBy: &requestedBy, Limit: limit, Offset: offset})
}

func (s *reopenService) ListPending(ctx context.Context, actor models.Actor, limit, offset int) (*ReopenRequestList, error) {
	if err := authorize(actor, CapResolveReopen, "reopen_request", 0); err != nil {
		return nil, err
	}
	status := models.ReopenPending
	return s.list(ctx, repositories.ReopenFilters{Status: &status, Limit: limit, Offset: offset})
}

func (s *reopenService) list(ctx context.Context, filters repositories.ReopenFilters) (*ReopenRequestList, error) {
	requests, total, err := s.repo.Reopen().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list reopen requests: %w", err)
	}
	return &ReopenRequestList{Requests: requests, Total: total}, nil
}
