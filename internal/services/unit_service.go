package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colegio-digital/grading-service/internal/events"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UnitService drives the unit lifecycle: activation, weights and closure
type UnitService interface {
	Get(ctx context.Context, actor models.Actor, unitID uint) (*models.Unit, error)
	Activate(ctx context.Context, actor models.Actor, unitID uint) (*models.Unit, error)
	CloseAndOpenNext(ctx context.Context, actor models.Actor, assignmentID uint) (*UnitTransitionResult, error)
	Close(ctx context.Context, actor models.Actor, unitID uint) (*UnitTransitionResult, error)
	UpdateWeights(ctx context.Context, actor models.Actor, unitID uint, req *UpdateWeightsRequest) (*models.Unit, error)
	CheckWeights(ctx context.Context, actor models.Actor, unitID uint, candidate validator.WeightCandidate) (*validator.WeightCheck, error)
}

type unitService struct {
	*serviceBase
}

func NewUnitService(deps Dependencies) UnitService {
	return &unitService{serviceBase: newServiceBase(deps, "unit")}
}

func (s *unitService) Get(ctx context.Context, actor models.Actor, unitID uint) (*models.Unit, error) {
	if err := authorize(actor, CapViewAssignments, "unit", unitID); err != nil {
		return nil, err
	}
	unit, err := s.loadUnit(ctx, nil, unitID)
	if err != nil {
		return nil, err
	}
	if err := authorizeAssignment(actor, CapViewAssignments, unit.Assignment); err != nil {
		return nil, err
	}
	return unit, nil
}

// Activate makes unitID the current teaching unit of its assignment
func (s *unitService) Activate(ctx context.Context, actor models.Actor, unitID uint) (unit *models.Unit, err error) {
	op := s.log.WithOperation(ctx, "activate_unit", actor.ID)
	defer func() { op.LogResult(unitID, "unit", err) }()

	if err = authorize(actor, CapActivateUnit, "unit", unitID); err != nil {
		return nil, err
	}

	var siblings []uint
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		current, err := s.loadUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		units, err := s.repo.Unit().LockByAssignment(ctx, tx, current.AssignmentID)
		if err != nil {
			return fmt.Errorf("failed to lock units: %w", err)
		}

		for _, u := range units {
			siblings = append(siblings, u.ID)
			if u.ID == unitID {
				unit = u
			}
		}
		if unit == nil {
			return ErrUnitNotFound
		}
		if unit.IsClosed() {
			return ErrUnitClosed
		}

		if err := s.repo.Unit().SetActive(ctx, tx, unit.AssignmentID, unit.ID); err != nil {
			return fmt.Errorf("failed to activate unit: %w", err)
		}
		unit.IsActive = true
		unit.Assignment = current.Assignment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUnit(ctx, siblings...)
	s.recordAudit(ctx, &AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditUnitActivated,
		Detail:     fmt.Sprintf("unit %d (%s) of assignment %d activated", unit.Number, unit.Name, unit.AssignmentID),
		TargetType: "unit",
		TargetID:   unit.ID,
		Metadata:   map[string]interface{}{"assignment_id": unit.AssignmentID, "number": unit.Number},
	})
	s.publish(ctx, events.EventUnitActivated, actor.ID, events.UnitActivatedEvent{
		AssignmentID: unit.AssignmentID,
		UnitID:       unit.ID,
		UnitNumber:   unit.Number,
	})
	return unit, nil
}

// CloseAndOpenNext closes the active unit of an assignment and activates the
// one after it. The last unit closes without a successor.
func (s *unitService) CloseAndOpenNext(ctx context.Context, actor models.Actor, assignmentID uint) (result *UnitTransitionResult, err error) {
	op := s.log.WithOperation(ctx, "close_and_open_next", actor.ID)
	defer func() { op.LogResult(assignmentID, "assignment", err) }()

	if err = authorize(actor, CapAdvanceUnit, "assignment", assignmentID); err != nil {
		return nil, err
	}

	var closed *closedUnit
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		assignment, err := s.repo.Assignment().GetByID(ctx, tx, assignmentID)
		if err != nil {
			return notFound(err, ErrAssignmentNotFound)
		}
		if err := authorizeAssignment(actor, CapAdvanceUnit, assignment); err != nil {
			return err
		}

		units, err := s.repo.Unit().LockByAssignment(ctx, tx, assignmentID)
		if err != nil {
			return fmt.Errorf("failed to lock units: %w", err)
		}

		var active *models.Unit
		for _, u := range units {
			u.Assignment = assignment
			if u.IsActive && !u.IsClosed() {
				active = u
			}
		}
		if active == nil {
			return ErrNoActiveUnit
		}

		closed, err = s.closeUnit(ctx, tx, actor, active)
		if err != nil {
			return err
		}

		for _, u := range units {
			if u.Number != active.Number+1 {
				continue
			}
			// a successor closed out of order stays closed
			if u.IsClosed() {
				break
			}
			if err := s.repo.Unit().SetActive(ctx, tx, assignmentID, u.ID); err != nil {
				return fmt.Errorf("failed to activate next unit: %w", err)
			}
			u.IsActive = true
			closed.next = u
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterClose(ctx, actor, closed)
	return closed.result(), nil
}

// Close closes a single unit without activating any other unit
func (s *unitService) Close(ctx context.Context, actor models.Actor, unitID uint) (result *UnitTransitionResult, err error) {
	op := s.log.WithOperation(ctx, "close_unit", actor.ID)
	defer func() { op.LogResult(unitID, "unit", err) }()

	if err = authorize(actor, CapCloseUnit, "unit", unitID); err != nil {
		return nil, err
	}

	var closed *closedUnit
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		unit, err := s.lockUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		closed, err = s.closeUnit(ctx, tx, actor, unit)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterClose(ctx, actor, closed)
	return closed.result(), nil
}

// closedUnit carries what the after-commit side effects of a closure need
type closedUnit struct {
	unit       *models.Unit
	next       *models.Unit
	finals     []*models.UnitFinalGrade
	activities int
}

func (c *closedUnit) result() *UnitTransitionResult {
	return &UnitTransitionResult{
		ClosedUnit:    c.unit,
		ActivatedUnit: c.next,
		FinalGrades:   len(c.finals),
	}
}

// closeUnit validates closure inside tx, persists final grades and marks the
// unit closed. unit must already be locked.
func (s *unitService) closeUnit(ctx context.Context, tx *gorm.DB, actor models.Actor, unit *models.Unit) (*closedUnit, error) {
	if unit.IsClosed() {
		return nil, ErrUnitClosed
	}

	validation, studentIDs, err := s.computeClosure(ctx, tx, unit)
	if err != nil {
		return nil, err
	}
	if !validation.CanClose {
		return nil, wrapRule(ErrUnitIncomplete, "unit_closure", validation.Reason, map[string]interface{}{
			"unit_id":               unit.ID,
			"incomplete_activities": validation.IncompleteActivities,
			"stats":                 validation.Stats,
		})
	}

	finals, err := s.computeFinalGrades(ctx, tx, unit, studentIDs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Grade().SaveFinalGrades(ctx, tx, finals); err != nil {
		return nil, fmt.Errorf("failed to save final grades: %w", err)
	}

	now := time.Now()
	closedBy := actor.ID
	unit.Status = models.UnitClosed
	unit.IsActive = false
	unit.ClosedAt = &now
	unit.ClosedBy = &closedBy
	unit.ReopenedAt = nil
	if err := s.repo.Unit().Update(ctx, tx, unit); err != nil {
		return nil, fmt.Errorf("failed to close unit: %w", err)
	}

	return &closedUnit{unit: unit, finals: finals, activities: validation.Stats.TotalActivities}, nil
}

func (s *unitService) afterClose(ctx context.Context, actor models.Actor, closed *closedUnit) {
	unit := closed.unit
	ids := []uint{unit.ID}
	event := events.UnitClosedEvent{
		AssignmentID:  unit.AssignmentID,
		UnitID:        unit.ID,
		UnitNumber:    unit.Number,
		StudentCount:  len(closed.finals),
		ClosedAt:      *unit.ClosedAt,
		ActivityCount: closed.activities,
	}
	if snapshot, err := json.Marshal(closed.finals); err == nil {
		event.FinalGrades = datatypes.JSON(snapshot)
	}

	detail := fmt.Sprintf("unit %d (%s) of assignment %d closed with %d final grades",
		unit.Number, unit.Name, unit.AssignmentID, len(closed.finals))
	metadata := map[string]interface{}{
		"assignment_id": unit.AssignmentID,
		"number":        unit.Number,
		"final_grades":  len(closed.finals),
	}
	if closed.next != nil {
		ids = append(ids, closed.next.ID)
		event.NextUnitID = &closed.next.ID
		detail += fmt.Sprintf("; unit %d activated", closed.next.Number)
		metadata["next_unit_id"] = closed.next.ID
	}

	s.invalidateUnit(ctx, ids...)
	s.recordAudit(ctx, &AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditUnitClosed,
		Detail:     detail,
		TargetType: "unit",
		TargetID:   unit.ID,
		Metadata:   metadata,
	})
	s.publish(ctx, events.EventUnitClosed, actor.ID, event)
	if closed.next != nil {
		s.publish(ctx, events.EventUnitActivated, actor.ID, events.UnitActivatedEvent{
			AssignmentID: closed.next.AssignmentID,
			UnitID:       closed.next.ID,
			UnitNumber:   closed.next.Number,
		})
	}
}

// UpdateWeights changes the zona/final split of a unit. Neither ceiling may
// drop below the points already assigned to enabled activities.
func (s *unitService) UpdateWeights(ctx context.Context, actor models.Actor, unitID uint, req *UpdateWeightsRequest) (unit *models.Unit, err error) {
	op := s.log.WithOperation(ctx, "update_unit_weights", actor.ID)
	defer func() { op.LogResult(unitID, "unit", err) }()

	if err = authorize(actor, CapConfigureWeights, "unit", unitID); err != nil {
		return nil, err
	}
	if err = s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if errs := s.validator.Business().ValidateUnitWeights(req.ZonaWeight, req.FinalWeight); len(errs) > 0 {
		return nil, errs
	}

	var previous [2]int
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		unit, err = s.lockUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if err := authorizeUnitEdit(actor, CapConfigureWeights, unit); err != nil {
			return err
		}

		activities, err := s.unitActivities(ctx, tx, unitID)
		if err != nil {
			return fmt.Errorf("failed to load unit activities: %w", err)
		}
		var errs ValidationErrors
		weights := s.validator.Weights()
		if e := weights.CheckCeiling(activities, models.CategoryZona, req.ZonaWeight); e != nil {
			errs = append(errs, *e)
		}
		if e := weights.CheckCeiling(activities, models.CategoryFinal, req.FinalWeight); e != nil {
			errs = append(errs, *e)
		}
		if len(errs) > 0 {
			return errs
		}

		previous = [2]int{unit.ZonaWeight, unit.FinalWeight}
		unit.ZonaWeight = req.ZonaWeight
		unit.FinalWeight = req.FinalWeight
		if err := s.repo.Unit().Update(ctx, tx, unit); err != nil {
			return fmt.Errorf("failed to update unit weights: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUnit(ctx, unitID)
	s.recordAudit(ctx, &AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditUnitWeightsUpdated,
		Detail:     fmt.Sprintf("unit %d weights changed from %d/%d to %d/%d", unit.ID, previous[0], previous[1], req.ZonaWeight, req.FinalWeight),
		TargetType: "unit",
		TargetID:   unit.ID,
		Metadata: map[string]interface{}{
			"zona_weight":  req.ZonaWeight,
			"final_weight": req.FinalWeight,
		},
	})
	return unit, nil
}

// CheckWeights is the read-only pre-check a form runs before submitting an activity
func (s *unitService) CheckWeights(ctx context.Context, actor models.Actor, unitID uint, candidate validator.WeightCandidate) (*validator.WeightCheck, error) {
	if err := authorize(actor, CapManageActivities, "unit", unitID); err != nil {
		return nil, err
	}
	unit, err := s.loadUnit(ctx, nil, unitID)
	if err != nil {
		return nil, err
	}
	if err := authorizeAssignment(actor, CapManageActivities, unit.Assignment); err != nil {
		return nil, err
	}

	activities, err := s.unitActivities(ctx, nil, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unit activities: %w", err)
	}
	return s.validator.Weights().Check(unit, activities, candidate)
}
