package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/colegio-digital/grading-service/internal/events"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"github.com/colegio-digital/grading-service/internal/validator"
	"gorm.io/gorm"
)

// ActivityService is the registry of gradable activities of a unit
type ActivityService interface {
	List(ctx context.Context, actor models.Actor, unitID uint, filters repositories.ActivityFilters) ([]*models.Activity, error)
	Get(ctx context.Context, actor models.Actor, id uint) (*models.Activity, error)
	Create(ctx context.Context, actor models.Actor, unitID uint, req *CreateActivityRequest) (*ActivityResult, error)
	Update(ctx context.Context, actor models.Actor, id uint, req *UpdateActivityRequest) (*ActivityResult, error)
	Delete(ctx context.Context, actor models.Actor, id uint) error
}

type activityService struct {
	*serviceBase
}

func NewActivityService(deps Dependencies) ActivityService {
	return &activityService{serviceBase: newServiceBase(deps, "activity")}
}

func (s *activityService) List(ctx context.Context, actor models.Actor, unitID uint, filters repositories.ActivityFilters) ([]*models.Activity, error) {
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

	return s.repo.Activity().ListByUnit(ctx, nil, unitID, filters)
}

func (s *activityService) Get(ctx context.Context, actor models.Actor, id uint) (*models.Activity, error) {
	if err := authorize(actor, CapViewAssignments, "activity", id); err != nil {
		return nil, err
	}

	activity, err := s.loadActivity(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	unit, err := s.loadUnit(ctx, nil, activity.UnitID)
	if err != nil {
		return nil, err
	}
	if err := authorizeAssignment(actor, CapViewAssignments, unit.Assignment); err != nil {
		return nil, err
	}

	return activity, nil
}

func (s *activityService) Create(ctx context.Context, actor models.Actor, unitID uint, req *CreateActivityRequest) (result *ActivityResult, err error) {
	op := s.log.WithOperation(ctx, "create_activity", actor.ID)
	defer func() { op.LogResult(unitID, "unit", err) }()

	if err = authorize(actor, CapManageActivities, "unit", unitID); err != nil {
		return nil, err
	}
	if err = s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	activity := &models.Activity{
		UnitID:      unitID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		MaxPoints:   req.MaxPoints,
		DueDate:     req.DueDate,
		Enabled:     req.Enabled == nil || *req.Enabled,
		CreatedBy:   actor.ID,
	}

	var check *validator.WeightCheck
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		// the unit row lock serializes concurrent weight checks on the same unit
		unit, err := s.lockUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if err := authorizeUnitEdit(actor, CapManageActivities, unit); err != nil {
			return err
		}

		check, err = s.checkWeight(ctx, tx, unit, activity, nil)
		if err != nil {
			return err
		}

		if err := s.repo.Activity().Create(ctx, tx, activity); err != nil {
			return fmt.Errorf("failed to create activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterActivityChange(ctx, actor, activity, models.AuditActivityCreated, "created")
	return &ActivityResult{Activity: activity, WeightCheck: check}, nil
}

func (s *activityService) Update(ctx context.Context, actor models.Actor, id uint, req *UpdateActivityRequest) (result *ActivityResult, err error) {
	op := s.log.WithOperation(ctx, "update_activity", actor.ID)
	defer func() { op.LogResult(id, "activity", err) }()

	if err = authorize(actor, CapManageActivities, "activity", id); err != nil {
		return nil, err
	}
	if err = s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var (
		activity *models.Activity
		check    *validator.WeightCheck
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		current, err := s.loadActivity(ctx, tx, id)
		if err != nil {
			return err
		}
		unit, err := s.lockUnit(ctx, tx, current.UnitID)
		if err != nil {
			return err
		}
		if err := authorizeUnitEdit(actor, CapManageActivities, unit); err != nil {
			return err
		}

		activity = applyActivityUpdate(current, req)
		if err := s.checkRecordedScores(ctx, tx, current, activity); err != nil {
			return err
		}
		check, err = s.checkWeight(ctx, tx, unit, activity, &activity.ID)
		if err != nil {
			return err
		}

		if err := s.repo.Activity().Update(ctx, tx, activity); err != nil {
			return fmt.Errorf("failed to update activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterActivityChange(ctx, actor, activity, models.AuditActivityUpdated, "updated")
	return &ActivityResult{Activity: activity, WeightCheck: check}, nil
}

// Delete soft deletes the activity. Grades recorded for it are kept.
func (s *activityService) Delete(ctx context.Context, actor models.Actor, id uint) (err error) {
	op := s.log.WithOperation(ctx, "delete_activity", actor.ID)
	defer func() { op.LogResult(id, "activity", err) }()

	if err = authorize(actor, CapManageActivities, "activity", id); err != nil {
		return err
	}

	var activity *models.Activity
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		activity, err = s.loadActivity(ctx, tx, id)
		if err != nil {
			return err
		}
		unit, err := s.lockUnit(ctx, tx, activity.UnitID)
		if err != nil {
			return err
		}
		if err := authorizeUnitEdit(actor, CapManageActivities, unit); err != nil {
			return err
		}
		return notFound(s.repo.Activity().Delete(ctx, tx, id), ErrActivityNotFound)
	})
	if err != nil {
		return err
	}

	s.afterActivityChange(ctx, actor, activity, models.AuditActivityDeleted, "deleted")
	return nil
}

// checkWeight runs the grade-weight validator and turns an overflow into a
// rule violation carrying the remaining headroom.
func (s *activityService) checkWeight(ctx context.Context, tx *gorm.DB, unit *models.Unit, activity *models.Activity, excludeID *uint) (*validator.WeightCheck, error) {
	existing, err := s.unitActivities(ctx, tx, unit.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unit activities: %w", err)
	}

	check, err := s.validator.Weights().Check(unit, existing, validator.WeightCandidate{
		Category:  activity.Category,
		MaxPoints: activity.MaxPoints,
		Enabled:   activity.Enabled,
		ExcludeID: excludeID,
	})
	if err != nil {
		return nil, err
	}

	if check.Blocks() {
		return nil, wrapRule(ErrWeightCeilingExceeded, "weight_ceiling",
			fmt.Sprintf("%g points exceed the %s ceiling of %g; %g points remaining",
				activity.MaxPoints, activity.Category, check.Ceiling, check.Remaining),
			map[string]interface{}{
				"category":  check.Category,
				"ceiling":   check.Ceiling,
				"used":      check.Used,
				"remaining": check.Remaining,
			})
	}
	return check, nil
}

func (s *activityService) afterActivityChange(ctx context.Context, actor models.Actor, activity *models.Activity, action models.AuditAction, change string) {
	s.invalidateUnit(ctx, activity.UnitID)
	s.recordAudit(ctx, &AuditEntry{
		ActorID:    actor.ID,
		Action:     action,
		Detail:     fmt.Sprintf("activity %q (%s, %g pts) %s in unit %d", activity.Name, activity.Category, activity.MaxPoints, change, activity.UnitID),
		TargetType: "activity",
		TargetID:   activity.ID,
		Metadata: map[string]interface{}{
			"unit_id":    activity.UnitID,
			"category":   activity.Category,
			"max_points": activity.MaxPoints,
			"enabled":    activity.Enabled,
		},
	})
	s.publish(ctx, events.EventActivityChanged, actor.ID, events.ActivityChangedEvent{
		UnitID:     activity.UnitID,
		ActivityID: activity.ID,
		Change:     change,
	})
}

// checkRecordedScores keeps every recorded score within the activity's
// points. A graded activity cannot shrink below its best score nor move to
// the other category.
func (s *activityService) checkRecordedScores(ctx context.Context, tx *gorm.DB, current, updated *models.Activity) error {
	if updated.MaxPoints >= current.MaxPoints && updated.Category == current.Category {
		return nil
	}

	highest, err := s.repo.Grade().MaxScore(ctx, tx, current.ID)
	if err != nil {
		return fmt.Errorf("failed to read recorded scores: %w", err)
	}
	if highest == nil {
		return nil
	}

	var errs ValidationErrors
	if updated.Category != current.Category {
		errs = errs.Add("category", "cannot change once grades are recorded", updated.Category)
	}
	if *highest > updated.MaxPoints {
		errs = errs.Add("max_points",
			fmt.Sprintf("must be at least %g, the highest recorded score", *highest), updated.MaxPoints)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func applyActivityUpdate(current *models.Activity, req *UpdateActivityRequest) *models.Activity {
	updated := *current
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updated.Description = req.Description
	}
	if req.Category != nil {
		updated.Category = *req.Category
	}
	if req.MaxPoints != nil {
		updated.MaxPoints = *req.MaxPoints
	}
	if req.DueDate != nil {
		updated.DueDate = req.DueDate
	}
	if req.Enabled != nil {
		updated.Enabled = *req.Enabled
	}
	return &updated
}
