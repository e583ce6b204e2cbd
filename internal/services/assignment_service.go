package services

import (
	"context"
	"fmt"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

// AssignmentService manages course assignments and their four units
type AssignmentService interface {
	Create(ctx context.Context, actor models.Actor, req *CreateAssignmentRequest) (*models.CourseAssignment, error)
	Get(ctx context.Context, actor models.Actor, id uint) (*models.CourseAssignment, error)
	List(ctx context.Context, actor models.Actor, filters repositories.AssignmentFilters) (*AssignmentList, error)
	ListUnits(ctx context.Context, actor models.Actor, assignmentID uint) ([]*models.Unit, error)
	Delete(ctx context.Context, actor models.Actor, id uint) error
}

type assignmentService struct {
	*serviceBase
}

func NewAssignmentService(deps Dependencies) AssignmentService {
	return &assignmentService{serviceBase: newServiceBase(deps, "assignment")}
}

func (s *assignmentService) Create(ctx context.Context, actor models.Actor, req *CreateAssignmentRequest) (assignment *models.CourseAssignment, err error) {
	op := s.log.WithOperation(ctx, "create_assignment", actor.ID)
	defer func() {
		var id uint
		if assignment != nil {
			id = assignment.ID
		}
		op.LogResult(id, "assignment", err)
	}()

	if err = authorize(actor, CapManageAssignments, "assignment", 0); err != nil {
		return nil, err
	}
	if err = s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	zona := s.settings.DefaultZonaWeight
	if req.ZonaWeight != nil {
		zona = *req.ZonaWeight
	}
	if errs := s.validator.Business().ValidateUnitWeights(zona, 100-zona); len(errs) > 0 {
		return nil, errs
	}

	assignment = &models.CourseAssignment{
		TeacherID: req.TeacherID,
		CourseID:  req.CourseID,
		GradeID:   req.GradeID,
		SectionID: req.SectionID,
		ShiftID:   req.ShiftID,
		Year:      req.Year,
		Active:    true,
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		exists, err := s.repo.Assignment().ExistsActive(ctx, tx, assignment)
		if err != nil {
			return fmt.Errorf("failed to check existing assignments: %w", err)
		}
		if exists {
			return ErrDuplicateAssignment
		}

		if err := s.repo.Assignment().Create(ctx, tx, assignment); err != nil {
			if repositories.IsDuplicateKeyError(err) {
				return ErrDuplicateAssignment
			}
			return fmt.Errorf("failed to create assignment: %w", err)
		}

		units := make([]*models.Unit, 0, models.UnitsPerAssignment)
		for n := 1; n <= models.UnitsPerAssignment; n++ {
			units = append(units, &models.Unit{
				AssignmentID: assignment.ID,
				Number:       n,
				Name:         fmt.Sprintf("Unidad %d", n),
				ZonaWeight:   zona,
				FinalWeight:  100 - zona,
				IsActive:     n == 1,
				IsEnabled:    true,
				Status:       models.UnitOpen,
			})
		}
		if err := s.repo.Unit().CreateBatch(ctx, tx, units); err != nil {
			return fmt.Errorf("failed to create units: %w", err)
		}

		assignment.Units = make([]models.Unit, 0, len(units))
		for _, u := range units {
			assignment.Units = append(assignment.Units, *u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditAssignmentCreated,
		Detail:     fmt.Sprintf("assignment %d created for teacher %d, course %d, year %d", assignment.ID, assignment.TeacherID, assignment.CourseID, assignment.Year),
		TargetType: "assignment",
		TargetID:   assignment.ID,
	})

	return assignment, nil
}

func (s *assignmentService) Get(ctx context.Context, actor models.Actor, id uint) (*models.CourseAssignment, error) {
	if err := authorize(actor, CapViewAssignments, "assignment", id); err != nil {
		return nil, err
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, nil, id)
	if err != nil {
		return nil, notFound(err, ErrAssignmentNotFound)
	}
	if err := authorizeAssignment(actor, CapViewAssignments, assignment); err != nil {
		return nil, err
	}

	units, err := s.repo.Unit().ListByAssignment(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}
	assignment.Units = make([]models.Unit, 0, len(units))
	for _, u := range units {
		assignment.Units = append(assignment.Units, *u)
	}

	return assignment, nil
}

func (s *assignmentService) List(ctx context.Context, actor models.Actor, filters repositories.AssignmentFilters) (*AssignmentList, error) {
	if err := authorize(actor, CapViewAssignments, "assignment", 0); err != nil {
		return nil, err
	}
	if actor.IsTeacher() {
		teacherID := actor.ID
		filters.TeacherID = &teacherID
	}

	assignments, total, err := s.repo.Assignment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	return &AssignmentList{
		Assignments: assignments,
		Total:       total,
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}, nil
}

func (s *assignmentService) ListUnits(ctx context.Context, actor models.Actor, assignmentID uint) ([]*models.Unit, error) {
	if err := authorize(actor, CapViewAssignments, "assignment", assignmentID); err != nil {
		return nil, err
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, notFound(err, ErrAssignmentNotFound)
	}
	if err := authorizeAssignment(actor, CapViewAssignments, assignment); err != nil {
		return nil, err
	}

	return s.repo.Unit().ListByAssignment(ctx, nil, assignmentID)
}

func (s *assignmentService) Delete(ctx context.Context, actor models.Actor, id uint) (err error) {
	op := s.log.WithOperation(ctx, "delete_assignment", actor.ID)
	defer func() { op.LogResult(id, "assignment", err) }()

	if err = authorize(actor, CapManageAssignments, "assignment", id); err != nil {
		return err
	}

	var unitIDs []uint
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		units, err := s.repo.Unit().LockByAssignment(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to lock units: %w", err)
		}
		for _, u := range units {
			unitIDs = append(unitIDs, u.ID)
		}
		return notFound(s.repo.Assignment().Delete(ctx, tx, id), ErrAssignmentNotFound)
	})
	if err != nil {
		return err
	}

	s.invalidateUnit(ctx, unitIDs...)
	s.recordAudit(ctx, &AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditAssignmentDeleted,
		Detail:     fmt.Sprintf("assignment %d deleted with %d units", id, len(unitIDs)),
		TargetType: "assignment",
		TargetID:   id,
	})
	return nil
}
