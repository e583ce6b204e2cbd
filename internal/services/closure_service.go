package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/colegio-digital/grading-service/internal/cache"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

// ClosureService answers whether a unit may be closed
type ClosureService interface {
	ValidateClosure(ctx context.Context, actor models.Actor, unitID uint) (*ClosureValidation, error)
}

type closureService struct {
	*serviceBase
}

func NewClosureService(deps Dependencies) ClosureService {
	return &closureService{serviceBase: newServiceBase(deps, "closure")}
}

func (s *closureService) ValidateClosure(ctx context.Context, actor models.Actor, unitID uint) (result *ClosureValidation, err error) {
	op := s.log.WithOperation(ctx, "validate_closure", actor.ID)
	defer func() { op.LogResult(unitID, "unit", err) }()

	if err = authorize(actor, CapViewGrades, "unit", unitID); err != nil {
		return nil, err
	}

	unit, err := s.loadUnit(ctx, nil, unitID)
	if err != nil {
		return nil, err
	}
	if err = authorizeAssignment(actor, CapViewGrades, unit.Assignment); err != nil {
		return nil, err
	}

	key := cache.ClosureStatsKey(unitID, s.unitCacheVersion(ctx, unitID))
	var cached ClosureValidation
	if cacheErr := s.cache.Get(ctx, key, &cached); cacheErr == nil {
		return &cached, nil
	} else if !errors.Is(cacheErr, cache.ErrCacheMiss) {
		s.log.Logger().WarnContext(ctx, "closure cache read failed", "unit_id", unitID, "error", cacheErr)
	}

	result, _, err = s.computeClosure(ctx, nil, unit)
	if err != nil {
		return nil, err
	}

	if cacheErr := s.cache.Set(ctx, key, result, s.settings.ClosureCacheTTL); cacheErr != nil {
		s.log.Logger().WarnContext(ctx, "closure cache write failed", "unit_id", unitID, "error", cacheErr)
	}
	return result, nil
}

// computeClosure counts graded students per enabled activity. Only students
// currently enrolled in the assignment's group are counted. The enrolled ids
// are returned so callers in the same transaction can reuse them.
func (b *serviceBase) computeClosure(ctx context.Context, tx *gorm.DB, unit *models.Unit) (*ClosureValidation, []uint, error) {
	activities, err := b.repo.Activity().ListByUnit(ctx, tx, unit.ID, repositories.ActivityFilters{EnabledOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load activities: %w", err)
	}

	studentIDs, err := b.repo.Enrollment().StudentIDs(ctx, tx, unit.Assignment)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load enrolled students: %w", err)
	}

	activityIDs := make([]uint, 0, len(activities))
	for _, a := range activities {
		activityIDs = append(activityIDs, a.ID)
	}

	counts, err := b.repo.Grade().CountGraded(ctx, tx, activityIDs, studentIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count grades: %w", err)
	}
	graded := make(map[uint]int, len(counts))
	for _, c := range counts {
		graded[c.ActivityID] = int(c.Graded)
	}

	result := &ClosureValidation{
		UnitID:               unit.ID,
		IncompleteActivities: []IncompleteActivity{},
		Stats: ClosureStats{
			TotalActivities: len(activities),
			TotalStudents:   len(studentIDs),
			ExpectedGrades:  len(activities) * len(studentIDs),
		},
	}

	for _, a := range activities {
		done := graded[a.ID]
		result.Stats.CompletedGrades += done
		if missing := len(studentIDs) - done; missing > 0 {
			result.IncompleteActivities = append(result.IncompleteActivities, IncompleteActivity{
				ActivityID:           a.ID,
				Name:                 a.Name,
				Category:             a.Category,
				UngradedStudentCount: missing,
			})
		}
	}

	result.Stats.PercentComplete = percent(result.Stats.CompletedGrades, result.Stats.ExpectedGrades)
	result.CanClose = len(result.IncompleteActivities) == 0
	if !result.CanClose {
		result.Reason = fmt.Sprintf("%d of %d activities have ungraded students",
			len(result.IncompleteActivities), len(activities))
	}

	return result, studentIDs, nil
}

// computeFinalGrades aggregates each student's points per category, capped by
// the unit's ceilings, and rounds the sum half away from zero.
func (b *serviceBase) computeFinalGrades(ctx context.Context, tx *gorm.DB, unit *models.Unit, studentIDs []uint) ([]*models.UnitFinalGrade, error) {
	sums, err := b.repo.Grade().SumPointsByCategory(ctx, tx, unit.ID, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to sum grades: %w", err)
	}

	type points struct{ zona, final float64 }
	byStudent := make(map[uint]*points, len(studentIDs))
	for _, id := range studentIDs {
		byStudent[id] = &points{}
	}
	for _, row := range sums {
		p, ok := byStudent[row.StudentID]
		if !ok {
			continue
		}
		switch row.Category {
		case models.CategoryZona:
			p.zona += row.Points
		case models.CategoryFinal:
			p.final += row.Points
		}
	}

	now := time.Now()
	finals := make([]*models.UnitFinalGrade, 0, len(studentIDs))
	for _, id := range studentIDs {
		p := byStudent[id]
		zona := math.Min(p.zona, float64(unit.ZonaWeight))
		final := math.Min(p.final, float64(unit.FinalWeight))
		finals = append(finals, &models.UnitFinalGrade{
			UnitID:     unit.ID,
			StudentID:  id,
			ZonaScore:  zona,
			FinalScore: final,
			Total:      int(math.Round(zona + final)),
			ComputedAt: now,
		})
	}
	return finals, nil
}

func percent(done, expected int) float64 {
	if expected == 0 {
		return 100
	}
	return math.Round(float64(done)/float64(expected)*10000) / 100
}
