package services

import (
	"context"
	"fmt"
	"time"

	"github.com/colegio-digital/grading-service/internal/events"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"github.com/colegio-digital/grading-service/internal/validator"
	"gorm.io/gorm"
)

// GradeService records and lists activity grades
type GradeService interface {
	RecordGrades(ctx context.Context, actor models.Actor, activityID uint, req *RecordGradesRequest) (*RecordGradesResult, error)
	ListActivityGrades(ctx context.Context, actor models.Actor, activityID uint) (*ActivityGradeList, error)
	FinalGradingGate(ctx context.Context, actor models.Actor, activityID uint) (*FinalGradingGate, error)
}

type gradeService struct {
	*serviceBase
}

func NewGradeService(deps Dependencies) GradeService {
	return &gradeService{serviceBase: newServiceBase(deps, "grade")}
}

// RecordGrades upserts a batch of scores for one activity. Entries with a nil
// score are skipped. The batch is written atomically or not at all.
// latestEntries keeps one entry per student, the last one submitted, in the
// order students first appear.
func latestEntries(entries []GradeEntry) []GradeEntry {
	index := make(map[uint]int, len(entries))
	out := make([]GradeEntry, 0, len(entries))
	for _, e := range entries {
		if i, ok := index[e.StudentID]; ok {
			out[i] = e
			continue
		}
		index[e.StudentID] = len(out)
		out = append(out, e)
	}
	return out
}

func (s *gradeService) RecordGrades(ctx context.Context, actor models.Actor, activityID uint, req *RecordGradesRequest) (result *RecordGradesResult, err error) {
	op := s.log.WithOperation(ctx, "record_grades", actor.ID)
	defer func() { op.LogResult(activityID, "activity", err) }()

	if err = authorize(actor, CapRecordGrades, "activity", activityID); err != nil {
		return nil, err
	}
	if err = s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	result = &RecordGradesResult{ActivityID: activityID}
	var unitID uint
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		activity, err := s.loadActivity(ctx, tx, activityID)
		if err != nil {
			return err
		}
		unit, err := s.lockUnit(ctx, tx, activity.UnitID)
		if err != nil {
			return err
		}
		unitID = unit.ID

		// a closed unit rejects grades from every role until a reopen is approved
		if unit.IsClosed() {
			return ErrUnitClosed
		}
		if err := authorizeUnitEdit(actor, CapRecordGrades, unit); err != nil {
			return err
		}

		entries := make([]validator.ScoreEntry, 0, len(req.Entries))
		for _, e := range req.Entries {
			entries = append(entries, validator.ScoreEntry{StudentID: e.StudentID, Score: e.Score})
		}
		if errs := s.validator.Business().ValidateScores(activity.MaxPoints, entries); len(errs) > 0 {
			return errs
		}
		batch := latestEntries(req.Entries)

		enrolled, err := s.repo.Enrollment().StudentIDs(ctx, tx, unit.Assignment)
		if err != nil {
			return fmt.Errorf("failed to load enrolled students: %w", err)
		}
		enrolledSet := make(map[uint]bool, len(enrolled))
		for _, id := range enrolled {
			enrolledSet[id] = true
		}

		if activity.Category == models.CategoryFinal && s.settings.EnforceZonaBeforeFinal {
			pending, err := s.pendingZona(ctx, tx, unit.ID, enrolled)
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				return wrapRule(ErrZonaIncomplete, "zona_before_final",
					fmt.Sprintf("%d zona activities still have ungraded students", len(pending)),
					map[string]interface{}{"pending_zona": pending})
			}
		}

		now := time.Now()
		grades := make([]*models.Grade, 0, len(batch))
		studentIDs := make([]uint, 0, len(batch))
		for _, e := range batch {
			if e.Score == nil {
				result.Skipped++
				continue
			}
			if !enrolledSet[e.StudentID] {
				return wrapRule(ErrStudentNotEnrolled, "enrollment",
					fmt.Sprintf("student %d is not enrolled in this course", e.StudentID),
					map[string]interface{}{"student_id": e.StudentID})
			}
			grades = append(grades, &models.Grade{
				ActivityID: activity.ID,
				StudentID:  e.StudentID,
				Score:      *e.Score,
				Note:       e.Note,
				GradedAt:   now,
				GradedBy:   actor.ID,
			})
			studentIDs = append(studentIDs, e.StudentID)
		}
		if len(grades) == 0 {
			return nil
		}

		existing, err := s.repo.Grade().GradedStudentIDs(ctx, tx, activity.ID, studentIDs)
		if err != nil {
			return fmt.Errorf("failed to read existing grades: %w", err)
		}
		for _, id := range studentIDs {
			if existing[id] {
				result.Updated++
			} else {
				result.Created++
			}
		}

		if err := s.repo.Grade().Upsert(ctx, tx, grades); err != nil {
			return fmt.Errorf("failed to save grades: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created+result.Updated > 0 {
		s.invalidateUnit(ctx, unitID)
		s.recordAudit(ctx, &AuditEntry{
			ActorID:    actor.ID,
			Action:     models.AuditGradesRecorded,
			Detail:     fmt.Sprintf("%d grades recorded for activity %d (%d new, %d updated)", result.Created+result.Updated, activityID, result.Created, result.Updated),
			TargetType: "activity",
			TargetID:   activityID,
			Metadata: map[string]interface{}{
				"unit_id": unitID,
				"created": result.Created,
				"updated": result.Updated,
				"skipped": result.Skipped,
			},
		})
		s.publish(ctx, events.EventGradesRecorded, actor.ID, events.GradesRecordedEvent{
			UnitID:     unitID,
			ActivityID: activityID,
			Created:    result.Created,
			Updated:    result.Updated,
			Skipped:    result.Skipped,
		})
	}
	return result, nil
}

// ListActivityGrades returns one row per enrolled student, ordered by last name.
// Ungraded students have a nil score.
func (s *gradeService) ListActivityGrades(ctx context.Context, actor models.Actor, activityID uint) (*ActivityGradeList, error) {
	if err := authorize(actor, CapViewGrades, "activity", activityID); err != nil {
		return nil, err
	}

	activity, err := s.loadActivity(ctx, nil, activityID)
	if err != nil {
		return nil, err
	}
	unit, err := s.loadUnit(ctx, nil, activity.UnitID)
	if err != nil {
		return nil, err
	}
	if err := authorizeAssignment(actor, CapViewGrades, unit.Assignment); err != nil {
		return nil, err
	}

	students, err := s.repo.Enrollment().ListStudents(ctx, nil, unit.Assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}
	grades, err := s.repo.Grade().ListByActivity(ctx, nil, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load grades: %w", err)
	}
	byStudent := make(map[uint]*models.Grade, len(grades))
	for _, g := range grades {
		byStudent[g.StudentID] = g
	}

	list := &ActivityGradeList{
		Activity: activity,
		Students: make([]StudentGrade, 0, len(students)),
		Total:    len(students),
	}
	for _, st := range students {
		row := StudentGrade{StudentID: st.ID, Code: st.Code, FullName: st.FullName()}
		if g, ok := byStudent[st.ID]; ok {
			score := g.Score
			gradedAt := g.GradedAt
			row.Score = &score
			row.Note = g.Note
			row.GradedAt = &gradedAt
			list.Graded++
		}
		list.Students = append(list.Students, row)
	}
	return list, nil
}

// FinalGradingGate reports whether every zona activity of the unit is fully
// graded. Recording is only refused on it when enforcement is configured.
func (s *gradeService) FinalGradingGate(ctx context.Context, actor models.Actor, activityID uint) (*FinalGradingGate, error) {
	if err := authorize(actor, CapViewGrades, "activity", activityID); err != nil {
		return nil, err
	}

	activity, err := s.loadActivity(ctx, nil, activityID)
	if err != nil {
		return nil, err
	}
	unit, err := s.loadUnit(ctx, nil, activity.UnitID)
	if err != nil {
		return nil, err
	}
	if err := authorizeAssignment(actor, CapViewGrades, unit.Assignment); err != nil {
		return nil, err
	}

	gate := &FinalGradingGate{
		ActivityID:  activityID,
		UnitID:      unit.ID,
		Open:        true,
		Enforced:    s.settings.EnforceZonaBeforeFinal,
		PendingZona: []IncompleteActivity{},
	}
	if activity.Category != models.CategoryFinal {
		return gate, nil
	}

	enrolled, err := s.repo.Enrollment().StudentIDs(ctx, nil, unit.Assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrolled students: %w", err)
	}
	pending, err := s.pendingZona(ctx, nil, unit.ID, enrolled)
	if err != nil {
		return nil, err
	}
	gate.PendingZona = pending
	gate.Open = len(pending) == 0
	return gate, nil
}

// pendingZona lists the enabled zona activities some enrolled student has no grade for
func (s *gradeService) pendingZona(ctx context.Context, tx *gorm.DB, unitID uint, studentIDs []uint) ([]IncompleteActivity, error) {
	zona := models.CategoryZona
	activities, err := s.repo.Activity().ListByUnit(ctx, tx, unitID, repositories.ActivityFilters{Category: &zona, EnabledOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load zona activities: %w", err)
	}
	if len(activities) == 0 {
		return []IncompleteActivity{}, nil
	}

	ids := make([]uint, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	counts, err := s.repo.Grade().CountGraded(ctx, tx, ids, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count grades: %w", err)
	}
	graded := make(map[uint]int, len(counts))
	for _, c := range counts {
		graded[c.ActivityID] = int(c.Graded)
	}

	pending := []IncompleteActivity{}
	for _, a := range activities {
		if missing := len(studentIDs) - graded[a.ID]; missing > 0 {
			pending = append(pending, IncompleteActivity{
				ActivityID:           a.ID,
				Name:                 a.Name,
				Category:             a.Category,
				UngradedStudentCount: missing,
			})
		}
	}
	return pending, nil
}
