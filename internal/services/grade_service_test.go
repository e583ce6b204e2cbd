package services

import (
	"context"
	"errors"
	"testing"

	"github.com/colegio-digital/grading-service/internal/cache"
	"github.com/colegio-digital/grading-service/internal/events"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGradeService_RecordGradesIsIdempotentPerStudent(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	activity := testutil.AddActivity(t, e.db, e.fx.Unit(1).ID, "Tarea", models.CategoryZona, 10)
	student := e.fx.Students[0].ID

	first, err := e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
		Entries: []GradeEntry{{StudentID: student, Score: score(6)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 0, first.Updated)

	second, err := e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
		Entries: []GradeEntry{{StudentID: student, Score: score(9.5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)

	var grades []models.Grade
	require.NoError(t, e.db.Where("activity_id = ? AND student_id = ?", activity.ID, student).Find(&grades).Error)
	require.Len(t, grades, 1)
	assert.Equal(t, 9.5, grades[0].Score)
	assert.Len(t, e.publisher.EventsOfType(events.EventGradesRecorded), 2)
}

func TestGradeService_RecordGradesLatestEntryWins(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	activity := testutil.AddActivity(t, e.db, e.fx.Unit(1).ID, "Tarea", models.CategoryZona, 10)
	ids := e.fx.StudentIDs()

	result, err := e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
		Entries: []GradeEntry{
			{StudentID: ids[0], Score: score(4)},
			{StudentID: ids[1], Score: score(7)},
			{StudentID: ids[0], Score: score(9)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)

	var grade models.Grade
	require.NoError(t, e.db.Where("activity_id = ? AND student_id = ?", activity.ID, ids[0]).First(&grade).Error)
	assert.Equal(t, float64(9), grade.Score)
}

func TestGradeService_RecordGradesSkipsNullScores(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()
	activity := testutil.AddActivity(t, e.db, e.fx.Unit(1).ID, "Tarea", models.CategoryZona, 10)
	ids := e.fx.StudentIDs()

	result, err := e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
		Entries: []GradeEntry{
			{StudentID: ids[0], Score: score(7)},
			{StudentID: ids[1]},
			{StudentID: ids[2], Score: score(0)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)

	list, err := e.manager.Grade().ListActivityGrades(ctx, teacher, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.Graded)
	assert.Nil(t, list.Students[1].Score)
	require.NotNil(t, list.Students[2].Score)
	assert.Equal(t, float64(0), *list.Students[2].Score)
}

func TestGradeService_RecordGradesRejectsWholeBatch(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	activity := testutil.AddActivity(t, e.db, e.fx.Unit(1).ID, "Tarea", models.CategoryZona, 10)
	ids := e.fx.StudentIDs()

	t.Run("score out of range", func(t *testing.T) {
		_, err := e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
			Entries: []GradeEntry{
				{StudentID: ids[0], Score: score(8)},
				{StudentID: ids[1], Score: score(11)},
			},
		})
		var errs ValidationErrors
		require.True(t, errors.As(err, &errs))
		assert.True(t, errs.HasField("entries[1].score"))
	})

	t.Run("student not enrolled", func(t *testing.T) {
		_, err := e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
			Entries: []GradeEntry{
				{StudentID: ids[0], Score: score(8)},
				{StudentID: 9999, Score: score(5)},
			},
		})
		assert.True(t, errors.Is(err, ErrStudentNotEnrolled))
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("closed unit", func(t *testing.T) {
		e.closeUnitDirectly(t, e.fx.Unit(1))
		_, err := e.manager.Grade().RecordGrades(ctx, admin, activity.ID, &RecordGradesRequest{
			Entries: []GradeEntry{{StudentID: ids[0], Score: score(8)}},
		})
		assert.True(t, errors.Is(err, ErrUnitClosed))
		assert.Equal(t, KindUnitClosed, KindOf(err))
	})

	var count int64
	require.NoError(t, e.db.Model(&models.Grade{}).Count(&count).Error)
	assert.Zero(t, count, "no partial writes")
	assert.Empty(t, e.publisher.GetPublishedEvents())
}

func TestGradeService_RecordGradesInvalidatesClosureCache(t *testing.T) {
	e := newEnv(t, 1)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	activity := testutil.AddActivity(t, e.db, unit.ID, "Tarea", models.CategoryZona, 10)

	before, err := e.manager.Closure().ValidateClosure(ctx, teacher, unit.ID)
	require.NoError(t, err)
	assert.False(t, before.CanClose)
	assert.True(t, e.cache.has(cache.ClosureStatsKey(unit.ID, 0)))

	_, err = e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
		Entries: []GradeEntry{{StudentID: e.fx.Students[0].ID, Score: score(10)}},
	})
	require.NoError(t, err)
	assert.False(t, e.cache.has(cache.ClosureStatsKey(unit.ID, 0)))
	assert.True(t, e.cache.has(cache.UnitVersionKey(unit.ID)))

	after, err := e.manager.Closure().ValidateClosure(ctx, teacher, unit.ID)
	require.NoError(t, err)
	assert.True(t, after.CanClose)
}

func TestGradeService_FinalGradingGate(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	zona := testutil.AddActivity(t, e.db, unit.ID, "Tarea", models.CategoryZona, 60)
	final := testutil.AddActivity(t, e.db, unit.ID, "Examen", models.CategoryFinal, 40)

	gate, err := e.manager.Grade().FinalGradingGate(ctx, teacher, final.ID)
	require.NoError(t, err)
	assert.False(t, gate.Open)
	assert.False(t, gate.Enforced)
	require.Len(t, gate.PendingZona, 1)
	assert.Equal(t, zona.ID, gate.PendingZona[0].ActivityID)
	assert.Equal(t, 2, gate.PendingZona[0].UngradedStudentCount)

	// without enforcement the gate is advisory only
	_, err = e.manager.Grade().RecordGrades(ctx, teacher, final.ID, &RecordGradesRequest{
		Entries: []GradeEntry{{StudentID: e.fx.Students[0].ID, Score: score(30)}},
	})
	require.NoError(t, err)

	zonaGate, err := e.manager.Grade().FinalGradingGate(ctx, teacher, zona.ID)
	require.NoError(t, err)
	assert.True(t, zonaGate.Open)
}

func TestGradeService_EnforcedZonaBeforeFinal(t *testing.T) {
	e := newEnvWith(t, 2, func(d *Dependencies) { d.Settings.EnforceZonaBeforeFinal = true })
	ctx := context.Background()
	unit := e.fx.Unit(1)
	zona := testutil.AddActivity(t, e.db, unit.ID, "Tarea", models.CategoryZona, 60)
	final := testutil.AddActivity(t, e.db, unit.ID, "Examen", models.CategoryFinal, 40)
	entries := &RecordGradesRequest{Entries: []GradeEntry{{StudentID: e.fx.Students[0].ID, Score: score(30)}}}

	_, err := e.manager.Grade().RecordGrades(ctx, teacher, final.ID, entries)
	assert.True(t, errors.Is(err, ErrZonaIncomplete))

	testutil.GradeAll(t, e.db, zona.ID, e.fx.StudentIDs(), 50)
	gate, err := e.manager.Grade().FinalGradingGate(ctx, teacher, final.ID)
	require.NoError(t, err)
	assert.True(t, gate.Open)
	assert.True(t, gate.Enforced)

	_, err = e.manager.Grade().RecordGrades(ctx, teacher, final.ID, entries)
	require.NoError(t, err)
}

func TestGradeService_AuditFailureDoesNotRollBack(t *testing.T) {
	sink := &mockAuditSink{}
	sink.On("RecordEntry", mock.Anything, mock.MatchedBy(func(entry *AuditEntry) bool {
		return entry.Action == models.AuditGradesRecorded && entry.ActorID == teacherID
	})).Return(errors.New("audit store down")).Once()

	e := newEnvWith(t, 1, func(d *Dependencies) { d.Audit = sink })
	activity := testutil.AddActivity(t, e.db, e.fx.Unit(1).ID, "Tarea", models.CategoryZona, 10)

	result, err := e.manager.Grade().RecordGrades(context.Background(), teacher, activity.ID, &RecordGradesRequest{
		Entries: []GradeEntry{{StudentID: e.fx.Students[0].ID, Score: score(10)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	var count int64
	require.NoError(t, e.db.Model(&models.Grade{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	sink.AssertExpectations(t)
}
