package services

import (
	"context"
	"testing"
	"time"

	"github.com/colegio-digital/grading-service/internal/cache"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosureService_IncompleteFinalActivity(t *testing.T) {
	e := newEnv(t, 25)
	ctx := context.Background()
	unit := e.fx.Unit(2)
	ids := e.fx.StudentIDs()

	first := testutil.AddActivity(t, e.db, unit.ID, "Investigación", models.CategoryZona, 30)
	second := testutil.AddActivity(t, e.db, unit.ID, "Proyecto", models.CategoryZona, 30)
	exam := testutil.AddActivity(t, e.db, unit.ID, "Examen final", models.CategoryFinal, 40)
	testutil.GradeAll(t, e.db, first.ID, ids, 25)
	testutil.GradeAll(t, e.db, second.ID, ids, 28)

	result, err := e.manager.Closure().ValidateClosure(ctx, teacher, unit.ID)
	require.NoError(t, err)
	assert.False(t, result.CanClose)
	assert.NotEmpty(t, result.Reason)
	require.Len(t, result.IncompleteActivities, 1)
	assert.Equal(t, exam.ID, result.IncompleteActivities[0].ActivityID)
	assert.Equal(t, 25, result.IncompleteActivities[0].UngradedStudentCount)

	assert.Equal(t, 3, result.Stats.TotalActivities)
	assert.Equal(t, 25, result.Stats.TotalStudents)
	assert.Equal(t, 75, result.Stats.ExpectedGrades)
	assert.Equal(t, 50, result.Stats.CompletedGrades)
	assert.Equal(t, 66.67, result.Stats.PercentComplete)
}

func TestClosureService_CompleteWhenCountsMatch(t *testing.T) {
	e := newEnv(t, 4)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	ids := e.fx.StudentIDs()

	zona := testutil.AddActivity(t, e.db, unit.ID, "Tareas", models.CategoryZona, 60)
	final := testutil.AddActivity(t, e.db, unit.ID, "Examen", models.CategoryFinal, 40)
	testutil.GradeAll(t, e.db, zona.ID, ids, 50)
	testutil.GradeAll(t, e.db, final.ID, ids[:3], 30)

	result, err := e.manager.Closure().ValidateClosure(ctx, teacher, unit.ID)
	require.NoError(t, err)
	assert.False(t, result.CanClose)
	require.Len(t, result.IncompleteActivities, 1)
	assert.Equal(t, 1, result.IncompleteActivities[0].UngradedStudentCount)

	testutil.GradeAll(t, e.db, final.ID, ids[3:], 30)
	e.cache.DeletePattern(ctx, "*")

	result, err = e.manager.Closure().ValidateClosure(ctx, teacher, unit.ID)
	require.NoError(t, err)
	assert.True(t, result.CanClose)
	assert.Empty(t, result.IncompleteActivities)
	assert.Equal(t, float64(100), result.Stats.PercentComplete)
}

func TestClosureService_LateCacheWriteIsNotServed(t *testing.T) {
	e := newEnv(t, 1)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	activity := testutil.AddActivity(t, e.db, unit.ID, "Tarea", models.CategoryZona, 10)

	stale, err := e.manager.Closure().ValidateClosure(ctx, teacher, unit.ID)
	require.NoError(t, err)
	assert.False(t, stale.CanClose)

	_, err = e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
		Entries: []GradeEntry{{StudentID: e.fx.Students[0].ID, Score: score(10)}},
	})
	require.NoError(t, err)

	// a reader that computed before the grade landed finishes its write now
	require.NoError(t, e.cache.Set(ctx, cache.ClosureStatsKey(unit.ID, 0), stale, time.Minute))

	fresh, err := e.manager.Closure().ValidateClosure(ctx, teacher, unit.ID)
	require.NoError(t, err)
	assert.True(t, fresh.CanClose)
	assert.True(t, e.cache.has(cache.ClosureStatsKey(unit.ID, 1)))
}

func TestClosureService_IgnoresDisabledAndUnenrolled(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	ids := e.fx.StudentIDs()

	graded := testutil.AddActivity(t, e.db, unit.ID, "Tareas", models.CategoryZona, 30)
	testutil.GradeAll(t, e.db, graded.ID, ids, 20)
	disabled := testutil.AddActivity(t, e.db, unit.ID, "Borrador", models.CategoryZona, 10)
	require.NoError(t, e.db.Model(disabled).Update("enabled", false).Error)

	// a grade for a student who left the group does not count toward completion
	require.NoError(t, e.db.Model(&models.Enrollment{}).Where("student_id = ?", ids[1]).Update("active", false).Error)

	result, err := e.manager.Closure().ValidateClosure(ctx, teacher, unit.ID)
	require.NoError(t, err)
	assert.True(t, result.CanClose)
	assert.Equal(t, 1, result.Stats.TotalActivities)
	assert.Equal(t, 1, result.Stats.TotalStudents)
	assert.Equal(t, 1, result.Stats.CompletedGrades)
}

func TestClosureService_NoActivitiesCanClose(t *testing.T) {
	e := newEnv(t, 3)

	result, err := e.manager.Closure().ValidateClosure(context.Background(), admin, e.fx.Unit(3).ID)
	require.NoError(t, err)
	assert.True(t, result.CanClose)
	assert.Equal(t, float64(100), result.Stats.PercentComplete)
}

func TestClosureService_Permissions(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	_, err := e.manager.Closure().ValidateClosure(ctx, stranger, e.fx.Unit(1).ID)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	_, err = e.manager.Closure().ValidateClosure(ctx, models.Actor{}, e.fx.Unit(1).ID)
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	_, err = e.manager.Closure().ValidateClosure(ctx, teacher, 9999)
	assert.Equal(t, KindNotFound, KindOf(err))
}
