package services

import (
	"context"
	"errors"
	"testing"

	"github.com/colegio-digital/grading-service/internal/events"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/testutil"
	"github.com/colegio-digital/grading-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradeUnitFully(t *testing.T, e *env, unit *models.Unit, zonaScore, finalScore float64) {
	t.Helper()
	zona := testutil.AddActivity(t, e.db, unit.ID, "Zona", models.CategoryZona, 60)
	final := testutil.AddActivity(t, e.db, unit.ID, "Final", models.CategoryFinal, 40)
	testutil.GradeAll(t, e.db, zona.ID, e.fx.StudentIDs(), zonaScore)
	testutil.GradeAll(t, e.db, final.ID, e.fx.StudentIDs(), finalScore)
}

func TestUnitService_CloseAndOpenNext(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()
	gradeUnitFully(t, e, e.fx.Unit(1), 45.5, 30)

	result, err := e.manager.Unit().CloseAndOpenNext(ctx, teacher, e.fx.Assignment.ID)
	require.NoError(t, err)
	require.NotNil(t, result.ClosedUnit)
	require.NotNil(t, result.ActivatedUnit)
	assert.Equal(t, 1, result.ClosedUnit.Number)
	assert.Equal(t, 2, result.ActivatedUnit.Number)
	assert.Equal(t, 3, result.FinalGrades)

	closed := e.reloadUnit(t, e.fx.Unit(1).ID)
	assert.True(t, closed.IsClosed())
	assert.False(t, closed.IsActive)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, teacherID, *closed.ClosedBy)
	assert.True(t, e.reloadUnit(t, e.fx.Unit(2).ID).IsActive)

	var finals []models.UnitFinalGrade
	require.NoError(t, e.db.Where("unit_id = ?", closed.ID).Find(&finals).Error)
	require.Len(t, finals, 3)
	for _, f := range finals {
		assert.Equal(t, 45.5, f.ZonaScore)
		assert.Equal(t, float64(30), f.FinalScore)
		assert.Equal(t, 76, f.Total, "75.5 rounds half away from zero")
	}

	closedEvents := e.publisher.EventsOfType(events.EventUnitClosed)
	require.Len(t, closedEvents, 1)
	payload := closedEvents[0].Data.(events.UnitClosedEvent)
	require.NotNil(t, payload.NextUnitID)
	assert.Equal(t, e.fx.Unit(2).ID, *payload.NextUnitID)
	assert.Len(t, e.publisher.EventsOfType(events.EventUnitActivated), 1)
}

func TestUnitService_CloseAndOpenNextRequiresCompleteUnit(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	zona := testutil.AddActivity(t, e.db, unit.ID, "Zona", models.CategoryZona, 60)
	testutil.AddActivity(t, e.db, unit.ID, "Final", models.CategoryFinal, 40)
	testutil.GradeAll(t, e.db, zona.ID, e.fx.StudentIDs(), 50)

	_, err := e.manager.Unit().CloseAndOpenNext(ctx, teacher, e.fx.Assignment.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnitIncomplete))
	assert.Equal(t, KindValidation, KindOf(err))

	var rule *BusinessRuleError
	require.True(t, errors.As(err, &rule))
	incomplete := rule.Context["incomplete_activities"].([]IncompleteActivity)
	require.Len(t, incomplete, 1)
	assert.Equal(t, 2, incomplete[0].UngradedStudentCount)

	// nothing moved
	assert.False(t, e.reloadUnit(t, unit.ID).IsClosed())
	assert.True(t, e.reloadUnit(t, unit.ID).IsActive)
	assert.False(t, e.reloadUnit(t, e.fx.Unit(2).ID).IsActive)
	var finals int64
	require.NoError(t, e.db.Model(&models.UnitFinalGrade{}).Count(&finals).Error)
	assert.Zero(t, finals)
	assert.Empty(t, e.publisher.GetPublishedEvents())
}

func TestUnitService_CloseLastUnitActivatesNothing(t *testing.T) {
	e := newEnv(t, 1)
	ctx := context.Background()

	_, err := e.manager.Unit().Activate(ctx, admin, e.fx.Unit(4).ID)
	require.NoError(t, err)
	gradeUnitFully(t, e, e.fx.Unit(4), 60, 40)

	result, err := e.manager.Unit().CloseAndOpenNext(ctx, teacher, e.fx.Assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, result.ClosedUnit.Number)
	assert.Nil(t, result.ActivatedUnit)

	var active int64
	require.NoError(t, e.db.Model(&models.Unit{}).Where("assignment_id = ? AND is_active = ?", e.fx.Assignment.ID, true).Count(&active).Error)
	assert.Zero(t, active)

	_, err = e.manager.Unit().CloseAndOpenNext(ctx, teacher, e.fx.Assignment.ID)
	assert.True(t, errors.Is(err, ErrNoActiveUnit))
}

func TestUnitService_CloseAndOpenNextKeepsClosedSuccessorClosed(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	_, err := e.manager.Unit().Close(ctx, admin, e.fx.Unit(2).ID)
	require.NoError(t, err)

	result, err := e.manager.Unit().CloseAndOpenNext(ctx, teacher, e.fx.Assignment.ID)
	require.NoError(t, err)
	assert.Nil(t, result.ActivatedUnit)
	assert.False(t, e.reloadUnit(t, e.fx.Unit(2).ID).IsActive)
}

func TestUnitService_CloseIsStaffOnly(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	unit := e.fx.Unit(3)

	_, err := e.manager.Unit().Close(ctx, teacher, unit.ID)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	result, err := e.manager.Unit().Close(ctx, operator, unit.ID)
	require.NoError(t, err)
	assert.Nil(t, result.ActivatedUnit)
	assert.True(t, e.reloadUnit(t, unit.ID).IsClosed())
	assert.True(t, e.reloadUnit(t, e.fx.Unit(1).ID).IsActive, "closing out of order leaves the active unit alone")

	_, err = e.manager.Unit().Close(ctx, operator, unit.ID)
	assert.True(t, errors.Is(err, ErrUnitClosed))
}

func TestUnitService_Activate(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	_, err := e.manager.Unit().Activate(ctx, teacher, e.fx.Unit(2).ID)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	unit, err := e.manager.Unit().Activate(ctx, admin, e.fx.Unit(3).ID)
	require.NoError(t, err)
	assert.True(t, unit.IsActive)

	units, err := e.manager.Assignment().ListUnits(ctx, teacher, e.fx.Assignment.ID)
	require.NoError(t, err)
	for _, u := range units {
		assert.Equal(t, u.Number == 3, u.IsActive, "unit %d", u.Number)
	}

	e.closeUnitDirectly(t, e.fx.Unit(2))
	_, err = e.manager.Unit().Activate(ctx, admin, e.fx.Unit(2).ID)
	assert.True(t, errors.Is(err, ErrUnitClosed))
}

func TestUnitService_UpdateWeights(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	testutil.AddActivity(t, e.db, unit.ID, "Tareas", models.CategoryZona, 50)

	t.Run("must add up to 100", func(t *testing.T) {
		_, err := e.manager.Unit().UpdateWeights(ctx, teacher, unit.ID, &UpdateWeightsRequest{ZonaWeight: 70, FinalWeight: 40})
		var errs ValidationErrors
		require.True(t, errors.As(err, &errs))
		assert.True(t, errs.HasField("weights"))
	})

	t.Run("ceiling cannot drop below assigned points", func(t *testing.T) {
		_, err := e.manager.Unit().UpdateWeights(ctx, teacher, unit.ID, &UpdateWeightsRequest{ZonaWeight: 40, FinalWeight: 60})
		var errs ValidationErrors
		require.True(t, errors.As(err, &errs))
		assert.True(t, errs.HasField("zona_weight"))
	})

	t.Run("valid split", func(t *testing.T) {
		updated, err := e.manager.Unit().UpdateWeights(ctx, teacher, unit.ID, &UpdateWeightsRequest{ZonaWeight: 70, FinalWeight: 30})
		require.NoError(t, err)
		assert.Equal(t, 100, updated.ZonaWeight+updated.FinalWeight)

		stored := e.reloadUnit(t, unit.ID)
		assert.Equal(t, 70, stored.ZonaWeight)
		assert.Equal(t, 30, stored.FinalWeight)
	})

	t.Run("teacher cannot configure an inactive unit", func(t *testing.T) {
		_, err := e.manager.Unit().UpdateWeights(ctx, teacher, e.fx.Unit(2).ID, &UpdateWeightsRequest{ZonaWeight: 50, FinalWeight: 50})
		assert.Equal(t, KindPermissionDenied, KindOf(err))
	})
}

func TestUnitService_CheckWeights(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	testutil.AddActivity(t, e.db, unit.ID, "Tareas", models.CategoryZona, 45)

	check, err := e.manager.Unit().CheckWeights(ctx, teacher, unit.ID, validator.WeightCandidate{
		Category:  models.CategoryZona,
		MaxPoints: 20,
		Enabled:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, validator.WeightOver, check.Status)
	assert.Equal(t, float64(15), check.Remaining)
}
