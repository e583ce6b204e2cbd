package services

import (
	"context"
	"errors"
	"testing"

	"github.com/colegio-digital/grading-service/internal/events"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReason = "Se omitió la calificación de dos estudiantes por error"

func TestReopenService_RequestOnOpenUnitFails(t *testing.T) {
	e := newEnv(t, 0)

	_, err := e.manager.Reopen().RequestReopen(context.Background(), teacher, e.fx.Unit(1).ID, &ReopenRequestInput{Reason: validReason})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnitNotClosed))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "unit is not closed")
}

func TestReopenService_DuplicatePendingRequest(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	e.closeUnitDirectly(t, unit)

	request, err := e.manager.Reopen().RequestReopen(ctx, teacher, unit.ID, &ReopenRequestInput{Reason: validReason})
	require.NoError(t, err)
	assert.Equal(t, models.ReopenPending, request.Status)
	assert.Equal(t, teacherID, request.RequestedBy)

	_, err = e.manager.Reopen().RequestReopen(ctx, teacher, unit.ID, &ReopenRequestInput{Reason: validReason})
	assert.True(t, errors.Is(err, ErrDuplicateReopenRequest))
	assert.Equal(t, KindDuplicateRequest, KindOf(err))
	assert.Len(t, e.publisher.EventsOfType(events.EventReopenRequested), 1)
}

func TestReopenService_RequestValidation(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	e.closeUnitDirectly(t, unit)

	_, err := e.manager.Reopen().RequestReopen(ctx, teacher, unit.ID, &ReopenRequestInput{Reason: "muy corto"})
	var errs ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.True(t, errs.HasField("reason"))

	_, err = e.manager.Reopen().RequestReopen(ctx, admin, unit.ID, &ReopenRequestInput{Reason: validReason})
	assert.Equal(t, KindPermissionDenied, KindOf(err), "staff resolve requests, they do not file them")

	_, err = e.manager.Reopen().RequestReopen(ctx, stranger, unit.ID, &ReopenRequestInput{Reason: validReason})
	assert.Equal(t, KindPermissionDenied, KindOf(err))
}

func TestReopenService_ApproveKeepsGradesAndMakesUnitEditable(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	activity := testutil.AddActivity(t, e.db, unit.ID, "Tarea", models.CategoryZona, 60)
	testutil.GradeAll(t, e.db, activity.ID, e.fx.StudentIDs(), 40)

	_, err := e.manager.Unit().CloseAndOpenNext(ctx, teacher, e.fx.Assignment.ID)
	require.NoError(t, err)

	_, err = e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
		Entries: []GradeEntry{{StudentID: e.fx.Students[0].ID, Score: score(55)}},
	})
	require.True(t, errors.Is(err, ErrUnitClosed))

	request, err := e.manager.Reopen().RequestReopen(ctx, teacher, unit.ID, &ReopenRequestInput{Reason: validReason})
	require.NoError(t, err)

	_, err = e.manager.Reopen().ResolveReopen(ctx, teacher, request.ID, &ResolveReopenInput{Approve: boolPtr(true)})
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	resolved, err := e.manager.Reopen().ResolveReopen(ctx, operator, request.ID, &ResolveReopenInput{
		Approve: boolPtr(true),
		Note:    stringPtr("Aprobado"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReopenApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, operator.ID, *resolved.ResolvedBy)

	reopened := e.reloadUnit(t, unit.ID)
	assert.False(t, reopened.IsClosed())
	assert.True(t, reopened.IsReopened())
	assert.False(t, reopened.IsActive, "unit 2 stays the active unit")

	var finals int64
	require.NoError(t, e.db.Model(&models.UnitFinalGrade{}).Where("unit_id = ?", unit.ID).Count(&finals).Error)
	assert.Equal(t, int64(2), finals, "final grades survive the reopen")

	result, err := e.manager.Grade().RecordGrades(ctx, teacher, activity.ID, &RecordGradesRequest{
		Entries: []GradeEntry{{StudentID: e.fx.Students[0].ID, Score: score(55)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	_, err = e.manager.Reopen().ResolveReopen(ctx, admin, request.ID, &ResolveReopenInput{Approve: boolPtr(false)})
	assert.True(t, errors.Is(err, ErrReopenAlreadyResolved))

	// closing again recomputes the final grade
	_, err = e.manager.Unit().Close(ctx, admin, unit.ID)
	require.NoError(t, err)
	var final models.UnitFinalGrade
	require.NoError(t, e.db.Where("unit_id = ? AND student_id = ?", unit.ID, e.fx.Students[0].ID).First(&final).Error)
	assert.Equal(t, 55, final.Total)
	assert.Nil(t, e.reloadUnit(t, unit.ID).ReopenedAt)
}

func TestReopenService_RejectIsTerminal(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	e.closeUnitDirectly(t, unit)

	request, err := e.manager.Reopen().RequestReopen(ctx, teacher, unit.ID, &ReopenRequestInput{Reason: validReason})
	require.NoError(t, err)

	pending, err := e.manager.Reopen().ListPending(ctx, admin, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Total)

	resolved, err := e.manager.Reopen().ResolveReopen(ctx, admin, request.ID, &ResolveReopenInput{Approve: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, models.ReopenRejected, resolved.Status)
	assert.True(t, e.reloadUnit(t, unit.ID).IsClosed())

	pending, err = e.manager.Reopen().ListPending(ctx, admin, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, pending.Total)

	mine, err := e.manager.Reopen().ListMine(ctx, teacher, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine.Requests, 1)
	assert.Equal(t, models.ReopenRejected, mine.Requests[0].Status)

	// a rejected request no longer blocks a new one
	_, err = e.manager.Reopen().RequestReopen(ctx, teacher, unit.ID, &ReopenRequestInput{Reason: validReason})
	require.NoError(t, err)

	_, err = e.manager.Reopen().ListPending(ctx, teacher, 0, 0)
	assert.Equal(t, KindPermissionDenied, KindOf(err))
	_, err = e.manager.Reopen().ResolveReopen(ctx, admin, 9999, &ResolveReopenInput{Approve: boolPtr(true)})
	assert.True(t, errors.Is(err, ErrReopenRequestNotFound))
}
