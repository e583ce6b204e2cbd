package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"github.com/colegio-digital/grading-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGradePostgreSQL_UpsertKeepsOneRowPerStudent(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.Seed(t, db, 100, 2)
	activity := testutil.AddActivity(t, db, fx.Unit(1).ID, "Tarea 1", models.CategoryZona, 10)
	repo := NewGradePostgreSQL(db)
	ctx := context.Background()

	student := fx.Students[0].ID
	require.NoError(t, repo.Upsert(ctx, nil, []*models.Grade{
		{ActivityID: activity.ID, StudentID: student, Score: 6, GradedAt: time.Now(), GradedBy: 100},
	}))
	require.NoError(t, repo.Upsert(ctx, nil, []*models.Grade{
		{ActivityID: activity.ID, StudentID: student, Score: 9, GradedAt: time.Now(), GradedBy: 100},
	}))

	grades, err := repo.ListByActivity(ctx, nil, activity.ID)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, 9.0, grades[0].Score)

	graded, err := repo.GradedStudentIDs(ctx, nil, activity.ID, fx.StudentIDs())
	require.NoError(t, err)
	assert.True(t, graded[student])
	assert.False(t, graded[fx.Students[1].ID])
}

func TestGradePostgreSQL_CountsAndSums(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.Seed(t, db, 100, 3)
	unit := fx.Unit(1)
	zona := testutil.AddActivity(t, db, unit.ID, "Tarea", models.CategoryZona, 30)
	final := testutil.AddActivity(t, db, unit.ID, "Examen", models.CategoryFinal, 40)
	repo := NewGradePostgreSQL(db)
	ctx := context.Background()

	testutil.GradeAll(t, db, zona.ID, fx.StudentIDs(), 20)
	testutil.GradeAll(t, db, final.ID, fx.StudentIDs()[:1], 35)

	counts, err := repo.CountGraded(ctx, nil, []uint{zona.ID, final.ID}, fx.StudentIDs())
	require.NoError(t, err)
	byActivity := map[uint]int64{}
	for _, c := range counts {
		byActivity[c.ActivityID] = c.Graded
	}
	assert.Equal(t, int64(3), byActivity[zona.ID])
	assert.Equal(t, int64(1), byActivity[final.ID])

	sums, err := repo.SumPointsByCategory(ctx, nil, unit.ID, fx.StudentIDs())
	require.NoError(t, err)
	first := fx.Students[0].ID
	var zonaPoints, finalPoints float64
	for _, row := range sums {
		if row.StudentID != first {
			continue
		}
		switch row.Category {
		case models.CategoryZona:
			zonaPoints = row.Points
		case models.CategoryFinal:
			finalPoints = row.Points
		}
	}
	assert.Equal(t, 20.0, zonaPoints)
	assert.Equal(t, 35.0, finalPoints)
}

func TestGradePostgreSQL_MaxScore(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.Seed(t, db, 100, 2)
	activity := testutil.AddActivity(t, db, fx.Unit(1).ID, "Tarea", models.CategoryZona, 30)
	repo := NewGradePostgreSQL(db)
	ctx := context.Background()

	highest, err := repo.MaxScore(ctx, nil, activity.ID)
	require.NoError(t, err)
	assert.Nil(t, highest)

	testutil.GradeAll(t, db, activity.ID, fx.StudentIDs()[:1], 28)
	testutil.GradeAll(t, db, activity.ID, fx.StudentIDs()[1:], 25)

	highest, err = repo.MaxScore(ctx, nil, activity.ID)
	require.NoError(t, err)
	require.NotNil(t, highest)
	assert.Equal(t, 28.0, *highest)
}

func TestUnitPostgreSQL_SetActiveLeavesSingleActiveUnit(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.Seed(t, db, 100, 0)
	repo := NewUnitPostgreSQL(db)
	ctx := context.Background()

	require.NoError(t, repo.SetActive(ctx, nil, fx.Assignment.ID, fx.Unit(3).ID))

	units, err := repo.ListByAssignment(ctx, nil, fx.Assignment.ID)
	require.NoError(t, err)
	require.Len(t, units, 4)
	for _, u := range units {
		assert.Equal(t, u.Number == 3, u.IsActive, "unit %d", u.Number)
	}

	err = repo.SetActive(ctx, nil, fx.Assignment.ID+99, fx.Unit(3).ID)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestAssignmentPostgreSQL_DeleteCascadesSoftDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.Seed(t, db, 100, 1)
	activity := testutil.AddActivity(t, db, fx.Unit(1).ID, "Tarea", models.CategoryZona, 10)
	testutil.GradeAll(t, db, activity.ID, fx.StudentIDs(), 8)
	ctx := context.Background()

	repo := NewRepository(db)
	require.NoError(t, repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return repo.Assignment().Delete(ctx, tx, fx.Assignment.ID)
	}))

	_, err := repo.Assignment().GetByID(ctx, nil, fx.Assignment.ID)
	assert.True(t, repositories.IsNotFoundError(err))
	_, err = repo.Unit().GetByID(ctx, nil, fx.Unit(1).ID)
	assert.True(t, repositories.IsNotFoundError(err))
	_, err = repo.Activity().GetByID(ctx, nil, activity.ID)
	assert.True(t, repositories.IsNotFoundError(err))

	// grades survive the cascade
	grades, err := repo.Grade().ListByActivity(ctx, nil, activity.ID)
	require.NoError(t, err)
	assert.Len(t, grades, 1)

	err = repo.Assignment().Delete(ctx, nil, fx.Assignment.ID)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestEnrollmentPostgreSQL_ListsOnlyActiveGroupMembers(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.Seed(t, db, 100, 2)

	outsider := &models.Student{FirstName: "Otra", LastName: "Seccion"}
	require.NoError(t, db.Create(outsider).Error)
	require.NoError(t, db.Create(&models.Enrollment{
		StudentID: outsider.ID, GradeID: fx.Assignment.GradeID, SectionID: fx.Assignment.SectionID + 1,
		ShiftID: fx.Assignment.ShiftID, Year: fx.Assignment.Year, Active: true,
	}).Error)

	repo := NewEnrollmentPostgreSQL(db)
	ids, err := repo.StudentIDs(context.Background(), nil, fx.Assignment)
	require.NoError(t, err)
	assert.ElementsMatch(t, fx.StudentIDs(), ids)

	students, err := repo.ListStudents(context.Background(), nil, fx.Assignment)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Apellido01", students[0].LastName)
}

func TestReopenRequestPostgreSQL_PendingAndList(t *testing.T) {
	db := testutil.NewTestDB(t)
	fx := testutil.Seed(t, db, 100, 0)
	repo := NewReopenRequestPostgreSQL(db)
	ctx := context.Background()
	unitID := fx.Unit(1).ID

	pending, err := repo.HasPending(ctx, nil, unitID)
	require.NoError(t, err)
	assert.False(t, pending)

	request := &models.ReopenRequest{UnitID: unitID, RequestedBy: 100, Reason: "Faltó registrar la recuperación", Status: models.ReopenPending}
	require.NoError(t, repo.Create(ctx, nil, request))

	pending, err = repo.HasPending(ctx, nil, unitID)
	require.NoError(t, err)
	assert.True(t, pending)

	requester := uint(100)
	list, total, err := repo.List(ctx, nil, repositories.ReopenFilters{RequestedBy: &requester})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Unit)
	assert.Equal(t, unitID, list[0].Unit.ID)

	request.Status = models.ReopenRejected
	require.NoError(t, repo.Update(ctx, nil, request))
	pending, err = repo.HasPending(ctx, nil, unitID)
	require.NoError(t, err)
	assert.False(t, pending)
}
