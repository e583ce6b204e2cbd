package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportService_UnitGradeSheet(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	ids := e.fx.StudentIDs()

	zona := testutil.AddActivity(t, e.db, unit.ID, "Tareas", models.CategoryZona, 60)
	final := testutil.AddActivity(t, e.db, unit.ID, "Examen", models.CategoryFinal, 40)
	testutil.GradeAll(t, e.db, zona.ID, ids, 50)
	testutil.GradeAll(t, e.db, final.ID, ids[:1], 35.5)

	sheet, err := e.manager.Export().ExportUnitGrades(ctx, teacher, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, "asignacion_1_unidad_1.xlsx", sheet.FileName)

	f, err := excelize.OpenReader(bytes.NewReader(sheet.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Unidad 1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Código", "Estudiante", "Tareas (zona, 60 pts)", "Examen (final, 40 pts)", "Zona (60)", "Final (40)", "Total"}, rows[0])

	assert.Equal(t, "Apellido01, Estudiante1", rows[1][1])
	assert.Equal(t, "86", rows[1][6], "live total while the unit is open")
	assert.Equal(t, "", rows[2][3], "ungraded cell stays empty")
	assert.Equal(t, "50", rows[2][6])
}

func TestExportService_ClosedUnitUsesStoredFinals(t *testing.T) {
	e := newEnv(t, 1)
	ctx := context.Background()
	unit := e.fx.Unit(1)
	zona := testutil.AddActivity(t, e.db, unit.ID, "Tareas", models.CategoryZona, 60)
	testutil.GradeAll(t, e.db, zona.ID, e.fx.StudentIDs(), 59.5)

	_, err := e.manager.Unit().Close(ctx, admin, unit.ID)
	require.NoError(t, err)

	sheet, err := e.manager.Export().ExportUnitGrades(ctx, admin, unit.ID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(sheet.Content))
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue("Unidad 1", "F2")
	require.NoError(t, err)
	assert.Equal(t, "60", total)

	_, err = e.manager.Export().ExportUnitGrades(ctx, parent, unit.ID)
	assert.Equal(t, KindPermissionDenied, KindOf(err))
}
