package services

import (
	"context"
	"fmt"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// ExportService renders unit grade sheets as spreadsheets
type ExportService interface {
	ExportUnitGrades(ctx context.Context, actor models.Actor, unitID uint) (*GradeSheet, error)
}

type exportService struct {
	*serviceBase
}

func NewExportService(deps Dependencies) ExportService {
	return &exportService{serviceBase: newServiceBase(deps, "export")}
}

// ExportUnitGrades writes one row per enrolled student and one column per
// enabled activity, followed by the zona, final and total columns. Closed
// units use the stored final grades; open units show live sums.
func (s *exportService) ExportUnitGrades(ctx context.Context, actor models.Actor, unitID uint) (sheet *GradeSheet, err error) {
	op := s.log.WithOperation(ctx, "export_unit_grades", actor.ID)
	defer func() { op.LogResult(unitID, "unit", err) }()

	if err = authorize(actor, CapExportGrades, "unit", unitID); err != nil {
		return nil, err
	}
	unit, err := s.loadUnit(ctx, nil, unitID)
	if err != nil {
		return nil, err
	}
	if err = authorizeAssignment(actor, CapExportGrades, unit.Assignment); err != nil {
		return nil, err
	}

	activities, err := s.repo.Activity().ListByUnit(ctx, nil, unitID, repositories.ActivityFilters{EnabledOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	students, err := s.repo.Enrollment().ListStudents(ctx, nil, unit.Assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}

	activityIDs := make([]uint, 0, len(activities))
	for _, a := range activities {
		activityIDs = append(activityIDs, a.ID)
	}
	grades, err := s.repo.Grade().ListByActivities(ctx, nil, activityIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load grades: %w", err)
	}
	scores := make(map[uint]map[uint]float64, len(students))
	for _, g := range grades {
		if scores[g.StudentID] == nil {
			scores[g.StudentID] = make(map[uint]float64)
		}
		scores[g.StudentID][g.ActivityID] = g.Score
	}

	finals, err := s.sheetTotals(ctx, unit, students)
	if err != nil {
		return nil, err
	}

	content, err := writeGradeSheet(unit, activities, students, scores, finals)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditGradeSheetExported,
		Detail:     fmt.Sprintf("grade sheet of unit %d exported (%d students)", unit.ID, len(students)),
		TargetType: "unit",
		TargetID:   unit.ID,
	})

	return &GradeSheet{
		FileName: fmt.Sprintf("asignacion_%d_unidad_%d.xlsx", unit.AssignmentID, unit.Number),
		Content:  content,
	}, nil
}

func (s *exportService) sheetTotals(ctx context.Context, unit *models.Unit, students []*models.Student) (map[uint]*models.UnitFinalGrade, error) {
	var finals []*models.UnitFinalGrade
	var err error
	if unit.IsClosed() {
		finals, err = s.repo.Grade().ListFinalGrades(ctx, nil, unit.ID)
	} else {
		ids := make([]uint, 0, len(students))
		for _, st := range students {
			ids = append(ids, st.ID)
		}
		finals, err = s.computeFinalGrades(ctx, nil, unit, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load final grades: %w", err)
	}

	byStudent := make(map[uint]*models.UnitFinalGrade, len(finals))
	for _, f := range finals {
		byStudent[f.StudentID] = f
	}
	return byStudent, nil
}

func writeGradeSheet(unit *models.Unit, activities []*models.Activity, students []*models.Student,
	scores map[uint]map[uint]float64, finals map[uint]*models.UnitFinalGrade) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("Unidad %d", unit.Number)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []interface{}{"Código", "Estudiante"}
	for _, a := range activities {
		headers = append(headers, fmt.Sprintf("%s (%s, %g pts)", a.Name, a.Category, a.MaxPoints))
	}
	headers = append(headers,
		fmt.Sprintf("Zona (%d)", unit.ZonaWeight),
		fmt.Sprintf("Final (%d)", unit.FinalWeight),
		"Total")
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, st := range students {
		row := []interface{}{st.Code, st.FullName()}
		for _, a := range activities {
			if score, ok := scores[st.ID][a.ID]; ok {
				row = append(row, score)
			} else {
				row = append(row, "")
			}
		}
		if final, ok := finals[st.ID]; ok {
			row = append(row, final.ZonaScore, final.FinalScore, final.Total)
		} else {
			row = append(row, "", "", "")
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row for student %d: %w", st.ID, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "B", "B", 32); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "C", lastCol, 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
