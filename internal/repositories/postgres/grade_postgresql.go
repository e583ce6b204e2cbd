package postgres

import (
	"context"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GradePostgreSQL struct {
	helpers *SharedHelpers
}

func NewGradePostgreSQL(db *gorm.DB) repositories.GradeRepository {
	return &GradePostgreSQL{helpers: NewSharedHelpers(db)}
}

func (g *GradePostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, grades []*models.Grade) error {
	if len(grades) == 0 {
		return nil
	}
	return g.helpers.conn(ctx, tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "activity_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "note", "graded_at", "graded_by", "updated_at"}),
		}).
		Create(&grades).Error
}

// GradedStudentIDs returns which of studentIDs already have a grade for the activity
func (g *GradePostgreSQL) GradedStudentIDs(ctx context.Context, tx *gorm.DB, activityID uint, studentIDs []uint) (map[uint]bool, error) {
	graded := make(map[uint]bool)
	if len(studentIDs) == 0 {
		return graded, nil
	}

	var ids []uint
	err := g.helpers.conn(ctx, tx).
		Model(&models.Grade{}).
		Where("activity_id = ? AND student_id IN ?", activityID, studentIDs).
		Pluck("student_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		graded[id] = true
	}
	return graded, nil
}

func (g *GradePostgreSQL) ListByActivity(ctx context.Context, tx *gorm.DB, activityID uint) ([]*models.Grade, error) {
	var grades []*models.Grade
	err := g.helpers.conn(ctx, tx).
		Where("activity_id = ?", activityID).
		Order("student_id ASC").
		Find(&grades).Error
	return grades, err
}

func (g *GradePostgreSQL) ListByActivities(ctx context.Context, tx *gorm.DB, activityIDs []uint) ([]*models.Grade, error) {
	var grades []*models.Grade
	if len(activityIDs) == 0 {
		return grades, nil
	}
	err := g.helpers.conn(ctx, tx).
		Where("activity_id IN ?", activityIDs).
		Order("activity_id ASC, student_id ASC").
		Find(&grades).Error
	return grades, err
}

// CountGraded counts grades per activity, restricted to studentIDs
func (g *GradePostgreSQL) CountGraded(ctx context.Context, tx *gorm.DB, activityIDs []uint, studentIDs []uint) ([]repositories.ActivityGradeCount, error) {
	var counts []repositories.ActivityGradeCount
	if len(activityIDs) == 0 || len(studentIDs) == 0 {
		return counts, nil
	}

	err := g.helpers.conn(ctx, tx).
		Model(&models.Grade{}).
		Select("activity_id, COUNT(*) AS graded").
		Where("activity_id IN ? AND student_id IN ?", activityIDs, studentIDs).
		Group("activity_id").
		Scan(&counts).Error
	return counts, err
}

func (g *GradePostgreSQL) MaxScore(ctx context.Context, tx *gorm.DB, activityID uint) (*float64, error) {
	var row struct {
		MaxScore *float64
	}
	err := g.helpers.conn(ctx, tx).
		Model(&models.Grade{}).
		Select("MAX(score) AS max_score").
		Where("activity_id = ?", activityID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.MaxScore, nil
}

// SumPointsByCategory adds up each student's scores over the enabled activities of a unit
func (g *GradePostgreSQL) SumPointsByCategory(ctx context.Context, tx *gorm.DB, unitID uint, studentIDs []uint) ([]repositories.StudentCategoryPoints, error) {
	var rows []repositories.StudentCategoryPoints
	if len(studentIDs) == 0 {
		return rows, nil
	}

	err := g.helpers.conn(ctx, tx).
		Table("grades").
		Select("grades.student_id AS student_id, activities.category AS category, SUM(grades.score) AS points").
		Joins("JOIN activities ON activities.id = grades.activity_id").
		Where("activities.unit_id = ? AND activities.enabled = ? AND activities.deleted_at IS NULL", unitID, true).
		Where("grades.student_id IN ?", studentIDs).
		Group("grades.student_id, activities.category").
		Scan(&rows).Error
	return rows, err
}

func (g *GradePostgreSQL) SaveFinalGrades(ctx context.Context, tx *gorm.DB, finals []*models.UnitFinalGrade) error {
	if len(finals) == 0 {
		return nil
	}
	return g.helpers.conn(ctx, tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "unit_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"zona_score", "final_score", "total", "computed_at"}),
		}).
		Create(&finals).Error
}

func (g *GradePostgreSQL) ListFinalGrades(ctx context.Context, tx *gorm.DB, unitID uint) ([]*models.UnitFinalGrade, error) {
	var finals []*models.UnitFinalGrade
	err := g.helpers.conn(ctx, tx).
		Where("unit_id = ?", unitID).
		Order("student_id ASC").
		Find(&finals).Error
	return finals, err
}
