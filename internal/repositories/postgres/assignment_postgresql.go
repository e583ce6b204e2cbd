package postgres

import (
	"context"
	"fmt"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

type AssignmentPostgreSQL struct {
	helpers *SharedHelpers
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (a *AssignmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.CourseAssignment) error {
	return a.helpers.conn(ctx, tx).Omit("Units").Create(assignment).Error
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseAssignment, error) {
	var assignment models.CourseAssignment
	if err := a.helpers.conn(ctx, tx).First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssignmentFilters) ([]*models.CourseAssignment, int64, error) {
	query := a.helpers.conn(ctx, tx).Model(&models.CourseAssignment{})

	if filters.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filters.TeacherID)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.Year != nil {
		query = query.Where("year = ?", *filters.Year)
	}
	if filters.Active != nil {
		query = query.Where("active = ?", *filters.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assignments []*models.CourseAssignment
	err := paginate(query, filters.Limit, filters.Offset).
		Order("year DESC, id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

// ExistsActive checks for an active assignment with the same teacher, course and group
func (a *AssignmentPostgreSQL) ExistsActive(ctx context.Context, tx *gorm.DB, assignment *models.CourseAssignment) (bool, error) {
	var count int64
	err := a.helpers.conn(ctx, tx).
		Model(&models.CourseAssignment{}).
		Where("teacher_id = ? AND course_id = ? AND grade_id = ? AND section_id = ? AND shift_id = ? AND year = ? AND active = ?",
			assignment.TeacherID, assignment.CourseID, assignment.GradeID,
			assignment.SectionID, assignment.ShiftID, assignment.Year, true).
		Count(&count).Error
	return count > 0, err
}

// Delete soft deletes the assignment, its units and their activities. Grades are kept.
func (a *AssignmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := a.helpers.conn(ctx, tx)

	var unitIDs []uint
	if err := db.Model(&models.Unit{}).Where("assignment_id = ?", id).Pluck("id", &unitIDs).Error; err != nil {
		return fmt.Errorf("failed to load units: %w", err)
	}

	if len(unitIDs) > 0 {
		if err := db.Where("unit_id IN ?", unitIDs).Delete(&models.Activity{}).Error; err != nil {
			return fmt.Errorf("failed to delete activities: %w", err)
		}
		if err := db.Where("assignment_id = ?", id).Delete(&models.Unit{}).Error; err != nil {
			return fmt.Errorf("failed to delete units: %w", err)
		}
	}

	result := db.Delete(&models.CourseAssignment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
