package postgres

import (
	"context"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

type EnrollmentPostgreSQL struct {
	helpers *SharedHelpers
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (e *EnrollmentPostgreSQL) enrolled(ctx context.Context, tx *gorm.DB, assignment *models.CourseAssignment) *gorm.DB {
	return e.helpers.conn(ctx, tx).
		Model(&models.Student{}).
		Joins("JOIN enrollments ON enrollments.student_id = students.id").
		Where("enrollments.grade_id = ? AND enrollments.section_id = ? AND enrollments.shift_id = ? AND enrollments.year = ? AND enrollments.active = ?",
			assignment.GradeID, assignment.SectionID, assignment.ShiftID, assignment.Year, true)
}

// ListStudents returns the students enrolled in the assignment's group, sorted by name
func (e *EnrollmentPostgreSQL) ListStudents(ctx context.Context, tx *gorm.DB, assignment *models.CourseAssignment) ([]*models.Student, error) {
	var students []*models.Student
	err := e.enrolled(ctx, tx, assignment).
		Order("students.last_name ASC, students.first_name ASC").
		Find(&students).Error
	return students, err
}

func (e *EnrollmentPostgreSQL) StudentIDs(ctx context.Context, tx *gorm.DB, assignment *models.CourseAssignment) ([]uint, error) {
	var ids []uint
	err := e.enrolled(ctx, tx, assignment).
		Order("students.id ASC").
		Pluck("students.id", &ids).Error
	return ids, err
}
