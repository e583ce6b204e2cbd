package postgres

import (
	"context"

	"github.com/colegio-digital/grading-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db         *gorm.DB
	assignment repositories.AssignmentRepository
	unit       repositories.UnitRepository
	activity   repositories.ActivityRepository
	grade      repositories.GradeRepository
	enrollment repositories.EnrollmentRepository
	reopen     repositories.ReopenRequestRepository
	audit      repositories.AuditRepository
}

// NewRepository wires every gorm-backed store around one connection pool
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:         db,
		assignment: NewAssignmentPostgreSQL(db),
		unit:       NewUnitPostgreSQL(db),
		activity:   NewActivityPostgreSQL(db),
		grade:      NewGradePostgreSQL(db),
		enrollment: NewEnrollmentPostgreSQL(db),
		reopen:     NewReopenRequestPostgreSQL(db),
		audit:      NewAuditPostgreSQL(db),
	}
}

func (r *repository) Assignment() repositories.AssignmentRepository { return r.assignment }
func (r *repository) Unit() repositories.UnitRepository             { return r.unit }
func (r *repository) Activity() repositories.ActivityRepository     { return r.activity }
func (r *repository) Grade() repositories.GradeRepository           { return r.grade }
func (r *repository) Enrollment() repositories.EnrollmentRepository { return r.enrollment }
func (r *repository) Reopen() repositories.ReopenRequestRepository  { return r.reopen }
func (r *repository) Audit() repositories.AuditRepository           { return r.audit }

func (r *repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
