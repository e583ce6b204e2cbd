package repositories

import (
	"context"

	"github.com/colegio-digital/grading-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type AssignmentFilters struct {
	TeacherID *uint `json:"teacher_id"`
	CourseID  *uint `json:"course_id"`
	Year      *int  `json:"year"`
	Active    *bool `json:"active"`
	Limit     int   `json:"limit"`
	Offset    int   `json:"offset"`
}

type ActivityFilters struct {
	Category    *models.ActivityCategory `json:"category"`
	EnabledOnly bool                     `json:"enabled_only"`
}

type ReopenFilters struct {
	UnitID      *uint                `json:"unit_id"`
	RequestedBy *uint                `json:"requested_by"`
	Status      *models.ReopenStatus `json:"status"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

// ActivityGradeCount is the number of graded students of one activity.
type ActivityGradeCount struct {
	ActivityID uint  `json:"activity_id"`
	Graded     int64 `json:"graded"`
}

// StudentCategoryPoints is the sum of a student's scores in one activity category.
type StudentCategoryPoints struct {
	StudentID uint                    `json:"student_id"`
	Category  models.ActivityCategory `json:"category"`
	Points    float64                 `json:"points"`
}

// ===== AGGREGATE =====

// Repository groups every store the grading services need.
type Repository interface {
	Assignment() AssignmentRepository
	Unit() UnitRepository
	Activity() ActivityRepository
	Grade() GradeRepository
	Enrollment() EnrollmentRepository
	Reopen() ReopenRequestRepository
	Audit() AuditRepository

	// WithTransaction runs fn inside a database transaction. A non-nil error
	// from fn rolls everything back.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AssignmentRepository stores course assignments
type AssignmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *models.CourseAssignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseAssignment, error)
	List(ctx context.Context, tx *gorm.DB, filters AssignmentFilters) ([]*models.CourseAssignment, int64, error)
	ExistsActive(ctx context.Context, tx *gorm.DB, assignment *models.CourseAssignment) (bool, error)

	// Delete soft deletes the assignment together with its units and their activities
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

// UnitRepository stores grading units
type UnitRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, units []*models.Unit) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Unit, error)
	GetByIDWithAssignment(ctx context.Context, tx *gorm.DB, id uint) (*models.Unit, error)
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.Unit, error)

	// Locking reads, only meaningful inside a transaction
	LockByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Unit, error)
	LockByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.Unit, error)

	Update(ctx context.Context, tx *gorm.DB, unit *models.Unit) error
	// SetActive makes unitID the only active unit of its assignment
	SetActive(ctx context.Context, tx *gorm.DB, assignmentID, unitID uint) error
}

// ActivityRepository stores gradable activities
type ActivityRepository interface {
	Create(ctx context.Context, tx *gorm.DB, activity *models.Activity) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Activity, error)
	Update(ctx context.Context, tx *gorm.DB, activity *models.Activity) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error // Soft delete
	ListByUnit(ctx context.Context, tx *gorm.DB, unitID uint, filters ActivityFilters) ([]*models.Activity, error)
}

// GradeRepository stores activity grades and unit final grades
type GradeRepository interface {
	// Upsert inserts or overwrites grades keyed by (activity_id, student_id)
	Upsert(ctx context.Context, tx *gorm.DB, grades []*models.Grade) error
	GradedStudentIDs(ctx context.Context, tx *gorm.DB, activityID uint, studentIDs []uint) (map[uint]bool, error)
	ListByActivity(ctx context.Context, tx *gorm.DB, activityID uint) ([]*models.Grade, error)
	ListByActivities(ctx context.Context, tx *gorm.DB, activityIDs []uint) ([]*models.Grade, error)
	// MaxScore returns the highest recorded score of the activity, nil when ungraded
	MaxScore(ctx context.Context, tx *gorm.DB, activityID uint) (*float64, error)
	CountGraded(ctx context.Context, tx *gorm.DB, activityIDs []uint, studentIDs []uint) ([]ActivityGradeCount, error)
	SumPointsByCategory(ctx context.Context, tx *gorm.DB, unitID uint, studentIDs []uint) ([]StudentCategoryPoints, error)

	SaveFinalGrades(ctx context.Context, tx *gorm.DB, finals []*models.UnitFinalGrade) error
	ListFinalGrades(ctx context.Context, tx *gorm.DB, unitID uint) ([]*models.UnitFinalGrade, error)
}

// EnrollmentRepository resolves the students a course assignment grades
type EnrollmentRepository interface {
	ListStudents(ctx context.Context, tx *gorm.DB, assignment *models.CourseAssignment) ([]*models.Student, error)
	StudentIDs(ctx context.Context, tx *gorm.DB, assignment *models.CourseAssignment) ([]uint, error)
}

// ReopenRequestRepository stores unit reopen requests
type ReopenRequestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, request *models.ReopenRequest) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ReopenRequest, error)
	LockByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ReopenRequest, error)
	Update(ctx context.Context, tx *gorm.DB, request *models.ReopenRequest) error
	HasPending(ctx context.Context, tx *gorm.DB, unitID uint) (bool, error)
	List(ctx context.Context, tx *gorm.DB, filters ReopenFilters) ([]*models.ReopenRequest, int64, error)
}

// AuditRepository persists the bitácora
type AuditRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.AuditLog) error
	ListByActor(ctx context.Context, tx *gorm.DB, actorID uint, limit int) ([]*models.AuditLog, error)
}
