package services

import (
	"time"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/validator"
)

// ===== ASSIGNMENT DTOs =====

type CreateAssignmentRequest struct {
	TeacherID uint `json:"teacher_id" validate:"required"`
	CourseID  uint `json:"course_id" validate:"required"`
	GradeID   uint `json:"grade_id" validate:"required"`
	SectionID uint `json:"section_id" validate:"required"`
	ShiftID   uint `json:"shift_id" validate:"required"`
	Year      int  `json:"year" validate:"required,gte=2000,lte=2100"`
	// ZonaWeight overrides the default zona share of the four units
	ZonaWeight *int `json:"zona_weight,omitempty" validate:"omitempty,min=0,max=100"`
}

type AssignmentList struct {
	Assignments []*models.CourseAssignment `json:"assignments"`
	Total       int64                      `json:"total"`
	Limit       int                        `json:"limit"`
	Offset      int                        `json:"offset"`
}

// ===== ACTIVITY DTOs =====

type CreateActivityRequest struct {
	Name        string                  `json:"name" validate:"required,max=200"`
	Description *string                 `json:"description,omitempty"`
	Category    models.ActivityCategory `json:"category" validate:"required,activity_category"`
	MaxPoints   float64                 `json:"max_points" validate:"gt=0"`
	DueDate     *time.Time              `json:"due_date,omitempty"`
	Enabled     *bool                   `json:"enabled,omitempty"`
}

type UpdateActivityRequest struct {
	Name        *string                  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string                  `json:"description,omitempty"`
	Category    *models.ActivityCategory `json:"category,omitempty" validate:"omitempty,activity_category"`
	MaxPoints   *float64                 `json:"max_points,omitempty" validate:"omitempty,gt=0"`
	DueDate     *time.Time               `json:"due_date,omitempty"`
	Enabled     *bool                    `json:"enabled,omitempty"`
}

// ActivityResult is an activity together with the weight check that admitted it
type ActivityResult struct {
	Activity    *models.Activity       `json:"activity"`
	WeightCheck *validator.WeightCheck `json:"weight_check,omitempty"`
}

// ===== GRADE DTOs =====

type GradeEntry struct {
	StudentID uint     `json:"student_id" validate:"required"`
	Score     *float64 `json:"score"`
	Note      *string  `json:"note,omitempty" validate:"omitempty,max=500"`
}

type RecordGradesRequest struct {
	Entries []GradeEntry `json:"entries" validate:"required,min=1,dive"`
}

type RecordGradesResult struct {
	ActivityID uint `json:"activity_id"`
	Created    int  `json:"created"`
	Updated    int  `json:"updated"`
	Skipped    int  `json:"skipped"`
}

// StudentGrade is one row of an activity's grade list; Score is nil when ungraded
type StudentGrade struct {
	StudentID uint       `json:"student_id"`
	Code      string     `json:"code"`
	FullName  string     `json:"full_name"`
	Score     *float64   `json:"score"`
	Note      *string    `json:"note,omitempty"`
	GradedAt  *time.Time `json:"graded_at,omitempty"`
}

type ActivityGradeList struct {
	Activity *models.Activity `json:"activity"`
	Students []StudentGrade   `json:"students"`
	Graded   int              `json:"graded"`
	Total    int              `json:"total"`
}

// FinalGradingGate tells whether a final activity may be graded yet
type FinalGradingGate struct {
	ActivityID  uint                 `json:"activity_id"`
	UnitID      uint                 `json:"unit_id"`
	Open        bool                 `json:"open"`
	Enforced    bool                 `json:"enforced"`
	PendingZona []IncompleteActivity `json:"pending_zona"`
}

// ===== CLOSURE DTOs =====

type ClosureStats struct {
	TotalActivities int     `json:"total_activities"`
	TotalStudents   int     `json:"total_students"`
	CompletedGrades int     `json:"completed_grades"`
	ExpectedGrades  int     `json:"expected_grades"`
	PercentComplete float64 `json:"percent_complete"`
}

type IncompleteActivity struct {
	ActivityID           uint                    `json:"activity_id"`
	Name                 string                  `json:"name"`
	Category             models.ActivityCategory `json:"category"`
	UngradedStudentCount int                     `json:"ungraded_student_count"`
}

type ClosureValidation struct {
	UnitID               uint                 `json:"unit_id"`
	CanClose             bool                 `json:"can_close"`
	Reason               string               `json:"reason,omitempty"`
	Stats                ClosureStats         `json:"stats"`
	IncompleteActivities []IncompleteActivity `json:"incomplete_activities"`
}

// ===== UNIT DTOs =====

type UpdateWeightsRequest struct {
	ZonaWeight  int `json:"zona_weight" validate:"min=0,max=100"`
	FinalWeight int `json:"final_weight" validate:"min=0,max=100"`
}

type UnitTransitionResult struct {
	ClosedUnit    *models.Unit `json:"closed_unit,omitempty"`
	ActivatedUnit *models.Unit `json:"activated_unit,omitempty"`
	FinalGrades   int          `json:"final_grades"`
}

// ===== REOPEN DTOs =====

type ReopenRequestInput struct {
	Reason string `json:"reason" validate:"required,reopen_reason"`
}

type ResolveReopenInput struct {
	Approve *bool   `json:"approve" validate:"required"`
	Note    *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

type ReopenRequestList struct {
	Requests []*models.ReopenRequest `json:"requests"`
	Total    int64                   `json:"total"`
}

// ===== EXPORT DTOs =====

type GradeSheet struct {
	FileName string `json:"file_name"`
	Content  []byte `json:"-"`
}
