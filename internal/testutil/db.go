// Package testutil builds an in-memory database seeded with a course
// assignment, its four units and an enrolled group of students.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/colegio-digital/grading-service/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with every model migrated.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// Fixture is a seeded assignment with its units and students.
type Fixture struct {
	Assignment *models.CourseAssignment
	Units      []*models.Unit
	Students   []*models.Student
}

// Unit returns the unit with the given number (1..4).
func (f *Fixture) Unit(number int) *models.Unit {
	return f.Units[number-1]
}

func (f *Fixture) StudentIDs() []uint {
	ids := make([]uint, 0, len(f.Students))
	for _, s := range f.Students {
		ids = append(ids, s.ID)
	}
	return ids
}

// Seed creates an assignment for teacherID with four 60/40 units (unit 1 active)
// and studentCount enrolled students.
func Seed(t testing.TB, db *gorm.DB, teacherID uint, studentCount int) *Fixture {
	t.Helper()

	assignment := &models.CourseAssignment{
		TeacherID: teacherID,
		CourseID:  10,
		GradeID:   3,
		SectionID: 1,
		ShiftID:   1,
		Year:      2026,
		Active:    true,
	}
	must(t, db.Create(assignment).Error)

	fixture := &Fixture{Assignment: assignment}
	for n := 1; n <= models.UnitsPerAssignment; n++ {
		unit := &models.Unit{
			AssignmentID: assignment.ID,
			Number:       n,
			Name:         fmt.Sprintf("Unidad %d", n),
			ZonaWeight:   60,
			FinalWeight:  40,
			IsActive:     n == 1,
			IsEnabled:    true,
			Status:       models.UnitOpen,
		}
		must(t, db.Create(unit).Error)
		fixture.Units = append(fixture.Units, unit)
	}

	for i := 0; i < studentCount; i++ {
		student := &models.Student{
			Code:      fmt.Sprintf("E-%03d", i+1),
			FirstName: fmt.Sprintf("Estudiante%d", i+1),
			LastName:  fmt.Sprintf("Apellido%02d", i+1),
		}
		must(t, db.Create(student).Error)
		must(t, db.Create(&models.Enrollment{
			StudentID: student.ID,
			GradeID:   assignment.GradeID,
			SectionID: assignment.SectionID,
			ShiftID:   assignment.ShiftID,
			Year:      assignment.Year,
			Active:    true,
		}).Error)
		fixture.Students = append(fixture.Students, student)
	}

	return fixture
}

// AddActivity inserts an enabled activity directly, bypassing weight checks.
func AddActivity(t testing.TB, db *gorm.DB, unitID uint, name string, category models.ActivityCategory, maxPoints float64) *models.Activity {
	t.Helper()
	activity := &models.Activity{
		UnitID:    unitID,
		Name:      name,
		Category:  category,
		MaxPoints: maxPoints,
		Enabled:   true,
		CreatedBy: 1,
	}
	must(t, db.Create(activity).Error)
	return activity
}

// GradeAll gives every listed student the same score on an activity.
func GradeAll(t testing.TB, db *gorm.DB, activityID uint, studentIDs []uint, score float64) {
	t.Helper()
	for _, id := range studentIDs {
		must(t, db.Create(&models.Grade{
			ActivityID: activityID,
			StudentID:  id,
			Score:      score,
			GradedAt:   time.Now(),
			GradedBy:   1,
		}).Error)
	}
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}
