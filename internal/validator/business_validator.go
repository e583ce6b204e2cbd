package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/colegio-digital/grading-service/internal/models"
)

// ScoreEntry is the subset of a grade submission the business rules look at.
type ScoreEntry struct {
	StudentID uint
	Score     *float64
}

// BusinessValidator holds the rules that need more than struct tags.
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

// ValidateUnitWeights checks that the zona/final split is a valid percentage pair adding up to 100.
func (v *BusinessValidator) ValidateUnitWeights(zona, final int) ValidationErrors {
	var errs ValidationErrors
	if zona < 0 || zona > 100 {
		errs = errs.Add("zona_weight", "must be between 0 and 100", zona)
	}
	if final < 0 || final > 100 {
		errs = errs.Add("final_weight", "must be between 0 and 100", final)
	}
	if len(errs) == 0 && zona+final != 100 {
		errs = errs.Add("weights", fmt.Sprintf("zona and final must add up to 100, got %d", zona+final), zona+final)
	}
	return errs
}

// ValidateReopenReason requires a justification of MinReopenReasonLength characters or more.
func (v *BusinessValidator) ValidateReopenReason(reason string) ValidationErrors {
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < models.MinReopenReasonLength {
		return ValidationErrors{{
			Field:   "reason",
			Message: fmt.Sprintf("must be at least %d characters", models.MinReopenReasonLength),
			Value:   reason,
			Rule:    "reopen_reason",
		}}
	}
	return nil
}

// ValidateScores checks every entry names a student and every non-nil score is
// within [0, maxPoints]. Repeated students are allowed; callers keep the last one.
func (v *BusinessValidator) ValidateScores(maxPoints float64, entries []ScoreEntry) ValidationErrors {
	var errs ValidationErrors
	for i, entry := range entries {
		field := fmt.Sprintf("entries[%d]", i)
		if entry.StudentID == 0 {
			errs = errs.Add(field+".student_id", "is required", entry.StudentID)
			continue
		}
		if entry.Score == nil {
			continue
		}
		if *entry.Score < 0 || *entry.Score > maxPoints+pointsEpsilon {
			errs = errs.Add(field+".score", fmt.Sprintf("must be between 0 and %g", maxPoints), *entry.Score)
		}
	}
	return errs
}
