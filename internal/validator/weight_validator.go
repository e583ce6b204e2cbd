package validator

import (
	"fmt"

	"github.com/colegio-digital/grading-service/internal/models"
)

// pointsEpsilon absorbs float noise when summing fractional activity points.
const pointsEpsilon = 1e-9

type WeightStatus string

const (
	WeightUnder WeightStatus = "under"
	WeightExact WeightStatus = "exact"
	WeightOver  WeightStatus = "over"
)

// WeightCandidate is the activity a caller wants to commit to a unit.
type WeightCandidate struct {
	Category  models.ActivityCategory `json:"category"`
	MaxPoints float64                 `json:"max_points"`
	Enabled   bool                    `json:"enabled"`
	// ExcludeID is the activity being edited; its stored points are not counted twice.
	ExcludeID *uint `json:"exclude_id,omitempty"`
}

// WeightCheck reports how a candidate fits under the unit ceiling of its category.
// Remaining is the headroom before the candidate is added.
type WeightCheck struct {
	UnitID    uint                    `json:"unit_id"`
	Category  models.ActivityCategory `json:"category"`
	Status    WeightStatus            `json:"status"`
	Ceiling   float64                 `json:"ceiling"`
	Used      float64                 `json:"used"`
	Remaining float64                 `json:"remaining"`
	Projected float64                 `json:"projected"`
}

func (c *WeightCheck) Blocks() bool {
	return c.Status == WeightOver
}

// WeightValidator enforces that enabled activities never exceed the unit's
// configured zona/final point ceilings.
type WeightValidator struct{}

func NewWeightValidator() *WeightValidator {
	return &WeightValidator{}
}

// Check computes the tri-state result for committing candidate into unit,
// given the unit's current activities. It never mutates its inputs.
func (v *WeightValidator) Check(unit *models.Unit, existing []models.Activity, candidate WeightCandidate) (*WeightCheck, error) {
	var errs ValidationErrors
	if !candidate.Category.IsValid() {
		errs = errs.Add("category", "must be a valid activity category (zona, final)", candidate.Category)
	}
	if candidate.MaxPoints <= 0 {
		errs = errs.Add("max_points", "must be greater than 0", candidate.MaxPoints)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	used := SumEnabledPoints(existing, candidate.Category, candidate.ExcludeID)
	ceiling := float64(unit.WeightFor(candidate.Category))

	projected := used
	if candidate.Enabled {
		projected += candidate.MaxPoints
	}

	return &WeightCheck{
		UnitID:    unit.ID,
		Category:  candidate.Category,
		Status:    weightStatus(projected, ceiling, candidate.Enabled),
		Ceiling:   ceiling,
		Used:      used,
		Remaining: ceiling - used,
		Projected: projected,
	}, nil
}

// CheckCeiling verifies a new ceiling still covers the enabled activities of a category.
func (v *WeightValidator) CheckCeiling(existing []models.Activity, category models.ActivityCategory, ceiling int) *ValidationError {
	used := SumEnabledPoints(existing, category, nil)
	if used > float64(ceiling)+pointsEpsilon {
		return NewValidationErrorWithRule(
			string(category)+"_weight",
			fmt.Sprintf("must be at least %g, the points already assigned to enabled %s activities", used, category),
			"weight_ceiling",
			ceiling,
		)
	}
	return nil
}

// SumEnabledPoints adds the max points of enabled activities of one category,
// skipping excludeID when set.
func SumEnabledPoints(activities []models.Activity, category models.ActivityCategory, excludeID *uint) float64 {
	var sum float64
	for _, a := range activities {
		if !a.Enabled || a.Category != category {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		sum += a.MaxPoints
	}
	return sum
}

func weightStatus(projected, ceiling float64, enabled bool) WeightStatus {
	switch {
	case projected > ceiling+pointsEpsilon:
		if enabled {
			return WeightOver
		}
		// disabled candidates add nothing, so they are never the overflow
		return WeightExact
	case projected >= ceiling-pointsEpsilon:
		return WeightExact
	default:
		return WeightUnder
	}
}
