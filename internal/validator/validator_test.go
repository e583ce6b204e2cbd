package validator

import (
	"testing"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type activityPayload struct {
	Name      string                  `json:"name" validate:"required,max=200"`
	Category  models.ActivityCategory `json:"category" validate:"required,activity_category"`
	MaxPoints float64                 `json:"max_points" validate:"gt=0"`
}

type rolePayload struct {
	Role models.UserRole `json:"role" validate:"user_role"`
}

type unitPayload struct {
	Number int    `json:"number" validate:"unit_number"`
	Reason string `json:"reason" validate:"reopen_reason"`
}

func TestValidator_CustomTags(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(&activityPayload{Name: "Hoja de trabajo", Category: models.CategoryZona, MaxPoints: 10}))

	err := v.Validate(&activityPayload{Name: "", Category: "quiz", MaxPoints: 0})
	require.Error(t, err)
	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.True(t, errs.HasField("name"))
	assert.True(t, errs.HasField("category"))
	assert.True(t, errs.HasField("max_points"))

	assert.NoError(t, v.Validate(&rolePayload{Role: models.RoleTeacher}))
	assert.Error(t, v.Validate(&rolePayload{Role: models.UserRole(9)}))

	assert.NoError(t, v.Validate(&unitPayload{Number: 4, Reason: "Falta ingresar notas de recuperación"}))
	err = v.Validate(&unitPayload{Number: 5, Reason: "corto"})
	require.Error(t, err)
	errs = err.(ValidationErrors)
	assert.True(t, errs.HasField("number"))
	assert.True(t, errs.HasField("reason"))
}
