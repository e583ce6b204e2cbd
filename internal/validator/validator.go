package validator

import (
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	businessValidator *BusinessValidator
	weightValidator   *WeightValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		businessValidator: NewBusinessValidator(),
		weightValidator:   NewWeightValidator(),
	}
}

// ValidateStruct validates struct tags only and converts failures to ValidationErrors
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// Validate performs struct tag validation
func (v *Validator) Validate(s interface{}) error {
	return v.ValidateStruct(s)
}

// Business returns the business validator
func (v *Validator) Business() *BusinessValidator {
	return v.businessValidator
}

// Weights returns the grade-weight validator
func (v *Validator) Weights() *WeightValidator {
	return v.weightValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("activity_category", validateActivityCategory)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("unit_number", validateUnitNumber)
	validate.RegisterValidation("reopen_reason", validateReopenReason)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateActivityCategory(fl validator.FieldLevel) bool {
	return models.ActivityCategory(fl.Field().String()).IsValid()
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.UserRole(fl.Field().Int()).IsValid()
}

func validateUnitNumber(fl validator.FieldLevel) bool {
	n := fl.Field().Int()
	return n >= 1 && n <= models.UnitsPerAssignment
}

func validateReopenReason(fl validator.FieldLevel) bool {
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= models.MinReopenReasonLength
}
