package errors

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field that failed validation
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	fields := make([]string, 0, len(ve))
	for _, e := range ve {
		fields = append(fields, e.Field)
	}
	return fmt.Sprintf("validation failed: %d field errors (%s)", len(ve), strings.Join(fields, ", "))
}

// Add appends a field error and returns the updated collection
func (ve ValidationErrors) Add(field, message string, value interface{}) ValidationErrors {
	return append(ve, ValidationError{Field: field, Message: message, Value: value})
}

// HasField reports whether any error refers to field
func (ve ValidationErrors) HasField(field string) bool {
	for _, e := range ve {
		if e.Field == field {
			return true
		}
	}
	return false
}

func (pe *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", pe.Field, pe.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewValidationErrorWithRule creates a new validation error with rule
func NewValidationErrorWithRule(field, message, rule string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    rule,
	}
}

// ToValidationErrors converts validator.ValidationErrors to our custom type.
// Errors that already are ValidationErrors are returned unchanged.
func ToValidationErrors(err error) ValidationErrors {
	var errors ValidationErrors

	switch e := err.(type) {
	case ValidationErrors:
		return e
	case validator.ValidationErrors:
		for _, fe := range e {
			errors = append(errors, ValidationError{
				Field:   fe.Field(),
				Message: getErrorMessage(fe),
				Value:   fe.Value(),
				Rule:    fe.Tag(),
			})
		}
	}

	return errors
}

// getErrorMessage returns user-friendly error messages
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", err.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", err.Param())
	case "numeric":
		return "must be a number"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	case "dive":
		return "contains invalid entries"

	// Custom validators
	case "activity_category":
		return "must be a valid activity category (zona, final)"
	case "user_role":
		return "must be a valid user role (1 admin, 2 operator, 3 teacher, 4 parent, 5 student)"
	case "unit_number":
		return "must be between 1 and 4"
	case "reopen_reason":
		return "must be at least 20 characters"

	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
