package services

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/colegio-digital/grading-service/internal/errors"
	"github.com/colegio-digital/grading-service/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrRemoteFailure    = errors.New("backing service unavailable")

	// Assignment errors
	ErrAssignmentNotFound  = errors.New("course assignment not found")
	ErrDuplicateAssignment = errors.New("an active assignment already exists for this teacher, course and group")

	// Unit errors
	ErrUnitNotFound   = errors.New("unit not found")
	ErrUnitClosed     = errors.New("unit is closed")
	ErrUnitNotClosed  = errors.New("unit is not closed")
	ErrUnitNotActive  = errors.New("unit is not the active unit")
	ErrNoActiveUnit   = errors.New("assignment has no active unit")
	ErrUnitIncomplete = errors.New("unit has ungraded activities")

	// Activity and grade errors
	ErrActivityNotFound      = errors.New("activity not found")
	ErrWeightCeilingExceeded = errors.New("activity points exceed the unit ceiling")
	ErrStudentNotEnrolled    = errors.New("student is not enrolled in the assignment")
	ErrZonaIncomplete        = errors.New("zona activities must be fully graded before final activities")

	// Reopen errors
	ErrReopenRequestNotFound  = errors.New("reopen request not found")
	ErrDuplicateReopenRequest = errors.New("a pending reopen request already exists for this unit")
	ErrReopenAlreadyResolved  = errors.New("reopen request is already resolved")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	cause   error
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

func (bre *BusinessRuleError) Unwrap() error {
	return bre.cause
}

type PermissionError struct {
	ActorID    uint   `json:"actor_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s %d - %s",
		pe.ActorID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// NewBusinessRuleError creates a rule violation without a sentinel cause
func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// wrapRule attaches a sentinel so errors.Is keeps working on rule violations
func wrapRule(cause error, rule, message string, context map[string]interface{}) *BusinessRuleError {
	if message == "" {
		message = cause.Error()
	}
	ruleErr := NewBusinessRuleError(rule, message, context)
	ruleErr.cause = cause
	return ruleErr
}

func NewPermissionError(actorID uint, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		ActorID:    actorID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// notFound turns gorm's record-not-found into the domain sentinel
func notFound(err error, sentinel error) error {
	if repositories.IsNotFoundError(err) {
		return sentinel
	}
	return err
}

// ===== ERROR KINDS =====

// ErrorKind is the machine-distinguishable class of a failure
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied"
	KindValidation       ErrorKind = "validation"
	KindUnitClosed       ErrorKind = "unit_closed"
	KindDuplicateRequest ErrorKind = "duplicate_request"
	KindNotFound         ErrorKind = "not_found"
	KindRemoteFailure    ErrorKind = "remote_failure"
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindInternal         ErrorKind = "internal"
)

// KindOf classifies any error returned by the services
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var permErr *PermissionError
	var valErrs ValidationErrors
	var valErr *ValidationError
	var ruleErr *BusinessRuleError

	switch {
	case errors.As(err, &permErr), errors.Is(err, ErrForbidden), errors.Is(err, ErrUnitNotActive):
		return KindPermissionDenied
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrUnitClosed):
		return KindUnitClosed
	case errors.Is(err, ErrDuplicateReopenRequest), errors.Is(err, ErrDuplicateAssignment):
		return KindDuplicateRequest
	case IsNotFound(err):
		return KindNotFound
	case errors.As(err, &valErrs), errors.As(err, &valErr), errors.As(err, &ruleErr),
		errors.Is(err, ErrValidationFailed), errors.Is(err, ErrUnitNotClosed),
		errors.Is(err, ErrNoActiveUnit), errors.Is(err, ErrUnitIncomplete),
		errors.Is(err, ErrZonaIncomplete), errors.Is(err, ErrReopenAlreadyResolved):
		return KindValidation
	case errors.Is(err, ErrRemoteFailure), errors.Is(err, context.DeadlineExceeded):
		return KindRemoteFailure
	default:
		return KindInternal
	}
}

// Describe is the human readable message shown for a kind
func Describe(kind ErrorKind) string {
	switch kind {
	case KindPermissionDenied:
		return "You do not have permission to perform this action."
	case KindValidation:
		return "The request contains invalid data."
	case KindUnitClosed:
		return "The unit is closed. Request a reopening to make changes."
	case KindDuplicateRequest:
		return "A matching request already exists."
	case KindNotFound:
		return "The requested resource does not exist."
	case KindRemoteFailure:
		return "The service is temporarily unavailable. Try again."
	case KindUnauthenticated:
		return "Sign in to continue."
	default:
		return "An unexpected error occurred."
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrUnitNotFound) ||
		errors.Is(err, ErrActivityNotFound) ||
		errors.Is(err, ErrStudentNotEnrolled) ||
		errors.Is(err, ErrReopenRequestNotFound) ||
		repositories.IsNotFoundError(err)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindPermissionDenied || errors.Is(err, ErrUnauthenticated)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	kind := KindOf(err)
	return kind == KindUnitClosed || kind == KindDuplicateRequest
}
