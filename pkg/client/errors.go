package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind mirrors the error kinds the API reports
type Kind string

const (
	KindPermissionDenied Kind = "permission_denied"
	KindValidation       Kind = "validation"
	KindUnitClosed       Kind = "unit_closed"
	KindDuplicateRequest Kind = "duplicate_request"
	KindNotFound         Kind = "not_found"
	KindRemoteFailure    Kind = "remote_failure"
	KindUnauthenticated  Kind = "unauthenticated"
	KindInternal         Kind = "internal"
)

// Error is any failed call. Only remote failures are worth retrying.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Details []byte
	cause   error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Temporary reports whether the call may succeed when retried
func (e *Error) Temporary() bool {
	return e.Kind == KindRemoteFailure
}

// KindOf returns the kind of err, or "" when it did not come from the client
func KindOf(err error) Kind {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.Kind
	}
	return ""
}

func remoteFailure(err error) *Error {
	return &Error{Kind: KindRemoteFailure, Message: err.Error(), cause: err}
}

// kindForStatus classifies responses that carry no error kind of their own
func kindForStatus(status int) Kind {
	switch {
	case status >= 500:
		return KindRemoteFailure
	case status == http.StatusUnauthorized:
		return KindUnauthenticated
	case status == http.StatusForbidden:
		return KindPermissionDenied
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindDuplicateRequest
	default:
		return KindValidation
	}
}

// responseError builds the error for a non-2xx response or success:false body
func responseError(status int, env *Envelope) *Error {
	e := &Error{Status: status}
	if env != nil && env.Error != nil {
		e.Kind = env.Error.Kind
		e.Message = env.Error.Message
		e.Details = env.Error.Details
	}
	if env != nil && e.Message == "" {
		e.Message = env.Message
	}
	if status >= 500 || e.Kind == "" {
		e.Kind = kindForStatus(status)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
