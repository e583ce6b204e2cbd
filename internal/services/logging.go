package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// requestIDKey carries the request id from the HTTP layer into service logs
type requestIDKey struct{}

// WithRequestID stores a request id on the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFrom returns the request id stored by WithRequestID
func RequestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// Logger exposes the underlying slog logger for ad-hoc messages
func (l *ServiceLogger) Logger() *slog.Logger {
	return l.logger
}

// ===== OPERATION LOGGING =====

func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, actorID uint, resourceID uint, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		kind := KindOf(err)
		status = string(kind)
		switch kind {
		case KindValidation, KindPermissionDenied, KindUnitClosed, KindDuplicateRequest, KindUnauthenticated:
			level = slog.LevelWarn
		case KindNotFound:
			level = slog.LevelInfo
		default:
			level = slog.LevelError
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Uint64("actor_id", uint64(actorID)),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		if validationErr, ok := err.(ValidationErrors); ok {
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErr)))
		} else if businessErr, ok := err.(*BusinessRuleError); ok {
			attrs = append(attrs, slog.String("business_rule", businessErr.Rule))
		} else if permErr, ok := err.(*PermissionError); ok {
			attrs = append(attrs, slog.String("permission_action", permErr.Action))
		}
	}

	if requestID, ok := RequestIDFrom(ctx); ok {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	// caller information only for unexpected failures
	if level == slog.LevelError {
		if pc, file, line, ok := runtime.Caller(2); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				attrs = append(attrs,
					slog.String("caller_func", fn.Name()),
					slog.String("caller_file", file),
					slog.Int("caller_line", line),
				)
			}
		}
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation string, actorID uint, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Uint64("actor_id", uint64(actorID)),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i >= 5 {
			break
		}
		attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
			slog.String("field", err.Field),
			slog.String("message", err.Message),
			slog.Any("value", err.Value),
		))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

func (l *ServiceLogger) LogBusinessRuleViolation(ctx context.Context, operation string, actorID uint, rule *BusinessRuleError) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Uint64("actor_id", uint64(actorID)),
		slog.String("rule", rule.Rule),
		slog.String("message", rule.Message),
	}

	for key, value := range rule.Context {
		attrs = append(attrs, slog.Any("context_"+key, value))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Business rule violation", attrs...)
}

func (l *ServiceLogger) LogPermissionDenied(ctx context.Context, operation string, permError *PermissionError) {
	l.logger.LogAttrs(ctx, slog.LevelWarn, "Permission denied",
		slog.String("operation", operation),
		slog.Uint64("actor_id", uint64(permError.ActorID)),
		slog.Uint64("resource_id", uint64(permError.ResourceID)),
		slog.String("resource_type", permError.Resource),
		slog.String("action", permError.Action),
		slog.String("reason", permError.Reason),
	)
}

// ContextualLogger wraps operations with automatic logging
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	actorID   uint
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string, actorID uint) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		actorID:   actorID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID uint, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.actorID, resourceID, resourceType, time.Since(cl.startTime), err)

	if err != nil {
		if validationErrors, ok := err.(ValidationErrors); ok {
			cl.logger.LogValidationError(cl.ctx, cl.operation, cl.actorID, validationErrors)
		} else if businessErr, ok := err.(*BusinessRuleError); ok {
			cl.logger.LogBusinessRuleViolation(cl.ctx, cl.operation, cl.actorID, businessErr)
		} else if permErr, ok := err.(*PermissionError); ok {
			cl.logger.LogPermissionDenied(cl.ctx, cl.operation, permErr)
		}
	}
}

// ===== ERROR FORMATTING HELPERS =====

// FormatError flattens an error into the details object of an error response.
// Wrapped errors are unwrapped to the first known type.
func FormatError(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	result := map[string]interface{}{}

	var (
		validationErrors ValidationErrors
		validationErr    *ValidationError
		businessErr      *BusinessRuleError
		permErr          *PermissionError
	)
	switch {
	case errors.As(err, &validationErrors):
		fields := make([]map[string]interface{}, len(validationErrors))
		for i, fieldErr := range validationErrors {
			fields[i] = map[string]interface{}{
				"field":   fieldErr.Field,
				"message": fieldErr.Message,
				"value":   fieldErr.Value,
			}
		}
		result["errors"] = fields

	case errors.As(err, &validationErr):
		result["errors"] = []map[string]interface{}{{
			"field":   validationErr.Field,
			"message": validationErr.Message,
			"value":   validationErr.Value,
		}}

	case errors.As(err, &businessErr):
		for key, value := range businessErr.Context {
			result[key] = value
		}
		result["rule"] = businessErr.Rule

	case errors.As(err, &permErr):
		result["resource"] = permErr.Resource
		result["resource_id"] = permErr.ResourceID
		result["action"] = permErr.Action
		result["reason"] = permErr.Reason
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
