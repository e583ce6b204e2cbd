package handlers

import (
	"errors"
	"net/http"

	"github.com/colegio-digital/grading-service/internal/middleware"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== RESPONSE ENVELOPE =====

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the machine readable kind next to the human message
type ErrorBody struct {
	Kind    services.ErrorKind `json:"kind"`
	Message string             `json:"message"`
	Details interface{}        `json:"details,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides logging and response helpers for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming request with its actor and request id
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader(middleware.RequestIDHeader),
		"user_id", h.extractUserID(c),
	}, additionalFields...)

	utils.GetLoggerFromContext(c, h.logger).Debug(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{
		"request_id", c.GetHeader(middleware.RequestIDHeader),
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}, additionalFields...)

	h.logger.LogError(err, message, fields...)
}

func (h *BaseHandler) extractUserID(c *gin.Context) interface{} {
	if userID, exists := c.Get("user_id"); exists {
		return userID
	}
	return nil
}

// actor returns the authenticated actor or answers 401
func (h *BaseHandler) actor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		h.RespondWithError(c, http.StatusUnauthorized, services.KindUnauthenticated, "", nil)
		return models.Actor{}, false
	}
	return actor, true
}

// RespondWithError sends the failure envelope. An empty message uses the
// generic text of the kind.
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, kind services.ErrorKind, message string, details interface{}) {
	if message == "" {
		message = services.Describe(kind)
	}
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Error: &ErrorBody{
			Kind:    kind,
			Message: message,
			Details: details,
		},
	})
}

// RespondWithSuccess sends the success envelope
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// badRequest answers malformed payloads and parameters
func (h *BaseHandler) badRequest(c *gin.Context, message string, err error) {
	var details interface{}
	if err != nil {
		details = err.Error()
	}
	h.RespondWithError(c, http.StatusBadRequest, services.KindValidation, message, details)
}

// handleServiceError maps service errors to status codes and the envelope
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	details := services.FormatError(err)

	var businessRuleError *services.BusinessRuleError
	switch {
	case errors.As(err, &businessRuleError) && kind == services.KindValidation:
		h.RespondWithError(c, http.StatusUnprocessableEntity, kind, businessRuleError.Message, details)
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, services.KindValidation, "Validation failed", details)
	case services.IsUnauthorized(err):
		status := http.StatusForbidden
		if kind == services.KindUnauthenticated {
			status = http.StatusUnauthorized
		}
		h.RespondWithError(c, status, kind, "", details)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, kind, err.Error(), details)
	case kind == services.KindNotFound:
		h.RespondWithError(c, http.StatusNotFound, kind, err.Error(), nil)
	case kind == services.KindValidation:
		h.RespondWithError(c, http.StatusBadRequest, kind, err.Error(), details)
	case kind == services.KindRemoteFailure:
		h.LogError(c, err, "Backing service failure")
		h.RespondWithError(c, http.StatusServiceUnavailable, kind, "", nil)
	default:
		h.LogError(c, err, "Unexpected service error")
		h.RespondWithError(c, http.StatusInternalServerError, services.KindInternal, "", nil)
	}
}

// HealthCheck reports liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "grading-service",
	})
}
