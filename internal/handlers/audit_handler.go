package handlers

import (
	"net/http"

	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	BaseHandler
	audit services.AuditService
}

func NewAuditHandler(audit services.AuditService, logger utils.Logger) *AuditHandler {
	return &AuditHandler{
		BaseHandler: NewBaseHandler(logger),
		audit:       audit,
	}
}

// ListAuditLogs returns the bitácora of one actor, the caller by default
// @Summary List audit log
// @Tags audit
// @Produce json
// @Param actor_id query int false "Actor whose trail to read"
// @Param limit query int false "Max entries" default(50)
// @Success 200 {array} models.AuditLog
// @Failure 403 {object} Response
// @Router /audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	actorID := actor.ID
	if v := parseUintQueryPtr(c, "actor_id"); v != nil {
		actorID = *v
	}

	logs, err := h.audit.ListByActor(c.Request.Context(), actor, actorID, parseIntQuery(c, "limit", 50))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", logs)
}
