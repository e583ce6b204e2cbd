package handlers

import (
	"net/http"

	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type ReopenHandler struct {
	BaseHandler
	reopen services.ReopenService
}

func NewReopenHandler(reopen services.ReopenService, logger utils.Logger) *ReopenHandler {
	return &ReopenHandler{
		BaseHandler: NewBaseHandler(logger),
		reopen:      reopen,
	}
}

// RequestReopen files a teacher's request to reopen a closed unit
// @Summary Request unit reopen
// @Tags reopen
// @Accept json
// @Produce json
// @Param id path int true "Unit ID"
// @Param request body services.ReopenRequestInput true "Reason"
// @Success 201 {object} models.ReopenRequest
// @Failure 409 {object} Response
// @Router /units/{id}/reopen-requests [post]
func (h *ReopenHandler) RequestReopen(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	unitID := h.parseIDParam(c, "id")
	if unitID == 0 {
		return
	}

	var input services.ReopenRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	h.LogRequest(c, "Requesting unit reopen", "unit_id", unitID)

	request, err := h.reopen.RequestReopen(c.Request.Context(), actor, unitID, &input)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Reopen request submitted", request)
}

// ListMine
// @Summary List own reopen requests
// @Tags reopen
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} services.ReopenRequestList
// @Router /reopen-requests/mine [get]
func (h *ReopenHandler) ListMine(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	list, err := h.reopen.ListMine(c.Request.Context(), actor, parseIntQuery(c, "limit", 20), parseIntQuery(c, "offset", 0))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", list)
}

// ListPending
// @Summary List pending reopen requests
// @Tags reopen
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} services.ReopenRequestList
// @Failure 403 {object} Response
// @Router /reopen-requests/pending [get]
func (h *ReopenHandler) ListPending(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	list, err := h.reopen.ListPending(c.Request.Context(), actor, parseIntQuery(c, "limit", 20), parseIntQuery(c, "offset", 0))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", list)
}

// ResolveReopen approves or rejects a pending request
// @Summary Resolve reopen request
// @Tags reopen
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param resolution body services.ResolveReopenInput true "Decision"
// @Success 200 {object} models.ReopenRequest
// @Failure 409 {object} Response
// @Router /reopen-requests/{id}/resolve [post]
func (h *ReopenHandler) ResolveReopen(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var input services.ResolveReopenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	h.LogRequest(c, "Resolving reopen request", "request_id", id)

	request, err := h.reopen.ResolveReopen(c.Request.Context(), actor, id, &input)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Reopen request resolved", request)
}
