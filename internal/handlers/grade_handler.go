package handlers

import (
	"net/http"

	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type GradeHandler struct {
	BaseHandler
	grades services.GradeService
}

func NewGradeHandler(grades services.GradeService, logger utils.Logger) *GradeHandler {
	return &GradeHandler{
		BaseHandler: NewBaseHandler(logger),
		grades:      grades,
	}
}

// ListGrades lists every enrolled student with the score for one activity
// @Summary Activity grade list
// @Tags grades
// @Produce json
// @Param id path int true "Activity ID"
// @Success 200 {object} services.ActivityGradeList
// @Router /activities/{id}/grades [get]
func (h *GradeHandler) ListGrades(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	list, err := h.grades.ListActivityGrades(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", list)
}

// RecordGrades upserts a batch of scores; the batch is written whole or not at all
// @Summary Record grades in batch
// @Tags grades
// @Accept json
// @Produce json
// @Param id path int true "Activity ID"
// @Param grades body services.RecordGradesRequest true "Grade entries"
// @Success 200 {object} services.RecordGradesResult
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /activities/{id}/grades [post]
func (h *GradeHandler) RecordGrades(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.RecordGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	h.LogRequest(c, "Recording grades", "activity_id", id, "entries", len(req.Entries))

	result, err := h.grades.RecordGrades(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Grades recorded", result)
}

// GradingGate
// @Summary Zona-before-final gate
// @Tags grades
// @Produce json
// @Param id path int true "Activity ID"
// @Success 200 {object} services.FinalGradingGate
// @Router /activities/{id}/grading-gate [get]
func (h *GradeHandler) GradingGate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	gate, err := h.grades.FinalGradingGate(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", gate)
}
