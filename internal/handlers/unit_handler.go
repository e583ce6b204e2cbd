package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/utils"
	"github.com/colegio-digital/grading-service/internal/validator"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type UnitHandler struct {
	BaseHandler
	units   services.UnitService
	closure services.ClosureService
	export  services.ExportService
}

func NewUnitHandler(units services.UnitService, closure services.ClosureService, export services.ExportService, logger utils.Logger) *UnitHandler {
	return &UnitHandler{
		BaseHandler: NewBaseHandler(logger),
		units:       units,
		closure:     closure,
		export:      export,
	}
}

// GetUnit
// @Summary Get unit
// @Tags units
// @Produce json
// @Param id path int true "Unit ID"
// @Success 200 {object} models.Unit
// @Router /units/{id} [get]
func (h *UnitHandler) GetUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	unit, err := h.units.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", unit)
}

// ActivateUnit makes a unit the active one of its assignment
// @Summary Activate unit
// @Tags units
// @Produce json
// @Param id path int true "Unit ID"
// @Success 200 {object} models.Unit
// @Failure 403 {object} Response
// @Failure 409 {object} Response
// @Router /units/{id}/activate [post]
func (h *UnitHandler) ActivateUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Activating unit", "unit_id", id)

	unit, err := h.units.Activate(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Unit activated", unit)
}

// UpdateWeights sets the zona and final point ceilings of a unit
// @Summary Configure unit weights
// @Tags units
// @Accept json
// @Produce json
// @Param id path int true "Unit ID"
// @Param weights body services.UpdateWeightsRequest true "Weights"
// @Success 200 {object} models.Unit
// @Failure 400 {object} Response
// @Router /units/{id}/weights [put]
func (h *UnitHandler) UpdateWeights(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateWeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	unit, err := h.units.UpdateWeights(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Weights updated", unit)
}

// CheckWeights previews whether an activity would fit under the unit ceiling
// @Summary Pre-check activity weight
// @Tags units
// @Produce json
// @Param id path int true "Unit ID"
// @Param category query string true "zona or final"
// @Param max_points query number true "Activity points"
// @Param enabled query bool false "Activity enabled" default(true)
// @Param exclude_id query int false "Activity being edited"
// @Success 200 {object} validator.WeightCheck
// @Router /units/{id}/weights/check [get]
func (h *UnitHandler) CheckWeights(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	points, err := strconv.ParseFloat(c.Query("max_points"), 64)
	if err != nil {
		h.badRequest(c, "Invalid max_points", err)
		return
	}
	enabled := true
	if v := parseBoolQueryPtr(c, "enabled"); v != nil {
		enabled = *v
	}

	candidate := validator.WeightCandidate{
		Category:  models.ActivityCategory(c.Query("category")),
		MaxPoints: points,
		Enabled:   enabled,
		ExcludeID: parseUintQueryPtr(c, "exclude_id"),
	}

	check, err := h.units.CheckWeights(c.Request.Context(), actor, id, candidate)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", check)
}

// ValidateClosure reports whether every enabled activity is fully graded
// @Summary Unit closure validation
// @Tags units
// @Produce json
// @Param id path int true "Unit ID"
// @Success 200 {object} services.ClosureValidation
// @Router /units/{id}/closure [get]
func (h *UnitHandler) ValidateClosure(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	result, err := h.closure.ValidateClosure(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", result)
}

// CloseUnit closes one unit without activating a successor
// @Summary Close unit
// @Tags units
// @Produce json
// @Param id path int true "Unit ID"
// @Success 200 {object} services.UnitTransitionResult
// @Failure 422 {object} Response
// @Router /units/{id}/close [post]
func (h *UnitHandler) CloseUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Closing unit", "unit_id", id)

	result, err := h.units.Close(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Unit closed", result)
}

// ExportGrades downloads the unit grade sheet
// @Summary Export unit grades
// @Tags units
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Unit ID"
// @Success 200 {file} file
// @Router /units/{id}/export [get]
func (h *UnitHandler) ExportGrades(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	sheet, err := h.export.ExportUnitGrades(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sheet.FileName))
	c.Data(http.StatusOK, xlsxContentType, sheet.Content)
}
