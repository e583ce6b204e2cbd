package handlers

import (
	"net/http"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/repositories"
	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	BaseHandler
	activities services.ActivityService
}

func NewActivityHandler(activities services.ActivityService, logger utils.Logger) *ActivityHandler {
	return &ActivityHandler{
		BaseHandler: NewBaseHandler(logger),
		activities:  activities,
	}
}

// ListActivities
// @Summary List unit activities
// @Tags activities
// @Produce json
// @Param id path int true "Unit ID"
// @Param category query string false "zona or final"
// @Param enabled_only query bool false "Only enabled activities"
// @Success 200 {array} models.Activity
// @Router /units/{id}/activities [get]
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	unitID := h.parseIDParam(c, "id")
	if unitID == 0 {
		return
	}

	var filters repositories.ActivityFilters
	if category := c.Query("category"); category != "" {
		cat := models.ActivityCategory(category)
		filters.Category = &cat
	}
	if enabled := parseBoolQueryPtr(c, "enabled_only"); enabled != nil {
		filters.EnabledOnly = *enabled
	}

	activities, err := h.activities.List(c.Request.Context(), actor, unitID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", activities)
}

// CreateActivity adds an activity under the unit weight ceiling
// @Summary Create activity
// @Tags activities
// @Accept json
// @Produce json
// @Param id path int true "Unit ID"
// @Param activity body services.CreateActivityRequest true "Activity data"
// @Success 201 {object} services.ActivityResult
// @Failure 400 {object} Response
// @Failure 422 {object} Response
// @Router /units/{id}/activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	unitID := h.parseIDParam(c, "id")
	if unitID == 0 {
		return
	}

	var req services.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	h.LogRequest(c, "Creating activity", "unit_id", unitID, "category", req.Category, "max_points", req.MaxPoints)

	result, err := h.activities.Create(c.Request.Context(), actor, unitID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Activity created", result)
}

// GetActivity
// @Summary Get activity
// @Tags activities
// @Produce json
// @Param id path int true "Activity ID"
// @Success 200 {object} models.Activity
// @Router /activities/{id} [get]
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	activity, err := h.activities.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", activity)
}

// UpdateActivity
// @Summary Update activity
// @Tags activities
// @Accept json
// @Produce json
// @Param id path int true "Activity ID"
// @Param activity body services.UpdateActivityRequest true "Changed fields"
// @Success 200 {object} services.ActivityResult
// @Failure 422 {object} Response
// @Router /activities/{id} [put]
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.activities.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Activity updated", result)
}

// DeleteActivity
// @Summary Delete activity
// @Tags activities
// @Param id path int true "Activity ID"
// @Success 200 {object} Response
// @Router /activities/{id} [delete]
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.activities.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Activity deleted", nil)
}
