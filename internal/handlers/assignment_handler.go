package handlers

import (
	"net/http"

	"github.com/colegio-digital/grading-service/internal/repositories"
	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AssignmentHandler struct {
	BaseHandler
	assignments services.AssignmentService
	units       services.UnitService
}

func NewAssignmentHandler(assignments services.AssignmentService, units services.UnitService, logger utils.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler: NewBaseHandler(logger),
		assignments: assignments,
		units:       units,
	}
}

// CreateAssignment creates a course assignment and its four units
// @Summary Create course assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Param assignment body services.CreateAssignmentRequest true "Assignment data"
// @Success 201 {object} models.CourseAssignment
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /assignments [post]
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req services.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	h.LogRequest(c, "Creating assignment", "teacher_id", req.TeacherID, "course_id", req.CourseID)

	assignment, err := h.assignments.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Assignment created", assignment)
}

// ListAssignments lists assignments visible to the actor
// @Summary List course assignments
// @Tags assignments
// @Produce json
// @Param teacher_id query int false "Teacher"
// @Param course_id query int false "Course"
// @Param year query int false "Year"
// @Param active query bool false "Only active"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} services.AssignmentList
// @Router /assignments [get]
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	filters := repositories.AssignmentFilters{
		TeacherID: parseUintQueryPtr(c, "teacher_id"),
		CourseID:  parseUintQueryPtr(c, "course_id"),
		Year:      parseIntQueryPtr(c, "year"),
		Active:    parseBoolQueryPtr(c, "active"),
		Limit:     parseIntQuery(c, "limit", 20),
		Offset:    parseIntQuery(c, "offset", 0),
	}

	list, err := h.assignments.List(c.Request.Context(), actor, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", list)
}

// GetAssignment returns one assignment with its units
// @Summary Get course assignment
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} models.CourseAssignment
// @Failure 404 {object} Response
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	assignment, err := h.assignments.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", assignment)
}

// DeleteAssignment soft deletes an assignment together with its units
// @Summary Delete course assignment
// @Tags assignments
// @Param id path int true "Assignment ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting assignment", "assignment_id", id)

	if err := h.assignments.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Assignment deleted", nil)
}

// ListUnits lists the four units of an assignment
// @Summary List assignment units
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {array} models.Unit
// @Router /assignments/{id}/units [get]
func (h *AssignmentHandler) ListUnits(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	units, err := h.assignments.ListUnits(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "", units)
}

// CloseAndOpenNext closes the active unit and activates the following one
// @Summary Close active unit and open next
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} services.UnitTransitionResult
// @Failure 409 {object} Response
// @Failure 422 {object} Response
// @Router /assignments/{id}/close-and-open-next [post]
func (h *AssignmentHandler) CloseAndOpenNext(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Closing active unit", "assignment_id", id)

	result, err := h.units.CloseAndOpenNext(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Unit closed", result)
}
