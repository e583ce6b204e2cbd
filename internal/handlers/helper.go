package handlers

import (
	"net/http"
	"strconv"

	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/gin-gonic/gin"
)

// parseIDParam reads a positive numeric path parameter or answers 400
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		h.RespondWithError(c, http.StatusBadRequest, services.KindValidation, "Invalid "+param, c.Param(param))
		return 0
	}
	return uint(id)
}

func parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return defaultValue
	}
	return value
}

func parseUintQueryPtr(c *gin.Context, param string) *uint {
	value, err := strconv.ParseUint(c.Query(param), 10, 32)
	if err != nil {
		return nil
	}
	v := uint(value)
	return &v
}

func parseIntQueryPtr(c *gin.Context, param string) *int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return nil
	}
	return &value
}

func parseBoolQueryPtr(c *gin.Context, param string) *bool {
	value, err := strconv.ParseBool(c.Query(param))
	if err != nil {
		return nil
	}
	return &value
}
