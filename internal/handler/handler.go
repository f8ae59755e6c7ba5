package handler

import (
	"errors"
	"net/http"

	"crm/internal/authz"
	"crm/internal/service"
	"crm/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service-layer sentinel errors onto HTTP statuses.
// Filtered-out records and missing records both become 404; policy denials
// become 403 with nothing applied.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Record not found"))
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrDuplicateCode):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, "Could not generate a unique voucher code, please retry"))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

// parseIDParam reads a uuid path parameter, rejecting garbage before it
// reaches a service.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
