package handler

import (
	"net/http"

	"crm/internal/middleware"
	"crm/internal/service"
	"crm/pkg/pagination"
	"crm/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/api/users", middleware.RequireAuth())
	{
		users.GET("", h.ListUsers)
		users.PUT("/:id/role", h.UpdateRole)
	}
}

// ListUsers returns the members of the caller's company
// @Summary      List company users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number"
// @Param        limit  query  int  false  "Items per page"
// @Success      200  {object}  response.Response
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	params := pagination.Parse(c)

	users, total, err := h.userService.ListCompanyUsers(c.Request.Context(), principal, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, users, params.Page, params.Limit, total))
}

// UpdateRole grants or revokes the admin role for a company member. Admin only.
// @Summary      Update user role
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                     true  "User ID"
// @Param        payload  body  service.UpdateRoleRequest  true  "Role payload"
// @Success      200  {object}  response.Response{data=service.CompanyUserResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/users/{id}/role [put]
func (h *UserHandler) UpdateRole(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.SetRole(c.Request.Context(), principal, id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	// Cached principals carry the role, drop the stale entry right away.
	middleware.InvalidatePrincipal(id.String())

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
