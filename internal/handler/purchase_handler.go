package handler

import (
	"net/http"

	"crm/internal/middleware"
	"crm/internal/service"
	"crm/pkg/pagination"
	"crm/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	purchaseService service.PurchaseService
}

func NewPurchaseHandler(purchaseService service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

func (h *PurchaseHandler) RegisterRoutes(router *gin.RouterGroup) {
	purchases := router.Group("/api/purchases", middleware.RequireAuth())
	{
		purchases.GET("", h.ListPurchases)
		purchases.POST("", h.CreatePurchase)
		purchases.PUT("/:id", h.UpdatePurchase)
		purchases.DELETE("/:id", h.DeletePurchase)
	}
}

// ListPurchases returns purchases visible through their parent contacts
// @Summary      List purchases
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/purchases [get]
func (h *PurchaseHandler) ListPurchases(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	params := pagination.Parse(c)

	purchases, total, err := h.purchaseService.ListPurchases(c.Request.Context(), principal, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, purchases, params.Page, params.Limit, total))
}

// CreatePurchase records a purchase against a visible contact
// @Summary      Create purchase
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreatePurchaseRequest  true  "Purchase payload"
// @Success      201  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/purchases [post]
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	var req service.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	purchase, err := h.purchaseService.CreatePurchase(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, purchase))
}

// UpdatePurchase edits a purchase. Admin only.
// @Summary      Update purchase
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Purchase ID"
// @Param        payload  body  service.UpdatePurchaseRequest  true  "Update payload"
// @Success      200  {object}  response.Response{data=service.PurchaseResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/purchases/{id} [put]
func (h *PurchaseHandler) UpdatePurchase(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	purchase, err := h.purchaseService.UpdatePurchase(c.Request.Context(), principal, id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// DeletePurchase removes a purchase. Admin only.
// @Summary      Delete purchase
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Purchase ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/purchases/{id} [delete]
func (h *PurchaseHandler) DeletePurchase(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.purchaseService.DeletePurchase(c.Request.Context(), principal, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Purchase deleted successfully"}))
}
