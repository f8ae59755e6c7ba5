package handler

import (
	"net/http"

	"crm/internal/middleware"
	"crm/internal/service"
	"crm/pkg/pagination"
	"crm/pkg/response"

	"github.com/gin-gonic/gin"
)

type VoucherHandler struct {
	voucherService service.VoucherService
}

func NewVoucherHandler(voucherService service.VoucherService) *VoucherHandler {
	return &VoucherHandler{voucherService: voucherService}
}

func (h *VoucherHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/voucher-rules", middleware.RequireAuth())
	{
		rules.GET("", h.ListRules)
		rules.POST("", h.CreateRule)
		rules.PUT("/:id", h.UpdateRule)
		rules.DELETE("/:id", h.DeleteRule)
	}

	vouchers := router.Group("/api/vouchers", middleware.RequireAuth())
	{
		vouchers.GET("", h.ListVouchers)
		vouchers.POST("", h.IssueVoucher)
		vouchers.POST("/:id/redeem", h.RedeemVoucher)
		vouchers.POST("/:id/expire", h.ExpireVoucher)
	}
}

// ListRules returns the company's voucher rule catalog
// @Summary      List voucher rules
// @Tags         vouchers
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int   false  "Page number"
// @Param        limit   query  int   false  "Items per page"
// @Param        active  query  bool  false  "Only active rules"
// @Success      200  {object}  response.Response
// @Router       /api/voucher-rules [get]
func (h *VoucherHandler) ListRules(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	params := pagination.Parse(c)
	activeOnly := c.Query("active") == "true"

	rules, total, err := h.voucherService.ListRules(c.Request.Context(), principal, activeOnly, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rules, params.Page, params.Limit, total))
}

// CreateRule creates a voucher rule. Admin only.
// @Summary      Create voucher rule
// @Tags         vouchers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateVoucherRuleRequest  true  "Rule payload"
// @Success      201  {object}  response.Response{data=service.VoucherRuleResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/voucher-rules [post]
func (h *VoucherHandler) CreateRule(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	var req service.CreateVoucherRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.voucherService.CreateRule(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateRule updates a voucher rule. Admin only.
// @Summary      Update voucher rule
// @Tags         vouchers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                            true  "Rule ID"
// @Param        payload  body  service.UpdateVoucherRuleRequest  true  "Update payload"
// @Success      200  {object}  response.Response{data=service.VoucherRuleResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/voucher-rules/{id} [put]
func (h *VoucherHandler) UpdateRule(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateVoucherRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.voucherService.UpdateRule(c.Request.Context(), principal, id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteRule deletes a voucher rule. Admin only.
// @Summary      Delete voucher rule
// @Tags         vouchers
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/voucher-rules/{id} [delete]
func (h *VoucherHandler) DeleteRule(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.voucherService.DeleteRule(c.Request.Context(), principal, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Voucher rule deleted successfully"}))
}

// ListVouchers returns vouchers visible through their contacts
// @Summary      List vouchers
// @Tags         vouchers
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number"
// @Param        limit   query  int     false  "Items per page"
// @Param        status  query  string  false  "Filter by status: ISSUED, REDEEMED, EXPIRED"
// @Success      200  {object}  response.Response
// @Router       /api/vouchers [get]
func (h *VoucherHandler) ListVouchers(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	params := pagination.Parse(c)
	status := c.Query("status")

	vouchers, total, err := h.voucherService.ListVouchers(c.Request.Context(), principal, status, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, vouchers, params.Page, params.Limit, total))
}

// IssueVoucher issues a voucher for a rule to a contact. Admin only.
// @Summary      Issue voucher
// @Tags         vouchers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.IssueVoucherRequest  true  "Issue payload"
// @Success      201  {object}  response.Response{data=service.VoucherResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/vouchers [post]
func (h *VoucherHandler) IssueVoucher(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	var req service.IssueVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	voucher, err := h.voucherService.IssueVoucher(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, voucher))
}

// RedeemVoucher transitions an issued voucher to redeemed
// @Summary      Redeem voucher
// @Tags         vouchers
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Voucher ID"
// @Success      200  {object}  response.Response{data=service.VoucherResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/vouchers/{id}/redeem [post]
func (h *VoucherHandler) RedeemVoucher(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	voucher, err := h.voucherService.RedeemVoucher(c.Request.Context(), principal, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, voucher))
}

// ExpireVoucher transitions an issued voucher to expired
// @Summary      Expire voucher
// @Tags         vouchers
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Voucher ID"
// @Success      200  {object}  response.Response{data=service.VoucherResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/vouchers/{id}/expire [post]
func (h *VoucherHandler) ExpireVoucher(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	voucher, err := h.voucherService.ExpireVoucher(c.Request.Context(), principal, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, voucher))
}
