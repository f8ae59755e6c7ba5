package handler

import (
	"net/http"

	"crm/internal/middleware"
	"crm/internal/service"
	"crm/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports", middleware.RequireAuth())
	{
		reports.GET("/contacts/:id/spend", h.ContactSpend)
		reports.GET("/users", h.UserPerformance)
		reports.GET("/revenue", h.Revenue)
	}
}

// ContactSpend returns the lifetime spend of a single contact
// @Summary      Contact spend report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Contact ID"
// @Success      200  {object}  response.Response{data=service.ContactSpendResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/reports/contacts/{id}/spend [get]
func (h *ReportHandler) ContactSpend(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.reportService.ContactSpend(c.Request.Context(), principal, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// UserPerformance returns contact and revenue counts per non-admin user. Admin only.
// @Summary      User performance report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/reports/users [get]
func (h *ReportHandler) UserPerformance(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	rows, err := h.reportService.UserPerformance(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// Revenue returns company revenue bucketed by period. Admin only.
// @Summary      Revenue report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        group_by    query  string  false  "Bucket size: week, month, quarter, year"  default(month)
// @Param        start_date  query  string  false  "RFC3339 lower bound"
// @Param        end_date    query  string  false  "RFC3339 upper bound"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/reports/revenue [get]
func (h *ReportHandler) Revenue(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	filter := service.RevenueFilter{
		GroupBy:   c.DefaultQuery("group_by", "month"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}

	points, err := h.reportService.Revenue(c.Request.Context(), principal, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}
