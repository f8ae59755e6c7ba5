package handler

import (
	"net/http"

	"crm/internal/middleware"
	"crm/internal/service"
	"crm/pkg/pagination"
	"crm/pkg/response"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contactService  service.ContactService
	purchaseService service.PurchaseService
}

func NewContactHandler(contactService service.ContactService, purchaseService service.PurchaseService) *ContactHandler {
	return &ContactHandler{contactService: contactService, purchaseService: purchaseService}
}

func (h *ContactHandler) RegisterRoutes(router *gin.RouterGroup) {
	contacts := router.Group("/api/contacts", middleware.RequireAuth())
	{
		contacts.GET("", h.ListContacts)
		contacts.POST("", h.CreateContact)
		contacts.GET("/:id", h.GetContact)
		contacts.PUT("/:id", h.UpdateContact)
		contacts.DELETE("/:id", h.DeleteContact)
		contacts.GET("/:id/purchases", h.ListContactPurchases)
	}
}

// ListContacts returns paginated contacts visible to the caller
// @Summary      List contacts
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        search  query     string  false  "Search by name"
// @Success      200     {object}  response.Response
// @Router       /api/contacts [get]
func (h *ContactHandler) ListContacts(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	params := pagination.Parse(c)

	contacts, total, err := h.contactService.ListContacts(c.Request.Context(), principal, params.Search, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, contacts, params.Page, params.Limit, total))
}

// CreateContact creates a new contact
// @Summary      Create contact
// @Tags         contacts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateContactRequest  true  "Contact payload"
// @Success      201  {object}  response.Response{data=service.ContactResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/contacts [post]
func (h *ContactHandler) CreateContact(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	var req service.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	contact, err := h.contactService.CreateContact(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, contact))
}

// GetContact returns one contact, PII redacted per the caller's access
// @Summary      Get contact
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Contact ID"
// @Success      200  {object}  response.Response{data=service.ContactResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/contacts/{id} [get]
func (h *ContactHandler) GetContact(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	contact, err := h.contactService.GetContact(c.Request.Context(), principal, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contact))
}

// UpdateContact updates an existing contact
// @Summary      Update contact
// @Tags         contacts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                        true  "Contact ID"
// @Param        payload  body  service.UpdateContactRequest  true  "Update payload"
// @Success      200  {object}  response.Response{data=service.ContactResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/contacts/{id} [put]
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	contact, err := h.contactService.UpdateContact(c.Request.Context(), principal, id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contact))
}

// DeleteContact removes a contact and its purchases and vouchers
// @Summary      Delete contact
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Contact ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.contactService.DeleteContact(c.Request.Context(), principal, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Contact deleted successfully"}))
}

// ListContactPurchases returns a visible contact's purchases
// @Summary      List purchases of a contact
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Param        id     path   string  true   "Contact ID"
// @Param        page   query  int     false  "Page number"
// @Param        limit  query  int     false  "Items per page"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/contacts/{id}/purchases [get]
func (h *ContactHandler) ListContactPurchases(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	params := pagination.Parse(c)

	purchases, total, err := h.purchaseService.ListByContact(c.Request.Context(), principal, id, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, purchases, params.Page, params.Limit, total))
}
