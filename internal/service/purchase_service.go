package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm/internal/authz"
	"crm/internal/model"
	"crm/internal/repository"
	"crm/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreatePurchaseRequest struct {
	ContactID    string `json:"contact_id" binding:"required"`
	Item         string `json:"item" binding:"required"`
	UnitAmount   string `json:"unit_amount" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
	PurchaseDate string `json:"purchase_date"` // RFC3339, defaults to now
}

type UpdatePurchaseRequest struct {
	Item       *string `json:"item"`
	UnitAmount *string `json:"unit_amount"`
	Quantity   *int    `json:"quantity"`
}

type PurchaseResponse struct {
	ID           string `json:"id"`
	CompanyID    string `json:"company_id"`
	ContactID    string `json:"contact_id"`
	CreatedBy    string `json:"created_by"`
	Item         string `json:"item"`
	UnitAmount   string `json:"unit_amount"`
	Quantity     int    `json:"quantity"`
	TotalAmount  string `json:"total_amount"`
	PurchaseDate string `json:"purchase_date"`
	CreatedAt    string `json:"created_at"`
}

// --- Interface ---

type PurchaseService interface {
	CreatePurchase(ctx context.Context, p authz.Principal, req CreatePurchaseRequest) (*PurchaseResponse, error)
	ListPurchases(ctx context.Context, p authz.Principal, page, limit int) ([]PurchaseResponse, int64, error)
	ListByContact(ctx context.Context, p authz.Principal, contactID uuid.UUID, page, limit int) ([]PurchaseResponse, int64, error)
	UpdatePurchase(ctx context.Context, p authz.Principal, id uuid.UUID, req UpdatePurchaseRequest) (*PurchaseResponse, error)
	DeletePurchase(ctx context.Context, p authz.Principal, id uuid.UUID) error
}

type purchaseService struct {
	purchaseRepo repository.PurchaseRepository
	contactRepo  repository.ContactRepository
	audit        AuditService
	hub          *websocket.Hub
}

func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	contactRepo repository.ContactRepository,
	audit AuditService,
	hub *websocket.Hub,
) PurchaseService {
	return &purchaseService{
		purchaseRepo: purchaseRepo,
		contactRepo:  contactRepo,
		audit:        audit,
		hub:          hub,
	}
}

// --- Implementation ---

func toPurchaseResponse(pu *model.Purchase) *PurchaseResponse {
	return &PurchaseResponse{
		ID:           pu.ID.String(),
		CompanyID:    pu.CompanyID.String(),
		ContactID:    pu.ContactID.String(),
		CreatedBy:    pu.CreatedBy.String(),
		Item:         pu.Item,
		UnitAmount:   pu.UnitAmount.String(),
		Quantity:     pu.Quantity,
		TotalAmount:  pu.TotalAmount.String(),
		PurchaseDate: pu.PurchaseDate.Format(time.RFC3339),
		CreatedAt:    pu.CreatedAt.Format(time.RFC3339),
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount", ErrValidation)
	}
	if amount.IsNegative() || amount.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return amount, nil
}

func (s *purchaseService) CreatePurchase(ctx context.Context, p authz.Principal, req CreatePurchaseRequest) (*PurchaseResponse, error) {
	contactID, err := uuid.Parse(req.ContactID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid contact_id", ErrValidation)
	}

	contact, err := s.contactRepo.FindByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// The referenced contact must be visible to the caller; a hidden contact
	// reads as missing.
	if !authz.CanInsertPurchase(p, contact) {
		return nil, ErrNotFound
	}

	unitAmount, err := parseAmount(req.UnitAmount)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	purchaseDate := time.Now()
	if req.PurchaseDate != "" {
		purchaseDate, err = time.Parse(time.RFC3339, req.PurchaseDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid purchase_date", ErrValidation)
		}
	}

	purchase := &model.Purchase{
		CompanyID:    contact.CompanyID,
		ContactID:    contact.ID,
		CreatedBy:    p.UserID,
		Item:         req.Item,
		UnitAmount:   unitAmount,
		Quantity:     req.Quantity,
		TotalAmount:  unitAmount.Mul(decimal.NewFromInt(int64(req.Quantity))),
		PurchaseDate: purchaseDate,
	}

	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, p, model.ActionCreatePurchase, purchase.ID.String(), purchase.Item,
		map[string]string{"contact_id": contact.ID.String(), "total_amount": purchase.TotalAmount.String()})
	s.publish(p, "purchase.created", purchase.ID)

	return toPurchaseResponse(purchase), nil
}

func (s *purchaseService) ListPurchases(ctx context.Context, p authz.Principal, page, limit int) ([]PurchaseResponse, int64, error) {
	purchases, total, err := s.purchaseRepo.List(ctx, repository.ScopeFor(p), page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]PurchaseResponse, 0, len(purchases))
	for i := range purchases {
		responses = append(responses, *toPurchaseResponse(&purchases[i]))
	}
	return responses, total, nil
}

func (s *purchaseService) ListByContact(ctx context.Context, p authz.Principal, contactID uuid.UUID, page, limit int) ([]PurchaseResponse, int64, error) {
	contact, err := s.contactRepo.FindByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	if !authz.CanReadContact(p, contact) {
		return nil, 0, ErrNotFound
	}

	purchases, total, err := s.purchaseRepo.ListByContact(ctx, contactID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]PurchaseResponse, 0, len(purchases))
	for i := range purchases {
		responses = append(responses, *toPurchaseResponse(&purchases[i]))
	}
	return responses, total, nil
}

func (s *purchaseService) UpdatePurchase(ctx context.Context, p authz.Principal, id uuid.UUID, req UpdatePurchaseRequest) (*PurchaseResponse, error) {
	purchase, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if !authz.CanMutatePurchase(p, purchase) {
		return nil, authz.ErrPermissionDenied
	}

	if req.Item != nil {
		if *req.Item == "" {
			return nil, fmt.Errorf("%w: item cannot be empty", ErrValidation)
		}
		purchase.Item = *req.Item
	}
	if req.UnitAmount != nil {
		unitAmount, err := parseAmount(*req.UnitAmount)
		if err != nil {
			return nil, err
		}
		purchase.UnitAmount = unitAmount
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		purchase.Quantity = *req.Quantity
	}
	purchase.TotalAmount = purchase.UnitAmount.Mul(decimal.NewFromInt(int64(purchase.Quantity)))

	if err := s.purchaseRepo.Update(ctx, purchase); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, p, model.ActionUpdatePurchase, purchase.ID.String(), purchase.Item, nil)
	s.publish(p, "purchase.updated", purchase.ID)

	return toPurchaseResponse(purchase), nil
}

func (s *purchaseService) DeletePurchase(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	purchase, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return err
	}

	if !authz.CanMutatePurchase(p, purchase) {
		return authz.ErrPermissionDenied
	}

	if err := s.purchaseRepo.Delete(ctx, purchase.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, p, model.ActionDeletePurchase, purchase.ID.String(), purchase.Item, nil)
	s.publish(p, "purchase.deleted", purchase.ID)

	return nil
}

// loadVisible fetches a purchase and checks visibility through its parent
// contact.
func (s *purchaseService) loadVisible(ctx context.Context, p authz.Principal, id uuid.UUID) (*model.Purchase, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if purchase.Contact == nil || !authz.CanReadContact(p, purchase.Contact) {
		return nil, ErrNotFound
	}
	return purchase, nil
}

func (s *purchaseService) publish(p authz.Principal, eventType string, id uuid.UUID) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(p.CompanyID, websocket.Event{Type: eventType, EntityID: id.String()})
}
