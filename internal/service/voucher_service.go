package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
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

type CreateVoucherRuleRequest struct {
	Name              string `json:"name" binding:"required"`
	DiscountType      string `json:"discount_type" binding:"required,oneof=PERCENTAGE FIXED"`
	DiscountValue     string `json:"discount_value" binding:"required"`
	MinPurchaseAmount string `json:"min_purchase_amount"`
	MaxDiscountAmount string `json:"max_discount_amount"`
	IsActive          *bool  `json:"is_active"`
}

type UpdateVoucherRuleRequest struct {
	Name              *string `json:"name"`
	DiscountValue     *string `json:"discount_value"`
	MinPurchaseAmount *string `json:"min_purchase_amount"`
	MaxDiscountAmount *string `json:"max_discount_amount"`
	IsActive          *bool   `json:"is_active"`
}

type VoucherRuleResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	DiscountType      string  `json:"discount_type"`
	DiscountValue     string  `json:"discount_value"`
	MinPurchaseAmount *string `json:"min_purchase_amount"`
	MaxDiscountAmount *string `json:"max_discount_amount"`
	IsActive          bool    `json:"is_active"`
	CreatedAt         string  `json:"created_at"`
}

type IssueVoucherRequest struct {
	ContactID     string `json:"contact_id" binding:"required"`
	VoucherRuleID string `json:"voucher_rule_id" binding:"required"`
}

type VoucherResponse struct {
	ID            string  `json:"id"`
	ContactID     string  `json:"contact_id"`
	VoucherRuleID string  `json:"voucher_rule_id"`
	Code          string  `json:"code"`
	Status        string  `json:"status"`
	IssuedBy      string  `json:"issued_by"`
	IssuedAt      string  `json:"issued_at"`
	RedeemedAt    *string `json:"redeemed_at,omitempty"`
	RedeemedBy    *string `json:"redeemed_by,omitempty"`
}

// --- Interface ---

type VoucherService interface {
	CreateRule(ctx context.Context, p authz.Principal, req CreateVoucherRuleRequest) (*VoucherRuleResponse, error)
	ListRules(ctx context.Context, p authz.Principal, activeOnly bool, page, limit int) ([]VoucherRuleResponse, int64, error)
	UpdateRule(ctx context.Context, p authz.Principal, id uuid.UUID, req UpdateVoucherRuleRequest) (*VoucherRuleResponse, error)
	DeleteRule(ctx context.Context, p authz.Principal, id uuid.UUID) error

	IssueVoucher(ctx context.Context, p authz.Principal, req IssueVoucherRequest) (*VoucherResponse, error)
	ListVouchers(ctx context.Context, p authz.Principal, status string, page, limit int) ([]VoucherResponse, int64, error)
	RedeemVoucher(ctx context.Context, p authz.Principal, id uuid.UUID) (*VoucherResponse, error)
	ExpireVoucher(ctx context.Context, p authz.Principal, id uuid.UUID) (*VoucherResponse, error)
}

type voucherService struct {
	ruleRepo    repository.VoucherRuleRepository
	voucherRepo repository.VoucherRepository
	contactRepo repository.ContactRepository
	audit       AuditService
	hub         *websocket.Hub
}

func NewVoucherService(
	ruleRepo repository.VoucherRuleRepository,
	voucherRepo repository.VoucherRepository,
	contactRepo repository.ContactRepository,
	audit AuditService,
	hub *websocket.Hub,
) VoucherService {
	return &voucherService{
		ruleRepo:    ruleRepo,
		voucherRepo: voucherRepo,
		contactRepo: contactRepo,
		audit:       audit,
		hub:         hub,
	}
}

// --- Voucher code generation ---

const (
	voucherCodePrefix    = "VCH-"
	voucherCodeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O/1/I
	voucherCodeSuffixLen = 10
	voucherCodeAttempts  = 3
)

// generateVoucherCode builds a prefixed random code. 32^10 possible suffixes
// make collisions negligible at CRM volumes; the unique index plus
// retry-on-conflict covers the rest.
func generateVoucherCode() (string, error) {
	suffix := make([]byte, voucherCodeSuffixLen)
	max := big.NewInt(int64(len(voucherCodeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = voucherCodeAlphabet[n.Int64()]
	}
	return voucherCodePrefix + string(suffix), nil
}

// --- Rule validation ---

func validateDiscount(discountType string, value decimal.Decimal) error {
	if value.IsNegative() {
		return fmt.Errorf("%w: discount_value must not be negative", ErrValidation)
	}
	if discountType == model.DiscountPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: percentage discount cannot exceed 100", ErrValidation)
	}
	return nil
}

func parseOptionalAmount(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || amount.IsNegative() {
		return nil, fmt.Errorf("%w: invalid amount", ErrValidation)
	}
	return &amount, nil
}

func toRuleResponse(r *model.VoucherRule) *VoucherRuleResponse {
	res := &VoucherRuleResponse{
		ID:            r.ID.String(),
		Name:          r.Name,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue.String(),
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.MinPurchaseAmount != nil {
		v := r.MinPurchaseAmount.String()
		res.MinPurchaseAmount = &v
	}
	if r.MaxDiscountAmount != nil {
		v := r.MaxDiscountAmount.String()
		res.MaxDiscountAmount = &v
	}
	return res
}

func toVoucherResponse(v *model.Voucher) *VoucherResponse {
	res := &VoucherResponse{
		ID:            v.ID.String(),
		ContactID:     v.ContactID.String(),
		VoucherRuleID: v.VoucherRuleID.String(),
		Code:          v.Code,
		Status:        v.Status,
		IssuedBy:      v.IssuedBy.String(),
		IssuedAt:      v.IssuedAt.Format(time.RFC3339),
	}
	if v.RedeemedAt != nil {
		at := v.RedeemedAt.Format(time.RFC3339)
		res.RedeemedAt = &at
	}
	if v.RedeemedBy != nil {
		by := v.RedeemedBy.String()
		res.RedeemedBy = &by
	}
	return res
}

// --- Rule operations ---

func (s *voucherService) CreateRule(ctx context.Context, p authz.Principal, req CreateVoucherRuleRequest) (*VoucherRuleResponse, error) {
	if !authz.CanManageVoucherRules(p) {
		return nil, authz.ErrPermissionDenied
	}

	value, err := decimal.NewFromString(req.DiscountValue)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid discount_value", ErrValidation)
	}
	if err := validateDiscount(req.DiscountType, value); err != nil {
		return nil, err
	}

	minAmount, err := parseOptionalAmount(req.MinPurchaseAmount)
	if err != nil {
		return nil, err
	}
	maxAmount, err := parseOptionalAmount(req.MaxDiscountAmount)
	if err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	rule := &model.VoucherRule{
		CompanyID:         p.CompanyID,
		Name:              req.Name,
		DiscountType:      req.DiscountType,
		DiscountValue:     value,
		MinPurchaseAmount: minAmount,
		MaxDiscountAmount: maxAmount,
		IsActive:          isActive,
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, p, model.ActionCreateVoucherRule, rule.ID.String(), rule.Name, nil)

	return toRuleResponse(rule), nil
}

func (s *voucherService) ListRules(ctx context.Context, p authz.Principal, activeOnly bool, page, limit int) ([]VoucherRuleResponse, int64, error) {
	// Reads are company-scope only: every member may browse the catalog.
	rules, total, err := s.ruleRepo.List(ctx, p.CompanyID, activeOnly, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]VoucherRuleResponse, 0, len(rules))
	for i := range rules {
		responses = append(responses, *toRuleResponse(&rules[i]))
	}
	return responses, total, nil
}

func (s *voucherService) UpdateRule(ctx context.Context, p authz.Principal, id uuid.UUID, req UpdateVoucherRuleRequest) (*VoucherRuleResponse, error) {
	if !authz.CanManageVoucherRules(p) {
		return nil, authz.ErrPermissionDenied
	}

	rule, err := s.loadRule(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		rule.Name = *req.Name
	}
	if req.DiscountValue != nil {
		value, err := decimal.NewFromString(*req.DiscountValue)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid discount_value", ErrValidation)
		}
		if err := validateDiscount(rule.DiscountType, value); err != nil {
			return nil, err
		}
		rule.DiscountValue = value
	}
	if req.MinPurchaseAmount != nil {
		minAmount, err := parseOptionalAmount(*req.MinPurchaseAmount)
		if err != nil {
			return nil, err
		}
		rule.MinPurchaseAmount = minAmount
	}
	if req.MaxDiscountAmount != nil {
		maxAmount, err := parseOptionalAmount(*req.MaxDiscountAmount)
		if err != nil {
			return nil, err
		}
		rule.MaxDiscountAmount = maxAmount
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, p, model.ActionUpdateVoucherRule, rule.ID.String(), rule.Name, nil)

	return toRuleResponse(rule), nil
}

func (s *voucherService) DeleteRule(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if !authz.CanManageVoucherRules(p) {
		return authz.ErrPermissionDenied
	}

	rule, err := s.loadRule(ctx, p, id)
	if err != nil {
		return err
	}

	if err := s.ruleRepo.Delete(ctx, rule.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, p, model.ActionDeleteVoucherRule, rule.ID.String(), rule.Name, nil)
	return nil
}

func (s *voucherService) loadRule(ctx context.Context, p authz.Principal, id uuid.UUID) (*model.VoucherRule, error) {
	rule, err := s.ruleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !authz.CanReadVoucherRule(p, rule) {
		return nil, ErrNotFound
	}
	return rule, nil
}

// --- Voucher operations ---

func (s *voucherService) IssueVoucher(ctx context.Context, p authz.Principal, req IssueVoucherRequest) (*VoucherResponse, error) {
	if !authz.CanIssueVoucher(p) {
		return nil, authz.ErrPermissionDenied
	}

	contactID, err := uuid.Parse(req.ContactID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid contact_id", ErrValidation)
	}
	ruleID, err := uuid.Parse(req.VoucherRuleID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid voucher_rule_id", ErrValidation)
	}

	contact, err := s.contactRepo.FindByID(ctx, contactID)
	if err != nil || !p.SameCompany(contact.CompanyID) {
		return nil, ErrNotFound
	}

	rule, err := s.loadRule(ctx, p, ruleID)
	if err != nil {
		return nil, err
	}
	if !rule.IsActive {
		return nil, fmt.Errorf("%w: voucher rule is inactive", ErrValidation)
	}

	// The unique index on code is the real collision guard; a duplicate key
	// just means "roll the dice again".
	var voucher *model.Voucher
	for attempt := 0; attempt < voucherCodeAttempts; attempt++ {
		code, err := generateVoucherCode()
		if err != nil {
			return nil, err
		}

		voucher = &model.Voucher{
			CompanyID:     p.CompanyID,
			ContactID:     contact.ID,
			VoucherRuleID: rule.ID,
			Code:          code,
			IssuedBy:      p.UserID,
			IssuedAt:      time.Now(),
			Status:        model.VoucherIssued,
		}

		err = s.voucherRepo.Create(ctx, voucher)
		if err == nil {
			s.audit.Record(ctx, p, model.ActionIssueVoucher, voucher.ID.String(), voucher.Code,
				map[string]string{"contact_id": contact.ID.String(), "voucher_rule_id": rule.ID.String()})
			s.publish(p, "voucher.issued", voucher.ID)
			return toVoucherResponse(voucher), nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}

	return nil, ErrDuplicateCode
}

func (s *voucherService) ListVouchers(ctx context.Context, p authz.Principal, status string, page, limit int) ([]VoucherResponse, int64, error) {
	vouchers, total, err := s.voucherRepo.List(ctx, repository.ScopeFor(p), status, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		responses = append(responses, *toVoucherResponse(&vouchers[i]))
	}
	return responses, total, nil
}

func (s *voucherService) RedeemVoucher(ctx context.Context, p authz.Principal, id uuid.UUID) (*VoucherResponse, error) {
	voucher, err := s.loadVoucherForTransition(ctx, p, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	redeemer := p.UserID
	voucher.Status = model.VoucherRedeemed
	voucher.RedeemedAt = &now
	voucher.RedeemedBy = &redeemer

	if err := s.voucherRepo.Update(ctx, voucher); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, p, model.ActionRedeemVoucher, voucher.ID.String(), voucher.Code, nil)
	s.publish(p, "voucher.redeemed", voucher.ID)

	return toVoucherResponse(voucher), nil
}

func (s *voucherService) ExpireVoucher(ctx context.Context, p authz.Principal, id uuid.UUID) (*VoucherResponse, error) {
	voucher, err := s.loadVoucherForTransition(ctx, p, id)
	if err != nil {
		return nil, err
	}

	voucher.Status = model.VoucherExpired

	if err := s.voucherRepo.Update(ctx, voucher); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, p, model.ActionExpireVoucher, voucher.ID.String(), voucher.Code, nil)
	s.publish(p, "voucher.expired", voucher.ID)

	return toVoucherResponse(voucher), nil
}

// loadVoucherForTransition fetches a voucher, checks the caller may act on it
// and rejects transitions out of terminal states.
func (s *voucherService) loadVoucherForTransition(ctx context.Context, p authz.Principal, id uuid.UUID) (*model.Voucher, error) {
	voucher, err := s.voucherRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if voucher.Contact == nil || !authz.CanRedeemVoucher(p, voucher, voucher.Contact) {
		return nil, ErrNotFound
	}
	if voucher.Status != model.VoucherIssued {
		return nil, fmt.Errorf("%w: voucher is already %s", ErrValidation, voucher.Status)
	}
	return voucher, nil
}

func (s *voucherService) publish(p authz.Principal, eventType string, id uuid.UUID) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(p.CompanyID, websocket.Event{Type: eventType, EntityID: id.String()})
}
