package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm/internal/authz"
	"crm/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type ContactSpendResponse struct {
	ContactID   string `json:"contact_id"`
	ContactName string `json:"contact_name"`
	TotalSpend  string `json:"total_spend"`
}

type UserPerformanceResponse struct {
	UserID        string `json:"user_id"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	ContactCount  int64  `json:"contact_count"`
	PurchaseCount int64  `json:"purchase_count"`
	TotalRevenue  string `json:"total_revenue"`
}

type RevenuePointResponse struct {
	Period        string `json:"period"`
	TotalRevenue  string `json:"total_revenue"`
	PurchaseCount int64  `json:"purchase_count"`
}

type RevenueFilter struct {
	GroupBy   string // week, month, quarter, year
	StartDate string // RFC3339
	EndDate   string // RFC3339
}

// --- Interface ---

type ReportService interface {
	ContactSpend(ctx context.Context, p authz.Principal, contactID uuid.UUID) (*ContactSpendResponse, error)
	UserPerformance(ctx context.Context, p authz.Principal) ([]UserPerformanceResponse, error)
	Revenue(ctx context.Context, p authz.Principal, filter RevenueFilter) ([]RevenuePointResponse, error)
}

type reportService struct {
	reportRepo   repository.ReportRepository
	purchaseRepo repository.PurchaseRepository
	contactRepo  repository.ContactRepository
}

func NewReportService(
	reportRepo repository.ReportRepository,
	purchaseRepo repository.PurchaseRepository,
	contactRepo repository.ContactRepository,
) ReportService {
	return &reportService{
		reportRepo:   reportRepo,
		purchaseRepo: purchaseRepo,
		contactRepo:  contactRepo,
	}
}

// --- Implementation ---

// ContactSpend totals a contact's purchases. A caller without visibility on
// the contact gets not-found, never a misleading zero.
func (s *reportService) ContactSpend(ctx context.Context, p authz.Principal, contactID uuid.UUID) (*ContactSpendResponse, error) {
	contact, err := s.contactRepo.FindByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !authz.CanReadContact(p, contact) {
		return nil, ErrNotFound
	}

	total, err := s.purchaseRepo.SumByContact(ctx, contactID)
	if err != nil {
		return nil, err
	}

	return &ContactSpendResponse{
		ContactID:   contact.ID.String(),
		ContactName: contact.Name,
		TotalSpend:  total.String(),
	}, nil
}

// UserPerformance is the admin-only salesworker breakdown. Profiles holding
// the admin role never appear in it.
func (s *reportService) UserPerformance(ctx context.Context, p authz.Principal) ([]UserPerformanceResponse, error) {
	if !p.IsAdmin() {
		return nil, authz.ErrPermissionDenied
	}

	rows, err := s.reportRepo.UserPerformance(ctx, p.CompanyID)
	if err != nil {
		return nil, err
	}

	result := make([]UserPerformanceResponse, 0, len(rows))
	for _, r := range rows {
		result = append(result, UserPerformanceResponse{
			UserID:        r.UserID.String(),
			FullName:      r.FullName,
			Email:         r.Email,
			ContactCount:  r.ContactCount,
			PurchaseCount: r.PurchaseCount,
			TotalRevenue:  fmt.Sprintf("%.4f", r.TotalRevenue),
		})
	}
	return result, nil
}

func (s *reportService) Revenue(ctx context.Context, p authz.Principal, filter RevenueFilter) ([]RevenuePointResponse, error) {
	if !p.IsAdmin() {
		return nil, authz.ErrPermissionDenied
	}

	groupBy := filter.GroupBy
	switch groupBy {
	case "week", "month", "quarter", "year":
		// valid
	default:
		groupBy = "month"
	}

	for _, raw := range []string{filter.StartDate, filter.EndDate} {
		if raw == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, raw); err != nil {
			return nil, fmt.Errorf("%w: dates must be RFC3339", ErrValidation)
		}
	}

	rows, err := s.reportRepo.Revenue(ctx, p.CompanyID, groupBy, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue statistics: %w", err)
	}

	result := make([]RevenuePointResponse, 0, len(rows))
	for _, r := range rows {
		result = append(result, RevenuePointResponse{
			Period:        r.Period,
			TotalRevenue:  fmt.Sprintf("%.4f", r.TotalRevenue),
			PurchaseCount: r.PurchaseCount,
		})
	}
	return result, nil
}
