package service

import (
	"context"
	"encoding/json"
	"log"

	"crm/internal/authz"
	"crm/internal/model"
	"crm/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// AuditService records and lists the company-scoped mutation trail.
type AuditService interface {
	// Record writes an audit entry. Failures are logged, never propagated:
	// an audit hiccup must not fail the mutation it describes.
	Record(ctx context.Context, p authz.Principal, action, entityID, entityName string, details interface{})
	List(ctx context.Context, p authz.Principal, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) Record(ctx context.Context, p authz.Principal, action, entityID, entityName string, details interface{}) {
	payload := "{}"
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			payload = string(raw)
		}
	}

	userID := p.UserID
	entry := &model.AuditLog{
		CompanyID:  p.CompanyID,
		UserID:     &userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.Println("audit: failed to record", action, ":", err)
	}
}

// List returns the company's audit trail. Admin only.
func (s *auditService) List(ctx context.Context, p authz.Principal, page, limit int) ([]AuditLogResponse, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, authz.ErrPermissionDenied
	}

	logs, total, err := s.auditRepo.ListByCompany(ctx, p.CompanyID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userName := "System"
		userID := ""
		if l.User != nil {
			userName = l.User.FullName
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			UserName:   userName,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
