package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm/internal/authz"
	"crm/internal/model"
	"crm/internal/repository"
	"crm/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateContactRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"omitempty,email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	AssignedUserID string `json:"assigned_user_id"` // optional, uuid
}

type UpdateContactRequest struct {
	Name           *string `json:"name"`
	Email          *string `json:"email" binding:"omitempty,email"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	AssignedUserID *string `json:"assigned_user_id"` // empty string clears the assignment
}

// ContactResponse carries PII fields only when the caller passes the PII
// gate; otherwise they are blanked and PIIVisible is false so clients can
// render "restricted" instead of an empty value.
type ContactResponse struct {
	ID             string  `json:"id"`
	CompanyID      string  `json:"company_id"`
	Name           string  `json:"name"`
	Email          string  `json:"email,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	Address        string  `json:"address,omitempty"`
	CreatedBy      string  `json:"created_by"`
	AssignedUserID *string `json:"assigned_user_id"`
	PIIVisible     bool    `json:"pii_visible"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// --- Interface ---

type ContactService interface {
	CreateContact(ctx context.Context, p authz.Principal, req CreateContactRequest) (*ContactResponse, error)
	GetContact(ctx context.Context, p authz.Principal, id uuid.UUID) (*ContactResponse, error)
	ListContacts(ctx context.Context, p authz.Principal, search string, page, limit int) ([]ContactResponse, int64, error)
	UpdateContact(ctx context.Context, p authz.Principal, id uuid.UUID, req UpdateContactRequest) (*ContactResponse, error)
	DeleteContact(ctx context.Context, p authz.Principal, id uuid.UUID) error
}

type contactService struct {
	contactRepo repository.ContactRepository
	profileRepo repository.ProfileRepository
	audit       AuditService
	hub         *websocket.Hub
}

func NewContactService(
	contactRepo repository.ContactRepository,
	profileRepo repository.ProfileRepository,
	audit AuditService,
	hub *websocket.Hub,
) ContactService {
	return &contactService{
		contactRepo: contactRepo,
		profileRepo: profileRepo,
		audit:       audit,
		hub:         hub,
	}
}

// --- Implementation ---

func (s *contactService) toResponse(p authz.Principal, c *model.Contact) *ContactResponse {
	res := &ContactResponse{
		ID:         c.ID.String(),
		CompanyID:  c.CompanyID.String(),
		Name:       c.Name,
		CreatedBy:  c.CreatedBy.String(),
		PIIVisible: authz.CanSeePII(p, c),
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  c.UpdatedAt.Format(time.RFC3339),
	}
	if c.AssignedUserID != nil {
		assigned := c.AssignedUserID.String()
		res.AssignedUserID = &assigned
	}
	if res.PIIVisible {
		res.Email = c.Email
		res.Phone = c.Phone
		res.Address = c.Address
	}
	return res
}

// resolveAssignee parses and validates an assignment target: it must be an
// existing profile in the caller's company.
func (s *contactService) resolveAssignee(ctx context.Context, p authz.Principal, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	assigneeID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid assigned_user_id", ErrValidation)
	}
	assignee, err := s.profileRepo.FindByID(ctx, assigneeID)
	if err != nil || assignee.CompanyID != p.CompanyID {
		return nil, fmt.Errorf("%w: assignee must belong to your company", ErrValidation)
	}
	return &assigneeID, nil
}

func (s *contactService) CreateContact(ctx context.Context, p authz.Principal, req CreateContactRequest) (*ContactResponse, error) {
	assignedID, err := s.resolveAssignee(ctx, p, req.AssignedUserID)
	if err != nil {
		return nil, err
	}

	contact := &model.Contact{
		CompanyID:      p.CompanyID,
		CreatedBy:      p.UserID,
		AssignedUserID: assignedID,
		Name:           strings.TrimSpace(req.Name),
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
	}

	if !authz.CanInsertContact(p, contact) {
		return nil, authz.ErrPermissionDenied
	}

	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, p, model.ActionCreateContact, contact.ID.String(), contact.Name, nil)
	s.publish(p, "contact.created", contact.ID)

	return s.toResponse(p, contact), nil
}

func (s *contactService) GetContact(ctx context.Context, p authz.Principal, id uuid.UUID) (*ContactResponse, error) {
	contact, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(p, contact), nil
}

func (s *contactService) ListContacts(ctx context.Context, p authz.Principal, search string, page, limit int) ([]ContactResponse, int64, error) {
	contacts, total, err := s.contactRepo.List(ctx, repository.ScopeFor(p), search, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ContactResponse, 0, len(contacts))
	for i := range contacts {
		responses = append(responses, *s.toResponse(p, &contacts[i]))
	}
	return responses, total, nil
}

func (s *contactService) UpdateContact(ctx context.Context, p authz.Principal, id uuid.UUID, req UpdateContactRequest) (*ContactResponse, error) {
	contact, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if !authz.CanMutateContact(p, contact) {
		return nil, authz.ErrPermissionDenied
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		contact.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		contact.Email = *req.Email
	}
	if req.Phone != nil {
		contact.Phone = *req.Phone
	}
	if req.Address != nil {
		contact.Address = *req.Address
	}
	if req.AssignedUserID != nil {
		if *req.AssignedUserID == "" {
			contact.AssignedUserID = nil
		} else {
			assignedID, err := s.resolveAssignee(ctx, p, *req.AssignedUserID)
			if err != nil {
				return nil, err
			}
			// Non-admins may only assign to themselves.
			if !p.IsAdmin() && *assignedID != p.UserID {
				return nil, authz.ErrPermissionDenied
			}
			contact.AssignedUserID = assignedID
		}
	}

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, p, model.ActionUpdateContact, contact.ID.String(), contact.Name, nil)
	s.publish(p, "contact.updated", contact.ID)

	return s.toResponse(p, contact), nil
}

func (s *contactService) DeleteContact(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	contact, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return err
	}

	if !authz.CanMutateContact(p, contact) {
		return authz.ErrPermissionDenied
	}

	// Purchases and vouchers cascade at the FK level.
	if err := s.contactRepo.Delete(ctx, contact.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, p, model.ActionDeleteContact, contact.ID.String(), contact.Name, nil)
	s.publish(p, "contact.deleted", contact.ID)

	return nil
}

// loadVisible fetches a contact and applies the read predicate. A contact the
// caller may not see is reported exactly like a missing one.
func (s *contactService) loadVisible(ctx context.Context, p authz.Principal, id uuid.UUID) (*model.Contact, error) {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !authz.CanReadContact(p, contact) {
		return nil, ErrNotFound
	}
	return contact, nil
}

func (s *contactService) publish(p authz.Principal, eventType string, id uuid.UUID) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(p.CompanyID, websocket.Event{Type: eventType, EntityID: id.String()})
}
