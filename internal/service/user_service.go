package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm/internal/authz"
	"crm/internal/model"
	"crm/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

type CompanyUserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// UserService lists company members and manages role assignments.
type UserService interface {
	ListCompanyUsers(ctx context.Context, p authz.Principal, page, limit int) ([]CompanyUserResponse, int64, error)
	SetRole(ctx context.Context, p authz.Principal, userID uuid.UUID, role string) (*CompanyUserResponse, error)
}

type userService struct {
	profileRepo repository.ProfileRepository
	audit       AuditService
}

func NewUserService(profileRepo repository.ProfileRepository, audit AuditService) UserService {
	return &userService{profileRepo: profileRepo, audit: audit}
}

// --- Implementation ---

func (s *userService) roleOf(ctx context.Context, userID uuid.UUID) (string, error) {
	roles, err := s.profileRepo.RolesForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r == model.RoleAdmin {
			return model.RoleAdmin, nil
		}
	}
	return model.RoleUser, nil
}

// ListCompanyUsers is visible to every company member; membership itself is
// not sensitive, only contact PII is.
func (s *userService) ListCompanyUsers(ctx context.Context, p authz.Principal, page, limit int) ([]CompanyUserResponse, int64, error) {
	profiles, total, err := s.profileRepo.ListByCompany(ctx, p.CompanyID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CompanyUserResponse, 0, len(profiles))
	for i := range profiles {
		role, err := s.roleOf(ctx, profiles[i].ID)
		if err != nil {
			return nil, 0, err
		}
		responses = append(responses, CompanyUserResponse{
			ID:        profiles[i].ID.String(),
			Email:     profiles[i].Email,
			FullName:  profiles[i].FullName,
			Role:      role,
			CreatedAt: profiles[i].CreatedAt.Format(time.RFC3339),
		})
	}
	return responses, total, nil
}

// SetRole grants or revokes the admin role. Admin only; a company can never
// end up without an admin.
func (s *userService) SetRole(ctx context.Context, p authz.Principal, userID uuid.UUID, role string) (*CompanyUserResponse, error) {
	if !p.IsAdmin() {
		return nil, authz.ErrPermissionDenied
	}
	if role != model.RoleAdmin && role != model.RoleUser {
		return nil, fmt.Errorf("%w: role must be admin or user", ErrValidation)
	}

	target, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if target.CompanyID != p.CompanyID {
		return nil, ErrNotFound
	}

	current, err := s.roleOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case role == model.RoleAdmin && current != model.RoleAdmin:
		if err := s.profileRepo.GrantRole(ctx, userID, model.RoleAdmin); err != nil {
			// Concurrent double-grant: the unique (user_id, role) index makes
			// the second grant a no-op rather than a failure.
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, err
			}
		}
		s.audit.Record(ctx, p, model.ActionGrantRole, userID.String(), target.FullName, nil)
	case role == model.RoleUser && current == model.RoleAdmin:
		admins, err := s.profileRepo.CountAdmins(ctx, p.CompanyID)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, fmt.Errorf("%w: cannot revoke the last admin", ErrValidation)
		}
		if err := s.profileRepo.RevokeRole(ctx, userID, model.RoleAdmin); err != nil {
			return nil, err
		}
		s.audit.Record(ctx, p, model.ActionRevokeRole, userID.String(), target.FullName, nil)
	}

	return &CompanyUserResponse{
		ID:        target.ID.String(),
		Email:     target.Email,
		FullName:  target.FullName,
		Role:      role,
		CreatedAt: target.CreatedAt.Format(time.RFC3339),
	}, nil
}
