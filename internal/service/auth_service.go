package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm/internal/middleware"
	"crm/internal/model"
	"crm/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	FullName    string `json:"full_name" binding:"required"`
	CompanyName string `json:"company_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// ProfileResponse returns a profile without exposing the password hash.
type ProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name,omitempty"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Role        string    `json:"role"`
	CreatedAt   string    `json:"created_at"`
}

// AuthService handles signup, login and the session token lifecycle.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*ProfileResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileResponse, error)
}

type authService struct {
	companyRepo repository.CompanyRepository
	profileRepo repository.ProfileRepository
	txManager   repository.TransactionManager
}

func NewAuthService(
	companyRepo repository.CompanyRepository,
	profileRepo repository.ProfileRepository,
	txManager repository.TransactionManager,
) AuthService {
	return &authService{
		companyRepo: companyRepo,
		profileRepo: profileRepo,
		txManager:   txManager,
	}
}

const refreshTokenTTL = 7 * 24 * time.Hour

func newRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func signAccessToken(userID uuid.UUID) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(middleware.GetJWTSecret())
}

// resolveCompany finds the company by case-insensitive name or creates it.
// Two concurrent first-signups with the same name can both attempt the
// insert; the loser gets gorm.ErrDuplicatedKey and re-resolves to the row the
// winner committed instead of failing the signup.
func (s *authService) resolveCompany(ctx context.Context, name string) (*model.Company, error) {
	company, err := s.companyRepo.FindByName(ctx, name)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	company = &model.Company{Name: strings.TrimSpace(name)}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.companyRepo.FindByName(ctx, name)
		}
		return nil, err
	}
	return company, nil
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*ProfileResponse, error) {
	if strings.TrimSpace(req.CompanyName) == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrValidation)
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidation)
	}

	if _, err := s.profileRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrValidation)
	}

	// Company resolution runs outside the profile transaction so a duplicate
	// key on the insert does not poison it.
	company, err := s.resolveCompany(ctx, req.CompanyName)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	profile := &model.Profile{
		CompanyID: company.ID,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:  strings.TrimSpace(req.FullName),
		Password:  string(hashedPassword),
	}

	// The first user of a company becomes admin. The decision is taken inside
	// the transaction by counting existing admins, not by whether this call
	// created the company row: if a signup fails after the company insert, the
	// empty row survives, and the next member to arrive must still get admin.
	role := model.RoleUser
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profileRepo.Create(txCtx, profile); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: email already registered", ErrValidation)
			}
			return err
		}
		admins, err := s.profileRepo.CountAdmins(txCtx, company.ID)
		if err != nil {
			return err
		}
		if admins == 0 {
			role = model.RoleAdmin
			return s.profileRepo.GrantRole(txCtx, profile.ID, model.RoleAdmin)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ProfileResponse{
		ID:          profile.ID,
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Email:       profile.Email,
		FullName:    profile.FullName,
		Role:        role,
		CreatedAt:   profile.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	profile, err := s.profileRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	return s.issueTokens(ctx, profile.ID)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	stored, err := s.profileRepo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, errors.New("invalid or expired refresh token")
	}

	// Rotate: the presented token is single-use.
	if err := s.profileRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, stored.UserID)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.profileRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *authService) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileResponse, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrNotFound
	}

	role, err := s.resolveRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	companyName := ""
	if company, err := s.companyRepo.FindByID(ctx, profile.CompanyID); err == nil {
		companyName = company.Name
	}

	return &ProfileResponse{
		ID:          profile.ID,
		CompanyID:   profile.CompanyID,
		CompanyName: companyName,
		Email:       profile.Email,
		FullName:    profile.FullName,
		Role:        role,
		CreatedAt:   profile.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *authService) resolveRole(ctx context.Context, userID uuid.UUID) (string, error) {
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

func (s *authService) issueTokens(ctx context.Context, userID uuid.UUID) (*TokenResponse, error) {
	accessToken, err := signAccessToken(userID)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	refreshString, err := newRefreshTokenString()
	if err != nil {
		return nil, errors.New("failed to generate refresh token")
	}

	refresh := &model.RefreshToken{
		UserID:    userID,
		Token:     refreshString,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.profileRepo.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}

	return &TokenResponse{Token: accessToken, RefreshToken: refreshString}, nil
}
