package repository

import (
	"context"
	"time"

	"crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileRepository defines data access for profiles, role assignments and
// refresh tokens.
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.Profile, int64, error)

	RolesForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	GrantRole(ctx context.Context, userID uuid.UUID, role string) error
	RevokeRole(ctx context.Context, userID uuid.UUID, role string) error
	CountAdmins(ctx context.Context, companyID uuid.UUID) (int64, error)

	SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteRefreshTokensForUser(ctx context.Context, userID uuid.UUID) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return GetDB(ctx, r.db).Create(profile).Error
}

func (r *profileRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := GetDB(ctx, r.db).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	if err := GetDB(ctx, r.db).First(&profile, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.Profile, int64, error) {
	var profiles []model.Profile
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Profile{}).Where("company_id = ?", companyID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("company_id = ?", companyID).Order("created_at asc").Offset(offset).Limit(limit).Find(&profiles).Error; err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

func (r *profileRepository) RolesForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var roles []string
	err := GetDB(ctx, r.db).Model(&model.UserRole{}).
		Where("user_id = ?", userID).
		Pluck("role", &roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *profileRepository) GrantRole(ctx context.Context, userID uuid.UUID, role string) error {
	return GetDB(ctx, r.db).Create(&model.UserRole{UserID: userID, Role: role}).Error
}

func (r *profileRepository) RevokeRole(ctx context.Context, userID uuid.UUID, role string) error {
	return GetDB(ctx, r.db).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&model.UserRole{}).Error
}

// CountAdmins counts company members holding the admin role. Used to keep a
// company from losing its last admin.
func (r *profileRepository) CountAdmins(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.UserRole{}).
		Joins("JOIN profiles ON profiles.id = user_roles.user_id").
		Where("profiles.company_id = ? AND user_roles.role = ?", companyID, model.RoleAdmin).
		Count(&count).Error
	return count, err
}

func (r *profileRepository) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *profileRepository) FindRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	if err := GetDB(ctx, r.db).First(&rt, "token = ? AND expires_at > ?", token, time.Now()).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *profileRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	return GetDB(ctx, r.db).Where("token = ?", token).Delete(&model.RefreshToken{}).Error
}

func (r *profileRepository) DeleteRefreshTokensForUser(ctx context.Context, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&model.RefreshToken{}).Error
}
