package repository

import (
	"context"

	"crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VoucherRuleRepository interface {
	Create(ctx context.Context, rule *model.VoucherRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.VoucherRule, error)
	List(ctx context.Context, companyID uuid.UUID, activeOnly bool, page, limit int) ([]model.VoucherRule, int64, error)
	Update(ctx context.Context, rule *model.VoucherRule) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type voucherRuleRepository struct {
	db *gorm.DB
}

func NewVoucherRuleRepository(db *gorm.DB) VoucherRuleRepository {
	return &voucherRuleRepository{db: db}
}

func (r *voucherRuleRepository) Create(ctx context.Context, rule *model.VoucherRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *voucherRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.VoucherRule, error) {
	var rule model.VoucherRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *voucherRuleRepository) List(ctx context.Context, companyID uuid.UUID, activeOnly bool, page, limit int) ([]model.VoucherRule, int64, error) {
	var rules []model.VoucherRule
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.VoucherRule{}).Where("company_id = ?", companyID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

func (r *voucherRuleRepository) Update(ctx context.Context, rule *model.VoucherRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *voucherRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.VoucherRule{}).Error
}
