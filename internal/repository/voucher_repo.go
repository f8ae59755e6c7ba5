package repository

import (
	"context"

	"crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VoucherRepository interface {
	Create(ctx context.Context, voucher *model.Voucher) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error)
	List(ctx context.Context, scope VisibilityScope, status string, page, limit int) ([]model.Voucher, int64, error)
	Update(ctx context.Context, voucher *model.Voucher) error
}

type voucherRepository struct {
	db *gorm.DB
}

func NewVoucherRepository(db *gorm.DB) VoucherRepository {
	return &voucherRepository{db: db}
}

func (r *voucherRepository) Create(ctx context.Context, voucher *model.Voucher) error {
	return GetDB(ctx, r.db).Create(voucher).Error
}

func (r *voucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	var voucher model.Voucher
	if err := GetDB(ctx, r.db).Preload("Contact").Preload("VoucherRule").First(&voucher, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *voucherRepository) List(ctx context.Context, scope VisibilityScope, status string, page, limit int) ([]model.Voucher, int64, error) {
	var vouchers []model.Voucher
	var total int64

	db := GetDB(ctx, r.db)
	base := applyContactScope(
		db.Model(&model.Voucher{}).Joins("JOIN contacts ON contacts.id = vouchers.contact_id"),
		scope,
	)
	if status != "" {
		base = base.Where("vouchers.status = ?", status)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := base.Preload("Contact").Preload("VoucherRule").Order("vouchers.issued_at desc").Offset(offset).Limit(limit).Find(&vouchers).Error; err != nil {
		return nil, 0, err
	}

	return vouchers, total, nil
}

func (r *voucherRepository) Update(ctx context.Context, voucher *model.Voucher) error {
	return GetDB(ctx, r.db).Save(voucher).Error
}
