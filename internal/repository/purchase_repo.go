package repository

import (
	"context"

	"crm/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseRepository defines data access for Purchase entities. Visibility
// flows through the parent contact, so list queries join contacts.
type PurchaseRepository interface {
	Create(ctx context.Context, purchase *model.Purchase) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	List(ctx context.Context, scope VisibilityScope, page, limit int) ([]model.Purchase, int64, error)
	ListByContact(ctx context.Context, contactID uuid.UUID, page, limit int) ([]model.Purchase, int64, error)
	SumByContact(ctx context.Context, contactID uuid.UUID) (decimal.Decimal, error)
	Update(ctx context.Context, purchase *model.Purchase) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *model.Purchase) error {
	return GetDB(ctx, r.db).Create(purchase).Error
}

func (r *purchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	var purchase model.Purchase
	if err := GetDB(ctx, r.db).Preload("Contact").First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepository) List(ctx context.Context, scope VisibilityScope, page, limit int) ([]model.Purchase, int64, error) {
	var purchases []model.Purchase
	var total int64

	db := GetDB(ctx, r.db)
	base := applyContactScope(
		db.Model(&model.Purchase{}).Joins("JOIN contacts ON contacts.id = purchases.contact_id"),
		scope,
	)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := base.Preload("Contact").Order("purchases.purchase_date desc").Offset(offset).Limit(limit).Find(&purchases).Error; err != nil {
		return nil, 0, err
	}

	return purchases, total, nil
}

func (r *purchaseRepository) ListByContact(ctx context.Context, contactID uuid.UUID, page, limit int) ([]model.Purchase, int64, error) {
	var purchases []model.Purchase
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Purchase{}).Where("contact_id = ?", contactID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("contact_id = ?", contactID).Order("purchase_date desc").Offset(offset).Limit(limit).Find(&purchases).Error; err != nil {
		return nil, 0, err
	}

	return purchases, total, nil
}

func (r *purchaseRepository) SumByContact(ctx context.Context, contactID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Purchase{}).
		Select("COALESCE(SUM(total_amount), 0) as total").
		Where("contact_id = ?", contactID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (r *purchaseRepository) Update(ctx context.Context, purchase *model.Purchase) error {
	return GetDB(ctx, r.db).Save(purchase).Error
}

func (r *purchaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Purchase{}).Error
}
