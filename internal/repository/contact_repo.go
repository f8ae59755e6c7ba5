package repository

import (
	"context"

	"crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactRepository defines data access for Contact entities. List queries
// take a VisibilityScope so ownership filtering happens in SQL.
type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Contact, error)
	List(ctx context.Context, scope VisibilityScope, search string, page, limit int) ([]model.Contact, int64, error)
	Update(ctx context.Context, contact *model.Contact) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, contact *model.Contact) error {
	return GetDB(ctx, r.db).Create(contact).Error
}

func (r *contactRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	var contact model.Contact
	if err := GetDB(ctx, r.db).First(&contact, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) List(ctx context.Context, scope VisibilityScope, search string, page, limit int) ([]model.Contact, int64, error) {
	var contacts []model.Contact
	var total int64

	db := GetDB(ctx, r.db)

	base := applyContactScope(db.Model(&model.Contact{}), scope)
	if search != "" {
		base = base.Where("contacts.name ILIKE ?", "%"+search+"%")
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := base.Order("contacts.created_at desc").Offset(offset).Limit(limit).Find(&contacts).Error; err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}

func (r *contactRepository) Update(ctx context.Context, contact *model.Contact) error {
	return GetDB(ctx, r.db).Save(contact).Error
}

// Delete removes the contact; purchases and vouchers cascade at the FK level.
func (r *contactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Contact{}).Error
}
