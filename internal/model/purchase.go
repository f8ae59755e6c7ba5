package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase records a sale made to a contact. TotalAmount is derived as
// UnitAmount × Quantity at creation time and stored.
type Purchase struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	ContactID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"contact_id"`
	Contact      *Contact        `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	CreatedBy    uuid.UUID       `gorm:"type:uuid;not null;index" json:"created_by"`
	Creator      *Profile        `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Item         string          `gorm:"type:varchar(255);not null" json:"item"`
	UnitAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_amount"`
	Quantity     int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"` // unit_amount * quantity
	PurchaseDate time.Time       `gorm:"not null;index" json:"purchase_date"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
