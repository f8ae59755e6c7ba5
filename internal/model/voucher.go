package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType enum constants
const (
	DiscountPercentage = "PERCENTAGE"
	DiscountFixed      = "FIXED"
)

// VoucherStatus enum constants. REDEEMED and EXPIRED are terminal.
const (
	VoucherIssued   = "ISSUED"
	VoucherRedeemed = "REDEEMED"
	VoucherExpired  = "EXPIRED"
)

// VoucherRule defines a reusable discount that admins can issue vouchers
// from. Percentage discounts are capped at 100.
type VoucherRule struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"company_id"`
	Name              string           `gorm:"type:varchar(255);not null" json:"name"`
	DiscountType      string           `gorm:"type:varchar(20);not null" json:"discount_type"` // PERCENTAGE, FIXED
	DiscountValue     decimal.Decimal  `gorm:"type:decimal(18,4);not null;check:discount_value >= 0 AND (discount_type <> 'PERCENTAGE' OR discount_value <= 100)" json:"discount_value"`
	MinPurchaseAmount *decimal.Decimal `gorm:"type:decimal(18,4)" json:"min_purchase_amount,omitempty"`
	MaxDiscountAmount *decimal.Decimal `gorm:"type:decimal(18,4)" json:"max_discount_amount,omitempty"`
	IsActive          bool             `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// Voucher links a discount rule to a contact under a globally unique code.
type Voucher struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"company_id"`
	ContactID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"contact_id"`
	Contact       *Contact     `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	VoucherRuleID uuid.UUID    `gorm:"type:uuid;not null;index" json:"voucher_rule_id"`
	VoucherRule   *VoucherRule `gorm:"foreignKey:VoucherRuleID" json:"voucher_rule,omitempty"`
	Code          string       `gorm:"type:varchar(30);uniqueIndex;not null" json:"code"`
	IssuedBy      uuid.UUID    `gorm:"type:uuid;not null" json:"issued_by"`
	Issuer        *Profile     `gorm:"foreignKey:IssuedBy" json:"issuer,omitempty"`
	IssuedAt      time.Time    `gorm:"not null" json:"issued_at"`
	Status        string       `gorm:"type:varchar(20);not null;default:'ISSUED';index" json:"status"`
	RedeemedAt    *time.Time   `json:"redeemed_at,omitempty"`
	RedeemedBy    *uuid.UUID   `gorm:"type:uuid" json:"redeemed_by,omitempty"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}
