package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateContact = "CREATE_CONTACT"
	ActionUpdateContact = "UPDATE_CONTACT"
	ActionDeleteContact = "DELETE_CONTACT"

	ActionCreatePurchase = "CREATE_PURCHASE"
	ActionUpdatePurchase = "UPDATE_PURCHASE"
	ActionDeletePurchase = "DELETE_PURCHASE"

	ActionCreateVoucherRule = "CREATE_VOUCHER_RULE"
	ActionUpdateVoucherRule = "UPDATE_VOUCHER_RULE"
	ActionDeleteVoucherRule = "DELETE_VOUCHER_RULE"

	ActionIssueVoucher  = "ISSUE_VOUCHER"
	ActionRedeemVoucher = "REDEEM_VOUCHER"
	ActionExpireVoucher = "EXPIRE_VOUCHER"

	ActionGrantRole  = "GRANT_ROLE"
	ActionRevokeRole = "REVOKE_ROLE"
)

// AuditLog tracks Who, What, and When for mutations, scoped per company.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *Profile   `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
