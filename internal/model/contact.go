package model

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a company-scoped CRM contact. CreatedBy is immutable after
// insert; AssignedUserID, when set, must reference a profile in the same
// company. Email, Phone and Address are PII fields subject to stricter
// visibility than the record itself.
type Contact struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	CreatedBy      uuid.UUID  `gorm:"type:uuid;not null;index" json:"created_by"`
	Creator        *Profile   `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	AssignedUserID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_user_id"`
	Assignee       *Profile   `gorm:"foreignKey:AssignedUserID" json:"assignee,omitempty"`
	Name           string     `gorm:"type:varchar(255);not null" json:"name"`
	Email          string     `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone          string     `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Address        string     `gorm:"type:text" json:"address,omitempty"`
	Purchases      []Purchase `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE" json:"-"`
	Vouchers       []Voucher  `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
