package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Company is the tenant root. Every mutable record in the system carries a
// CompanyID pointing here, and all queries are filtered by it.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	NameKey   string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"` // lowercased Name, enforces case-insensitive uniqueness
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NormalizeCompanyName produces the NameKey form of a company name.
func NormalizeCompanyName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
