package database

import (
	"log"

	"crm/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// TranslateError is enabled so unique-index violations surface as
// gorm.ErrDuplicatedKey, which signup (company name race) and voucher
// issuance (code collision) rely on.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.Company{},
		&model.Profile{},
		&model.UserRole{},
		&model.RefreshToken{},
		&model.Contact{},
		&model.Purchase{},
		&model.VoucherRule{},
		&model.Voucher{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
