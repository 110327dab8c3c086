package database

import (
	"strings"

	"gorm.io/gorm"

	"github.com/autou/mailtriage/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Email{},
		&models.EmailContent{},
		&models.AllowedRecipient{},
		&models.SendToken{},
		&models.SendLogEntry{},
	)
}

// SeedAllowlist inserts the configured recipients as active allowlist rows.
// Existing rows are left untouched so an operator can deactivate an address
// without the seed re-enabling it on the next restart.
func SeedAllowlist(db *gorm.DB, emails []string) error {
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}

		recipient := models.AllowedRecipient{Email: email, IsActive: true}
		if err := db.Where(models.AllowedRecipient{Email: email}).
			Attrs(recipient).
			FirstOrCreate(&models.AllowedRecipient{}).Error; err != nil {
			return err
		}
	}
	return nil
}
