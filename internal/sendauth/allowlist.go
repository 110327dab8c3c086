package sendauth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/autou/mailtriage/internal/models"
)

// AllowlistGate answers whether an address may ever receive automated mail.
// It is read-only: the allowlist itself is maintained by an external admin
// process.
type AllowlistGate struct {
	db *gorm.DB
}

// NewAllowlistGate constructs a gate over the allowed_recipients table.
func NewAllowlistGate(db *gorm.DB) (*AllowlistGate, error) {
	if db == nil {
		return nil, errors.New("allowlist gate: db is required")
	}
	return &AllowlistGate{db: db}, nil
}

// IsAllowed reports whether the address has an active allowlist entry.
// A missing row and an inactive row are indistinguishable to the caller so
// the endpoint cannot be used to enumerate known addresses.
func (g *AllowlistGate) IsAllowed(ctx context.Context, address string) (bool, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return false, nil
	}

	var recipient models.AllowedRecipient
	err := g.db.WithContext(ctx).
		Where("email = ?", address).
		First(&recipient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return recipient.IsActive, nil
}
