package models

// AllowedRecipient marks an address as eligible for automated outbound mail.
// Rows are maintained by an external admin process; the send subsystem only
// ever reads them.
type AllowedRecipient struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}
