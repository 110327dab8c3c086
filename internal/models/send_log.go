package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dispatch outcomes recorded in the audit trail.
const (
	SendLogSent   = "sent"
	SendLogFailed = "failed"
)

// SendLogEntry records exactly one dispatch attempt after a successful
// confirmation. The table is append-only; rows are never mutated.
type SendLogEntry struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	EmailID       string    `gorm:"type:uuid;index" json:"email_id"`
	ToEmail       string    `gorm:"index" json:"to_email"`
	DraftSnapshot string    `gorm:"type:text" json:"draft_snapshot"`
	Status        string    `gorm:"not null" json:"status"`
	ProviderMsgID string    `json:"provider_msg_id"`
	Error         string    `json:"error"`
	LatencyMS     int64     `json:"latency_ms"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (e *SendLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
