package models

import "time"

// SendToken lifecycle statuses. Transitions only move forward from pending;
// used, expired and blocked are sinks.
const (
	SendTokenPending = "pending"
	SendTokenUsed    = "used"
	SendTokenExpired = "expired"
	SendTokenBlocked = "blocked"
)

// MaxSendAttempts is the verification attempt budget before a token blocks.
const MaxSendAttempts = 5

// SendToken is the authoritative record of one pending outbound send:
// the salted code hash, its expiry, the attempt count and the lifecycle
// status. The raw code is never stored.
type SendToken struct {
	BaseModel

	EmailID       string    `gorm:"type:uuid;not null;index" json:"email_id"`
	ToEmail       string    `gorm:"not null;index" json:"to_email"`
	OTPHash       string    `gorm:"not null" json:"-"` // salt$hash, never logged
	ExpiresAt     time.Time `gorm:"index" json:"expires_at"`
	DraftSnapshot string    `gorm:"type:text" json:"draft_snapshot"`
	RequesterIP   string    `json:"requester_ip"`
	RequesterUA   string    `json:"requester_ua"`
	Attempts      int       `gorm:"not null;default:0" json:"attempts"`
	Status        string    `gorm:"not null;default:pending;index" json:"status"`
}

// Terminal reports whether the token reached a sink state.
func (t *SendToken) Terminal() bool {
	return t.Status != SendTokenPending
}
