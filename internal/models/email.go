package models

import "time"

// Importance labels assigned by the triage pipeline.
const (
	ImportanceLow    = "low"
	ImportanceNormal = "normal"
	ImportanceHigh   = "high"
	ImportanceUrgent = "urgent"
)

// Email holds the triaged metadata of one ingested message. The raw bodies
// live in EmailContent so list queries stay cheap.
type Email struct {
	BaseModel

	MessageUID        string     `gorm:"uniqueIndex;not null" json:"message_uid"`
	Subject           string     `json:"subject"`
	FromEmail         string     `gorm:"index" json:"from_email"`
	FromName          string     `json:"from_name"`
	ToEmails          string     `json:"to_emails"` // comma-separated
	CcEmails          string     `json:"cc_emails"` // comma-separated
	ReceivedAt        *time.Time `gorm:"index" json:"received_at"`
	Category          string     `gorm:"index" json:"category"`
	Confidence        float64    `json:"confidence"`
	Importance        int        `json:"importance"`
	ImportanceLabel   string     `gorm:"index" json:"importance_label"`
	ImportanceReasons string     `json:"importance_reasons"` // comma-separated
	Summary           string     `json:"summary"`
	ReplySuggested    string     `json:"reply_suggested"`
	HasPDF            bool       `json:"has_pdf"`

	Content *EmailContent `gorm:"foreignKey:EmailID" json:"content,omitempty"`
}

// EmailContent stores the full bodies and attachment metadata for one email.
type EmailContent struct {
	BaseModel

	EmailID     string `gorm:"type:uuid;uniqueIndex;not null" json:"email_id"`
	BodyText    string `json:"body_text"`
	BodyHTML    string `json:"body_html"`
	Attachments string `gorm:"type:text" json:"attachments"` // JSON array of {filename, content_type, size}
}
