package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/autou/mailtriage/internal/models"
	"github.com/autou/mailtriage/internal/triage"
	"github.com/autou/mailtriage/pkg/errors"
	"github.com/autou/mailtriage/pkg/logger"
)

// EmailPack is one fully triaged email ready for persistence: metadata,
// triage verdicts and the raw bodies.
type EmailPack struct {
	MessageUID        string
	Subject           string
	FromEmail         string
	FromName          string
	ToEmails          []string
	CcEmails          []string
	ReceivedAt        *time.Time
	Category          string
	Confidence        float64
	Importance        int
	ImportanceLabel   string
	ImportanceReasons []string
	Summary           string
	ReplySuggested    string
	HasPDF            bool
	BodyText          string
	BodyHTML          string
	Attachments       []triage.Attachment
}

// EmailService persists and queries triaged emails.
type EmailService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewEmailService constructs the service.
func NewEmailService(db *gorm.DB) (*EmailService, error) {
	if db == nil {
		return nil, stderrors.New("services: db is required")
	}
	return &EmailService{db: db, log: logger.WithModule("emails")}, nil
}

// SavePack upserts one triaged email keyed by its message UID. Re-ingesting
// the same message refreshes the triage verdicts and bodies instead of
// duplicating the row.
func (s *EmailService) SavePack(ctx context.Context, pack EmailPack) (string, error) {
	if strings.TrimSpace(pack.MessageUID) == "" {
		return "", errors.NewBadRequest("message_uid is required")
	}

	attachmentsJSON, err := json.Marshal(liteAttachments(pack.Attachments))
	if err != nil {
		return "", errors.Wrap(err, "attachment metadata encoding failed")
	}

	var emailID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var email models.Email
		err := tx.Where("message_uid = ?", pack.MessageUID).First(&email).Error
		switch {
		case stderrors.Is(err, gorm.ErrRecordNotFound):
			email = models.Email{MessageUID: pack.MessageUID}
		case err != nil:
			return err
		}

		email.Subject = pack.Subject
		email.FromEmail = strings.ToLower(strings.TrimSpace(pack.FromEmail))
		email.FromName = pack.FromName
		email.ToEmails = strings.Join(pack.ToEmails, ",")
		email.CcEmails = strings.Join(pack.CcEmails, ",")
		email.ReceivedAt = pack.ReceivedAt
		email.Category = pack.Category
		email.Confidence = pack.Confidence
		email.Importance = pack.Importance
		email.ImportanceLabel = pack.ImportanceLabel
		email.ImportanceReasons = strings.Join(pack.ImportanceReasons, ",")
		email.Summary = pack.Summary
		email.ReplySuggested = pack.ReplySuggested
		email.HasPDF = pack.HasPDF

		if err := tx.Save(&email).Error; err != nil {
			return err
		}
		emailID = email.ID

		var content models.EmailContent
		err = tx.Where("email_id = ?", email.ID).First(&content).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			content = models.EmailContent{EmailID: email.ID}
		} else if err != nil {
			return err
		}
		content.BodyText = pack.BodyText
		content.BodyHTML = pack.BodyHTML
		content.Attachments = string(attachmentsJSON)
		return tx.Save(&content).Error
	})
	if err != nil {
		return "", errors.Wrap(err, "email persistence failed")
	}

	s.log.Info("email saved",
		zap.String("email_id", emailID),
		zap.String("message_uid", pack.MessageUID),
		zap.String("category", pack.Category),
	)
	return emailID, nil
}

// ListParams filter and paginate the email listing.
type ListParams struct {
	Limit      int
	Page       int
	Importance string
	Category   string
	Search     string
}

// List returns triaged emails newest first, optionally filtered by
// importance label, category or a subject substring.
func (s *EmailService) List(ctx context.Context, params ListParams) ([]models.Email, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 200 {
		params.Limit = 200
	}
	if params.Page <= 0 {
		params.Page = 1
	}

	q := s.db.WithContext(ctx).Model(&models.Email{}).Order("received_at DESC")
	if params.Importance != "" {
		q = q.Where("importance_label = ?", params.Importance)
	}
	if params.Category != "" {
		q = q.Where("category = ?", params.Category)
	}
	if params.Search != "" {
		q = q.Where("subject LIKE ?", "%"+params.Search+"%")
	}

	var emails []models.Email
	if err := q.Offset((params.Page - 1) * params.Limit).Limit(params.Limit).Find(&emails).Error; err != nil {
		return nil, errors.Wrap(err, "email listing failed")
	}
	return emails, nil
}

// Get loads one email with its content. The identifier may be the internal
// id or the original message UID.
func (s *EmailService) Get(ctx context.Context, idOrUID string) (*models.Email, error) {
	var email models.Email
	err := s.db.WithContext(ctx).Preload("Content").Where("id = ?", idOrUID).First(&email).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.WithContext(ctx).Preload("Content").Where("message_uid = ?", idOrUID).First(&email).Error
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrNotFound.WithMessage("email not found: " + idOrUID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "email lookup failed")
	}
	return &email, nil
}

// BodyText returns the stored plain body of an email, used to feed LLM
// suggestions when the caller passes only an id.
func (s *EmailService) BodyText(ctx context.Context, emailID string) (string, error) {
	var content models.EmailContent
	err := s.db.WithContext(ctx).Select("body_text").Where("email_id = ?", emailID).First(&content).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "email content lookup failed")
	}
	return content.BodyText, nil
}

type liteAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

func liteAttachments(atts []triage.Attachment) []liteAttachment {
	lite := make([]liteAttachment, 0, len(atts))
	for _, a := range atts {
		lite = append(lite, liteAttachment{Filename: a.Filename, ContentType: a.ContentType, Size: a.Size})
	}
	return lite
}
