package ingest

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/autou/mailtriage/internal/services"
	"github.com/autou/mailtriage/internal/triage"
	"github.com/autou/mailtriage/pkg/logger"
	"github.com/autou/mailtriage/pkg/metrics"
)

// Fetcher yields unseen messages from a mailbox.
type Fetcher interface {
	FetchUnseen(ctx context.Context, limit int) ([]RawMessage, error)
}

// Ingestor runs fetched messages through the triage pipeline, either as a
// read-only preview or persisting the results.
type Ingestor struct {
	fetcher Fetcher
	emails  *services.EmailService
	scorer  *triage.Scorer
	log     *zap.Logger
}

// NewIngestor wires the ingest pipeline.
func NewIngestor(fetcher Fetcher, emails *services.EmailService, scorer *triage.Scorer) (*Ingestor, error) {
	if fetcher == nil {
		return nil, stderrors.New("ingest: fetcher is required")
	}
	if emails == nil {
		return nil, stderrors.New("ingest: email service is required")
	}
	if scorer == nil {
		scorer = triage.NewScorer(nil, nil)
	}
	return &Ingestor{
		fetcher: fetcher,
		emails:  emails,
		scorer:  scorer,
		log:     logger.WithModule("ingest"),
	}, nil
}

// Preview triages up to limit unseen messages without saving anything.
func (i *Ingestor) Preview(ctx context.Context, limit int) ([]triage.Outcome, error) {
	raws, err := i.fetcher.FetchUnseen(ctx, limit)
	if err != nil {
		return nil, err
	}

	outcomes := make([]triage.Outcome, 0, len(raws))
	for _, raw := range raws {
		outcomes = append(outcomes, triage.ProcessRaw(raw.Subject, raw.Text, raw.HTML, raw.Attachments))
	}
	return outcomes, nil
}

// SavedItem summarises one persisted email for the ingest response.
type SavedItem struct {
	EmailID    string `json:"email_id"`
	Subject    string `json:"subject"`
	Category   string `json:"category"`
	Importance int    `json:"importance"`
	Label      string `json:"label"`
}

// IngestAndSave triages up to limit unseen messages and persists each one.
// A message that fails to save is logged and skipped; the rest of the batch
// still goes through.
func (i *Ingestor) IngestAndSave(ctx context.Context, limit int) ([]SavedItem, error) {
	raws, err := i.fetcher.FetchUnseen(ctx, limit)
	if err != nil {
		return nil, err
	}

	items := make([]SavedItem, 0, len(raws))
	for _, raw := range raws {
		t := triage.Translate(raw.Subject, raw.Text, raw.HTML, raw.Attachments)
		result := triage.ProcessTranslated(t.Subject, t.Text)
		summary := triage.Summarize(t.Text, raw.Subject)
		importance := i.scorer.Score(triage.ImportanceInput{
			Subject:         raw.Subject,
			FromEmail:       raw.FromEmail,
			AttachmentNames: raw.AttachmentNames(),
			ReceivedAt:      raw.ReceivedAt,
		}, t.Text, result.Category)

		emailID, err := i.emails.SavePack(ctx, services.EmailPack{
			MessageUID:        raw.MessageUID,
			Subject:           raw.Subject,
			FromEmail:         raw.FromEmail,
			FromName:          raw.FromName,
			ToEmails:          raw.ToEmails,
			CcEmails:          raw.CcEmails,
			ReceivedAt:        raw.ReceivedAt,
			Category:          result.Category,
			Confidence:        result.Confidence,
			Importance:        importance.Score,
			ImportanceLabel:   importance.Label,
			ImportanceReasons: importance.Reasons,
			Summary:           summary,
			ReplySuggested:    result.Reply,
			HasPDF:            t.HasPDFText,
			BodyText:          t.Text,
			BodyHTML:          raw.HTML,
			Attachments:       raw.Attachments,
		})
		if err != nil {
			i.log.Warn("ingested email not saved",
				zap.String("message_uid", raw.MessageUID),
				zap.Error(err),
			)
			continue
		}

		metrics.EmailsIngested.Inc()
		items = append(items, SavedItem{
			EmailID:    emailID,
			Subject:    raw.Subject,
			Category:   result.Category,
			Importance: importance.Score,
			Label:      importance.Label,
		})
	}
	return items, nil
}
