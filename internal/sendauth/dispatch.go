package sendauth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/autou/mailtriage/internal/models"
	"github.com/autou/mailtriage/pkg/logger"
	"github.com/autou/mailtriage/pkg/mail"
	"github.com/autou/mailtriage/pkg/metrics"
)

// Dispatcher delivers confirmed drafts off the request path and appends one
// audit row per attempt. It performs no retries: a failed dispatch is
// terminal and visible only through the send log.
type Dispatcher struct {
	db     *gorm.DB
	mailer mail.Mailer
	log    *zap.Logger

	wg sync.WaitGroup
}

// NewDispatcher constructs a dispatcher writing audit rows through db.
func NewDispatcher(db *gorm.DB, mailer mail.Mailer) (*Dispatcher, error) {
	if db == nil {
		return nil, errors.New("dispatcher: db is required")
	}
	if mailer == nil {
		return nil, errors.New("dispatcher: mailer is required")
	}
	return &Dispatcher{
		db:     db,
		mailer: mailer,
		log:    logger.WithModule("dispatch"),
	}, nil
}

// Dispatch hands the confirmed token off for asynchronous delivery and
// returns immediately. Completion is not guaranteed before shutdown; the
// audit trail is the only durable record.
func (d *Dispatcher) Dispatch(token models.SendToken, subject string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(context.Background(), token, subject)
	}()
}

// Drain blocks until in-flight dispatches finish. Used on shutdown and in tests.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, token models.SendToken, subject string) {
	start := time.Now()
	providerID, err := d.mailer.Send(ctx, mail.Message{
		To:      []string{token.ToEmail},
		Subject: subject,
		Body:    token.DraftSnapshot,
	})
	latency := time.Since(start)

	entry := models.SendLogEntry{
		EmailID:       token.EmailID,
		ToEmail:       token.ToEmail,
		DraftSnapshot: token.DraftSnapshot,
		LatencyMS:     latency.Milliseconds(),
	}

	if err != nil {
		entry.Status = models.SendLogFailed
		entry.Error = err.Error()
		metrics.DispatchLatency.WithLabelValues(models.SendLogFailed).Observe(latency.Seconds())
		d.log.Warn("reply dispatch failed",
			zap.String("email_id", token.EmailID),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
	} else {
		entry.Status = models.SendLogSent
		entry.ProviderMsgID = providerID
		metrics.DispatchLatency.WithLabelValues(models.SendLogSent).Observe(latency.Seconds())
		d.log.Info("reply dispatched",
			zap.String("email_id", token.EmailID),
			zap.String("provider_msg_id", providerID),
			zap.Duration("latency", latency),
		)
	}

	if dbErr := d.db.Create(&entry).Error; dbErr != nil {
		d.log.Error("send log write failed",
			zap.String("email_id", token.EmailID),
			zap.Error(dbErr),
		)
	}
}
