package sendauth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/autou/mailtriage/internal/models"
	"github.com/autou/mailtriage/pkg/errors"
	"github.com/autou/mailtriage/pkg/logger"
	"github.com/autou/mailtriage/pkg/mail"
	"github.com/autou/mailtriage/pkg/metrics"
)

// DefaultTTL bounds how long an issued code stays valid.
const DefaultTTL = 10 * time.Minute

// Config tunes the send authorization service.
type Config struct {
	TTL    time.Duration
	Limits Limits
	// DryRun logs the confirmation code instead of emailing it. Local
	// development only; the code is otherwise never written anywhere.
	DryRun bool
}

// Service owns the SendToken lifecycle: it gates issuance behind the
// allowlist and rate limiter, mints and verifies one-time codes, and hands
// verified drafts to the dispatcher.
type Service struct {
	db         *gorm.DB
	gate       *AllowlistGate
	limiter    *Limiter
	mailer     mail.Mailer
	dispatcher *Dispatcher
	cfg        Config
	log        *zap.Logger
	now        func() time.Time
}

// NewService wires the send authorization service.
func NewService(db *gorm.DB, mailer mail.Mailer, dispatcher *Dispatcher, cfg Config) (*Service, error) {
	if db == nil {
		return nil, stderrors.New("sendauth: db is required")
	}
	if mailer == nil {
		return nil, stderrors.New("sendauth: mailer is required")
	}
	if dispatcher == nil {
		return nil, stderrors.New("sendauth: dispatcher is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	gate, err := NewAllowlistGate(db)
	if err != nil {
		return nil, err
	}

	return &Service{
		db:         db,
		gate:       gate,
		limiter:    NewLimiter(cfg.Limits),
		mailer:     mailer,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        logger.WithModule("sendauth"),
		now:        time.Now,
	}, nil
}

// SendRequestInput carries everything needed to open a send request.
type SendRequestInput struct {
	EmailID     string
	ToEmail     string
	Draft       string
	RequesterIP string
	RequesterUA string
}

// SendRequestReceipt is returned on successful issuance. The recipient is
// masked so an unauthenticated caller never gets the full address echoed
// back.
type SendRequestReceipt struct {
	RequestID       string `json:"request_id"`
	MaskedRecipient string `json:"masked_to"`
}

// RequestSend validates the caller against the allowlist and rate limits,
// issues a pending token and emails the one-time code to the recipient.
// A token whose code could not be delivered never stays pending: it is
// blocked and the call fails.
func (s *Service) RequestSend(ctx context.Context, input SendRequestInput) (*SendRequestReceipt, error) {
	toEmail := strings.ToLower(strings.TrimSpace(input.ToEmail))

	allowed, err := s.gate.IsAllowed(ctx, toEmail)
	if err != nil {
		return nil, errors.Wrap(err, "allowlist lookup failed")
	}
	if !allowed {
		metrics.OTPIssued.WithLabelValues("denied").Inc()
		return nil, errors.ErrRecipientNotAllowed
	}

	// Both checks consume their windows even if a later gate rejects the
	// request; probing callers pay for every attempt.
	if ok, reason := s.limiter.AllowIP(input.RequesterIP); !ok {
		metrics.OTPIssued.WithLabelValues("denied").Inc()
		return nil, errors.NewRateLimited(reason)
	}
	if ok, reason := s.limiter.AllowRecipient(toEmail); !ok {
		metrics.OTPIssued.WithLabelValues("denied").Inc()
		return nil, errors.NewRateLimited(reason)
	}

	var source models.Email
	if err := s.db.WithContext(ctx).Where("id = ?", input.EmailID).First(&source).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrSourceEmailNotFound
		}
		return nil, errors.Wrap(err, "source email lookup failed")
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, errors.Wrap(err, "code generation failed")
	}
	stored, err := HashCode(code)
	if err != nil {
		return nil, errors.Wrap(err, "code hashing failed")
	}

	token := models.SendToken{
		EmailID:       source.ID,
		ToEmail:       toEmail,
		OTPHash:       stored,
		ExpiresAt:     s.now().Add(s.cfg.TTL),
		DraftSnapshot: strings.TrimSpace(input.Draft),
		RequesterIP:   input.RequesterIP,
		RequesterUA:   input.RequesterUA,
		Status:        models.SendTokenPending,
	}
	if err := s.db.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, errors.Wrap(err, "token persistence failed")
	}

	if err := s.deliverCode(ctx, toEmail, code, token.ID); err != nil {
		s.transition(ctx, token.ID, models.SendTokenBlocked)
		metrics.OTPIssued.WithLabelValues("blocked").Inc()
		s.log.Warn("otp delivery failed",
			zap.String("request_id", token.ID),
			zap.Error(err),
		)
		return nil, errors.ErrOTPDeliveryFailed.WithInternal(err)
	}

	metrics.OTPIssued.WithLabelValues("issued").Inc()
	s.log.Info("send request issued",
		zap.String("request_id", token.ID),
		zap.String("email_id", source.ID),
		zap.String("to", MaskEmail(toEmail)),
	)

	return &SendRequestReceipt{
		RequestID:       token.ID,
		MaskedRecipient: MaskEmail(toEmail),
	}, nil
}

// ConfirmReceipt acknowledges that the reply has been queued for dispatch.
type ConfirmReceipt struct {
	Queued bool `json:"queued"`
}

// ConfirmSend verifies a candidate code against a pending token. The check
// order is a security property: expiry precedes the attempt budget, which
// precedes the hash comparison, so a caller is never told "invalid code"
// when the real reason is a terminal state.
//
// Every state transition is a single guarded UPDATE (`status = 'pending'`
// in the WHERE clause), so two concurrent confirms cannot both win and an
// attempts increment is never lost.
func (s *Service) ConfirmSend(ctx context.Context, requestID, candidateCode string) (*ConfirmReceipt, error) {
	var token models.SendToken
	if err := s.db.WithContext(ctx).Where("id = ?", requestID).First(&token).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			metrics.OTPConfirmations.WithLabelValues("not_found").Inc()
			return nil, errors.ErrTokenNotFound
		}
		return nil, errors.Wrap(err, "token lookup failed")
	}

	if token.Status != models.SendTokenPending {
		metrics.OTPConfirmations.WithLabelValues("invalid_state").Inc()
		return nil, errors.NewInvalidTokenState(token.Status)
	}

	if s.now().After(token.ExpiresAt) {
		s.transition(ctx, token.ID, models.SendTokenExpired)
		metrics.OTPConfirmations.WithLabelValues("expired").Inc()
		return nil, errors.ErrTokenExpired
	}

	if token.Attempts >= models.MaxSendAttempts {
		s.transition(ctx, token.ID, models.SendTokenBlocked)
		metrics.OTPConfirmations.WithLabelValues("blocked").Inc()
		return nil, errors.ErrTooManyAttempts
	}

	salt, hash, err := SplitStoredHash(token.OTPHash)
	if err != nil {
		return nil, errors.ErrMalformedToken
	}

	if !VerifyCode(candidateCode, salt, hash) {
		// Attempts are not free: the counter moves even on failure.
		if err := s.db.WithContext(ctx).Model(&models.SendToken{}).
			Where("id = ? AND status = ?", token.ID, models.SendTokenPending).
			UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return nil, errors.Wrap(err, "attempt accounting failed")
		}
		metrics.OTPConfirmations.WithLabelValues("invalid_code").Inc()
		return nil, errors.ErrInvalidCode
	}

	res := s.db.WithContext(ctx).Model(&models.SendToken{}).
		Where("id = ? AND status = ?", token.ID, models.SendTokenPending).
		Update("status", models.SendTokenUsed)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "token transition failed")
	}
	if res.RowsAffected == 0 {
		// A concurrent confirm won the race; report the state it left behind.
		current := token.Status
		var reloaded models.SendToken
		if err := s.db.WithContext(ctx).Where("id = ?", token.ID).First(&reloaded).Error; err == nil {
			current = reloaded.Status
		}
		metrics.OTPConfirmations.WithLabelValues("invalid_state").Inc()
		return nil, errors.NewInvalidTokenState(current)
	}

	subject := "Resposta"
	var source models.Email
	if err := s.db.WithContext(ctx).Select("subject").Where("id = ?", token.EmailID).First(&source).Error; err == nil && source.Subject != "" {
		subject = source.Subject
	}

	metrics.OTPConfirmations.WithLabelValues("confirmed").Inc()
	s.dispatcher.Dispatch(token, "RE: "+subject)

	return &ConfirmReceipt{Queued: true}, nil
}

// Drain waits for outstanding dispatches. Exposed for shutdown.
func (s *Service) Drain() {
	s.dispatcher.Drain()
}

func (s *Service) deliverCode(ctx context.Context, toEmail, code, requestID string) error {
	ttlMinutes := int(s.cfg.TTL.Minutes())

	if s.cfg.DryRun {
		s.log.Info("dry run: otp not sent",
			zap.String("request_id", requestID),
			zap.String("to", MaskEmail(toEmail)),
			zap.String("code", code),
		)
		return nil
	}

	body := fmt.Sprintf(
		"Seu código para confirmar o envio é: %s\nEste código expira em %d minutos.\n\nRef: %s",
		code, ttlMinutes, requestID,
	)
	_, err := s.mailer.Send(ctx, mail.Message{
		To:      []string{toEmail},
		Subject: "Código de confirmação (OTP)",
		Body:    body,
	})
	return err
}

// transition applies a terminal status with a pending guard. A zero
// RowsAffected result means a concurrent caller already moved the token;
// terminal states are sinks, so that outcome is equivalent.
func (s *Service) transition(ctx context.Context, tokenID, status string) {
	if err := s.db.WithContext(ctx).Model(&models.SendToken{}).
		Where("id = ? AND status = ?", tokenID, models.SendTokenPending).
		Update("status", status).Error; err != nil {
		s.log.Error("token transition failed",
			zap.String("request_id", tokenID),
			zap.String("target_status", status),
			zap.Error(err),
		)
	}
}

// MaskEmail hides most of the local part: "ab***@domain". Locals of one or
// two characters keep a single character; unparseable input collapses to
// "***".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return "***"
	}
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:2] + "***@" + domain
}
