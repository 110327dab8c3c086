package sendauth

import (
	"context"
	stderrors "errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/autou/mailtriage/internal/database/testutil"
	"github.com/autou/mailtriage/internal/models"
	"github.com/autou/mailtriage/pkg/errors"
	"github.com/autou/mailtriage/pkg/mail"
)

// stubMailer captures outbound messages instead of talking SMTP.
type stubMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *stubMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.messages = append(m.messages, msg)
	return "<stub-id@example.com>", nil
}

func (m *stubMailer) last() mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[len(m.messages)-1]
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func extractCode(t *testing.T, body string) string {
	t.Helper()
	match := codePattern.FindStringSubmatch(body)
	require.NotNil(t, match, "expected a 6-digit code in %q", body)
	return match[1]
}

type serviceFixture struct {
	svc        *Service
	db         *gorm.DB
	otpMail    *stubMailer
	replyMail  *stubMailer
	dispatcher *Dispatcher
	emailID    string
}

func newServiceFixture(t *testing.T, cfg Config) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAllowlist("user@example.com"))

	email := models.Email{MessageUID: "uid-" + t.Name(), Subject: "Pedido 4711"}
	require.NoError(t, db.Create(&email).Error)

	otpMail := &stubMailer{}
	replyMail := &stubMailer{}

	dispatcher, err := NewDispatcher(db, replyMail)
	require.NoError(t, err)

	svc, err := NewService(db, otpMail, dispatcher, cfg)
	require.NoError(t, err)

	return &serviceFixture{
		svc:        svc,
		db:         db,
		otpMail:    otpMail,
		replyMail:  replyMail,
		dispatcher: dispatcher,
		emailID:    email.ID,
	}
}

func (f *serviceFixture) request(t *testing.T) *SendRequestReceipt {
	t.Helper()
	receipt, err := f.svc.RequestSend(context.Background(), SendRequestInput{
		EmailID:     f.emailID,
		ToEmail:     "user@example.com",
		Draft:       "Olá, segue a resposta.",
		RequesterIP: "203.0.113.7",
		RequesterUA: "tests",
	})
	require.NoError(t, err)
	return receipt
}

func (f *serviceFixture) token(t *testing.T, id string) models.SendToken {
	t.Helper()
	var token models.SendToken
	require.NoError(t, f.db.Where("id = ?", id).First(&token).Error)
	return token
}

func TestRequestSendIssuesPendingTokenAndMasksRecipient(t *testing.T) {
	f := newServiceFixture(t, Config{})

	receipt := f.request(t)
	require.NotEmpty(t, receipt.RequestID)
	require.Equal(t, "us***@example.com", receipt.MaskedRecipient)

	token := f.token(t, receipt.RequestID)
	require.Equal(t, models.SendTokenPending, token.Status)
	require.Zero(t, token.Attempts)
	require.Contains(t, token.OTPHash, "$")
	require.Equal(t, "Olá, segue a resposta.", token.DraftSnapshot)
	require.True(t, token.ExpiresAt.After(time.Now()))

	// The code travelled out-of-band and never in plaintext storage.
	code := extractCode(t, f.otpMail.last().Body)
	require.NotContains(t, token.OTPHash, code)
}

func TestRequestSendRejectsUnknownAndInactiveIdentically(t *testing.T) {
	f := newServiceFixture(t, Config{})
	require.NoError(t, f.db.Create(&models.AllowedRecipient{Email: "off@example.com", IsActive: false}).Error)

	for _, to := range []string{"ghost@example.com", "off@example.com"} {
		_, err := f.svc.RequestSend(context.Background(), SendRequestInput{
			EmailID: f.emailID,
			ToEmail: to,
		})
		require.ErrorIs(t, err, errors.ErrRecipientNotAllowed, "to=%s", to)
		require.Equal(t, errors.ErrRecipientNotAllowed.Message, errors.FromError(err).Message,
			"denial must not reveal whether the address exists")
	}
}

func TestRequestSendSourceEmailNotFound(t *testing.T) {
	f := newServiceFixture(t, Config{})

	_, err := f.svc.RequestSend(context.Background(), SendRequestInput{
		EmailID: "no-such-id",
		ToEmail: "user@example.com",
	})
	require.ErrorIs(t, err, errors.ErrSourceEmailNotFound)
}

func TestRequestSendRateLimitsRecipient(t *testing.T) {
	f := newServiceFixture(t, Config{Limits: Limits{RecipientHourly: 3, RecipientDaily: 100, IPHourly: 100}})

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.limiter.clock = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		f.request(t)
	}

	_, err := f.svc.RequestSend(context.Background(), SendRequestInput{
		EmailID: f.emailID,
		ToEmail: "user@example.com",
	})
	require.ErrorIs(t, err, errors.ErrRateLimit)
	require.Contains(t, errors.FromError(err).Message, "3/hour")

	// After the oldest attempt leaves the rolling hour, issuance works again.
	now = now.Add(61 * time.Minute)
	f.request(t)
}

func TestRequestSendBlocksTokenWhenOTPDeliveryFails(t *testing.T) {
	f := newServiceFixture(t, Config{})
	f.otpMail.err = context.DeadlineExceeded

	_, err := f.svc.RequestSend(context.Background(), SendRequestInput{
		EmailID: f.emailID,
		ToEmail: "user@example.com",
	})
	require.ErrorIs(t, err, errors.ErrOTPDeliveryFailed)

	var pending int64
	require.NoError(t, f.db.Model(&models.SendToken{}).
		Where("status = ?", models.SendTokenPending).Count(&pending).Error)
	require.Zero(t, pending, "a token without a deliverable code must never stay pending")

	var blocked int64
	require.NoError(t, f.db.Model(&models.SendToken{}).
		Where("status = ?", models.SendTokenBlocked).Count(&blocked).Error)
	require.EqualValues(t, 1, blocked)
}

func TestConfirmSendScenario(t *testing.T) {
	f := newServiceFixture(t, Config{TTL: 10 * time.Minute})
	ctx := context.Background()

	receipt := f.request(t)
	code := extractCode(t, f.otpMail.last().Body)

	wrong := "654321"
	if wrong == code {
		wrong = "654322"
	}

	_, err := f.svc.ConfirmSend(ctx, receipt.RequestID, wrong)
	require.ErrorIs(t, err, errors.ErrInvalidCode)
	require.Equal(t, 1, f.token(t, receipt.RequestID).Attempts, "failed attempts are not free")

	ack, err := f.svc.ConfirmSend(ctx, receipt.RequestID, code)
	require.NoError(t, err)
	require.True(t, ack.Queued)
	require.Equal(t, models.SendTokenUsed, f.token(t, receipt.RequestID).Status)

	f.svc.Drain()

	var entries []models.SendLogEntry
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.SendLogSent, entries[0].Status)
	require.Equal(t, "<stub-id@example.com>", entries[0].ProviderMsgID)
	require.Equal(t, "RE: Pedido 4711", f.replyMail.last().Subject)

	// Terminal states are sinks: a correct code cannot reopen the token.
	_, err = f.svc.ConfirmSend(ctx, receipt.RequestID, code)
	require.ErrorIs(t, err, errors.ErrInvalidTokenState)
	require.Contains(t, errors.FromError(err).Message, models.SendTokenUsed)
}

func TestConfirmSendConcurrentConfirmsSingleWinner(t *testing.T) {
	f := newServiceFixture(t, Config{TTL: 10 * time.Minute})
	ctx := context.Background()

	receipt := f.request(t)
	code := extractCode(t, f.otpMail.last().Body)

	// Two racing confirms with the correct code: the guarded UPDATE lets
	// exactly one move pending → used; the other sees a terminal state.
	results := make(chan error, 2)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			ack, err := f.svc.ConfirmSend(ctx, receipt.RequestID, code)
			if err == nil && !ack.Queued {
				err = stderrors.New("confirmed without queueing")
			}
			results <- err
		}()
	}
	close(start)

	var wins, losses int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			wins++
		case stderrors.Is(err, errors.ErrInvalidTokenState):
			losses++
		default:
			t.Fatalf("unexpected confirm outcome: %v", err)
		}
	}
	require.Equal(t, 1, wins, "exactly one confirm may win")
	require.Equal(t, 1, losses, "the loser must see the terminal state, not success")
	require.Equal(t, models.SendTokenUsed, f.token(t, receipt.RequestID).Status)

	f.svc.Drain()

	var entries []models.SendLogEntry
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 1, "one winner means one dispatch and one audit row")
}

func TestConfirmSendUnknownToken(t *testing.T) {
	f := newServiceFixture(t, Config{})

	_, err := f.svc.ConfirmSend(context.Background(), "missing-token", "123456")
	require.ErrorIs(t, err, errors.ErrTokenNotFound)
}

func TestConfirmSendExpiryPrecedesHashCheck(t *testing.T) {
	f := newServiceFixture(t, Config{TTL: time.Minute})
	ctx := context.Background()

	receipt := f.request(t)
	code := extractCode(t, f.otpMail.last().Body)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := f.svc.ConfirmSend(ctx, receipt.RequestID, code)
	require.ErrorIs(t, err, errors.ErrTokenExpired,
		"a correct but expired code must fail with Expired, not succeed")
	require.Equal(t, models.SendTokenExpired, f.token(t, receipt.RequestID).Status)

	_, err = f.svc.ConfirmSend(ctx, receipt.RequestID, code)
	require.ErrorIs(t, err, errors.ErrInvalidTokenState)
}

func TestConfirmSendAttemptBudget(t *testing.T) {
	f := newServiceFixture(t, Config{})
	ctx := context.Background()

	receipt := f.request(t)
	code := extractCode(t, f.otpMail.last().Body)

	wrong := "000001"
	if wrong == code {
		wrong = "000002"
	}

	lastAttempts := 0
	for i := 0; i < models.MaxSendAttempts; i++ {
		_, err := f.svc.ConfirmSend(ctx, receipt.RequestID, wrong)
		require.ErrorIs(t, err, errors.ErrInvalidCode)

		attempts := f.token(t, receipt.RequestID).Attempts
		require.Greater(t, attempts, lastAttempts, "attempts only ever increase")
		lastAttempts = attempts
	}
	require.Equal(t, models.MaxSendAttempts, lastAttempts)

	// The budget check precedes the hash comparison: even the correct code
	// cannot save an exhausted token.
	_, err := f.svc.ConfirmSend(ctx, receipt.RequestID, code)
	require.ErrorIs(t, err, errors.ErrTooManyAttempts)
	require.Equal(t, models.SendTokenBlocked, f.token(t, receipt.RequestID).Status)

	_, err = f.svc.ConfirmSend(ctx, receipt.RequestID, code)
	require.ErrorIs(t, err, errors.ErrInvalidTokenState)
	require.Contains(t, errors.FromError(err).Message, models.SendTokenBlocked)
}

func TestConfirmSendMalformedStoredHash(t *testing.T) {
	f := newServiceFixture(t, Config{})
	ctx := context.Background()

	receipt := f.request(t)
	require.NoError(t, f.db.Model(&models.SendToken{}).
		Where("id = ?", receipt.RequestID).
		Update("otp_hash", "corrupted").Error)

	_, err := f.svc.ConfirmSend(ctx, receipt.RequestID, "123456")
	require.ErrorIs(t, err, errors.ErrMalformedToken)
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"user@example.com": "us***@example.com",
		"ab@x.io":          "a***@x.io",
		"a@x.io":           "a***@x.io",
		"nodomain":         "***",
		"@example.com":     "***",
		"user@":            "***",
	}
	for input, want := range cases {
		require.Equal(t, want, MaskEmail(input), "input=%q", input)
	}
}
