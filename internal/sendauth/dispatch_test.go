package sendauth

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autou/mailtriage/internal/database/testutil"
	"github.com/autou/mailtriage/internal/models"
)

func dispatchToken() models.SendToken {
	return models.SendToken{
		EmailID:       "email-1",
		ToEmail:       "user@example.com",
		DraftSnapshot: "Olá, segue a resposta.",
		Status:        models.SendTokenUsed,
	}
}

func TestDispatchWritesSentAuditRow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &stubMailer{}

	d, err := NewDispatcher(db, mailer)
	require.NoError(t, err)

	d.Dispatch(dispatchToken(), "RE: Pedido 4711")
	d.Drain()

	var entries []models.SendLogEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.SendLogSent, entries[0].Status)
	require.Equal(t, "email-1", entries[0].EmailID)
	require.Equal(t, "user@example.com", entries[0].ToEmail)
	require.Equal(t, "<stub-id@example.com>", entries[0].ProviderMsgID)
	require.Empty(t, entries[0].Error)
	require.GreaterOrEqual(t, entries[0].LatencyMS, int64(0))

	require.Equal(t, "RE: Pedido 4711", mailer.last().Subject)
	require.Equal(t, "Olá, segue a resposta.", mailer.last().Body)
}

func TestDispatchWritesFailedAuditRowWithoutRetry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &stubMailer{err: stderrors.New("relay refused connection")}

	d, err := NewDispatcher(db, mailer)
	require.NoError(t, err)

	d.Dispatch(dispatchToken(), "RE: Pedido 4711")
	d.Drain()

	var entries []models.SendLogEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1, "a failure produces exactly one audit row, never a retry")
	require.Equal(t, models.SendLogFailed, entries[0].Status)
	require.Equal(t, "relay refused connection", entries[0].Error)
	require.Empty(t, entries[0].ProviderMsgID)
}

func TestNewDispatcherRequiresDependencies(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	_, err := NewDispatcher(nil, &stubMailer{})
	require.Error(t, err)

	_, err = NewDispatcher(db, nil)
	require.Error(t, err)
}
