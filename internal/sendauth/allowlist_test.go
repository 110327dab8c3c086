package sendauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autou/mailtriage/internal/database/testutil"
	"github.com/autou/mailtriage/internal/models"
)

func TestAllowlistGate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(&models.AllowedRecipient{Email: "active@example.com", IsActive: true}).Error)
	require.NoError(t, db.Create(&models.AllowedRecipient{Email: "inactive@example.com", IsActive: false}).Error)

	gate, err := NewAllowlistGate(db)
	require.NoError(t, err)

	ctx := context.Background()

	allowed, err := gate.IsAllowed(ctx, "active@example.com")
	require.NoError(t, err)
	require.True(t, allowed)

	// Case and whitespace are normalised before the lookup.
	allowed, err = gate.IsAllowed(ctx, "  Active@Example.com ")
	require.NoError(t, err)
	require.True(t, allowed)

	// Inactive and unknown addresses produce the identical answer.
	inactive, err := gate.IsAllowed(ctx, "inactive@example.com")
	require.NoError(t, err)
	unknown, err2 := gate.IsAllowed(ctx, "ghost@example.com")
	require.NoError(t, err2)
	require.Equal(t, inactive, unknown)
	require.False(t, inactive)

	empty, err := gate.IsAllowed(ctx, "   ")
	require.NoError(t, err)
	require.False(t, empty)
}

func TestNewAllowlistGateRequiresDB(t *testing.T) {
	_, err := NewAllowlistGate(nil)
	require.Error(t, err)
}
