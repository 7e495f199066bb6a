package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService_FindSettings(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when nothing saved", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSettingsService(db)

		settings, err := svc.FindSettings(context.Background())
		require.NoError(t, err)

		assert.Equal(t, whatchanged.DefaultSettings(), settings)
	})
}

func TestSettingsService_UpdateSettings(t *testing.T) {
	t.Parallel()

	t.Run("merges partial update over defaults", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSettingsService(db)
		ctx := context.Background()
		days := 30

		updated, err := svc.UpdateSettings(ctx, whatchanged.SettingsUpdate{RetentionDays: &days})
		require.NoError(t, err)
		assert.Equal(t, 30, updated.RetentionDays)
		assert.InDelta(t, 2.0, updated.MinSignificance, 1e-9)

		found, err := svc.FindSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, updated, found)
	})

	t.Run("persists blocked domains", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSettingsService(db)
		ctx := context.Background()
		sig := 5.5

		_, err := svc.UpdateSettings(ctx, whatchanged.SettingsUpdate{
			MinSignificance: &sig,
			BlockedDomains:  []string{"bank.com", "mail.example.org"},
		})
		require.NoError(t, err)

		days := 7
		_, err = svc.UpdateSettings(ctx, whatchanged.SettingsUpdate{RetentionDays: &days})
		require.NoError(t, err)

		found, err := svc.FindSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, &whatchanged.Settings{
			RetentionDays:   7,
			MinSignificance: 5.5,
			BlockedDomains:  []string{"bank.com", "mail.example.org"},
		}, found)
	})

	t.Run("rejects invalid values and keeps previous settings", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSettingsService(db)
		ctx := context.Background()
		sig := 150.0

		_, err := svc.UpdateSettings(ctx, whatchanged.SettingsUpdate{MinSignificance: &sig})
		require.Error(t, err)
		assert.Equal(t, whatchanged.EINVALID, whatchanged.ErrorCode(err))

		found, err := svc.FindSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, whatchanged.DefaultSettings(), found)
	})
}
