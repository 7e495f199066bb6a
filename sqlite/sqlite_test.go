package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/whatchanged/sqlite"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

// fixedClock pins the database clock to now and returns a function that
// moves it forward.
func fixedClock(db *sqlite.DB, now time.Time) func(time.Duration) {
	db.Now = func() time.Time { return now }
	return func(d time.Duration) {
		now = now.Add(d)
	}
}

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("creates schema on first open", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		var snapshotCount int
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&snapshotCount)
		require.NoError(t, err)

		var settingsCount int
		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM settings").Scan(&settingsCount)
		require.NoError(t, err)
	})

	t.Run("creates snapshot indexes", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'snapshots'")
		require.NoError(t, err)
		defer rows.Close()

		var names []string
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			names = append(names, name)
		}
		require.NoError(t, rows.Err())

		require.Contains(t, names, "idx_snapshots_url")
		require.Contains(t, names, "idx_snapshots_url_timestamp")
		require.Contains(t, names, "idx_snapshots_timestamp")
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB("/nonexistent/path/db.sqlite")
		err := db.Open()
		require.Error(t, err)
	})

	t.Run("enables WAL mode for file-based databases", func(t *testing.T) {
		t.Parallel()

		dbPath := t.TempDir() + "/test.db"
		db := sqlite.NewDB(dbPath)
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()
		var journalMode string
		err = db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		require.Equal(t, "wal", journalMode)
	})

	t.Run("reopening keeps existing data", func(t *testing.T) {
		t.Parallel()

		dbPath := t.TempDir() + "/test.db"
		ctx := context.Background()

		db := sqlite.NewDB(dbPath)
		require.NoError(t, db.Open())
		_, err := db.ExecContext(ctx, `INSERT INTO snapshots (id, url, timestamp, content_hash, method) VALUES ('a', 'https://a.com', 1, 'h', 'body')`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db = sqlite.NewDB(dbPath)
		require.NoError(t, db.Open())
		defer db.Close()

		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&n))
		require.Equal(t, 1, n)
	})
}
