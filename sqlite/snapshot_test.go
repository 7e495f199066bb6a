package sqlite_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSnapshot(url, text string) *whatchanged.Snapshot {
	return &whatchanged.Snapshot{
		URL:    url,
		Title:  "Title",
		Text:   text,
		Method: whatchanged.MethodReadability,
	}
}

func TestSnapshotService_PutSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("first visit is stored without changes", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		snap := newSnapshot("https://a.com/p", "Hello world")
		res, err := svc.PutSnapshot(ctx, snap)
		require.NoError(t, err)

		assert.True(t, res.Stored)
		assert.False(t, res.HasChanges)
		assert.NotEmpty(t, snap.ID)
		assert.Equal(t, whatchanged.ContentHash("Hello world"), snap.ContentHash)
		assert.Equal(t, len("Hello world"), snap.ByteLength)
		assert.Equal(t, t0.UnixMilli(), snap.Millis())
	})

	t.Run("identical normalized content is not stored again", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		advance := fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "Hello world"))
		require.NoError(t, err)
		advance(time.Minute)

		res, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "  Hello   world\n"))
		require.NoError(t, err)

		assert.False(t, res.Stored)
		assert.False(t, res.HasChanges)

		n, err := svc.CountSnapshots(ctx, "https://a.com/p")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("duplicate leaves the argument untouched", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "Hello world"))
		require.NoError(t, err)

		dup := newSnapshot("https://a.com/p", "Hello world")
		want := *dup
		res, err := svc.PutSnapshot(ctx, dup)
		require.NoError(t, err)

		assert.False(t, res.Stored)
		assert.Equal(t, want, *dup)
	})

	t.Run("changed content is stored with changes", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		advance := fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "Price: $10"))
		require.NoError(t, err)
		advance(time.Minute)

		res, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "Price: $20"))
		require.NoError(t, err)

		assert.True(t, res.Stored)
		assert.True(t, res.HasChanges)
	})

	t.Run("returning to earlier content is stored", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		advance := fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		for _, text := range []string{"A", "B", "A"} {
			res, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", text))
			require.NoError(t, err)
			require.True(t, res.Stored, text)
			advance(time.Second)
		}

		n, err := svc.CountSnapshots(ctx, "https://a.com/p")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("dedup is per url", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "same"))
		require.NoError(t, err)
		res, err := svc.PutSnapshot(ctx, newSnapshot("https://b.com/p", "same"))
		require.NoError(t, err)

		assert.True(t, res.Stored)
		assert.False(t, res.HasChanges)
	})

	t.Run("advances timestamps that do not move forward", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		first := newSnapshot("https://a.com/p", "one")
		_, err := svc.PutSnapshot(ctx, first)
		require.NoError(t, err)

		second := newSnapshot("https://a.com/p", "two")
		_, err = svc.PutSnapshot(ctx, second)
		require.NoError(t, err)

		assert.Equal(t, first.Millis()+1, second.Millis())
	})

	t.Run("keeps caller supplied timestamp", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		snap := newSnapshot("https://a.com/p", "one")
		snap.Timestamp = t0.Add(-time.Hour)
		_, err := svc.PutSnapshot(ctx, snap)
		require.NoError(t, err)

		assert.Equal(t, t0.Add(-time.Hour).UnixMilli(), snap.Millis())
	})

	t.Run("returns error for missing url", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSnapshotService(db)

		_, err := svc.PutSnapshot(context.Background(), newSnapshot("", "x"))

		require.Error(t, err)
		assert.Equal(t, whatchanged.EINVALID, whatchanged.ErrorCode(err))
	})

	t.Run("returns error for invalid method", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSnapshotService(db)
		snap := newSnapshot("https://a.com", "x")
		snap.Method = "screenshot"

		_, err := svc.PutSnapshot(context.Background(), snap)

		require.Error(t, err)
		assert.Equal(t, whatchanged.EINVALID, whatchanged.ErrorCode(err))
	})

	t.Run("concurrent identical writes store once", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		var wg sync.WaitGroup
		var mu sync.Mutex
		var stored int
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "same text"))
				if err == nil && res.Stored {
					mu.Lock()
					stored++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, stored)
	})
}

func TestSnapshotService_FindLatestPair(t *testing.T) {
	t.Parallel()

	t.Run("returns nil with fewer than two snapshots", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		pair, err := svc.FindLatestPair(ctx, "https://a.com/p")
		require.NoError(t, err)
		assert.Nil(t, pair)

		_, err = svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "one"))
		require.NoError(t, err)

		pair, err = svc.FindLatestPair(ctx, "https://a.com/p")
		require.NoError(t, err)
		assert.Nil(t, pair)
	})

	t.Run("returns the two newest in chronological order", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		advance := fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		for _, text := range []string{"one", "two", "three"} {
			_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", text))
			require.NoError(t, err)
			advance(time.Minute)
		}

		pair, err := svc.FindLatestPair(ctx, "https://a.com/p")
		require.NoError(t, err)
		require.NotNil(t, pair)

		assert.Equal(t, "two", pair.Older.Text)
		assert.Equal(t, "three", pair.Newer.Text)
		assert.Less(t, pair.Older.Millis(), pair.Newer.Millis())
	})
}

func TestSnapshotService_FindSnapshots(t *testing.T) {
	t.Parallel()

	t.Run("filters by url newest first with pagination", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		advance := fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		for i := range 5 {
			_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", fmt.Sprintf("v%d", i)))
			require.NoError(t, err)
			_, err = svc.PutSnapshot(ctx, newSnapshot("https://b.com/p", fmt.Sprintf("v%d", i)))
			require.NoError(t, err)
			advance(time.Minute)
		}

		url := "https://a.com/p"
		all, err := svc.FindSnapshots(ctx, whatchanged.SnapshotFilter{URL: &url})
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, "v4", all[0].Text)
		assert.Equal(t, "v0", all[4].Text)
		assert.Equal(t, whatchanged.MethodReadability, all[0].Method)

		page, err := svc.FindSnapshots(ctx, whatchanged.SnapshotFilter{URL: &url, Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "v3", page[0].Text)
		assert.Equal(t, "v2", page[1].Text)

		tail, err := svc.FindSnapshots(ctx, whatchanged.SnapshotFilter{URL: &url, Offset: 3})
		require.NoError(t, err)
		assert.Len(t, tail, 2)

		everything, err := svc.FindSnapshots(ctx, whatchanged.SnapshotFilter{})
		require.NoError(t, err)
		assert.Len(t, everything, 10)
	})
}

func TestSnapshotService_PruneSnapshots(t *testing.T) {
	t.Parallel()

	t.Run("deletes snapshots at or before the cutoff", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		advance := fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		// Two old snapshots, then one a hundred days later.
		_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "one"))
		require.NoError(t, err)
		advance(time.Hour)
		_, err = svc.PutSnapshot(ctx, newSnapshot("https://b.com/p", "two"))
		require.NoError(t, err)
		advance(100 * 24 * time.Hour)
		_, err = svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "three"))
		require.NoError(t, err)

		n, err := svc.PruneSnapshots(ctx, 90*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		stats, err := svc.SnapshotStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalSnapshots)
	})

	t.Run("cutoff is inclusive", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		advance := fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "one"))
		require.NoError(t, err)
		advance(time.Hour)

		n, err := svc.PruneSnapshots(ctx, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("keeps recent snapshots", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		advance := fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "one"))
		require.NoError(t, err)
		advance(time.Hour)

		n, err := svc.PruneSnapshots(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("rejects non-positive age", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSnapshotService(db)

		_, err := svc.PruneSnapshots(context.Background(), 0)

		assert.Equal(t, whatchanged.EINVALID, whatchanged.ErrorCode(err))
	})
}

func TestSnapshotService_SnapshotStats(t *testing.T) {
	t.Parallel()

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSnapshotService(db)

		stats, err := svc.SnapshotStats(context.Background())
		require.NoError(t, err)

		assert.Equal(t, whatchanged.Stats{}, *stats)
	})

	t.Run("aggregates counts and bytes", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		advance := fixedClock(db, t0)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()

		for _, s := range []struct{ url, text string }{
			{"https://a.com/p", "abc"},
			{"https://a.com/p", "abcd"},
			{"https://b.com/p", "héllo"},
		} {
			_, err := svc.PutSnapshot(ctx, newSnapshot(s.url, s.text))
			require.NoError(t, err)
			advance(time.Second)
		}

		stats, err := svc.SnapshotStats(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3, stats.TotalSnapshots)
		assert.Equal(t, 2, stats.UniqueURLs)
		assert.Equal(t, int64(3+4+6), stats.TotalBytes)
	})
}

func TestSnapshotService_ClearSnapshots(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	svc := sqlite.NewSnapshotService(db)
	ctx := context.Background()

	_, err := svc.PutSnapshot(ctx, newSnapshot("https://a.com/p", "one"))
	require.NoError(t, err)

	require.NoError(t, svc.ClearSnapshots(ctx))

	stats, err := svc.SnapshotStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSnapshots)
}
