package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/whatchanged"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ whatchanged.SnapshotService = (*SnapshotService)(nil)

const snapshotColumns = "id, url, timestamp, title, text, content_hash, byte_length, method"

// SnapshotService implements whatchanged.SnapshotService using SQLite.
type SnapshotService struct {
	db *DB
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(db *DB) *SnapshotService {
	return &SnapshotService{db: db}
}

// PutSnapshot stores a snapshot unless it matches the latest one for its URL.
// The lookup and the insert share one transaction. The generated ID, hash,
// byte length and timestamp are written back to in only when it is stored.
func (s *SnapshotService) PutSnapshot(ctx context.Context, in *whatchanged.Snapshot) (*whatchanged.PutResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	snap := *in
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.ContentHash == "" {
		snap.ContentHash = whatchanged.ContentHash(snap.Text)
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = s.db.Now()
	}
	snap.ByteLength = len(snap.Text)

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var latestHash string
	var latestMillis int64
	prior := true
	err = tx.QueryRowContext(ctx, `
		SELECT content_hash, timestamp FROM snapshots
		WHERE url = ?
		ORDER BY timestamp DESC, seq DESC
		LIMIT 1
	`, snap.URL).Scan(&latestHash, &latestMillis)
	if errors.Is(err, sql.ErrNoRows) {
		prior = false
	} else if err != nil {
		return nil, fmt.Errorf("failed to find latest snapshot: %w", err)
	}

	if prior && latestHash == snap.ContentHash {
		return &whatchanged.PutResult{}, nil
	}

	// Keep timestamps strictly increasing per url.
	if prior && snap.Millis() <= latestMillis {
		snap.Timestamp = time.UnixMilli(latestMillis + 1).UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, url, timestamp, title, text, content_hash, byte_length, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.URL, snap.Millis(), snap.Title, snap.Text, snap.ContentHash,
		snap.ByteLength, string(snap.Method)); err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	*in = snap
	return &whatchanged.PutResult{Stored: true, HasChanges: prior}, nil
}

// FindLatestPair returns the two most recent snapshots for a URL, or nil
// when fewer than two exist.
func (s *SnapshotService) FindLatestPair(ctx context.Context, url string) (*whatchanged.SnapshotPair, error) {
	snaps, err := s.FindSnapshots(ctx, whatchanged.SnapshotFilter{URL: &url, Limit: 2})
	if err != nil {
		return nil, err
	}
	if len(snaps) < 2 {
		return nil, nil
	}
	return &whatchanged.SnapshotPair{Older: snaps[1], Newer: snaps[0]}, nil
}

// FindSnapshots retrieves snapshots matching the filter, newest first.
func (s *SnapshotService) FindSnapshots(ctx context.Context, filter whatchanged.SnapshotFilter) ([]*whatchanged.Snapshot, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + snapshotColumns + " FROM snapshots WHERE 1=1")

	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}

	query.WriteString(" ORDER BY timestamp DESC, seq DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*whatchanged.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// CountSnapshots returns the number of snapshots stored for a URL.
func (s *SnapshotService) CountSnapshots(ctx context.Context, url string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots WHERE url = ?", url).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// PruneSnapshots deletes snapshots captured at or before now minus maxAge.
func (s *SnapshotService) PruneSnapshots(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, whatchanged.Errorf(whatchanged.EINVALID, "prune age must be positive")
	}

	cutoff := s.db.Now().Add(-maxAge).UnixMilli()
	result, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE timestamp <= ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// SnapshotStats aggregates over all stored snapshots.
func (s *SnapshotService) SnapshotStats(ctx context.Context) (*whatchanged.Stats, error) {
	var stats whatchanged.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT url), COALESCE(SUM(byte_length), 0)
		FROM snapshots
	`).Scan(&stats.TotalSnapshots, &stats.UniqueURLs, &stats.TotalBytes)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ClearSnapshots deletes all snapshots.
func (s *SnapshotService) ClearSnapshots(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots")
	return err
}

func scanSnapshot(rows *sql.Rows) (*whatchanged.Snapshot, error) {
	var snap whatchanged.Snapshot
	var millis int64
	var method string

	if err := rows.Scan(&snap.ID, &snap.URL, &millis, &snap.Title, &snap.Text,
		&snap.ContentHash, &snap.ByteLength, &method); err != nil {
		return nil, err
	}

	snap.Timestamp = time.UnixMilli(millis).UTC()
	snap.Method = whatchanged.Method(method)
	return &snap, nil
}
