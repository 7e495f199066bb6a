package whatchanged

import (
	"context"
	"time"
)

// Method records which extraction strategy produced a snapshot's text.
type Method string

// Extraction methods, in cascade order.
const (
	MethodReadability Method = "readability"
	MethodSelector    Method = "selector"
	MethodBody        Method = "body"
)

// Valid reports whether m is one of the known extraction methods.
func (m Method) Valid() bool {
	switch m {
	case MethodReadability, MethodSelector, MethodBody:
		return true
	}
	return false
}

// Snapshot is one capture of a page at a point in time.
type Snapshot struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Timestamp   time.Time `json:"-"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	ContentHash string    `json:"contentHash"`
	ByteLength  int       `json:"byteLength"`
	Method      Method    `json:"method"`
}

// Millis returns the snapshot timestamp as unix milliseconds, the
// representation used on the wire and in storage.
func (s *Snapshot) Millis() int64 {
	return s.Timestamp.UnixMilli()
}

// Validate returns an error if the snapshot contains invalid fields.
func (s *Snapshot) Validate() error {
	if s.URL == "" {
		return Errorf(EINVALID, "snapshot URL required")
	}
	if !s.Method.Valid() {
		return Errorf(EINVALID, "invalid snapshot method %q", s.Method)
	}
	return nil
}

// PutResult reports the outcome of storing a snapshot.
type PutResult struct {
	// Stored is false when the latest snapshot for the URL already
	// carries the same content hash.
	Stored bool `json:"stored"`

	// HasChanges is true when the snapshot was stored and an earlier
	// snapshot exists to diff against.
	HasChanges bool `json:"hasChanges"`
}

// SnapshotPair holds the two most recent snapshots of a URL in
// chronological order.
type SnapshotPair struct {
	Older *Snapshot
	Newer *Snapshot
}

// Stats is an aggregate over every stored snapshot.
type Stats struct {
	TotalSnapshots int   `json:"totalSnapshots"`
	UniqueURLs     int   `json:"uniqueUrls"`
	TotalBytes     int64 `json:"totalBytes"`
}

// SnapshotService represents a service for managing snapshots.
type SnapshotService interface {
	// PutSnapshot stores a snapshot unless the latest snapshot for the same
	// URL has an identical content hash. The check and the write are atomic
	// with respect to other writes. Generated fields are written back to snap
	// only when it is stored.
	PutSnapshot(ctx context.Context, snap *Snapshot) (*PutResult, error)

	// FindLatestPair returns the two most recent snapshots for a URL.
	// Returns nil if fewer than two exist.
	FindLatestPair(ctx context.Context, url string) (*SnapshotPair, error)

	// FindSnapshots retrieves snapshots matching the filter, newest first.
	FindSnapshots(ctx context.Context, filter SnapshotFilter) ([]*Snapshot, error)

	// CountSnapshots returns the number of snapshots stored for a URL.
	CountSnapshots(ctx context.Context, url string) (int, error)

	// PruneSnapshots deletes every snapshot older than maxAge and returns
	// the number deleted.
	PruneSnapshots(ctx context.Context, maxAge time.Duration) (int, error)

	// SnapshotStats aggregates over all stored snapshots.
	SnapshotStats(ctx context.Context) (*Stats, error)

	// ClearSnapshots deletes all snapshots.
	ClearSnapshots(ctx context.Context) error
}

// SnapshotFilter represents a filter for FindSnapshots.
type SnapshotFilter struct {
	URL *string `json:"url"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
