// Package slog provides logging decorators for whatchanged services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/whatchanged"
)

// Ensure LoggingSnapshotService implements whatchanged.SnapshotService.
var _ whatchanged.SnapshotService = (*LoggingSnapshotService)(nil)

// LoggingSnapshotService wraps a SnapshotService with logging. Writes log at
// info level, reads at debug level.
type LoggingSnapshotService struct {
	next   whatchanged.SnapshotService
	logger *slog.Logger
}

// NewLoggingSnapshotService creates a new LoggingSnapshotService.
func NewLoggingSnapshotService(next whatchanged.SnapshotService, logger *slog.Logger) *LoggingSnapshotService {
	return &LoggingSnapshotService{next: next, logger: logger}
}

func (s *LoggingSnapshotService) PutSnapshot(ctx context.Context, snap *whatchanged.Snapshot) (res *whatchanged.PutResult, err error) {
	defer func(begin time.Time) {
		var stored, changed bool
		if res != nil {
			stored, changed = res.Stored, res.HasChanges
		}
		s.logger.Info("put snapshot",
			"url", snap.URL,
			"method", snap.Method,
			"bytes", len(snap.Text),
			"stored", stored,
			"hasChanges", changed,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.PutSnapshot(ctx, snap)
}

func (s *LoggingSnapshotService) FindLatestPair(ctx context.Context, url string) (pair *whatchanged.SnapshotPair, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find latest pair",
			"url", url,
			"found", pair != nil,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindLatestPair(ctx, url)
}

func (s *LoggingSnapshotService) FindSnapshots(ctx context.Context, filter whatchanged.SnapshotFilter) (snaps []*whatchanged.Snapshot, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find snapshots",
			"count", len(snaps),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindSnapshots(ctx, filter)
}

func (s *LoggingSnapshotService) CountSnapshots(ctx context.Context, url string) (n int, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("count snapshots",
			"url", url,
			"count", n,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.CountSnapshots(ctx, url)
}

func (s *LoggingSnapshotService) PruneSnapshots(ctx context.Context, maxAge time.Duration) (n int, err error) {
	defer func(begin time.Time) {
		s.logger.Info("prune snapshots",
			"maxAge", maxAge,
			"deleted", n,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.PruneSnapshots(ctx, maxAge)
}

func (s *LoggingSnapshotService) SnapshotStats(ctx context.Context) (stats *whatchanged.Stats, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("snapshot stats",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SnapshotStats(ctx)
}

func (s *LoggingSnapshotService) ClearSnapshots(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("clear snapshots",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ClearSnapshots(ctx)
}
