package mock

import (
	"context"
	"time"

	"github.com/fwojciec/whatchanged"
)

var _ whatchanged.SnapshotService = (*SnapshotService)(nil)

// SnapshotService is a mock implementation of whatchanged.SnapshotService.
type SnapshotService struct {
	PutSnapshotFn    func(ctx context.Context, snap *whatchanged.Snapshot) (*whatchanged.PutResult, error)
	FindLatestPairFn func(ctx context.Context, url string) (*whatchanged.SnapshotPair, error)
	FindSnapshotsFn  func(ctx context.Context, filter whatchanged.SnapshotFilter) ([]*whatchanged.Snapshot, error)
	CountSnapshotsFn func(ctx context.Context, url string) (int, error)
	PruneSnapshotsFn func(ctx context.Context, maxAge time.Duration) (int, error)
	SnapshotStatsFn  func(ctx context.Context) (*whatchanged.Stats, error)
	ClearSnapshotsFn func(ctx context.Context) error
}

func (s *SnapshotService) PutSnapshot(ctx context.Context, snap *whatchanged.Snapshot) (*whatchanged.PutResult, error) {
	return s.PutSnapshotFn(ctx, snap)
}

func (s *SnapshotService) FindLatestPair(ctx context.Context, url string) (*whatchanged.SnapshotPair, error) {
	return s.FindLatestPairFn(ctx, url)
}

func (s *SnapshotService) FindSnapshots(ctx context.Context, filter whatchanged.SnapshotFilter) ([]*whatchanged.Snapshot, error) {
	return s.FindSnapshotsFn(ctx, filter)
}

func (s *SnapshotService) CountSnapshots(ctx context.Context, url string) (int, error) {
	return s.CountSnapshotsFn(ctx, url)
}

func (s *SnapshotService) PruneSnapshots(ctx context.Context, maxAge time.Duration) (int, error) {
	return s.PruneSnapshotsFn(ctx, maxAge)
}

func (s *SnapshotService) SnapshotStats(ctx context.Context) (*whatchanged.Stats, error) {
	return s.SnapshotStatsFn(ctx)
}

func (s *SnapshotService) ClearSnapshots(ctx context.Context) error {
	return s.ClearSnapshotsFn(ctx)
}
