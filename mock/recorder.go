package mock

import (
	"context"

	"github.com/fwojciec/whatchanged"
)

var _ whatchanged.Recorder = (*Recorder)(nil)

// Recorder is a mock implementation of whatchanged.Recorder.
type Recorder struct {
	RecordSnapshotFn func(ctx context.Context, req *whatchanged.SnapshotRequest) (*whatchanged.SnapshotResponse, error)
}

func (r *Recorder) RecordSnapshot(ctx context.Context, req *whatchanged.SnapshotRequest) (*whatchanged.SnapshotResponse, error) {
	return r.RecordSnapshotFn(ctx, req)
}
