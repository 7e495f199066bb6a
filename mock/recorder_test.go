package mock_test

import (
	"context"
	"testing"

	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RecordSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("delegates to RecordSnapshotFn", func(t *testing.T) {
		t.Parallel()

		var calledWith *whatchanged.SnapshotRequest
		r := &mock.Recorder{
			RecordSnapshotFn: func(_ context.Context, req *whatchanged.SnapshotRequest) (*whatchanged.SnapshotResponse, error) {
				calledWith = req
				return &whatchanged.SnapshotResponse{Stored: true}, nil
			},
		}

		req := &whatchanged.SnapshotRequest{URL: "https://a.com"}
		resp, err := r.RecordSnapshot(context.Background(), req)

		require.NoError(t, err)
		assert.True(t, resp.Stored)
		assert.Same(t, req, calledWith)
	})
}
