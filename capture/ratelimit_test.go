package capture_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/whatchanged/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainLimiter(t *testing.T) {
	t.Parallel()

	t.Run("first request is immediate", func(t *testing.T) {
		t.Parallel()

		limiter := capture.NewDomainLimiter(10)

		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("rate limits requests to same domain", func(t *testing.T) {
		t.Parallel()

		limiter := capture.NewDomainLimiter(10)
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))

		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))
		assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	})

	t.Run("different domains have independent limits", func(t *testing.T) {
		t.Parallel()

		limiter := capture.NewDomainLimiter(10)
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))

		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background(), "other.com"))
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("non-positive rate disables limiting", func(t *testing.T) {
		t.Parallel()

		limiter := capture.NewDomainLimiter(0)

		start := time.Now()
		for range 5 {
			require.NoError(t, limiter.Wait(context.Background(), "example.com"))
		}
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		limiter := capture.NewDomainLimiter(1)
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		assert.Error(t, limiter.Wait(ctx, "example.com"))
	})

	t.Run("concurrent requests all complete", func(t *testing.T) {
		t.Parallel()

		limiter := capture.NewDomainLimiter(100)

		var wg sync.WaitGroup
		var completed atomic.Int32
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Wait(context.Background(), "example.com") == nil {
					completed.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(5), completed.Load())
	})
}
