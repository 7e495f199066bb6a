package capture

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/whatchanged"
)

// DefaultRetryDelays returns the backoff between fetch attempts: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// fetchWithRetry fetches url, retrying after each delay. Missing pages and
// invalid requests are not retried.
func (a *Agent) fetchWithRetry(ctx context.Context, url string) (string, error) {
	delays := a.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		html, err := a.Fetcher.Fetch(ctx, url)
		if err == nil {
			return html, nil
		}
		lastErr = err

		if attempt == len(delays) || !retryable(err) {
			break
		}

		a.logger().Debug("retrying fetch", "url", url, "attempt", attempt+2, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
	return "", lastErr
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch whatchanged.ErrorCode(err) {
	case whatchanged.ENOTFOUND, whatchanged.EINVALID:
		return false
	}
	return true
}
