package dispatch

import (
	"context"
	"time"
)

// RetentionInterval is how often RunRetention prunes.
const RetentionInterval = 24 * time.Hour

// RunRetention prunes once immediately and then on every interval until ctx
// is done. Failures are logged and retried at the next tick.
func (d *Dispatcher) RunRetention(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = RetentionInterval
	}

	d.pruneAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pruneAndLog(ctx)
		}
	}
}

func (d *Dispatcher) pruneAndLog(ctx context.Context) {
	n, err := d.Prune(ctx)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Error("retention prune failed", "error", err)
		}
		return
	}
	if n > 0 {
		d.logger.Info("pruned old snapshots", "count", n)
	}
}
