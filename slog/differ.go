package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/whatchanged"
)

// Ensure LoggingDiffer implements whatchanged.Differ.
var _ whatchanged.Differ = (*LoggingDiffer)(nil)

// LoggingDiffer wraps a Differ with debug logging.
type LoggingDiffer struct {
	next   whatchanged.Differ
	logger *slog.Logger
}

// NewLoggingDiffer creates a new LoggingDiffer.
func NewLoggingDiffer(next whatchanged.Differ, logger *slog.Logger) *LoggingDiffer {
	return &LoggingDiffer{next: next, logger: logger}
}

func (d *LoggingDiffer) Diff(older, newer *whatchanged.Snapshot) (result *whatchanged.DiffResult) {
	defer func(begin time.Time) {
		var changes int
		var significance float64
		if result != nil {
			changes, significance = result.ChangeCount(), result.Significance
		}
		d.logger.Debug("diff",
			"url", newer.URL,
			"changes", changes,
			"significance", significance,
			"duration", time.Since(begin),
		)
	}(time.Now())
	return d.next.Diff(older, newer)
}
