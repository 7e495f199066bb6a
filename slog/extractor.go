package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/whatchanged"
)

// Ensure LoggingContentExtractor implements whatchanged.ContentExtractor.
var _ whatchanged.ContentExtractor = (*LoggingContentExtractor)(nil)

// LoggingContentExtractor wraps a ContentExtractor with logging.
type LoggingContentExtractor struct {
	next   whatchanged.ContentExtractor
	logger *slog.Logger
}

// NewLoggingContentExtractor creates a new LoggingContentExtractor.
func NewLoggingContentExtractor(next whatchanged.ContentExtractor, logger *slog.Logger) *LoggingContentExtractor {
	return &LoggingContentExtractor{next: next, logger: logger}
}

// ExtractContent logs which cascade stage produced the text.
func (e *LoggingContentExtractor) ExtractContent(html string, pageURL string) (c *whatchanged.Capture, err error) {
	defer func(begin time.Time) {
		var method whatchanged.Method
		var chars int
		if c != nil {
			method, chars = c.Method, len(c.Text)
		}
		e.logger.Info("extract content",
			"url", pageURL,
			"method", method,
			"bytes", chars,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.ExtractContent(html, pageURL)
}
