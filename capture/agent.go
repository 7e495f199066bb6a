// Package capture records pages on behalf of a user who did not visit them
// in a browser: it fetches each page, extracts its main text and submits
// the capture the same way a browser agent would.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/bloom"
	"golang.org/x/sync/errgroup"
)

// Defaults for batch capture.
const (
	DefaultConcurrency   = 4
	DefaultMinTextLength = 100

	expectedURLs      = 10000
	falsePositiveRate = 0.01
)

// Outcome is what happened to one page.
type Outcome string

// Page outcomes.
const (
	OutcomeStored    Outcome = "stored"
	OutcomeChanged   Outcome = "changed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// PageResult reports the capture of one page.
type PageResult struct {
	URL         string
	Outcome     Outcome
	Method      whatchanged.Method
	ChangeCount int
	Reason      string
	Err         error
}

// Result summarizes a batch capture. Pages are in input order, duplicates
// removed.
type Result struct {
	Pages     []PageResult
	Stored    int
	Changed   int
	Unchanged int
	Skipped   int
	Failed    int
}

// ProgressFunc is called as each page finishes. Calls are serialized.
type ProgressFunc func(completed, total int, page PageResult)

// Agent captures pages server-side.
type Agent struct {
	Fetcher   whatchanged.Fetcher
	Extractor whatchanged.ContentExtractor
	Recorder  whatchanged.Recorder
	Limiter   whatchanged.DomainLimiter
	Sitemaps  whatchanged.SitemapService

	// SkipPage reports pages that must not be captured, such as login
	// forms.
	SkipPage func(html string) bool

	// MinTextLength is the shortest extracted text worth recording.
	MinTextLength int

	Concurrency int
	RetryDelays []time.Duration
	Logger      *slog.Logger
}

func (a *Agent) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}

// CaptureURL fetches, extracts and records one page. Failures are reported
// in the result rather than returned.
func (a *Agent) CaptureURL(ctx context.Context, pageURL string) PageResult {
	res := PageResult{URL: pageURL}

	if !whatchanged.IsTrackable(pageURL) {
		return skipped(res, "not trackable")
	}

	if a.Limiter != nil {
		u, err := url.Parse(pageURL)
		if err != nil {
			return failed(res, err)
		}
		if err := a.Limiter.Wait(ctx, u.Host); err != nil {
			return failed(res, err)
		}
	}

	html, err := a.fetchWithRetry(ctx, pageURL)
	if err != nil {
		return failed(res, fmt.Errorf("fetch: %w", err))
	}

	if a.SkipPage != nil && a.SkipPage(html) {
		return skipped(res, "login page")
	}

	c, err := a.Extractor.ExtractContent(html, pageURL)
	if err != nil {
		return failed(res, fmt.Errorf("extract: %w", err))
	}
	res.Method = c.Method

	minLen := a.MinTextLength
	if minLen <= 0 {
		minLen = DefaultMinTextLength
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.Text)) < minLen {
		return skipped(res, "too little text")
	}

	resp, err := a.Recorder.RecordSnapshot(ctx, &whatchanged.SnapshotRequest{
		URL:    pageURL,
		Title:  c.Title,
		Text:   c.Text,
		Method: c.Method,
	})
	if err != nil {
		return failed(res, fmt.Errorf("record: %w", err))
	}

	switch {
	case resp.HasChanges:
		res.Outcome = OutcomeChanged
		res.ChangeCount = resp.ChangeCount
	case resp.Stored:
		res.Outcome = OutcomeStored
	default:
		res.Outcome = OutcomeUnchanged
	}
	return res
}

// CaptureAll captures every distinct page in urls with bounded
// concurrency. URLs that normalize to an already queued page are dropped.
// It returns an error only when ctx ends first.
func (a *Agent) CaptureAll(ctx context.Context, urls []string, progress ProgressFunc) (*Result, error) {
	seen := bloom.NewFilter(max(expectedURLs, uint(len(urls))), falsePositiveRate)
	var queue []string
	for _, u := range urls {
		if seen.Seen(u) {
			continue
		}
		queue = append(queue, u)
	}

	concurrency := a.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	type indexed struct {
		pos  int
		page PageResult
	}
	resultCh := make(chan indexed, len(queue))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	go func() {
		for i, u := range queue {
			g.Go(func() error {
				if gctx.Err() != nil {
					resultCh <- indexed{pos: i, page: failed(PageResult{URL: u}, gctx.Err())}
					return nil
				}
				resultCh <- indexed{pos: i, page: a.CaptureURL(gctx, u)}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	result := &Result{Pages: make([]PageResult, len(queue))}
	var completed atomic.Int64
	for r := range resultCh {
		result.Pages[r.pos] = r.page
		result.count(r.page)
		n := int(completed.Add(1))
		a.logPage(r.page)
		if progress != nil {
			progress(n, len(queue), r.page)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// CaptureSitemap discovers pages from a sitemap or site and captures them.
func (a *Agent) CaptureSitemap(ctx context.Context, sitemapURL string, progress ProgressFunc) (*Result, error) {
	if a.Sitemaps == nil {
		return nil, whatchanged.Errorf(whatchanged.EINVALID, "sitemap discovery is not configured")
	}
	urls, err := a.Sitemaps.DiscoverURLs(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("sitemap discovery: %w", err)
	}
	return a.CaptureAll(ctx, urls, progress)
}

func (r *Result) count(p PageResult) {
	switch p.Outcome {
	case OutcomeStored:
		r.Stored++
	case OutcomeChanged:
		r.Changed++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

func (a *Agent) logPage(p PageResult) {
	switch p.Outcome {
	case OutcomeFailed:
		a.logger().Warn("capture failed", "url", p.URL, "error", p.Err)
	case OutcomeSkipped:
		a.logger().Debug("capture skipped", "url", p.URL, "reason", p.Reason)
	default:
		a.logger().Info("captured",
			"url", p.URL,
			"outcome", p.Outcome,
			"method", p.Method,
			"changes", p.ChangeCount,
		)
	}
}

func skipped(res PageResult, reason string) PageResult {
	res.Outcome = OutcomeSkipped
	res.Reason = reason
	return res
}

func failed(res PageResult, err error) PageResult {
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}
