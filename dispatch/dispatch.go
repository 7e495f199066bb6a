// Package dispatch routes capture and query messages to the snapshot store
// and diff engine. Work on one URL is serialized; different URLs proceed in
// parallel.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/fwojciec/whatchanged"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Compile-time interface verification.
var _ whatchanged.Recorder = (*Dispatcher)(nil)

// DefaultCacheSize is the number of diffs kept in memory.
const DefaultCacheSize = 256

// MinCaptureLength is the shortest extracted text a capture message may
// store. Shorter pages are usually error or interstitial pages.
const MinCaptureLength = 100

// Dispatcher coordinates the snapshot store, settings, and diff engine.
type Dispatcher struct {
	snapshots whatchanged.SnapshotService
	settings  whatchanged.SettingsService
	differ    whatchanged.Differ
	policy    *whatchanged.Policy
	extractor whatchanged.ContentExtractor
	skipPage  func(html string) bool
	logger    *slog.Logger
	cacheSize int

	// gate is held for reading by per-url work and for writing by
	// operations that touch every url (clear, prune).
	gate  sync.RWMutex
	locks *keyedMutex
	cache *lru.Cache[string, *whatchanged.DiffResult]
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithPolicy sets the suppression policy. Defaults to whatchanged.DefaultPolicy.
func WithPolicy(p *whatchanged.Policy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithCacheSize sets how many diffs are cached. Zero or negative keeps the
// default.
func WithCacheSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.cacheSize = n
		}
	}
}

// WithContentExtractor enables capture messages, which carry raw HTML and
// are extracted server-side.
func WithContentExtractor(e whatchanged.ContentExtractor) Option {
	return func(d *Dispatcher) { d.extractor = e }
}

// WithSkipPage sets a predicate over raw HTML; matching capture messages
// are not stored.
func WithSkipPage(fn func(html string) bool) Option {
	return func(d *Dispatcher) { d.skipPage = fn }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(snapshots whatchanged.SnapshotService, settings whatchanged.SettingsService, differ whatchanged.Differ, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		snapshots: snapshots,
		settings:  settings,
		differ:    differ,
		policy:    whatchanged.DefaultPolicy(),
		logger:    slog.New(slog.DiscardHandler),
		cacheSize: DefaultCacheSize,
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(d)
	}

	// lru.New only fails for a non-positive size.
	d.cache, _ = lru.New[string, *whatchanged.DiffResult](d.cacheSize)
	return d
}

// lockURL serializes work on one url and excludes clear and prune.
func (d *Dispatcher) lockURL(url string) func() {
	d.gate.RLock()
	unlock := d.locks.Lock(url)
	return func() {
		unlock()
		d.gate.RUnlock()
	}
}

// RecordSnapshot stores a capture and reports whether it surfaced a change
// worth showing. Untrackable and blocked URLs are ignored.
func (d *Dispatcher) RecordSnapshot(ctx context.Context, req *whatchanged.SnapshotRequest) (*whatchanged.SnapshotResponse, error) {
	url := whatchanged.NormalizeURL(req.URL)
	if !whatchanged.IsTrackable(url) {
		return &whatchanged.SnapshotResponse{}, nil
	}

	settings, err := d.settings.FindSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	if whatchanged.IsBlocked(url, settings.BlockedDomains) {
		return &whatchanged.SnapshotResponse{}, nil
	}

	unlock := d.lockURL(url)
	defer unlock()

	res, err := d.snapshots.PutSnapshot(ctx, &whatchanged.Snapshot{
		URL:    url,
		Title:  req.Title,
		Text:   req.Text,
		Method: req.Method,
	})
	if err != nil {
		return nil, fmt.Errorf("put snapshot: %w", err)
	}
	if !res.Stored {
		return &whatchanged.SnapshotResponse{}, nil
	}

	d.Invalidate(url)

	resp := &whatchanged.SnapshotResponse{Stored: true}
	if !res.HasChanges {
		return resp, nil
	}

	diff, err := d.latestDiff(ctx, url)
	if err != nil {
		return nil, err
	}
	if diff == nil || d.policy.Suppress(url, diff, settings.MinSignificance) {
		return resp, nil
	}

	resp.HasChanges = true
	resp.ChangeCount = diff.ChangeCount()
	return resp, nil
}

// Capture extracts a page server-side and records the result. Pages the
// skip predicate rejects and pages with too little text are not stored.
func (d *Dispatcher) Capture(ctx context.Context, pageURL, html string) (*whatchanged.SnapshotResponse, error) {
	if d.extractor == nil {
		return nil, whatchanged.Errorf(whatchanged.EINVALID, "capture messages are not enabled")
	}
	if d.skipPage != nil && d.skipPage(html) {
		return &whatchanged.SnapshotResponse{}, nil
	}

	c, err := d.extractor.ExtractContent(html, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	if utf8.RuneCountInString(c.Text) < MinCaptureLength {
		return &whatchanged.SnapshotResponse{}, nil
	}

	return d.RecordSnapshot(ctx, &whatchanged.SnapshotRequest{
		URL:    pageURL,
		Title:  c.Title,
		Text:   c.Text,
		Method: c.Method,
	})
}

// GetDiff returns the diff between the two latest snapshots of a URL, or
// nil when there are fewer than two.
func (d *Dispatcher) GetDiff(ctx context.Context, rawURL string) (*whatchanged.DiffResponse, error) {
	url := whatchanged.NormalizeURL(rawURL)

	settings, err := d.settings.FindSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}

	unlock := d.lockURL(url)
	defer unlock()

	diff, err := d.latestDiff(ctx, url)
	if err != nil || diff == nil {
		return nil, err
	}
	return d.policy.BuildDiffResponse(diff, settings.MinSignificance, url), nil
}

// GetStatus summarizes the capture history of a URL.
func (d *Dispatcher) GetStatus(ctx context.Context, rawURL string) (*whatchanged.StatusResponse, error) {
	url := whatchanged.NormalizeURL(rawURL)

	settings, err := d.settings.FindSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}

	unlock := d.lockURL(url)
	defer unlock()

	count, err := d.snapshots.CountSnapshots(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}

	status := &whatchanged.StatusResponse{SnapshotCount: count}
	if count == 0 {
		return status, nil
	}

	latest, err := d.snapshots.FindSnapshots(ctx, whatchanged.SnapshotFilter{URL: &url, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("find latest snapshot: %w", err)
	}
	if len(latest) > 0 {
		ms := latest[0].Millis()
		status.LastVisit = &ms
	}

	diff, err := d.latestDiff(ctx, url)
	if err != nil {
		return nil, err
	}
	if diff != nil && diff.OldSnapshot.ContentHash != diff.NewSnapshot.ContentHash {
		status.HasChanges = diff.Significance >= settings.MinSignificanceRatio()
		status.ChangeCount = diff.ChangeCount()
	}
	return status, nil
}

// GetStats aggregates over all stored snapshots.
func (d *Dispatcher) GetStats(ctx context.Context) (*whatchanged.Stats, error) {
	return d.snapshots.SnapshotStats(ctx)
}

// ClearAll deletes every snapshot and empties the diff cache.
func (d *Dispatcher) ClearAll(ctx context.Context) error {
	d.gate.Lock()
	defer d.gate.Unlock()

	if err := d.snapshots.ClearSnapshots(ctx); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	d.cache.Purge()
	return nil
}

// Prune deletes snapshots older than the retention setting. The diff cache
// is emptied when anything was deleted.
func (d *Dispatcher) Prune(ctx context.Context) (int, error) {
	settings, err := d.settings.FindSettings(ctx)
	if err != nil {
		return 0, fmt.Errorf("find settings: %w", err)
	}

	d.gate.Lock()
	defer d.gate.Unlock()

	n, err := d.snapshots.PruneSnapshots(ctx, settings.Retention())
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if n > 0 {
		d.cache.Purge()
	}
	return n, nil
}

// Invalidate drops the cached diff for a normalized URL.
func (d *Dispatcher) Invalidate(url string) {
	d.cache.Remove(url)
}

// latestDiff returns the cached diff for the url's latest pair, computing
// it on a miss. Callers hold the url lock.
func (d *Dispatcher) latestDiff(ctx context.Context, url string) (*whatchanged.DiffResult, error) {
	if diff, ok := d.cache.Get(url); ok {
		return diff, nil
	}

	pair, err := d.snapshots.FindLatestPair(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("find latest pair: %w", err)
	}
	if pair == nil {
		return nil, nil
	}

	diff := d.differ.Diff(pair.Older, pair.Newer)
	d.cache.Add(url, diff)
	return diff, nil
}
