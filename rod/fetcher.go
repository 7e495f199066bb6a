// Package rod captures JavaScript-rendered pages with a headless browser.
// A capture waits until the DOM stops mutating before reading the HTML.
package rod

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fwojciec/whatchanged"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFetchTimeout bounds one capture, navigation and settling included.
const DefaultFetchTimeout = 30 * time.Second

// Ensure Fetcher implements whatchanged.Fetcher at compile time.
var _ whatchanged.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML using Chrome browser automation.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager  *BrowserManager
	timeout  time.Duration
	quiet    time.Duration
	deadline time.Duration
	maxPages int64
	logger   *slog.Logger
	closed   atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout bounds each capture.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithSettle sets the DOM quiet period and the hard settle deadline.
func WithSettle(quiet, deadline time.Duration) Option {
	return func(f *Fetcher) {
		f.quiet = quiet
		f.deadline = deadline
	}
}

// WithBrowserMaxPages sets how many captures one browser process serves.
func WithBrowserMaxPages(n int64) Option {
	return func(f *Fetcher) {
		f.maxPages = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// NewFetcher launches a headless browser. Close must be called when the
// Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:  DefaultFetchTimeout,
		quiet:    DefaultSettleQuiet,
		deadline: DefaultSettleDeadline,
		maxPages: DefaultMaxPages,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}

	m, err := NewBrowserManager(WithMaxPages(f.maxPages), WithManagerLogger(f.logger))
	if err != nil {
		return nil, err
	}
	f.manager = m
	return f, nil
}

// Fetch navigates to url, waits for the page to load and for its DOM to
// settle, then returns the rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.closed.Load() {
		return "", whatchanged.Errorf(whatchanged.EINVALID, "fetcher is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := f.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", err
	}
	defer f.manager.PageDone()
	defer page.Close()

	page = page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}

	// DOM mutation events only fire for nodes the client has been sent, so
	// the full tree is requested before listening.
	if err := (proto.DOMEnable{}).Call(page); err != nil {
		return "", err
	}
	depth := -1
	if _, err := (proto.DOMGetDocument{Depth: &depth, Pierce: true}).Call(page); err != nil {
		return "", err
	}

	settler := NewSettler(f.quiet, f.deadline)
	observeCtx, stopObserving := context.WithCancel(ctx)
	defer stopObserving()
	observe := func() { settler.Observe() }
	wait := page.Context(observeCtx).EachEvent(
		func(*proto.DOMChildNodeInserted) { observe() },
		func(*proto.DOMChildNodeRemoved) { observe() },
		func(*proto.DOMCharacterDataModified) { observe() },
		func(*proto.DOMAttributeModified) { observe() },
		func(*proto.DOMDocumentUpdated) { observe() },
	)
	go wait()

	begin := time.Now()
	reason, err := settler.Wait(ctx)
	if err != nil {
		return "", err
	}
	stopObserving()
	f.logger.Debug("page settled", "url", url, "reason", reason, "duration", time.Since(begin))

	return page.HTML()
}

// LauncherPID returns the browser process ID, or 0 once closed.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

// Close releases browser resources. It is safe to call more than once.
func (f *Fetcher) Close() error {
	f.closed.Store(true)
	return f.manager.Close()
}
