package rod

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is the number of captures after which the browser is
// replaced with a fresh process.
const DefaultMaxPages = 75

// BrowserManager owns the headless browser used for rendered captures and
// replaces it after maxPages captures. Chrome's resident memory grows
// with every page and never returns to its baseline.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   *slog.Logger

	pages    atomic.Int64
	maxPages int64
	closed   atomic.Bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets how many captures one browser process serves.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithManagerLogger sets the logger used for browser recycling.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(bm *BrowserManager) {
		bm.logger = l
	}
}

// NewBrowserManager launches a headless browser. Close must be called when
// the manager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(bm)
	}

	browser, l, err := launch()
	if err != nil {
		return nil, err
	}
	bm.browser, bm.launcher = browser, l
	return bm, nil
}

// Browser returns the current browser, replacing it first when it has
// served maxPages captures. Callers report each capture with PageDone.
func (bm *BrowserManager) Browser() *rod.Browser {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.pages.Load() >= bm.maxPages {
		bm.recycle()
	}
	return bm.browser
}

// PageDone counts one finished capture toward the recycling threshold.
func (bm *BrowserManager) PageDone() {
	bm.pages.Add(1)
}

// Close shuts the browser down. It is safe to call more than once.
func (bm *BrowserManager) Close() error {
	if !bm.closed.CompareAndSwap(false, true) {
		return nil
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	var err error
	if bm.browser != nil {
		err = bm.browser.Close()
		bm.browser = nil
	}
	if bm.launcher != nil {
		bm.launcher.Kill()
		bm.launcher = nil
	}
	return err
}

// LauncherPID returns the browser process ID, or 0 after Close.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.launcher == nil {
		return 0
	}
	return bm.launcher.PID()
}

// recycle swaps in a new browser. The old one is kept if the launch fails.
// Must be called with mu held.
func (bm *BrowserManager) recycle() {
	browser, l, err := launch()
	if err != nil {
		bm.logger.Warn("browser recycle failed", "pages", bm.pages.Load(), "error", err)
		return
	}

	if bm.browser != nil {
		_ = bm.browser.Close()
	}
	if bm.launcher != nil {
		bm.launcher.Kill()
	}
	bm.logger.Info("browser recycled", "pages", bm.pages.Load())

	bm.browser, bm.launcher = browser, l
	bm.pages.Store(0)
}

func launch() (*rod.Browser, *launcher.Launcher, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return browser, l, nil
}
