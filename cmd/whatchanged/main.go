package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/capture"
	"github.com/fwojciec/whatchanged/diffmatchpatch"
	"github.com/fwojciec/whatchanged/dispatch"
	"github.com/fwojciec/whatchanged/goquery"
	wchttp "github.com/fwojciec/whatchanged/http"
	"github.com/fwojciec/whatchanged/readability"
	"github.com/fwojciec/whatchanged/rod"
	wcslog "github.com/fwojciec/whatchanged/slog"
	"github.com/fwojciec/whatchanged/sqlite"
	"github.com/fwojciec/whatchanged/trafilatura"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()
	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Fetcher is closed with the program when a capture opened one.
	Fetcher whatchanged.Fetcher
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Fetcher != nil {
		_ = m.Fetcher.Close()
	}
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("whatchanged"),
		kong.Description("Track what changed on web pages since you last saw them."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'whatchanged --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(cli.ConfigPath)
	if err != nil {
		return err
	}
	if cli.DB != "" {
		cfg.DBPath = cli.DB
	}
	deps.Config = cfg

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	if dir := filepath.Dir(cfg.DBPath); cfg.DBPath != ":memory:" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	m.DB = sqlite.NewDB(cfg.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set WHATCHANGED_DB or --db to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", cfg.DBPath, err)
	}
	defer m.Close()

	if err := m.wire(deps, cli, kongCtx.Command()); err != nil {
		return err
	}
	return kongCtx.Run(deps)
}

// wire builds the services the selected command needs.
func (m *Main) wire(deps *Dependencies, cli *CLI, command string) error {
	cfg, logger := deps.Config, deps.Logger

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	deps.Snapshots = wcslog.NewLoggingSnapshotService(sqlite.NewSnapshotService(m.DB), logger)
	deps.Settings = sqlite.NewSettingsService(m.DB)

	noise := goquery.NewNoiseRemover(
		goquery.WithNoiseLogger(logger),
		goquery.WithSelectors(cfg.NoiseSelectors...),
	)
	var article whatchanged.Extractor = readability.NewExtractor()
	if cfg.ArticleEngine == EngineTrafilatura {
		article = trafilatura.NewExtractor()
	}
	extractor := wcslog.NewLoggingContentExtractor(goquery.NewContentExtractor(article, noise), logger)

	deps.Dispatcher = dispatch.NewDispatcher(
		deps.Snapshots,
		deps.Settings,
		wcslog.NewLoggingDiffer(diffmatchpatch.NewDiffer(), logger),
		dispatch.WithLogger(logger),
		dispatch.WithPolicy(policy),
		dispatch.WithCacheSize(cfg.CacheSize),
		dispatch.WithContentExtractor(extractor),
		dispatch.WithSkipPage(goquery.IsLoginPage),
	)

	if name, _, _ := strings.Cut(command, " "); name != "capture" {
		return nil
	}

	var fetcher whatchanged.Fetcher
	if cli.Capture.Browser {
		f, err := rod.NewFetcher(
			rod.WithSettle(cfg.SettleQuiet, cfg.SettleTimeout),
			rod.WithLogger(logger),
		)
		if err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed")
			return fmt.Errorf("failed to start browser: %w", err)
		}
		fetcher = f
	} else {
		fetcher = wchttp.NewFetcher()
	}
	m.Fetcher = wcslog.NewLoggingFetcher(fetcher, logger)

	concurrency := cfg.CaptureConcurrency
	if cli.Capture.Concurrency > 0 {
		concurrency = cli.Capture.Concurrency
	}

	deps.Agent = &capture.Agent{
		Fetcher:       m.Fetcher,
		Extractor:     extractor,
		Recorder:      deps.Dispatcher,
		Limiter:       capture.NewDomainLimiter(cfg.CaptureRPS),
		Sitemaps:      wcslog.NewLoggingSitemapService(wchttp.NewSitemapService(nil), logger),
		SkipPage:      goquery.IsLoginPage,
		MinTextLength: dispatch.MinCaptureLength,
		Concurrency:   concurrency,
		Logger:        logger,
	}
	return nil
}
