package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/capture"
	"github.com/fwojciec/whatchanged/dispatch"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx        context.Context
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *slog.Logger
	Config     *Config
	Snapshots  whatchanged.SnapshotService
	Settings   whatchanged.SettingsService
	Dispatcher *dispatch.Dispatcher
	Agent      *capture.Agent
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	ConfigPath string `name:"config" type:"path" help:"Config file (default $WHATCHANGED_CONFIG or ~/.whatchanged/config.toml)"`
	DB         string `name:"db" help:"Database path (overrides config and $WHATCHANGED_DB)"`
	Verbose    bool   `short:"v" help:"Log at debug level"`

	Serve    ServeCmd    `cmd:"" help:"Serve the message protocol over HTTP"`
	Capture  CaptureCmd  `cmd:"" help:"Fetch pages and record snapshots"`
	Diff     DiffCmd     `cmd:"" help:"Show what changed on a page since the previous snapshot"`
	Status   StatusCmd   `cmd:"" help:"Show capture status for a page"`
	History  HistoryCmd  `cmd:"" help:"List snapshots of a page"`
	Stats    StatsCmd    `cmd:"" help:"Show storage statistics"`
	Prune    PruneCmd    `cmd:"" help:"Delete snapshots older than the retention period"`
	Clear    ClearCmd    `cmd:"" help:"Delete every snapshot"`
	Settings SettingsCmd `cmd:"" help:"Show or change settings"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Listen string `help:"Listen address (overrides config)"`
}

// CaptureCmd is the "capture" subcommand.
type CaptureCmd struct {
	URLs        []string `arg:"" optional:"" name:"url" help:"Pages to capture"`
	Sitemap     []string `short:"s" help:"Sitemap or site URL to discover pages from (repeatable)"`
	Browser     bool     `short:"b" help:"Render pages in headless Chrome"`
	Concurrency int      `short:"c" help:"Concurrent captures (overrides config)"`
}

// DiffCmd is the "diff" subcommand.
type DiffCmd struct {
	URL  string `arg:"" help:"Page URL"`
	JSON bool   `help:"Print the diff as JSON"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct {
	URL string `arg:"" help:"Page URL"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	URL   string `arg:"" help:"Page URL"`
	Limit int    `short:"n" default:"20" help:"Maximum snapshots to list"`
}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct{}

// PruneCmd is the "prune" subcommand.
type PruneCmd struct{}

// ClearCmd is the "clear" subcommand.
type ClearCmd struct {
	Force bool `help:"Confirm deletion"`
}

// SettingsCmd is the "settings" subcommand.
type SettingsCmd struct {
	RetentionDays   *int     `name:"retention-days" help:"Days to keep snapshots"`
	MinSignificance *float64 `name:"min-significance" help:"Percentage of changed text below which changes are hidden"`
	Block           []string `help:"Block a domain (repeatable)"`
	Unblock         []string `help:"Unblock a domain (repeatable)"`
}
