package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/capture"
	"github.com/fwojciec/whatchanged/dispatch"
	"github.com/fwojciec/whatchanged/rod"
)

// Article engines.
const (
	EngineReadability = "readability"
	EngineTrafilatura = "trafilatura"
)

// Config holds settings that shape the process rather than the user's
// tracking preferences, which live in the database.
type Config struct {
	DBPath     string `toml:"db_path"`
	ListenAddr string `toml:"listen_addr"`

	// DynamicCeiling and FeedPatterns drive dynamic feed detection. An
	// empty FeedPatterns keeps the built-in list.
	DynamicCeiling float64  `toml:"dynamic_ceiling"`
	FeedPatterns   []string `toml:"feed_patterns"`

	NoiseSelectors []string `toml:"noise_selectors"`
	CacheSize      int      `toml:"cache_size"`
	ArticleEngine  string   `toml:"article_engine"`

	SettleQuiet   time.Duration `toml:"settle_quiet"`
	SettleTimeout time.Duration `toml:"settle_timeout"`

	CaptureConcurrency int     `toml:"capture_concurrency"`
	CaptureRPS         float64 `toml:"capture_rps"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		DBPath:             filepath.Join(configDir(), "whatchanged.db"),
		ListenAddr:         "127.0.0.1:7777",
		DynamicCeiling:     whatchanged.DefaultDynamicCeiling,
		CacheSize:          dispatch.DefaultCacheSize,
		ArticleEngine:      EngineReadability,
		SettleQuiet:        rod.DefaultSettleQuiet,
		SettleTimeout:      rod.DefaultSettleDeadline,
		CaptureConcurrency: capture.DefaultConcurrency,
		CaptureRPS:         1,
	}
}

// LoadConfig layers the config file at path and the environment over the
// defaults. An empty path uses $WHATCHANGED_CONFIG, then
// ~/.whatchanged/config.toml; a missing default file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("WHATCHANGED_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = filepath.Join(configDir(), "config.toml")
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if db := os.Getenv("WHATCHANGED_DB"); db != "" {
		cfg.DBPath = db
	}
	cfg.DBPath = expandHome(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return whatchanged.Errorf(whatchanged.EINVALID, "db_path must not be empty")
	}
	if c.DynamicCeiling <= 0 || c.DynamicCeiling > 1 {
		return whatchanged.Errorf(whatchanged.EINVALID, "dynamic_ceiling must be in (0, 1]")
	}
	switch c.ArticleEngine {
	case EngineReadability, EngineTrafilatura:
	default:
		return whatchanged.Errorf(whatchanged.EINVALID, "unknown article_engine %q", c.ArticleEngine)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}

// Policy builds the suppression policy from the feed settings.
func (c *Config) Policy() (*whatchanged.Policy, error) {
	p := whatchanged.DefaultPolicy()
	p.DynamicCeiling = c.DynamicCeiling
	if len(c.FeedPatterns) == 0 {
		return p, nil
	}

	p.FeedPatterns = make([]*regexp.Regexp, 0, len(c.FeedPatterns))
	for _, pattern := range c.FeedPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, whatchanged.Errorf(whatchanged.EINVALID, "invalid feed pattern %q: %v", pattern, err)
		}
		p.FeedPatterns = append(p.FeedPatterns, re)
	}
	return p, nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".whatchanged")
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
