package main_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/whatchanged"
	main "github.com/fwojciec/whatchanged/cmd/whatchanged"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		t.Setenv("WHATCHANGED_DB", "")
		path := writeConfig(t, `
db_path = "/tmp/wc.db"
listen_addr = ":9000"
dynamic_ceiling = 0.9
feed_patterns = ['example\.com/feed']
noise_selectors = [".promo"]
cache_size = 64
article_engine = "trafilatura"
settle_quiet = "2s"
settle_timeout = "10s"
capture_concurrency = 8
capture_rps = 0.5
`)

		cfg, err := main.LoadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, "/tmp/wc.db", cfg.DBPath)
		assert.Equal(t, ":9000", cfg.ListenAddr)
		assert.InDelta(t, 0.9, cfg.DynamicCeiling, 1e-9)
		assert.Equal(t, []string{".promo"}, cfg.NoiseSelectors)
		assert.Equal(t, 64, cfg.CacheSize)
		assert.Equal(t, main.EngineTrafilatura, cfg.ArticleEngine)
		assert.Equal(t, 2*time.Second, cfg.SettleQuiet)
		assert.Equal(t, 10*time.Second, cfg.SettleTimeout)
		assert.Equal(t, 8, cfg.CaptureConcurrency)
		assert.InDelta(t, 0.5, cfg.CaptureRPS, 1e-9)

		policy, err := cfg.Policy()
		require.NoError(t, err)
		assert.True(t, policy.IsDynamicFeed("https://example.com/feed", 0))
		assert.False(t, policy.IsDynamicFeed("https://reddit.com/", 0))
		assert.False(t, policy.IsDynamicFeed("https://example.com/", 0.85))
	})

	t.Run("environment overrides file database path", func(t *testing.T) {
		t.Setenv("WHATCHANGED_DB", "/tmp/from-env.db")
		path := writeConfig(t, `db_path = "/tmp/from-file.db"`)

		cfg, err := main.LoadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, "/tmp/from-env.db", cfg.DBPath)
	})

	t.Run("config path from environment", func(t *testing.T) {
		t.Setenv("WHATCHANGED_DB", "")
		t.Setenv("WHATCHANGED_CONFIG", writeConfig(t, `cache_size = 3`))

		cfg, err := main.LoadConfig("")

		require.NoError(t, err)
		assert.Equal(t, 3, cfg.CacheSize)
	})

	t.Run("defaults keep built-in feed patterns", func(t *testing.T) {
		cfg := main.DefaultConfig()

		policy, err := cfg.Policy()

		require.NoError(t, err)
		assert.True(t, policy.IsDynamicFeed("https://www.reddit.com/", 0))
		assert.InDelta(t, whatchanged.DefaultDynamicCeiling, policy.DynamicCeiling, 1e-9)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := main.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))

		require.Error(t, err)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		_, err := main.LoadConfig(writeConfig(t, `cache_size = [`))

		require.Error(t, err)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		for _, body := range []string{
			`feed_patterns = ["("]`,
			`article_engine = "lynx"`,
			`dynamic_ceiling = 1.5`,
		} {
			_, err := main.LoadConfig(writeConfig(t, body))
			require.Error(t, err, body)
			assert.Equal(t, whatchanged.EINVALID, whatchanged.ErrorCode(err), body)
		}
	})
}
