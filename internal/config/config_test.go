package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PENDINGSUBS_API_ROOT", "")
	t.Setenv("PENDINGSUBS_LISTEN", "")
	t.Setenv("PENDINGSUBS_DB", "")
	t.Setenv("PENDINGSUBS_LOG_LEVEL", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, "Category:Pending AfC submissions", cfg.PendingCategory)
	assert.Len(t, cfg.ExcludedTitles, 2)

	timeout, err := cfg.GetHTTPTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PENDINGSUBS_API_ROOT", "")
	path := writeConfig(t, `
api_root: https://test.wikipedia.org/w/api.php
batch_size: 20
max_concurrent_batches: 0
refresh_interval: "0"
excluded_titles: []
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://test.wikipedia.org/w/api.php", cfg.APIRoot)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 0, cfg.MaxConcurrentBatches)
	assert.Empty(t, cfg.ExcludedTitles)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, "{{AfC statistics/row", cfg.Sentinel)

	interval, err := cfg.GetRefreshInterval()
	require.NoError(t, err)
	assert.Zero(t, interval)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PENDINGSUBS_API_ROOT", "http://localhost:9999/api.php")
	t.Setenv("PENDINGSUBS_LISTEN", "127.0.0.1:0")
	t.Setenv("PENDINGSUBS_DB", "/tmp/subs.db")
	t.Setenv("PENDINGSUBS_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/api.php", cfg.APIRoot)
	assert.Equal(t, "127.0.0.1:0", cfg.Listen)
	assert.Equal(t, "/tmp/subs.db", cfg.DatabasePath)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	t.Run("batch size bounds", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BatchSize = 0
		assert.Error(t, cfg.Validate())
		cfg.BatchSize = MaxBatchSize + 1
		assert.Error(t, cfg.Validate(), "the API rejects more revids per query")
		cfg.BatchSize = MaxBatchSize
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HTTPTimeout = "soon"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = "chatty"
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
