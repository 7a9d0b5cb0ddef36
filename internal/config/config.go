package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxBatchSize is the most revids the API accepts in one query from a
// client without the apihighlimits right.
const MaxBatchSize = 50

// Config holds all pending-subs configuration.
type Config struct {
	// Wiki API
	APIRoot         string `yaml:"api_root"`
	UserAgent       string `yaml:"user_agent"`
	StatsPage       string `yaml:"stats_page"`
	Sentinel        string `yaml:"sentinel"`
	PendingCategory string `yaml:"pending_category"`
	HTTPTimeout     string `yaml:"http_timeout"`

	// Reconciliation
	BatchSize            int `yaml:"batch_size"`
	MaxConcurrentBatches int `yaml:"max_concurrent_batches"` // 0 = unbounded

	// Titles that are never listed even when present on the stats page
	ExcludedTitles []string `yaml:"excluded_titles"`

	// Dashboard
	Listen          string `yaml:"listen"`
	RefreshInterval string `yaml:"refresh_interval"` // "" or "0" disables periodic refresh
	DatabasePath    string `yaml:"database_path"`    // "" disables snapshot persistence

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		APIRoot:         "https://en.wikipedia.org/w/api.php",
		UserAgent:       "pending-subs/1.0 (https://github.com/APerson241/pending-subs)",
		StatsPage:       "Template:AfC statistics",
		Sentinel:        "{{AfC statistics/row",
		PendingCategory: "Category:Pending AfC submissions",
		HTTPTimeout:     "30s",

		BatchSize:            50,
		MaxConcurrentBatches: 4,

		ExcludedTitles: []string{
			"Wikipedia:Articles for creation/Redirects",
			"Wikipedia:Files for upload",
		},

		Listen:          ":8080",
		RefreshInterval: "15m",

		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file on top of the defaults, then applies
// environment overrides. An empty path yields defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PENDINGSUBS_API_ROOT"); v != "" {
		c.APIRoot = v
	}
	if v := os.Getenv("PENDINGSUBS_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("PENDINGSUBS_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("PENDINGSUBS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIRoot) == "" {
		return fmt.Errorf("api_root must be set")
	}
	if strings.TrimSpace(c.StatsPage) == "" {
		return fmt.Errorf("stats_page must be set")
	}
	if strings.TrimSpace(c.Sentinel) == "" {
		return fmt.Errorf("sentinel must be set")
	}
	if strings.TrimSpace(c.PendingCategory) == "" {
		return fmt.Errorf("pending_category must be set")
	}
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch_size must be between 1 and %d, got %d", MaxBatchSize, c.BatchSize)
	}
	if c.MaxConcurrentBatches < 0 {
		return fmt.Errorf("max_concurrent_batches must be >= 0")
	}
	if _, err := c.GetHTTPTimeout(); err != nil {
		return err
	}
	if _, err := c.GetRefreshInterval(); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

// GetHTTPTimeout returns the per-request client timeout.
func (c *Config) GetHTTPTimeout() (time.Duration, error) {
	if c.HTTPTimeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid http_timeout %q: %w", c.HTTPTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("http_timeout must be positive")
	}
	return d, nil
}

// GetRefreshInterval returns the periodic refresh interval; zero disables it.
func (c *Config) GetRefreshInterval() (time.Duration, error) {
	if c.RefreshInterval == "" || c.RefreshInterval == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid refresh_interval %q: %w", c.RefreshInterval, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("refresh_interval must not be negative")
	}
	return d, nil
}
