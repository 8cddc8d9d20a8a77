// Package config provides configuration management for royalty-monitor.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("API: %s\n", cfg.API.BaseURL)
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - API.BaseURL is empty (offline only) or an http(s) URL
// - at least one of API.BaseURL and Sources.ExportDirs is set
// - every duration and every count is > 0
// - Performance.Timezone names a loadable location.
type Config struct {
	// REST API settings
	API APIConfig `yaml:"api"`

	// Offline export directories
	Sources SourcesConfig `yaml:"sources"`

	// Snapshot cache settings
	Storage StorageConfig `yaml:"storage"`

	// Cross-process change signals
	Signals SignalsConfig `yaml:"signals"`

	// Aggregation and view settings
	Performance PerformanceConfig `yaml:"performance"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig contains REST API settings.
type APIConfig struct {
	// Base URL of the backend (empty disables online mode)
	BaseURL string `yaml:"base_url"`

	// Bearer token sent with every request
	Token string `yaml:"token,omitempty"`

	// Per-request timeout
	Timeout time.Duration `yaml:"timeout"`

	// Client-side rate limit
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// Retries for transient failures
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// SourcesConfig contains offline source settings.
type SourcesConfig struct {
	// Directories holding logsheets*/works* JSON exports
	ExportDirs []string `yaml:"export_dirs"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to BoltDB database file
	DBPath string `yaml:"db_path"`

	// How long to wait for the database lock
	Timeout time.Duration `yaml:"timeout"`
}

// SignalsConfig contains change-signal settings.
type SignalsConfig struct {
	// Directory watched for signal files
	Dir string `yaml:"dir"`

	// Per-file debounce interval
	Debounce time.Duration `yaml:"debounce"`

	// Age after which signal files are swept from Dir
	Retention time.Duration `yaml:"retention"`
}

// PerformanceConfig contains aggregation and view settings.
type PerformanceConfig struct {
	// Rows in ranking tables
	TopWorks int `yaml:"top_works"`

	// Rows in the chart view
	ChartWorks int `yaml:"chart_works"`

	// Distinct dates shown by the timeline
	TimelineWindow int `yaml:"timeline_window"`

	// Periodic reload interval of the live monitor
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// IANA zone used for calendar dates ("Local" or "UTC" allowed)
	Timezone string `yaml:"timezone"`
}

// Location loads the configured timezone.
func (p PerformanceConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, p.Timezone)
	}
	return loc, nil
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Output format (table, json, simple)
	Format string `yaml:"format"`

	// Enable colored output
	ColorEnabled bool `yaml:"color_enabled"`

	// Compact output
	Compact bool `yaml:"compact"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	// Validate sources
	if c.API.BaseURL == "" && len(c.Sources.ExportDirs) == 0 {
		return ErrNoSource
	}
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidAPIURL
		}
	}

	// Validate API client config
	if c.API.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.API.RequestsPerSecond <= 0 || c.API.Burst <= 0 {
		return ErrInvalidRateLimit
	}
	if c.API.MaxRetries < 0 || c.API.RetryDelay <= 0 {
		return ErrInvalidRetry
	}

	// Validate storage and signals
	if c.Storage.DBPath == "" {
		return ErrNoDBPath
	}
	if c.Storage.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Signals.Dir == "" {
		return ErrNoSignalDir
	}
	if c.Signals.Debounce <= 0 {
		return ErrInvalidDebounce
	}
	if c.Signals.Retention <= c.Signals.Debounce {
		return ErrInvalidRetention
	}

	// Validate performance config
	if c.Performance.TopWorks <= 0 || c.Performance.ChartWorks <= 0 {
		return ErrInvalidTopWorks
	}
	if c.Performance.TimelineWindow <= 0 {
		return ErrInvalidTimelineWindow
	}
	if c.Performance.RefreshInterval <= 0 {
		return ErrInvalidRefreshInterval
	}
	if _, err := c.Performance.Location(); err != nil {
		return err
	}

	// Validate display config
	validFormats := map[string]bool{
		"table":  true,
		"json":   true,
		"simple": true,
	}
	if !validFormats[c.Display.Format] {
		return ErrInvalidDisplayFormat
	}

	// Validate logging config
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			MaxRetries:        3,
			RetryDelay:        500 * time.Millisecond,
		},
		Sources: SourcesConfig{
			ExportDirs: []string{defaultExportDir()},
		},
		Storage: StorageConfig{
			DBPath:  defaultDBPath(),
			Timeout: time.Second,
		},
		Signals: SignalsConfig{
			Dir:       defaultSignalDir(),
			Debounce:  100 * time.Millisecond,
			Retention: time.Minute,
		},
		Performance: PerformanceConfig{
			TopWorks:        10,
			ChartWorks:      5,
			TimelineWindow:  30,
			RefreshInterval: time.Minute,
			Timezone:        "Local",
		},
		Display: DisplayConfig{
			Format:       "table",
			ColorEnabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
