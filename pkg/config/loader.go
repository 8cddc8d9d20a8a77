package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvAPIURL     = "ROYALTY_MONITOR_API_URL"
	EnvAPIToken   = "ROYALTY_MONITOR_API_TOKEN"
	EnvExportDirs = "ROYALTY_MONITOR_EXPORT_DIRS"
	EnvDBPath     = "ROYALTY_MONITOR_DB"
	EnvSignalDir  = "ROYALTY_MONITOR_SIGNAL_DIR"
	EnvLogLevel   = "ROYALTY_MONITOR_LOG_LEVEL"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile returns the defaults overlaid with the settings in path.
	// The result is not validated.
	LoadFromFile(path string) (*Config, error)

	// Path returns the file Load reads, or "" when none exists.
	Path() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, searches for config file in:
// 1. ./config.yaml (current directory)
// 2. ~/.config/royalty-monitor/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	// Start with default configuration
	cfg := Default()

	// Load from file if it exists
	if configPath := l.Path(); configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// If file is specified but can't be loaded, return error
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
			// Otherwise, just use defaults
		} else {
			cfg = fileCfg
		}
	}

	// Apply environment variable overrides
	cfg = l.applyEnvVars(cfg)
	expandPaths(cfg)

	// Validate final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
//
// Keys missing from the file keep their default values.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return cfg, nil
}

// Path implements Loader.Path.
func (l *loader) Path() string {
	if l.configPath != "" {
		return l.configPath
	}
	return l.findConfigFile()
}

// findConfigFile searches for a config file in standard locations.
//
// Searches in order:
// 1. ./config.yaml
// 2. ~/.config/royalty-monitor/config.yaml
//
// Returns empty string if no config file is found.
func (l *loader) findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		DefaultConfigPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - ROYALTY_MONITOR_API_URL: API base URL
//   - ROYALTY_MONITOR_API_TOKEN: API bearer token
//   - ROYALTY_MONITOR_EXPORT_DIRS: Comma-separated export directories
//   - ROYALTY_MONITOR_DB: Path to database file
//   - ROYALTY_MONITOR_SIGNAL_DIR: Signal directory
//   - ROYALTY_MONITOR_LOG_LEVEL: Log level
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if apiURL := os.Getenv(EnvAPIURL); apiURL != "" {
		result.API.BaseURL = strings.TrimSpace(apiURL)
	}

	if token := os.Getenv(EnvAPIToken); token != "" {
		result.API.Token = token
	}

	// Comma-separated paths
	if envDirs := os.Getenv(EnvExportDirs); envDirs != "" {
		var dirs []string
		for _, dir := range strings.Split(envDirs, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				dirs = append(dirs, dir)
			}
		}
		result.Sources.ExportDirs = dirs
	}

	if dbPath := os.Getenv(EnvDBPath); dbPath != "" {
		result.Storage.DBPath = dbPath
	}

	if signalDir := os.Getenv(EnvSignalDir); signalDir != "" {
		result.Signals.Dir = signalDir
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result
}

// expandPaths expands a leading ~ in every configured path.
func expandPaths(cfg *Config) {
	dirs := make([]string, len(cfg.Sources.ExportDirs))
	for i, dir := range cfg.Sources.ExportDirs {
		dirs[i] = expandHome(dir)
	}
	cfg.Sources.ExportDirs = dirs
	cfg.Storage.DBPath = expandHome(cfg.Storage.DBPath)
	cfg.Signals.Dir = expandHome(cfg.Signals.Dir)
}

// expandHome expands ~ to the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}

// Load is a convenience function that creates a loader and loads configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
//
// Equivalent to:
//
//	loader := NewLoader(path)
//	return loader.Load()
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy of cfg that is safe to print.
func Redacted(cfg *Config) *Config {
	result := *cfg
	if result.API.Token != "" {
		result.API.Token = "********"
	}
	result.Sources.ExportDirs = append([]string(nil), cfg.Sources.ExportDirs...)
	return &result
}
