package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvAPIURL, EnvAPIToken, EnvExportDirs, EnvDBPath, EnvSignalDir, EnvLogLevel} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if len(cfg.Sources.ExportDirs) == 0 {
		t.Error("ExportDirs is empty")
	}
	if cfg.Performance.TopWorks != 10 {
		t.Errorf("TopWorks = %d, want 10", cfg.Performance.TopWorks)
	}
	if cfg.Performance.ChartWorks != 5 {
		t.Errorf("ChartWorks = %d, want 5", cfg.Performance.ChartWorks)
	}
	if cfg.Performance.TimelineWindow != 30 {
		t.Errorf("TimelineWindow = %d, want 30", cfg.Performance.TimelineWindow)
	}
	if cfg.Display.Format != "table" {
		t.Errorf("Format = %q, want table", cfg.Display.Format)
	}
	if cfg.Signals.Retention != time.Minute {
		t.Errorf("Retention = %v, want 1m", cfg.Signals.Retention)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid default config",
			mutate: func(c *Config) {},
		},
		{
			name:   "online only",
			mutate: func(c *Config) { c.API.BaseURL = "https://api.example.org"; c.Sources.ExportDirs = nil },
		},
		{
			name:    "no source",
			mutate:  func(c *Config) { c.Sources.ExportDirs = nil },
			wantErr: ErrNoSource,
		},
		{
			name:    "bad api url",
			mutate:  func(c *Config) { c.API.BaseURL = "ftp://example.org" },
			wantErr: ErrInvalidAPIURL,
		},
		{
			name:    "zero api timeout",
			mutate:  func(c *Config) { c.API.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero burst",
			mutate:  func(c *Config) { c.API.Burst = 0 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.API.MaxRetries = -1 },
			wantErr: ErrInvalidRetry,
		},
		{
			name:    "no db path",
			mutate:  func(c *Config) { c.Storage.DBPath = "" },
			wantErr: ErrNoDBPath,
		},
		{
			name:    "no signal dir",
			mutate:  func(c *Config) { c.Signals.Dir = "" },
			wantErr: ErrNoSignalDir,
		},
		{
			name:    "zero debounce",
			mutate:  func(c *Config) { c.Signals.Debounce = 0 },
			wantErr: ErrInvalidDebounce,
		},
		{
			name:    "retention within debounce",
			mutate:  func(c *Config) { c.Signals.Retention = c.Signals.Debounce },
			wantErr: ErrInvalidRetention,
		},
		{
			name:    "zero chart works",
			mutate:  func(c *Config) { c.Performance.ChartWorks = 0 },
			wantErr: ErrInvalidTopWorks,
		},
		{
			name:    "zero timeline window",
			mutate:  func(c *Config) { c.Performance.TimelineWindow = 0 },
			wantErr: ErrInvalidTimelineWindow,
		},
		{
			name:    "zero refresh interval",
			mutate:  func(c *Config) { c.Performance.RefreshInterval = 0 },
			wantErr: ErrInvalidRefreshInterval,
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Performance.Timezone = "Mars/Olympus" },
			wantErr: ErrInvalidTimezone,
		},
		{
			name:    "invalid display format",
			mutate:  func(c *Config) { c.Display.Format = "xml" },
			wantErr: ErrInvalidDisplayFormat,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPerformanceLocation(t *testing.T) {
	p := PerformanceConfig{Timezone: "UTC"}
	loc, err := p.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc != time.UTC {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}

func TestLoadFromFile_OverlaysDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
api:
  base_url: https://api.example.org
  token: secret
sources:
  export_dirs: [/data/exports]
performance:
  top_works: 20
  refresh_interval: 5m
  timezone: UTC
display:
  color_enabled: false
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.org" || cfg.API.Token != "secret" {
		t.Errorf("API = %+v", cfg.API)
	}
	if !reflect.DeepEqual(cfg.Sources.ExportDirs, []string{"/data/exports"}) {
		t.Errorf("ExportDirs = %v", cfg.Sources.ExportDirs)
	}
	if cfg.Performance.TopWorks != 20 {
		t.Errorf("TopWorks = %d, want 20", cfg.Performance.TopWorks)
	}
	if cfg.Performance.RefreshInterval != 5*time.Minute {
		t.Errorf("RefreshInterval = %v, want 5m", cfg.Performance.RefreshInterval)
	}
	if cfg.Display.ColorEnabled {
		t.Error("ColorEnabled should be overridden to false")
	}

	// Keys missing from the file keep defaults.
	if cfg.Performance.ChartWorks != 5 {
		t.Errorf("ChartWorks = %d, want default 5", cfg.Performance.ChartWorks)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default 30s", cfg.API.Timeout)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	clearEnv(t)

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("missing file error = %v, want ErrConfigNotFound", err)
	}

	_, err = LoadFromFile(writeConfig(t, "performance: [unclosed"))
	if !errors.Is(err, ErrInvalidYAML) {
		t.Errorf("bad yaml error = %v, want ErrInvalidYAML", err)
	}

	_, err = LoadFromFile(writeConfig(t, "performance:\n  top_songs: 3\n"))
	if !errors.Is(err, ErrInvalidYAML) {
		t.Errorf("unknown key error = %v, want ErrInvalidYAML", err)
	}

	_, err = LoadFromFile(writeConfig(t, "display:\n  format: xml\n"))
	if !errors.Is(err, ErrInvalidDisplayFormat) {
		t.Errorf("invalid value error = %v, want ErrInvalidDisplayFormat", err)
	}
}

func TestLoadFromFile_Empty(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromFile(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("empty file should yield defaults, got %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIURL, " https://env.example.org ")
	t.Setenv(EnvAPIToken, "env-token")
	t.Setenv(EnvExportDirs, "/a, /b ,,")
	t.Setenv(EnvDBPath, "/tmp/env.db")
	t.Setenv(EnvSignalDir, "/tmp/signals")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := LoadFromFile(writeConfig(t, "api:\n  base_url: https://file.example.org\n"))
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.API.BaseURL != "https://env.example.org" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("Token = %q", cfg.API.Token)
	}
	if !reflect.DeepEqual(cfg.Sources.ExportDirs, []string{"/a", "/b"}) {
		t.Errorf("ExportDirs = %v", cfg.Sources.ExportDirs)
	}
	if cfg.Storage.DBPath != "/tmp/env.db" {
		t.Errorf("DBPath = %q", cfg.Storage.DBPath)
	}
	if cfg.Signals.Dir != "/tmp/signals" {
		t.Errorf("Signals.Dir = %q", cfg.Signals.Dir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	clearEnv(t)

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	cfg, err := LoadFromFile(writeConfig(t, `
sources:
  export_dirs: ["~/exports", /abs]
storage:
  db_path: ~/cache.db
signals:
  dir: ~
`))
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	want := []string{filepath.Join(home, "exports"), "/abs"}
	if !reflect.DeepEqual(cfg.Sources.ExportDirs, want) {
		t.Errorf("ExportDirs = %v, want %v", cfg.Sources.ExportDirs, want)
	}
	if cfg.Storage.DBPath != filepath.Join(home, "cache.db") {
		t.Errorf("DBPath = %q", cfg.Storage.DBPath)
	}
	if cfg.Signals.Dir != home {
		t.Errorf("Signals.Dir = %q, want %q", cfg.Signals.Dir, home)
	}
}

func TestSave(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	cfg.API.BaseURL = "https://api.example.org"
	cfg.Performance.TimelineWindow = 14
	cfg.Signals.Debounce = 250 * time.Millisecond

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}

	cfg.Display.Format = "xml"
	if err := Save(cfg, path); !errors.Is(err, ErrInvalidDisplayFormat) {
		t.Errorf("Save(invalid) error = %v", err)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.API.Token = "secret"

	r := Redacted(cfg)
	if r.API.Token == "secret" {
		t.Error("token not redacted")
	}
	if cfg.API.Token != "secret" {
		t.Error("Redacted modified the original")
	}
}

func TestPath(t *testing.T) {
	if got := NewLoader("/explicit.yaml").Path(); got != "/explicit.yaml" {
		t.Errorf("Path() = %q", got)
	}
}
