package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/0xmhha/royalty-monitor/pkg/aggregator"
	"github.com/0xmhha/royalty-monitor/pkg/apiclient"
	"github.com/0xmhha/royalty-monitor/pkg/config"
	"github.com/0xmhha/royalty-monitor/pkg/discovery"
	"github.com/0xmhha/royalty-monitor/pkg/display"
	"github.com/0xmhha/royalty-monitor/pkg/logger"
	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
	"github.com/0xmhha/royalty-monitor/pkg/refresh"
	"github.com/0xmhha/royalty-monitor/pkg/snapshot"
)

// app holds the global flags and the components shared by every command.
type app struct {
	configPath string
	offline    bool
	format     string

	cfg    *config.Config
	source string
	log    logger.Logger
}

// init loads the configuration and the logger. stderr receives log output
// when logging goes to stderr.
func (a *app) init(stderr io.Writer) error {
	loader := config.NewLoader(a.configPath)

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if a.format != "" {
		format, ok := display.ParseFormat(a.format)
		if !ok {
			return fmt.Errorf("%w: %q", config.ErrInvalidDisplayFormat, a.format)
		}
		cfg.Display.Format = string(format)
	}

	if a.offline && len(cfg.Sources.ExportDirs) == 0 {
		return fmt.Errorf("--offline requires sources.export_dirs: %w", config.ErrNoSource)
	}

	a.cfg = cfg
	a.source = loader.Path()
	a.log = newLogger(cfg.Logging, stderr)

	return nil
}

// newLogger builds the application logger. Output "stderr" is routed to
// stderr so command output and logs stay separable.
func newLogger(cfg config.LoggingConfig, stderr io.Writer) logger.Logger {
	logCfg := logger.Config{
		Level:  cfg.Level,
		Output: cfg.Output,
		Format: cfg.Format,
	}

	if cfg.Output == "" || cfg.Output == "stderr" {
		return logger.NewWithWriter(stderr, logCfg)
	}
	return logger.New(logCfg)
}

// formatter returns the configured formatter for w. Colors are only used
// on a terminal.
func (a *app) formatter(w io.Writer) display.Formatter {
	format, _ := display.ParseFormat(a.cfg.Display.Format)

	return display.New(display.Config{
		Format:  format,
		Color:   a.cfg.Display.ColorEnabled && isTerminal(w),
		Compact: a.cfg.Display.Compact,
	})
}

// location returns the calendar used for date keys.
func (a *app) location() *time.Location {
	loc, err := a.cfg.Performance.Location()
	if err != nil {
		return time.Local
	}
	return loc
}

// openCache opens the snapshot store. The views still work without it, so
// a failure is only logged and a nil store is returned.
func (a *app) openCache() snapshot.Store {
	store, err := snapshot.New(snapshot.Config{
		DBPath:  a.cfg.Storage.DBPath,
		Timeout: a.cfg.Storage.Timeout,
	}, a.log)
	if err != nil {
		a.log.Warn("snapshot cache unavailable",
			"path", a.cfg.Storage.DBPath,
			"error", err)
		return nil
	}
	return store
}

// closeCache closes store when it was opened.
func (a *app) closeCache(store snapshot.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		a.log.Error("failed to close snapshot cache", "error", err)
	}
}

// newSource returns the data source of a view. Offline mode, or a missing
// API URL, reads the export directories.
func (a *app) newSource(userID int64) (refresh.Source, error) {
	if a.offline || a.cfg.API.BaseURL == "" {
		d := discovery.New(a.cfg.Sources.ExportDirs, a.log)
		return discovery.NewSource(d, logsheet.NewParser(a.log), userID, a.log), nil
	}

	client, err := apiclient.New(apiclient.Config{
		BaseURL:           a.cfg.API.BaseURL,
		Token:             a.cfg.API.Token,
		Timeout:           a.cfg.API.Timeout,
		RequestsPerSecond: a.cfg.API.RequestsPerSecond,
		Burst:             a.cfg.API.Burst,
		MaxRetries:        a.cfg.API.MaxRetries,
		RetryDelay:        a.cfg.API.RetryDelay,
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	view := apiclient.ViewAdmin
	if userID != 0 {
		view = apiclient.ViewArtist
	}

	return apiclient.NewSource(client, view, userID)
}

// newLoader returns a refresh loader for the view of userID (0 = admin).
func (a *app) newLoader(userID int64, cache snapshot.Store) (*refresh.Loader, error) {
	source, err := a.newSource(userID)
	if err != nil {
		return nil, err
	}

	return refresh.New(source, refresh.Options{
		Cache:    cache,
		CacheKey: snapshot.KeyFor(userID),
	}, a.log), nil
}

// fetch loads the inputs of the view of userID once and aggregates them.
func (a *app) fetch(ctx context.Context, userID int64) (*refresh.Snapshot, aggregator.Result, error) {
	cache := a.openCache()
	defer a.closeCache(cache)

	loader, err := a.newLoader(userID, cache)
	if err != nil {
		return nil, aggregator.Result{}, err
	}

	snap, err := loader.Load(ctx)
	if err != nil {
		return nil, aggregator.Result{}, fmt.Errorf("failed to load performance data: %w", err)
	}

	if snap.Degraded {
		a.log.Warn("showing partial data",
			"errors", len(snap.Errors),
			"fetched_at", snap.FetchedAt)
	}

	result := aggregator.Aggregate(snap.Records, aggregator.Options{
		ScopeUserID: userID,
		Location:    a.location(),
	})

	return snap, result, nil
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
}
