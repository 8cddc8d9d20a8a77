package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/0xmhha/royalty-monitor/pkg/logger"
	"github.com/0xmhha/royalty-monitor/pkg/watcher"
)

// SignalExt is the extension of signal files.
const SignalExt = ".json"

// maxSignalSize bounds how much of a signal file is read.
const maxSignalSize = 64 * 1024

// WriteSignal writes ev to dir as <unix-nanos>-<id>.json and returns the
// path. The file is written under a hidden temporary name and renamed into
// place so watchers never observe a partial event.
func WriteSignal(dir string, ev Event) (string, error) {
	if dir == "" {
		return "", ErrInvalidDir
	}
	if err := ev.Validate(); err != nil {
		return "", err
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create signal directory: %w", err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".signal-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write signal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close signal: %w", err)
	}

	name := strconv.FormatInt(ev.Timestamp.UnixNano(), 10) + "-" + ev.ID.String() + SignalExt
	path := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to publish signal: %w", err)
	}

	return path, nil
}

// ReadSignal decodes and validates a signal file. At most maxSignalSize
// bytes are read.
func ReadSignal(path string) (Event, error) {
	// #nosec G304: path comes from the signal directory watcher
	f, err := os.Open(path) // nolint:gosec
	if err != nil {
		return Event{}, fmt.Errorf("failed to read signal: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSignalSize+1))
	if err != nil {
		return Event{}, fmt.Errorf("failed to read signal: %w", err)
	}
	if len(data) > maxSignalSize {
		return Event{}, fmt.Errorf("%w: signal file exceeds %d bytes", ErrInvalidEvent, maxSignalSize)
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}

	return ev, nil
}

// DefaultRetention is how long signal files stay in the signal directory.
const DefaultRetention = time.Minute

// BridgeConfig contains bridge configuration.
type BridgeConfig struct {
	// Dir is the signal directory swept by Run. Empty disables sweeping.
	Dir string

	// Retention is the age after which Run removes signal files. Files are
	// never removed on read, so every bridge watching Dir sees every signal.
	// Default: DefaultRetention.
	Retention time.Duration
}

// Bridge republishes signal files reported by a watcher onto a bus.
type Bridge struct {
	bus    *Bus
	config BridgeConfig
	logger logger.Logger
}

// NewBridge creates a bridge that publishes onto bus.
func NewBridge(bus *Bus, cfg BridgeConfig, log logger.Logger) *Bridge {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	return &Bridge{bus: bus, config: cfg, logger: log}
}

// Run consumes watcher events until ctx is done or the channel closes.
// Only created and written files are read; undecodable files are logged
// and skipped. When a directory is configured, expired signal files are
// swept at start and then once per retention period.
func (b *Bridge) Run(ctx context.Context, fileEvents <-chan watcher.Event) error {
	var sweep <-chan time.Time
	if b.config.Dir != "" {
		b.Sweep(time.Now())

		ticker := time.NewTicker(b.config.Retention)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case now := <-sweep:
			b.Sweep(now)

		case fe, ok := <-fileEvents:
			if !ok {
				return nil
			}
			if fe.Op != watcher.OpCreate && fe.Op != watcher.OpWrite {
				continue
			}

			if _, err := b.Handle(fe.Path); err != nil {
				b.logger.Warn("skipping signal file",
					"path", fe.Path,
					"error", err)
			}
		}
	}
}

// Handle reads one signal file and publishes it. It returns the published
// event. The file is left in place for other bridges.
func (b *Bridge) Handle(path string) (Event, error) {
	ev, err := ReadSignal(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			b.logger.Debug("signal file already gone", "path", path)
		}
		return Event{}, err
	}

	published := b.bus.Publish(ev)

	b.logger.Info("signal received",
		"type", published.Type,
		"user_id", published.UserID,
		"seq", published.Seq)

	return published, nil
}

// Sweep removes signal files and abandoned temporary files in the
// configured directory that were last modified more than the retention
// period before now. It returns the number of files removed. Concurrent
// sweeps by other processes are tolerated.
func (b *Bridge) Sweep(now time.Time) int {
	if b.config.Dir == "" {
		return 0
	}

	entries, err := os.ReadDir(b.config.Dir)
	if err != nil {
		b.logger.Warn("failed to read signal directory",
			"dir", b.config.Dir,
			"error", err)
		return 0
	}

	cutoff := now.Add(-b.config.Retention)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !isSignalFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(b.config.Dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				b.logger.Warn("failed to remove expired signal",
					"path", path,
					"error", err)
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		b.logger.Debug("expired signals removed",
			"dir", b.config.Dir,
			"count", removed)
	}

	return removed
}

// isSignalFile matches names produced by WriteSignal, including its
// temporary files.
func isSignalFile(name string) bool {
	if strings.HasPrefix(name, ".signal-") {
		return strings.HasSuffix(name, ".tmp")
	}
	return !strings.HasPrefix(name, ".") && strings.HasSuffix(name, SignalExt)
}
