package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/royalty-monitor/pkg/logger"
)

// watcher implements the Watcher interface using fsnotify.
type watcher struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config

	events chan Event
	errors chan error

	mu       sync.RWMutex
	running  bool
	stopped  bool
	closed   bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Debouncing state.
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// Circuit breaker state.
	failureCount int
}

// New creates a new file system watcher.
//
// Parameters:
//   - cfg: Watcher configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Watcher
//   - Error if watcher cannot be created
func New(cfg Config, log logger.Logger) (Watcher, error) {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".json"}
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &watcher{
		fsw:            fsw,
		logger:         log,
		config:         cfg,
		events:         make(chan Event, cfg.BufferSize),
		errors:         make(chan error, 10),
		stopChan:       make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
	}

	log.Debug("file watcher created",
		"debounce_interval", cfg.DebounceInterval,
		"extensions", cfg.Extensions)

	return w, nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(ctx context.Context, paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.running || w.stopped {
		return ErrAlreadyStarted
	}

	expandedPaths := make([]string, 0, len(paths))
	for _, path := range paths {
		expanded := expandHome(path)

		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				w.logger.Warn("watch path does not exist, skipping",
					"path", expanded)
				continue
			}
			return fmt.Errorf("failed to stat path %s: %w", expanded, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, expanded)
		}

		expandedPaths = append(expandedPaths, expanded)
	}

	if len(expandedPaths) == 0 {
		return ErrInvalidPath
	}

	for _, path := range expandedPaths {
		if err := w.addPath(path); err != nil {
			return fmt.Errorf("failed to add path %s: %w", path, err)
		}
	}

	w.running = true

	w.logger.Info("watcher started",
		"paths", expandedPaths,
		"path_count", len(expandedPaths))

	w.wg.Add(1)
	go w.processEvents(ctx)

	return nil
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if !w.running {
		w.mu.Unlock()
		return ErrNotStarted
	}

	close(w.stopChan)
	w.running = false
	w.stopped = true
	w.mu.Unlock()

	w.wg.Wait()

	w.logger.Info("watcher stopped")
	return nil
}

// Events implements Watcher.Events.
func (w *watcher) Events() <-chan Event {
	return w.events
}

// Errors implements Watcher.Errors.
func (w *watcher) Errors() <-chan error {
	return w.errors
}

// Close implements Watcher.Close.
func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	if w.running {
		close(w.stopChan)
		w.running = false
		w.stopped = true
	}
	w.mu.Unlock()

	// The processing goroutine must exit before the channels close.
	w.wg.Wait()

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	w.debounceTimers = map[string]*time.Timer{}
	w.debounceMu.Unlock()

	// Taking the write lock waits out any timer callback still emitting.
	w.mu.Lock()
	w.closed = true
	close(w.events)
	close(w.errors)
	w.mu.Unlock()

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Debug("watcher closed")
	return nil
}

// processEvents handles events from fsnotify.
func (w *watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("event processing stopped", "reason", "context cancelled")
			return

		case <-w.stopChan:
			w.logger.Debug("event processing stopped", "reason", "stop signal")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("fsnotify events channel closed")
				return
			}

			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("fsnotify errors channel closed")
				return
			}

			w.handleError(err)
		}
	}
}

// handleEvent filters a single fsnotify event and debounces it.
func (w *watcher) handleEvent(event fsnotify.Event) {
	if !w.matches(event.Name) {
		return
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	case event.Has(fsnotify.Chmod):
		op = OpChmod
	default:
		w.logger.Debug("unknown fsnotify operation",
			"op", event.Op,
			"path", event.Name)
		return
	}

	w.debounceEvent(Event{
		Path:      event.Name,
		Op:        op,
		Timestamp: time.Now(),
	})
}

// matches reports whether path has a watched extension. Hidden files are
// ignored so temp files of atomic writes never surface.
func (w *watcher) matches(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	for _, ext := range w.config.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// debounceEvent restarts the timer for event.Path.
func (w *watcher) debounceEvent(event Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[event.Path]; exists {
		timer.Stop()
	}

	w.debounceTimers[event.Path] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.emit(event)

		w.debounceMu.Lock()
		delete(w.debounceTimers, event.Path)
		w.debounceMu.Unlock()
	})
}

// emit delivers event without blocking. It holds the read lock so Close
// cannot close the channel mid-send.
func (w *watcher) emit(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return
	}

	select {
	case w.events <- event:
	default:
		w.logger.Warn("event channel full, dropping event", "path", event.Path)
	}
}

// handleError processes fsnotify errors with a circuit breaker.
func (w *watcher) handleError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.failureCount++

	w.logger.Error("fsnotify error",
		"error", err,
		"failure_count", w.failureCount)

	if w.failureCount >= w.config.CircuitBreakerThreshold {
		if w.failureCount == w.config.CircuitBreakerThreshold {
			w.logger.Error("circuit breaker opened",
				"threshold", w.config.CircuitBreakerThreshold)
			w.sendError(ErrCircuitBreakerOpen)
		}
		return
	}

	w.sendError(err)
}

// sendError forwards err without blocking. Callers hold w.mu.
func (w *watcher) sendError(err error) {
	if w.closed {
		return
	}
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("error channel full, dropping error")
	}
}

// addPath registers path and, when configured, its subdirectories.
func (w *watcher) addPath(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("failed to add path: %w", err)
	}

	w.logger.Debug("added watch path", "path", path)

	if !w.config.Recursive {
		return nil
	}

	return filepath.Walk(path, func(subPath string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("error walking path",
				"path", subPath,
				"error", err)
			return nil // Skip but continue walking.
		}

		if !info.IsDir() || subPath == path {
			return nil
		}

		if addErr := w.fsw.Add(subPath); addErr != nil {
			w.logger.Warn("failed to add subdirectory",
				"path", subPath,
				"error", addErr)
			return nil
		}

		w.logger.Debug("added watch subdirectory", "path", subPath)
		return nil
	})
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
