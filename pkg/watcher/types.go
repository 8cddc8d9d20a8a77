// Package watcher reports changes to files in a set of directories.
//
// It wraps fsnotify with an extension filter, per-path debouncing to
// coalesce rapid writes, and a circuit breaker that stops forwarding
// errors after repeated fsnotify failures. The performance monitor uses it
// to pick up signal files dropped by other processes.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    DebounceInterval: 100 * time.Millisecond,
//	    Extensions:       []string{".json"},
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, []string{"~/.config/royalty-monitor/signals"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range w.Events() {
//	    fmt.Printf("File %s: %s\n", event.Path, event.Op)
//	}
package watcher

import (
	"context"
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota // File created
	OpWrite                 // File modified
	OpRemove                // File deleted
	OpRename                // File renamed/moved
	OpChmod                 // File permissions changed
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Event represents a file system event.
type Event struct {
	// Path is the path of the file that triggered the event.
	Path string

	// Op is the last operation seen for Path within the debounce interval.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Watcher provides file system monitoring.
type Watcher interface {
	// Start begins watching the specified directories. Missing directories
	// are skipped; ErrInvalidPath is returned when none exist.
	//
	// Start returns once the watches are registered. Events are delivered
	// until ctx is cancelled or Stop/Close is called.
	Start(ctx context.Context, paths []string) error

	// Stop stops event processing. The watcher cannot be restarted.
	Stop() error

	// Events returns the channel of debounced events.
	// The channel is closed by Close.
	Events() <-chan Event

	// Errors returns the channel of non-fatal errors.
	// The channel is closed by Close.
	Errors() <-chan error

	// Close stops the watcher and releases resources. Safe to call twice.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval is the time to wait before emitting an event.
	// Multiple events for the same file within this interval are coalesced.
	// Default: 100ms.
	DebounceInterval time.Duration

	// Extensions restricts events to files with these suffixes.
	// Default: [".json"].
	Extensions []string

	// Recursive also watches subdirectories present at Start.
	Recursive bool

	// CircuitBreakerThreshold is the number of fsnotify failures after
	// which individual errors are no longer forwarded.
	// Default: 5.
	CircuitBreakerThreshold int

	// BufferSize is the capacity of the events channel.
	// Default: 100.
	BufferSize int
}
