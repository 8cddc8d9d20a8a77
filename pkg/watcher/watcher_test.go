package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/0xmhha/royalty-monitor/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// startWatcher creates a watcher over dir and registers cleanup.
func startWatcher(t *testing.T, cfg Config, dir string) Watcher {
	t.Helper()

	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 50 * time.Millisecond
	}

	w, err := New(cfg, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		if closeErr := w.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	})

	if startErr := w.Start(ctx, []string{dir}); startErr != nil {
		t.Fatalf("Start() error = %v", startErr)
	}

	return w
}

func waitEvent(t *testing.T, w Watcher) Event {
	t.Helper()

	select {
	case event := <-w.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

// drainEvents drains all pending events from a channel.
func drainEvents(ch <-chan Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func TestNew(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}
}

func TestStartInvalidPath(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close() //nolint:errcheck

	startErr := w.Start(context.Background(), []string{filepath.Join(tmpDir, "nonexistent")})
	if !errors.Is(startErr, ErrInvalidPath) {
		t.Errorf("Start() error = %v, want ErrInvalidPath", startErr)
	}

	file := filepath.Join(tmpDir, "file.json")
	if writeErr := os.WriteFile(file, []byte("{}"), 0600); writeErr != nil {
		t.Fatal(writeErr)
	}
	if startErr := w.Start(context.Background(), []string{file}); !errors.Is(startErr, ErrInvalidPath) {
		t.Errorf("Start(file) error = %v, want ErrInvalidPath", startErr)
	}
}

func TestStartAlreadyStarted(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, Config{}, tmpDir)

	if startErr := w.Start(context.Background(), []string{tmpDir}); startErr != ErrAlreadyStarted {
		t.Errorf("Start() error = %v, want ErrAlreadyStarted", startErr)
	}
}

func TestFileCreate(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, Config{}, tmpDir)

	testFile := filepath.Join(tmpDir, "signal.json")
	if writeErr := os.WriteFile(testFile, []byte("{}"), 0600); writeErr != nil {
		t.Fatalf("Failed to create test file: %v", writeErr)
	}

	event := waitEvent(t, w)
	if event.Path != testFile {
		t.Errorf("Event path = %s, want %s", event.Path, testFile)
	}
	if event.Op != OpCreate && event.Op != OpWrite {
		t.Errorf("Event op = %s, want CREATE or WRITE", event.Op)
	}
}

func TestRenameIntoPlace(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, Config{}, tmpDir)

	tmp := filepath.Join(tmpDir, ".signal.json.tmp")
	final := filepath.Join(tmpDir, "signal.json")
	if err := os.WriteFile(tmp, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, final); err != nil {
		t.Fatal(err)
	}

	event := waitEvent(t, w)
	if event.Path != final {
		t.Errorf("Event path = %s, want %s", event.Path, final)
	}
}

func TestFileDelete(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "signal.json")
	if err := os.WriteFile(testFile, []byte("{}"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	w := startWatcher(t, Config{}, tmpDir)

	if removeErr := os.Remove(testFile); removeErr != nil {
		t.Fatalf("Failed to delete test file: %v", removeErr)
	}

	event := waitEvent(t, w)
	if event.Op != OpRemove {
		t.Errorf("Event op = %s, want REMOVE", event.Op)
	}
}

func TestDebouncing(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, Config{DebounceInterval: 200 * time.Millisecond}, tmpDir)

	testFile := filepath.Join(tmpDir, "signal.json")
	if writeErr := os.WriteFile(testFile, []byte("initial"), 0600); writeErr != nil {
		t.Fatalf("Failed to create test file: %v", writeErr)
	}

	time.Sleep(500 * time.Millisecond)
	drainEvents(w.Events())

	for i := 0; i < 5; i++ {
		if writeErr := os.WriteFile(testFile, []byte("content"), 0600); writeErr != nil {
			t.Fatalf("Failed to write test file: %v", writeErr)
		}
		time.Sleep(30 * time.Millisecond) // Less than debounce interval.
	}

	eventCount := 0
	timeout := time.After(1 * time.Second)
loop:
	for {
		select {
		case <-w.Events():
			eventCount++
		case <-timeout:
			break loop
		}
	}

	if eventCount == 0 {
		t.Error("No events received, debouncing may be too aggressive")
	}
	if eventCount >= 5 {
		t.Errorf("Received %d events for 5 rapid writes, debouncing not working", eventCount)
	}
}

func TestFilteredFilesIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, Config{}, tmpDir)

	for _, name := range []string{"notes.txt", "export.jsonl", ".hidden.json"} {
		if writeErr := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0600); writeErr != nil {
			t.Fatalf("Failed to create %s: %v", name, writeErr)
		}
	}

	select {
	case event := <-w.Events():
		t.Errorf("Received unexpected event: %v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestCustomExtensions(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, Config{Extensions: []string{".jsonl"}}, tmpDir)

	testFile := filepath.Join(tmpDir, "logsheets.jsonl")
	if writeErr := os.WriteFile(testFile, []byte("{}\n"), 0600); writeErr != nil {
		t.Fatal(writeErr)
	}

	if event := waitEvent(t, w); event.Path != testFile {
		t.Errorf("Event path = %s, want %s", event.Path, testFile)
	}
}

func TestSubdirectoryWatching(t *testing.T) {
	tmpDir := t.TempDir()

	subDir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subDir, 0700); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	w := startWatcher(t, Config{Recursive: true}, tmpDir)

	testFile := filepath.Join(subDir, "signal.json")
	if writeErr := os.WriteFile(testFile, []byte("{}"), 0600); writeErr != nil {
		t.Fatalf("Failed to create test file: %v", writeErr)
	}

	if event := waitEvent(t, w); event.Path != testFile {
		t.Errorf("Event path = %s, want %s", event.Path, testFile)
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
		{Op(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op.String() = %s, want %s", got, tt.want)
		}
	}
}

func TestStopNotStarted(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close() //nolint:errcheck

	if stopErr := w.Stop(); stopErr != ErrNotStarted {
		t.Errorf("Stop() error = %v, want ErrNotStarted", stopErr)
	}
}

func TestStopThenClose(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if startErr := w.Start(context.Background(), []string{tmpDir}); startErr != nil {
		t.Fatalf("Start() error = %v", startErr)
	}

	if stopErr := w.Stop(); stopErr != nil {
		t.Errorf("Stop() error = %v", stopErr)
	}
	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}

	if _, ok := <-w.Events(); ok {
		t.Error("Events() channel not closed after Close()")
	}
}

func TestCloseTwice(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("First Close() error = %v", closeErr)
	}
	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Second Close() error = %v", closeErr)
	}
}

func TestStartAfterClose(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}

	if startErr := w.Start(context.Background(), []string{t.TempDir()}); startErr != ErrWatcherClosed {
		t.Errorf("Start() error = %v, want ErrWatcherClosed", startErr)
	}
}
