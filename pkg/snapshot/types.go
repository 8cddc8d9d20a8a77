// Package snapshot persists the raw inputs of the last successful refresh
// so the performance views can still render when the API is unreachable.
//
// Only fetched log sheets and works are stored. Aggregates are always
// recomputed from a snapshot and never written to disk.
//
// Example usage:
//
//	store, err := snapshot.New(snapshot.Config{
//	    DBPath: "~/.config/royalty-monitor/cache.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	if err := store.Save(snapshot.ArtistKey(7), &snapshot.Snapshot{
//	    Records: sheets,
//	    Works:   works,
//	}); err != nil {
//	    log.Fatal(err)
//	}
package snapshot

import (
	"time"

	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
)

// Snapshot is one cached fetch.
type Snapshot struct {
	// Key identifies the view the snapshot was fetched for.
	Key string `json:"key"`

	// Records are the fetched log sheets.
	Records []logsheet.UsageRecord `json:"records"`

	// Works are the fetched catalogue works.
	Works []logsheet.Work `json:"works"`

	// FetchedAt is when the inputs were fetched. Save sets it when zero.
	FetchedAt time.Time `json:"fetched_at"`
}

// Entry describes a stored snapshot without its payload.
type Entry struct {
	Key       string    `json:"key"`
	Records   int       `json:"records"`
	Works     int       `json:"works"`
	FetchedAt time.Time `json:"fetched_at"`
	SavedAt   time.Time `json:"saved_at"`
}

// Store provides snapshot CRUD operations.
type Store interface {
	// Save stores snap under key, replacing any previous snapshot.
	//
	// Returns ErrInvalidKey for malformed keys and ErrInvalidSnapshot for a
	// nil snapshot.
	Save(key string, snap *Snapshot) error

	// Load returns the snapshot stored under key, or ErrNotFound.
	Load(key string) (*Snapshot, error)

	// Delete removes the snapshot stored under key.
	// Does not error if the key doesn't exist.
	Delete(key string) error

	// List returns every stored entry ordered by key.
	List() ([]Entry, error)

	// Close closes the database and releases resources.
	Close() error
}

// Config contains snapshot store configuration.
type Config struct {
	// DBPath is the bbolt file path. A leading ~ is expanded.
	DBPath string

	// Timeout is how long Open waits for the file lock (default: 1 second).
	Timeout time.Duration
}
