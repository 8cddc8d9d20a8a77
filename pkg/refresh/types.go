// Package refresh loads the inputs of the performance views.
//
// Each Load issues a new generation token. Responses that finish after a
// newer load was issued are discarded with ErrStale, so a slow request can
// never overwrite fresher data. Failed fetches degrade to the cached
// snapshot, or to empty lists, instead of failing the load.
//
// Example usage:
//
//	loader := refresh.New(source, refresh.Options{
//	    Cache:    store,
//	    CacheKey: snapshot.ArtistKey(7),
//	}, logger.Default())
//
//	snap, err := loader.Load(ctx)
//	if errors.Is(err, refresh.ErrStale) {
//	    return // a newer load owns the view
//	}
package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
	"github.com/0xmhha/royalty-monitor/pkg/snapshot"
)

// ErrStale is returned by Load when a newer load was issued before this
// one completed.
var ErrStale = errors.New("stale load discarded")

// Source fetches the raw inputs.
type Source interface {
	// LogSheets returns the usage records visible to the view.
	LogSheets(ctx context.Context) ([]logsheet.UsageRecord, error)

	// Works returns the catalogue visible to the view.
	Works(ctx context.Context) ([]logsheet.Work, error)
}

// Options configures a Loader.
type Options struct {
	// Cache, when set, supplies fallbacks for failed fetches and receives
	// every complete load.
	Cache snapshot.Store

	// CacheKey is the cache entry of this view. Default: snapshot.AdminKey.
	CacheKey string
}

// Snapshot is the committed result of one load.
type Snapshot struct {
	// Generation is the token the load was issued with.
	Generation uint64

	Records []logsheet.UsageRecord
	Works   []logsheet.Work

	// FetchedAt is when the inputs were fetched. For inputs restored from
	// the cache it is the time of the cached fetch.
	FetchedAt time.Time

	// Degraded is set when at least one fetch failed and was substituted.
	Degraded bool

	// Errors holds the substituted fetch failures.
	Errors []error
}
