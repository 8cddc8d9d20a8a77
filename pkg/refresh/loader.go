package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xmhha/royalty-monitor/pkg/logger"
	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
	"github.com/0xmhha/royalty-monitor/pkg/snapshot"
)

// Loader fetches inputs from a Source and commits the newest result.
// It is safe for concurrent use.
type Loader struct {
	source Source
	opts   Options
	logger logger.Logger

	generation atomic.Uint64

	mu     sync.Mutex
	latest *Snapshot
}

// New creates a Loader over source.
func New(source Source, opts Options, log logger.Logger) *Loader {
	if opts.CacheKey == "" {
		opts.CacheKey = snapshot.AdminKey
	}

	return &Loader{
		source: source,
		opts:   opts,
		logger: log,
	}
}

// Load fetches log sheets and works concurrently and commits them as the
// latest snapshot.
//
// Returns:
//   - the committed snapshot
//   - ErrStale if a newer Load was issued meanwhile
//   - ctx.Err() if the context was cancelled
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	token := l.generation.Add(1)
	started := time.Now()

	var (
		records    []logsheet.UsageRecord
		works      []logsheet.Work
		recordsErr error
		worksErr   error
	)

	// Both fetches always run to completion. A failure is substituted from
	// the cache below and must not cancel the other fetch.
	var eg errgroup.Group
	eg.Go(func() error {
		records, recordsErr = l.source.LogSheets(ctx)
		return nil
	})
	eg.Go(func() error {
		works, worksErr = l.source.Works(ctx)
		return nil
	})
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Generation: token,
		Records:    records,
		Works:      works,
		FetchedAt:  started,
	}

	if recordsErr != nil || worksErr != nil {
		l.substitute(snap, recordsErr, worksErr)
	}
	if snap.Records == nil {
		snap.Records = []logsheet.UsageRecord{}
	}
	if snap.Works == nil {
		snap.Works = []logsheet.Work{}
	}

	if err := l.commit(token, snap); err != nil {
		return nil, err
	}

	l.logger.Debug("load committed",
		"generation", token,
		"records", len(snap.Records),
		"works", len(snap.Works),
		"degraded", snap.Degraded,
		"duration", time.Since(started))

	return snap, nil
}

// Latest returns the last committed snapshot, or nil before the first.
func (l *Loader) Latest() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.latest
}

// Generation returns the most recently issued token.
func (l *Loader) Generation() uint64 {
	return l.generation.Load()
}

// commit stores snap unless a newer token was issued. Complete snapshots
// are written to the cache under the same lock, so cache writes happen in
// commit order and an older load never replaces a newer cache entry.
func (l *Loader) commit(token uint64, snap *Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if latest := l.generation.Load(); token != latest {
		l.logger.Debug("discarding stale load",
			"generation", token,
			"latest", latest)
		return fmt.Errorf("%w: generation %d, latest %d", ErrStale, token, latest)
	}

	l.latest = snap

	if !snap.Degraded && l.opts.Cache != nil {
		if err := l.opts.Cache.Save(l.opts.CacheKey, &snapshot.Snapshot{
			Records:   snap.Records,
			Works:     snap.Works,
			FetchedAt: snap.FetchedAt,
		}); err != nil {
			l.logger.Warn("failed to cache snapshot",
				"key", l.opts.CacheKey,
				"error", err)
		}
	}

	return nil
}

// substitute replaces failed fetches with cached values, or empty lists.
func (l *Loader) substitute(snap *Snapshot, recordsErr, worksErr error) {
	snap.Degraded = true

	cached := l.cached()

	if recordsErr != nil {
		snap.Errors = append(snap.Errors, fmt.Errorf("log sheets: %w", recordsErr))
		snap.Records = nil
		if cached != nil {
			snap.Records = cached.Records
		}
		l.logger.Warn("log sheet fetch failed, using fallback",
			"error", recordsErr,
			"cached", cached != nil)
	}

	if worksErr != nil {
		snap.Errors = append(snap.Errors, fmt.Errorf("works: %w", worksErr))
		snap.Works = nil
		if cached != nil {
			snap.Works = cached.Works
		}
		l.logger.Warn("works fetch failed, using fallback",
			"error", worksErr,
			"cached", cached != nil)
	}

	if recordsErr != nil && worksErr != nil && cached != nil {
		snap.FetchedAt = cached.FetchedAt
	}
}

// cached returns the cached snapshot of this view, or nil.
func (l *Loader) cached() *snapshot.Snapshot {
	if l.opts.Cache == nil {
		return nil
	}

	snap, err := l.opts.Cache.Load(l.opts.CacheKey)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			l.logger.Warn("failed to read cached snapshot",
				"key", l.opts.CacheKey,
				"error", err)
		}
		return nil
	}

	return snap
}
