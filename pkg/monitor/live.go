package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/0xmhha/royalty-monitor/pkg/aggregator"
	"github.com/0xmhha/royalty-monitor/pkg/events"
	"github.com/0xmhha/royalty-monitor/pkg/logger"
	"github.com/0xmhha/royalty-monitor/pkg/refresh"
)

// liveMonitor implements the LiveMonitor interface.
type liveMonitor struct {
	config Config
	logger logger.Logger
	loader Loader
	bus    *events.Bus

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}
	sub      *events.Subscription
	wg       sync.WaitGroup

	// Last published update
	last        Update
	lastRecords int
	hasLast     bool

	// Update channel for consumers
	updates chan Update
}

// New creates a new live monitor.
//
// Parameters:
//   - cfg: Monitor configuration
//   - loader: Input loader, usually a *refresh.Loader
//   - bus: Update bus to subscribe to (nil disables event refreshes)
//   - log: Logger instance
//
// Returns:
//   - Configured LiveMonitor
//   - Error if configuration is invalid
func New(cfg Config, loader Loader, bus *events.Bus, log logger.Logger) (LiveMonitor, error) {
	if loader == nil {
		return nil, fmt.Errorf("%w: loader is required", ErrInvalidConfig)
	}
	if cfg.RefreshInterval < 0 || cfg.TopN < 0 || cfg.TimelineWindow < 0 || cfg.BufferSize < 0 {
		return nil, fmt.Errorf("%w: negative setting", ErrInvalidConfig)
	}

	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.TopN == 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.TimelineWindow == 0 {
		cfg.TimelineWindow = aggregator.DefaultTimelineWindow
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	m := &liveMonitor{
		config:  cfg,
		logger:  log,
		loader:  loader,
		bus:     bus,
		updates: make(chan Update, cfg.BufferSize),
	}

	log.Info("live monitor created",
		"refresh_interval", cfg.RefreshInterval,
		"scope_user_id", cfg.ScopeUserID)

	return m, nil
}

// Start implements LiveMonitor.Start.
func (m *liveMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if m.running {
		m.mu.Unlock()
		return ErrMonitorRunning
	}
	m.running = true
	m.mu.Unlock()

	if err := m.recompute(ctx, ReasonInitial); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("initial load failed: %w", err)
	}

	var sub *events.Subscription
	if m.bus != nil {
		sub = m.bus.Subscribe(m.config.BufferSize)
	}

	m.mu.Lock()
	if !m.running {
		// Stopped or closed during the initial load.
		m.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		return ErrMonitorNotRunning
	}
	stop := make(chan struct{})
	m.stopChan = stop
	m.sub = sub
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(ctx, sub, stop)

	m.logger.Info("live monitor started")
	return nil
}

// Stop implements LiveMonitor.Stop.
func (m *liveMonitor) Stop() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if !m.running {
		m.mu.Unlock()
		return ErrMonitorNotRunning
	}
	m.halt()
	m.mu.Unlock()

	m.wg.Wait()

	m.logger.Info("live monitor stopped")
	return nil
}

// Close implements LiveMonitor.Close.
func (m *liveMonitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.running {
		m.halt()
	}
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	close(m.updates)
	m.mu.Unlock()

	m.logger.Info("live monitor closed")
	return nil
}

// halt signals the run loop and detaches from the bus. Must be called with
// m.mu held.
func (m *liveMonitor) halt() {
	if m.stopChan != nil {
		close(m.stopChan)
		m.stopChan = nil
	}
	if m.sub != nil {
		m.sub.Close()
		m.sub = nil
	}
	m.running = false
}

// Refresh implements LiveMonitor.Refresh.
func (m *liveMonitor) Refresh(ctx context.Context) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrMonitorClosed
	}

	return m.recompute(ctx, ReasonManual)
}

// Updates returns a channel for receiving live updates.
func (m *liveMonitor) Updates() <-chan Update {
	return m.updates
}

// Latest implements LiveMonitor.Latest.
func (m *liveMonitor) Latest() (Update, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.last, m.hasLast
}

// run recomputes on bus events and on the refresh ticker.
func (m *liveMonitor) run(ctx context.Context, sub *events.Subscription, stop <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	var (
		eventCh <-chan events.Event
		lastSeq uint64
	)
	if sub != nil {
		eventCh = sub.C()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-stop:
			return

		case ev, ok := <-eventCh:
			if !ok {
				m.logger.Info("event subscription closed")
				eventCh = nil
				continue
			}

			reload := m.observe(ev, &lastSeq)

			// Coalesce events that queued up while the last load ran.
			for drained := false; !drained; {
				select {
				case next, ok := <-eventCh:
					if !ok {
						eventCh = nil
						drained = true
						continue
					}
					reload = m.observe(next, &lastSeq) || reload
				default:
					drained = true
				}
			}

			if reload {
				m.tryRecompute(ctx, ReasonEvent)
			}

		case <-ticker.C:
			m.tryRecompute(ctx, ReasonInterval)
		}
	}
}

// observe tracks sequence gaps and reports whether ev requires a reload.
func (m *liveMonitor) observe(ev events.Event, lastSeq *uint64) bool {
	if *lastSeq != 0 && ev.Seq > *lastSeq+1 {
		m.logger.Warn("missed events",
			"from_seq", *lastSeq+1,
			"to_seq", ev.Seq-1)
	}
	*lastSeq = ev.Seq

	m.logger.Debug("event received",
		"seq", ev.Seq,
		"type", ev.Type,
		"user_id", ev.UserID)

	return ev.Refreshes()
}

func (m *liveMonitor) tryRecompute(ctx context.Context, reason Reason) {
	if err := m.recompute(ctx, reason); err != nil && ctx.Err() == nil {
		m.logger.Error("recomputation failed",
			"reason", reason,
			"error", err)
	}
}

// recompute loads the inputs and publishes a fresh aggregation. Stale loads
// are dropped silently.
func (m *liveMonitor) recompute(ctx context.Context, reason Reason) error {
	snap, err := m.loader.Load(ctx)
	if errors.Is(err, refresh.ErrStale) {
		m.logger.Debug("stale load ignored", "reason", reason)
		return nil
	}
	if err != nil {
		return err
	}

	result := aggregator.Aggregate(snap.Records, aggregator.Options{
		ScopeUserID: m.config.ScopeUserID,
		Location:    m.config.Location,
	})

	m.sendUpdate(Update{
		Timestamp:  time.Now(),
		Generation: snap.Generation,
		Reason:     reason,
		Result:     result,
		Works:      snap.Works,
		TopWorks:   result.TopWorks(m.config.TopN),
		Timeline:   result.Timeline(m.config.TimelineWindow),
		FetchedAt:  snap.FetchedAt,
		Degraded:   snap.Degraded,
	}, len(snap.Records))

	return nil
}

// sendUpdate sends an update to the updates channel.
func (m *liveMonitor) sendUpdate(update Update, records int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	// A slower recomputation may finish after a newer one was published.
	if m.hasLast && update.Generation < m.last.Generation {
		m.logger.Debug("dropping out-of-order update",
			"generation", update.Generation,
			"latest", m.last.Generation)
		return
	}

	// Calculate delta
	update.Delta = DeltaStats{
		Selections: update.Result.TotalSelections,
		Records:    records,
		Works:      len(update.Works),
	}
	if m.hasLast {
		update.Delta.Selections -= m.last.Result.TotalSelections
		update.Delta.Records -= m.lastRecords
		update.Delta.Works -= len(m.last.Works)
	}

	m.last = update
	m.lastRecords = records
	m.hasLast = true

	// Send update (non-blocking)
	select {
	case m.updates <- update:
	default:
		m.logger.Warn("updates channel full, dropping update",
			"generation", update.Generation)
	}
}
