package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/0xmhha/royalty-monitor/pkg/events"
	"github.com/0xmhha/royalty-monitor/pkg/logger"
	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
	"github.com/0xmhha/royalty-monitor/pkg/refresh"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockSource implements refresh.Source over mutable in-memory data.
type mockSource struct {
	mu      sync.Mutex
	records []logsheet.UsageRecord
	works   []logsheet.Work
	err     error
}

func (s *mockSource) LogSheets(ctx context.Context) ([]logsheet.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]logsheet.UsageRecord(nil), s.records...), nil
}

func (s *mockSource) Works(ctx context.Context) ([]logsheet.Work, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logsheet.Work(nil), s.works...), nil
}

func (s *mockSource) addSheet(company string, workIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet := logsheet.UsageRecord{
		ID:          logsheet.ID(len(s.records) + 1),
		CreatedDate: "2024-03-01T10:00:00Z",
		Company:     &logsheet.Company{CompanyName: company},
	}
	for _, id := range workIDs {
		sheet.SelectedMusic = append(sheet.SelectedMusic, logsheet.WorkReference{
			ID:    logsheet.ID(id),
			Title: "Work",
			User:  &logsheet.User{ID: 7},
		})
	}
	s.records = append(s.records, sheet)
}

// mockLoader implements Loader with a fixed result.
type mockLoader struct {
	snap *refresh.Snapshot
	err  error
}

func (l *mockLoader) Load(ctx context.Context) (*refresh.Snapshot, error) {
	return l.snap, l.err
}

func newMonitor(t *testing.T, src *mockSource, bus *events.Bus, cfg Config) LiveMonitor {
	t.Helper()

	loader := refresh.New(src, refresh.Options{}, logger.Noop())
	m, err := New(cfg, loader, bus, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func receive(t *testing.T, m LiveMonitor) Update {
	t.Helper()

	select {
	case u, ok := <-m.Updates():
		require.True(t, ok, "updates channel closed")
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, nil, nil, logger.Noop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{TopN: -1}, &mockLoader{}, nil, logger.Noop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStart_InitialUpdate(t *testing.T) {
	src := &mockSource{}
	src.addSheet("Acme", 1, 2, 2)
	src.addSheet("Beta", 2)

	m := newMonitor(t, src, nil, Config{TopN: 1, Location: time.UTC})
	require.NoError(t, m.Start(context.Background()))

	u := receive(t, m)
	assert.Equal(t, ReasonInitial, u.Reason)
	assert.Equal(t, uint64(1), u.Generation)
	assert.Equal(t, 4, u.Result.TotalSelections)
	require.Len(t, u.TopWorks, 1)
	assert.Equal(t, int64(2), u.TopWorks[0].ID)
	assert.Equal(t, 3, u.TopWorks[0].TotalSelections)
	require.Len(t, u.Timeline, 1)
	assert.Equal(t, "2024-03-01", u.Timeline[0].Date)
	assert.Equal(t, DeltaStats{Selections: 4, Records: 2}, u.Delta)

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, u.Generation, latest.Generation)

	require.NoError(t, m.Stop())
}

func TestEventTriggersRecompute(t *testing.T) {
	src := &mockSource{}
	src.addSheet("Acme", 1)

	bus := events.NewBus(logger.Noop())
	defer bus.Close()

	m := newMonitor(t, src, bus, Config{RefreshInterval: time.Hour, ScopeUserID: 7})
	require.NoError(t, m.Start(context.Background()))
	receive(t, m)

	src.addSheet("Beta", 1, 3)
	bus.Publish(events.Event{Type: events.TypeMusic, UserID: 7})

	u := receive(t, m)
	assert.Equal(t, ReasonEvent, u.Reason)
	assert.Equal(t, 3, u.Result.TotalSelections)
	assert.Equal(t, DeltaStats{Selections: 2, Records: 1}, u.Delta)

	require.NoError(t, m.Stop())
}

func TestIgnoresNonRefreshingEvents(t *testing.T) {
	src := &mockSource{}
	bus := events.NewBus(logger.Noop())
	defer bus.Close()

	m := newMonitor(t, src, bus, Config{RefreshInterval: time.Hour})
	require.NoError(t, m.Start(context.Background()))
	receive(t, m)

	bus.Publish(events.Event{Type: events.Type("login")})

	select {
	case u := <-m.Updates():
		t.Fatalf("unexpected update: %+v", u.Reason)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, m.Stop())
}

func TestPeriodicRefresh(t *testing.T) {
	src := &mockSource{}
	m := newMonitor(t, src, nil, Config{RefreshInterval: 20 * time.Millisecond})
	require.NoError(t, m.Start(context.Background()))
	receive(t, m)

	u := receive(t, m)
	assert.Equal(t, ReasonInterval, u.Reason)
	assert.Greater(t, u.Generation, uint64(1))

	require.NoError(t, m.Stop())
}

func TestRefresh_Manual(t *testing.T) {
	src := &mockSource{}
	m := newMonitor(t, src, nil, Config{})

	require.NoError(t, m.Refresh(context.Background()))
	u := receive(t, m)
	assert.Equal(t, ReasonManual, u.Reason)
	assert.True(t, u.Result.Empty())
}

func TestStaleLoadIgnored(t *testing.T) {
	m, err := New(Config{}, &mockLoader{err: refresh.ErrStale}, nil, logger.Noop())
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Refresh(context.Background()))
	_, ok := m.Latest()
	assert.False(t, ok)
}

func TestOutOfOrderUpdateDropped(t *testing.T) {
	loader := &mockLoader{snap: &refresh.Snapshot{Generation: 5}}
	m, err := New(Config{}, loader, nil, logger.Noop())
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Refresh(context.Background()))
	loader.snap = &refresh.Snapshot{Generation: 3}
	require.NoError(t, m.Refresh(context.Background()))

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(5), latest.Generation)
	assert.Len(t, m.Updates(), 1)
}

func TestStart_LoadError(t *testing.T) {
	boom := errors.New("boom")
	m, err := New(Config{}, &mockLoader{err: boom}, nil, logger.Noop())
	require.NoError(t, err)
	defer m.Close()

	err = m.Start(context.Background())
	assert.ErrorIs(t, err, boom)

	// A failed start leaves the monitor stopped.
	assert.ErrorIs(t, m.Stop(), ErrMonitorNotRunning)
}

func TestLifecycle(t *testing.T) {
	src := &mockSource{}
	bus := events.NewBus(logger.Noop())
	defer bus.Close()

	m := newMonitor(t, src, bus, Config{})

	assert.ErrorIs(t, m.Stop(), ErrMonitorNotRunning)

	require.NoError(t, m.Start(context.Background()))
	assert.ErrorIs(t, m.Start(context.Background()), ErrMonitorRunning)

	require.NoError(t, m.Stop())

	// Restart after stop.
	require.NoError(t, m.Start(context.Background()))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Start(context.Background()), ErrMonitorClosed)
	assert.ErrorIs(t, m.Stop(), ErrMonitorClosed)
	assert.ErrorIs(t, m.Refresh(context.Background()), ErrMonitorClosed)

	// Drain, then the channel must be closed.
	for range m.Updates() {
	}
}

func TestContextCancelStopsLoop(t *testing.T) {
	src := &mockSource{}
	bus := events.NewBus(logger.Noop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	m := newMonitor(t, src, bus, Config{})
	require.NoError(t, m.Start(ctx))

	cancel()

	// Stop still succeeds and waits for the loop to exit.
	require.NoError(t, m.Stop())
}
