package monitor

import (
	"context"
	"time"

	"github.com/0xmhha/royalty-monitor/pkg/aggregator"
	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
	"github.com/0xmhha/royalty-monitor/pkg/refresh"
)

const (
	// DefaultRefreshInterval is the periodic reload interval.
	DefaultRefreshInterval = time.Minute

	// DefaultTopN is the number of works ranked in each update.
	DefaultTopN = 10

	// DefaultBufferSize is the capacity of the updates channel.
	DefaultBufferSize = 10
)

// Config holds the configuration for the live monitor.
type Config struct {
	// ScopeUserID restricts counting to works owned by this user (0 = all).
	ScopeUserID int64

	// RefreshInterval is the interval between periodic reloads.
	RefreshInterval time.Duration

	// TopN is the ranking size of Update.TopWorks.
	TopN int

	// TimelineWindow is the number of dates in Update.Timeline.
	TimelineWindow int

	// Location is the calendar used for date keys. Default: time.Local.
	Location *time.Location

	// BufferSize is the capacity of the updates channel.
	BufferSize int
}

// Loader loads the inputs of one recomputation. *refresh.Loader implements
// it.
type Loader interface {
	Load(ctx context.Context) (*refresh.Snapshot, error)
}

// LiveMonitor recomputes performance data whenever its inputs change.
type LiveMonitor interface {
	// Start performs the initial load and begins monitoring in the
	// background.
	Start(ctx context.Context) error

	// Stop stops the monitor gracefully. The monitor can be started again.
	Stop() error

	// Close stops the monitor and closes the updates channel.
	Close() error

	// Refresh reloads and recomputes immediately.
	Refresh(ctx context.Context) error

	// Updates returns the channel that receives every recomputation.
	Updates() <-chan Update

	// Latest returns the most recent update, if any.
	Latest() (Update, bool)
}

// Reason tells why a recomputation happened.
type Reason string

// Recomputation reasons.
const (
	ReasonInitial  Reason = "initial"
	ReasonEvent    Reason = "event"
	ReasonInterval Reason = "interval"
	ReasonManual   Reason = "manual"
)

// Update represents a live monitoring update event.
type Update struct {
	// Timestamp of the update
	Timestamp time.Time

	// Generation of the load the update was computed from
	Generation uint64

	Reason Reason

	// Result is the full aggregation of the loaded log sheets
	Result aggregator.Result

	// Works is the catalogue visible to the view
	Works []logsheet.Work

	// TopWorks is Result.TopWorks(Config.TopN)
	TopWorks []aggregator.WorkAggregate

	// Timeline is Result.Timeline(Config.TimelineWindow)
	Timeline []aggregator.DateCount

	// FetchedAt is when the inputs were fetched
	FetchedAt time.Time

	// Degraded is set when the load substituted a failed fetch
	Degraded bool

	// Delta contains the change since last update
	Delta DeltaStats
}

// DeltaStats represents changes since the last update.
type DeltaStats struct {
	// Selections added since last update
	Selections int

	// Records added since last update
	Records int

	// Works added since last update
	Works int
}
