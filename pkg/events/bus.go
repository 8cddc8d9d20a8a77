package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/0xmhha/royalty-monitor/pkg/logger"
)

// DefaultBuffer is the subscription buffer used when Subscribe gets n <= 0.
const DefaultBuffer = 16

// Bus fans events out to subscriptions.
//
// Publish holds the bus lock while delivering, so sequence numbers and
// per-subscription delivery order always agree.
type Bus struct {
	logger logger.Logger

	mu     sync.Mutex
	seq    uint64
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBus creates an open bus.
func NewBus(log logger.Logger) *Bus {
	return &Bus{
		logger: log,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscription receives the events published after it was opened.
type Subscription struct {
	bus     *Bus
	ch      chan Event
	dropped atomic.Uint64
	once    sync.Once
}

// C returns the delivery channel. It is closed by Close or Bus.Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Dropped returns how many events were dropped because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscription from the bus. Safe to call twice.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	s.closeLocked()
}

// closeLocked must be called with the bus lock held.
func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		delete(s.bus.subs, s)
		close(s.ch)
	})
}

// Subscribe opens a subscription with a buffer of n events. Subscribing to
// a closed bus returns an already closed subscription.
func (b *Bus) Subscribe(n int) *Subscription {
	if n <= 0 {
		n = DefaultBuffer
	}

	sub := &Subscription{bus: b, ch: make(chan Event, n)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.closeLocked()
		return sub
	}

	b.subs[sub] = struct{}{}
	return sub
}

// Publish stamps ev with the next sequence number (and an ID and timestamp
// when missing) and delivers it to every open subscription without
// blocking. It returns the stamped event. After Close, ev is returned
// unchanged and nothing is delivered.
func (b *Bus) Publish(ev Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ev
	}

	b.seq++
	ev.Seq = b.seq
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			b.logger.Warn("subscriber buffer full, dropping event",
				"seq", ev.Seq,
				"type", ev.Type)
		}
	}

	b.logger.Debug("event published",
		"seq", ev.Seq,
		"type", ev.Type,
		"user_id", ev.UserID,
		"subscribers", len(b.subs))

	return ev
}

// Close closes every subscription. Later publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for sub := range b.subs {
		sub.closeLocked()
	}
}
