// Package events carries data-change notifications between the parts of
// the monitor and between processes.
//
// In-process, a Bus delivers events to every open subscription, including
// subscriptions owned by the publisher. Across processes, WriteSignal drops
// an event file into a signal directory and a Bridge republishes files seen
// by a watcher onto the local bus.
//
// Delivery is at-most-once per subscription, in publish order. A subscriber
// whose buffer is full misses the event; the drop is counted and every event
// carries a sequence number so gaps can be detected.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type identifies what changed.
type Type string

// Event types.
const (
	// TypeMusic signals a change to works or log sheets.
	TypeMusic Type = "music"

	// TypeProfile signals a change to an artist profile.
	TypeProfile Type = "profile"
)

// ParseType parses an event type name, ignoring case.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeMusic, TypeProfile:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// Event is a single data-change notification.
type Event struct {
	// ID is unique per event. Publish assigns one when empty.
	ID uuid.UUID `json:"id"`

	// Seq is assigned by the bus that delivered the event and increases by
	// one per publish.
	Seq uint64 `json:"seq"`

	Type Type `json:"type"`

	// UserID is the affected user, or 0 when not user specific.
	UserID int64 `json:"user_id,omitempty"`

	// Status is the new approval status, when the change was a review.
	Status string `json:"status,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Refreshes reports whether the event invalidates performance data.
func (e Event) Refreshes() bool {
	return e.Type == TypeMusic || e.Type == TypeProfile
}

// Validate checks the fields a signal file must carry.
func (e Event) Validate() error {
	if _, err := ParseType(string(e.Type)); err != nil {
		return err
	}
	if e.UserID < 0 {
		return fmt.Errorf("%w: negative user id %d", ErrInvalidEvent, e.UserID)
	}
	return nil
}
