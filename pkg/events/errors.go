package events

import "errors"

// Common errors returned by the events package.
var (
	// ErrInvalidType is returned for an unknown event type.
	ErrInvalidType = errors.New("invalid event type")

	// ErrInvalidEvent is returned when a signal file carries an unusable event.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidDir is returned when the signal directory is empty or not a
	// directory.
	ErrInvalidDir = errors.New("invalid signal directory")
)
