package snapshot

import "errors"

// Common errors returned by the snapshot store.
var (
	// ErrNotFound is returned when no snapshot is stored under a key.
	ErrNotFound = errors.New("snapshot not found")

	// ErrInvalidKey is returned when a key is neither "admin" nor
	// "artist:<id>".
	ErrInvalidKey = errors.New("invalid snapshot key")

	// ErrInvalidSnapshot is returned when a nil snapshot is saved.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
