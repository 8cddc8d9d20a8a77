package apiclient

import (
	"errors"
	"fmt"
)

// Common errors returned by the API client.
var (
	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrNoBaseURL is returned when the client has no base URL.
	ErrNoBaseURL = errors.New("API base URL is not configured")

	// ErrInvalidView is returned for an unknown source view.
	ErrInvalidView = errors.New("invalid view")
)

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string // server-provided message, if any
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
