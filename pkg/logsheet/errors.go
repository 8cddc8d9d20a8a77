package logsheet

import (
	"errors"
	"fmt"
)

// Common errors returned by the logsheet package.
var (
	// ErrMalformedJSON is returned when a document or JSONL line cannot be
	// decoded.
	ErrMalformedJSON = errors.New("malformed JSON")

	// ErrFileTooLarge is returned when an export exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file size exceeds maximum limit")
)

// ParseError provides context about a JSONL line that failed to decode.
type ParseError struct {
	Line int    // 1-indexed line number
	Data string // offending line, truncated in Error()
	Err  error
}

func (e *ParseError) Error() string {
	data := e.Data
	if len(data) > 100 {
		data = data[:100] + "..."
	}
	return fmt.Sprintf("parse error at line %d: %s: %v", e.Line, data, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
