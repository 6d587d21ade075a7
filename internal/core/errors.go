package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidColumnIndex is returned by SelectColumn for an index outside
	// the column space. The session is left unchanged.
	ErrInvalidColumnIndex = errors.New("invalid column index")

	// ErrNotReady is returned when an operation needs a loaded preview.
	ErrNotReady = errors.New("preview not ready")

	// ErrSessionNotFound is returned by Service lookups for unknown or expired ids.
	ErrSessionNotFound = errors.New("session not found")
)

// ReadError reports that a source could not produce text.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read error: source %q: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
