package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for connection-level conditions.
var (
	// ErrConnClosed is returned when a write is attempted on a closed connection.
	ErrConnClosed = errors.New("server: connection closed")
)

// ConnError wraps an error with connection context for logging.
type ConnError struct {
	ConnID string
	Op     string // Operation that failed
	Err    error  // Underlying error
}

// Error returns the error message with connection context.
func (e *ConnError) Error() string {
	return fmt.Sprintf("server: conn %s: %s: %v", e.ConnID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ConnError) Unwrap() error {
	return e.Err
}
