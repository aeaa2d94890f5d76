package query

import (
	"errors"
	"fmt"
	"time"
)

// Error type constants used in Error.Type.
const (
	ErrorTypeFetch      = "Fetch"
	ErrorTypeMismatch   = "TypeMismatch"
	ErrorTypeValidation = "Validation"
)

// Error is the structured error returned by the package. Fetch failures are
// additionally recorded on the entry state as a message string; the *Error
// returned from Fetch/Refetch carries the full context for callers that
// want it.
type Error struct {
	Type      string
	Key       string
	Message   string
	Cause     error
	FetchID   string
	Timestamp time.Time
	Duration  time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key %q)", msg, e.Key)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.FetchID != "" {
		msg = fmt.Sprintf("[%s] %s", e.FetchID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*Error); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *Error) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.Key != "" {
		info += fmt.Sprintf("Query Key: %s\n", e.Key)
	}
	if e.FetchID != "" {
		info += fmt.Sprintf("Fetch ID: %s\n", e.FetchID)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// IsFetchError reports whether err is a fetch failure captured by the core.
func IsFetchError(err error) bool {
	var qerr *Error
	return errors.As(err, &qerr) && qerr.Type == ErrorTypeFetch
}

// IsTypeMismatch reports whether err came from a wrong-variant Response access.
func IsTypeMismatch(err error) bool {
	var qerr *Error
	return errors.As(err, &qerr) && qerr.Type == ErrorTypeMismatch
}

// IsValidationError reports whether err is a configuration validation error.
func IsValidationError(err error) bool {
	var qerr *Error
	return errors.As(err, &qerr) && qerr.Type == ErrorTypeValidation
}
