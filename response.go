package query

import (
	"fmt"
	"time"
)

// Response is a tagged container for applications whose queries return
// several result shapes through one cache. Each value is stored under a
// caller-chosen kind; accessing it as the wrong kind or type yields a
// TypeMismatch error instead of aborting.
type Response struct {
	Kind  string
	value any
}

// NewResponse wraps value under kind.
func NewResponse(kind string, value any) Response {
	return Response{Kind: kind, value: value}
}

// Value returns the wrapped value untyped.
func (r Response) Value() any {
	return r.value
}

// As extracts the value stored in r as T, verifying both the kind tag and
// the dynamic type.
func As[T any](r Response, kind string) (T, error) {
	var zero T
	if r.Kind != kind {
		return zero, &Error{
			Type:      ErrorTypeMismatch,
			Message:   fmt.Sprintf("expected kind %q, found %q", kind, r.Kind),
			Timestamp: time.Now(),
		}
	}
	v, ok := r.value.(T)
	if !ok {
		return zero, &Error{
			Type:      ErrorTypeMismatch,
			Message:   fmt.Sprintf("kind %q holds %T, not %T", r.Kind, r.value, zero),
			Timestamp: time.Now(),
		}
	}
	return v, nil
}
