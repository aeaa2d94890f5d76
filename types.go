package query

import (
	"context"
	"time"
)

// FetchFunc loads the data for one query key. The context is the one passed
// to the triggering call; the core never cancels it on unsubscribe.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Status describes where a query entry is in its lifecycle.
type Status int

const (
	// StatusIdle means the entry exists but no fetch has started yet.
	StatusIdle Status = iota
	// StatusLoading means the first fetch is in flight and no result has
	// ever been recorded.
	StatusLoading
	// StatusSuccess means the last completed fetch succeeded.
	StatusSuccess
	// StatusError means the last completed fetch failed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a point-in-time snapshot of a query entry.
//
// LastUpdated is set only when a fetch succeeds and is never cleared; its
// zero value means "never fetched". Error carries the failure message of the
// last fetch when Status is StatusError.
type State[T any] struct {
	Status      Status
	Data        T
	Error       string
	IsFetching  bool
	LastUpdated time.Time
}

// ObserveOptions carries the per-observer staleness and retention policy.
type ObserveOptions struct {
	// StaleTime is how long a successful result stays fresh for this
	// observer. Zero means a result is always considered stale.
	StaleTime time.Duration
	// CacheTime is how long the entry survives with zero observers before
	// eviction. Zero or negative falls back to the client default.
	CacheTime time.Duration
}

// Subscription is an opaque handle identifying one registered callback.
// Unsubscribing by token avoids any callback equality comparison.
type Subscription struct {
	id uint64
}

// QueryInfo summarizes one cache entry for introspection (devtools).
type QueryInfo struct {
	Key         string
	Status      Status
	IsFetching  bool
	Subscribers int
	LastUpdated time.Time
}

// Option configures a Client at construction time.
type Option func(*config)
