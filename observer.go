package query

import (
	"context"
	"time"
)

// Observer is a consumer-side handle bound to one cache entry. It carries
// the staleness and retention policy of the consumer that created it;
// multiple observers with different stale times may share one entry, each
// deciding independently whether a (re)subscribe triggers a fetch.
type Observer[T any] struct {
	client    *Client[T]
	query     *Query[T]
	staleTime time.Duration
	cacheTime time.Duration
}

// Key returns the query key this observer is bound to.
func (o *Observer[T]) Key() string {
	return o.query.key
}

// Subscribe registers onChange to run after every state change of the bound
// entry, cancels any pending eviction, and triggers a staleness check in the
// background (the mount path: fresh data renders immediately, stale data
// starts a fetch). Use the returned token to unsubscribe.
func (o *Observer[T]) Subscribe(ctx context.Context, onChange func()) Subscription {
	sub := o.query.subscribe(o, onChange)
	go func() {
		_ = o.FetchIfStale(ctx)
	}()
	return sub
}

// Unsubscribe detaches the callback registered under sub. If this was the
// entry's last observer, eviction is armed; an in-flight fetch is not
// cancelled and still runs to completion.
func (o *Observer[T]) Unsubscribe(sub Subscription) {
	o.query.unsubscribe(sub)
}

// FetchIfStale triggers a fetch iff the entry has never succeeded or its
// last success is older than this observer's stale time. Within the stale
// window it is a no-op. This age check is the entire staleness policy.
func (o *Observer[T]) FetchIfStale(ctx context.Context) error {
	c := o.client

	c.mu.Lock()
	lastUpdated := o.query.state.LastUpdated
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordStaleCheck(o.query.key)
	}

	if !lastUpdated.IsZero() && c.now().Sub(lastUpdated) <= o.staleTime {
		return nil
	}
	return o.query.fetch(ctx)
}

// Refetch unconditionally runs the entry's fetch, coalescing with any fetch
// already in flight.
func (o *Observer[T]) Refetch(ctx context.Context) error {
	return o.query.fetch(ctx)
}

// Snapshot returns a copy of the bound entry's current state. Pure read.
func (o *Observer[T]) Snapshot() State[T] {
	return o.query.State()
}
