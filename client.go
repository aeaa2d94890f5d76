package query

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultCacheTime is how long an entry with zero observers survives before
// eviction when no explicit CacheTime is configured.
const DefaultCacheTime = 5 * time.Minute

// Client is the keyed query cache shared by every observer in one
// application root. It owns the entry map, the cache-level subscriber list
// and all cross-entry policy defaults. A single coarse mutex guards the map,
// every entry's state and both subscriber lists; user callbacks and fetch
// functions always run outside it. Safe for concurrent use.
type Client[T any] struct {
	mu        sync.Mutex
	queries   map[string]*Query[T]
	subs      []clientSub
	nextSubID uint64

	logger  Logger
	debug   *DebugConfig
	metrics *MetricsCollector
	now     func() time.Time

	defaultStaleTime time.Duration
	defaultCacheTime time.Duration

	validationError error
}

type clientSub struct {
	token  uint64
	notify func()
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New[T any](options ...Option) *Client[T] {
	cfg := defaultConfig()
	for _, option := range options {
		option(cfg)
	}

	c := &Client[T]{
		queries:          make(map[string]*Query[T]),
		logger:           cfg.logger,
		debug:            cfg.debug,
		metrics:          cfg.metrics,
		now:              cfg.now,
		defaultStaleTime: cfg.defaultStaleTime,
		defaultCacheTime: cfg.defaultCacheTime,
	}

	if err := c.ValidateConfiguration(); err != nil {
		c.validationError = err
	}

	return c
}

// Observe returns an observer bound to the entry for key, creating the entry
// on first use. Lookup and creation are atomic; two concurrent Observe calls
// for the same key always share one entry. The entry keeps the fetch
// function and CacheTime it was created with; StaleTime stays per-observer.
func (c *Client[T]) Observe(key string, fetchFn FetchFunc[T], opts ObserveOptions) *Observer[T] {
	staleTime := opts.StaleTime
	if staleTime <= 0 {
		staleTime = c.defaultStaleTime
	}
	cacheTime := opts.CacheTime
	if cacheTime <= 0 {
		cacheTime = c.defaultCacheTime
	}

	c.mu.Lock()
	q, ok := c.queries[key]
	if !ok {
		q = newQuery(c, key, fetchFn, cacheTime)
		c.queries[key] = q
	}
	size := len(c.queries)
	c.mu.Unlock()

	if !ok {
		if c.metrics != nil {
			c.metrics.RecordCacheSize(size)
		}
		if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
			c.logger.Debug("Query created", "key", key, "cacheTime", cacheTime)
		}
		c.Notify()
	}

	return &Observer[T]{
		client:    c,
		query:     q,
		staleTime: staleTime,
		cacheTime: cacheTime,
	}
}

// Invalidate forces the entry for key to re-fetch regardless of staleness,
// notifying its observers on both transitions. Unknown keys are a no-op.
func (c *Client[T]) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	q, ok := c.queries[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
		c.logger.Debug("Query invalidated", "key", key)
	}

	return q.fetch(ctx)
}

// Subscribe registers a cache-level callback invoked whenever any entry's
// state changes or the cache structure changes (entry created or evicted).
func (c *Client[T]) Subscribe(notify func()) Subscription {
	c.mu.Lock()
	c.nextSubID++
	token := c.nextSubID
	c.subs = append(c.subs, clientSub{token: token, notify: notify})
	c.mu.Unlock()
	return Subscription{id: token}
}

// Unsubscribe removes a cache-level callback by its subscription token.
func (c *Client[T]) Unsubscribe(sub Subscription) {
	c.mu.Lock()
	for i, s := range c.subs {
		if s.token == sub.id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// Notify invokes every cache-level subscriber with no payload, in the order
// they subscribed.
func (c *Client[T]) Notify() {
	c.mu.Lock()
	subs := c.subscriberFuncsLocked()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordNotifications("cache", len(subs))
	}
	for _, notify := range subs {
		notify()
	}
}

func (c *Client[T]) subscriberFuncsLocked() []func() {
	if len(c.subs) == 0 {
		return nil
	}
	funcs := make([]func(), len(c.subs))
	for i, s := range c.subs {
		funcs[i] = s.notify
	}
	return funcs
}

// ForEachObserver visits every observer currently attached to any entry.
// The visit happens outside the client lock, so fn may call back into the
// client (for example to trigger a staleness check).
func (c *Client[T]) ForEachObserver(fn func(o *Observer[T])) {
	c.mu.Lock()
	var observers []*Observer[T]
	for _, q := range c.queries {
		for _, s := range q.subscribers {
			observers = append(observers, s.observer)
		}
	}
	c.mu.Unlock()

	for _, o := range observers {
		fn(o)
	}
}

// Revalidate runs one staleness sweep: every attached observer re-checks its
// entry and fetches if its stale window has passed. Intended for external
// triggers such as "the application regained focus".
func (c *Client[T]) Revalidate(ctx context.Context) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogFetches && c.logger != nil {
		c.logger.Debug("Revalidation sweep started")
	}
	c.ForEachObserver(func(o *Observer[T]) {
		_ = o.FetchIfStale(ctx)
	})
}

// RevalidateOn runs a revalidation sweep each time trigger delivers a value,
// until trigger closes or ctx is cancelled. It blocks; run it in its own
// goroutine. The trigger source (focus events, visibility changes, a ticker)
// is entirely up to the caller, which keeps lifecycle explicit and testable.
func (c *Client[T]) RevalidateOn(ctx context.Context, trigger <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-trigger:
			if !ok {
				return
			}
			c.Revalidate(ctx)
		}
	}
}

// Queries returns a summary of every live entry, sorted by key.
func (c *Client[T]) Queries() []QueryInfo {
	c.mu.Lock()
	infos := make([]QueryInfo, 0, len(c.queries))
	for key, q := range c.queries {
		infos = append(infos, QueryInfo{
			Key:         key,
			Status:      q.state.Status,
			IsFetching:  q.state.IsFetching,
			Subscribers: len(q.subscribers),
			LastUpdated: q.state.LastUpdated,
		})
	}
	c.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client[T]) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client[T]) ValidationError() error {
	return c.validationError
}
