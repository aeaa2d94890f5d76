package query

import (
	"context"
	"time"
)

// Query is the cache entry for one key: the shared state, the fetch
// function, the ordered observer callback list and the pending eviction
// timer. All fields are guarded by the owning client's mutex.
type Query[T any] struct {
	client  *Client[T]
	key     string
	fetchFn FetchFunc[T]
	state   State[T]

	subscribers []subscriber[T]

	cacheTime time.Duration
	gcTimer   *time.Timer
	gcGen     uint64

	inflight *inflightFetch
}

type subscriber[T any] struct {
	token    uint64
	observer *Observer[T]
	notify   func()
}

// inflightFetch lets late triggers attach to a running fetch instead of
// starting a duplicate one. The owner closes done after the terminal state
// is recorded.
type inflightFetch struct {
	done chan struct{}
	err  error
}

func newQuery[T any](c *Client[T], key string, fetchFn FetchFunc[T], cacheTime time.Duration) *Query[T] {
	return &Query[T]{
		client:    c,
		key:       key,
		fetchFn:   fetchFn,
		state:     State[T]{Status: StatusIdle},
		cacheTime: cacheTime,
	}
}

// Key returns the query key this entry is registered under.
func (q *Query[T]) Key() string {
	return q.key
}

// State returns a copy of the entry's current state.
func (q *Query[T]) State() State[T] {
	q.client.mu.Lock()
	state := q.state
	q.client.mu.Unlock()
	return state
}

// fetch drives one request through the entry state machine:
// mark fetching, notify, await the fetch function, record the terminal
// state, notify again. At most one fetch runs per entry; a second trigger
// while one is in flight waits for its completion and shares the outcome.
func (q *Query[T]) fetch(ctx context.Context) error {
	c := q.client
	start := time.Now()

	var fetchID string
	if c.debug != nil && c.debug.Enabled && c.debug.FetchIDGen != nil {
		fetchID = c.debug.FetchIDGen()
	}

	c.mu.Lock()
	if fl := q.inflight; fl != nil {
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.RecordCoalescedFetch(q.key)
		}
		if c.debug != nil && c.debug.Enabled && c.debug.LogFetches && c.logger != nil {
			c.logger.Debug("Joined in-flight fetch", "fetchID", fetchID, "key", q.key)
		}

		select {
		case <-fl.done:
			return fl.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	fl := &inflightFetch{done: make(chan struct{})}
	q.inflight = fl
	q.state.IsFetching = true
	if q.state.Status == StatusIdle {
		q.state.Status = StatusLoading
	}
	observerFuncs := q.notifyFuncsLocked()
	cacheFuncs := c.subscriberFuncsLocked()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordFetchStart(q.key)
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogFetches && c.logger != nil {
		c.logger.Debug("Fetch started", "fetchID", fetchID, "key", q.key)
	}

	q.fanOut(observerFuncs, cacheFuncs)

	data, err := q.fetchFn(ctx)

	c.mu.Lock()
	if err != nil {
		q.state.Status = StatusError
		q.state.Error = err.Error()
	} else {
		q.state.Status = StatusSuccess
		q.state.Data = data
		q.state.Error = ""
		q.state.LastUpdated = c.now()
	}
	q.state.IsFetching = false
	q.inflight = nil
	if err != nil {
		fl.err = &Error{
			Type:      ErrorTypeFetch,
			Key:       q.key,
			Message:   "fetch failed",
			Cause:     err,
			FetchID:   fetchID,
			Timestamp: time.Now(),
			Duration:  time.Since(start),
		}
	}
	observerFuncs = q.notifyFuncsLocked()
	cacheFuncs = c.subscriberFuncsLocked()
	c.mu.Unlock()

	close(fl.done)

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordFetchEnd(q.key)
		outcome := "success"
		if err != nil {
			outcome = "error"
			c.metrics.RecordError(ErrorTypeFetch, q.key)
		}
		c.metrics.RecordFetch(q.key, outcome, duration)
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogFetches && c.logger != nil {
		if err != nil {
			c.logger.Warn("Fetch failed", "fetchID", fetchID, "key", q.key, "error", err.Error(), "duration", duration)
		} else {
			c.logger.Debug("Fetch completed", "fetchID", fetchID, "key", q.key, "duration", duration)
		}
	}

	q.fanOut(observerFuncs, cacheFuncs)

	return fl.err
}

// fanOut delivers one state-change notification: observers first, in
// subscribe order, then cache-level subscribers.
func (q *Query[T]) fanOut(observerFuncs, cacheFuncs []func()) {
	c := q.client
	if c.metrics != nil {
		c.metrics.RecordNotifications("query", len(observerFuncs))
		c.metrics.RecordNotifications("cache", len(cacheFuncs))
	}
	for _, notify := range observerFuncs {
		notify()
	}
	for _, notify := range cacheFuncs {
		notify()
	}
}

func (q *Query[T]) notifyFuncsLocked() []func() {
	if len(q.subscribers) == 0 {
		return nil
	}
	funcs := make([]func(), len(q.subscribers))
	for i, s := range q.subscribers {
		funcs[i] = s.notify
	}
	return funcs
}

// subscribe appends an observer callback and cancels any pending eviction.
func (q *Query[T]) subscribe(o *Observer[T], notify func()) Subscription {
	c := q.client
	c.mu.Lock()
	c.nextSubID++
	token := c.nextSubID
	q.subscribers = append(q.subscribers, subscriber[T]{token: token, observer: o, notify: notify})
	q.unscheduleCleanupLocked()
	count := len(q.subscribers)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSubscribers(q.key, count)
	}
	return Subscription{id: token}
}

// unsubscribe removes the callback registered under token. When the last
// observer detaches, eviction is armed for the entry's cache time.
func (q *Query[T]) unsubscribe(sub Subscription) {
	c := q.client
	c.mu.Lock()
	for i, s := range q.subscribers {
		if s.token == sub.id {
			q.subscribers = append(q.subscribers[:i], q.subscribers[i+1:]...)
			break
		}
	}
	count := len(q.subscribers)
	if count == 0 {
		q.scheduleCleanupLocked()
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSubscribers(q.key, count)
	}
}

// scheduleCleanupLocked arms the deferred eviction timer. A new timer
// supersedes any pending one; the generation counter invalidates callbacks
// from timers that were cancelled after firing had already been scheduled.
func (q *Query[T]) scheduleCleanupLocked() {
	if q.gcTimer != nil {
		q.gcTimer.Stop()
	}
	q.gcGen++
	gen := q.gcGen
	c := q.client

	if c.debug != nil && c.debug.Enabled && c.debug.LogGC && c.logger != nil {
		c.logger.Debug("Eviction armed", "key", q.key, "cacheTime", q.cacheTime)
	}

	q.gcTimer = time.AfterFunc(q.cacheTime, func() {
		c.mu.Lock()
		if q.gcGen != gen || len(q.subscribers) != 0 || c.queries[q.key] != q {
			c.mu.Unlock()
			return
		}
		delete(c.queries, q.key)
		q.gcTimer = nil
		size := len(c.queries)
		cacheFuncs := c.subscriberFuncsLocked()
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.RecordEviction(q.key)
			c.metrics.RecordCacheSize(size)
			c.metrics.RecordNotifications("cache", len(cacheFuncs))
		}
		if c.debug != nil && c.debug.Enabled && c.debug.LogGC && c.logger != nil {
			c.logger.Debug("Query evicted", "key", q.key)
		}
		for _, notify := range cacheFuncs {
			notify()
		}
	})
}

func (q *Query[T]) unscheduleCleanupLocked() {
	if q.gcTimer != nil {
		q.gcTimer.Stop()
		q.gcTimer = nil
	}
	q.gcGen++
}
