// Package query provides a client-side data fetching and caching core:
//
//   - Keyed query cache shared by any number of observers
//   - In-flight fetch coalescing (at most one fetch per key at a time)
//   - Age-based staleness checks with per-observer stale times
//   - Deferred eviction of entries once their last observer unsubscribes
//   - Ordered change notifications for observers and cache-level listeners
//   - Batch revalidation sweeps driven by an injected trigger (e.g. window focus)
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - UI-framework agnostic: the binding layer subscribes, reads snapshots
//     and re-renders; the core never touches rendering
//   - Safe concurrent use of a single *Client instance
//   - Transport agnostic: the fetch function is an opaque async callback
//
// Typical usage:
//
//	client := query.New[[]Post](
//	    query.WithDefaultCacheTime(5*time.Minute),
//	    query.WithMetrics(),
//	)
//	observer := client.Observe("posts", fetchPosts, query.ObserveOptions{
//	    StaleTime: 3 * time.Second,
//	})
//	sub := observer.Subscribe(ctx, onChange)
//	defer observer.Unsubscribe(sub)
//	state := observer.Snapshot()
//
// Fetch failures never escape as panics; they land in the entry state as an
// Error status that consumers render. Unsubscribing mid-flight never cancels
// the fetch, it only stops future notifications.
package query
