package query

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the query lifecycle:
// fetches, coalescing, staleness checks, cache population and notification
// fan-out. It is safe for concurrent use.
type MetricsCollector struct {
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	fetchesInFlight *prometheus.GaugeVec

	coalescedFetches *prometheus.CounterVec
	staleChecks      *prometheus.CounterVec

	cacheSize      prometheus.Gauge
	evictionsTotal *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec

	notificationsTotal *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		fetchesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "goquery_fetches_total",
				Help: "Total number of fetches executed",
			},
			[]string{"key", "outcome"},
		),
		fetchDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goquery_fetch_duration_seconds",
				Help:    "Duration of fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"key", "outcome"},
		),
		fetchesInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goquery_fetches_in_flight",
				Help: "Number of fetches currently in flight",
			},
			[]string{"key"},
		),
		coalescedFetches: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "goquery_coalesced_fetches_total",
				Help: "Total number of fetch triggers that joined an in-flight fetch",
			},
			[]string{"key"},
		),
		staleChecks: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "goquery_stale_checks_total",
				Help: "Total number of staleness checks performed",
			},
			[]string{"key"},
		),
		cacheSize: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "goquery_cache_entries",
				Help: "Current number of entries in the query cache",
			},
		),
		evictionsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "goquery_evictions_total",
				Help: "Total number of entries evicted after their retention elapsed",
			},
			[]string{"key"},
		),
		subscribers: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goquery_subscribers",
				Help: "Current number of observer callbacks attached per key",
			},
			[]string{"key"},
		),
		notificationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "goquery_notifications_total",
				Help: "Total number of change notifications delivered",
			},
			[]string{"scope"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "goquery_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type", "key"},
		),
	}

	if r, ok := registry.(*prometheus.Registry); ok {
		mc.registry = r
	}

	return mc
}

// RecordFetch records fetch count and duration by outcome.
func (mc *MetricsCollector) RecordFetch(key, outcome string, duration time.Duration) {
	if mc == nil {
		return
	}

	mc.fetchesTotal.WithLabelValues(key, outcome).Inc()
	mc.fetchDuration.WithLabelValues(key, outcome).Observe(duration.Seconds())
}

// RecordFetchStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordFetchStart(key string) {
	if mc == nil {
		return
	}

	mc.fetchesInFlight.WithLabelValues(key).Inc()
}

// RecordFetchEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordFetchEnd(key string) {
	if mc == nil {
		return
	}

	mc.fetchesInFlight.WithLabelValues(key).Dec()
}

// RecordCoalescedFetch increments the coalesced trigger counter.
func (mc *MetricsCollector) RecordCoalescedFetch(key string) {
	if mc == nil {
		return
	}

	mc.coalescedFetches.WithLabelValues(key).Inc()
}

// RecordStaleCheck increments the staleness check counter.
func (mc *MetricsCollector) RecordStaleCheck(key string) {
	if mc == nil {
		return
	}

	mc.staleChecks.WithLabelValues(key).Inc()
}

// RecordCacheSize sets the entry count gauge.
func (mc *MetricsCollector) RecordCacheSize(size int) {
	if mc == nil {
		return
	}

	mc.cacheSize.Set(float64(size))
}

// RecordEviction increments the eviction counter.
func (mc *MetricsCollector) RecordEviction(key string) {
	if mc == nil {
		return
	}

	mc.evictionsTotal.WithLabelValues(key).Inc()
}

// RecordSubscribers sets the attached-observer gauge for a key.
func (mc *MetricsCollector) RecordSubscribers(key string, count int) {
	if mc == nil {
		return
	}

	mc.subscribers.WithLabelValues(key).Set(float64(count))
}

// RecordNotifications adds delivered notifications for a scope
// ("query" or "cache").
func (mc *MetricsCollector) RecordNotifications(scope string, count int) {
	if mc == nil || count == 0 {
		return
	}

	mc.notificationsTotal.WithLabelValues(scope).Add(float64(count))
}

// RecordError increments the error counter by type.
func (mc *MetricsCollector) RecordError(errorType, key string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, key).Inc()
}

// GetRegistry exposes the underlying prometheus registry when the collector
// was built on one.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	return mc.registry
}
