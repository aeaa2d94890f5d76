package query

import (
	"fmt"
	"time"
)

type config struct {
	logger           Logger
	debug            *DebugConfig
	metrics          *MetricsCollector
	now              func() time.Time
	defaultStaleTime time.Duration
	defaultCacheTime time.Duration
}

func defaultConfig() *config {
	return &config{
		logger:           nil,
		debug:            DefaultDebugConfig(),
		metrics:          nil,
		now:              time.Now,
		defaultStaleTime: 0,
		defaultCacheTime: DefaultCacheTime,
	}
}

// WithDefaultStaleTime sets the stale time used when ObserveOptions leaves
// it unset. Zero means results are always considered stale.
func WithDefaultStaleTime(d time.Duration) Option {
	return func(cfg *config) {
		cfg.defaultStaleTime = d
	}
}

// WithDefaultCacheTime sets the retention used when ObserveOptions leaves
// it unset.
func WithDefaultCacheTime(d time.Duration) Option {
	return func(cfg *config) {
		cfg.defaultCacheTime = d
	}
}

// WithNowFunc sets the clock used for staleness arithmetic. Tests inject a
// fake clock here instead of sleeping through stale windows.
func WithNowFunc(now func() time.Time) Option {
	return func(cfg *config) {
		cfg.now = now
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a simple console logger.
func WithSimpleLogger() Option {
	return func(cfg *config) {
		if cfg.debug == nil {
			cfg.debug = DefaultDebugConfig()
		}
		cfg.debug.Enabled = true
		cfg.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with the default configuration.
func WithDebug() Option {
	return func(cfg *config) {
		if cfg.debug == nil {
			cfg.debug = DefaultDebugConfig()
		}
		cfg.debug.Enabled = true
	}
}

// WithDebugConfig sets a custom debug configuration.
func WithDebugConfig(debug *DebugConfig) Option {
	return func(cfg *config) {
		cfg.debug = debug
	}
}

// WithFetchIDGenerator sets a custom function for generating fetch IDs.
func WithFetchIDGenerator(gen func() string) Option {
	return func(cfg *config) {
		if cfg.debug == nil {
			cfg.debug = DefaultDebugConfig()
		}
		cfg.debug.FetchIDGen = gen
	}
}

// WithMetrics enables Prometheus metrics collection on the default
// registerer.
func WithMetrics() Option {
	return func(cfg *config) {
		cfg.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(cfg *config) {
		cfg.metrics = collector
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client[T]) ValidateConfiguration() error {
	var errs []string

	errs = append(errs, c.validateTimingConfig()...)
	errs = append(errs, c.validateDebugConfig()...)

	if len(errs) > 0 {
		return &Error{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errs),
		}
	}

	return nil
}

func (c *Client[T]) validateTimingConfig() []string {
	var errs []string

	if c.defaultStaleTime < 0 {
		errs = append(errs, "default stale time must be non-negative")
	}
	if c.defaultCacheTime <= 0 {
		errs = append(errs, "default cache time must be positive")
	}
	if c.now == nil {
		errs = append(errs, "now function cannot be nil")
	}

	return errs
}

func (c *Client[T]) validateDebugConfig() []string {
	var errs []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.FetchIDGen == nil {
			errs = append(errs, "debug FetchIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			errs = append(errs, "logger must be set when debug is enabled")
		}
	}

	return errs
}
