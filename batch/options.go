package batch

import (
	"time"

	"github.com/inwatch/obs"
)

const (
	defaultMaxSize       = 50
	defaultMaxWait       = 1 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 100 * time.Millisecond
)

// Config defines how the processor batches and retries.
type Config struct {
	// MaxSize is the item count that triggers an immediate flush, and the
	// maximum number of items handed to one delivery call.
	MaxSize int
	// MaxWait is the flush interval bounding delivery latency under low
	// throughput.
	MaxWait time.Duration
	// RetryAttempts is the retry budget per item after its first failure.
	RetryAttempts int
	// RetryDelay is the base backoff; attempt n waits RetryDelay * 2^n.
	RetryDelay time.Duration
	// Logger receives dropped-item and delivery-failure diagnostics.
	Logger obs.Logger
	// Clock stamps re-queued items and drives tests.
	Clock obs.Clock
	// Metrics records delivered/retried/dropped counts.
	Metrics Metrics
}

func defaultConfig() Config {
	return Config{
		MaxSize:       defaultMaxSize,
		MaxWait:       defaultMaxWait,
		RetryAttempts: defaultRetryAttempts,
		RetryDelay:    defaultRetryDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = defaultMaxSize
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.Logger == nil {
		c.Logger = obs.NopLogger{}
	}
	if c.Clock == nil {
		c.Clock = obs.SystemClock{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}

	return c
}

// Option configures processor behavior.
type Option func(*Config)

// WithMaxSize sets the flush-triggering item count.
func WithMaxSize(size int) Option {
	return func(c *Config) {
		c.MaxSize = size
	}
}

// WithMaxWait sets the time-based flush interval.
func WithMaxWait(interval time.Duration) Option {
	return func(c *Config) {
		c.MaxWait = interval
	}
}

// WithRetryAttempts sets the per-item retry budget. Zero disables retries.
func WithRetryAttempts(attempts int) Option {
	return func(c *Config) {
		c.RetryAttempts = attempts
	}
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.RetryDelay = delay
	}
}

// WithLogger sets the processor logger.
func WithLogger(logger obs.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithClock sets the processor clock.
func WithClock(clock obs.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithMetrics sets the processor metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}
