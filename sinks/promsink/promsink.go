// Package promsink exposes completed units as Prometheus metrics: a
// counter of units by outcome and scope, and a histogram of unit duration
// measured from creation to export.
package promsink

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inwatch/obs"
)

const defaultSinkName = "prometheus"

// Collector turns exported units into Prometheus series.
type Collector struct {
	clock obs.Clock

	units    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock sets the clock used to measure unit duration.
func WithClock(clock obs.Clock) Option {
	return func(c *Collector) {
		c.clock = clock
	}
}

// New creates a Collector and registers its metrics on reg.
func New(reg prometheus.Registerer, opts ...Option) *Collector {
	collector := &Collector{clock: obs.SystemClock{}}
	for _, opt := range opts {
		opt(collector)
	}

	collector.units = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obs_units_total",
			Help: "Total number of completed units by outcome.",
		},
		[]string{"outcome", "scope"},
	)
	collector.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "obs_unit_duration_seconds",
			Help: "Unit duration from creation to export.",
		},
		[]string{"scope"},
	)
	reg.MustRegister(collector.units, collector.duration)

	return collector
}

// Sink returns the obs.Sink to register.
func (c *Collector) Sink() obs.Sink {
	return obs.Sink{
		Name: defaultSinkName,
		Success: func(_ context.Context, unit *obs.Unit) {
			c.observe(unit, "success")
		},
		Error: func(_ context.Context, unit *obs.Unit, _ error) {
			c.observe(unit, "error")
		},
	}
}

func (c *Collector) observe(unit *obs.Unit, outcome string) {
	c.units.WithLabelValues(outcome, unit.Scope).Inc()
	c.duration.WithLabelValues(unit.Scope).Observe(c.clock.Now().Sub(unit.CreatedAt).Seconds())
}

// UnitsCounter returns the units counter for an outcome/scope pair.
// Intended for tests and debugging.
func (c *Collector) UnitsCounter(outcome, scope string) (prometheus.Counter, error) {
	return c.units.GetMetricWithLabelValues(outcome, scope)
}

// RuntimeMetrics is a prometheus-backed implementation of obs.Metrics for
// the runtime's own counters.
type RuntimeMetrics struct {
	started      prometheus.Counter
	succeeded    prometheus.Counter
	failed       prometheus.Counter
	sinkFailures prometheus.Counter
}

// NewRuntimeMetrics creates the runtime counters and registers them on reg.
func NewRuntimeMetrics(reg prometheus.Registerer) *RuntimeMetrics {
	m := &RuntimeMetrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "obs_runtime_units_started_total",
			Help: "Units that entered Observe.",
		}),
		succeeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "obs_runtime_units_succeeded_total",
			Help: "Units whose work returned nil.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "obs_runtime_units_failed_total",
			Help: "Units whose work failed or panicked.",
		}),
		sinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "obs_runtime_sink_failures_total",
			Help: "Sink callback failures swallowed by the pipeline.",
		}),
	}
	reg.MustRegister(m.started, m.succeeded, m.failed, m.sinkFailures)

	return m
}

// AddStarted implements obs.Metrics.
func (m *RuntimeMetrics) AddStarted(count int) {
	m.started.Add(float64(count))
}

// AddSucceeded implements obs.Metrics.
func (m *RuntimeMetrics) AddSucceeded(count int) {
	m.succeeded.Add(float64(count))
}

// AddFailed implements obs.Metrics.
func (m *RuntimeMetrics) AddFailed(count int) {
	m.failed.Add(float64(count))
}

// AddSinkFailures implements obs.Metrics.
func (m *RuntimeMetrics) AddSinkFailures(count int) {
	m.sinkFailures.Add(float64(count))
}
