package obs

import "sync"

// RegistryConfig defines the runtime collaborators of a Registry.
type RegistryConfig struct {
	Logger      Logger
	Metrics     Metrics
	Clock       Clock
	IDGenerator IDGenerator
}

func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.IDGenerator == nil {
		c.IDGenerator = NewUUIDv7Generator(c.Clock)
	}

	return c
}

// RegistryOption configures a Registry.
type RegistryOption func(*RegistryConfig)

// WithLogger sets the runtime logger.
func WithLogger(logger Logger) RegistryOption {
	return func(c *RegistryConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the runtime metrics recorder.
func WithMetrics(metrics Metrics) RegistryOption {
	return func(c *RegistryConfig) {
		c.Metrics = metrics
	}
}

// WithClock sets the runtime clock.
func WithClock(clock Clock) RegistryOption {
	return func(c *RegistryConfig) {
		c.Clock = clock
	}
}

// WithIDGenerator sets the unit identifier generator.
func WithIDGenerator(gen IDGenerator) RegistryOption {
	return func(c *RegistryConfig) {
		c.IDGenerator = gen
	}
}

// Registry holds the ordered set of sinks units fan out to, plus the
// runtime collaborators (clock, id generator, logger, metrics) used by the
// lifecycle pipeline. Construct one per process, or use the package-level
// default.
type Registry struct {
	cfg RegistryConfig

	mu    sync.RWMutex
	sinks []Sink
}

// NewRegistry constructs an empty Registry with defaults and optional
// settings.
func NewRegistry(opts ...RegistryOption) *Registry {
	var cfg RegistryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Registry{cfg: cfg.withDefaults()}
}

// Register appends sink to the fan-out order. Missing optional callbacks
// are defaulted; duplicate names are not rejected.
func (r *Registry) Register(sink Sink) {
	normalized := sink.normalized()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, normalized)
}

// Unregister removes every sink registered under name and returns how many
// were removed.
func (r *Registry) Unregister(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.sinks[:0]
	removed := 0
	for _, sink := range r.sinks {
		if sink.Name == name {
			removed++

			continue
		}
		kept = append(kept, sink)
	}
	r.sinks = kept

	return removed
}

// Sinks returns a snapshot of the registered sinks in registration order.
func (r *Registry) Sinks() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Sink, len(r.sinks))
	copy(out, r.sinks)

	return out
}

// Reset removes all registered sinks.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = nil
}

var (
	defaultMu       sync.RWMutex
	defaultRegistry = newDefaultRegistry()
)

func newDefaultRegistry() *Registry {
	registry := NewRegistry()
	registry.Register(NewConsoleSink(defaultConsoleLogger()))

	return registry
}

// Default returns the process-wide registry. It starts with a console sink
// writing JSON to stderr.
func Default() *Registry {
	defaultMu.RLock()
	defer defaultMu.RUnlock()

	return defaultRegistry
}

// SetDefault replaces the process-wide registry. Intended for startup
// wiring; swapping registries while units are in flight routes only
// subsequently observed units to the new sinks.
func SetDefault(registry *Registry) {
	if registry == nil {
		panic("obs: nil Registry")
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = registry
}

// Register appends sink on the default registry.
func Register(sink Sink) {
	Default().Register(sink)
}

// Unregister removes sinks named name from the default registry.
func Unregister(name string) int {
	return Default().Unregister(name)
}
