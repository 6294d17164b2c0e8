package obs

// Metrics captures runtime-level telemetry about the runtime itself.
type Metrics interface {
	// AddStarted increments the count of units that entered Observe.
	AddStarted(count int)
	// AddSucceeded increments the count of units whose work returned nil.
	AddSucceeded(count int)
	// AddFailed increments the count of units whose work returned an error
	// or panicked.
	AddFailed(count int)
	// AddSinkFailures increments the count of sink hook or delivery
	// failures swallowed by the pipeline.
	AddSinkFailures(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// AddStarted implements Metrics.
func (NopMetrics) AddStarted(int) {}

// AddSucceeded implements Metrics.
func (NopMetrics) AddSucceeded(int) {}

// AddFailed implements Metrics.
func (NopMetrics) AddFailed(int) {}

// AddSinkFailures implements Metrics.
func (NopMetrics) AddSinkFailures(int) {}
