package batch

// Metrics captures processor-level telemetry.
type Metrics interface {
	// AddDelivered increments the count of successfully delivered items.
	AddDelivered(count int)
	// AddRetried increments the count of items re-queued for retry.
	AddRetried(count int)
	// AddDropped increments the count of items dropped after exhausting
	// their retries or failing non-retryably.
	AddDropped(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// AddDelivered implements Metrics.
func (NopMetrics) AddDelivered(int) {}

// AddRetried implements Metrics.
func (NopMetrics) AddRetried(int) {}

// AddDropped implements Metrics.
func (NopMetrics) AddDropped(int) {}
