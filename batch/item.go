package batch

import (
	"context"
	"time"

	"github.com/inwatch/obs"
)

// Item is one queued payload. The processor owns an item from Add until
// successful delivery or exhaustion of its retries.
type Item struct {
	// ID identifies the item across retries.
	ID obs.ID
	// EnqueuedAt is when the item entered the queue.
	EnqueuedAt time.Time
	// RetryCount is how many deliveries of this item have failed so far.
	RetryCount int
	// Kind labels the payload for the downstream transport.
	Kind string
	// Payload is the encoded body.
	Payload []byte
}

// DeliverFunc ships a batch of items to the downstream transport. A nil
// return acknowledges the whole batch. Wrap errors with NonRetryable to
// mark permanent failures; anything else is treated as transient.
type DeliverFunc func(ctx context.Context, items []Item) error
