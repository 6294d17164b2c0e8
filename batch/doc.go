// Package batch provides a bounded, retrying delivery queue that decouples
// producers (typically sinks) from a downstream transport.
//
// Items are flushed when the queue reaches its size bound or when the flush
// interval elapses, whichever comes first. Failed deliveries are re-queued
// at the front with exponential backoff until their retry budget is spent;
// exhausted items are dropped and logged, never re-raised to the producer.
package batch
