package batch

import (
	"context"
	"sync"
	"time"
)

// Processor is a bounded retrying delivery queue. Flushes are single
// flight: a flush requested while another is in progress is dropped, not
// queued, and the interval timer is rearmed after every flush attempt so
// nothing waits longer than MaxWait.
type Processor struct {
	deliver DeliverFunc
	cfg     Config

	mu         sync.Mutex
	queue      []Item
	processing bool
	closed     bool
	timer      *time.Timer

	inflight sync.WaitGroup
}

// New constructs a Processor with defaults and optional settings, and arms
// the interval timer.
func New(deliver DeliverFunc, opts ...Option) *Processor {
	if deliver == nil {
		panic("batch: nil DeliverFunc")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	p := &Processor{deliver: deliver, cfg: cfg}
	p.timer = time.AfterFunc(cfg.MaxWait, func() {
		p.Flush(context.Background())
	})

	return p
}

// Add appends item to the queue, stamping EnqueuedAt when unset. Reaching
// MaxSize triggers a flush on a separate goroutine so a slow delivery never
// stalls the producer. After Close, Add is a no-op returning ErrClosed.
func (p *Processor) Add(_ context.Context, item Item) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return ErrClosed
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = p.cfg.Clock.Now()
	}
	p.queue = append(p.queue, item)
	full := len(p.queue) >= p.cfg.MaxSize
	p.mu.Unlock()

	if full {
		go p.Flush(context.Background())
	}

	return nil
}

// Flush delivers up to MaxSize items from the front of the queue. It is a
// no-op when the queue is empty or another flush is in progress. Delivery
// failures are retried or dropped per the retry policy; they are never
// returned to the caller.
func (p *Processor) Flush(ctx context.Context) {
	p.mu.Lock()
	if p.processing {
		p.mu.Unlock()

		return
	}
	if len(p.queue) == 0 {
		p.rearmLocked()
		p.mu.Unlock()

		return
	}
	p.processing = true
	p.timer.Stop()

	take := p.cfg.MaxSize
	if take > len(p.queue) {
		take = len(p.queue)
	}
	items := make([]Item, take)
	copy(items, p.queue[:take])
	p.queue = p.queue[take:]

	p.inflight.Add(1)
	p.mu.Unlock()

	if err := p.deliver(ctx, items); err != nil {
		p.handleFailure(ctx, items, err)
	} else {
		p.cfg.Metrics.AddDelivered(len(items))
	}

	p.mu.Lock()
	p.processing = false
	p.rearmLocked()
	p.mu.Unlock()
	p.inflight.Done()
}

// Close stops intake, waits for any in-flight delivery, and drains the
// queue with final flushes. Items that keep failing are dropped once their
// retry budget is spent, so Close always terminates.
func (p *Processor) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return nil
	}
	p.closed = true
	p.timer.Stop()
	p.mu.Unlock()

	for {
		p.inflight.Wait()

		p.mu.Lock()
		remaining := len(p.queue)
		p.mu.Unlock()
		if remaining == 0 {
			return nil
		}

		p.Flush(context.Background())
	}
}

// Len returns the current queue length.
func (p *Processor) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}

func (p *Processor) rearmLocked() {
	if p.closed {
		return
	}
	p.timer.Reset(p.cfg.MaxWait)
}

func (p *Processor) handleFailure(ctx context.Context, items []Item, err error) {
	if !IsRetryable(err) {
		p.cfg.Metrics.AddDropped(len(items))
		p.cfg.Logger.Error("batch delivery failed permanently",
			"items", len(items), "err", err)

		return
	}

	requeue := make([]Item, 0, len(items))
	dropped := 0
	for _, item := range items {
		if item.RetryCount < p.cfg.RetryAttempts {
			item.RetryCount++
			requeue = append(requeue, item)

			continue
		}
		dropped++
		p.cfg.Logger.Error("batch item dropped after exhausting retries",
			"item_id", item.ID.String(), "kind", item.Kind, "retries", item.RetryCount, "err", err)
	}
	if dropped > 0 {
		p.cfg.Metrics.AddDropped(dropped)
	}
	if len(requeue) == 0 {
		return
	}

	p.backoff(ctx, requeue[0].RetryCount-1)

	p.mu.Lock()
	p.queue = append(requeue, p.queue...)
	p.mu.Unlock()

	p.cfg.Metrics.AddRetried(len(requeue))
	p.cfg.Logger.Warn("batch delivery failed; re-queued for retry",
		"items", len(requeue), "err", err)
}

// backoff waits RetryDelay * 2^retryCount, or until ctx is done.
func (p *Processor) backoff(ctx context.Context, retryCount int) {
	delay := p.cfg.RetryDelay << retryCount
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
