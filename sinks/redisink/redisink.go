// Package redisink ships finished units into a Redis list. Units are
// encoded as JSON with data keys in insertion order, optionally rewritten
// to a target casing style, and delivered through a batch.Processor so a
// slow or flapping Redis never stalls the observed work.
package redisink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/inwatch/obs"
	"github.com/inwatch/obs/batch"
	"github.com/inwatch/obs/casing"
)

const (
	defaultKey      = "obs:units"
	defaultSinkName = "redis"

	itemKind = "unit"
)

// Exporter writes unit payloads to a Redis list.
type Exporter struct {
	client     *backend.Client
	ownsClient bool
	key        string
	style      casing.Style
	logger     obs.Logger
	batchOpts  []batch.Option

	proc *batch.Processor
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithKey sets the Redis list key. Defaults to "obs:units".
func WithKey(key string) Option {
	return func(e *Exporter) {
		e.key = key
	}
}

// WithKeyStyle rewrites unit data keys to the given casing style before
// encoding. Defaults to casing.None.
func WithKeyStyle(style casing.Style) Option {
	return func(e *Exporter) {
		e.style = style
	}
}

// WithLogger sets the exporter logger.
func WithLogger(logger obs.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithBatchOptions forwards options to the underlying delivery queue.
func WithBatchOptions(opts ...batch.Option) Option {
	return func(e *Exporter) {
		e.batchOpts = append(e.batchOpts, opts...)
	}
}

// New creates an Exporter with its own Redis client.
func New(address, password string, db int, opts ...Option) *Exporter {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	exporter := newExporter(client, opts...)
	exporter.ownsClient = true

	return exporter
}

// NewFromClient creates an Exporter on an existing client. The caller
// keeps ownership of the client.
func NewFromClient(client *backend.Client, opts ...Option) *Exporter {
	return newExporter(client, opts...)
}

func newExporter(client *backend.Client, opts ...Option) *Exporter {
	if client == nil {
		panic("redisink: nil client")
	}

	exporter := &Exporter{
		client: client,
		key:    defaultKey,
		style:  casing.None,
		logger: obs.NopLogger{},
	}
	for _, opt := range opts {
		opt(exporter)
	}

	batchOpts := append([]batch.Option{batch.WithLogger(exporter.logger)}, exporter.batchOpts...)
	exporter.proc = batch.New(exporter.deliver, batchOpts...)

	return exporter
}

// Sink returns the obs.Sink to register. Success and Error both enqueue
// the unit; the outcome travels in the payload.
func (e *Exporter) Sink() obs.Sink {
	return obs.Sink{
		Name: defaultSinkName,
		Success: func(ctx context.Context, unit *obs.Unit) {
			e.enqueue(ctx, unit, nil)
		},
		Error: func(ctx context.Context, unit *obs.Unit, err error) {
			e.enqueue(ctx, unit, err)
		},
	}
}

// Close drains the delivery queue and, when the exporter owns the client,
// closes it.
func (e *Exporter) Close() error {
	err := e.proc.Close()
	if e.ownsClient {
		if closeErr := e.client.Close(); err == nil {
			err = closeErr
		}
	}

	return err
}

func (e *Exporter) enqueue(ctx context.Context, unit *obs.Unit, unitErr error) {
	payload, err := e.encode(unit, unitErr)
	if err != nil {
		e.logger.Error("redisink unit encode failed",
			"unit", unit.Name, "unit_id", unit.ID.String(), "err", err)

		return
	}

	item := batch.Item{ID: unit.ID, Kind: itemKind, Payload: payload}
	if err := e.proc.Add(ctx, item); err != nil {
		e.logger.Warn("redisink dropped unit after close",
			"unit", unit.Name, "unit_id", unit.ID.String())
	}
}

type unitPayload struct {
	ID        obs.ID    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Scope     string    `json:"scope,omitempty"`
	Source    string    `json:"source,omitempty"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	Data      *obs.Data `json:"data"`
}

func (e *Exporter) encode(unit *obs.Unit, unitErr error) ([]byte, error) {
	data := unit.Data
	if e.style != casing.None {
		normalized := obs.NewData()
		unit.Data.Range(func(key string, value any) bool {
			normalized.Set(casing.Key(key, e.style), casing.Transform(value, e.style))

			return true
		})
		data = normalized
	}

	payload := unitPayload{
		ID:        unit.ID,
		CreatedAt: unit.CreatedAt,
		Name:      unit.Name,
		Scope:     unit.Scope,
		Source:    unit.Source,
		Outcome:   "success",
		Data:      data,
	}
	if unitErr != nil {
		payload.Outcome = "error"
		payload.Error = unitErr.Error()
	}

	return json.Marshal(payload)
}

func (e *Exporter) deliver(ctx context.Context, items []batch.Item) error {
	values := make([]any, len(items))
	for i, item := range items {
		values[i] = item.Payload
	}

	if err := e.client.LPush(ctx, e.key, values...).Err(); err != nil {
		// Network and server errors are transient; let the queue retry.
		return fmt.Errorf("redisink push: %w", err)
	}

	return nil
}
