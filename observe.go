package obs

import (
	"context"
	"fmt"
)

// Observe creates a unit from cfg, binds it into the context, runs work,
// and fans the finished unit out to every sink registered at the time the
// unit was bound. Exactly one of Success or Error is delivered per sink
// per unit, matching the work's outcome, in registration order. The work's
// error (or panic) is always surfaced to the caller unchanged; sink
// failures are logged and swallowed.
func (r *Registry) Observe(ctx context.Context, cfg UnitConfig, work func(ctx context.Context) error) error {
	unit, err := newUnit(cfg, r.cfg.IDGenerator, r.cfg.Clock)
	if err != nil {
		return err
	}

	bound := withUnit(ctx, unit)
	sinks := r.Sinks()
	r.cfg.Metrics.AddStarted(1)

	for i := range sinks {
		r.runHook(unit, sinks[i].Name, "before", func() {
			sinks[i].Before(bound, unit)
		})
	}

	workErr, panicValue, panicked := r.runWork(bound, work)

	unit.seal()
	snapshot := unit.snapshot()

	if workErr == nil && !panicked {
		r.exportSuccess(ctx, sinks, snapshot)
		r.cfg.Metrics.AddSucceeded(1)

		return nil
	}

	failure := workErr
	if panicked {
		failure = fmt.Errorf("%w: %v", ErrWorkPanic, panicValue)
	}
	r.exportFailure(ctx, sinks, snapshot, failure)
	r.cfg.Metrics.AddFailed(1)

	if panicked {
		panic(panicValue)
	}

	return workErr
}

func (r *Registry) runWork(ctx context.Context, work func(ctx context.Context) error) (err error, panicValue any, panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			panicValue = rec
			panicked = true
		}
	}()

	return work(ctx), nil, false
}

func (r *Registry) exportSuccess(ctx context.Context, sinks []Sink, unit *Unit) {
	for i := range sinks {
		r.runHook(unit, sinks[i].Name, "after", func() {
			sinks[i].After(ctx, unit)
		})
	}
	for i := range sinks {
		r.runHook(unit, sinks[i].Name, "success", func() {
			sinks[i].Success(ctx, unit)
		})
	}
}

func (r *Registry) exportFailure(ctx context.Context, sinks []Sink, unit *Unit, failure error) {
	for i := range sinks {
		r.runHook(unit, sinks[i].Name, "on_error", func() {
			sinks[i].OnError(ctx, unit, failure)
		})
	}
	for i := range sinks {
		r.runHook(unit, sinks[i].Name, "error", func() {
			sinks[i].Error(ctx, unit, failure)
		})
	}
}

// runHook isolates a single sink callback: a panicking sink is logged and
// counted, and never interrupts the pipeline or the other sinks.
func (r *Registry) runHook(unit *Unit, sinkName, stage string, call func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.cfg.Metrics.AddSinkFailures(1)
			r.cfg.Logger.Error("obs sink callback panic",
				"sink", sinkName, "stage", stage, "unit", unit.Name, "unit_id", unit.ID.String(), "panic", rec)
		}
	}()

	call()
}

// Observe runs work under a new unit on the default registry.
func Observe(ctx context.Context, cfg UnitConfig, work func(ctx context.Context) error) error {
	return Default().Observe(ctx, cfg, work)
}

// ObserveValue is an Observe variant whose work produces a value. The
// value reaches the caller only when the work returns nil.
func ObserveValue[T any](ctx context.Context, r *Registry, cfg UnitConfig, work func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Observe(ctx, cfg, func(ctx context.Context) error {
		var workErr error
		result, workErr = work(ctx)

		return workErr
	})

	return result, err
}
