package obs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type recordingSink struct {
	mu       sync.Mutex
	name     string
	calls    []string
	units    []*Unit
	exported []*Unit
	errs     []error
	record   func(stage string)
}

func (s *recordingSink) log(stage string, unit *Unit, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, stage)
	s.units = append(s.units, unit)
	if stage == "success" || stage == "error" {
		s.exported = append(s.exported, unit)
	}
	s.errs = append(s.errs, err)
	if s.record != nil {
		s.record(s.name + ":" + stage)
	}
}

func (s *recordingSink) sink() Sink {
	return Sink{
		Name:    s.name,
		Success: func(_ context.Context, u *Unit) { s.log("success", u, nil) },
		Error:   func(_ context.Context, u *Unit, err error) { s.log("error", u, err) },
		Before:  func(_ context.Context, u *Unit) { s.log("before", u, nil) },
		After:   func(_ context.Context, u *Unit) { s.log("after", u, nil) },
		OnError: func(_ context.Context, u *Unit, err error) { s.log("on_error", u, err) },
	}
}

func (s *recordingSink) stages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)

	return out
}

func newTestRegistry(sinks ...*recordingSink) *Registry {
	registry := NewRegistry()
	for _, s := range sinks {
		registry.Register(s.sink())
	}

	return registry
}

func TestObserve_SuccessFanOut(t *testing.T) {
	first := &recordingSink{name: "first"}
	second := &recordingSink{name: "second"}

	var order []string
	record := func(stage string) { order = append(order, stage) }
	first.record = record
	second.record = record

	registry := newTestRegistry(first, second)

	err := registry.Observe(context.Background(), UnitConfig{Name: "checkout"}, func(ctx context.Context) error {
		return Set(ctx, "total", 42)
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}

	want := []string{
		"first:before", "second:before",
		"first:after", "second:after",
		"first:success", "second:success",
	}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}

	unit := first.units[len(first.units)-1]
	value, ok := unit.Data.Get("total")
	if !ok || value != 42 {
		t.Fatalf("expected sink to see mutations, got %v", value)
	}
}

func TestObserve_FailureFanOut(t *testing.T) {
	sink := &recordingSink{name: "sink"}
	registry := newTestRegistry(sink)
	workErr := errors.New("boom")

	err := registry.Observe(context.Background(), UnitConfig{Name: "checkout"}, func(context.Context) error {
		return workErr
	})
	if !errors.Is(err, workErr) {
		t.Fatalf("expected work error surfaced, got %v", err)
	}

	stages := sink.stages()
	want := []string{"before", "on_error", "error"}
	if len(stages) != len(want) {
		t.Fatalf("expected %v, got %v", want, stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, stages)
		}
	}
	if last := sink.errs[len(sink.errs)-1]; !errors.Is(last, workErr) {
		t.Fatalf("expected work error delivered to sink, got %v", last)
	}
}

func TestObserve_ErrorDefaultsToSuccess(t *testing.T) {
	var delivered int
	registry := NewRegistry()
	registry.Register(Sink{
		Name:    "success-only",
		Success: func(context.Context, *Unit) { delivered++ },
	})

	_ = registry.Observe(context.Background(), UnitConfig{Name: "job"}, func(context.Context) error {
		return errors.New("boom")
	})

	if delivered != 1 {
		t.Fatalf("expected success fallback exactly once, got %d", delivered)
	}
}

func TestObserve_SinkPanicsIsolated(t *testing.T) {
	panicking := Sink{
		Name:    "panicking",
		Success: func(context.Context, *Unit) { panic("sink bug") },
		Before:  func(context.Context, *Unit) { panic("hook bug") },
	}
	healthy := &recordingSink{name: "healthy"}

	registry := NewRegistry()
	registry.Register(panicking)
	registry.Register(healthy.sink())

	err := registry.Observe(context.Background(), UnitConfig{Name: "job"}, func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected sink failure swallowed, got %v", err)
	}

	stages := healthy.stages()
	if len(stages) == 0 || stages[len(stages)-1] != "success" {
		t.Fatalf("expected healthy sink delivery despite panic, got %v", stages)
	}
}

func TestObserve_WorkPanicReraisedAfterFanOut(t *testing.T) {
	sink := &recordingSink{name: "sink"}
	registry := newTestRegistry(sink)

	defer func() {
		rec := recover()
		if rec != "work exploded" {
			t.Fatalf("expected original panic value, got %v", rec)
		}
		stages := sink.stages()
		if len(stages) == 0 || stages[len(stages)-1] != "error" {
			t.Fatalf("expected error fan-out before re-panic, got %v", stages)
		}
		if last := sink.errs[len(sink.errs)-1]; !errors.Is(last, ErrWorkPanic) {
			t.Fatalf("expected ErrWorkPanic delivered, got %v", last)
		}
	}()

	_ = registry.Observe(context.Background(), UnitConfig{Name: "job"}, func(context.Context) error {
		panic("work exploded")
	})
}

func TestObserve_NestedUnitsShadow(t *testing.T) {
	sink := &recordingSink{name: "sink"}
	registry := newTestRegistry(sink)

	err := registry.Observe(context.Background(), UnitConfig{Name: "outer"}, func(outerCtx context.Context) error {
		if err := Set(outerCtx, "who", "outer"); err != nil {
			return err
		}

		innerErr := registry.Observe(outerCtx, UnitConfig{Name: "inner"}, func(innerCtx context.Context) error {
			return Set(innerCtx, "who", "inner")
		})
		if innerErr != nil {
			return innerErr
		}

		// Outer binding is current again, untouched by the inner unit.
		value, _, err := Get(outerCtx, "who")
		if err != nil {
			return err
		}
		if value != "outer" {
			return fmt.Errorf("inner mutation leaked into outer unit: %v", value)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}

	if len(sink.exported) != 2 {
		t.Fatalf("expected two exported units, got %d", len(sink.exported))
	}
	if sink.exported[0].Name != "inner" || sink.exported[1].Name != "outer" {
		t.Fatalf("expected inner exported first, got %q then %q", sink.exported[0].Name, sink.exported[1].Name)
	}
}

func TestObserve_ConcurrentUnitsIsolated(t *testing.T) {
	const workers = 32

	registry := NewRegistry()
	collected := make([]*Unit, 0, workers)
	var mu sync.Mutex
	registry.Register(Sink{
		Name: "collector",
		Success: func(_ context.Context, unit *Unit) {
			mu.Lock()
			collected = append(collected, unit)
			mu.Unlock()
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", worker)
			err := registry.Observe(context.Background(), UnitConfig{Name: fmt.Sprintf("unit-%d", worker)}, func(ctx context.Context) error {
				return Set(ctx, key, worker)
			})
			if err != nil {
				t.Errorf("observe %d: %v", worker, err)
			}
		}(i)
	}
	wg.Wait()

	if len(collected) != workers {
		t.Fatalf("expected %d units, got %d", workers, len(collected))
	}
	for _, unit := range collected {
		if unit.Data.Len() != 1 {
			t.Fatalf("unit %s observed foreign mutations: %v", unit.Name, unit.Data.Keys())
		}
	}
}

func TestObserve_SealedAfterExport(t *testing.T) {
	registry := NewRegistry()

	var leaked context.Context
	err := registry.Observe(context.Background(), UnitConfig{Name: "job"}, func(ctx context.Context) error {
		leaked = ctx

		return nil
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}

	if err := Set(leaked, "late", true); !errors.Is(err, ErrNoActiveUnit) {
		t.Fatalf("expected mutation after export to fail, got %v", err)
	}
}

func TestObserve_NameRequired(t *testing.T) {
	registry := NewRegistry()
	err := registry.Observe(context.Background(), UnitConfig{}, func(context.Context) error {
		t.Fatal("work must not run for invalid config")

		return nil
	})
	if !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestObserveValue(t *testing.T) {
	registry := NewRegistry()

	result, err := ObserveValue(context.Background(), registry, UnitConfig{Name: "calc"}, func(ctx context.Context) (int, error) {
		if err := Set(ctx, "input", 21); err != nil {
			return 0, err
		}

		return 42, nil
	})
	if err != nil {
		t.Fatalf("observe value: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected result 42, got %d", result)
	}
}

func TestObserve_SinkSnapshotAtBind(t *testing.T) {
	sink := &recordingSink{name: "early"}
	registry := newTestRegistry(sink)

	err := registry.Observe(context.Background(), UnitConfig{Name: "job"}, func(context.Context) error {
		// Registered mid-flight: must not receive this unit.
		registry.Register(Sink{Name: "late", Success: func(context.Context, *Unit) {
			t.Error("late sink must not receive in-flight unit")
		}})

		return nil
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}

	if stages := sink.stages(); stages[len(stages)-1] != "success" {
		t.Fatalf("expected early sink delivery, got %v", stages)
	}
}
