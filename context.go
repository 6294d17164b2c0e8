package obs

import "context"

// The current unit travels with the context. Binding is structural: a
// nested Observe derives a child context whose unit shadows the outer one
// for exactly the child's dynamic extent, and concurrent call trees carry
// distinct contexts, so there is no shared slot to corrupt across
// interleaved goroutines.

type unitContextKey struct{}

// withUnit returns a context carrying unit as the current unit.
func withUnit(ctx context.Context, unit *Unit) context.Context {
	return context.WithValue(ctx, unitContextKey{}, unit)
}

// FromContext returns the unit bound to ctx, or ErrNoActiveUnit when ctx
// carries no unit or the bound unit has already been exported.
func FromContext(ctx context.Context) (*Unit, error) {
	unit, ok := ctx.Value(unitContextKey{}).(*Unit)
	if !ok || unit == nil {
		return nil, ErrNoActiveUnit
	}
	if unit.isSealed() {
		return nil, ErrNoActiveUnit
	}

	return unit, nil
}
