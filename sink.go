package obs

import "context"

// Sink consumes completed units. Success is required; every other callback
// is optional. A missing Error falls back to Success, so a sink that does
// not distinguish outcomes receives the unit either way.
type Sink struct {
	// Name identifies the sink for Unregister and diagnostics. Duplicate
	// names are allowed; Unregister removes all of them.
	Name string
	// Success receives the unit when the observed work returned nil.
	Success func(ctx context.Context, unit *Unit)
	// Error receives the unit and the work's error. Defaults to Success.
	Error func(ctx context.Context, unit *Unit, err error)
	// Before runs before the observed work starts.
	Before func(ctx context.Context, unit *Unit)
	// After runs when the observed work returned nil, before Success.
	After func(ctx context.Context, unit *Unit)
	// OnError runs when the observed work failed, before Error.
	OnError func(ctx context.Context, unit *Unit, err error)
}

// normalized returns a copy with every optional callback defaulted, so the
// pipeline never branches on nil hooks.
func (s Sink) normalized() Sink {
	if s.Success == nil {
		s.Success = func(context.Context, *Unit) {}
	}
	if s.Error == nil {
		success := s.Success
		s.Error = func(ctx context.Context, unit *Unit, _ error) {
			success(ctx, unit)
		}
	}
	if s.Before == nil {
		s.Before = func(context.Context, *Unit) {}
	}
	if s.After == nil {
		s.After = func(context.Context, *Unit) {}
	}
	if s.OnError == nil {
		s.OnError = func(context.Context, *Unit, error) {}
	}

	return s
}
