package obs

import "errors"

var (
	// ErrNoActiveUnit indicates that no unit is bound to the context, or
	// that the bound unit has already been handed to the sinks.
	ErrNoActiveUnit = errors.New("obs: no active unit")
	// ErrNameRequired is returned when UnitConfig.Name is empty.
	ErrNameRequired = errors.New("obs: unit name is required")
	// ErrNotAppendable is returned by Push when the existing value for the
	// key is not an ordered sequence.
	ErrNotAppendable = errors.New("obs: existing value is not appendable")
	// ErrNotMergeable is returned by Merge when the existing value for the
	// key is not a string-keyed mapping.
	ErrNotMergeable = errors.New("obs: existing value is not mergeable")
	// ErrWorkPanic marks a panic recovered from observed work.
	ErrWorkPanic = errors.New("obs: observed work panic")
	// ErrInvalidID is returned when parsing an ID fails.
	ErrInvalidID = errors.New("obs: id is invalid")
)
