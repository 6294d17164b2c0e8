package obs

import "time"

// Clock supplies timestamps for unit creation and ID generation. Swapping
// it out makes unit lifecycles deterministic in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is the default Clock. Unit timestamps are always UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
