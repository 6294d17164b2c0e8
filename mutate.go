package obs

import "context"

// Set overwrites the value for key on the current unit. The last write for
// a given key wins.
func Set(ctx context.Context, key string, value any) error {
	unit, err := FromContext(ctx)
	if err != nil {
		return err
	}
	unit.Data.Set(key, value)

	return nil
}

// Get returns the current value for key on the current unit and whether
// the key is present.
func Get(ctx context.Context, key string) (any, bool, error) {
	unit, err := FromContext(ctx)
	if err != nil {
		return nil, false, err
	}
	value, ok := unit.Data.Get(key)

	return value, ok, nil
}

// Push appends value to the ordered sequence stored under key,
// initializing the sequence on first use. Returns ErrNotAppendable when
// the existing value is not a sequence created by Push.
func Push(ctx context.Context, key string, value any) error {
	unit, err := FromContext(ctx)
	if err != nil {
		return err
	}

	existing, ok := unit.Data.Get(key)
	if !ok {
		unit.Data.Set(key, []any{value})

		return nil
	}
	seq, ok := existing.([]any)
	if !ok {
		return ErrNotAppendable
	}
	unit.Data.Set(key, append(seq, value))

	return nil
}

// Merge shallow-merges partial into the mapping stored under key,
// initializing it from partial on first use. Keys in partial take
// precedence over existing ones. Returns ErrNotMergeable when the existing
// value is not a string-keyed mapping.
func Merge(ctx context.Context, key string, partial map[string]any) error {
	unit, err := FromContext(ctx)
	if err != nil {
		return err
	}

	existing, ok := unit.Data.Get(key)
	if !ok {
		merged := make(map[string]any, len(partial))
		for k, v := range partial {
			merged[k] = v
		}
		unit.Data.Set(key, merged)

		return nil
	}
	current, ok := existing.(map[string]any)
	if !ok {
		return ErrNotMergeable
	}
	for k, v := range partial {
		current[k] = v
	}

	return nil
}
