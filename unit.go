package obs

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync/atomic"
	"time"
)

// Data is an insertion-ordered mapping of string keys to arbitrary values.
// Keys are unique; setting an existing key overwrites its value in place
// without changing its position.
type Data struct {
	keys   []string
	values map[string]any
}

// NewData creates an empty data bag.
func NewData() *Data {
	return &Data{values: make(map[string]any)}
}

// Set stores value under key, appending the key on first write.
func (d *Data) Set(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for key and whether it is present.
func (d *Data) Get(key string) (any, bool) {
	value, ok := d.values[key]

	return value, ok
}

// Len returns the number of keys.
func (d *Data) Len() int {
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Data) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)

	return out
}

// Range calls fn for each key/value pair in insertion order until fn
// returns false.
func (d *Data) Range(fn func(key string, value any) bool) {
	for _, key := range d.keys {
		if !fn(key, d.values[key]) {
			return
		}
	}
}

// ToMap returns the contents as a plain map. Ordering is lost; use Keys or
// Range when order matters.
func (d *Data) ToMap() map[string]any {
	out := make(map[string]any, len(d.values))
	for key, value := range d.values {
		out[key] = value
	}

	return out
}

// Clone returns a copy of the bag. Sequence and mapping values created by
// Push and Merge are copied one level deep so the clone is insulated from
// later appends; other values are shared.
func (d *Data) Clone() *Data {
	out := &Data{
		keys:   make([]string, len(d.keys)),
		values: make(map[string]any, len(d.values)),
	}
	copy(out.keys, d.keys)
	for key, value := range d.values {
		switch typed := value.(type) {
		case []any:
			seq := make([]any, len(typed))
			copy(seq, typed)
			out.values[key] = seq
		case map[string]any:
			m := make(map[string]any, len(typed))
			for k, v := range typed {
				m[k] = v
			}
			out.values[key] = m
		default:
			out.values[key] = value
		}
	}

	return out
}

// MarshalJSON encodes the bag as a JSON object with keys in insertion
// order.
func (d *Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(d.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Unit represents one observed operation: an identity plus the telemetry
// attached to it while it ran.
type Unit struct {
	// ID uniquely identifies the unit. Immutable.
	ID ID
	// CreatedAt is the creation timestamp. Immutable.
	CreatedAt time.Time
	// Name is the logical operation name.
	Name string
	// Scope optionally classifies the unit (e.g., "http", "job").
	Scope string
	// Source optionally names the emitting component.
	Source string
	// Data holds the telemetry attached via the mutation API.
	Data *Data

	sealed atomic.Bool
}

// seal makes the unit immutable. Mutation afterwards fails with
// ErrNoActiveUnit.
func (u *Unit) seal() {
	u.sealed.Store(true)
}

// isSealed reports whether fan-out has begun for this unit.
func (u *Unit) isSealed() bool {
	return u.sealed.Load()
}

// snapshot returns a sealed copy with cloned data for sink consumption.
func (u *Unit) snapshot() *Unit {
	out := &Unit{
		ID:        u.ID,
		CreatedAt: u.CreatedAt,
		Name:      u.Name,
		Scope:     u.Scope,
		Source:    u.Source,
		Data:      u.Data.Clone(),
	}
	out.sealed.Store(true)

	return out
}

// MarshalJSON encodes the unit with data keys in insertion order.
func (u *Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        ID        `json:"id"`
		CreatedAt time.Time `json:"created_at"`
		Name      string    `json:"name"`
		Scope     string    `json:"scope,omitempty"`
		Source    string    `json:"source,omitempty"`
		Data      *Data     `json:"data"`
	}{u.ID, u.CreatedAt, u.Name, u.Scope, u.Source, u.Data})
}

// UnitConfig describes a unit to be created by Observe.
type UnitConfig struct {
	// Name is the required logical operation name.
	Name string
	// Scope optionally classifies the unit.
	Scope string
	// Source optionally names the emitting component.
	Source string
	// Data holds initial telemetry, applied in sorted key order.
	Data map[string]any
}

// Validate checks required fields.
func (c UnitConfig) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}

	return nil
}

func newUnit(cfg UnitConfig, gen IDGenerator, clock Clock) (*Unit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id, err := gen.New()
	if err != nil {
		return nil, err
	}

	unit := &Unit{
		ID:        id,
		CreatedAt: clock.Now(),
		Name:      cfg.Name,
		Scope:     cfg.Scope,
		Source:    cfg.Source,
		Data:      NewData(),
	}

	if len(cfg.Data) > 0 {
		keys := make([]string, 0, len(cfg.Data))
		for key := range cfg.Data {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			unit.Data.Set(key, cfg.Data[key])
		}
	}

	return unit, nil
}
