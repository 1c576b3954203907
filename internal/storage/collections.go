package storage

import (
	"encoding/json"
	"fmt"
)

func encode[V any](v V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return b, nil
}

func decode[V any](b []byte) (V, error) {
	var v V
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return v, nil
}

// Item is a single typed value stored under a fixed key
type Item[V any] struct {
	key []byte
}

// NewItem creates an item stored at key
func NewItem[V any](key string) Item[V] {
	return Item[V]{key: []byte(key)}
}

// Load returns ErrNotFound when the item was never saved
func (i Item[V]) Load(s KVStore) (V, error) {
	v, ok, err := i.MayLoad(s)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, fmt.Errorf("%s: %w", i.key, ErrNotFound)
	}
	return v, nil
}

// MayLoad reports whether the item exists
func (i Item[V]) MayLoad(s KVStore) (V, bool, error) {
	var zero V
	b, err := s.Get(i.key)
	if err != nil || b == nil {
		return zero, false, err
	}
	v, err := decode[V](b)
	return v, err == nil, err
}

// Save stores the value
func (i Item[V]) Save(s KVStore, v V) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	return s.Set(i.key, b)
}

// Remove deletes the value
func (i Item[V]) Remove(s KVStore) error {
	return s.Delete(i.key)
}

// Exists checks whether the item was saved
func (i Item[V]) Exists(s KVStore) (bool, error) {
	return s.Has(i.key)
}

// Map is a typed namespace addressed by composite keys
type Map[V any] struct {
	namespace []byte
}

// NewMap creates a map under namespace
func NewMap[V any](namespace string) Map[V] {
	return Map[V]{namespace: []byte(namespace)}
}

func (m Map[V]) key(parts [][]byte) ([]byte, error) {
	return Key(append([][]byte{m.namespace}, parts...)...)
}

// Load returns ErrNotFound for missing keys
func (m Map[V]) Load(s KVStore, parts ...[]byte) (V, error) {
	v, ok, err := m.MayLoad(s, parts...)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, fmt.Errorf("%s: %w", m.namespace, ErrNotFound)
	}
	return v, nil
}

// MayLoad reports whether the key exists
func (m Map[V]) MayLoad(s KVStore, parts ...[]byte) (V, bool, error) {
	var zero V
	k, err := m.key(parts)
	if err != nil {
		return zero, false, err
	}
	b, err := s.Get(k)
	if err != nil || b == nil {
		return zero, false, err
	}
	v, err := decode[V](b)
	return v, err == nil, err
}

// Has checks whether the key exists
func (m Map[V]) Has(s KVStore, parts ...[]byte) (bool, error) {
	k, err := m.key(parts)
	if err != nil {
		return false, err
	}
	return s.Has(k)
}

// Save stores v under the key
func (m Map[V]) Save(s KVStore, v V, parts ...[]byte) error {
	k, err := m.key(parts)
	if err != nil {
		return err
	}
	b, err := encode(v)
	if err != nil {
		return err
	}
	return s.Set(k, b)
}

// Remove deletes the key
func (m Map[V]) Remove(s KVStore, parts ...[]byte) error {
	k, err := m.key(parts)
	if err != nil {
		return err
	}
	return s.Delete(k)
}

// Update loads the current value (if any), applies fn and saves the result
func (m Map[V]) Update(s KVStore, fn func(v V, exists bool) (V, error), parts ...[]byte) (V, error) {
	cur, ok, err := m.MayLoad(s, parts...)
	if err != nil {
		return cur, err
	}
	next, err := fn(cur, ok)
	if err != nil {
		return next, err
	}
	return next, m.Save(s, next, parts...)
}

// Bound limits a range relative to the iterated prefix
type Bound struct {
	Key       []byte
	Inclusive bool
}

// InclusiveBound includes key in the range
func InclusiveBound(key []byte) *Bound {
	return &Bound{Key: key, Inclusive: true}
}

// ExclusiveBound excludes key from the range
func ExclusiveBound(key []byte) *Bound {
	return &Bound{Key: key}
}

// RangeOptions configures Map.Range
type RangeOptions struct {
	// Prefix selects the leading key parts
	Prefix [][]byte
	Min    *Bound
	Max    *Bound
	Order  Order
	// Limit caps the number of entries; zero means no limit
	Limit int
}

// Entry is one decoded map entry. Key is the key remainder after the prefix.
type Entry[V any] struct {
	Key   []byte
	Value V
}

// Range walks entries under opts.Prefix. fn must not write to s.
func (m Map[V]) Range(s KVStore, opts RangeOptions, fn func(key []byte, v V) (stop bool, err error)) error {
	base, err := Prefix(append([][]byte{m.namespace}, opts.Prefix...)...)
	if err != nil {
		return err
	}

	start := base
	if opts.Min != nil {
		start = append(cloneBytes(base), opts.Min.Key...)
		if !opts.Min.Inclusive {
			start = append(start, 0)
		}
	}
	end := PrefixEnd(base)
	if opts.Max != nil {
		end = append(cloneBytes(base), opts.Max.Key...)
		if opts.Max.Inclusive {
			end = append(end, 0)
		}
	}

	count := 0
	return s.Iterate(start, end, opts.Order, func(key, value []byte) (bool, error) {
		v, err := decode[V](value)
		if err != nil {
			return true, err
		}
		stop, err := fn(key[len(base):], v)
		if err != nil || stop {
			return true, err
		}
		count++
		return opts.Limit > 0 && count >= opts.Limit, nil
	})
}

// Entries collects a range into a slice
func (m Map[V]) Entries(s KVStore, opts RangeOptions) ([]Entry[V], error) {
	var out []Entry[V]
	err := m.Range(s, opts, func(key []byte, v V) (bool, error) {
		out = append(out, Entry[V]{Key: cloneBytes(key), Value: v})
		return false, nil
	})
	return out, err
}

// IsEmpty reports whether no entry exists under the prefix
func (m Map[V]) IsEmpty(s KVStore, prefix ...[]byte) (bool, error) {
	empty := true
	err := m.Range(s, RangeOptions{Prefix: prefix, Limit: 1}, func([]byte, V) (bool, error) {
		empty = false
		return true, nil
	})
	return empty, err
}

// Counter is a persisted monotonically increasing uint64
type Counter struct {
	item Item[uint64]
}

// NewCounter creates a counter stored at key
func NewCounter(key string) Counter {
	return Counter{item: NewItem[uint64](key)}
}

// Current returns the stored value, zero when unset
func (c Counter) Current(s KVStore) (uint64, error) {
	v, _, err := c.item.MayLoad(s)
	return v, err
}

// Next increments and returns the new value
func (c Counter) Next(s KVStore) (uint64, error) {
	v, err := c.Current(s)
	if err != nil {
		return 0, err
	}
	v++
	return v, c.item.Save(s, v)
}
