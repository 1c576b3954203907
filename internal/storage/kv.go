// Package storage implements the key-value state layer used by every contract:
// pluggable backends, branch stores for nested execution, composite keys and
// typed, height-versioned collections.
package storage

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidKey   = errors.New("invalid key")
	ErrInvalidData  = errors.New("invalid data")
	ErrDBConnection = errors.New("database connection error")
	ErrTxClosed     = errors.New("transaction already closed")
	ErrReadOnly     = errors.New("store is read-only")
)

// Order is the direction of an iteration
type Order int

const (
	// Ascending iterates from the smallest key to the largest
	Ascending Order = iota
	// Descending iterates from the largest key to the smallest
	Descending
)

// IterFunc is called for every pair in a range. Returning stop=true ends the
// iteration without error. The callback must not write to the store being
// iterated.
type IterFunc func(key, value []byte) (stop bool, err error)

// KVStore is the raw byte store seen by contracts
type KVStore interface {
	// Get returns nil, nil when the key does not exist
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Iterate walks keys in [start, end). A nil bound is open.
	Iterate(start, end []byte, order Order, fn IterFunc) error
}

// Tx is a backend transaction. Nothing is visible to other transactions
// until Commit.
type Tx interface {
	KVStore
	Commit() error
	Discard()
}

// Backend opens transactions on a persistent store
type Backend interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
