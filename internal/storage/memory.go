package storage

import (
	"context"
	"sync"

	"github.com/google/btree"
)

// MemStore is a process-local backend for tests and ephemeral runs, kept in
// an ordered B-tree
type MemStore struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// NewMemStore creates an empty in-memory backend
func NewMemStore() *MemStore {
	return &MemStore{tree: newTree()}
}

// Get returns the stored value
func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tree.Get(entry{key: key})
	if !ok {
		return nil, nil
	}
	return cloneBytes(e.value), nil
}

// Has checks whether the key exists
func (m *MemStore) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Has(entry{key: key}), nil
}

// Set stores a value
func (m *MemStore) Set(key, value []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.ReplaceOrInsert(entry{key: cloneBytes(key), value: cloneBytes(value)})
	return nil
}

// Delete removes a key
func (m *MemStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Delete(entry{key: key})
	return nil
}

// Iterate walks a copy-on-write snapshot of the tree, so fn runs without
// holding the lock
func (m *MemStore) Iterate(start, end []byte, order Order, fn IterFunc) error {
	m.mu.Lock()
	snap := m.tree.Clone()
	m.mu.Unlock()

	var err error
	walk(snap, start, end, order, func(e entry) bool {
		var stop bool
		stop, err = fn(cloneBytes(e.key), cloneBytes(e.value))
		return err == nil && !stop
	})
	return err
}

// Begin opens a buffered transaction
func (m *MemStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{Branch: NewBranch(m)}, nil
}

// Close is a no-op
func (m *MemStore) Close() error {
	return nil
}

type memTx struct {
	*Branch
	closed bool
}

func (t *memTx) Commit() error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true
	return t.Branch.Write()
}

func (t *memTx) Discard() {
	t.closed = true
	t.Branch.Discard()
}
