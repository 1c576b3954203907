package storage

import (
	"bytes"

	"github.com/google/btree"
)

// Branch buffers writes on top of a parent store. Reads see the buffered
// writes; Write flushes them to the parent and dropping the branch discards
// them. The host runs every sub-message in its own branch.
type Branch struct {
	parent KVStore
	writes *btree.BTreeG[entry]
}

// NewBranch creates a branch over parent
func NewBranch(parent KVStore) *Branch {
	return &Branch{
		parent: parent,
		writes: newTree(),
	}
}

// Get returns the buffered value or falls through to the parent
func (b *Branch) Get(key []byte) ([]byte, error) {
	if w, ok := b.writes.Get(entry{key: key}); ok {
		if w.deleted {
			return nil, nil
		}
		return cloneBytes(w.value), nil
	}
	return b.parent.Get(key)
}

// Has checks whether the key exists
func (b *Branch) Has(key []byte) (bool, error) {
	v, err := b.Get(key)
	return v != nil, err
}

// Set buffers a write
func (b *Branch) Set(key, value []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}
	b.writes.ReplaceOrInsert(entry{key: cloneBytes(key), value: cloneBytes(value)})
	return nil
}

// Delete buffers a deletion
func (b *Branch) Delete(key []byte) error {
	b.writes.ReplaceOrInsert(entry{key: cloneBytes(key), deleted: true})
	return nil
}

// Iterate merges buffered writes with the parent range
func (b *Branch) Iterate(start, end []byte, order Order, fn IterFunc) error {
	var pending []entry
	walk(b.writes, start, end, order, func(e entry) bool {
		pending = append(pending, e)
		return true
	})

	// before reports whether a comes strictly before c in iteration order
	before := func(a, c []byte) bool {
		if order == Descending {
			return bytes.Compare(a, c) > 0
		}
		return bytes.Compare(a, c) < 0
	}

	stopped := false
	emitPending := func(w entry) (bool, error) {
		if w.deleted {
			return false, nil
		}
		return fn(cloneBytes(w.key), cloneBytes(w.value))
	}

	err := b.parent.Iterate(start, end, order, func(key, value []byte) (bool, error) {
		for len(pending) > 0 && before(pending[0].key, key) {
			stop, err := emitPending(pending[0])
			pending = pending[1:]
			if err != nil || stop {
				stopped = true
				return true, err
			}
		}
		if len(pending) > 0 && bytes.Equal(pending[0].key, key) {
			stop, err := emitPending(pending[0])
			pending = pending[1:]
			if err != nil || stop {
				stopped = true
				return true, err
			}
			return false, nil
		}
		stop, err := fn(key, value)
		if stop {
			stopped = true
		}
		return stop, err
	})
	if err != nil || stopped {
		return err
	}

	for _, w := range pending {
		stop, err := emitPending(w)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// Write flushes buffered writes to the parent in key order
func (b *Branch) Write() error {
	var err error
	b.writes.Ascend(func(w entry) bool {
		if w.deleted {
			err = b.parent.Delete(w.key)
		} else {
			err = b.parent.Set(w.key, w.value)
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	b.writes.Clear(false)
	return nil
}

// Discard drops buffered writes
func (b *Branch) Discard() {
	b.writes.Clear(false)
}
