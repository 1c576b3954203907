package storage

import (
	"bytes"

	"github.com/google/btree"
)

const treeDegree = 32

// entry is a key in an ordered tree. deleted marks a tombstone in a branch.
type entry struct {
	key     []byte
	value   []byte
	deleted bool
}

func entryLess(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

func newTree() *btree.BTreeG[entry] {
	return btree.NewG(treeDegree, entryLess)
}

// walk visits the entries of t in [start, end) in order until fn returns
// false. A nil bound is open.
func walk(t *btree.BTreeG[entry], start, end []byte, order Order, fn func(entry) bool) {
	if order == Descending {
		visit := func(e entry) bool {
			if end != nil && bytes.Compare(e.key, end) >= 0 {
				return true
			}
			if start != nil && bytes.Compare(e.key, start) < 0 {
				return false
			}
			return fn(e)
		}
		if end == nil {
			t.Descend(visit)
		} else {
			t.DescendLessOrEqual(entry{key: end}, visit)
		}
		return
	}
	switch {
	case start == nil && end == nil:
		t.Ascend(fn)
	case end == nil:
		t.AscendGreaterOrEqual(entry{key: start}, fn)
	case start == nil:
		t.AscendLessThan(entry{key: end}, fn)
	default:
		t.AscendRange(entry{key: start}, entry{key: end}, fn)
	}
}
