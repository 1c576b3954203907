package storage_test

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

func collect(t *testing.T, s storage.KVStore, start, end []byte, order storage.Order) []string {
	t.Helper()
	var keys []string
	err := s.Iterate(start, end, order, func(k, v []byte) (bool, error) {
		keys = append(keys, string(k)+"="+string(v))
		return false, nil
	})
	require.NoError(t, err)
	return keys
}

func backends(t *testing.T) map[string]storage.Backend {
	t.Helper()
	b, err := storage.OpenBadger(&storage.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return map[string]storage.Backend{
		"memory": storage.NewMemStore(),
		"badger": b,
	}
}

func TestBackendTransactions(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			tx, err := backend.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, tx.Set([]byte("b"), []byte("2")))
			require.NoError(t, tx.Set([]byte("a"), []byte("1")))
			require.NoError(t, tx.Set([]byte("c"), []byte("3")))
			require.NoError(t, tx.Commit())

			tx, err = backend.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, tx.Set([]byte("d"), []byte("4")))
			tx.Discard()

			tx, err = backend.Begin(ctx)
			require.NoError(t, err)
			defer tx.Discard()

			v, err := tx.Get([]byte("d"))
			require.NoError(t, err)
			assert.Nil(t, v, "discarded write must not persist")

			assert.Equal(t, []string{"a=1", "b=2", "c=3"}, collect(t, tx, nil, nil, storage.Ascending))
			assert.Equal(t, []string{"c=3", "b=2"}, collect(t, tx, []byte("b"), nil, storage.Descending))
			assert.Equal(t, []string{"b=2", "a=1"}, collect(t, tx, nil, []byte("c"), storage.Descending))
			assert.Equal(t, []string{"b=2"}, collect(t, tx, []byte("b"), []byte("c"), storage.Ascending))
		})
	}
}

func TestBranchMergesPendingWrites(t *testing.T) {
	parent := storage.NewMemStore()
	require.NoError(t, parent.Set([]byte("a"), []byte("1")))
	require.NoError(t, parent.Set([]byte("c"), []byte("3")))
	require.NoError(t, parent.Set([]byte("e"), []byte("5")))

	branch := storage.NewBranch(parent)
	require.NoError(t, branch.Set([]byte("b"), []byte("2")))
	require.NoError(t, branch.Set([]byte("c"), []byte("33")))
	require.NoError(t, branch.Delete([]byte("e")))
	require.NoError(t, branch.Set([]byte("f"), []byte("6")))

	assert.Equal(t, []string{"a=1", "b=2", "c=33", "f=6"}, collect(t, branch, nil, nil, storage.Ascending))
	assert.Equal(t, []string{"f=6", "c=33", "b=2", "a=1"}, collect(t, branch, nil, nil, storage.Descending))

	// parent untouched until Write
	assert.Equal(t, []string{"a=1", "c=3", "e=5"}, collect(t, parent, nil, nil, storage.Ascending))

	require.NoError(t, branch.Write())
	assert.Equal(t, []string{"a=1", "b=2", "c=33", "f=6"}, collect(t, parent, nil, nil, storage.Ascending))
}

func TestBranchStopsEarly(t *testing.T) {
	parent := storage.NewMemStore()
	require.NoError(t, parent.Set([]byte("b"), []byte("2")))
	branch := storage.NewBranch(parent)
	require.NoError(t, branch.Set([]byte("a"), []byte("1")))

	var seen []string
	err := branch.Iterate(nil, nil, storage.Ascending, func(k, _ []byte) (bool, error) {
		seen = append(seen, string(k))
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen)
}

func TestMemStoreOrderedRanges(t *testing.T) {
	m := storage.NewMemStore()
	// inserted out of order
	for _, i := range []int{7, 2, 9, 0, 5, 3, 8, 1, 6, 4} {
		k := fmt.Sprintf("k%02d", i)
		require.NoError(t, m.Set([]byte(k), []byte(strconv.Itoa(i))))
	}
	require.NoError(t, m.Delete([]byte("k05")))

	assert.Equal(t, []string{"k03=3", "k04=4", "k06=6"}, collect(t, m, []byte("k03"), []byte("k07"), storage.Ascending))
	assert.Equal(t, []string{"k06=6", "k04=4", "k03=3"}, collect(t, m, []byte("k03"), []byte("k07"), storage.Descending))
	assert.Equal(t, []string{"k09=9", "k08=8"}, collect(t, m, []byte("k08"), nil, storage.Descending))
	assert.Equal(t, []string{"k00=0", "k01=1"}, collect(t, m, nil, []byte("k02"), storage.Ascending))
	assert.Empty(t, collect(t, m, []byte("k05"), []byte("k06"), storage.Ascending))

	// values handed to callers are copies
	require.NoError(t, m.Iterate(nil, nil, storage.Ascending, func(_, v []byte) (bool, error) {
		v[0] = 'x'
		return false, nil
	}))
	v, err := m.Get([]byte("k00"))
	require.NoError(t, err)
	assert.Equal(t, []byte("0"), v)
}

func TestBranchBoundedDescending(t *testing.T) {
	parent := storage.NewMemStore()
	for _, k := range []string{"a", "c", "e", "g"} {
		require.NoError(t, parent.Set([]byte(k), []byte(k)))
	}
	branch := storage.NewBranch(parent)
	require.NoError(t, branch.Set([]byte("d"), []byte("d")))
	require.NoError(t, branch.Delete([]byte("e")))
	require.NoError(t, branch.Set([]byte("h"), []byte("h")))

	assert.Equal(t, []string{"d=d", "c=c"}, collect(t, branch, []byte("b"), []byte("f"), storage.Descending))
	assert.Equal(t, []string{"c=c", "d=d", "g=g"}, collect(t, branch, []byte("b"), []byte("h"), storage.Ascending))

	branch.Discard()
	assert.Equal(t, []string{"a=a", "c=c", "e=e", "g=g"}, collect(t, branch, nil, nil, storage.Ascending))
}

func TestCompositeKeys(t *testing.T) {
	k, err := storage.Key([]byte("ns"), []byte("ab"), []byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 2, 'n', 's', 0, 2, 'a', 'b', 'c'}, k)
	other, err := storage.Key([]byte("ns"), []byte("a"), []byte("bc"))
	require.NoError(t, err)
	assert.NotEqual(t, k, other)

	parts, err := storage.SplitKey([]byte{0, 2, 'a', 'b', 'c'}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("ab"), []byte("c")}, parts)

	_, err = storage.SplitKey([]byte{0, 9, 'a'}, 2)
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	assert.Equal(t, []byte{0x01, 0x03}, storage.PrefixEnd([]byte{0x01, 0x02, 0xFF}))
	assert.Nil(t, storage.PrefixEnd([]byte{0xFF, 0xFF}))
}

func TestOversizedKeyPart(t *testing.T) {
	long := bytes.Repeat([]byte("a"), storage.MaxKeyPart+1)

	_, err := storage.Key(long, []byte("tail"))
	require.ErrorIs(t, err, storage.ErrInvalidKey)
	_, err = storage.Prefix([]byte("ns"), long)
	require.ErrorIs(t, err, storage.ErrInvalidKey)

	// the last part carries no length prefix
	_, err = storage.Key([]byte("ns"), long)
	require.NoError(t, err)

	s := storage.NewMemStore()
	m := storage.NewMap[uint64]("pairs")
	require.ErrorIs(t, m.Save(s, 1, long, []byte("b")), storage.ErrInvalidKey)
	_, _, err = m.MayLoad(s, long, []byte("b"))
	require.ErrorIs(t, err, storage.ErrInvalidKey)
	require.ErrorIs(t, m.Remove(s, long, []byte("b")), storage.ErrInvalidKey)
	_, err = m.Entries(s, storage.RangeOptions{Prefix: [][]byte{long}})
	require.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestMapRange(t *testing.T) {
	s := storage.NewMemStore()
	votes := storage.NewMap[uint64]("votes")
	for id := uint64(1); id <= 3; id++ {
		for _, voter := range []string{"alice", "bob"} {
			require.NoError(t, votes.Save(s, id*10, storage.U64(id), []byte(voter)))
		}
	}

	entries, err := votes.Entries(s, storage.RangeOptions{Prefix: [][]byte{storage.U64(2)}})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", string(entries[0].Key))
	assert.Equal(t, uint64(20), entries[0].Value)

	entries, err = votes.Entries(s, storage.RangeOptions{
		Prefix: [][]byte{storage.U64(2)},
		Min:    storage.ExclusiveBound([]byte("alice")),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", string(entries[0].Key))

	empty, err := votes.IsEmpty(s, storage.U64(4))
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = votes.Load(s, storage.U64(9), []byte("alice"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotMapHeights(t *testing.T) {
	s := storage.NewMemStore()
	power := storage.NewSnapshotMap[uint64]("power")
	key := []byte("alice")

	require.NoError(t, power.Save(s, 100, 5, key))
	require.NoError(t, power.Save(s, 40, 8, key))
	require.NoError(t, power.Save(s, 45, 8, key))
	require.NoError(t, power.Remove(s, 12, key))

	tests := []struct {
		height uint64
		want   uint64
		found  bool
	}{
		{height: 4, found: false},
		{height: 5, found: false},
		{height: 6, want: 100, found: true},
		{height: 8, want: 100, found: true},
		{height: 9, want: 45, found: true},
		{height: 12, want: 45, found: true},
		{height: 13, found: false},
	}
	for _, tt := range tests {
		v, ok, err := power.MayLoadAtHeight(s, tt.height, key)
		require.NoError(t, err)
		assert.Equal(t, tt.found, ok, "height %d", tt.height)
		assert.Equal(t, tt.want, v, "height %d", tt.height)
	}

	_, ok, err := power.MayLoad(s, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotVectorMap(t *testing.T) {
	s := storage.NewMemStore()
	vm := storage.NewSnapshotVectorMap[string]("delegations")
	k := []byte("delegator")
	block := types.BlockInfo{Height: 10}

	id0, err := vm.Push(s, k, "first", block, nil)
	require.NoError(t, err)
	expireIn := types.Height(5)
	id1, err := vm.Push(s, k, "expiring", block, &expireIn)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id0)
	assert.Equal(t, uint64(1), id1)

	// not visible at the start of the block they were written in
	items, err := vm.LoadAll(s, k, block)
	require.NoError(t, err)
	assert.Empty(t, items)

	latest, err := vm.LoadAllLatest(s, k, block)
	require.NoError(t, err)
	assert.Len(t, latest, 2)

	next := types.BlockInfo{Height: 11}
	items, err = vm.LoadAll(s, k, next)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Item)
	require.NotNil(t, items[1].Expiration)
	assert.Equal(t, types.AtHeight(15), *items[1].Expiration)

	page, err := vm.Load(s, k, next, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "expiring", page[0].Item)

	expired := types.BlockInfo{Height: 15}
	items, err = vm.LoadAll(s, k, expired)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint64(0), items[0].ID)

	removed, err := vm.Remove(s, k, id0, types.BlockInfo{Height: 16})
	require.NoError(t, err)
	assert.Equal(t, "first", removed)

	items, err = vm.LoadAll(s, k, types.BlockInfo{Height: 17})
	require.NoError(t, err)
	assert.Empty(t, items)

	// history is retained
	items, err = vm.LoadAll(s, k, types.BlockInfo{Height: 12})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestPrefixStoreIsolation(t *testing.T) {
	s := storage.NewMemStore()
	a := storage.NewPrefixStore(s, []byte("a/"))
	b := storage.NewPrefixStore(s, []byte("b/"))
	require.NoError(t, a.Set([]byte("k"), []byte("1")))
	require.NoError(t, b.Set([]byte("k"), []byte("2")))

	assert.Equal(t, []string{"k=1"}, collect(t, a, nil, nil, storage.Ascending))
	assert.Equal(t, []string{"k=2"}, collect(t, b, nil, nil, storage.Ascending))

	ro := storage.ReadOnly{KVStore: a}
	assert.ErrorIs(t, ro.Set([]byte("x"), []byte("y")), storage.ErrReadOnly)
}
