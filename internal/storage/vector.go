package storage

import (
	"github.com/daodao/core/pkg/types"
)

// SnapshotVectorMap stores, per key, a list of items whose membership is
// snapshotted by height and which may individually expire. Delegations are
// kept in one, keyed by delegator.
type SnapshotVectorMap[V any] struct {
	items   Map[V]
	nextIDs Map[uint64]
	active  SnapshotMap[[]ActiveItem]
}

// ActiveItem is an entry of the active list
type ActiveItem struct {
	ID         uint64            `json:"id"`
	Expiration *types.Expiration `json:"expiration,omitempty"`
}

func (a ActiveItem) expired(block types.BlockInfo) bool {
	return a.Expiration != nil && a.Expiration.IsExpired(block)
}

// LoadedItem is an item together with its id and expiration
type LoadedItem[V any] struct {
	ID         uint64
	Item       V
	Expiration *types.Expiration
}

// NewSnapshotVectorMap creates a vector map under namespace
func NewSnapshotVectorMap[V any](namespace string) SnapshotVectorMap[V] {
	return SnapshotVectorMap[V]{
		items:   NewMap[V](namespace + "__items"),
		nextIDs: NewMap[uint64](namespace + "__next_ids"),
		active:  NewSnapshotMap[[]ActiveItem](namespace + "__active"),
	}
}

// Push appends an item, optionally expiring after expireIn, and prunes
// expired entries. Returns the new item id.
func (m SnapshotVectorMap[V]) Push(s KVStore, k []byte, data V, block types.BlockInfo, expireIn *types.Duration) (uint64, error) {
	nextID, _, err := m.nextIDs.MayLoad(s, k)
	if err != nil {
		return 0, err
	}
	if err := m.items.Save(s, data, k, U64(nextID)); err != nil {
		return 0, err
	}

	active, _, err := m.active.MayLoad(s, k)
	if err != nil {
		return 0, err
	}
	kept := make([]ActiveItem, 0, len(active)+1)
	for _, a := range active {
		if !a.expired(block) {
			kept = append(kept, a)
		}
	}
	entry := ActiveItem{ID: nextID}
	if expireIn != nil {
		exp := expireIn.After(block)
		entry.Expiration = &exp
	}
	kept = append(kept, entry)

	if err := m.active.Save(s, kept, block.Height, k); err != nil {
		return 0, err
	}
	if err := m.nextIDs.Save(s, nextID+1, k); err != nil {
		return 0, err
	}
	return nextID, nil
}

// Remove drops an item from the active list and prunes expired entries. The
// item itself stays loadable by id.
func (m SnapshotVectorMap[V]) Remove(s KVStore, k []byte, id uint64, block types.BlockInfo) (V, error) {
	active, _, err := m.active.MayLoad(s, k)
	if err != nil {
		var zero V
		return zero, err
	}
	kept := make([]ActiveItem, 0, len(active))
	for _, a := range active {
		if a.ID != id && !a.expired(block) {
			kept = append(kept, a)
		}
	}
	if err := m.active.Save(s, kept, block.Height, k); err != nil {
		var zero V
		return zero, err
	}
	return m.LoadItem(s, k, id)
}

// Load returns the non-expired items active at the start of block.Height,
// skipping offset entries and returning at most limit (zero means all).
func (m SnapshotVectorMap[V]) Load(s KVStore, k []byte, block types.BlockInfo, limit, offset uint64) ([]LoadedItem[V], error) {
	active, _, err := m.active.MayLoadAtHeight(s, block.Height, k)
	if err != nil {
		return nil, err
	}
	return m.resolve(s, k, active, block, limit, offset)
}

// LoadAll returns every non-expired item active at the start of block.Height
func (m SnapshotVectorMap[V]) LoadAll(s KVStore, k []byte, block types.BlockInfo) ([]LoadedItem[V], error) {
	return m.Load(s, k, block, 0, 0)
}

// LoadAllLatest returns every non-expired item in the latest state,
// including changes made earlier in the current block
func (m SnapshotVectorMap[V]) LoadAllLatest(s KVStore, k []byte, block types.BlockInfo) ([]LoadedItem[V], error) {
	active, _, err := m.active.MayLoad(s, k)
	if err != nil {
		return nil, err
	}
	return m.resolve(s, k, active, block, 0, 0)
}

func (m SnapshotVectorMap[V]) resolve(s KVStore, k []byte, active []ActiveItem, block types.BlockInfo, limit, offset uint64) ([]LoadedItem[V], error) {
	out := make([]LoadedItem[V], 0, len(active))
	var skipped uint64
	for _, a := range active {
		if a.expired(block) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && uint64(len(out)) >= limit {
			break
		}
		item, err := m.LoadItem(s, k, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, LoadedItem[V]{ID: a.ID, Item: item, Expiration: a.Expiration})
	}
	return out, nil
}

// LoadItem loads an item by id regardless of whether it is active
func (m SnapshotVectorMap[V]) LoadItem(s KVStore, k []byte, id uint64) (V, error) {
	return m.items.Load(s, k, U64(id))
}

// MayLoadItem loads an item by id if it exists
func (m SnapshotVectorMap[V]) MayLoadItem(s KVStore, k []byte, id uint64) (V, bool, error) {
	return m.items.MayLoad(s, k, U64(id))
}
