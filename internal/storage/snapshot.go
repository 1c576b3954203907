package storage

// SnapshotMap is a Map whose history can be read at any past height. Every
// write appends a version keyed by (key, height). A write at height h is
// visible to reads at heights strictly greater than h, so a value read "at
// height H" is the state at the start of block H.
type SnapshotMap[V any] struct {
	latest   Map[V]
	versions Map[version[V]]
}

type version[V any] struct {
	Value *V `json:"value,omitempty"`
}

// NewSnapshotMap creates a snapshot map under namespace
func NewSnapshotMap[V any](namespace string) SnapshotMap[V] {
	return SnapshotMap[V]{
		latest:   NewMap[V](namespace),
		versions: NewMap[version[V]](namespace + "__versions"),
	}
}

func versionKey(parts [][]byte, height uint64) [][]byte {
	out := make([][]byte, 0, len(parts)+1)
	out = append(out, parts...)
	return append(out, U64(height))
}

// Save stores v as the latest value and records it at height
func (m SnapshotMap[V]) Save(s KVStore, v V, height uint64, parts ...[]byte) error {
	if err := m.latest.Save(s, v, parts...); err != nil {
		return err
	}
	return m.versions.Save(s, version[V]{Value: &v}, versionKey(parts, height)...)
}

// Remove deletes the latest value and records the removal at height
func (m SnapshotMap[V]) Remove(s KVStore, height uint64, parts ...[]byte) error {
	if err := m.latest.Remove(s, parts...); err != nil {
		return err
	}
	return m.versions.Save(s, version[V]{}, versionKey(parts, height)...)
}

// Update applies fn to the latest value and saves the result at height
func (m SnapshotMap[V]) Update(s KVStore, height uint64, fn func(v V, exists bool) (V, error), parts ...[]byte) (V, error) {
	cur, ok, err := m.latest.MayLoad(s, parts...)
	if err != nil {
		return cur, err
	}
	next, err := fn(cur, ok)
	if err != nil {
		return next, err
	}
	return next, m.Save(s, next, height, parts...)
}

// Load returns the latest value
func (m SnapshotMap[V]) Load(s KVStore, parts ...[]byte) (V, error) {
	return m.latest.Load(s, parts...)
}

// MayLoad returns the latest value if present
func (m SnapshotMap[V]) MayLoad(s KVStore, parts ...[]byte) (V, bool, error) {
	return m.latest.MayLoad(s, parts...)
}

// Has checks the latest state
func (m SnapshotMap[V]) Has(s KVStore, parts ...[]byte) (bool, error) {
	return m.latest.Has(s, parts...)
}

// MayLoadAtHeight returns the value as of the start of block height: the
// newest version written at a height strictly below it. The lookup is a
// single reverse seek over the key's version index.
func (m SnapshotMap[V]) MayLoadAtHeight(s KVStore, height uint64, parts ...[]byte) (V, bool, error) {
	var (
		out   V
		found bool
	)
	err := m.versions.Range(s, RangeOptions{
		Prefix: parts,
		Max:    ExclusiveBound(U64(height)),
		Order:  Descending,
		Limit:  1,
	}, func(_ []byte, ver version[V]) (bool, error) {
		if ver.Value != nil {
			out = *ver.Value
			found = true
		}
		return true, nil
	})
	return out, found, err
}

// HasAtHeight checks whether the key existed at the start of block height
func (m SnapshotMap[V]) HasAtHeight(s KVStore, height uint64, parts ...[]byte) (bool, error) {
	_, ok, err := m.MayLoadAtHeight(s, height, parts...)
	return ok, err
}

// Range walks the latest values
func (m SnapshotMap[V]) Range(s KVStore, opts RangeOptions, fn func(key []byte, v V) (bool, error)) error {
	return m.latest.Range(s, opts, fn)
}
