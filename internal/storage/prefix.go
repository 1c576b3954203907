package storage

// PrefixStore confines a parent store to one key prefix. The host hands each
// contract a PrefixStore over its own namespace.
type PrefixStore struct {
	parent KVStore
	prefix []byte
}

// NewPrefixStore wraps parent under prefix
func NewPrefixStore(parent KVStore, prefix []byte) *PrefixStore {
	return &PrefixStore{parent: parent, prefix: cloneBytes(prefix)}
}

func (p *PrefixStore) full(key []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(key))
	out = append(out, p.prefix...)
	return append(out, key...)
}

// Get reads a key under the prefix
func (p *PrefixStore) Get(key []byte) ([]byte, error) {
	return p.parent.Get(p.full(key))
}

// Has checks a key under the prefix
func (p *PrefixStore) Has(key []byte) (bool, error) {
	return p.parent.Has(p.full(key))
}

// Set writes a key under the prefix
func (p *PrefixStore) Set(key, value []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	return p.parent.Set(p.full(key), value)
}

// Delete removes a key under the prefix
func (p *PrefixStore) Delete(key []byte) error {
	return p.parent.Delete(p.full(key))
}

// Iterate walks the range relative to the prefix
func (p *PrefixStore) Iterate(start, end []byte, order Order, fn IterFunc) error {
	s := p.full(start)
	var e []byte
	if end != nil {
		e = p.full(end)
	} else {
		e = PrefixEnd(p.prefix)
	}
	return p.parent.Iterate(s, e, order, func(key, value []byte) (bool, error) {
		return fn(key[len(p.prefix):], value)
	})
}

// ReadOnly rejects writes. Queries run against a ReadOnly view.
type ReadOnly struct {
	KVStore
}

// Set always fails
func (ReadOnly) Set(key, value []byte) error {
	return ErrReadOnly
}

// Delete always fails
func (ReadOnly) Delete(key []byte) error {
	return ErrReadOnly
}
