package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v3"
)

// BadgerConfig holds badger backend configuration
type BadgerConfig struct {
	// Dir is the data directory; ignored when InMemory is set
	Dir string `mapstructure:"dir"`

	// InMemory keeps everything in RAM
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every commit
	SyncWrites bool `mapstructure:"sync_writes"`
}

// DefaultBadgerConfig returns default badger configuration
func DefaultBadgerConfig() *BadgerConfig {
	return &BadgerConfig{
		Dir:        "./data/state",
		SyncWrites: true,
	}
}

// BadgerStore is the embedded on-disk backend
type BadgerStore struct {
	db *badgerdb.DB
}

// OpenBadger opens (or creates) a badger database
func OpenBadger(cfg *BadgerConfig) (*BadgerStore, error) {
	if cfg == nil {
		cfg = DefaultBadgerConfig()
	}

	opts := badgerdb.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}
	return &BadgerStore{db: db}, nil
}

// Begin opens a read-write badger transaction
func (s *BadgerStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &badgerTx{txn: s.db.NewTransaction(true)}, nil
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

type badgerTx struct {
	txn    *badgerdb.Txn
	closed bool
}

func (t *badgerTx) Get(key []byte) ([]byte, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	item, err := t.txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("badger value copy: %w", err)
	}
	if val == nil {
		val = []byte{}
	}
	return val, nil
}

func (t *badgerTx) Has(key []byte) (bool, error) {
	v, err := t.Get(key)
	return v != nil, err
}

func (t *badgerTx) Set(key, value []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	if len(key) == 0 {
		return ErrInvalidKey
	}
	if err := t.txn.Set(cloneBytes(key), cloneBytes(value)); err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

func (t *badgerTx) Delete(key []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	if err := t.txn.Delete(cloneBytes(key)); err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

func (t *badgerTx) Iterate(start, end []byte, order Order, fn IterFunc) error {
	if t.closed {
		return ErrTxClosed
	}

	opts := badgerdb.DefaultIteratorOptions
	opts.Reverse = order == Descending
	it := t.txn.NewIterator(opts)
	defer it.Close()

	if order == Ascending {
		if start != nil {
			it.Seek(start)
		} else {
			it.Rewind()
		}
	} else {
		// reverse Seek lands on the largest key <= end
		if end != nil {
			it.Seek(end)
		} else {
			it.Rewind()
		}
	}

	for ; it.Valid(); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		if order == Ascending && end != nil && bytes.Compare(key, end) >= 0 {
			break
		}
		if order == Descending {
			if end != nil && bytes.Compare(key, end) >= 0 {
				continue
			}
			if start != nil && bytes.Compare(key, start) < 0 {
				break
			}
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("badger value copy: %w", err)
		}
		stop, err := fn(key, val)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (t *badgerTx) Commit() error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true
	if err := t.txn.Commit(); err != nil {
		return fmt.Errorf("badger commit: %w", err)
	}
	return nil
}

func (t *badgerTx) Discard() {
	if t.closed {
		return
	}
	t.closed = true
	t.txn.Discard()
}
