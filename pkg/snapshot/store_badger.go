package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/atlasgov/cartograph/pkg/errors"
)

// badgerStore persists snapshots in a Badger key-value store. Keys are
// snapshot:<shard>:<version> with the version zero-padded so lexical order
// matches numeric order.
type badgerStore struct {
	db *badger.DB
}

// BadgerOption configures the badger store.
type BadgerOption func(*badger.Options)

// WithInMemory runs the store without a backing directory. Used in tests.
func WithInMemory() BadgerOption {
	return func(o *badger.Options) {
		o.InMemory = true
		o.Dir = ""
		o.ValueDir = ""
	}
}

// NewBadgerStore opens (creating if needed) a persistent snapshot store at
// path.
func NewBadgerStore(path string, opts ...BadgerOption) (Store, error) {
	options := badger.DefaultOptions(path).WithLogger(nil)
	for _, opt := range opts {
		opt(&options)
	}

	if !options.InMemory {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, errors.WrapIO("open", path, err)
		}
	}

	db, err := badger.Open(options)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	return &badgerStore{db: db}, nil
}

func snapshotKey(shard string, version int) []byte {
	return []byte(fmt.Sprintf("snapshot:%s:%010d", shard, version))
}

func shardPrefix(shard string) []byte {
	return []byte(fmt.Sprintf("snapshot:%s:", shard))
}

// Save stores a new snapshot.
func (s *badgerStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := snapshotKey(snap.Shard, snap.Version)
	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.WrapIO("write", string(key), err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, getErr := txn.Get(key); getErr == nil {
			return errors.ErrAlreadyExists
		} else if getErr != badger.ErrKeyNotFound {
			return getErr
		}
		return txn.Set(key, payload)
	})
	if err == errors.ErrAlreadyExists {
		return err
	}
	if err != nil {
		return errors.WrapIO("write", string(key), err)
	}
	return nil
}

// Amend replaces an existing snapshot record.
func (s *badgerStore) Amend(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := snapshotKey(snap.Shard, snap.Version)
	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.WrapIO("write", string(key), err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, getErr := txn.Get(key); getErr == badger.ErrKeyNotFound {
			return errors.NewNotFoundError("snapshot", snap.ID)
		} else if getErr != nil {
			return getErr
		}
		return txn.Set(key, payload)
	})
	if errors.IsNotFound(err) {
		return err
	}
	if err != nil {
		return errors.WrapIO("write", string(key), err)
	}
	return nil
}

// Get returns one version of a shard.
func (s *badgerStore) Get(ctx context.Context, shard string, version int) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := snapshotKey(shard, version)

	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key)
		if getErr == badger.ErrKeyNotFound {
			return errors.NewNotFoundError("snapshot", shard)
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.WrapIO("read", string(key), err)
	}
	return &snap, nil
}

// Latest returns the highest version of a shard.
func (s *badgerStore) Latest(ctx context.Context, shard string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := shardPrefix(shard)

	var snap *Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts just past the prefix range.
		seek := append(append([]byte{}, prefix...), 0xff)
		it.Seek(seek)
		if !it.ValidForPrefix(prefix) {
			return errors.NewNotFoundError("snapshot", shard)
		}
		return it.Item().Value(func(val []byte) error {
			snap = &Snapshot{}
			return json.Unmarshal(val, snap)
		})
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.WrapIO("read", string(prefix), err)
	}
	return snap, nil
}

// List returns all versions of a shard in ascending version order.
func (s *badgerStore) List(ctx context.Context, shard string) ([]*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := shardPrefix(shard)

	var out []*Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var snap Snapshot
			if valErr := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			}); valErr != nil {
				return valErr
			}
			out = append(out, &snap)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO("read", string(prefix), err)
	}
	return out, nil
}

// Close flushes and closes the underlying database.
func (s *badgerStore) Close() error {
	return s.db.Close()
}
