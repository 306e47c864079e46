package provenance

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/atlasgov/cartograph/pkg/errors"
)

// eventKeyPrefix namespaces event records. Keys embed the timestamp in
// nanosecond precision so lexical iteration order is chronological.
const eventKeyPrefix = "event:"

// badgerStore persists the event log in a Badger key-value store.
type badgerStore struct {
	db *badger.DB
}

// BadgerOption configures the badger event store.
type BadgerOption func(*badger.Options)

// WithInMemory runs the store without a backing directory. Used in tests.
func WithInMemory() BadgerOption {
	return func(o *badger.Options) {
		o.InMemory = true
		o.Dir = ""
		o.ValueDir = ""
	}
}

// NewBadgerStore opens (creating if needed) a persistent event log at path.
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

func eventKey(event Event) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", eventKeyPrefix, event.Timestamp.UnixNano(), event.EventID))
}

// Append records one event.
func (s *badgerStore) Append(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !event.Type.Valid() {
		return errors.NewValidationError(event.EntityID, "type", "unknown event type "+string(event.Type))
	}
	if event.EntityID == "" {
		return errors.NewValidationError("", "entity_id", "entity ID is required")
	}

	key := eventKey(event)
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.WrapIO("write", string(key), err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, payload)
	})
	if err != nil {
		return errors.WrapIO("write", string(key), err)
	}
	return nil
}

// ByEntity returns an entity's events in chronological order.
func (s *badgerStore) ByEntity(ctx context.Context, entityID string) ([]Event, error) {
	return s.scan(ctx, func(e Event) bool { return e.EntityID == entityID })
}

// ByType returns all events of one type in chronological order.
func (s *badgerStore) ByType(ctx context.Context, eventType EventType) ([]Event, error) {
	return s.scan(ctx, func(e Event) bool { return e.Type == eventType })
}

// Between returns all events in [from, to) in chronological order.
func (s *badgerStore) Between(ctx context.Context, from, to time.Time) ([]Event, error) {
	return s.scan(ctx, func(e Event) bool {
		return !e.Timestamp.Before(from) && e.Timestamp.Before(to)
	})
}

// Close flushes and closes the underlying database.
func (s *badgerStore) Close() error {
	return s.db.Close()
}

// scan walks the log in key order, which is chronological by construction.
func (s *badgerStore) scan(ctx context.Context, keep func(Event) bool) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(eventKeyPrefix)

	var out []Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var event Event
			if valErr := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); valErr != nil {
				return valErr
			}
			if keep(event) {
				out = append(out, event)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO("read", eventKeyPrefix, err)
	}
	return out, nil
}
