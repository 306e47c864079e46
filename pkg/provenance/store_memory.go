package provenance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/atlasgov/cartograph/pkg/errors"
)

// memoryStore is an in-memory event log for tests and single-run builds.
type memoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore creates an empty in-memory event log.
func NewMemoryStore() Store {
	return &memoryStore{}
}

// Append records one event.
func (s *memoryStore) Append(_ context.Context, event Event) error {
	if !event.Type.Valid() {
		return errors.NewValidationError(event.EntityID, "type", "unknown event type "+string(event.Type))
	}
	if event.EntityID == "" {
		return errors.NewValidationError("", "entity_id", "entity ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ByEntity returns an entity's events in chronological order.
func (s *memoryStore) ByEntity(_ context.Context, entityID string) ([]Event, error) {
	return s.filter(func(e Event) bool { return e.EntityID == entityID }), nil
}

// ByType returns all events of one type in chronological order.
func (s *memoryStore) ByType(_ context.Context, eventType EventType) ([]Event, error) {
	return s.filter(func(e Event) bool { return e.Type == eventType }), nil
}

// Between returns all events in [from, to) in chronological order.
func (s *memoryStore) Between(_ context.Context, from, to time.Time) ([]Event, error) {
	return s.filter(func(e Event) bool {
		return !e.Timestamp.Before(from) && e.Timestamp.Before(to)
	}), nil
}

// Close releases store resources.
func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) filter(keep func(Event) bool) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
