package snapshot

import (
	"context"
	"sort"
	"sync"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/errors"
)

// memoryStore is an in-memory Store for tests and single-run builds.
type memoryStore struct {
	mu     sync.RWMutex
	shards map[string]map[int]*Snapshot
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() Store {
	return &memoryStore{shards: make(map[string]map[int]*Snapshot)}
}

// Save stores a new snapshot.
func (s *memoryStore) Save(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, ok := s.shards[snap.Shard]
	if !ok {
		versions = make(map[int]*Snapshot)
		s.shards[snap.Shard] = versions
	}
	if _, taken := versions[snap.Version]; taken {
		return errors.ErrAlreadyExists
	}

	versions[snap.Version] = clone(snap)
	return nil
}

// Amend replaces an existing snapshot record.
func (s *memoryStore) Amend(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, ok := s.shards[snap.Shard]
	if !ok {
		return errors.NewNotFoundError("snapshot", snap.Shard)
	}
	if _, exists := versions[snap.Version]; !exists {
		return errors.NewNotFoundError("snapshot", snap.ID)
	}

	versions[snap.Version] = clone(snap)
	return nil
}

// Get returns one version of a shard.
func (s *memoryStore) Get(_ context.Context, shard string, version int) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.shards[shard][version]
	if !ok {
		return nil, errors.NewNotFoundError("snapshot", shard)
	}
	return clone(snap), nil
}

// Latest returns the highest version of a shard.
func (s *memoryStore) Latest(_ context.Context, shard string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.shards[shard]
	if len(versions) == 0 {
		return nil, errors.NewNotFoundError("snapshot", shard)
	}

	best := 0
	for v := range versions {
		if v > best {
			best = v
		}
	}
	return clone(versions[best]), nil
}

// List returns all versions of a shard in ascending version order.
func (s *memoryStore) List(_ context.Context, shard string) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.shards[shard]
	out := make([]*Snapshot, 0, len(versions))
	for _, snap := range versions {
		out = append(out, clone(snap))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Close releases store resources.
func (s *memoryStore) Close() error { return nil }

// clone deep-copies a snapshot so callers cannot mutate stored state.
func clone(snap *Snapshot) *Snapshot {
	out := *snap
	if snap.DeprecatedAt != nil {
		t := *snap.DeprecatedAt
		out.DeprecatedAt = &t
	}
	if snap.ReviewAcknowledgedAt != nil {
		t := *snap.ReviewAcknowledgedAt
		out.ReviewAcknowledgedAt = &t
	}
	if snap.LayerCounts != nil {
		out.LayerCounts = make(map[boundaries.BoundaryType]int, len(snap.LayerCounts))
		for layer, count := range snap.LayerCounts {
			out.LayerCounts[layer] = count
		}
	}
	if snap.Entities != nil {
		out.Entities = make([]EntityRecord, len(snap.Entities))
		copy(out.Entities, snap.Entities)
	}
	if snap.Metadata.Regions != nil {
		out.Metadata.Regions = make([]string, len(snap.Metadata.Regions))
		copy(out.Metadata.Regions, snap.Metadata.Regions)
	}
	if snap.Metadata.SourceChecksums != nil {
		out.Metadata.SourceChecksums = make(map[string]string, len(snap.Metadata.SourceChecksums))
		for k, v := range snap.Metadata.SourceChecksums {
			out.Metadata.SourceChecksums[k] = v
		}
	}
	return &out
}
