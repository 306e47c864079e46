package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/errors"
	"github.com/atlasgov/cartograph/pkg/logging"
)

// Manager assigns versions and enforces the snapshot lifecycle: strictly
// increasing versions per shard, no mutation after creation except the
// publication CID, deprecation marker, and review acknowledgment.
type Manager struct {
	store Store

	mu     sync.Mutex
	shards map[string]*sync.Mutex

	compareOpts []CompareOption
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCompareOptions overrides the review thresholds used when diffing a new
// snapshot against the previous version.
func WithCompareOptions(opts ...CompareOption) ManagerOption {
	return func(m *Manager) { m.compareOpts = opts }
}

// NewManager creates a snapshot manager over the given store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		shards: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// shardLock returns the single-writer mutex for a shard.
func (m *Manager) shardLock(shard string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.shards[shard]
	if !ok {
		lock = &sync.Mutex{}
		m.shards[shard] = lock
	}
	return lock
}

// Create versions and stores a new snapshot for a shard. The version is the
// previous version plus one, or 1 for the shard's first snapshot. When a
// previous version exists the new snapshot is diffed against it and flagged
// for review if the diff looks like an upstream fault.
func (m *Manager) Create(ctx context.Context, shard string, root string, districts []boundaries.District, meta Metadata) (*Snapshot, *Diff, error) {
	lock := m.shardLock(shard)
	lock.Lock()
	defer lock.Unlock()

	snap := &Snapshot{
		ID:          uuid.NewString(),
		Shard:       shard,
		Version:     1,
		MerkleRoot:  root,
		CreatedAt:   time.Now().UTC(),
		Entities:    RecordsFromDistricts(districts),
		LayerCounts: LayerCountsFromDistricts(districts),
		Metadata:    meta,
	}

	var diff *Diff
	prev, err := m.store.Latest(ctx, shard)
	switch {
	case err == nil:
		snap.Version = prev.Version + 1
		snap.Metadata.PreviousVersion = prev.Version
		diff = Compare(prev, snap, m.compareOpts...)
		snap.ReviewRequired = diff.ReviewRequired()
	case errors.IsNotFound(err):
		// First snapshot for this shard.
	default:
		return nil, nil, err
	}

	if err := m.store.Save(ctx, snap); err != nil {
		return nil, nil, err
	}

	log := logging.FromContext(ctx)
	event := log.Info().
		Str("shard", shard).
		Int("version", snap.Version).
		Str("merkle_root", snap.MerkleRoot).
		Int("entities", snap.TotalEntities())
	if snap.ReviewRequired {
		event = event.Strs("warnings", diff.Warnings)
	}
	event.Msg("snapshot created")

	return snap, diff, nil
}

// Diff compares two stored versions of a shard, oldest first.
func (m *Manager) Diff(ctx context.Context, shard string, from, to int) (*Diff, error) {
	prev, err := m.store.Get(ctx, shard, from)
	if err != nil {
		return nil, err
	}
	next, err := m.store.Get(ctx, shard, to)
	if err != nil {
		return nil, err
	}
	return Compare(prev, next, m.compareOpts...), nil
}

// Publish attaches the published IPFS CID to a snapshot. A snapshot flagged
// for review cannot be published until acknowledged, and a CID, once set,
// cannot be changed.
func (m *Manager) Publish(ctx context.Context, shard string, version int, cid string) (*Snapshot, error) {
	lock := m.shardLock(shard)
	lock.Lock()
	defer lock.Unlock()

	snap, err := m.store.Get(ctx, shard, version)
	if err != nil {
		return nil, err
	}
	if snap.Deprecated() {
		return nil, errors.ErrReadOnly
	}
	if snap.IPFSCID != "" && snap.IPFSCID != cid {
		return nil, errors.ErrReadOnly
	}
	if !snap.Publishable() {
		return nil, errors.ErrReviewRequired
	}

	snap.IPFSCID = cid
	if err := m.store.Amend(ctx, snap); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info().
		Str("shard", shard).
		Int("version", version).
		Str("ipfs_cid", cid).
		Msg("snapshot published")
	return snap, nil
}

// Acknowledge records a human confirmation of a review-required snapshot,
// unblocking publication.
func (m *Manager) Acknowledge(ctx context.Context, shard string, version int, actor string) (*Snapshot, error) {
	lock := m.shardLock(shard)
	lock.Lock()
	defer lock.Unlock()

	snap, err := m.store.Get(ctx, shard, version)
	if err != nil {
		return nil, err
	}
	if !snap.ReviewRequired {
		return snap, nil
	}

	now := time.Now().UTC()
	snap.ReviewAcknowledgedAt = &now
	snap.ReviewAcknowledgedBy = actor
	if err := m.store.Amend(ctx, snap); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info().
		Str("shard", shard).
		Int("version", version).
		Str("actor", actor).
		Msg("snapshot review acknowledged")
	return snap, nil
}

// Deprecate marks a superseded snapshot. The record is retained for audit.
func (m *Manager) Deprecate(ctx context.Context, shard string, version int) (*Snapshot, error) {
	lock := m.shardLock(shard)
	lock.Lock()
	defer lock.Unlock()

	snap, err := m.store.Get(ctx, shard, version)
	if err != nil {
		return nil, err
	}
	if snap.Deprecated() {
		return snap, nil
	}

	now := time.Now().UTC()
	snap.DeprecatedAt = &now
	if err := m.store.Amend(ctx, snap); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info().
		Str("shard", shard).
		Int("version", version).
		Msg("snapshot deprecated")
	return snap, nil
}

// Latest returns the newest snapshot for a shard.
func (m *Manager) Latest(ctx context.Context, shard string) (*Snapshot, error) {
	return m.store.Latest(ctx, shard)
}

// Get returns one version of a shard.
func (m *Manager) Get(ctx context.Context, shard string, version int) (*Snapshot, error) {
	return m.store.Get(ctx, shard, version)
}

// List returns all versions of a shard in ascending order.
func (m *Manager) List(ctx context.Context, shard string) ([]*Snapshot, error) {
	return m.store.List(ctx, shard)
}
