// Package cartograph resolves conflicting governance-boundary claims into a
// canonical district set, commits it into a ZK-provable Merkle tree, and
// versions each build as an immutable snapshot.
package cartograph

import (
	"context"
	"fmt"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/merkle"
	"github.com/atlasgov/cartograph/pkg/pipeline"
	"github.com/atlasgov/cartograph/pkg/provenance"
	"github.com/atlasgov/cartograph/pkg/snapshot"
)

// Engine is the top-level boundary commitment engine.
type Engine interface {
	// Build runs the full pipeline for one shard's claims.
	Build(ctx context.Context, shard string, claims []boundaries.SourceClaim) (*pipeline.Result, error)

	// Snapshots exposes the snapshot lifecycle (diff, publish, deprecate).
	Snapshots() *snapshot.Manager

	// Events exposes the append-only provenance log.
	Events() provenance.Store

	// Prove produces an inclusion proof for an entity in a rebuilt tree.
	Prove(ctx context.Context, shard string, entities []boundaries.District, entityID string) (*merkle.Proof, error)

	// Close releases the engine's stores.
	Close() error
}

// engine is the internal implementation of the Engine interface.
type engine struct {
	config    *config
	builder   *pipeline.Builder
	snapshots *snapshot.Manager
	events    provenance.Store

	snapshotStore snapshot.Store
}

// New creates an Engine with the given options. By default it runs fully in
// memory; supply WithDataDir for persistence across runs.
func New(opts ...Option) (Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	e := &engine{config: cfg}

	var err error
	if cfg.dataDir != "" {
		e.snapshotStore, err = snapshot.NewBadgerStore(cfg.dataDir + "/snapshots")
		if err != nil {
			return nil, fmt.Errorf("opening snapshot store: %w", err)
		}
		e.events, err = provenance.NewBadgerStore(cfg.dataDir + "/provenance")
		if err != nil {
			_ = e.snapshotStore.Close()
			return nil, fmt.Errorf("opening provenance store: %w", err)
		}
	} else {
		e.snapshotStore = snapshot.NewMemoryStore()
		e.events = provenance.NewMemoryStore()
	}

	e.snapshots = snapshot.NewManager(e.snapshotStore, cfg.managerOptions...)

	builderOpts := append([]pipeline.Option{
		pipeline.WithEventStore(e.events),
		pipeline.WithCapacity(cfg.capacity),
		pipeline.WithWorkers(cfg.workers),
	}, cfg.pipelineOptions...)
	e.builder = pipeline.New(cfg.hasher, e.snapshots, builderOpts...)

	return e, nil
}

// Build runs the full pipeline for one shard's claims.
func (e *engine) Build(ctx context.Context, shard string, claims []boundaries.SourceClaim) (*pipeline.Result, error) {
	return e.builder.Build(ctx, shard, claims)
}

// Snapshots exposes the snapshot lifecycle.
func (e *engine) Snapshots() *snapshot.Manager {
	return e.snapshots
}

// Events exposes the append-only provenance log.
func (e *engine) Events() provenance.Store {
	return e.events
}

// Prove rebuilds the commitment tree over the given canonical list and
// produces an inclusion proof for one entity. The list must match the one
// the snapshot was built from or the proof will not verify against its root.
func (e *engine) Prove(ctx context.Context, shard string, entities []boundaries.District, entityID string) (*merkle.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := merkle.Build(entities, e.config.capacity, e.config.hasher)
	if err != nil {
		return nil, err
	}
	return tree.Proof(entityID)
}

// Close releases the engine's stores.
func (e *engine) Close() error {
	snapErr := e.snapshotStore.Close()
	eventErr := e.events.Close()
	if snapErr != nil {
		return snapErr
	}
	return eventErr
}
