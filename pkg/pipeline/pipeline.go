// Package pipeline orchestrates one build: validate claims, resolve
// conflicts per entity, deduplicate the winners, commit the canonical list
// into a Merkle tree, and version the result as a snapshot.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atlasgov/cartograph/pkg/authority"
	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/dedupe"
	"github.com/atlasgov/cartograph/pkg/errors"
	"github.com/atlasgov/cartograph/pkg/logging"
	"github.com/atlasgov/cartograph/pkg/merkle"
	"github.com/atlasgov/cartograph/pkg/provenance"
	"github.com/atlasgov/cartograph/pkg/resolver"
	"github.com/atlasgov/cartograph/pkg/snapshot"
)

// DefaultWorkers bounds concurrent entity resolution.
const DefaultWorkers = 8

// Stats counts what happened to entities during one build.
type Stats struct {
	ClaimsIn      int `json:"claims_in" yaml:"claims_in"`
	ClaimsSkipped int `json:"claims_skipped" yaml:"claims_skipped"`
	Resolved      int `json:"resolved" yaml:"resolved"`
	Deduplicated  int `json:"deduplicated" yaml:"deduplicated"`
	Quarantined   int `json:"quarantined" yaml:"quarantined"`
	Committed     int `json:"committed" yaml:"committed"`
}

// EntityError records a per-entity failure that did not abort the build.
type EntityError struct {
	EntityID string `json:"entity_id" yaml:"entity_id"`
	Stage    string `json:"stage" yaml:"stage"`
	Err      error  `json:"-" yaml:"-"`
	Message  string `json:"message" yaml:"message"`
}

// Result is the outcome of one build.
type Result struct {
	Snapshot  *snapshot.Snapshot     `json:"snapshot" yaml:"snapshot"`
	Diff      *snapshot.Diff         `json:"diff,omitempty" yaml:"diff,omitempty"`
	Decisions []resolver.Decision    `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	Merged    []dedupe.CandidatePair `json:"merged,omitempty" yaml:"merged,omitempty"`
	Stats     Stats                  `json:"stats" yaml:"stats"`

	// EntityErrors are the skipped or quarantined entities. The build
	// succeeded despite them; callers report them and exit non-zero.
	EntityErrors []EntityError `json:"entity_errors,omitempty" yaml:"entity_errors,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Failed reports whether the build skipped or quarantined any entity.
func (r *Result) Failed() bool {
	return len(r.EntityErrors) > 0
}

// Builder runs builds. Construct with New; the zero value is not usable.
type Builder struct {
	registry  authority.Registry
	resolver  *resolver.Resolver
	deduper   *dedupe.Deduplicator
	hasher    merkle.Hasher
	capacity  int
	workers   int
	snapshots *snapshot.Manager
	events    provenance.Store
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry overrides the authority registry.
func WithRegistry(r authority.Registry) Option {
	return func(b *Builder) { b.registry = r }
}

// WithResolver overrides the conflict resolver.
func WithResolver(r *resolver.Resolver) Option {
	return func(b *Builder) { b.resolver = r }
}

// WithDeduplicator overrides the deduplicator.
func WithDeduplicator(d *dedupe.Deduplicator) Option {
	return func(b *Builder) { b.deduper = d }
}

// WithCapacity overrides the Merkle tree capacity.
func WithCapacity(capacity int) Option {
	return func(b *Builder) { b.capacity = capacity }
}

// WithWorkers bounds concurrent entity resolution.
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithEventStore supplies the provenance event log.
func WithEventStore(store provenance.Store) Option {
	return func(b *Builder) { b.events = store }
}

// New creates a Builder. The hasher and snapshot manager are required; the
// rest default sensibly.
func New(h merkle.Hasher, snapshots *snapshot.Manager, opts ...Option) *Builder {
	b := &Builder{
		registry:  authority.New(),
		resolver:  resolver.New(),
		deduper:   dedupe.New(),
		hasher:    h,
		capacity:  merkle.DefaultCapacity,
		workers:   DefaultWorkers,
		snapshots: snapshots,
		events:    provenance.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs the full pipeline for one shard. Per-entity failures are
// recorded in the result and the build continues; capacity overflow, hasher
// integrity failure, and store errors abort it.
func (b *Builder) Build(ctx context.Context, shard string, claims []boundaries.SourceClaim) (*Result, error) {
	started := time.Now()
	log := logging.FromContext(ctx)

	result := &Result{}
	result.Stats.ClaimsIn = len(claims)

	valid := b.validate(ctx, claims, result)
	byEntity := groupByEntity(valid)

	decisions, err := b.resolveAll(ctx, byEntity)
	if err != nil {
		return nil, err
	}
	result.Decisions = decisions
	result.Stats.Resolved = len(decisions)

	districts := make([]boundaries.District, 0, len(decisions))
	for _, d := range decisions {
		b.append(ctx, provenance.NewEvent(provenance.EventValidated, d.EntityID, "resolver", d.Reason))
		districts = append(districts, boundaries.DistrictFromClaim(d.Winner))
	}

	deduped, err := b.deduper.Dedupe(districts)
	if err != nil {
		return nil, err
	}
	result.Merged = deduped.Merged
	result.Stats.Deduplicated = len(deduped.Merged)
	for _, ambiguous := range deduped.Ambiguous {
		dupErr := &errors.DuplicateAmbiguityError{}
		if !errors.As(ambiguous, &dupErr) {
			continue
		}
		result.Stats.Quarantined++
		result.EntityErrors = append(result.EntityErrors, EntityError{
			EntityID: dupErr.CandidateID,
			Stage:    "dedupe",
			Err:      ambiguous,
			Message:  ambiguous.Error(),
		})
		b.append(ctx, provenance.NewEvent(provenance.EventQuarantined, dupErr.CandidateID, "dedupe", ambiguous.Error()))
	}

	// The Merkle build is a hard barrier: nothing is committed unless every
	// canonical entity fits and the hash primitive checks out.
	tree, err := merkle.Build(deduped.Kept, b.capacity, b.hasher)
	if err != nil {
		log.Error().Err(err).Str("shard", shard).Msg("build aborted at commitment stage")
		return nil, err
	}
	result.Stats.Committed = len(deduped.Kept)

	snap, diff, err := b.snapshots.Create(ctx, shard, tree.Root().Text(16), deduped.Kept, snapshot.Metadata{
		BuildDuration: time.Since(started),
	})
	if err != nil {
		return nil, err
	}
	result.Snapshot = snap
	result.Diff = diff
	result.Duration = time.Since(started)

	log.Info().
		Str("shard", shard).
		Int("version", snap.Version).
		Int("claims_in", result.Stats.ClaimsIn).
		Int("committed", result.Stats.Committed).
		Int("quarantined", result.Stats.Quarantined).
		Dur("duration", result.Duration).
		Msg("build complete")

	return result, nil
}

// validate filters out malformed claims and claims for boundary types with
// no registered authority, recording each skip.
func (b *Builder) validate(ctx context.Context, claims []boundaries.SourceClaim, result *Result) []boundaries.SourceClaim {
	log := logging.FromContext(ctx)
	seen := make(map[string]bool)

	valid := make([]boundaries.SourceClaim, 0, len(claims))
	for _, claim := range claims {
		err := claim.Validate()
		if err == nil {
			if _, regErr := b.registry.For(claim.BoundaryType); regErr != nil {
				err = errors.NewUnknownBoundaryTypeError(claim.BoundaryType.String(), claim.EntityID)
			}
		}
		if err != nil {
			result.Stats.ClaimsSkipped++
			result.EntityErrors = append(result.EntityErrors, EntityError{
				EntityID: claim.EntityID,
				Stage:    "validate",
				Err:      err,
				Message:  err.Error(),
			})
			log.Warn().Err(err).Str("source_id", claim.SourceID).Str("entity_id", claim.EntityID).Msg("claim skipped")
			continue
		}

		if !seen[claim.EntityID] {
			seen[claim.EntityID] = true
			b.append(ctx, provenance.NewEvent(provenance.EventDiscovered, claim.EntityID, claim.SourceID, ""))
		}
		valid = append(valid, claim)
	}
	return valid
}

// resolveAll resolves entities concurrently and returns decisions in
// deterministic entity-id order.
func (b *Builder) resolveAll(ctx context.Context, byEntity map[string][]boundaries.SourceClaim) ([]resolver.Decision, error) {
	var (
		mu        sync.Mutex
		decisions []resolver.Decision
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for entityID, claims := range byEntity {
		entityID, claims := entityID, claims
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			decision, err := b.resolver.Resolve(entityID, claims)
			if err != nil {
				return err
			}
			mu.Lock()
			decisions = append(decisions, *decision)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].EntityID < decisions[j].EntityID
	})
	return decisions, nil
}

// append records a provenance event, logging rather than failing the build
// if the event store misbehaves.
func (b *Builder) append(ctx context.Context, event provenance.Event) {
	if err := b.events.Append(ctx, event); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("entity_id", event.EntityID).Msg("provenance append failed")
	}
}

func groupByEntity(claims []boundaries.SourceClaim) map[string][]boundaries.SourceClaim {
	byEntity := make(map[string][]boundaries.SourceClaim)
	for _, claim := range claims {
		byEntity[claim.EntityID] = append(byEntity[claim.EntityID], claim)
	}
	return byEntity
}
