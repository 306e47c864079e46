package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/dedupe"
	"github.com/atlasgov/cartograph/pkg/errors"
	"github.com/atlasgov/cartograph/pkg/provenance"
	"github.com/atlasgov/cartograph/pkg/snapshot"
	"github.com/atlasgov/cartograph/pkg/zkhash"
)

var buildTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func primaryClaim(entityID, sourceID string) boundaries.SourceClaim {
	return boundaries.SourceClaim{
		SourceID:       sourceID,
		EntityID:       entityID,
		DistrictName:   "District " + entityID,
		BoundaryType:   boundaries.BoundaryTypeCongressional,
		Classification: "active",
		Geometry:       []byte("geometry-" + entityID),
		LastModified:   buildTime,
		IsPrimary:      true,
		AuthorityLevel: 5,
		Origin:         boundaries.OriginPrimaryAuthority,
	}
}

func aggregatorClaim(entityID, sourceID string) boundaries.SourceClaim {
	claim := primaryClaim(entityID, sourceID)
	claim.IsPrimary = false
	claim.AuthorityLevel = 3
	claim.Origin = boundaries.OriginAggregator
	claim.LastModified = buildTime.Add(-30 * 24 * time.Hour)
	return claim
}

func newTestBuilder(t *testing.T, opts ...Option) (*Builder, provenance.Store) {
	t.Helper()
	events := provenance.NewMemoryStore()
	t.Cleanup(func() { _ = events.Close() })

	manager := snapshot.NewManager(snapshot.NewMemoryStore())
	opts = append([]Option{WithEventStore(events), WithWorkers(4)}, opts...)
	return New(zkhash.New(), manager, opts...), events
}

func TestBuildEndToEnd(t *testing.T) {
	ctx := context.Background()
	builder, events := newTestBuilder(t)

	var claims []boundaries.SourceClaim
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("us-ca-%02d", i)
		claims = append(claims, primaryClaim(id, "ca_redistricting_commission"))
		claims = append(claims, aggregatorClaim(id, "census_tiger"))
	}

	result, err := builder.Build(ctx, "congressional", claims)
	require.NoError(t, err)

	assert.Equal(t, 20, result.Stats.ClaimsIn)
	assert.Zero(t, result.Stats.ClaimsSkipped)
	assert.Equal(t, 10, result.Stats.Resolved)
	assert.Equal(t, 10, result.Stats.Committed)
	assert.False(t, result.Failed())

	require.NotNil(t, result.Snapshot)
	assert.Equal(t, 1, result.Snapshot.Version)
	assert.NotEmpty(t, result.Snapshot.MerkleRoot)
	assert.Equal(t, 10, result.Snapshot.TotalEntities())

	// Every entity won via the primary authority.
	require.Len(t, result.Decisions, 10)
	for _, d := range result.Decisions {
		assert.Equal(t, "ca_redistricting_commission", d.Winner.SourceID)
	}

	// Each entity leaves a discovered and a validated event.
	discovered, err := events.ByType(ctx, provenance.EventDiscovered)
	require.NoError(t, err)
	assert.Len(t, discovered, 10)
	validated, err := events.ByType(ctx, provenance.EventValidated)
	require.NoError(t, err)
	assert.Len(t, validated, 10)
}

func TestBuildIsDeterministic(t *testing.T) {
	ctx := context.Background()

	var claims []boundaries.SourceClaim
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("us-ca-%02d", i)
		claims = append(claims, primaryClaim(id, "ca_redistricting_commission"))
		claims = append(claims, aggregatorClaim(id, "census_tiger"))
	}
	reversed := make([]boundaries.SourceClaim, len(claims))
	for i, c := range claims {
		reversed[len(claims)-1-i] = c
	}

	builderA, _ := newTestBuilder(t)
	builderB, _ := newTestBuilder(t)

	resultA, err := builderA.Build(ctx, "congressional", claims)
	require.NoError(t, err)
	resultB, err := builderB.Build(ctx, "congressional", reversed)
	require.NoError(t, err)

	assert.Equal(t, resultA.Snapshot.MerkleRoot, resultB.Snapshot.MerkleRoot,
		"identical claim sets must commit to identical roots regardless of arrival order")
}

func TestBuildSkipsMalformedClaims(t *testing.T) {
	ctx := context.Background()
	builder, _ := newTestBuilder(t)

	good := primaryClaim("us-ca-01", "ca_redistricting_commission")
	noGeometry := primaryClaim("us-ca-02", "ca_redistricting_commission")
	noGeometry.Geometry = nil
	unknownType := primaryClaim("us-ca-03", "ca_redistricting_commission")
	unknownType.BoundaryType = "school-board"

	result, err := builder.Build(ctx, "congressional", []boundaries.SourceClaim{good, noGeometry, unknownType})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.ClaimsSkipped)
	assert.Equal(t, 1, result.Stats.Committed)
	assert.True(t, result.Failed())
	require.Len(t, result.EntityErrors, 2)
	for _, ee := range result.EntityErrors {
		assert.Equal(t, "validate", ee.Stage)
	}
	assert.True(t, errors.IsValidationError(result.EntityErrors[0].Err))
	assert.True(t, errors.IsUnknownBoundaryType(result.EntityErrors[1].Err))
}

func TestBuildQuarantinesAmbiguousDuplicates(t *testing.T) {
	ctx := context.Background()

	// Same geometry digest everywhere would merge unconditionally; inject an
	// overlap function pinned to the ambiguous band instead.
	bandIoU := func(a, b *boundaries.District) float64 { return 0.92 }
	deduper := dedupe.New(dedupe.WithIoU(bandIoU))
	builder, events := newTestBuilder(t, WithDeduplicator(deduper))

	ward := primaryClaim("us-ca-sf-ward-3", "sf_city_clerk")
	ward.BoundaryType = boundaries.BoundaryTypeWard
	precinct := primaryClaim("us-ca-sf-precinct-3100", "sf_city_clerk")
	precinct.BoundaryType = boundaries.BoundaryTypeWard
	precinct.DistrictName = "Precinct 3100"

	result, err := builder.Build(ctx, "ward", []boundaries.SourceClaim{ward, precinct})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Quarantined)
	assert.Equal(t, 1, result.Stats.Committed)
	assert.True(t, result.Failed())

	quarantined, err := events.ByType(ctx, provenance.EventQuarantined)
	require.NoError(t, err)
	require.Len(t, quarantined, 1)
	assert.Equal(t, "dedupe", quarantined[0].Actor)
}

func TestBuildMergesExactRepublications(t *testing.T) {
	ctx := context.Background()
	builder, _ := newTestBuilder(t)

	// Two sources publish byte-identical geometry under different entity ids.
	original := primaryClaim("us-ca-sf-ward-3", "sf_city_clerk")
	copied := aggregatorClaim("us-ca-sf-ward-3-arcgis", "arcgis_hub")
	copied.DistrictName = original.DistrictName
	copied.Geometry = original.Geometry

	result, err := builder.Build(ctx, "ward", []boundaries.SourceClaim{original, copied})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Deduplicated)
	assert.Equal(t, 1, result.Stats.Committed)
	require.Len(t, result.Merged, 1)
	assert.Equal(t, "us-ca-sf-ward-3", result.Merged[0].KeptID)
	assert.Equal(t, "us-ca-sf-ward-3-arcgis", result.Merged[0].DroppedID)
}

func TestBuildAbortsOnCapacityOverflow(t *testing.T) {
	ctx := context.Background()
	builder, _ := newTestBuilder(t, WithCapacity(4))

	var claims []boundaries.SourceClaim
	for i := 0; i < 5; i++ {
		claims = append(claims, primaryClaim(fmt.Sprintf("us-ca-%02d", i), "ca_redistricting_commission"))
	}

	_, err := builder.Build(ctx, "congressional", claims)
	require.Error(t, err)
	assert.True(t, errors.IsCapacityExceeded(err))
	assert.True(t, errors.IsFatal(err))
}

func TestBuildVersionsSuccessiveRuns(t *testing.T) {
	ctx := context.Background()
	builder, _ := newTestBuilder(t)

	var claims []boundaries.SourceClaim
	for i := 0; i < 6; i++ {
		claims = append(claims, primaryClaim(fmt.Sprintf("us-ca-%02d", i), "ca_redistricting_commission"))
	}

	first, err := builder.Build(ctx, "congressional", claims)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Snapshot.Version)
	assert.Nil(t, first.Diff)

	second, err := builder.Build(ctx, "congressional", claims)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Snapshot.Version)
	require.NotNil(t, second.Diff)
	assert.Zero(t, second.Diff.EntitiesAdded)
	assert.Zero(t, second.Diff.EntitiesRemoved)
	assert.Equal(t, first.Snapshot.MerkleRoot, second.Snapshot.MerkleRoot)
}

func TestBuildFlagsMassDisappearance(t *testing.T) {
	ctx := context.Background()
	builder, _ := newTestBuilder(t)

	var full []boundaries.SourceClaim
	for i := 0; i < 100; i++ {
		full = append(full, primaryClaim(fmt.Sprintf("us-ca-%03d", i), "ca_redistricting_commission"))
	}

	_, err := builder.Build(ctx, "congressional", full)
	require.NoError(t, err)

	result, err := builder.Build(ctx, "congressional", full[:85])
	require.NoError(t, err)
	require.NotNil(t, result.Diff)
	assert.True(t, result.Snapshot.ReviewRequired)
	assert.False(t, result.Snapshot.Publishable())
}

func TestBuildRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	builder, _ := newTestBuilder(t)
	_, err := builder.Build(ctx, "congressional", []boundaries.SourceClaim{
		primaryClaim("us-ca-01", "ca_redistricting_commission"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
