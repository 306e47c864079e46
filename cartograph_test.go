package cartograph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/errors"
	"github.com/atlasgov/cartograph/pkg/merkle"
	"github.com/atlasgov/cartograph/pkg/provenance"
	"github.com/atlasgov/cartograph/pkg/zkhash"
)

func newTestEngine(t *testing.T, opts ...Option) Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func testClaims(n int) []boundaries.SourceClaim {
	claims := make([]boundaries.SourceClaim, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("us-ca-%02d", i)
		claims = append(claims, boundaries.SourceClaim{
			SourceID:       "ca_redistricting_commission",
			EntityID:       id,
			DistrictName:   "District " + id,
			BoundaryType:   boundaries.BoundaryTypeCongressional,
			Classification: "active",
			Geometry:       []byte("geometry-" + id),
			LastModified:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			IsPrimary:      true,
			AuthorityLevel: 5,
			Origin:         boundaries.OriginPrimaryAuthority,
		})
	}
	return claims
}

func TestEngineBuildAndPublish(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	result, err := e.Build(ctx, "congressional", testClaims(10))
	require.NoError(t, err)
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, 1, result.Snapshot.Version)
	assert.Equal(t, 10, result.Stats.Committed)

	published, err := e.Snapshots().Publish(ctx, "congressional", 1, "bafybeihx7")
	require.NoError(t, err)
	assert.Equal(t, "bafybeihx7", published.IPFSCID)

	events, err := e.Events().ByType(ctx, provenance.EventDiscovered)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestEngineProveRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, WithCapacity(64))

	result, err := e.Build(ctx, "congressional", testClaims(10))
	require.NoError(t, err)

	districts := make([]boundaries.District, 0, 10)
	for _, d := range result.Decisions {
		districts = append(districts, boundaries.DistrictFromClaim(d.Winner))
	}

	proof, err := e.Prove(ctx, "congressional", districts, "us-ca-03")
	require.NoError(t, err)
	assert.Len(t, proof.Siblings, 6)

	// The proof verifies against the snapshot's recorded root.
	hasher := zkhash.New()
	tree, err := merkle.Build(districts, 64, hasher)
	require.NoError(t, err)
	assert.Equal(t, result.Snapshot.MerkleRoot, tree.Root().Text(16))

	leaf, err := tree.Leaf("us-ca-03")
	require.NoError(t, err)
	assert.True(t, merkle.VerifyProof(hasher, proof, leaf, tree.Root()))
}

func TestEngineProveUnknownEntity(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, WithCapacity(64))

	result, err := e.Build(ctx, "congressional", testClaims(4))
	require.NoError(t, err)

	districts := make([]boundaries.District, 0, 4)
	for _, d := range result.Decisions {
		districts = append(districts, boundaries.DistrictFromClaim(d.Winner))
	}

	_, err = e.Prove(ctx, "congressional", districts, "us-zz-99")
	assert.True(t, errors.IsNotFound(err))
}

func TestEnginePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	e, err := New(WithDataDir(dir))
	require.NoError(t, err)
	_, err = e.Build(ctx, "congressional", testClaims(5))
	require.NoError(t, err)
	require.NoError(t, e.Close())

	reopened, err := New(WithDataDir(dir))
	require.NoError(t, err)
	defer reopened.Close()

	latest, err := reopened.Snapshots().Latest(ctx, "congressional")
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version)
	assert.Equal(t, 5, latest.TotalEntities())

	// The next build continues the version sequence.
	result, err := reopened.Build(ctx, "congressional", testClaims(5))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Snapshot.Version)
}

func TestEngineOptionValidation(t *testing.T) {
	_, err := New(WithCapacity(100))
	assert.Error(t, err)

	_, err = New(WithWorkers(0))
	assert.Error(t, err)

	_, err = New(WithHasher(nil))
	assert.Error(t, err)

	_, err = New(WithDataDir(""))
	assert.Error(t, err)
}
