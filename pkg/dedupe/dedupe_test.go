package dedupe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/dedupe"
	"github.com/atlasgov/cartograph/pkg/errors"
)

func district(entityID, name string, origin boundaries.OriginClass, geometry string) boundaries.District {
	return boundaries.District{
		EntityID:           entityID,
		Name:               name,
		BoundaryType:       boundaries.BoundaryTypeWard,
		GeometryCommitment: boundaries.CommitGeometry([]byte(geometry)),
		Origin:             origin,
		Provenance:         boundaries.Provenance{PrimarySourceID: entityID + "-src"},
	}
}

// pairIoU builds an IoUFunc returning fixed scores for specific pairs and
// zero otherwise.
func pairIoU(scores map[[2]string]float64) dedupe.IoUFunc {
	return func(a, b *boundaries.District) float64 {
		if v, ok := scores[[2]string{a.EntityID, b.EntityID}]; ok {
			return v
		}
		if v, ok := scores[[2]string{b.EntityID, a.EntityID}]; ok {
			return v
		}
		return 0
	}
}

// Scenario: two "Seattle District 1" entries from a city portal and a
// commercial aggregator with IoU 0.97. The city portal entry survives.
func TestKeepsHigherQualitySourceOnOverlap(t *testing.T) {
	cityPortal := district("seattle-d1-city", "Seattle District 1", boundaries.OriginMunicipalPortal, "geom-city")
	arcgis := district("seattle-d1-arcgis", "Seattle District 1", boundaries.OriginAggregator, "geom-arcgis")

	d := dedupe.New(dedupe.WithIoU(pairIoU(map[[2]string]float64{
		{"seattle-d1-city", "seattle-d1-arcgis"}: 0.97,
	})))

	result, err := d.Dedupe([]boundaries.District{arcgis, cityPortal})
	require.NoError(t, err)

	require.Len(t, result.Kept, 1)
	assert.Equal(t, "seattle-d1-city", result.Kept[0].EntityID)
	assert.Contains(t, result.Kept[0].Provenance.MergedSourceIDs, "seattle-d1-arcgis-src")

	require.Len(t, result.Merged, 1)
	merge := result.Merged[0]
	assert.Equal(t, "seattle-d1-city", merge.KeptID)
	assert.Equal(t, "seattle-d1-arcgis", merge.DroppedID)
	assert.InDelta(t, 0.97, merge.IoU, 1e-9)
	assert.NotEmpty(t, merge.Reason)
}

func TestDuplicateRule(t *testing.T) {
	tests := []struct {
		name     string
		iou      float64
		nameA    string
		nameB    string
		wantDupe bool
	}{
		{"above unconditional threshold", 0.96, "Ward 1", "Completely Different", true},
		{"band with matching names", 0.92, "Seattle District 1", "Seattle District #1", true},
		{"below band", 0.85, "Seattle District 1", "Seattle District 1", false},
		{"disjoint", 0.0, "Ward 1", "Ward 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := district("a", tt.nameA, boundaries.OriginStatePortal, "geom-a")
			b := district("b", tt.nameB, boundaries.OriginAggregator, "geom-b")
			d := dedupe.New(dedupe.WithIoU(pairIoU(map[[2]string]float64{{"a", "b"}: tt.iou})))
			assert.Equal(t, tt.wantDupe, d.AreDuplicates(&a, &b))
		})
	}
}

func TestBorderlineBandIsAmbiguous(t *testing.T) {
	kept := district("ward-5", "Ward 5", boundaries.OriginStatePortal, "geom-a")
	// High overlap, dissimilar name: neither merge nor keep is safe.
	odd := district("harbor-overlay", "Harbor Overlay Zone", boundaries.OriginAggregator, "geom-b")

	d := dedupe.New(dedupe.WithIoU(pairIoU(map[[2]string]float64{
		{"ward-5", "harbor-overlay"}: 0.92,
	})))

	result, err := d.Dedupe([]boundaries.District{kept, odd})
	require.NoError(t, err)

	require.Len(t, result.Kept, 1)
	assert.Equal(t, "ward-5", result.Kept[0].EntityID)
	assert.Empty(t, result.Merged)

	require.Len(t, result.Ambiguous, 1)
	assert.ErrorIs(t, result.Ambiguous[0], errors.ErrDuplicateAmbiguity)
}

func TestIdempotence(t *testing.T) {
	districts := []boundaries.District{
		district("a", "Seattle District 1", boundaries.OriginMunicipalPortal, "geom-1"),
		district("b", "Seattle District 1", boundaries.OriginAggregator, "geom-2"),
		district("c", "Ballard Ward", boundaries.OriginStatePortal, "geom-3"),
		district("d", "Fremont Ward", boundaries.OriginFederal, "geom-4"),
	}

	d := dedupe.New(dedupe.WithIoU(pairIoU(map[[2]string]float64{
		{"a", "b"}: 0.97,
	})))

	first, err := d.Dedupe(districts)
	require.NoError(t, err)
	require.Len(t, first.Kept, 3)

	second, err := d.Dedupe(first.Kept)
	require.NoError(t, err)

	assert.Equal(t, first.Kept, second.Kept)
	assert.Empty(t, second.Merged)
	assert.Empty(t, second.Ambiguous)

	// No pair in the output satisfies the duplicate rule.
	for i := range second.Kept {
		for j := i + 1; j < len(second.Kept); j++ {
			assert.False(t, d.AreDuplicates(&second.Kept[i], &second.Kept[j]))
		}
	}
}

func TestQualityOrderAndTieBreak(t *testing.T) {
	d := dedupe.New()

	assert.Equal(t, 100, d.Quality(boundaries.OriginPrimaryAuthority))
	assert.Equal(t, 90, d.Quality(boundaries.OriginFederal))
	assert.Equal(t, 80, d.Quality(boundaries.OriginStatePortal))
	assert.Equal(t, 70, d.Quality(boundaries.OriginMunicipalPortal))
	assert.Equal(t, 50, d.Quality(boundaries.OriginAggregator))
	assert.Equal(t, 50, d.Quality(boundaries.OriginClass("unknown")))

	// Equal quality: entityId lexicographic order decides who is compared
	// against whom first.
	districts := []boundaries.District{
		district("zeta", "Ward Z", boundaries.OriginStatePortal, "geom-z"),
		district("alpha", "Ward A", boundaries.OriginStatePortal, "geom-a"),
	}
	result, err := d.Dedupe(districts)
	require.NoError(t, err)
	require.Len(t, result.Kept, 2)
	assert.Equal(t, "alpha", result.Kept[0].EntityID)
	assert.Equal(t, "zeta", result.Kept[1].EntityID)
}

func TestDefaultCommitmentIoU(t *testing.T) {
	same1 := district("x", "Ward X", boundaries.OriginFederal, "identical-geom")
	same2 := district("y", "Ward X", boundaries.OriginAggregator, "identical-geom")
	other := district("z", "Ward Z", boundaries.OriginAggregator, "different-geom")

	assert.Equal(t, 1.0, dedupe.CommitmentIoU(&same1, &same2))
	assert.Equal(t, 0.0, dedupe.CommitmentIoU(&same1, &other))

	// Byte-identical republication collapses without an injected IoU.
	d := dedupe.New()
	result, err := d.Dedupe([]boundaries.District{same1, same2, other})
	require.NoError(t, err)
	assert.Len(t, result.Kept, 2)
	require.Len(t, result.Merged, 1)
	assert.Equal(t, "x", result.Merged[0].KeptID)
	assert.Equal(t, "y", result.Merged[0].DroppedID)
}
