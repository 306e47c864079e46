package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atlasgov/cartograph/pkg/boundaries"
)

// Review thresholds: disappearance or classification churn beyond these
// fractions looks like a broken scraper, not a redistricting event.
const (
	// DefaultRemovalWarnFraction flags builds where too many previous
	// entities are absent.
	DefaultRemovalWarnFraction = 0.10

	// DefaultClassificationWarnFraction flags builds where too many
	// retained entities changed classification.
	DefaultClassificationWarnFraction = 0.05
)

// Diff is the transient comparison of two snapshots. It is computed on
// demand and never stored as a first-class entity.
type Diff struct {
	FromVersion int `json:"from_version" yaml:"from_version"`
	ToVersion   int `json:"to_version" yaml:"to_version"`

	RootChanged bool `json:"root_changed" yaml:"root_changed"`

	LayersAdded   []boundaries.BoundaryType       `json:"layers_added,omitempty" yaml:"layers_added,omitempty"`
	LayersRemoved []boundaries.BoundaryType       `json:"layers_removed,omitempty" yaml:"layers_removed,omitempty"`
	LayerDeltas   map[boundaries.BoundaryType]int `json:"layer_deltas,omitempty" yaml:"layer_deltas,omitempty"`

	EntitiesAdded         int `json:"entities_added" yaml:"entities_added"`
	EntitiesRemoved       int `json:"entities_removed" yaml:"entities_removed"`
	Retained              int `json:"retained" yaml:"retained"`
	ClassificationChanged int `json:"classification_changed" yaml:"classification_changed"`
	TotalDelta            int `json:"total_delta" yaml:"total_delta"`

	// Warnings are review-required signals, not errors. A non-empty list
	// blocks automatic publication pending human confirmation.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ReviewRequired reports whether the diff carries review-required warnings.
func (d *Diff) ReviewRequired() bool {
	return len(d.Warnings) > 0
}

// String returns a one-line summary.
func (d *Diff) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d → v%d: %+d boundaries (%d added, %d removed, %d reclassified)",
		d.FromVersion, d.ToVersion, d.TotalDelta, d.EntitiesAdded, d.EntitiesRemoved, d.ClassificationChanged)
	if d.RootChanged {
		b.WriteString(", root changed")
	}
	if d.ReviewRequired() {
		fmt.Fprintf(&b, " [REVIEW REQUIRED: %d warnings]", len(d.Warnings))
	}
	return b.String()
}

// compareOptions carries the tunable review thresholds.
type compareOptions struct {
	removalWarnFraction        float64
	classificationWarnFraction float64
}

// CompareOption adjusts the review thresholds.
type CompareOption func(*compareOptions)

// WithRemovalWarnFraction overrides the disappearance threshold.
func WithRemovalWarnFraction(f float64) CompareOption {
	return func(o *compareOptions) { o.removalWarnFraction = f }
}

// WithClassificationWarnFraction overrides the reclassification threshold.
func WithClassificationWarnFraction(f float64) CompareOption {
	return func(o *compareOptions) { o.classificationWarnFraction = f }
}

// Compare diffs two snapshots of the same shard, oldest first.
func Compare(prev, next *Snapshot, opts ...CompareOption) *Diff {
	options := compareOptions{
		removalWarnFraction:        DefaultRemovalWarnFraction,
		classificationWarnFraction: DefaultClassificationWarnFraction,
	}
	for _, opt := range opts {
		opt(&options)
	}

	diff := &Diff{
		FromVersion: prev.Version,
		ToVersion:   next.Version,
		RootChanged: prev.MerkleRoot != next.MerkleRoot,
		LayerDeltas: make(map[boundaries.BoundaryType]int),
		TotalDelta:  next.TotalEntities() - prev.TotalEntities(),
	}

	// Layer-level changes.
	for layer, count := range next.LayerCounts {
		prevCount, existed := prev.LayerCounts[layer]
		if !existed {
			diff.LayersAdded = append(diff.LayersAdded, layer)
		}
		if count != prevCount {
			diff.LayerDeltas[layer] = count - prevCount
		}
	}
	for layer := range prev.LayerCounts {
		if _, exists := next.LayerCounts[layer]; !exists {
			diff.LayersRemoved = append(diff.LayersRemoved, layer)
			diff.LayerDeltas[layer] = -prev.LayerCounts[layer]
		}
	}
	sortLayers(diff.LayersAdded)
	sortLayers(diff.LayersRemoved)

	// Entity-level changes.
	prevByID := make(map[string]EntityRecord, len(prev.Entities))
	for _, e := range prev.Entities {
		prevByID[e.EntityID] = e
	}
	nextByID := make(map[string]EntityRecord, len(next.Entities))
	for _, e := range next.Entities {
		nextByID[e.EntityID] = e
	}

	for id, nextRec := range nextByID {
		prevRec, existed := prevByID[id]
		if !existed {
			diff.EntitiesAdded++
			continue
		}
		diff.Retained++
		if prevRec.Classification != nextRec.Classification {
			diff.ClassificationChanged++
		}
	}
	for id := range prevByID {
		if _, exists := nextByID[id]; !exists {
			diff.EntitiesRemoved++
		}
	}

	// Review-required signals.
	if prevTotal := prev.TotalEntities(); prevTotal > 0 {
		removedFraction := float64(diff.EntitiesRemoved) / float64(prevTotal)
		if removedFraction > options.removalWarnFraction {
			diff.Warnings = append(diff.Warnings, fmt.Sprintf(
				"%.1f%% of version %d entities are absent from version %d (threshold %.0f%%): likely upstream fault, confirm before publishing",
				removedFraction*100, prev.Version, next.Version, options.removalWarnFraction*100))
		}
	}
	if diff.Retained > 0 {
		changedFraction := float64(diff.ClassificationChanged) / float64(diff.Retained)
		if changedFraction > options.classificationWarnFraction {
			diff.Warnings = append(diff.Warnings, fmt.Sprintf(
				"%.1f%% of retained entities changed classification (threshold %.0f%%): likely upstream fault, confirm before publishing",
				changedFraction*100, options.classificationWarnFraction*100))
		}
	}

	return diff
}

func sortLayers(layers []boundaries.BoundaryType) {
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })
}
