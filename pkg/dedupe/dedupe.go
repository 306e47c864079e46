// Package dedupe collapses near-identical boundaries that independent
// sources discovered separately, keeping the highest-quality origin. Its
// output is the canonical entity list for a build.
package dedupe

import (
	"fmt"
	"sort"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/errors"
)

// IoUFunc computes Intersection over Union for two districts' geometries.
// Geometry is opaque to this engine, so the real implementation is supplied
// by the upstream validation layer. The default treats identical geometry
// commitments as full overlap and everything else as disjoint, which is
// exact for byte-identical republications and conservative otherwise.
type IoUFunc func(a, b *boundaries.District) float64

// CommitmentIoU is the default IoUFunc.
func CommitmentIoU(a, b *boundaries.District) float64 {
	if a.GeometryCommitment == b.GeometryCommitment {
		return 1
	}
	return 0
}

// Thresholds are the duplicate-detection cut-offs. Two districts are
// duplicates iff IoU > Unconditional, or IoU > WithName and name similarity
// > NameSimilarity. The band between WithName and Unconditional with a low
// name similarity is ambiguous and routed to manual review.
type Thresholds struct {
	Unconditional  float64 // IoU above which geometry alone decides
	WithName       float64 // IoU above which a name match decides
	NameSimilarity float64
}

// DefaultThresholds returns the standard cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{Unconditional: 0.95, WithName: 0.90, NameSimilarity: 0.7}
}

// DefaultQualityTable maps origin classes to source-quality scores.
func DefaultQualityTable() map[boundaries.OriginClass]int {
	return map[boundaries.OriginClass]int{
		boundaries.OriginPrimaryAuthority: 100,
		boundaries.OriginFederal:          90,
		boundaries.OriginStatePortal:      80,
		boundaries.OriginMunicipalPortal:  70,
		boundaries.OriginAggregator:       50,
	}
}

// CandidatePair records one considered merge. Pairs are ephemeral: they
// live in the build's provenance trail, not as first-class entities.
type CandidatePair struct {
	KeptID         string  `json:"kept_id" yaml:"kept_id"`
	DroppedID      string  `json:"dropped_id" yaml:"dropped_id"`
	IoU            float64 `json:"iou" yaml:"iou"`
	NameSimilarity float64 `json:"name_similarity" yaml:"name_similarity"`
	Reason         string  `json:"reason" yaml:"reason"`
}

// Result is the outcome of one dedup pass.
type Result struct {
	// Kept is the canonical entity list, in quality order.
	Kept []boundaries.District

	// Merged records every collapsed pair.
	Merged []CandidatePair

	// Ambiguous holds the borderline cases excluded from this build
	// pending manual review. Each error is a DuplicateAmbiguityError.
	Ambiguous []error
}

// Deduplicator detects and collapses duplicates across already-resolved
// districts.
type Deduplicator struct {
	thresholds Thresholds
	quality    map[boundaries.OriginClass]int
	iou        IoUFunc
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithThresholds overrides the duplicate-detection cut-offs.
func WithThresholds(t Thresholds) Option {
	return func(d *Deduplicator) { d.thresholds = t }
}

// WithQualityTable overrides the origin-class quality scores.
func WithQualityTable(table map[boundaries.OriginClass]int) Option {
	return func(d *Deduplicator) { d.quality = table }
}

// WithIoU supplies the geometry overlap function.
func WithIoU(fn IoUFunc) Option {
	return func(d *Deduplicator) { d.iou = fn }
}

// New creates a Deduplicator with default thresholds and quality table.
func New(opts ...Option) *Deduplicator {
	d := &Deduplicator{
		thresholds: DefaultThresholds(),
		quality:    DefaultQualityTable(),
		iou:        CommitmentIoU,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dedupe walks the districts best-quality-first and greedily keeps each one
// unless it duplicates an already-kept (necessarily higher-or-equal quality)
// entry. Idempotent: running it again on Kept changes nothing.
//
// The pairwise comparison is quadratic in the batch size. Batches bounded by
// boundary type and region keep this cheap; national-scale runs should
// pre-bucket spatially before calling.
func (d *Deduplicator) Dedupe(districts []boundaries.District) (*Result, error) {
	ordered := make([]boundaries.District, len(districts))
	copy(ordered, districts)
	sort.SliceStable(ordered, func(i, j int) bool {
		qi, qj := d.Quality(ordered[i].Origin), d.Quality(ordered[j].Origin)
		if qi != qj {
			return qi > qj
		}
		return ordered[i].EntityID < ordered[j].EntityID
	})

	result := &Result{}
	for i := range ordered {
		candidate := ordered[i]

		keep := true
		for k := range result.Kept {
			kept := &result.Kept[k]
			iou := d.iou(kept, &candidate)
			nameSim := NameSimilarity(kept.Name, candidate.Name)

			verdict := d.classify(iou, nameSim)
			switch verdict {
			case verdictDuplicate:
				kept.Provenance.MergedSourceIDs = append(kept.Provenance.MergedSourceIDs, candidate.Provenance.PrimarySourceID)
				result.Merged = append(result.Merged, CandidatePair{
					KeptID:         kept.EntityID,
					DroppedID:      candidate.EntityID,
					IoU:            iou,
					NameSimilarity: nameSim,
					Reason:         d.mergeReason(kept, &candidate, iou, nameSim),
				})
				keep = false
			case verdictAmbiguous:
				result.Ambiguous = append(result.Ambiguous,
					errors.NewDuplicateAmbiguityError(kept.EntityID, candidate.EntityID, iou, nameSim))
				keep = false
			case verdictDistinct:
				// keep comparing
			}
			if !keep {
				break
			}
		}

		if keep {
			result.Kept = append(result.Kept, candidate)
		}
	}

	return result, nil
}

// Quality returns the source-quality score for an origin class. Unknown
// classes score like generic aggregators.
func (d *Deduplicator) Quality(origin boundaries.OriginClass) int {
	if q, ok := d.quality[origin]; ok {
		return q
	}
	return d.quality[boundaries.OriginAggregator]
}

// AreDuplicates applies the duplicate rule to a single pair.
func (d *Deduplicator) AreDuplicates(a, b *boundaries.District) bool {
	iou := d.iou(a, b)
	return d.classify(iou, NameSimilarity(a.Name, b.Name)) == verdictDuplicate
}

type verdict int

const (
	verdictDistinct verdict = iota
	verdictDuplicate
	verdictAmbiguous
)

func (d *Deduplicator) classify(iou, nameSim float64) verdict {
	switch {
	case iou > d.thresholds.Unconditional:
		return verdictDuplicate
	case iou > d.thresholds.WithName && nameSim > d.thresholds.NameSimilarity:
		return verdictDuplicate
	case iou > d.thresholds.WithName:
		// High geometric overlap with a dissimilar name is never safe to
		// auto-merge or auto-keep.
		return verdictAmbiguous
	default:
		return verdictDistinct
	}
}

func (d *Deduplicator) mergeReason(kept, dropped *boundaries.District, iou, nameSim float64) string {
	if iou > d.thresholds.Unconditional {
		return fmt.Sprintf("IoU %.2f exceeds unconditional threshold; kept higher-quality origin %s over %s",
			iou, kept.Origin, dropped.Origin)
	}
	return fmt.Sprintf("IoU %.2f with name similarity %.2f; kept higher-quality origin %s over %s",
		iou, nameSim, kept.Origin, dropped.Origin)
}
