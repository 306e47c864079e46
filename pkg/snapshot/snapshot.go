// Package snapshot versions completed builds into immutable, diffable
// records. A snapshot is never mutated after creation except to attach an
// IPFS CID or a deprecation marker.
package snapshot

import (
	"time"

	"github.com/atlasgov/cartograph/pkg/boundaries"
)

// Metadata captures build context for a snapshot.
type Metadata struct {
	SourceVintage   string            `json:"source_vintage,omitempty" yaml:"source_vintage,omitempty"`
	Regions         []string          `json:"regions,omitempty" yaml:"regions,omitempty"`
	BuildDuration   time.Duration     `json:"build_duration,omitempty" yaml:"build_duration,omitempty"`
	SourceChecksums map[string]string `json:"source_checksums,omitempty" yaml:"source_checksums,omitempty"`
	PreviousVersion int               `json:"previous_version,omitempty" yaml:"previous_version,omitempty"`
}

// EntityRecord is the per-entity slice of a snapshot kept for diffing:
// enough to detect disappearance and classification drift without carrying
// geometry.
type EntityRecord struct {
	EntityID       string                  `json:"entity_id" yaml:"entity_id"`
	BoundaryType   boundaries.BoundaryType `json:"boundary_type" yaml:"boundary_type"`
	Classification string                  `json:"classification,omitempty" yaml:"classification,omitempty"`
}

// Snapshot is one immutable, versioned build result for a shard.
type Snapshot struct {
	ID         string    `json:"id" yaml:"id"`
	Shard      string    `json:"shard" yaml:"shard"`
	Version    int       `json:"version" yaml:"version"`
	MerkleRoot string    `json:"merkle_root" yaml:"merkle_root"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`

	// IPFSCID is set only after publication.
	IPFSCID string `json:"ipfs_cid,omitempty" yaml:"ipfs_cid,omitempty"`

	// DeprecatedAt marks a superseded snapshot; the record is retained for
	// audit.
	DeprecatedAt *time.Time `json:"deprecated_at,omitempty" yaml:"deprecated_at,omitempty"`

	// ReviewRequired is set at creation time when the diff against the
	// previous version looks like an upstream fault rather than a
	// legitimate redistricting event. It blocks publication until
	// acknowledged.
	ReviewRequired       bool       `json:"review_required,omitempty" yaml:"review_required,omitempty"`
	ReviewAcknowledgedAt *time.Time `json:"review_acknowledged_at,omitempty" yaml:"review_acknowledged_at,omitempty"`
	ReviewAcknowledgedBy string     `json:"review_acknowledged_by,omitempty" yaml:"review_acknowledged_by,omitempty"`

	LayerCounts map[boundaries.BoundaryType]int `json:"layer_counts" yaml:"layer_counts"`
	Entities    []EntityRecord                  `json:"entities" yaml:"entities"`
	Metadata    Metadata                        `json:"metadata" yaml:"metadata"`
}

// TotalEntities returns the committed boundary count.
func (s *Snapshot) TotalEntities() int {
	return len(s.Entities)
}

// Deprecated reports whether the snapshot carries a deprecation marker.
func (s *Snapshot) Deprecated() bool {
	return s.DeprecatedAt != nil
}

// Publishable reports whether the snapshot may be published without human
// confirmation.
func (s *Snapshot) Publishable() bool {
	if s.Deprecated() {
		return false
	}
	return !s.ReviewRequired || s.ReviewAcknowledgedAt != nil
}

// RecordsFromDistricts converts a canonical district list into snapshot
// entity records.
func RecordsFromDistricts(districts []boundaries.District) []EntityRecord {
	records := make([]EntityRecord, 0, len(districts))
	for _, d := range districts {
		records = append(records, EntityRecord{
			EntityID:       d.EntityID,
			BoundaryType:   d.BoundaryType,
			Classification: d.Classification,
		})
	}
	return records
}

// LayerCountsFromDistricts tallies districts per boundary type.
func LayerCountsFromDistricts(districts []boundaries.District) map[boundaries.BoundaryType]int {
	counts := make(map[boundaries.BoundaryType]int)
	for _, d := range districts {
		counts[d.BoundaryType]++
	}
	return counts
}
