package boundaries

import (
	"crypto/sha256"
	"encoding/hex"
)

// GeometryCommitmentSize is the byte length of a geometry commitment.
const GeometryCommitmentSize = sha256.Size

// GeometryCommitment is a fixed-size digest of a boundary geometry. The raw
// geometry never enters the Merkle structure, only this commitment.
type GeometryCommitment [GeometryCommitmentSize]byte

// CommitGeometry computes the commitment for an opaque geometry blob.
func CommitGeometry(geometry []byte) GeometryCommitment {
	return sha256.Sum256(geometry)
}

// String returns the hex representation of the commitment.
func (g GeometryCommitment) String() string {
	return hex.EncodeToString(g[:])
}

// Provenance is a district's back-pointer to the sources it came from.
type Provenance struct {
	PrimarySourceID string   `json:"primary_source_id" yaml:"primary_source_id"`
	MergedSourceIDs []string `json:"merged_source_ids,omitempty" yaml:"merged_source_ids,omitempty"`
}

// District is the canonical entity record actually committed. It is created
// by the deduplicator from the conflict resolver's winners, is immutable
// once included in a build, and is superseded (never mutated) by later
// builds.
type District struct {
	EntityID           string             `json:"entity_id" yaml:"entity_id"`
	Name               string             `json:"name" yaml:"name"`
	BoundaryType       BoundaryType       `json:"boundary_type" yaml:"boundary_type"`
	Classification     string             `json:"classification,omitempty" yaml:"classification,omitempty"`
	GeometryCommitment GeometryCommitment `json:"geometry_commitment" yaml:"geometry_commitment"`
	Origin             OriginClass        `json:"origin" yaml:"origin"`
	Provenance         Provenance         `json:"provenance" yaml:"provenance"`
}

// DistrictFromClaim builds the canonical record for a winning claim.
func DistrictFromClaim(claim SourceClaim) District {
	return District{
		EntityID:           claim.EntityID,
		Name:               claim.DistrictName,
		BoundaryType:       claim.BoundaryType,
		Classification:     claim.Classification,
		GeometryCommitment: CommitGeometry(claim.Geometry),
		Origin:             claim.OriginOrDefault(),
		Provenance:         Provenance{PrimarySourceID: claim.SourceID},
	}
}
