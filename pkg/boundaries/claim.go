package boundaries

import (
	"time"

	"github.com/atlasgov/cartograph/pkg/errors"
)

// AuthorityLevelMax is the highest authority level a source can carry.
// 5 = federal/state legal mandate, 0 = community-maintained.
const AuthorityLevelMax = 5

// SourceClaim is one source's assertion about one entity. Claims are
// immutable once created; many claims may reference the same entity id.
type SourceClaim struct {
	SourceID       string       `json:"source_id" yaml:"source_id"`
	SourceName     string       `json:"source_name" yaml:"source_name"`
	EntityID       string       `json:"entity_id" yaml:"entity_id"`
	DistrictName   string       `json:"district_name" yaml:"district_name"`
	BoundaryType   BoundaryType `json:"boundary_type" yaml:"boundary_type"`
	Classification string       `json:"classification,omitempty" yaml:"classification,omitempty"` // opaque pass-through from upstream validation
	Geometry       []byte       `json:"geometry" yaml:"geometry"`                                 // opaque to this engine
	LastModified   time.Time    `json:"last_modified" yaml:"last_modified"`
	IsPrimary      bool         `json:"is_primary" yaml:"is_primary"`
	AuthorityLevel int          `json:"authority_level" yaml:"authority_level"` // 0..5
	Origin         OriginClass  `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// Validate checks that the claim is well formed enough to enter resolution.
// A failing claim is skipped; the build continues.
func (c *SourceClaim) Validate() error {
	if c.EntityID == "" {
		return errors.NewValidationError("", "entity_id", "must not be empty")
	}
	if c.SourceID == "" {
		return errors.NewValidationError(c.EntityID, "source_id", "must not be empty")
	}
	if !c.BoundaryType.Valid() {
		return errors.NewUnknownBoundaryTypeError(c.BoundaryType.String(), c.EntityID)
	}
	if c.AuthorityLevel < 0 || c.AuthorityLevel > AuthorityLevelMax {
		return errors.NewValidationError(c.EntityID, "authority_level", "must be between 0 and 5")
	}
	if len(c.Geometry) == 0 {
		return errors.NewValidationError(c.EntityID, "geometry", "must not be empty")
	}
	if c.LastModified.IsZero() {
		return errors.NewValidationError(c.EntityID, "last_modified", "must be set")
	}
	return nil
}

// OriginOrDefault returns the claim's origin class, deriving one from the
// primary flag when the discovery layer did not classify the source.
func (c *SourceClaim) OriginOrDefault() OriginClass {
	if c.Origin != "" {
		return c.Origin
	}
	if c.IsPrimary {
		return OriginPrimaryAuthority
	}
	return OriginAggregator
}
