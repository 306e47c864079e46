// Package boundaries defines the core data model for governance-boundary
// claims and the canonical district records committed by a build.
package boundaries

// BoundaryType is the enumerated category of a governance boundary.
// The set is fixed per deployment.
type BoundaryType string

// String returns the string representation of a boundary type.
func (b BoundaryType) String() string {
	return string(b)
}

const (
	// BoundaryTypeCongressional is a US congressional district.
	BoundaryTypeCongressional BoundaryType = "congressional"
	// BoundaryTypeStateSenate is a state upper-chamber district.
	BoundaryTypeStateSenate BoundaryType = "state-senate"
	// BoundaryTypeStateHouse is a state lower-chamber district.
	BoundaryTypeStateHouse BoundaryType = "state-house"
	// BoundaryTypeCounty is a county or county-equivalent.
	BoundaryTypeCounty BoundaryType = "county"
	// BoundaryTypeWard is a municipal ward or council district.
	BoundaryTypeWard BoundaryType = "ward"
)

// BoundaryTypes returns all boundary types known to this deployment.
func BoundaryTypes() []BoundaryType {
	return []BoundaryType{
		BoundaryTypeCongressional,
		BoundaryTypeStateSenate,
		BoundaryTypeStateHouse,
		BoundaryTypeCounty,
		BoundaryTypeWard,
	}
}

// Valid reports whether the boundary type is part of the deployment's set.
func (b BoundaryType) Valid() bool {
	switch b {
	case BoundaryTypeCongressional, BoundaryTypeStateSenate, BoundaryTypeStateHouse,
		BoundaryTypeCounty, BoundaryTypeWard:
		return true
	default:
		return false
	}
}

// OriginClass categorizes where a district's winning claim came from. It
// keys the deduplicator's source-quality table.
type OriginClass string

const (
	// OriginPrimaryAuthority marks data derived from the legally primary source.
	OriginPrimaryAuthority OriginClass = "primary-authority"
	// OriginFederal marks census or other federal products.
	OriginFederal OriginClass = "federal"
	// OriginStatePortal marks state GIS or redistricting portals.
	OriginStatePortal OriginClass = "state-portal"
	// OriginMunicipalPortal marks municipal open-data portals.
	OriginMunicipalPortal OriginClass = "municipal-portal"
	// OriginAggregator marks generic commercial aggregators.
	OriginAggregator OriginClass = "aggregator"
)
