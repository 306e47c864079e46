// Package authority holds the source registry: which source is the legally
// primary authority for each boundary type, and which aggregators republish
// it. The registry is read-only configuration, safe to share across
// concurrent resolution of different entities.
package authority

import (
	"time"

	"github.com/atlasgov/cartograph/pkg/boundaries"
	"github.com/atlasgov/cartograph/pkg/errors"
)

// Aggregator describes a secondary source that republishes primary data,
// possibly with lag or staleness.
type Aggregator struct {
	Name           string        `json:"name" yaml:"name"`
	DataFormat     string        `json:"data_format" yaml:"data_format"`
	PublicationLag time.Duration `json:"publication_lag" yaml:"publication_lag"`
}

// Info is the designated primary authority for one boundary type plus its
// ordered aggregator list.
type Info struct {
	BoundaryType boundaries.BoundaryType `json:"boundary_type" yaml:"boundary_type"`
	Authority    string                  `json:"authority" yaml:"authority"`
	LegalBasis   string                  `json:"legal_basis" yaml:"legal_basis"`
	Aggregators  []Aggregator            `json:"aggregators" yaml:"aggregators"`
}

// Registry answers authority lookups for boundary types. Implementations
// are pure lookups with no mutable state.
type Registry interface {
	// For returns the authority configuration for a boundary type
	For(boundaryType boundaries.BoundaryType) (Info, error)

	// AggregatorsFor returns the ordered aggregator list for a boundary type
	AggregatorsFor(boundaryType boundaries.BoundaryType) ([]Aggregator, error)

	// BoundaryTypes returns the boundary types the registry covers
	BoundaryTypes() []boundaries.BoundaryType
}

// registry is the default map-backed implementation.
type registry struct {
	infos map[boundaries.BoundaryType]Info
	order []boundaries.BoundaryType
}

// New creates a registry with the standard US boundary-type authorities.
func New() Registry {
	return fromInfos(defaultInfos())
}

// NewFromInfos creates a registry from explicit authority configuration.
func NewFromInfos(infos []Info) Registry {
	return fromInfos(infos)
}

func fromInfos(infos []Info) *registry {
	r := &registry{infos: make(map[boundaries.BoundaryType]Info, len(infos))}
	for _, info := range infos {
		if _, dup := r.infos[info.BoundaryType]; !dup {
			r.order = append(r.order, info.BoundaryType)
		}
		r.infos[info.BoundaryType] = info
	}
	return r
}

// For returns the authority configuration for a boundary type.
func (r *registry) For(boundaryType boundaries.BoundaryType) (Info, error) {
	info, ok := r.infos[boundaryType]
	if !ok {
		return Info{}, errors.NewUnknownBoundaryTypeError(boundaryType.String(), "")
	}
	return info, nil
}

// AggregatorsFor returns the ordered aggregator list for a boundary type.
func (r *registry) AggregatorsFor(boundaryType boundaries.BoundaryType) ([]Aggregator, error) {
	info, err := r.For(boundaryType)
	if err != nil {
		return nil, err
	}
	// Copy so callers cannot mutate registry state.
	aggs := make([]Aggregator, len(info.Aggregators))
	copy(aggs, info.Aggregators)
	return aggs, nil
}

// BoundaryTypes returns the boundary types the registry covers.
func (r *registry) BoundaryTypes() []boundaries.BoundaryType {
	types := make([]boundaries.BoundaryType, len(r.order))
	copy(types, r.order)
	return types
}

// defaultInfos returns the compiled-in registry for the standard US
// boundary types.
func defaultInfos() []Info {
	return []Info{
		{
			BoundaryType: boundaries.BoundaryTypeCongressional,
			Authority:    "State Redistricting Commission",
			LegalBasis:   "state constitution / redistricting statute",
			Aggregators: []Aggregator{
				{Name: "Census TIGER/Line", DataFormat: "shapefile", PublicationLag: 90 * 24 * time.Hour},
				{Name: "ArcGIS Hub", DataFormat: "geojson", PublicationLag: 180 * 24 * time.Hour},
			},
		},
		{
			BoundaryType: boundaries.BoundaryTypeStateSenate,
			Authority:    "State Redistricting Commission",
			LegalBasis:   "state constitution / redistricting statute",
			Aggregators: []Aggregator{
				{Name: "Census TIGER/Line", DataFormat: "shapefile", PublicationLag: 90 * 24 * time.Hour},
				{Name: "ArcGIS Hub", DataFormat: "geojson", PublicationLag: 180 * 24 * time.Hour},
			},
		},
		{
			BoundaryType: boundaries.BoundaryTypeStateHouse,
			Authority:    "State Redistricting Commission",
			LegalBasis:   "state constitution / redistricting statute",
			Aggregators: []Aggregator{
				{Name: "Census TIGER/Line", DataFormat: "shapefile", PublicationLag: 90 * 24 * time.Hour},
				{Name: "ArcGIS Hub", DataFormat: "geojson", PublicationLag: 180 * 24 * time.Hour},
			},
		},
		{
			BoundaryType: boundaries.BoundaryTypeCounty,
			Authority:    "US Census Bureau",
			LegalBasis:   "13 U.S.C. boundary and annexation survey",
			Aggregators: []Aggregator{
				{Name: "State GIS Portal", DataFormat: "shapefile", PublicationLag: 30 * 24 * time.Hour},
				{Name: "ArcGIS Hub", DataFormat: "geojson", PublicationLag: 180 * 24 * time.Hour},
			},
		},
		{
			BoundaryType: boundaries.BoundaryTypeWard,
			Authority:    "Municipal Clerk / City GIS",
			LegalBasis:   "municipal charter / council ordinance",
			Aggregators: []Aggregator{
				{Name: "Census TIGER/Line", DataFormat: "shapefile", PublicationLag: 365 * 24 * time.Hour},
				{Name: "ArcGIS Hub", DataFormat: "geojson", PublicationLag: 180 * 24 * time.Hour},
			},
		},
	}
}
