package resolver

import (
	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/slug"
)

// ContinentalUS is the projection box used for contexts missing from
// the table.
var ContinentalUS = model.RegionBoundingBox{LatMin: 24.5, LatMax: 49.5, LngMin: -125, LngMax: -66.9}

// DefaultBoxes covers the regions basemaps ship for. Keys are canonical
// region slugs, plus the country slugs used by single-country maps.
var DefaultBoxes = map[string]model.RegionBoundingBox{
	"usa":        ContinentalUS,
	"florida":    {LatMin: 24.5, LatMax: 31, LngMin: -87.5, LngMax: -80},
	"texas":      {LatMin: 25.8, LatMax: 36.5, LngMin: -106.65, LngMax: -93.5},
	"california": {LatMin: 32.5, LatMax: 42, LngMin: -124.5, LngMax: -114.1},
	"new-york":   {LatMin: 40.5, LatMax: 45.05, LngMin: -79.8, LngMax: -71.85},
	"georgia":    {LatMin: 30.35, LatMax: 35, LngMin: -85.6, LngMax: -80.8},
	"ireland":    {LatMin: 51.4, LatMax: 55.4, LngMin: -10.5, LngMax: -5.4},
	"uae":        {LatMin: 22.6, LatMax: 26.1, LngMin: 51.5, LngMax: 56.4},
	"uk":         {LatMin: 49.9, LatMax: 58.7, LngMin: -8.2, LngMax: 1.8},
}

// Box returns the projection box for a region or country context.
func (r *Resolver) Box(context string) model.RegionBoundingBox {
	if b, ok := r.Boxes[slug.NormalizeRegion(context)]; ok {
		return b
	}
	return r.Default
}
