// Package resolver places location records on a loaded basemap. A record
// is matched structurally against the map's own elements first; failing
// that, its coordinates are projected through a per-region bounding box.
package resolver

import (
	"context"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s2"

	"github.com/umarjalal00/location-providers/internal/logging"
	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/observability"
	"github.com/umarjalal00/location-providers/internal/slug"
	"github.com/umarjalal00/location-providers/internal/svgmap"
)

// probeAttrs are checked, in order, after id.
var probeAttrs = []string{"data-slug", "data-city", "data-name"}

// Resolver turns location records into viewport pins.
type Resolver struct {
	Strategies []Strategy
	Boxes      map[string]model.RegionBoundingBox
	Default    model.RegionBoundingBox

	metrics *observability.Collector
	log     logging.Logger
}

// New returns a Resolver using the default strategies and box table.
func New(metrics *observability.Collector, log logging.Logger) *Resolver {
	return &Resolver{
		Strategies: DefaultStrategies,
		Boxes:      DefaultBoxes,
		Default:    ContinentalUS,
		metrics:    metrics,
		log:        logging.OrNoop(log).With(logging.String("component", "resolver")),
	}
}

// Resolve places each location, preserving input order. Records that can
// be neither matched nor projected are dropped without error. m may be
// nil, in which case only projection is attempted. An invalid viewport
// falls back to the map's viewBox size.
func (r *Resolver) Resolve(ctx context.Context, m *svgmap.Map, locations []model.LocationRecord, regionContext string, vp model.Viewport) []model.ResolvedPin {
	if !vp.Valid() {
		vp = model.Viewport{Width: svgmap.DefaultWidth, Height: svgmap.DefaultHeight}
		if m != nil {
			size := m.ViewBox().Size()
			vp = model.Viewport{Width: size.X, Height: size.Y}
		}
	}

	pins := make([]model.ResolvedPin, 0, len(locations))
	for _, loc := range locations {
		pin, ok := r.resolveOne(ctx, m, loc, regionContext, vp)
		if !ok {
			r.metrics.PinOutcome("dropped")
			continue
		}
		r.metrics.PinOutcome(string(pin.Method))
		pins = append(pins, pin)
	}
	return pins
}

func (r *Resolver) resolveOne(ctx context.Context, m *svgmap.Map, loc model.LocationRecord, regionContext string, vp model.Viewport) (model.ResolvedPin, bool) {
	name := slug.NormalizeLocation(loc.Name)
	s := slug.NormalizeLocation(loc.RawSlug)
	if s == "" {
		s = name
	}
	if s == "" {
		r.log.Debug(ctx, "location has no usable identifier")
		return model.ResolvedPin{}, false
	}

	if m != nil {
		for _, key := range Keys(r.Strategies, s, name) {
			box, ok := r.match(m, key)
			if !ok {
				continue
			}
			p := clamp(m.ToViewport(box.Center(), vp), vp)
			return model.ResolvedPin{Location: loc, Slug: s, X: p.X, Y: p.Y, Method: model.PinStructural}, true
		}
	}

	if p, ok := r.Project(loc, regionContext, vp); ok {
		return model.ResolvedPin{Location: loc, Slug: s, X: p.X, Y: p.Y, Method: model.PinProjected}, true
	}

	r.log.Debug(ctx, "location dropped", logging.String("slug", s))
	return model.ResolvedPin{}, false
}

// match probes m for key by id, then the data attributes, then a class
// token containing key, and returns the first measurable element's box.
func (r *Resolver) match(m *svgmap.Map, key string) (r2.Rect, bool) {
	for _, sel := range Probe(m, key) {
		found := r2.EmptyRect()
		ok := false
		sel.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			box, err := m.Measure(el)
			if err != nil {
				return true
			}
			found, ok = box, true
			return false
		})
		if ok {
			return found, true
		}
	}
	return r2.EmptyRect(), false
}

// minClassProbe is the shortest key matched as a substring of a class
// token. Shorter keys must equal a token.
const minClassProbe = 3

// Probe returns the candidate elements for key, one selection per probe,
// in probing order. Synthesized labels, binder classes and non-rendering
// content never match. Attribute values compare case-insensitively.
func Probe(m *svgmap.Map, key string) []*goquery.Selection {
	usable := func(el *goquery.Selection) bool {
		return !svgmap.IsLabel(el) && m.Renderable(el)
	}
	byAttr := func(name string) *goquery.Selection {
		return m.Root().Find("[" + name + "]").FilterFunction(func(_ int, el *goquery.Selection) bool {
			return usable(el) && strings.ToLower(strings.TrimSpace(el.AttrOr(name, ""))) == key
		})
	}

	probes := []*goquery.Selection{byAttr("id")}
	for _, a := range probeAttrs {
		probes = append(probes, byAttr(a))
	}
	probes = append(probes, m.Root().Find("[class]").FilterFunction(func(_ int, el *goquery.Selection) bool {
		if !usable(el) {
			return false
		}
		for _, tok := range strings.Fields(strings.ToLower(el.AttrOr("class", ""))) {
			if svgmap.IsRegionClass(tok) {
				continue
			}
			if tok == key || (len(key) >= minClassProbe && strings.Contains(tok, key)) {
				return true
			}
		}
		return false
	}))
	return probes
}

// Project maps a record's coordinates through the box for regionContext:
// longitude to x, inverted latitude to y, clamped into the viewport.
func (r *Resolver) Project(loc model.LocationRecord, regionContext string, vp model.Viewport) (r2.Point, bool) {
	if !loc.HasCoordinates() {
		return r2.Point{}, false
	}
	lat, lng := *loc.Latitude, *loc.Longitude
	if math.IsNaN(lat) || math.IsNaN(lng) || !s2.LatLngFromDegrees(lat, lng).IsValid() {
		return r2.Point{}, false
	}

	b := r.Box(regionContext)
	fx := (lng - b.LngMin) / (b.LngMax - b.LngMin)
	fy := (b.LatMax - lat) / (b.LatMax - b.LatMin)
	p := r2.Point{X: fx * vp.Width, Y: fy * vp.Height}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return r2.Point{}, false
	}
	return clamp(p, vp), true
}

func clamp(p r2.Point, vp model.Viewport) r2.Point {
	return r2.Point{
		X: r1.Interval{Lo: 0, Hi: vp.Width}.ClampPoint(p.X),
		Y: r1.Interval{Lo: 0, Hi: vp.Height}.ClampPoint(p.Y),
	}
}
