// Package fallback describes the substitute tile map shown when no
// basemap asset could be loaded: a passive backdrop with a fixed view and
// one marker per location that has coordinates.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/geo/s2"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/umarjalal00/location-providers/internal/logging"
	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/observability"
	"github.com/umarjalal00/location-providers/internal/overlay"
	"github.com/umarjalal00/location-providers/internal/slug"
)

// ErrUnknownMarker is returned by Click for an id the handle does not hold.
var ErrUnknownMarker = errors.New("unknown marker")

// View is a center and zoom level. Center is [lat, lng], the order tile
// engines take it in.
type View struct {
	Center [2]float64 `json:"center"`
	Zoom   int        `json:"zoom"`
}

// World is the view for contexts missing from Views.
var World = View{Center: [2]float64{0, 0}, Zoom: 2}

// Views maps normalized contexts to a coarse view.
var Views = map[string]View{
	"usa":        {Center: [2]float64{37.8, -96}, Zoom: 4},
	"florida":    {Center: [2]float64{27.9944, -81.7603}, Zoom: 6},
	"texas":      {Center: [2]float64{31.0, -99.0}, Zoom: 6},
	"california": {Center: [2]float64{36.7783, -119.4179}, Zoom: 6},
	"ireland":    {Center: [2]float64{53.4, -8.0}, Zoom: 7},
	"uae":        {Center: [2]float64{24.0, 54.0}, Zoom: 7},
	"uk":         {Center: [2]float64{54.5, -3.5}, Zoom: 6},
}

// ViewFor picks the view for a region or country context. A US state
// without its own entry uses the country view.
func ViewFor(area string) View {
	key := slug.NormalizeRegion(area)
	if v, ok := Views[key]; ok {
		return v
	}
	if slug.IsState(key) {
		return Views["usa"]
	}
	return World
}

// Interaction holds the tile engine's interaction switches. The backdrop
// is driven by selection only, so every switch is off.
type Interaction struct {
	ZoomControl        bool `json:"zoomControl"`
	ScrollWheelZoom    bool `json:"scrollWheelZoom"`
	DoubleClickZoom    bool `json:"doubleClickZoom"`
	Dragging           bool `json:"dragging"`
	TouchZoom          bool `json:"touchZoom"`
	BoxZoom            bool `json:"boxZoom"`
	Keyboard           bool `json:"keyboard"`
	AttributionControl bool `json:"attributionControl"`
}

// Marker is one location on the backdrop.
type Marker struct {
	ID      string            `json:"id"`
	Slug    string            `json:"slug"`
	Tooltip string            `json:"tooltip,omitempty"`
	Lat     float64           `json:"lat"`
	Lng     float64           `json:"lng"`
	State   model.VisualState `json:"state"`
}

// Handle is one rendered backdrop.
type Handle struct {
	ID          string      `json:"id"`
	Context     string      `json:"context"`
	View        View        `json:"view"`
	Interaction Interaction `json:"interaction"`

	mu       sync.Mutex
	markers  []Marker
	onSelect func(slug string)
}

// Markers returns a copy of the current markers.
func (h *Handle) Markers() []Marker {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Marker(nil), h.markers...)
}

// Click selects the marker with id, deselecting any other, and invokes
// onSelect with its slug.
func (h *Handle) Click(id string) error {
	h.mu.Lock()
	idx := -1
	for i := range h.markers {
		if h.markers[i].ID == id {
			idx = i
		}
		h.markers[i].State = model.Unselected
	}
	if idx < 0 {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownMarker, id)
	}
	h.markers[idx].State = model.Selected
	s, cb := h.markers[idx].Slug, h.onSelect
	h.mu.Unlock()

	if cb != nil {
		cb(s)
	}
	return nil
}

// FeatureCollection exports the markers as GeoJSON points.
func (h *Handle) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range h.Markers() {
		f := geojson.NewFeature(orb.Point{m.Lng, m.Lat})
		f.ID = m.ID
		f.Properties["slug"] = m.Slug
		f.Properties["tooltip"] = m.Tooltip
		f.Properties["selected"] = m.State == model.Selected
		fc.Append(f)
	}
	return fc
}

func (h *Handle) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.markers = nil
}

// Renderer owns the backdrop for one mount point.
type Renderer struct {
	mu      sync.Mutex
	current *Handle
	metrics *observability.Collector
	log     logging.Logger
}

func NewRenderer(metrics *observability.Collector, log logging.Logger) *Renderer {
	return &Renderer{metrics: metrics, log: logging.OrNoop(log).With(logging.String("component", "fallback"))}
}

// Render clears every marker of the previous render, then builds a new
// backdrop for area. The handle is returned even when no location has
// usable coordinates; that case also reports overlay.ErrEmptyResultSet.
func (r *Renderer) Render(ctx context.Context, area string, locations []model.LocationRecord, onSelect func(slug string)) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.current.clear()
	}

	h := &Handle{
		ID:       uuid.NewString(),
		Context:  area,
		View:     ViewFor(area),
		onSelect: onSelect,
	}
	for _, loc := range locations {
		if !loc.HasCoordinates() || !s2.LatLngFromDegrees(*loc.Latitude, *loc.Longitude).IsValid() {
			continue
		}
		s := slug.NormalizeLocation(loc.RawSlug)
		if s == "" {
			s = slug.NormalizeLocation(loc.Name)
		}
		tooltip := loc.Name
		if tooltip == "" {
			tooltip = loc.RawSlug
		}
		h.markers = append(h.markers, Marker{
			ID:      uuid.NewString(),
			Slug:    s,
			Tooltip: tooltip,
			Lat:     *loc.Latitude,
			Lng:     *loc.Longitude,
			State:   model.Unselected,
		})
	}
	r.current = h
	r.metrics.FallbackRendered()
	r.log.Info(ctx, "fallback map rendered", logging.String("context", area), logging.Int("markers", len(h.markers)))

	if len(h.markers) == 0 {
		return h, overlay.ErrEmptyResultSet
	}
	return h, nil
}

// Current returns the live handle, if any.
func (r *Renderer) Current() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
