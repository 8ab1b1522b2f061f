// Package overlay renders resolved pins as an absolutely positioned marker
// layer over a basemap and keeps at most one marker selected.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/umarjalal00/location-providers/internal/model"
)

var (
	// ErrEmptyResultSet is returned when there are no pins to draw.
	ErrEmptyResultSet = errors.New("no locations available")
	// ErrNoMarker is returned when selecting a marker that does not exist.
	ErrNoMarker = errors.New("no such marker")
)

// Rect is a box in page pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FrameWithin returns the map element's box relative to its container,
// rounded to whole pixels. Both rects must be measured in the same
// coordinate space, which makes the result independent of page scroll.
func FrameWithin(mapRect, containerRect Rect) Rect {
	return Rect{
		Left:   math.Round(mapRect.Left - containerRect.Left),
		Top:    math.Round(mapRect.Top - containerRect.Top),
		Width:  math.Round(mapRect.Width),
		Height: math.Round(mapRect.Height),
	}
}

// Marker is one pin on the overlay.
type Marker struct {
	ID    string            `json:"id"`
	Slug  string            `json:"slug"`
	Name  string            `json:"name"`
	X     float64           `json:"x"`
	Y     float64           `json:"y"`
	State model.VisualState `json:"state"`
}

// Overlay is the marker layer for one container.
type Overlay struct {
	ID        string
	Container string
	Frame     Rect

	mu       sync.Mutex
	markers  []Marker
	selected int
	onSelect func(slug string)
}

// Markers returns a copy of the markers in pin order.
func (o *Overlay) Markers() []Marker {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Marker(nil), o.markers...)
}

// Selected returns the index of the selected marker, or -1.
func (o *Overlay) Selected() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selected
}

// Select deselects the current marker, selects marker i and invokes the
// overlay's onSelect with the marker's location slug.
func (o *Overlay) Select(i int) error {
	o.mu.Lock()
	if i < 0 || i >= len(o.markers) {
		o.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoMarker, i)
	}
	if o.selected >= 0 {
		o.markers[o.selected].State = model.Unselected
	}
	o.markers[i].State = model.Selected
	o.selected = i
	slug, cb := o.markers[i].Slug, o.onSelect
	o.mu.Unlock()

	if cb != nil {
		cb(slug)
	}
	return nil
}

// SelectSlug selects the first marker for slug.
func (o *Overlay) SelectSlug(slug string) error {
	o.mu.Lock()
	idx := -1
	for i, m := range o.markers {
		if m.Slug == slug {
			idx = i
			break
		}
	}
	o.mu.Unlock()
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNoMarker, slug)
	}
	return o.Select(idx)
}

var layerTmpl = template.Must(template.New("overlay").Parse(
	`<div class="svg-pin-overlay" id="overlay-{{.ID}}" data-container="{{.Container}}" ` +
		`style="position:absolute;left:{{.Frame.Left}}px;top:{{.Frame.Top}}px;width:{{.Frame.Width}}px;height:{{.Frame.Height}}px;pointer-events:none">` +
		`{{range $i, $m := .Markers}}` +
		`<div class="custom-pin{{if eq $m.State "selected"}} active{{end}}" id="pin-{{$m.ID}}" data-index="{{$i}}" data-slug="{{$m.Slug}}" title="{{$m.Name}}" ` +
		`style="left:{{$m.X}}px;top:{{$m.Y}}px;pointer-events:auto"><div class="pin-inner{{if eq $m.State "selected"}} active{{end}}"></div></div>` +
		`{{end}}</div>`))

// HTML renders the layer.
func (o *Overlay) HTML() (string, error) {
	data := struct {
		ID        string
		Container string
		Frame     Rect
		Markers   []Marker
	}{o.ID, o.Container, o.Frame, o.Markers()}

	var buf bytes.Buffer
	if err := layerTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering overlay: %w", err)
	}
	return buf.String(), nil
}

// Manager owns the single active overlay per container.
type Manager struct {
	mu       sync.Mutex
	overlays map[string]*Overlay
}

func NewManager() *Manager {
	return &Manager{overlays: make(map[string]*Overlay)}
}

// Render replaces the overlay for container with one marker per pin.
// With no pins the previous overlay is still removed and
// ErrEmptyResultSet is returned.
func (mg *Manager) Render(container string, frame Rect, pins []model.ResolvedPin, onSelect func(slug string)) (*Overlay, error) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	delete(mg.overlays, container)
	if len(pins) == 0 {
		return nil, ErrEmptyResultSet
	}

	o := &Overlay{
		ID:        uuid.NewString(),
		Container: container,
		Frame:     frame,
		selected:  -1,
		onSelect:  onSelect,
		markers:   make([]Marker, 0, len(pins)),
	}
	for _, p := range pins {
		name := p.Location.Name
		if name == "" {
			name = p.Slug
		}
		o.markers = append(o.markers, Marker{
			ID:    uuid.NewString(),
			Slug:  p.Slug,
			Name:  name,
			X:     p.X,
			Y:     p.Y,
			State: model.Unselected,
		})
	}
	mg.overlays[container] = o
	return o, nil
}

// Current returns the active overlay for container.
func (mg *Manager) Current(container string) (*Overlay, bool) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	o, ok := mg.overlays[container]
	return o, ok
}

// Remove tears down the overlay for container.
func (mg *Manager) Remove(container string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	delete(mg.overlays, container)
}
