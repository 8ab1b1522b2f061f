package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RegionCount is one row reported by the data provider's region query.
type RegionCount struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RegionRecord is the per-region status bound onto a loaded map.
type RegionRecord struct {
	CanonicalKey        string `json:"canonical_key"`
	DisplayAbbreviation string `json:"display_abbreviation"`
	Count               int    `json:"count"`
	IsUpcoming          bool   `json:"is_upcoming"`
}

// LocationRecord is a city-level point supplied by the data provider.
type LocationRecord struct {
	RawSlug   string   `json:"slug"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l LocationRecord) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// UnmarshalJSON accepts coordinates as numbers, numeric strings, or ""
// (the host's encoding of "unset"), and "city" as an alias of "name". A
// coordinate that does not parse is left unset and the record is kept, so
// one bad row never fails a whole batch.
func (l *LocationRecord) UnmarshalJSON(b []byte) error {
	var aux struct {
		Slug      string          `json:"slug"`
		Name      string          `json:"name"`
		City      string          `json:"city"`
		Latitude  json.RawMessage `json:"latitude"`
		Longitude json.RawMessage `json:"longitude"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	l.RawSlug = aux.Slug
	l.Name = aux.Name
	if l.Name == "" {
		l.Name = aux.City
	}
	l.Latitude, _ = ParseCoordinate(aux.Latitude)
	l.Longitude, _ = ParseCoordinate(aux.Longitude)
	return nil
}

// ParseCoordinate decodes an optional coordinate. Missing, null and empty
// string values yield nil.
func ParseCoordinate(raw json.RawMessage) (*float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinate %s", raw)
	}
	return &v, nil
}

// Float is a convenience constructor for optional coordinates.
func Float(v float64) *float64 {
	return &v
}

// PinMethod records how a pin position was derived.
type PinMethod string

const (
	PinStructural PinMethod = "structural"
	PinProjected  PinMethod = "projected"
)

// ResolvedPin is a location placed in rendered-viewport pixel space.
type ResolvedPin struct {
	Location LocationRecord `json:"location"`
	Slug     string         `json:"slug"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Method   PinMethod      `json:"method"`
}

// RegionBoundingBox is the geographic extent used for projection fallback.
type RegionBoundingBox struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LngMin float64 `json:"lng_min"`
	LngMax float64 `json:"lng_max"`
}

// Viewport is the rendered pixel size of the map element.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// MapViewState tracks which renderer owns the marker layer.
type MapViewState string

const (
	StateUnloaded       MapViewState = "unloaded"
	StateLoading        MapViewState = "loading"
	StateLoaded         MapViewState = "loaded"
	StateLoadFailed     MapViewState = "load_failed"
	StateFallbackActive MapViewState = "fallback_active"
)

// VisualState is the interaction state of a region element or marker.
type VisualState string

const (
	Unselected VisualState = "unselected"
	Hovered    VisualState = "hovered"
	Selected   VisualState = "selected"
)

// Tier classifies a region for styling.
type Tier string

const (
	TierActive    Tier = "active"
	TierUpcoming  Tier = "upcoming"
	TierAvailable Tier = "available"
)

// Provider is one directory entry.
type Provider struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Website   string   `json:"website"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Country   string   `json:"country,omitempty"`
	Region    string   `json:"state,omitempty"`
	City      string   `json:"city_slug,omitempty"`
	CityName  string   `json:"city"`
	Link      string   `json:"link"`
}

// UnmarshalJSON tolerates the host's string-encoded coordinates and
// numeric IDs. Unparseable coordinates are left unset.
func (p *Provider) UnmarshalJSON(b []byte) error {
	type plain Provider
	var aux struct {
		plain
		ID        json.RawMessage `json:"id"`
		Latitude  json.RawMessage `json:"latitude"`
		Longitude json.RawMessage `json:"longitude"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Provider(aux.plain)
	p.ID = strings.Trim(strings.TrimSpace(string(aux.ID)), `"`)
	if p.ID == "null" {
		p.ID = ""
	}
	p.Latitude, _ = ParseCoordinate(aux.Latitude)
	p.Longitude, _ = ParseCoordinate(aux.Longitude)
	return nil
}
