// Package locator owns one map instance: its asset cache, bound regions,
// marker layer and fallback backdrop. A Controller runs the load pipeline
// (basemap, region binding, pin resolution, overlay) and answers region
// and location selections.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/umarjalal00/location-providers/internal/asset"
	"github.com/umarjalal00/location-providers/internal/binder"
	"github.com/umarjalal00/location-providers/internal/config"
	"github.com/umarjalal00/location-providers/internal/fallback"
	"github.com/umarjalal00/location-providers/internal/logging"
	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/observability"
	"github.com/umarjalal00/location-providers/internal/overlay"
	"github.com/umarjalal00/location-providers/internal/provider"
	"github.com/umarjalal00/location-providers/internal/resolver"
	"github.com/umarjalal00/location-providers/internal/slug"
	"github.com/umarjalal00/location-providers/internal/svgmap"
)

// ErrSuperseded is returned by a load or region selection whose result
// arrived after a newer one was started on the same controller. The stale
// result is discarded.
var ErrSuperseded = errors.New("superseded by a newer selection")

// ErrNotLoaded is returned by selections made before any map was loaded.
var ErrNotLoaded = errors.New("map not loaded")

// Status summarizes a view or listing for the directory UI.
type Status string

const (
	StatusOK    Status = "ok"
	StatusEmpty Status = "empty"
	StatusError Status = "error"
)

// Messages shown alongside the map.
const (
	MsgSelectPin    = "Select a city pin to view providers"
	MsgNoPins       = "No city pins available"
	MsgNoPinsHere   = "No city pins for this location"
	MsgNoProviders  = "No providers found in this location"
	MsgListingError = "Error loading providers"
)

// StageResult records how one pipeline stage ended.
type StageResult struct {
	Stage  string `json:"stage"`
	Result string `json:"result"` // loaded or failed
	Error  string `json:"error,omitempty"`
}

// Stage results.
const (
	Loaded = "loaded"
	Failed = "failed"
)

// Options configures a Controller.
type Options struct {
	Country  string
	Assets   config.AssetsConfig
	Upcoming []string
	// Viewport is used when a load request carries no map rect.
	Viewport model.Viewport
	Binder   binder.Options

	// OnLocationSelect runs after a marker is selected.
	OnLocationSelect func(slug string)

	Metrics *observability.Collector
	Log     logging.Logger
}

// LoadRequest describes one map load. Region is empty for the
// country-level map. Map and Container are the rendered rects of the map
// element and its container, in the same coordinate space.
type LoadRequest struct {
	Region    string       `json:"region"`
	Map       overlay.Rect `json:"map"`
	Container overlay.Rect `json:"container"`
}

// Listing is the directory panel for a selection.
type Listing struct {
	Title   string           `json:"title"`
	Entries []model.Provider `json:"entries"`
	Status  Status           `json:"status"`
	Message string           `json:"message,omitempty"`
}

// View is a snapshot of one map instance.
type View struct {
	Instance string             `json:"instance"`
	State    model.MapViewState `json:"state"`
	Country  string             `json:"country"`
	Region   string             `json:"region,omitempty"`
	Title    string             `json:"title,omitempty"`
	Asset    string             `json:"asset,omitempty"`
	SVG      string             `json:"svg,omitempty"`
	Regions  []binder.Region    `json:"regions,omitempty"`
	Selected string             `json:"selected,omitempty"`

	Pins    []model.ResolvedPin `json:"pins,omitempty"`
	Frame   overlay.Rect        `json:"frame"`
	Overlay string              `json:"overlay,omitempty"`

	Fallback *fallback.Handle           `json:"fallback,omitempty"`
	Markers  *geojson.FeatureCollection `json:"markers,omitempty"`

	Listing *Listing      `json:"listing,omitempty"`
	Stages  []StageResult `json:"stages"`
	Status  Status        `json:"status"`
	Message string        `json:"message"`
}

// Controller is one map instance. Its cache and selection state are never
// shared with other instances.
type Controller struct {
	ID string

	data     provider.DataProvider
	loader   *asset.Loader
	resolver *resolver.Resolver
	overlays *overlay.Manager
	fallback *fallback.Renderer
	opts     Options
	log      logging.Logger

	mu       sync.Mutex
	token    uint64
	selToken uint64
	view     *View
	m        *svgmap.Map
	bindings *binder.Bindings
}

// New creates a controller for instance id.
func New(id string, data provider.DataProvider, fetcher asset.Fetcher, opts Options) *Controller {
	if opts.Country == "" {
		opts.Country = "usa"
	}
	if !opts.Viewport.Valid() {
		opts.Viewport = model.Viewport{Width: svgmap.DefaultWidth, Height: svgmap.DefaultHeight}
	}
	log := logging.OrNoop(opts.Log).With(logging.String("instance", id))
	opts.Binder.Log = log
	return &Controller{
		ID:       id,
		data:     provider.Instrument(data, opts.Metrics),
		loader:   asset.NewLoader(fetcher, opts.Assets.BaseURL, opts.Metrics, log),
		resolver: resolver.New(opts.Metrics, log),
		overlays: overlay.NewManager(),
		fallback: fallback.NewRenderer(opts.Metrics, log),
		opts:     opts,
		log:      log,
		view:     &View{Instance: id, State: model.StateUnloaded, Country: opts.Country},
	}
}

// Loader exposes the instance's asset loader.
func (c *Controller) Loader() *asset.Loader { return c.loader }

// View returns the latest committed view.
func (c *Controller) View() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := *c.view
	return &v
}

// Load runs the pipeline for req. Stages run in order; a failed stage is
// recorded and absorbed. When every basemap candidate fails the locations
// are drawn on the fallback backdrop instead. If another Load starts
// before this one commits, this one returns ErrSuperseded and leaves the
// instance untouched.
func (c *Controller) Load(ctx context.Context, req LoadRequest) (*View, error) {
	region := slug.NormalizeRegion(req.Region)
	country := c.opts.Country

	c.mu.Lock()
	c.token++
	token := c.token
	loading := *c.view
	loading.State = model.StateLoading
	c.view = &loading
	c.mu.Unlock()

	v := &View{Instance: c.ID, State: model.StateLoading, Country: country, Region: region}
	if region != "" {
		v.Title = strings.ToUpper(strings.ReplaceAll(region, "-", " ")) + " SERVICE PROVIDERS"
	}
	stage := func(name string, err error) {
		r := StageResult{Stage: name, Result: Loaded}
		if err != nil {
			r.Result, r.Error = Failed, err.Error()
		}
		v.Stages = append(v.Stages, r)
	}

	counts, err := c.data.RegionCounts(ctx, country)
	if err != nil {
		c.log.Warn(ctx, "region counts unavailable, binding with zero counts", logging.Err(err))
		counts = nil
	}
	stage("region_counts", err)

	vp := c.opts.Viewport
	if req.Map.Width > 0 && req.Map.Height > 0 {
		vp = model.Viewport{Width: req.Map.Width, Height: req.Map.Height}
	}
	v.Frame = overlay.FrameWithin(req.Map, req.Container)
	if v.Frame.Width <= 0 || v.Frame.Height <= 0 {
		v.Frame = overlay.Rect{Width: vp.Width, Height: vp.Height}
	}

	m, err := c.basemap(ctx, v, country, region)
	stage("basemap", err)

	var bindings *binder.Bindings
	if m != nil {
		bindings = binder.Bind(ctx, m, binder.BuildRecords(counts, c.opts.Upcoming), c.opts.Binder)
		v.Regions = bindings.Regions()
		v.SVG, err = bindings.Markup()
		stage("bind", err)
	}

	locs, locErr := c.data.Locations(ctx, country, region)
	stage("locations", locErr)

	var pins []model.ResolvedPin
	if m != nil && locErr == nil {
		pins = c.resolver.Resolve(ctx, m, locs, contextFor(country, region), vp)
	}

	var listing *Listing
	if region != "" {
		listing = c.listing(ctx, country, region, "")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token {
		c.log.Debug(ctx, "discarding stale load", logging.String("region", region))
		return nil, fmt.Errorf("%w: load of %q", ErrSuperseded, region)
	}

	v.Listing = listing
	v.Pins = pins
	if m == nil {
		c.overlays.Remove(c.ID)
		c.commitFallback(ctx, v, country, region, locs, locErr)
	} else {
		c.commitOverlay(v, pins, locErr)
		v.State = model.StateLoaded
	}

	c.m = m
	c.bindings = bindings
	c.view = v
	out := *v
	return &out, nil
}

// basemap loads and parses the first available candidate. A nil map means
// the fallback backdrop takes over.
func (c *Controller) basemap(ctx context.Context, v *View, country, region string) (*svgmap.Map, error) {
	candidates := c.opts.Assets.Candidates(country, region, fileAbbr(region))
	a, err := c.loader.Load(ctx, candidates)
	if err != nil {
		c.log.Warn(ctx, "no basemap available", logging.Strings("candidates", candidates), logging.Err(err))
		return nil, err
	}
	m, err := svgmap.Parse(string(a.Markup))
	if err != nil {
		c.log.Warn(ctx, "basemap is not usable", logging.String("url", a.URL), logging.Err(err))
		c.loader.Forget(a.URL)
		return nil, fmt.Errorf("%w: %w", asset.ErrAssetUnavailable, err)
	}
	m.Normalize()
	v.Asset = a.URL
	return m, nil
}

func (c *Controller) commitOverlay(v *View, pins []model.ResolvedPin, locErr error) {
	if locErr != nil {
		c.overlays.Remove(c.ID)
		v.Status, v.Message = StatusError, MsgNoPinsHere
		return
	}
	ov, err := c.overlays.Render(c.ID, v.Frame, pins, c.opts.OnLocationSelect)
	if err != nil {
		v.Status, v.Message = StatusEmpty, MsgNoPins
		return
	}
	v.Overlay, err = ov.HTML()
	if err != nil {
		v.Status, v.Message = StatusError, err.Error()
		return
	}
	v.Status, v.Message = StatusOK, MsgSelectPin
}

func (c *Controller) commitFallback(ctx context.Context, v *View, country, region string, locs []model.LocationRecord, locErr error) {
	v.State = model.StateFallbackActive
	if locErr != nil {
		locs = nil
	}
	h, err := c.fallback.Render(ctx, contextFor(country, region), locs, c.opts.OnLocationSelect)
	v.Fallback = h
	v.Markers = h.FeatureCollection()
	switch {
	case locErr != nil:
		v.Status, v.Message = StatusError, MsgNoPinsHere
	case err != nil:
		v.Status, v.Message = StatusEmpty, MsgNoPins
	default:
		v.Status, v.Message = StatusOK, MsgSelectPin
	}
}

// SelectRegion highlights key on the loaded map and lists the region's
// entries. It does not load the region's own map; callers that want a
// region map call Load on the instance that shows it. When a newer
// selection or load starts before this one commits, this one returns
// ErrSuperseded and the map keeps the newer selection.
func (c *Controller) SelectRegion(ctx context.Context, key string) (*View, error) {
	key = slug.NormalizeRegion(key)
	if key == "" {
		return nil, binder.ErrUnknownRegion
	}

	c.mu.Lock()
	b, m := c.bindings, c.m
	c.selToken++
	token := c.selToken
	c.mu.Unlock()
	if b == nil {
		return nil, ErrNotLoaded
	}

	listing := c.listing(ctx, c.opts.Country, key, "")

	c.mu.Lock()
	if token != c.selToken || c.m != m {
		c.mu.Unlock()
		c.log.Debug(ctx, "discarding stale selection", logging.String("region", key))
		return nil, fmt.Errorf("%w: selection of %q", ErrSuperseded, key)
	}
	if _, err := b.Select(key); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	v := *c.view
	v.Selected = key
	v.Regions = b.Regions()
	if markup, err := b.Markup(); err == nil {
		v.SVG = markup
	}
	v.Listing = listing
	c.view = &v
	out := v
	c.mu.Unlock()

	if c.opts.Binder.OnSelect != nil {
		c.opts.Binder.OnSelect(key)
	}
	return &out, nil
}

// HoverRegion and LeaveRegion forward pointer state to the bound map.
func (c *Controller) HoverRegion(key string) {
	c.mu.Lock()
	b := c.bindings
	c.mu.Unlock()
	if b != nil {
		b.Hover(slug.NormalizeRegion(key))
	}
}

func (c *Controller) LeaveRegion(key string) {
	c.mu.Lock()
	b := c.bindings
	c.mu.Unlock()
	if b != nil {
		b.Leave(slug.NormalizeRegion(key))
	}
}

// SelectLocation selects the marker for location on whichever layer is
// active and returns the entries at that location.
func (c *Controller) SelectLocation(ctx context.Context, location string) (*Listing, error) {
	location = slug.NormalizeLocation(location)

	c.mu.Lock()
	v := *c.view
	c.mu.Unlock()

	switch v.State {
	case model.StateLoaded:
		ov, ok := c.overlays.Current(c.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", overlay.ErrNoMarker, location)
		}
		if err := ov.SelectSlug(location); err != nil {
			return nil, err
		}
	case model.StateFallbackActive:
		if err := clickFallback(v.Fallback, location); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNotLoaded
	}

	l := c.listing(ctx, v.Country, v.Region, location)
	if l.Status == StatusError {
		return l, fmt.Errorf("%w: entries at %s", provider.ErrProviderFailure, location)
	}
	return l, nil
}

func clickFallback(h *fallback.Handle, location string) error {
	if h == nil {
		return ErrNotLoaded
	}
	for _, m := range h.Markers() {
		if m.Slug == location {
			return h.Click(m.ID)
		}
	}
	return fmt.Errorf("%w: %s", fallback.ErrUnknownMarker, location)
}

// listing fetches entries and titles the panel: "City (n)" for a
// location, "Service Providers (n)" otherwise.
func (c *Controller) listing(ctx context.Context, country, region, location string) *Listing {
	entries, err := c.data.EntriesAt(ctx, country, region, location)
	if err != nil {
		c.log.Warn(ctx, "entries unavailable", logging.String("region", region), logging.String("location", location), logging.Err(err))
		return &Listing{Title: listingTitle(location, nil), Status: StatusError, Message: MsgListingError}
	}
	if len(entries) == 0 {
		return &Listing{Title: listingTitle(location, nil), Status: StatusEmpty, Message: MsgNoProviders}
	}
	return &Listing{Title: listingTitle(location, entries), Entries: entries, Status: StatusOK}
}

func listingTitle(location string, entries []model.Provider) string {
	if len(entries) == 0 {
		if location == "" {
			return "Service Providers"
		}
		return slug.Titleize(location)
	}
	n := strconv.Itoa(len(entries))
	if location == "" {
		return "Service Providers (" + n + ")"
	}
	name := entries[0].CityName
	if name == "" {
		name = slug.Titleize(location)
	}
	return name + " (" + n + ")"
}

// Close tears down the marker layers. The asset cache lives as long as
// the controller.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token++
	c.overlays.Remove(c.ID)
	c.m, c.bindings = nil, nil
	c.view = &View{Instance: c.ID, State: model.StateUnloaded, Country: c.opts.Country}
}

// contextFor is the region context used for projection boxes and the
// fallback view.
func contextFor(country, region string) string {
	if region != "" {
		return region
	}
	return country
}

// fileAbbr is the lowercase abbreviation used in candidate file names:
// the postal code for states, the first two letters otherwise.
func fileAbbr(region string) string {
	if region == "" {
		return ""
	}
	if slug.IsState(region) {
		return slug.Abbreviation(region)
	}
	if len(region) > 2 {
		return region[:2]
	}
	return region
}
