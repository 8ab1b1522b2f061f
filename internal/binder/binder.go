// Package binder attaches region status to a loaded basemap: it tiers and
// colors every region element, tracks hover/selection state and adds
// abbreviation labels to regions large enough to carry one.
package binder

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang/geo/r2"

	"github.com/umarjalal00/location-providers/internal/logging"
	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/slug"
	"github.com/umarjalal00/location-providers/internal/svgmap"
)

// regionSelector matches every element that can identify a region.
const regionSelector = "[data-slug], [data-state], [id]"

// ErrUnknownRegion is returned when a selection normalizes to nothing.
var ErrUnknownRegion = errors.New("unknown region")

// Palette maps tiers and the selection highlight to colors.
type Palette struct {
	Active    string
	Upcoming  string
	Available string
	Selected  string
}

func (p Palette) fill(t model.Tier) string {
	switch t {
	case model.TierActive:
		return p.Active
	case model.TierUpcoming:
		return p.Upcoming
	default:
		return p.Available
	}
}

// Options configures Bind.
type Options struct {
	Palette Palette
	// MinLabelSize is the smallest box edge, in viewBox units, that gets a
	// synthesized label.
	MinLabelSize float64
	// OnSelect runs after a click has updated the selection.
	OnSelect func(key string)
	Log      logging.Logger
}

// Region is one canonical key bound on the map. Several elements may
// normalize to the same key; they share one Region.
type Region struct {
	Key     string             `json:"key"`
	Record  model.RegionRecord `json:"record"`
	Tier    model.Tier         `json:"tier"`
	State   model.VisualState  `json:"state"`
	Labeled bool               `json:"labeled"`

	elems *goquery.Selection
}

// Bindings is the result of binding one loaded map.
type Bindings struct {
	mu       sync.Mutex
	m        *svgmap.Map
	opts     Options
	log      logging.Logger
	regions  map[string]*Region
	selected string
}

// Classify applies the three-tier rule: any count makes a region active,
// otherwise an upcoming flag makes it upcoming, otherwise it is available.
func Classify(r model.RegionRecord) model.Tier {
	switch {
	case r.Count > 0:
		return model.TierActive
	case r.IsUpcoming:
		return model.TierUpcoming
	default:
		return model.TierAvailable
	}
}

// DisplayAbbreviation is the short label for a canonical key: the postal
// code for states, the first two letters otherwise.
func DisplayAbbreviation(key string) string {
	abbr := strings.ToUpper(slug.Abbreviation(key))
	abbr = strings.ReplaceAll(abbr, "-", "")
	if len(abbr) > 2 {
		abbr = abbr[:2]
	}
	return abbr
}

// BuildRecords merges provider counts with the upcoming list. Counts whose
// slugs normalize to the same key are summed.
func BuildRecords(counts []model.RegionCount, upcoming []string) map[string]model.RegionRecord {
	records := make(map[string]model.RegionRecord, len(counts)+len(upcoming))
	get := func(key string) model.RegionRecord {
		if r, ok := records[key]; ok {
			return r
		}
		return model.RegionRecord{CanonicalKey: key, DisplayAbbreviation: DisplayAbbreviation(key)}
	}
	for _, c := range counts {
		key := slug.NormalizeRegion(c.Slug)
		if key == "" {
			continue
		}
		r := get(key)
		if c.Count > 0 {
			r.Count += c.Count
		}
		records[key] = r
	}
	for _, u := range upcoming {
		key := slug.NormalizeRegion(u)
		if key == "" {
			continue
		}
		r := get(key)
		r.IsUpcoming = true
		records[key] = r
	}
	return records
}

// Bind styles every region element of m from records and synthesizes
// labels. Elements whose identifier normalizes to an empty key are left
// alone; keys missing from records bind as available.
func Bind(ctx context.Context, m *svgmap.Map, records map[string]model.RegionRecord, opts Options) *Bindings {
	b := &Bindings{
		m:       m,
		opts:    opts,
		log:     logging.OrNoop(opts.Log).With(logging.String("component", "binder")),
		regions: make(map[string]*Region),
	}

	var order []string
	m.Root().Find(regionSelector).Each(func(_ int, el *goquery.Selection) {
		if svgmap.IsLabel(el) || !m.Renderable(el) {
			return
		}
		key := slug.NormalizeRegion(identifier(el))
		if key == "" {
			return
		}

		r, ok := b.regions[key]
		if !ok {
			rec, found := records[key]
			if !found {
				rec = model.RegionRecord{CanonicalKey: key, DisplayAbbreviation: DisplayAbbreviation(key)}
			}
			r = &Region{Key: key, Record: rec, Tier: Classify(rec), State: model.Unselected, elems: el}
			b.regions[key] = r
			order = append(order, key)
		} else {
			r.elems = r.elems.AddSelection(el)
		}

		setStyle(el, "fill", opts.Palette.fill(r.Tier))
		setStyle(el, "cursor", "pointer")
		el.SetAttr("data-region-key", key)
		el.SetAttr("data-tier", string(r.Tier))
		el.AddClass(svgmap.RegionClass, svgmap.RegionClass+"-"+string(r.Tier))
	})

	for _, key := range order {
		b.label(ctx, b.regions[key])
	}

	b.log.Debug(ctx, "regions bound", logging.Int("regions", len(order)))
	return b
}

// identifier picks the first region-identifying attribute present.
func identifier(el *goquery.Selection) string {
	for _, name := range []string{"data-slug", "data-state", "id"} {
		if v := strings.TrimSpace(el.AttrOr(name, "")); v != "" {
			return v
		}
	}
	return ""
}

// label adds a centered abbreviation to a region whose box exceeds the
// minimum size. Unmeasurable regions are skipped.
func (b *Bindings) label(ctx context.Context, r *Region) {
	box := r2.EmptyRect()
	r.elems.Each(func(_ int, el *goquery.Selection) {
		if rect, err := b.m.Measure(el); err == nil {
			box = box.Union(rect)
		}
	})
	if box.IsEmpty() {
		b.log.Debug(ctx, "region not measurable, no label", logging.String("region", r.Key))
		return
	}
	size := box.Size()
	if size.X <= b.opts.MinLabelSize || size.Y <= b.opts.MinLabelSize {
		return
	}
	text := r.Record.DisplayAbbreviation
	if text == "" {
		text = DisplayAbbreviation(r.Key)
	}
	b.m.AppendLabel(box.Center(), text, FontSize(size.X), r.Key)
	r.Labeled = true
}

// FontSize clamps a third of the region width into [10, 20] px.
func FontSize(width float64) int {
	return int(math.Max(10, math.Min(20, math.Floor(width/3))))
}

// Click selects the region for key and notifies OnSelect with the
// canonical key. A key with no element on the map still notifies OnSelect
// so selection can be driven from outside the map.
func (b *Bindings) Click(key string) error {
	key, err := b.Select(key)
	if err != nil {
		return err
	}
	if b.opts.OnSelect != nil {
		b.opts.OnSelect(key)
	}
	return nil
}

// Select highlights the region for key and returns every other region to
// Unselected without notifying OnSelect. It returns the canonical key.
func (b *Bindings) Select(key string) (string, error) {
	key = slug.NormalizeRegion(key)
	if key == "" {
		return "", ErrUnknownRegion
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for k, r := range b.regions {
		if k == key {
			continue
		}
		r.State = model.Unselected
		r.elems.Each(func(_ int, el *goquery.Selection) { setStyle(el, "stroke", "none") })
	}
	if r, ok := b.regions[key]; ok {
		r.State = model.Selected
		r.elems.Each(func(_ int, el *goquery.Selection) { setStyle(el, "stroke", b.opts.Palette.Selected) })
	}
	b.selected = key
	return key, nil
}

// Markup serializes the bound map. Selection styling is written to the
// same document, so both hold the bindings lock.
func (b *Bindings) Markup() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m.Markup()
}

// Hover marks an unselected region as hovered.
func (b *Bindings) Hover(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.regions[slug.NormalizeRegion(key)]; ok && r.State != model.Selected {
		r.State = model.Hovered
	}
}

// Leave returns a hovered region to Unselected.
func (b *Bindings) Leave(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.regions[slug.NormalizeRegion(key)]; ok && r.State == model.Hovered {
		r.State = model.Unselected
	}
}

// Selected returns the selected key, or "".
func (b *Bindings) Selected() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// Region returns a copy of the bound region for key.
func (b *Bindings) Region(key string) (Region, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.regions[key]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Regions returns copies of all bound regions sorted by key.
func (b *Bindings) Regions() []Region {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Region, 0, len(b.regions))
	for _, r := range b.regions {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// setStyle sets one property inside the inline style attribute, which
// takes precedence over presentation attributes in the asset.
func setStyle(el *goquery.Selection, prop, value string) {
	var decls []string
	replaced := false
	for _, d := range strings.Split(el.AttrOr("style", ""), ";") {
		name, _, ok := strings.Cut(d, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(name) == prop {
			d = prop + ":" + value
			replaced = true
		}
		decls = append(decls, strings.TrimSpace(d))
	}
	if !replaced {
		decls = append(decls, prop+":"+value)
	}
	el.SetAttr("style", strings.Join(decls, ";"))
}
