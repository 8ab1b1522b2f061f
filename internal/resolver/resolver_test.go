package resolver

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/svgmap"
)

const florida = `<svg viewBox="0 0 400 300">
  <circle id="Orlando" cx="100" cy="150" r="4"/>
  <rect id="los_angeles" x="10" y="10" width="20" height="20"/>
  <g class="pins city-houston"><circle cx="300" cy="30" r="2"/></g>
  <path data-city="tampa" d=""/>
  <text data-region-label="tx" data-name="dallas" x="5" y="5">TX</text>
  <defs><circle id="naples" cx="1" cy="1" r="1"/></defs>
</svg>`

func loc(slug, name string, coords ...float64) model.LocationRecord {
	l := model.LocationRecord{RawSlug: slug, Name: name}
	if len(coords) == 2 {
		l.Latitude, l.Longitude = model.Float(coords[0]), model.Float(coords[1])
	}
	return l
}

func near(a, b float64) bool { return math.Abs(a-b) < 0.5 }

func parse(t *testing.T) *svgmap.Map {
	t.Helper()
	m, err := svgmap.Parse(florida)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

var vp = model.Viewport{Width: 800, Height: 600}

func TestKeys(t *testing.T) {
	got := Keys(DefaultStrategies, "los-angeles", "la")
	want := []string{
		"los-angeles", "losangeles", "los_angeles", "city-los-angeles", "los-angeles-city", "los",
		"la", "city-la", "la-city",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keys = %v\nwant %v", got, want)
	}
	if got := Keys(DefaultStrategies, "miami", ""); len(got) != 3 {
		t.Errorf("expected 3 distinct keys without a name, got %v", got)
	}
}

func TestProjectMiamiIntoFlorida(t *testing.T) {
	r := New(nil, nil)
	pins := r.Resolve(context.Background(), nil, []model.LocationRecord{loc("miami", "", 25.7617, -80.1918)}, "florida", vp)
	if len(pins) != 1 {
		t.Fatalf("expected one pin, got %d", len(pins))
	}
	p := pins[0]
	wantX := 800 * ((-80.1918 - -87.5) / (-80 - -87.5))
	wantY := 600 * ((31 - 25.7617) / (31 - 24.5))
	if !near(p.X, wantX) || !near(p.Y, wantY) {
		t.Errorf("got (%.1f, %.1f), want (%.1f, %.1f)", p.X, p.Y, wantX, wantY)
	}
	if !near(p.Y, 483) {
		t.Errorf("y = %.1f, expected about 483", p.Y)
	}
	if p.Method != model.PinProjected {
		t.Errorf("expected projected pin, got %s", p.Method)
	}
}

func TestProjectClampsAndUsesDefaultBox(t *testing.T) {
	r := New(nil, nil)

	p, ok := r.Project(loc("key-west", "", 10, -100), "florida", vp)
	if !ok || p.Y != 600 || p.X != 0 {
		t.Errorf("expected clamp to (0,600), got %v ok=%v", p, ok)
	}

	if r.Box("nowhere") != ContinentalUS {
		t.Error("unknown context should use the continental box")
	}
	if r.Box("FL") != DefaultBoxes["florida"] {
		t.Error("context should be normalized before lookup")
	}

	if _, ok := r.Project(loc("bad", "", 95, 10), "florida", vp); ok {
		t.Error("invalid latitude should not project")
	}

	r.Boxes = map[string]model.RegionBoundingBox{"flat": {LatMin: 1, LatMax: 1, LngMin: 2, LngMax: 2}}
	if _, ok := r.Project(loc("x", "", 1, 2), "flat", vp); ok {
		t.Error("degenerate box should not project")
	}
}

func TestStructuralMatchScalesIntoViewport(t *testing.T) {
	r := New(nil, nil)
	pins := r.Resolve(context.Background(), parse(t), []model.LocationRecord{loc("orlando", "")}, "florida", vp)
	if len(pins) != 1 {
		t.Fatalf("expected one pin, got %d", len(pins))
	}
	if pins[0].X != 200 || pins[0].Y != 300 || pins[0].Method != model.PinStructural {
		t.Errorf("unexpected pin %+v", pins[0])
	}
}

func TestStructuralVariants(t *testing.T) {
	r := New(nil, nil)
	m := parse(t)

	tests := []struct {
		name string
		rec  model.LocationRecord
		x, y float64
	}{
		{"underscored id via name", loc("", "Los Angeles"), 40, 40},
		{"class token", loc("houston", ""), 600, 60},
	}
	for _, tt := range tests {
		pins := r.Resolve(context.Background(), m, []model.LocationRecord{tt.rec}, "", vp)
		if len(pins) != 1 {
			t.Errorf("%s: expected one pin, got %d", tt.name, len(pins))
			continue
		}
		if pins[0].X != tt.x || pins[0].Y != tt.y {
			t.Errorf("%s: got (%v,%v), want (%v,%v)", tt.name, pins[0].X, pins[0].Y, tt.x, tt.y)
		}
	}
}

func TestClassProbeSkipsBoundClassesAndShortKeys(t *testing.T) {
	m, err := svgmap.Parse(`<svg viewBox="0 0 400 300">
  <rect id="TX" class="state region region-upcoming" x="0" y="0" width="200" height="100"/>
  <circle class="pin city-st" cx="50" cy="50" r="2"/>
</svg>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	for _, key := range []string{"in", "region", "active"} {
		for i, sel := range Probe(m, key) {
			if sel.Length() != 0 {
				t.Errorf("key %q matched %d elements in probe %d", key, sel.Length(), i)
			}
		}
	}

	probes := Probe(m, "st")
	class := probes[len(probes)-1]
	if class.Length() != 0 {
		t.Errorf("short key should not match by substring, got %d elements", class.Length())
	}
	class = Probe(m, "city-st")[len(probes)-1]
	if class.Length() != 1 {
		t.Errorf("exact class token should match, got %d elements", class.Length())
	}
}

func TestLabelsDefsAndUnmeasurableNeverMatch(t *testing.T) {
	r := New(nil, nil)
	m := parse(t)

	pins := r.Resolve(context.Background(), m, []model.LocationRecord{
		loc("dallas", ""),
		loc("naples", ""),
		loc("tampa", "", 27.9506, -82.4572),
	}, "florida", vp)

	if len(pins) != 1 {
		t.Fatalf("expected only tampa to resolve, got %+v", pins)
	}
	if pins[0].Slug != "tampa" || pins[0].Method != model.PinProjected {
		t.Errorf("tampa should fall through to projection, got %+v", pins[0])
	}
}

func TestBatchDropsUnresolvableAndKeepsOrder(t *testing.T) {
	r := New(nil, nil)
	batch := []model.LocationRecord{
		loc("orlando", ""),
		loc("ghost-town", ""),
		loc("miami", "Miami", 25.7617, -80.1918),
		loc("", "  "),
		loc("miami", "Miami Beach", 25.79, -80.13),
	}

	pins := r.Resolve(context.Background(), parse(t), batch, "florida", vp)
	if len(pins) != 3 {
		t.Fatalf("expected 3 pins, got %d", len(pins))
	}
	got := []string{pins[0].Location.Name, pins[1].Location.Name, pins[2].Location.Name}
	if !reflect.DeepEqual(got, []string{"", "Miami", "Miami Beach"}) {
		t.Errorf("order not preserved: %v", got)
	}
	for _, p := range pins {
		if p.X < 0 || p.X > vp.Width || p.Y < 0 || p.Y > vp.Height {
			t.Errorf("pin outside viewport: %+v", p)
		}
	}
}

func TestInvalidViewportUsesViewBox(t *testing.T) {
	r := New(nil, nil)
	pins := r.Resolve(context.Background(), parse(t), []model.LocationRecord{loc("orlando", "")}, "", model.Viewport{})
	if len(pins) != 1 || pins[0].X != 100 || pins[0].Y != 150 {
		t.Errorf("expected viewBox-space pin, got %+v", pins)
	}
}
