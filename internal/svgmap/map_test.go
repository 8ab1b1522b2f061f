package svgmap

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r2"

	"github.com/umarjalal00/location-providers/internal/model"
)

const sample = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="300">
  <defs><clipPath id="clip"><rect width="10" height="10"/></clipPath></defs>
  <rect id="box" x="10" y="20" width="100" height="50"/>
  <g id="group" transform="translate(100,100)">
    <circle id="dot" cx="10" cy="10" r="5"/>
    <path id="tri" d="M0 0 L20 0 L10 30 Z"/>
  </g>
  <g id="scaled" transform="scale(2)"><rect id="inner" x="5" y="5" width="10" height="10"/></g>
  <path id="empty" d=""/>
  <text id="caption">hi</text>
</svg>`

func mustParse(t *testing.T, markup string) *Map {
	t.Helper()
	m, err := Parse(markup)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestParseRejectsNonSVG(t *testing.T) {
	if _, err := Parse("<div>nope</div>"); !errors.Is(err, ErrNotSVG) {
		t.Errorf("expected ErrNotSVG, got %v", err)
	}
}

func TestNormalizeDerivesViewBox(t *testing.T) {
	m := mustParse(t, sample)
	m.Normalize()

	root := m.Root()
	if got := root.AttrOr("viewBox", ""); got != "0 0 400 300" {
		t.Errorf("expected derived viewBox, got %q", got)
	}
	if _, ok := root.Attr("width"); ok {
		t.Error("width should be removed")
	}
	if got := root.AttrOr("preserveAspectRatio", ""); got != "xMidYMid meet" {
		t.Errorf("unexpected preserveAspectRatio %q", got)
	}
}

func TestNormalizeDefaultsAndKeepsViewBox(t *testing.T) {
	m := mustParse(t, `<svg><rect/></svg>`)
	m.Normalize()
	vb := m.ViewBox()
	if vb.Size() != (r2.Point{X: DefaultWidth, Y: DefaultHeight}) {
		t.Errorf("expected default viewBox, got %v", vb)
	}

	m = mustParse(t, `<svg viewBox="10 20 100 50" width="1000"><rect/></svg>`)
	m.Normalize()
	if got := m.Root().AttrOr("viewBox", ""); got != "10 20 100 50" {
		t.Errorf("existing viewBox should be kept, got %q", got)
	}
}

func TestToViewport(t *testing.T) {
	m := mustParse(t, `<svg viewBox="100 0 200 100"></svg>`)
	p := m.ToViewport(r2.Point{X: 200, Y: 50}, model.Viewport{Width: 800, Height: 400})
	if !approx(p.X, 400) || !approx(p.Y, 200) {
		t.Errorf("expected (400,200), got %v", p)
	}
}

func TestMeasure(t *testing.T) {
	m := mustParse(t, sample)

	tests := []struct {
		id   string
		want r2.Rect
	}{
		{"box", r2.RectFromPoints(r2.Point{X: 10, Y: 20}, r2.Point{X: 110, Y: 70})},
		{"dot", r2.RectFromPoints(r2.Point{X: 105, Y: 105}, r2.Point{X: 115, Y: 115})},
		{"tri", r2.RectFromPoints(r2.Point{X: 100, Y: 100}, r2.Point{X: 120, Y: 130})},
		{"group", r2.RectFromPoints(r2.Point{X: 100, Y: 100}, r2.Point{X: 120, Y: 130})},
		{"inner", r2.RectFromPoints(r2.Point{X: 10, Y: 10}, r2.Point{X: 30, Y: 30})},
	}
	for _, tt := range tests {
		got, err := m.Measure(m.Root().Find("#" + tt.id))
		if err != nil {
			t.Errorf("%s: %v", tt.id, err)
			continue
		}
		if !got.ApproxEqual(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestMeasureUnmeasurable(t *testing.T) {
	m := mustParse(t, sample)
	for _, id := range []string{"empty", "caption", "missing"} {
		if _, err := m.Measure(m.Root().Find("#" + id)); !errors.Is(err, ErrNoMatchableGeometry) {
			t.Errorf("%s: expected ErrNoMatchableGeometry, got %v", id, err)
		}
	}
}

func TestRenderable(t *testing.T) {
	m := mustParse(t, sample)
	if m.Renderable(m.Root().Find("#clip")) {
		t.Error("clipPath inside defs should not be renderable")
	}
	if !m.Renderable(m.Root().Find("#dot")) {
		t.Error("circle in group should be renderable")
	}
}

func TestAppendLabel(t *testing.T) {
	m := mustParse(t, sample)
	m.AppendLabel(r2.Point{X: 60, Y: 45}, "TX", 14, "texas")

	label := m.Root().Find("[" + LabelAttr + "]")
	if label.Length() != 1 {
		t.Fatalf("expected one label, got %d", label.Length())
	}
	if !IsLabel(label) || label.Text() != "TX" || label.AttrOr("font-size", "") != "14px" {
		t.Errorf("unexpected label %v", label.Nodes[0].Attr)
	}
	// Labels never widen a group measurement.
	group, _ := m.Measure(m.Root().Find("#group"))
	if group.X.Hi != 120 {
		t.Errorf("group box changed: %v", group)
	}

	out, err := m.Markup()
	if err != nil {
		t.Fatalf("Markup: %v", err)
	}
	if !strings.Contains(out, ">TX</text>") {
		t.Errorf("label missing from markup: %s", out)
	}
}

func TestWalkPath(t *testing.T) {
	tests := []struct {
		d    string
		want r2.Rect
	}{
		{"m10 10 h20 v20 h-20 z", r2.RectFromPoints(r2.Point{X: 10, Y: 10}, r2.Point{X: 30, Y: 30})},
		{"M0,0 10,10 20,-5", r2.RectFromPoints(r2.Point{X: 0, Y: -5}, r2.Point{X: 20, Y: 10})},
		{"M0 0C0 -10 10 -10 10 0S20 10 20 0", r2.RectFromPoints(r2.Point{X: 0, Y: -10}, r2.Point{X: 20, Y: 10})},
		{"M0 0a5 5 0 01 10 0", r2.RectFromPoints(r2.Point{X: 0, Y: -5}, r2.Point{X: 10, Y: 0})},
		{"M0 0A5 5 0 1 0 10 0", r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 5})},
		{"M0 0a1 1 0 0 1 10 0", r2.RectFromPoints(r2.Point{X: 0, Y: -5}, r2.Point{X: 10, Y: 0})},
		{"M0 0a0 5 0 0 1 10 0", r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 0})},
		{"M1.5.5l1e1-2", r2.RectFromPoints(r2.Point{X: 1.5, Y: -1.5}, r2.Point{X: 11.5, Y: 0.5})},
	}
	for _, tt := range tests {
		box := r2.EmptyRect()
		if err := walkPath(tt.d, func(p r2.Point) { box = box.AddPoint(p) }); err != nil {
			t.Errorf("%q: %v", tt.d, err)
			continue
		}
		if !box.ApproxEqual(tt.want) {
			t.Errorf("%q: got %v, want %v", tt.d, box, tt.want)
		}
	}

	if err := walkPath("M0 0 L", func(r2.Point) {}); err == nil {
		t.Error("expected error for truncated path")
	}
}

func TestParseTransformRotate(t *testing.T) {
	m, err := parseTransform("rotate(90 10 10)")
	if err != nil {
		t.Fatal(err)
	}
	p := m.apply(r2.Point{X: 20, Y: 10})
	if !approx(p.X, 10) || !approx(p.Y, 20) {
		t.Errorf("expected (10,20), got %v", p)
	}

	if _, err := parseTransform("perspective(3)"); err == nil {
		t.Error("expected error for unsupported transform")
	}
}
