// Package svgmap holds a parsed basemap document and measures the
// geometry of its elements in viewBox space.
package svgmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang/geo/r2"
	"golang.org/x/net/html"

	"github.com/umarjalal00/location-providers/internal/model"
)

// Default viewBox extent used when the markup carries neither a viewBox
// nor usable width/height attributes.
const (
	DefaultWidth  = 810
	DefaultHeight = 600
)

// LabelAttr marks text elements synthesized by the binder.
const LabelAttr = "data-region-label"

var (
	// ErrNotSVG is returned when the markup has no <svg> element.
	ErrNotSVG = errors.New("markup contains no svg element")
	// ErrNoMatchableGeometry is returned when an element exists but its
	// extent cannot be measured.
	ErrNoMatchableGeometry = errors.New("no matchable geometry")
)

// nonRendering lists elements whose subtrees never paint directly.
var nonRendering = map[string]bool{
	"defs": true, "clippath": true, "mask": true, "pattern": true,
	"lineargradient": true, "radialgradient": true, "symbol": true,
	"marker": true, "filter": true, "style": true, "title": true,
	"desc": true, "metadata": true, "script": true, "stop": true,
}

// Map is one loaded basemap document.
type Map struct {
	doc  *goquery.Document
	root *goquery.Selection
}

// Parse reads SVG markup. The document is parsed the way a browser parses
// inline SVG, so attribute names keep their SVG casing (viewBox).
func Parse(markup string) (*Map, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing svg: %w", err)
	}
	root := doc.Find("svg").First()
	if root.Length() == 0 {
		return nil, ErrNotSVG
	}
	return &Map{doc: doc, root: root}, nil
}

// Root returns the outermost <svg> element.
func (m *Map) Root() *goquery.Selection {
	return m.root
}

// Normalize prepares the document for responsive rendering: a missing
// viewBox is derived from width/height (or the defaults), then the fixed
// dimensions are dropped and the aspect ratio is preserved.
func (m *Map) Normalize() {
	if _, ok := m.root.Attr("viewBox"); !ok {
		w, ok := parseLength(m.root.AttrOr("width", ""))
		if !ok || w <= 0 {
			w = DefaultWidth
		}
		h, ok := parseLength(m.root.AttrOr("height", ""))
		if !ok || h <= 0 {
			h = DefaultHeight
		}
		m.root.SetAttr("viewBox", "0 0 "+formatFloat(w)+" "+formatFloat(h))
	}
	m.root.RemoveAttr("width")
	m.root.RemoveAttr("height")
	m.root.SetAttr("preserveAspectRatio", "xMidYMid meet")
}

// ViewBox returns the abstract coordinate space of the map. A missing or
// malformed viewBox falls back to the default extent.
func (m *Map) ViewBox() r2.Rect {
	if vb, ok := parseViewBox(m.root.AttrOr("viewBox", "")); ok {
		return vb
	}
	return r2.RectFromPoints(r2.Point{}, r2.Point{X: DefaultWidth, Y: DefaultHeight})
}

// ToViewport scales a viewBox point into rendered pixel space.
func (m *Map) ToViewport(p r2.Point, vp model.Viewport) r2.Point {
	vb := m.ViewBox()
	size := vb.Size()
	return r2.Point{
		X: (p.X - vb.X.Lo) / size.X * vp.Width,
		Y: (p.Y - vb.Y.Lo) / size.Y * vp.Height,
	}
}

// Renderable reports whether sel sits outside every non-rendering
// container such as <defs>.
func (m *Map) Renderable(sel *goquery.Selection) bool {
	if sel.Length() == 0 {
		return false
	}
	rootNode := m.root.Get(0)
	for n := sel.Get(0); n != nil && n != rootNode; n = n.Parent {
		if n.Type == html.ElementNode && nonRendering[strings.ToLower(n.Data)] {
			return false
		}
	}
	return true
}

// IsLabel reports whether sel is a synthesized region label.
func IsLabel(sel *goquery.Selection) bool {
	_, ok := sel.Attr(LabelAttr)
	return ok
}

// RegionClass is the class the binder adds to every bound region element,
// alongside RegionClass + "-" + tier.
const RegionClass = "region"

// IsRegionClass reports whether a class token was added by region binding
// rather than carried by the asset.
func IsRegionClass(tok string) bool {
	switch tok {
	case RegionClass, RegionClass + "-active", RegionClass + "-upcoming", RegionClass + "-available":
		return true
	}
	return false
}

// AppendLabel adds a centered text element to the root.
func (m *Map) AppendLabel(center r2.Point, text string, fontSize int, key string) {
	n := &html.Node{
		Type:      html.ElementNode,
		Data:      "text",
		Namespace: "svg",
		Attr: []html.Attribute{
			{Key: "x", Val: formatFloat(center.X)},
			{Key: "y", Val: formatFloat(center.Y)},
			{Key: "text-anchor", Val: "middle"},
			{Key: "dominant-baseline", Val: "central"},
			{Key: "class", Val: "svg-state-label"},
			{Key: "font-size", Val: strconv.Itoa(fontSize) + "px"},
			{Key: "pointer-events", Val: "none"},
			{Key: LabelAttr, Val: key},
		},
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	m.root.AppendNodes(n)
}

// Markup renders the (possibly modified) document back to SVG text.
func (m *Map) Markup() (string, error) {
	return goquery.OuterHtml(m.root)
}

func parseViewBox(s string) (r2.Rect, bool) {
	nums, err := parseNumberList(s)
	if err != nil || len(nums) != 4 || nums[2] <= 0 || nums[3] <= 0 {
		return r2.Rect{}, false
	}
	return r2.RectFromPoints(
		r2.Point{X: nums[0], Y: nums[1]},
		r2.Point{X: nums[0] + nums[2], Y: nums[1] + nums[3]},
	), true
}

// parseLength reads a number with an optional absolute unit suffix.
func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	s = strings.TrimSuffix(s, "pt")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
