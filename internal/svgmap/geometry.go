package svgmap

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang/geo/r2"
	"golang.org/x/net/html"
)

// affine is an SVG transform matrix [a b c d e f]:
// x' = a*x + c*y + e, y' = b*x + d*y + f.
type affine [6]float64

var identity = affine{1, 0, 0, 1, 0, 0}

// then returns m·n, which applies n first.
func (m affine) then(n affine) affine {
	return affine{
		m[0]*n[0] + m[2]*n[1],
		m[1]*n[0] + m[3]*n[1],
		m[0]*n[2] + m[2]*n[3],
		m[1]*n[2] + m[3]*n[3],
		m[0]*n[4] + m[2]*n[5] + m[4],
		m[1]*n[4] + m[3]*n[5] + m[5],
	}
}

func (m affine) apply(p r2.Point) r2.Point {
	return r2.Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

var transformRe = regexp.MustCompile(`([a-zA-Z]+)\s*\(([^)]*)\)`)

// parseTransform reads an SVG transform list.
func parseTransform(s string) (affine, error) {
	m := identity
	for _, match := range transformRe.FindAllStringSubmatch(s, -1) {
		args, err := parseNumberList(match[2])
		if err != nil {
			return identity, fmt.Errorf("transform %s: %w", match[1], err)
		}
		var t affine
		switch {
		case match[1] == "matrix" && len(args) == 6:
			copy(t[:], args)
		case match[1] == "translate" && len(args) == 1:
			t = affine{1, 0, 0, 1, args[0], 0}
		case match[1] == "translate" && len(args) == 2:
			t = affine{1, 0, 0, 1, args[0], args[1]}
		case match[1] == "scale" && len(args) == 1:
			t = affine{args[0], 0, 0, args[0], 0, 0}
		case match[1] == "scale" && len(args) == 2:
			t = affine{args[0], 0, 0, args[1], 0, 0}
		case match[1] == "rotate" && (len(args) == 1 || len(args) == 3):
			rad := args[0] * math.Pi / 180
			sin, cos := math.Sincos(rad)
			t = affine{cos, sin, -sin, cos, 0, 0}
			if len(args) == 3 {
				cx, cy := args[1], args[2]
				t = affine{1, 0, 0, 1, cx, cy}.then(t).then(affine{1, 0, 0, 1, -cx, -cy})
			}
		case match[1] == "skewX" && len(args) == 1:
			t = affine{1, 0, math.Tan(args[0] * math.Pi / 180), 1, 0, 0}
		case match[1] == "skewY" && len(args) == 1:
			t = affine{1, math.Tan(args[0] * math.Pi / 180), 0, 1, 0, 0}
		default:
			return identity, fmt.Errorf("unsupported transform %s(%s)", match[1], match[2])
		}
		m = m.then(t)
	}
	return m, nil
}

// Measure returns the bounding box of sel in the root viewBox space,
// applying the transforms of the element and its ancestors. Elements
// without paintable geometry yield ErrNoMatchableGeometry.
func (m *Map) Measure(sel *goquery.Selection) (r2.Rect, error) {
	if sel.Length() == 0 {
		return r2.EmptyRect(), ErrNoMatchableGeometry
	}
	n := sel.Get(0)

	var chain []*html.Node
	rootNode := m.root.Get(0)
	for p := n.Parent; p != nil && p != rootNode; p = p.Parent {
		chain = append(chain, p)
	}
	ctm := identity
	for i := len(chain) - 1; i >= 0; i-- {
		t, err := nodeTransform(chain[i])
		if err != nil {
			return r2.EmptyRect(), fmt.Errorf("%w: %v", ErrNoMatchableGeometry, err)
		}
		ctm = ctm.then(t)
	}

	box, err := nodeBox(n, ctm)
	if err != nil {
		return r2.EmptyRect(), fmt.Errorf("%w: %v", ErrNoMatchableGeometry, err)
	}
	if box.IsEmpty() || !finite(box) {
		return r2.EmptyRect(), ErrNoMatchableGeometry
	}
	return box, nil
}

func nodeTransform(n *html.Node) (affine, error) {
	s := attr(n, "transform")
	if s == "" {
		return identity, nil
	}
	return parseTransform(s)
}

// nodeBox measures n with parent transform ctm. An element with nothing
// paintable returns an empty rect and no error.
func nodeBox(n *html.Node, ctm affine) (r2.Rect, error) {
	name := strings.ToLower(n.Data)
	if nonRendering[name] {
		return r2.EmptyRect(), nil
	}
	t, err := nodeTransform(n)
	if err != nil {
		return r2.EmptyRect(), err
	}
	ctm = ctm.then(t)

	box := r2.EmptyRect()
	add := func(p r2.Point) { box = box.AddPoint(ctm.apply(p)) }

	switch name {
	case "g", "a", "svg", "switch":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if _, ok := lookup(c, LabelAttr); ok {
				continue
			}
			child, err := nodeBox(c, ctm)
			if err != nil {
				return r2.EmptyRect(), err
			}
			box = box.Union(child)
		}
	case "rect", "image":
		x, y := num(n, "x"), num(n, "y")
		w, h := num(n, "width"), num(n, "height")
		if w < 0 || h < 0 {
			return r2.EmptyRect(), fmt.Errorf("negative %s size", name)
		}
		add(r2.Point{X: x, Y: y})
		add(r2.Point{X: x + w, Y: y})
		add(r2.Point{X: x, Y: y + h})
		add(r2.Point{X: x + w, Y: y + h})
	case "circle", "ellipse":
		cx, cy := num(n, "cx"), num(n, "cy")
		rx, ry := num(n, "rx"), num(n, "ry")
		if name == "circle" {
			rx, ry = num(n, "r"), num(n, "r")
		}
		if rx < 0 || ry < 0 {
			return r2.EmptyRect(), fmt.Errorf("negative %s radius", name)
		}
		add(r2.Point{X: cx - rx, Y: cy - ry})
		add(r2.Point{X: cx + rx, Y: cy - ry})
		add(r2.Point{X: cx - rx, Y: cy + ry})
		add(r2.Point{X: cx + rx, Y: cy + ry})
	case "line":
		add(r2.Point{X: num(n, "x1"), Y: num(n, "y1")})
		add(r2.Point{X: num(n, "x2"), Y: num(n, "y2")})
	case "polyline", "polygon":
		pts, err := parseNumberList(attr(n, "points"))
		if err != nil {
			return r2.EmptyRect(), fmt.Errorf("points: %w", err)
		}
		for i := 0; i+1 < len(pts); i += 2 {
			add(r2.Point{X: pts[i], Y: pts[i+1]})
		}
	case "path":
		if err := walkPath(attr(n, "d"), add); err != nil {
			return r2.EmptyRect(), fmt.Errorf("path data: %w", err)
		}
	}
	return box, nil
}

func finite(r r2.Rect) bool {
	for _, v := range []float64{r.X.Lo, r.X.Hi, r.Y.Lo, r.Y.Hi} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func lookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key && a.Namespace == "" {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookup(n, key)
	return v
}

func num(n *html.Node, key string) float64 {
	v, _ := parseLength(attr(n, key))
	return v
}
