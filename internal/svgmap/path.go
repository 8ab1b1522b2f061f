package svgmap

import (
	"fmt"
	"math"
	"strconv"

	"github.com/golang/geo/r2"
)

// scanner tokenizes SVG number lists and path data.
type scanner struct {
	s string
	i int
}

func (sc *scanner) skipSeparators() {
	for sc.i < len(sc.s) {
		switch sc.s[sc.i] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			sc.i++
		default:
			return
		}
	}
}

func (sc *scanner) done() bool {
	sc.skipSeparators()
	return sc.i >= len(sc.s)
}

// atNumber reports whether the next token starts a number.
func (sc *scanner) atNumber() bool {
	sc.skipSeparators()
	if sc.i >= len(sc.s) {
		return false
	}
	c := sc.s[sc.i]
	return c == '-' || c == '+' || c == '.' || isDigit(c)
}

func (sc *scanner) number() (float64, error) {
	sc.skipSeparators()
	start := sc.i
	if sc.i < len(sc.s) && (sc.s[sc.i] == '-' || sc.s[sc.i] == '+') {
		sc.i++
	}
	digits := 0
	for sc.i < len(sc.s) && isDigit(sc.s[sc.i]) {
		sc.i++
		digits++
	}
	if sc.i < len(sc.s) && sc.s[sc.i] == '.' {
		sc.i++
		for sc.i < len(sc.s) && isDigit(sc.s[sc.i]) {
			sc.i++
			digits++
		}
	}
	if digits == 0 {
		sc.i = start
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	if sc.i < len(sc.s) && (sc.s[sc.i] == 'e' || sc.s[sc.i] == 'E') {
		j := sc.i + 1
		if j < len(sc.s) && (sc.s[j] == '-' || sc.s[j] == '+') {
			j++
		}
		if j < len(sc.s) && isDigit(sc.s[j]) {
			for j < len(sc.s) && isDigit(sc.s[j]) {
				j++
			}
			sc.i = j
		}
	}
	return strconv.ParseFloat(sc.s[start:sc.i], 64)
}

// flag reads an arc flag, which may be packed without separators ("01").
func (sc *scanner) flag() (float64, error) {
	sc.skipSeparators()
	if sc.i < len(sc.s) {
		switch sc.s[sc.i] {
		case '0':
			sc.i++
			return 0, nil
		case '1':
			sc.i++
			return 1, nil
		}
	}
	return 0, fmt.Errorf("expected arc flag at offset %d", sc.i)
}

func (sc *scanner) numbers(n int) ([]float64, error) {
	out := make([]float64, n)
	for k := range out {
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func parseNumberList(s string) ([]float64, error) {
	sc := &scanner{s: s}
	var out []float64
	for !sc.done() {
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isCommand(c byte) bool {
	switch c | 0x20 {
	case 'm', 'l', 'h', 'v', 'c', 's', 'q', 't', 'a', 'z':
		return true
	}
	return false
}

// walkPath calls emit for every on-curve point and every Bézier control
// point of the path data d, and for points sampled along arcs. The hull of
// those points bounds the path.
func walkPath(d string, emit func(r2.Point)) error {
	sc := &scanner{s: d}
	var cur, start, lastCubic, lastQuad r2.Point
	var prev byte

	for !sc.done() {
		cmd := sc.s[sc.i]
		if !isCommand(cmd) {
			return fmt.Errorf("unexpected %q at offset %d", cmd, sc.i)
		}
		sc.i++
		rel := cmd >= 'a'
		upper := cmd &^ 0x20

		at := func(x, y float64) r2.Point {
			if rel {
				return r2.Point{X: cur.X + x, Y: cur.Y + y}
			}
			return r2.Point{X: x, Y: y}
		}

		if upper == 'Z' {
			cur = start
			prev = upper
			continue
		}

		for first := true; first || sc.atNumber(); first = false {
			switch upper {
			case 'M', 'L':
				v, err := sc.numbers(2)
				if err != nil {
					return err
				}
				cur = at(v[0], v[1])
				if upper == 'M' && first {
					start = cur
				}
				emit(cur)
			case 'H':
				v, err := sc.number()
				if err != nil {
					return err
				}
				if rel {
					v += cur.X
				}
				cur.X = v
				emit(cur)
			case 'V':
				v, err := sc.number()
				if err != nil {
					return err
				}
				if rel {
					v += cur.Y
				}
				cur.Y = v
				emit(cur)
			case 'C':
				v, err := sc.numbers(6)
				if err != nil {
					return err
				}
				c1, c2, end := at(v[0], v[1]), at(v[2], v[3]), at(v[4], v[5])
				emit(c1)
				emit(c2)
				emit(end)
				lastCubic, cur = c2, end
			case 'S':
				v, err := sc.numbers(4)
				if err != nil {
					return err
				}
				c1 := cur
				if prev == 'C' || prev == 'S' {
					c1 = r2.Point{X: 2*cur.X - lastCubic.X, Y: 2*cur.Y - lastCubic.Y}
				}
				c2, end := at(v[0], v[1]), at(v[2], v[3])
				emit(c1)
				emit(c2)
				emit(end)
				lastCubic, cur = c2, end
			case 'Q':
				v, err := sc.numbers(4)
				if err != nil {
					return err
				}
				c, end := at(v[0], v[1]), at(v[2], v[3])
				emit(c)
				emit(end)
				lastQuad, cur = c, end
			case 'T':
				v, err := sc.numbers(2)
				if err != nil {
					return err
				}
				c := cur
				if prev == 'Q' || prev == 'T' {
					c = r2.Point{X: 2*cur.X - lastQuad.X, Y: 2*cur.Y - lastQuad.Y}
				}
				end := at(v[0], v[1])
				emit(c)
				emit(end)
				lastQuad, cur = c, end
			case 'A':
				radii, err := sc.numbers(3)
				if err != nil {
					return err
				}
				large, err := sc.flag()
				if err != nil {
					return err
				}
				sweep, err := sc.flag()
				if err != nil {
					return err
				}
				v, err := sc.numbers(2)
				if err != nil {
					return err
				}
				end := at(v[0], v[1])
				arc(cur, radii[0], radii[1], radii[2], large == 1, sweep == 1, end, emit)
				cur = end
			}
			// A moveto followed by extra pairs continues as lineto.
			if upper == 'M' {
				prev = 'L'
			} else {
				prev = upper
			}
		}
	}
	return nil
}

// arcSamples is the number of points emitted per elliptical arc.
const arcSamples = 32

// arc emits points along the elliptical arc from p0 to p1 given in SVG
// endpoint form, ending exactly at p1. Radii too small to span the
// endpoints are scaled up; a zero radius draws a straight line.
func arc(p0 r2.Point, rx, ry, rotation float64, large, sweep bool, p1 r2.Point, emit func(r2.Point)) {
	if p0 == p1 {
		return
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		emit(p1)
		return
	}

	phi := rotation * math.Pi / 180
	cos, sin := math.Cos(phi), math.Sin(phi)
	dx, dy := (p0.X-p1.X)/2, (p0.Y-p1.Y)/2
	x1 := cos*dx + sin*dy
	y1 := -sin*dx + cos*dy

	if l := x1*x1/(rx*rx) + y1*y1/(ry*ry); l > 1 {
		rx, ry = rx*math.Sqrt(l), ry*math.Sqrt(l)
	}

	num := rx*rx*ry*ry - rx*rx*y1*y1 - ry*ry*x1*x1
	den := rx*rx*y1*y1 + ry*ry*x1*x1
	coef := 0.0
	if num > 0 && den > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cx1, cy1 := coef*rx*y1/ry, -coef*ry*x1/rx
	cx := cos*cx1 - sin*cy1 + (p0.X+p1.X)/2
	cy := sin*cx1 + cos*cy1 + (p0.Y+p1.Y)/2

	start := math.Atan2((y1-cy1)/ry, (x1-cx1)/rx)
	delta := math.Atan2((-y1-cy1)/ry, (-x1-cx1)/rx) - start
	switch {
	case sweep && delta < 0:
		delta += 2 * math.Pi
	case !sweep && delta > 0:
		delta -= 2 * math.Pi
	}

	for i := 1; i < arcSamples; i++ {
		t := start + delta*float64(i)/arcSamples
		ex, ey := rx*math.Cos(t), ry*math.Sin(t)
		emit(r2.Point{X: cos*ex - sin*ey + cx, Y: sin*ex + cos*ey + cy})
	}
	emit(p1)
}
