// Package shape defines the drawable shape tree the builder produces and
// the queries hosts run against it: lookup by CID, hit-testing, bounds,
// a deterministic debug dump and a fingerprint.
package shape

import (
	"image/color"
	"math"

	"gioui.org/f32"

	"git.sr.ht/~whereswaldon/chartview/geom"
)

// Kind is the kind of primitive a shape draws.
type Kind uint8

const (
	Group Kind = iota
	Rect
	Polygon
	Polyline
	Line
	Sector
	Symbol
	Text
)

var kindNames = [...]string{"group", "rect", "polygon", "polyline", "line", "sector", "symbol", "text"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Effect describes rendering that needs off-screen composition.
type Effect struct {
	Shadow       bool
	Transparency uint8
	// Composited is set once the builder rendered the effect through an
	// off-screen surface.
	Composited bool
}

// Active reports whether e needs off-screen composition.
func (e Effect) Active() bool { return e.Shadow || e.Transparency > 0 }

// Shape is one node of the shape tree. Which fields are meaningful
// depends on Kind.
type Shape struct {
	CID    CID
	Kind   Kind
	Bounds geom.Rect
	// Points holds the vertices of polygons, polylines and lines.
	Points []f32.Point
	// Text and FontSize describe text shapes. Rotation is in degrees,
	// clockwise.
	Text     string
	FontSize float32
	Rotation float32

	Fill, Stroke color.NRGBA
	StrokeWidth  float32

	// Sector geometry. Angles are in degrees, clockwise from three
	// o'clock.
	Center              f32.Point
	Radius, InnerRadius float32
	StartAngle, Sweep   float32

	Effect   Effect
	Children []*Shape
}

// NewGroup returns a group shape whose bounds cover its children.
func NewGroup(cid CID, children ...*Shape) *Shape {
	g := &Shape{CID: cid, Kind: Group, Children: children}
	for _, c := range children {
		g.Bounds = g.Bounds.Union(c.Bounds)
	}
	return g
}

// Add appends children to a group and grows its bounds.
func (s *Shape) Add(children ...*Shape) {
	for _, c := range children {
		if c == nil {
			continue
		}
		s.Children = append(s.Children, c)
		s.Bounds = s.Bounds.Union(c.Bounds)
	}
}

// Finite reports whether every coordinate of s is a finite number.
func (s *Shape) Finite() bool {
	if !s.Bounds.Finite() || !geom.Polygon(s.Points).Finite() {
		return false
	}
	for _, v := range []float32{s.Center.X, s.Center.Y, s.Radius, s.InnerRadius, s.StartAngle, s.Sweep} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// Contains reports whether p hits s itself, ignoring its children.
func (s *Shape) Contains(p f32.Point) bool {
	switch s.Kind {
	case Group:
		return false
	case Sector:
		d := p.Sub(s.Center)
		r := float32(math.Hypot(float64(d.X), float64(d.Y)))
		if r > s.Radius || r < s.InnerRadius {
			return false
		}
		a := float32(math.Atan2(float64(d.Y), float64(d.X)) * 180 / math.Pi)
		rel := float32(math.Mod(float64(a-s.StartAngle), 360))
		if rel < 0 {
			rel += 360
		}
		return rel < s.Sweep
	case Polygon:
		return s.Bounds.Contains(p) && insidePolygon(s.Points, p)
	case Line, Polyline:
		pad := max(s.StrokeWidth/2, 2)
		return s.Bounds.Inset(geom.Insets{Top: -pad, Bottom: -pad, Left: -pad, Right: -pad}).Contains(p)
	default:
		return s.Bounds.Contains(p)
	}
}

// insidePolygon applies the even-odd rule.
func insidePolygon(pts []f32.Point, p f32.Point) bool {
	in := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}
