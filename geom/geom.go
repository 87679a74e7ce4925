// Package geom holds the value types shared by the chart view packages:
// page rectangles and sizes, user specified axis scales and their resolved
// (explicit) counterparts.
package geom

import (
	"fmt"
	"math"

	"gioui.org/f32"
)

// Size is a width and height in page units (pixels at scale 1).
type Size struct {
	Width, Height float32
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// Rect is an axis-aligned rectangle. Min is the top left corner.
type Rect struct {
	Min, Max f32.Point
}

// XYWH constructs a rectangle from an origin and a size.
func XYWH(x, y, w, h float32) Rect {
	return Rect{Min: f32.Pt(x, y), Max: f32.Pt(x+w, y+h)}
}

// RectOf returns the rectangle at the origin with the given size.
func RectOf(s Size) Rect {
	return XYWH(0, 0, s.Width, s.Height)
}

func (r Rect) Dx() float32 { return r.Max.X - r.Min.X }
func (r Rect) Dy() float32 { return r.Max.Y - r.Min.Y }

// Size returns the dimensions of r.
func (r Rect) Size() Size {
	return Size{Width: r.Dx(), Height: r.Dy()}
}

// Empty reports whether r contains no area.
func (r Rect) Empty() bool {
	return r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y
}

// Canon returns r with Min and Max swapped where needed so that both
// dimensions are non-negative.
func (r Rect) Canon() Rect {
	if r.Max.X < r.Min.X {
		r.Min.X, r.Max.X = r.Max.X, r.Min.X
	}
	if r.Max.Y < r.Min.Y {
		r.Min.Y, r.Max.Y = r.Max.Y, r.Min.Y
	}
	return r
}

// Contains reports whether p lies in r. The right and bottom edges are
// exclusive.
func (r Rect) Contains(p f32.Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Union returns the smallest rectangle containing r and o. Empty
// rectangles are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		Min: f32.Pt(min(r.Min.X, o.Min.X), min(r.Min.Y, o.Min.Y)),
		Max: f32.Pt(max(r.Max.X, o.Max.X), max(r.Max.Y, o.Max.Y)),
	}
}

// Intersect returns the largest rectangle contained by both r and o. The
// result is the zero Rect if they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		Min: f32.Pt(max(r.Min.X, o.Min.X), max(r.Min.Y, o.Min.Y)),
		Max: f32.Pt(min(r.Max.X, o.Max.X), min(r.Max.Y, o.Max.Y)),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Inset shrinks r by the given insets. The result never has a negative
// size; it collapses onto its center instead.
func (r Rect) Inset(in Insets) Rect {
	out := Rect{
		Min: f32.Pt(r.Min.X+in.Left, r.Min.Y+in.Top),
		Max: f32.Pt(r.Max.X-in.Right, r.Max.Y-in.Bottom),
	}
	if out.Max.X < out.Min.X {
		c := (out.Min.X + out.Max.X) / 2
		out.Min.X, out.Max.X = c, c
	}
	if out.Max.Y < out.Min.Y {
		c := (out.Min.Y + out.Max.Y) / 2
		out.Min.Y, out.Max.Y = c, c
	}
	return out
}

// Center returns the midpoint of r.
func (r Rect) Center() f32.Point {
	return f32.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

// Finite reports whether every coordinate of r is a finite number.
func (r Rect) Finite() bool {
	return finite(r.Min.X) && finite(r.Min.Y) && finite(r.Max.X) && finite(r.Max.Y)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

// Insets describes space reserved on each side of a rectangle.
type Insets struct {
	Top, Bottom, Left, Right float32
}

// Polygon is an ordered list of points.
type Polygon []f32.Point

// Bounds returns the bounding rectangle of the points.
func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	r := Rect{Min: p[0], Max: p[0]}
	for _, pt := range p[1:] {
		r.Min.X = min(r.Min.X, pt.X)
		r.Min.Y = min(r.Min.Y, pt.Y)
		r.Max.X = max(r.Max.X, pt.X)
		r.Max.Y = max(r.Max.Y, pt.Y)
	}
	return r
}

// Finite reports whether every point of p has finite coordinates.
func (p Polygon) Finite() bool {
	for _, pt := range p {
		if !finite(pt.X) || !finite(pt.Y) {
			return false
		}
	}
	return true
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
