package builder

import (
	"image/color"
	"math"

	"gioui.org/f32"

	"git.sr.ht/~whereswaldon/chartview/arrange"
	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/model"
	"git.sr.ht/~whereswaldon/chartview/shape"
)

// seriesDraw draws one series of a cartesian chart type.
type seriesDraw struct {
	*pass
	cid      shape.CID
	cat, val *arrange.AxisLayout
	// swap is set when categories run vertically.
	swap  bool
	color color.NRGBA
	s     *model.DataSeries
}

func (d *seriesDraw) pointCID(t shape.ObjectType, i int) shape.CID {
	return shape.NewCID(t, append(d.cid.Params(), shape.P(shape.KeyPoint, i))...)
}

// catPos is the position of category i on the category scale.
func (d *seriesDraw) catPos(i int) float64 {
	if d.cat.Scale.ShiftedCategoryPosition {
		return float64(i) + 0.5
	}
	return float64(i)
}

// at returns the page point of value v at category position c.
func (d *seriesDraw) at(c, v float64) f32.Point {
	plot := d.in.Layout.Plot
	cc := d.cat.Coord(c, plot)
	vc := d.val.Coord(v, plot)
	if d.swap {
		return f32.Pt(vc, cc)
	}
	return f32.Pt(cc, vc)
}

// origin is the value bars grow from when not stacked.
func (d *seriesDraw) origin() float64 {
	if d.val.Scale.Logarithmic {
		return d.val.Scale.Minimum
	}
	return geom.Clamp(d.val.Scale.Origin, d.val.Scale.Minimum, d.val.Scale.Maximum)
}

func (d *seriesDraw) bars(g *shape.Shape, vs, base []float64, si, n int, stacked bool) {
	plot := d.in.Layout.Plot
	unit := float64(d.cat.Coord(1, plot) - d.cat.Coord(0, plot))
	width := float32(math.Abs(unit) * barFill)
	bw := width
	if !stacked && n > 0 {
		bw = width / float32(n)
	}
	for i, v := range vs {
		if math.IsNaN(v) {
			continue
		}
		from, to := d.origin(), v
		if base != nil {
			from, to = base[i], base[i]+v
		}
		g.Add(d.guard(string(d.pointCID(shape.DataPoint, i)), func() *shape.Shape {
			c := d.cat.Coord(d.catPos(i), plot)
			start := c - width/2
			if !stacked {
				start += bw * float32(si)
			}
			a, b := d.val.Coord(from, plot), d.val.Coord(to, plot)
			var r geom.Rect
			if d.swap {
				r = geom.Rect{Min: f32.Pt(a, start), Max: f32.Pt(b, start+bw)}
			} else {
				r = geom.Rect{Min: f32.Pt(start, a), Max: f32.Pt(start+bw, b)}
			}
			return &shape.Shape{CID: d.pointCID(shape.DataPoint, i), Kind: shape.Rect, Bounds: r.Canon(), Fill: d.color}
		}))
		d.label(g, i, v, to)
	}
}

// lines draws a polyline, or a filled area down to the baseline, through
// the finite values of vs plus a symbol per point.
func (d *seriesDraw) lines(g *shape.Shape, vs, base []float64, area bool) {
	var pts, floor []f32.Point
	for i, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		b := d.origin()
		if base != nil {
			b = base[i]
			v += b
		}
		pt := d.at(d.catPos(i), v)
		if !finitePt(pt) {
			continue
		}
		pts = append(pts, pt)
		floor = append(floor, d.at(d.catPos(i), b))
	}
	if len(pts) > 1 {
		if area {
			poly := append([]f32.Point(nil), pts...)
			for i := len(floor) - 1; i >= 0; i-- {
				poly = append(poly, floor[i])
			}
			g.Add(d.keep(&shape.Shape{Kind: shape.Polygon, Bounds: geom.Polygon(poly).Bounds(), Points: poly, Fill: d.color}))
		} else {
			g.Add(d.keep(&shape.Shape{
				Kind:        shape.Polyline,
				Bounds:      geom.Polygon(pts).Bounds(),
				Points:      pts,
				Stroke:      d.color,
				StrokeWidth: lineWidth,
			}))
		}
	}
	d.points(g, vs, base)
}

func (d *seriesDraw) points(g *shape.Shape, vs, base []float64) {
	for i, v := range vs {
		if math.IsNaN(v) {
			continue
		}
		top := v
		if base != nil {
			top += base[i]
		}
		g.Add(d.guard(string(d.pointCID(shape.DataPoint, i)), func() *shape.Shape {
			c := d.at(d.catPos(i), top)
			return &shape.Shape{
				CID:    d.pointCID(shape.DataPoint, i),
				Kind:   shape.Symbol,
				Bounds: geom.XYWH(c.X-symbolSize/2, c.Y-symbolSize/2, symbolSize, symbolSize),
				Fill:   d.color,
			}
		}))
		d.label(g, i, v, top)
	}
}

// label draws the value v of point i next to the value position at.
func (d *seriesDraw) label(g *shape.Shape, i int, v, at float64) {
	if !d.s.ShowValues() {
		return
	}
	size := arrange.FontSize(d.s.Properties(), d.in.Layout.Page)
	text := formatValue(v)
	ts := d.in.Measurer.MeasureText(text, d.font(size))
	pt := d.at(d.catPos(i), at)
	var r geom.Rect
	if d.swap {
		r = geom.XYWH(pt.X+arrange.LabelGap, pt.Y-ts.Height/2, ts.Width, ts.Height)
	} else {
		r = geom.XYWH(pt.X-ts.Width/2, pt.Y-arrange.LabelGap-ts.Height, ts.Width, ts.Height)
	}
	g.Add(d.text(d.pointCID(shape.DataLabel, i), text, r, size))
}

func finitePt(p f32.Point) bool {
	return !math.IsNaN(float64(p.X)) && !math.IsNaN(float64(p.Y)) &&
		!math.IsInf(float64(p.X), 0) && !math.IsInf(float64(p.Y), 0)
}

const pieFill = 0.9

// pie draws each series as a ring of sectors, the first series outermost.
// Slices are colored by category and start at twelve o'clock.
func (p *pass) pie(g *shape.Shape, csi, cti int, series []*model.DataSeries) {
	plot := p.in.Layout.Plot
	if plot.Empty() || len(series) == 0 {
		return
	}
	center := plot.Center()
	radius := min(plot.Dx(), plot.Dy()) / 2 * pieFill
	ring := radius / float32(len(series))
	for si, s := range series {
		cid := shape.NewCID(shape.DataSeries, shape.P(shape.KeyCS, csi), shape.P(shape.KeyCT, cti), shape.P(shape.KeySeries, si))
		sg := shape.NewGroup(cid)
		outer := radius - ring*float32(si)
		inner := outer - ring
		if len(series) == 1 {
			inner = 0
		}
		var total float64
		for _, v := range s.Values() {
			if v > 0 && !math.IsInf(v, 0) {
				total += v
			}
		}
		angle := float32(-90)
		for i, v := range s.Values() {
			if !(v > 0) || math.IsInf(v, 0) || total == 0 {
				continue
			}
			sweep := float32(v / total * 360)
			start := angle
			angle += sweep
			pcid := shape.NewCID(shape.DataPoint, append(cid.Params(), shape.P(shape.KeyPoint, i))...)
			sg.Add(p.guard(string(pcid), func() *shape.Shape {
				return &shape.Shape{
					CID:         pcid,
					Kind:        shape.Sector,
					Bounds:      sectorBounds(center, outer, inner, start, sweep),
					Center:      center,
					Radius:      outer,
					InnerRadius: inner,
					StartAngle:  start,
					Sweep:       sweep,
					Fill:        p.palette[i%len(p.palette)],
					Stroke:      white,
					StrokeWidth: 1,
				}
			}))
			if s.ShowValues() {
				size := arrange.FontSize(s.Properties(), p.in.Layout.Page)
				text := formatValue(v)
				ts := p.in.Measurer.MeasureText(text, p.font(size))
				mid := float64(start+sweep/2) * math.Pi / 180
				r := (outer + inner) / 2
				c := center.Add(f32.Pt(r*float32(math.Cos(mid)), r*float32(math.Sin(mid))))
				lcid := shape.NewCID(shape.DataLabel, append(cid.Params(), shape.P(shape.KeyPoint, i))...)
				sg.Add(p.text(lcid, text, geom.XYWH(c.X-ts.Width/2, c.Y-ts.Height/2, ts.Width, ts.Height), size))
			}
		}
		if s.Shadow() || s.Transparency() > 0 {
			sg.Effect = shape.Effect{Shadow: s.Shadow(), Transparency: s.Transparency()}
			if err := p.composite(sg); err != nil {
				p.err = err
				return
			}
		}
		g.Add(sg)
	}
}

// sectorBounds returns the bounding box of an annular sector.
func sectorBounds(c f32.Point, outer, inner, start, sweep float32) geom.Rect {
	at := func(r, deg float32) f32.Point {
		a := float64(deg) * math.Pi / 180
		return c.Add(f32.Pt(r*float32(math.Cos(a)), r*float32(math.Sin(a))))
	}
	pts := []f32.Point{at(outer, start), at(outer, start+sweep), at(inner, start), at(inner, start+sweep)}
	// Add the extreme points of every quadrant boundary the arc crosses.
	first := float32(math.Ceil(float64(start)/90) * 90)
	for a := first; a < start+sweep; a += 90 {
		pts = append(pts, at(outer, a))
	}
	return geom.Polygon(pts).Bounds()
}
