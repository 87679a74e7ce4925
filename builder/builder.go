// Package builder turns a chart model and its layout into a shape tree.
//
// Every shape that represents a model object carries a CID derived from
// the object's position in the model, so rebuilding an unchanged model
// yields the same identifiers. Shapes whose geometry cannot be computed
// are skipped and logged; only exhaustion of off-screen surfaces aborts a
// build.
package builder

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"gioui.org/f32"
	"github.com/rs/zerolog"

	"git.sr.ht/~whereswaldon/chartview/arrange"
	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/measure"
	"git.sr.ht/~whereswaldon/chartview/model"
	"git.sr.ht/~whereswaldon/chartview/shape"
	"git.sr.ht/~whereswaldon/chartview/surface"
)

// DefaultPalette colors series that have no color of their own.
var DefaultPalette = []color.NRGBA{
	{R: 0x2b, G: 0x7f, B: 0xa8, A: 0xff},
	{R: 0xa4, G: 0x63, B: 0x3a, A: 0xff},
	{R: 0x51, G: 0x85, B: 0x4d, A: 0xff},
	{R: 0x72, G: 0x6c, B: 0xae, A: 0xff},
	{R: 0x85, G: 0x76, B: 0x25, A: 0xff},
	{R: 0x97, G: 0x5f, B: 0x91, A: 0xff},
	{R: 0xc0, G: 0x39, B: 0x2b, A: 0xff},
	{R: 0x16, G: 0xa0, B: 0x85, A: 0xff},
}

var (
	black     = color.NRGBA{A: 0xff}
	white     = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	axisColor = color.NRGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}
	gridColor = color.NRGBA{R: 0xd8, G: 0xd8, B: 0xd8, A: 0xff}
)

const (
	symbolSize = 6
	lineWidth  = 2
	barFill    = 0.8
)

// Options configures a Builder.
type Options struct {
	// Pool provides off-screen surfaces for series with effects. Without
	// one, effects are recorded on the shapes but not composited.
	Pool   *surface.Pool
	Device surface.Device
	// Palette defaults to DefaultPalette.
	Palette []color.NRGBA
	Logger  *zerolog.Logger
}

// Builder creates shape trees. It is safe for use by one view at a time.
type Builder struct {
	pool    *surface.Pool
	device  surface.Device
	palette []color.NRGBA
	log     zerolog.Logger
}

func New(opts Options) *Builder {
	b := &Builder{
		pool:    opts.Pool,
		device:  opts.Device,
		palette: opts.Palette,
		log:     zerolog.Nop(),
	}
	if len(b.palette) == 0 {
		b.palette = DefaultPalette
	}
	if b.device == nil {
		b.device = surface.NewImageDevice()
	}
	if opts.Logger != nil {
		b.log = opts.Logger.With().Str("component", "builder").Logger()
	}
	return b
}

// Frame selects the series values a build draws. Series is indexed by
// coordinate system, chart type and series, in model order.
type Frame struct {
	Index  int
	Series [][][]*model.DataSeries
}

// FrameOf snapshots time frame k of every series of chart.
func FrameOf(chart *model.Chart, k int) *Frame {
	f := &Frame{Index: k}
	d := chart.Diagram()
	if d == nil {
		return f
	}
	for _, cs := range d.CoordinateSystems() {
		var perCS [][]*model.DataSeries
		for _, ct := range cs.ChartTypes() {
			var perCT []*model.DataSeries
			for _, s := range ct.Series() {
				perCT = append(perCT, s.Frame(k))
			}
			perCS = append(perCS, perCT)
		}
		f.Series = append(f.Series, perCS)
	}
	return f
}

// Input is what one build draws.
type Input struct {
	Chart  *model.Chart
	Layout *arrange.Layout
	// Measurer sizes labels. Defaults to measure.Approx.
	Measurer measure.Measurer
	Typeface string
	// Frame replaces the series values when set.
	Frame *Frame
}

// Stats summarizes a build.
type Stats struct {
	Shapes     int
	Skipped    int
	Composited int
}

type pass struct {
	*Builder
	in    Input
	stats Stats
	err   error
}

func (b *Builder) newPass(in Input) *pass {
	if in.Measurer == nil {
		in.Measurer = measure.Approx{}
	}
	return &pass{Builder: b, in: in}
}

// Build creates the shape tree of in.
func (b *Builder) Build(in Input) (*shape.Tree, Stats, error) {
	if in.Chart == nil || in.Layout == nil {
		return nil, Stats{}, errkind.NotAvailable.New("chart or layout missing")
	}
	p := b.newPass(in)
	page := shape.NewGroup(shape.NewCID(shape.Page))
	page.Add(&shape.Shape{Kind: shape.Rect, Bounds: geom.RectOf(in.Layout.Page), Fill: white})
	if d := in.Chart.Diagram(); d != nil {
		page.Add(p.diagram(d))
	}
	if p.err != nil {
		return nil, p.stats, p.err
	}
	page.Add(p.title(shape.Title, in.Chart.Title(), in.Layout.Title, in.Layout.TitleFont))
	page.Add(p.title(shape.Subtitle, in.Chart.Subtitle(), in.Layout.Subtitle, in.Layout.SubtitleFont))
	page.Add(p.legend())
	p.dropDuplicates(page, map[shape.CID]bool{page.CID: true})
	tree, err := shape.NewTree(page)
	if err != nil {
		return nil, p.stats, err
	}
	p.stats.Shapes = tree.Len()
	return tree, p.stats, nil
}

// RebuildSeries redraws only the series groups of tree from in, as the
// player does for each frame. A tree whose series groups no longer match
// the model is rebuilt completely.
func (b *Builder) RebuildSeries(tree *shape.Tree, in Input) (*shape.Tree, Stats, error) {
	if tree == nil || in.Chart == nil || in.Chart.Diagram() == nil || in.Layout == nil {
		return b.Build(in)
	}
	p := b.newPass(in)
	for csi, cs := range in.Chart.Diagram().CoordinateSystems() {
		for cti, ct := range cs.ChartTypes() {
			cid := shape.NewCID(shape.DataSeriesGroup, shape.P(shape.KeyCS, csi), shape.P(shape.KeyCT, cti))
			if _, err := tree.Lookup(cid); err != nil {
				b.log.Debug().Str("cid", string(cid)).Msg("series group missing; full rebuild")
				return b.Build(in)
			}
			g := p.seriesGroup(csi, cs, cti, ct)
			if p.err != nil {
				return nil, p.stats, p.err
			}
			next, err := tree.Replace(cid, g)
			if err != nil {
				return nil, p.stats, err
			}
			tree = next
		}
	}
	p.stats.Shapes = tree.Len()
	return tree, p.stats, nil
}

// keep returns s if its geometry is usable and counts it as skipped
// otherwise.
func (p *pass) keep(s *shape.Shape) *shape.Shape {
	if s == nil {
		return nil
	}
	if !s.Finite() {
		err := errkind.InvalidShape.New(string(s.CID), "non-finite geometry")
		p.log.Warn().Err(err).Stringer("kind", s.Kind).Msg("skipping shape")
		p.stats.Skipped++
		return nil
	}
	return s
}

// dropDuplicates removes every shape below s whose CID was already seen
// in paint order, together with its children.
func (p *pass) dropDuplicates(s *shape.Shape, seen map[shape.CID]bool) {
	kept := s.Children[:0]
	for _, c := range s.Children {
		if c.CID != "" {
			if seen[c.CID] {
				err := errkind.InvalidShape.New(string(c.CID), "duplicate identifier")
				p.log.Warn().Err(err).Stringer("kind", c.Kind).Msg("skipping shape")
				p.stats.Skipped++
				continue
			}
			seen[c.CID] = true
		}
		p.dropDuplicates(c, seen)
		kept = append(kept, c)
	}
	clear(s.Children[len(kept):])
	s.Children = kept
}

// guard runs fn and turns a panic into a skipped shape.
func (p *pass) guard(what string, fn func() *shape.Shape) (s *shape.Shape) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("shape", what).Interface("panic", r).Msg("skipping shape")
			p.stats.Skipped++
			s = nil
		}
	}()
	return p.keep(fn())
}

func (p *pass) font(size float32) measure.Font {
	return measure.Font{Typeface: p.in.Typeface, Size: size}
}

func (p *pass) text(cid shape.CID, s string, r geom.Rect, size float32) *shape.Shape {
	return p.keep(&shape.Shape{CID: cid, Kind: shape.Text, Bounds: r, Text: s, FontSize: size, Fill: black})
}

func (p *pass) title(t shape.ObjectType, m *model.Title, r geom.Rect, size float32) *shape.Shape {
	if m == nil || m.Text() == "" || r.Empty() {
		return nil
	}
	return p.text(shape.NewCID(t), m.Text(), r, size)
}

func line(a, b f32.Point, c color.NRGBA, w float32) *shape.Shape {
	return &shape.Shape{
		Kind:        shape.Line,
		Bounds:      geom.Rect{Min: a, Max: b}.Canon(),
		Points:      []f32.Point{a, b},
		Stroke:      c,
		StrokeWidth: w,
	}
}

func (p *pass) diagram(d *model.Diagram) *shape.Shape {
	l := p.in.Layout
	g := shape.NewGroup(shape.NewCID(shape.Diagram))
	g.Add(p.keep(&shape.Shape{
		CID:         shape.NewCID(shape.DiagramWall),
		Kind:        shape.Rect,
		Bounds:      l.Plot,
		Fill:        d.WallColor(),
		Stroke:      axisColor,
		StrokeWidth: 1,
	}))
	// An axis set into several slots has one layout and is drawn once.
	var axes []*arrange.AxisLayout
	drawn := make(map[*arrange.AxisLayout]bool)
	for csi, cs := range d.CoordinateSystems() {
		for _, slot := range cs.Axes() {
			al := l.Axis(slot.Axis)
			if al == nil || !al.Drawn || al.CoordinateSystem != csi || drawn[al] {
				continue
			}
			drawn[al] = true
			axes = append(axes, al)
		}
	}
	for _, al := range axes {
		if al.Axis.ShowGrid() {
			g.Add(p.grid(al))
		}
	}
	for csi, cs := range d.CoordinateSystems() {
		for cti, ct := range cs.ChartTypes() {
			g.Add(p.seriesGroup(csi, cs, cti, ct))
			if p.err != nil {
				return nil
			}
		}
	}
	for _, al := range axes {
		g.Add(p.axis(al))
	}
	return g
}

func axisParams(al *arrange.AxisLayout) []shape.Param {
	return []shape.Param{
		shape.P(shape.KeyCS, al.CoordinateSystem),
		shape.P(shape.KeyDim, al.Dimension),
		shape.P(shape.KeyIndex, al.Index),
	}
}

func (p *pass) grid(al *arrange.AxisLayout) *shape.Shape {
	plot := p.in.Layout.Plot
	g := shape.NewGroup(shape.NewCID(shape.Grid, axisParams(al)...))
	for _, t := range al.Ticks {
		c := al.Coord(t.Value, plot)
		var s *shape.Shape
		if al.Side.Vertical() {
			s = line(f32.Pt(plot.Min.X, c), f32.Pt(plot.Max.X, c), gridColor, 1)
		} else {
			s = line(f32.Pt(c, plot.Min.Y), f32.Pt(c, plot.Max.Y), gridColor, 1)
		}
		g.Add(p.keep(s))
	}
	return g
}

func (p *pass) axis(al *arrange.AxisLayout) *shape.Shape {
	plot := p.in.Layout.Plot
	band := al.Band
	g := shape.NewGroup(shape.NewCID(shape.Axis, axisParams(al)...))

	// origin is where the axis line runs, out the direction ticks point.
	var origin f32.Point
	var out f32.Point
	switch al.Side {
	case arrange.Bottom:
		origin, out = f32.Pt(0, band.Min.Y), f32.Pt(0, 1)
		g.Add(p.keep(line(f32.Pt(plot.Min.X, band.Min.Y), f32.Pt(plot.Max.X, band.Min.Y), axisColor, 1)))
	case arrange.Top:
		origin, out = f32.Pt(0, band.Max.Y), f32.Pt(0, -1)
		g.Add(p.keep(line(f32.Pt(plot.Min.X, band.Max.Y), f32.Pt(plot.Max.X, band.Max.Y), axisColor, 1)))
	case arrange.Left:
		origin, out = f32.Pt(band.Max.X, 0), f32.Pt(-1, 0)
		g.Add(p.keep(line(f32.Pt(band.Max.X, plot.Min.Y), f32.Pt(band.Max.X, plot.Max.Y), axisColor, 1)))
	case arrange.Right:
		origin, out = f32.Pt(band.Min.X, 0), f32.Pt(1, 0)
		g.Add(p.keep(line(f32.Pt(band.Min.X, plot.Min.Y), f32.Pt(band.Min.X, plot.Max.Y), axisColor, 1)))
	}

	f := p.font(al.FontSize)
	for _, t := range al.Ticks {
		c := al.Coord(t.Value, plot)
		var at f32.Point
		if al.Side.Vertical() {
			at = f32.Pt(origin.X, c)
		} else {
			at = f32.Pt(c, origin.Y)
		}
		tip := at.Add(out.Mul(arrange.TickLength))
		g.Add(p.keep(line(at, tip, axisColor, 1)))
		if !al.Axis.ShowLabels() || t.Label == "" {
			continue
		}
		ts := p.in.Measurer.MeasureText(t.Label, f)
		g.Add(p.text("", t.Label, labelRect(al.Side, tip.Add(out.Mul(arrange.LabelGap)), ts), al.FontSize))
	}

	if title := al.Axis.Title(); title != "" {
		ts := p.in.Measurer.MeasureText(title, f)
		r, rot := titleRect(al.Side, band, ts)
		s := p.text(shape.NewCID(shape.AxisTitle, axisParams(al)...), title, r, al.FontSize)
		if s != nil {
			s.Rotation = rot
		}
		g.Add(s)
	}
	return g
}

// labelRect places a label of size ts next to the tick tip at.
func labelRect(side arrange.Side, at f32.Point, ts geom.Size) geom.Rect {
	switch side {
	case arrange.Bottom:
		return geom.XYWH(at.X-ts.Width/2, at.Y, ts.Width, ts.Height)
	case arrange.Top:
		return geom.XYWH(at.X-ts.Width/2, at.Y-ts.Height, ts.Width, ts.Height)
	case arrange.Left:
		return geom.XYWH(at.X-ts.Width, at.Y-ts.Height/2, ts.Width, ts.Height)
	default:
		return geom.XYWH(at.X, at.Y-ts.Height/2, ts.Width, ts.Height)
	}
}

// titleRect places an axis title at the outer edge of its band. Titles of
// vertical axes are rotated, so their box is the text size transposed.
func titleRect(side arrange.Side, band geom.Rect, ts geom.Size) (geom.Rect, float32) {
	c := band.Center()
	switch side {
	case arrange.Bottom:
		return geom.XYWH(c.X-ts.Width/2, band.Max.Y-ts.Height, ts.Width, ts.Height), 0
	case arrange.Top:
		return geom.XYWH(c.X-ts.Width/2, band.Min.Y, ts.Width, ts.Height), 0
	case arrange.Left:
		return geom.XYWH(band.Min.X, c.Y-ts.Width/2, ts.Height, ts.Width), -90
	default:
		return geom.XYWH(band.Max.X-ts.Height, c.Y-ts.Width/2, ts.Height, ts.Width), 90
	}
}

// seriesColor returns the color of s, whose chart-wide index is global.
func (p *pass) seriesColor(s *model.DataSeries, global int) color.NRGBA {
	if c := s.Color(); c.A != 0 {
		return c
	}
	return p.palette[global%len(p.palette)]
}

// globalIndex returns the chart-wide index of a series.
func (p *pass) globalIndex(csi, cti, si int) int {
	n := 0
	for i, cs := range p.in.Chart.Diagram().CoordinateSystems() {
		for j, ct := range cs.ChartTypes() {
			if i == csi && j == cti {
				return n + si
			}
			n += len(ct.Series())
		}
	}
	return n + si
}

func (p *pass) series(csi, cti int, ct *model.ChartType) []*model.DataSeries {
	if f := p.in.Frame; f != nil && csi < len(f.Series) && cti < len(f.Series[csi]) {
		return f.Series[csi][cti]
	}
	return ct.Series()
}

func (p *pass) legend() *shape.Shape {
	l := p.in.Layout
	if len(l.LegendEntries) == 0 || l.Legend.Empty() {
		return nil
	}
	g := shape.NewGroup(shape.NewCID(shape.Legend))
	g.Add(p.keep(&shape.Shape{Kind: shape.Rect, Bounds: l.Legend, Fill: white, Stroke: gridColor, StrokeWidth: 1}))
	css := p.in.Chart.Diagram().CoordinateSystems()
	for k, en := range l.LegendEntries {
		var c color.NRGBA
		switch {
		case en.Point >= 0:
			c = p.palette[en.Point%len(p.palette)]
		case en.CS < len(css) && en.CT < len(css[en.CS].ChartTypes()) && en.Series < len(css[en.CS].ChartTypes()[en.CT].Series()):
			s := css[en.CS].ChartTypes()[en.CT].Series()[en.Series]
			c = p.seriesColor(s, p.globalIndex(en.CS, en.CT, en.Series))
		default:
			c = axisColor
		}
		e := shape.NewGroup(shape.NewCID(shape.LegendEntry, shape.P(shape.KeyEntry, k)))
		e.Add(p.keep(&shape.Shape{Kind: shape.Symbol, Bounds: en.Symbol, Fill: c}))
		e.Add(p.text("", en.Label, en.Text, l.LegendFont))
		g.Add(e)
	}
	return g
}

// seriesGroup draws every series of a chart type. It records a surface
// error in p.err.
func (p *pass) seriesGroup(csi int, cs *model.CoordinateSystem, cti int, ct *model.ChartType) *shape.Shape {
	g := shape.NewGroup(shape.NewCID(shape.DataSeriesGroup, shape.P(shape.KeyCS, csi), shape.P(shape.KeyCT, cti)))
	series := p.series(csi, cti, ct)
	if ct.Kind() == model.Pie {
		p.pie(g, csi, cti, series)
		return g
	}
	cat := p.categoryAxis(cs)
	if cat == nil {
		if len(series) > 0 {
			p.log.Debug().Int("cs", csi).Int("ct", cti).Msg("no category axis; series not drawn")
		}
		return g
	}
	values := make([][]float64, len(series))
	for i, s := range series {
		values[i] = s.Values()
	}
	if ct.Stacking() == model.PercentStacked {
		values = percentages(values)
	}
	var pos, neg []float64
	for si, s := range series {
		val := p.valueAxis(cs, s)
		if val == nil {
			continue
		}
		cid := shape.NewCID(shape.DataSeries, shape.P(shape.KeyCS, csi), shape.P(shape.KeyCT, cti), shape.P(shape.KeySeries, si))
		sg := shape.NewGroup(cid)
		d := seriesDraw{
			pass:  p,
			cid:   cid,
			cat:   cat,
			val:   val,
			swap:  cat.Side.Vertical(),
			color: p.seriesColor(s, p.globalIndex(csi, cti, si)),
			s:     s,
		}
		vs := values[si]
		var base []float64
		if ct.Stacking() != model.NotStacked {
			pos, neg, base = stackBase(pos, neg, vs)
		}
		switch ct.Kind() {
		case model.Bar:
			d.bars(sg, vs, base, si, len(series), ct.Stacking() != model.NotStacked)
		case model.Line:
			d.lines(sg, vs, base, false)
		case model.Area:
			d.lines(sg, vs, base, true)
		case model.Scatter:
			d.points(sg, vs, base)
		}
		if s.Shadow() || s.Transparency() > 0 {
			sg.Effect = shape.Effect{Shadow: s.Shadow(), Transparency: s.Transparency()}
			if err := p.composite(sg); err != nil {
				p.err = err
				return g
			}
		}
		g.Add(sg)
	}
	return g
}

func (p *pass) categoryAxis(cs *model.CoordinateSystem) *arrange.AxisLayout {
	a, err := cs.AxisByDimension(0, 0)
	if err != nil {
		return nil
	}
	return p.in.Layout.Axis(a)
}

func (p *pass) valueAxis(cs *model.CoordinateSystem, s *model.DataSeries) *arrange.AxisLayout {
	a, err := cs.AxisByDimension(1, arrange.AttachedIndex(cs, s))
	if err != nil {
		return nil
	}
	return p.in.Layout.Axis(a)
}

// percentages rescales each point so the absolute values of all series
// sum to 100.
func percentages(values [][]float64) [][]float64 {
	totals := arrange.StackTotals(values)
	out := make([][]float64, len(values))
	for i, vs := range values {
		out[i] = make([]float64, len(vs))
		for j, v := range vs {
			sum := totals[j].Pos - totals[j].Neg
			if sum == 0 {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = v / sum * 100
		}
	}
	return out
}

// stackBase returns the baseline of vs on top of the running positive and
// negative stacks and advances them.
func stackBase(pos, neg, vs []float64) ([]float64, []float64, []float64) {
	for len(pos) < len(vs) {
		pos = append(pos, 0)
		neg = append(neg, 0)
	}
	base := make([]float64, len(vs))
	for i, v := range vs {
		switch {
		case math.IsNaN(v):
			base[i] = pos[i]
		case v >= 0:
			base[i] = pos[i]
			pos[i] += v
		default:
			base[i] = neg[i]
			neg[i] += v
		}
	}
	return pos, neg, base
}

// composite renders a series with an effect through two pooled surfaces.
// acquire gets an off-screen surface for s. Only exhaustion is returned;
// other failures leave s uncomposited.
func (p *pass) acquire(s *shape.Shape, size image.Point) (surface.Surface, error) {
	sf, err := p.pool.Acquire(p.device, size, true)
	switch {
	case err == nil:
		return sf, nil
	case errkind.ResourceExhausted.Is(err):
		return nil, fmt.Errorf("compositing %s: %w", s.CID, err)
	default:
		p.log.Warn().Err(err).Str("cid", string(s.CID)).Msg("composition skipped")
		return nil, nil
	}
}

func (p *pass) composite(s *shape.Shape) error {
	if p.pool == nil {
		return nil
	}
	r := s.Bounds.Canon()
	size := image.Pt(int(math.Ceil(float64(r.Dx()))), int(math.Ceil(float64(r.Dy()))))
	if size.X <= 0 || size.Y <= 0 {
		return nil
	}
	dst, err := p.acquire(s, size)
	if dst == nil {
		return err
	}
	defer p.pool.Release(dst)
	src, err := p.acquire(s, size)
	if src == nil {
		return err
	}
	defer p.pool.Release(src)
	mode := surface.BlendOver
	if s.Effect.Transparency == 0 {
		mode = surface.BlendSource
	}
	if err := p.pool.DrawComposited(dst, src, mode); err != nil {
		p.log.Warn().Err(err).Str("cid", string(s.CID)).Msg("composition failed")
		return nil
	}
	s.Effect.Composited = true
	p.stats.Composited++
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
