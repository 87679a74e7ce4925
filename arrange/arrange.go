// Package arrange computes where the parts of a chart go on the page: the
// title, subtitle and legend reservations, the diagram rectangle with and
// without its axes, and the resolved scale of every axis.
package arrange

import (
	"math"

	"gioui.org/f32"
	"github.com/rs/zerolog"

	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/measure"
	"git.sr.ht/~whereswaldon/chartview/model"
	"git.sr.ht/~whereswaldon/chartview/scaling"
)

const (
	pageMargin = 8
	spacing    = 6
	legendPad  = 4

	// TickLength is the length of axis tick marks.
	TickLength = 4
	// LabelGap separates tick marks, labels and titles.
	LabelGap = 2

	// DefaultMaxIterations bounds the shrink-to-fit loop.
	DefaultMaxIterations = 8
)

// Side is the edge of the plot an axis is drawn along.
type Side uint8

const (
	Bottom Side = iota
	Left
	Top
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Top:
		return "top"
	case Right:
		return "right"
	default:
		return "bottom"
	}
}

// Vertical reports whether an axis on s runs from bottom to top.
func (s Side) Vertical() bool { return s == Left || s == Right }

// AxisLayout is the resolved state of one axis.
type AxisLayout struct {
	Axis             *model.Axis
	CoordinateSystem int
	Dimension, Index int
	Scale            geom.ExplicitScaleData
	Increment        geom.ExplicitIncrementData
	Ticks            []scaling.Tick
	Side             Side
	// Drawn is false for axes that take no room on the page: hidden axes,
	// series axes and the axes of pie and polar diagrams.
	Drawn bool
	// FontSize is the effective size of the tick labels.
	FontSize float32
	// LabelSize is the size of the largest tick label.
	LabelSize geom.Size
	// Band is the area outside the plot that holds ticks, labels and
	// title.
	Band geom.Rect
}

// Coord maps v onto the plot along the axis. It returns NaN for values
// the axis cannot show.
func (a *AxisLayout) Coord(v float64, plot geom.Rect) float32 {
	p := scaling.Position(a.Scale, v)
	if a.Side.Vertical() {
		return plot.Max.Y - float32(p)*plot.Dy()
	}
	return plot.Min.X + float32(p)*plot.Dx()
}

// LegendEntry is one line of the legend.
type LegendEntry struct {
	Label string
	// CS, CT and Series locate the series the entry describes. Point is
	// the category index of a pie slice entry and -1 otherwise.
	CS, CT, Series, Point int
	Symbol, Text          geom.Rect
}

// Layout is the result of arranging a chart on a page.
type Layout struct {
	Page geom.Size
	// Title, Subtitle and Legend are empty when the element is absent.
	Title, Subtitle, Legend geom.Rect
	TitleFont, SubtitleFont float32
	LegendFont              float32
	LegendEntries           []LegendEntry
	// Diagram includes the axes, Plot excludes them.
	Diagram, Plot geom.Rect
	Axes          map[*model.Axis]*AxisLayout
	// Iterations is the number of shrink-to-fit passes that ran.
	Iterations int
	Converged  bool
}

// Axis returns the layout of a, or nil.
func (l *Layout) Axis(a *model.Axis) *AxisLayout {
	if l == nil || a == nil {
		return nil
	}
	return l.Axes[a]
}

// Options configures an Engine.
type Options struct {
	// Measurer sizes text. Defaults to measure.Approx.
	Measurer measure.Measurer
	// MaxIterations bounds the shrink-to-fit loop. Defaults to
	// DefaultMaxIterations.
	MaxIterations int
	Typeface      string
	Logger        *zerolog.Logger
}

// Engine arranges charts. It holds no per-chart state and may be shared.
type Engine struct {
	measurer measure.Measurer
	maxIter  int
	typeface string
	log      zerolog.Logger
}

func New(opts Options) *Engine {
	e := &Engine{
		measurer: opts.Measurer,
		maxIter:  opts.MaxIterations,
		typeface: opts.Typeface,
		log:      zerolog.Nop(),
	}
	if e.measurer == nil {
		e.measurer = measure.Approx{}
	}
	if e.maxIter <= 0 {
		e.maxIter = DefaultMaxIterations
	}
	if opts.Logger != nil {
		e.log = *opts.Logger
	}
	return e
}

// Measurer returns the text measurer of the engine.
func (e *Engine) Measurer() measure.Measurer { return e.measurer }

// Font returns the font the engine measures text of the given size in.
func (e *Engine) Font(size float32) measure.Font {
	return measure.Font{Typeface: e.typeface, Size: size}
}

// Mode selects optional arranging behavior.
type Mode struct {
	// TimeBased scales value axes over the values of every time frame so
	// that all frames share one layout.
	TimeBased bool
}

// FontSize returns the effective font size of an object: its CharHeight
// scaled from its reference page size to page, if it has one.
func FontSize(p *model.PropertySet, page geom.Size) float32 {
	size := p.Float32(model.PropCharHeight)
	ref, ok := p.ReferencePageSize()
	if !ok || ref.Width <= 0 || ref.Height <= 0 || page.Width <= 0 || page.Height <= 0 {
		return size
	}
	return size * min(page.Width/ref.Width, page.Height/ref.Height)
}

// Arrange lays chart out on a page of the given size.
func (e *Engine) Arrange(chart *model.Chart, page geom.Size, mode Mode) *Layout {
	l := &Layout{
		Page: page,
		Axes: make(map[*model.Axis]*AxisLayout),
	}
	axes := e.collectAxes(chart, mode)
	if page.Width <= 0 || page.Height <= 0 {
		for _, a := range axes {
			a.Scale = geom.ExplicitScaleData{AxisType: a.Scale.AxisType}
			a.Increment = geom.ExplicitIncrementData{}
			l.Axes[a.Axis] = &a.AxisLayout
		}
		return l
	}
	remaining := geom.RectOf(page).Inset(geom.Insets{Top: pageMargin, Bottom: pageMargin, Left: pageMargin, Right: pageMargin})

	if t := chart.Title(); t != nil && t.Text() != "" {
		l.TitleFont = FontSize(t.Properties(), page)
		l.Title, remaining = e.reserveTop(t.Text(), l.TitleFont, remaining)
	}
	if t := chart.Subtitle(); t != nil && t.Text() != "" {
		l.SubtitleFont = FontSize(t.Properties(), page)
		l.Subtitle, remaining = e.reserveTop(t.Text(), l.SubtitleFont, remaining)
	}
	legend := chart.Legend()
	var entries []LegendEntry
	if legend != nil && legend.Show() {
		entries = legendEntries(chart)
	}
	if len(entries) > 0 {
		l.LegendFont = FontSize(legend.Properties(), page)
		size := e.legendSize(entries, l.LegendFont, legend.Position())
		l.Legend, remaining = reserveLegend(size, legend.Position(), remaining)
	}

	l.Diagram = remaining
	var insets geom.Insets
	for iter := 1; ; iter++ {
		l.Iterations = iter
		l.Plot = l.Diagram.Inset(insets)
		needed := e.resolveAxes(axes, l.Plot, page)
		l.Converged = closeInsets(needed, insets)
		if l.Converged {
			break
		}
		if iter >= e.maxIter {
			e.log.Debug().Int("iterations", iter).Stringer("plot", l.Plot).Msg("shrink-to-fit did not converge; using last layout")
			break
		}
		insets = needed
	}
	for _, a := range axes {
		l.Axes[a.Axis] = &a.AxisLayout
	}
	if len(entries) > 0 {
		if legend.Position() == model.LegendInside {
			size := l.Legend.Size()
			l.Legend = geom.XYWH(l.Plot.Max.X-spacing-size.Width, l.Plot.Min.Y+spacing, size.Width, size.Height)
		}
		l.LegendEntries = e.placeLegend(entries, l.LegendFont, legend.Position(), l.Legend)
	}
	return l
}

func closeInsets(a, b geom.Insets) bool {
	const eps = 0.5
	return math.Abs(float64(a.Top-b.Top)) < eps &&
		math.Abs(float64(a.Bottom-b.Bottom)) < eps &&
		math.Abs(float64(a.Left-b.Left)) < eps &&
		math.Abs(float64(a.Right-b.Right)) < eps
}

func (e *Engine) reserveTop(text string, size float32, r geom.Rect) (geom.Rect, geom.Rect) {
	ts := e.measurer.MeasureText(text, e.Font(size))
	cx := r.Center().X
	placed := geom.XYWH(cx-ts.Width/2, r.Min.Y, ts.Width, ts.Height)
	r.Min.Y = min(r.Min.Y+ts.Height+spacing, r.Max.Y)
	return placed, r
}

func reserveLegend(size geom.Size, pos model.LegendPosition, r geom.Rect) (geom.Rect, geom.Rect) {
	c := r.Center()
	var placed geom.Rect
	switch pos {
	case model.LegendLeft:
		placed = geom.XYWH(r.Min.X, c.Y-size.Height/2, size.Width, size.Height)
		r.Min.X = min(r.Min.X+size.Width+spacing, r.Max.X)
	case model.LegendTop:
		placed = geom.XYWH(c.X-size.Width/2, r.Min.Y, size.Width, size.Height)
		r.Min.Y = min(r.Min.Y+size.Height+spacing, r.Max.Y)
	case model.LegendBottom:
		placed = geom.XYWH(c.X-size.Width/2, r.Max.Y-size.Height, size.Width, size.Height)
		r.Max.Y = max(r.Max.Y-size.Height-spacing, r.Min.Y)
	case model.LegendInside:
		placed = geom.XYWH(0, 0, size.Width, size.Height)
	default:
		placed = geom.XYWH(r.Max.X-size.Width, c.Y-size.Height/2, size.Width, size.Height)
		r.Max.X = max(r.Max.X-size.Width-spacing, r.Min.X)
	}
	return placed, r
}

// legendEntries lists one entry per series, or one per category when the
// chart's only chart type is a pie.
func legendEntries(chart *model.Chart) []LegendEntry {
	d := chart.Diagram()
	if d == nil {
		return nil
	}
	var out []LegendEntry
	for csi, cs := range d.CoordinateSystems() {
		for cti, ct := range cs.ChartTypes() {
			series := ct.Series()
			if ct.Kind() == model.Pie && len(series) > 0 {
				cats := d.Categories()
				for p := range series[0].Values() {
					label := ""
					if p < len(cats) {
						label = cats[p]
					}
					out = append(out, LegendEntry{Label: label, CS: csi, CT: cti, Series: 0, Point: p})
				}
				continue
			}
			for si, s := range series {
				out = append(out, LegendEntry{Label: s.Name(), CS: csi, CT: cti, Series: si, Point: -1})
			}
		}
	}
	return out
}

func (e *Engine) legendSize(entries []LegendEntry, size float32, pos model.LegendPosition) geom.Size {
	f := e.Font(size)
	line := size * 1.2
	sym := line * 0.8
	horizontal := pos == model.LegendTop || pos == model.LegendBottom
	var w, h float32
	for i, en := range entries {
		ts := e.measurer.MeasureText(en.Label, f)
		line = max(line, ts.Height)
		entryW := sym + LabelGap*2 + ts.Width
		if horizontal {
			if i > 0 {
				w += spacing
			}
			w += entryW
		} else {
			w = max(w, entryW)
		}
	}
	if horizontal {
		h = line
	} else {
		h = float32(len(entries))*line + float32(len(entries)-1)*LabelGap
	}
	return geom.Size{Width: w + 2*legendPad, Height: h + 2*legendPad}
}

func (e *Engine) placeLegend(entries []LegendEntry, size float32, pos model.LegendPosition, r geom.Rect) []LegendEntry {
	f := e.Font(size)
	line := size * 1.2
	for _, en := range entries {
		line = max(line, e.measurer.MeasureText(en.Label, f).Height)
	}
	sym := line * 0.8
	horizontal := pos == model.LegendTop || pos == model.LegendBottom
	x, y := r.Min.X+legendPad, r.Min.Y+legendPad
	out := make([]LegendEntry, len(entries))
	for i, en := range entries {
		ts := e.measurer.MeasureText(en.Label, f)
		en.Symbol = geom.XYWH(x, y+(line-sym)/2, sym, sym)
		en.Text = geom.XYWH(x+sym+LabelGap*2, y+(line-ts.Height)/2, ts.Width, ts.Height)
		out[i] = en
		if horizontal {
			x += sym + LabelGap*2 + ts.Width + spacing
		} else {
			y += line + LabelGap
		}
	}
	return out
}

// axisState is an axis layout plus the inputs that stay fixed across
// shrink-to-fit iterations.
type axisState struct {
	AxisLayout
	input scaling.Input
	names []string
	title string
}

// collectAxes gathers every axis of the chart with its data extent.
func (e *Engine) collectAxes(chart *model.Chart, mode Mode) []*axisState {
	d := chart.Diagram()
	if d == nil {
		return nil
	}
	var out []*axisState
	seen := make(map[*model.Axis]bool)
	for csi, cs := range d.CoordinateSystems() {
		cts := cs.ChartTypes()
		pieOnly := len(cts) > 0
		shifted := false
		var allSeries []*model.DataSeries
		for _, ct := range cts {
			if ct.Kind() != model.Pie {
				pieOnly = false
			}
			if ct.Kind() == model.Bar {
				shifted = true
			}
			allSeries = append(allSeries, ct.Series()...)
		}
		categories := d.Categories()
		count := len(categories)
		for _, s := range allSeries {
			count = max(count, len(s.Values()))
		}
		swapped := cs.SwapXAndYAxis()
		for _, slot := range cs.Axes() {
			if seen[slot.Axis] {
				continue
			}
			seen[slot.Axis] = true
			a := &axisState{
				AxisLayout: AxisLayout{
					Axis:             slot.Axis,
					CoordinateSystem: csi,
					Dimension:        slot.Dimension,
					Index:            slot.Index,
				},
				input: scaling.Input{
					Scale:     slot.Axis.Scale(),
					Increment: slot.Axis.Increment(),
				},
				title: slot.Axis.Title(),
			}
			a.Scale.AxisType = a.input.Scale.AxisType
			a.Side = sideOf(slot.Dimension, slot.Index, swapped)
			a.Drawn = slot.Axis.Visible() && slot.Dimension < 2 && !pieOnly && cs.Kind() == model.Cartesian
			switch slot.Dimension {
			case 0:
				a.input.Count = count
				a.input.Shifted = shifted
				a.names = categories
			case 1:
				a.input.Data = valueRange(cs, slot.Index, mode)
				if a.input.Scale.AxisType == geom.Category || a.input.Scale.AxisType == geom.Series {
					a.input.Count = count
				}
			default:
				a.input.Count = len(allSeries)
				a.input.Shifted = true
				for _, s := range allSeries {
					a.names = append(a.names, s.Name())
				}
			}
			out = append(out, a)
		}
	}
	return out
}

func sideOf(dim, index int, swapped bool) Side {
	horizontal := dim == 0
	if swapped {
		horizontal = !horizontal
	}
	switch {
	case horizontal && index == 0:
		return Bottom
	case horizontal:
		return Top
	case index == 0:
		return Left
	default:
		return Right
	}
}

// AttachedIndex returns the value axis index a series is scaled against:
// its attached index if cs has an axis there, else the primary axis.
func AttachedIndex(cs *model.CoordinateSystem, s *model.DataSeries) int {
	i := s.AttachedAxisIndex()
	if i <= 0 {
		return 0
	}
	if a, err := cs.AxisByDimension(1, i); err != nil || a == nil {
		return 0
	}
	return i
}

// valueRange is the data extent of the series attached to value axis
// index, with stacking applied.
func valueRange(cs *model.CoordinateSystem, index int, mode Mode) scaling.Range {
	var r scaling.Range
	for _, ct := range cs.ChartTypes() {
		if ct.Kind() == model.Pie {
			continue
		}
		var attached []*model.DataSeries
		for _, s := range ct.Series() {
			if AttachedIndex(cs, s) == index {
				attached = append(attached, s)
			}
		}
		if len(attached) == 0 {
			continue
		}
		for _, values := range frames(attached, mode) {
			switch ct.Stacking() {
			case model.PercentStacked:
				r.Include(0)
				r.Include(100)
				for _, t := range StackTotals(values) {
					if t.Neg < 0 {
						r.Include(-100)
					}
				}
			case model.Stacked:
				for _, t := range StackTotals(values) {
					r.Include(t.Pos)
					r.Include(t.Neg)
				}
			default:
				for _, vs := range values {
					r.IncludeAll(vs)
				}
			}
		}
	}
	return r
}

// frames returns the value sets to scale over: the static values, or in
// time-based mode the values of every frame as well.
func frames(series []*model.DataSeries, mode Mode) [][][]float64 {
	static := make([][]float64, len(series))
	for i, s := range series {
		static[i] = s.Values()
	}
	out := [][][]float64{static}
	if !mode.TimeBased {
		return out
	}
	n := 0
	for _, s := range series {
		n = max(n, len(s.TimeValues()))
	}
	for k := 0; k < n; k++ {
		frame := make([][]float64, len(series))
		for i, s := range series {
			if tv := s.TimeValues(); k < len(tv) {
				frame[i] = tv[k]
			} else {
				frame[i] = s.Values()
			}
		}
		out = append(out, frame)
	}
	return out
}

// StackTotal is the sum of the positive and the negative values stacked
// at one point.
type StackTotal struct {
	Pos, Neg float64
}

// StackTotals sums series values point by point. NaN values are skipped.
func StackTotals(series [][]float64) []StackTotal {
	n := 0
	for _, vs := range series {
		n = max(n, len(vs))
	}
	out := make([]StackTotal, n)
	for _, vs := range series {
		for i, v := range vs {
			switch {
			case math.IsNaN(v) || math.IsInf(v, 0):
			case v >= 0:
				out[i].Pos += v
			default:
				out[i].Neg += v
			}
		}
	}
	return out
}

// resolveAxes resolves every axis against plot and returns the insets
// the drawn axes need around it.
func (e *Engine) resolveAxes(axes []*axisState, plot geom.Rect, page geom.Size) geom.Insets {
	var bands, over geom.Insets
	for _, a := range axes {
		a.FontSize = FontSize(a.Axis.Properties(), page)
		f := e.Font(a.FontSize)
		lineH := max(e.measurer.MeasureText("0", f).Height, a.FontSize)
		length := plot.Dx()
		if a.Side.Vertical() {
			length = plot.Dy()
		}
		in := a.input
		in.MaxTicks = 2
		if lineH > 0 {
			in.MaxTicks = max(int(length/(2*lineH)), 2)
		}
		a.Scale, a.Increment = scaling.Resolve(in)
		a.Ticks = scaling.Ticks(a.Scale, a.Increment, a.names)
		a.LabelSize = geom.Size{}
		a.Band = geom.Rect{}
		if !a.Drawn {
			continue
		}
		if a.Axis.ShowLabels() {
			for _, t := range a.Ticks {
				ts := e.measurer.MeasureText(t.Label, f)
				a.LabelSize.Width = max(a.LabelSize.Width, ts.Width)
				a.LabelSize.Height = max(a.LabelSize.Height, ts.Height)
				// Labels centred on ticks near the ends stick out of the plot.
				c := a.Coord(t.Value, plot)
				if a.Side.Vertical() {
					over.Top = max(over.Top, positive(ts.Height/2-(c-plot.Min.Y)))
					over.Bottom = max(over.Bottom, positive(ts.Height/2-(plot.Max.Y-c)))
				} else {
					over.Left = max(over.Left, positive(ts.Width/2-(c-plot.Min.X)))
					over.Right = max(over.Right, positive(ts.Width/2-(plot.Max.X-c)))
				}
			}
		}
		extent := float32(TickLength + LabelGap)
		if a.Side.Vertical() {
			extent += a.LabelSize.Width
		} else {
			extent += a.LabelSize.Height
		}
		if a.title != "" {
			extent += e.measurer.MeasureText(a.title, f).Height + LabelGap
		}
		placeBand(a, plot, &bands, extent)
	}
	return geom.Insets{
		Top:    max(bands.Top, over.Top),
		Bottom: max(bands.Bottom, over.Bottom),
		Left:   max(bands.Left, over.Left),
		Right:  max(bands.Right, over.Right),
	}
}

// positive returns v, or 0 for negative and non-finite values.
func positive(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || v < 0 {
		return 0
	}
	return v
}

// placeBand stacks the band of a outside plot on its side and grows taken
// accordingly.
func placeBand(a *axisState, plot geom.Rect, taken *geom.Insets, extent float32) {
	switch a.Side {
	case Bottom:
		a.Band = geom.Rect{Min: f32.Pt(plot.Min.X, plot.Max.Y+taken.Bottom), Max: f32.Pt(plot.Max.X, plot.Max.Y+taken.Bottom+extent)}
		taken.Bottom += extent
	case Top:
		a.Band = geom.Rect{Min: f32.Pt(plot.Min.X, plot.Min.Y-taken.Top-extent), Max: f32.Pt(plot.Max.X, plot.Min.Y-taken.Top)}
		taken.Top += extent
	case Left:
		a.Band = geom.Rect{Min: f32.Pt(plot.Min.X-taken.Left-extent, plot.Min.Y), Max: f32.Pt(plot.Min.X-taken.Left, plot.Max.Y)}
		taken.Left += extent
	case Right:
		a.Band = geom.Rect{Min: f32.Pt(plot.Max.X+taken.Right, plot.Min.Y), Max: f32.Pt(plot.Max.X+taken.Right+extent, plot.Max.Y)}
		taken.Right += extent
	}
}
