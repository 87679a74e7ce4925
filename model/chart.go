package model

import (
	"image/color"
	"slices"

	"git.sr.ht/~whereswaldon/chartview/errkind"
)

// Diagram is the plotting area of a chart: its categories and the
// coordinate systems drawn in it.
type Diagram struct {
	bc         Broadcaster
	categories []string
	systems    []*CoordinateSystem
	handles    []Handle
	wall       color.NRGBA
}

var _ Observable = (*Diagram)(nil)

func NewDiagram(categories ...string) *Diagram {
	return &Diagram{
		categories: categories,
		wall:       color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
}

func (d *Diagram) Subscribe(l Listener) Handle { return d.bc.Subscribe(l) }
func (d *Diagram) Unsubscribe(h Handle)        { d.bc.Unsubscribe(h) }

// Categories returns the category labels of dimension 0.
func (d *Diagram) Categories() []string { return d.categories }

func (d *Diagram) SetCategories(c []string) {
	d.categories = c
	d.bc.Fire(d)
}

func (d *Diagram) WallColor() color.NRGBA { return d.wall }

func (d *Diagram) SetWallColor(c color.NRGBA) {
	d.wall = c
	d.bc.Fire(d)
}

// CoordinateSystems returns the coordinate systems in drawing order.
func (d *Diagram) CoordinateSystems() []*CoordinateSystem {
	return slices.Clone(d.systems)
}

func (d *Diagram) AddCoordinateSystem(cs *CoordinateSystem) error {
	if slices.Contains(d.systems, cs) {
		return errkind.DuplicateEntry.New("coordinate system")
	}
	d.systems = append(d.systems, cs)
	d.handles = append(d.handles, forward(cs, &d.bc))
	d.bc.Fire(d)
	return nil
}

func (d *Diagram) RemoveCoordinateSystem(cs *CoordinateSystem) error {
	i := slices.Index(d.systems, cs)
	if i < 0 {
		return errkind.NotFound.New("coordinate system")
	}
	cs.Unsubscribe(d.handles[i])
	d.systems = slices.Delete(d.systems, i, i+1)
	d.handles = slices.Delete(d.handles, i, i+1)
	d.bc.Fire(d)
	return nil
}

func (d *Diagram) Clone() *Diagram {
	out := &Diagram{
		categories: slices.Clone(d.categories),
		wall:       d.wall,
	}
	for _, cs := range d.systems {
		c := cs.Clone()
		out.systems = append(out.systems, c)
		out.handles = append(out.handles, forward(c, &out.bc))
	}
	return out
}

// Chart is the root of the model. A subscription on a Chart receives the
// notifications of every object beneath it.
type Chart struct {
	bc       Broadcaster
	title    *Title
	subtitle *Title
	legend   *Legend
	diagram  *Diagram

	titleH, subtitleH, legendH, diagramH Handle
}

var _ Observable = (*Chart)(nil)

// NewChart returns a chart drawing d with a visible legend and no titles.
func NewChart(d *Diagram) *Chart {
	c := &Chart{}
	c.diagram = d
	if d != nil {
		c.diagramH = forward(d, &c.bc)
	}
	c.legend = NewLegend()
	c.legendH = forward(c.legend, &c.bc)
	return c
}

func (c *Chart) Subscribe(l Listener) Handle { return c.bc.Subscribe(l) }
func (c *Chart) Unsubscribe(h Handle)        { c.bc.Unsubscribe(h) }

// attach replaces the forwarding subscription held in h.
func attach[T Observable](c *Chart, old, next T, h *Handle, isNil func(T) bool) {
	if !isNil(old) {
		old.Unsubscribe(*h)
		*h = 0
	}
	if !isNil(next) {
		*h = forward(next, &c.bc)
	}
}

func (c *Chart) Title() *Title { return c.title }

// SetTitle replaces the main title. A nil title removes it.
func (c *Chart) SetTitle(t *Title) {
	attach(c, c.title, t, &c.titleH, func(t *Title) bool { return t == nil })
	c.title = t
	c.bc.Fire(c)
}

func (c *Chart) Subtitle() *Title { return c.subtitle }

func (c *Chart) SetSubtitle(t *Title) {
	attach(c, c.subtitle, t, &c.subtitleH, func(t *Title) bool { return t == nil })
	c.subtitle = t
	c.bc.Fire(c)
}

func (c *Chart) Legend() *Legend { return c.legend }

func (c *Chart) SetLegend(l *Legend) {
	attach(c, c.legend, l, &c.legendH, func(l *Legend) bool { return l == nil })
	c.legend = l
	c.bc.Fire(c)
}

func (c *Chart) Diagram() *Diagram { return c.diagram }

func (c *Chart) SetDiagram(d *Diagram) {
	attach(c, c.diagram, d, &c.diagramH, func(d *Diagram) bool { return d == nil })
	c.diagram = d
	c.bc.Fire(c)
}

// WalkPropertySets calls fn for every object of the chart that carries a
// property set, in a fixed order: titles, legend, then per coordinate
// system its own set, its axes and its series.
func (c *Chart) WalkPropertySets(fn func(PropertyBag)) {
	if c.title != nil {
		fn(c.title)
	}
	if c.subtitle != nil {
		fn(c.subtitle)
	}
	if c.legend != nil {
		fn(c.legend)
	}
	if c.diagram == nil {
		return
	}
	for _, cs := range c.diagram.systems {
		fn(cs)
		for _, slot := range cs.Axes() {
			fn(slot.Axis)
		}
		for _, ct := range cs.chartTypes {
			for _, s := range ct.series {
				fn(s)
			}
		}
	}
}

// AllSeries returns every data series of the chart in drawing order.
func (c *Chart) AllSeries() []*DataSeries {
	if c.diagram == nil {
		return nil
	}
	var out []*DataSeries
	for _, cs := range c.diagram.systems {
		for _, ct := range cs.chartTypes {
			out = append(out, ct.series...)
		}
	}
	return out
}

// TimeFrameCount returns the number of time frames every series with time
// values can supply, or 0 if no series has any.
func (c *Chart) TimeFrameCount() int {
	n := -1
	for _, s := range c.AllSeries() {
		if len(s.timeValues) == 0 {
			continue
		}
		if n < 0 || len(s.timeValues) < n {
			n = len(s.timeValues)
		}
	}
	return max(n, 0)
}

// Clone deep copies the whole chart.
func (c *Chart) Clone() *Chart {
	var d *Diagram
	if c.diagram != nil {
		d = c.diagram.Clone()
	}
	out := NewChart(d)
	if c.legend != nil {
		out.legend.Unsubscribe(out.legendH)
		out.legend = c.legend.Clone()
		out.legendH = forward(out.legend, &out.bc)
	} else {
		out.legend.Unsubscribe(out.legendH)
		out.legend, out.legendH = nil, 0
	}
	if c.title != nil {
		out.title = c.title.Clone()
		out.titleH = forward(out.title, &out.bc)
	}
	if c.subtitle != nil {
		out.subtitle = c.subtitle.Clone()
		out.subtitleH = forward(out.subtitle, &out.bc)
	}
	return out
}
