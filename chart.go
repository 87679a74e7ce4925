package main

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/exp/shiny/materialdesign/icons"

	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/shape"
	"git.sr.ht/~whereswaldon/chartview/view"
)

var pauseIcon = func() *widget.Icon {
	icon, _ := widget.NewIcon(icons.AVPause)
	return icon
}()

var playIcon = func() *widget.Icon {
	icon, _ := widget.NewIcon(icons.AVPlayArrow)
	return icon
}()

// ChartView draws the shape tree of a view and reports what the pointer
// hovers.
type ChartView struct {
	view     *view.View
	log      zerolog.Logger
	registry *prometheus.Registry
	pauseBtn widget.Clickable
	err      error

	// hover gesture state
	pos       f32.Point
	isHovered bool
}

// NewChartView wraps v. Its metrics are added to registry if it is not
// nil.
func NewChartView(v *view.View, log zerolog.Logger, registry *prometheus.Registry) *ChartView {
	c := &ChartView{view: v, log: log, registry: registry}
	if registry != nil {
		for _, col := range v.Collectors() {
			if err := registry.Register(col); err != nil {
				log.Warn().Err(err).Msg("registering view metrics")
			}
		}
	}
	return c
}

// Close detaches the chart view from its model.
func (c *ChartView) Close() {
	if c.registry != nil {
		for _, col := range c.view.Collectors() {
			c.registry.Unregister(col)
		}
	}
	c.view.Close()
}

func (c *ChartView) Update(gtx C) {
	if c.pauseBtn.Clicked(gtx) {
		if c.view.TimeBased() {
			c.view.DisableTimeBased()
		} else if err := c.view.EnableTimeBased(); err != nil {
			c.log.Info().Err(err).Msg("cannot play chart")
		}
	}
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target: c,
			Kinds:  pointer.Enter | pointer.Leave | pointer.Move,
		})
		if !ok {
			break
		}
		switch ev := ev.(type) {
		case pointer.Event:
			switch ev.Kind {
			case pointer.Enter:
				c.isHovered = true
				c.pos = ev.Position
			case pointer.Leave, pointer.Cancel:
				c.isHovered = false
			case pointer.Move:
				c.pos = ev.Position
			}
		}
	}
}

// Layout fills the constraints with the chart. The view is rebuilt at
// the size of the constraints when it is not clean.
func (c *ChartView) Layout(gtx C, th *material.Theme) D {
	c.Update(gtx)
	size := gtx.Constraints.Max
	c.view.SetPageSize(geom.Size{Width: float32(size.X), Height: float32(size.Y)})
	if err := c.view.Update(); err != nil {
		if c.err == nil || c.err.Error() != err.Error() {
			c.log.Error().Err(err).Msg("rebuilding chart")
		}
		c.err = err
	} else {
		c.err = nil
	}

	defer clip.Rect{Max: size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, c)
	if tree := c.view.Tree(); tree != nil {
		painter{gtx: gtx, th: th}.paint(tree.Root(), shape.Effect{})
	}
	if c.isHovered {
		if cid, ok := c.view.ObjectAt(c.pos); ok {
			c.layoutTooltip(gtx, th, cid)
		}
	}
	return D{Size: size}
}

// PlayButton toggles the time-based player.
func (c *ChartView) PlayButton(gtx C, th *material.Theme) D {
	icon, desc := playIcon, "Play"
	if c.view.TimeBased() {
		icon, desc = pauseIcon, "Pause"
	}
	btn := material.IconButton(th, &c.pauseBtn, icon, desc)
	btn.Size = 20
	btn.Inset = layout.UniformInset(6)
	if c.view.Chart().TimeFrameCount() == 0 {
		gtx = gtx.Disabled()
	}
	return btn.Layout(gtx)
}

// Status describes the displayed frame.
func (c *ChartView) Status() string {
	if c.err != nil {
		return c.err.Error()
	}
	if k, on := c.view.DisplayedFrame(); on {
		return "frame " + strconv.Itoa(k+1) + "/" + strconv.Itoa(c.view.Chart().TimeFrameCount())
	}
	return ""
}

func (c *ChartView) layoutTooltip(gtx C, th *material.Theme, cid shape.CID) {
	label := material.Body2(th, cid.String())
	label.MaxLines = 1
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	macro := op.Record(gtx.Ops)
	dims := layout.Background{}.Layout(gtx,
		func(gtx C) D {
			paint.FillShape(gtx.Ops, tooltipBg, clip.Rect{Max: gtx.Constraints.Min}.Op())
			return D{Size: gtx.Constraints.Min}
		},
		func(gtx C) D {
			return layout.UniformInset(6).Layout(gtx, label.Layout)
		},
	)
	call := macro.Stop()
	gtx.Constraints = origConstraints

	pos := image.Pt(int(c.pos.X)+gtx.Dp(12), int(c.pos.Y)+gtx.Dp(12))
	if over := pos.X + dims.Size.X - gtx.Constraints.Max.X; over > 0 {
		pos.X -= over
	}
	if over := pos.Y + dims.Size.Y - gtx.Constraints.Max.Y; over > 0 {
		pos.Y = int(c.pos.Y) - dims.Size.Y
	}
	defer op.Offset(pos).Push(gtx.Ops).Pop()
	call.Add(gtx.Ops)
}

// painter draws shapes with gio operations. Shape coordinates are
// pixels.
type painter struct {
	gtx C
	th  *material.Theme
}

// paint draws s and its children. Effects of a group apply to everything
// below it; a shadow is the whole group drawn offset in shadowColor.
func (p painter) paint(s *shape.Shape, fx shape.Effect) {
	if s.Effect.Active() {
		fx = s.Effect
		if fx.Shadow {
			stack := op.Offset(image.Pt(3, 3)).Push(p.gtx.Ops)
			p.silhouette(s)
			stack.Pop()
		}
	}
	if s.Kind != shape.Group {
		fill, stroke := s.Fill, s.Stroke
		if fx.Transparency > 0 {
			fill = withAlpha(fill, 255-fx.Transparency)
			stroke = withAlpha(stroke, 255-fx.Transparency)
		}
		p.draw(s, fill, stroke)
	}
	for _, c := range s.Children {
		p.paint(c, fx)
	}
}

func (p painter) silhouette(s *shape.Shape) {
	if s.Kind != shape.Group && s.Kind != shape.Text {
		p.draw(s, shadowColor, shadowColor)
	}
	for _, c := range s.Children {
		p.silhouette(c)
	}
}

func (p painter) draw(s *shape.Shape, fill, stroke color.NRGBA) {
	ops := p.gtx.Ops
	switch s.Kind {
	case shape.Rect:
		if fill.A > 0 {
			paint.FillShape(ops, fill, clip.Rect(pixelRect(s.Bounds)).Op())
		}
		if stroke.A > 0 && s.StrokeWidth > 0 {
			p.strokePath(polygonPath(ops, corners(s.Bounds), true), stroke, s.StrokeWidth)
		}
	case shape.Polygon:
		if len(s.Points) < 3 {
			return
		}
		if fill.A > 0 {
			paint.FillShape(ops, fill, clip.Outline{Path: polygonPath(ops, s.Points, true)}.Op())
		}
		if stroke.A > 0 && s.StrokeWidth > 0 {
			p.strokePath(polygonPath(ops, s.Points, true), stroke, s.StrokeWidth)
		}
	case shape.Polyline, shape.Line:
		if len(s.Points) < 2 {
			return
		}
		c := stroke
		if c.A == 0 {
			c = fill
		}
		p.strokePath(polygonPath(ops, s.Points, false), c, max(s.StrokeWidth, 1))
	case shape.Symbol:
		paint.FillShape(ops, fill, clip.Ellipse(pixelRect(s.Bounds)).Op(ops))
	case shape.Sector:
		paint.FillShape(ops, fill, clip.Outline{Path: sectorPath(ops, s)}.Op())
		if stroke.A > 0 {
			p.strokePath(sectorPath(ops, s), stroke, max(s.StrokeWidth, 1))
		}
	case shape.Text:
		p.text(s, fill)
	}
}

func (p painter) strokePath(path clip.PathSpec, c color.NRGBA, width float32) {
	paint.FillShape(p.gtx.Ops, c, clip.Stroke{Path: path, Width: width}.Op())
}

func (p painter) text(s *shape.Shape, c color.NRGBA) {
	if s.Text == "" || s.FontSize <= 0 {
		return
	}
	gtx := p.gtx
	if c.A == 0 {
		c = p.th.Fg
	}
	label := material.Label(p.th, unit.Sp(s.FontSize/gtx.Metric.PxPerSp), s.Text)
	label.Color = c
	label.MaxLines = 1
	label.Alignment = text.Middle

	w, h := s.Bounds.Dx(), s.Bounds.Dy()
	if s.Rotation != 0 {
		// Bounds cover the rotated text; lay it out unrotated around the
		// same center.
		w, h = h, w
	}
	center := s.Bounds.Center()
	gtx.Constraints = layout.Exact(image.Pt(int(math.Ceil(float64(w))), int(math.Ceil(float64(h)))))
	tr := f32.Affine2D{}.
		Offset(f32.Pt(center.X-w/2, center.Y-h/2)).
		Rotate(center, s.Rotation*math.Pi/180)
	defer op.Affine(tr).Push(gtx.Ops).Pop()
	label.Layout(gtx)
}

func pixelRect(r geom.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(float64(r.Min.X))), int(math.Round(float64(r.Min.Y))),
		int(math.Round(float64(r.Max.X))), int(math.Round(float64(r.Max.Y))),
	)
}

func corners(r geom.Rect) []f32.Point {
	return []f32.Point{r.Min, f32.Pt(r.Max.X, r.Min.Y), r.Max, f32.Pt(r.Min.X, r.Max.Y)}
}

func polygonPath(ops *op.Ops, pts []f32.Point, closed bool) clip.PathSpec {
	var p clip.Path
	p.Begin(ops)
	p.MoveTo(pts[0])
	for _, pt := range pts[1:] {
		p.LineTo(pt)
	}
	if closed {
		p.Close()
	}
	return p.End()
}

// sectorPath approximates a ring sector with one segment per three
// degrees.
func sectorPath(ops *op.Ops, s *shape.Shape) clip.PathSpec {
	steps := max(int(math.Ceil(float64(s.Sweep)/3)), 1)
	at := func(r, deg float32) f32.Point {
		rad := float64(deg) * math.Pi / 180
		return s.Center.Add(f32.Pt(r*float32(math.Cos(rad)), r*float32(math.Sin(rad))))
	}
	var p clip.Path
	p.Begin(ops)
	p.MoveTo(at(s.InnerRadius, s.StartAngle))
	for i := 0; i <= steps; i++ {
		p.LineTo(at(s.Radius, s.StartAngle+s.Sweep*float32(i)/float32(steps)))
	}
	if s.InnerRadius > 0 {
		for i := steps; i >= 0; i-- {
			p.LineTo(at(s.InnerRadius, s.StartAngle+s.Sweep*float32(i)/float32(steps)))
		}
	}
	p.Close()
	return p.End()
}
