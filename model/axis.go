package model

import (
	"git.sr.ht/~whereswaldon/chartview/geom"
)

// Axis is one axis of a coordinate system.
type Axis struct {
	bc         Broadcaster
	scale      geom.ScaleData
	increment  geom.IncrementData
	visible    bool
	showLabels bool
	showGrid   bool
	title      string
	props      *PropertySet
}

var _ Observable = (*Axis)(nil)

// NewAxis returns a visible axis of the given type with labels shown.
// Grid lines are on for value axes.
func NewAxis(t geom.AxisType) *Axis {
	a := &Axis{
		scale:      geom.ScaleData{AxisType: t},
		visible:    true,
		showLabels: true,
		showGrid:   t == geom.RealNumber || t == geom.Percent,
	}
	a.props = newPropertySet(a, a.bc.Fire, charHeight(9), referencePageSize)
	return a
}

func (a *Axis) Subscribe(l Listener) Handle { return a.bc.Subscribe(l) }
func (a *Axis) Unsubscribe(h Handle)        { a.bc.Unsubscribe(h) }

// Properties returns the axis' text properties.
func (a *Axis) Properties() *PropertySet { return a.props }

func (a *Axis) Scale() geom.ScaleData { return a.scale }

func (a *Axis) SetScale(s geom.ScaleData) {
	a.scale = s
	a.bc.Fire(a)
}

func (a *Axis) Increment() geom.IncrementData { return a.increment }

func (a *Axis) SetIncrement(i geom.IncrementData) {
	a.increment = i
	a.bc.Fire(a)
}

func (a *Axis) Visible() bool { return a.visible }

func (a *Axis) SetVisible(v bool) {
	a.visible = v
	a.bc.Fire(a)
}

func (a *Axis) ShowLabels() bool { return a.showLabels }

func (a *Axis) SetShowLabels(v bool) {
	a.showLabels = v
	a.bc.Fire(a)
}

func (a *Axis) ShowGrid() bool { return a.showGrid }

func (a *Axis) SetShowGrid(v bool) {
	a.showGrid = v
	a.bc.Fire(a)
}

func (a *Axis) Title() string { return a.title }

func (a *Axis) SetTitle(t string) {
	a.title = t
	a.bc.Fire(a)
}

// Clone returns a copy of a without its subscribers.
func (a *Axis) Clone() *Axis {
	c := &Axis{
		scale:      a.scale,
		increment:  a.increment,
		visible:    a.visible,
		showLabels: a.showLabels,
		showGrid:   a.showGrid,
		title:      a.title,
	}
	c.scale.Minimum = cloneFloat(a.scale.Minimum)
	c.scale.Maximum = cloneFloat(a.scale.Maximum)
	c.scale.Origin = cloneFloat(a.scale.Origin)
	c.increment.Distance = cloneFloat(a.increment.Distance)
	c.props = a.props.clone(c, c.bc.Fire)
	return c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
