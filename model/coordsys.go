package model

import (
	"fmt"
	"slices"

	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/geom"
)

// CoordinateSystemKind selects the geometry of a coordinate system.
type CoordinateSystemKind uint8

const (
	Cartesian CoordinateSystemKind = iota
	Polar
)

func (k CoordinateSystemKind) String() string {
	if k == Polar {
		return "polar"
	}
	return "cartesian"
}

// CoordinateSystem owns the axes of a diagram, indexed by dimension and
// then by axis index (0 primary, 1 secondary), and the chart types drawn
// in it.
type CoordinateSystem struct {
	bc               Broadcaster
	kind             CoordinateSystemKind
	dimension        int
	axes             [][]*Axis
	axisHandles      [][]Handle
	chartTypes       []*ChartType
	chartTypeHandles []Handle
	props            *PropertySet
}

var _ Observable = (*CoordinateSystem)(nil)

// NewCoordinateSystem returns a coordinate system of 2 or 3 dimensions
// with a primary axis in every dimension: a category axis for dimension
// 0, a value axis for dimension 1 and a series axis for dimension 2.
func NewCoordinateSystem(kind CoordinateSystemKind, dimension int) (*CoordinateSystem, error) {
	if dimension != 2 && dimension != 3 {
		return nil, errkind.OutOfRange.New(fmt.Sprintf("dimension count %d", dimension))
	}
	cs := &CoordinateSystem{
		kind:        kind,
		dimension:   dimension,
		axes:        make([][]*Axis, dimension),
		axisHandles: make([][]Handle, dimension),
	}
	for dim := 0; dim < dimension; dim++ {
		a := NewAxis(DefaultAxisType(dim))
		cs.axes[dim] = []*Axis{a}
		cs.axisHandles[dim] = []Handle{forward(a, &cs.bc)}
	}
	cs.props = newPropertySet(cs, cs.bc.Fire, valueProperty(PropSwapXAndYAxis, false))
	return cs, nil
}

// DefaultAxisType returns the type of the primary axis a new coordinate
// system creates for dim.
func DefaultAxisType(dim int) geom.AxisType {
	switch dim {
	case 0:
		return geom.Category
	case 1:
		return geom.RealNumber
	default:
		return geom.Series
	}
}

func (c *CoordinateSystem) Subscribe(l Listener) Handle { return c.bc.Subscribe(l) }
func (c *CoordinateSystem) Unsubscribe(h Handle)        { c.bc.Unsubscribe(h) }

// Properties returns the coordinate system's property set.
func (c *CoordinateSystem) Properties() *PropertySet { return c.props }

func (c *CoordinateSystem) Kind() CoordinateSystemKind { return c.kind }

// Dimension returns the number of dimensions, 2 or 3.
func (c *CoordinateSystem) Dimension() int { return c.dimension }

// SwapXAndYAxis reports whether dimension 0 is drawn vertically.
func (c *CoordinateSystem) SwapXAndYAxis() bool {
	return c.props.Bool(PropSwapXAndYAxis)
}

// SetSwapXAndYAxis exchanges the directions of the first two dimensions.
// It cannot fail: the property is declared by NewCoordinateSystem and the
// value is always a bool.
func (c *CoordinateSystem) SetSwapXAndYAxis(v bool) {
	if err := c.props.Set(PropSwapXAndYAxis, v); err != nil {
		panic(err)
	}
}

func (c *CoordinateSystem) checkDimension(dim int) error {
	if dim < 0 || dim >= c.dimension {
		return errkind.OutOfRange.New(fmt.Sprintf("dimension %d of %d", dim, c.dimension))
	}
	return nil
}

// SetAxisByDimension places axis in slot [dim][index], growing the slot
// list with absent (nil) entries as needed. The primary slot cannot be
// emptied. A notification fires even when the same axis is set again.
func (c *CoordinateSystem) SetAxisByDimension(dim int, axis *Axis, index int) error {
	if err := c.checkDimension(dim); err != nil {
		return err
	}
	if index < 0 {
		return errkind.OutOfRange.New(fmt.Sprintf("axis index %d", index))
	}
	if axis == nil && index == 0 {
		return errkind.OutOfRange.New(fmt.Sprintf("primary axis of dimension %d cannot be removed", dim))
	}
	for len(c.axes[dim]) <= index {
		c.axes[dim] = append(c.axes[dim], nil)
		c.axisHandles[dim] = append(c.axisHandles[dim], 0)
	}
	if old := c.axes[dim][index]; old != nil {
		old.Unsubscribe(c.axisHandles[dim][index])
		c.axisHandles[dim][index] = 0
	}
	c.axes[dim][index] = axis
	if axis != nil {
		c.axisHandles[dim][index] = forward(axis, &c.bc)
	}
	c.bc.Fire(c)
	return nil
}

// AxisByDimension returns the axis in slot [dim][index]. Absent slots
// below the maximum index return a nil axis and no error.
func (c *CoordinateSystem) AxisByDimension(dim, index int) (*Axis, error) {
	if err := c.checkDimension(dim); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(c.axes[dim]) {
		return nil, errkind.OutOfRange.New(fmt.Sprintf("axis index %d of dimension %d (maximum %d)", index, dim, len(c.axes[dim])-1))
	}
	return c.axes[dim][index], nil
}

// MaximumAxisIndexByDimension returns the highest valid axis index of dim.
func (c *CoordinateSystem) MaximumAxisIndexByDimension(dim int) (int, error) {
	if err := c.checkDimension(dim); err != nil {
		return 0, err
	}
	return len(c.axes[dim]) - 1, nil
}

// AxisSlot identifies the position of an axis in a coordinate system.
type AxisSlot struct {
	Dimension, Index int
	Axis             *Axis
}

// Axes returns every present axis, ordered by dimension then index.
func (c *CoordinateSystem) Axes() []AxisSlot {
	var out []AxisSlot
	for dim, slots := range c.axes {
		for i, a := range slots {
			if a != nil {
				out = append(out, AxisSlot{Dimension: dim, Index: i, Axis: a})
			}
		}
	}
	return out
}

// ChartTypes returns the chart types in insertion order.
func (c *CoordinateSystem) ChartTypes() []*ChartType {
	return slices.Clone(c.chartTypes)
}

// AddChartType appends ct, failing with DuplicateEntry if ct is already
// attached.
func (c *CoordinateSystem) AddChartType(ct *ChartType) error {
	if slices.Contains(c.chartTypes, ct) {
		return errkind.DuplicateEntry.New("chart type " + ct.Kind().String())
	}
	c.chartTypes = append(c.chartTypes, ct)
	c.chartTypeHandles = append(c.chartTypeHandles, forward(ct, &c.bc))
	c.bc.Fire(c)
	return nil
}

// RemoveChartType detaches ct, failing with NotFound if it is not
// attached.
func (c *CoordinateSystem) RemoveChartType(ct *ChartType) error {
	i := slices.Index(c.chartTypes, ct)
	if i < 0 {
		return errkind.NotFound.New("chart type " + ct.Kind().String())
	}
	ct.Unsubscribe(c.chartTypeHandles[i])
	c.chartTypes = slices.Delete(c.chartTypes, i, i+1)
	c.chartTypeHandles = slices.Delete(c.chartTypeHandles, i, i+1)
	c.bc.Fire(c)
	return nil
}

// SetChartTypes replaces the chart type list with cts and fires a single
// notification.
func (c *CoordinateSystem) SetChartTypes(cts []*ChartType) error {
	for i, ct := range cts {
		if slices.Contains(cts[:i], ct) {
			return errkind.DuplicateEntry.New("chart type " + ct.Kind().String())
		}
	}
	for i, ct := range c.chartTypes {
		ct.Unsubscribe(c.chartTypeHandles[i])
	}
	c.chartTypes = slices.Clone(cts)
	c.chartTypeHandles = make([]Handle, len(cts))
	for i, ct := range cts {
		c.chartTypeHandles[i] = forward(ct, &c.bc)
	}
	c.bc.Fire(c)
	return nil
}

// Clone deep copies the coordinate system. The clone forwards
// notifications of its own axes and chart types only.
func (c *CoordinateSystem) Clone() *CoordinateSystem {
	out := &CoordinateSystem{
		kind:        c.kind,
		dimension:   c.dimension,
		axes:        make([][]*Axis, len(c.axes)),
		axisHandles: make([][]Handle, len(c.axes)),
	}
	for dim, slots := range c.axes {
		out.axes[dim] = make([]*Axis, len(slots))
		out.axisHandles[dim] = make([]Handle, len(slots))
		for i, a := range slots {
			if a == nil {
				continue
			}
			ca := a.Clone()
			out.axes[dim][i] = ca
			out.axisHandles[dim][i] = forward(ca, &out.bc)
		}
	}
	for _, ct := range c.chartTypes {
		cct := ct.Clone()
		out.chartTypes = append(out.chartTypes, cct)
		out.chartTypeHandles = append(out.chartTypeHandles, forward(cct, &out.bc))
	}
	out.props = c.props.clone(out, out.bc.Fire)
	return out
}
