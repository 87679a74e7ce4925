package model

import (
	"image/color"
	"slices"
)

// DataSeries is one row of values plotted by a chart type.
type DataSeries struct {
	bc           Broadcaster
	name         string
	values       []float64
	timeValues   [][]float64
	color        color.NRGBA
	axisIndex    int
	showValues   bool
	shadow       bool
	transparency uint8
	props        *PropertySet
}

var _ Observable = (*DataSeries)(nil)

// NewDataSeries returns a series with the given point values. NaN values
// are treated as missing points.
func NewDataSeries(name string, values ...float64) *DataSeries {
	s := &DataSeries{
		name:   name,
		values: values,
	}
	s.props = newPropertySet(s, s.bc.Fire, charHeight(8), referencePageSize)
	return s
}

func (s *DataSeries) Subscribe(l Listener) Handle { return s.bc.Subscribe(l) }
func (s *DataSeries) Unsubscribe(h Handle)        { s.bc.Unsubscribe(h) }

// Properties returns the properties of the series' data labels.
func (s *DataSeries) Properties() *PropertySet { return s.props }

func (s *DataSeries) Name() string { return s.name }

func (s *DataSeries) SetName(name string) {
	s.name = name
	s.bc.Fire(s)
}

// Values returns the point values. The slice must not be modified.
func (s *DataSeries) Values() []float64 { return s.values }

func (s *DataSeries) SetValues(values []float64) {
	s.values = values
	s.bc.Fire(s)
}

// TimeValues returns the point values of every time frame.
func (s *DataSeries) TimeValues() [][]float64 { return s.timeValues }

// SetTimeValues sets the per frame point values used in time-based mode.
func (s *DataSeries) SetTimeValues(frames [][]float64) {
	s.timeValues = frames
	s.bc.Fire(s)
}

// Color returns the series color. The zero color selects a palette color
// by series index.
func (s *DataSeries) Color() color.NRGBA { return s.color }

func (s *DataSeries) SetColor(c color.NRGBA) {
	s.color = c
	s.bc.Fire(s)
}

// AttachedAxisIndex is the index of the value axis the series is scaled
// against: 0 for the primary axis, 1 for the secondary one.
func (s *DataSeries) AttachedAxisIndex() int { return s.axisIndex }

func (s *DataSeries) SetAttachedAxisIndex(i int) {
	s.axisIndex = i
	s.bc.Fire(s)
}

func (s *DataSeries) ShowValues() bool { return s.showValues }

func (s *DataSeries) SetShowValues(v bool) {
	s.showValues = v
	s.bc.Fire(s)
}

func (s *DataSeries) Shadow() bool { return s.shadow }

func (s *DataSeries) SetShadow(v bool) {
	s.shadow = v
	s.bc.Fire(s)
}

// Transparency is a percentage in [0, 100].
func (s *DataSeries) Transparency() uint8 { return s.transparency }

func (s *DataSeries) SetTransparency(t uint8) {
	s.transparency = min(t, 100)
	s.bc.Fire(s)
}

// Clone returns a deep copy of s without its subscribers.
func (s *DataSeries) Clone() *DataSeries {
	c := &DataSeries{
		name:         s.name,
		values:       slices.Clone(s.values),
		color:        s.color,
		axisIndex:    s.axisIndex,
		showValues:   s.showValues,
		shadow:       s.shadow,
		transparency: s.transparency,
	}
	if s.timeValues != nil {
		c.timeValues = make([][]float64, len(s.timeValues))
		for i, f := range s.timeValues {
			c.timeValues[i] = slices.Clone(f)
		}
	}
	c.props = s.props.clone(c, c.bc.Fire)
	return c
}

// Frame returns a copy of s whose values are those of time frame k. A
// series without time values returns a copy with its static values.
func (s *DataSeries) Frame(k int) *DataSeries {
	c := s.Clone()
	c.timeValues = nil
	if k >= 0 && k < len(s.timeValues) {
		c.values = slices.Clone(s.timeValues[k])
	}
	return c
}
