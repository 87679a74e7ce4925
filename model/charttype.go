package model

import (
	"fmt"
	"slices"
	"strings"

	"git.sr.ht/~whereswaldon/chartview/errkind"
)

// ChartKind is the way a chart type draws its series.
type ChartKind uint8

const (
	Bar ChartKind = iota
	Line
	Area
	Scatter
	Pie
)

var chartKindNames = []string{"bar", "line", "area", "scatter", "pie"}

func (k ChartKind) String() string {
	if int(k) < len(chartKindNames) {
		return chartKindNames[k]
	}
	return "unknown"
}

// ParseChartKind converts a chart kind name back to its value.
func ParseChartKind(s string) (ChartKind, error) {
	i := slices.Index(chartKindNames, strings.ToLower(s))
	if i < 0 {
		return 0, fmt.Errorf("unknown chart kind %q", s)
	}
	return ChartKind(i), nil
}

// Stacking controls how the series of a chart type combine.
type Stacking uint8

const (
	NotStacked Stacking = iota
	Stacked
	PercentStacked
)

func (s Stacking) String() string {
	switch s {
	case Stacked:
		return "stacked"
	case PercentStacked:
		return "percent"
	default:
		return "none"
	}
}

// ParseStacking converts a stacking name back to its value. The empty
// string means NotStacked.
func ParseStacking(s string) (Stacking, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return NotStacked, nil
	case "stacked":
		return Stacked, nil
	case "percent":
		return PercentStacked, nil
	default:
		return 0, fmt.Errorf("unknown stacking %q", s)
	}
}

// ChartType is an ordered list of series drawn the same way.
type ChartType struct {
	bc            Broadcaster
	kind          ChartKind
	stacking      Stacking
	series        []*DataSeries
	seriesHandles []Handle
}

var _ Observable = (*ChartType)(nil)

func NewChartType(kind ChartKind) *ChartType {
	return &ChartType{kind: kind}
}

func (c *ChartType) Subscribe(l Listener) Handle { return c.bc.Subscribe(l) }
func (c *ChartType) Unsubscribe(h Handle)        { c.bc.Unsubscribe(h) }

func (c *ChartType) Kind() ChartKind { return c.kind }

func (c *ChartType) Stacking() Stacking { return c.stacking }

func (c *ChartType) SetStacking(s Stacking) {
	c.stacking = s
	c.bc.Fire(c)
}

// Series returns the series in drawing order.
func (c *ChartType) Series() []*DataSeries {
	return slices.Clone(c.series)
}

// AddSeries appends s. Adding a series twice fails with DuplicateEntry.
func (c *ChartType) AddSeries(s *DataSeries) error {
	if slices.Contains(c.series, s) {
		return errkind.DuplicateEntry.New("data series " + s.Name())
	}
	c.series = append(c.series, s)
	c.seriesHandles = append(c.seriesHandles, forward(s, &c.bc))
	c.bc.Fire(c)
	return nil
}

// RemoveSeries removes s, failing with NotFound if it is not present.
func (c *ChartType) RemoveSeries(s *DataSeries) error {
	i := slices.Index(c.series, s)
	if i < 0 {
		return errkind.NotFound.New("data series " + s.Name())
	}
	s.Unsubscribe(c.seriesHandles[i])
	c.series = slices.Delete(c.series, i, i+1)
	c.seriesHandles = slices.Delete(c.seriesHandles, i, i+1)
	c.bc.Fire(c)
	return nil
}

// Clone deep copies c and its series.
func (c *ChartType) Clone() *ChartType {
	out := &ChartType{kind: c.kind, stacking: c.stacking}
	for _, s := range c.series {
		cs := s.Clone()
		out.series = append(out.series, cs)
		out.seriesHandles = append(out.seriesHandles, forward(cs, &out.bc))
	}
	return out
}
