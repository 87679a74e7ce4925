package geom

import "fmt"

// AxisType selects how an axis maps values to positions.
type AxisType uint8

const (
	Category AxisType = iota
	RealNumber
	Percent
	Series
	Date
)

func (a AxisType) String() string {
	switch a {
	case Category:
		return "category"
	case RealNumber:
		return "real"
	case Percent:
		return "percent"
	case Series:
		return "series"
	case Date:
		return "date"
	default:
		return "unknown"
	}
}

// ParseAxisType converts an axis type name back to its value.
func ParseAxisType(s string) (AxisType, error) {
	for t := Category; t <= Date; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown axis type %q", s)
}

// ScaleData is the scale an axis was configured with. Nil bounds are
// computed automatically from the data.
type ScaleData struct {
	Minimum, Maximum, Origin *float64
	AxisType                 AxisType
	Reverse                  bool
	Logarithmic              bool
}

// IncrementData is the configured tick spacing of an axis. A nil Distance
// is computed automatically.
type IncrementData struct {
	Distance     *float64
	SubIntervals int
}

// Float returns a pointer to v, for filling optional scale fields.
func Float(v float64) *float64 {
	return &v
}

// ExplicitScaleData is the resolved range of an axis after layout.
type ExplicitScaleData struct {
	Minimum, Maximum, Origin float64
	AxisType                 AxisType
	Reverse                  bool
	Logarithmic              bool
	// ShiftedCategoryPosition places categories between tick marks
	// instead of on them, as bar charts do.
	ShiftedCategoryPosition bool
}

// IsEmpty reports whether the scale is the degenerate scale produced for
// an empty diagram.
func (s ExplicitScaleData) IsEmpty() bool {
	return s.Minimum == s.Maximum
}

// Span returns the length of the range covered by the scale.
func (s ExplicitScaleData) Span() float64 {
	return s.Maximum - s.Minimum
}

// ExplicitIncrementData is the resolved tick spacing of an axis.
type ExplicitIncrementData struct {
	Distance     float64
	SubIntervals int
}

// IsEmpty reports whether no ticks can be produced from the increment.
func (i ExplicitIncrementData) IsEmpty() bool {
	return i.Distance <= 0
}
