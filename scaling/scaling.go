// Package scaling resolves the automatic parts of an axis' scale and
// increment into explicit values, and derives tick positions and labels
// from them.
package scaling

import (
	"math"
	"strconv"

	"git.sr.ht/~whereswaldon/chartview/geom"
)

// maxTickCount bounds the ticks generated for a single axis no matter how
// small a user supplied distance is.
const maxTickCount = 1000

// Range is the extent of the data scaled against an axis.
type Range struct {
	Min, Max float64
	Valid    bool
}

// Include extends r to cover v. NaN and infinite values are ignored.
func (r *Range) Include(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if !r.Valid {
		r.Min, r.Max, r.Valid = v, v, true
		return
	}
	r.Min = math.Min(r.Min, v)
	r.Max = math.Max(r.Max, v)
}

func (r *Range) IncludeAll(vs []float64) {
	for _, v := range vs {
		r.Include(v)
	}
}

// Input describes one axis to resolve.
type Input struct {
	Scale     geom.ScaleData
	Increment geom.IncrementData
	// Data is the extent of the values on a value axis.
	Data Range
	// Count is the number of categories on a category axis, or the number
	// of series on a series axis.
	Count int
	// Shifted places categories in the middle of their slot, as bars need.
	Shifted bool
	// MaxTicks is the largest number of main intervals the axis has room
	// for. Values below 2 are raised to 2.
	MaxTicks int
}

// Resolve computes the explicit scale and increment of an axis.
func Resolve(in Input) (geom.ExplicitScaleData, geom.ExplicitIncrementData) {
	if in.MaxTicks < 2 {
		in.MaxTicks = 2
	}
	switch in.Scale.AxisType {
	case geom.Category, geom.Series:
		return resolveDiscrete(in)
	case geom.Percent:
		if !in.Scale.Logarithmic {
			in.Data = Range{Min: 0, Max: 100, Valid: true}
		}
	}
	if in.Scale.Logarithmic {
		return resolveLog(in)
	}
	return resolveLinear(in)
}

func resolveDiscrete(in Input) (geom.ExplicitScaleData, geom.ExplicitIncrementData) {
	s := geom.ExplicitScaleData{
		AxisType:                in.Scale.AxisType,
		Reverse:                 in.Scale.Reverse,
		ShiftedCategoryPosition: in.Shifted,
	}
	n := max(in.Count, 1)
	if in.Shifted {
		s.Maximum = float64(n)
	} else {
		s.Maximum = float64(max(n-1, 1))
	}
	s.Origin = s.Minimum
	return s, geom.ExplicitIncrementData{Distance: 1}
}

func resolveLinear(in Input) (geom.ExplicitScaleData, geom.ExplicitIncrementData) {
	s := geom.ExplicitScaleData{
		AxisType: in.Scale.AxisType,
		Reverse:  in.Scale.Reverse,
	}
	lo, hi := 0.0, 1.0
	if in.Data.Valid {
		lo, hi = in.Data.Min, in.Data.Max
		if in.Scale.Minimum == nil && lo > 0 {
			lo = 0
		}
		if in.Scale.Maximum == nil && hi < 0 {
			hi = 0
		}
	}
	if in.Scale.Minimum != nil {
		lo = *in.Scale.Minimum
	}
	if in.Scale.Maximum != nil {
		hi = *in.Scale.Maximum
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		if lo == 0 {
			hi = 1
		} else {
			pad := math.Abs(lo) / 2
			if in.Scale.Minimum == nil {
				lo -= pad
			}
			hi += pad
		}
	}

	step := 0.0
	if in.Increment.Distance != nil && *in.Increment.Distance > 0 {
		step = *in.Increment.Distance
	} else {
		step = niceStep(hi-lo, in.MaxTicks)
	}
	if in.Scale.Minimum == nil {
		lo = math.Floor(lo/step) * step
	}
	if in.Scale.Maximum == nil {
		hi = math.Ceil(hi/step) * step
	}
	if hi <= lo {
		hi = lo + step
	}
	s.Minimum, s.Maximum = lo, hi
	if in.Scale.Origin != nil {
		s.Origin = *in.Scale.Origin
	} else {
		s.Origin = geom.Clamp(0, lo, hi)
	}
	sub := in.Increment.SubIntervals
	if sub <= 0 {
		sub = 2
	}
	return s, geom.ExplicitIncrementData{Distance: step, SubIntervals: sub}
}

// resolveLog places the bounds on whole decades. The increment distance is
// the factor between neighbouring ticks.
func resolveLog(in Input) (geom.ExplicitScaleData, geom.ExplicitIncrementData) {
	s := geom.ExplicitScaleData{
		AxisType:    in.Scale.AxisType,
		Reverse:     in.Scale.Reverse,
		Logarithmic: true,
	}
	lo, hi := 1.0, 10.0
	if in.Data.Valid && in.Data.Max > 0 {
		hi = math.Pow(10, math.Ceil(math.Log10(in.Data.Max)))
		lo = hi / 10
		if in.Data.Min > 0 {
			lo = math.Pow(10, math.Floor(math.Log10(in.Data.Min)))
		}
	}
	if m := in.Scale.Minimum; m != nil && *m > 0 {
		lo = *m
	}
	if m := in.Scale.Maximum; m != nil && *m > 0 {
		hi = *m
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		hi = lo * 10
	}
	s.Minimum, s.Maximum = lo, hi
	s.Origin = lo
	if o := in.Scale.Origin; o != nil && *o > 0 {
		s.Origin = *o
	}
	factor := 10.0
	if d := in.Increment.Distance; d != nil && *d > 1 {
		factor = *d
	} else if decades := math.Log10(hi / lo); decades > float64(in.MaxTicks) {
		factor = math.Pow(10, math.Ceil(decades/float64(in.MaxTicks)))
	}
	return s, geom.ExplicitIncrementData{Distance: factor, SubIntervals: 9}
}

// normalize splits x into a mantissa in [1, 10) and a decimal exponent.
func normalize(x float64) (mantissa, exponent float64) {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, 0
	}
	x = math.Abs(x)
	exponent = math.Floor(math.Log10(x))
	mantissa = x / math.Pow(10, exponent)
	return mantissa, exponent
}

// niceStep returns the smallest step of the form {1, 2, 5} * 10^n that
// divides span into at most maxTicks intervals.
func niceStep(span float64, maxTicks int) float64 {
	raw := span / float64(maxTicks)
	m, e := normalize(raw)
	if m == 0 {
		return 1
	}
	var nice float64
	switch {
	case m <= 1:
		nice = 1
	case m <= 2:
		nice = 2
	case m <= 5:
		nice = 5
	default:
		nice = 10
	}
	return nice * math.Pow(10, e)
}

// Tick is one labelled position on an axis.
type Tick struct {
	Value float64
	Label string
}

// Ticks returns the main ticks of a resolved axis. names labels the slots
// of category and series axes; missing names fall back to the 1-based
// slot number.
func Ticks(s geom.ExplicitScaleData, inc geom.ExplicitIncrementData, names []string) []Tick {
	if s.IsEmpty() || inc.IsEmpty() {
		return nil
	}
	switch {
	case s.AxisType == geom.Category || s.AxisType == geom.Series:
		var out []Tick
		offset := 0.0
		if s.ShiftedCategoryPosition {
			offset = 0.5
		}
		for i := 0; float64(i)+offset <= s.Maximum && i < maxTickCount; i++ {
			label := strconv.Itoa(i + 1)
			if i < len(names) {
				label = names[i]
			}
			out = append(out, Tick{Value: float64(i) + offset, Label: label})
		}
		return out
	case s.Logarithmic:
		var out []Tick
		for v := s.Minimum; v <= s.Maximum*(1+1e-9) && len(out) < maxTickCount; v *= inc.Distance {
			out = append(out, Tick{Value: v, Label: strconv.FormatFloat(v, 'g', 6, 64)})
		}
		return out
	default:
		decimals := 0
		if _, e := normalize(inc.Distance); e < 0 {
			decimals = int(-e)
		}
		var out []Tick
		for i := 0; i < maxTickCount; i++ {
			v := s.Minimum + float64(i)*inc.Distance
			if v > s.Maximum+inc.Distance*1e-9 {
				break
			}
			label := strconv.FormatFloat(v, 'f', decimals, 64)
			if s.AxisType == geom.Percent {
				label += "%"
			}
			out = append(out, Tick{Value: v, Label: label})
		}
		return out
	}
}

// Position maps v onto [0, 1] along the axis, honouring logarithmic and
// reversed scales. The result is not clamped and is NaN for values a
// logarithmic axis cannot show.
func Position(s geom.ExplicitScaleData, v float64) float64 {
	var p float64
	if s.Logarithmic {
		if v <= 0 || s.Minimum <= 0 {
			return math.NaN()
		}
		p = math.Log(v/s.Minimum) / math.Log(s.Maximum/s.Minimum)
	} else {
		p = (v - s.Minimum) / (s.Maximum - s.Minimum)
	}
	if s.Reverse {
		p = 1 - p
	}
	return p
}
