package scaling

import (
	"math"
	"testing"

	"git.sr.ht/~whereswaldon/chartview/geom"
	"github.com/stretchr/testify/require"
)

func TestNiceStep(t *testing.T) {
	type testcase struct {
		span     float64
		maxTicks int
		expected float64
	}
	for _, tc := range []testcase{
		{span: 10, maxTicks: 10, expected: 1},
		{span: 10, maxTicks: 5, expected: 2},
		{span: 10, maxTicks: 3, expected: 5},
		{span: 100, maxTicks: 5, expected: 20},
		{span: 0.3, maxTicks: 3, expected: 0.1},
		{span: 7, maxTicks: 1, expected: 10},
	} {
		got := niceStep(tc.span, tc.maxTicks)
		if math.Abs(got-tc.expected) > 1e-12 {
			t.Errorf("niceStep(%v, %d): expected %v, got %v", tc.span, tc.maxTicks, tc.expected, got)
		}
	}
}

func TestResolveLinear(t *testing.T) {
	type testcase struct {
		name       string
		in         Input
		min, max   float64
		origin     float64
		distance   float64
		tickValues []float64
	}
	for _, tc := range []testcase{
		{
			name:       "positive data includes zero",
			in:         Input{Scale: geom.ScaleData{AxisType: geom.RealNumber}, Data: Range{Min: 3, Max: 9, Valid: true}, MaxTicks: 5},
			min:        0,
			max:        10,
			distance:   2,
			tickValues: []float64{0, 2, 4, 6, 8, 10},
		},
		{
			name:     "negative data",
			in:       Input{Scale: geom.ScaleData{AxisType: geom.RealNumber}, Data: Range{Min: -35, Max: -5, Valid: true}, MaxTicks: 4},
			min:      -40,
			max:      0,
			distance: 10,
		},
		{
			name:     "no data",
			in:       Input{Scale: geom.ScaleData{AxisType: geom.RealNumber}, MaxTicks: 5},
			min:      0,
			max:      1,
			distance: 0.2,
		},
		{
			name: "user bounds",
			in: Input{
				Scale:     geom.ScaleData{AxisType: geom.RealNumber, Minimum: geom.Float(5), Maximum: geom.Float(25), Origin: geom.Float(10)},
				Increment: geom.IncrementData{Distance: geom.Float(5)},
				Data:      Range{Min: 0, Max: 100, Valid: true},
			},
			min:      5,
			max:      25,
			origin:   10,
			distance: 5,
		},
		{
			name:     "percent",
			in:       Input{Scale: geom.ScaleData{AxisType: geom.Percent}, Data: Range{Min: 3, Max: 4, Valid: true}, MaxTicks: 5},
			min:      0,
			max:      100,
			distance: 20,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, inc := Resolve(tc.in)
			require.InDelta(t, tc.min, s.Minimum, 1e-9)
			require.InDelta(t, tc.max, s.Maximum, 1e-9)
			require.InDelta(t, tc.origin, s.Origin, 1e-9)
			require.InDelta(t, tc.distance, inc.Distance, 1e-9)
			if tc.tickValues != nil {
				var got []float64
				for _, tick := range Ticks(s, inc, nil) {
					got = append(got, tick.Value)
				}
				require.InDeltaSlice(t, tc.tickValues, got, 1e-9)
			}
		})
	}
}

func TestResolveCategory(t *testing.T) {
	s, inc := Resolve(Input{Scale: geom.ScaleData{AxisType: geom.Category}, Count: 3, Shifted: true})
	require.Equal(t, 0.0, s.Minimum)
	require.Equal(t, 3.0, s.Maximum)
	require.True(t, s.ShiftedCategoryPosition)

	ticks := Ticks(s, inc, []string{"a", "b"})
	require.Equal(t, []Tick{{0.5, "a"}, {1.5, "b"}, {2.5, "3"}}, ticks)

	s, _ = Resolve(Input{Scale: geom.ScaleData{AxisType: geom.Category}, Count: 4})
	require.Equal(t, 3.0, s.Maximum)
}

func TestResolveLogarithmic(t *testing.T) {
	s, inc := Resolve(Input{
		Scale:    geom.ScaleData{AxisType: geom.RealNumber, Logarithmic: true},
		Data:     Range{Min: 3, Max: 450, Valid: true},
		MaxTicks: 10,
	})
	require.InDelta(t, 1, s.Minimum, 1e-9)
	require.InDelta(t, 1000, s.Maximum, 1e-9)
	require.Equal(t, 10.0, inc.Distance)
	require.Len(t, Ticks(s, inc, nil), 4)

	require.InDelta(t, 0.5, Position(s, math.Sqrt(1000)), 1e-9)
	require.True(t, math.IsNaN(Position(s, -1)))
}

func TestRangeIgnoresInvalid(t *testing.T) {
	var r Range
	r.IncludeAll([]float64{math.NaN(), math.Inf(1), 4, -2})
	require.Equal(t, Range{Min: -2, Max: 4, Valid: true}, r)
}

func TestPositionReverse(t *testing.T) {
	s := geom.ExplicitScaleData{Minimum: 0, Maximum: 10, Reverse: true}
	require.InDelta(t, 0.75, Position(s, 2.5), 1e-9)
}
