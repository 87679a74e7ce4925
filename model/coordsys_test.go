package model

import (
	"testing"

	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/geom"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n       int
	sources []any
}

func (c *counter) Modified(source any) {
	c.n++
	c.sources = append(c.sources, source)
}

func TestCoordinateSystemDefaults(t *testing.T) {
	cs, err := NewCoordinateSystem(Cartesian, 2)
	require.NoError(t, err)
	require.Equal(t, 2, cs.Dimension())

	x, err := cs.AxisByDimension(0, 0)
	require.NoError(t, err)
	require.Equal(t, geom.Category, x.Scale().AxisType)

	y, err := cs.AxisByDimension(1, 0)
	require.NoError(t, err)
	require.Equal(t, geom.RealNumber, y.Scale().AxisType)

	_, err = cs.AxisByDimension(2, 0)
	require.True(t, errkind.OutOfRange.Is(err))

	cs3, err := NewCoordinateSystem(Cartesian, 3)
	require.NoError(t, err)
	z, err := cs3.AxisByDimension(2, 0)
	require.NoError(t, err)
	require.Equal(t, geom.Series, z.Scale().AxisType)
}

func TestCoordinateSystemDimensionCount(t *testing.T) {
	for _, dim := range []int{-1, 0, 1, 4} {
		_, err := NewCoordinateSystem(Cartesian, dim)
		if !errkind.OutOfRange.Is(err) {
			t.Errorf("dimension %d: expected OutOfRange, got %v", dim, err)
		}
	}
}

func TestSwapXAndYAxisFiresOnce(t *testing.T) {
	cs, err := NewCoordinateSystem(Cartesian, 2)
	require.NoError(t, err)
	c := &counter{}
	cs.Subscribe(c)

	require.False(t, cs.SwapXAndYAxis())
	cs.SetSwapXAndYAxis(true)
	require.True(t, cs.SwapXAndYAxis())
	require.Equal(t, 1, c.n)

	v, err := cs.Properties().Value(PropSwapXAndYAxis)
	require.NoError(t, err)
	require.Equal(t, true, v)

	require.NotPanics(t, func() { cs.Clone().SetSwapXAndYAxis(false) }, "clones keep the property declared")
	require.NotPanics(t, func() { cs.SetSwapXAndYAxis(false) })
	require.False(t, cs.SwapXAndYAxis())
	require.Equal(t, 2, c.n)
}

func TestAxisSlots(t *testing.T) {
	cs, err := NewCoordinateSystem(Cartesian, 2)
	require.NoError(t, err)

	for dim := 0; dim < cs.Dimension(); dim++ {
		maxIdx, err := cs.MaximumAxisIndexByDimension(dim)
		require.NoError(t, err)
		require.GreaterOrEqual(t, maxIdx, 0)
		for i := maxIdx + 1; i < maxIdx+4; i++ {
			_, err := cs.AxisByDimension(dim, i)
			require.True(t, errkind.OutOfRange.Is(err), "dim %d index %d", dim, i)
		}
	}

	secondary := NewAxis(geom.RealNumber)
	require.NoError(t, cs.SetAxisByDimension(1, secondary, 3))
	maxIdx, err := cs.MaximumAxisIndexByDimension(1)
	require.NoError(t, err)
	require.Equal(t, 3, maxIdx)
	for _, i := range []int{1, 2} {
		a, err := cs.AxisByDimension(1, i)
		require.NoError(t, err)
		require.Nil(t, a, "slot %d should be absent", i)
	}
	a, err := cs.AxisByDimension(1, 3)
	require.NoError(t, err)
	require.Same(t, secondary, a)

	type badSet struct {
		name     string
		dim, idx int
		axis     *Axis
	}
	for _, tc := range []badSet{
		{name: "negative dimension", dim: -1, idx: 0, axis: NewAxis(geom.RealNumber)},
		{name: "dimension too large", dim: 2, idx: 0, axis: NewAxis(geom.RealNumber)},
		{name: "negative index", dim: 0, idx: -1, axis: NewAxis(geom.RealNumber)},
		{name: "empty primary", dim: 0, idx: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := cs.SetAxisByDimension(tc.dim, tc.axis, tc.idx)
			if !errkind.OutOfRange.Is(err) {
				t.Errorf("expected OutOfRange, got %v", err)
			}
		})
	}
}

func TestSetAxisReplacesListener(t *testing.T) {
	cs, err := NewCoordinateSystem(Cartesian, 2)
	require.NoError(t, err)
	c := &counter{}
	cs.Subscribe(c)

	old, err := cs.AxisByDimension(1, 0)
	require.NoError(t, err)
	next := NewAxis(geom.RealNumber)
	require.NoError(t, cs.SetAxisByDimension(1, next, 0))
	require.Equal(t, 1, c.n)

	old.SetTitle("detached")
	require.Equal(t, 1, c.n, "the replaced axis must not reach the coordinate system")
	next.SetTitle("attached")
	require.Equal(t, 2, c.n)
	require.Same(t, next, c.sources[1])

	// Same axis again still notifies.
	require.NoError(t, cs.SetAxisByDimension(1, next, 0))
	require.Equal(t, 3, c.n)
	next.SetTitle("once")
	require.Equal(t, 4, c.n, "re-setting the same axis must not double subscribe")
}

func TestChartTypes(t *testing.T) {
	cs, err := NewCoordinateSystem(Cartesian, 2)
	require.NoError(t, err)
	c := &counter{}
	cs.Subscribe(c)

	bars := NewChartType(Bar)
	lines := NewChartType(Line)
	require.NoError(t, cs.AddChartType(bars))
	require.NoError(t, cs.AddChartType(lines))
	require.Equal(t, 2, c.n)
	require.Equal(t, []*ChartType{bars, lines}, cs.ChartTypes())

	err = cs.AddChartType(bars)
	require.True(t, errkind.DuplicateEntry.Is(err))
	require.Equal(t, 2, c.n)

	require.NoError(t, cs.RemoveChartType(bars))
	require.Equal(t, 3, c.n)
	err = cs.RemoveChartType(bars)
	require.True(t, errkind.NotFound.Is(err))

	bars.SetStacking(Stacked)
	require.Equal(t, 3, c.n, "removed chart types must not notify")

	require.NoError(t, lines.AddSeries(NewDataSeries("a", 1, 2)))
	require.Equal(t, 4, c.n)

	err = cs.SetChartTypes([]*ChartType{bars, bars})
	require.True(t, errkind.DuplicateEntry.Is(err))
	require.NoError(t, cs.SetChartTypes([]*ChartType{bars}))
	require.Equal(t, 5, c.n)
	lines.SetStacking(Stacked)
	require.Equal(t, 5, c.n)
}

func TestCoordinateSystemClone(t *testing.T) {
	cs, err := NewCoordinateSystem(Polar, 2)
	require.NoError(t, err)
	ct := NewChartType(Pie)
	require.NoError(t, ct.AddSeries(NewDataSeries("share", 1, 2, 3)))
	require.NoError(t, cs.AddChartType(ct))
	require.NoError(t, cs.SetAxisByDimension(1, NewAxis(geom.Percent), 2))
	cs.SetSwapXAndYAxis(true)

	clone := cs.Clone()
	require.Equal(t, Polar, clone.Kind())
	require.True(t, clone.SwapXAndYAxis())

	orig := &counter{}
	cs.Subscribe(orig)
	cloned := &counter{}
	clone.Subscribe(cloned)

	for dim := 0; dim < 2; dim++ {
		maxIdx, _ := clone.MaximumAxisIndexByDimension(dim)
		wantMax, _ := cs.MaximumAxisIndexByDimension(dim)
		require.Equal(t, wantMax, maxIdx)
		for i := 0; i <= maxIdx; i++ {
			a, _ := cs.AxisByDimension(dim, i)
			b, _ := clone.AxisByDimension(dim, i)
			if a == nil {
				require.Nil(t, b)
				continue
			}
			require.NotSame(t, a, b)
			require.Equal(t, a.Scale().AxisType, b.Scale().AxisType)
		}
	}

	ca, _ := clone.AxisByDimension(1, 2)
	ca.SetTitle("clone only")
	require.Equal(t, 0, orig.n)
	require.Equal(t, 1, cloned.n)

	cts := clone.ChartTypes()
	require.Len(t, cts, 1)
	require.NotSame(t, ct, cts[0])
	s := cts[0].Series()[0]
	s.SetValues([]float64{9})
	require.Equal(t, 0, orig.n)
	require.Equal(t, 2, cloned.n)
	require.Equal(t, []float64{1, 2, 3}, ct.Series()[0].Values())
}
