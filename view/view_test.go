package view

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~whereswaldon/chartview/builder"
	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/measure"
	"git.sr.ht/~whereswaldon/chartview/model"
	"git.sr.ht/~whereswaldon/chartview/shape"
	"git.sr.ht/~whereswaldon/chartview/surface"
	"git.sr.ht/~whereswaldon/chartview/timer"
)

var page = geom.Size{Width: 400, Height: 300}

// hookMeasurer runs hook before measuring.
type hookMeasurer struct {
	measure.Approx
	hook func()
}

func (h *hookMeasurer) MeasureText(s string, f measure.Font) geom.Size {
	if h.hook != nil {
		h.hook()
	}
	return h.Approx.MeasureText(s, f)
}

type fixture struct {
	chart  *model.Chart
	cs     *model.CoordinateSystem
	series *model.DataSeries
}

func newFixture(t *testing.T, kind model.ChartKind) fixture {
	t.Helper()
	d := model.NewDiagram("q1", "q2", "q3")
	cs, err := model.NewCoordinateSystem(model.Cartesian, 2)
	require.NoError(t, err)
	ct := model.NewChartType(kind)
	s := model.NewDataSeries("revenue", 1, 2, 3)
	require.NoError(t, ct.AddSeries(s))
	require.NoError(t, cs.AddChartType(ct))
	require.NoError(t, d.AddCoordinateSystem(cs))
	return fixture{chart: model.NewChart(d), cs: cs, series: s}
}

func (f fixture) axis(t *testing.T, dim int) *model.Axis {
	t.Helper()
	a, err := f.cs.AxisByDimension(dim, 0)
	require.NoError(t, err)
	return a
}

func TestExplicitValuesNeedUpdate(t *testing.T) {
	f := newFixture(t, model.Bar)
	v := New(f.chart, Options{PageSize: page})
	require.Equal(t, Dirty, v.State())

	_, _, err := v.ExplicitValuesForAxis(f.axis(t, 1))
	require.True(t, errkind.NotAvailable.Is(err), "got %v", err)
	require.Equal(t, Dirty, v.State(), "queries never rebuild")

	require.NoError(t, v.Update())
	require.Equal(t, Clean, v.State())
	scale, inc, err := v.ExplicitValuesForAxis(f.axis(t, 1))
	require.NoError(t, err)
	require.GreaterOrEqual(t, scale.Maximum, 3.0)
	require.False(t, inc.IsEmpty())

	f.series.SetValues([]float64{10, 20, 30})
	_, _, err = v.ExplicitValuesForAxis(f.axis(t, 1))
	require.True(t, errkind.NotAvailable.Is(err), "stale values are not served")

	_, _, err = v.ExplicitValuesForAxis(model.NewAxis(geom.RealNumber))
	require.True(t, errkind.NotAvailable.Is(err))
}

func TestCleanOnlyAfterLatestUpdate(t *testing.T) {
	f := newFixture(t, model.Line)
	v := New(f.chart, Options{PageSize: page})
	rng := rand.New(rand.NewSource(7))
	updatedLast := false
	for i := 0; i < 200; i++ {
		switch rng.Intn(4) {
		case 0:
			f.series.SetName("revenue")
			updatedLast = false
		case 1:
			v.MarkDirty()
			updatedLast = false
		case 2:
			require.NoError(t, v.Update())
			updatedLast = true
		default:
			require.NoError(t, v.UpdateSoft())
			updatedLast = true
		}
		require.Equal(t, updatedLast, v.State() == Clean, "step %d", i)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	f := newFixture(t, model.Bar)
	f.chart.SetTitle(model.NewTitle("Revenue"))
	v := New(f.chart, Options{PageSize: page})
	require.NoError(t, v.UpdateHard())
	first, err := v.DumpAsDebugTree()
	require.NoError(t, err)
	cids := v.Tree().CIDs()

	require.NoError(t, v.UpdateHard())
	second, err := v.DumpAsDebugTree()
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, cids, v.Tree().CIDs())
}

func TestNotificationDuringRebuild(t *testing.T) {
	f := newFixture(t, model.Bar)
	m := &hookMeasurer{}
	v := New(f.chart, Options{PageSize: page, Measurer: m})

	fired := false
	m.hook = func() {
		if fired {
			return
		}
		fired = true
		require.Equal(t, Rebuilding, v.State())
		f.series.SetName("renamed")
		require.Equal(t, RebuildingDirtyPending, v.State())
		require.NoError(t, v.Update(), "nested updates are deferred")
	}
	require.NoError(t, v.Update())
	require.True(t, fired)
	require.Equal(t, Clean, v.State())

	entry, err := v.ShapeForObjectID(shape.NewCID(shape.LegendEntry, shape.P(shape.KeyEntry, 0)))
	require.NoError(t, err)
	require.Equal(t, "renamed", entry.Children[1].Text, "the second pass saw the change")
}

func TestRebuildPassesAreBounded(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	f := newFixture(t, model.Bar)
	m := &hookMeasurer{}
	m.hook = func() { f.series.SetName("again") }
	v := New(f.chart, Options{PageSize: page, Measurer: m, MaxPasses: 3, Logger: &log})

	require.NoError(t, v.Update())
	require.Equal(t, Dirty, v.State())
	require.Contains(t, buf.String(), "kept changing")
	require.NotNil(t, v.Tree(), "the last pass is still shown")
}

func TestResourceExhaustionLeavesViewDirty(t *testing.T) {
	f := newFixture(t, model.Bar)
	f.series.SetShadow(true)
	pool := surface.NewPool(surface.Options{Backend: &surface.ImageBackend{MaxPixels: 16}, Timers: timer.NewManual()})
	v := New(f.chart, Options{PageSize: page, Builder: builder.New(builder.Options{Pool: pool})})

	err := v.Update()
	require.True(t, errkind.Is(errkind.ResourceExhausted, err), "got %v", err)
	require.Equal(t, Dirty, v.State())
	_, _, err = v.ExplicitValuesForAxis(f.axis(t, 1))
	require.True(t, errkind.NotAvailable.Is(err))

	f.series.SetShadow(false)
	require.NoError(t, v.Update())
	require.Equal(t, Clean, v.State())
}

func TestAxisInTwoSlots(t *testing.T) {
	f := newFixture(t, model.Bar)
	y := f.axis(t, 1)
	y.SetShowGrid(true)
	require.NoError(t, f.cs.SetAxisByDimension(1, y, 1))

	v := New(f.chart, Options{PageSize: page})
	defer v.Close()
	require.NoError(t, v.Update())
	require.Equal(t, Clean, v.State())
	require.NotNil(t, v.Tree())
	for _, kind := range []shape.ObjectType{shape.Axis, shape.Grid} {
		cid := shape.NewCID(kind, shape.P(shape.KeyCS, 0), shape.P(shape.KeyDim, 1), shape.P(shape.KeyIndex, 0))
		_, err := v.ShapeForObjectID(cid)
		require.NoError(t, err, "%s", cid)
	}
}

func TestQueries(t *testing.T) {
	f := newFixture(t, model.Bar)
	v := New(f.chart, Options{PageSize: page})
	wall := shape.NewCID(shape.DiagramWall)

	_, err := v.ShapeForObjectID(wall)
	require.True(t, errkind.NotAvailable.Is(err))
	_, err = v.DumpAsDebugTree()
	require.Error(t, err)
	_, ok := v.ObjectAt(v.DiagramRectangleExcludingAxes().Center())
	require.False(t, ok)

	require.NoError(t, v.Update())
	plot := v.DiagramRectangleExcludingAxes()
	require.False(t, plot.Empty())
	r, err := v.RectangleOfObject(wall, false)
	require.NoError(t, err)
	require.Equal(t, plot, r)

	bar := shape.NewCID(shape.DataPoint, shape.P(shape.KeyCS, 0), shape.P(shape.KeyCT, 0), shape.P(shape.KeySeries, 0), shape.P(shape.KeyPoint, 2))
	br, err := v.RectangleOfObject(bar, true)
	require.NoError(t, err)
	cid, ok := v.ObjectAt(br.Center())
	require.True(t, ok)
	require.Equal(t, bar, cid)

	_, err = v.ShapeForObjectID(shape.NewCID(shape.DataPoint, shape.P(shape.KeyPoint, 99)))
	require.True(t, errkind.NotFound.Is(err))

	v.SetPageSize(page)
	require.Equal(t, Clean, v.State())
	v.SetPageSize(geom.Size{Width: 200, Height: 100})
	require.Equal(t, Dirty, v.State())
}

func TestPlayer(t *testing.T) {
	f := newFixture(t, model.Bar)
	m := timer.NewManual()
	v := New(f.chart, Options{PageSize: page, Timers: m})

	require.True(t, errkind.NotAvailable.Is(v.EnableTimeBased()), "no frames yet")

	f.series.SetTimeValues([][]float64{{1, 2, 3}, {3, 2, 1}, {2, 2, 2}})
	require.NoError(t, v.Update())
	require.NoError(t, v.EnableTimeBased())
	require.True(t, v.TimeBased())

	bar := shape.NewCID(shape.DataPoint, shape.P(shape.KeyCS, 0), shape.P(shape.KeyCT, 0), shape.P(shape.KeySeries, 0), shape.P(shape.KeyPoint, 0))
	var (
		seen    []int
		heights []float32
	)
	for i := 0; i < 4; i++ {
		require.True(t, m.RunNext())
		k, on := v.DisplayedFrame()
		require.True(t, on)
		seen = append(seen, k)
		require.Equal(t, Clean, v.State())
		r, err := v.RectangleOfObject(bar, false)
		require.NoError(t, err)
		heights = append(heights, r.Dy())
	}
	require.Equal(t, []int{0, 1, 2, 0}, seen)
	require.Greater(t, heights[1], heights[0])
	require.InDelta(t, heights[0], heights[3], 1e-3)
	require.Equal(t, 1, m.Pending())

	v.DisableTimeBased()
	require.False(t, v.TimeBased())
	require.Zero(t, m.Pending())
	require.Equal(t, Dirty, v.State())
	require.NoError(t, v.Update())
}

func TestTickDuringRebuildIsDeferred(t *testing.T) {
	f := newFixture(t, model.Line)
	f.series.SetTimeValues([][]float64{{1, 2, 3}, {3, 2, 1}})
	tm := timer.NewManual()
	mm := &hookMeasurer{}
	v := New(f.chart, Options{PageSize: page, Timers: tm, Measurer: mm})
	require.NoError(t, v.EnableTimeBased())

	ticked := false
	mm.hook = func() {
		if ticked {
			return
		}
		ticked = true
		require.True(t, tm.RunNext())
		_, on := v.DisplayedFrame()
		require.True(t, on)
		require.Equal(t, 0, tm.Pending(), "a deferred tick does not reschedule")
	}
	require.NoError(t, v.Update())
	require.True(t, ticked)
	require.Equal(t, Clean, v.State())
	require.Equal(t, 1, tm.Pending(), "the replayed tick scheduled the next one")

	require.True(t, tm.RunNext())
	k, _ := v.DisplayedFrame()
	require.Equal(t, 1, k)
}

func TestClose(t *testing.T) {
	f := newFixture(t, model.Bar)
	f.series.SetTimeValues([][]float64{{1, 2, 3}, {3, 2, 1}})
	m := timer.NewManual()
	v := New(f.chart, Options{PageSize: page, Timers: m})
	require.NoError(t, v.Update())
	require.NoError(t, v.EnableTimeBased())
	v.Close()
	require.Zero(t, m.Pending())

	before := v.State()
	f.series.SetName("after close")
	require.Equal(t, before, v.State(), "closed views do not listen")
	require.True(t, errkind.NotAvailable.Is(v.UpdateHard()))
	require.Nil(t, v.Tree())
}
