package arrange

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/model"
)

type fixture struct {
	chart *model.Chart
	cs    *model.CoordinateSystem
	ct    *model.ChartType
}

func newFixture(t *testing.T, kind model.ChartKind, series ...*model.DataSeries) fixture {
	t.Helper()
	d := model.NewDiagram("north", "south", "east")
	cs, err := model.NewCoordinateSystem(model.Cartesian, 2)
	require.NoError(t, err)
	ct := model.NewChartType(kind)
	for _, s := range series {
		require.NoError(t, ct.AddSeries(s))
	}
	require.NoError(t, cs.AddChartType(ct))
	require.NoError(t, d.AddCoordinateSystem(cs))
	return fixture{chart: model.NewChart(d), cs: cs, ct: ct}
}

func (f fixture) axis(t *testing.T, dim, idx int) *model.Axis {
	t.Helper()
	a, err := f.cs.AxisByDimension(dim, idx)
	require.NoError(t, err)
	return a
}

func requireWithin(t *testing.T, inner, outer geom.Rect) {
	t.Helper()
	const eps = 1e-3
	if inner.Min.X < outer.Min.X-eps || inner.Min.Y < outer.Min.Y-eps ||
		inner.Max.X > outer.Max.X+eps || inner.Max.Y > outer.Max.Y+eps {
		t.Errorf("%v is not inside %v", inner, outer)
	}
}

func TestArrangeReservations(t *testing.T) {
	f := newFixture(t, model.Bar, model.NewDataSeries("2023", 1, 2, 3), model.NewDataSeries("2024", 2, 3, 4))
	f.chart.SetTitle(model.NewTitle("Sales by region"))
	f.chart.SetSubtitle(model.NewSubtitle("in units"))

	l := New(Options{}).Arrange(f.chart, geom.Size{Width: 400, Height: 300}, Mode{})
	require.True(t, l.Converged)
	require.LessOrEqual(t, l.Iterations, DefaultMaxIterations)

	require.False(t, l.Title.Empty())
	require.False(t, l.Subtitle.Empty())
	require.LessOrEqual(t, l.Title.Max.Y, l.Subtitle.Min.Y)
	require.LessOrEqual(t, l.Subtitle.Max.Y, l.Diagram.Min.Y)
	require.Greater(t, l.TitleFont, l.SubtitleFont)

	require.False(t, l.Legend.Empty())
	require.Greater(t, l.Legend.Min.X, l.Diagram.Max.X)
	require.Len(t, l.LegendEntries, 2)
	require.Equal(t, "2024", l.LegendEntries[1].Label)
	requireWithin(t, l.LegendEntries[1].Text, l.Legend)
	requireWithin(t, l.LegendEntries[1].Symbol, l.Legend)

	require.False(t, l.Plot.Empty())
	require.Equal(t, l.Diagram, l.Diagram.Union(l.Plot))
	require.Less(t, l.Plot.Dx(), l.Diagram.Dx())

	x := l.Axis(f.axis(t, 0, 0))
	require.NotNil(t, x)
	require.Equal(t, Bottom, x.Side)
	require.True(t, x.Scale.ShiftedCategoryPosition)
	require.Len(t, x.Ticks, 3)
	require.Equal(t, "north", x.Ticks[0].Label)
	require.GreaterOrEqual(t, x.Band.Min.Y, l.Plot.Max.Y)

	y := l.Axis(f.axis(t, 1, 0))
	require.NotNil(t, y)
	require.Equal(t, Left, y.Side)
	require.Equal(t, 0.0, y.Scale.Minimum)
	require.GreaterOrEqual(t, y.Scale.Maximum, 4.0)
	require.LessOrEqual(t, y.Band.Max.X, l.Plot.Min.X)
}

func TestArrangeDegeneratePage(t *testing.T) {
	f := newFixture(t, model.Line, model.NewDataSeries("a", 1, 2, 3))
	f.chart.SetTitle(model.NewTitle("t"))
	for _, page := range []geom.Size{{}, {Width: -10, Height: 50}, {Width: 50, Height: -1}, {Width: -5, Height: -5}} {
		l := New(Options{}).Arrange(f.chart, page, Mode{})
		require.True(t, l.Diagram.Empty(), "page %v", page)
		require.True(t, l.Plot.Empty(), "page %v", page)
		require.Len(t, l.Axes, 2)
		for _, a := range l.Axes {
			require.True(t, a.Scale.IsEmpty(), "page %v", page)
			require.True(t, a.Increment.IsEmpty(), "page %v", page)
		}
	}
}

func TestArrangeTerminates(t *testing.T) {
	f := newFixture(t, model.Bar, model.NewDataSeries("a", 1e9, 2e12, -3e7))
	f.chart.SetTitle(model.NewTitle("a title far too long for any of these pages"))
	for _, dim := range []int{0, 1} {
		require.NoError(t, f.axis(t, dim, 0).Properties().Set(model.PropCharHeight, float32(80)))
	}
	for _, bound := range []int{1, 2, 8} {
		e := New(Options{MaxIterations: bound})
		for _, page := range []geom.Size{{Width: 1, Height: 1}, {Width: 30, Height: 500}, {Width: 500, Height: 30}, {Width: 120, Height: 90}} {
			l := e.Arrange(f.chart, page, Mode{})
			require.LessOrEqual(t, l.Iterations, bound, "page %v", page)
			require.GreaterOrEqual(t, l.Iterations, 1, "page %v", page)
		}
	}

	l := New(Options{MaxIterations: 1}).Arrange(f.chart, geom.Size{Width: 400, Height: 300}, Mode{})
	require.False(t, l.Converged)
	require.Equal(t, 1, l.Iterations)
}

func TestArrangeSwapAndSecondary(t *testing.T) {
	primary := model.NewDataSeries("primary", 1, 2, 3)
	secondary := model.NewDataSeries("secondary", 100, 400, 900)
	secondary.SetAttachedAxisIndex(1)
	f := newFixture(t, model.Line, primary, secondary)
	second := model.NewAxis(geom.RealNumber)
	require.NoError(t, f.cs.SetAxisByDimension(1, second, 1))

	l := New(Options{}).Arrange(f.chart, geom.Size{Width: 600, Height: 400}, Mode{})
	y0 := l.Axis(f.axis(t, 1, 0))
	y1 := l.Axis(second)
	require.Equal(t, Left, y0.Side)
	require.Equal(t, Right, y1.Side)
	require.Less(t, y0.Scale.Maximum, 10.0)
	require.GreaterOrEqual(t, y1.Scale.Maximum, 900.0)
	require.GreaterOrEqual(t, y1.Band.Min.X, l.Plot.Max.X)

	f.cs.SetSwapXAndYAxis(true)
	l = New(Options{}).Arrange(f.chart, geom.Size{Width: 600, Height: 400}, Mode{})
	require.Equal(t, Left, l.Axis(f.axis(t, 0, 0)).Side)
	require.Equal(t, Bottom, l.Axis(f.axis(t, 1, 0)).Side)
	require.Equal(t, Top, l.Axis(second).Side)
}

func TestArrangeTimeBased(t *testing.T) {
	s := model.NewDataSeries("a", 1, 2)
	s.SetTimeValues([][]float64{{1, 2}, {10, 50}})
	f := newFixture(t, model.Line, s)
	e := New(Options{})
	page := geom.Size{Width: 400, Height: 300}

	static := e.Arrange(f.chart, page, Mode{}).Axis(f.axis(t, 1, 0))
	require.Less(t, static.Scale.Maximum, 50.0)
	timed := e.Arrange(f.chart, page, Mode{TimeBased: true}).Axis(f.axis(t, 1, 0))
	require.GreaterOrEqual(t, timed.Scale.Maximum, 50.0)
}

func TestArrangeStacked(t *testing.T) {
	f := newFixture(t, model.Bar, model.NewDataSeries("a", 1, 2), model.NewDataSeries("b", 3, 4))
	f.ct.SetStacking(model.Stacked)
	y := New(Options{}).Arrange(f.chart, geom.Size{Width: 400, Height: 300}, Mode{}).Axis(f.axis(t, 1, 0))
	require.GreaterOrEqual(t, y.Scale.Maximum, 6.0)

	f.ct.SetStacking(model.PercentStacked)
	y = New(Options{}).Arrange(f.chart, geom.Size{Width: 400, Height: 300}, Mode{}).Axis(f.axis(t, 1, 0))
	require.Equal(t, 100.0, y.Scale.Maximum)

	require.Equal(t, []StackTotal{{Pos: 4, Neg: -1}, {Pos: 2}}, StackTotals([][]float64{{1, 2}, {3}, {-1}}))
}

func TestArrangePie(t *testing.T) {
	f := newFixture(t, model.Pie, model.NewDataSeries("share", 5, 3, 2))
	l := New(Options{}).Arrange(f.chart, geom.Size{Width: 400, Height: 300}, Mode{})
	require.Equal(t, l.Diagram, l.Plot)
	require.Equal(t, 1, l.Iterations)
	for _, a := range l.Axes {
		require.False(t, a.Drawn)
	}
	require.Len(t, l.LegendEntries, 3)
	require.Equal(t, "east", l.LegendEntries[2].Label)
	require.Equal(t, 2, l.LegendEntries[2].Point)
}

func TestArrangeInsideLegend(t *testing.T) {
	f := newFixture(t, model.Line, model.NewDataSeries("a", 1, 2, 3))
	f.chart.Legend().SetPosition(model.LegendInside)
	l := New(Options{}).Arrange(f.chart, geom.Size{Width: 400, Height: 300}, Mode{})
	requireWithin(t, l.Legend, l.Plot)

	f.chart.Legend().SetShow(false)
	l = New(Options{}).Arrange(f.chart, geom.Size{Width: 400, Height: 300}, Mode{})
	require.True(t, l.Legend.Empty())
	require.Empty(t, l.LegendEntries)
}

func TestFontSize(t *testing.T) {
	title := model.NewTitle("x")
	p := title.Properties()
	require.Equal(t, float32(13), FontSize(p, geom.Size{Width: 100, Height: 100}))
	require.NoError(t, p.Set(model.PropReferencePageSize, geom.Size{Width: 200, Height: 100}))
	require.Equal(t, float32(6.5), FontSize(p, geom.Size{Width: 100, Height: 300}))
	require.Equal(t, float32(13), FontSize(p, geom.Size{}))
}
