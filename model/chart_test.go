package model

import (
	"testing"

	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/geom"
	"github.com/stretchr/testify/require"
)

func newTestChart(t *testing.T) (*Chart, *CoordinateSystem, *ChartType) {
	t.Helper()
	d := NewDiagram("q1", "q2", "q3")
	cs, err := NewCoordinateSystem(Cartesian, 2)
	require.NoError(t, err)
	ct := NewChartType(Bar)
	require.NoError(t, cs.AddChartType(ct))
	require.NoError(t, d.AddCoordinateSystem(cs))
	return NewChart(d), cs, ct
}

func TestChartForwardsNestedChanges(t *testing.T) {
	chart, cs, ct := newTestChart(t)
	c := &counter{}
	chart.Subscribe(c)

	s := NewDataSeries("sales", 1, 2, 3)
	require.NoError(t, ct.AddSeries(s))
	require.Equal(t, 1, c.n)
	s.SetColor(s.Color())
	require.Equal(t, 2, c.n)
	require.Same(t, s, c.sources[1])

	y, _ := cs.AxisByDimension(1, 0)
	y.SetShowGrid(false)
	require.Equal(t, 3, c.n)

	title := NewTitle("Revenue")
	chart.SetTitle(title)
	require.Equal(t, 4, c.n)
	title.SetText("Revenue 2024")
	require.Equal(t, 5, c.n)

	chart.SetTitle(nil)
	require.Equal(t, 6, c.n)
	title.SetText("gone")
	require.Equal(t, 6, c.n)

	chart.Legend().SetPosition(LegendBottom)
	require.Equal(t, 7, c.n)
}

func TestTimeFrameCount(t *testing.T) {
	chart, _, ct := newTestChart(t)
	require.Equal(t, 0, chart.TimeFrameCount())

	a := NewDataSeries("a", 1, 2)
	a.SetTimeValues([][]float64{{1, 2}, {3, 4}, {5, 6}})
	b := NewDataSeries("b", 1, 2)
	b.SetTimeValues([][]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}})
	static := NewDataSeries("static", 4, 4)
	for _, s := range []*DataSeries{a, b, static} {
		require.NoError(t, ct.AddSeries(s))
	}
	require.Equal(t, 3, chart.TimeFrameCount())

	f := a.Frame(2)
	require.Equal(t, []float64{5, 6}, f.Values())
	require.Nil(t, f.TimeValues())
	require.Equal(t, []float64{4, 4}, static.Frame(1).Values())
}

func TestWalkPropertySets(t *testing.T) {
	chart, _, ct := newTestChart(t)
	require.NoError(t, ct.AddSeries(NewDataSeries("a", 1)))
	chart.SetTitle(NewTitle("t"))
	chart.SetSubtitle(NewSubtitle("s"))

	var withRef int
	chart.WalkPropertySets(func(b PropertyBag) {
		if b.Properties().Supports(PropReferencePageSize) {
			withRef++
		}
	})
	// title, subtitle, legend, two axes, one series
	require.Equal(t, 6, withRef)
}

func TestPropertySet(t *testing.T) {
	title := NewTitle("x")
	c := &counter{}
	title.Subscribe(c)
	p := title.Properties()

	require.Equal(t, float32(13), p.Float32(PropCharHeight))
	_, ok := p.ReferencePageSize()
	require.False(t, ok)

	require.NoError(t, p.Set(PropReferencePageSize, geom.Size{Width: 800, Height: 600}))
	size, ok := p.ReferencePageSize()
	require.True(t, ok)
	require.Equal(t, geom.Size{Width: 800, Height: 600}, size)

	require.Error(t, p.Set(PropCharHeight, 12.0))
	err := p.Set("Nope", 1)
	require.True(t, errkind.UnknownProperty.Is(err))
	_, err = p.Value("Nope")
	require.True(t, errkind.UnknownProperty.Is(err))

	require.NoError(t, p.Clear(PropReferencePageSize))
	require.False(t, p.IsSet(PropReferencePageSize))
	require.Equal(t, 2, c.n)
}

func TestChartClone(t *testing.T) {
	chart, _, ct := newTestChart(t)
	require.NoError(t, ct.AddSeries(NewDataSeries("a", 1, 2, 3)))
	chart.SetTitle(NewTitle("t"))

	clone := chart.Clone()
	require.NotSame(t, chart.Title(), clone.Title())
	require.Equal(t, "t", clone.Title().Text())
	require.Len(t, clone.AllSeries(), 1)
	require.NotSame(t, chart.AllSeries()[0], clone.AllSeries()[0])

	c := &counter{}
	clone.Subscribe(c)
	clone.AllSeries()[0].SetName("b")
	clone.Legend().SetShow(false)
	require.Equal(t, 2, c.n)
	require.Equal(t, "a", chart.AllSeries()[0].Name())
	require.True(t, chart.Legend().Show())
}
