package datasource

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~whereswaldon/chartview/model"
)

func makeTestTrace(t *testing.T, interval, sampleCount int64) (*Trace, float64) {
	t.Helper()
	tr := NewTrace("test (J)")
	expectedSum := float64(0)
	for i := int64(0); i < sampleCount; i++ {
		ok := tr.Insert(Sample{
			Start: i * interval,
			End:   (i + 1) * interval,
			Value: float64(i),
		})
		if !ok {
			t.Errorf("inserting non-overlapping samples should always be okay, but sample %d failed", i)
		}
		expectedSum += float64(i)
	}
	return tr, expectedSum
}

func TestTraceInsert(t *testing.T) {
	tr, expectedSum := makeTestTrace(t, int64(time.Second), 4)
	if tr.Sum() != expectedSum {
		t.Errorf("expected sum %f, got %f", expectedSum, tr.Sum())
	}
	if tr.Insert(Sample{Start: int64(time.Second), End: 5 * int64(time.Second), Value: 1}) {
		t.Errorf("overlapping sample was accepted")
	}
	lo, hi := tr.Domain()
	if lo != 0 || hi != 4*int64(time.Second) {
		t.Errorf("expected domain [0, 4s], got [%d, %d]", lo, hi)
	}

	w := NewTrace("gpu (W)")
	w.Insert(Sample{Start: 0, End: int64(2 * time.Second), Value: 3, Unit: Watts})
	if w.Sum() != 6 {
		t.Errorf("expected 3W over 2s to be 6J, got %f", w.Sum())
	}
}

func TestTraceRatesBetween(t *testing.T) {
	interval := int64(time.Second)
	tr, _ := makeTestTrace(t, interval, 10)
	for _, tc := range []struct {
		name                string
		start, end          int64
		max, mean, min, sum float64
		ok                  bool
	}{
		{name: "before", start: -interval, end: 0},
		{name: "after", start: 9 * interval, end: 11 * interval},
		{name: "one sample", start: 3 * interval, end: 4 * interval, max: 3, mean: 3, min: 3, sum: 3, ok: true},
		{name: "two samples", start: 0, end: 2 * interval, max: 1, mean: 0.5, min: 0, sum: 1, ok: true},
		{name: "partial edges", start: interval / 2, end: 3*interval + interval/2, max: 3, mean: 1.5, min: 0, sum: 4.5, ok: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			maximum, mean, minimum, sum, ok := tr.RatesBetween(tc.start, tc.end)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			require.InDelta(t, tc.max, maximum, 1e-9, "max")
			require.InDelta(t, tc.mean, mean, 1e-9, "mean")
			require.InDelta(t, tc.min, minimum, 1e-9, "min")
			require.InDelta(t, tc.sum, sum, 1e-9, "sum")
		})
	}
}

func TestTraceHalfSamples(t *testing.T) {
	interval := int64(1000)
	sampleCount := int64(10)
	tr, expectedSum := makeTestTrace(t, interval, sampleCount)
	half := interval / 2
	sum := float64(0)
	for i := int64(0); i < sampleCount*2; i++ {
		maximum, mean, minimum, _, ok := tr.RatesBetween(i*half, (i+1)*half)
		if !ok {
			t.Errorf("querying values in range should always be okay, value %d was not", i)
		}
		if minimum != mean || mean != maximum {
			t.Errorf("min, mean, and max should all be equal within one sample, value %d has %f %f %f", i, minimum, mean, maximum)
		}
		sum += mean * (float64(half) / float64(time.Second))
	}
	require.InDelta(t, expectedSum, sum, 1e-6)
}

const traceCSV = `start (ns), end (ns), cpu (J), gpu (W), note
0, 1000000000, 1, 2, idle
bad, 1000000000, 5, 5, broken
1000000000, 2000000000, 3, 4, busy
2000000000, 3000`

func TestReadTraces(t *testing.T) {
	var logs bytes.Buffer
	set, err := ReadTraces(strings.NewReader(traceCSV), zerolog.New(&logs))
	require.NoError(t, err)
	require.Len(t, set.Traces, 2)
	require.Equal(t, "cpu (J)", set.Traces[0].Name())
	require.Equal(t, "gpu (W)", set.Traces[1].Name())
	require.Equal(t, 2, set.Traces[0].Len(), "the malformed and the partial line are skipped")
	require.Contains(t, logs.String(), "bad start timestamp")

	lo, hi := set.Domain()
	require.Equal(t, int64(0), lo)
	require.Equal(t, int64(2*time.Second), hi)

	_, err = ReadTraces(strings.NewReader("start, end, note\n0, 1, x\n"), zerolog.Nop())
	require.Error(t, err)
}

func TestReadTracesWideFile(t *testing.T) {
	const columns = 400
	var b strings.Builder
	b.WriteString("start (ns), end (ns)")
	for i := 0; i < columns; i++ {
		fmt.Fprintf(&b, ", sensor %03d (W)", i)
	}
	b.WriteString("\n0, 1000000000")
	for i := 0; i < columns; i++ {
		fmt.Fprintf(&b, ", %d", i)
	}
	b.WriteString("\n")
	require.Greater(t, b.Len(), 8192)

	set, err := ReadTraces(strings.NewReader(b.String()), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, set.Traces, columns)
	for i, tr := range set.Traces {
		require.Equal(t, fmt.Sprintf("sensor %03d (W)", i), tr.Name())
		require.Equal(t, 1, tr.Len())
		require.InDelta(t, float64(i), tr.Sum(), 1e-9, "one second at %d W", i)
	}
}

func TestTraceChart(t *testing.T) {
	set, err := ReadTraces(strings.NewReader(traceCSV), zerolog.Nop())
	require.NoError(t, err)

	t.Run("single frame", func(t *testing.T) {
		c, err := set.Chart(TraceOptions{Buckets: 2, Kind: model.Line, Title: "power"})
		require.NoError(t, err)
		require.Equal(t, "power", c.Title().Text())
		require.Equal(t, []string{"0s", "1s"}, c.Diagram().Categories())
		series := c.AllSeries()
		require.Len(t, series, 2)
		require.InDeltaSlice(t, []float64{1, 3}, series[0].Values(), 1e-9)
		require.InDeltaSlice(t, []float64{2, 4}, series[1].Values(), 1e-9)
		require.Zero(t, c.TimeFrameCount())
	})

	t.Run("windows become frames", func(t *testing.T) {
		c, err := set.Chart(TraceOptions{Window: 1500 * time.Millisecond, Buckets: 3, Kind: model.Bar})
		require.NoError(t, err)
		require.Equal(t, 2, c.TimeFrameCount())
		frames := c.AllSeries()[0].TimeValues()
		require.InDelta(t, 1, frames[0][0], 1e-9)
		require.InDelta(t, 3, frames[0][2], 1e-9)
		require.InDelta(t, 3, frames[1][0], 1e-9)
		require.True(t, math.IsNaN(frames[1][1]), "buckets past the recording are empty")
	})

	t.Run("too many buckets", func(t *testing.T) {
		_, err := set.Chart(TraceOptions{Window: 2, Buckets: 10})
		require.Error(t, err)
	})
}
