package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/model"
)

// Unit is the unit of a trace column.
type Unit uint8

const (
	Joules Unit = iota
	Watts
)

// Sample is one measurement over the interval [Start, End), in
// nanoseconds.
type Sample struct {
	Start, End int64
	Value      float64
	Unit       Unit
}

// Trace is the energy use of one sensor over time.
type Trace struct {
	name       string
	starts     []int64
	ends       []int64
	joules     []float64
	domainMin  int64
	domainMax  int64
	sum        float64
	hasSamples bool
}

func NewTrace(name string) *Trace {
	return &Trace{name: name}
}

func (t *Trace) Name() string { return t.name }

// Domain returns the time span covered by the samples.
func (t *Trace) Domain() (lo, hi int64) { return t.domainMin, t.domainMax }

// Sum returns the total energy in joules.
func (t *Trace) Sum() float64 { return t.sum }

// Len returns the number of samples.
func (t *Trace) Len() int { return len(t.starts) }

// Insert appends a sample. Samples overlapping the end of the trace are
// rejected and Insert reports false.
func (t *Trace) Insert(s Sample) bool {
	if n := len(t.ends); n > 0 && t.ends[n-1] > s.Start {
		return false
	}
	if !t.hasSamples {
		t.domainMin, t.domainMax = s.Start, s.End
		t.hasSamples = true
	}
	t.domainMin = min(t.domainMin, s.Start)
	t.domainMax = max(t.domainMax, s.End)
	energy := s.Value
	if s.Unit == Watts {
		energy = s.Value * float64(s.End-s.Start) / float64(time.Second)
	}
	t.starts = append(t.starts, s.Start)
	t.ends = append(t.ends, s.End)
	t.joules = append(t.joules, energy)
	t.sum += energy
	return true
}

// RatesBetween returns the maximum, mean and minimum power in watts and
// the energy in joules over [a, b). Samples cut by the interval count in
// proportion to their overlap. ok is false if the interval leaves the
// trace.
func (t *Trace) RatesBetween(a, b int64) (maximum, mean, minimum, sum float64, ok bool) {
	n := len(t.starts)
	if n == 0 {
		return 0, 0, 0, 0, false
	}
	if b < a {
		a, b = b, a
	}
	if a < t.starts[0] {
		return 0, 0, 0, 0, false
	}
	first := sort.Search(n, func(i int) bool { return a < t.ends[i] })
	if first == n {
		return 0, 0, 0, 0, false
	}
	last := sort.Search(n, func(i int) bool { return b < t.ends[i] })
	if last == n {
		if b > t.ends[n-1] {
			return 0, 0, 0, 0, false
		}
		last--
	}
	if first == last {
		span := float64(t.ends[first] - t.starts[first])
		rate := t.joules[first] / (span / float64(time.Second))
		return rate, rate, rate, t.joules[first] * float64(b-a) / span, true
	}
	seen := false
	for i := first; i <= last; i++ {
		energy := t.joules[i]
		span := float64(t.ends[i] - t.starts[i])
		var covered int64 = -1
		switch i {
		case first:
			covered = t.ends[i] - a
		case last:
			covered = b - t.starts[i]
		}
		if covered == 0 {
			continue
		}
		if covered > 0 {
			energy *= float64(covered) / span
			span = float64(covered)
		}
		sum += energy
		rate := energy / (span / float64(time.Second))
		if !seen {
			maximum, minimum, seen = rate, rate, true
			continue
		}
		maximum = max(maximum, rate)
		minimum = min(minimum, rate)
	}
	mean = sum / (float64(b-a) / float64(time.Second))
	return maximum, mean, minimum, sum, true
}

// TraceSet holds the traces of one recording.
type TraceSet struct {
	Traces []*Trace
}

// Domain returns the time span covered by every trace.
func (ts *TraceSet) Domain() (lo, hi int64) {
	seen := false
	for _, t := range ts.Traces {
		if t.Len() == 0 {
			continue
		}
		tlo, thi := t.Domain()
		if !seen {
			lo, hi, seen = tlo, thi, true
			continue
		}
		lo, hi = min(lo, tlo), max(hi, thi)
	}
	return lo, hi
}

// ReadTraces parses a CSV energy trace. The first two columns hold the
// start and end timestamps in nanoseconds; every column whose heading
// contains "(J)" or "(W)" becomes a trace. Malformed cells are logged and
// skipped. A trailing partial line is ignored.
func ReadTraces(r io.Reader, log zerolog.Logger) (*TraceSet, error) {
	cr := csv.NewReader(newLineReader(r))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	headings, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading trace headings: %w", err)
	}
	type column struct {
		index int
		unit  Unit
		trace *Trace
	}
	var (
		cols []column
		set  TraceSet
	)
	for i, h := range headings {
		if i < 2 {
			continue
		}
		var unit Unit
		switch {
		case strings.Contains(h, "(J)"):
			unit = Joules
		case strings.Contains(h, "(W)"):
			unit = Watts
		default:
			continue
		}
		t := NewTrace(strings.TrimSpace(h))
		cols = append(cols, column{index: i, unit: unit, trace: t})
		set.Traces = append(set.Traces, t)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("trace has no energy or power columns")
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 2 {
			continue
		}
		start, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			log.Warn().Int("line", line).Err(err).Msg("bad start timestamp")
			continue
		}
		end, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			log.Warn().Int("line", line).Err(err).Msg("bad end timestamp")
			continue
		}
		for _, c := range cols {
			if c.index >= len(rec) {
				continue
			}
			cell := strings.TrimSpace(rec[c.index])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				log.Warn().Int("line", line).Str("column", c.trace.Name()).Err(err).Msg("bad value")
				continue
			}
			if !c.trace.Insert(Sample{Start: start, End: end, Value: v, Unit: c.unit}) {
				log.Debug().Int("line", line).Str("column", c.trace.Name()).Msg("overlapping sample dropped")
			}
		}
	}
	return &set, nil
}

// TraceOptions configures TraceSet.Chart.
type TraceOptions struct {
	// Window is the time span of one frame. Zero shows the whole
	// recording in a single frame.
	Window time.Duration
	// Buckets is the number of categories per frame. Defaults to 10.
	Buckets int
	Kind    model.ChartKind
	Title   string
}

// Chart plots the mean power of every trace. The recording is cut into
// windows, one time frame each, and every window into buckets that become
// the categories. Buckets without data are NaN.
func (ts *TraceSet) Chart(opts TraceOptions) (*model.Chart, error) {
	lo, hi := ts.Domain()
	if hi <= lo {
		return nil, fmt.Errorf("trace covers no time")
	}
	window := int64(opts.Window)
	if window <= 0 || window > hi-lo {
		window = hi - lo
	}
	buckets := opts.Buckets
	if buckets <= 0 {
		buckets = 10
	}
	width := window / int64(buckets)
	if width <= 0 {
		return nil, fmt.Errorf("window %v too short for %d buckets", time.Duration(window), buckets)
	}
	frames := int(geom.Ceil(float64(hi-lo) / float64(window)))

	categories := make([]string, buckets)
	for j := range categories {
		categories[j] = time.Duration(int64(j) * width).Round(time.Millisecond).String()
	}
	cs, err := model.NewCoordinateSystem(model.Cartesian, 2)
	if err != nil {
		return nil, err
	}
	ct := model.NewChartType(opts.Kind)
	for _, t := range ts.Traces {
		tv := make([][]float64, frames)
		for k := range tv {
			start := lo + int64(k)*window
			tv[k] = make([]float64, buckets)
			for j := range tv[k] {
				a := start + int64(j)*width
				_, mean, _, _, ok := t.RatesBetween(a, a+width)
				if !ok {
					mean = math.NaN()
				}
				tv[k][j] = mean
			}
		}
		s := model.NewDataSeries(t.Name(), tv[0]...)
		if frames > 1 {
			s.SetTimeValues(tv)
		}
		if err := ct.AddSeries(s); err != nil {
			return nil, err
		}
	}
	if err := cs.AddChartType(ct); err != nil {
		return nil, err
	}
	if y, err := cs.AxisByDimension(1, 0); err == nil {
		y.SetTitle("W")
	}
	d := model.NewDiagram(categories...)
	if err := d.AddCoordinateSystem(cs); err != nil {
		return nil, err
	}
	c := model.NewChart(d)
	if opts.Title != "" {
		c.SetTitle(model.NewTitle(opts.Title))
	}
	return c, nil
}
