// Package view keeps a shape tree in step with a chart model.
//
// A View listens to its chart and marks itself dirty on every change. It
// never rebuilds from a notification: the host calls Update, usually once
// per frame, and queries the resulting tree. The view's state lives in a
// lock box that is released while a rebuild runs, so model listeners and
// the player may call back into the view from inside a rebuild. Such
// calls are deferred and replayed once the running pass finishes.
package view

import (
	"time"

	"gioui.org/f32"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"git.sr.ht/~whereswaldon/chartview/arrange"
	"git.sr.ht/~whereswaldon/chartview/builder"
	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/geom"
	"git.sr.ht/~whereswaldon/chartview/measure"
	"git.sr.ht/~whereswaldon/chartview/model"
	"git.sr.ht/~whereswaldon/chartview/shape"
	"git.sr.ht/~whereswaldon/chartview/timer"
)

// State is the rebuild state of a view.
type State uint8

const (
	Clean State = iota
	Dirty
	Rebuilding
	// RebuildingDirtyPending is a rebuild during which the model changed.
	// Another pass follows immediately.
	RebuildingDirtyPending
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Rebuilding:
		return "rebuilding"
	case RebuildingDirtyPending:
		return "rebuilding-dirty-pending"
	default:
		return "unknown"
	}
}

const (
	// DefaultMaxPasses bounds the rebuild passes of one Update.
	DefaultMaxPasses = 8
	// DefaultFrameInterval is the time between player ticks.
	DefaultFrameInterval = 500 * time.Millisecond
)

// Options configures a View.
type Options struct {
	// Engine defaults to an engine using Measurer.
	Engine *arrange.Engine
	// Builder defaults to a builder without a surface pool.
	Builder  *builder.Builder
	Measurer measure.Measurer
	Typeface string
	// Timers drives the time-based player. Without one, the player cannot
	// be enabled.
	Timers        timer.Service
	FrameInterval time.Duration
	MaxPasses     int
	PageSize      geom.Size
	Logger        *zerolog.Logger
}

type viewState struct {
	state  State
	page   geom.Size
	layout *arrange.Layout
	tree   *shape.Tree
	closed bool
	play   playerState
}

// View is the controller between one chart model and its shape tree.
type View struct {
	id        ulid.ULID
	chart     *model.Chart
	engine    *arrange.Engine
	builder   *builder.Builder
	measurer  measure.Measurer
	typeface  string
	timers    timer.Service
	interval  time.Duration
	maxPasses int
	log       zerolog.Logger
	metrics   *metrics
	sub       model.Handle

	box box[viewState]
}

// New returns a dirty view of chart and subscribes to its changes.
func New(chart *model.Chart, opts Options) *View {
	v := &View{
		id:        ulid.Make(),
		chart:     chart,
		engine:    opts.Engine,
		builder:   opts.Builder,
		measurer:  opts.Measurer,
		typeface:  opts.Typeface,
		timers:    opts.Timers,
		interval:  opts.FrameInterval,
		maxPasses: opts.MaxPasses,
		log:       zerolog.Nop(),
		metrics:   newMetrics(),
	}
	if v.measurer == nil {
		v.measurer = measure.Approx{}
	}
	if opts.Logger != nil {
		v.log = opts.Logger.With().Str("view", v.id.String()).Logger()
	}
	if v.engine == nil {
		v.engine = arrange.New(arrange.Options{Measurer: v.measurer, Typeface: v.typeface, Logger: &v.log})
	}
	if v.builder == nil {
		v.builder = builder.New(builder.Options{Logger: &v.log})
	}
	if v.interval <= 0 {
		v.interval = DefaultFrameInterval
	}
	if v.maxPasses <= 0 {
		v.maxPasses = DefaultMaxPasses
	}
	v.box.t = viewState{state: Dirty, page: opts.PageSize}
	v.sub = chart.Subscribe(model.ListenerFunc(func(any) { v.MarkDirty() }))
	return v
}

// ID identifies the view in logs.
func (v *View) ID() ulid.ULID { return v.id }

// Chart returns the model the view shows.
func (v *View) Chart() *model.Chart { return v.chart }

// State returns the current rebuild state.
func (v *View) State() State {
	var s State
	v.box.Read(func(vs *viewState) { s = vs.state })
	return s
}

// MarkDirty records that the model changed. It never rebuilds.
func (v *View) MarkDirty() {
	v.metrics.notifications.Inc()
	v.box.Write(markDirty)
}

func markDirty(s *viewState) {
	switch s.state {
	case Clean:
		s.state = Dirty
	case Rebuilding:
		s.state = RebuildingDirtyPending
	}
}

// SetPageSize sets the size of the page the chart is laid out on and
// marks the view dirty if it changed.
func (v *View) SetPageSize(size geom.Size) {
	v.box.Write(func(s *viewState) {
		if s.page == size {
			return
		}
		s.page = size
		markDirty(s)
	})
}

// PageSize returns the current page size.
func (v *View) PageSize() geom.Size {
	var p geom.Size
	v.box.Read(func(s *viewState) { p = s.page })
	return p
}

// Update rebuilds the shape tree if the view is dirty.
func (v *View) Update() error { return v.UpdateSoft() }

// UpdateSoft rebuilds the shape tree if the view is dirty.
func (v *View) UpdateSoft() error {
	if v.State() == Clean {
		return nil
	}
	return v.rebuild(false)
}

// UpdateHard rebuilds the shape tree regardless of the view's state.
func (v *View) UpdateHard() error {
	return v.rebuild(false)
}

// rebuild runs rebuild passes until the model stops changing. A call made
// while a rebuild runs only marks the running one for another pass.
func (v *View) rebuild(partial bool) error {
	var (
		nested bool
		closed bool
	)
	v.box.Write(func(s *viewState) {
		closed = s.closed
		switch s.state {
		case Rebuilding, RebuildingDirtyPending:
			s.state = RebuildingDirtyPending
			nested = true
		default:
			if !closed {
				s.state = Rebuilding
			}
		}
	})
	if closed {
		return errkind.NotAvailable.New("view is closed")
	}
	if nested {
		return nil
	}
	err := v.passes(partial)

	var tick bool
	v.box.Write(func(s *viewState) {
		tick = s.play.deferred
		s.play.deferred = false
	})
	if tick {
		v.tick()
	}
	return err
}

func (v *View) passes(partial bool) error {
	for pass := 1; ; pass++ {
		var (
			page     geom.Size
			old      *shape.Tree
			layout   *arrange.Layout
			frame    *builder.Frame
			timeMode bool
		)
		v.box.Read(func(s *viewState) {
			page, old, layout = s.page, s.tree, s.layout
			frame = s.play.frame()
			timeMode = s.play.enabled
		})

		start := time.Now()
		in := builder.Input{Chart: v.chart, Measurer: v.measurer, Typeface: v.typeface, Frame: frame}
		var (
			tree  *shape.Tree
			stats builder.Stats
			err   error
			kind  = "full"
		)
		if partial && pass == 1 && old != nil && layout != nil {
			kind = "series"
			in.Layout = layout
			tree, stats, err = v.builder.RebuildSeries(old, in)
		} else {
			layout = v.engine.Arrange(v.chart, page, arrange.Mode{TimeBased: timeMode})
			in.Layout = layout
			tree, stats, err = v.builder.Build(in)
		}
		v.metrics.rebuilds.WithLabelValues(kind).Inc()
		v.metrics.duration.Observe(time.Since(start).Seconds())
		v.metrics.skipped.Add(float64(stats.Skipped))
		if stats.Skipped > 0 {
			v.log.Debug().Int("skipped", stats.Skipped).Msg("shapes skipped")
		}

		if err != nil {
			v.metrics.failures.Inc()
			v.box.Write(func(s *viewState) { s.state = Dirty })
			v.log.Error().Err(err).Int("pass", pass).Msg("rebuild failed; view stays dirty")
			return err
		}

		again := false
		v.box.Write(func(s *viewState) {
			s.tree, s.layout = tree, layout
			if s.state == RebuildingDirtyPending {
				s.state = Rebuilding
				again = true
				return
			}
			s.state = Clean
		})
		if !again {
			v.log.Debug().Str("kind", kind).Int("passes", pass).Int("shapes", stats.Shapes).Msg("rebuilt")
			return nil
		}
		if pass >= v.maxPasses {
			v.box.Write(func(s *viewState) { s.state = Dirty })
			v.log.Warn().Int("passes", pass).Msg("model kept changing during rebuild; giving up until next update")
			return nil
		}
	}
}

// ExplicitValuesForAxis returns the resolved scale and increment of a.
// It fails with NotAvailable unless the view is clean and a is part of
// the laid out chart.
func (v *View) ExplicitValuesForAxis(a *model.Axis) (geom.ExplicitScaleData, geom.ExplicitIncrementData, error) {
	var (
		al    *arrange.AxisLayout
		state State
	)
	v.box.Read(func(s *viewState) {
		state = s.state
		al = s.layout.Axis(a)
	})
	if state != Clean {
		return geom.ExplicitScaleData{}, geom.ExplicitIncrementData{}, errkind.NotAvailable.New("view is " + state.String())
	}
	if al == nil {
		return geom.ExplicitScaleData{}, geom.ExplicitIncrementData{}, errkind.NotAvailable.New("axis was not laid out")
	}
	return al.Scale, al.Increment, nil
}

// Tree returns the last built shape tree, or nil.
func (v *View) Tree() *shape.Tree {
	var t *shape.Tree
	v.box.Read(func(s *viewState) { t = s.tree })
	return t
}

func (v *View) builtTree() (*shape.Tree, error) {
	t := v.Tree()
	if t == nil {
		return nil, errkind.NotAvailable.New("view was never built")
	}
	return t, nil
}

// ShapeForObjectID returns the shape identified by cid in the last built
// tree.
func (v *View) ShapeForObjectID(cid shape.CID) (*shape.Shape, error) {
	t, err := v.builtTree()
	if err != nil {
		return nil, err
	}
	return t.Lookup(cid)
}

// RectangleOfObject returns the page rectangle of the shape identified
// by cid, snapped to whole pixels when snap is set.
func (v *View) RectangleOfObject(cid shape.CID, snap bool) (geom.Rect, error) {
	t, err := v.builtTree()
	if err != nil {
		return geom.Rect{}, err
	}
	return t.Bounds(cid, snap)
}

// ObjectAt returns the identifier of the topmost object at p.
func (v *View) ObjectAt(p f32.Point) (shape.CID, bool) {
	t := v.Tree()
	if t == nil {
		return "", false
	}
	s, ok := t.HitTest(p)
	if !ok {
		return "", false
	}
	return s.CID, true
}

// DumpAsDebugTree returns a deterministic text dump of the last built
// tree.
func (v *View) DumpAsDebugTree() (string, error) {
	t, err := v.builtTree()
	if err != nil {
		return "", err
	}
	return t.Dump()
}

// DiagramRectangleExcludingAxes returns the plot area of the last layout.
func (v *View) DiagramRectangleExcludingAxes() geom.Rect {
	var r geom.Rect
	v.box.Read(func(s *viewState) {
		if s.layout != nil {
			r = s.layout.Plot
		}
	})
	return r
}

// SetAutoResize turns proportional font scaling on or off for every
// object of the chart, using the current page size as reference.
func (v *View) SetAutoResize(on bool) {
	arrange.ReferenceSize{Chart: v.chart, PageSize: v.PageSize()}.SetAutoResize(on)
}

// AutoResizeState scans the chart for its auto-resize state.
func (v *View) AutoResizeState() arrange.AutoResizeState {
	return arrange.ReferenceSize{Chart: v.chart, PageSize: v.PageSize()}.State()
}

// Close unsubscribes from the model, stops the player and drops the
// view's state.
func (v *View) Close() {
	v.chart.Unsubscribe(v.sub)
	var h timer.Handle
	v.box.Write(func(s *viewState) {
		h = s.play.timer
		s.play = playerState{}
		s.tree, s.layout = nil, nil
		s.closed = true
	})
	if h != 0 && v.timers != nil {
		v.timers.Cancel(h)
	}
}
