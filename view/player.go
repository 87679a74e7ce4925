package view

import (
	"git.sr.ht/~whereswaldon/chartview/builder"
	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/timer"
)

type playerState struct {
	enabled bool
	// shown is the frame the tree displays, next the one the next tick
	// renders.
	shown, next int
	timer       timer.Handle
	snapshots   []*builder.Frame
	// deferred is set by a tick that arrived during a rebuild.
	deferred bool
}

func (p *playerState) frame() *builder.Frame {
	if !p.enabled || p.shown >= len(p.snapshots) {
		return nil
	}
	return p.snapshots[p.shown]
}

// EnableTimeBased starts cycling through the time frames of the chart's
// series. The frames are snapshotted once; later changes to time values
// take effect when playback is enabled again.
func (v *View) EnableTimeBased() error {
	if v.timers == nil {
		return errkind.NotAvailable.New("view has no timer service")
	}
	n := v.chart.TimeFrameCount()
	if n == 0 {
		return errkind.NotAvailable.New("chart has no time frames")
	}
	snaps := make([]*builder.Frame, n)
	for k := range snaps {
		snaps[k] = builder.FrameOf(v.chart, k)
	}
	var old timer.Handle
	v.box.Write(func(s *viewState) {
		old = s.play.timer
		s.play = playerState{enabled: true, snapshots: snaps}
		markDirty(s)
	})
	if old != 0 {
		v.timers.Cancel(old)
	}
	v.log.Info().Int("frames", n).Dur("interval", v.interval).Msg("time-based playback enabled")
	v.schedule()
	return nil
}

// DisableTimeBased stops playback and drops the frame snapshots.
func (v *View) DisableTimeBased() {
	var (
		h   timer.Handle
		was bool
	)
	v.box.Write(func(s *viewState) {
		h, was = s.play.timer, s.play.enabled
		s.play = playerState{}
		if was {
			markDirty(s)
		}
	})
	if h != 0 {
		v.timers.Cancel(h)
	}
	if was {
		v.log.Info().Msg("time-based playback disabled")
	}
}

// TimeBased reports whether playback is enabled.
func (v *View) TimeBased() bool {
	var on bool
	v.box.Read(func(s *viewState) { on = s.play.enabled })
	return on
}

// DisplayedFrame returns the time frame the tree shows.
func (v *View) DisplayedFrame() (int, bool) {
	var (
		k  int
		on bool
	)
	v.box.Read(func(s *viewState) { k, on = s.play.shown, s.play.enabled })
	return k, on
}

func (v *View) schedule() {
	h := v.timers.Schedule(v.interval, v.tick)
	stale := false
	v.box.Write(func(s *viewState) {
		if !s.play.enabled || s.closed || s.play.timer != 0 {
			stale = true
			return
		}
		s.play.timer = h
	})
	if stale {
		v.timers.Cancel(h)
	}
}

// tick renders the next frame and schedules the one after. Only series
// are redrawn unless the view is dirty. A tick during a rebuild is
// replayed when the rebuild finishes.
func (v *View) tick() {
	var run, partial bool
	v.box.Write(func(s *viewState) {
		s.play.timer = 0
		if !s.play.enabled || s.closed {
			return
		}
		if s.state == Rebuilding || s.state == RebuildingDirtyPending {
			s.play.deferred = true
			return
		}
		run = true
		partial = s.state == Clean
		k := s.play.next
		s.play.shown = k
		s.play.next = (k + 1) % len(s.play.snapshots)
	})
	if !run {
		return
	}
	v.metrics.frames.Inc()
	if err := v.rebuild(partial); err != nil {
		v.log.Warn().Err(err).Msg("frame not rendered")
	}
	v.schedule()
}
