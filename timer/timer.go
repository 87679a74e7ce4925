// Package timer schedules callbacks that run on the UI thread.
//
// Timers fire on their own goroutines, but the callbacks never do: a Loop
// queues them and runs them when the UI thread calls Drain, so they never
// run concurrently with a rebuild.
package timer

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Handle identifies a scheduled callback. The zero Handle is never
// issued.
type Handle uint64

// Service schedules one-shot callbacks.
type Service interface {
	Schedule(d time.Duration, fn func()) Handle
	// Cancel stops a pending callback. Cancelling a callback that already
	// ran or an unknown handle does nothing.
	Cancel(h Handle)
}

type task struct {
	h  Handle
	fn func()
}

// Loop is a Service whose callbacks run from Drain.
type Loop struct {
	lock       sync.Mutex
	next       Handle
	timers     map[Handle]*time.Timer
	ready      []task
	invalidate func()
	wake       chan struct{}
}

var _ Service = (*Loop)(nil)

// NewLoop returns a loop that calls invalidate whenever a callback becomes
// ready to run. invalidate is called from timer goroutines and may be nil.
func NewLoop(invalidate func()) *Loop {
	return &Loop{
		timers:     make(map[Handle]*time.Timer),
		invalidate: invalidate,
		wake:       make(chan struct{}, 1),
	}
}

func (l *Loop) Schedule(d time.Duration, fn func()) Handle {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.next++
	h := l.next
	l.timers[h] = time.AfterFunc(d, func() { l.fire(h, fn) })
	return h
}

func (l *Loop) fire(h Handle, fn func()) {
	l.lock.Lock()
	if _, ok := l.timers[h]; !ok {
		l.lock.Unlock()
		return
	}
	delete(l.timers, h)
	l.ready = append(l.ready, task{h: h, fn: fn})
	l.lock.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	if l.invalidate != nil {
		l.invalidate()
	}
}

func (l *Loop) Cancel(h Handle) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if t, ok := l.timers[h]; ok {
		t.Stop()
		delete(l.timers, h)
	}
	l.ready = slices.DeleteFunc(l.ready, func(t task) bool { return t.h == h })
}

// Drain runs every ready callback on the calling goroutine and returns how
// many ran.
func (l *Loop) Drain() int {
	l.lock.Lock()
	ready := l.ready
	l.ready = nil
	l.lock.Unlock()
	for _, t := range ready {
		t.fn()
	}
	return len(ready)
}

// Pending returns the number of callbacks that have not run yet.
func (l *Loop) Pending() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.timers) + len(l.ready)
}

// Run drains callbacks as they become ready until ctx is done. It is the
// event loop of headless hosts.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.Drain()
		}
	}
}

// Stop cancels every pending callback.
func (l *Loop) Stop() {
	l.lock.Lock()
	defer l.lock.Unlock()
	for h, t := range l.timers {
		t.Stop()
		delete(l.timers, h)
	}
	l.ready = nil
}
