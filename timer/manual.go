package timer

import (
	"sync"
	"time"
)

type manualTask struct {
	at time.Duration
	fn func()
}

// Manual is a Service driven by explicit calls to Advance. Callbacks run
// on the goroutine calling Advance.
type Manual struct {
	lock  sync.Mutex
	now   time.Duration
	next  Handle
	tasks map[Handle]manualTask
}

var _ Service = (*Manual)(nil)

func NewManual() *Manual {
	return &Manual{tasks: make(map[Handle]manualTask)}
}

func (m *Manual) Schedule(d time.Duration, fn func()) Handle {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.next++
	m.tasks[m.next] = manualTask{at: m.now + d, fn: fn}
	return m.next
}

func (m *Manual) Cancel(h Handle) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.tasks, h)
}

// Now returns the time elapsed since the scheduler was created.
func (m *Manual) Now() time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.now
}

// Pending returns the number of scheduled callbacks.
func (m *Manual) Pending() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d and runs every callback that falls
// due, in due order. Callbacks scheduled while advancing run too if they
// fall due before the new time. It returns the number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	m.lock.Lock()
	target := m.now + d
	m.lock.Unlock()
	ran := 0
	for {
		fn, ok := m.popDue(target)
		if !ok {
			break
		}
		fn()
		ran++
	}
	m.lock.Lock()
	m.now = target
	m.lock.Unlock()
	return ran
}

// RunNext advances the clock to the earliest scheduled callback and runs
// it. It reports false if nothing is scheduled.
func (m *Manual) RunNext() bool {
	m.lock.Lock()
	var (
		best  Handle
		found bool
	)
	for h, t := range m.tasks {
		if !found || t.at < m.tasks[best].at || (t.at == m.tasks[best].at && h < best) {
			best, found = h, true
		}
	}
	if !found {
		m.lock.Unlock()
		return false
	}
	at := m.tasks[best].at
	m.lock.Unlock()
	m.Advance(at - m.Now())
	return true
}

func (m *Manual) popDue(target time.Duration) (func(), bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var (
		best  Handle
		found bool
	)
	for h, t := range m.tasks {
		if t.at > target {
			continue
		}
		if !found || t.at < m.tasks[best].at || (t.at == m.tasks[best].at && h < best) {
			best, found = h, true
		}
	}
	if !found {
		return nil, false
	}
	t := m.tasks[best]
	delete(m.tasks, best)
	if t.at > m.now {
		m.now = t.at
	}
	return t.fn, true
}
