package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManual(t *testing.T) {
	m := NewManual()
	var order []string
	m.Schedule(3*time.Second, func() { order = append(order, "c") })
	m.Schedule(time.Second, func() { order = append(order, "a") })
	cancelled := m.Schedule(2*time.Second, func() { order = append(order, "cancelled") })
	m.Cancel(cancelled)

	require.Equal(t, 1, m.Advance(1500*time.Millisecond))
	require.Equal(t, []string{"a"}, order)
	require.Equal(t, 1500*time.Millisecond, m.Now())

	require.Equal(t, 1, m.Advance(2*time.Second))
	require.Equal(t, []string{"a", "c"}, order)
	require.Equal(t, 0, m.Pending())
}

func TestManualReschedule(t *testing.T) {
	m := NewManual()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		m.Schedule(time.Second, tick)
	}
	m.Schedule(time.Second, tick)
	require.Equal(t, 3, m.Advance(3*time.Second))
	require.Equal(t, 3, ticks)

	require.True(t, m.RunNext())
	require.Equal(t, 4, ticks)
	require.Equal(t, 4*time.Second, m.Now())
}

func TestLoopDrain(t *testing.T) {
	var invalidated atomic.Int32
	l := NewLoop(func() { invalidated.Add(1) })
	defer l.Stop()

	var ran atomic.Int32
	l.Schedule(time.Millisecond, func() { ran.Add(1) })
	cancelled := l.Schedule(time.Millisecond, func() { ran.Add(100) })
	l.Cancel(cancelled)

	require.Eventually(t, func() bool { return invalidated.Load() >= 1 }, time.Second, time.Millisecond)
	require.Equal(t, int32(0), ran.Load(), "callbacks only run from Drain")
	require.Equal(t, 1, l.Drain())
	require.Equal(t, int32(1), ran.Load())
	require.Equal(t, 0, l.Pending())
}

func TestLoopRun(t *testing.T) {
	l := NewLoop(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	l.Schedule(time.Millisecond, func() {
		close(done)
		cancel()
	})
	err := l.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	select {
	case <-done:
	default:
		t.Errorf("callback did not run")
	}
}
