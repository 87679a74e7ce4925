// Package surface pools off-screen drawing surfaces.
//
// A Pool hands out surfaces created by a Backend, keeps released ones for
// reuse and destroys every free surface after a period without releases.
// The pool is shared between views and guards itself with its own lock.
package surface

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"git.sr.ht/~whereswaldon/chartview/errkind"
	"git.sr.ht/~whereswaldon/chartview/timer"
)

// DefaultIdleTimeout is how long free surfaces survive without a release.
const DefaultIdleTimeout = 3 * time.Second

// Device is the output device surfaces are created compatible with.
type Device interface {
	BitDepth() int
	// Disposed reports whether the device was destroyed. Surfaces created
	// from a disposed device must not be reused.
	Disposed() bool
}

// Surface is an off-screen drawable.
type Surface interface {
	Size() image.Point
	BitDepth() int
	Transparent() bool
}

// BlendMode selects how DrawComposited combines pixels.
type BlendMode uint8

const (
	BlendOver BlendMode = iota
	BlendSource
)

// Backend creates, destroys and composites surfaces.
type Backend interface {
	CreateSurface(template Device, size image.Point, transparent bool) (Surface, error)
	DisposeSurface(s Surface)
	DrawComposited(dest, src Surface, mode BlendMode) error
}

// Policy decides whether a free surface larger than requested may serve a
// request.
type Policy interface {
	Accept(requested, candidate image.Point) bool
}

// AnySize accepts any free surface at least as large as requested.
type AnySize struct{}

func (AnySize) Accept(requested, candidate image.Point) bool { return true }

// ExactSmall only serves small requests, of at most MaxPixels pixels,
// from surfaces of exactly the requested size. Larger requests accept any
// big enough surface.
type ExactSmall struct {
	MaxPixels int
}

func (p ExactSmall) Accept(requested, candidate image.Point) bool {
	if requested.X*requested.Y > p.MaxPixels {
		return true
	}
	return requested == candidate
}

type entry struct {
	surface     Surface
	transparent bool
	template    Device
}

// Options configures a Pool.
type Options struct {
	Backend Backend
	// Timers schedules idle eviction. Without one, free surfaces are kept
	// until Shutdown.
	Timers      timer.Service
	IdleTimeout time.Duration
	// Policy defaults to AnySize.
	Policy Policy
	Logger *zerolog.Logger
}

// Pool is a best-fit pool of surfaces.
type Pool struct {
	lock    sync.Mutex
	backend Backend
	timers  timer.Service
	idle    time.Duration
	policy  Policy
	log     zerolog.Logger
	free    []entry
	used    map[Surface]entry
	evict   timer.Handle
	closed  bool
	metrics *metrics
}

// NewPool returns an empty pool. opts.Backend is required.
func NewPool(opts Options) *Pool {
	p := &Pool{
		backend: opts.Backend,
		timers:  opts.Timers,
		idle:    opts.IdleTimeout,
		policy:  opts.Policy,
		log:     zerolog.Nop(),
		used:    make(map[Surface]entry),
		metrics: newMetrics(),
	}
	if p.idle <= 0 {
		p.idle = DefaultIdleTimeout
	}
	if p.policy == nil {
		p.policy = AnySize{}
	}
	if opts.Logger != nil {
		p.log = opts.Logger.With().Str("component", "surface-pool").Logger()
	}
	return p
}

// Acquire returns a free surface compatible with template that is at
// least size large, or allocates a new one. Surfaces whose template
// device was disposed are destroyed instead of reused. Allocation
// failures are reported as ResourceExhausted; a pool that was shut down
// fails with NotAvailable.
func (p *Pool) Acquire(template Device, size image.Point, transparent bool) (Surface, error) {
	if template == nil {
		return nil, errkind.OutOfRange.New("nil template device")
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, errkind.OutOfRange.New(fmt.Sprintf("surface size %v", size))
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return nil, errkind.NotAvailable.New("surface pool is shut down")
	}

	best := -1
	kept := p.free[:0]
	for _, e := range p.free {
		if e.template.Disposed() {
			p.backend.DisposeSurface(e.surface)
			p.metrics.stale.Inc()
			p.log.Debug().Msg("discarded surface of disposed device")
			continue
		}
		kept = append(kept, e)
		i := len(kept) - 1
		s := e.surface.Size()
		if e.template.BitDepth() != template.BitDepth() || e.transparent != transparent {
			continue
		}
		if s.X < size.X || s.Y < size.Y || !p.policy.Accept(size, s) {
			continue
		}
		if best < 0 || area(s) < area(kept[best].surface.Size()) {
			best = i
		}
	}
	clear(p.free[len(kept):])
	p.free = kept

	if best >= 0 {
		e := p.free[best]
		p.free = append(p.free[:best], p.free[best+1:]...)
		p.used[e.surface] = e
		p.metrics.reused.Inc()
		p.updateGauges()
		return e.surface, nil
	}

	s, err := p.backend.CreateSurface(template, size, transparent)
	if err != nil {
		p.metrics.failed.Inc()
		return nil, errkind.ResourceExhausted.Wrap(err, fmt.Sprintf("allocating %dx%d surface", size.X, size.Y))
	}
	p.used[s] = entry{surface: s, transparent: transparent, template: template}
	p.metrics.allocated.Inc()
	p.updateGauges()
	return s, nil
}

func area(p image.Point) int { return p.X * p.Y }

// Release returns s to the pool and restarts the idle eviction timer.
// Releasing a surface the pool did not hand out is logged and ignored.
func (p *Pool) Release(s Surface) {
	p.lock.Lock()
	defer p.lock.Unlock()
	e, ok := p.used[s]
	if !ok {
		p.log.Warn().Msg("release of a surface the pool does not track")
		return
	}
	delete(p.used, s)
	if p.closed {
		p.backend.DisposeSurface(s)
		p.updateGauges()
		return
	}
	p.free = append(p.free, e)
	p.updateGauges()
	if p.timers != nil {
		if p.evict != 0 {
			p.timers.Cancel(p.evict)
		}
		p.evict = p.timers.Schedule(p.idle, p.evictIdle)
	}
}

func (p *Pool) evictIdle() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.evict = 0
	if len(p.free) > 0 {
		p.log.Debug().Int("surfaces", len(p.free)).Msg("evicting idle surfaces")
	}
	p.disposeFree()
}

func (p *Pool) disposeFree() {
	for _, e := range p.free {
		p.backend.DisposeSurface(e.surface)
		p.metrics.evicted.Inc()
	}
	p.free = nil
	p.updateGauges()
}

// Shutdown destroys every free surface and stops the eviction timer.
// Surfaces still in use are destroyed when released.
func (p *Pool) Shutdown() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.evict != 0 && p.timers != nil {
		p.timers.Cancel(p.evict)
		p.evict = 0
	}
	p.closed = true
	p.disposeFree()
}

// FreeCount returns the number of surfaces available for reuse.
func (p *Pool) FreeCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.free)
}

// UsedCount returns the number of surfaces handed out and not released.
func (p *Pool) UsedCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.used)
}

// DrawComposited composites src onto dest with the pool's backend.
func (p *Pool) DrawComposited(dest, src Surface, mode BlendMode) error {
	return p.backend.DrawComposited(dest, src, mode)
}

func (p *Pool) updateGauges() {
	p.metrics.free.Set(float64(len(p.free)))
	p.metrics.used.Set(float64(len(p.used)))
}

// Collectors returns the pool's prometheus collectors for registration by
// the host.
func (p *Pool) Collectors() []prometheus.Collector {
	m := p.metrics
	return []prometheus.Collector{m.free, m.used, m.allocated, m.reused, m.stale, m.evicted, m.failed}
}

type metrics struct {
	free, used                                prometheus.Gauge
	allocated, reused, stale, evicted, failed prometheus.Counter
}

func newMetrics() *metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "chartview", Subsystem: "surface_pool", Name: name, Help: help})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: "chartview", Subsystem: "surface_pool", Name: name, Help: help})
	}
	return &metrics{
		free:      gauge("free_surfaces", "Surfaces available for reuse."),
		used:      gauge("used_surfaces", "Surfaces handed out and not released."),
		allocated: counter("allocated_total", "Surfaces created by the backend."),
		reused:    counter("reused_total", "Acquisitions served from the free list."),
		stale:     counter("stale_discarded_total", "Free surfaces discarded because their device was disposed."),
		evicted:   counter("evicted_total", "Free surfaces destroyed by idle eviction or shutdown."),
		failed:    counter("allocation_failures_total", "Backend allocation failures."),
	}
}
