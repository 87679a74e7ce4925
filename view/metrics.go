package view

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	rebuilds      *prometheus.CounterVec
	failures      prometheus.Counter
	skipped       prometheus.Counter
	notifications prometheus.Counter
	frames        prometheus.Counter
	duration      prometheus.Histogram
}

func newMetrics() *metrics {
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: "chartview", Subsystem: "view", Name: name, Help: help}
	}
	return &metrics{
		rebuilds:      prometheus.NewCounterVec(opts("rebuilds_total", "Rebuild passes by kind."), []string{"kind"}),
		failures:      prometheus.NewCounter(opts("rebuild_failures_total", "Rebuild passes aborted by an error.")),
		skipped:       prometheus.NewCounter(opts("skipped_shapes_total", "Shapes left out because they could not be built.")),
		notifications: prometheus.NewCounter(opts("notifications_total", "Model change notifications received.")),
		frames:        prometheus.NewCounter(opts("frames_total", "Time frames rendered by the player.")),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chartview",
			Subsystem: "view",
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of rebuild passes.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
}

// Collectors returns the view's prometheus collectors for registration by
// the host. Views of one process need distinct registries or const labels.
func (v *View) Collectors() []prometheus.Collector {
	m := v.metrics
	return []prometheus.Collector{m.rebuilds, m.failures, m.skipped, m.notifications, m.frames, m.duration}
}
