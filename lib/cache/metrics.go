package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus collectors a Resolver updates. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Hits           prometheus.Counter
	Misses         prometheus.Counter
	Failures       prometheus.Counter
	Evictions      prometheus.Counter
	Entries        prometheus.Gauge
	ComputeSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg, unless reg
// is nil.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Hits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Lookups served from the cache.",
		}),
		Misses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Lookups that had to compute their value.",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "compute_failures_total",
			Help:      "Computations that returned an error.",
		}),
		Evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries evicted to make room for new ones.",
		}),
		Entries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently cached.",
		}),
		ComputeSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "compute_duration_seconds",
			Help:      "Time spent computing missing values.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.Misses.Inc()
	}
}

func (m *Metrics) failure() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) evicted(n int) {
	if m != nil {
		m.Evictions.Add(float64(n))
	}
}

func (m *Metrics) setEntries(n int) {
	if m != nil {
		m.Entries.Set(float64(n))
	}
}

func (m *Metrics) observe(d time.Duration) {
	if m != nil {
		m.ComputeSeconds.Observe(d.Seconds())
	}
}
