// Package metrics exposes prometheus collectors for tracking runs and the
// HTTP server.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/track-cli/internal/model"
	"github.com/sells-group/track-cli/pkg/carrier"
)

// TrackingMetrics groups collectors for batch runs. It satisfies
// tracking.Observer.
type TrackingMetrics struct {
	RunsTotal     *prometheus.CounterVec
	ItemsTotal    *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	ActiveRuns    prometheus.Gauge
}

// NewTrackingMetrics registers and returns run collectors. A nil registerer
// uses the default registry.
func NewTrackingMetrics(namespace string, reg prometheus.Registerer) *TrackingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &TrackingMetrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished tracking runs by terminal status.",
		}, []string{"status"}),
		ItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Tracked identifiers by outcome kind.",
		}, []string{"kind"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of single carrier lookups.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Runs currently in progress.",
		}),
	}
	m.RunsTotal = registerOrExisting(reg, m.RunsTotal)
	m.ItemsTotal = registerOrExisting(reg, m.ItemsTotal)
	m.FetchDuration = registerOrExisting(reg, m.FetchDuration)
	m.ActiveRuns = registerOrExisting(reg, m.ActiveRuns)
	return m
}

// RunStarted marks a run as active.
func (m *TrackingMetrics) RunStarted() {
	m.ActiveRuns.Inc()
}

// ItemDone records one finished lookup.
func (m *TrackingMetrics) ItemDone(kind carrier.Kind, d time.Duration) {
	m.ItemsTotal.WithLabelValues(string(kind)).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

// RunDone records a finished run.
func (m *TrackingMetrics) RunDone(status model.RunStatus, _ time.Duration) {
	m.ActiveRuns.Dec()
	m.RunsTotal.WithLabelValues(string(status)).Inc()
}

// NewSessionsGauge registers a gauge that reports count on every scrape.
func NewSessionsGauge(namespace string, reg prometheus.Registerer, count func() int) prometheus.GaugeFunc {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Sessions currently held by the server.",
	}, func() float64 {
		return float64(count())
	})
	return registerOrExisting(reg, g)
}

// registerOrExisting registers c, returning the already-registered collector
// of the same description when there is one.
func registerOrExisting[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(fmt.Errorf("metrics: register collector: %w", err))
	}
	return c
}
