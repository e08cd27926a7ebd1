// Package telemetry exposes reconciliation and routing metrics in the
// Prometheus format.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests and one-shot CLI commands.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "targetsync"

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeForwarded = "forwarded"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

// Metrics holds the collectors for one connector process.
type Metrics struct {
	registry *prometheus.Registry

	sweeps         *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	targetChanges  *prometheus.CounterVec
	targetFailures *prometheus.CounterVec
	registered     prometheus.Gauge
	started        prometheus.Gauge
	events         *prometheus.CounterVec
	lastSweep      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a private registry
// together with the Go runtime and process collectors.
func NewMetrics(connector string) *Metrics {
	labels := prometheus.Labels{"connector": connector}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "reconcile_sweeps_total",
			Help:        "Count of reconciliation sweeps by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "reconcile_duration_seconds",
			Help:        "Duration of reconciliation sweeps.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		targetChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "target_changes_total",
			Help:        "Count of catalog target changes applied by reconciliation.",
			ConstLabels: labels,
		}, []string{"change"}),
		targetFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "target_failures_total",
			Help:        "Count of isolated per-target failures by operation.",
			ConstLabels: labels,
		}, []string{"op"}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "registered_targets",
			Help:        "Number of catalog targets held in the registry.",
			ConstLabels: labels,
		}),
		started: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "started_targets",
			Help:        "Number of catalog targets whose resource connector is started.",
			ConstLabels: labels,
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_total",
			Help:        "Count of change event deliveries by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		lastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_successful_sweep_timestamp_seconds",
			Help:        "Unix time of the last reconciliation sweep that completed without a source error.",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(
		m.sweeps,
		m.sweepDuration,
		m.targetChanges,
		m.targetFailures,
		m.registered,
		m.started,
		m.events,
		m.lastSweep,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SweepCounts is the subset of a reconcile result recorded as metrics.
type SweepCounts struct {
	Created, Updated, Unchanged, Removed int
}

// ObserveSweep records one completed or aborted sweep.
func (m *Metrics) ObserveSweep(d time.Duration, counts SweepCounts, err error) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
	if err != nil {
		m.sweeps.WithLabelValues(OutcomeError).Inc()
	} else {
		m.sweeps.WithLabelValues(OutcomeSuccess).Inc()
		m.lastSweep.SetToCurrentTime()
	}
	m.targetChanges.WithLabelValues("created").Add(float64(counts.Created))
	m.targetChanges.WithLabelValues("updated").Add(float64(counts.Updated))
	m.targetChanges.WithLabelValues("unchanged").Add(float64(counts.Unchanged))
	m.targetChanges.WithLabelValues("removed").Add(float64(counts.Removed))
}

// TargetFailure records an isolated per-target failure.
func (m *Metrics) TargetFailure(op string) {
	if m == nil {
		return
	}
	m.targetFailures.WithLabelValues(op).Inc()
}

// SetTargets records the current registry size and started count.
func (m *Metrics) SetTargets(registered, started int) {
	if m == nil {
		return
	}
	m.registered.Set(float64(registered))
	m.started.Set(float64(started))
}

// Event records the outcome of delivering one event to workers.
func (m *Metrics) Event(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.events.WithLabelValues(outcome).Add(float64(n))
}
