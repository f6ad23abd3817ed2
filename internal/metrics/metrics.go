// ============================================================================
// clustersched metrics
// ============================================================================
//
// Package: internal/metrics
// Purpose: Prometheus instrumentation for the scheduling engine.
//
// Metric categories:
//
//   1. Counters (cumulative, monotonically increasing):
//      - clustersched_jobs_submitted_total
//      - clustersched_jobs_placed_total
//      - clustersched_jobs_completed_total
//      - clustersched_jobs_terminated_total
//
//   2. Histogram:
//      - clustersched_tick_duration_seconds: wall time spent inside one
//        Engine.Tick call that actually ran its phases.
//
//   3. Gauges (instantaneous):
//      - clustersched_jobs_pending: jobs with status NEW
//      - clustersched_jobs_running: jobs with status RUNNING
//      - clustersched_nodes: registered nodes
//
// Each Collector owns a private prometheus.Registry rather than the global
// default, so a process (or a test) can construct more than one without
// tripping prometheus's duplicate-registration panic.
//
// ============================================================================

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements engine.MetricsRecorder.
type Collector struct {
	registry *prometheus.Registry

	jobsSubmitted  prometheus.Counter
	jobsPlaced     prometheus.Counter
	jobsCompleted  prometheus.Counter
	jobsTerminated prometheus.Counter

	tickDuration prometheus.Histogram

	jobsPending prometheus.Gauge
	jobsRunning prometheus.Gauge
	nodes       prometheus.Gauge
}

// NewCollector creates and registers a fresh metrics collector.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clustersched_jobs_submitted_total",
			Help: "Total number of jobs submitted to the engine.",
		}),
		jobsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clustersched_jobs_placed_total",
			Help: "Total number of jobs placed onto a node.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clustersched_jobs_completed_total",
			Help: "Total number of jobs that ran to completion.",
		}),
		jobsTerminated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clustersched_jobs_terminated_total",
			Help: "Total number of jobs terminated before completion.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clustersched_tick_duration_seconds",
			Help:    "Wall time spent inside a scheduling tick that ran its phases.",
			Buckets: prometheus.DefBuckets,
		}),
		jobsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clustersched_jobs_pending",
			Help: "Current number of jobs with status NEW.",
		}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clustersched_jobs_running",
			Help: "Current number of jobs with status RUNNING.",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clustersched_nodes",
			Help: "Current number of registered nodes.",
		}),
	}

	c.registry.MustRegister(
		c.jobsSubmitted,
		c.jobsPlaced,
		c.jobsCompleted,
		c.jobsTerminated,
		c.tickDuration,
		c.jobsPending,
		c.jobsRunning,
		c.nodes,
	)

	return c
}

func (c *Collector) RecordSubmitted()  { c.jobsSubmitted.Inc() }
func (c *Collector) RecordPlaced()     { c.jobsPlaced.Inc() }
func (c *Collector) RecordCompleted()  { c.jobsCompleted.Inc() }
func (c *Collector) RecordTerminated() { c.jobsTerminated.Inc() }

// ObserveTick records the duration of a tick that ran its phases.
func (c *Collector) ObserveTick(d time.Duration) {
	c.tickDuration.Observe(d.Seconds())
}

// SetStats updates the point-in-time gauges.
func (c *Collector) SetStats(pending, running, nodeCount int) {
	c.jobsPending.Set(float64(pending))
	c.jobsRunning.Set(float64(running))
	c.nodes.Set(float64(nodeCount))
}

// Handler returns the HTTP handler serving this collector's registry in
// Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
