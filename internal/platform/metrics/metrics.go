// Package metrics registers the Prometheus collectors this core
// exposes, structured like an infrastructure/metrics package but
// scoped to event ingestion/processing instead of blockchain calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the tracker, processor, engines, and
// scheduler report into.
type Metrics struct {
	EventsIngestedTotal  *prometheus.CounterVec
	EventsDroppedTotal   *prometheus.CounterVec
	QueueDepth           prometheus.Gauge
	FlushDuration        prometheus.Histogram
	FlushFailuresTotal   prometheus.Counter

	EventsProcessedTotal *prometheus.CounterVec
	ProcessingErrors     *prometheus.CounterVec
	ProcessingDuration   prometheus.Histogram

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ScheduledJobErrors *prometheus.CounterVec
	ScheduledJobRuns   *prometheus.CounterVec
}

// New creates and registers every collector against registerer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsIngestedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_events_ingested_total",
			Help: "Total number of events accepted by the tracker.",
		}, []string{"type"}),
		EventsDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_events_dropped_total",
			Help: "Total number of events dropped because the ingest queue was full.",
		}, []string{"reason"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analytics_tracker_queue_depth",
			Help: "Current number of events buffered in the tracker's queue.",
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analytics_tracker_flush_duration_seconds",
			Help:    "Duration of a tracker flush to the store.",
			Buckets: prometheus.DefBuckets,
		}),
		FlushFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_tracker_flush_failures_total",
			Help: "Total number of tracker flush attempts that failed.",
		}),
		EventsProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_events_processed_total",
			Help: "Total number of events the processor marked processed.",
		}, []string{"status"}),
		ProcessingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_processing_errors_total",
			Help: "Total number of per-event processing errors, by stage.",
		}, []string{"stage"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analytics_processing_batch_duration_seconds",
			Help:    "Duration of one processor batch run.",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_http_requests_total",
			Help: "Total number of HTTP requests served by the analytics API.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path"}),
		ScheduledJobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_scheduled_job_errors_total",
			Help: "Total number of scheduled job invocations that returned an error or panicked.",
		}, []string{"job"}),
		ScheduledJobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_scheduled_job_runs_total",
			Help: "Total number of scheduled job invocations.",
		}, []string{"job"}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.EventsIngestedTotal, m.EventsDroppedTotal, m.QueueDepth, m.FlushDuration, m.FlushFailuresTotal,
			m.EventsProcessedTotal, m.ProcessingErrors, m.ProcessingDuration,
			m.HTTPRequestsTotal, m.HTTPRequestDuration,
			m.ScheduledJobErrors, m.ScheduledJobRuns,
		)
	}
	return m
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordScheduledJob records one scheduled job invocation outcome.
func (m *Metrics) RecordScheduledJob(job string, err error) {
	m.ScheduledJobRuns.WithLabelValues(job).Inc()
	if err != nil {
		m.ScheduledJobErrors.WithLabelValues(job).Inc()
	}
}
