// Package metrics exposes Prometheus instrumentation for the leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns every collector registered by the service.
type Manager struct {
	registry prometheus.Registerer

	// Ingestion cycle metrics.
	cyclesTotal       prometheus.Counter
	cycleDuration     prometheus.Histogram
	unitsSucceeded    prometheus.Counter
	unitsFailed       prometheus.Counter
	observationsSaved prometheus.Counter
	duplicateJobs     prometheus.Counter

	// Outbound fetch metrics.
	fetchErrors  prometheus.Counter
	fetchLatency prometheus.Histogram

	// Store metrics.
	storeWriteLatency prometheus.Histogram
	storeQueryLatency prometheus.Histogram

	// Queue and worker health.
	queueSize   prometheus.Gauge
	workerCount prometheus.Gauge

	// Roster size as of the last refresh.
	rosterMembers prometheus.Gauge

	// HTTP surface.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithRegistry sets the Prometheus registerer collectors attach to.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry avoids the default Go runtime collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a Manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{registry: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(m)
	}

	factory := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: "leaderboard", Name: name, Help: help}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{Namespace: "leaderboard", Name: name, Help: help}
	}
	histOpts := func(name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{Namespace: "leaderboard", Name: name, Help: help, Buckets: buckets}
	}

	latencyBuckets := []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000}

	m.cyclesTotal = prometheus.NewCounter(factory("update_cycles_total", "Completed ingestion cycles."))
	m.cycleDuration = prometheus.NewHistogram(histOpts("update_cycle_duration_ms", "Wall time of a full ingestion cycle.", []float64{100, 500, 1000, 5000, 15000, 60000, 300000}))
	m.unitsSucceeded = prometheus.NewCounter(factory("ingest_units_succeeded_total", "Per-account ingestion units that completed."))
	m.unitsFailed = prometheus.NewCounter(factory("ingest_units_failed_total", "Per-account ingestion units that failed."))
	m.observationsSaved = prometheus.NewCounter(factory("observations_saved_total", "Metric observation rows written."))
	m.duplicateJobs = prometheus.NewCounter(factory("duplicate_jobs_total", "Ingestion jobs skipped as duplicates."))

	m.fetchErrors = prometheus.NewCounter(factory("fetch_errors_total", "Outbound snapshot fetch failures."))
	m.fetchLatency = prometheus.NewHistogram(histOpts("fetch_latency_ms", "Outbound snapshot fetch latency.", latencyBuckets))

	m.storeWriteLatency = prometheus.NewHistogram(histOpts("store_write_latency_ms", "Snapshot store write latency.", latencyBuckets))
	m.storeQueryLatency = prometheus.NewHistogram(histOpts("store_query_latency_ms", "Snapshot store query latency.", latencyBuckets))

	m.queueSize = prometheus.NewGauge(gaugeOpts("queue_size", "Jobs waiting in the ingestion queue."))
	m.workerCount = prometheus.NewGauge(gaugeOpts("worker_count", "Running ingestion workers."))
	m.rosterMembers = prometheus.NewGauge(gaugeOpts("roster_members", "Accounts in the roster after the last refresh."))

	m.httpRequests = prometheus.NewCounterVec(factory("http_requests_total", "HTTP requests by endpoint and status."), []string{"endpoint", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(histOpts("http_request_duration_ms", "HTTP request latency by endpoint.", latencyBuckets), []string{"endpoint"})

	m.registry.MustRegister(
		m.cyclesTotal, m.cycleDuration, m.unitsSucceeded, m.unitsFailed,
		m.observationsSaved, m.duplicateJobs,
		m.fetchErrors, m.fetchLatency,
		m.storeWriteLatency, m.storeQueryLatency,
		m.queueSize, m.workerCount, m.rosterMembers,
		m.httpRequests, m.httpRequestDuration,
	)

	return m
}

// GetRegistry returns the registry backing the global manager, for serving.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers targeting the global manager.

func RecordCycle(durationMS float64) {
	globalManager.cyclesTotal.Inc()
	globalManager.cycleDuration.Observe(durationMS)
}

func RecordUnitSuccess() { globalManager.unitsSucceeded.Inc() }
func RecordUnitFailure() { globalManager.unitsFailed.Inc() }

func RecordObservations(n int) { globalManager.observationsSaved.Add(float64(n)) }
func RecordDuplicateJob()      { globalManager.duplicateJobs.Inc() }

func RecordFetchError()                 { globalManager.fetchErrors.Inc() }
func RecordFetchLatency(ms float64)     { globalManager.fetchLatency.Observe(ms) }
func RecordStoreWriteLatency(ms float64) { globalManager.storeWriteLatency.Observe(ms) }
func RecordStoreQueryLatency(ms float64) { globalManager.storeQueryLatency.Observe(ms) }

func UpdateQueueSize(n int)     { globalManager.queueSize.Set(float64(n)) }
func UpdateWorkerCount(n int)   { globalManager.workerCount.Set(float64(n)) }
func UpdateRosterMembers(n int) { globalManager.rosterMembers.Set(float64(n)) }

func RecordHTTPRequest(endpoint, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, status).Inc()
}

func RecordHTTPDuration(endpoint string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(ms)
}
