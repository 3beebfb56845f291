// Package metrics provides Prometheus metrics for the sketchmatch service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// scoreBuckets cover the (0, 1] similarity band.
var scoreBuckets = []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1} //nolint:gochecknoglobals // constant bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Run metrics
	runsStarted  *prometheus.CounterVec
	runsFinished *prometheus.CounterVec
	runDuration  prometheus.Histogram
	activeRuns   prometheus.Gauge

	// Candidate metrics
	candidatesScored  *prometheus.CounterVec
	candidatesSkipped *prometheus.CounterVec
	candidateLatency  prometheus.Histogram
	candidateScore    prometheus.Histogram

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Worker metrics
	workerCount      prometheus.Gauge
	workerBusy       prometheus.Gauge
	workerJobLatency prometheus.Histogram
	workerErrors     prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sketchmatch",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}, labels)
	}
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets})
	}

	m.runsStarted = counterVec("runs_started_total", "Analysis runs started by similarity method", "method")
	m.runsFinished = counterVec("runs_finished_total", "Analysis runs finished by outcome (completed, failed, invalid, cancelled)", "outcome")
	m.runDuration = histogram("run_duration_milliseconds", "Wall time of analysis runs in milliseconds", m.histogramBuckets)
	m.activeRuns = gauge("active_runs", "Analysis runs submitted and not yet finished")

	m.candidatesScored = counterVec("candidates_scored_total", "Candidates scored by similarity method", "method")
	m.candidatesSkipped = counterVec("candidates_skipped_total", "Candidates dropped from a run by reason", "reason")
	m.candidateLatency = histogram("candidate_latency_milliseconds", "Time to normalize and score one candidate in milliseconds", m.histogramBuckets)
	m.candidateScore = histogram("candidate_score", "Distribution of similarity scores", scoreBuckets)

	m.queueSize = gauge("queue_size", "Current number of runs waiting for a worker")
	m.queueCapacity = gauge("queue_capacity", "Maximum number of runs the queue accepts")
	m.queueUtilization = gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = counter("queue_enqueued_total", "Runs accepted by the queue")
	m.queueDequeued = counter("queue_dequeued_total", "Runs handed to a worker")
	m.queueEnqueueErrors = counterVec("queue_enqueue_errors_total", "Runs rejected by the queue by reason", "reason")

	m.workerCount = gauge("worker_count", "Number of workers in the pool")
	m.workerBusy = gauge("worker_busy", "Workers currently executing a run")
	m.workerJobLatency = histogram("worker_job_latency_milliseconds", "Time a worker spends on one run in milliseconds", m.histogramBuckets)
	m.workerErrors = counter("worker_errors_total", "Runs that ended in a fatal failure on a worker")

	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorsByEndpoint = counterVec("errors_by_endpoint_total", "HTTP errors by endpoint, method and type", "endpoint", "method", "error_type")
	m.errorsByComponent = counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds", m.histogramBuckets)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Run metrics.

// RecordRunStarted counts a run for method.
func RecordRunStarted(method string) {
	if m := globalManager; m != nil && m.enabled {
		m.runsStarted.WithLabelValues(method).Inc()
	}
}

// RecordRunFinished counts a finished run and observes its duration.
func RecordRunFinished(outcome string, durationMs float64) {
	if m := globalManager; m != nil && m.enabled {
		m.runsFinished.WithLabelValues(outcome).Inc()
		m.runDuration.Observe(durationMs)
	}
}

// UpdateActiveRuns sets the number of active runs.
func UpdateActiveRuns(n int) {
	if m := globalManager; m != nil && m.enabled {
		m.activeRuns.Set(float64(n))
	}
}

// Candidate metrics.

// RecordCandidateScored counts a scored candidate and observes its latency and score.
func RecordCandidateScored(method string, latencyMs, score float64) {
	if m := globalManager; m != nil && m.enabled {
		m.candidatesScored.WithLabelValues(method).Inc()
		m.candidateLatency.Observe(latencyMs)
		m.candidateScore.Observe(score)
	}
}

// RecordCandidateSkipped counts a dropped candidate.
func RecordCandidateSkipped(reason string) {
	if m := globalManager; m != nil && m.enabled {
		m.candidatesSkipped.WithLabelValues(reason).Inc()
	}
}

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if m := globalManager; m != nil && m.enabled {
		m.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if m := globalManager; m != nil && m.enabled {
		m.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(ratio float64) {
	if m := globalManager; m != nil && m.enabled {
		m.queueUtilization.Set(ratio)
	}
}

// RecordQueueEnqueue counts an accepted run.
func RecordQueueEnqueue() {
	if m := globalManager; m != nil && m.enabled {
		m.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue counts a run handed to a worker.
func RecordQueueDequeue() {
	if m := globalManager; m != nil && m.enabled {
		m.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError counts a rejected run.
func RecordQueueEnqueueError(reason string) {
	if m := globalManager; m != nil && m.enabled {
		m.queueEnqueueErrors.WithLabelValues(reason).Inc()
	}
}

// Worker metrics.

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) {
	if m := globalManager; m != nil && m.enabled {
		m.workerCount.Set(float64(count))
	}
}

// IncWorkerBusy marks a worker as busy.
func IncWorkerBusy() {
	if m := globalManager; m != nil && m.enabled {
		m.workerBusy.Inc()
	}
}

// DecWorkerBusy marks a worker as idle.
func DecWorkerBusy() {
	if m := globalManager; m != nil && m.enabled {
		m.workerBusy.Dec()
	}
}

// RecordWorkerJobLatency observes the time spent on one run.
func RecordWorkerJobLatency(latencyMs float64) {
	if m := globalManager; m != nil && m.enabled {
		m.workerJobLatency.Observe(latencyMs)
	}
}

// RecordWorkerError counts a run that failed on a worker.
func RecordWorkerError() {
	if m := globalManager; m != nil && m.enabled {
		m.workerErrors.Inc()
	}
}

// HTTP metrics.

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := globalManager; m != nil && m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if m := globalManager; m != nil && m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByEndpoint counts an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := globalManager; m != nil && m.enabled {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorByComponent counts an error raised by component.
func RecordErrorByComponent(component, errorType string) {
	if m := globalManager; m != nil && m.enabled {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// System metrics.

// UpdateSystemMemoryUsage sets the allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := globalManager; m != nil && m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if m := globalManager; m != nil && m.enabled {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := globalManager; m != nil && m.enabled {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}
