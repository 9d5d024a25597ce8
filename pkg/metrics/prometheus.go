// Package metrics provides Prometheus metrics for the keep/trade/cut rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the rating service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Voting
	votesAccepted   prometheus.Counter
	votesRejected   *prometheus.CounterVec
	votesDuplicate  prometheus.Counter
	ballotsAppended prometheus.Counter

	// Rating projection
	recomputes       prometheus.Counter
	recomputeErrors  prometheus.Counter
	recomputeLatency prometheus.Histogram
	recomputeInline  prometheus.Counter
	ratingDrift      prometheus.Counter

	// Matchups
	matchupsSelected *prometheus.CounterVec
	historyResets    prometheus.Counter
	activeSessions   prometheus.Gauge

	// Operational
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueUtilization        prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	totalItems              prometheus.Gauge
	storeLatency            *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ktc",
		subsystem:        "rating",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.votesAccepted = m.counter("votes_accepted_total", "Total number of votes accepted into the ballot log")
	m.votesRejected = m.counterVec("votes_rejected_total", "Total number of votes rejected by reason", "reason")
	m.votesDuplicate = m.counter("votes_duplicate_total", "Total number of replayed vote submissions")
	m.ballotsAppended = m.counter("ballots_appended_total", "Total number of ballots appended to the log")

	m.recomputes = m.counter("recomputes_total", "Total number of item rating recomputes")
	m.recomputeErrors = m.counter("recompute_errors_total", "Total number of failed item rating recomputes")
	m.recomputeLatency = m.histogram("recompute_latency_milliseconds", "Item rating recompute latency in milliseconds")
	m.recomputeInline = m.counter("recompute_inline_total", "Recomputes run on the request path because the queue was full")
	m.ratingDrift = m.counter("rating_drift_total", "Items whose stored rating diverged from replay during an audit")

	m.matchupsSelected = m.counterVec("matchups_selected_total", "Total number of matchups selected by selection path", "path")
	m.historyResets = m.counter("history_resets_total", "Total number of matchup history resets")
	m.activeSessions = m.gauge("active_sessions", "Current number of voting sessions")

	m.queueSize = m.gauge("queue_size", "Current size of the recompute queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the recompute queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Recompute queue utilization (size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Total number of recompute jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Total number of recompute jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of recompute jobs that could not be enqueued")
	m.workerCount = m.gauge("worker_count", "Current number of recompute workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker job processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker job failures")
	m.totalItems = m.gauge("total_items", "Total number of rated items")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency in milliseconds", "operation")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors grouped by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Allocated heap memory in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Current number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time in milliseconds")
}

// Voting.

// RecordVoteAccepted increments the accepted vote counter.
func RecordVoteAccepted() {
	globalManager.votesAccepted.Inc()
}

// RecordVoteRejected increments the rejected vote counter for reason.
func RecordVoteRejected(reason string) {
	globalManager.votesRejected.WithLabelValues(reason).Inc()
}

// RecordVoteDuplicate increments the duplicate submission counter.
func RecordVoteDuplicate() {
	globalManager.votesDuplicate.Inc()
}

// RecordBallotsAppended adds n to the appended ballot counter.
func RecordBallotsAppended(n int) {
	if n > 0 {
		globalManager.ballotsAppended.Add(float64(n))
	}
}

// Rating projection.

// RecordRecompute records a successful recompute and its latency.
func RecordRecompute(latencyMs float64) {
	globalManager.recomputes.Inc()
	globalManager.recomputeLatency.Observe(latencyMs)
}

// RecordRecomputeError increments the recompute error counter.
func RecordRecomputeError() {
	globalManager.recomputeErrors.Inc()
}

// RecordRecomputeInline increments the inline recompute counter.
func RecordRecomputeInline() {
	globalManager.recomputeInline.Inc()
}

// RecordRatingDrift adds n drifted items found by an audit.
func RecordRatingDrift(n int) {
	if n > 0 {
		globalManager.ratingDrift.Add(float64(n))
	}
}

// Matchups.

// RecordMatchup increments the matchup counter for the selection path.
func RecordMatchup(path string) {
	globalManager.matchupsSelected.WithLabelValues(path).Inc()
}

// RecordHistoryReset increments the history reset counter.
func RecordHistoryReset() {
	globalManager.historyResets.Inc()
}

// UpdateActiveSessions sets the current session count.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// Operational.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateTotalItems sets the number of items.
func UpdateTotalItems(count int) {
	globalManager.totalItems.Set(float64(count))
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// HTTP.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records the HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
