// Package metrics provides Prometheus metrics for the loan-offer service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	offerRequests         *prometheus.CounterVec
	pipelineLatency       prometheus.Histogram
	stageLatency          *prometheus.HistogramVec
	offersGenerated       prometheus.Counter
	riskLevels            *prometheus.CounterVec
	riskScores            prometheus.Histogram
	conversionProbability prometheus.Histogram
	termAdjustments       *prometheus.CounterVec

	// Cache
	cacheRequests *prometheus.CounterVec

	// Persistence queue
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueEnqueued  prometheus.Counter
	queueDequeued  prometheus.Counter
	queueDropped   *prometheus.CounterVec
	queueWaitTimes prometheus.Histogram

	// Persistence workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	sinkWrites              *prometheus.CounterVec

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

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

var unitBuckets = []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "loanoffer",
		subsystem:        "engine",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.offerRequests = auto.NewCounterVec(
		m.counterOpts("offer_requests_total", "Offer generation requests by outcome"),
		[]string{"outcome"},
	)
	m.pipelineLatency = auto.NewHistogram(
		m.histogramOpts("pipeline_duration_milliseconds", "End-to-end offer pipeline latency in milliseconds", m.histogramBuckets),
	)
	m.stageLatency = auto.NewHistogramVec(
		m.histogramOpts("pipeline_stage_duration_milliseconds", "Offer pipeline stage latency in milliseconds", m.histogramBuckets),
		[]string{"stage"},
	)
	m.offersGenerated = auto.NewCounter(
		m.counterOpts("offers_generated_total", "Ranked offers returned to callers"),
	)
	m.riskLevels = auto.NewCounterVec(
		m.counterOpts("risk_assessments_total", "Risk assessments by resulting level"),
		[]string{"level"},
	)
	m.riskScores = auto.NewHistogram(
		m.histogramOpts("risk_score", "Distribution of computed risk scores", unitBuckets),
	)
	m.conversionProbability = auto.NewHistogram(
		m.histogramOpts("conversion_probability", "Distribution of computed conversion probabilities", unitBuckets),
	)
	m.termAdjustments = auto.NewCounterVec(
		m.counterOpts("term_adjustments_total", "Term matrix adjustments by term and result"),
		[]string{"term", "result"},
	)

	m.cacheRequests = auto.NewCounterVec(
		m.counterOpts("cache_requests_total", "Response cache lookups by backend and result"),
		[]string{"backend", "result"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Offer records waiting to be persisted"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum persistence queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Offer records enqueued for persistence"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Offer records dequeued by workers"))
	m.queueDropped = auto.NewCounterVec(
		m.counterOpts("queue_dropped_total", "Offer records dropped before persistence"),
		[]string{"reason"},
	)
	m.queueWaitTimes = auto.NewHistogram(
		m.histogramOpts("queue_wait_milliseconds", "Time an offer record spent queued", m.histogramBuckets),
	)

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured persistence workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Persistence workers currently running"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Time to write one record to all sinks", m.histogramBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Records that failed on at least one sink"))
	m.sinkWrites = auto.NewCounterVec(
		m.counterOpts("sink_writes_total", "Offer record writes by sink and result"),
		[]string{"sink", "result"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated by the process"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause time in milliseconds", m.histogramBuckets),
	)
}

// RecordOfferRequest counts one pipeline invocation by outcome.
func RecordOfferRequest(outcome string) {
	globalManager.offerRequests.WithLabelValues(outcome).Inc()
}

// RecordPipelineLatency records end-to-end pipeline latency.
func RecordPipelineLatency(latencyMs float64) {
	globalManager.pipelineLatency.Observe(latencyMs)
}

// RecordStageLatency records the latency of a single pipeline stage.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordOffersGenerated adds n ranked offers.
func RecordOffersGenerated(n int) {
	globalManager.offersGenerated.Add(float64(n))
}

// RecordRiskAssessment records the score and level of one assessment.
func RecordRiskAssessment(level string, score float64) {
	globalManager.riskLevels.WithLabelValues(level).Inc()
	globalManager.riskScores.Observe(score)
}

// RecordConversionProbability records one behavior analysis result.
func RecordConversionProbability(p float64) {
	globalManager.conversionProbability.Observe(p)
}

// RecordTermAdjustment counts a matrix adjustment as accepted or rejected.
func RecordTermAdjustment(term string, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	globalManager.termAdjustments.WithLabelValues(term, result).Inc()
}

// RecordCacheLookup counts a cache lookup; result is hit, miss or error.
func RecordCacheLookup(backend, result string) {
	globalManager.cacheRequests.WithLabelValues(backend, result).Inc()
}

// UpdateQueueSize sets the current persistence queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the persistence queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueDropped counts a record that never reached the queue.
func RecordQueueDropped(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

// RecordQueueWait records how long a record waited before a worker took it.
func RecordQueueWait(latencyMs float64) {
	globalManager.queueWaitTimes.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// IncWorkerActive marks a worker as started.
func IncWorkerActive() {
	globalManager.workerActiveCount.Inc()
}

// DecWorkerActive marks a worker as stopped.
func DecWorkerActive() {
	globalManager.workerActiveCount.Dec()
}

// RecordWorkerProcessingLatency records per-record processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordSinkWrite counts one sink write.
func RecordSinkWrite(sink string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	globalManager.sinkWrites.WithLabelValues(sink, result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records the average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}
