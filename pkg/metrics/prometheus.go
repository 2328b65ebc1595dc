// Package metrics provides Prometheus metrics for the QuickShop analytics dashboard.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector exported by the dashboard.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ingestion
	uploads          *prometheus.CounterVec
	rowsLoaded       prometheus.Counter
	rowsDropped      *prometheus.CounterVec
	schemaErrors     prometheus.Counter
	loadLatency      prometheus.Histogram
	datasetReloads   *prometheus.CounterVec
	defaultRowsGauge prometheus.Gauge

	// Pipeline
	pipelineRuns    prometheus.Counter
	pipelineLatency prometheus.Histogram
	emptyResults    prometheus.Counter
	filteredRows    prometheus.Histogram

	// Exports
	exports     *prometheus.CounterVec
	exportBytes *prometheus.CounterVec

	// Sessions
	activeSessions   prometheus.Gauge
	sessionsCreated  prometheus.Counter
	sessionEvictions *prometheus.CounterVec

	// Batch export
	queueDepth      prometheus.Gauge
	queueRejections *prometheus.CounterVec
	batchJobs       *prometheus.CounterVec
	batchLatency    prometheus.Histogram
	activeWorkers   prometheus.Gauge
	duplicateInputs prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // dashboard-only registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "quickshop",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.uploads = auto.NewCounterVec(
		m.counterOpts("uploads_total", "CSV load attempts by outcome (ok, schema_error, parse_error, too_large, no_rows, error)"),
		[]string{"result"},
	)
	m.rowsLoaded = auto.NewCounter(m.counterOpts("rows_loaded_total", "Rows accepted by the loader"))
	m.rowsDropped = auto.NewCounterVec(
		m.counterOpts("rows_dropped_total", "Rows dropped by the loader, by offending column"),
		[]string{"column"},
	)
	m.schemaErrors = auto.NewCounter(m.counterOpts("schema_errors_total", "Loads rejected for missing required columns"))
	m.loadLatency = auto.NewHistogram(m.histogramOpts(
		"load_latency_milliseconds", "Time spent parsing and coercing a CSV", m.histogramBuckets))
	m.datasetReloads = auto.NewCounterVec(
		m.counterOpts("dataset_reloads_total", "Hot reloads of the default dataset by outcome"),
		[]string{"result"},
	)
	m.defaultRowsGauge = auto.NewGauge(m.gaugeOpts("default_dataset_rows", "Rows in the shared default dataset"))

	m.pipelineRuns = auto.NewCounter(m.counterOpts("pipeline_runs_total", "Filter/aggregate pipeline executions"))
	m.pipelineLatency = auto.NewHistogram(m.histogramOpts(
		"pipeline_latency_milliseconds", "Filter/aggregate pipeline latency", m.histogramBuckets))
	m.emptyResults = auto.NewCounter(m.counterOpts("empty_results_total", "Selections that matched no rows"))
	m.filteredRows = auto.NewHistogram(m.histogramOpts(
		"filtered_rows", "Rows remaining after filtering", prometheus.ExponentialBuckets(1, 4, 10)))

	m.exports = auto.NewCounterVec(
		m.counterOpts("exports_total", "Export downloads by table and format"),
		[]string{"kind", "format"},
	)
	m.exportBytes = auto.NewCounterVec(
		m.counterOpts("export_bytes_total", "Bytes written by export downloads"),
		[]string{"format"},
	)

	m.activeSessions = auto.NewGauge(m.gaugeOpts("active_sessions", "Sessions currently held in memory"))
	m.sessionsCreated = auto.NewCounter(m.counterOpts("sessions_created_total", "Sessions created"))
	m.sessionEvictions = auto.NewCounterVec(
		m.counterOpts("session_evictions_total", "Sessions evicted by reason (idle, capacity, deleted)"),
		[]string{"reason"},
	)

	m.queueDepth = auto.NewGauge(m.gaugeOpts("batch_queue_depth", "Batch export jobs waiting in the queue"))
	m.queueRejections = auto.NewCounterVec(
		m.counterOpts("batch_queue_rejections_total", "Jobs refused by the batch queue by reason (closed, full, cancelled)"),
		[]string{"reason"},
	)
	m.batchJobs = auto.NewCounterVec(
		m.counterOpts("batch_jobs_total", "Batch export jobs by outcome"),
		[]string{"result"},
	)
	m.batchLatency = auto.NewHistogram(m.histogramOpts(
		"batch_job_latency_milliseconds", "Time to load, compute and write one batch input", m.histogramBuckets))
	m.activeWorkers = auto.NewGauge(m.gaugeOpts("batch_active_workers", "Batch export workers running"))
	m.duplicateInputs = auto.NewCounter(m.counterOpts("batch_duplicate_inputs_total", "Batch inputs skipped as duplicates"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Ingestion.

// RecordUpload counts a load attempt with its outcome label.
func RecordUpload(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.uploads.WithLabelValues(result).Inc()
}

// AddRowsLoaded adds accepted rows.
func AddRowsLoaded(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.rowsLoaded.Add(float64(n))
}

// RecordRowDropped counts a dropped row against the column that failed coercion.
func RecordRowDropped(column string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rowsDropped.WithLabelValues(column).Inc()
}

// RecordSchemaError counts a load rejected for missing columns.
func RecordSchemaError() {
	if !globalManager.enabled {
		return
	}
	globalManager.schemaErrors.Inc()
}

// RecordLoadLatency records loader latency in milliseconds.
func RecordLoadLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.loadLatency.Observe(latencyMs)
}

// RecordDatasetReload counts a default dataset reload attempt.
func RecordDatasetReload(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetReloads.WithLabelValues(result).Inc()
}

// UpdateDefaultDatasetRows sets the row count of the shared default dataset.
func UpdateDefaultDatasetRows(n int) {
	globalManager.defaultRowsGauge.Set(float64(n))
}

// Pipeline.

// RecordPipelineRun records one pipeline execution.
func RecordPipelineRun(latencyMs float64, filtered int) {
	if !globalManager.enabled {
		return
	}
	globalManager.pipelineRuns.Inc()
	globalManager.pipelineLatency.Observe(latencyMs)
	globalManager.filteredRows.Observe(float64(filtered))
}

// RecordEmptyResult counts a selection that matched nothing.
func RecordEmptyResult() {
	if !globalManager.enabled {
		return
	}
	globalManager.emptyResults.Inc()
}

// Exports.

// RecordExport counts an export of kind in format with its size.
func RecordExport(kind, format string, bytes int) {
	if !globalManager.enabled {
		return
	}
	globalManager.exports.WithLabelValues(kind, format).Inc()
	if bytes > 0 {
		globalManager.exportBytes.WithLabelValues(format).Add(float64(bytes))
	}
}

// Sessions.

// UpdateActiveSessions sets the live session count.
func UpdateActiveSessions(n int) {
	globalManager.activeSessions.Set(float64(n))
}

// RecordSessionCreated counts a new session.
func RecordSessionCreated() {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionsCreated.Inc()
}

// RecordSessionEviction counts a removed session by reason.
func RecordSessionEviction(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionEvictions.WithLabelValues(reason).Inc()
}

// Batch export.

// UpdateQueueDepth sets the number of queued batch jobs.
func UpdateQueueDepth(n int) {
	globalManager.queueDepth.Set(float64(n))
}

// RecordQueueRejected counts a job the queue refused.
func RecordQueueRejected(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueRejections.WithLabelValues(reason).Inc()
}

// RecordBatchJob counts a finished batch job and its latency.
func RecordBatchJob(result string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.batchJobs.WithLabelValues(result).Inc()
	globalManager.batchLatency.Observe(latencyMs)
}

// UpdateActiveWorkers sets the number of running batch workers.
func UpdateActiveWorkers(n int) {
	globalManager.activeWorkers.Set(float64(n))
}

// RecordDuplicateInput counts a skipped duplicate batch input.
func RecordDuplicateInput() {
	if !globalManager.enabled {
		return
	}
	globalManager.duplicateInputs.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
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

// RefreshInterval reports how often periodic gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// Totals gathers the registry and sums every counter and gauge series per
// metric family. Histograms report their sample count.
func Totals() (map[string]float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollect, err)
	}
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[mf.GetName()] = total
	}
	return out, nil
}
