// Package metrics provides Prometheus metrics for the reconciliation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Snapshot cache metrics - the one shared mutable resource
	snapshotHits          prometheus.Counter
	snapshotMisses        prometheus.Counter
	snapshotEvictions     prometheus.Counter
	snapshotBuildDuration prometheus.Histogram
	snapshotRowsLoaded    prometheus.Counter

	// Engine metrics - per-request computation
	engineQueries        *prometheus.CounterVec
	aggregationDuration  *prometheus.HistogramVec
	unusableColumns      prometheus.Counter
	unparsedDates        prometheus.Counter
	emptyResults         prometheus.Counter
	unknownPartnerErrors prometheus.Counter

	// Write path metrics
	recordsIngested prometheus.Counter
	recordsDeleted  prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Prewarm pipeline metrics
	prewarmQueueSize prometheus.Gauge
	prewarmJobs      prometheus.Counter
	prewarmDrops     prometheus.Counter
	prewarmFailures  prometheus.Counter
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
		namespace:        "recon",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.snapshotHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_cache_hits_total",
		Help:      "Total number of snapshot cache hits",
	})

	m.snapshotMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_cache_misses_total",
		Help:      "Total number of snapshot cache misses (expiry included)",
	})

	m.snapshotEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_cache_evictions_total",
		Help:      "Total number of snapshots evicted by explicit invalidation",
	})

	m.snapshotBuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_build_duration_milliseconds",
		Help:      "Snapshot realization duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.snapshotRowsLoaded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_rows_loaded_total",
		Help:      "Total number of raw rows realized into snapshots",
	})

	m.engineQueries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queries_total",
			Help:      "Total number of engine computations by partner and metric",
		},
		[]string{"partner", "metric"},
	)

	m.aggregationDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "aggregation_duration_milliseconds",
			Help:      "End-to-end aggregation duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"partner", "metric"},
	)

	m.unusableColumns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unusable_columns_total",
		Help:      "Total number of columns where every value failed date parsing",
	})

	m.unparsedDates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unparsed_dates_total",
		Help:      "Total number of individual date values no strategy could parse",
	})

	m.emptyResults = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "empty_results_total",
		Help:      "Total number of computations degraded to empty/zero results",
	})

	m.unknownPartnerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unknown_partner_errors_total",
		Help:      "Total number of engine requests for unknown partners",
	})

	m.recordsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_ingested_total",
		Help:      "Total number of raw records written",
	})

	m.recordsDeleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_deleted_total",
		Help:      "Total number of raw records removed by bulk deletes",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

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

	m.prewarmQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prewarm_queue_size",
		Help:      "Current number of queued snapshot prewarm jobs",
	})

	m.prewarmJobs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prewarm_jobs_total",
		Help:      "Total number of snapshot prewarm jobs processed",
	})

	m.prewarmDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prewarm_drops_total",
		Help:      "Total number of prewarm jobs dropped because the queue was full or closed",
	})

	m.prewarmFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prewarm_failures_total",
		Help:      "Total number of prewarm jobs whose snapshot load failed",
	})
}

// ---- package-level helpers over the global manager ----

// RecordSnapshotHit counts a cache hit.
func RecordSnapshotHit() {
	if globalManager.enabled {
		globalManager.snapshotHits.Inc()
	}
}

// RecordSnapshotMiss counts a cache miss or expiry.
func RecordSnapshotMiss() {
	if globalManager.enabled {
		globalManager.snapshotMisses.Inc()
	}
}

// RecordSnapshotEvictions counts explicit invalidations.
func RecordSnapshotEvictions(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.snapshotEvictions.Add(float64(n))
	}
}

// RecordSnapshotBuild observes a snapshot realization.
func RecordSnapshotBuild(d time.Duration, rows int) {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotBuildDuration.Observe(float64(d.Milliseconds()))
	globalManager.snapshotRowsLoaded.Add(float64(rows))
}

// RecordQuery counts an engine computation and its duration.
func RecordQuery(partner, metric string, d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.engineQueries.WithLabelValues(partner, metric).Inc()
	globalManager.aggregationDuration.WithLabelValues(partner, metric).Observe(float64(d.Milliseconds()))
}

// RecordUnusableColumn counts a column whose every date value failed to parse.
func RecordUnusableColumn() {
	if globalManager.enabled {
		globalManager.unusableColumns.Inc()
	}
}

// RecordUnparsedDates counts individual unparseable date values.
func RecordUnparsedDates(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.unparsedDates.Add(float64(n))
	}
}

// RecordEmptyResult counts a computation degraded to an empty/zero result.
func RecordEmptyResult() {
	if globalManager.enabled {
		globalManager.emptyResults.Inc()
	}
}

// RecordUnknownPartner counts a request for an unregistered partner.
func RecordUnknownPartner() {
	if globalManager.enabled {
		globalManager.unknownPartnerErrors.Inc()
	}
}

// RecordRecordsIngested counts written raw records.
func RecordRecordsIngested(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.recordsIngested.Add(float64(n))
	}
}

// RecordRecordsDeleted counts bulk-deleted raw records.
func RecordRecordsDeleted(n int64) {
	if globalManager.enabled && n > 0 {
		globalManager.recordsDeleted.Add(float64(n))
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// UpdatePrewarmQueueSize reports the current prewarm queue depth.
func UpdatePrewarmQueueSize(n int) {
	if globalManager.enabled {
		globalManager.prewarmQueueSize.Set(float64(n))
	}
}

// RecordPrewarmJob counts a processed prewarm job.
func RecordPrewarmJob() {
	if globalManager.enabled {
		globalManager.prewarmJobs.Inc()
	}
}

// RecordPrewarmDrop counts a prewarm job rejected at enqueue time.
func RecordPrewarmDrop() {
	if globalManager.enabled {
		globalManager.prewarmDrops.Inc()
	}
}

// RecordPrewarmFailure counts a prewarm job whose snapshot load failed.
func RecordPrewarmFailure() {
	if globalManager.enabled {
		globalManager.prewarmFailures.Inc()
	}
}

// GetRegistry returns the custom registry backing the global manager,
// exposed for the /metrics handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
