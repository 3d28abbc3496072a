// Package metrics provides Prometheus metrics for the encore ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the encore service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ranking mutations
	rankingMutations  *prometheus.CounterVec
	idempotentReplays prometheus.Counter
	compactionWrites  prometheus.Counter
	songsRemoved      prometheus.Counter

	// Score snapshots
	scoreRecomputes        prometheus.Counter
	scoreRecomputeDuration prometheus.Histogram
	scoredSongs            prometheus.Gauge
	scoredParticipants     prometheus.Gauge
	hiddenGems             prometheus.Gauge
	scoreReads             *prometheus.CounterVec

	// Catalog
	configCacheLookups *prometheus.CounterVec

	// Repository
	repositoryQueryLatency *prometheus.HistogramVec
	repositorySlowQueries  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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
		namespace:        "encore",
		subsystem:        "rankings",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.rankingMutations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mutations_total",
		Help:      "Ranking mutations by operation and outcome",
	}, []string{"op", "outcome"})

	m.idempotentReplays = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "idempotent_replays_total",
		Help:      "Ranking mutations rejected because their idempotency key was already used",
	})

	m.compactionWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "compaction_writes_total",
		Help:      "Ranking rows rewritten to close position gaps",
	})

	m.songsRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "songs_removed_total",
		Help:      "Songs purged from every participant's rankings",
	})

	m.scoreRecomputes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_recomputes_total",
		Help:      "Full score snapshot rebuilds",
	})

	m.scoreRecomputeDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_recompute_duration_milliseconds",
		Help:      "Time to read ballots, run both tournaments and write the snapshot",
		Buckets:   m.histogramBuckets,
	})

	m.scoredSongs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_recompute_songs",
		Help:      "Rankable songs in the most recent recompute",
	})

	m.scoredParticipants = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_recompute_participants",
		Help:      "Participants with at least one rankable entry in the most recent recompute",
	})

	m.hiddenGems = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_recompute_hidden_gems",
		Help:      "Hidden gems flagged in the most recent recompute",
	})

	m.scoreReads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_reads_total",
		Help:      "Scoreboard reads by snapshot state (fresh, stale, shared)",
	}, []string{"state"})

	m.configCacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "config_cache_lookups_total",
		Help:      "Event scoring config lookups by cache result",
	}, []string{"result"})

	m.repositoryQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_milliseconds",
		Help:      "Repository operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})

	m.repositorySlowQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_slow_queries_total",
		Help:      "SQL statements slower than the configured threshold",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_type_total",
		Help:      "Errors by type and severity",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "Errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Ranking Metrics Functions.

// RecordRankingMutation counts a ranking mutation. outcome is "ok" or an error kind.
func RecordRankingMutation(op, outcome string) {
	globalManager.rankingMutations.WithLabelValues(op, outcome).Inc()
}

// RecordIdempotentReplay counts a request rejected for reusing an idempotency key.
func RecordIdempotentReplay() {
	globalManager.idempotentReplays.Inc()
}

// RecordCompactionWrites adds rewritten rows from a compaction pass.
func RecordCompactionWrites(n int) {
	if n > 0 {
		globalManager.compactionWrites.Add(float64(n))
	}
}

// RecordSongRemoved counts a global song purge.
func RecordSongRemoved() {
	globalManager.songsRemoved.Inc()
}

// Score Metrics Functions.

// RecordScoreRecompute records one snapshot rebuild.
func RecordScoreRecompute(durationMs float64, songs, participants, gems int) {
	globalManager.scoreRecomputes.Inc()
	globalManager.scoreRecomputeDuration.Observe(durationMs)
	globalManager.scoredSongs.Set(float64(songs))
	globalManager.scoredParticipants.Set(float64(participants))
	globalManager.hiddenGems.Set(float64(gems))
}

// RecordScoreRead counts a scoreboard read by snapshot state.
func RecordScoreRead(state string) {
	globalManager.scoreReads.WithLabelValues(state).Inc()
}

// RecordConfigCacheLookup counts a config cache "hit" or "miss".
func RecordConfigCacheLookup(result string) {
	globalManager.configCacheLookups.WithLabelValues(result).Inc()
}

// Repository Metrics Functions.

// RecordRepositoryQueryLatency records repository operation latency.
func RecordRepositoryQueryLatency(op string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordSlowQuery counts a statement over the slow query threshold.
func RecordSlowQuery() {
	globalManager.repositorySlowQueries.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

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
