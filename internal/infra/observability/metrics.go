package observability

import (
	"time"

	"github.com/finsight/finsight-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	uploadsTotal    *prometheus.CounterVec
	stageFailures   *prometheus.CounterVec
	queriesTotal    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		uploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_uploads_total",
				Help: "Total statement uploads processed.",
			},
			[]string{"status"},
		),
		stageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_ingestion_stage_failures_total",
				Help: "Ingestion failures by pipeline stage (store, register, analyze).",
			},
			[]string{"stage"},
		),
		queriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_analytics_queries_total",
				Help: "Analytics reads served, by endpoint.",
			},
			[]string{"endpoint"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrUpload increments the upload counter with a status label.
func (m *Metrics) IncrUpload(status string) {
	m.uploadsTotal.WithLabelValues(status).Inc()
}

// IncrStageFailure increments the ingestion failure counter for a stage.
func (m *Metrics) IncrStageFailure(stage string) {
	m.stageFailures.WithLabelValues(stage).Inc()
}

// IncrQuery increments the analytics query counter for an endpoint.
func (m *Metrics) IncrQuery(endpoint string) {
	m.queriesTotal.WithLabelValues(endpoint).Inc()
}

// GetPipelineSnapshot returns a snapshot of ingestion-pipeline counters
// suitable for the GET /api/v1/metrics/pipeline endpoint.
func (m *Metrics) GetPipelineSnapshot() *domain.PipelineMetrics {
	uploadsOK := getCounterValue(m.uploadsTotal, "success")
	uploadsFailed := getCounterValue(m.uploadsTotal, "error")
	storeFailures := getCounterValue(m.stageFailures, "store")
	registerFailures := getCounterValue(m.stageFailures, "register")
	analyzeFailures := getCounterValue(m.stageFailures, "analyze")
	cacheHits := getCounterValue(m.cacheHits, "ledger")
	cacheMisses := getCounterValue(m.cacheMisses, "ledger")

	queries := float64(0)
	for _, ep := range []string{"summary", "trends", "upi-analysis", "transactions"} {
		queries += getCounterValue(m.queriesTotal, ep)
	}

	errorRate := float64(0)
	if total := uploadsOK + uploadsFailed; total > 0 {
		errorRate = uploadsFailed / total
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.PipelineMetrics{
		UploadsTotal:     int64(uploadsOK + uploadsFailed),
		UploadErrorRate:  errorRate,
		StoreFailures:    int64(storeFailures),
		RegisterFailures: int64(registerFailures),
		AnalyzeFailures:  int64(analyzeFailures),
		QueriesServed:    int64(queries),
		CacheHitRate:     cacheHitRate,
		Period:           "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
