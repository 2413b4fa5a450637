package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// PrometheusMetrics collects HTTP and pipeline metrics.
type PrometheusMetrics struct {
	logger *logrus.Logger

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	vettingsTotal      *prometheus.CounterVec
	vettingsInProgress prometheus.Gauge
	vettingDuration    *prometheus.HistogramVec
	stageDuration      *prometheus.HistogramVec

	whoisTierQueries *prometheus.CounterVec
	platformChecks   *prometheus.CounterVec

	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	rateLimitRejections prometheus.Counter

	memoryUsage     prometheus.Gauge
	goroutinesCount prometheus.Gauge
	gcCount         prometheus.Gauge

	workerPoolSize      prometheus.Gauge
	workerPoolActive    prometheus.Gauge
	workerPoolQueueSize prometheus.Gauge

	dbConnectionsOpen  prometheus.Gauge
	dbConnectionsIdle  prometheus.Gauge
	dbConnectionsInUse prometheus.Gauge
}

func NewPrometheusMetrics(logger *logrus.Logger, namespace string) *PrometheusMetrics {
	if namespace == "" {
		namespace = "titlevet"
	}

	pm := &PrometheusMetrics{
		logger: logger,

		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),

		vettingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vettings_total",
				Help:      "Total number of vetting pipeline runs",
			},
			[]string{"status"}, // completed, failed, cached
		),
		vettingsInProgress: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "vettings_in_progress",
				Help:      "Number of vetting pipelines currently running",
			},
		),
		vettingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "vetting_duration_seconds",
				Help:      "Vetting pipeline duration in seconds",
				Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Collector stage duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"stage"}, // registration, website, social, scoring
		),

		whoisTierQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "whois_tier_queries_total",
				Help:      "Registration lookups per tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		platformChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "platform_checks_total",
				Help:      "Social platform checks by platform and outcome",
			},
			[]string{"platform", "outcome"}, // found, not_found, error
		),

		cacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Report cache hits",
			},
		),
		cacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Report cache misses",
			},
		),
		rateLimitRejections: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejections_total",
				Help:      "Requests rejected by the per-client rate limiter",
			},
		),

		memoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage in bytes",
			},
		),
		goroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "goroutines_count",
				Help:      "Current number of goroutines",
			},
		),
		gcCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gc_count",
				Help:      "Number of completed GC cycles",
			},
		),

		workerPoolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_pool_size",
				Help:      "Total number of workers in the pool",
			},
		),
		workerPoolActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_pool_active",
				Help:      "Number of active workers",
			},
		),
		workerPoolQueueSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_pool_queue_size",
				Help:      "Number of jobs waiting in queue",
			},
		),

		dbConnectionsOpen: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_open",
				Help:      "Number of open database connections",
			},
		),
		dbConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
		dbConnectionsInUse: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_in_use",
				Help:      "Number of database connections in use",
			},
		),
	}

	logger.Info("Prometheus metrics initialized")
	return pm
}

// HTTPMiddleware records request counts and latencies per route.
func (pm *PrometheusMetrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		pm.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		pm.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (pm *PrometheusMetrics) Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func (pm *PrometheusMetrics) RecordVettingStarted() {
	pm.vettingsInProgress.Inc()
}

func (pm *PrometheusMetrics) RecordVettingCompleted(duration time.Duration) {
	pm.vettingsTotal.WithLabelValues("completed").Inc()
	pm.vettingsInProgress.Dec()
	pm.vettingDuration.WithLabelValues("completed").Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordVettingFailed(duration time.Duration) {
	pm.vettingsTotal.WithLabelValues("failed").Inc()
	pm.vettingsInProgress.Dec()
	pm.vettingDuration.WithLabelValues("failed").Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordCacheHit() {
	pm.vettingsTotal.WithLabelValues("cached").Inc()
	pm.cacheHits.Inc()
}

func (pm *PrometheusMetrics) RecordCacheMiss() {
	pm.cacheMisses.Inc()
}

func (pm *PrometheusMetrics) RecordRateLimitRejection() {
	pm.rateLimitRejections.Inc()
}

func (pm *PrometheusMetrics) RecordStage(stage string, duration time.Duration) {
	pm.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordWhoisTierQuery(tier, outcome string) {
	pm.whoisTierQueries.WithLabelValues(tier, outcome).Inc()
}

func (pm *PrometheusMetrics) RecordPlatformCheck(platform, outcome string) {
	pm.platformChecks.WithLabelValues(platform, outcome).Inc()
}

func (pm *PrometheusMetrics) UpdateMemoryStats(stats MemoryStats) {
	pm.memoryUsage.Set(float64(stats.Alloc))
	pm.goroutinesCount.Set(float64(stats.Goroutines))
	pm.gcCount.Set(float64(stats.NumGC))
}

func (pm *PrometheusMetrics) UpdateWorkerPoolStats(size, active, queueSize int) {
	pm.workerPoolSize.Set(float64(size))
	pm.workerPoolActive.Set(float64(active))
	pm.workerPoolQueueSize.Set(float64(queueSize))
}

func (pm *PrometheusMetrics) UpdateDBStats(open, idle, inUse int) {
	pm.dbConnectionsOpen.Set(float64(open))
	pm.dbConnectionsIdle.Set(float64(idle))
	pm.dbConnectionsInUse.Set(float64(inUse))
}
