package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/titlevet/titlevet-go/internal/api/handlers"
	"github.com/titlevet/titlevet-go/internal/config"
	"github.com/titlevet/titlevet-go/internal/middleware"
	"github.com/titlevet/titlevet-go/internal/queue"
	"github.com/titlevet/titlevet-go/internal/repository"
	"github.com/titlevet/titlevet-go/internal/service"
	"github.com/titlevet/titlevet-go/internal/store"
	"github.com/titlevet/titlevet-go/internal/worker"
)

// RouterDeps carries everything the HTTP surface needs. Constructed in
// main so handlers share the same instances as the pipeline.
type RouterDeps struct {
	Config      *config.Config
	Logger      *logrus.Logger
	VetService  *service.VetService
	Jobs        repository.JobRepository
	Reports     repository.ReportRepository
	Pool        *worker.Pool
	RabbitMQ    *queue.RabbitMQ
	Producer    *queue.Producer
	Limiter     *store.RateLimiter
	MemMonitor  *middleware.MemoryMonitor
	PromMetrics *middleware.PrometheusMetrics
	Progress    *handlers.ProgressHandler
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	if deps.PromMetrics != nil {
		r.Use(deps.PromMetrics.HTTPMiddleware())
	}

	vetHandler := handlers.NewVetHandler(deps.VetService, deps.Logger)
	statusHandler := handlers.NewStatusHandler(deps.Jobs, deps.Reports, deps.Pool, deps.RabbitMQ, deps.Producer, deps.Logger)

	if deps.Progress != nil {
		r.GET("/ws/vet/:request_id", deps.Progress.HandleWebSocket)
	}

	if deps.MemMonitor != nil {
		r.GET("/metrics/memory", deps.MemMonitor.MetricsEndpoint())
	}

	if deps.PromMetrics != nil {
		r.GET("/metrics", deps.PromMetrics.Handler())
	}

	v1 := r.Group("/api")
	{
		v1.GET("/health", statusHandler.Health)
		v1.GET("/status", statusHandler.Status)

		// Synchronous lookups are rate limited inside the pipeline; the
		// async enqueue never reaches the orchestrator, so it gets the
		// middleware instead.
		v1.POST("/whois", vetHandler.Whois)
		v1.POST("/combined", vetHandler.Combined)
		v1.POST("/vet/async",
			middleware.RateLimitMiddleware(deps.Limiter, deps.PromMetrics, deps.Logger),
			vetHandler.Async)
		v1.GET("/jobs/:id", vetHandler.GetJob)
	}

	return r
}

// LoggerMiddleware logs one line per request with latency and status.
func LoggerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)

		logger.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"latency": latency.Milliseconds(),
		}).Info("HTTP Request")
	}
}

// CORSMiddleware allows cross-origin access for dashboard frontends.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
