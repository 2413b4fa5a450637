package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/titlevet/titlevet-go/internal/queue"
	"github.com/titlevet/titlevet-go/internal/repository"
	"github.com/titlevet/titlevet-go/internal/worker"
)

// StatusHandler serves health and operational status endpoints.
type StatusHandler struct {
	jobs      repository.JobRepository
	reports   repository.ReportRepository
	pool      *worker.Pool
	rabbitmq  *queue.RabbitMQ
	producer  *queue.Producer
	logger    *logrus.Logger
	startedAt time.Time
}

func NewStatusHandler(
	jobs repository.JobRepository,
	reports repository.ReportRepository,
	pool *worker.Pool,
	rabbitmq *queue.RabbitMQ,
	producer *queue.Producer,
	logger *logrus.Logger,
) *StatusHandler {
	return &StatusHandler{
		jobs:      jobs,
		reports:   reports,
		pool:      pool,
		rabbitmq:  rabbitmq,
		producer:  producer,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Health is a liveness probe.
// GET /api/health
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": "1.2.0",
	})
}

// Status reports pipeline load, job counts and queue connectivity.
// GET /api/status
func (h *StatusHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	jobCounts, err := h.jobs.CountByStatus(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to count jobs")
		jobCounts = map[string]int64{}
	}

	riskCounts, err := h.reports.CountByRiskLevel(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to count reports")
		riskCounts = map[string]int64{}
	}

	size, active, queued := h.pool.Stats()

	status := gin.H{
		"success":   true,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"jobs":      jobCounts,
		"reports":   riskCounts,
		"timestamp": time.Now().UTC(),
		"worker_pool": gin.H{
			"size":   size,
			"active": active,
			"queued": queued,
		},
	}

	queueStatus := gin.H{"enabled": h.rabbitmq != nil}
	if h.rabbitmq != nil {
		queueStatus["connected"] = h.rabbitmq.IsConnected()
		if h.producer != nil {
			if depth, err := h.producer.GetQueueSize(); err == nil {
				queueStatus["depth"] = depth
			}
		}
	}
	status["queue"] = queueStatus

	c.JSON(http.StatusOK, status)
}
