package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/titlevet/titlevet-go/internal/apperrors"
	"github.com/titlevet/titlevet-go/internal/service"
	"github.com/titlevet/titlevet-go/internal/vetting"
)

// VetHandler exposes the vetting pipeline over HTTP.
type VetHandler struct {
	svc    *service.VetService
	logger *logrus.Logger
}

func NewVetHandler(svc *service.VetService, logger *logrus.Logger) *VetHandler {
	return &VetHandler{svc: svc, logger: logger}
}

type vetRequest struct {
	URL     string `json:"url" binding:"required"`
	OrgName string `json:"org_name"`
}

// Combined runs the full pipeline synchronously.
// POST /api/combined
func (h *VetHandler) Combined(c *gin.Context) {
	var req vetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidation("url is required"))
		return
	}

	report, err := h.svc.Vet(c.Request.Context(), vetting.Input{
		URL:      req.URL,
		OrgName:  req.OrgName,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		h.logger.WithError(err).WithField("url", req.URL).Warn("Vetting request failed")
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Whois runs registration lookup only.
// POST /api/whois
func (h *VetHandler) Whois(c *gin.Context) {
	var req vetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidation("url is required"))
		return
	}

	result, err := h.svc.WhoisOnly(c.Request.Context(), vetting.Input{
		URL:      req.URL,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		h.logger.WithError(err).WithField("url", req.URL).Warn("Whois request failed")
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      result,
		"timestamp": time.Now().UTC(),
	})
}

// Async enqueues a vetting job and returns immediately.
// POST /api/vet/async
func (h *VetHandler) Async(c *gin.Context) {
	var req vetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidation("url is required"))
		return
	}

	job, err := h.svc.Enqueue(c.Request.Context(), req.URL, req.OrgName)
	if err != nil {
		h.logger.WithError(err).WithField("url", req.URL).Warn("Failed to enqueue vetting job")
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"job_id":    job.ID,
		"domain":    job.Domain,
		"status":    job.Status,
		"timestamp": time.Now().UTC(),
	})
}

// GetJob returns an async job and its report once completed.
// GET /api/jobs/:id
func (h *VetHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.svc.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success":   false,
			"error":     "job not found",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      job,
		"timestamp": time.Now().UTC(),
	})
}

// writeError maps typed pipeline errors onto HTTP statuses with the
// common error envelope.
func writeError(c *gin.Context, err error) {
	status := apperrors.StatusOf(err)
	body := gin.H{
		"success":   false,
		"error":     err.Error(),
		"timestamp": time.Now().UTC(),
	}
	if apperrors.KindOf(err) == apperrors.KindRateLimit {
		c.Header("Retry-After", "60")
	}
	c.JSON(status, body)
}
