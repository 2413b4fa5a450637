package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/titlevet/titlevet-go/internal/store"
)

// RateLimitMiddleware rejects requests over the per-client-IP window budget
// before any pipeline work starts.
func RateLimitMiddleware(limiter *store.RateLimiter, metrics *PrometheusMetrics, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if limiter.Allow(clientIP) {
			c.Next()
			return
		}

		if metrics != nil {
			metrics.RecordRateLimitRejection()
		}
		logger.WithField("client_ip", clientIP).Warn("Rate limit exceeded")

		retryAfter := limiter.RetryAfter(clientIP)
		c.Header("Retry-After", retryAfter.Round(time.Second).String())
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":   false,
			"error":     "rate limit exceeded, try again later",
			"timestamp": time.Now().UTC(),
		})
		c.Abort()
	}
}
