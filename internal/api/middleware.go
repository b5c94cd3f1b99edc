package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"eventpulse/internal/metrics"

	"github.com/gin-gonic/gin"
)

const ingestSecretHeader = "X-Ingest-Secret"

// requireIngestSecret rejects writes that do not carry the shared secret.
// Constant-time comparison so the secret cannot be probed byte by byte.
func requireIngestSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(ingestSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}
		c.Next()
	}
}

// requestMetrics records request counts and latency per route template
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.APIRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
