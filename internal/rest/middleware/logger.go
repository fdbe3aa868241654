package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/go-comment-service/internal/metrics"
)

// Logger 记录每个请求，并上报 HTTP 指标
func Logger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		if !metrics.ShouldSkipEndpoint(path) {
			m.RecordHTTPRequest(c.Request.Method, c.FullPath(), status, duration)
		}

		entry := logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      path,
			"query":     c.Request.URL.RawQuery,
			"status":    status,
			"duration":  duration.String(),
			"client_ip": c.ClientIP(),
		})
		if identity, ok := IdentityFromContext(c); ok {
			entry = entry.WithField("owner", identity.OwnerAddress)
		}

		switch {
		case status >= 500:
			entry.Error("server error")
		case status >= 400:
			entry.Warn("client error")
		default:
			entry.Info("request completed")
		}
	}
}
