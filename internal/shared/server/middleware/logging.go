package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"signflow-backend/internal/shared/metrics"
	"signflow-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can correlate documents.
const (
	DocumentIDKey       = "documentId"
	StatusTransitionKey = "statusTransition"
	ProviderEventKey    = "providerEvent"
)

// Logging emits a structured log per request and counts it.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if id := c.GetString(DocumentIDKey); id != "" {
			fields["document_id"] = id
		}
		if t := c.GetString(StatusTransitionKey); t != "" {
			fields["status_transition"] = t
		}
		if e := c.GetString(ProviderEventKey); e != "" {
			fields["provider_event"] = e
		}
		telemetry.Info("request.complete", fields)
	}
}
