package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPLogger logs every request with method, route, status and latency.
func HTTPLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.InfoContext(c.Request.Context(), fmt.Sprintf("http: %s %s", c.Request.Method, c.FullPath()),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}
