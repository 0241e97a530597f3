package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// Metrics records request count, latency and in-flight requests labelled
// by route pattern.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		start := time.Now()

		m.IncrementActiveRequests(method)
		defer m.DecrementActiveRequests(method)

		c.Next()

		m.RecordRequest(method, routeOf(c), c.Writer.Status(), time.Since(start))
	}
}
