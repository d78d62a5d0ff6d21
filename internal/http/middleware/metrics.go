package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/observability"
)

// unobserved routes are scraped or polled too often to be worth a series.
var unobserved = map[string]bool{
	"/metrics":     true,
	"/healthcheck": true,
}

// Metrics records request count, latency and in-flight gauge per route
// template. A nil m disables it.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if unobserved[route] {
			c.Next()
			return
		}
		start := time.Now()
		m.APIInflightInc()
		defer m.APIInflightDec()
		c.Next()

		if route == "" {
			// Unmatched paths share one series so scanners cannot blow up cardinality.
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
