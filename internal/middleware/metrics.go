package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parking-permit-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes every request against its route template. Requests that match no route share a
// single label so unknown paths cannot grow the series count.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
