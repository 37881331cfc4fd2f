package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-core/internal/service"
)

var labelledMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}

// Metrics records request count and latency per route template. Routes listed in skip, such
// as probes and the scrape endpoint, are not recorded. Unrouted requests share the
// "unmatched" path and unexpected methods share "OTHER" so label values stay bounded.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skipped[route]; ok && route != "" {
			return
		}
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		if _, ok := labelledMethods[method]; !ok {
			method = "OTHER"
		}
		metricsSvc.ObserveHTTPRequest(method, route, c.Writer.Status(), time.Since(start))
	}
}
