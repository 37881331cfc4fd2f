package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const allowedMethods = "GET, POST, PATCH, DELETE, OPTIONS"

var (
	// baseAllowedHeaders are the request headers the scheduling API reads.
	baseAllowedHeaders = []string{"Content-Type", "X-Request-ID", "X-Actor"}
	// baseExposedHeaders carry the request id and the timetable download filename.
	baseExposedHeaders = []string{"X-Request-ID", "Content-Disposition"}
)

// Options configures the middleware. An empty AllowedOrigins allows any origin; header lists
// extend the built-in ones.
type Options struct {
	AllowedOrigins []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

// New returns a CORS middleware. Preflight requests are answered here; disallowed origins get
// no CORS headers on simple requests and 403 on preflight.
func New(opts Options) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		origins[normalizeOrigin(origin)] = struct{}{}
	}
	allowAll := len(origins) == 0
	allowHeaders := joinHeaders(baseAllowedHeaders, opts.AllowedHeaders)
	exposeHeaders := joinHeaders(baseExposedHeaders, opts.ExposedHeaders)
	maxAge := ""
	if opts.MaxAge > 0 {
		maxAge = strconv.Itoa(int(opts.MaxAge / time.Second))
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		allowed := allowAll
		if !allowed && origin != "" {
			_, allowed = origins[normalizeOrigin(origin)]
		}
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if allowed {
			switch {
			case origin != "":
				header.Set("Access-Control-Allow-Origin", origin)
			case allowAll:
				header.Set("Access-Control-Allow-Origin", "*")
			}
		}

		if !preflight {
			if allowed {
				header.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		header.Add("Vary", "Access-Control-Request-Method")
		header.Add("Vary", "Access-Control-Request-Headers")
		header.Set("Access-Control-Allow-Methods", allowedMethods)
		header.Set("Access-Control-Allow-Headers", allowHeaders)
		if maxAge != "" {
			header.Set("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

// joinHeaders merges header names case-insensitively, keeping first-seen order.
func joinHeaders(lists ...[]string) string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range lists {
		for _, name := range list {
			name = http.CanonicalHeaderKey(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return strings.Join(out, ", ")
}
