package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(New(opts))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func preflight(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	return req
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://Timetable.example.org/")
	newRouter(Options{AllowedOrigins: []string{"https://timetable.example.org"}}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://Timetable.example.org/", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-Id, Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	router := newRouter(Options{AllowedOrigins: []string{"https://timetable.example.org"}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://other.example.org")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Expose-Headers"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, preflight("https://other.example.org"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(Options{MaxAge: 10 * time.Minute}).ServeHTTP(w, preflight("https://timetable.example.org"))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://timetable.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, X-Request-Id, X-Actor", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET, POST, PATCH, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Values("Vary"), "Access-Control-Request-Method")
}

func TestCORSConfiguredHeadersExtendDefaults(t *testing.T) {
	router := newRouter(Options{
		AllowedHeaders: []string{"x-actor", "If-Match"},
		ExposedHeaders: []string{" content-disposition", "X-Total-Count"},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, preflight("https://timetable.example.org"))
	assert.Equal(t, "Content-Type, X-Request-Id, X-Actor, If-Match", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-Id, Content-Disposition, X-Total-Count", w.Header().Get("Access-Control-Expose-Headers"))
}
