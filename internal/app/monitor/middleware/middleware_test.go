package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secmonitor/internal/config"
	"secmonitor/internal/pkg/utils"
)

func newEngine(cfg *config.SecurityConfig, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": utils.GetRequestID(c),
			"ctx_id":     utils.GetRequestIDFromContext(c.Request.Context()),
		})
	})
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORSMiddleware(t *testing.T) {
	cfg := &config.SecurityConfig{CORS: config.CORSConfig{
		Enabled:          true,
		AllowOrigins:     []string{"https://console.example.com"},
		AllowCredentials: true,
	}}
	m := NewMiddlewareManager(cfg)
	r := newEngine(cfg, m.GinCORSMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://console.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://console.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://console.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	cfg := &config.SecurityConfig{}
	m := NewMiddlewareManager(cfg)
	r := newEngine(cfg, m.GinSecurityHeadersMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "SecMonitor", w.Header().Get("Server"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRequestIDMiddleware(t *testing.T) {
	cfg := &config.SecurityConfig{}
	m := NewMiddlewareManager(cfg)
	r := newEngine(cfg, m.GinRequestIDMiddleware(), m.GinLoggingMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(utils.RequestIDHeader)
	require.NotEmpty(t, generated)
	assert.Contains(t, w.Body.String(), `"request_id":"`+generated+`"`)
	assert.Contains(t, w.Body.String(), `"ctx_id":"`+generated+`"`)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(utils.RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", w.Header().Get(utils.RequestIDHeader))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := &config.SecurityConfig{RateLimit: config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         2,
		SkipPaths:         []string{"/api/health"},
	}}
	m := NewMiddlewareManager(cfg)
	r := newEngine(cfg, m.GinRateLimitMiddleware())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// 跳过路径不受限
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// 其他客户端有独立的令牌桶
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.9:4321"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIPRateLimiterDefaults(t *testing.T) {
	l := NewIPRateLimiter(0, 0)
	assert.EqualValues(t, 50, l.rps)
	assert.Equal(t, 100, l.burst)
	assert.True(t, l.Allow("a"))
}
