/**
 * 中间件:限流器中间件
 * @description: 按客户端IP的令牌桶限流(golang.org/x/time/rate)，限流器数量由 LRU 限制
 */
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"secmonitor/internal/model"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/utils"
)

// maxTrackedClients 同时跟踪的客户端数量
const maxTrackedClients = 10000

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(key string) bool
}

// IPRateLimiter 每个 key 一个令牌桶
type IPRateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

// NewIPRateLimiter 创建限流器
func NewIPRateLimiter(rps, burst int) *IPRateLimiter {
	if rps <= 0 {
		rps = 50
	}
	if burst <= 0 {
		burst = rps * 2
	}
	cache, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	return &IPRateLimiter{limiters: cache, rps: rate.Limit(rps), burst: burst}
}

// Allow 检查是否允许请求
func (l *IPRateLimiter) Allow(key string) bool {
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		// 并发首次请求时保留先写入的限流器
		if prev, found, _ := l.limiters.PeekOrAdd(key, limiter); found {
			limiter = prev
		}
	}
	return limiter.Allow()
}

func (m *MiddlewareManager) getRateLimiter() RateLimiter {
	m.rateLimiterOnce.Do(func() {
		if m.rateLimiter == nil {
			cfg := m.securityConfig.RateLimit
			m.rateLimiter = NewIPRateLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
		}
	})
	return m.rateLimiter
}

// GinRateLimitMiddleware 默认限流中间件
func (m *MiddlewareManager) GinRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.securityConfig.RateLimit.Enabled || m.shouldSkipRateLimit(c) {
			c.Next()
			return
		}

		clientIP := utils.GetClientIP(c)
		if !m.getRateLimiter().Allow(clientIP) {
			logger.LogWarn("Rate limit exceeded for client", utils.GetRequestID(c), clientIP, c.Request.URL.Path, c.Request.Method, map[string]interface{}{
				"operation": "rate_limit_exceeded",
				"option":    "block_request",
				"func_name": "middleware.ratelimit.GinRateLimitMiddleware",
			})
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.APIResponse{
				Code:    http.StatusTooManyRequests,
				Status:  "failed",
				Message: "Rate limit exceeded",
				Error:   "too many requests",
			})
			return
		}
		c.Next()
	}
}

// shouldSkipRateLimit 检查是否应该跳过限流
func (m *MiddlewareManager) shouldSkipRateLimit(c *gin.Context) bool {
	path := c.Request.URL.Path
	for _, skipPath := range m.securityConfig.RateLimit.SkipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}
