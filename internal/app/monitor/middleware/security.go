/**
 * 中间件:安全中间件
 * @description: 定义安全中间件
 * @func:
 *   - GinCORSMiddleware CORS跨域资源共享中间件，按配置的来源白名单设置响应头
 *   - GinSecurityHeadersMiddleware 安全头部中间件
 *   - GinRequestIDMiddleware 请求ID中间件，为每个请求添加唯一的请求ID
 */
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"secmonitor/internal/pkg/utils"
)

// GinCORSMiddleware CORS跨域资源共享中间件
func (m *MiddlewareManager) GinCORSMiddleware() gin.HandlerFunc {
	cors := m.securityConfig.CORS
	allowed := make(map[string]struct{}, len(cors.AllowOrigins))
	wildcard := false
	for _, o := range cors.AllowOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		if !cors.Enabled {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || wildcard {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if cors.AllowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Actor")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		// 预检请求
		if c.Request.Method == http.MethodOptions {
			logrus.WithFields(logrus.Fields{
				"path":      c.Request.URL.Path,
				"operation": "cors_preflight",
				"option":    "handle_options_request",
				"func_name": "middleware.security.GinCORSMiddleware",
				"origin":    origin,
			}).Debug("Handling CORS preflight request")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// GinSecurityHeadersMiddleware 安全头中间件
func (m *MiddlewareManager) GinSecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Cache-Control", "no-store")

		// 仅在HTTPS环境下设置
		if c.Request.TLS != nil || c.Request.Header.Get("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Header("Server", "SecMonitor")
		c.Next()
	}
}

// GinRequestIDMiddleware 请求ID中间件
// 沿用上游代理传入的 X-Request-ID，没有时生成 UUID
func (m *MiddlewareManager) GinRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(utils.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(string(utils.ContextKeyRequestID), requestID)
		c.Header(utils.RequestIDHeader, requestID)
		c.Next()
	}
}
