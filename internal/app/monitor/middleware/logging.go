/**
 * 中间件:日志相关中间件
 * @description: 访问日志；同时把客户端IP和请求ID写入标准上下文，供 service 层使用
 */
package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/utils"
)

// GinLoggingMiddleware Gin日志中间件
func (m *MiddlewareManager) GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		clientIP := utils.GetClientIP(c)
		requestID := utils.GetRequestID(c)

		c.Set(string(utils.ContextKeyClientIP), clientIP)
		ctx := context.WithValue(c.Request.Context(), utils.ContextKeyClientIP, clientIP)
		ctx = context.WithValue(ctx, utils.ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logger.LogAccessRequest(c, start, requestID)

		status := c.Writer.Status()
		if status >= 500 {
			msg := c.Errors.String()
			if msg == "" {
				msg = fmt.Sprintf("HTTP %d", status)
			}
			logger.LogError(errors.New(msg), requestID, clientIP, c.Request.URL.Path, c.Request.Method, map[string]interface{}{
				"operation":   "http_request",
				"option":      "c.Writer.Status",
				"func_name":   "middleware.logging.GinLoggingMiddleware",
				"status_code": status,
				"duration":    time.Since(start).Milliseconds(),
			})
		}
	}
}
