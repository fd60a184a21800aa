/*
 * @description: 通用的工具包
 * @func: 请求上下文中的客户端IP/请求ID读写
 */

package utils

import (
	"context"

	"github.com/gin-gonic/gin"
)

// ContextKey 类型用于标准上下文键的定义，避免使用裸字符串造成键冲突
type ContextKey string

const (
	// ContextKeyClientIP 标准上下文中存储客户端IP的统一键
	ContextKeyClientIP ContextKey = "client_ip"
	// ContextKeyRequestID 标准上下文中存储请求ID的统一键
	ContextKeyRequestID ContextKey = "request_id"
)

// RequestIDHeader 请求追踪头
const RequestIDHeader = "X-Request-ID"

// GetRequestID 获取请求ID
// 中间件会把生成的ID写入 gin 上下文，未经过中间件时回落到请求头
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(string(ContextKeyRequestID)); ok {
		if id, ok2 := v.(string); ok2 {
			return id
		}
	}
	return c.GetHeader(RequestIDHeader)
}

// GetClientIPFromContext 从标准上下文读取客户端IP
// 适用范围：service 层以下获取当前 clientIP
func GetClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// GetRequestIDFromContext 从标准上下文读取请求ID
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}
