/**
 * 模型:响应模型
 * @description: API统一响应结构
 */
package model

// APIResponse 通用API响应结构
type APIResponse struct {
	Code    int         `json:"code,omitempty"`  // 响应状态码，可选
	Status  string      `json:"status"`          // 响应状态："success" 或 "error"
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据，可选
	Error   string      `json:"error,omitempty"` // 错误信息，可选
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status     string            `json:"status"`               // healthy / unhealthy
	Timestamp  string            `json:"timestamp"`            // 检查时间
	Version    string            `json:"version,omitempty"`    // 应用版本
	Components map[string]string `json:"components,omitempty"` // 组件状态
}
