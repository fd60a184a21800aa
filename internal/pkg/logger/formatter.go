// 结构化日志辅助函数
package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampFormat)
}

// LogType 日志类型枚举
type LogType string

const (
	// AccessLog 访问日志 - 记录HTTP请求
	AccessLog LogType = "access"
	// BusinessLog 业务日志 - 快照摄取、阈值更新、告警确认等
	BusinessLog LogType = "business"
	// ErrorLog 错误日志 - 系统错误和异常
	ErrorLog LogType = "error"
	// SystemLog 系统日志 - 组件启动/关闭/连接状态
	SystemLog LogType = "system"
	// AuditLog 审计日志 - 人工操作(确认告警、修改阈值)
	AuditLog LogType = "audit"
	// AlertLog 告警日志 - 告警触发与分发结果
	AlertLog LogType = "alert"
)

func mergeFields(fields logrus.Fields, extraFields map[string]interface{}) logrus.Fields {
	for k, v := range extraFields {
		fields[k] = v
	}
	return fields
}

// LogAccessRequest 记录HTTP访问日志
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string) {
	if LoggerInstance == nil {
		return
	}

	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":          AccessLog,
		"method":        c.Request.Method,
		"path":          c.Request.URL.Path,
		"query":         c.Request.URL.RawQuery,
		"status_code":   c.Writer.Status(),
		"response_time": time.Since(startTime).Milliseconds(),
		"client_ip":     c.ClientIP(),
		"user_agent":    c.Request.UserAgent(),
		"request_id":    requestID,
		"request_size":  c.Request.ContentLength,
		"response_size": c.Writer.Size(),
	}).Info("HTTP request processed")
}

// LogBusinessOperation 记录业务操作日志
// result 为 success 时记 Info，否则记 Warn
func LogBusinessOperation(operation, tenantID, clientIP, requestID, result, message string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := mergeFields(logrus.Fields{
		"type":       BusinessLog,
		"operation":  operation,
		"tenant_id":  tenantID,
		"client_ip":  clientIP,
		"result":     result,
		"message":    message,
		"request_id": requestID,
	}, extraFields)

	if result == "success" {
		LoggerInstance.logger.WithFields(fields).Info(fmt.Sprintf("Business operation: %s", operation))
	} else {
		LoggerInstance.logger.WithFields(fields).Warn(fmt.Sprintf("Business operation failed: %s", operation))
	}
}

// LogError 记录系统错误
func LogError(err error, requestID, clientIP, path, method string, extraFields map[string]interface{}) {
	if LoggerInstance == nil || err == nil {
		return
	}

	fields := mergeFields(logrus.Fields{
		"type":       ErrorLog,
		"error":      err.Error(),
		"request_id": requestID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
	}, extraFields)

	LoggerInstance.logger.WithFields(fields).Errorf("System error occurred: %s", err.Error())
}

// LogBusinessError 记录可预期的业务错误(参数错误、资源不存在等)
// 写入业务日志，级别为 Warn
func LogBusinessError(err error, requestID, clientIP, path, method string, extraFields map[string]interface{}) {
	if LoggerInstance == nil || err == nil {
		return
	}

	fields := mergeFields(logrus.Fields{
		"type":       BusinessLog,
		"error":      err.Error(),
		"request_id": requestID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
	}, extraFields)

	LoggerInstance.logger.WithFields(fields).Warnf("Business error: %s", err.Error())
}

// LogInfo 记录带上下文的业务信息日志
func LogInfo(message, requestID, clientIP, path, method string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := mergeFields(logrus.Fields{
		"type":       BusinessLog,
		"request_id": requestID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
	}, extraFields)

	LoggerInstance.logger.WithFields(fields).Info(message)
}

// LogWarn 记录带上下文的警告日志
func LogWarn(message, requestID, clientIP, path, method string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := mergeFields(logrus.Fields{
		"type":       BusinessLog,
		"request_id": requestID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
	}, extraFields)

	LoggerInstance.logger.WithFields(fields).Warn(message)
}

// LogSystemEvent 记录系统事件日志
// 用于记录系统启动、关闭、组件状态变化等系统级事件
func LogSystemEvent(component, event, message string, level logrus.Level, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := mergeFields(logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
		"message":   message,
	}, extraFields)

	entry := LoggerInstance.logger.WithFields(fields)
	msg := fmt.Sprintf("System event: %s - %s", component, event)
	switch level {
	case logrus.DebugLevel:
		entry.Debug(msg)
	case logrus.WarnLevel:
		entry.Warn(msg)
	case logrus.ErrorLevel:
		entry.Error(msg)
	case logrus.FatalLevel:
		entry.Fatal(msg)
	default:
		entry.Info(msg)
	}
}

// LogAuditOperation 记录审计日志
// actor 为调用方提供的操作者标识(如 X-Operator 请求头)，可为空
func LogAuditOperation(actor, action, resource, result, clientIP, userAgent, requestID string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := mergeFields(logrus.Fields{
		"type":       AuditLog,
		"actor":      actor,
		"action":     action,
		"resource":   resource,
		"result":     result,
		"client_ip":  clientIP,
		"user_agent": userAgent,
		"request_id": requestID,
	}, extraFields)

	LoggerInstance.logger.WithFields(fields).Info(fmt.Sprintf("Audit: %s performed %s on %s", actor, action, resource))
}

// LogAlertEvent 记录告警生命周期事件(triggered / suppressed / dispatched / acknowledged)
func LogAlertEvent(event, tenantID, alertID, severity string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := mergeFields(logrus.Fields{
		"type":      AlertLog,
		"event":     event,
		"tenant_id": tenantID,
		"alert_id":  alertID,
		"severity":  severity,
	}, extraFields)

	entry := LoggerInstance.logger.WithFields(fields)
	if severity == "critical" {
		entry.Warn(fmt.Sprintf("Alert %s: %s", event, alertID))
	} else {
		entry.Info(fmt.Sprintf("Alert %s: %s", event, alertID))
	}
}
