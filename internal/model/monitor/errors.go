/**
 * 模型:监控告警错误定义
 * @description: 监控核心的错误分类，服务层用 fmt.Errorf("...: %w") 包装，处理层用 errors.Is 映射状态码
 */
package monitor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 租户无快照 / 告警不存在或已确认 / 阈值未配置
	ErrNotFound = errors.New("not found")
	// ErrDuplicateAssessment assessment_id 已存在，摄取视为无操作
	ErrDuplicateAssessment = errors.New("duplicate assessment")
	// ErrInvalidArgument 非法指标名 / 窗口越界 / 非法严重级别 / 快照结构错误
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrHandlerDelivery 单个通知渠道投递失败，只记录不向上传播
	ErrHandlerDelivery = errors.New("notification delivery failed")
)

// ValidationError 参数或结构校验错误
type ValidationError struct {
	Field   string `json:"field"`   // 字段名
	Message string `json:"message"` // 错误消息
}

// NewValidationError 创建校验错误
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap 校验错误归类为 ErrInvalidArgument
func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// DeliveryError 通知渠道投递失败
type DeliveryError struct {
	Handler string
	AlertID string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("handler %s failed for alert %s: %v", e.Handler, e.AlertID, e.Err)
}

// Is 让 errors.Is(err, ErrHandlerDelivery) 成立
func (e *DeliveryError) Is(target error) bool {
	return target == ErrHandlerDelivery
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
