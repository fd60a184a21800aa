/**
 * 模型:告警阈值
 * @description: 租户级(或默认)的类型化阈值规则 metric/severity/comparator/value/kind
 */
package monitor

import (
	"fmt"
)

// Severity 告警严重级别
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank 数值越大越严重
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Valid 是否为已知级别
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Severities 按严重程度降序
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityWarning, SeverityInfo}
}

// ParseSeverity 解析严重级别
func ParseSeverity(v string) (Severity, error) {
	s := Severity(v)
	if !s.Valid() {
		return "", NewValidationError("severity", "invalid severity %q", v)
	}
	return s, nil
}

// Comparator 比较运算符
type Comparator string

const (
	ComparatorLT  Comparator = "lt"
	ComparatorLTE Comparator = "lte"
	ComparatorGT  Comparator = "gt"
	ComparatorGTE Comparator = "gte"
)

// Compare 有符号整数比较: current <op> threshold
func (c Comparator) Compare(current, threshold int) bool {
	switch c {
	case ComparatorLT:
		return current < threshold
	case ComparatorLTE:
		return current <= threshold
	case ComparatorGT:
		return current > threshold
	case ComparatorGTE:
		return current >= threshold
	}
	return false
}

// Symbol 用于告警消息
func (c Comparator) Symbol() string {
	switch c {
	case ComparatorLT:
		return "<"
	case ComparatorLTE:
		return "<="
	case ComparatorGT:
		return ">"
	case ComparatorGTE:
		return ">="
	}
	return string(c)
}

// Valid 是否为已知运算符
func (c Comparator) Valid() bool {
	switch c {
	case ComparatorLT, ComparatorLTE, ComparatorGT, ComparatorGTE:
		return true
	}
	return false
}

// ThresholdKind 阈值类型
type ThresholdKind string

const (
	// KindAbsolute 比较快照上的当前值
	KindAbsolute ThresholdKind = "absolute"
	// KindDelta 比较与上一个快照的差值(current - previous)，无上一个快照时不评估
	KindDelta ThresholdKind = "delta"
)

// AlertThreshold 告警阈值规则
type AlertThreshold struct {
	Metric     MonitoringMetric `json:"metric" yaml:"metric"`
	Severity   Severity         `json:"severity" yaml:"severity"`
	Comparator Comparator       `json:"comparator" yaml:"comparator"`
	Value      int              `json:"value" yaml:"value"`
	Kind       ThresholdKind    `json:"kind,omitempty" yaml:"kind,omitempty"` // 为空视为 absolute
}

// EffectiveKind 返回规则类型，空值按 absolute 处理
func (t AlertThreshold) EffectiveKind() ThresholdKind {
	if t.Kind == "" {
		return KindAbsolute
	}
	return t.Kind
}

// Validate 校验规则字段
func (t AlertThreshold) Validate() error {
	if !t.Metric.Valid() {
		return NewValidationError("metric", "unknown metric %q", t.Metric)
	}
	if !t.Severity.Valid() {
		return NewValidationError("severity", "invalid severity %q", t.Severity)
	}
	if !t.Comparator.Valid() {
		return NewValidationError("comparator", "invalid comparator %q", t.Comparator)
	}
	switch t.EffectiveKind() {
	case KindAbsolute, KindDelta:
	default:
		return NewValidationError("kind", "invalid threshold kind %q", t.Kind)
	}
	return nil
}

// String 规则的可读形式，例如 "overall_score < 60" / "Δoverall_score <= -15"
func (t AlertThreshold) String() string {
	prefix := ""
	if t.EffectiveKind() == KindDelta {
		prefix = "Δ"
	}
	return fmt.Sprintf("%s%s %s %d", prefix, t.Metric, t.Comparator.Symbol(), t.Value)
}

// ValidateThresholds 校验一组规则
func ValidateThresholds(rules []AlertThreshold) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("threshold[%d]: %w", i, err)
		}
	}
	return nil
}

// DefaultThresholds 租户未配置时使用的默认规则
func DefaultThresholds() []AlertThreshold {
	return []AlertThreshold{
		{Metric: MetricOverallScore, Severity: SeverityCritical, Comparator: ComparatorLT, Value: 60, Kind: KindAbsolute},
		{Metric: MetricOverallScore, Severity: SeverityWarning, Comparator: ComparatorLT, Value: 75, Kind: KindAbsolute},
		{Metric: MetricCriticalFindings, Severity: SeverityCritical, Comparator: ComparatorGTE, Value: 5, Kind: KindAbsolute},
		{Metric: MetricCriticalFindings, Severity: SeverityWarning, Comparator: ComparatorGTE, Value: 3, Kind: KindAbsolute},
		{Metric: MetricHighFindings, Severity: SeverityCritical, Comparator: ComparatorGTE, Value: 10, Kind: KindAbsolute},
		{Metric: MetricHighFindings, Severity: SeverityWarning, Comparator: ComparatorGTE, Value: 7, Kind: KindAbsolute},
		// 分数退化，叠加在 overall_score 上
		{Metric: MetricOverallScore, Severity: SeverityCritical, Comparator: ComparatorLTE, Value: -15, Kind: KindDelta},
		{Metric: MetricOverallScore, Severity: SeverityWarning, Comparator: ComparatorLTE, Value: -10, Kind: KindDelta},
	}
}

// Trigger 评估器输出的候选告警
type Trigger struct {
	Metric         MonitoringMetric `json:"metric"`
	Severity       Severity         `json:"severity"`
	CurrentValue   int              `json:"current_value"`   // absolute 为当前值，delta 为差值
	ThresholdValue int              `json:"threshold_value"` // 命中规则的阈值
	Rule           AlertThreshold   `json:"rule"`
}

// 阈值来源
const (
	ThresholdSourceTenant  = "tenant"  // 通过API为租户配置
	ThresholdSourceFile    = "file"    // 阈值规则文件
	ThresholdSourceDefault = "default" // 内置默认
)

// TenantThresholds 租户生效的阈值规则
type TenantThresholds struct {
	TenantID string           `json:"tenant_id"`
	Source   string           `json:"source"`
	Rules    []AlertThreshold `json:"rules"`
}
