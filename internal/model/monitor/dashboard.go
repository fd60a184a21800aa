/**
 * 模型:仪表盘与趋势
 * @description: 趋势序列、趋势方向以及仪表盘聚合视图
 */
package monitor

import "time"

// TrendDirection 趋势方向
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDegrading TrendDirection = "degrading"
	TrendStable    TrendDirection = "stable"
)

// TrendPoint 时间序列中的一个点
type TrendPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Value        int       `json:"value"`
	AssessmentID string    `json:"assessment_id"`
}

// TrendSeries 一个指标的时间序列
type TrendSeries struct {
	Metric     MonitoringMetric `json:"metric"`
	WindowDays int              `json:"window_days"`
	Points     []TrendPoint     `json:"points"`
}

// TrendReport 趋势接口返回
type TrendReport struct {
	TenantID  string         `json:"tenant_id"`
	Series    TrendSeries    `json:"series"`
	Direction TrendDirection `json:"direction"`
}

// VulnerabilitySummary 漏洞统计，Total 总是四项之和
type VulnerabilitySummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// NewVulnerabilitySummary 从快照计数生成摘要并重新计算 Total
func NewVulnerabilitySummary(c VulnerabilityCounts) VulnerabilitySummary {
	return VulnerabilitySummary{
		Critical: c.Critical,
		High:     c.High,
		Medium:   c.Medium,
		Low:      c.Low,
		Total:    c.Sum(),
	}
}

// AlertSummary 活动告警统计
type AlertSummary struct {
	Total      int              `json:"total"`
	BySeverity map[Severity]int `json:"by_severity"`
}

// Dashboard 仪表盘聚合视图
type Dashboard struct {
	TenantID             string               `json:"tenant_id"`
	Latest               SnapshotSummary      `json:"latest"`
	CategoryScores       map[string]int       `json:"category_scores"`
	VulnerabilitySummary VulnerabilitySummary `json:"vulnerability_summary"`
	Trends               []TrendSeries        `json:"trends"`
	TrendDirection       TrendDirection       `json:"trend_direction"`
	ActiveAlerts         []SecurityAlert      `json:"active_alerts"`
	AlertSummary         AlertSummary         `json:"alert_summary"`
	GeneratedAt          time.Time            `json:"generated_at"`
}
