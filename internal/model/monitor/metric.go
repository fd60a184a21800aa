/**
 * 模型:监控指标
 * @description: 可跟踪、可告警的指标枚举，每个指标确定地映射到快照的某个字段
 */
package monitor

// MonitoringMetric 监控指标(封闭枚举)
type MonitoringMetric string

const (
	MetricOverallScore        MonitoringMetric = "overall_score"
	MetricInfrastructureScore MonitoringMetric = "infrastructure_score"
	MetricNetworkScore        MonitoringMetric = "network_score"
	MetricCloudScore          MonitoringMetric = "cloud_score"
	MetricContainerScore      MonitoringMetric = "container_score"
	MetricVulnerabilityCount  MonitoringMetric = "vulnerability_count"
	MetricCriticalFindings    MonitoringMetric = "critical_findings"
	MetricHighFindings        MonitoringMetric = "high_findings"
	MetricComplianceScore     MonitoringMetric = "compliance_score"
)

// MetricInfo 指标描述
type MetricInfo struct {
	Name        MonitoringMetric `json:"name"`
	Description string           `json:"description"`
	Unit        string           `json:"unit"` // score / count
}

// metricCatalog 固定顺序，评估和列表都按这个顺序
var metricCatalog = []MetricInfo{
	{MetricOverallScore, "Overall security score (0-100)", "score"},
	{MetricInfrastructureScore, "Infrastructure Security category score (0-100)", "score"},
	{MetricNetworkScore, "Network Security category score (0-100)", "score"},
	{MetricCloudScore, "Cloud Security category score (0-100)", "score"},
	{MetricContainerScore, "Container Security category score (0-100)", "score"},
	{MetricVulnerabilityCount, "Total number of open vulnerabilities", "count"},
	{MetricCriticalFindings, "Number of critical severity findings", "count"},
	{MetricHighFindings, "Number of high severity findings", "count"},
	{MetricComplianceScore, "Compliance score (0-100), absent when not assessed", "score"},
}

// categoryByMetric 类别类指标到 category_scores 键的映射
var categoryByMetric = map[MonitoringMetric]string{
	MetricInfrastructureScore: CategoryInfrastructure,
	MetricNetworkScore:        CategoryNetwork,
	MetricCloudScore:          CategoryCloud,
	MetricContainerScore:      CategoryContainer,
}

// AllMetrics 返回全部指标描述的副本
func AllMetrics() []MetricInfo {
	out := make([]MetricInfo, len(metricCatalog))
	copy(out, metricCatalog)
	return out
}

// Metrics 返回全部指标名，按目录顺序
func Metrics() []MonitoringMetric {
	out := make([]MonitoringMetric, 0, len(metricCatalog))
	for _, m := range metricCatalog {
		out = append(out, m.Name)
	}
	return out
}

// ParseMetric 解析指标名
func ParseMetric(name string) (MonitoringMetric, error) {
	m := MonitoringMetric(name)
	if !m.Valid() {
		return "", NewValidationError("metric", "unknown metric %q", name)
	}
	return m, nil
}

// Valid 是否为已知指标
func (m MonitoringMetric) Valid() bool {
	for _, info := range metricCatalog {
		if info.Name == m {
			return true
		}
	}
	return false
}

// Extract 从快照中提取指标值
// 第二个返回值为 false 表示该快照上没有这个值(合规分未评估、类别缺失)
func (m MonitoringMetric) Extract(s *SecuritySnapshot) (int, bool) {
	if s == nil {
		return 0, false
	}
	switch m {
	case MetricOverallScore:
		return s.OverallScore, true
	case MetricVulnerabilityCount:
		return s.VulnerabilityCounts.Total, true
	case MetricCriticalFindings:
		return s.VulnerabilityCounts.Critical, true
	case MetricHighFindings:
		return s.VulnerabilityCounts.High, true
	case MetricComplianceScore:
		if s.ComplianceScore == nil {
			return 0, false
		}
		return *s.ComplianceScore, true
	}
	if category, ok := categoryByMetric[m]; ok {
		v, present := s.CategoryScores[category]
		return v, present
	}
	return 0, false
}

// HigherIsBetter 分数类指标越高越好，计数类越低越好
func (m MonitoringMetric) HigherIsBetter() bool {
	switch m {
	case MetricVulnerabilityCount, MetricCriticalFindings, MetricHighFindings:
		return false
	}
	return true
}
