/**
 * 模型:持久化记录
 * @description: MySQL 表结构(GORM)，以及与领域模型之间的转换
 */
package monitor

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"secmonitor/internal/model/basemodel"
)

// ============================================================================
// JSON 列类型
// ============================================================================

// IntMap 以 JSON 存储的 map[string]int，用于 category_scores
type IntMap map[string]int

// Scan 实现sql.Scanner接口
func (m *IntMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// Value 实现driver.Valuer接口
func (m IntMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

// StringMap 以 JSON 存储的 map[string]string，用于 metadata
type StringMap map[string]string

// Scan 实现sql.Scanner接口
func (m *StringMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// Value 实现driver.Valuer接口
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

// StringSlice 以 JSON 数组存储的字符串切片，用于 recommendations
type StringSlice []string

// Scan 实现sql.Scanner接口
func (s *StringSlice) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// Value 实现driver.Valuer接口
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dest)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// ============================================================================
// 表结构
// ============================================================================

// SnapshotRecord 快照表
type SnapshotRecord struct {
	basemodel.BaseModel
	AssessmentID    string    `gorm:"type:varchar(128);uniqueIndex:uk_assessment_id;not null;comment:评估ID(全局唯一)"`
	TenantID        string    `gorm:"type:varchar(128);index:idx_tenant_ts,priority:1;not null;comment:租户ID"`
	Timestamp       time.Time `gorm:"type:datetime(6);index:idx_tenant_ts,priority:2;not null;comment:评估时间"`
	OverallScore    int       `gorm:"not null;comment:总体分数"`
	RiskLevel       string    `gorm:"type:varchar(16);not null;comment:风险等级"`
	CategoryScores  IntMap    `gorm:"type:json;comment:类别分数"`
	VulnCritical    int       `gorm:"not null;default:0"`
	VulnHigh        int       `gorm:"not null;default:0"`
	VulnMedium      int       `gorm:"not null;default:0"`
	VulnLow         int       `gorm:"not null;default:0"`
	VulnTotal       int       `gorm:"not null;default:0"`
	ComplianceScore *int      `gorm:"comment:合规分数,未评估为NULL"`
	Metadata        StringMap `gorm:"type:json;comment:透传元数据"`
}

// TableName 表名
func (SnapshotRecord) TableName() string {
	return "monitor_snapshots"
}

// NewSnapshotRecord 领域快照 -> 表记录
func NewSnapshotRecord(s *SecuritySnapshot) *SnapshotRecord {
	c := s.Clone()
	return &SnapshotRecord{
		AssessmentID:    c.AssessmentID,
		TenantID:        c.TenantID,
		Timestamp:       c.Timestamp.UTC(),
		OverallScore:    c.OverallScore,
		RiskLevel:       string(c.RiskLevel),
		CategoryScores:  IntMap(c.CategoryScores),
		VulnCritical:    c.VulnerabilityCounts.Critical,
		VulnHigh:        c.VulnerabilityCounts.High,
		VulnMedium:      c.VulnerabilityCounts.Medium,
		VulnLow:         c.VulnerabilityCounts.Low,
		VulnTotal:       c.VulnerabilityCounts.Total,
		ComplianceScore: c.ComplianceScore,
		Metadata:        StringMap(c.Metadata),
	}
}

// ToSnapshot 表记录 -> 领域快照
func (r *SnapshotRecord) ToSnapshot() *SecuritySnapshot {
	return &SecuritySnapshot{
		Timestamp:      r.Timestamp.UTC(),
		AssessmentID:   r.AssessmentID,
		TenantID:       r.TenantID,
		OverallScore:   r.OverallScore,
		RiskLevel:      RiskLevel(r.RiskLevel),
		CategoryScores: map[string]int(r.CategoryScores),
		VulnerabilityCounts: VulnerabilityCounts{
			Critical: r.VulnCritical,
			High:     r.VulnHigh,
			Medium:   r.VulnMedium,
			Low:      r.VulnLow,
			Total:    r.VulnTotal,
		},
		ComplianceScore: r.ComplianceScore,
		Metadata:        map[string]string(r.Metadata),
	}
}

// AlertRecord 告警表
type AlertRecord struct {
	basemodel.BaseModel
	AlertID         string      `gorm:"type:char(36);uniqueIndex:uk_alert_id;not null;comment:告警ID"`
	TenantID        string      `gorm:"type:varchar(128);index:idx_tenant_metric_ack,priority:1;index:idx_tenant_created,priority:1;not null"`
	Metric          string      `gorm:"type:varchar(64);index:idx_tenant_metric_ack,priority:2;not null"`
	Acknowledged    bool        `gorm:"index:idx_tenant_metric_ack,priority:3;not null;default:false"`
	AssessmentID    string      `gorm:"type:varchar(128);index;not null;comment:触发快照"`
	Severity        string      `gorm:"type:varchar(16);not null"`
	Message         string      `gorm:"type:varchar(512);not null"`
	CurrentValue    int         `gorm:"not null"`
	ThresholdValue  int         `gorm:"not null"`
	Recommendations StringSlice `gorm:"type:json"`
	RaisedAt        time.Time   `gorm:"type:datetime(6);index:idx_tenant_created,priority:2;not null;comment:告警创建时间"`
	AcknowledgedAt  *time.Time  `gorm:"type:datetime(6)"`
}

// TableName 表名
func (AlertRecord) TableName() string {
	return "monitor_alerts"
}

// NewAlertRecord 领域告警 -> 表记录
func NewAlertRecord(a *SecurityAlert) *AlertRecord {
	c := a.Clone()
	return &AlertRecord{
		AlertID:         c.AlertID,
		TenantID:        c.TenantID,
		Metric:          string(c.Metric),
		Acknowledged:    c.Acknowledged,
		AssessmentID:    c.AssessmentID,
		Severity:        string(c.Severity),
		Message:         c.Message,
		CurrentValue:    c.CurrentValue,
		ThresholdValue:  c.ThresholdValue,
		Recommendations: StringSlice(c.Recommendations),
		RaisedAt:        c.CreatedAt.UTC(),
		AcknowledgedAt:  c.AcknowledgedAt,
	}
}

// ToAlert 表记录 -> 领域告警
func (r *AlertRecord) ToAlert() *SecurityAlert {
	a := &SecurityAlert{
		AlertID:         r.AlertID,
		TenantID:        r.TenantID,
		AssessmentID:    r.AssessmentID,
		Metric:          MonitoringMetric(r.Metric),
		Severity:        Severity(r.Severity),
		Message:         r.Message,
		CurrentValue:    r.CurrentValue,
		ThresholdValue:  r.ThresholdValue,
		Recommendations: []string(r.Recommendations),
		CreatedAt:       r.RaisedAt.UTC(),
		Acknowledged:    r.Acknowledged,
	}
	if r.AcknowledgedAt != nil {
		t := r.AcknowledgedAt.UTC()
		a.AcknowledgedAt = &t
	}
	return a
}

// ThresholdRecord 租户阈值表，一行一条规则
type ThresholdRecord struct {
	basemodel.BaseModel
	TenantID   string `gorm:"type:varchar(128);index;not null"`
	Position   int    `gorm:"not null;comment:规则顺序"`
	Metric     string `gorm:"type:varchar(64);not null"`
	Severity   string `gorm:"type:varchar(16);not null"`
	Comparator string `gorm:"type:varchar(8);not null"`
	Value      int    `gorm:"not null"`
	Kind       string `gorm:"type:varchar(16);not null;default:absolute"`
}

// TableName 表名
func (ThresholdRecord) TableName() string {
	return "monitor_thresholds"
}

// ToThreshold 表记录 -> 阈值规则
func (r *ThresholdRecord) ToThreshold() AlertThreshold {
	return AlertThreshold{
		Metric:     MonitoringMetric(r.Metric),
		Severity:   Severity(r.Severity),
		Comparator: Comparator(r.Comparator),
		Value:      r.Value,
		Kind:       ThresholdKind(r.Kind),
	}
}

// AllRecords 迁移用
func AllRecords() []interface{} {
	return []interface{}{&SnapshotRecord{}, &AlertRecord{}, &ThresholdRecord{}}
}
