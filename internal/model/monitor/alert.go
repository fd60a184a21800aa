/**
 * 模型:安全告警
 * @description: 有状态的告警实例，只允许通过确认操作修改，不删除
 */
package monitor

import (
	"time"

	"github.com/google/uuid"
)

// alertNamespace 告警ID的UUIDv5命名空间
var alertNamespace = uuid.MustParse("5b0c1f9e-6a1f-4c52-9a9e-2f1d0c7e4a31")

// AlertID 由 (tenant_id, metric, assessment_id) 确定性派生告警ID
// 流水线重试时同一触发生成同一ID，创建是幂等的
func AlertID(tenantID string, metric MonitoringMetric, assessmentID string) string {
	return uuid.NewSHA1(alertNamespace, []byte(tenantID+"|"+string(metric)+"|"+assessmentID)).String()
}

// SecurityAlert 安全告警
type SecurityAlert struct {
	AlertID         string           `json:"alert_id"`
	TenantID        string           `json:"tenant_id"`
	AssessmentID    string           `json:"assessment_id"` // 触发该告警的快照
	Metric          MonitoringMetric `json:"metric"`
	Severity        Severity         `json:"severity"`
	Message         string           `json:"message"`
	CurrentValue    int              `json:"current_value"`
	ThresholdValue  int              `json:"threshold_value"`
	Recommendations []string         `json:"recommendations"`
	CreatedAt       time.Time        `json:"created_at"`
	Acknowledged    bool             `json:"acknowledged"`
	AcknowledgedAt  *time.Time       `json:"acknowledged_at"`
}

// Clone 深拷贝
func (a *SecurityAlert) Clone() *SecurityAlert {
	if a == nil {
		return nil
	}
	out := *a
	if a.Recommendations != nil {
		out.Recommendations = append([]string(nil), a.Recommendations...)
	}
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		out.AcknowledgedAt = &t
	}
	return &out
}

// Active 未确认的告警为活动告警
func (a *SecurityAlert) Active() bool {
	return !a.Acknowledged
}

// AlertFilter 告警查询条件
type AlertFilter struct {
	Severity   Severity // 为空不过滤
	ActiveOnly bool
}

// Match 判断告警是否满足条件
func (f AlertFilter) Match(a *SecurityAlert) bool {
	if f.ActiveOnly && a.Acknowledged {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	return true
}
