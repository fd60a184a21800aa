/**
 * 模型:安全评估快照
 * @description: 一次评估完成后产生的租户安全态势快照，入库后不可变
 */
package monitor

import (
	"time"
)

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// 类别名称，对应 category_scores 的键
const (
	CategoryInfrastructure = "Infrastructure Security"
	CategoryNetwork        = "Network Security"
	CategoryCloud          = "Cloud Security"
	CategoryContainer      = "Container Security"
	CategoryCompliance     = "Compliance Posture"
)

// VulnerabilityCounts 各严重级别漏洞数量，Total 必须等于四项之和
type VulnerabilityCounts struct {
	Critical int `json:"critical" validate:"gte=0"`
	High     int `json:"high" validate:"gte=0"`
	Medium   int `json:"medium" validate:"gte=0"`
	Low      int `json:"low" validate:"gte=0"`
	Total    int `json:"total" validate:"gte=0"`
}

// Sum 四个严重级别之和
func (v VulnerabilityCounts) Sum() int {
	return v.Critical + v.High + v.Medium + v.Low
}

// SecuritySnapshot 安全评估快照
type SecuritySnapshot struct {
	Timestamp           time.Time           `json:"timestamp" validate:"required"`
	AssessmentID        string              `json:"assessment_id" validate:"required,max=128"`
	TenantID            string              `json:"tenant_id" validate:"required,max=128"`
	OverallScore        int                 `json:"overall_score" validate:"gte=0,lte=100"`
	RiskLevel           RiskLevel           `json:"risk_level" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	CategoryScores      map[string]int      `json:"category_scores" validate:"dive,keys,required,endkeys,gte=0,lte=100"`
	VulnerabilityCounts VulnerabilityCounts `json:"vulnerability_counts"`
	ComplianceScore     *int                `json:"compliance_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Metadata            map[string]string   `json:"metadata,omitempty"`
}

// Clone 深拷贝，存储层只保存和返回副本，保证快照不可变
func (s *SecuritySnapshot) Clone() *SecuritySnapshot {
	if s == nil {
		return nil
	}
	out := *s
	if s.CategoryScores != nil {
		out.CategoryScores = make(map[string]int, len(s.CategoryScores))
		for k, v := range s.CategoryScores {
			out.CategoryScores[k] = v
		}
	}
	if s.ComplianceScore != nil {
		v := *s.ComplianceScore
		out.ComplianceScore = &v
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// SnapshotSummary 仪表盘中的最新快照摘要
type SnapshotSummary struct {
	TenantID        string    `json:"tenant_id"`
	AssessmentID    string    `json:"assessment_id"`
	Timestamp       time.Time `json:"timestamp"`
	OverallScore    int       `json:"overall_score"`
	RiskLevel       RiskLevel `json:"risk_level"`
	ComplianceScore *int      `json:"compliance_score,omitempty"`
}

// Summary 提取摘要
func (s *SecuritySnapshot) Summary() SnapshotSummary {
	c := s.Clone()
	return SnapshotSummary{
		TenantID:        c.TenantID,
		AssessmentID:    c.AssessmentID,
		Timestamp:       c.Timestamp,
		OverallScore:    c.OverallScore,
		RiskLevel:       c.RiskLevel,
		ComplianceScore: c.ComplianceScore,
	}
}

// IngestResult 摄取结果
type IngestResult struct {
	AssessmentID string          `json:"assessment_id"`
	TenantID     string          `json:"tenant_id"`
	Duplicate    bool            `json:"duplicate"`            // 重复投递，快照未再次追加
	Alerts       []SecurityAlert `json:"alerts,omitempty"`     // 本次新建的告警
	Suppressed   []string        `json:"suppressed,omitempty"` // 被抑制的指标
}
