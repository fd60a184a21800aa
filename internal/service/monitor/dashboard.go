/**
 * 服务层:仪表盘聚合
 * @description: 纯读组合，不修改任何状态
 */
package monitor

import (
	"context"
	"fmt"
	"time"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/repo"
)

// DashboardService 仪表盘服务接口
type DashboardService interface {
	Dashboard(ctx context.Context, tenantID string) (*monitorModel.Dashboard, error)
}

type dashboardService struct {
	snapshots repo.SnapshotRepository
	alerts    AlertService
	trends    TrendAnalyzer
	days      int
	now       func() time.Time
}

// NewDashboardService 创建仪表盘服务，days 为趋势窗口(默认30)
func NewDashboardService(snapshots repo.SnapshotRepository, alerts AlertService, trends TrendAnalyzer, days int, now func() time.Time) DashboardService {
	if days < MinTrendDays || days > MaxTrendDays {
		days = 30
	}
	if now == nil {
		now = time.Now
	}
	return &dashboardService{snapshots: snapshots, alerts: alerts, trends: trends, days: days, now: now}
}

// dashboardMetrics 仪表盘展示的趋势指标
var dashboardMetrics = []monitorModel.MonitoringMetric{
	monitorModel.MetricOverallScore,
	monitorModel.MetricCriticalFindings,
}

// Dashboard 租户仪表盘，无快照返回 NotFound
func (s *dashboardService) Dashboard(ctx context.Context, tenantID string) (*monitorModel.Dashboard, error) {
	if tenantID == "" {
		return nil, monitorModel.NewValidationError("tenant_id", "is required")
	}

	latest, err := s.snapshots.Latest(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot for %s: %w", tenantID, err)
	}

	trends := make([]monitorModel.TrendSeries, 0, len(dashboardMetrics))
	for _, metric := range dashboardMetrics {
		series, err := s.trends.Series(ctx, tenantID, metric, s.days)
		if err != nil {
			return nil, err
		}
		trends = append(trends, *series)
	}

	direction, err := s.trends.Direction(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	active, err := s.alerts.Active(ctx, tenantID, "")
	if err != nil {
		return nil, err
	}

	summary := monitorModel.AlertSummary{
		Total:      len(active),
		BySeverity: make(map[monitorModel.Severity]int, len(monitorModel.Severities())),
	}
	for _, sev := range monitorModel.Severities() {
		summary.BySeverity[sev] = 0
	}
	activeAlerts := make([]monitorModel.SecurityAlert, 0, len(active))
	for _, a := range active {
		summary.BySeverity[a.Severity]++
		activeAlerts = append(activeAlerts, *a)
	}

	categories := make(map[string]int, len(latest.CategoryScores))
	for k, v := range latest.CategoryScores {
		categories[k] = v
	}

	return &monitorModel.Dashboard{
		TenantID:             tenantID,
		Latest:               latest.Summary(),
		CategoryScores:       categories,
		VulnerabilitySummary: monitorModel.NewVulnerabilitySummary(latest.VulnerabilityCounts),
		Trends:               trends,
		TrendDirection:       direction,
		ActiveAlerts:         activeAlerts,
		AlertSummary:         summary,
		GeneratedAt:          s.now().UTC(),
	}, nil
}
