/**
 * 服务层:告警生命周期
 * @description: 每个(租户,指标)的状态机 无活动告警 -> 活动 -> 已确认
 * @func:
 * - Raise 对候选告警执行"创建或抑制"，只有新建的告警交给通知分发，且只交一次
 * - Acknowledge 活动 -> 已确认，不存在或已确认返回 NotFound
 * - Active / History 活动告警与全部告警
 */
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/metrics"
	"secmonitor/internal/repo"
)

// Notifier 告警通知分发，失败只记录，不返回错误
type Notifier interface {
	Dispatch(ctx context.Context, alert *monitorModel.SecurityAlert)
}

// RaiseResult 一次评估的告警处理结果
type RaiseResult struct {
	Created    []*monitorModel.SecurityAlert
	Suppressed []monitorModel.MonitoringMetric
}

// AlertService 告警生命周期服务接口
type AlertService interface {
	Raise(ctx context.Context, snapshot *monitorModel.SecuritySnapshot, triggers []monitorModel.Trigger) (*RaiseResult, error)
	Acknowledge(ctx context.Context, alertID string) (*monitorModel.SecurityAlert, error)
	Active(ctx context.Context, tenantID string, severity monitorModel.Severity) ([]*monitorModel.SecurityAlert, error)
	History(ctx context.Context, tenantID string) ([]*monitorModel.SecurityAlert, error)
}

type alertService struct {
	alerts   repo.AlertRepository
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewAlertService 创建告警服务
// notifier 可为 nil(不分发)；now 为 nil 时使用 time.Now
func NewAlertService(alerts repo.AlertRepository, notifier Notifier, m *metrics.Metrics, now func() time.Time) AlertService {
	if now == nil {
		now = time.Now
	}
	return &alertService{alerts: alerts, notifier: notifier, metrics: m, now: now}
}

// newAlert 由候选告警构造告警实例
func (s *alertService) newAlert(snapshot *monitorModel.SecuritySnapshot, t monitorModel.Trigger) *monitorModel.SecurityAlert {
	return &monitorModel.SecurityAlert{
		AlertID:         monitorModel.AlertID(snapshot.TenantID, t.Metric, snapshot.AssessmentID),
		TenantID:        snapshot.TenantID,
		AssessmentID:    snapshot.AssessmentID,
		Metric:          t.Metric,
		Severity:        t.Severity,
		Message:         alertMessage(t),
		CurrentValue:    t.CurrentValue,
		ThresholdValue:  t.ThresholdValue,
		Recommendations: recommendationsFor(t),
		CreatedAt:       s.now().UTC(),
	}
}

// Raise 创建或抑制告警
// 单个指标写入失败不影响其余指标，错误汇总返回；所有状态提交后再分发
func (s *alertService) Raise(ctx context.Context, snapshot *monitorModel.SecuritySnapshot, triggers []monitorModel.Trigger) (*RaiseResult, error) {
	result := &RaiseResult{}
	var raiseErr *multierror.Error

	for _, t := range triggers {
		alert := s.newAlert(snapshot, t)

		created, existing, err := s.alerts.CreateUnlessActive(ctx, alert)
		if err != nil {
			raiseErr = multierror.Append(raiseErr, fmt.Errorf("create alert for %s/%s: %w", snapshot.TenantID, t.Metric, err))
			continue
		}

		if created {
			result.Created = append(result.Created, alert)
			s.metrics.ObserveAlertTriggered(string(alert.Severity))
			logger.LogAlertEvent("triggered", alert.TenantID, alert.AlertID, string(alert.Severity), map[string]interface{}{
				"operation":     "raise_alert",
				"option":        "alertRepo.CreateUnlessActive",
				"func_name":     "service.monitor.alert.Raise",
				"metric":        string(alert.Metric),
				"assessment_id": alert.AssessmentID,
				"current_value": alert.CurrentValue,
				"threshold":     alert.ThresholdValue,
			})
			continue
		}

		// 同一 alert_id 说明是流水线重试，告警已存在且已分发过
		if existing != nil && existing.AlertID == alert.AlertID {
			continue
		}

		result.Suppressed = append(result.Suppressed, t.Metric)
		s.metrics.ObserveAlertSuppressed()
		existingID := ""
		if existing != nil {
			existingID = existing.AlertID
		}
		logger.LogAlertEvent("suppressed", alert.TenantID, existingID, string(t.Severity), map[string]interface{}{
			"operation":     "raise_alert",
			"option":        "suppress.active_alert_exists",
			"func_name":     "service.monitor.alert.Raise",
			"metric":        string(t.Metric),
			"assessment_id": snapshot.AssessmentID,
		})
	}

	if s.notifier != nil && len(result.Created) > 0 {
		// 调用方取消不影响通知；notifier 为异步队列时这里只入队
		dispatchCtx := context.WithoutCancel(ctx)
		for _, alert := range result.Created {
			s.notifier.Dispatch(dispatchCtx, alert.Clone())
		}
	}

	return result, raiseErr.ErrorOrNil()
}

// Acknowledge 确认告警
func (s *alertService) Acknowledge(ctx context.Context, alertID string) (*monitorModel.SecurityAlert, error) {
	if alertID == "" {
		return nil, monitorModel.NewValidationError("alert_id", "is required")
	}

	alert, err := s.alerts.Acknowledge(ctx, alertID, s.now())
	if err != nil {
		return nil, fmt.Errorf("acknowledge alert %s: %w", alertID, err)
	}

	s.metrics.ObserveAlertAcknowledged()
	logger.LogAlertEvent("acknowledged", alert.TenantID, alert.AlertID, string(alert.Severity), map[string]interface{}{
		"operation": "acknowledge_alert",
		"option":    "alertRepo.Acknowledge",
		"func_name": "service.monitor.alert.Acknowledge",
		"metric":    string(alert.Metric),
	})
	return alert, nil
}

// Active 活动告警，severity 为空不过滤
func (s *alertService) Active(ctx context.Context, tenantID string, severity monitorModel.Severity) ([]*monitorModel.SecurityAlert, error) {
	if severity != "" && !severity.Valid() {
		return nil, monitorModel.NewValidationError("severity", "invalid severity %q", severity)
	}
	alerts, err := s.alerts.List(ctx, tenantID, monitorModel.AlertFilter{Severity: severity, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list active alerts for %s: %w", tenantID, err)
	}
	return alerts, nil
}

// History 全部告警(含已确认)，按创建时间升序
func (s *alertService) History(ctx context.Context, tenantID string) ([]*monitorModel.SecurityAlert, error) {
	alerts, err := s.alerts.List(ctx, tenantID, monitorModel.AlertFilter{})
	if err != nil {
		return nil, fmt.Errorf("list alerts for %s: %w", tenantID, err)
	}
	return alerts, nil
}
