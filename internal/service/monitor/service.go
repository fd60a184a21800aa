/**
 * 服务层:监控摄取编排
 * @description: 一次评估完成事件的处理流程
 *   结构校验 -> 取前一快照与租户规则 -> 阈值评估 -> 追加快照 -> 告警创建/抑制 -> 通知分发
 * @func:
 * - Ingest 重复 assessment_id 不再追加快照，返回 Duplicate=true，并按已存储快照补齐缺失的告警
 * - LatestSnapshot / SnapshotHistory 快照查询
 * 同一租户的 Ingest 调用由流水线串行化(service/ingest)
 */
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/metrics"
	"secmonitor/internal/repo"
)

// MonitorService 监控服务接口
type MonitorService interface {
	Ingest(ctx context.Context, snapshot *monitorModel.SecuritySnapshot) (*monitorModel.IngestResult, error)
	LatestSnapshot(ctx context.Context, tenantID string) (*monitorModel.SecuritySnapshot, error)
	SnapshotHistory(ctx context.Context, tenantID string, days int) ([]*monitorModel.SecuritySnapshot, error)
}

type monitorService struct {
	snapshots     repo.SnapshotRepository
	thresholds    ThresholdService
	alerts        AlertService
	metrics       *metrics.Metrics
	retentionDays int
	now           func() time.Time
}

// NewMonitorService 创建监控服务
func NewMonitorService(
	snapshots repo.SnapshotRepository,
	thresholds ThresholdService,
	alerts AlertService,
	m *metrics.Metrics,
	retentionDays int,
	now func() time.Time,
) MonitorService {
	if now == nil {
		now = time.Now
	}
	return &monitorService{
		snapshots:     snapshots,
		thresholds:    thresholds,
		alerts:        alerts,
		metrics:       m,
		retentionDays: retentionDays,
		now:           now,
	}
}

// Ingest 处理一个评估完成快照
func (s *monitorService) Ingest(ctx context.Context, snapshot *monitorModel.SecuritySnapshot) (*monitorModel.IngestResult, error) {
	if err := monitorModel.ValidateSnapshot(snapshot); err != nil {
		s.metrics.ObserveSnapshot("rejected")
		return nil, err
	}

	// 校验通过后整个流程不再响应取消
	ctx = context.WithoutCancel(ctx)
	snapshot = snapshot.Clone()
	snapshot.Timestamp = snapshot.Timestamp.UTC()

	result := &monitorModel.IngestResult{
		AssessmentID: snapshot.AssessmentID,
		TenantID:     snapshot.TenantID,
	}

	exists, err := s.snapshots.Exists(ctx, snapshot.AssessmentID)
	if err != nil {
		s.metrics.ObserveSnapshot("failed")
		return nil, fmt.Errorf("check assessment %s: %w", snapshot.AssessmentID, err)
	}
	if exists {
		return s.reevaluate(ctx, result)
	}

	triggers, err := s.evaluate(ctx, snapshot)
	if err != nil {
		s.metrics.ObserveSnapshot("failed")
		return nil, err
	}

	if err := s.snapshots.Append(ctx, snapshot); err != nil {
		if errors.Is(err, monitorModel.ErrDuplicateAssessment) {
			return s.reevaluate(ctx, result)
		}
		s.metrics.ObserveSnapshot("failed")
		return nil, fmt.Errorf("append snapshot %s: %w", snapshot.AssessmentID, err)
	}
	s.metrics.ObserveSnapshot("accepted")

	if err := s.raise(ctx, snapshot, triggers, result); err != nil {
		return result, err
	}

	logger.LogBusinessOperation("ingest_snapshot", snapshot.TenantID, "", "", "success", "snapshot ingested", map[string]interface{}{
		"operation":     "ingest_snapshot",
		"option":        "monitorService.Ingest",
		"func_name":     "service.monitor.Ingest",
		"assessment_id": snapshot.AssessmentID,
		"overall_score": snapshot.OverallScore,
		"triggers":      len(triggers),
		"alerts":        len(result.Alerts),
		"suppressed":    len(result.Suppressed),
	})
	return result, nil
}

// evaluate 取前一快照与租户规则后执行阈值评估
func (s *monitorService) evaluate(ctx context.Context, snapshot *monitorModel.SecuritySnapshot) ([]monitorModel.Trigger, error) {
	previous, err := s.snapshots.Previous(ctx, snapshot.TenantID, snapshot.Timestamp)
	if err != nil && !errors.Is(err, monitorModel.ErrNotFound) {
		return nil, fmt.Errorf("load previous snapshot for %s: %w", snapshot.TenantID, err)
	}

	rules, err := s.thresholds.Resolve(ctx, snapshot.TenantID)
	if err != nil {
		return nil, err
	}
	return Evaluate(snapshot, previous, rules), nil
}

// raise 创建或抑制告警，结果写入 result
func (s *monitorService) raise(ctx context.Context, snapshot *monitorModel.SecuritySnapshot, triggers []monitorModel.Trigger, result *monitorModel.IngestResult) error {
	raised, err := s.alerts.Raise(ctx, snapshot, triggers)
	if raised != nil {
		for _, a := range raised.Created {
			result.Alerts = append(result.Alerts, *a)
		}
		for _, m := range raised.Suppressed {
			result.Suppressed = append(result.Suppressed, string(m))
		}
	}
	if err != nil {
		logger.LogBusinessError(err, "", "", "", "INGEST", map[string]interface{}{
			"operation":     "ingest_snapshot",
			"option":        "alertService.Raise",
			"func_name":     "service.monitor.Ingest",
			"tenant_id":     snapshot.TenantID,
			"assessment_id": snapshot.AssessmentID,
			"created":       len(result.Alerts),
		})
	}
	return err
}

// reevaluate 重复的 assessment_id 按已存储的快照重新评估
// 快照已入库但告警写入失败时，重试由这里补齐告警；
// 告警ID由(租户,指标,assessment_id)确定，已存在的告警不会重复创建或分发
func (s *monitorService) reevaluate(ctx context.Context, result *monitorModel.IngestResult) (*monitorModel.IngestResult, error) {
	s.duplicate(result)

	stored, err := s.snapshots.Get(ctx, result.AssessmentID)
	if err != nil {
		return result, fmt.Errorf("load stored snapshot %s: %w", result.AssessmentID, err)
	}
	triggers, err := s.evaluate(ctx, stored)
	if err != nil {
		return result, err
	}
	if err := s.raise(ctx, stored, triggers, result); err != nil {
		return result, err
	}

	if len(result.Alerts) > 0 {
		logger.LogBusinessOperation("ingest_snapshot", stored.TenantID, "", "", "recovered", "alerts created on retried assessment", map[string]interface{}{
			"operation":     "ingest_snapshot",
			"option":        "monitorService.reevaluate",
			"func_name":     "service.monitor.Ingest",
			"assessment_id": stored.AssessmentID,
			"alerts":        len(result.Alerts),
		})
	}
	return result, nil
}

func (s *monitorService) duplicate(result *monitorModel.IngestResult) {
	s.metrics.ObserveSnapshot("duplicate")
	logger.LogBusinessOperation("ingest_snapshot", result.TenantID, "", "", "duplicate", "assessment already ingested", map[string]interface{}{
		"operation":     "ingest_snapshot",
		"option":        "snapshotRepo.Exists",
		"func_name":     "service.monitor.Ingest",
		"assessment_id": result.AssessmentID,
	})
	result.Duplicate = true
}

// LatestSnapshot 租户最新快照
func (s *monitorService) LatestSnapshot(ctx context.Context, tenantID string) (*monitorModel.SecuritySnapshot, error) {
	if tenantID == "" {
		return nil, monitorModel.NewValidationError("tenant_id", "is required")
	}
	snapshot, err := s.snapshots.Latest(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot for %s: %w", tenantID, err)
	}
	return snapshot, nil
}

// SnapshotHistory 最近 days 天的快照，按时间升序，受保留期限制
func (s *monitorService) SnapshotHistory(ctx context.Context, tenantID string, days int) ([]*monitorModel.SecuritySnapshot, error) {
	if tenantID == "" {
		return nil, monitorModel.NewValidationError("tenant_id", "is required")
	}
	if days < MinTrendDays || days > MaxTrendDays {
		return nil, monitorModel.NewValidationError("days", "must be between %d and %d, got %d", MinTrendDays, MaxTrendDays, days)
	}

	now := s.now()
	since := now.AddDate(0, 0, -days)
	if s.retentionDays > 0 {
		since = laterOf(since, now.AddDate(0, 0, -s.retentionDays))
	}

	out := make([]*monitorModel.SecuritySnapshot, 0)
	for snapshot, err := range s.snapshots.History(ctx, tenantID, since) {
		if err != nil {
			return nil, fmt.Errorf("read history for %s: %w", tenantID, err)
		}
		out = append(out, snapshot)
	}
	return out, nil
}
