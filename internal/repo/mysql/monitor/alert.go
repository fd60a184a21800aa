/**
 * @title: AlertRepository
 * @description: 告警的MySQL实现
 * @func:
 * - CreateUnlessActive 事务内对 (tenant_id, metric, acknowledged=false) 加锁读，再插入
 * - Acknowledge 条件更新 acknowledged=false -> true，影响行数为0即 NotFound
 */
package monitor

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/repo"
)

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository 创建告警仓库
func NewAlertRepository(db *gorm.DB) repo.AlertRepository {
	return &alertRepository{db: db}
}

// CreateUnlessActive 同一(租户,指标)没有未确认告警时创建
func (r *alertRepository) CreateUnlessActive(ctx context.Context, alert *monitorModel.SecurityAlert) (bool, *monitorModel.SecurityAlert, error) {
	var (
		created  bool
		existing *monitorModel.SecurityAlert
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record monitorModel.AlertRecord

		// 同ID重试
		err := tx.Where("alert_id = ?", alert.AlertID).First(&record).Error
		if err == nil {
			existing = record.ToAlert()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 锁住该租户该指标的未确认告警索引区间
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND metric = ? AND acknowledged = ?", alert.TenantID, string(alert.Metric), false).
			Order("raised_at ASC, id ASC").
			First(&record).Error
		if err == nil {
			existing = record.ToAlert()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(monitorModel.NewAlertRecord(alert)).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		logger.LogError(err, "", "", "repo.mysql.monitor.CreateUnlessActive", "gorm", map[string]interface{}{
			"operation": "create_alert",
			"option":    "db.Transaction(monitor_alerts)",
			"func_name": "repo.mysql.monitor.alertRepository.CreateUnlessActive",
			"tenant_id": alert.TenantID,
			"metric":    string(alert.Metric),
			"alert_id":  alert.AlertID,
		})
		return false, nil, err
	}
	if created {
		return true, alert.Clone(), nil
	}
	return false, existing, nil
}

// Acknowledge 确认告警
func (r *alertRepository) Acknowledge(ctx context.Context, alertID string, at time.Time) (*monitorModel.SecurityAlert, error) {
	ackAt := at.UTC()
	result := r.db.WithContext(ctx).
		Model(&monitorModel.AlertRecord{}).
		Where("alert_id = ? AND acknowledged = ?", alertID, false).
		Updates(map[string]interface{}{
			"acknowledged":    true,
			"acknowledged_at": ackAt,
		})
	if result.Error != nil {
		logger.LogError(result.Error, "", "", "repo.mysql.monitor.Acknowledge", "gorm", map[string]interface{}{
			"operation": "acknowledge_alert",
			"option":    "db.Updates(monitor_alerts)",
			"func_name": "repo.mysql.monitor.alertRepository.Acknowledge",
			"alert_id":  alertID,
		})
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, monitorModel.ErrNotFound
	}
	return r.Get(ctx, alertID)
}

// Get 按ID获取告警
func (r *alertRepository) Get(ctx context.Context, alertID string) (*monitorModel.SecurityAlert, error) {
	var record monitorModel.AlertRecord
	if err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, monitorModel.ErrNotFound
		}
		return nil, err
	}
	return record.ToAlert(), nil
}

// List 列出租户告警
func (r *alertRepository) List(ctx context.Context, tenantID string, filter monitorModel.AlertFilter) ([]*monitorModel.SecurityAlert, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.ActiveOnly {
		query = query.Where("acknowledged = ?", false)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", string(filter.Severity))
	}

	var records []monitorModel.AlertRecord
	if err := query.Order("raised_at ASC, id ASC").Find(&records).Error; err != nil {
		logger.LogError(err, "", "", "repo.mysql.monitor.List", "gorm", map[string]interface{}{
			"operation": "list_alerts",
			"option":    "db.Find(monitor_alerts)",
			"func_name": "repo.mysql.monitor.alertRepository.List",
			"tenant_id": tenantID,
		})
		return nil, err
	}

	out := make([]*monitorModel.SecurityAlert, 0, len(records))
	for i := range records {
		out = append(out, records[i].ToAlert())
	}
	return out, nil
}
