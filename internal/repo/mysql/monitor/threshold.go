package monitor

import (
	"context"

	"gorm.io/gorm"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/repo"
)

type thresholdRepository struct {
	db *gorm.DB
}

// NewThresholdRepository 创建阈值仓库
func NewThresholdRepository(db *gorm.DB) repo.ThresholdRepository {
	return &thresholdRepository{db: db}
}

// Get 租户规则，按配置顺序
func (r *thresholdRepository) Get(ctx context.Context, tenantID string) ([]monitorModel.AlertThreshold, error) {
	var records []monitorModel.ThresholdRecord
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("position ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, monitorModel.ErrNotFound
	}

	rules := make([]monitorModel.AlertThreshold, 0, len(records))
	for i := range records {
		rules = append(rules, records[i].ToThreshold())
	}
	return rules, nil
}

// Replace 事务内删除旧规则并写入新规则
func (r *thresholdRepository) Replace(ctx context.Context, tenantID string, rules []monitorModel.AlertThreshold) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&monitorModel.ThresholdRecord{}).Error; err != nil {
			return err
		}
		if len(rules) == 0 {
			return nil
		}

		records := make([]monitorModel.ThresholdRecord, 0, len(rules))
		for i, rule := range rules {
			records = append(records, monitorModel.ThresholdRecord{
				TenantID:   tenantID,
				Position:   i,
				Metric:     string(rule.Metric),
				Severity:   string(rule.Severity),
				Comparator: string(rule.Comparator),
				Value:      rule.Value,
				Kind:       string(rule.EffectiveKind()),
			})
		}
		return tx.Create(&records).Error
	})
}

// AutoMigrate 创建/更新监控相关表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(monitorModel.AllRecords()...)
}

// NewRepositories 一组MySQL存储
func NewRepositories(db *gorm.DB, close func() error) *repo.Repositories {
	return &repo.Repositories{
		Snapshots:  NewSnapshotRepository(db),
		Alerts:     NewAlertRepository(db),
		Thresholds: NewThresholdRepository(db),
		Close:      close,
	}
}
