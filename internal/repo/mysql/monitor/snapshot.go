/**
 * @title: SnapshotRepository
 * @description: 安全评估快照的MySQL实现
 * @func:
 * - Append 追加快照，assessment_id 唯一键冲突映射为 ErrDuplicateAssessment
 * - Latest / Previous 按 (tenant_id, timestamp) 索引取单条
 * - Get 按 assessment_id 唯一键取单条(重试时重新评估)
 * - History 游标逐行读取，遍历时才访问数据库
 */
package monitor

import (
	"context"
	"errors"
	"iter"
	"time"

	"gorm.io/gorm"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/repo"
)

// snapshotRepository 快照仓库实现
type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository 创建快照仓库
func NewSnapshotRepository(db *gorm.DB) repo.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Append 追加快照
func (r *snapshotRepository) Append(ctx context.Context, snapshot *monitorModel.SecuritySnapshot) error {
	record := monitorModel.NewSnapshotRecord(snapshot)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return monitorModel.ErrDuplicateAssessment
		}
		logger.LogError(err, "", "", "repo.mysql.monitor.Append", "gorm", map[string]interface{}{
			"operation":     "append_snapshot",
			"option":        "db.Create(monitor_snapshots)",
			"func_name":     "repo.mysql.monitor.snapshotRepository.Append",
			"tenant_id":     snapshot.TenantID,
			"assessment_id": snapshot.AssessmentID,
		})
		return err
	}
	return nil
}

// Latest 最新快照
func (r *snapshotRepository) Latest(ctx context.Context, tenantID string) (*monitorModel.SecuritySnapshot, error) {
	var record monitorModel.SnapshotRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("timestamp DESC, id DESC").
		First(&record).Error
	if err != nil {
		return nil, r.mapFindError(err, "Latest", tenantID)
	}
	return record.ToSnapshot(), nil
}

// Previous 早于 before 的最近快照
func (r *snapshotRepository) Previous(ctx context.Context, tenantID string, before time.Time) (*monitorModel.SecuritySnapshot, error) {
	var record monitorModel.SnapshotRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND timestamp < ?", tenantID, before.UTC()).
		Order("timestamp DESC, id DESC").
		First(&record).Error
	if err != nil {
		return nil, r.mapFindError(err, "Previous", tenantID)
	}
	return record.ToSnapshot(), nil
}

// History 升序游标
func (r *snapshotRepository) History(ctx context.Context, tenantID string, since time.Time) iter.Seq2[*monitorModel.SecuritySnapshot, error] {
	return func(yield func(*monitorModel.SecuritySnapshot, error) bool) {
		rows, err := r.db.WithContext(ctx).
			Model(&monitorModel.SnapshotRecord{}).
			Where("tenant_id = ? AND timestamp >= ?", tenantID, since.UTC()).
			Order("timestamp ASC, id ASC").
			Rows()
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var record monitorModel.SnapshotRecord
			if err := r.db.ScanRows(rows, &record); err != nil {
				yield(nil, err)
				return
			}
			if !yield(record.ToSnapshot(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Exists assessment_id 是否存在
func (r *snapshotRepository) Exists(ctx context.Context, assessmentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&monitorModel.SnapshotRecord{}).
		Where("assessment_id = ?", assessmentID).
		Count(&count).Error
	return count > 0, err
}

// Get 按 assessment_id 取快照
func (r *snapshotRepository) Get(ctx context.Context, assessmentID string) (*monitorModel.SecuritySnapshot, error) {
	var record monitorModel.SnapshotRecord
	err := r.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		First(&record).Error
	if err != nil {
		return nil, r.mapFindError(err, "Get", "")
	}
	return record.ToSnapshot(), nil
}

func (r *snapshotRepository) mapFindError(err error, op, tenantID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return monitorModel.ErrNotFound
	}
	logger.LogError(err, "", "", "repo.mysql.monitor."+op, "gorm", map[string]interface{}{
		"operation": "query_snapshot",
		"option":    "db.First(monitor_snapshots)",
		"func_name": "repo.mysql.monitor.snapshotRepository." + op,
		"tenant_id": tenantID,
	})
	return err
}
