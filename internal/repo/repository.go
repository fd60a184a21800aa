/**
 * 仓库层:监控告警数据访问接口
 * @description: 内存实现(repo/memory)与MySQL实现(repo/mysql/monitor)共用的接口，二选一由 storage.driver 决定
 * @func: 单纯数据访问，不包含业务逻辑；同一租户内的读改写保证原子
 */
package repo

import (
	"context"
	"iter"
	"time"

	"secmonitor/internal/model/monitor"
)

// SnapshotRepository 快照存储(只追加)
type SnapshotRepository interface {
	// Append assessment_id 已存在时返回 monitor.ErrDuplicateAssessment，不做任何修改
	Append(ctx context.Context, snapshot *monitor.SecuritySnapshot) error
	// Latest 租户最新快照，没有时返回 monitor.ErrNotFound
	Latest(ctx context.Context, tenantID string) (*monitor.SecuritySnapshot, error)
	// Previous 时间戳严格早于 before 的最近一个快照，没有时返回 monitor.ErrNotFound
	Previous(ctx context.Context, tenantID string, before time.Time) (*monitor.SecuritySnapshot, error)
	// History 按时间升序返回不早于 since 的快照
	// 序列是惰性的，每次遍历都重新读取存储
	History(ctx context.Context, tenantID string, since time.Time) iter.Seq2[*monitor.SecuritySnapshot, error]
	// Exists assessment_id 是否已存在
	Exists(ctx context.Context, assessmentID string) (bool, error)
	// Get 按 assessment_id 取快照，没有时返回 monitor.ErrNotFound
	Get(ctx context.Context, assessmentID string) (*monitor.SecuritySnapshot, error)
}

// AlertRepository 告警存储
type AlertRepository interface {
	// CreateUnlessActive 原子地执行"同一(租户,指标)没有未确认告警则创建"
	// 返回 created=false 时 existing 为阻止创建的告警(同一指标的活动告警，或同 alert_id 的已有告警)
	CreateUnlessActive(ctx context.Context, alert *monitor.SecurityAlert) (created bool, existing *monitor.SecurityAlert, err error)
	// Acknowledge 告警不存在或已确认时返回 monitor.ErrNotFound
	Acknowledge(ctx context.Context, alertID string, at time.Time) (*monitor.SecurityAlert, error)
	// Get 按ID获取告警
	Get(ctx context.Context, alertID string) (*monitor.SecurityAlert, error)
	// List 按 created_at 升序列出租户告警
	List(ctx context.Context, tenantID string, filter monitor.AlertFilter) ([]*monitor.SecurityAlert, error)
}

// ThresholdRepository 租户阈值配置
type ThresholdRepository interface {
	// Get 租户未配置时返回 monitor.ErrNotFound
	Get(ctx context.Context, tenantID string) ([]monitor.AlertThreshold, error)
	// Replace 整体替换租户规则，空列表表示清除(回落到默认规则)
	Replace(ctx context.Context, tenantID string, rules []monitor.AlertThreshold) error
}

// Repositories 一组存储实现
type Repositories struct {
	Snapshots  SnapshotRepository
	Alerts     AlertRepository
	Thresholds ThresholdRepository
	// Close 释放底层连接，内存实现为空操作
	Close func() error
}
