package memory

import (
	"context"
	"sync"

	"secmonitor/internal/model/monitor"
	"secmonitor/internal/repo"
)

// ThresholdRepository 内存阈值配置
type ThresholdRepository struct {
	mu    sync.RWMutex
	rules map[string][]monitor.AlertThreshold
}

var _ repo.ThresholdRepository = (*ThresholdRepository)(nil)

// NewThresholdRepository 创建内存阈值配置存储库
func NewThresholdRepository() *ThresholdRepository {
	return &ThresholdRepository{rules: make(map[string][]monitor.AlertThreshold)}
}

// Get 获取租户规则
func (r *ThresholdRepository) Get(ctx context.Context, tenantID string) ([]monitor.AlertThreshold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules, ok := r.rules[tenantID]
	if !ok {
		return nil, monitor.ErrNotFound
	}
	return append([]monitor.AlertThreshold(nil), rules...), nil
}

// Replace 替换租户规则
func (r *ThresholdRepository) Replace(ctx context.Context, tenantID string, rules []monitor.AlertThreshold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(rules) == 0 {
		delete(r.rules, tenantID)
		return nil
	}
	r.rules[tenantID] = append([]monitor.AlertThreshold(nil), rules...)
	return nil
}

// NewRepositories 一组内存存储
func NewRepositories() *repo.Repositories {
	return &repo.Repositories{
		Snapshots:  NewSnapshotRepository(),
		Alerts:     NewAlertRepository(),
		Thresholds: NewThresholdRepository(),
		Close:      func() error { return nil },
	}
}
