/**
 * 仓库层:告警数据访问
 * @description: 内存告警存储，按租户加锁，保证"无活动告警则创建"的原子性
 */
package memory

import (
	"context"
	"sync"
	"time"

	"secmonitor/internal/model/monitor"
	"secmonitor/internal/repo"
)

// AlertRepository 内存告警存储库
type AlertRepository struct {
	tenants sync.Map // tenant_id -> *tenantAlerts
	index   sync.Map // alert_id -> tenant_id
}

type tenantAlerts struct {
	mu    sync.Mutex
	items []*monitor.SecurityAlert // 按创建顺序
	byID  map[string]*monitor.SecurityAlert
}

var _ repo.AlertRepository = (*AlertRepository)(nil)

// NewAlertRepository 创建内存告警存储库
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{}
}

func (r *AlertRepository) tenant(tenantID string, create bool) *tenantAlerts {
	if v, ok := r.tenants.Load(tenantID); ok {
		return v.(*tenantAlerts)
	}
	if !create {
		return nil
	}
	v, _ := r.tenants.LoadOrStore(tenantID, &tenantAlerts{byID: make(map[string]*monitor.SecurityAlert)})
	return v.(*tenantAlerts)
}

// CreateUnlessActive 同一(租户,指标)没有未确认告警时创建
func (r *AlertRepository) CreateUnlessActive(ctx context.Context, alert *monitor.SecurityAlert) (bool, *monitor.SecurityAlert, error) {
	ta := r.tenant(alert.TenantID, true)

	ta.mu.Lock()
	defer ta.mu.Unlock()

	if existing, ok := ta.byID[alert.AlertID]; ok {
		return false, existing.Clone(), nil
	}
	for _, a := range ta.items {
		if a.Metric == alert.Metric && !a.Acknowledged {
			return false, a.Clone(), nil
		}
	}

	stored := alert.Clone()
	ta.items = append(ta.items, stored)
	ta.byID[stored.AlertID] = stored
	r.index.Store(stored.AlertID, stored.TenantID)

	return true, stored.Clone(), nil
}

// Acknowledge 确认告警
func (r *AlertRepository) Acknowledge(ctx context.Context, alertID string, at time.Time) (*monitor.SecurityAlert, error) {
	tenantID, ok := r.index.Load(alertID)
	if !ok {
		return nil, monitor.ErrNotFound
	}
	ta := r.tenant(tenantID.(string), false)
	if ta == nil {
		return nil, monitor.ErrNotFound
	}

	ta.mu.Lock()
	defer ta.mu.Unlock()

	a, ok := ta.byID[alertID]
	if !ok || a.Acknowledged {
		return nil, monitor.ErrNotFound
	}
	ackAt := at.UTC()
	a.Acknowledged = true
	a.AcknowledgedAt = &ackAt

	return a.Clone(), nil
}

// Get 按ID获取告警
func (r *AlertRepository) Get(ctx context.Context, alertID string) (*monitor.SecurityAlert, error) {
	tenantID, ok := r.index.Load(alertID)
	if !ok {
		return nil, monitor.ErrNotFound
	}
	ta := r.tenant(tenantID.(string), false)
	if ta == nil {
		return nil, monitor.ErrNotFound
	}

	ta.mu.Lock()
	defer ta.mu.Unlock()

	a, ok := ta.byID[alertID]
	if !ok {
		return nil, monitor.ErrNotFound
	}
	return a.Clone(), nil
}

// List 列出租户告警
func (r *AlertRepository) List(ctx context.Context, tenantID string, filter monitor.AlertFilter) ([]*monitor.SecurityAlert, error) {
	ta := r.tenant(tenantID, false)
	if ta == nil {
		return []*monitor.SecurityAlert{}, nil
	}

	ta.mu.Lock()
	defer ta.mu.Unlock()

	out := make([]*monitor.SecurityAlert, 0, len(ta.items))
	for _, a := range ta.items {
		if filter.Match(a) {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}
