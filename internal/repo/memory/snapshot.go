/**
 * 仓库层:快照数据访问
 * @description: 内存快照存储(单实例部署/测试)，按租户分片加锁，跨租户不竞争
 * @func: 单纯数据访问，不包含业务逻辑
 * @note: 与 repo/mysql/monitor/snapshot.go 保持一致(storage.driver 二选一)
 */
package memory

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"secmonitor/internal/model/monitor"
	"secmonitor/internal/repo"
)

// SnapshotRepository 内存快照存储库
type SnapshotRepository struct {
	tenants     sync.Map // tenant_id -> *tenantSnapshots
	assessments sync.Map // assessment_id -> *monitor.SecuritySnapshot，全局唯一索引
}

// tenantSnapshots 单个租户的快照，按时间戳升序，相同时间戳保持插入顺序
type tenantSnapshots struct {
	mu    sync.RWMutex
	items []*monitor.SecuritySnapshot
}

var _ repo.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository 创建内存快照存储库
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

func (r *SnapshotRepository) tenant(tenantID string, create bool) *tenantSnapshots {
	if v, ok := r.tenants.Load(tenantID); ok {
		return v.(*tenantSnapshots)
	}
	if !create {
		return nil
	}
	v, _ := r.tenants.LoadOrStore(tenantID, &tenantSnapshots{})
	return v.(*tenantSnapshots)
}

// Append 追加快照
func (r *SnapshotRepository) Append(ctx context.Context, snapshot *monitor.SecuritySnapshot) error {
	// 入库后的快照不再修改，索引与租户列表共用同一份
	stored := snapshot.Clone()
	if _, loaded := r.assessments.LoadOrStore(stored.AssessmentID, stored); loaded {
		return monitor.ErrDuplicateAssessment
	}

	ts := r.tenant(stored.TenantID, true)

	ts.mu.Lock()
	defer ts.mu.Unlock()

	// 第一个时间戳大于新快照的位置
	idx := sort.Search(len(ts.items), func(i int) bool {
		return ts.items[i].Timestamp.After(stored.Timestamp)
	})
	ts.items = append(ts.items, nil)
	copy(ts.items[idx+1:], ts.items[idx:])
	ts.items[idx] = stored

	return nil
}

// Latest 最新快照
func (r *SnapshotRepository) Latest(ctx context.Context, tenantID string) (*monitor.SecuritySnapshot, error) {
	ts := r.tenant(tenantID, false)
	if ts == nil {
		return nil, monitor.ErrNotFound
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if len(ts.items) == 0 {
		return nil, monitor.ErrNotFound
	}
	return ts.items[len(ts.items)-1].Clone(), nil
}

// Previous 早于 before 的最近快照
func (r *SnapshotRepository) Previous(ctx context.Context, tenantID string, before time.Time) (*monitor.SecuritySnapshot, error) {
	ts := r.tenant(tenantID, false)
	if ts == nil {
		return nil, monitor.ErrNotFound
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()

	idx := sort.Search(len(ts.items), func(i int) bool {
		return !ts.items[i].Timestamp.Before(before)
	})
	if idx == 0 {
		return nil, monitor.ErrNotFound
	}
	return ts.items[idx-1].Clone(), nil
}

// History 不早于 since 的快照，升序
// 每次遍历时在读锁下截取当时的视图，读者看不到写了一半的状态
func (r *SnapshotRepository) History(ctx context.Context, tenantID string, since time.Time) iter.Seq2[*monitor.SecuritySnapshot, error] {
	return func(yield func(*monitor.SecuritySnapshot, error) bool) {
		ts := r.tenant(tenantID, false)
		if ts == nil {
			return
		}

		ts.mu.RLock()
		start := sort.Search(len(ts.items), func(i int) bool {
			return !ts.items[i].Timestamp.Before(since)
		})
		view := make([]*monitor.SecuritySnapshot, len(ts.items)-start)
		copy(view, ts.items[start:])
		ts.mu.RUnlock()

		for _, s := range view {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(s.Clone(), nil) {
				return
			}
		}
	}
}

// Exists assessment_id 是否存在
func (r *SnapshotRepository) Exists(ctx context.Context, assessmentID string) (bool, error) {
	_, ok := r.assessments.Load(assessmentID)
	return ok, nil
}

// Get 按 assessment_id 取快照
func (r *SnapshotRepository) Get(ctx context.Context, assessmentID string) (*monitor.SecuritySnapshot, error) {
	v, ok := r.assessments.Load(assessmentID)
	if !ok {
		return nil, monitor.ErrNotFound
	}
	return v.(*monitor.SecuritySnapshot).Clone(), nil
}
