/**
 * 仓库层:最新快照缓存
 * @description: 在任意 SnapshotRepository 外包一层 Redis 缓存，仪表盘读路径优先命中缓存
 * @func: Append 成功后把当前最新快照写入缓存；Latest 未命中时回源，仅在键不存在时写回
 *   回源写回用 SETNX，读到旧值的读者不会覆盖写者刚写入的新值
 * @note: Redis 不可用时降级为直接读底层存储，不影响读写正确性
 */
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/go-redis/redis/v8"

	"secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/repo"
)

const latestKeyPrefix = "secmonitor:snapshot:latest:"

// CachedSnapshotRepository 带最新快照缓存的快照存储
type CachedSnapshotRepository struct {
	inner  repo.SnapshotRepository
	client redis.Cmdable
	ttl    time.Duration
}

var _ repo.SnapshotRepository = (*CachedSnapshotRepository)(nil)

// NewCachedSnapshotRepository 创建缓存包装
func NewCachedSnapshotRepository(inner repo.SnapshotRepository, client redis.Cmdable, ttl time.Duration) *CachedSnapshotRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedSnapshotRepository{inner: inner, client: client, ttl: ttl}
}

func latestKey(tenantID string) string {
	return latestKeyPrefix + tenantID
}

// Append 写入底层存储后刷新缓存
// 乱序到达的旧快照不会成为最新，刷新写入的仍是底层存储里的最新快照
func (r *CachedSnapshotRepository) Append(ctx context.Context, snapshot *monitor.SecuritySnapshot) error {
	if err := r.inner.Append(ctx, snapshot); err != nil {
		return err
	}

	key := latestKey(snapshot.TenantID)
	latest, err := r.inner.Latest(ctx, snapshot.TenantID)
	if err == nil {
		var data []byte
		if data, err = json.Marshal(latest); err == nil {
			if err = r.client.Set(ctx, key, data, r.ttl).Err(); err == nil {
				return nil
			}
			r.warn(err, "redis.Set", snapshot.TenantID)
		}
	}

	// 写穿失败时至少删除旧值
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.warn(err, "redis.Del", snapshot.TenantID)
	}
	return nil
}

// Latest 优先读缓存
func (r *CachedSnapshotRepository) Latest(ctx context.Context, tenantID string) (*monitor.SecuritySnapshot, error) {
	raw, err := r.client.Get(ctx, latestKey(tenantID)).Bytes()
	switch {
	case err == nil:
		var s monitor.SecuritySnapshot
		if jsonErr := json.Unmarshal(raw, &s); jsonErr == nil {
			return &s, nil
		}
	case err != redis.Nil:
		r.warn(err, "redis.Get", tenantID)
	}

	s, err := r.inner.Latest(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	// 回源期间写者可能已写入更新的快照，只在键不存在时写回
	if err := r.client.SetNX(ctx, latestKey(tenantID), data, r.ttl).Err(); err != nil {
		r.warn(err, "redis.SetNX", tenantID)
	}
	return s, nil
}

// Previous 直接读底层存储
func (r *CachedSnapshotRepository) Previous(ctx context.Context, tenantID string, before time.Time) (*monitor.SecuritySnapshot, error) {
	return r.inner.Previous(ctx, tenantID, before)
}

// History 直接读底层存储
func (r *CachedSnapshotRepository) History(ctx context.Context, tenantID string, since time.Time) iter.Seq2[*monitor.SecuritySnapshot, error] {
	return r.inner.History(ctx, tenantID, since)
}

// Exists 直接读底层存储
func (r *CachedSnapshotRepository) Exists(ctx context.Context, assessmentID string) (bool, error) {
	return r.inner.Exists(ctx, assessmentID)
}

// Get 直接读底层存储
func (r *CachedSnapshotRepository) Get(ctx context.Context, assessmentID string) (*monitor.SecuritySnapshot, error) {
	return r.inner.Get(ctx, assessmentID)
}

func (r *CachedSnapshotRepository) warn(err error, option, tenantID string) {
	logger.LogWarn("snapshot cache unavailable, falling back to store", "", "", "repo.redis.snapshot_cache", "redis", map[string]interface{}{
		"operation": "snapshot_cache",
		"option":    option,
		"func_name": "repo.redis.CachedSnapshotRepository",
		"tenant_id": tenantID,
		"error":     err.Error(),
	})
}
