package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"secmonitor/internal/model/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func snap(tenant, id string, day, score int) *monitor.SecuritySnapshot {
	return &monitor.SecuritySnapshot{
		Timestamp:    base.AddDate(0, 0, day),
		AssessmentID: id,
		TenantID:     tenant,
		OverallScore: score,
		RiskLevel:    monitor.RiskLevelLow,
	}
}

func collect(t *testing.T, r *SnapshotRepository, tenant string, since time.Time) []*monitor.SecuritySnapshot {
	t.Helper()
	var out []*monitor.SecuritySnapshot
	for s, err := range r.History(context.Background(), tenant, since) {
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestSnapshotHistoryOrderedRegardlessOfInsertion(t *testing.T) {
	ctx := context.Background()
	r := NewSnapshotRepository()

	for _, d := range []int{5, 1, 3, 0, 4, 2} {
		require.NoError(t, r.Append(ctx, snap("acme", fmt.Sprintf("a-%d", d), d, 50+d)))
	}

	history := collect(t, r, "acme", time.Time{})
	require.Len(t, history, 6)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
	}

	latest, err := r.Latest(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "a-5", latest.AssessmentID)

	// since 过滤
	assert.Len(t, collect(t, r, "acme", base.AddDate(0, 0, 3)), 3)

	// 可重复遍历
	assert.Len(t, collect(t, r, "acme", time.Time{}), 6)
}

func TestSnapshotAppendDuplicate(t *testing.T) {
	ctx := context.Background()
	r := NewSnapshotRepository()

	require.NoError(t, r.Append(ctx, snap("acme", "dup", 0, 80)))
	err := r.Append(ctx, snap("other", "dup", 1, 10))
	assert.ErrorIs(t, err, monitor.ErrDuplicateAssessment)

	_, err = r.Latest(ctx, "other")
	assert.ErrorIs(t, err, monitor.ErrNotFound)
	assert.Len(t, collect(t, r, "acme", time.Time{}), 1)

	ok, err := r.Exists(ctx, "dup")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSnapshotPreviousAndNotFound(t *testing.T) {
	ctx := context.Background()
	r := NewSnapshotRepository()

	_, err := r.Latest(ctx, "nobody")
	assert.ErrorIs(t, err, monitor.ErrNotFound)

	require.NoError(t, r.Append(ctx, snap("acme", "s1", 0, 82)))
	require.NoError(t, r.Append(ctx, snap("acme", "s2", 2, 55)))

	prev, err := r.Previous(ctx, "acme", base.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, "s1", prev.AssessmentID)

	_, err = r.Previous(ctx, "acme", base)
	assert.ErrorIs(t, err, monitor.ErrNotFound)
}

func TestSnapshotStoredCopyIsImmutable(t *testing.T) {
	ctx := context.Background()
	r := NewSnapshotRepository()

	s := snap("acme", "s1", 0, 82)
	require.NoError(t, r.Append(ctx, s))
	s.OverallScore = 1

	got, err := r.Latest(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 82, got.OverallScore)

	got.OverallScore = 2
	again, _ := r.Latest(ctx, "acme")
	assert.Equal(t, 82, again.OverallScore)
}

func TestSnapshotConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	r := NewSnapshotRepository()

	var wg sync.WaitGroup
	for tenant := 0; tenant < 4; tenant++ {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(tenant, i int) {
				defer wg.Done()
				_ = r.Append(ctx, snap(fmt.Sprintf("t%d", tenant), fmt.Sprintf("t%d-%d", tenant, i), i%30, 50))
			}(tenant, i)
		}
	}
	wg.Wait()

	for tenant := 0; tenant < 4; tenant++ {
		assert.Len(t, collect(t, r, fmt.Sprintf("t%d", tenant), time.Time{}), 50)
	}
}

func TestSnapshotGetByAssessment(t *testing.T) {
	ctx := context.Background()
	r := NewSnapshotRepository()

	_, err := r.Get(ctx, "s1")
	assert.ErrorIs(t, err, monitor.ErrNotFound)

	require.NoError(t, r.Append(ctx, snap("acme", "s1", 0, 82)))
	require.ErrorIs(t, r.Append(ctx, snap("acme", "s1", 1, 10)), monitor.ErrDuplicateAssessment)

	got, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.TenantID)
	assert.Equal(t, 82, got.OverallScore)

	got.OverallScore = 1
	again, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 82, again.OverallScore)
}

func newAlert(tenant string, metric monitor.MonitoringMetric, assessment string) *monitor.SecurityAlert {
	return &monitor.SecurityAlert{
		AlertID:      monitor.AlertID(tenant, metric, assessment),
		TenantID:     tenant,
		AssessmentID: assessment,
		Metric:       metric,
		Severity:     monitor.SeverityCritical,
		CreatedAt:    base,
	}
}

func TestAlertCreateUnlessActive(t *testing.T) {
	ctx := context.Background()
	r := NewAlertRepository()

	created, _, err := r.CreateUnlessActive(ctx, newAlert("acme", monitor.MetricOverallScore, "s1"))
	require.NoError(t, err)
	assert.True(t, created)

	// 同一指标已有活动告警
	created, existing, err := r.CreateUnlessActive(ctx, newAlert("acme", monitor.MetricOverallScore, "s2"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "s1", existing.AssessmentID)

	// 其他指标、其他租户互不影响
	created, _, _ = r.CreateUnlessActive(ctx, newAlert("acme", monitor.MetricCriticalFindings, "s2"))
	assert.True(t, created)
	created, _, _ = r.CreateUnlessActive(ctx, newAlert("globex", monitor.MetricOverallScore, "g1"))
	assert.True(t, created)

	active, err := r.List(ctx, "acme", monitor.AlertFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestAlertCreateUnlessActiveConcurrent(t *testing.T) {
	ctx := context.Background()
	r := NewAlertRepository()

	const writers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ok, existing, err := r.CreateUnlessActive(ctx, newAlert("acme", monitor.MetricOverallScore, fmt.Sprintf("s%d", i)))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			assert.NotNil(t, existing)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, created)
	active, err := r.List(ctx, "acme", monitor.AlertFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)
	all, err := r.List(ctx, "acme", monitor.AlertFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAlertAcknowledge(t *testing.T) {
	ctx := context.Background()
	r := NewAlertRepository()

	a := newAlert("acme", monitor.MetricOverallScore, "s1")
	_, _, err := r.CreateUnlessActive(ctx, a)
	require.NoError(t, err)

	acked, err := r.Acknowledge(ctx, a.AlertID, base.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)
	require.NotNil(t, acked.AcknowledgedAt)

	_, err = r.Acknowledge(ctx, a.AlertID, base.Add(2*time.Hour))
	assert.ErrorIs(t, err, monitor.ErrNotFound)

	_, err = r.Acknowledge(ctx, "missing", base)
	assert.ErrorIs(t, err, monitor.ErrNotFound)

	// 同 alert_id 重试不会重新创建
	created, _, err := r.CreateUnlessActive(ctx, a)
	require.NoError(t, err)
	assert.False(t, created)

	// 确认后新的触发可以创建新告警
	created, _, err = r.CreateUnlessActive(ctx, newAlert("acme", monitor.MetricOverallScore, "s3"))
	require.NoError(t, err)
	assert.True(t, created)

	all, _ := r.List(ctx, "acme", monitor.AlertFilter{})
	assert.Len(t, all, 2)
	active, _ := r.List(ctx, "acme", monitor.AlertFilter{ActiveOnly: true})
	require.Len(t, active, 1)
	assert.Equal(t, "s3", active[0].AssessmentID)
}

func TestThresholdRepository(t *testing.T) {
	ctx := context.Background()
	r := NewThresholdRepository()

	_, err := r.Get(ctx, "acme")
	assert.ErrorIs(t, err, monitor.ErrNotFound)

	rules := []monitor.AlertThreshold{{Metric: monitor.MetricOverallScore, Severity: monitor.SeverityWarning, Comparator: monitor.ComparatorLT, Value: 90}}
	require.NoError(t, r.Replace(ctx, "acme", rules))

	got, err := r.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, rules, got)

	require.NoError(t, r.Replace(ctx, "acme", nil))
	_, err = r.Get(ctx, "acme")
	assert.ErrorIs(t, err, monitor.ErrNotFound)
}
