/**
 * 服务层:趋势分析
 * @description: 从快照历史计算时间序列，并对总体分数的近期走势分类
 * @func:
 * - Series 窗口内某指标的 (timestamp, value, assessment_id) 序列
 * - Direction 最新总体分数对比回看窗口内最早快照：>+band improving，<-band degrading，否则 stable
 */
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/repo"
)

const (
	// MinTrendDays / MaxTrendDays 趋势窗口范围
	MinTrendDays = 1
	MaxTrendDays = 365
)

// TrendAnalyzer 趋势分析接口
type TrendAnalyzer interface {
	Series(ctx context.Context, tenantID string, metric monitorModel.MonitoringMetric, windowDays int) (*monitorModel.TrendSeries, error)
	Direction(ctx context.Context, tenantID string) (monitorModel.TrendDirection, error)
}

// TrendOptions 趋势参数
type TrendOptions struct {
	LookbackDays  int              // 方向判断回看天数，默认30
	StableBand    int              // 稳定区间，默认2
	RetentionDays int              // 历史保留天数，0 不限
	Now           func() time.Time // 时钟，测试注入
}

type trendAnalyzer struct {
	snapshots repo.SnapshotRepository
	opts      TrendOptions
}

// NewTrendAnalyzer 创建趋势分析器
func NewTrendAnalyzer(snapshots repo.SnapshotRepository, opts TrendOptions) TrendAnalyzer {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	if opts.StableBand <= 0 {
		opts.StableBand = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &trendAnalyzer{snapshots: snapshots, opts: opts}
}

// retentionFloor 保留期下限，0 表示不限
func (t *trendAnalyzer) retentionFloor() time.Time {
	if t.opts.RetentionDays <= 0 {
		return time.Time{}
	}
	return t.opts.Now().AddDate(0, 0, -t.opts.RetentionDays)
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// Series 指标时间序列
// 租户没有快照时返回空序列；快照上缺失该指标的点被跳过
func (t *trendAnalyzer) Series(ctx context.Context, tenantID string, metric monitorModel.MonitoringMetric, windowDays int) (*monitorModel.TrendSeries, error) {
	if !metric.Valid() {
		return nil, monitorModel.NewValidationError("metric", "unknown metric %q", metric)
	}
	if windowDays < MinTrendDays || windowDays > MaxTrendDays {
		return nil, monitorModel.NewValidationError("days", "must be between %d and %d, got %d", MinTrendDays, MaxTrendDays, windowDays)
	}

	since := laterOf(t.opts.Now().AddDate(0, 0, -windowDays), t.retentionFloor())

	series := &monitorModel.TrendSeries{
		Metric:     metric,
		WindowDays: windowDays,
		Points:     []monitorModel.TrendPoint{},
	}
	for s, err := range t.snapshots.History(ctx, tenantID, since) {
		if err != nil {
			return nil, fmt.Errorf("read history for %s: %w", tenantID, err)
		}
		value, ok := metric.Extract(s)
		if !ok {
			continue
		}
		series.Points = append(series.Points, monitorModel.TrendPoint{
			Timestamp:    s.Timestamp,
			Value:        value,
			AssessmentID: s.AssessmentID,
		})
	}
	return series, nil
}

// Direction 总体分数走势
// 0/1 个快照时为 stable
func (t *trendAnalyzer) Direction(ctx context.Context, tenantID string) (monitorModel.TrendDirection, error) {
	latest, err := t.snapshots.Latest(ctx, tenantID)
	if errors.Is(err, monitorModel.ErrNotFound) {
		return monitorModel.TrendStable, nil
	}
	if err != nil {
		return "", fmt.Errorf("read latest snapshot for %s: %w", tenantID, err)
	}

	windowStart := laterOf(latest.Timestamp.AddDate(0, 0, -t.opts.LookbackDays), t.retentionFloor())
	oldest, count, err := t.first(ctx, tenantID, windowStart)
	if err != nil {
		return "", err
	}
	// 窗口内不足两个快照时退回到最早可用快照
	if count < 2 {
		oldest, _, err = t.first(ctx, tenantID, t.retentionFloor())
		if err != nil {
			return "", err
		}
	}
	if oldest == nil || oldest.AssessmentID == latest.AssessmentID {
		return monitorModel.TrendStable, nil
	}

	return ClassifyDelta(latest.OverallScore-oldest.OverallScore, t.opts.StableBand), nil
}

// first 返回 since 之后的第一个快照以及(最多数到2的)数量
func (t *trendAnalyzer) first(ctx context.Context, tenantID string, since time.Time) (*monitorModel.SecuritySnapshot, int, error) {
	var (
		first *monitorModel.SecuritySnapshot
		count int
	)
	for s, err := range t.snapshots.History(ctx, tenantID, since) {
		if err != nil {
			return nil, 0, fmt.Errorf("read history for %s: %w", tenantID, err)
		}
		if first == nil {
			first = s
		}
		count++
		if count >= 2 {
			break
		}
	}
	return first, count, nil
}

// ClassifyDelta 差值分类
func ClassifyDelta(delta, band int) monitorModel.TrendDirection {
	switch {
	case delta > band:
		return monitorModel.TrendImproving
	case delta < -band:
		return monitorModel.TrendDegrading
	default:
		return monitorModel.TrendStable
	}
}
