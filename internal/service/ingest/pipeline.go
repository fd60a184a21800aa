/**
 * 服务层:摄取流水线
 * @description: 固定数量的 worker，租户按 FNV-1a 哈希固定到一个 worker
 *   同一租户的快照按提交顺序串行处理，不同租户并行
 * @func:
 * - Enqueue 入队后立即返回，结果通过回调通知(NATS 订阅使用)
 * - Submit  入队并等待结果(HTTP 摄取使用)
 * - Stop    停止接收新任务，处理完队列中已有任务后退出
 */
package ingest

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/metrics"
)

// ErrPipelineClosed 流水线已停止
var ErrPipelineClosed = errors.New("ingest pipeline is closed")

// Ingester 单个快照的处理逻辑，service/monitor.MonitorService 满足该接口
type Ingester interface {
	Ingest(ctx context.Context, snapshot *monitorModel.SecuritySnapshot) (*monitorModel.IngestResult, error)
}

// Callback 处理结果回调，在 worker 协程中执行
type Callback func(result *monitorModel.IngestResult, err error)

type job struct {
	ctx      context.Context
	snapshot *monitorModel.SecuritySnapshot
	done     Callback
}

// Pipeline 摄取流水线
type Pipeline struct {
	ingester Ingester
	queues   []chan job
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewPipeline 创建流水线
func NewPipeline(ingester Ingester, workers, queueSize int, m *metrics.Metrics) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	queues := make([]chan job, workers)
	for i := range queues {
		queues[i] = make(chan job, queueSize)
	}
	return &Pipeline{ingester: ingester, queues: queues, metrics: m}
}

// Start 启动 worker，重复调用无效果
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i, q := range p.queues {
		p.wg.Add(1)
		go p.worker(i, q)
	}
	logger.LogSystemEvent("ingest", "pipeline_started", "ingest pipeline started", logrus.InfoLevel, map[string]interface{}{
		"operation": "start_pipeline",
		"option":    "pipeline.Start",
		"func_name": "service.ingest.Pipeline.Start",
		"workers":   len(p.queues),
	})
}

// Stop 关闭队列并等待 worker 处理完剩余任务
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.LogSystemEvent("ingest", "pipeline_stopped", "ingest pipeline drained", logrus.InfoLevel, map[string]interface{}{
			"operation": "stop_pipeline",
			"option":    "pipeline.Stop",
			"func_name": "service.ingest.Pipeline.Stop",
		})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// workerFor 租户对应的 worker 下标
func (p *Pipeline) workerFor(tenantID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenantID))
	return int(h.Sum32() % uint32(len(p.queues)))
}

// Enqueue 按租户入队；队列满时阻塞直到有空位或 ctx 结束
func (p *Pipeline) Enqueue(ctx context.Context, snapshot *monitorModel.SecuritySnapshot, done Callback) error {
	if snapshot == nil {
		return monitorModel.NewValidationError("snapshot", "is required")
	}
	if done == nil {
		done = func(*monitorModel.IngestResult, error) {}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPipelineClosed
	}

	select {
	case p.queues[p.workerFor(snapshot.TenantID)] <- job{ctx: ctx, snapshot: snapshot, done: done}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type outcome struct {
	result *monitorModel.IngestResult
	err    error
}

// Submit 入队并等待处理结果
func (p *Pipeline) Submit(ctx context.Context, snapshot *monitorModel.SecuritySnapshot) (*monitorModel.IngestResult, error) {
	ch := make(chan outcome, 1)
	if err := p.Enqueue(ctx, snapshot, func(r *monitorModel.IngestResult, err error) {
		ch <- outcome{result: r, err: err}
	}); err != nil {
		return nil, err
	}

	select {
	case o := <-ch:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pipeline) worker(id int, queue <-chan job) {
	defer p.wg.Done()
	for j := range queue {
		// 排队期间调用方已放弃的任务不再开始
		if err := j.ctx.Err(); err != nil {
			j.done(nil, err)
			continue
		}
		p.run(id, j)
	}
}

func (p *Pipeline) run(id int, j job) {
	start := time.Now()
	var (
		result *monitorModel.IngestResult
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errors.New("ingest panic")
				logger.LogSystemEvent("ingest", "worker_panic", "recovered from panic while ingesting snapshot", logrus.ErrorLevel, map[string]interface{}{
					"operation":     "ingest_snapshot",
					"option":        "recover",
					"func_name":     "service.ingest.Pipeline.run",
					"worker":        id,
					"tenant_id":     j.snapshot.TenantID,
					"assessment_id": j.snapshot.AssessmentID,
					"panic":         r,
				})
			}
		}()
		result, err = p.ingester.Ingest(j.ctx, j.snapshot)
	}()
	p.metrics.ObservePipeline(time.Since(start))
	j.done(result, err)
}
