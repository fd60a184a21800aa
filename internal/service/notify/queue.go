package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
)

// Sink 实际执行分发的对象，Dispatcher 满足该接口
type Sink interface {
	Dispatch(ctx context.Context, alert *monitorModel.SecurityAlert)
}

type delivery struct {
	ctx   context.Context
	alert *monitorModel.SecurityAlert
}

// Queue 异步分发队列，实现 service/monitor.Notifier
// Dispatch 只入队，由固定数量的 worker 调用 Sink；
// 未启动、已停止或队列已满时在调用方协程同步分发，告警不丢弃
type Queue struct {
	sink    Sink
	jobs    chan delivery
	workers int

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewQueue 创建分发队列
func NewQueue(sink Sink, workers, size int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	return &Queue{sink: sink, jobs: make(chan delivery, size), workers: workers}
}

// Start 启动 worker，重复调用无效果
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	logger.LogSystemEvent("notify", "queue_started", "alert dispatch queue started", logrus.InfoLevel, map[string]interface{}{
		"operation": "start_notify_queue",
		"option":    "queue.Start",
		"func_name": "service.notify.Queue.Start",
		"workers":   q.workers,
		"size":      cap(q.jobs),
	})
}

// Stop 停止接收并等待已入队的告警分发完
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.LogSystemEvent("notify", "queue_stopped", "alert dispatch queue drained", logrus.InfoLevel, map[string]interface{}{
			"operation": "stop_notify_queue",
			"option":    "queue.Stop",
			"func_name": "service.notify.Queue.Stop",
		})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch 入队后立即返回
func (q *Queue) Dispatch(ctx context.Context, alert *monitorModel.SecurityAlert) {
	if q.enqueue(ctx, alert) {
		return
	}
	q.sink.Dispatch(ctx, alert)
}

func (q *Queue) enqueue(ctx context.Context, alert *monitorModel.SecurityAlert) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed || !q.started {
		return false
	}

	select {
	case q.jobs <- delivery{ctx: ctx, alert: alert}:
		return true
	default:
		logger.LogAlertEvent("dispatch_queue_full", alert.TenantID, alert.AlertID, string(alert.Severity), map[string]interface{}{
			"operation": "dispatch_alert",
			"option":    "queue.enqueue",
			"func_name": "service.notify.Queue.Dispatch",
			"size":      cap(q.jobs),
		})
		return false
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for d := range q.jobs {
		q.sink.Dispatch(d.ctx, d.alert)
	}
}
