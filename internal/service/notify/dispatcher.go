package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/metrics"
)

// DefaultHandlerTimeout 单个渠道默认超时
const DefaultHandlerTimeout = 10 * time.Second

// DeliveryResult 单个渠道的投递结果
type DeliveryResult struct {
	Handler string        `json:"handler"`
	Err     error         `json:"-"`
	Elapsed time.Duration `json:"elapsed"`
}

// Dispatcher 通知分发器
// 按注册顺序维护渠道列表，Dispatch 并发调用全部渠道，每个渠道独立超时，
// 单个渠道失败或 panic 只记录日志，不影响其他渠道，也不向调用方返回错误
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// NewDispatcher 创建分发器
func NewDispatcher(timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	return &Dispatcher{timeout: timeout, metrics: m}
}

// Register 追加渠道
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Handlers 已注册渠道名称，按注册顺序
func (d *Dispatcher) Handlers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.handlers))
	for i, h := range d.handlers {
		names[i] = h.Name()
	}
	return names
}

// Dispatch 分发告警，实现 service/monitor.Notifier
func (d *Dispatcher) Dispatch(ctx context.Context, alert *monitorModel.SecurityAlert) {
	d.DispatchReport(ctx, alert)
}

// DispatchReport 分发告警并返回每个渠道的结果(与注册顺序一致)
func (d *Dispatcher) DispatchReport(ctx context.Context, alert *monitorModel.SecurityAlert) []DeliveryResult {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	results := make([]DeliveryResult, len(handlers))
	if len(handlers) == 0 {
		return results
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i, h := range handlers {
		wg.Add(1)
		go func(i int, h Handler) {
			defer wg.Done()
			results[i] = d.deliver(ctx, h, alert)
		}(i, h)
	}
	wg.Wait()

	var failures *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			failures = multierror.Append(failures, r.Err)
		}
	}

	fields := map[string]interface{}{
		"operation": "dispatch_alert",
		"option":    "dispatcher.DispatchReport",
		"func_name": "service.notify.Dispatcher.DispatchReport",
		"handlers":  len(handlers),
		"elapsed":   time.Since(start).String(),
	}
	if err := failures.ErrorOrNil(); err != nil {
		fields["failed"] = failures.Len()
		fields["error"] = err.Error()
		logger.LogAlertEvent("dispatch_partial_failure", alert.TenantID, alert.AlertID, string(alert.Severity), fields)
	} else {
		logger.LogAlertEvent("dispatched", alert.TenantID, alert.AlertID, string(alert.Severity), fields)
	}
	return results
}

// deliver 调用单个渠道，超时或 panic 都转换为 DeliveryError
func (d *Dispatcher) deliver(parent context.Context, h Handler, alert *monitorModel.SecurityAlert) DeliveryResult {
	name := h.Name()
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		// 每个渠道拿到独立副本
		done <- h.Notify(ctx, alert.Clone())
	}()

	var err error
	outcome := "success"
	select {
	case err = <-done:
		if err != nil {
			outcome = "failure"
		}
	case <-ctx.Done():
		// 渠道未响应取消时不再等待
		err = fmt.Errorf("handler did not finish within %s: %w", d.timeout, ctx.Err())
		outcome = "timeout"
	}
	elapsed := time.Since(start)
	d.metrics.ObserveNotification(name, outcome, elapsed)

	if err != nil {
		err = &monitorModel.DeliveryError{Handler: name, AlertID: alert.AlertID, Err: err}
		logger.WithFields(logrus.Fields{
			"type":      logger.AlertLog,
			"operation": "dispatch_alert",
			"option":    "handler.Notify",
			"func_name": "service.notify.Dispatcher.deliver",
			"handler":   name,
			"alert_id":  alert.AlertID,
			"tenant_id": alert.TenantID,
			"outcome":   outcome,
			"elapsed":   elapsed.String(),
		}).Warn(err.Error())
	}
	return DeliveryResult{Handler: name, Err: err, Elapsed: elapsed}
}
