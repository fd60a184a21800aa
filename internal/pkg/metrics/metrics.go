// Package metrics 监控服务自身的Prometheus运行指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "secmonitor"

// Metrics 服务运行指标集合
// 所有方法对 nil 接收者安全，未启用指标时可直接传 nil
type Metrics struct {
	SnapshotsTotal        *prometheus.CounterVec
	AlertsTriggeredTotal  *prometheus.CounterVec
	AlertsSuppressedTotal prometheus.Counter
	AlertsAckedTotal      prometheus.Counter
	NotificationsTotal    *prometheus.CounterVec
	NotificationDuration  *prometheus.HistogramVec
	PipelineDuration      prometheus.Histogram
	NatsMessagesTotal     *prometheus.CounterVec
}

// NewMetrics 在给定的注册器上创建全部指标
// reg 为 nil 时使用 prometheus 默认注册器
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SnapshotsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Total number of assessment snapshots received, by result",
		}, []string{"result"}),
		AlertsTriggeredTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_triggered_total",
			Help:      "Total number of alerts raised, by severity",
		}, []string{"severity"}),
		AlertsSuppressedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Total number of threshold breaches suppressed by an unacknowledged alert",
		}),
		AlertsAckedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_acknowledged_total",
			Help:      "Total number of alerts acknowledged",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of notification handler invocations, by handler and result",
		}, []string{"handler", "result"}),
		NotificationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_seconds",
			Help:      "Notification handler latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent processing one snapshot through record, evaluate and dispatch",
			Buckets:   prometheus.DefBuckets,
		}),
		NatsMessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_messages_total",
			Help:      "Total number of assessment events consumed from NATS, by result",
		}, []string{"result"}),
	}
}

// ObserveSnapshot 记录一次快照摄取结果: accepted / duplicate / rejected / failed
func (m *Metrics) ObserveSnapshot(result string) {
	if m == nil {
		return
	}
	m.SnapshotsTotal.WithLabelValues(result).Inc()
}

// ObserveAlertTriggered 告警触发
func (m *Metrics) ObserveAlertTriggered(severity string) {
	if m == nil {
		return
	}
	m.AlertsTriggeredTotal.WithLabelValues(severity).Inc()
}

// ObserveAlertSuppressed 告警被抑制
func (m *Metrics) ObserveAlertSuppressed() {
	if m == nil {
		return
	}
	m.AlertsSuppressedTotal.Inc()
}

// ObserveAlertAcknowledged 告警被确认
func (m *Metrics) ObserveAlertAcknowledged() {
	if m == nil {
		return
	}
	m.AlertsAckedTotal.Inc()
}

// ObserveNotification 记录一次通知处理结果: success / failure / timeout / panic
func (m *Metrics) ObserveNotification(handler, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(handler, result).Inc()
	m.NotificationDuration.WithLabelValues(handler).Observe(elapsed.Seconds())
}

// ObservePipeline 记录流水线处理耗时
func (m *Metrics) ObservePipeline(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.Observe(elapsed.Seconds())
}

// ObserveNatsMessage 记录NATS消息消费结果: processed / duplicate / invalid / redelivered / error
func (m *Metrics) ObserveNatsMessage(result string) {
	if m == nil {
		return
	}
	m.NatsMessagesTotal.WithLabelValues(result).Inc()
}
