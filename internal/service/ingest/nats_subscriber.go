package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"secmonitor/internal/config"
	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/metrics"
)

// Enqueuer 流水线入队接口
type Enqueuer interface {
	Enqueue(ctx context.Context, snapshot *monitorModel.SecuritySnapshot, done Callback) error
}

// AssessmentCompletedEvent 评估完成事件
type AssessmentCompletedEvent struct {
	EventID  string                         `json:"event_id,omitempty"`
	Type     string                         `json:"type,omitempty"`
	Snapshot *monitorModel.SecuritySnapshot `json:"snapshot"`
}

// Subscriber 以队列组方式订阅评估完成事件
type Subscriber struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	subject  string
	queue    string
	pipeline Enqueuer
	seen     *lru.Cache[string, struct{}]
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// Connect 连接 NATS
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("secmonitor"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.LogSystemEvent("nats", "disconnected", "nats connection lost", logrus.WarnLevel, map[string]interface{}{
				"operation": "nats_connect",
				"option":    "nats.DisconnectErrHandler",
				"func_name": "service.ingest.Connect",
				"error":     fmt.Sprint(err),
			})
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.LogSystemEvent("nats", "reconnected", "nats connection restored", logrus.InfoLevel, map[string]interface{}{
				"operation": "nats_connect",
				"option":    "nats.ReconnectHandler",
				"func_name": "service.ingest.Connect",
				"url":       c.ConnectedUrl(),
			})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats %s: %w", cfg.URL, err)
	}
	return nc, nil
}

// NewSubscriber 创建订阅者
func NewSubscriber(conn *nats.Conn, cfg config.NATSConfig, pipeline Enqueuer, m *metrics.Metrics) (*Subscriber, error) {
	capacity := cfg.DedupeCapacity
	if capacity <= 0 {
		capacity = 4096
	}
	seen, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedupe cache: %w", err)
	}
	return &Subscriber{
		conn:     conn,
		subject:  cfg.Subject,
		queue:    cfg.Queue,
		pipeline: pipeline,
		seen:     seen,
		metrics:  m,
		timeout:  30 * time.Second,
	}, nil
}

// Start 开始订阅
func (s *Subscriber) Start() error {
	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, s.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", s.subject, err)
	}
	s.sub = sub

	logger.LogSystemEvent("nats", "subscribed", "listening for completed assessments", logrus.InfoLevel, map[string]interface{}{
		"operation": "nats_subscribe",
		"option":    "conn.QueueSubscribe",
		"func_name": "service.ingest.Subscriber.Start",
		"subject":   s.subject,
		"queue":     s.queue,
	})
	return nil
}

// Stop 排空订阅，已收到的消息仍会处理
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}

// handle 消息回调，入队后立即返回，不阻塞同一订阅的后续消息
func (s *Subscriber) handle(msg *nats.Msg) {
	snapshot, err := decodeEvent(msg.Data)
	if err != nil {
		s.metrics.ObserveNatsMessage("invalid")
		s.reply(msg, nil, err)
		logger.LogWarn("discarding malformed assessment event", "", "", msg.Subject, "NATS", map[string]interface{}{
			"operation": "nats_consume",
			"option":    "decodeEvent",
			"func_name": "service.ingest.Subscriber.handle",
			"error":     err.Error(),
		})
		return
	}

	if s.seen.Contains(snapshot.AssessmentID) {
		s.metrics.ObserveNatsMessage("redelivered")
		s.reply(msg, &monitorModel.IngestResult{AssessmentID: snapshot.AssessmentID, TenantID: snapshot.TenantID, Duplicate: true}, nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	err = s.pipeline.Enqueue(ctx, snapshot, func(result *monitorModel.IngestResult, err error) {
		defer cancel()
		s.complete(msg, snapshot, result, err)
	})
	if err != nil {
		cancel()
		s.complete(msg, snapshot, nil, err)
	}
}

func (s *Subscriber) complete(msg *nats.Msg, snapshot *monitorModel.SecuritySnapshot, result *monitorModel.IngestResult, err error) {
	fields := map[string]interface{}{
		"operation":     "nats_consume",
		"option":        "pipeline.Enqueue",
		"func_name":     "service.ingest.Subscriber.complete",
		"subject":       msg.Subject,
		"assessment_id": snapshot.AssessmentID,
	}
	if err != nil {
		s.metrics.ObserveNatsMessage("failed")
		logger.LogBusinessError(err, "", "", msg.Subject, "NATS", fields)
		s.reply(msg, nil, err)
		return
	}

	s.seen.Add(snapshot.AssessmentID, struct{}{})
	if result != nil && result.Duplicate {
		s.metrics.ObserveNatsMessage("duplicate")
	} else {
		s.metrics.ObserveNatsMessage("processed")
	}
	s.reply(msg, result, nil)
}

// reply 请求-响应模式下回复处理结果
func (s *Subscriber) reply(msg *nats.Msg, result *monitorModel.IngestResult, err error) {
	if msg.Reply == "" || s.conn == nil {
		return
	}
	body := map[string]interface{}{"result": result}
	if err != nil {
		body["error"] = err.Error()
	}
	data, mErr := json.Marshal(body)
	if mErr != nil {
		return
	}
	_ = s.conn.Publish(msg.Reply, data)
}

// decodeEvent 解析事件，兼容直接发送快照的生产者
func decodeEvent(data []byte) (*monitorModel.SecuritySnapshot, error) {
	var event AssessmentCompletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode assessment event: %w", err)
	}
	if event.Snapshot != nil {
		return event.Snapshot, nil
	}

	var snapshot monitorModel.SecuritySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.AssessmentID == "" {
		return nil, monitorModel.NewValidationError("assessment_id", "is required")
	}
	return &snapshot, nil
}
