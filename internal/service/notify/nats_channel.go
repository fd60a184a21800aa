package notify

import (
	"context"
	"encoding/json"
	"fmt"

	monitorModel "secmonitor/internal/model/monitor"
)

// Publisher NATS 发布接口，*nats.Conn 满足该接口
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSHandler 将告警发布到 NATS 主题，供下游系统订阅
type NATSHandler struct {
	conn    Publisher
	subject string
}

// NewNATSHandler 创建 NATS 渠道
func NewNATSHandler(conn Publisher, subject string) *NATSHandler {
	return &NATSHandler{conn: conn, subject: subject}
}

func (h *NATSHandler) Name() string { return "nats" }

// Notify 发布告警 JSON
func (h *NATSHandler) Notify(ctx context.Context, alert *monitorModel.SecurityAlert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	if err := h.conn.Publish(h.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", h.subject, err)
	}
	return nil
}
