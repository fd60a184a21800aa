/**
 * 服务层:通知渠道
 * @description: 所有渠道实现同一个 Handler 接口，分发器不区分渠道类型
 * @func:
 * - EmailHandler   SMTP 邮件(go-smtp + go-sasl)
 * - WebhookHandler 通用 JSON Webhook(熔断 + 重试)
 * - ChatHandler    Slack/Mattermost 兼容的 incoming webhook
 * - NATSHandler    发布到 NATS 主题
 * - HandlerFunc    自定义渠道
 */
package notify

import (
	"context"

	monitorModel "secmonitor/internal/model/monitor"
)

// Handler 通知渠道
// Notify 需要尊重 ctx 的取消，自己负责重试
type Handler interface {
	Name() string
	Notify(ctx context.Context, alert *monitorModel.SecurityAlert) error
}

// handlerFunc 函数适配的自定义渠道
type handlerFunc struct {
	name string
	fn   func(ctx context.Context, alert *monitorModel.SecurityAlert) error
}

// HandlerFunc 用函数创建自定义渠道
func HandlerFunc(name string, fn func(ctx context.Context, alert *monitorModel.SecurityAlert) error) Handler {
	return &handlerFunc{name: name, fn: fn}
}

func (h *handlerFunc) Name() string { return h.name }

func (h *handlerFunc) Notify(ctx context.Context, alert *monitorModel.SecurityAlert) error {
	return h.fn(ctx, alert)
}
