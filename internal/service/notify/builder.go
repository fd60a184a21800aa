package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"secmonitor/internal/config"
	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/metrics"
)

// NewDispatcherFromConfig 按配置注册渠道
// 顺序: log, email, webhooks, chat, nats；publisher 为 nil 或 subject 为空时不注册 nats
func NewDispatcherFromConfig(cfg *config.NotifyConfig, publisher Publisher, subject string, m *metrics.Metrics) *Dispatcher {
	d := NewDispatcher(cfg.HandlerTimeout, m)

	d.Register(HandlerFunc("log", func(ctx context.Context, alert *monitorModel.SecurityAlert) error {
		logger.LogAlertEvent("notified", alert.TenantID, alert.AlertID, string(alert.Severity), map[string]interface{}{
			"operation": "dispatch_alert",
			"option":    "handler.log",
			"func_name": "service.notify.logHandler",
			"metric":    string(alert.Metric),
			"message":   alert.Message,
		})
		return nil
	}))

	if cfg.Email.Enabled {
		d.Register(NewEmailHandler(cfg.Email))
	}
	for _, wh := range cfg.Webhooks {
		d.Register(NewWebhookHandler(wh))
	}
	for _, ch := range cfg.Chat {
		d.Register(NewChatHandler(ch))
	}
	if publisher != nil && subject != "" {
		d.Register(NewNATSHandler(publisher, subject))
	}

	logger.LogSystemEvent("notify", "dispatcher_ready", "notification handlers registered", logrus.InfoLevel, map[string]interface{}{
		"operation": "init_notify",
		"option":    "dispatcher.Register",
		"func_name": "service.notify.NewDispatcherFromConfig",
		"handlers":  d.Handlers(),
	})
	return d
}
