package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"secmonitor/internal/config"
	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
)

const (
	userAgent          = "secmonitor/1.0"
	requestTimeout     = 10 * time.Second
	defaultBackoff     = 200 * time.Millisecond
	maxBackoff         = 2 * time.Second
	breakerTripFailure = 5
	breakerOpenTimeout = 30 * time.Second
)

// statusError 非 2xx 响应
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("remote returned status %d", e.code)
}

// retryable 5xx 和 429 可重试，其他 4xx 不重试
func (e *statusError) retryable() bool {
	return e.code >= 500 || e.code == http.StatusTooManyRequests
}

// jsonPoster 带熔断和重试的 JSON POST
// 一次 post 内的重试由 resty 完成，熔断器按 post 计数
type jsonPoster struct {
	name    string
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func newJSONPoster(name string, headers map[string]string, maxRetries int) *jsonPoster {
	if maxRetries < 0 {
		maxRetries = 0
	}
	client := resty.New().
		SetTimeout(requestTimeout).
		SetRetryCount(maxRetries).
		SetRetryWaitTime(defaultBackoff).
		SetRetryMaxWaitTime(maxBackoff).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", userAgent).
		SetHeaders(headers).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			se := &statusError{code: resp.StatusCode()}
			return se.retryable()
		})

	return &jsonPoster{
		name:   name,
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerTripFailure
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.LogSystemEvent("notify", "breaker_state_change", "notification channel breaker state changed", logrus.WarnLevel, map[string]interface{}{
					"operation": "dispatch_alert",
					"option":    "gobreaker.OnStateChange",
					"func_name": "service.notify.jsonPoster",
					"handler":   name,
					"from":      from.String(),
					"to":        to.String(),
				})
			},
		}),
	}
}

// post 发送 payload；熔断打开时直接返回 gobreaker.ErrOpenState
func (p *jsonPoster) post(ctx context.Context, url string, payload interface{}) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.send(ctx, url, payload)
	})
	return err
}

func (p *jsonPoster) send(ctx context.Context, url string, payload interface{}) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsSuccess() {
		return nil
	}

	se := &statusError{code: resp.StatusCode()}
	if attempts := resp.Request.Attempt; attempts > 1 {
		return fmt.Errorf("gave up after %d attempts: %w", attempts, se)
	}
	return se
}

// WebhookPayload Webhook 请求体
type WebhookPayload struct {
	Event     string                     `json:"event"`
	Source    string                     `json:"source"`
	Timestamp time.Time                  `json:"timestamp"`
	Alert     monitorModel.SecurityAlert `json:"alert"`
}

// WebhookHandler 通用 JSON Webhook 渠道
type WebhookHandler struct {
	name   string
	url    string
	poster *jsonPoster
}

// NewWebhookHandler 创建 Webhook 渠道
func NewWebhookHandler(cfg config.WebhookConfig) *WebhookHandler {
	name := cfg.Name
	if name == "" {
		name = "webhook"
	}
	return &WebhookHandler{
		name:   name,
		url:    cfg.URL,
		poster: newJSONPoster(name, cfg.Headers, cfg.MaxRetries),
	}
}

func (h *WebhookHandler) Name() string { return h.name }

// Notify 发送告警
func (h *WebhookHandler) Notify(ctx context.Context, alert *monitorModel.SecurityAlert) error {
	return h.poster.post(ctx, h.url, WebhookPayload{
		Event:     "security_alert.created",
		Source:    "secmonitor",
		Timestamp: time.Now().UTC(),
		Alert:     *alert,
	})
}
