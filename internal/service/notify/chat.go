package notify

import (
	"context"
	"fmt"
	"strings"

	"secmonitor/internal/config"
	monitorModel "secmonitor/internal/model/monitor"
)

// severityColors 附件颜色
var severityColors = map[monitorModel.Severity]string{
	monitorModel.SeverityCritical: "#d00000",
	monitorModel.SeverityWarning:  "#f2c744",
	monitorModel.SeverityInfo:     "#439fe0",
}

// ChatMessage Slack/Mattermost incoming webhook 消息
type ChatMessage struct {
	Channel     string           `json:"channel,omitempty"`
	Username    string           `json:"username,omitempty"`
	Text        string           `json:"text"`
	Attachments []ChatAttachment `json:"attachments,omitempty"`
}

// ChatAttachment 消息附件
type ChatAttachment struct {
	Color  string      `json:"color"`
	Title  string      `json:"title"`
	Text   string      `json:"text"`
	Fields []ChatField `json:"fields,omitempty"`
}

// ChatField 附件字段
type ChatField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// ChatHandler 聊天频道渠道
type ChatHandler struct {
	name     string
	url      string
	channel  string
	username string
	poster   *jsonPoster
}

// NewChatHandler 创建聊天渠道
func NewChatHandler(cfg config.ChatConfig) *ChatHandler {
	name := cfg.Name
	if name == "" {
		name = "chat"
	}
	username := cfg.Username
	if username == "" {
		username = "secmonitor"
	}
	return &ChatHandler{
		name:     name,
		url:      cfg.URL,
		channel:  cfg.Channel,
		username: username,
		poster:   newJSONPoster(name, nil, 1),
	}
}

func (h *ChatHandler) Name() string { return h.name }

// Notify 发送告警消息
func (h *ChatHandler) Notify(ctx context.Context, alert *monitorModel.SecurityAlert) error {
	return h.poster.post(ctx, h.url, h.message(alert))
}

func (h *ChatHandler) message(alert *monitorModel.SecurityAlert) ChatMessage {
	text := alert.Message
	if len(alert.Recommendations) > 0 {
		text += "\n• " + strings.Join(alert.Recommendations, "\n• ")
	}
	return ChatMessage{
		Channel:  h.channel,
		Username: h.username,
		Text:     fmt.Sprintf("[%s] security alert for %s", strings.ToUpper(string(alert.Severity)), alert.TenantID),
		Attachments: []ChatAttachment{{
			Color: severityColors[alert.Severity],
			Title: string(alert.Metric),
			Text:  text,
			Fields: []ChatField{
				{Title: "Tenant", Value: alert.TenantID, Short: true},
				{Title: "Assessment", Value: alert.AssessmentID, Short: true},
				{Title: "Current", Value: fmt.Sprintf("%d", alert.CurrentValue), Short: true},
				{Title: "Threshold", Value: fmt.Sprintf("%d", alert.ThresholdValue), Short: true},
				{Title: "Alert ID", Value: alert.AlertID, Short: false},
			},
		}},
	}
}
