package notify

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"secmonitor/internal/config"
	monitorModel "secmonitor/internal/model/monitor"
)

// sendMailFunc 与 smtp.SendMail 签名一致，测试中替换
type sendMailFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// EmailHandler SMTP 邮件渠道
type EmailHandler struct {
	addr     string
	auth     sasl.Client
	from     string
	fromName string
	to       []string
	sendMail sendMailFunc
}

// NewEmailHandler 创建邮件渠道，配置了用户名时使用 PLAIN 认证
func NewEmailHandler(cfg config.EmailConfig) *EmailHandler {
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	var auth sasl.Client
	if cfg.Username != "" {
		auth = sasl.NewPlainClient("", cfg.Username, cfg.Password)
	}
	return &EmailHandler{
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(port)),
		auth:     auth,
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
		to:       append([]string(nil), cfg.To...),
		sendMail: smtp.SendMail,
	}
}

func (h *EmailHandler) Name() string { return "email" }

// Notify 发送邮件
// smtp.SendMail 不接受 ctx，超过 ctx 期限时放弃等待
func (h *EmailHandler) Notify(ctx context.Context, alert *monitorModel.SecurityAlert) error {
	msg := h.compose(alert, time.Now())

	done := make(chan error, 1)
	go func() {
		done <- h.sendMail(h.addr, h.auth, h.from, h.to, strings.NewReader(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", h.addr, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// compose 生成 RFC 5322 纯文本邮件
func (h *EmailHandler) compose(alert *monitorModel.SecurityAlert, now time.Time) string {
	from := (&mail.Address{Name: h.fromName, Address: h.from}).String()
	subject := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(alert.Severity)), alert.TenantID, alert.Metric)

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(h.to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")

	b.WriteString(alert.Message + "\r\n\r\n")
	fmt.Fprintf(&b, "Tenant:     %s\r\n", alert.TenantID)
	fmt.Fprintf(&b, "Assessment: %s\r\n", alert.AssessmentID)
	fmt.Fprintf(&b, "Metric:     %s\r\n", alert.Metric)
	fmt.Fprintf(&b, "Current:    %d\r\n", alert.CurrentValue)
	fmt.Fprintf(&b, "Threshold:  %d\r\n", alert.ThresholdValue)
	fmt.Fprintf(&b, "Alert ID:   %s\r\n", alert.AlertID)
	fmt.Fprintf(&b, "Raised at:  %s\r\n", alert.CreatedAt.Format(time.RFC3339))

	if len(alert.Recommendations) > 0 {
		b.WriteString("\r\nRecommendations:\r\n")
		for i, r := range alert.Recommendations {
			fmt.Fprintf(&b, "  %d. %s\r\n", i+1, r)
		}
	}
	return b.String()
}
