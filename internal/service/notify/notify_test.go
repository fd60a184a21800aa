package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secmonitor/internal/config"
	monitorModel "secmonitor/internal/model/monitor"
)

func testAlert() *monitorModel.SecurityAlert {
	return &monitorModel.SecurityAlert{
		AlertID:         monitorModel.AlertID("AcmeCorp", monitorModel.MetricOverallScore, "s2"),
		TenantID:        "AcmeCorp",
		AssessmentID:    "s2",
		Metric:          monitorModel.MetricOverallScore,
		Severity:        monitorModel.SeverityCritical,
		Message:         "Overall security score is 55 (critical threshold: < 60)",
		CurrentValue:    55,
		ThresholdValue:  60,
		Recommendations: []string{"Escalate to the security on-call team"},
		CreatedAt:       time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	d := NewDispatcher(100*time.Millisecond, nil)

	var okCalls atomic.Int32
	d.Register(HandlerFunc("failing", func(ctx context.Context, a *monitorModel.SecurityAlert) error {
		return errors.New("smtp unavailable")
	}))
	d.Register(HandlerFunc("panicking", func(ctx context.Context, a *monitorModel.SecurityAlert) error {
		panic("boom")
	}))
	d.Register(HandlerFunc("stuck", func(ctx context.Context, a *monitorModel.SecurityAlert) error {
		time.Sleep(2 * time.Second)
		return nil
	}))
	d.Register(HandlerFunc("ok", func(ctx context.Context, a *monitorModel.SecurityAlert) error {
		okCalls.Add(1)
		return nil
	}))

	start := time.Now()
	results := d.DispatchReport(context.Background(), testAlert())
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, results, 4)
	assert.Equal(t, []string{"failing", "panicking", "stuck", "ok"}, []string{
		results[0].Handler, results[1].Handler, results[2].Handler, results[3].Handler,
	})
	for _, r := range results[:3] {
		require.Error(t, r.Err, r.Handler)
		assert.ErrorIs(t, r.Err, monitorModel.ErrHandlerDelivery)
	}
	assert.ErrorIs(t, results[2].Err, context.DeadlineExceeded)
	assert.NoError(t, results[3].Err)
	assert.Equal(t, int32(1), okCalls.Load())
}

func TestDispatcherHandlersGetCopies(t *testing.T) {
	d := NewDispatcher(time.Second, nil)
	d.Register(HandlerFunc("mutating", func(ctx context.Context, a *monitorModel.SecurityAlert) error {
		a.Recommendations[0] = "changed"
		return nil
	}))

	alert := testAlert()
	d.Dispatch(context.Background(), alert)
	assert.Equal(t, "Escalate to the security on-call team", alert.Recommendations[0])
}

func TestDispatcherCancelledParent(t *testing.T) {
	d := NewDispatcher(time.Second, nil)
	d.Register(HandlerFunc("waits", func(ctx context.Context, a *monitorModel.SecurityAlert) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := d.DispatchReport(ctx, testAlert())
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestDispatcherNoHandlers(t *testing.T) {
	d := NewDispatcher(0, nil)
	assert.Empty(t, d.DispatchReport(context.Background(), testAlert()))
	assert.Empty(t, d.Handlers())
}

// gateSink 分发时先通知 entered，再等待 release
type gateSink struct {
	entered chan string
	release chan struct{}
	mu      sync.Mutex
	got     []string
}

func newGateSink() *gateSink {
	return &gateSink{entered: make(chan string, 8), release: make(chan struct{})}
}

func (s *gateSink) Dispatch(ctx context.Context, a *monitorModel.SecurityAlert) {
	s.entered <- a.AssessmentID
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, a.AssessmentID)
}

func (s *gateSink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

func alertFor(assessmentID string) *monitorModel.SecurityAlert {
	a := testAlert()
	a.AssessmentID = assessmentID
	return a
}

func TestQueueDispatchDoesNotBlockCaller(t *testing.T) {
	sink := newGateSink()
	q := NewQueue(sink, 1, 4)
	q.Start()

	// sink 未放行时 Dispatch 仍立即返回
	q.Dispatch(context.Background(), alertFor("s1"))
	q.Dispatch(context.Background(), alertFor("s2"))
	assert.Equal(t, "s1", <-sink.entered)
	assert.Empty(t, sink.delivered())

	close(sink.release)
	require.NoError(t, q.Stop(context.Background()))
	assert.Equal(t, []string{"s1", "s2"}, sink.delivered())

	// 停止后同步分发
	q.Dispatch(context.Background(), alertFor("s3"))
	assert.Equal(t, []string{"s1", "s2", "s3"}, sink.delivered())
}

func TestQueueFullFallsBackToCaller(t *testing.T) {
	sink := newGateSink()
	q := NewQueue(sink, 1, 1)
	q.Start()

	q.Dispatch(context.Background(), alertFor("s1"))
	assert.Equal(t, "s1", <-sink.entered)
	q.Dispatch(context.Background(), alertFor("s2"))

	// worker 被占用且队列已满，s3 在调用方协程分发
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Dispatch(context.Background(), alertFor("s3"))
	}()
	assert.Equal(t, "s3", <-sink.entered)

	close(sink.release)
	<-done
	require.NoError(t, q.Stop(context.Background()))
	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, sink.delivered())
}

func TestQueueNotStartedDispatchesInline(t *testing.T) {
	sink := newGateSink()
	close(sink.release)
	q := NewQueue(sink, 0, 0)

	q.Dispatch(context.Background(), alertFor("s1"))
	assert.Equal(t, []string{"s1"}, sink.delivered())
	require.NoError(t, q.Stop(context.Background()))
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	var got WebhookPayload
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := NewWebhookHandler(config.WebhookConfig{Name: "soc", URL: srv.URL, Headers: map[string]string{"X-Token": "secret"}, MaxRetries: 2})
	h.poster.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	require.NoError(t, h.Notify(context.Background(), testAlert()))
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "soc", h.Name())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "security_alert.created", got.Event)
	assert.Equal(t, "s2", got.Alert.AssessmentID)
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	h := NewWebhookHandler(config.WebhookConfig{URL: srv.URL, MaxRetries: 3})
	h.poster.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	err := h.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "webhook", h.Name())
}

func TestWebhookGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := NewWebhookHandler(config.WebhookConfig{URL: srv.URL, MaxRetries: 2})
	h.poster.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	err := h.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")
	var se *statusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.code)
	assert.Equal(t, int32(3), hits.Load())
}

func TestWebhookBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := NewWebhookHandler(config.WebhookConfig{Name: "flaky", URL: srv.URL})
	for i := 0; i < breakerTripFailure; i++ {
		assert.Error(t, h.Notify(context.Background(), testAlert()))
	}

	err := h.Notify(context.Background(), testAlert())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(breakerTripFailure), hits.Load())
}

func TestChatMessage(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewChatHandler(config.ChatConfig{Name: "slack-sec", URL: srv.URL, Channel: "#security"})
	require.NoError(t, h.Notify(context.Background(), testAlert()))

	var msg ChatMessage
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "#security", msg.Channel)
	assert.Equal(t, "secmonitor", msg.Username)
	assert.Equal(t, "[CRITICAL] security alert for AcmeCorp", msg.Text)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "#d00000", msg.Attachments[0].Color)
	assert.Equal(t, "overall_score", msg.Attachments[0].Title)
	assert.Contains(t, msg.Attachments[0].Text, "Escalate to the security on-call team")
}

func TestEmailNotify(t *testing.T) {
	h := NewEmailHandler(config.EmailConfig{
		SMTPHost:  "smtp.example.com",
		Username:  "alerts",
		Password:  "pw",
		FromEmail: "alerts@example.com",
		FromName:  "Security Monitor",
		To:        []string{"soc@example.com", "ciso@example.com"},
	})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth sasl.Client
	)
	h.sendMail = func(addr string, a sasl.Client, from string, to []string, r io.Reader) error {
		data, _ := io.ReadAll(r)
		gotAddr, gotTo, gotMsg, gotAuth = addr, to, string(data), a
		return nil
	}

	require.NoError(t, h.Notify(context.Background(), testAlert()))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"soc@example.com", "ciso@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)
	assert.Contains(t, gotMsg, "Subject: [CRITICAL] AcmeCorp: overall_score\r\n")
	assert.Contains(t, gotMsg, "From: \"Security Monitor\" <alerts@example.com>\r\n")
	assert.Contains(t, gotMsg, "  1. Escalate to the security on-call team\r\n")
	assert.True(t, strings.Contains(gotMsg, "\r\n\r\nOverall security score is 55"))
}

func TestEmailNotifyHonoursDeadline(t *testing.T) {
	h := NewEmailHandler(config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 25, FromEmail: "a@example.com", To: []string{"b@example.com"}})
	assert.Nil(t, h.auth)

	block := make(chan struct{})
	defer close(block)
	h.sendMail = func(addr string, a sasl.Client, from string, to []string, r io.Reader) error {
		<-block
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Notify(ctx, testAlert()), context.DeadlineExceeded)
}

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject, p.data = subject, data
	return p.err
}

func TestNATSHandler(t *testing.T) {
	pub := &fakePublisher{}
	h := NewNATSHandler(pub, "secmonitor.alerts")
	require.NoError(t, h.Notify(context.Background(), testAlert()))
	assert.Equal(t, "secmonitor.alerts", pub.subject)

	var got monitorModel.SecurityAlert
	require.NoError(t, json.Unmarshal(pub.data, &got))
	assert.Equal(t, testAlert().AlertID, got.AlertID)

	pub.err = errors.New("connection closed")
	assert.Error(t, h.Notify(context.Background(), testAlert()))
}

func TestNewDispatcherFromConfig(t *testing.T) {
	cfg := &config.NotifyConfig{
		HandlerTimeout: time.Second,
		Email:          config.EmailConfig{Enabled: true, SMTPHost: "smtp.example.com", FromEmail: "a@example.com", To: []string{"b@example.com"}},
		Webhooks:       []config.WebhookConfig{{Name: "soc", URL: "http://127.0.0.1:9/hook"}},
		Chat:           []config.ChatConfig{{Name: "slack", URL: "http://127.0.0.1:9/chat"}},
	}

	d := NewDispatcherFromConfig(cfg, &fakePublisher{}, "secmonitor.alerts", nil)
	assert.Equal(t, []string{"log", "email", "soc", "slack", "nats"}, d.Handlers())

	d = NewDispatcherFromConfig(&config.NotifyConfig{}, nil, "secmonitor.alerts", nil)
	assert.Equal(t, []string{"log"}, d.Handlers())
}
