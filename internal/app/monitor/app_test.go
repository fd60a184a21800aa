package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secmonitor/internal/config"
	monitorModel "secmonitor/internal/model/monitor"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 18080, Mode: "test"},
		Log:      config.LogConfig{Level: "error", Format: "json", Output: "stdout"},
		App:      config.AppConfig{Name: "secmonitor", Version: "test"},
		Storage:  config.StorageConfig{Driver: "memory"},
		Pipeline: config.PipelineConfig{Workers: 2, QueueSize: 4},
		Monitor:  config.MonitorConfig{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}},
		Notify:   config.NotifyConfig{HandlerTimeout: time.Second, Workers: 1, QueueSize: 8},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(testConfig(), nil)
	require.NoError(t, err)
	app.GetModule().NotifyQueue.Start()
	app.GetModule().Pipeline.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	})
	return app
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)
	engine := app.GetRouter().GetEngine()

	for path, status := range map[string]string{
		"/api/health": "healthy",
		"/api/ready":  "ready",
		"/api/live":   "alive",
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"status":"`+status+`"`, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
	}
}

func TestReadinessReportsFailingComponent(t *testing.T) {
	app := newTestApp(t)
	app.router.Readiness["nats"] = func(context.Context) error { return assert.AnError }

	w := httptest.NewRecorder()
	app.GetRouter().GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"not_ready"`)
}

func TestSnapshotIngestThroughRouterUpdatesMetrics(t *testing.T) {
	app := newTestApp(t)
	engine := app.GetRouter().GetEngine()

	snapshot := monitorModel.SecuritySnapshot{
		Timestamp:      time.Now().UTC().Add(-time.Minute),
		AssessmentID:   "assess-1",
		TenantID:       "t1",
		OverallScore:   58,
		RiskLevel:      monitorModel.RiskLevelHigh,
		CategoryScores: map[string]int{monitorModel.CategoryCloud: 58},
		VulnerabilityCounts: monitorModel.VulnerabilityCounts{
			Critical: 0, High: 1, Medium: 1, Low: 1, Total: 3,
		},
	}
	body, err := json.Marshal(snapshot)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/snapshots", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"severity":"critical"`)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `secmonitor_snapshots_total{result="accepted"} 1`)
	assert.Contains(t, w.Body.String(), `secmonitor_alerts_triggered_total{severity="critical"} 1`)
}

func TestMetricsEndpointDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.Metrics.Enabled = false
	app, err := NewApp(cfg, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.GetRouter().GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
