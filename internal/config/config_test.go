package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigContent = `
server:
  host: "localhost"
  port: 8080
  mode: "test"
  read_timeout: 30s
  write_timeout: 30s

storage:
  driver: "memory"

log:
  level: "info"
  format: "json"
  output: "stdout"

pipeline:
  workers: 8

alerting:
  trend_lookback_days: 14

notify:
  handler_timeout: 3s
  webhooks:
    - name: "soc"
      url: "http://127.0.0.1:9/hook"
      max_retries: 2
`

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

// TestLoadConfig 测试配置加载功能
func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yaml", testConfigContent)

	cfg, err := LoadConfig(tempDir, "development")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 14, cfg.Alerting.TrendLookbackDays)
	assert.Equal(t, 3*time.Second, cfg.Notify.HandlerTimeout)
	require.Len(t, cfg.Notify.Webhooks, 1)
	assert.Equal(t, "soc", cfg.Notify.Webhooks[0].Name)
	assert.Same(t, cfg, GetConfig())
}

// TestLoadConfigDefaults 未配置项应填充默认值
func TestLoadConfigDefaults(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yaml", `
server:
  port: 9000
log:
  level: "debug"
  format: "text"
  output: "stderr"
`)

	cfg, err := LoadConfig(tempDir, "development")
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 30, cfg.Alerting.TrendLookbackDays)
	assert.Equal(t, 2, cfg.Alerting.TrendStableBand)
	assert.Equal(t, 30, cfg.Alerting.DashboardDays)
	assert.Equal(t, 10*time.Second, cfg.Notify.HandlerTimeout)
	assert.Equal(t, 2, cfg.Notify.Workers)
	assert.Equal(t, 256, cfg.Notify.QueueSize)
	assert.Equal(t, "assessments.completed", cfg.NATS.Subject)
	assert.Equal(t, "/metrics", cfg.Monitor.Metrics.Path)
}

// TestEnvironmentSpecificConfig 测试环境特定配置文件
func TestEnvironmentSpecificConfig(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yaml", testConfigContent)
	writeConfig(t, tempDir, "config.test.yaml", `
server:
  port: 18080
  mode: "test"
log:
  level: "warn"
  format: "json"
  output: "stdout"
`)

	cfg, err := LoadConfig(tempDir, "test")
	require.NoError(t, err)
	assert.Equal(t, 18080, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)

	// 不存在的环境文件回落到 config.yaml
	cfg, err = LoadConfig(tempDir, "production")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

// TestEnvironmentVariableOverride 环境变量覆盖配置文件
func TestEnvironmentVariableOverride(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yaml", testConfigContent)

	t.Setenv("SECMONITOR_SERVER_PORT", "9191")

	cfg, err := LoadConfig(tempDir, "development")
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

// TestConfigValidation 测试配置校验
func TestConfigValidation(t *testing.T) {
	base := func() *Config {
		cfg := &Config{
			Server: ServerConfig{Port: 8080, Mode: "release"},
			Log:    LogConfig{Level: "info", Format: "json", Output: "stdout"},
		}
		applyDefaults(cfg)
		return cfg
	}

	testCases := []struct {
		name   string
		mutate func(cfg *Config)
		hasErr bool
	}{
		{name: "valid", mutate: func(cfg *Config) {}},
		{name: "invalid port", mutate: func(cfg *Config) { cfg.Server.Port = 70000 }, hasErr: true},
		{name: "invalid mode", mutate: func(cfg *Config) { cfg.Server.Mode = "turbo" }, hasErr: true},
		{name: "invalid storage", mutate: func(cfg *Config) { cfg.Storage.Driver = "sqlite" }, hasErr: true},
		{name: "mysql without host", mutate: func(cfg *Config) { cfg.Storage.Driver = "mysql" }, hasErr: true},
		{name: "cache without redis", mutate: func(cfg *Config) { cfg.Storage.Cache = true }, hasErr: true},
		{name: "invalid log level", mutate: func(cfg *Config) { cfg.Log.Level = "verbose" }, hasErr: true},
		{name: "file output without path", mutate: func(cfg *Config) { cfg.Log.Output = "file" }, hasErr: true},
		{name: "nats without url", mutate: func(cfg *Config) { cfg.NATS.Enabled = true }, hasErr: true},
		{name: "email without recipients", mutate: func(cfg *Config) {
			cfg.Notify.Email = EmailConfig{Enabled: true, SMTPHost: "smtp.local", FromEmail: "a@b.c"}
		}, hasErr: true},
		{name: "webhook without url", mutate: func(cfg *Config) {
			cfg.Notify.Webhooks = []WebhookConfig{{Name: "x"}}
		}, hasErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := validateConfig(cfg)
			if tc.hasErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestConfigWatcherWatchedFiles 监听文件过滤
func TestConfigWatcherWatchedFiles(t *testing.T) {
	cw, err := NewConfigWatcher(t.TempDir(), "development", "rules/thresholds.yaml")
	require.NoError(t, err)
	defer cw.watcher.Close()

	assert.True(t, cw.isWatchedFile("/etc/secmonitor/config.yaml"))
	assert.True(t, cw.isWatchedFile("/etc/secmonitor/thresholds.yaml"))
	assert.False(t, cw.isWatchedFile("/etc/secmonitor/other.yaml"))
	assert.False(t, cw.isWatchedFile("/etc/secmonitor/config.json"))
}
