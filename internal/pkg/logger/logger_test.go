package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"secmonitor/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerRejectsNilConfig(t *testing.T) {
	_, err := InitLogger(nil)
	assert.Error(t, err)
}

func TestInitLoggerInvalidFormat(t *testing.T) {
	_, err := InitLogger(&config.LogConfig{Level: "info", Format: "xml", Output: "stdout"})
	assert.Error(t, err)
}

// TestFileHookSplitsByType 不同 type 的日志写入不同文件
func TestFileHookSplitsByType(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: filepath.Join(dir, "app.log"),
		MaxSize:  1,
	}

	lm, err := InitLogger(cfg)
	require.NoError(t, err)
	defer func() { LoggerInstance = nil }()

	LogBusinessOperation("ingest_snapshot", "acme", "127.0.0.1", "req-1", "success", "ok", nil)
	LogError(errors.New("boom"), "req-2", "127.0.0.1", "/x", "GET", map[string]interface{}{"operation": "test"})
	LogSystemEvent("pipeline", "startup", "started", logrus.InfoLevel, nil)
	LogAlertEvent("triggered", "acme", "a-1", "critical", nil)
	lm.GetLogger().Info("plain")

	for _, name := range []string{"business.log", "error.log", "system.log", "alert.log", "app.log"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "boom")
	assert.Contains(t, string(data), `"operation":"test"`)
}

func TestUpdateConfigChangesLevel(t *testing.T) {
	lm, err := InitLogger(&config.LogConfig{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	defer func() { LoggerInstance = nil }()

	require.NoError(t, lm.UpdateConfig(&config.LogConfig{Level: "warn", Format: "text", Output: "stdout"}))
	assert.Equal(t, logrus.WarnLevel, lm.GetLogger().GetLevel())
	assert.Equal(t, "warn", lm.GetConfig().Level)

	assert.Error(t, lm.UpdateConfig(&config.LogConfig{Level: "loud", Format: "text"}))
}

func TestHelpersNoopWithoutInstance(t *testing.T) {
	LoggerInstance = nil
	assert.NotPanics(t, func() {
		LogInfo("x", "", "", "", "", nil)
		LogWarn("x", "", "", "", "", nil)
		LogBusinessError(errors.New("x"), "", "", "", "", nil)
		LogAuditOperation("", "ack", "alert", "success", "", "", "", nil)
	})
}
