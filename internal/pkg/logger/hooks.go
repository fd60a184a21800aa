package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"secmonitor/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileHook 按日志条目的 type 字段把日志写入不同文件
// access.log / business.log / error.log / system.log / audit.log / alert.log
type FileHook struct {
	logConfig *config.LogConfig
	writers   map[string]io.Writer
	formatter logrus.Formatter
	mutex     sync.Mutex
}

// NewFileHook 创建一个新的FileHook实例
func NewFileHook(logConfig *config.LogConfig) *FileHook {
	hook := &FileHook{
		logConfig: logConfig,
		writers:   make(map[string]io.Writer),
		formatter: newJSONFormatter(),
	}

	if logConfig.FilePath != "" {
		hook.writers["default"] = hook.newRotatingWriter(logConfig.FilePath)
	}

	return hook
}

// Levels 返回此Hook关心的所有日志级别
func (hook *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire 在日志触发时执行
func (hook *FileHook) Fire(entry *logrus.Entry) error {
	logType := "default"
	if lt, ok := entry.Data["type"]; ok {
		switch t := lt.(type) {
		case LogType:
			logType = string(t)
		case string:
			logType = t
		}
	}

	writer := hook.getWriter(logType)
	if writer == nil {
		return nil
	}

	formatted, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	hook.mutex.Lock()
	defer hook.mutex.Unlock()
	_, err = writer.Write(formatted)
	return err
}

// getWriter 获取指定类型的writer，不存在则按需创建
func (hook *FileHook) getWriter(logType string) io.Writer {
	hook.mutex.Lock()
	defer hook.mutex.Unlock()

	if writer, exists := hook.writers[logType]; exists {
		return writer
	}

	switch LogType(logType) {
	case AccessLog, BusinessLog, ErrorLog, SystemLog, AuditLog, AlertLog:
	default:
		return hook.writers["default"]
	}

	logDir := filepath.Dir(hook.logConfig.FilePath)
	writer := hook.newRotatingWriter(filepath.Join(logDir, logType+".log"))
	hook.writers[logType] = writer

	return writer
}

func (hook *FileHook) newRotatingWriter(filename string) io.Writer {
	_ = os.MkdirAll(filepath.Dir(filename), 0755)
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    hook.logConfig.MaxSize,
		MaxBackups: hook.logConfig.MaxBackups,
		MaxAge:     hook.logConfig.MaxAge,
		Compress:   hook.logConfig.Compress,
	}
}
