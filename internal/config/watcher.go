/*
ConfigWatcher 配置文件监听器
监听配置目录的变化，当配置文件或附加的规则文件(如阈值规则文件)发生变化时，
重新加载配置并调用注册的回调函数。

工作方式:
1. 监听配置文件所在目录。
2. 对写入/创建事件做 500ms 防抖。
3. 重新加载配置，将旧配置和新配置传给每个回调；单个回调失败不影响其他回调。
*/
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify" // 文件系统监听库
	"github.com/sirupsen/logrus"
)

// ConfigWatcher 配置文件监听器
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher   // 文件系统监听器
	configPath string              // 配置文件目录
	env        string              // 环境标识
	extraFiles map[string]struct{} // 额外关注的文件(基名)
	callbacks  []ReloadCallback    // 重载回调函数列表
	mu         sync.RWMutex        // 读写锁
	ctx        context.Context     // 上下文
	cancel     context.CancelFunc  // 取消函数
	done       chan struct{}       // 完成信号
	debounce   time.Duration       // 防抖间隔
}

// ReloadCallback 配置重载回调函数类型
type ReloadCallback func(oldConfig, newConfig *Config) error

// NewConfigWatcher 创建配置文件监听器
// extraFiles: 除 config*.yaml 外需要触发重载的文件，例如告警阈值规则文件
func NewConfigWatcher(configPath, env string, extraFiles ...string) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	extras := make(map[string]struct{}, len(extraFiles))
	for _, f := range extraFiles {
		if f != "" {
			extras[filepath.Base(f)] = struct{}{}
		}
	}

	return &ConfigWatcher{
		watcher:    watcher,
		configPath: configPath,
		env:        env,
		extraFiles: extras,
		callbacks:  make([]ReloadCallback, 0),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		debounce:   500 * time.Millisecond,
	}, nil
}

// Start 启动配置文件监听
func (cw *ConfigWatcher) Start() error {
	if cw.configPath == "" {
		cw.configPath = getDefaultConfigPath()
	}

	if err := cw.watcher.Add(cw.configPath); err != nil {
		return fmt.Errorf("failed to add config path to watcher: %w", err)
	}

	go cw.watchLoop()

	logrus.WithFields(logrus.Fields{
		"operation": "config_watch",
		"option":    "watcher.Start",
		"func_name": "config.ConfigWatcher.Start",
		"path":      cw.configPath,
	}).Info("Config watcher started")
	return nil
}

// Stop 停止配置文件监听
func (cw *ConfigWatcher) Stop() error {
	cw.cancel()

	select {
	case <-cw.done:
	case <-time.After(5 * time.Second):
		logrus.Warn("Config watcher stop timeout")
	}

	return cw.watcher.Close()
}

// AddCallback 添加配置重载回调函数
func (cw *ConfigWatcher) AddCallback(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// watchLoop 监听循环
func (cw *ConfigWatcher) watchLoop() {
	defer close(cw.done)

	// 防抖动定时器
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}

	for {
		select {
		case <-cw.ctx.Done():
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			// 只处理写入和创建事件
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if cw.isWatchedFile(event.Name) {
					logrus.WithFields(logrus.Fields{
						"operation": "config_watch",
						"option":    "fsnotify.event",
						"func_name": "config.ConfigWatcher.watchLoop",
						"file":      event.Name,
					}).Info("Config file changed")
					debounceTimer.Reset(cw.debounce)
				}
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("Config watcher error")

		case <-debounceTimer.C:
			if err := cw.reloadConfig(); err != nil {
				logrus.WithError(err).Error("Failed to reload config")
			}
		}
	}
}

// isWatchedFile 检查是否为需要关注的文件
func (cw *ConfigWatcher) isWatchedFile(filename string) bool {
	baseName := filepath.Base(filename)

	if _, ok := cw.extraFiles[baseName]; ok {
		return true
	}

	switch baseName {
	case "config.yaml", "config.yml",
		"config.test.yaml", "config.test.yml",
		"config.prod.yaml", "config.prod.yml":
		return true
	}
	return false
}

// reloadConfig 重载配置
func (cw *ConfigWatcher) reloadConfig() error {
	oldConfig := GlobalConfig

	newConfig, err := LoadConfig(cw.configPath, cw.env)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	cw.mu.RLock()
	callbacks := make([]ReloadCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback(oldConfig, newConfig); err != nil {
			// 继续执行其他回调，不因为一个回调失败而中断
			logrus.WithError(err).Warn("Config reload callback error")
		}
	}

	logrus.Info("Config reloaded successfully")
	return nil
}
