package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	monitorApp "secmonitor/internal/app/monitor"
	"secmonitor/internal/config"
	"secmonitor/internal/pkg/logger"
)

// shutdownTimeout 优雅关闭等待时间
const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, ingest pipeline and NATS subscriber",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(opts, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "reload log level and threshold file when configuration changes")
	return cmd
}

func runServe(opts *globalOptions, watch bool) error {
	cfg, lm, err := loadRuntime(opts)
	if err != nil {
		return err
	}

	app, err := monitorApp.NewApp(cfg, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if watch {
		watcher, err := newConfigWatcher(opts, cfg, lm, app)
		if err != nil {
			logger.LogSystemEvent("config", "watch_disabled", "config watcher unavailable", logrus.WarnLevel, map[string]interface{}{
				"operation": "config_watch",
				"option":    "config.NewConfigWatcher",
				"func_name": "main.runServe",
				"error":     err.Error(),
			})
		} else {
			defer watcher.Stop()
		}
	}

	errCh, err := app.Start()
	if err != nil {
		shutdownApp(app)
		return fmt.Errorf("start app: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.LogSystemEvent("app", "signal", "shutting down", logrus.InfoLevel, map[string]interface{}{
			"operation": "shutdown",
			"option":    "signal.Notify",
			"func_name": "main.runServe",
			"signal":    sig.String(),
		})
	case err, ok := <-errCh:
		if ok && err != nil {
			shutdownApp(app)
			return fmt.Errorf("http server: %w", err)
		}
	}

	return shutdownApp(app)
}

func shutdownApp(app *monitorApp.App) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.Shutdown(ctx)
}

// newConfigWatcher 配置热重载：日志配置和阈值规则文件
// 其余配置项(端口、存储驱动、通知渠道)需要重启生效
func newConfigWatcher(opts *globalOptions, cfg *config.Config, lm *logger.LoggerManager, app *monitorApp.App) (*config.ConfigWatcher, error) {
	configPath := opts.configPath
	if configPath == "" {
		configPath = os.Getenv("SECMONITOR_CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "configs"
	}

	var extra []string
	if cfg.Alerting.ThresholdFile != "" {
		// 只有和配置文件同目录的规则文件会被监听到
		if filepath.Dir(cfg.Alerting.ThresholdFile) == filepath.Clean(configPath) {
			extra = append(extra, cfg.Alerting.ThresholdFile)
		}
	}

	watcher, err := config.NewConfigWatcher(configPath, opts.env, extra...)
	if err != nil {
		return nil, err
	}

	watcher.AddCallback(func(_, newCfg *config.Config) error {
		return lm.UpdateConfig(&newCfg.Log)
	})
	watcher.AddCallback(func(_, newCfg *config.Config) error {
		if newCfg.Alerting.ThresholdFile == "" {
			return nil
		}
		return app.GetModule().ThresholdService.ReloadFile(newCfg.Alerting.ThresholdFile)
	})

	if err := watcher.Start(); err != nil {
		_ = watcher.Stop()
		return nil, err
	}
	return watcher, nil
}
