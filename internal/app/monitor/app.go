/**
 * 应用:安全监控服务
 * @description: 组装存储、消息总线、监控模块和路由，并管理它们的启动与关闭
 * @func:
 * - NewApp   构建全部组件(不启动)
 * - Start    启动通知分发队列、摄取流水线、NATS 订阅和 HTTP 服务
 * - Shutdown 按 HTTP -> 订阅 -> 流水线 -> 分发队列 -> 连接 的顺序关闭
 */
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"secmonitor/internal/app/monitor/router"
	"secmonitor/internal/app/monitor/setup"
	"secmonitor/internal/config"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/metrics"
	"secmonitor/internal/service/ingest"
	"secmonitor/internal/service/notify"
)

// App 应用程序结构体
type App struct {
	config     *config.Config
	storage    *setup.StorageModule
	module     *setup.MonitorModule
	router     *router.Router
	natsConn   *nats.Conn
	subscriber *ingest.Subscriber
	server     *http.Server
}

// NewApp 创建应用程序实例
// registry 为 nil 时使用独立的注册器，避免重复注册默认注册器
func NewApp(cfg *config.Config, registry *prometheus.Registry) (_ *App, err error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := metrics.NewMetrics(registry)

	app := &App{config: cfg}
	defer func() {
		if err != nil {
			app.closeConnections()
		}
	}()

	app.storage, err = setup.BuildStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("build storage: %w", err)
	}

	var publisher notify.Publisher
	if cfg.NATS.Enabled {
		app.natsConn, err = ingest.Connect(cfg.NATS)
		if err != nil {
			return nil, err
		}
		publisher = app.natsConn
	}

	app.module, err = setup.BuildMonitorModule(cfg, app.storage.Repos, publisher, m)
	if err != nil {
		return nil, fmt.Errorf("build monitor module: %w", err)
	}

	if app.natsConn != nil {
		app.subscriber, err = ingest.NewSubscriber(app.natsConn, cfg.NATS, app.module.Pipeline, m)
		if err != nil {
			return nil, err
		}
	}

	app.router = router.NewRouter(cfg, app.module, registry, app.readinessChecks())
	app.router.SetupRoutes()

	app.server = &http.Server{
		Addr:           cfg.Server.GetAddress(),
		Handler:        app.router.GetEngine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return app, nil
}

// readinessChecks 按已启用的组件注册就绪检查
func (a *App) readinessChecks() map[string]router.ReadinessCheck {
	checks := map[string]router.ReadinessCheck{}
	if a.storage.DB != nil {
		checks["mysql"] = func(ctx context.Context) error {
			sqlDB, err := a.storage.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.storage.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.storage.Redis.Ping(ctx).Err()
		}
	}
	if a.natsConn != nil {
		checks["nats"] = func(context.Context) error {
			if !a.natsConn.IsConnected() {
				return fmt.Errorf("status %s", a.natsConn.Status())
			}
			return nil
		}
	}
	return checks
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *router.Router {
	return a.router
}

// GetModule 获取监控模块
func (a *App) GetModule() *setup.MonitorModule {
	return a.module
}

// Start 启动后台组件并开始监听 HTTP
// 返回的 channel 在 HTTP 服务异常退出时收到错误
func (a *App) Start() (<-chan error, error) {
	a.module.NotifyQueue.Start()
	a.module.Pipeline.Start()

	if a.subscriber != nil {
		if err := a.subscriber.Start(); err != nil {
			return nil, err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogSystemEvent("http", "listening", "HTTP server starting", logrus.InfoLevel, map[string]interface{}{
			"operation": "start_server",
			"option":    "http.Server.ListenAndServe",
			"func_name": "app.monitor.App.Start",
			"addr":      a.server.Addr,
		})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh, nil
}

// Shutdown 优雅关闭
// 先停止接收新请求和消息，再等待流水线处理完已入队的快照
func (a *App) Shutdown(ctx context.Context) error {
	var result *multierror.Error

	if err := a.server.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("shutdown http server: %w", err))
	}
	if a.subscriber != nil {
		if err := a.subscriber.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop nats subscriber: %w", err))
		}
	}
	if err := a.module.Pipeline.Stop(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop ingest pipeline: %w", err))
	}
	if err := a.module.NotifyQueue.Stop(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop notify queue: %w", err))
	}
	if err := a.closeConnections(); err != nil {
		result = multierror.Append(result, err)
	}

	logger.LogSystemEvent("app", "stopped", "application stopped", logrus.InfoLevel, map[string]interface{}{
		"operation": "shutdown",
		"option":    "app.Shutdown",
		"func_name": "app.monitor.App.Shutdown",
		"errors":    result.ErrorOrNil() != nil,
	})
	return result.ErrorOrNil()
}

// closeConnections 关闭 NATS 与存储连接
func (a *App) closeConnections() error {
	if a.natsConn != nil {
		a.natsConn.Close()
		a.natsConn = nil
	}
	if a.storage != nil {
		return a.storage.Close()
	}
	return nil
}
