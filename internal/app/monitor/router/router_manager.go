/**
 * 路由:路由管理器
 * @description: 路由管理器，包含Router结构体、NewRouter函数和SetupRoutes主函数
 */
package router

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"secmonitor/internal/app/monitor/middleware"
	"secmonitor/internal/app/monitor/setup"
	"secmonitor/internal/config"
	monitorHandler "secmonitor/internal/handler/monitor"
	"secmonitor/internal/pkg/logger"
)

// ReadinessCheck 就绪检查，返回 nil 表示组件可用
type ReadinessCheck func(ctx context.Context) error

// Router 路由管理器
type Router struct {
	config            *config.Config
	engine            *gin.Engine
	middlewareManager *middleware.MiddlewareManager
	monitorHandler    *monitorHandler.MonitorHandler
	gatherer          prometheus.Gatherer       // 为 nil 时不暴露指标接口
	Readiness         map[string]ReadinessCheck // 组件名 -> 检查函数
}

// NewRouter 创建路由管理器实例
func NewRouter(cfg *config.Config, module *setup.MonitorModule, gatherer prometheus.Gatherer, readiness map[string]ReadinessCheck) *Router {
	if readiness == nil {
		readiness = map[string]ReadinessCheck{}
	}

	switch cfg.Server.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	return &Router{
		config:            cfg,
		engine:            engine,
		middlewareManager: middleware.NewMiddlewareManager(&cfg.Security),
		monitorHandler:    module.MonitorHandler,
		gatherer:          gatherer,
		Readiness:         readiness,
	}
}

// SetupRoutes 设置全局中间件和路由
func (r *Router) SetupRoutes() {
	r.registerGlobalMiddleware()
	r.registerRoutes()
}

// GetEngine 获取Gin引擎实例
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// registerGlobalMiddleware 注册全局中间件
// 请求ID必须在日志之前，限流放在最后
func (r *Router) registerGlobalMiddleware() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(r.middlewareManager.GinRequestIDMiddleware())
	r.engine.Use(r.middlewareManager.GinCORSMiddleware())
	r.engine.Use(r.middlewareManager.GinSecurityHeadersMiddleware())
	r.engine.Use(r.middlewareManager.GinLoggingMiddleware())
	r.engine.Use(r.middlewareManager.GinRateLimitMiddleware())

	logger.WithFields(map[string]interface{}{
		"path":      "router_manager.registerGlobalMiddleware",
		"operation": "register_global_middleware",
		"option":    "middlewareManager.attach.done",
		"func_name": "router.registerGlobalMiddleware",
	}).Info("全局中间件注册完成")
}

// registerRoutes 注册路由
func (r *Router) registerRoutes() {
	api := r.engine.Group("/api")
	v1 := api.Group("/v1")

	// 安全监控路由
	r.setupMonitorRoutes(v1)
	// 健康检查路由
	r.setupHealthRoutes(api)
	// Prometheus 指标
	r.setupMetricsRoutes()

	logger.WithFields(map[string]interface{}{
		"path":      "router_manager.registerRoutes",
		"operation": "register_routes",
		"option":    "routes.attach.done",
		"func_name": "router.registerRoutes",
		"routes":    len(r.engine.Routes()),
	}).Info("路由注册完成")
}
