/**
 * 路由:健康检查路由
 * @description: 健康/就绪/存活检查，以及 Prometheus 指标接口
 */
package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"secmonitor/internal/model"
	"secmonitor/internal/pkg/logger"
)

// readinessTimeout 单次就绪检查的超时
const readinessTimeout = 3 * time.Second

// setupHealthRoutes 设置健康检查路由
func (r *Router) setupHealthRoutes(api *gin.RouterGroup) {
	api.GET("/health", r.healthCheck)
	api.GET("/ready", r.readinessCheck)
	api.GET("/live", r.livenessCheck)
}

// setupMetricsRoutes 挂载 Prometheus 指标接口
func (r *Router) setupMetricsRoutes() {
	if !r.config.Monitor.Metrics.Enabled || r.gatherer == nil {
		return
	}
	r.engine.GET(r.config.Monitor.Metrics.Path, gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
}

// healthCheck 健康检查处理器
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:    "healthy",
		Timestamp: logger.FormatTimestamp(time.Now()),
		Version:   r.config.App.Version,
	})
}

// readinessCheck 就绪检查处理器
// 任一组件检查失败返回 503
func (r *Router) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(r.Readiness))
	for name := range r.Readiness {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ready"
	code := http.StatusOK
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := r.Readiness[name](ctx); err != nil {
			components[name] = "unavailable: " + err.Error()
			status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	c.JSON(code, model.HealthResponse{
		Status:     status,
		Timestamp:  logger.FormatTimestamp(time.Now()),
		Version:    r.config.App.Version,
		Components: components,
	})
}

// livenessCheck 存活检查处理器
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:    "alive",
		Timestamp: logger.FormatTimestamp(time.Now()),
	})
}
