/**
 * 路由:安全监控路由
 * @description: /api/v1/monitoring，调用方已在上游网关完成鉴权
 */
package router

import "github.com/gin-gonic/gin"

// setupMonitorRoutes 设置安全监控路由
func (r *Router) setupMonitorRoutes(v1 *gin.RouterGroup) {
	monitoring := v1.Group("/monitoring")
	{
		// 评估完成快照摄取
		monitoring.POST("/snapshots", r.monitorHandler.IngestSnapshot)
		// 可用指标列表
		monitoring.GET("/metrics", r.monitorHandler.ListMetrics)
		// 告警确认
		monitoring.POST("/alerts/:alert_id/acknowledge", r.monitorHandler.AcknowledgeAlert)
	}

	tenant := monitoring.Group("/tenants/:tenant_id")
	{
		tenant.GET("/dashboard", r.monitorHandler.GetDashboard)
		tenant.GET("/trend", r.monitorHandler.GetTrend)

		tenant.GET("/snapshots", r.monitorHandler.ListSnapshots)
		tenant.GET("/snapshots/latest", r.monitorHandler.GetLatestSnapshot)

		tenant.GET("/alerts", r.monitorHandler.ListActiveAlerts)
		tenant.GET("/alerts/history", r.monitorHandler.ListAlertHistory)

		tenant.GET("/thresholds", r.monitorHandler.GetThresholds)
		tenant.PUT("/thresholds", r.monitorHandler.UpdateThresholds)
	}
}
