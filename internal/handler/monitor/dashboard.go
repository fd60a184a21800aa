package monitor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	monitorModel "secmonitor/internal/model/monitor"
)

// GetDashboard 租户仪表盘
func (h *MonitorHandler) GetDashboard(c *gin.Context) {
	meta := newRequestMeta(c)
	tenantID := c.Param("tenant_id")

	dashboard, err := h.dashboard.Dashboard(c.Request.Context(), tenantID)
	if err != nil {
		h.writeError(c, meta, err, "get_dashboard", map[string]interface{}{"tenant_id": tenantID})
		return
	}
	writeSuccess(c, http.StatusOK, "Dashboard retrieved successfully", dashboard)
}

// GetTrend 指标趋势 ?metric=overall_score&days=30
func (h *MonitorHandler) GetTrend(c *gin.Context) {
	meta := newRequestMeta(c)
	tenantID := c.Param("tenant_id")
	ctx := c.Request.Context()

	metric, err := monitorModel.ParseMetric(c.DefaultQuery("metric", string(monitorModel.MetricOverallScore)))
	if err != nil {
		h.writeError(c, meta, err, "get_trend", map[string]interface{}{"tenant_id": tenantID})
		return
	}
	days, err := parseDays(c)
	if err != nil {
		h.writeError(c, meta, err, "get_trend", map[string]interface{}{"tenant_id": tenantID})
		return
	}

	series, err := h.trends.Series(ctx, tenantID, metric, days)
	if err != nil {
		h.writeError(c, meta, err, "get_trend", map[string]interface{}{"tenant_id": tenantID, "metric": metric, "days": days})
		return
	}
	direction, err := h.trends.Direction(ctx, tenantID)
	if err != nil {
		h.writeError(c, meta, err, "get_trend", map[string]interface{}{"tenant_id": tenantID})
		return
	}

	writeSuccess(c, http.StatusOK, "Trend retrieved successfully", monitorModel.TrendReport{
		TenantID:  tenantID,
		Series:    *series,
		Direction: direction,
	})
}

// ListMetrics 支持的指标列表
func (h *MonitorHandler) ListMetrics(c *gin.Context) {
	writeSuccess(c, http.StatusOK, "Metrics retrieved successfully", monitorModel.AllMetrics())
}
