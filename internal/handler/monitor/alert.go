package monitor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
)

// ListActiveAlerts 活动告警 ?severity=critical
func (h *MonitorHandler) ListActiveAlerts(c *gin.Context) {
	meta := newRequestMeta(c)
	tenantID := c.Param("tenant_id")
	severity := monitorModel.Severity(c.Query("severity"))

	alerts, err := h.alerts.Active(c.Request.Context(), tenantID, severity)
	if err != nil {
		h.writeError(c, meta, err, "list_active_alerts", map[string]interface{}{"tenant_id": tenantID, "severity": severity})
		return
	}
	writeSuccess(c, http.StatusOK, "Active alerts retrieved successfully", gin.H{
		"tenant_id": tenantID,
		"count":     len(alerts),
		"alerts":    alerts,
	})
}

// ListAlertHistory 全部告警，含已确认
func (h *MonitorHandler) ListAlertHistory(c *gin.Context) {
	meta := newRequestMeta(c)
	tenantID := c.Param("tenant_id")

	alerts, err := h.alerts.History(c.Request.Context(), tenantID)
	if err != nil {
		h.writeError(c, meta, err, "list_alert_history", map[string]interface{}{"tenant_id": tenantID})
		return
	}
	writeSuccess(c, http.StatusOK, "Alert history retrieved successfully", gin.H{
		"tenant_id": tenantID,
		"count":     len(alerts),
		"alerts":    alerts,
	})
}

// AcknowledgeAlert 确认告警，不存在或已确认返回 404
func (h *MonitorHandler) AcknowledgeAlert(c *gin.Context) {
	meta := newRequestMeta(c)
	alertID := c.Param("alert_id")
	actor := c.GetHeader("X-Actor")
	if actor == "" {
		actor = "anonymous"
	}

	alert, err := h.alerts.Acknowledge(c.Request.Context(), alertID)
	if err != nil {
		logger.LogAuditOperation(actor, "acknowledge_alert", alertID, "failed", meta.clientIP, c.GetHeader("User-Agent"), meta.requestID, map[string]interface{}{
			"option":    "alertService.Acknowledge",
			"func_name": "handler.monitor.AcknowledgeAlert",
		})
		h.writeError(c, meta, err, "acknowledge_alert", map[string]interface{}{"alert_id": alertID})
		return
	}

	logger.LogAuditOperation(actor, "acknowledge_alert", alertID, "success", meta.clientIP, c.GetHeader("User-Agent"), meta.requestID, map[string]interface{}{
		"option":    "alertService.Acknowledge",
		"func_name": "handler.monitor.AcknowledgeAlert",
		"tenant_id": alert.TenantID,
		"metric":    string(alert.Metric),
	})
	writeSuccess(c, http.StatusOK, "Alert acknowledged successfully", alert)
}
