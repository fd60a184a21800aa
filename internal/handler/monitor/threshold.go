package monitor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	monitorModel "secmonitor/internal/model/monitor"
)

// UpdateThresholdsRequest 替换租户阈值规则
type UpdateThresholdsRequest struct {
	Rules []monitorModel.AlertThreshold `json:"rules"`
}

// GetThresholds 租户生效规则及来源
func (h *MonitorHandler) GetThresholds(c *gin.Context) {
	meta := newRequestMeta(c)
	tenantID := c.Param("tenant_id")

	thresholds, err := h.thresholds.GetThresholds(c.Request.Context(), tenantID)
	if err != nil {
		h.writeError(c, meta, err, "get_thresholds", map[string]interface{}{"tenant_id": tenantID})
		return
	}
	writeSuccess(c, http.StatusOK, "Thresholds retrieved successfully", thresholds)
}

// UpdateThresholds 替换租户规则，空列表恢复默认
func (h *MonitorHandler) UpdateThresholds(c *gin.Context) {
	meta := newRequestMeta(c)
	tenantID := c.Param("tenant_id")

	var req UpdateThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, meta, err, "update_thresholds")
		return
	}

	thresholds, err := h.thresholds.UpdateThresholds(c.Request.Context(), tenantID, req.Rules)
	if err != nil {
		h.writeError(c, meta, err, "update_thresholds", map[string]interface{}{"tenant_id": tenantID, "rule_count": len(req.Rules)})
		return
	}
	writeSuccess(c, http.StatusOK, "Thresholds updated successfully", thresholds)
}
