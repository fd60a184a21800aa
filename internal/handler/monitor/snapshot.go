package monitor

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
)

// IngestSnapshot 摄取评估完成快照
// 新快照 201，重复 assessment_id 200 且 duplicate=true
func (h *MonitorHandler) IngestSnapshot(c *gin.Context) {
	meta := newRequestMeta(c)

	var snapshot monitorModel.SecuritySnapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		h.writeBindError(c, meta, err, "ingest_snapshot")
		return
	}

	result, err := h.ingest.Submit(c.Request.Context(), &snapshot)
	if err != nil {
		h.writeError(c, meta, err, "ingest_snapshot", map[string]interface{}{
			"tenant_id":     snapshot.TenantID,
			"assessment_id": snapshot.AssessmentID,
		})
		return
	}

	if result.Duplicate {
		writeSuccess(c, http.StatusOK, "Assessment already ingested", result)
		return
	}

	logger.LogBusinessOperation("ingest_snapshot", snapshot.TenantID, meta.clientIP, meta.requestID, "success", "Snapshot accepted", map[string]interface{}{
		"option":        "pipeline.Submit",
		"func_name":     "handler.monitor.IngestSnapshot",
		"assessment_id": snapshot.AssessmentID,
		"alerts":        len(result.Alerts),
	})
	writeSuccess(c, http.StatusCreated, "Snapshot accepted", result)
}

// GetLatestSnapshot 租户最新快照
func (h *MonitorHandler) GetLatestSnapshot(c *gin.Context) {
	meta := newRequestMeta(c)
	tenantID := c.Param("tenant_id")

	snapshot, err := h.monitor.LatestSnapshot(c.Request.Context(), tenantID)
	if err != nil {
		h.writeError(c, meta, err, "get_latest_snapshot", map[string]interface{}{"tenant_id": tenantID})
		return
	}
	writeSuccess(c, http.StatusOK, "Latest snapshot retrieved successfully", snapshot)
}

// ListSnapshots 快照历史，days 默认 30
func (h *MonitorHandler) ListSnapshots(c *gin.Context) {
	meta := newRequestMeta(c)
	tenantID := c.Param("tenant_id")

	days, err := parseDays(c)
	if err != nil {
		h.writeError(c, meta, err, "list_snapshots", map[string]interface{}{"tenant_id": tenantID})
		return
	}

	snapshots, err := h.monitor.SnapshotHistory(c.Request.Context(), tenantID, days)
	if err != nil {
		h.writeError(c, meta, err, "list_snapshots", map[string]interface{}{"tenant_id": tenantID, "days": days})
		return
	}
	writeSuccess(c, http.StatusOK, "Snapshots retrieved successfully", gin.H{
		"tenant_id": tenantID,
		"days":      days,
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
}

// parseDays 解析 days 查询参数
func parseDays(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("days", "30")
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, monitorModel.NewValidationError("days", "must be an integer, got %q", raw)
	}
	return days, nil
}
