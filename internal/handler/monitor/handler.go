/**
 * 处理器:安全监控接口
 * @description: /api/v1/monitoring 下的全部接口，调用方已在上游完成鉴权
 */
package monitor

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"secmonitor/internal/model"
	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/utils"
	monitorService "secmonitor/internal/service/monitor"
)

// Submitter 摄取入口，service/ingest.Pipeline 满足该接口
type Submitter interface {
	Submit(ctx context.Context, snapshot *monitorModel.SecuritySnapshot) (*monitorModel.IngestResult, error)
}

// MonitorHandler 安全监控处理器
type MonitorHandler struct {
	ingest     Submitter
	monitor    monitorService.MonitorService
	alerts     monitorService.AlertService
	dashboard  monitorService.DashboardService
	trends     monitorService.TrendAnalyzer
	thresholds monitorService.ThresholdService
}

// NewMonitorHandler 创建处理器
func NewMonitorHandler(
	ingest Submitter,
	monitor monitorService.MonitorService,
	alerts monitorService.AlertService,
	dashboard monitorService.DashboardService,
	trends monitorService.TrendAnalyzer,
	thresholds monitorService.ThresholdService,
) *MonitorHandler {
	return &MonitorHandler{
		ingest:     ingest,
		monitor:    monitor,
		alerts:     alerts,
		dashboard:  dashboard,
		trends:     trends,
		thresholds: thresholds,
	}
}

// requestMeta 日志用的请求信息
type requestMeta struct {
	clientIP  string
	requestID string
	path      string
	method    string
}

func newRequestMeta(c *gin.Context) requestMeta {
	return requestMeta{
		clientIP:  utils.GetClientIP(c),
		requestID: utils.GetRequestID(c),
		path:      c.Request.URL.String(),
		method:    c.Request.Method,
	}
}

// getErrorStatusCode 根据错误类型返回对应的HTTP状态码
func getErrorStatusCode(err error) int {
	switch {
	case errors.Is(err, monitorModel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, monitorModel.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, monitorModel.ErrDuplicateAssessment):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError 记录日志并返回错误响应，500 不暴露内部错误细节
func (h *MonitorHandler) writeError(c *gin.Context, meta requestMeta, err error, operation string, extra map[string]interface{}) {
	status := getErrorStatusCode(err)

	fields := map[string]interface{}{
		"operation":  operation,
		"option":     "handler.writeError",
		"func_name":  "handler.monitor." + operation,
		"status":     status,
		"user_agent": c.GetHeader("User-Agent"),
	}
	for k, v := range extra {
		fields[k] = v
	}

	resp := model.APIResponse{Code: status, Status: "failed"}
	switch status {
	case http.StatusNotFound:
		logger.LogBusinessError(err, meta.requestID, meta.clientIP, meta.path, meta.method, fields)
		resp.Message = "Resource not found"
		resp.Error = err.Error()
	case http.StatusBadRequest, http.StatusConflict:
		logger.LogBusinessError(err, meta.requestID, meta.clientIP, meta.path, meta.method, fields)
		resp.Message = "Invalid request"
		resp.Error = err.Error()
	default:
		logger.LogError(err, meta.requestID, meta.clientIP, meta.path, meta.method, fields)
		resp.Message = "Internal server error"
		resp.Error = "internal error"
	}
	c.JSON(status, resp)
}

// writeBindError 请求体解析失败
func (h *MonitorHandler) writeBindError(c *gin.Context, meta requestMeta, err error, operation string) {
	logger.LogBusinessError(err, meta.requestID, meta.clientIP, meta.path, meta.method, map[string]interface{}{
		"operation": operation,
		"option":    "ShouldBindJSON",
		"func_name": "handler.monitor." + operation,
		"error":     "invalid_json",
	})
	c.JSON(http.StatusBadRequest, model.APIResponse{
		Code:    http.StatusBadRequest,
		Status:  "failed",
		Message: "Invalid request body",
		Error:   err.Error(),
	})
}

func writeSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, model.APIResponse{
		Code:    status,
		Status:  "success",
		Message: message,
		Data:    data,
	})
}
