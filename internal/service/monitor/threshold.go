/**
 * 服务层:阈值配置服务
 * @description: 解析租户生效规则，优先级 租户配置(API) > 规则文件租户段 > 规则文件defaults > 内置默认
 * @func:
 * - Resolve 流水线评估时取规则
 * - GetThresholds / UpdateThresholds 对外接口
 * - ReloadFile 规则文件热重载(ConfigWatcher 回调)
 */
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	monitorModel "secmonitor/internal/model/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/repo"
)

// ThresholdService 阈值配置服务接口
type ThresholdService interface {
	Resolve(ctx context.Context, tenantID string) ([]monitorModel.AlertThreshold, error)
	GetThresholds(ctx context.Context, tenantID string) (*monitorModel.TenantThresholds, error)
	UpdateThresholds(ctx context.Context, tenantID string, rules []monitorModel.AlertThreshold) (*monitorModel.TenantThresholds, error)
	ReloadFile(path string) error
}

type thresholdService struct {
	repo repo.ThresholdRepository
	file atomic.Pointer[ThresholdFile]
}

// NewThresholdService 创建阈值服务
// path 为空时只使用内置默认规则
func NewThresholdService(thresholdRepo repo.ThresholdRepository, path string) (ThresholdService, error) {
	s := &thresholdService{repo: thresholdRepo}
	if path != "" {
		if err := s.ReloadFile(path); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Resolve 流水线使用的规则
func (s *thresholdService) Resolve(ctx context.Context, tenantID string) ([]monitorModel.AlertThreshold, error) {
	resolved, err := s.GetThresholds(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return resolved.Rules, nil
}

// GetThresholds 租户生效规则及来源
func (s *thresholdService) GetThresholds(ctx context.Context, tenantID string) (*monitorModel.TenantThresholds, error) {
	if tenantID == "" {
		return nil, monitorModel.NewValidationError("tenant_id", "is required")
	}

	rules, err := s.repo.Get(ctx, tenantID)
	switch {
	case err == nil:
		return &monitorModel.TenantThresholds{TenantID: tenantID, Source: monitorModel.ThresholdSourceTenant, Rules: rules}, nil
	case !errors.Is(err, monitorModel.ErrNotFound):
		logger.LogError(err, "", "", "service.monitor.threshold.GetThresholds", "", map[string]interface{}{
			"operation": "get_thresholds",
			"option":    "thresholdRepo.Get",
			"func_name": "service.monitor.threshold.GetThresholds",
			"tenant_id": tenantID,
		})
		return nil, fmt.Errorf("load thresholds for %s: %w", tenantID, err)
	}

	if file := s.file.Load(); file != nil {
		if rules, ok := file.Tenants[tenantID]; ok && len(rules) > 0 {
			return &monitorModel.TenantThresholds{TenantID: tenantID, Source: monitorModel.ThresholdSourceFile, Rules: cloneRules(rules)}, nil
		}
		if len(file.Defaults) > 0 {
			return &monitorModel.TenantThresholds{TenantID: tenantID, Source: monitorModel.ThresholdSourceFile, Rules: cloneRules(file.Defaults)}, nil
		}
	}

	return &monitorModel.TenantThresholds{
		TenantID: tenantID,
		Source:   monitorModel.ThresholdSourceDefault,
		Rules:    monitorModel.DefaultThresholds(),
	}, nil
}

// UpdateThresholds 替换租户规则，空列表清除租户配置
func (s *thresholdService) UpdateThresholds(ctx context.Context, tenantID string, rules []monitorModel.AlertThreshold) (*monitorModel.TenantThresholds, error) {
	if tenantID == "" {
		return nil, monitorModel.NewValidationError("tenant_id", "is required")
	}
	if err := monitorModel.ValidateThresholds(rules); err != nil {
		return nil, err
	}

	normalized := make([]monitorModel.AlertThreshold, len(rules))
	for i, r := range rules {
		r.Kind = r.EffectiveKind()
		normalized[i] = r
	}

	if err := s.repo.Replace(ctx, tenantID, normalized); err != nil {
		logger.LogError(err, "", "", "service.monitor.threshold.UpdateThresholds", "", map[string]interface{}{
			"operation": "update_thresholds",
			"option":    "thresholdRepo.Replace",
			"func_name": "service.monitor.threshold.UpdateThresholds",
			"tenant_id": tenantID,
		})
		return nil, fmt.Errorf("save thresholds for %s: %w", tenantID, err)
	}

	logger.LogBusinessOperation("update_thresholds", tenantID, "", "", "success", "tenant thresholds replaced", map[string]interface{}{
		"option":     "thresholdRepo.Replace",
		"func_name":  "service.monitor.threshold.UpdateThresholds",
		"rule_count": len(normalized),
	})

	return s.GetThresholds(ctx, tenantID)
}

// ReloadFile 重新加载规则文件，失败时保留旧规则
func (s *thresholdService) ReloadFile(path string) error {
	file, err := LoadThresholdFile(path)
	if err != nil {
		logger.LogWarn("threshold file reload failed, keeping previous rules", "", "", "service.monitor.threshold.ReloadFile", "", map[string]interface{}{
			"operation": "reload_thresholds",
			"option":    "LoadThresholdFile",
			"func_name": "service.monitor.threshold.ReloadFile",
			"path":      path,
			"error":     err.Error(),
		})
		return err
	}
	s.file.Store(file)

	logger.LogInfo("threshold file loaded", "", "", "service.monitor.threshold.ReloadFile", "", map[string]interface{}{
		"operation":     "reload_thresholds",
		"option":        "file.Store",
		"func_name":     "service.monitor.threshold.ReloadFile",
		"path":          path,
		"default_rules": len(file.Defaults),
		"tenant_rules":  len(file.Tenants),
	})
	return nil
}

func cloneRules(rules []monitorModel.AlertThreshold) []monitorModel.AlertThreshold {
	return append([]monitorModel.AlertThreshold(nil), rules...)
}
