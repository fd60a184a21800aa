package monitor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	monitorModel "secmonitor/internal/model/monitor"
)

// ThresholdFile 阈值规则文件结构
//
//	defaults:
//	  - {metric: overall_score, severity: critical, comparator: lt, value: 60}
//	tenants:
//	  AcmeCorp:
//	    - {metric: critical_findings, severity: critical, comparator: gte, value: 1}
type ThresholdFile struct {
	Defaults []monitorModel.AlertThreshold            `yaml:"defaults"`
	Tenants  map[string][]monitorModel.AlertThreshold `yaml:"tenants"`
}

// LoadThresholdFile 读取并校验阈值规则文件
func LoadThresholdFile(path string) (*ThresholdFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read threshold file %s: %w", path, err)
	}
	return ParseThresholdFile(data)
}

// ParseThresholdFile 解析阈值规则
func ParseThresholdFile(data []byte) (*ThresholdFile, error) {
	var file ThresholdFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse threshold file: %w", err)
	}

	if err := monitorModel.ValidateThresholds(file.Defaults); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	for tenant, rules := range file.Tenants {
		if err := monitorModel.ValidateThresholds(rules); err != nil {
			return nil, fmt.Errorf("tenant %s: %w", tenant, err)
		}
	}
	return &file, nil
}
