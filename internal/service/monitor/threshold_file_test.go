package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	monitorModel "secmonitor/internal/model/monitor"
)

// 仓库自带的规则文件必须能通过校验
func TestShippedThresholdFile(t *testing.T) {
	file, err := LoadThresholdFile("../../../configs/thresholds.yaml")
	require.NoError(t, err)

	assert.Equal(t, monitorModel.DefaultThresholds(), normalizeKinds(file.Defaults))
	require.Contains(t, file.Tenants, "AcmeCorp")
	for _, rule := range file.Tenants["AcmeCorp"] {
		assert.Equal(t, monitorModel.SeverityCritical, rule.Severity)
	}
}

func normalizeKinds(rules []monitorModel.AlertThreshold) []monitorModel.AlertThreshold {
	out := make([]monitorModel.AlertThreshold, len(rules))
	for i, r := range rules {
		r.Kind = r.EffectiveKind()
		out[i] = r
	}
	return out
}
