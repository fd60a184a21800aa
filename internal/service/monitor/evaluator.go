/**
 * 服务层:阈值评估
 * @description: 纯函数规则引擎，比较新快照(及与上一快照的差值)和阈值规则，输出候选告警
 * @func:
 * - Evaluate 每个指标最多输出一个候选：最严重的命中规则胜出；同级时 absolute 优先于 delta，再按配置顺序
 */
package monitor

import (
	monitorModel "secmonitor/internal/model/monitor"
)

// Evaluate 评估快照
// previous 为 nil 时 delta 规则不参与评估；快照上缺失的指标(合规分未评估、类别缺失)跳过
func Evaluate(current, previous *monitorModel.SecuritySnapshot, rules []monitorModel.AlertThreshold) []monitorModel.Trigger {
	if current == nil {
		return nil
	}

	best := make(map[monitorModel.MonitoringMetric]monitorModel.Trigger)

	for _, rule := range rules {
		value, ok := rule.Metric.Extract(current)
		if !ok {
			continue
		}

		if rule.EffectiveKind() == monitorModel.KindDelta {
			if previous == nil {
				continue
			}
			prev, ok := rule.Metric.Extract(previous)
			if !ok {
				continue
			}
			value -= prev
		}

		if !rule.Comparator.Compare(value, rule.Value) {
			continue
		}

		candidate := monitorModel.Trigger{
			Metric:         rule.Metric,
			Severity:       rule.Severity,
			CurrentValue:   value,
			ThresholdValue: rule.Value,
			Rule:           rule,
		}
		if existing, ok := best[rule.Metric]; !ok || outranks(candidate, existing) {
			best[rule.Metric] = candidate
		}
	}

	// 按指标目录顺序输出，结果确定
	triggers := make([]monitorModel.Trigger, 0, len(best))
	for _, metric := range monitorModel.Metrics() {
		if t, ok := best[metric]; ok {
			triggers = append(triggers, t)
		}
	}
	return triggers
}

// outranks candidate 是否应替换 existing
func outranks(candidate, existing monitorModel.Trigger) bool {
	if cr, er := candidate.Severity.Rank(), existing.Severity.Rank(); cr != er {
		return cr > er
	}
	return candidate.Rule.EffectiveKind() == monitorModel.KindAbsolute &&
		existing.Rule.EffectiveKind() == monitorModel.KindDelta
}
