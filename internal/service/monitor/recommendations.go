package monitor

import (
	"fmt"

	monitorModel "secmonitor/internal/model/monitor"
)

// metricLabels 告警消息中的指标名称
var metricLabels = map[monitorModel.MonitoringMetric]string{
	monitorModel.MetricOverallScore:        "Overall security score",
	monitorModel.MetricInfrastructureScore: "Infrastructure security score",
	monitorModel.MetricNetworkScore:        "Network security score",
	monitorModel.MetricCloudScore:          "Cloud security score",
	monitorModel.MetricContainerScore:      "Container security score",
	monitorModel.MetricVulnerabilityCount:  "Open vulnerability count",
	monitorModel.MetricCriticalFindings:    "Critical findings",
	monitorModel.MetricHighFindings:        "High severity findings",
	monitorModel.MetricComplianceScore:     "Compliance score",
}

// alertMessage 根据指标、阈值和当前值生成告警消息
func alertMessage(t monitorModel.Trigger) string {
	label := metricLabels[t.Metric]
	if label == "" {
		label = string(t.Metric)
	}

	if t.Rule.EffectiveKind() == monitorModel.KindDelta {
		direction := "changed"
		if t.CurrentValue < 0 {
			direction = "dropped"
		} else if t.CurrentValue > 0 {
			direction = "rose"
		}
		return fmt.Sprintf("%s %s by %d since the previous assessment (%s threshold: change %s %d)",
			label, direction, abs(t.CurrentValue), t.Severity, t.Rule.Comparator.Symbol(), t.ThresholdValue)
	}

	return fmt.Sprintf("%s is %d (%s threshold: %s %d)",
		label, t.CurrentValue, t.Severity, t.Rule.Comparator.Symbol(), t.ThresholdValue)
}

// baseRecommendations 每个指标的处置建议
var baseRecommendations = map[monitorModel.MonitoringMetric][]string{
	monitorModel.MetricOverallScore: {
		"Review the category breakdown to identify which areas lowered the score",
		"Prioritize remediation of critical and high severity findings",
	},
	monitorModel.MetricInfrastructureScore: {
		"Patch operating systems and exposed services on affected hosts",
		"Review hardening baselines for servers and endpoints",
	},
	monitorModel.MetricNetworkScore: {
		"Audit firewall rules and close unnecessary open ports",
		"Check TLS configuration and certificate validity on public endpoints",
	},
	monitorModel.MetricCloudScore: {
		"Review IAM policies for overly permissive roles",
		"Check storage buckets and security groups for public exposure",
	},
	monitorModel.MetricContainerScore: {
		"Rebuild images from patched base images",
		"Remove privileged containers and enforce least privilege",
	},
	monitorModel.MetricVulnerabilityCount: {
		"Triage new findings and assign owners",
		"Schedule a patch window for the affected assets",
	},
	monitorModel.MetricCriticalFindings: {
		"Remediate critical findings immediately or apply compensating controls",
		"Verify whether critical findings are exposed to the internet",
	},
	monitorModel.MetricHighFindings: {
		"Plan remediation of high severity findings within the current sprint",
	},
	monitorModel.MetricComplianceScore: {
		"Review failed compliance controls and collect missing evidence",
	},
}

// recommendationsFor 按指标和严重级别生成有序建议列表
func recommendationsFor(t monitorModel.Trigger) []string {
	out := make([]string, 0, 4)
	switch t.Severity {
	case monitorModel.SeverityCritical:
		out = append(out, "Escalate to the security on-call team")
	case monitorModel.SeverityWarning:
		out = append(out, "Track in the next security review")
	}
	if t.Rule.EffectiveKind() == monitorModel.KindDelta {
		out = append(out, "Compare with the previous assessment to find what changed")
	}
	out = append(out, baseRecommendations[t.Metric]...)
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
