package setup

import (
	"github.com/sirupsen/logrus"

	"secmonitor/internal/config"
	monitorHandler "secmonitor/internal/handler/monitor"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/pkg/metrics"
	"secmonitor/internal/repo"
	"secmonitor/internal/service/ingest"
	monitorService "secmonitor/internal/service/monitor"
	"secmonitor/internal/service/notify"
)

// BuildMonitorModule 构建监控模块
// 装配顺序: 阈值服务 -> 通知分发器/分发队列 -> 告警服务 -> 趋势/看板 -> 监控服务 -> 摄取流水线 -> 处理器
// publisher 为 nil 时不注册 NATS 告警渠道
func BuildMonitorModule(cfg *config.Config, repos *repo.Repositories, publisher notify.Publisher, m *metrics.Metrics) (*MonitorModule, error) {
	thresholds, err := monitorService.NewThresholdService(repos.Thresholds, cfg.Alerting.ThresholdFile)
	if err != nil {
		return nil, err
	}

	dispatcher := notify.NewDispatcherFromConfig(&cfg.Notify, publisher, cfg.NATS.AlertSubject, m)
	notifyQueue := notify.NewQueue(dispatcher, cfg.Notify.Workers, cfg.Notify.QueueSize)
	alerts := monitorService.NewAlertService(repos.Alerts, notifyQueue, m, nil)

	trends := monitorService.NewTrendAnalyzer(repos.Snapshots, monitorService.TrendOptions{
		LookbackDays:  cfg.Alerting.TrendLookbackDays,
		StableBand:    cfg.Alerting.TrendStableBand,
		RetentionDays: cfg.Pipeline.RetentionDays,
	})
	dashboard := monitorService.NewDashboardService(repos.Snapshots, alerts, trends, cfg.Alerting.DashboardDays, nil)
	monitor := monitorService.NewMonitorService(repos.Snapshots, thresholds, alerts, m, cfg.Pipeline.RetentionDays, nil)

	pipeline := ingest.NewPipeline(monitor, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, m)

	handler := monitorHandler.NewMonitorHandler(pipeline, monitor, alerts, dashboard, trends, thresholds)

	logger.LogSystemEvent("setup", "monitor_module_ready", "monitor module built", logrus.InfoLevel, map[string]interface{}{
		"operation":      "setup",
		"option":         "setup.monitor.done",
		"func_name":      "setup.monitor.BuildMonitorModule",
		"workers":        cfg.Pipeline.Workers,
		"threshold_file": cfg.Alerting.ThresholdFile,
		"handlers":       dispatcher.Handlers(),
	})

	return &MonitorModule{
		MonitorHandler:   handler,
		MonitorService:   monitor,
		AlertService:     alerts,
		DashboardService: dashboard,
		TrendAnalyzer:    trends,
		ThresholdService: thresholds,
		Pipeline:         pipeline,
		Dispatcher:       dispatcher,
		NotifyQueue:      notifyQueue,
	}, nil
}
