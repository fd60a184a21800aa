/**
 * 初始化
 * @description: monitor 程序初始化相关的类型定义，setup 层只负责依赖装配
 */
package setup

import (
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	monitorHandler "secmonitor/internal/handler/monitor"
	"secmonitor/internal/repo"
	"secmonitor/internal/service/ingest"
	monitorService "secmonitor/internal/service/monitor"
	"secmonitor/internal/service/notify"
)

// StorageModule 存储层聚合输出
type StorageModule struct {
	Repos *repo.Repositories
	DB    *gorm.DB      // mysql 驱动时非空
	Redis *redis.Client // 启用快照缓存时非空
}

// MonitorModule 监控模块聚合输出
// Handler 本身已持有各 Service，这里再暴露一次供 router 健康检查和 cmd 层热重载使用
type MonitorModule struct {
	// Handlers
	MonitorHandler *monitorHandler.MonitorHandler

	// Services
	MonitorService   monitorService.MonitorService
	AlertService     monitorService.AlertService
	DashboardService monitorService.DashboardService
	TrendAnalyzer    monitorService.TrendAnalyzer
	ThresholdService monitorService.ThresholdService

	// 运行时组件，生命周期由 App 管理
	Pipeline    *ingest.Pipeline
	Dispatcher  *notify.Dispatcher
	NotifyQueue *notify.Queue
}
