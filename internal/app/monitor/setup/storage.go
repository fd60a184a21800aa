package setup

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"secmonitor/internal/config"
	"secmonitor/internal/pkg/database"
	"secmonitor/internal/pkg/logger"
	"secmonitor/internal/repo/memory"
	mysqlRepo "secmonitor/internal/repo/mysql/monitor"
	redisRepo "secmonitor/internal/repo/redis"
)

// BuildStorage 按 storage.driver 构建仓库
// memory: 进程内存储；mysql: GORM 存储，可叠加 Redis 最新快照缓存
func BuildStorage(cfg *config.Config) (*StorageModule, error) {
	module := &StorageModule{}

	switch cfg.Storage.Driver {
	case "mysql":
		db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
		if err != nil {
			return nil, err
		}
		module.DB = db
		module.Repos = mysqlRepo.NewRepositories(db, func() error { return database.CloseMySQL(db) })
	case "", "memory":
		module.Repos = memory.NewRepositories()
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}

	if cfg.Storage.Cache {
		client, err := database.NewRedisConnection(&cfg.Database.Redis)
		if err != nil {
			_ = module.Close()
			return nil, err
		}
		module.Redis = client
		module.Repos.Snapshots = redisRepo.NewCachedSnapshotRepository(module.Repos.Snapshots, client, cfg.Database.Redis.CacheTTL)
	}

	logger.LogSystemEvent("storage", "ready", "storage initialized", logrus.InfoLevel, map[string]interface{}{
		"operation": "setup",
		"option":    "setup.storage.done",
		"func_name": "setup.storage.BuildStorage",
		"driver":    cfg.Storage.Driver,
		"cache":     cfg.Storage.Cache,
	})
	return module, nil
}

// Close 关闭 Redis 与数据库连接
func (s *StorageModule) Close() error {
	var result *multierror.Error
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.Repos != nil && s.Repos.Close != nil {
		if err := s.Repos.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close repositories: %w", err))
		}
	}
	return result.ErrorOrNil()
}
