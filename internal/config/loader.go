package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// LoadConfig 加载配置文件
// configPath: 配置文件目录，如果为空则使用默认路径
// env: 环境标识，支持 development, test, production
func LoadConfig(configPath, env string) (*Config, error) {
	if env == "" {
		env = getEnvFromEnvironment()
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	// 根据环境选择配置文件
	configFile := getConfigFileName(configPath, env)
	v.SetConfigFile(configFile)

	// 设置环境变量前缀
	v.SetEnvPrefix("SECMONITOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	GlobalConfig = &config

	return &config, nil
}

// getEnvFromEnvironment 从环境变量获取环境标识
func getEnvFromEnvironment() string {
	env := os.Getenv("SECMONITOR_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development" // 默认开发环境
	}
	return env
}

// getDefaultConfigPath 获取默认配置文件路径
func getDefaultConfigPath() string {
	if configPath := os.Getenv("SECMONITOR_CONFIG_PATH"); configPath != "" {
		return configPath
	}
	return "configs"
}

// getConfigFileName 根据环境获取配置文件名
func getConfigFileName(configPath, env string) string {
	var configFile string

	switch env {
	case "production", "prod":
		configFile = filepath.Join(configPath, "config.prod.yaml")
	case "test", "testing":
		configFile = filepath.Join(configPath, "config.test.yaml")
	default:
		configFile = filepath.Join(configPath, "config.yaml")
	}

	// 检查文件是否存在，如果不存在则使用默认配置文件
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		defaultConfig := filepath.Join(configPath, "config.yaml")
		if _, err := os.Stat(defaultConfig); err == nil {
			return defaultConfig
		}
	}

	return configFile
}

// bindEnvironmentVariables 绑定环境变量
func bindEnvironmentVariables(v *viper.Viper) {
	// 数据库配置
	v.BindEnv("database.mysql.host", "SECMONITOR_MYSQL_HOST")
	v.BindEnv("database.mysql.port", "SECMONITOR_MYSQL_PORT")
	v.BindEnv("database.mysql.username", "SECMONITOR_MYSQL_USERNAME")
	v.BindEnv("database.mysql.password", "SECMONITOR_MYSQL_PASSWORD")
	v.BindEnv("database.mysql.database", "SECMONITOR_MYSQL_DATABASE")

	v.BindEnv("database.redis.host", "SECMONITOR_REDIS_HOST")
	v.BindEnv("database.redis.port", "SECMONITOR_REDIS_PORT")
	v.BindEnv("database.redis.password", "SECMONITOR_REDIS_PASSWORD")

	// 通知渠道
	v.BindEnv("notify.email.smtp_host", "SECMONITOR_SMTP_HOST")
	v.BindEnv("notify.email.smtp_port", "SECMONITOR_SMTP_PORT")
	v.BindEnv("notify.email.username", "SECMONITOR_SMTP_USERNAME")
	v.BindEnv("notify.email.password", "SECMONITOR_SMTP_PASSWORD")

	// NATS
	v.BindEnv("nats.url", "SECMONITOR_NATS_URL")

	// 服务器配置
	v.BindEnv("server.host", "SECMONITOR_SERVER_HOST")
	v.BindEnv("server.port", "SECMONITOR_SERVER_PORT")
	v.BindEnv("server.mode", "SECMONITOR_SERVER_MODE")

	v.BindEnv("app.environment", "SECMONITOR_APP_ENVIRONMENT")
	v.BindEnv("storage.driver", "SECMONITOR_STORAGE_DRIVER")
}

// applyDefaults 填充未配置项的默认值
func applyDefaults(config *Config) {
	if config == nil {
		return
	}

	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}
	if config.Storage.Driver == "" {
		config.Storage.Driver = "memory"
	}
	if config.Pipeline.Workers <= 0 {
		config.Pipeline.Workers = 4
	}
	if config.Pipeline.QueueSize <= 0 {
		config.Pipeline.QueueSize = 64
	}
	if config.Alerting.TrendLookbackDays <= 0 {
		config.Alerting.TrendLookbackDays = 30
	}
	if config.Alerting.TrendStableBand <= 0 {
		config.Alerting.TrendStableBand = 2
	}
	if config.Alerting.DashboardDays <= 0 {
		config.Alerting.DashboardDays = 30
	}
	if config.Notify.HandlerTimeout <= 0 {
		config.Notify.HandlerTimeout = 10 * time.Second
	}
	if config.Notify.Workers <= 0 {
		config.Notify.Workers = 2
	}
	if config.Notify.QueueSize <= 0 {
		config.Notify.QueueSize = 256
	}
	if config.NATS.Subject == "" {
		config.NATS.Subject = "assessments.completed"
	}
	if config.NATS.Queue == "" {
		config.NATS.Queue = "secmonitor"
	}
	if config.NATS.DedupeCapacity <= 0 {
		config.NATS.DedupeCapacity = 4096
	}
	if config.Monitor.Metrics.Path == "" {
		config.Monitor.Metrics.Path = "/metrics"
	}
	if config.Database.Redis.CacheTTL <= 0 {
		config.Database.Redis.CacheTTL = 10 * time.Minute
	}
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if !contains([]string{"debug", "release", "test"}, config.Server.Mode) {
		return fmt.Errorf("invalid server mode: %s", config.Server.Mode)
	}

	if !contains([]string{"memory", "mysql"}, config.Storage.Driver) {
		return fmt.Errorf("invalid storage driver: %s", config.Storage.Driver)
	}

	// mysql 存储时数据库配置必填
	if config.Storage.Driver == "mysql" {
		if config.Database.MySQL.Host == "" {
			return fmt.Errorf("mysql host is required")
		}
		if config.Database.MySQL.Database == "" {
			return fmt.Errorf("mysql database name is required")
		}
	}

	if config.Storage.Cache && config.Database.Redis.Host == "" {
		return fmt.Errorf("redis host is required when storage cache is enabled")
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, config.Log.Level) {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if !contains([]string{"json", "text"}, config.Log.Format) {
		return fmt.Errorf("invalid log format: %s", config.Log.Format)
	}

	if !contains([]string{"stdout", "stderr", "file"}, config.Log.Output) {
		return fmt.Errorf("invalid log output: %s", config.Log.Output)
	}

	if config.Log.Output == "file" && config.Log.FilePath == "" {
		return fmt.Errorf("log file path is required when output is file")
	}

	if config.NATS.Enabled && config.NATS.URL == "" {
		return fmt.Errorf("nats url is required when nats is enabled")
	}

	if config.Notify.Email.Enabled {
		if config.Notify.Email.SMTPHost == "" || config.Notify.Email.FromEmail == "" || len(config.Notify.Email.To) == 0 {
			return fmt.Errorf("email channel requires smtp_host, from_email and at least one recipient")
		}
	}

	for _, wh := range config.Notify.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("webhook %q url is required", wh.Name)
		}
	}

	return nil
}

// contains 检查切片是否包含指定元素
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return GlobalConfig
}

// MustLoadConfig 加载配置，如果失败则panic
func MustLoadConfig(configPath, env string) *Config {
	config, err := LoadConfig(configPath, env)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return config
}
