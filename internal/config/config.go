package config

import (
	"fmt"
	"time"
)

// Config 应用配置结构体 [这里的字段和配置文件中一级字段保持一致，否则会没有值]
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`     // 服务器配置
	Database DatabaseConfig `yaml:"database" mapstructure:"database"` // 数据库配置
	Log      LogConfig      `yaml:"log" mapstructure:"log"`           // 日志配置
	Security SecurityConfig `yaml:"security" mapstructure:"security"` // 安全配置
	Monitor  MonitorConfig  `yaml:"monitor" mapstructure:"monitor"`   // 监控配置(指标/健康检查)
	App      AppConfig      `yaml:"app" mapstructure:"app"`           // 应用配置
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`   // 存储配置
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"` // 摄取流水线配置
	Alerting AlertingConfig `yaml:"alerting" mapstructure:"alerting"` // 告警规则配置
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`     // 通知渠道配置
	NATS     NATSConfig     `yaml:"nats" mapstructure:"nats"`         // NATS消息总线配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`                         // 服务器主机地址
	Port           int           `yaml:"port" mapstructure:"port"`                         // 服务器端口
	Mode           string        `yaml:"mode" mapstructure:"mode"`                         // 运行模式: debug, release, test
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`         // 读取超时时间
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`       // 写入超时时间
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`         // 空闲超时时间
	MaxHeaderBytes int           `yaml:"max_header_bytes" mapstructure:"max_header_bytes"` // 最大请求头字节数
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	MySQL MySQLConfig `yaml:"mysql" mapstructure:"mysql"` // MySQL配置
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"` // Redis配置
}

// MySQLConfig MySQL数据库配置
type MySQLConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`                             // 数据库主机
	Port            int           `yaml:"port" mapstructure:"port"`                             // 数据库端口
	Username        string        `yaml:"username" mapstructure:"username"`                     // 用户名
	Password        string        `yaml:"password" mapstructure:"password"`                     // 密码
	Database        string        `yaml:"database" mapstructure:"database"`                     // 数据库名
	Charset         string        `yaml:"charset" mapstructure:"charset"`                       // 字符集
	ParseTime       bool          `yaml:"parse_time" mapstructure:"parse_time"`                 // 是否解析时间
	Loc             string        `yaml:"loc" mapstructure:"loc"`                               // 时区
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`         // 最大空闲连接数
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`         // 最大打开连接数
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`   // 连接最大生存时间
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"` // 连接最大空闲时间
	LogLevel        string        `yaml:"log_level" mapstructure:"log_level"`                   // 日志级别
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`                     // Redis主机
	Port         int           `yaml:"port" mapstructure:"port"`                     // Redis端口
	Password     string        `yaml:"password" mapstructure:"password"`             // Redis密码
	Database     int           `yaml:"database" mapstructure:"database"`             // Redis数据库索引
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`           // 连接池大小
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"` // 最小空闲连接数
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`     // 连接超时
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`     // 读取超时
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`   // 写入超时
	PoolTimeout  time.Duration `yaml:"pool_timeout" mapstructure:"pool_timeout"`     // 连接池超时
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`     // 空闲超时
	CacheTTL     time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`           // 最新快照缓存有效期
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // 日志级别
	Format     string `yaml:"format" mapstructure:"format"`           // 日志格式: json, text
	Output     string `yaml:"output" mapstructure:"output"`           // 输出方式: stdout, stderr, file
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`     // 日志文件路径
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // 保留的日志文件数量
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // 日志文件保留天数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // 是否压缩日志文件
	Caller     bool   `yaml:"caller" mapstructure:"caller"`           // 是否显示调用者信息
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`             // CORS配置
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"` // 限流配置
}

// CORSConfig CORS配置
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled" mapstructure:"enabled"`                     // 是否启用CORS
	AllowOrigins     []string `yaml:"allow_origins" mapstructure:"allow_origins"`         // 允许的源
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"` // 是否允许凭证
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool     `yaml:"enabled" mapstructure:"enabled"`                         // 是否启用限流
	RequestsPerSecond int      `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 每秒请求数限制
	BurstSize         int      `yaml:"burst_size" mapstructure:"burst_size"`                   // 突发请求数
	SkipPaths         []string `yaml:"skip_paths" mapstructure:"skip_paths"`                   // 跳过限流的路径
}

// MonitorConfig 监控配置
type MonitorConfig struct {
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"` // 指标监控配置
}

// MetricsConfig 指标监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"` // 是否启用指标监控
	Path    string `yaml:"path" mapstructure:"path"`       // 指标接口路径
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`               // 应用名称
	Version     string `yaml:"version" mapstructure:"version"`         // 应用版本
	Environment string `yaml:"environment" mapstructure:"environment"` // 运行环境
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // 存储驱动: memory, mysql
	Cache  bool   `yaml:"cache" mapstructure:"cache"`   // 是否启用Redis最新快照缓存
}

// PipelineConfig 摄取流水线配置
type PipelineConfig struct {
	Workers       int `yaml:"workers" mapstructure:"workers"`               // 工作协程数(同一租户固定落在同一个worker上)
	QueueSize     int `yaml:"queue_size" mapstructure:"queue_size"`         // 每个worker的队列长度
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"` // 历史保留天数, 0 表示不限
}

// AlertingConfig 告警规则配置
type AlertingConfig struct {
	ThresholdFile     string `yaml:"threshold_file" mapstructure:"threshold_file"`           // 默认阈值规则文件(为空时使用内置默认值)
	TrendLookbackDays int    `yaml:"trend_lookback_days" mapstructure:"trend_lookback_days"` // 趋势方向回看天数
	TrendStableBand   int    `yaml:"trend_stable_band" mapstructure:"trend_stable_band"`     // 稳定区间(±)
	DashboardDays     int    `yaml:"dashboard_days" mapstructure:"dashboard_days"`           // 仪表盘趋势窗口天数
}

// NotifyConfig 通知渠道配置
type NotifyConfig struct {
	HandlerTimeout time.Duration   `yaml:"handler_timeout" mapstructure:"handler_timeout"` // 单个渠道的执行超时
	Workers        int             `yaml:"workers" mapstructure:"workers"`                 // 异步分发 worker 数
	QueueSize      int             `yaml:"queue_size" mapstructure:"queue_size"`           // 待分发告警队列长度
	Email          EmailConfig     `yaml:"email" mapstructure:"email"`                     // 邮件渠道
	Webhooks       []WebhookConfig `yaml:"webhooks" mapstructure:"webhooks"`               // Webhook渠道列表
	Chat           []ChatConfig    `yaml:"chat" mapstructure:"chat"`                       // 聊天渠道列表(Slack/Mattermost兼容)
}

// EmailConfig 邮件渠道配置
type EmailConfig struct {
	Enabled   bool     `yaml:"enabled" mapstructure:"enabled"`       // 是否启用邮件通知
	SMTPHost  string   `yaml:"smtp_host" mapstructure:"smtp_host"`   // SMTP服务器地址
	SMTPPort  int      `yaml:"smtp_port" mapstructure:"smtp_port"`   // SMTP服务器端口
	Username  string   `yaml:"username" mapstructure:"username"`     // SMTP用户名
	Password  string   `yaml:"password" mapstructure:"password"`     // SMTP密码
	FromEmail string   `yaml:"from_email" mapstructure:"from_email"` // 发件人邮箱
	FromName  string   `yaml:"from_name" mapstructure:"from_name"`   // 发件人名称
	To        []string `yaml:"to" mapstructure:"to"`                 // 收件人列表
}

// WebhookConfig Webhook渠道配置
type WebhookConfig struct {
	Name       string            `yaml:"name" mapstructure:"name"`               // 渠道名称
	URL        string            `yaml:"url" mapstructure:"url"`                 // 回调地址
	Headers    map[string]string `yaml:"headers" mapstructure:"headers"`         // 附加请求头
	MaxRetries int               `yaml:"max_retries" mapstructure:"max_retries"` // 最大重试次数
}

// ChatConfig 聊天渠道配置
type ChatConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`         // 渠道名称
	URL      string `yaml:"url" mapstructure:"url"`           // Incoming webhook 地址
	Channel  string `yaml:"channel" mapstructure:"channel"`   // 频道
	Username string `yaml:"username" mapstructure:"username"` // 机器人显示名
}

// NATSConfig NATS消息总线配置
type NATSConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`                 // 是否启用NATS
	URL            string `yaml:"url" mapstructure:"url"`                         // NATS地址
	Subject        string `yaml:"subject" mapstructure:"subject"`                 // 评估完成事件主题
	Queue          string `yaml:"queue" mapstructure:"queue"`                     // 队列组
	AlertSubject   string `yaml:"alert_subject" mapstructure:"alert_subject"`     // 告警发布主题(为空则不发布)
	DedupeCapacity int    `yaml:"dedupe_capacity" mapstructure:"dedupe_capacity"` // 重投递去重缓存容量
}

// GetAddress 获取服务器完整地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment 判断是否为开发环境
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction 判断是否为生产环境
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// GetMySQLDSN 获取MySQL数据源名称
func (m *MySQLConfig) GetMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		m.Username, m.Password, m.Host, m.Port, m.Database, m.Charset, m.ParseTime, m.Loc)
}

// GetRedisAddress 获取Redis地址
func (r *RedisConfig) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
