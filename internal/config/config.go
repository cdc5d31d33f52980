package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	MySQL         DatabaseConfig      `mapstructure:"mysql"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Log           LogConfig           `mapstructure:"log"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Forum         ForumConfig         `mapstructure:"forum"`
	Search        SearchConfig        `mapstructure:"search"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Snowflake     SnowflakeConfig     `mapstructure:"snowflake"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name string     `mapstructure:"name"`
	Mode string     `mapstructure:"mode"`
	Port int        `mapstructure:"port"`
	Cors CorsConfig `mapstructure:"cors"`
	// ShutdownTimeout 优雅关闭等待秒数
	ShutdownTimeout int `mapstructure:"shutdown_timeout"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey           string `mapstructure:"secret_key"`
	AccessExpireSeconds int    `mapstructure:"access_expire_seconds"`
	Issuer              string `mapstructure:"issuer"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

// DSN 获取数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// Addr 获取Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ElasticsearchConfig Elasticsearch配置
type ElasticsearchConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	URLs     []string `mapstructure:"urls"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Index    string   `mapstructure:"index"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ForumConfig 论坛业务配置
type ForumConfig struct {
	MaxPageSize      int      `mapstructure:"max_page_size"`
	MaxTagsPerTopic  int      `mapstructure:"max_tags_per_topic"`
	ViewDedupSeconds int      `mapstructure:"view_dedup_seconds"`
	UserCacheSeconds int      `mapstructure:"user_cache_seconds"`
	SensitiveWords   []string `mapstructure:"sensitive_words"`
	SensitiveDict    string   `mapstructure:"sensitive_dict"`
}

// SearchConfig 搜索配置
type SearchConfig struct {
	// ReindexCron 定时重建索引的cron表达式，为空时不启用
	ReindexCron string `mapstructure:"reindex_cron"`
}

// TelemetryConfig 链路追踪配置
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// SnowflakeConfig 雪花ID配置
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time"`
	MachineID int64  `mapstructure:"machine_id"`
}

// CorsConfig 跨域配置
type CorsConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposedHeaders   []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
	// 配置Viper实例
	viperInstance *viper.Viper
)

// Default 返回默认配置，配置文件中未出现的键沿用这里的值
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:            "lms-forum-api",
			Mode:            "debug",
			Port:            8080,
			ShutdownTimeout: 10,
			Cors: CorsConfig{
				AllowOrigins: []string{"*"},
				AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			},
		},
		MySQL: DatabaseConfig{
			Host:         "127.0.0.1",
			Port:         3306,
			Charset:      "utf8mb4",
			MaxIdleConns: 10,
			MaxOpenConns: 100,
			LogLevel:     "warn",
		},
		Elasticsearch: ElasticsearchConfig{
			Index: "forum_topics",
		},
		Redis: RedisConfig{
			Host:     "127.0.0.1",
			Port:     6379,
			PoolSize: 20,
		},
		Kafka: KafkaConfig{
			Topic:    "lms.forum.events",
			ClientID: "lms-forum-api",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			Stdout:     true,
		},
		JWT: JWTConfig{
			AccessExpireSeconds: 7200,
			Issuer:              "lms-forum-api",
		},
		Forum: ForumConfig{
			MaxPageSize:      100,
			MaxTagsPerTopic:  5,
			ViewDedupSeconds: 1800,
			UserCacheSeconds: 300,
		},
		Telemetry: TelemetryConfig{
			Exporter:    "stdout",
			ServiceName: "lms-forum-api",
			SampleRate:  1,
		},
		Snowflake: SnowflakeConfig{
			StartTime: "2024-01-01",
			MachineID: 1,
		},
	}
}

// Init 初始化配置
func Init(configPath string) error {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %v", err)
	}

	config := Default()
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("解析配置文件失败: %v", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	GlobalConfig = config
	viperInstance = v
	return nil
}

// Validate 校验配置中必须提供的字段
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secret_key 不能为空")
	}
	if c.Forum.MaxPageSize <= 0 {
		return fmt.Errorf("forum.max_page_size 必须大于0")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka 已启用但未配置 brokers")
	}
	if c.Elasticsearch.Enabled && len(c.Elasticsearch.URLs) == 0 {
		return fmt.Errorf("elasticsearch 已启用但未配置 urls")
	}
	return nil
}

// GetString 获取字符串配置
func GetString(key string) string {
	return viperInstance.GetString(key)
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return GlobalConfig
}
