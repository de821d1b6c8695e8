package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	// LLM 外部文本理解协作方（OpenAI兼容接口）
	LLM struct {
		APIKey     string            `yaml:"api_key"`
		BaseURL    string            `yaml:"base_url"`
		Model      string            `yaml:"model"`
		TaskModels map[string]string `yaml:"task_models"` // 任务专用模型
	} `yaml:"llm"`

	// Parser 文档解析配置
	Parser ParserConfig `yaml:"parser"`

	// PII 检测与匿名化配置
	PII PIIConfig `yaml:"pii"`

	// Pipeline 摄取流水线配置
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Cache 两级缓存配置
	Cache CacheConfig `yaml:"cache"`

	// ProfileExtractor 档案抽取LLM任务配置
	ProfileExtractor LLMTaskConfig `yaml:"profile_extractor"`

	// FilterExtractor 检索条件抽取LLM任务配置
	FilterExtractor LLMTaskConfig `yaml:"filter_extractor"`

	// Outreach 外联生成配置
	Outreach OutreachConfig `yaml:"outreach"`

	// MinIO 对象存储配置
	MinIO MinIOConfig `yaml:"minio"`

	// MySQL 关系库配置
	MySQL MySQLConfig `yaml:"mysql"`

	// Redis 缓存后端配置
	Redis RedisConfig `yaml:"redis"`

	// Logger 日志配置
	Logger LoggerConfig `yaml:"logger"`

	// Tracing 链路追踪配置
	Tracing TracingConfig `yaml:"tracing"`

	// ModelQPMLimits 各模型QPM限制
	ModelQPMLimits map[string]int `yaml:"model_qpm_limits"`
}

// ParserConfig 文档解析配置结构
type ParserConfig struct {
	Engine        string `yaml:"engine"`          // PDF解析引擎: "eino" 或 "tika"
	TikaServerURL string `yaml:"tika_server_url"` // Tika服务器URL
	Timeout       int    `yaml:"timeout_seconds"` // 解析超时(秒)
}

// PIIConfig PII检测配置结构
// 地址模式和名字黑名单按辖区可配，默认是澳大利亚的规则集
type PIIConfig struct {
	DefaultCountry  string   `yaml:"default_country"`  // 位置信息缺少国家时的默认值
	PhoneRegion     string   `yaml:"phone_region"`     // 电话号码解析的默认地区码，如 "AU"
	NameLexicon     []string `yaml:"name_lexicon"`     // 追加的名字误报词表（并入内置词表）
	AddressPatterns []string `yaml:"address_patterns"` // 追加的详细地址正则（并入辖区内置模式）
}

// PipelineConfig 摄取流水线配置结构
type PipelineConfig struct {
	MaxConcurrency  int    `yaml:"max_concurrency"`  // 批量摄取并发上限，0表示按CPU核数自适应
	DocumentTimeout string `yaml:"document_timeout"` // 单份文档端到端超时，例如 "2m"
}

// CacheConfig 两级缓存配置结构
type CacheConfig struct {
	LocalSize         int `yaml:"local_size"`          // 进程内LRU容量（条目数）
	ExtractionTTLDays int `yaml:"extraction_ttl_days"` // 抽取结果缓存过期天数
	OutreachTTLDays   int `yaml:"outreach_ttl_days"`   // 外联缓存过期天数
}

// LLMTaskConfig 单个LLM任务的配置
type LLMTaskConfig struct {
	ModelName        string  `yaml:"modelName"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"maxTokens"`
	Timeout          string  `yaml:"timeout"`          // 单次调用超时，例如 "30s"
	QPM              int     `yaml:"qpm"`              // 每分钟请求数限制
	MaxRetries       int     `yaml:"maxRetries"`       // 最大重试次数
	RetryWaitSeconds int     `yaml:"retryWaitSeconds"` // 重试等待时间(秒)
}

// OutreachConfig 外联生成配置结构
type OutreachConfig struct {
	LLMTaskConfig `yaml:",inline"`

	// RateLimitPerCandidate 单个候选人每个滚动窗口内的生成上限
	RateLimitPerCandidate int `yaml:"rate_limit_per_candidate"`
	// RateWindowSeconds 滚动窗口长度(秒)
	RateWindowSeconds int `yaml:"rate_window_seconds"`
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	Location        string `yaml:"location"` // 可选，存储桶区域
	// 对象存储桶名称
	OriginalsBucket  string `yaml:"originalsBucket"`  // 原始简历存储桶
	ParsedTextBucket string `yaml:"parsedTextBucket"` // 解析文本存储桶
	// 对象生命周期管理
	OriginalFileExpireDays int `yaml:"original_file_expire_days"` // 原始文件过期天数
	ParsedTextExpireDays   int `yaml:"parsed_text_expire_days"`   // 解析文本过期天数
}

// MySQLConfig MySQL配置结构
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// 连接池设置
	MaxIdleConns int `yaml:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int `yaml:"max_open_conns"` // 最大打开连接数
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`  // 连接最大生命周期(分钟)
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"` // 空闲连接最大生命周期(分钟)
	// 超时设置
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"` // 连接超时(秒)
	ReadTimeoutSeconds    int `yaml:"read_timeout_seconds"`    // 读取超时(秒)
	WriteTimeoutSeconds   int `yaml:"write_timeout_seconds"`   // 写入超时(秒)
	// 日志设置
	LogLevel int `yaml:"log_level"` // 日志级别(1-4)
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`      // 连接池大小
	MinIdleConns int `yaml:"min_idle_conns"` // 最小空闲连接数
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`  // 连接超时(秒)
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`  // 读取超时(秒)
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"` // 写入超时(秒)
	// 重试设置
	MaxRetries        int `yaml:"max_retries"`          // 最大重试次数
	MinRetryBackoffMS int `yaml:"min_retry_backoff_ms"` // 最小重试间隔(毫秒)
	MaxRetryBackoffMS int `yaml:"max_retry_backoff_ms"` // 最大重试间隔(毫秒)
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`  // 连接最大生命周期(分钟)
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"` // 空闲连接最大生命周期(分钟)
	// 去重记录过期时间(天)
	DedupRecordExpireDays int `yaml:"dedup_record_expire_days"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`     // OTLP gRPC endpoint，例如 "localhost:4317"
	ServiceName string  `yaml:"service_name"` // 上报的服务名
	SampleRatio float64 `yaml:"sample_ratio"` // 采样比例 0~1
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	// 如果未指定配置文件路径，则尝试在默认位置查找
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			"../../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".recruit-agent", "config.yaml"),
		}

		// 可执行文件所在目录及其上级
		execPath, err := os.Executable()
		if err == nil {
			execDir := filepath.Dir(execPath)
			searchPaths = append(searchPaths, filepath.Join(execDir, "config.yaml"))
			searchPaths = append(searchPaths, filepath.Join(execDir, "..", "config.yaml"))
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		if configPath == "" {
			// 测试环境直接返回默认配置，不要求存在配置文件
			if inTestEnvironment() {
				return createDefaultConfig(), nil
			}
			configPath = "config.yaml"
		}
	}

	if _, err := os.Stat(configPath); err != nil {
		if inTestEnvironment() {
			return createDefaultConfig(), nil
		}
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 先铺默认值再解析，YAML里没写的字段保持默认
	config := createDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 从环境变量覆盖配置（如果存在）
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides 密钥类配置优先读环境变量
func applyEnvOverrides(config *Config) {
	if envKey := os.Getenv("LLM_API_KEY"); envKey != "" {
		config.LLM.APIKey = envKey
	}
	if envURL := os.Getenv("LLM_BASE_URL"); envURL != "" {
		config.LLM.BaseURL = envURL
	}
	if envModel := os.Getenv("LLM_MODEL"); envModel != "" {
		config.LLM.Model = envModel
	}
	if envPwd := os.Getenv("MYSQL_PASSWORD"); envPwd != "" {
		config.MySQL.Password = envPwd
	}
	if envPwd := os.Getenv("REDIS_PASSWORD"); envPwd != "" {
		config.Redis.Password = envPwd
	}
}

// inTestEnvironment 根据进程参数粗略判断是否处于go test
func inTestEnvironment() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, "test") {
			return true
		}
	}
	return false
}

// 创建一个默认配置，同时作为测试环境的兜底配置
func createDefaultConfig() *Config {
	config := &Config{}

	// LLM默认配置
	config.LLM.BaseURL = "https://api.openai.com/v1"
	config.LLM.Model = "gpt-4o-mini"
	if envKey := os.Getenv("LLM_API_KEY"); envKey != "" {
		config.LLM.APIKey = envKey
	} else {
		config.LLM.APIKey = "test_api_key"
	}
	config.LLM.TaskModels = map[string]string{}

	// 解析器默认配置
	config.Parser.Engine = "eino"
	config.Parser.TikaServerURL = "http://localhost:9998"
	config.Parser.Timeout = 30

	// PII默认配置（澳大利亚辖区）
	config.PII.DefaultCountry = "Australia"
	config.PII.PhoneRegion = "AU"

	// 流水线默认配置
	config.Pipeline.MaxConcurrency = 0 // 按CPU核数自适应，3~10之间
	config.Pipeline.DocumentTimeout = "2m"

	// 缓存默认配置
	config.Cache.LocalSize = 256
	config.Cache.ExtractionTTLDays = 30
	config.Cache.OutreachTTLDays = 7

	// LLM任务默认配置
	config.ProfileExtractor = LLMTaskConfig{
		Temperature:      0.1,
		MaxTokens:        4096,
		Timeout:          "60s",
		QPM:              60,
		MaxRetries:       3,
		RetryWaitSeconds: 1,
	}
	config.FilterExtractor = LLMTaskConfig{
		Temperature:      0.0,
		MaxTokens:        1024,
		Timeout:          "30s",
		QPM:              120,
		MaxRetries:       3,
		RetryWaitSeconds: 1,
	}
	config.Outreach = OutreachConfig{
		LLMTaskConfig: LLMTaskConfig{
			Temperature:      0.7,
			MaxTokens:        1024,
			Timeout:          "30s",
			QPM:              60,
			MaxRetries:       3,
			RetryWaitSeconds: 1,
		},
		RateLimitPerCandidate: 5,
		RateWindowSeconds:     3600,
	}

	// MinIO默认配置
	config.MinIO.Endpoint = "localhost:9000"
	config.MinIO.AccessKeyID = "minioadmin"
	config.MinIO.SecretAccessKey = "minioadmin123"
	config.MinIO.UseSSL = false
	config.MinIO.Location = ""
	config.MinIO.OriginalsBucket = "resume-originals"
	config.MinIO.ParsedTextBucket = "resume-parsed-text"
	config.MinIO.OriginalFileExpireDays = 1095
	config.MinIO.ParsedTextExpireDays = 365

	// MySQL默认配置
	config.MySQL.Host = "localhost"
	config.MySQL.Port = 3306
	config.MySQL.Username = "root"
	config.MySQL.Password = "password"
	config.MySQL.Database = "recruit_agent"
	config.MySQL.MaxIdleConns = 10
	config.MySQL.MaxOpenConns = 100
	config.MySQL.ConnMaxLifetimeMinutes = 60
	config.MySQL.ConnMaxIdleTimeMinutes = 30
	config.MySQL.ConnectTimeoutSeconds = 10
	config.MySQL.ReadTimeoutSeconds = 30
	config.MySQL.WriteTimeoutSeconds = 30
	config.MySQL.LogLevel = 4 // Info级别

	// Redis默认配置
	config.Redis.Address = "localhost:6379"
	config.Redis.Password = ""
	config.Redis.DB = 0
	config.Redis.PoolSize = 10
	config.Redis.MinIdleConns = 2
	config.Redis.DialTimeoutSeconds = 5
	config.Redis.ReadTimeoutSeconds = 3
	config.Redis.WriteTimeoutSeconds = 3
	config.Redis.MaxRetries = 3
	config.Redis.MinRetryBackoffMS = 8
	config.Redis.MaxRetryBackoffMS = 512
	config.Redis.ConnMaxLifetimeMinutes = 60
	config.Redis.ConnMaxIdleTimeMinutes = 30
	config.Redis.DedupRecordExpireDays = 365

	// 日志默认配置
	config.Logger.Level = "info"
	config.Logger.Format = "pretty" // 开发环境默认使用美化输出
	config.Logger.TimeFormat = "2006-01-02 15:04:05"
	config.Logger.ReportCaller = true

	// 追踪默认配置
	config.Tracing.Enabled = false
	config.Tracing.Endpoint = "localhost:4317"
	config.Tracing.ServiceName = "recruit-agent"
	config.Tracing.SampleRatio = 1.0

	// 默认的模型QPM限制
	config.ModelQPMLimits = map[string]int{
		"gpt-4o":      500,
		"gpt-4o-mini": 5000,
	}

	return config
}

// CreateSampleConfig 创建一个示例配置文件
func CreateSampleConfig(filePath string) error {
	// 检查文件是否已存在
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	config := createDefaultConfig()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	err = os.WriteFile(filePath, data, 0644)
	if err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}

	fmt.Printf("示例配置文件已创建: %s\n", filePath)
	return nil
}

// GetModelForTask 根据任务名称获取合适的模型
// 如果任务专用模型存在则返回专用模型，否则返回默认模型
func (c *Config) GetModelForTask(taskName string) string {
	if c.LLM.TaskModels != nil {
		if model, ok := c.LLM.TaskModels[taskName]; ok && model != "" {
			return model
		}
	}
	return c.LLM.Model
}

// GetQPMForModel 查询某个模型的QPM限制，未配置时返回任务自身的QPM
func (c *Config) GetQPMForModel(modelName string, taskQPM int) int {
	if c.ModelQPMLimits != nil {
		if qpm, ok := c.ModelQPMLimits[modelName]; ok && qpm > 0 {
			return qpm
		}
	}
	return taskQPM
}

// GetDuration utility to parse duration strings from config
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
