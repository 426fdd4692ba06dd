package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ProviderConfig 翻译提供商配置
type ProviderConfig struct {
	Name        string  `mapstructure:"name"`         // openai 或 raw
	APIKey      string  `mapstructure:"api_key"`      // API 密钥
	APIEndpoint string  `mapstructure:"api_endpoint"` // 自定义端点（可选）
	Model       string  `mapstructure:"model"`        // 模型名
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TimeoutSec  int     `mapstructure:"timeout"` // 单次请求超时（秒）
}

// FilterConfig 文本过滤配置
type FilterConfig struct {
	MinTextLength        int     `mapstructure:"min_text_length"`        // 最短可翻译长度
	SpecialCharThreshold float64 `mapstructure:"special_char_threshold"` // 代码样文本的特殊字符比例阈值
	CJKThreshold         float64 `mapstructure:"cjk_threshold"`          // 视为已翻译的 CJK 比例阈值
	MaxEmailLength       int     `mapstructure:"max_email_length"`
}

// CollectorConfig 文本收集配置
type CollectorConfig struct {
	MaxDepth             int  `mapstructure:"max_depth"`              // DOM 遍历深度上限
	RespectTranslateAttr bool `mapstructure:"respect_translate_attr"` // 是否遵循 translate="no"
}

// BatchConfig 批次构建配置
type BatchConfig struct {
	MaxBatchSize        int     `mapstructure:"max_batch_size"`        // 单批字符数硬上限
	MinBatchChars       int     `mapstructure:"min_batch_chars"`       // 达到该字符数即可关闭批次
	MaxEffectiveSize    float64 `mapstructure:"max_effective_size"`    // 加权有效大小上限
	MinEffectiveSize    float64 `mapstructure:"min_effective_size"`    // 加权有效大小下限
	SmallBatchThreshold int     `mapstructure:"small_batch_threshold"` // 小批次条目数阈值
}

// ProcessorConfig 批处理配置
type ProcessorConfig struct {
	MaxRetries      int     `mapstructure:"max_retries"`
	RetryDelayMs    int     `mapstructure:"retry_delay_ms"`   // 重试基准延迟（毫秒）
	BatchTimeoutSec int     `mapstructure:"batch_timeout"`    // 单批超时（秒）
	MaxConcurrency  int64   `mapstructure:"max_concurrency"`  // 并发批次数
	ItemDelayMs     int     `mapstructure:"item_delay_ms"`    // 逐条翻译间隔（毫秒）
	MinSuccessRate  float64 `mapstructure:"min_success_rate"` // 索引协议最低命中率
}

// CacheConfig 翻译缓存配置
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Capacity  int    `mapstructure:"capacity"`
	TTLSec    int    `mapstructure:"ttl"` // 条目有效期（秒）
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
	RedisPass string `mapstructure:"redis_password"`
}

// RoutingConfig 缓存路由配置
type RoutingConfig struct {
	DBPath        string `mapstructure:"db_path"`        // SQLite 记录库路径，空则关闭路由
	CacheCapacity int    `mapstructure:"cache_capacity"` // 决策 LRU 容量
	CacheTTLSec   int    `mapstructure:"cache_ttl"`      // 决策 LRU 有效期（秒）
}

// Config 页面翻译器的全部配置
type Config struct {
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`

	Provider  ProviderConfig  `mapstructure:"provider"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Collector CollectorConfig `mapstructure:"collector"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Routing   RoutingConfig   `mapstructure:"routing"`

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		SourceLang: "en",
		TargetLang: "zh",
		Provider: ProviderConfig{
			Name:        "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   4096,
			TimeoutSec:  120,
		},
		Filter: FilterConfig{
			MinTextLength:        2,
			SpecialCharThreshold: 1.0 / 3.0,
			CJKThreshold:         0.5,
			MaxEmailLength:       100,
		},
		Collector: CollectorConfig{
			MaxDepth:             50,
			RespectTranslateAttr: true,
		},
		Batch: BatchConfig{
			MaxBatchSize:        9000,
			MinBatchChars:       2000,
			MaxEffectiveSize:    9000,
			MinEffectiveSize:    2000,
			SmallBatchThreshold: 2,
		},
		Processor: ProcessorConfig{
			MaxRetries:      3,
			RetryDelayMs:    1000,
			BatchTimeoutSec: 30,
			MaxConcurrency:  5,
			ItemDelayMs:     100,
			MinSuccessRate:  0.8,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 1000,
			TTLSec:   3600,
		},
		Routing: RoutingConfig{
			CacheCapacity: 1000,
			CacheTTLSec:   300,
		},
		Debug:   false,
		Verbose: false,
	}
}

// LoadConfig 从文件加载配置
// 配置路径为空时依次查找当前目录和家目录下的 .page-translator.yaml，
// 找不到配置文件时使用默认值，环境变量以 PAGE_TRANSLATOR_ 为前缀覆盖
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.SetConfigName(".page-translator")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("PAGE_TRANSLATOR")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	config := NewDefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}

	// API 密钥优先从环境变量取，避免写进配置文件
	if config.Provider.APIKey == "" {
		config.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate 校验配置，启动时失败即退出
func (c *Config) Validate() error {
	if c.SourceLang == "" || c.TargetLang == "" {
		return fmt.Errorf("source_lang and target_lang must be specified")
	}
	if c.SourceLang == c.TargetLang {
		return fmt.Errorf("source_lang and target_lang must differ")
	}

	switch c.Provider.Name {
	case "openai", "raw":
	default:
		return fmt.Errorf("unknown provider %q (supported: openai, raw)", c.Provider.Name)
	}

	if c.Batch.MaxBatchSize <= 0 {
		return fmt.Errorf("batch.max_batch_size must be positive")
	}
	if c.Batch.MinBatchChars > c.Batch.MaxBatchSize {
		return fmt.Errorf("batch.min_batch_chars must not exceed batch.max_batch_size")
	}
	if c.Processor.MinSuccessRate < 0 || c.Processor.MinSuccessRate > 1 {
		return fmt.Errorf("processor.min_success_rate must be in [0, 1]")
	}
	if c.Processor.MaxConcurrency <= 0 {
		return fmt.Errorf("processor.max_concurrency must be positive")
	}
	if c.Processor.BatchTimeoutSec <= 0 {
		return fmt.Errorf("processor.batch_timeout must be positive")
	}
	if c.Cache.Enabled && c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive when cache is enabled")
	}

	return nil
}

// RetryDelay 返回重试基准延迟
func (c *ProcessorConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// BatchTimeout 返回单批超时
func (c *ProcessorConfig) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutSec) * time.Second
}

// ItemDelay 返回逐条翻译间隔
func (c *ProcessorConfig) ItemDelay() time.Duration {
	return time.Duration(c.ItemDelayMs) * time.Millisecond
}

// TTL 返回缓存条目有效期
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// CacheTTL 返回路由决策缓存有效期
func (c *RoutingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// Timeout 返回提供商请求超时
func (c *ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SaveConfig 把配置保存到文件
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(home, ".page-translator.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("source_lang", config.SourceLang)
	v.Set("target_lang", config.TargetLang)
	v.Set("provider", config.Provider)
	v.Set("filter", config.Filter)
	v.Set("collector", config.Collector)
	v.Set("batch", config.Batch)
	v.Set("processor", config.Processor)
	v.Set("cache", config.Cache)
	v.Set("routing", config.Routing)
	v.Set("debug", config.Debug)
	v.Set("verbose", config.Verbose)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	return v.WriteConfig()
}

// setDefaults 向 viper 注册默认值，让环境变量覆盖生效
func setDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("source_lang", d.SourceLang)
	v.SetDefault("target_lang", d.TargetLang)

	v.SetDefault("provider.name", d.Provider.Name)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.temperature", d.Provider.Temperature)
	v.SetDefault("provider.max_tokens", d.Provider.MaxTokens)
	v.SetDefault("provider.timeout", d.Provider.TimeoutSec)

	v.SetDefault("filter.min_text_length", d.Filter.MinTextLength)
	v.SetDefault("filter.special_char_threshold", d.Filter.SpecialCharThreshold)
	v.SetDefault("filter.cjk_threshold", d.Filter.CJKThreshold)
	v.SetDefault("filter.max_email_length", d.Filter.MaxEmailLength)

	v.SetDefault("collector.max_depth", d.Collector.MaxDepth)
	v.SetDefault("collector.respect_translate_attr", d.Collector.RespectTranslateAttr)

	v.SetDefault("batch.max_batch_size", d.Batch.MaxBatchSize)
	v.SetDefault("batch.min_batch_chars", d.Batch.MinBatchChars)
	v.SetDefault("batch.max_effective_size", d.Batch.MaxEffectiveSize)
	v.SetDefault("batch.min_effective_size", d.Batch.MinEffectiveSize)
	v.SetDefault("batch.small_batch_threshold", d.Batch.SmallBatchThreshold)

	v.SetDefault("processor.max_retries", d.Processor.MaxRetries)
	v.SetDefault("processor.retry_delay_ms", d.Processor.RetryDelayMs)
	v.SetDefault("processor.batch_timeout", d.Processor.BatchTimeoutSec)
	v.SetDefault("processor.max_concurrency", d.Processor.MaxConcurrency)
	v.SetDefault("processor.item_delay_ms", d.Processor.ItemDelayMs)
	v.SetDefault("processor.min_success_rate", d.Processor.MinSuccessRate)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.ttl", d.Cache.TTLSec)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)

	v.SetDefault("routing.db_path", d.Routing.DBPath)
	v.SetDefault("routing.cache_capacity", d.Routing.CacheCapacity)
	v.SetDefault("routing.cache_ttl", d.Routing.CacheTTLSec)

	v.SetDefault("debug", d.Debug)
	v.SetDefault("verbose", d.Verbose)
}
