package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix 环境变量前缀，例如 DOCTRANSLATOR_API_BASE_URL
	EnvPrefix = "DOCTRANSLATOR"
	// ConfigName 配置文件名（不含扩展名）
	ConfigName = ".doctranslator"

	ProviderDocAPI = "docapi"
	ProviderOpenAI = "openai"
)

// APIConfig 远端翻译服务
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// AuthConfig 会话令牌
type AuthConfig struct {
	Token     string `mapstructure:"token"`      // 固定令牌，优先于 token_file
	TokenFile string `mapstructure:"token_file"` // 登录后令牌保存位置
}

// TranslatorConfig 翻译后端选择
type TranslatorConfig struct {
	Provider string `mapstructure:"provider"` // docapi 或 openai
}

// OpenAIConfig OpenAI 后端
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// MarkdownConfig Markdown 转换
type MarkdownConfig struct {
	Format  bool `mapstructure:"format"`   // 出站 Markdown 经 markdownfmt 规范化
	RawHTML bool `mapstructure:"raw_html"` // 入站 Markdown 保留原始 HTML
}

// DownloadConfig 导出文件
type DownloadConfig struct {
	FileName string `mapstructure:"filename"`
}

// LanguagesConfig 语言表
type LanguagesConfig struct {
	File string `mapstructure:"file"` // 可选的 TOML 覆盖文件
}

// StatsConfig 翻译统计
type StatsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"` // 为空时只保存在内存中
}

// CacheConfig 翻译结果缓存
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Dir     string        `mapstructure:"dir"` // 为空时使用内存缓存
	TTL     time.Duration `mapstructure:"ttl"` // 0 表示永不过期
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadMB    int      `mapstructure:"max_upload_mb"`
}

// Config 保存全部配置
type Config struct {
	Debug      bool             `mapstructure:"debug"`
	API        APIConfig        `mapstructure:"api"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Translator TranslatorConfig `mapstructure:"translator"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Markdown   MarkdownConfig   `mapstructure:"markdown"`
	Download   DownloadConfig   `mapstructure:"download"`
	Languages  LanguagesConfig  `mapstructure:"languages"`
	Stats      StatsConfig      `mapstructure:"stats"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Server     ServerConfig     `mapstructure:"server"`
}

// LoadConfig 从文件、.env 与环境变量加载配置
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果配置路径已指定，则直接使用
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
	}

	// 读取环境变量
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，则使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// NewDefaultConfig 创建一个新的默认配置
func NewDefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// 默认值总能解码
	_ = v.Unmarshal(&config)
	return &config
}

// Validate 校验配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.API),
		validation.Field(&c.Translator),
		validation.Field(&c.OpenAI, validation.When(c.Translator.Provider == ProviderOpenAI,
			validation.By(func(value interface{}) error {
				cfg, _ := value.(OpenAIConfig)
				return validation.ValidateStruct(&cfg,
					validation.Field(&cfg.APIKey, validation.Required),
					validation.Field(&cfg.Model, validation.Required),
				)
			}))),
		validation.Field(&c.Download),
		validation.Field(&c.Cache),
		validation.Field(&c.Server),
	)
}

func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
	)
}

func (c APIConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.Timeout, validation.Required),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
	)
}

func (c TranslatorConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Provider, validation.Required, validation.In(ProviderDocAPI, ProviderOpenAI)),
	)
}

func (c DownloadConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FileName, validation.Required),
	)
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.MaxUploadMB, validation.Required, validation.Min(1)),
	)
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 2*time.Minute)
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.retry_delay", time.Second)

	v.SetDefault("auth.token", "")
	v.SetDefault("auth.token_file", defaultTokenFile())

	v.SetDefault("translator.provider", ProviderDocAPI)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.3)

	v.SetDefault("markdown.format", false)
	v.SetDefault("markdown.raw_html", false)

	v.SetDefault("download.filename", "converted-file.docx")

	v.SetDefault("languages.file", "")

	v.SetDefault("stats.enabled", true)
	v.SetDefault("stats.file", defaultDataFile("stats.json"))

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.ttl", 7*24*time.Hour)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.max_upload_mb", 20)
}

// defaultTokenFile 获取默认令牌文件位置
func defaultTokenFile() string {
	return defaultDataFile("token")
}

// defaultDataFile 获取默认数据文件位置
func defaultDataFile(name string) string {
	// 优先使用系统配置目录
	configDir, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(configDir, "doctranslator", name)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(homeDir, ".doctranslator", name)
	}

	// 最后的兜底方案
	return ".doctranslator-" + name
}
