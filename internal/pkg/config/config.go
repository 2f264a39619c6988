package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "LEARNFEED"

// Config 应用配置
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Storage StorageConfig `mapstructure:"storage"`
	AI      AIConfig      `mapstructure:"ai"`
	Feed    FeedConfig    `mapstructure:"feed"`
	HTTP    HTTPConfig    `mapstructure:"http"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DBPath string `mapstructure:"db_path"`
	DSN    string `mapstructure:"dsn"`
}

// AIConfig AI 配置
type AIConfig struct {
	Provider  string          `mapstructure:"provider"` // openai | gemini
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

// OpenAIConfig OpenAI 兼容接口配置（默认 OpenRouter）
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// EmbeddingConfig 收藏语义检索的向量接口配置，未配置时退化为关键词检索
type EmbeddingConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// FeedConfig 信息流偏好
type FeedConfig struct {
	BatchSize      int    `mapstructure:"batch_size"`
	Language       string `mapstructure:"language"`
	PostLength     string `mapstructure:"post_length"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
}

// HTTPConfig 本地 HTTP API 配置
type HTTPConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, fs.ErrNotExist) {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	return decode(v)
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 处理环境变量占位符
	cfg.AI.OpenAI.APIKey = expandEnv(cfg.AI.OpenAI.APIKey)
	cfg.AI.Gemini.APIKey = expandEnv(cfg.AI.Gemini.APIKey)
	cfg.AI.Embedding.APIKey = expandEnv(cfg.AI.Embedding.APIKey)
	cfg.Storage.DSN = expandEnv(cfg.Storage.DSN)

	if cfg.Storage.DBPath != ":memory:" {
		cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	}
	if cfg.App.LogPath != "" {
		cfg.App.LogPath = resolvePath(cfg.App.LogPath)
	}
	cfg.Feed.normalize()

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "learnfeed")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_path", "")

	// Storage
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.db_path", "./data/learnfeed.db")
	v.SetDefault("storage.dsn", "")

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.openai.model", "openai/gpt-4o-mini")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.embedding.model", "text-embedding-3-small")

	// Feed
	v.SetDefault("feed.batch_size", 3)
	v.SetDefault("feed.language", "en")
	v.SetDefault("feed.post_length", "medium")
	v.SetDefault("feed.max_concurrency", 3)

	// HTTP
	v.SetDefault("http.listen_addr", "127.0.0.1:7381")
}

func (f *FeedConfig) normalize() {
	if f.BatchSize <= 0 {
		f.BatchSize = 3
	}
	if f.MaxConcurrency <= 0 {
		f.MaxConcurrency = f.BatchSize
	}
	switch f.PostLength {
	case "short", "medium", "long":
	default:
		f.PostLength = "medium"
	}
	if f.Language != "pt-BR" {
		f.Language = "en"
	}
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 解析相对路径为绝对路径
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	// 获取可执行文件目录
	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}
