package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// DefaultConfigPath 可执行文件同级 config/config.yaml
func DefaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, "config", "config.yaml"), nil
}

// WriteFile 将配置写回 YAML
func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	payload := map[string]any{
		"app": map[string]any{
			"name":      cfg.App.Name,
			"version":   cfg.App.Version,
			"log_level": cfg.App.LogLevel,
			"log_path":  cfg.App.LogPath,
		},
		"storage": map[string]any{
			"driver":  cfg.Storage.Driver,
			"db_path": cfg.Storage.DBPath,
			"dsn":     cfg.Storage.DSN,
		},
		"ai": map[string]any{
			"provider": cfg.AI.Provider,
			"openai": map[string]any{
				"api_key":  cfg.AI.OpenAI.APIKey,
				"base_url": cfg.AI.OpenAI.BaseURL,
				"model":    cfg.AI.OpenAI.Model,
			},
			"gemini": map[string]any{
				"api_key": cfg.AI.Gemini.APIKey,
				"model":   cfg.AI.Gemini.Model,
			},
			"embedding": map[string]any{
				"api_key":  cfg.AI.Embedding.APIKey,
				"base_url": cfg.AI.Embedding.BaseURL,
				"model":    cfg.AI.Embedding.Model,
			},
		},
		"feed": map[string]any{
			"batch_size":      cfg.Feed.BatchSize,
			"language":        cfg.Feed.Language,
			"post_length":     cfg.Feed.PostLength,
			"max_concurrency": cfg.Feed.MaxConcurrency,
		},
		"http": map[string]any{
			"listen_addr": cfg.HTTP.ListenAddr,
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
