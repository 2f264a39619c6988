package config

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch 监听配置文件变更，变更后重新解析并回调；只有写入/创建事件触发
func Watch(configPath string, onChange func(*Config)) error {
	if configPath == "" {
		return fmt.Errorf("configPath 不能为空")
	}
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			slog.Warn("重新加载配置失败", "path", e.Name, "error", err)
			return
		}
		slog.Info("配置已重新加载", "path", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
