package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/pkg/config"
)

// AgentRuntime 常驻进程：在 Core 之上启动配置热更新与后台任务
type AgentRuntime struct {
	*Core
	StartedAt time.Time
}

// NewAgentRuntime 构建 Agent 运行时并启动后台任务
func NewAgentRuntime(ctx context.Context, cfgPath string) (*AgentRuntime, error) {
	core, err := NewCore(cfgPath)
	if err != nil {
		return nil, err
	}

	rt := &AgentRuntime{Core: core, StartedAt: time.Now()}

	if core.SafeMode() {
		// 安全模式：只提供状态与诊断接口，不启动写库任务
		slog.Warn("数据库处于安全模式，跳过后台任务", "reason", core.DB.MigrationError)
		return rt, nil
	}

	if cfgPath != "" {
		if err := config.Watch(cfgPath, rt.applyConfig); err != nil {
			slog.Warn("配置热更新未启用", "error", err)
		}
	}

	// 启动时重建收藏语义索引（未配置向量接口时为空操作）
	go func() {
		if err := core.Services.Bookmarks.Reindex(ctx); err != nil {
			slog.Warn("重建收藏索引失败", "error", err)
		}
	}()

	return rt, nil
}

// applyConfig 只热更新生成偏好；客户端与存储变更需要重启
func (rt *AgentRuntime) applyConfig(cfg *config.Config) {
	next := SettingsFromConfig(cfg)
	if next == rt.Settings.Settings() {
		return
	}
	rt.Settings.Update(next)
	slog.Info("生成偏好已更新", "language", string(next.Language), "post_length", string(next.PostLength), "model", next.Model)
	rt.Hub.Publish(eventbus.Event{
		Type: eventbus.TypeSettingsUpdated,
		Data: map[string]any{
			"language":    string(next.Language),
			"post_length": string(next.PostLength),
			"model":       next.Model,
		},
	})
}

// Close 关闭 Agent 运行时资源
func (rt *AgentRuntime) Close() error {
	if rt == nil {
		return nil
	}
	return rt.Core.Close()
}
