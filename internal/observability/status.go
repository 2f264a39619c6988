package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yuqie6/LearnFeed/internal/bootstrap"
	"github.com/yuqie6/LearnFeed/internal/dto"
	"github.com/yuqie6/LearnFeed/internal/repository"
)

var ErrNotReady = errors.New("runtime 未就绪")

// BuildStatus 汇总运行状态；单项统计失败时保留零值，不让状态页整体失败
func BuildStatus(ctx context.Context, core *bootstrap.Core, startedAt time.Time) (*dto.StatusDTO, error) {
	if core == nil || core.Cfg == nil {
		return nil, ErrNotReady
	}
	cfg := core.Cfg
	now := time.Now()
	prefs := core.Settings.Settings()

	out := &dto.StatusDTO{
		App: dto.AppStatusDTO{
			Name:          cfg.App.Name,
			Version:       cfg.App.Version,
			StartedAt:     startedAt.Format(time.RFC3339),
			UptimeSec:     int64(now.Sub(startedAt).Seconds()),
			SafeMode:      core.SafeMode(),
			ConfigPath:    core.CfgPath,
			Subscribers:   core.Hub.Subscribers(),
			DroppedEvents: core.Hub.Dropped(),
		},
		Storage: dto.StorageStatusDTO{
			Driver: storageDriver(cfg.Storage.Driver),
		},
		AI: dto.AIStatusDTO{
			Provider:       providerOrDefault(cfg.AI.Provider),
			Configured:     core.Clients.Completer != nil && core.Clients.Completer.IsConfigured(),
			Model:          prefs.Model,
			SemanticSearch: core.SemanticSearchEnabled(),
		},
		Feed: dto.FeedStatusDTO{
			Language:   string(prefs.Language),
			PostLength: string(prefs.PostLength),
		},
	}
	if out.Storage.Driver == repository.DriverSQLite {
		out.Storage.DBPath = cfg.Storage.DBPath
	}
	if core.DB != nil {
		out.Storage.SchemaVersion = core.DB.SchemaVersion
		out.Storage.SafeModeReason = core.DB.MigrationError
	}

	if core.SafeMode() {
		return out, nil
	}

	if topics, err := core.Repos.Topic.ListAll(ctx); err == nil {
		out.Feed.Topics = len(topics)
		for _, t := range topics {
			if t.IsActive {
				out.Feed.ActiveTopics++
			}
		}
	}
	if n, err := core.Repos.Post.Count(ctx); err == nil {
		out.Feed.TotalPosts = n
	}
	if due, err := core.Repos.Review.Due(ctx, now); err == nil {
		out.Feed.DueReviews = len(due)
	}
	return out, nil
}

func storageDriver(driver string) string {
	d := strings.ToLower(strings.TrimSpace(driver))
	if d == "" {
		return repository.DriverSQLite
	}
	return d
}

func providerOrDefault(p string) string {
	if strings.TrimSpace(p) == "" {
		return "openai"
	}
	return strings.ToLower(p)
}
