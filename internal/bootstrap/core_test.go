package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/pkg/config"
	"github.com/yuqie6/LearnFeed/internal/service"
	"github.com/yuqie6/LearnFeed/internal/testutil"
)

type offCompleter struct{}

func (offCompleter) Complete(context.Context, ai.CompletionRequest) (string, error) {
	return "", ai.ErrNotConfigured
}
func (offCompleter) IsConfigured() bool { return false }

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: "sqlite", DBPath: ":memory:"},
		AI: config.AIConfig{
			Provider: "openai",
			OpenAI:   config.OpenAIConfig{Model: "openai/gpt-4o-mini"},
			Gemini:   config.GeminiConfig{Model: "gemini-2.5-flash"},
		},
		Feed: config.FeedConfig{BatchSize: 3, Language: "en", PostLength: "medium", MaxConcurrency: 3},
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := testConfig()
	got := SettingsFromConfig(cfg)
	want := service.GenerationSettings{Language: ai.LanguageEnglish, PostLength: ai.PostLengthMedium, Model: "openai/gpt-4o-mini"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("openai settings mismatch (-want +got):\n%s", diff)
	}

	cfg.AI.Provider = "Gemini"
	cfg.Feed.Language = "pt-BR"
	cfg.Feed.PostLength = "long"
	got = SettingsFromConfig(cfg)
	want = service.GenerationSettings{Language: ai.LanguagePortuguese, PostLength: ai.PostLengthLong, Model: "gemini-2.5-flash"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("gemini settings mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_WiresServices(t *testing.T) {
	c, err := Assemble(testConfig(), testutil.OpenTestDB(t), Clients{Completer: offCompleter{}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if c.Services.Feed == nil || c.Services.Generator == nil || c.Services.Bookmarks == nil || c.Repos.Review == nil {
		t.Fatalf("core not fully wired: %+v", c.Services)
	}
	if c.SemanticSearchEnabled() {
		t.Fatalf("semantic search should be disabled without an embedder")
	}
	if c.SafeMode() {
		t.Fatalf("assembled core without Database should not be in safe mode")
	}
	if err := c.RequireAIConfigured(); !errors.Is(err, ai.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	// 端到端：添加主题后点赞流程不依赖补全服务
	topic, err := c.Services.Progress.AddTopic(context.Background(), "Go", 2)
	if err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	if _, err := c.Services.Feed.Refresh(context.Background()); !errors.Is(err, ai.ErrNotConfigured) {
		t.Fatalf("expected refresh to require AI, got %v", err)
	}
	got, err := c.Repos.Topic.GetByID(context.Background(), topic.ID)
	if err != nil || got == nil || got.PostCount != 0 {
		t.Fatalf("unexpected topic state: %+v err=%v", got, err)
	}
}

func TestAssemble_RejectsNil(t *testing.T) {
	if _, err := Assemble(nil, nil, Clients{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewClients(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Provider = "claude"
	if _, err := NewClients(context.Background(), cfg); err == nil {
		t.Fatalf("expected unknown provider error")
	}

	cfg.AI.Provider = ""
	clients, err := NewClients(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClients: %v", err)
	}
	if clients.Completer == nil || clients.Completer.IsConfigured() {
		t.Fatalf("openai client without key should be unconfigured")
	}
	if clients.Embedder != nil {
		t.Fatalf("embedder should be nil without api key")
	}
}

func TestBookmarkIndexPath(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "no embedding key", mutate: func(c *config.Config) { c.Storage.DBPath = filepath.Join(dir, "a.db") }, want: ""},
		{name: "memory db", mutate: func(c *config.Config) { c.AI.Embedding.APIKey = "k" }, want: ""},
		{name: "postgres", mutate: func(c *config.Config) {
			c.AI.Embedding.APIKey = "k"
			c.Storage.Driver = "postgres"
			c.Storage.DBPath = filepath.Join(dir, "a.db")
		}, want: ""},
		{name: "sqlite file", mutate: func(c *config.Config) {
			c.AI.Embedding.APIKey = "k"
			c.Storage.DBPath = filepath.Join(dir, "a.db")
		}, want: filepath.Join(dir, "bookmark_index")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			if got := bookmarkIndexPath(cfg); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestApplyConfig_PublishesOnlyOnChange(t *testing.T) {
	c, err := Assemble(testConfig(), testutil.OpenTestDB(t), Clients{Completer: offCompleter{}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	rt := &AgentRuntime{Core: c, StartedAt: time.Now()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := c.Hub.Subscribe(ctx, 4)

	rt.applyConfig(testConfig())
	select {
	case evt := <-events:
		t.Fatalf("unexpected event for unchanged config: %+v", evt)
	default:
	}

	next := testConfig()
	next.Feed.Language = "pt-BR"
	rt.applyConfig(next)
	select {
	case evt := <-events:
		if evt.Type != eventbus.TypeSettingsUpdated || evt.Data["language"] != "pt-BR" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected settings_updated event")
	}
	if c.Settings.Settings().Language != ai.LanguagePortuguese {
		t.Fatalf("settings store not updated")
	}
}
