package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/pkg/config"
	"github.com/yuqie6/LearnFeed/internal/repository"
	"github.com/yuqie6/LearnFeed/internal/service"
	"gorm.io/gorm"
)

// Core 持有跨二进制共享的核心依赖
type Core struct {
	Cfg       *config.Config
	CfgPath   string
	DB        *repository.Database
	LogCloser io.Closer
	Hub       *eventbus.Hub
	Settings  *service.SettingsStore

	Repos struct {
		Topic       *repository.TopicRepository
		Post        *repository.PostRepository
		Reply       *repository.ReplyRepository
		Interaction *repository.InteractionRepository
		Review      *repository.ReviewRepository
		Personality *repository.PersonalityRepository
	}

	Services struct {
		Progress     *service.ProgressService
		Reviews      *service.ReviewService
		Generator    *service.GeneratorService
		Feed         *service.FeedService
		Interactions *service.InteractionService
		Recap        *service.RecapService
		Bookmarks    *service.BookmarkSearchService
	}

	Clients struct {
		Completer ai.Completer
		Embedding *ai.EmbeddingClient
	}

	bookmarkIndex *service.BookmarkIndex
}

// Clients 外部客户端（测试时可替换）
type Clients struct {
	Completer ai.Completer
	Embedder  service.Embedder
	Embedding *ai.EmbeddingClient
}

// NewCore 加载配置、打开数据库并装配服务
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logCloser, _ := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})

	db, err := repository.NewDatabase(cfg.Storage)
	if err != nil {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}

	clients, err := NewClients(context.Background(), cfg)
	if err != nil {
		_ = db.Close()
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}

	c, err := Assemble(cfg, db.DB, clients)
	if err != nil {
		_ = db.Close()
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}
	c.CfgPath = cfgPath
	c.DB = db
	c.LogCloser = logCloser
	return c, nil
}

// NewClients 按 ai.provider 创建补全客户端，并创建可选的向量客户端
func NewClients(ctx context.Context, cfg *config.Config) (Clients, error) {
	var out Clients
	switch strings.ToLower(cfg.AI.Provider) {
	case "gemini":
		g, err := ai.NewGeminiClient(ctx, &ai.GeminiConfig{
			APIKey: cfg.AI.Gemini.APIKey,
			Model:  cfg.AI.Gemini.Model,
		})
		if err != nil {
			return out, err
		}
		out.Completer = g
	case "", "openai":
		out.Completer = ai.NewOpenAIClient(&ai.OpenAIConfig{
			APIKey:  cfg.AI.OpenAI.APIKey,
			BaseURL: cfg.AI.OpenAI.BaseURL,
			Model:   cfg.AI.OpenAI.Model,
		})
	default:
		return out, fmt.Errorf("未知的 ai.provider: %s", cfg.AI.Provider)
	}

	if cfg.AI.Embedding.APIKey != "" {
		out.Embedding = ai.NewEmbeddingClient(&ai.EmbeddingConfig{
			APIKey:  cfg.AI.Embedding.APIKey,
			BaseURL: cfg.AI.Embedding.BaseURL,
			Model:   cfg.AI.Embedding.Model,
		})
		out.Embedder = out.Embedding
	}
	return out, nil
}

// Assemble 在已打开的数据库上装配仓储与服务
func Assemble(cfg *config.Config, db *gorm.DB, clients Clients) (*Core, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("cfg 与 db 不能为空")
	}
	c := &Core{
		Cfg:      cfg,
		Hub:      eventbus.NewHub(),
		Settings: service.NewSettingsStore(SettingsFromConfig(cfg)),
	}
	c.Clients.Completer = clients.Completer
	c.Clients.Embedding = clients.Embedding

	// Repos
	c.Repos.Topic = repository.NewTopicRepository(db)
	c.Repos.Post = repository.NewPostRepository(db)
	c.Repos.Reply = repository.NewReplyRepository(db)
	c.Repos.Interaction = repository.NewInteractionRepository(db)
	c.Repos.Review = repository.NewReviewRepository(db)
	c.Repos.Personality = repository.NewPersonalityRepository(db)

	// 收藏索引：StoragePath 为空时使用内存库，重启后通过 Reindex 重建
	index, err := service.NewBookmarkIndex(clients.Embedder, &service.BookmarkIndexConfig{
		StoragePath: bookmarkIndexPath(cfg),
	})
	if err != nil {
		return nil, err
	}
	c.bookmarkIndex = index

	// Services
	c.Services.Progress = service.NewProgressService(c.Repos.Topic, c.Repos.Personality, service.DefaultEngagementPolicy{}, c.Hub)
	c.Services.Reviews = service.NewReviewService(c.Clients.Completer, c.Repos.Review, c.Settings, c.Hub)
	c.Services.Generator = service.NewGeneratorService(
		c.Clients.Completer,
		c.Repos.Post,
		c.Repos.Reply,
		c.Repos.Topic,
		c.Settings,
		service.GeneratorOptions{MaxConcurrency: cfg.Feed.MaxConcurrency, Events: c.Hub},
	)
	c.Services.Feed = service.NewFeedService(service.FeedDeps{
		Completer:    c.Clients.Completer,
		Topics:       c.Repos.Topic,
		Planner:      service.NewFeedPlanner(c.Repos.Review, c.Repos.Post, c.Repos.Personality),
		Generator:    c.Services.Generator,
		Reviews:      c.Services.Reviews,
		Posts:        c.Repos.Post,
		Replies:      c.Repos.Reply,
		Interactions: c.Repos.Interaction,
		Events:       c.Hub,
		BatchSize:    cfg.Feed.BatchSize,
	})
	c.Services.Interactions = service.NewInteractionService(
		c.Repos.Post,
		c.Repos.Reply,
		c.Repos.Interaction,
		c.Services.Progress,
		c.Services.Reviews,
		index,
		c.Hub,
	)
	c.Services.Recap = service.NewRecapService(c.Clients.Completer, c.Repos.Post, c.Repos.Interaction, c.Repos.Topic, c.Settings)
	c.Services.Bookmarks = service.NewBookmarkSearchService(c.Repos.Post, index)

	return c, nil
}

// SettingsFromConfig 从配置提取生成偏好；模型取当前 provider 的配置
func SettingsFromConfig(cfg *config.Config) service.GenerationSettings {
	model := cfg.AI.OpenAI.Model
	if strings.EqualFold(cfg.AI.Provider, "gemini") {
		model = cfg.AI.Gemini.Model
	}
	return service.GenerationSettings{
		Language:   ai.ParseLanguage(cfg.Feed.Language),
		PostLength: ai.ParsePostLength(cfg.Feed.PostLength),
		Model:      model,
	}
}

func bookmarkIndexPath(cfg *config.Config) string {
	if cfg.AI.Embedding.APIKey == "" {
		return ""
	}
	if cfg.Storage.Driver != "" && cfg.Storage.Driver != repository.DriverSQLite {
		return ""
	}
	if cfg.Storage.DBPath == "" || cfg.Storage.DBPath == ":memory:" {
		return ""
	}
	return filepath.Join(filepath.Dir(cfg.Storage.DBPath), "bookmark_index")
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	if c.LogCloser != nil {
		_ = c.LogCloser.Close()
	}
	return dbErr
}

// RequireAIConfigured 检查补全服务是否已配置
func (c *Core) RequireAIConfigured() error {
	if c.Clients.Completer == nil || !c.Clients.Completer.IsConfigured() {
		return fmt.Errorf("%w: 请在配置文件中设置 ai.%s.api_key", ai.ErrNotConfigured, providerName(c.Cfg))
	}
	return nil
}

// SafeMode 数据库迁移失败时进入只读诊断模式
func (c *Core) SafeMode() bool {
	return c != nil && c.DB != nil && c.DB.SafeMode
}

func providerName(cfg *config.Config) string {
	if cfg != nil && strings.EqualFold(cfg.AI.Provider, "gemini") {
		return "gemini"
	}
	return "openai"
}

// SemanticSearchEnabled 收藏语义检索是否可用
func (c *Core) SemanticSearchEnabled() bool {
	return c != nil && c.bookmarkIndex.Enabled()
}
