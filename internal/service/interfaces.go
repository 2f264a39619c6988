package service

import (
	"context"
	"time"

	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/repository"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

type TopicRepository interface {
	Create(ctx context.Context, topic *schema.Topic) error
	GetByID(ctx context.Context, id string) (*schema.Topic, error)
	GetByName(ctx context.Context, name string) (*schema.Topic, error)
	ListAll(ctx context.Context) ([]schema.Topic, error)
	ListActive(ctx context.Context) ([]schema.Topic, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetDifficulty(ctx context.Context, id string, difficulty int) error
	SetEngagement(ctx context.Context, id string, score float64) error
	IncrementPostCount(ctx context.Context, name string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type PostRepository interface {
	Create(ctx context.Context, post *schema.Post) error
	GetByID(ctx context.Context, id string) (*schema.Post, error)
	ListRecent(ctx context.Context, limit, offset int) ([]schema.Post, error)
	ListByTopic(ctx context.Context, topic string, limit int) ([]schema.Post, error)
	ListByThread(ctx context.Context, threadID string) ([]schema.Post, error)
	MarkRead(ctx context.Context, id string) error
}

type BookmarkRepository interface {
	ListBookmarked(ctx context.Context) ([]schema.Post, error)
	SearchBookmarked(ctx context.Context, query string) ([]schema.Post, error)
	ListByIDs(ctx context.Context, ids []string) ([]schema.Post, error)
}

type PostStatsRepository interface {
	CountSince(ctx context.Context, since time.Time, postType schema.PostType) (int64, error)
	TopicBreakdownSince(ctx context.Context, since time.Time) ([]repository.TopicCount, error)
}

type ReplyRepository interface {
	Create(ctx context.Context, reply *schema.Reply) error
	ListByPost(ctx context.Context, postID string) ([]schema.Reply, error)
	CountByPostIDs(ctx context.Context, postIDs []string) (map[string]int, error)
}

type InteractionRepository interface {
	Create(ctx context.Context, in *schema.Interaction) error
	Exists(ctx context.Context, postID string, t schema.InteractionType) (bool, error)
	DeleteByType(ctx context.Context, postID string, t schema.InteractionType) error
	PostIDsByType(ctx context.Context, t schema.InteractionType) (map[string]bool, error)
	CountSince(ctx context.Context, t schema.InteractionType, since time.Time) (int64, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, item *schema.SpacedRepetitionItem) error
	GetByID(ctx context.Context, id int64) (*schema.SpacedRepetitionItem, error)
	GetByPostTopic(ctx context.Context, postID, topic string) (*schema.SpacedRepetitionItem, error)
	UpdateSchedule(ctx context.Context, id int64, nextReviewAt time.Time, intervalDays, reviewCount int) error
	Delete(ctx context.Context, id int64) error
	Due(ctx context.Context, now time.Time) ([]schema.SpacedRepetitionItem, error)
	ListAll(ctx context.Context) ([]schema.SpacedRepetitionItem, error)
}

type PersonalityRepository interface {
	SetFollowed(ctx context.Context, id string, followed bool) error
	FollowedIDs(ctx context.Context) (map[string]bool, error)
}

// EventPublisher 事件发布（eventbus.Hub 实现），nil 表示不发布
type EventPublisher interface {
	Publish(evt eventbus.Event)
}

// TopicPostCounter 生成帖子后更新主题统计
type TopicPostCounter interface {
	IncrementPostCount(ctx context.Context, name string, at time.Time) error
}

// EngagementAdapter 参与度与难度调整（ProgressService 实现）
type EngagementAdapter interface {
	UpdateEngagement(ctx context.Context, topicName string, t schema.InteractionType) error
	RevertEngagement(ctx context.Context, topicName string, t schema.InteractionType) error
	AdjustDifficulty(ctx context.Context, topicName string, dir Direction) error
}

// ReviewScheduler 间隔重复调度（ReviewService 实现）
type ReviewScheduler interface {
	ScheduleForReview(ctx context.Context, postID, topic, content string) (*schema.SpacedRepetitionItem, error)
	AdvanceReview(ctx context.Context, id int64) error
	ResetReview(ctx context.Context, postID, topic string) error
	SkipReviewAhead(ctx context.Context, postID, topic string) error
}

// BookmarkIndexer 收藏语义索引（BookmarkIndex 实现），可为 nil
type BookmarkIndexer interface {
	Index(ctx context.Context, post schema.Post) error
	Remove(ctx context.Context, postID string) error
}

// Embedder 文本向量化（ai.EmbeddingClient 实现）
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	IsConfigured() bool
}
