package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/persona"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

const defaultPageSize = 20

// PostView 帖子及其派生状态
type PostView struct {
	schema.Post
	PersonalityName  string `json:"personality_name"`
	PersonalityEmoji string `json:"personality_emoji"`
	Liked            bool   `json:"liked"`
	Bookmarked       bool   `json:"bookmarked"`
	ReplyCount       int    `json:"reply_count"`
}

// RefreshResult 一次刷新的结果
type RefreshResult struct {
	Requested int           `json:"requested"`
	Posts     []schema.Post `json:"posts"`
}

// FeedService 信息流：刷新（规划 + 生成）与分页读取
type FeedService struct {
	completer    ai.Completer
	topics       TopicRepository
	planner      *FeedPlanner
	generator    *GeneratorService
	reviews      ReviewScheduler
	posts        PostRepository
	replies      ReplyRepository
	interactions InteractionRepository
	events       EventPublisher
	batchSize    int
}

// FeedDeps FeedService 依赖
type FeedDeps struct {
	Completer    ai.Completer
	Topics       TopicRepository
	Planner      *FeedPlanner
	Generator    *GeneratorService
	Reviews      ReviewScheduler
	Posts        PostRepository
	Replies      ReplyRepository
	Interactions InteractionRepository
	Events       EventPublisher
	BatchSize    int
}

// NewFeedService 创建信息流服务
func NewFeedService(deps FeedDeps) *FeedService {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	return &FeedService{
		completer:    deps.Completer,
		topics:       deps.Topics,
		planner:      deps.Planner,
		generator:    deps.Generator,
		reviews:      deps.Reviews,
		posts:        deps.Posts,
		replies:      deps.Replies,
		interactions: deps.Interactions,
		events:       deps.Events,
		batchSize:    deps.BatchSize,
	}
}

// Refresh 规划一个批次并并发生成；被消费的复习项在对应帖子生成成功后推进
// 没有启用主题时返回空结果；批次全部失败时返回 ErrBatchFailed
func (s *FeedService) Refresh(ctx context.Context) (*RefreshResult, error) {
	if s.completer == nil || !s.completer.IsConfigured() {
		return nil, ai.ErrNotConfigured
	}

	topics, err := s.topics.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	reqs, err := s.planner.GenerateFeedBatch(ctx, topics, s.batchSize)
	if err != nil {
		return nil, err
	}
	result := &RefreshResult{Requested: len(reqs)}
	if len(reqs) == 0 {
		return result, nil
	}

	slots, errs := s.generator.generateSlots(ctx, reqs)
	for i, post := range slots {
		if post == nil {
			continue
		}
		result.Posts = append(result.Posts, *post)
		if reqs[i].ReviewID != nil {
			if err := s.reviews.AdvanceReview(ctx, *reqs[i].ReviewID); err != nil {
				slog.Warn("推进复习间隔失败", "review_id", *reqs[i].ReviewID, "error", err)
			}
		}
	}
	if len(result.Posts) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrBatchFailed, errors.Join(errs...))
	}

	slog.Info("信息流刷新完成", "requested", len(reqs), "generated", len(result.Posts))
	if s.events != nil {
		s.events.Publish(eventbus.Event{Type: eventbus.TypeFeedRefreshed, Data: map[string]any{
			"requested": len(reqs),
			"generated": len(result.Posts),
		}})
	}
	return result, nil
}

// Page 按时间倒序分页，附带点赞/收藏/回复数
func (s *FeedService) Page(ctx context.Context, limit, offset int) ([]PostView, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	posts, err := s.posts.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, posts)
}

// PostDetail 帖子详情与回复（按时间正序）
func (s *FeedService) PostDetail(ctx context.Context, postID string) (*PostView, []schema.Reply, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	views, err := s.decorate(ctx, []schema.Post{*post})
	if err != nil {
		return nil, nil, err
	}
	replies, err := s.replies.ListByPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	return &views[0], replies, nil
}

// Thread 帖子所在的深入讲解串（按时间正序）；不属于任何串时只返回帖子本身
func (s *FeedService) Thread(ctx context.Context, postID string) ([]PostView, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	posts := []schema.Post{*post}
	if post.ThreadID != nil && *post.ThreadID != "" {
		if posts, err = s.posts.ListByThread(ctx, *post.ThreadID); err != nil {
			return nil, err
		}
	}
	return s.decorate(ctx, posts)
}

func (s *FeedService) decorate(ctx context.Context, posts []schema.Post) ([]PostView, error) {
	liked, err := s.interactions.PostIDsByType(ctx, schema.InteractionLike)
	if err != nil {
		return nil, err
	}
	bookmarked, err := s.interactions.PostIDsByType(ctx, schema.InteractionBookmark)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	counts, err := s.replies.CountByPostIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		v := PostView{
			Post:       p,
			Liked:      liked[p.ID],
			Bookmarked: bookmarked[p.ID],
			ReplyCount: counts[p.ID],
		}
		if per, ok := persona.ByID(p.PersonalityID); ok {
			v.PersonalityName = per.Name
			v.PersonalityEmoji = per.AvatarEmoji
		}
		views = append(views, v)
	}
	return views, nil
}
