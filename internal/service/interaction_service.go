package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

// PostStatus 帖子的派生状态
type PostStatus struct {
	Liked      bool `json:"liked"`
	Bookmarked bool `json:"bookmarked"`
	ReplyCount int  `json:"reply_count"`
}

// InteractionService 点赞/收藏/反馈/已读
// 点赞与收藏状态由交互日志中是否存在对应行推导
type InteractionService struct {
	posts        PostRepository
	replies      ReplyRepository
	interactions InteractionRepository
	engagement   EngagementAdapter
	reviews      ReviewScheduler
	bookmarks    BookmarkIndexer
	events       EventPublisher
	now          func() time.Time
}

// NewInteractionService 创建服务；bookmarks 可为 nil
func NewInteractionService(
	posts PostRepository,
	replies ReplyRepository,
	interactions InteractionRepository,
	engagement EngagementAdapter,
	reviews ReviewScheduler,
	bookmarks BookmarkIndexer,
	events EventPublisher,
) *InteractionService {
	return &InteractionService{
		posts:        posts,
		replies:      replies,
		interactions: interactions,
		engagement:   engagement,
		reviews:      reviews,
		bookmarks:    bookmarks,
		events:       events,
		now:          utcNow,
	}
}

// WithClock 替换时钟
func (s *InteractionService) WithClock(now func() time.Time) *InteractionService {
	if now != nil {
		s.now = now
	}
	return s
}

// ToggleLike 切换点赞，返回切换后的状态
func (s *InteractionService) ToggleLike(ctx context.Context, postID string) (bool, error) {
	return s.toggle(ctx, postID, schema.InteractionLike)
}

// ToggleBookmark 切换收藏，返回切换后的状态
func (s *InteractionService) ToggleBookmark(ctx context.Context, postID string) (bool, error) {
	return s.toggle(ctx, postID, schema.InteractionBookmark)
}

func (s *InteractionService) toggle(ctx context.Context, postID string, t schema.InteractionType) (bool, error) {
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return false, err
	}

	exists, err := s.interactions.Exists(ctx, postID, t)
	if err != nil {
		return false, err
	}

	if exists {
		if err := s.interactions.DeleteByType(ctx, postID, t); err != nil {
			return false, err
		}
		if err := s.engagement.RevertEngagement(ctx, post.Topic, t); err != nil {
			return false, err
		}
		if t == schema.InteractionBookmark && s.bookmarks != nil {
			if err := s.bookmarks.Remove(ctx, postID); err != nil {
				slog.Warn("移除收藏索引失败", "post_id", postID, "error", err)
			}
		}
		s.publish(postID, t, false)
		return false, nil
	}

	if err := s.record(ctx, postID, t, ""); err != nil {
		return false, err
	}
	if err := s.engagement.UpdateEngagement(ctx, post.Topic, t); err != nil {
		return false, err
	}

	// 首次点赞/收藏触发复习计划，失败不影响交互本身
	if _, err := s.reviews.ScheduleForReview(ctx, post.ID, post.Topic, post.Content); err != nil {
		slog.Warn("创建复习计划失败", "post_id", post.ID, "error", err)
	}
	if t == schema.InteractionBookmark && s.bookmarks != nil {
		if err := s.bookmarks.Index(ctx, *post); err != nil {
			slog.Warn("索引收藏失败", "post_id", post.ID, "error", err)
		}
	}
	s.publish(postID, t, true)
	return true, nil
}

// SubmitFeedback 难度反馈：记录交互、调整参与度与难度，并相应跳过或重置复习
func (s *InteractionService) SubmitFeedback(ctx context.Context, postID string, t schema.InteractionType) error {
	dir, ok := FeedbackDirection(t)
	if !ok {
		return fmt.Errorf("无效的反馈类型: %s", t)
	}
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return err
	}

	if err := s.record(ctx, postID, t, ""); err != nil {
		return err
	}
	if err := s.engagement.UpdateEngagement(ctx, post.Topic, t); err != nil {
		return err
	}
	if err := s.engagement.AdjustDifficulty(ctx, post.Topic, dir); err != nil {
		return err
	}

	if t == schema.InteractionTooEasy {
		err = s.reviews.SkipReviewAhead(ctx, post.ID, post.Topic)
	} else {
		err = s.reviews.ResetReview(ctx, post.ID, post.Topic)
	}
	if err != nil {
		return fmt.Errorf("更新复习计划失败: %w", err)
	}

	s.publish(postID, t, true)
	return nil
}

// MarkRead 标记已读并记录一次阅读时长交互
func (s *InteractionService) MarkRead(ctx context.Context, postID string) error {
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return err
	}
	if err := s.posts.MarkRead(ctx, postID); err != nil {
		return err
	}
	if err := s.record(ctx, postID, schema.InteractionTimeSpent, "1"); err != nil {
		return err
	}
	return s.engagement.UpdateEngagement(ctx, post.Topic, schema.InteractionTimeSpent)
}

// PostStatus 点赞/收藏状态与回复数
func (s *InteractionService) PostStatus(ctx context.Context, postID string) (PostStatus, error) {
	if _, err := s.loadPost(ctx, postID); err != nil {
		return PostStatus{}, err
	}
	liked, err := s.interactions.Exists(ctx, postID, schema.InteractionLike)
	if err != nil {
		return PostStatus{}, err
	}
	bookmarked, err := s.interactions.Exists(ctx, postID, schema.InteractionBookmark)
	if err != nil {
		return PostStatus{}, err
	}
	counts, err := s.replies.CountByPostIDs(ctx, []string{postID})
	if err != nil {
		return PostStatus{}, err
	}
	return PostStatus{Liked: liked, Bookmarked: bookmarked, ReplyCount: counts[postID]}, nil
}

func (s *InteractionService) record(ctx context.Context, postID string, t schema.InteractionType, value string) error {
	return s.interactions.Create(ctx, &schema.Interaction{
		PostID:    postID,
		Type:      t,
		Value:     value,
		CreatedAt: s.now(),
	})
}

func (s *InteractionService) loadPost(ctx context.Context, postID string) (*schema.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	return post, nil
}

func (s *InteractionService) publish(postID string, t schema.InteractionType, on bool) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventbus.Event{Type: eventbus.TypeInteraction, Data: map[string]any{
		"post_id": postID,
		"type":    string(t),
		"active":  on,
	}})
}
