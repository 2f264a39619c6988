package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

const (
	conceptMaxTokens   = 100
	conceptTemperature = 0.3
	conceptFallbackLen = 200
	// skipAheadSteps too_easy 反馈一次跳过的阶梯数
	skipAheadSteps = 2
)

// ReviewService 间隔重复调度
type ReviewService struct {
	completer ai.Completer
	reviews   ReviewRepository
	settings  SettingsProvider
	events    EventPublisher
	now       func() time.Time
}

// NewReviewService 创建调度服务
func NewReviewService(completer ai.Completer, reviews ReviewRepository, settings SettingsProvider, events EventPublisher) *ReviewService {
	return &ReviewService{
		completer: completer,
		reviews:   reviews,
		settings:  settings,
		events:    events,
		now:       utcNow,
	}
}

// WithClock 替换时钟
func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	if now != nil {
		s.now = now
	}
	return s
}

// ScheduleForReview 为帖子概念创建复习项（首个间隔）
// 概念摘要生成失败时退化为内容前 200 字符；同一 (postID, topic) 已存在时不重复创建
func (s *ReviewService) ScheduleForReview(ctx context.Context, postID, topic, content string) (*schema.SpacedRepetitionItem, error) {
	existing, err := s.reviews.GetByPostTopic(ctx, postID, topic)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	item := &schema.SpacedRepetitionItem{
		PostID:         postID,
		Topic:          topic,
		ConceptSummary: s.summarize(ctx, content),
		NextReviewAt:   s.after(schema.ReviewIntervals[0]),
		IntervalDays:   schema.ReviewIntervals[0],
		ReviewCount:    0,
	}
	if err := s.reviews.Create(ctx, item); err != nil {
		return nil, err
	}
	s.changed(item.PostID)
	return item, nil
}

func (s *ReviewService) summarize(ctx context.Context, content string) string {
	if s.completer == nil || !s.completer.IsConfigured() {
		return firstRunes(content, conceptFallbackLen)
	}
	prefs := s.settings.Settings()
	req := ai.BuildConceptExtractionPrompt(content, prefs.Language).Request()
	req.Model = prefs.Model
	req.MaxTokens = conceptMaxTokens
	req.Temperature = ai.Ptr(conceptTemperature)

	summary, err := s.completer.Complete(ctx, req)
	if err != nil {
		slog.Warn("提取概念失败，使用内容截断", "kind", string(ai.KindOf(err)), "error", err)
		return firstRunes(content, conceptFallbackLen)
	}
	return summary
}

// AdvanceReview 推进到下一个间隔；已在最后一级时删除
func (s *ReviewService) AdvanceReview(ctx context.Context, id int64) error {
	item, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}

	last := len(schema.ReviewIntervals) - 1
	cur := item.IntervalIndex()
	if cur >= last {
		return s.remove(ctx, item)
	}
	next := schema.ReviewIntervals[min(cur+1, last)]
	if err := s.reviews.UpdateSchedule(ctx, item.ID, s.after(next), next, item.ReviewCount+1); err != nil {
		return err
	}
	s.changed(item.PostID)
	return nil
}

// ResetReview 回到第一级间隔并清零次数
func (s *ReviewService) ResetReview(ctx context.Context, postID, topic string) error {
	item, err := s.reviews.GetByPostTopic(ctx, postID, topic)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	first := schema.ReviewIntervals[0]
	if err := s.reviews.UpdateSchedule(ctx, item.ID, s.after(first), first, 0); err != nil {
		return err
	}
	s.changed(item.PostID)
	return nil
}

// SkipReviewAhead 向前跳两级；到达或越过最后一级时删除
func (s *ReviewService) SkipReviewAhead(ctx context.Context, postID, topic string) error {
	item, err := s.reviews.GetByPostTopic(ctx, postID, topic)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}

	last := len(schema.ReviewIntervals) - 1
	next := min(item.IntervalIndex()+skipAheadSteps, last)
	if next >= last {
		return s.remove(ctx, item)
	}
	interval := schema.ReviewIntervals[next]
	if err := s.reviews.UpdateSchedule(ctx, item.ID, s.after(interval), interval, item.ReviewCount+1); err != nil {
		return err
	}
	s.changed(item.PostID)
	return nil
}

// DueReviews 到期复习项，最早到期在前
func (s *ReviewService) DueReviews(ctx context.Context, now time.Time) ([]schema.SpacedRepetitionItem, error) {
	return s.reviews.Due(ctx, now)
}

// ListReviews 全部复习项
func (s *ReviewService) ListReviews(ctx context.Context) ([]schema.SpacedRepetitionItem, error) {
	return s.reviews.ListAll(ctx)
}

func (s *ReviewService) remove(ctx context.Context, item *schema.SpacedRepetitionItem) error {
	if err := s.reviews.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("删除复习项失败: %w", err)
	}
	s.changed(item.PostID)
	return nil
}

func (s *ReviewService) after(days int) time.Time {
	return s.now().Add(time.Duration(days) * 24 * time.Hour)
}

func (s *ReviewService) changed(postID string) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventbus.Event{Type: eventbus.TypeReviewsChanged, Data: map[string]any{"post_id": postID}})
}
