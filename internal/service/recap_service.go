package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/repository"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

const (
	recapMaxTokens   = 500
	recapTemperature = 0.7
)

// TopicStat 周报中的单主题统计
type TopicStat struct {
	Topic      string  `json:"topic"`
	Count      int64   `json:"count"`
	Engagement float64 `json:"engagement"`
}

// WeeklyStats 最近 7 天的学习统计
type WeeklyStats struct {
	Since            time.Time   `json:"since"`
	TopicsStudied    []string    `json:"topics_studied"`
	TotalPosts       int64       `json:"total_posts"`
	TotalLikes       int64       `json:"total_likes"`
	TotalBookmarks   int64       `json:"total_bookmarks"`
	ConceptsReviewed int64       `json:"concepts_reviewed"`
	TopicBreakdown   []TopicStat `json:"topic_breakdown"`
}

// Recap 周报
type Recap struct {
	Stats   WeeklyStats `json:"stats"`
	Summary string      `json:"summary"`
}

// RecapService 周报统计与生成
type RecapService struct {
	completer    ai.Completer
	posts        PostStatsRepository
	interactions InteractionRepository
	topics       TopicRepository
	settings     SettingsProvider
}

// NewRecapService 创建周报服务
func NewRecapService(completer ai.Completer, posts PostStatsRepository, interactions InteractionRepository, topics TopicRepository, settings SettingsProvider) *RecapService {
	return &RecapService{
		completer:    completer,
		posts:        posts,
		interactions: interactions,
		topics:       topics,
		settings:     settings,
	}
}

// WeeklyStats 汇总 now 之前 7 天的数据
func (s *RecapService) WeeklyStats(ctx context.Context, now time.Time) (*WeeklyStats, error) {
	since := repository.WeekStart(now)

	totalPosts, err := s.posts.CountSince(ctx, since, "")
	if err != nil {
		return nil, err
	}
	reviewed, err := s.posts.CountSince(ctx, since, schema.PostTypeSpacedReview)
	if err != nil {
		return nil, err
	}
	likes, err := s.interactions.CountSince(ctx, schema.InteractionLike, since)
	if err != nil {
		return nil, err
	}
	bookmarks, err := s.interactions.CountSince(ctx, schema.InteractionBookmark, since)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.posts.TopicBreakdownSince(ctx, since)
	if err != nil {
		return nil, err
	}
	active, err := s.topics.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	stats := &WeeklyStats{
		Since:            since,
		TotalPosts:       totalPosts,
		TotalLikes:       likes,
		TotalBookmarks:   bookmarks,
		ConceptsReviewed: reviewed,
		TopicsStudied:    make([]string, 0, len(breakdown)),
		TopicBreakdown:   make([]TopicStat, 0, len(breakdown)),
	}
	for _, b := range breakdown {
		stat := TopicStat{Topic: b.Topic, Count: b.Count}
		for _, t := range active {
			if strings.EqualFold(t.Name, b.Topic) {
				stat.Engagement = t.EngagementScore
				break
			}
		}
		stats.TopicsStudied = append(stats.TopicsStudied, b.Topic)
		stats.TopicBreakdown = append(stats.TopicBreakdown, stat)
	}
	return stats, nil
}

// GenerateRecap 基于周统计生成激励性周报
func (s *RecapService) GenerateRecap(ctx context.Context, now time.Time) (*Recap, error) {
	stats, err := s.WeeklyStats(ctx, now)
	if err != nil {
		return nil, err
	}

	prefs := s.settings.Settings()
	breakdown := make([]ai.TopicCount, 0, len(stats.TopicBreakdown))
	for _, b := range stats.TopicBreakdown {
		breakdown = append(breakdown, ai.TopicCount{Topic: b.Topic, Count: int(b.Count)})
	}
	req := ai.BuildRecapPrompt(ai.RecapContext{
		Language:         prefs.Language,
		TopicsStudied:    stats.TopicsStudied,
		TotalPosts:       int(stats.TotalPosts),
		TotalLikes:       int(stats.TotalLikes),
		ConceptsReviewed: int(stats.ConceptsReviewed),
		TopicBreakdown:   breakdown,
	}).Request()
	req.Model = prefs.Model
	req.MaxTokens = recapMaxTokens
	req.Temperature = ai.Ptr(recapTemperature)

	summary, err := s.completer.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("生成周报失败: %w", err)
	}
	return &Recap{Stats: *stats, Summary: summary}, nil
}
