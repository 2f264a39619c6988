package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yuqie6/LearnFeed/internal/persona"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

const (
	DefaultBatchSize = 3

	// defaultReviewDifficulty 复习项主题无法匹配时的难度
	defaultReviewDifficulty = 2
	// followedBias 优先选择已关注人格的概率
	followedBias = 0.7
	// contextPostLimit sequential/deep_dive 拼接的最近帖子数
	contextPostLimit = 3
	contextSeparator = "\n\n---\n\n"
)

// PostTypeWeight 帖子类型抽样权重
type PostTypeWeight struct {
	Type   schema.PostType
	Weight float64
}

// PostTypeWeights 固定顺序的帖子类型分布
var PostTypeWeights = []PostTypeWeight{
	{schema.PostTypeStandalone, 0.60},
	{schema.PostTypeSequential, 0.15},
	{schema.PostTypeQuiz, 0.10},
	{schema.PostTypeDeepDive, 0.10},
	{schema.PostTypeSpacedReview, 0.05},
}

// TopicWeight 主题及其抽样权重
type TopicWeight struct {
	TopicID           string
	TopicName         string
	Weight            float64
	CurrentDifficulty int
}

// GenerationRequest 一次待生成的帖子（不持久化）
type GenerationRequest struct {
	Topic             string
	PersonalityID     string
	PostType          schema.PostType
	DifficultyLevel   int
	ThreadID          *string
	OriginalConceptID *string
	PreviousContext   string
	// ReviewID 消费的复习项，生成成功后推进其间隔
	ReviewID *int64
}

// CalculateTopicWeights 基础权重 1/N 加上参与度占比 ×0.5，仅计算启用的主题
func CalculateTopicWeights(topics []schema.Topic) []TopicWeight {
	active := make([]schema.Topic, 0, len(topics))
	for _, t := range topics {
		if t.IsActive {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return nil
	}

	base := 1 / float64(len(active))
	total := 0.0
	for _, t := range active {
		total += t.EngagementScore
	}

	weights := make([]TopicWeight, 0, len(active))
	for _, t := range active {
		bonus := 0.0
		if total > 0 {
			bonus = (t.EngagementScore / total) * 0.5
		}
		weights = append(weights, TopicWeight{
			TopicID:           t.ID,
			TopicName:         t.Name,
			Weight:            base + bonus,
			CurrentDifficulty: t.CurrentDifficulty,
		})
	}
	return weights
}

// SelectWeightedTopic 累减抽样，浮点误差时回退到最后一项；weights 不能为空
func SelectWeightedTopic(weights []TopicWeight, r Rand) TopicWeight {
	total := 0.0
	for _, w := range weights {
		total += w.Weight
	}
	remaining := r.Float64() * total
	for _, w := range weights {
		remaining -= w.Weight
		if remaining <= 0 {
			return w
		}
	}
	return weights[len(weights)-1]
}

// SelectPostType 按固定分布抽样帖子类型
func SelectPostType(r Rand) schema.PostType {
	remaining := r.Float64()
	for _, w := range PostTypeWeights {
		remaining -= w.Weight
		if remaining <= 0 {
			return w.Type
		}
	}
	return schema.PostTypeStandalone
}

// SelectPersonality 从兼容人格中选择；已关注且兼容的人格有 70% 概率优先
func SelectPersonality(postType schema.PostType, followed map[string]bool, r Rand) string {
	compatible := persona.ForPostType(postType)
	if len(compatible) == 0 {
		return persona.Default().ID
	}

	var followedCompatible []persona.Personality
	for _, p := range compatible {
		if followed[p.ID] {
			followedCompatible = append(followedCompatible, p)
		}
	}

	if len(followedCompatible) > 0 && r.Float64() < followedBias {
		return followedCompatible[r.IntN(len(followedCompatible))].ID
	}
	return compatible[r.IntN(len(compatible))].ID
}

// FeedPlanner 规划一次刷新要生成的帖子
type FeedPlanner struct {
	reviews       ReviewRepository
	posts         PostRepository
	personalities PersonalityRepository
	rand          Rand
	now           func() time.Time
}

// NewFeedPlanner 创建规划器
func NewFeedPlanner(reviews ReviewRepository, posts PostRepository, personalities PersonalityRepository) *FeedPlanner {
	return &FeedPlanner{
		reviews:       reviews,
		posts:         posts,
		personalities: personalities,
		rand:          DefaultRand(),
		now:           utcNow,
	}
}

// WithRand 替换随机源
func (p *FeedPlanner) WithRand(r Rand) *FeedPlanner {
	if r != nil {
		p.rand = r
	}
	return p
}

// WithClock 替换时钟
func (p *FeedPlanner) WithClock(now func() time.Time) *FeedPlanner {
	if now != nil {
		p.now = now
	}
	return p
}

// GenerateFeedBatch 先消费至多一个到期复习项，再按权重填满批次
// 没有启用的主题时返回空批次
func (p *FeedPlanner) GenerateFeedBatch(ctx context.Context, topics []schema.Topic, batchSize int) ([]GenerationRequest, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	weights := CalculateTopicWeights(topics)
	if len(weights) == 0 {
		return nil, nil
	}

	followed, err := p.personalities.FollowedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取关注人格失败: %w", err)
	}

	requests := make([]GenerationRequest, 0, batchSize)

	due, err := p.reviews.Due(ctx, p.now())
	if err != nil {
		return nil, fmt.Errorf("读取到期复习失败: %w", err)
	}
	if len(due) > 0 {
		item := due[0]
		postID := item.PostID
		reviewID := item.ID
		requests = append(requests, GenerationRequest{
			Topic:             item.Topic,
			PersonalityID:     SelectPersonality(schema.PostTypeSpacedReview, followed, p.rand),
			PostType:          schema.PostTypeSpacedReview,
			DifficultyLevel:   reviewDifficulty(weights, item.Topic),
			OriginalConceptID: &postID,
			PreviousContext:   item.ConceptSummary,
			ReviewID:          &reviewID,
		})
	}

	for len(requests) < batchSize {
		topic := SelectWeightedTopic(weights, p.rand)
		postType := SelectPostType(p.rand)

		req := GenerationRequest{
			Topic:           topic.TopicName,
			PersonalityID:   SelectPersonality(postType, followed, p.rand),
			PostType:        postType,
			DifficultyLevel: topic.CurrentDifficulty,
		}

		if postType.NeedsContext() {
			if err := p.attachContext(ctx, &req); err != nil {
				return nil, err
			}
		}
		requests = append(requests, req)
	}

	return requests, nil
}

func (p *FeedPlanner) attachContext(ctx context.Context, req *GenerationRequest) error {
	recent, err := p.posts.ListByTopic(ctx, req.Topic, contextPostLimit)
	if err != nil {
		return fmt.Errorf("读取主题上下文失败: %w", err)
	}
	if len(recent) == 0 {
		return nil
	}

	parts := make([]string, 0, len(recent))
	for _, post := range recent {
		parts = append(parts, post.Content)
	}
	req.PreviousContext = strings.Join(parts, contextSeparator)

	if req.PostType == schema.PostTypeDeepDive {
		for _, post := range recent {
			if post.ThreadID != nil && *post.ThreadID != "" {
				id := *post.ThreadID
				req.ThreadID = &id
				break
			}
		}
	}
	return nil
}

func reviewDifficulty(weights []TopicWeight, topic string) int {
	for _, w := range weights {
		if strings.EqualFold(w.TopicName, topic) {
			return w.CurrentDifficulty
		}
	}
	return defaultReviewDifficulty
}
