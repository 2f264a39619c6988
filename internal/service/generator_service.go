package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/persona"
	"github.com/yuqie6/LearnFeed/internal/schema"
	"golang.org/x/sync/errgroup"
)

const (
	discussionMaxTokens = 1500
	discussionSeparator = "---"
)

// GeneratorService 把生成请求变成持久化的帖子与回复
type GeneratorService struct {
	completer      ai.Completer
	posts          PostRepository
	replies        ReplyRepository
	topics         TopicPostCounter
	settings       SettingsProvider
	events         EventPublisher
	maxConcurrency int
	now            func() time.Time
}

// GeneratorOptions 可选配置
type GeneratorOptions struct {
	MaxConcurrency int
	Events         EventPublisher
	Now            func() time.Time
}

// NewGeneratorService 创建生成服务
func NewGeneratorService(
	completer ai.Completer,
	posts PostRepository,
	replies ReplyRepository,
	topics TopicPostCounter,
	settings SettingsProvider,
	opts GeneratorOptions,
) *GeneratorService {
	if opts.Now == nil {
		opts.Now = utcNow
	}
	return &GeneratorService{
		completer:      completer,
		posts:          posts,
		replies:        replies,
		topics:         topics,
		settings:       settings,
		events:         opts.Events,
		maxConcurrency: opts.MaxConcurrency,
		now:            opts.Now,
	}
}

// GeneratePost 生成并保存单个帖子
func (s *GeneratorService) GeneratePost(ctx context.Context, req GenerationRequest) (*schema.Post, error) {
	p, ok := persona.ByID(req.PersonalityID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPersonalityNotFound, req.PersonalityID)
	}

	prefs := s.settings.Settings()
	prompt := ai.BuildPostPrompt(req.PostType, ai.PromptContext{
		Personality:     p,
		Topic:           req.Topic,
		DifficultyLevel: req.DifficultyLevel,
		PostLength:      prefs.PostLength,
		Language:        prefs.Language,
		PreviousContext: req.PreviousContext,
		OriginalConcept: req.PreviousContext,
	})

	completion := prompt.Request()
	completion.Model = prefs.Model
	content, err := s.completer.Complete(ctx, completion)
	if err != nil {
		return nil, fmt.Errorf("生成帖子失败: %w", err)
	}

	threadID := req.ThreadID
	if threadID == nil && req.PostType == schema.PostTypeDeepDive {
		id := uuid.NewString()
		threadID = &id
	}

	now := s.now()
	post := &schema.Post{
		ID:                uuid.NewString(),
		PersonalityID:     p.ID,
		Topic:             req.Topic,
		Content:           content,
		DifficultyLevel:   req.DifficultyLevel,
		PostType:          req.PostType,
		ThreadID:          threadID,
		OriginalConceptID: req.OriginalConceptID,
		CreatedAt:         now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	if err := s.topics.IncrementPostCount(ctx, req.Topic, now); err != nil {
		slog.Warn("更新主题帖子数失败", "topic", req.Topic, "error", err)
	}

	s.publish(eventbus.TypePostGenerated, map[string]any{
		"post_id":   post.ID,
		"topic":     post.Topic,
		"post_type": string(post.PostType),
	})
	return post, nil
}

// GeneratePostBatch 并发生成，单个失败只记录日志；结果保持请求顺序
// 请求非空但全部失败时返回 ErrBatchFailed
func (s *GeneratorService) GeneratePostBatch(ctx context.Context, reqs []GenerationRequest) ([]schema.Post, error) {
	slots, errs := s.generateSlots(ctx, reqs)

	posts := make([]schema.Post, 0, len(slots))
	for _, p := range slots {
		if p != nil {
			posts = append(posts, *p)
		}
	}
	if len(reqs) > 0 && len(posts) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrBatchFailed, errors.Join(errs...))
	}
	return posts, nil
}

// generateSlots 与 reqs 一一对应，失败位置为 nil
func (s *GeneratorService) generateSlots(ctx context.Context, reqs []GenerationRequest) ([]*schema.Post, []error) {
	slots := make([]*schema.Post, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, req := range reqs {
		g.Go(func() error {
			post, err := s.GeneratePost(ctx, req)
			if err != nil {
				errs[i] = err
				slog.Warn("生成帖子失败",
					"topic", req.Topic,
					"post_type", string(req.PostType),
					"kind", string(ai.KindOf(err)),
					"error", err,
				)
				s.publish(eventbus.TypeGenerationFailure, map[string]any{
					"topic": req.Topic,
					"kind":  string(ai.KindOf(err)),
				})
				return nil
			}
			slots[i] = post
			return nil
		})
	}
	_ = g.Wait()
	return slots, errs
}

// GenerateDiscussion 生成讨论串：按 "---" 切分，偶数位为提问、奇数位为回答，时间戳逐条 +1s
func (s *GeneratorService) GenerateDiscussion(ctx context.Context, postID string) ([]schema.Reply, error) {
	post, p, err := s.loadPostAndPersona(ctx, postID)
	if err != nil {
		return nil, err
	}

	prefs := s.settings.Settings()
	prompt := ai.BuildDiscussionPrompt(ai.DiscussionContext{
		Personality:  p,
		OriginalPost: post.Content,
		Topic:        post.Topic,
		Language:     prefs.Language,
		PostLength:   prefs.PostLength,
	})
	req := prompt.Request()
	req.Model = prefs.Model
	req.MaxTokens = discussionMaxTokens

	raw, err := s.completer.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("生成讨论失败: %w", err)
	}

	segments := SplitDiscussion(raw)
	base := s.now()
	replies := make([]schema.Reply, 0, len(segments))
	for i, seg := range segments {
		reply := schema.Reply{
			ID:             uuid.NewString(),
			PostID:         post.ID,
			PersonalityID:  post.PersonalityID,
			Content:        seg,
			IsUserQuestion: i%2 == 0,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		if err := s.replies.Create(ctx, &reply); err != nil {
			return replies, err
		}
		replies = append(replies, reply)
	}

	s.publish(eventbus.TypeRepliesGenerated, map[string]any{"post_id": post.ID, "count": len(replies)})
	return replies, nil
}

// GenerateUserReply 先保存用户提问，再生成并保存回答（时间戳晚 1s），返回回答文本
func (s *GeneratorService) GenerateUserReply(ctx context.Context, postID, question string) (string, error) {
	post, p, err := s.loadPostAndPersona(ctx, postID)
	if err != nil {
		return "", err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("问题不能为空")
	}

	asked := s.now()
	if err := s.replies.Create(ctx, &schema.Reply{
		ID:             uuid.NewString(),
		PostID:         post.ID,
		PersonalityID:  post.PersonalityID,
		Content:        question,
		IsUserQuestion: true,
		CreatedAt:      asked,
	}); err != nil {
		return "", err
	}

	prefs := s.settings.Settings()
	prompt := ai.BuildReplyPrompt(ai.ReplyContext{
		Personality:  p,
		OriginalPost: post.Content,
		Question:     question,
		Language:     prefs.Language,
		PostLength:   prefs.PostLength,
	})
	req := prompt.Request()
	req.Model = prefs.Model

	answer, err := s.completer.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("生成回答失败: %w", err)
	}

	if err := s.replies.Create(ctx, &schema.Reply{
		ID:             uuid.NewString(),
		PostID:         post.ID,
		PersonalityID:  post.PersonalityID,
		Content:        answer,
		IsUserQuestion: false,
		CreatedAt:      asked.Add(time.Second),
	}); err != nil {
		return "", err
	}

	s.publish(eventbus.TypeRepliesGenerated, map[string]any{"post_id": post.ID, "count": 2})
	return answer, nil
}

func (s *GeneratorService) loadPostAndPersona(ctx context.Context, postID string) (*schema.Post, persona.Personality, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, persona.Personality{}, err
	}
	if post == nil {
		return nil, persona.Personality{}, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	p, ok := persona.ByID(post.PersonalityID)
	if !ok {
		return nil, persona.Personality{}, fmt.Errorf("%w: %s", ErrPersonalityNotFound, post.PersonalityID)
	}
	return post, p, nil
}

func (s *GeneratorService) publish(typ string, data map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventbus.Event{Type: typ, Data: data})
}

// SplitDiscussion 按分隔符切分并去掉空段
func SplitDiscussion(raw string) []string {
	parts := strings.Split(raw, discussionSeparator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
