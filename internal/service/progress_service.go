package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/persona"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

// ProgressService 主题、参与度与难度管理
type ProgressService struct {
	topics        TopicRepository
	personalities PersonalityRepository
	policy        EngagementPolicy
	events        EventPublisher
}

// NewProgressService 创建服务；policy 为 nil 时使用默认增量表
func NewProgressService(topics TopicRepository, personalities PersonalityRepository, policy EngagementPolicy, events EventPublisher) *ProgressService {
	if policy == nil {
		policy = DefaultEngagementPolicy{}
	}
	return &ProgressService{
		topics:        topics,
		personalities: personalities,
		policy:        policy,
		events:        events,
	}
}

// UpdateEngagement 按交互类型调整主题参与度，下限为 0
// 主题不存在、类型未知或增量为 0 时不做任何事
func (s *ProgressService) UpdateEngagement(ctx context.Context, topicName string, t schema.InteractionType) error {
	return s.applyEngagement(ctx, topicName, s.policy.Delta(t))
}

// RevertEngagement 撤销一次交互的增量（取消点赞/收藏）
func (s *ProgressService) RevertEngagement(ctx context.Context, topicName string, t schema.InteractionType) error {
	return s.applyEngagement(ctx, topicName, -s.policy.Delta(t))
}

func (s *ProgressService) applyEngagement(ctx context.Context, topicName string, delta float64) error {
	if delta == 0 {
		return nil
	}
	topic, err := s.topics.GetByName(ctx, topicName)
	if err != nil {
		return err
	}
	if topic == nil {
		slog.Debug("参与度更新跳过：主题不存在", "topic", topicName)
		return nil
	}

	topic.ApplyEngagement(delta)
	if err := s.topics.SetEngagement(ctx, topic.ID, topic.EngagementScore); err != nil {
		return err
	}
	s.publish(eventbus.TypeTopicsChanged, topic.ID)
	return nil
}

// AdjustDifficulty harder 加一级、easier 减一级，结果限制在 [1,5]
func (s *ProgressService) AdjustDifficulty(ctx context.Context, topicName string, dir Direction) error {
	topic, err := s.topics.GetByName(ctx, topicName)
	if err != nil {
		return err
	}
	if topic == nil {
		slog.Debug("难度调整跳过：主题不存在", "topic", topicName)
		return nil
	}

	next := NextDifficulty(topic.CurrentDifficulty, dir)
	if next == topic.CurrentDifficulty {
		return nil
	}
	if err := s.topics.SetDifficulty(ctx, topic.ID, next); err != nil {
		return err
	}
	s.publish(eventbus.TypeTopicsChanged, topic.ID)
	return nil
}

// AddTopic 新增主题；同名（大小写不敏感）主题已存在时直接返回已有主题
func (s *ProgressService) AddTopic(ctx context.Context, name string, difficulty int) (*schema.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidTopicName
	}
	existing, err := s.topics.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	topic := schema.NewTopic(uuid.NewString(), name, difficulty)
	if err := s.topics.Create(ctx, topic); err != nil {
		return nil, err
	}
	s.publish(eventbus.TypeTopicsChanged, topic.ID)
	return topic, nil
}

// RemoveTopic 删除主题
func (s *ProgressService) RemoveTopic(ctx context.Context, id string) error {
	if _, err := s.mustTopic(ctx, id); err != nil {
		return err
	}
	if err := s.topics.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(eventbus.TypeTopicsChanged, id)
	return nil
}

// SetTopicActive 启用/停用主题
func (s *ProgressService) SetTopicActive(ctx context.Context, id string, active bool) error {
	if _, err := s.mustTopic(ctx, id); err != nil {
		return err
	}
	if err := s.topics.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.publish(eventbus.TypeTopicsChanged, id)
	return nil
}

// ToggleTopicActive 切换启用状态，返回新状态
func (s *ProgressService) ToggleTopicActive(ctx context.Context, id string) (bool, error) {
	topic, err := s.mustTopic(ctx, id)
	if err != nil {
		return false, err
	}
	next := !topic.IsActive
	if err := s.topics.SetActive(ctx, id, next); err != nil {
		return false, err
	}
	s.publish(eventbus.TypeTopicsChanged, id)
	return next, nil
}

// SetTopicDifficulty 手动设置难度（限制在 [1,5]）
func (s *ProgressService) SetTopicDifficulty(ctx context.Context, id string, difficulty int) error {
	if _, err := s.mustTopic(ctx, id); err != nil {
		return err
	}
	if err := s.topics.SetDifficulty(ctx, id, schema.ClampDifficulty(difficulty)); err != nil {
		return err
	}
	s.publish(eventbus.TypeTopicsChanged, id)
	return nil
}

// ListTopics 全部主题
func (s *ProgressService) ListTopics(ctx context.Context) ([]schema.Topic, error) {
	return s.topics.ListAll(ctx)
}

// ActiveTopics 启用的主题
func (s *ProgressService) ActiveTopics(ctx context.Context) ([]schema.Topic, error) {
	return s.topics.ListActive(ctx)
}

// PersonalityView 人格及其关注状态
type PersonalityView struct {
	persona.Personality
	IsFollowed bool
}

// ListPersonalities 静态人格表附带关注状态
func (s *ProgressService) ListPersonalities(ctx context.Context) ([]PersonalityView, error) {
	followed, err := s.personalities.FollowedIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PersonalityView, 0, len(persona.All))
	for _, p := range persona.All {
		out = append(out, PersonalityView{Personality: p, IsFollowed: followed[p.ID]})
	}
	return out, nil
}

// FollowPersonality 关注/取消关注
func (s *ProgressService) FollowPersonality(ctx context.Context, id string, follow bool) error {
	if _, ok := persona.ByID(id); !ok {
		return fmt.Errorf("%w: %s", ErrPersonalityNotFound, id)
	}
	return s.personalities.SetFollowed(ctx, id, follow)
}

func (s *ProgressService) mustTopic(ctx context.Context, id string) (*schema.Topic, error) {
	topic, err := s.topics.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, id)
	}
	return topic, nil
}

func (s *ProgressService) publish(typ, topicID string) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventbus.Event{Type: typ, Data: map[string]any{"topic_id": topicID}})
}
