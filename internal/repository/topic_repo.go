package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yuqie6/LearnFeed/internal/schema"
	"gorm.io/gorm"
)

// TopicRepository 主题仓储
type TopicRepository struct {
	db *gorm.DB
}

// NewTopicRepository 创建仓储
func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// Create 创建主题
func (r *TopicRepository) Create(ctx context.Context, topic *schema.Topic) error {
	if err := r.db.WithContext(ctx).Create(topic).Error; err != nil {
		return fmt.Errorf("创建主题失败: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取主题，不存在返回 nil
func (r *TopicRepository) GetByID(ctx context.Context, id string) (*schema.Topic, error) {
	var topic schema.Topic
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&topic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询主题失败: %w", err)
	}
	return &topic, nil
}

// GetByName 按名称（大小写不敏感）获取主题，不存在返回 nil
func (r *TopicRepository) GetByName(ctx context.Context, name string) (*schema.Topic, error) {
	var topic schema.Topic
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).Order("created_at ASC").First(&topic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询主题失败: %w", err)
	}
	return &topic, nil
}

// ListAll 获取全部主题（按名称）
func (r *TopicRepository) ListAll(ctx context.Context) ([]schema.Topic, error) {
	var topics []schema.Topic
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("查询主题失败: %w", err)
	}
	return topics, nil
}

// ListActive 获取启用的主题（按名称）
func (r *TopicRepository) ListActive(ctx context.Context) ([]schema.Topic, error) {
	var topics []schema.Topic
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("查询主题失败: %w", err)
	}
	return topics, nil
}

// SetActive 启用/停用主题
func (r *TopicRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateColumn(ctx, id, "is_active", active)
}

// SetDifficulty 更新当前难度（调用方负责限制范围）
func (r *TopicRepository) SetDifficulty(ctx context.Context, id string, difficulty int) error {
	return r.updateColumn(ctx, id, "current_difficulty", difficulty)
}

// SetEngagement 覆盖参与度分数
func (r *TopicRepository) SetEngagement(ctx context.Context, id string, score float64) error {
	return r.updateColumn(ctx, id, "engagement_score", score)
}

// IncrementPostCount 帖子数 +1 并记录最近发帖时间，按名称大小写不敏感匹配
func (r *TopicRepository) IncrementPostCount(ctx context.Context, name string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&schema.Topic{}).
		Where("LOWER(name) = LOWER(?)", name).
		Updates(map[string]any{
			"post_count":   gorm.Expr("post_count + ?", 1),
			"last_post_at": at.UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("更新主题帖子数失败: %w", err)
	}
	return nil
}

// Delete 删除主题
func (r *TopicRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&schema.Topic{}).Error; err != nil {
		return fmt.Errorf("删除主题失败: %w", err)
	}
	return nil
}

func (r *TopicRepository) updateColumn(ctx context.Context, id, column string, value any) error {
	err := r.db.WithContext(ctx).Model(&schema.Topic{}).Where("id = ?", id).Update(column, value).Error
	if err != nil {
		return fmt.Errorf("更新主题 %s 失败: %w", column, err)
	}
	return nil
}
