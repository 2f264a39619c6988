package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yuqie6/LearnFeed/internal/schema"
	"gorm.io/gorm"
)

// InteractionRepository 交互日志仓储
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository 创建仓储
func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Create 追加一条交互
func (r *InteractionRepository) Create(ctx context.Context, in *schema.Interaction) error {
	in.CreatedAt = in.CreatedAt.UTC()
	if err := r.db.WithContext(ctx).Create(in).Error; err != nil {
		return fmt.Errorf("记录交互失败: %w", err)
	}
	return nil
}

// Exists 帖子是否存在该类型的交互
func (r *InteractionRepository) Exists(ctx context.Context, postID string, t schema.InteractionType) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&schema.Interaction{}).
		Where("post_id = ? AND interaction_type = ?", postID, t).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("查询交互失败: %w", err)
	}
	return n > 0, nil
}

// DeleteByType 删除帖子上该类型的全部交互
func (r *InteractionRepository) DeleteByType(ctx context.Context, postID string, t schema.InteractionType) error {
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND interaction_type = ?", postID, t).
		Delete(&schema.Interaction{}).Error
	if err != nil {
		return fmt.Errorf("删除交互失败: %w", err)
	}
	return nil
}

// PostIDsByType 存在该类型交互的帖子 ID 集合
func (r *InteractionRepository) PostIDsByType(ctx context.Context, t schema.InteractionType) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&schema.Interaction{}).
		Distinct("post_id").
		Where("interaction_type = ?", t).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询交互失败: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// CountSince 指定时间之后该类型交互的次数
func (r *InteractionRepository) CountSince(ctx context.Context, t schema.InteractionType, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&schema.Interaction{}).
		Where("interaction_type = ? AND created_at >= ?", t, since.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("统计交互失败: %w", err)
	}
	return n, nil
}
