package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/LearnFeed/internal/schema"
	"gorm.io/gorm"
)

// ReplyRepository 回复仓储
type ReplyRepository struct {
	db *gorm.DB
}

// NewReplyRepository 创建仓储
func NewReplyRepository(db *gorm.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

// Create 保存回复
func (r *ReplyRepository) Create(ctx context.Context, reply *schema.Reply) error {
	reply.CreatedAt = reply.CreatedAt.UTC()
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return fmt.Errorf("保存回复失败: %w", err)
	}
	return nil
}

// ListByPost 帖子下的回复（按时间正序）
func (r *ReplyRepository) ListByPost(ctx context.Context, postID string) ([]schema.Reply, error) {
	var replies []schema.Reply
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("查询回复失败: %w", err)
	}
	return replies, nil
}

// CountByPostIDs 批量统计回复数，未出现的帖子不在结果中
func (r *ReplyRepository) CountByPostIDs(ctx context.Context, postIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		PostID string
		Count  int
	}
	err := r.db.WithContext(ctx).Model(&schema.Reply{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计回复数失败: %w", err)
	}
	for _, row := range rows {
		out[row.PostID] = row.Count
	}
	return out, nil
}
