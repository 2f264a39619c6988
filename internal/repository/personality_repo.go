package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/LearnFeed/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PersonalityRepository 人格关注状态仓储
type PersonalityRepository struct {
	db *gorm.DB
}

// NewPersonalityRepository 创建仓储
func NewPersonalityRepository(db *gorm.DB) *PersonalityRepository {
	return &PersonalityRepository{db: db}
}

// SetFollowed 设置关注状态（不存在时插入）
func (r *PersonalityRepository) SetFollowed(ctx context.Context, id string, followed bool) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_followed"}),
	}).Create(&schema.PersonalityState{ID: id, IsFollowed: followed}).Error
	if err != nil {
		return fmt.Errorf("更新关注状态失败: %w", err)
	}
	return nil
}

// FollowedIDs 已关注人格 ID 集合
func (r *PersonalityRepository) FollowedIDs(ctx context.Context) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&schema.PersonalityState{}).
		Where("is_followed = ?", true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询关注人格失败: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
