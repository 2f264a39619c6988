package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yuqie6/LearnFeed/internal/schema"
	"gorm.io/gorm"
)

// ReviewRepository 间隔重复计划仓储
type ReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository 创建仓储
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create 新增复习项
func (r *ReviewRepository) Create(ctx context.Context, item *schema.SpacedRepetitionItem) error {
	item.NextReviewAt = item.NextReviewAt.UTC()
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("创建复习计划失败: %w", err)
	}
	return nil
}

// GetByID 获取复习项，不存在返回 nil
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*schema.SpacedRepetitionItem, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// GetByPostTopic 按 (post_id, topic) 获取复习项，不存在返回 nil
func (r *ReviewRepository) GetByPostTopic(ctx context.Context, postID, topic string) (*schema.SpacedRepetitionItem, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("post_id = ? AND topic = ?", postID, topic))
}

func (r *ReviewRepository) first(_ context.Context, q *gorm.DB) (*schema.SpacedRepetitionItem, error) {
	var item schema.SpacedRepetitionItem
	if err := q.Order("id ASC").First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询复习计划失败: %w", err)
	}
	return &item, nil
}

// UpdateSchedule 更新下次复习时间、间隔与次数
func (r *ReviewRepository) UpdateSchedule(ctx context.Context, id int64, nextReviewAt time.Time, intervalDays, reviewCount int) error {
	err := r.db.WithContext(ctx).Model(&schema.SpacedRepetitionItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"next_review_at": nextReviewAt.UTC(),
			"interval_days":  intervalDays,
			"review_count":   reviewCount,
		}).Error
	if err != nil {
		return fmt.Errorf("更新复习计划失败: %w", err)
	}
	return nil
}

// Delete 删除复习项
func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&schema.SpacedRepetitionItem{}).Error; err != nil {
		return fmt.Errorf("删除复习计划失败: %w", err)
	}
	return nil
}

// Due 到期复习项（next_review_at <= now，最早到期在前）
func (r *ReviewRepository) Due(ctx context.Context, now time.Time) ([]schema.SpacedRepetitionItem, error) {
	var items []schema.SpacedRepetitionItem
	err := r.db.WithContext(ctx).
		Where("next_review_at <= ?", now.UTC()).
		Order("next_review_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("查询到期复习失败: %w", err)
	}
	return items, nil
}

// ListAll 全部复习项（按下次复习时间）
func (r *ReviewRepository) ListAll(ctx context.Context) ([]schema.SpacedRepetitionItem, error) {
	var items []schema.SpacedRepetitionItem
	if err := r.db.WithContext(ctx).Order("next_review_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("查询复习计划失败: %w", err)
	}
	return items, nil
}
