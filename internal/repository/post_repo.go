package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuqie6/LearnFeed/internal/schema"
	"gorm.io/gorm"
)

// PostRepository 帖子仓储
type PostRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建仓储
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create 保存帖子
func (r *PostRepository) Create(ctx context.Context, post *schema.Post) error {
	post.CreatedAt = post.CreatedAt.UTC()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("保存帖子失败: %w", err)
	}
	return nil
}

// GetByID 获取帖子，不存在返回 nil
func (r *PostRepository) GetByID(ctx context.Context, id string) (*schema.Post, error) {
	var post schema.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询帖子失败: %w", err)
	}
	return &post, nil
}

// ListRecent 按时间倒序分页
func (r *PostRepository) ListRecent(ctx context.Context, limit, offset int) ([]schema.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	var posts []schema.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("查询帖子失败: %w", err)
	}
	return posts, nil
}

// ListByTopic 同主题最近的帖子（倒序）
func (r *PostRepository) ListByTopic(ctx context.Context, topic string, limit int) ([]schema.Post, error) {
	var posts []schema.Post
	q := r.db.WithContext(ctx).Where("topic = ?", topic).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("查询主题帖子失败: %w", err)
	}
	return posts, nil
}

// ListByThread 同一讨论串的帖子（正序）
func (r *PostRepository) ListByThread(ctx context.Context, threadID string) ([]schema.Post, error) {
	var posts []schema.Post
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("查询讨论串失败: %w", err)
	}
	return posts, nil
}

// MarkRead 标记已读
func (r *PostRepository) MarkRead(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&schema.Post{}).Where("id = ?", id).Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("标记已读失败: %w", err)
	}
	return nil
}

// Count 帖子总数
func (r *PostRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&schema.Post{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计帖子失败: %w", err)
	}
	return n, nil
}

// CountSince 指定时间之后生成的帖子数；postType 为空表示全部类型
func (r *PostRepository) CountSince(ctx context.Context, since time.Time, postType schema.PostType) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&schema.Post{}).Where("created_at >= ?", since.UTC())
	if postType != "" {
		q = q.Where("post_type = ?", postType)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计帖子失败: %w", err)
	}
	return n, nil
}

// TopicCount 主题帖子数
type TopicCount struct {
	Topic string `json:"topic"`
	Count int64  `json:"count"`
}

// TopicBreakdownSince 指定时间之后按主题统计帖子数（多到少）
func (r *PostRepository) TopicBreakdownSince(ctx context.Context, since time.Time) ([]TopicCount, error) {
	var rows []TopicCount
	err := r.db.WithContext(ctx).Model(&schema.Post{}).
		Select("topic, COUNT(*) AS count").
		Where("created_at >= ?", since.UTC()).
		Group("topic").
		Order("count DESC, topic ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计主题分布失败: %w", err)
	}
	return rows, nil
}

// ListBookmarked 已收藏的帖子（按收藏时间倒序）
func (r *PostRepository) ListBookmarked(ctx context.Context) ([]schema.Post, error) {
	return r.searchBookmarked(ctx, "")
}

// SearchBookmarked 在已收藏帖子的内容/主题中做 LIKE 检索
func (r *PostRepository) SearchBookmarked(ctx context.Context, query string) ([]schema.Post, error) {
	return r.searchBookmarked(ctx, strings.TrimSpace(query))
}

func (r *PostRepository) searchBookmarked(ctx context.Context, query string) ([]schema.Post, error) {
	var posts []schema.Post
	q := r.db.WithContext(ctx).
		Table("posts AS p").
		Select("p.*").
		Joins("INNER JOIN user_interactions ui ON p.id = ui.post_id").
		Where("ui.interaction_type = ?", schema.InteractionBookmark)
	if query != "" {
		pattern := "%" + escapeLike(query) + "%"
		q = q.Where("(p.content LIKE ? ESCAPE '\\' OR p.topic LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if err := q.Order("ui.created_at DESC").Scan(&posts).Error; err != nil {
		return nil, fmt.Errorf("查询收藏失败: %w", err)
	}
	return posts, nil
}

// ListByIDs 按 ID 批量获取
func (r *PostRepository) ListByIDs(ctx context.Context, ids []string) ([]schema.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []schema.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("查询帖子失败: %w", err)
	}
	return posts, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
