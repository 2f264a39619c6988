package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

const (
	bookmarkCollection = "bookmarks"
	defaultSearchLimit = 10
)

// BookmarkIndex 收藏帖子的向量索引；未配置向量接口时所有操作退化为空操作
type BookmarkIndex struct {
	db       *chromem.DB
	embedder Embedder

	mu         sync.RWMutex
	collection *chromem.Collection
	// pending 重建期间的增量写入，nil 值表示删除；非重建期间为 nil
	pending map[string]*chromem.Document

	rebuildMu sync.Mutex
}

// BookmarkIndexConfig 配置
type BookmarkIndexConfig struct {
	// StoragePath 为空时使用内存库
	StoragePath string
}

// NewBookmarkIndex 创建索引
func NewBookmarkIndex(embedder Embedder, cfg *BookmarkIndexConfig) (*BookmarkIndex, error) {
	if cfg == nil {
		cfg = &BookmarkIndexConfig{}
	}

	var db *chromem.DB
	if cfg.StoragePath == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
			return nil, fmt.Errorf("创建向量存储目录失败: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.StoragePath, false)
		if err != nil {
			return nil, fmt.Errorf("创建向量数据库失败: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(bookmarkCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 collection 失败: %w", err)
	}

	return &BookmarkIndex{db: db, collection: collection, embedder: embedder}, nil
}

// Enabled 向量接口是否可用
func (b *BookmarkIndex) Enabled() bool {
	return b != nil && b.embedder != nil && b.embedder.IsConfigured()
}

// Index 索引一个收藏帖子
func (b *BookmarkIndex) Index(ctx context.Context, post schema.Post) error {
	if !b.Enabled() {
		return nil
	}
	doc, err := b.document(ctx, post)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("添加文档失败: %w", err)
	}
	if b.pending != nil {
		b.pending[doc.ID] = &doc
	}
	slog.Debug("索引收藏", "post_id", post.ID)
	return nil
}

// Remove 移除帖子索引
func (b *BookmarkIndex) Remove(ctx context.Context, postID string) error {
	if !b.Enabled() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.collection.Delete(ctx, nil, nil, postID); err != nil {
		return fmt.Errorf("删除文档失败: %w", err)
	}
	if b.pending != nil {
		b.pending[postID] = nil
	}
	return nil
}

// Rebuild 用 load 返回的收藏列表重建索引。
// load 在开始记录增量之后调用，嵌入在锁外计算，完成后在写锁内替换 collection；
// 重建期间的 Index/Remove 会在替换时重放
func (b *BookmarkIndex) Rebuild(ctx context.Context, load func(context.Context) ([]schema.Post, error)) error {
	if !b.Enabled() {
		return nil
	}
	b.rebuildMu.Lock()
	defer b.rebuildMu.Unlock()

	b.mu.Lock()
	b.pending = make(map[string]*chromem.Document)
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.pending = nil
		b.mu.Unlock()
	}()

	posts, err := load(ctx)
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, 0, len(posts))
	for _, p := range posts {
		doc, err := b.document(ctx, p)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	byID := make(map[string]int, len(docs))
	for i, d := range docs {
		byID[d.ID] = i
	}
	for id, doc := range b.pending {
		i, ok := byID[id]
		switch {
		case doc == nil && ok:
			docs[i].ID = ""
		case doc != nil && ok:
			docs[i] = *doc
		case doc != nil:
			docs = append(docs, *doc)
		}
	}
	live := docs[:0]
	for _, d := range docs {
		if d.ID != "" {
			live = append(live, d)
		}
	}

	if err := b.db.DeleteCollection(bookmarkCollection); err != nil {
		return fmt.Errorf("删除 collection 失败: %w", err)
	}
	collection, err := b.db.GetOrCreateCollection(bookmarkCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("创建 collection 失败: %w", err)
	}
	b.collection = collection
	if len(live) > 0 {
		if err := collection.AddDocuments(ctx, live, 1); err != nil {
			return fmt.Errorf("添加文档失败: %w", err)
		}
	}
	slog.Debug("重建收藏索引", "count", len(live))
	return nil
}

func (b *BookmarkIndex) document(ctx context.Context, post schema.Post) (chromem.Document, error) {
	content := bookmarkDocument(post)
	embeddings, err := b.embedder.Embed(ctx, []string{content})
	if err != nil {
		return chromem.Document{}, fmt.Errorf("生成嵌入失败: %w", err)
	}
	if len(embeddings) == 0 {
		return chromem.Document{}, fmt.Errorf("嵌入结果为空")
	}
	return chromem.Document{
		ID:        post.ID,
		Content:   content,
		Embedding: embeddings[0],
		Metadata: map[string]string{
			"topic":     post.Topic,
			"post_type": string(post.PostType),
		},
	}, nil
}

// Query 语义检索，返回按相似度排序的帖子 ID
func (b *BookmarkIndex) Query(ctx context.Context, query string, topK int) ([]string, error) {
	if !b.Enabled() {
		return nil, nil
	}
	b.mu.RLock()
	collection := b.collection
	b.mu.RUnlock()

	n := collection.Count()
	if n == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = defaultSearchLimit
	}
	topK = min(topK, n)

	queryEmb, err := b.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("生成查询嵌入失败: %w", err)
	}
	if len(queryEmb) == 0 {
		return nil, fmt.Errorf("查询嵌入为空")
	}

	results, err := collection.QueryEmbedding(ctx, queryEmb[0], topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("向量搜索失败: %w", err)
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func bookmarkDocument(p schema.Post) string {
	return fmt.Sprintf("主题: %s\n%s", p.Topic, strings.TrimSpace(p.Content))
}

// BookmarkSearchService 收藏检索：优先语义检索，失败或未配置时用关键词
type BookmarkSearchService struct {
	posts BookmarkRepository
	index *BookmarkIndex
}

// NewBookmarkSearchService 创建检索服务；index 可为 nil
func NewBookmarkSearchService(posts BookmarkRepository, index *BookmarkIndex) *BookmarkSearchService {
	return &BookmarkSearchService{posts: posts, index: index}
}

// List 全部收藏
func (s *BookmarkSearchService) List(ctx context.Context) ([]schema.Post, error) {
	return s.posts.ListBookmarked(ctx)
}

// Search 检索收藏；空查询返回全部收藏
func (s *BookmarkSearchService) Search(ctx context.Context, query string) ([]schema.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.posts.ListBookmarked(ctx)
	}

	if s.index.Enabled() {
		ids, err := s.index.Query(ctx, query, defaultSearchLimit)
		if err != nil {
			slog.Warn("语义检索失败，回退到关键词检索", "error", err)
		} else if len(ids) > 0 {
			return s.orderedByIDs(ctx, ids)
		}
	}
	return s.posts.SearchBookmarked(ctx, query)
}

// Reindex 重建语义索引
func (s *BookmarkSearchService) Reindex(ctx context.Context) error {
	if !s.index.Enabled() {
		return nil
	}
	return s.index.Rebuild(ctx, s.posts.ListBookmarked)
}

func (s *BookmarkSearchService) orderedByIDs(ctx context.Context, ids []string) ([]schema.Post, error) {
	posts, err := s.posts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]schema.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	out := make([]schema.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
