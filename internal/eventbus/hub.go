package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// 事件类型
const (
	TypePostGenerated     = "post_generated"
	TypeFeedRefreshed     = "feed_refreshed"
	TypeRepliesGenerated  = "replies_generated"
	TypeInteraction       = "interaction_recorded"
	TypeTopicsChanged     = "topics_changed"
	TypeReviewsChanged    = "reviews_changed"
	TypeSettingsUpdated   = "settings_updated"
	TypeGenerationFailure = "generation_failed"
)

// Event 推送给 UI 的事件
type Event struct {
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

type subscriber struct {
	ch    chan Event
	types map[string]struct{} // 为空表示接收全部
}

func (s *subscriber) wants(typ string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[typ]
	return ok
}

// Hub 进程内广播，供 SSE 推送给 UI
// 投递不阻塞发布方：订阅者缓冲满时丢弃并计数
type Hub struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if !s.wants(evt.Type) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe 订阅事件；types 为空时接收全部类型
// ctx 结束后自动退订并关闭通道
func (h *Hub) Subscribe(ctx context.Context, buffer int, types ...string) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	s := &subscriber{ch: make(chan Event, buffer)}
	if len(types) > 0 {
		s.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, s)
		h.mu.Unlock()
		close(s.ch)
	}()
	return s.ch
}

// Subscribers 当前订阅者数量
func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped 因慢消费者被丢弃的事件总数
func (h *Hub) Dropped() int64 {
	if h == nil {
		return 0
	}
	return h.dropped.Load()
}
