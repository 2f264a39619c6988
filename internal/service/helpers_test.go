package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/repository"
	"github.com/yuqie6/LearnFeed/internal/schema"
	"github.com/yuqie6/LearnFeed/internal/testutil"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// ===== Fakes =====

type fakeCompleter struct {
	mu    sync.Mutex
	calls []ai.CompletionRequest
	fn    func(req ai.CompletionRequest) (string, error)
	off   bool
}

func (f *fakeCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(req)
	}
	return "generated content", nil
}

func (f *fakeCompleter) IsConfigured() bool { return !f.off }

func (f *fakeCompleter) lastCall() ai.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// seqRand 按顺序返回预设值，用尽后返回 0
type seqRand struct {
	floats []float64
	ints   []int
}

func (r *seqRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *seqRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(evt eventbus.Event) {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func (p *recordingPublisher) count(typ string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

// ===== Test environment =====

type testEnv struct {
	topics        *repository.TopicRepository
	posts         *repository.PostRepository
	replies       *repository.ReplyRepository
	interactions  *repository.InteractionRepository
	reviews       *repository.ReviewRepository
	personalities *repository.PersonalityRepository

	completer *fakeCompleter
	events    *recordingPublisher
	settings  StaticSettings
	clock     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)
	return &testEnv{
		topics:        repository.NewTopicRepository(db),
		posts:         repository.NewPostRepository(db),
		replies:       repository.NewReplyRepository(db),
		interactions:  repository.NewInteractionRepository(db),
		reviews:       repository.NewReviewRepository(db),
		personalities: repository.NewPersonalityRepository(db),
		completer:     &fakeCompleter{},
		events:        &recordingPublisher{},
		settings:      StaticSettings{Language: ai.LanguageEnglish, PostLength: ai.PostLengthMedium, Model: "test-model"},
		clock:         t0,
	}
}

func (e *testEnv) now() time.Time { return e.clock }

func (e *testEnv) generator(maxConcurrency int) *GeneratorService {
	return NewGeneratorService(e.completer, e.posts, e.replies, e.topics, e.settings, GeneratorOptions{
		MaxConcurrency: maxConcurrency,
		Events:         e.events,
		Now:            e.now,
	})
}

func (e *testEnv) reviewService() *ReviewService {
	return NewReviewService(e.completer, e.reviews, e.settings, e.events).WithClock(e.now)
}

func (e *testEnv) progress() *ProgressService {
	return NewProgressService(e.topics, e.personalities, nil, e.events)
}

func (e *testEnv) interactionService() *InteractionService {
	return NewInteractionService(e.posts, e.replies, e.interactions, e.progress(), e.reviewService(), nil, e.events).WithClock(e.now)
}

func (e *testEnv) addTopic(t *testing.T, id, name string, difficulty int, score float64) *schema.Topic {
	t.Helper()
	topic := schema.NewTopic(id, name, difficulty)
	topic.EngagementScore = score
	if err := e.topics.Create(context.Background(), topic); err != nil {
		t.Fatalf("create topic: %v", err)
	}
	return topic
}

func (e *testEnv) addPost(t *testing.T, id, topic string, at time.Time) *schema.Post {
	t.Helper()
	post := &schema.Post{
		ID:              id,
		PersonalityID:   "prof-clara",
		Topic:           topic,
		Content:         "content of " + id,
		DifficultyLevel: 2,
		PostType:        schema.PostTypeStandalone,
		CreatedAt:       at,
	}
	if err := e.posts.Create(context.Background(), post); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

func (e *testEnv) topicByName(t *testing.T, name string) *schema.Topic {
	t.Helper()
	topic, err := e.topics.GetByName(context.Background(), name)
	if err != nil || topic == nil {
		t.Fatalf("topic %q: %v %v", name, topic, err)
	}
	return topic
}
