package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/yuqie6/LearnFeed/internal/persona"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

func topicsFixture() []schema.Topic {
	return []schema.Topic{
		{ID: "a", Name: "Go", IsActive: true, CurrentDifficulty: 3},
		{ID: "b", Name: "SQL", IsActive: true, CurrentDifficulty: 1},
		{ID: "c", Name: "Rust", IsActive: false, CurrentDifficulty: 4, EngagementScore: 50},
		{ID: "d", Name: "K8s", IsActive: true, CurrentDifficulty: 2},
	}
}

func TestCalculateTopicWeights_ZeroEngagementIsUniform(t *testing.T) {
	weights := CalculateTopicWeights(topicsFixture())
	if len(weights) != 3 {
		t.Fatalf("len=%d, want 3 active topics", len(weights))
	}
	for _, w := range weights {
		if w.Weight != 1.0/3 {
			t.Fatalf("%s weight=%v, want 1/3", w.TopicName, w.Weight)
		}
		if w.TopicID == "c" {
			t.Fatalf("inactive topic must not be weighted")
		}
	}
}

func TestCalculateTopicWeights_EngagementBonus(t *testing.T) {
	topics := []schema.Topic{
		{ID: "a", Name: "Go", IsActive: true, EngagementScore: 3},
		{ID: "b", Name: "SQL", IsActive: true, EngagementScore: 1},
	}
	weights := CalculateTopicWeights(topics)
	if math.Abs(weights[0].Weight-(0.5+0.375)) > 1e-9 || math.Abs(weights[1].Weight-(0.5+0.125)) > 1e-9 {
		t.Fatalf("weights=%+v", weights)
	}
	if CalculateTopicWeights(nil) != nil {
		t.Fatalf("no topics should give nil weights")
	}
}

func TestSelectWeightedTopic_NeverInactiveAndFallsBackToLast(t *testing.T) {
	weights := CalculateTopicWeights(topicsFixture())
	for _, f := range []float64{0, 0.2, 0.5, 0.8, 0.9999999} {
		got := SelectWeightedTopic(weights, &seqRand{floats: []float64{f}})
		if got.TopicID == "c" {
			t.Fatalf("selected inactive topic at r=%v", f)
		}
	}
	if got := SelectWeightedTopic(weights, &seqRand{floats: []float64{0}}); got.TopicID != "a" {
		t.Fatalf("r=0 should pick first, got %s", got.TopicID)
	}
	if got := SelectWeightedTopic(weights, &seqRand{floats: []float64{0.9999999}}); got.TopicID != "d" {
		t.Fatalf("r≈1 should pick last, got %s", got.TopicID)
	}
}

func TestSelectPostType_Distribution(t *testing.T) {
	cases := []struct {
		r    float64
		want schema.PostType
	}{
		{0.10, schema.PostTypeStandalone},
		{0.59, schema.PostTypeStandalone},
		{0.70, schema.PostTypeSequential},
		{0.80, schema.PostTypeQuiz},
		{0.90, schema.PostTypeDeepDive},
		{0.97, schema.PostTypeSpacedReview},
	}
	for _, tc := range cases {
		if got := SelectPostType(&seqRand{floats: []float64{tc.r}}); got != tc.want {
			t.Fatalf("r=%v: got %s, want %s", tc.r, got, tc.want)
		}
	}
}

func TestSelectPersonality(t *testing.T) {
	// 没有关注时从兼容人格中均匀选择
	quiz := persona.ForPostType(schema.PostTypeQuiz)
	got := SelectPersonality(schema.PostTypeQuiz, nil, &seqRand{ints: []int{1}})
	if got != quiz[1].ID {
		t.Fatalf("got %s, want %s", got, quiz[1].ID)
	}

	// 已关注且兼容：概率命中时只从关注集合中选
	followed := map[string]bool{"bit": true}
	got = SelectPersonality(schema.PostTypeQuiz, followed, &seqRand{floats: []float64{0.69}, ints: []int{0}})
	if got != "bit" {
		t.Fatalf("got %s, want bit", got)
	}

	// 未命中 70% 时回到全部兼容人格
	got = SelectPersonality(schema.PostTypeQuiz, followed, &seqRand{floats: []float64{0.7}, ints: []int{0}})
	if got != quiz[0].ID {
		t.Fatalf("got %s, want %s", got, quiz[0].ID)
	}

	// 关注的人格不兼容该类型时不参与
	got = SelectPersonality(schema.PostTypeQuiz, map[string]bool{"dr-ana": true}, &seqRand{ints: []int{0}})
	if got == "dr-ana" {
		t.Fatalf("incompatible followed persona selected")
	}

	if got := SelectPersonality(schema.PostType("unknown"), nil, &seqRand{}); got != persona.Default().ID {
		t.Fatalf("unknown type should fall back to default, got %s", got)
	}
}

func TestFeedPlanner_DueReviewFirstThenFill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addTopic(t, "a", "Go", 4, 0)

	item := &schema.SpacedRepetitionItem{PostID: "p-old", Topic: "go", ConceptSummary: "goroutines are cheap", NextReviewAt: t0.Add(-time.Hour), IntervalDays: 1}
	if err := env.reviews.Create(ctx, item); err != nil {
		t.Fatalf("create review: %v", err)
	}
	later := &schema.SpacedRepetitionItem{PostID: "p-later", Topic: "Go", NextReviewAt: t0.Add(-time.Minute), IntervalDays: 1}
	if err := env.reviews.Create(ctx, later); err != nil {
		t.Fatalf("create review: %v", err)
	}

	topics, _ := env.topics.ListActive(ctx)
	planner := NewFeedPlanner(env.reviews, env.posts, env.personalities).
		WithRand(&seqRand{floats: []float64{0, 0.1, 0, 0.1}}).
		WithClock(env.now)

	reqs, err := planner.GenerateFeedBatch(ctx, topics, 3)
	if err != nil {
		t.Fatalf("GenerateFeedBatch: %v", err)
	}
	if len(reqs) != 3 {
		t.Fatalf("len=%d, want 3", len(reqs))
	}
	first := reqs[0]
	if first.PostType != schema.PostTypeSpacedReview || first.Topic != "go" {
		t.Fatalf("first=%+v", first)
	}
	if first.DifficultyLevel != 4 {
		t.Fatalf("review difficulty=%d, want matched topic difficulty 4", first.DifficultyLevel)
	}
	if first.OriginalConceptID == nil || *first.OriginalConceptID != "p-old" || first.PreviousContext != "goroutines are cheap" {
		t.Fatalf("review request not built from earliest item: %+v", first)
	}
	if first.ReviewID == nil || *first.ReviewID != item.ID {
		t.Fatalf("review id not carried")
	}
	for _, r := range reqs[1:] {
		if r.PostType == schema.PostTypeSpacedReview && r.ReviewID != nil {
			t.Fatalf("more than one review consumed per batch")
		}
		if r.Topic != "Go" || r.DifficultyLevel != 4 {
			t.Fatalf("fill request=%+v", r)
		}
	}
}

func TestFeedPlanner_UnmatchedReviewTopicDefaultsToTwo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addTopic(t, "a", "Go", 5, 0)
	_ = env.reviews.Create(ctx, &schema.SpacedRepetitionItem{PostID: "p", Topic: "Deleted topic", NextReviewAt: t0.Add(-time.Hour), IntervalDays: 1})

	topics, _ := env.topics.ListActive(ctx)
	reqs, err := NewFeedPlanner(env.reviews, env.posts, env.personalities).WithClock(env.now).GenerateFeedBatch(ctx, topics, 1)
	if err != nil {
		t.Fatalf("GenerateFeedBatch: %v", err)
	}
	if len(reqs) != 1 || reqs[0].DifficultyLevel != 2 {
		t.Fatalf("reqs=%+v", reqs)
	}
}

func TestFeedPlanner_DeepDiveReusesThreadAndJoinsContext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addTopic(t, "a", "Go", 3, 0)

	env.addPost(t, "p1", "Go", t0.Add(-3*time.Hour))
	thread := "thread-1"
	threaded := &schema.Post{ID: "p2", PersonalityID: "dev-max", Topic: "Go", Content: "second", PostType: schema.PostTypeDeepDive, ThreadID: &thread, CreatedAt: t0.Add(-2 * time.Hour)}
	if err := env.posts.Create(ctx, threaded); err != nil {
		t.Fatalf("create: %v", err)
	}
	env.addPost(t, "p3", "Go", t0.Add(-1*time.Hour))
	env.addPost(t, "p0", "Go", t0.Add(-9*time.Hour))

	topics, _ := env.topics.ListActive(ctx)
	planner := NewFeedPlanner(env.reviews, env.posts, env.personalities).
		WithRand(&seqRand{floats: []float64{0, 0.9}}).
		WithClock(env.now)
	reqs, err := planner.GenerateFeedBatch(ctx, topics, 1)
	if err != nil {
		t.Fatalf("GenerateFeedBatch: %v", err)
	}
	req := reqs[0]
	if req.PostType != schema.PostTypeDeepDive {
		t.Fatalf("post type=%s", req.PostType)
	}
	want := "content of p3\n\n---\n\nsecond\n\n---\n\ncontent of p1"
	if req.PreviousContext != want {
		t.Fatalf("context=%q, want %q", req.PreviousContext, want)
	}
	if req.ThreadID == nil || *req.ThreadID != thread {
		t.Fatalf("thread not reused: %v", req.ThreadID)
	}
}

func TestFeedPlanner_NoActiveTopics(t *testing.T) {
	env := newTestEnv(t)
	reqs, err := NewFeedPlanner(env.reviews, env.posts, env.personalities).GenerateFeedBatch(context.Background(), []schema.Topic{{Name: "x"}}, 3)
	if err != nil || len(reqs) != 0 {
		t.Fatalf("reqs=%v err=%v", reqs, err)
	}
}
