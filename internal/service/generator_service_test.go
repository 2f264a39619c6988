package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/schema"
	"go.uber.org/goleak"
)

// database/sql 的连接打开协程在 t.Cleanup 关闭数据库后才退出
var ignoreSQLOpener = goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener")

func TestGeneratePostBatch_PartialFailureKeepsOrder(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSQLOpener)

	env := newTestEnv(t)
	env.completer.fn = func(req ai.CompletionRequest) (string, error) {
		if strings.Contains(req.User, `"Fail"`) {
			return "", &ai.CompletionError{Kind: ai.KindRateLimit, Status: 429, Err: errBoom}
		}
		return "post body", nil
	}
	gen := env.generator(2)

	reqs := []GenerationRequest{
		{Topic: "Go", PersonalityID: "prof-clara", PostType: schema.PostTypeStandalone, DifficultyLevel: 1},
		{Topic: "Fail", PersonalityID: "dev-max", PostType: schema.PostTypeStandalone, DifficultyLevel: 2},
		{Topic: "SQL", PersonalityID: "bit", PostType: schema.PostTypeQuiz, DifficultyLevel: 3},
	}
	posts, err := gen.GeneratePostBatch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("GeneratePostBatch: %v", err)
	}

	var got []string
	for _, p := range posts {
		got = append(got, p.Topic+"/"+p.PersonalityID)
	}
	if diff := cmp.Diff([]string{"Go/prof-clara", "SQL/bit"}, got); diff != "" {
		t.Fatalf("posts mismatch (-want +got):\n%s", diff)
	}
	if n, _ := env.posts.Count(context.Background()); n != 2 {
		t.Fatalf("persisted=%d, want 2", n)
	}
	if env.events.count(eventbus.TypeGenerationFailure) != 1 || env.events.count(eventbus.TypePostGenerated) != 2 {
		t.Fatalf("events=%+v", env.events.events)
	}
}

func TestGeneratePostBatch_AllFailed(t *testing.T) {
	env := newTestEnv(t)
	env.completer.fn = func(ai.CompletionRequest) (string, error) { return "", errBoom }

	_, err := env.generator(0).GeneratePostBatch(context.Background(), []GenerationRequest{
		{Topic: "Go", PersonalityID: "prof-clara", PostType: schema.PostTypeStandalone, DifficultyLevel: 1},
		{Topic: "Go", PersonalityID: "dev-max", PostType: schema.PostTypeStandalone, DifficultyLevel: 1},
	})
	if !errors.Is(err, ErrBatchFailed) || !errors.Is(err, errBoom) {
		t.Fatalf("err=%v, want ErrBatchFailed wrapping cause", err)
	}

	posts, err := env.generator(0).GeneratePostBatch(context.Background(), nil)
	if err != nil || len(posts) != 0 {
		t.Fatalf("empty batch: posts=%v err=%v", posts, err)
	}
}

func TestGeneratePost_UsesSettingsAndUpdatesTopic(t *testing.T) {
	env := newTestEnv(t)
	env.addTopic(t, "t1", "Go", 2, 0)
	env.settings.Language = ai.LanguagePortuguese

	post, err := env.generator(1).GeneratePost(context.Background(), GenerationRequest{
		Topic: "Go", PersonalityID: "dr-ana", PostType: schema.PostTypeStandalone, DifficultyLevel: 2,
	})
	if err != nil {
		t.Fatalf("GeneratePost: %v", err)
	}
	if post.Content != "generated content" || !post.CreatedAt.Equal(t0) || post.ThreadID != nil {
		t.Fatalf("post=%+v", post)
	}

	call := env.completer.lastCall()
	if call.Model != "test-model" || !strings.Contains(call.User, "Ensine") {
		t.Fatalf("request=%+v", call)
	}

	topic := env.topicByName(t, "go")
	if topic.PostCount != 1 || topic.LastPostAt == nil || !topic.LastPostAt.Equal(t0) {
		t.Fatalf("topic=%+v", topic)
	}
}

func TestGeneratePost_DeepDiveThreads(t *testing.T) {
	env := newTestEnv(t)
	gen := env.generator(1)
	ctx := context.Background()

	fresh, err := gen.GeneratePost(ctx, GenerationRequest{Topic: "Go", PersonalityID: "dev-max", PostType: schema.PostTypeDeepDive, DifficultyLevel: 3})
	if err != nil {
		t.Fatalf("GeneratePost: %v", err)
	}
	if fresh.ThreadID == nil || *fresh.ThreadID == "" {
		t.Fatalf("deep dive without thread should start a new one")
	}

	existing := "thread-x"
	reused, err := gen.GeneratePost(ctx, GenerationRequest{Topic: "Go", PersonalityID: "dev-max", PostType: schema.PostTypeDeepDive, DifficultyLevel: 3, ThreadID: &existing})
	if err != nil {
		t.Fatalf("GeneratePost: %v", err)
	}
	if *reused.ThreadID != existing {
		t.Fatalf("thread=%s, want %s", *reused.ThreadID, existing)
	}
}

func TestGeneratePost_UnknownPersonality(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.generator(1).GeneratePost(context.Background(), GenerationRequest{Topic: "Go", PersonalityID: "nobody", PostType: schema.PostTypeStandalone})
	if !errors.Is(err, ErrPersonalityNotFound) {
		t.Fatalf("err=%v", err)
	}
	if len(env.completer.calls) != 0 {
		t.Fatalf("completer should not be called")
	}
}

func TestGenerateDiscussion_AlternatesRoles(t *testing.T) {
	env := newTestEnv(t)
	env.addPost(t, "p1", "Go", t0.Add(-time.Hour))
	env.completer.fn = func(ai.CompletionRequest) (string, error) {
		return "Q1\n---\nA1\n---\n\n---\nQ2", nil
	}

	replies, err := env.generator(1).GenerateDiscussion(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GenerateDiscussion: %v", err)
	}
	if env.completer.lastCall().MaxTokens != 1500 {
		t.Fatalf("max tokens=%d", env.completer.lastCall().MaxTokens)
	}

	type row struct {
		Content  string
		Question bool
		Offset   time.Duration
	}
	var got []row
	for _, r := range replies {
		got = append(got, row{r.Content, r.IsUserQuestion, r.CreatedAt.Sub(t0)})
	}
	want := []row{{"Q1", true, 0}, {"A1", false, time.Second}, {"Q2", true, 2 * time.Second}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("replies mismatch (-want +got):\n%s", diff)
	}

	stored, _ := env.replies.ListByPost(context.Background(), "p1")
	if len(stored) != 3 || stored[0].Content != "Q1" || stored[2].Content != "Q2" {
		t.Fatalf("stored=%+v", stored)
	}
}

func TestGenerateUserReply_QuestionThenAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.addPost(t, "p1", "Go", t0.Add(-time.Hour))
	env.completer.fn = func(req ai.CompletionRequest) (string, error) {
		if !strings.Contains(req.User, "why channels?") {
			t.Errorf("question missing from prompt: %q", req.User)
		}
		return "because CSP", nil
	}

	answer, err := env.generator(1).GenerateUserReply(context.Background(), "p1", "  why channels?  ")
	if err != nil {
		t.Fatalf("GenerateUserReply: %v", err)
	}
	if answer != "because CSP" {
		t.Fatalf("answer=%q", answer)
	}

	stored, _ := env.replies.ListByPost(context.Background(), "p1")
	if len(stored) != 2 {
		t.Fatalf("stored=%d, want 2", len(stored))
	}
	if !stored[0].IsUserQuestion || stored[0].Content != "why channels?" {
		t.Fatalf("first=%+v", stored[0])
	}
	if stored[1].IsUserQuestion || stored[1].CreatedAt.Sub(stored[0].CreatedAt) != time.Second {
		t.Fatalf("second=%+v", stored[1])
	}
}

func TestGenerateUserReply_Errors(t *testing.T) {
	env := newTestEnv(t)
	gen := env.generator(1)

	if _, err := gen.GenerateUserReply(context.Background(), "missing", "q"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err=%v, want ErrPostNotFound", err)
	}
	if _, err := gen.GenerateDiscussion(context.Background(), "missing"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err=%v, want ErrPostNotFound", err)
	}

	env.addPost(t, "p1", "Go", t0)
	if _, err := gen.GenerateUserReply(context.Background(), "p1", "   "); err == nil {
		t.Fatalf("blank question should fail")
	}
}

func TestSplitDiscussion(t *testing.T) {
	got := SplitDiscussion("  a ---b---\n---  ")
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}
