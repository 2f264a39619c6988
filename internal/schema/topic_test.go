package schema

import (
	"testing"
	"time"
)

func TestNewTopicClampsDifficulty(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 1},
		{1, 1},
		{3, 3},
		{5, 5},
		{9, 5},
	}
	for _, tc := range cases {
		topic := NewTopic("id", " Go ", tc.in)
		if topic.CurrentDifficulty != tc.want || topic.InitialDifficulty != tc.want {
			t.Errorf("NewTopic(%d) difficulty=%d/%d, want %d", tc.in, topic.InitialDifficulty, topic.CurrentDifficulty, tc.want)
		}
		if topic.Name != "Go" || !topic.IsActive {
			t.Errorf("NewTopic name=%q active=%v", topic.Name, topic.IsActive)
		}
	}
}

func TestTopicApplyEngagementFloorsAtZero(t *testing.T) {
	topic := NewTopic("id", "Go", 1)
	topic.EngagementScore = 1

	topic.ApplyEngagement(-1)
	topic.ApplyEngagement(-1)
	if topic.EngagementScore != 0 {
		t.Fatalf("score=%v, want 0", topic.EngagementScore)
	}

	topic.ApplyEngagement(2.5)
	if topic.EngagementScore != 2.5 {
		t.Fatalf("score=%v, want 2.5", topic.EngagementScore)
	}
}

func TestTopicMatchesName(t *testing.T) {
	topic := NewTopic("id", "Machine Learning", 1)
	if !topic.MatchesName("machine learning") {
		t.Fatalf("expected case-insensitive match")
	}
	if topic.MatchesName("machine") {
		t.Fatalf("unexpected partial match")
	}
}

func TestSpacedRepetitionItemIntervalIndex(t *testing.T) {
	item := SpacedRepetitionItem{IntervalDays: 7, NextReviewAt: time.Now()}
	if got := item.IntervalIndex(); got != 2 {
		t.Fatalf("index=%d, want 2", got)
	}
	item.IntervalDays = 5
	if got := item.IntervalIndex(); got != -1 {
		t.Fatalf("index=%d, want -1", got)
	}
}

func TestPostTypeValid(t *testing.T) {
	for _, pt := range AllPostTypes {
		if !pt.Valid() {
			t.Errorf("%s should be valid", pt)
		}
	}
	if PostType("thread").Valid() {
		t.Fatalf("unknown post type reported valid")
	}
	if !PostTypeDeepDive.NeedsContext() || PostTypeQuiz.NeedsContext() {
		t.Fatalf("NeedsContext mismatch")
	}
}
