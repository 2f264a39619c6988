package ai

import (
	"strings"
	"testing"

	"github.com/yuqie6/LearnFeed/internal/persona"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

func TestBuildPostPrompt_EveryTypeMentionsTopic(t *testing.T) {
	p := persona.Default()
	for _, pt := range schema.AllPostTypes {
		got := BuildPostPrompt(pt, PromptContext{
			Personality:     p,
			Topic:           "Rust ownership",
			DifficultyLevel: 3,
			PostLength:      PostLengthShort,
			Language:        LanguageEnglish,
		})
		if !strings.HasPrefix(got.System, p.SystemPrompt) {
			t.Fatalf("%s: system prompt missing persona", pt)
		}
		if !strings.Contains(got.System, "Intermediate (3/5)") {
			t.Fatalf("%s: system=%q", pt, got.System)
		}
		if !strings.Contains(got.System, "under 280 characters") {
			t.Fatalf("%s: missing length instruction", pt)
		}
		if !strings.Contains(got.User, "Rust ownership") {
			t.Fatalf("%s: user=%q", pt, got.User)
		}
	}
}

func TestBuildPostPrompt_ContextAndLanguage(t *testing.T) {
	c := PromptContext{
		Personality:     persona.Default(),
		Topic:           "SQL",
		DifficultyLevel: 5,
		PostLength:      PostLengthLong,
		Language:        LanguagePortuguese,
		PreviousContext: "JOINs combinam tabelas",
	}
	got := BuildPostPrompt(schema.PostTypeSequential, c)
	if !strings.Contains(got.User, "JOINs combinam tabelas") || !strings.Contains(got.User, "Especialista") {
		t.Fatalf("user=%q", got.User)
	}
	if !strings.Contains(got.System, "Português Brasileiro") || !strings.Contains(got.System, "1000") {
		t.Fatalf("system=%q", got.System)
	}

	c.PreviousContext = ""
	c.Language = LanguageEnglish
	got = BuildPostPrompt(schema.PostTypeSequential, c)
	if !strings.Contains(got.User, "This is the start of the series.") {
		t.Fatalf("user=%q", got.User)
	}
	got = BuildPostPrompt(schema.PostTypeDeepDive, c)
	if strings.Contains(got.User, "Previous posts in this thread") {
		t.Fatalf("deep dive without context should omit thread section: %q", got.User)
	}
}

func TestBuildPostPrompt_SpacedReviewUsesConcept(t *testing.T) {
	got := BuildPostPrompt(schema.PostTypeSpacedReview, PromptContext{
		Personality:     persona.Default(),
		Topic:           "Go",
		DifficultyLevel: 2,
		Language:        LanguageEnglish,
		OriginalConcept: "channels synchronise goroutines",
	})
	if !strings.Contains(got.User, "channels synchronise goroutines") {
		t.Fatalf("user=%q", got.User)
	}
}

func TestDifficultyLabelAndLength(t *testing.T) {
	if DifficultyLabel(0, LanguageEnglish) != "Beginner" || DifficultyLabel(9, LanguagePortuguese) != "Iniciante" {
		t.Fatalf("out-of-range levels should fall back to 1")
	}
	if DifficultyLabel(4, LanguagePortuguese) != "Avançado" {
		t.Fatalf("unexpected pt label")
	}
	if ParsePostLength("nope").MaxChars() != 560 || ParsePostLength("SHORT").MaxChars() != 280 {
		t.Fatalf("unexpected length parsing")
	}
	if ParseLanguage("pt-br") != LanguagePortuguese || ParseLanguage("") != LanguageEnglish {
		t.Fatalf("unexpected language parsing")
	}
}

func TestBuildRecapAndReplyPrompts(t *testing.T) {
	recap := BuildRecapPrompt(RecapContext{
		Language:       LanguageEnglish,
		TopicsStudied:  []string{"Go", "SQL"},
		TotalPosts:     7,
		TotalLikes:     2,
		TopicBreakdown: []TopicCount{{Topic: "Go", Count: 5}, {Topic: "SQL", Count: 2}},
	})
	if !strings.Contains(recap.User, "- Go: 5 posts\n- SQL: 2 posts") || !strings.Contains(recap.User, "Go, SQL") {
		t.Fatalf("recap=%q", recap.User)
	}

	reply := BuildReplyPrompt(ReplyContext{
		Personality:  persona.Default(),
		OriginalPost: "post body",
		Question:     "why?",
		Language:     LanguageEnglish,
		PostLength:   PostLengthMedium,
	})
	if !strings.Contains(reply.User, "why?") || !strings.Contains(reply.User, "Respond as Prof. Clara would.") {
		t.Fatalf("reply=%q", reply.User)
	}
	if !strings.Contains(BuildDiscussionPrompt(DiscussionContext{Personality: persona.Default(), Topic: "Go"}).User, `"---"`) {
		t.Fatalf("discussion prompt must ask for --- separators")
	}
}

func TestPrompts_EmbedMultilineContentVerbatim(t *testing.T) {
	post := "Line one.\n\nSay \"hi\" on line two."
	question := "Why \"hi\"?\nReally?"
	p := persona.Default()

	reply := BuildReplyPrompt(ReplyContext{
		Personality:  p,
		OriginalPost: post,
		Question:     question,
		Language:     LanguageEnglish,
		PostLength:   PostLengthMedium,
	})
	discussion := BuildDiscussionPrompt(DiscussionContext{
		Personality:  p,
		OriginalPost: post,
		Topic:        "Greetings",
		Language:     LanguagePortuguese,
		PostLength:   PostLengthMedium,
	})
	review := BuildPostPrompt(schema.PostTypeSpacedReview, PromptContext{
		Personality:     p,
		Topic:           "Greetings",
		DifficultyLevel: 2,
		PostLength:      PostLengthShort,
		Language:        LanguageEnglish,
		OriginalConcept: post,
	})
	concept := BuildConceptExtractionPrompt(post, LanguageEnglish)

	for _, got := range []Prompt{reply, discussion, review, concept} {
		if !strings.Contains(got.User, "\""+post+"\"") {
			t.Fatalf("content not embedded verbatim: %q", got.User)
		}
		if strings.Contains(got.User, `\n`) {
			t.Fatalf("escaped newline leaked into prompt: %q", got.User)
		}
	}
	if !strings.Contains(reply.User, "\""+question+"\"") {
		t.Fatalf("question not embedded verbatim: %q", reply.User)
	}
}
