package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/yuqie6/LearnFeed/internal/persona"
	"github.com/yuqie6/LearnFeed/internal/schema"
	"github.com/yuqie6/LearnFeed/internal/service"
)

const divider = "═══════════════════════════════════════"

// renderer 帖子正文按 Markdown 渲染；终端不支持时退回纯文本
type renderer struct {
	md *glamour.TermRenderer
}

func newRenderer() *renderer {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return &renderer{}
	}
	return &renderer{md: md}
}

func (r *renderer) markdown(text string) {
	if r.md != nil {
		if out, err := r.md.Render(text); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Println(text)
}

func (r *renderer) post(v service.PostView) {
	name, emoji := v.PersonalityName, v.PersonalityEmoji
	if name == "" {
		if p, ok := persona.ByID(v.PersonalityID); ok {
			name, emoji = p.Name, p.AvatarEmoji
		}
	}

	marks := make([]string, 0, 3)
	if v.Liked {
		marks = append(marks, "❤️")
	}
	if v.Bookmarked {
		marks = append(marks, "🔖")
	}
	if v.ReplyCount > 0 {
		marks = append(marks, fmt.Sprintf("💬 %d", v.ReplyCount))
	}

	fmt.Println(divider)
	fmt.Printf("%s %s · %s · %s · 难度 %d · %s\n",
		emoji, name, v.Topic, postTypeLabel(v.PostType), v.DifficultyLevel, humanize.Time(v.CreatedAt))
	if len(marks) > 0 {
		fmt.Printf("   %s\n", strings.Join(marks, "  "))
	}
	r.markdown(v.Content)
	fmt.Printf("   id: %s\n", v.ID)
}

func (r *renderer) replies(replies []schema.Reply) {
	if len(replies) == 0 {
		fmt.Println("💬 暂无讨论")
		return
	}
	fmt.Printf("💬 讨论 (%d)\n", len(replies))
	for _, rp := range replies {
		who := "🙋 提问"
		if !rp.IsUserQuestion {
			if p, ok := persona.ByID(rp.PersonalityID); ok {
				who = p.AvatarEmoji + " " + p.Name
			}
		}
		fmt.Printf("\n%s · %s\n", who, humanize.Time(rp.CreatedAt))
		r.markdown(rp.Content)
	}
}

func postTypeLabel(t schema.PostType) string {
	switch t {
	case schema.PostTypeStandalone:
		return "📝 知识点"
	case schema.PostTypeSequential:
		return "🔗 连载"
	case schema.PostTypeQuiz:
		return "❓ 小测"
	case schema.PostTypeDeepDive:
		return "🔬 深入"
	case schema.PostTypeSpacedReview:
		return "🔁 复习"
	default:
		return string(t)
	}
}

func printTopics(topics []schema.Topic) {
	fmt.Println("📚 学习主题")
	fmt.Println(divider)
	for _, t := range topics {
		state := "▶️ "
		if !t.IsActive {
			state = "⏸️ "
		}
		last := "从未"
		if t.LastPostAt != nil {
			last = humanize.Time(*t.LastPostAt)
		}
		fmt.Printf("%s %-20s 难度 %d  参与度 %-6s 帖子 %-4s 最近 %s\n",
			state, t.Name, t.CurrentDifficulty,
			humanize.FormatFloat("#.#", t.EngagementScore),
			humanize.Comma(int64(t.PostCount)), last)
		fmt.Printf("    id: %s\n", t.ID)
	}
}

func printReviews(items []schema.SpacedRepetitionItem, now time.Time) {
	fmt.Printf("🔁 复习计划 (%d)\n", len(items))
	fmt.Println(divider)
	for _, it := range items {
		due := humanize.RelTime(it.NextReviewAt, now, "前到期", "后到期")
		if !it.NextReviewAt.After(now) {
			due = "⏰ " + due
		}
		fmt.Printf("#%d  %s · 间隔 %d 天 · 已复习 %d 次 · %s\n",
			it.ID, it.Topic, it.IntervalDays, it.ReviewCount, due)
		fmt.Printf("    %s\n", it.ConceptSummary)
	}
}

func printStats(s service.WeeklyStats) {
	fmt.Printf("📅 学习周报 (自 %s)\n", s.Since.Local().Format("2006-01-02"))
	fmt.Println(divider)
	fmt.Printf("  • 帖子: %s\n", humanize.Comma(s.TotalPosts))
	fmt.Printf("  • 点赞: %s\n", humanize.Comma(s.TotalLikes))
	fmt.Printf("  • 收藏: %s\n", humanize.Comma(s.TotalBookmarks))
	fmt.Printf("  • 复习: %s\n", humanize.Comma(s.ConceptsReviewed))
	if len(s.TopicBreakdown) > 0 {
		fmt.Println("\n🎯 主题")
		for _, ts := range s.TopicBreakdown {
			fmt.Printf("  • %-20s %s 篇  参与度 %s\n", ts.Topic, humanize.Comma(ts.Count), humanize.FormatFloat("#.#", ts.Engagement))
		}
	}
}

func printPersonalities(views []service.PersonalityView) {
	fmt.Println("🎭 讲解人格")
	fmt.Println(divider)
	for _, v := range views {
		star := "  "
		if v.IsFollowed {
			star = "⭐"
		}
		types := make([]string, 0, len(v.PostTypes))
		for _, t := range v.PostTypes {
			types = append(types, string(t))
		}
		fmt.Printf("%s %s %-16s (%s)\n", star, v.AvatarEmoji, v.Name, v.ID)
		fmt.Printf("    %s\n", v.Bio)
		fmt.Printf("    类型: %s\n", strings.Join(types, ", "))
	}
}
