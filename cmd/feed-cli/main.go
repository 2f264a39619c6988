package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/bootstrap"
	"github.com/yuqie6/LearnFeed/internal/pkg/buildinfo"
	"github.com/yuqie6/LearnFeed/internal/schema"
	"github.com/yuqie6/LearnFeed/internal/service"
)

var (
	cfgFile string
	core    *bootstrap.Core
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "learnfeed",
		Short:         "LearnFeed - 个性化学习信息流",
		Long:          `LearnFeed 按你订阅的主题和参与度生成学习帖子，并用间隔重复安排复习。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "help", "completion":
				return nil
			}
			_ = godotenv.Load()

			var err error
			core, err = bootstrap.NewCore(cfgFile)
			if err != nil {
				return fmt.Errorf("初始化失败: %w", err)
			}
			if core.SafeMode() && cmd.Annotations["writes"] == "true" {
				return fmt.Errorf("数据库处于安全模式，只能执行只读命令: %v", core.DB.MigrationError)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")

	rootCmd.AddCommand(topicsCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(likeCmd())
	rootCmd.AddCommand(bookmarkCmd())
	rootCmd.AddCommand(feedbackCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(discussCmd())
	rootCmd.AddCommand(reviewsCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(recapCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(personasCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if core != nil {
		_ = core.Close()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func writes() map[string]string { return map[string]string{"writes": "true"} }

// printError 补全错误附带重试提示
func printError(err error) {
	fmt.Printf("❌ %v\n", err)
	var ce *ai.CompletionError
	if errors.As(err, &ce) {
		if hint := ce.Hint(); hint != "" {
			fmt.Printf("   %s\n", hint)
		}
	}
}

// ========== topics ==========

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "查看学习主题",
		RunE: func(cmd *cobra.Command, args []string) error {
			topics, err := core.Services.Progress.ListTopics(cmd.Context())
			if err != nil {
				return err
			}
			if len(topics) == 0 {
				fmt.Println("📚 还没有学习主题")
				fmt.Println("   使用 'learnfeed topics add <名称>' 添加")
				return nil
			}
			printTopics(topics)
			return nil
		},
	}

	var difficulty int
	add := &cobra.Command{
		Use:         "add <name>",
		Short:       "添加主题",
		Args:        cobra.MinimumNArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, err := core.Services.Progress.AddTopic(cmd.Context(), strings.Join(args, " "), difficulty)
			if err != nil {
				return err
			}
			fmt.Printf("✅ 已添加主题 %s (难度 %d)\n", topic.Name, topic.CurrentDifficulty)
			return nil
		},
	}
	add.Flags().IntVarP(&difficulty, "difficulty", "d", schema.MinDifficulty, "初始难度 (1-5)")

	remove := &cobra.Command{
		Use:         "remove <id>",
		Short:       "删除主题",
		Args:        cobra.ExactArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.Services.Progress.RemoveTopic(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("🗑️  已删除")
			return nil
		},
	}

	toggle := &cobra.Command{
		Use:         "toggle <id>",
		Short:       "启用/停用主题",
		Args:        cobra.ExactArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := core.Services.Progress.ToggleTopicActive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if active {
				fmt.Println("▶️  已启用")
			} else {
				fmt.Println("⏸️  已停用")
			}
			return nil
		},
	}

	level := &cobra.Command{
		Use:         "level <id> <1-5>",
		Short:       "设置主题难度",
		Args:        cobra.ExactArgs(2),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("难度必须是数字: %w", err)
			}
			if err := core.Services.Progress.SetTopicDifficulty(cmd.Context(), args[0], n); err != nil {
				return err
			}
			fmt.Printf("✅ 难度已设为 %d\n", schema.ClampDifficulty(n))
			return nil
		},
	}

	cmd.AddCommand(add, remove, toggle, level)
	return cmd
}

// ========== feed ==========

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "refresh",
		Short:       "生成一批新帖子",
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireAIConfigured(); err != nil {
				return err
			}
			fmt.Println("✨ 正在生成...")
			start := time.Now()
			res, err := core.Services.Feed.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if res.Requested == 0 {
				fmt.Println("📚 没有启用的主题，先添加一个吧")
				return nil
			}
			fmt.Printf("✅ 生成 %d/%d 篇帖子，耗时 %s\n\n", len(res.Posts), res.Requested, time.Since(start).Round(time.Millisecond))
			r := newRenderer()
			for _, p := range res.Posts {
				r.post(service.PostView{Post: p})
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "show [post-id]",
		Short: "浏览信息流或查看单个帖子",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r := newRenderer()
			if len(args) == 1 {
				view, replies, err := core.Services.Feed.PostDetail(ctx, args[0])
				if err != nil {
					return err
				}
				r.post(*view)
				r.replies(replies)
				return nil
			}

			views, err := core.Services.Feed.Page(ctx, limit, offset)
			if err != nil {
				return err
			}
			if len(views) == 0 {
				fmt.Println("📭 信息流为空，运行 'learnfeed refresh' 生成帖子")
				return nil
			}
			for _, v := range views {
				r.post(v)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "条数")
	cmd.Flags().IntVar(&offset, "offset", 0, "偏移")
	return cmd
}

func likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "like <post-id>",
		Short:       "点赞/取消点赞",
		Args:        cobra.ExactArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := core.Services.Interactions.ToggleLike(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if on {
				fmt.Println("❤️  已点赞，已加入复习计划")
			} else {
				fmt.Println("🤍 已取消点赞")
			}
			return nil
		},
	}
}

func bookmarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "bookmark <post-id>",
		Short:       "收藏/取消收藏",
		Args:        cobra.ExactArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := core.Services.Interactions.ToggleBookmark(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if on {
				fmt.Println("🔖 已收藏")
			} else {
				fmt.Println("📑 已取消收藏")
			}
			return nil
		},
	}
}

func feedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "feedback <post-id> <too_easy|too_hard>",
		Short:       "反馈难度",
		Args:        cobra.ExactArgs(2),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := schema.InteractionType(args[1])
			if _, ok := service.FeedbackDirection(t); !ok {
				return fmt.Errorf("反馈类型只能是 too_easy 或 too_hard")
			}
			if err := core.Services.Interactions.SubmitFeedback(cmd.Context(), args[0], t); err != nil {
				return err
			}
			if t == schema.InteractionTooEasy {
				fmt.Println("⬆️  已提高难度")
			} else {
				fmt.Println("⬇️  已降低难度")
			}
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "ask <post-id> <question>",
		Short:       "向作者提问",
		Args:        cobra.MinimumNArgs(2),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireAIConfigured(); err != nil {
				return err
			}
			answer, err := core.Services.Generator.GenerateUserReply(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			newRenderer().markdown(answer)
			return nil
		},
	}
}

func discussCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "discuss <post-id>",
		Short:       "生成帖子下的讨论",
		Args:        cobra.ExactArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireAIConfigured(); err != nil {
				return err
			}
			replies, err := core.Services.Generator.GenerateDiscussion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			newRenderer().replies(replies)
			return nil
		},
	}
}

// ========== reviews ==========

func reviewsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "查看复习计划",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now := time.Now().UTC()
			var (
				items []schema.SpacedRepetitionItem
				err   error
			)
			if all {
				items, err = core.Services.Reviews.ListReviews(ctx)
			} else {
				items, err = core.Services.Reviews.DueReviews(ctx, now)
			}
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("🎉 没有待复习的内容")
				return nil
			}
			printReviews(items, now)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "显示全部复习项（默认只显示到期的）")

	advance := &cobra.Command{
		Use:         "done <review-id>",
		Short:       "标记已复习，推进到下一个间隔",
		Args:        cobra.ExactArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("复习项 id 必须是数字: %w", err)
			}
			if err := core.Services.Reviews.AdvanceReview(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Println("✅ 已推进复习间隔")
			return nil
		},
	}
	cmd.AddCommand(advance)
	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "reset <post-id>",
		Short:       "重置帖子的复习计划到第一个间隔",
		Args:        cobra.ExactArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			post, err := core.Repos.Post.GetByID(ctx, args[0])
			if err != nil {
				return err
			}
			if post == nil {
				return fmt.Errorf("%w: %s", service.ErrPostNotFound, args[0])
			}
			if err := core.Services.Reviews.ResetReview(ctx, post.ID, post.Topic); err != nil {
				return err
			}
			fmt.Println("🔁 已重置，明天再复习")
			return nil
		},
	}
}

// ========== recap / search ==========

func recapCmd() *cobra.Command {
	var statsOnly bool
	cmd := &cobra.Command{
		Use:   "recap",
		Short: "最近 7 天学习周报",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now := time.Now().UTC()
			if statsOnly {
				stats, err := core.Services.Recap.WeeklyStats(ctx, now)
				if err != nil {
					return err
				}
				printStats(*stats)
				return nil
			}
			if err := core.RequireAIConfigured(); err != nil {
				return err
			}
			recap, err := core.Services.Recap.GenerateRecap(ctx, now)
			if err != nil {
				return err
			}
			printStats(recap.Stats)
			fmt.Println()
			newRenderer().markdown(recap.Summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "只显示统计，不调用 AI")
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "搜索收藏",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if core.SemanticSearchEnabled() {
				if err := core.Services.Bookmarks.Reindex(ctx); err != nil {
					fmt.Printf("⚠️  语义索引不可用，使用关键词搜索: %v\n", err)
				}
			}
			posts, err := core.Services.Bookmarks.Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(posts) == 0 {
				fmt.Println("🔍 没有匹配的收藏")
				return nil
			}
			r := newRenderer()
			for _, p := range posts {
				r.post(service.PostView{Post: p, Bookmarked: true})
			}
			return nil
		},
	}
}

func personasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "查看讲解人格",
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := core.Services.Progress.ListPersonalities(cmd.Context())
			if err != nil {
				return err
			}
			printPersonalities(views)
			return nil
		},
	}
	follow := &cobra.Command{
		Use:         "follow <id>",
		Short:       "关注人格（帖子会更多来自关注的人格）",
		Args:        cobra.ExactArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setFollow(cmd.Context(), args[0], true)
		},
	}
	unfollow := &cobra.Command{
		Use:         "unfollow <id>",
		Short:       "取消关注",
		Args:        cobra.ExactArgs(1),
		Annotations: writes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setFollow(cmd.Context(), args[0], false)
		},
	}
	cmd.AddCommand(follow, unfollow)
	return cmd
}

func setFollow(ctx context.Context, id string, follow bool) error {
	if err := core.Services.Progress.FollowPersonality(ctx, id, follow); err != nil {
		return err
	}
	if follow {
		fmt.Printf("⭐ 已关注 %s\n", id)
	} else {
		fmt.Printf("☆ 已取消关注 %s\n", id)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("learnfeed %s\n", buildinfo.String())
		},
	}
}
