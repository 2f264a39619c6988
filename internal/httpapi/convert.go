package httpapi

import (
	"time"

	"github.com/yuqie6/LearnFeed/internal/dto"
	"github.com/yuqie6/LearnFeed/internal/pkg/config"
	"github.com/yuqie6/LearnFeed/internal/schema"
	"github.com/yuqie6/LearnFeed/internal/service"
)

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toTopicDTO(t schema.Topic) dto.TopicDTO {
	out := dto.TopicDTO{
		ID:                t.ID,
		Name:              t.Name,
		IsActive:          t.IsActive,
		InitialDifficulty: t.InitialDifficulty,
		CurrentDifficulty: t.CurrentDifficulty,
		EngagementScore:   t.EngagementScore,
		PostCount:         t.PostCount,
	}
	if t.LastPostAt != nil {
		out.LastPostAt = unixMilli(*t.LastPostAt)
	}
	return out
}

func toPostDTO(v service.PostView) dto.PostDTO {
	return dto.PostDTO{
		ID:                v.ID,
		PersonalityID:     v.PersonalityID,
		PersonalityName:   v.PersonalityName,
		PersonalityEmoji:  v.PersonalityEmoji,
		Topic:             v.Topic,
		Content:           v.Content,
		DifficultyLevel:   v.DifficultyLevel,
		PostType:          string(v.PostType),
		ThreadID:          derefString(v.ThreadID),
		OriginalConceptID: derefString(v.OriginalConceptID),
		IsRead:            v.IsRead,
		CreatedAt:         unixMilli(v.CreatedAt),
		Liked:             v.Liked,
		Bookmarked:        v.Bookmarked,
		ReplyCount:        v.ReplyCount,
	}
}

func toReplyDTOs(replies []schema.Reply) []dto.ReplyDTO {
	out := make([]dto.ReplyDTO, 0, len(replies))
	for _, r := range replies {
		out = append(out, dto.ReplyDTO{
			ID:             r.ID,
			PostID:         r.PostID,
			PersonalityID:  r.PersonalityID,
			Content:        r.Content,
			IsUserQuestion: r.IsUserQuestion,
			CreatedAt:      unixMilli(r.CreatedAt),
		})
	}
	return out
}

func toReviewDTO(it schema.SpacedRepetitionItem, now time.Time) dto.ReviewDTO {
	return dto.ReviewDTO{
		ID:             it.ID,
		PostID:         it.PostID,
		Topic:          it.Topic,
		ConceptSummary: it.ConceptSummary,
		NextReviewAt:   unixMilli(it.NextReviewAt),
		IntervalDays:   it.IntervalDays,
		ReviewCount:    it.ReviewCount,
		Due:            !it.NextReviewAt.After(now),
	}
}

func toWeeklyStatsDTO(s service.WeeklyStats) dto.WeeklyStatsDTO {
	out := dto.WeeklyStatsDTO{
		Since:            unixMilli(s.Since),
		TopicsStudied:    s.TopicsStudied,
		TotalPosts:       s.TotalPosts,
		TotalLikes:       s.TotalLikes,
		TotalBookmarks:   s.TotalBookmarks,
		ConceptsReviewed: s.ConceptsReviewed,
		TopicBreakdown:   make([]dto.TopicStatDTO, 0, len(s.TopicBreakdown)),
	}
	if out.TopicsStudied == nil {
		out.TopicsStudied = []string{}
	}
	for _, ts := range s.TopicBreakdown {
		out.TopicBreakdown = append(out.TopicBreakdown, dto.TopicStatDTO{
			Topic:      ts.Topic,
			Count:      ts.Count,
			Engagement: ts.Engagement,
		})
	}
	return out
}

func toPersonalityDTO(v service.PersonalityView) dto.PersonalityDTO {
	types := make([]string, 0, len(v.PostTypes))
	for _, t := range v.PostTypes {
		types = append(types, string(t))
	}
	return dto.PersonalityDTO{
		ID:            v.ID,
		Name:          v.Name,
		Bio:           v.Bio,
		TeachingStyle: v.TeachingStyle,
		AvatarEmoji:   v.AvatarEmoji,
		PostTypes:     types,
		IsFollowed:    v.IsFollowed,
	}
}

// toSettingsDTO 不回传任何密钥，仅标记是否已配置
func toSettingsDTO(path string, cfg *config.Config) *dto.SettingsDTO {
	return &dto.SettingsDTO{
		ConfigPath: path,
		Provider:   cfg.AI.Provider,

		OpenAIAPIKeySet: cfg.AI.OpenAI.APIKey != "",
		OpenAIBaseURL:   cfg.AI.OpenAI.BaseURL,
		OpenAIModel:     cfg.AI.OpenAI.Model,

		GeminiAPIKeySet: cfg.AI.Gemini.APIKey != "",
		GeminiModel:     cfg.AI.Gemini.Model,

		EmbeddingAPIKeySet: cfg.AI.Embedding.APIKey != "",
		EmbeddingBaseURL:   cfg.AI.Embedding.BaseURL,
		EmbeddingModel:     cfg.AI.Embedding.Model,

		Language:       cfg.Feed.Language,
		PostLength:     cfg.Feed.PostLength,
		BatchSize:      cfg.Feed.BatchSize,
		MaxConcurrency: cfg.Feed.MaxConcurrency,

		StorageDriver: cfg.Storage.Driver,
		DBPath:        cfg.Storage.DBPath,
	}
}
