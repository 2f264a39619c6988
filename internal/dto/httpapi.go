package dto

// 注意：本包用于承载“对外契约”的 DTO（与前端/HTTP API 保持稳定）。
// 不要在这里放 GORM/持久化细节；内部持久化 schema 请见 internal/schema；业务逻辑收敛在 internal/service。

type TopicDTO struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	IsActive          bool    `json:"is_active"`
	InitialDifficulty int     `json:"initial_difficulty"`
	CurrentDifficulty int     `json:"current_difficulty"`
	EngagementScore   float64 `json:"engagement_score"`
	PostCount         int     `json:"post_count"`
	LastPostAt        int64   `json:"last_post_at,omitempty"`
}

type CreateTopicRequestDTO struct {
	Name       string `json:"name"`
	Difficulty int    `json:"difficulty"`
}

type UpdateTopicRequestDTO struct {
	ID         string `json:"id"`
	IsActive   *bool  `json:"is_active,omitempty"`
	Difficulty *int   `json:"difficulty,omitempty"`
}

type PostDTO struct {
	ID                string `json:"id"`
	PersonalityID     string `json:"personality_id"`
	PersonalityName   string `json:"personality_name,omitempty"`
	PersonalityEmoji  string `json:"personality_emoji,omitempty"`
	Topic             string `json:"topic"`
	Content           string `json:"content"`
	DifficultyLevel   int    `json:"difficulty_level"`
	PostType          string `json:"post_type"`
	ThreadID          string `json:"thread_id,omitempty"`
	OriginalConceptID string `json:"original_concept_id,omitempty"`
	IsRead            bool   `json:"is_read"`
	CreatedAt         int64  `json:"created_at"`
	Liked             bool   `json:"liked"`
	Bookmarked        bool   `json:"bookmarked"`
	ReplyCount        int    `json:"reply_count"`
}

type ReplyDTO struct {
	ID             string `json:"id"`
	PostID         string `json:"post_id"`
	PersonalityID  string `json:"personality_id"`
	Content        string `json:"content"`
	IsUserQuestion bool   `json:"is_user_question"`
	CreatedAt      int64  `json:"created_at"`
}

type PostDetailDTO struct {
	Post    PostDTO    `json:"post"`
	Replies []ReplyDTO `json:"replies"`
}

type RefreshResponseDTO struct {
	Requested int       `json:"requested"`
	Generated int       `json:"generated"`
	Posts     []PostDTO `json:"posts"`
}

type ToggleResponseDTO struct {
	PostID string `json:"post_id"`
	Active bool   `json:"active"`
}

type FeedbackRequestDTO struct {
	PostID string `json:"post_id"`
	Type   string `json:"type"` // too_easy | too_hard
}

type AskRequestDTO struct {
	PostID   string `json:"post_id"`
	Question string `json:"question"`
}

type AskResponseDTO struct {
	Answer string `json:"answer"`
}

type ReviewDTO struct {
	ID             int64  `json:"id"`
	PostID         string `json:"post_id"`
	Topic          string `json:"topic"`
	ConceptSummary string `json:"concept_summary"`
	NextReviewAt   int64  `json:"next_review_at"`
	IntervalDays   int    `json:"interval_days"`
	ReviewCount    int    `json:"review_count"`
	Due            bool   `json:"due"`
}

type TopicStatDTO struct {
	Topic      string  `json:"topic"`
	Count      int64   `json:"count"`
	Engagement float64 `json:"engagement"`
}

type WeeklyStatsDTO struct {
	Since            int64          `json:"since"`
	TopicsStudied    []string       `json:"topics_studied"`
	TotalPosts       int64          `json:"total_posts"`
	TotalLikes       int64          `json:"total_likes"`
	TotalBookmarks   int64          `json:"total_bookmarks"`
	ConceptsReviewed int64          `json:"concepts_reviewed"`
	TopicBreakdown   []TopicStatDTO `json:"topic_breakdown"`
}

type RecapDTO struct {
	Stats   WeeklyStatsDTO `json:"stats"`
	Summary string         `json:"summary"`
}

type PersonalityDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Bio           string   `json:"bio"`
	TeachingStyle string   `json:"teaching_style"`
	AvatarEmoji   string   `json:"avatar_emoji"`
	PostTypes     []string `json:"post_types"`
	IsFollowed    bool     `json:"is_followed"`
}

type FollowRequestDTO struct {
	ID     string `json:"id"`
	Follow bool   `json:"follow"`
}

type SettingsDTO struct {
	ConfigPath string `json:"config_path"`

	Provider string `json:"provider"`

	OpenAIAPIKeySet bool   `json:"openai_api_key_set"`
	OpenAIBaseURL   string `json:"openai_base_url"`
	OpenAIModel     string `json:"openai_model"`

	GeminiAPIKeySet bool   `json:"gemini_api_key_set"`
	GeminiModel     string `json:"gemini_model"`

	EmbeddingAPIKeySet bool   `json:"embedding_api_key_set"`
	EmbeddingBaseURL   string `json:"embedding_base_url"`
	EmbeddingModel     string `json:"embedding_model"`

	Language       string `json:"language"`
	PostLength     string `json:"post_length"`
	BatchSize      int    `json:"batch_size"`
	MaxConcurrency int    `json:"max_concurrency"`

	StorageDriver string `json:"storage_driver"`
	DBPath        string `json:"db_path"`
}

type SaveSettingsRequestDTO struct {
	Provider *string `json:"provider,omitempty"`

	OpenAIAPIKey  *string `json:"openai_api_key,omitempty"`
	OpenAIBaseURL *string `json:"openai_base_url,omitempty"`
	OpenAIModel   *string `json:"openai_model,omitempty"`

	GeminiAPIKey *string `json:"gemini_api_key,omitempty"`
	GeminiModel  *string `json:"gemini_model,omitempty"`

	EmbeddingAPIKey  *string `json:"embedding_api_key,omitempty"`
	EmbeddingBaseURL *string `json:"embedding_base_url,omitempty"`
	EmbeddingModel   *string `json:"embedding_model,omitempty"`

	Language       *string `json:"language,omitempty"`
	PostLength     *string `json:"post_length,omitempty"`
	BatchSize      *int    `json:"batch_size,omitempty"`
	MaxConcurrency *int    `json:"max_concurrency,omitempty"`
}

type SaveSettingsResponseDTO struct {
	// RestartRequired 客户端/存储相关配置需要重启 agent 生效；生成偏好会热更新
	RestartRequired bool `json:"restart_required"`
}
