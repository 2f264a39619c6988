package dto

type StatusDTO struct {
	App     AppStatusDTO     `json:"app"`
	Storage StorageStatusDTO `json:"storage"`
	AI      AIStatusDTO      `json:"ai"`
	Feed    FeedStatusDTO    `json:"feed"`
}

type AppStatusDTO struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	StartedAt     string `json:"started_at"`
	UptimeSec     int64  `json:"uptime_sec"`
	SafeMode      bool   `json:"safe_mode"`
	ConfigPath    string `json:"config_path,omitempty"`
	Subscribers   int    `json:"event_subscribers"`
	DroppedEvents int64  `json:"dropped_events"`
}

type StorageStatusDTO struct {
	Driver         string `json:"driver"`
	DBPath         string `json:"db_path,omitempty"`
	SchemaVersion  int    `json:"schema_version"`
	SafeModeReason string `json:"safe_mode_reason,omitempty"`
}

type AIStatusDTO struct {
	Provider       string `json:"provider"`
	Configured     bool   `json:"configured"`
	Model          string `json:"model"`
	SemanticSearch bool   `json:"semantic_search"`
}

type FeedStatusDTO struct {
	Topics       int    `json:"topics"`
	ActiveTopics int    `json:"active_topics"`
	TotalPosts   int64  `json:"total_posts"`
	DueReviews   int    `json:"due_reviews"`
	Language     string `json:"language"`
	PostLength   string `json:"post_length"`
}
