package schema

import "time"

// InteractionType 用户交互类型
type InteractionType string

const (
	InteractionLike      InteractionType = "like"
	InteractionBookmark  InteractionType = "bookmark"
	InteractionTooEasy   InteractionType = "too_easy"
	InteractionTooHard   InteractionType = "too_hard"
	InteractionTimeSpent InteractionType = "time_spent"
)

// Valid 是否为已知类型
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionLike, InteractionBookmark, InteractionTooEasy, InteractionTooHard, InteractionTimeSpent:
		return true
	}
	return false
}

// Interaction 追加式交互日志
// "已点赞/已收藏" 由对应行是否存在推导，不存布尔字段
type Interaction struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    string          `gorm:"size:36;index" json:"post_id"`
	Type      InteractionType `gorm:"column:interaction_type;size:20;index" json:"type"`
	Value     string          `gorm:"size:100" json:"value,omitempty"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Interaction) TableName() string {
	return "user_interactions"
}
