package schema

import "time"

// PostType 帖子类型（封闭枚举）
type PostType string

const (
	PostTypeStandalone   PostType = "standalone"
	PostTypeSequential   PostType = "sequential"
	PostTypeQuiz         PostType = "quiz"
	PostTypeDeepDive     PostType = "deep_dive"
	PostTypeSpacedReview PostType = "spaced_review"
)

// AllPostTypes 按抽样顺序排列的全部帖子类型
var AllPostTypes = []PostType{
	PostTypeStandalone,
	PostTypeSequential,
	PostTypeQuiz,
	PostTypeDeepDive,
	PostTypeSpacedReview,
}

// Valid 是否为已知类型
func (t PostType) Valid() bool {
	switch t {
	case PostTypeStandalone, PostTypeSequential, PostTypeQuiz, PostTypeDeepDive, PostTypeSpacedReview:
		return true
	}
	return false
}

// NeedsContext sequential / deep_dive 需要拼接同主题最近的帖子作为上下文
func (t PostType) NeedsContext() bool {
	return t == PostTypeSequential || t == PostTypeDeepDive
}

// Post AI 生成的学习帖子
// 除 IsRead 外创建后不可变
type Post struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	PersonalityID     string    `gorm:"size:50;index" json:"personality_id"`
	Topic             string    `gorm:"size:200;index" json:"topic"`
	Content           string    `gorm:"type:text" json:"content"`
	DifficultyLevel   int       `gorm:"default:1" json:"difficulty_level"`
	PostType          PostType  `gorm:"size:20;index;default:standalone" json:"post_type"`
	ThreadID          *string   `gorm:"size:36;index" json:"thread_id,omitempty"`
	OriginalConceptID *string   `gorm:"size:36" json:"original_concept_id,omitempty"`
	IsRead            bool      `gorm:"default:false" json:"is_read"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Post) TableName() string {
	return "posts"
}

// Reply 帖子下的讨论回复
type Reply struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	PostID         string    `gorm:"size:36;index" json:"post_id"`
	PersonalityID  string    `gorm:"size:50" json:"personality_id"`
	Content        string    `gorm:"type:text" json:"content"`
	IsUserQuestion bool      `gorm:"default:false" json:"is_user_question"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Reply) TableName() string {
	return "replies"
}
