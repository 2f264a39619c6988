package schema

import (
	"strings"
	"time"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Topic 用户订阅的学习主题
// 数据量级：十级
type Topic struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	Name              string     `gorm:"size:200;index" json:"name"`
	IsActive          bool       `gorm:"index" json:"is_active"`
	InitialDifficulty int        `gorm:"default:1" json:"initial_difficulty"`
	CurrentDifficulty int        `gorm:"default:1" json:"current_difficulty"` // 1-5
	EngagementScore   float64    `gorm:"default:0" json:"engagement_score"`   // >= 0
	PostCount         int        `gorm:"default:0" json:"post_count"`
	LastPostAt        *time.Time `json:"last_post_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Topic) TableName() string {
	return "topics"
}

// NewTopic 创建主题，难度会被限制在 [1,5]
func NewTopic(id, name string, difficulty int) *Topic {
	d := ClampDifficulty(difficulty)
	return &Topic{
		ID:                id,
		Name:              strings.TrimSpace(name),
		IsActive:          true,
		InitialDifficulty: d,
		CurrentDifficulty: d,
	}
}

// MatchesName 主题名大小写不敏感匹配
func (t *Topic) MatchesName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Name), strings.TrimSpace(name))
}

// ApplyEngagement 累加参与度，结果不低于 0
func (t *Topic) ApplyEngagement(delta float64) {
	t.EngagementScore += delta
	if t.EngagementScore < 0 {
		t.EngagementScore = 0
	}
}

// ClampDifficulty 将难度限制在 [MinDifficulty, MaxDifficulty]
func ClampDifficulty(level int) int {
	if level < MinDifficulty {
		return MinDifficulty
	}
	if level > MaxDifficulty {
		return MaxDifficulty
	}
	return level
}
