package service

import "github.com/yuqie6/LearnFeed/internal/schema"

// EngagementPolicy 交互 → 参与度增量（可替换）
type EngagementPolicy interface {
	Delta(t schema.InteractionType) float64
}

// DefaultEngagementPolicy 固定增量表
type DefaultEngagementPolicy struct{}

// Delta 未知类型返回 0
func (DefaultEngagementPolicy) Delta(t schema.InteractionType) float64 {
	switch t {
	case schema.InteractionLike:
		return 2
	case schema.InteractionBookmark:
		return 3
	case schema.InteractionTooEasy, schema.InteractionTooHard:
		return -1
	case schema.InteractionTimeSpent:
		return 0.5
	default:
		return 0
	}
}

// Direction 难度调整方向
type Direction string

const (
	DirectionHarder Direction = "harder"
	DirectionEasier Direction = "easier"
)

// NextDifficulty 按方向调整一级并限制在 [1,5]
func NextDifficulty(current int, dir Direction) int {
	switch dir {
	case DirectionHarder:
		return schema.ClampDifficulty(current + 1)
	case DirectionEasier:
		return schema.ClampDifficulty(current - 1)
	default:
		return schema.ClampDifficulty(current)
	}
}

// FeedbackDirection too_easy → harder，too_hard → easier，其余无方向
func FeedbackDirection(t schema.InteractionType) (Direction, bool) {
	switch t {
	case schema.InteractionTooEasy:
		return DirectionHarder, true
	case schema.InteractionTooHard:
		return DirectionEasier, true
	default:
		return "", false
	}
}
