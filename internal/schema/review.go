package schema

import "time"

// ReviewIntervals 间隔重复阶梯（天）
var ReviewIntervals = []int{1, 3, 7, 14, 30}

// SpacedRepetitionItem 间隔重复复习项
// 同一 (PostID, Topic) 至多一条
type SpacedRepetitionItem struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID         string    `gorm:"size:36;index:idx_review_post_topic" json:"post_id"`
	Topic          string    `gorm:"size:200;index:idx_review_post_topic" json:"topic"`
	ConceptSummary string    `gorm:"type:text" json:"concept_summary"`
	NextReviewAt   time.Time `gorm:"index" json:"next_review_at"`
	IntervalDays   int       `gorm:"default:1" json:"interval_days"`
	ReviewCount    int       `gorm:"default:0" json:"review_count"`
}

// TableName 指定表名
func (SpacedRepetitionItem) TableName() string {
	return "spaced_repetition_schedule"
}

// IntervalIndex 当前间隔在阶梯中的位置，不在阶梯上返回 -1
func (i *SpacedRepetitionItem) IntervalIndex() int {
	for idx, d := range ReviewIntervals {
		if d == i.IntervalDays {
			return idx
		}
	}
	return -1
}
