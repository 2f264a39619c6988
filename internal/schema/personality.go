package schema

// PersonalityState 人格的关注状态（人格本身是代码中的静态表）
type PersonalityState struct {
	ID         string `gorm:"primaryKey;size:50"`
	IsFollowed bool   `gorm:"default:false;index"`
}

// TableName 指定表名
func (PersonalityState) TableName() string {
	return "personalities"
}
