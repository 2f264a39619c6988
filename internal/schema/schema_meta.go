package schema

import "time"

// SchemaMetaID schema_meta 唯一行的主键
const SchemaMetaID = 1

// SchemaMeta 记录 LearnFeed 数据库的 schema 版本。
// 启动时与程序支持的版本比对：较低则迁移，较高则进入安全模式拒绝写入。
type SchemaMeta struct {
	ID            int       `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (SchemaMeta) TableName() string {
	return "schema_meta"
}
