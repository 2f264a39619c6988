package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/yuqie6/LearnFeed/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// OpenTestDB 打开内存 SQLite 并自动迁移所有表
// 每个测试使用独立的共享缓存库，便于并发 goroutine 看到同一份数据
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&schema.SchemaMeta{},
		&schema.Topic{},
		&schema.Post{},
		&schema.Reply{},
		&schema.Interaction{},
		&schema.SpacedRepetitionItem{},
		&schema.PersonalityState{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}
