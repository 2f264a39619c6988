package repository

import (
	"path/filepath"
	"testing"

	"github.com/yuqie6/LearnFeed/internal/pkg/config"
	"github.com/yuqie6/LearnFeed/internal/schema"
)

func configForTest(t *testing.T) config.StorageConfig {
	t.Helper()
	return config.StorageConfig{Driver: DriverSQLite, DBPath: filepath.Join(t.TempDir(), "data", "feed.db")}
}

func TestNewDatabase_RejectsUnknownDriver(t *testing.T) {
	if _, err := NewDatabase(config.StorageConfig{Driver: "mysql"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
	if _, err := NewDatabase(config.StorageConfig{Driver: DriverPostgres}); err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}
}

func TestNewDatabase_NewerSchemaEntersSafeMode(t *testing.T) {
	cfg := configForTest(t)
	d, err := NewDatabase(cfg)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	err = d.DB.Model(&schema.SchemaMeta{}).
		Where("id = ?", schema.SchemaMetaID).
		Update("schema_version", latestSchemaVersion+1).Error
	if err != nil {
		t.Fatalf("bump schema_version: %v", err)
	}
	d.Close()

	d, err = NewDatabase(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	if !d.SafeMode || d.SchemaVersion != latestSchemaVersion+1 || d.MigrationError == "" {
		t.Fatalf("expected safe mode for newer schema, got %+v", d)
	}
}
