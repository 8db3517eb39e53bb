// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"routine/internal/database"

	"gorm.io/gorm"
)

// Open returns a file-backed SQLite database under t.TempDir(). Writers take
// the lock at BEGIN and wait for each other instead of failing fast, which
// keeps concurrent tests deterministic.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		filepath.Join(t.TempDir(), "routine_test.db"),
	)
	db, err := database.Connect(dsn)
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
