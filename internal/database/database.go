package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the SQLite database at dbPath. File databases get a busy
// timeout and WAL journaling so API writes do not trip over seeding.
func Connect(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: utcNow,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// one writer at a time keeps SQLite from returning SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// utcNow keeps GORM's automatic timestamps in UTC whatever time.Local is.
func utcNow() time.Time {
	return time.Now().UTC()
}

func dsn(dbPath string) string {
	if strings.Contains(dbPath, ":memory:") || strings.Contains(dbPath, "mode=memory") {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_busy_timeout=5000&_journal_mode=WAL"
}
