package database

import (
	"fmt"
	"strings"

	"table-cache-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory database instead of a file.
const MemoryPath = ":memory:"

// Open opens (creating if needed) the SQLite file at path and runs migrations.
// File databases run in WAL mode so Sync can checkpoint them.
//
// glebarez/sqlite is a pure Go implementation (no CGO required).
func Open(path string, level logger.LogLevel) (*gorm.DB, error) {
	dsn := path
	if path != MemoryPath {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// One connection per file: SQLite has a single writer anyway, and an
	// in-memory database only exists inside the connection that created it.
	sqlDB.SetMaxOpenConns(1)

	// Auto-migrate the schema (it will create tables if they don't exist)
	if err := db.AutoMigrate(&models.Record{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate database %s: %w", path, err)
	}

	return db, nil
}

// ParseLogLevel maps silent, error, warn or info to a gorm log level.
// Anything else is Silent.
func ParseLogLevel(s string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}
