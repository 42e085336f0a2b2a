package database

import (
	"path/filepath"
	"testing"

	"table-cache-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestOpen_MemoryMigrates(t *testing.T) {
	db, err := Open(MemoryPath, logger.Silent)
	require.NoError(t, err)
	require.True(t, db.Migrator().HasTable(&models.Record{}))

	require.NoError(t, db.Create(&models.Record{Key: "k", Value: []byte("v")}).Error)
	var got models.Record
	require.NoError(t, db.First(&got, "record_key = ?", "k").Error)
	require.Equal(t, []byte("v"), got.Value)
}

func TestOpen_FileUsesWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "wal.db"), logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var mode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	require.Equal(t, "wal", mode)
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, logger.Info, ParseLogLevel("INFO"))
	require.Equal(t, logger.Warn, ParseLogLevel("warning"))
	require.Equal(t, logger.Error, ParseLogLevel(" error "))
	require.Equal(t, logger.Silent, ParseLogLevel(""))
	require.Equal(t, logger.Silent, ParseLogLevel("verbose"))
}
