// Package kvtable is an on-disk key/value table stored as a single SQLite file.
//
// A Table is an open handle: it holds a connection pool until Close. It
// satisfies cache.Handle, so a bounded number of tables can be kept open by
// a cache.Cache. A Table is not safe for concurrent use.
package kvtable

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"table-cache-api/internal/database"
	"table-cache-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned for a key the table does not hold.
	ErrNotFound = errors.New("kvtable: record not found")

	// ErrClosed is returned by every operation on a closed table, Close included.
	ErrClosed = errors.New("kvtable: table is closed")
)

// Options controls how a table is opened.
type Options struct {
	// LogLevel is gorm's SQL log level. The zero value logs nothing.
	LogLevel logger.LogLevel
}

// Table is an open key/value table.
type Table struct {
	name   string
	path   string
	db     *gorm.DB
	sqlDB  *sql.DB
	closed bool
}

// Open opens the table file at path, creating it if it does not exist.
func Open(path string, opts Options) (*Table, error) {
	level := opts.LogLevel
	if level == 0 {
		level = logger.Silent
	}
	db, err := database.Open(path, level)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("kvtable: open %s: %w", path, err)
	}
	return &Table{
		name:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		path:  path,
		db:    db,
		sqlDB: sqlDB,
	}, nil
}

// Name is the file name without its extension.
func (t *Table) Name() string { return t.name }

// Path is the file the table was opened from.
func (t *Table) Path() string { return t.path }

// Get returns the value stored under key.
func (t *Table) Get(key string) ([]byte, error) {
	if t.closed {
		return nil, ErrClosed
	}
	var rec models.Record
	if err := t.db.Where("record_key = ?", key).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("kvtable %s: get %q: %w", t.name, key, err)
	}
	return rec.Value, nil
}

// Put stores value under key, replacing any previous value.
func (t *Table) Put(key string, value []byte) error {
	if t.closed {
		return ErrClosed
	}
	if value == nil {
		value = []byte{}
	}
	rec := models.Record{Key: key, Value: value}
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("kvtable %s: put %q: %w", t.name, key, err)
	}
	return nil
}

// Delete removes key. It returns ErrNotFound if the key was absent.
func (t *Table) Delete(key string) error {
	if t.closed {
		return ErrClosed
	}
	res := t.db.Where("record_key = ?", key).Delete(&models.Record{})
	if res.Error != nil {
		return fmt.Errorf("kvtable %s: delete %q: %w", t.name, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return nil
}

// Keys returns up to limit keys in ascending order, skipping the first offset.
// A non-positive limit returns every remaining key.
func (t *Table) Keys(offset, limit int) ([]string, error) {
	if t.closed {
		return nil, ErrClosed
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = math.MaxInt32
	}
	keys := make([]string, 0)
	err := t.db.Model(&models.Record{}).
		Order("record_key asc").
		Offset(offset).
		Limit(limit).
		Pluck("record_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("kvtable %s: list keys: %w", t.name, err)
	}
	return keys, nil
}

// Count returns the number of records.
func (t *Table) Count() (int64, error) {
	if t.closed {
		return 0, ErrClosed
	}
	var n int64
	if err := t.db.Model(&models.Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("kvtable %s: count: %w", t.name, err)
	}
	return n, nil
}

// Sync checkpoints the write-ahead log into the main database file.
func (t *Table) Sync() error {
	if t.closed {
		return ErrClosed
	}
	if err := t.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		return fmt.Errorf("kvtable %s: sync: %w", t.name, err)
	}
	return nil
}

// Close releases the database connection. Closing twice returns ErrClosed.
func (t *Table) Close() error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true
	if err := t.sqlDB.Close(); err != nil {
		return fmt.Errorf("kvtable %s: close: %w", t.name, err)
	}
	return nil
}

// Closed reports whether Close has been called.
func (t *Table) Closed() bool { return t.closed }
