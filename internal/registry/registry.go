// Package registry opens table files on demand and keeps the most recently
// used ones open in a bounded cache.
//
// The registry is the one place that touches the cache, and it does so with
// its mutex held. Table work runs inside With, also under the mutex, so a
// handle can never be used after the cache has evicted and closed it.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"table-cache-api/internal/cache"
	"table-cache-api/internal/kvtable"
	"table-cache-api/internal/logging"
	"table-cache-api/internal/realtime"

	"gorm.io/gorm/logger"
)

// FileExt is the extension of table files inside the data directory.
const FileExt = ".db"

var (
	// ErrInvalidName is returned for table names that are not safe file names.
	ErrInvalidName = errors.New("registry: invalid table name")

	// ErrTableNotFound is returned when a table file does not exist, or when
	// evicting a table that is not open.
	ErrTableNotFound = errors.New("registry: table not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("registry: closed")
)

// Table names are case-folded to lower case, so names that differ only in
// case share one file even on case-insensitive file systems.
var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Publisher receives cache lifecycle events.
type Publisher interface {
	Publish(realtime.Event)
}

// Options configures a Registry.
type Options struct {
	Dir                 string
	MaxEntries          int
	MaintenanceInterval time.Duration
	StalenessThreshold  time.Duration
	GormLogLevel        logger.LogLevel
	Logger              *slog.Logger
	// Publisher is optional.
	Publisher Publisher
}

// Registry maps table names to open kvtable handles.
type Registry struct {
	mu     sync.Mutex
	dir    string
	tables *cache.Cache[*kvtable.Table]
	topts  kvtable.Options
	pub    Publisher
	log    *slog.Logger
	closed bool
}

// New creates the data directory if needed and returns an empty registry.
func New(opts Options) (*Registry, error) {
	if opts.Dir == "" {
		return nil, errors.New("registry: data directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create data dir: %w", err)
	}
	maxEntries := opts.MaxEntries
	if maxEntries == 0 {
		maxEntries = cache.DefaultMaxEntries
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := &Registry{
		dir:   opts.Dir,
		topts: kvtable.Options{LogLevel: opts.GormLogLevel},
		pub:   opts.Publisher,
		log:   log,
	}
	tables, err := cache.New(cache.Config[*kvtable.Table]{
		MaxEntries:          maxEntries,
		MaintenanceInterval: opts.MaintenanceInterval,
		StalenessThreshold:  opts.StalenessThreshold,
		Logger:              log,
		OnEvict:             r.onEvict,
		OnSweep:             r.onSweep,
	})
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	r.tables = tables
	return r, nil
}

// Dir returns the data directory.
func (r *Registry) Dir() string { return r.dir }

// With runs fn against the named table, opening it on a cache miss. When
// create is false a missing table file yields ErrTableNotFound. fn must not
// keep the table after it returns.
func (r *Registry) With(name string, create bool, fn func(*kvtable.Table) error) error {
	name, err := CanonicalName(name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	t, err := r.acquire(name, create)
	if err != nil {
		return err
	}
	return fn(t)
}

// Evict closes the named table and drops it from the cache.
func (r *Registry) Evict(name string) error {
	name, err := CanonicalName(name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	t, err := r.tables.Remove(name)
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s is not open", ErrTableNotFound, name)
		}
		return err
	}
	if err := t.Close(); err != nil && !errors.Is(err, kvtable.ErrClosed) {
		r.log.Warn("registry: close removed table", logging.Table(name), logging.Err(err))
	}
	r.publish(realtime.EventTableRemoved, name, nil)
	return nil
}

// Cached returns the open tables from least to most recently used.
func (r *Registry) Cached() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables.Keys()
}

// Stats returns the cache counters.
func (r *Registry) Stats() cache.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables.Stats()
}

// Capacity returns how many tables may be open at once.
func (r *Registry) Capacity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables.Cap()
}

// Tables lists the table files in the data directory, sorted by name.
func (r *Registry) Tables() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("registry: list tables: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != FileExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), FileExt)
		if namePattern.MatchString(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Close closes every open table. Later calls are no-ops.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	n := r.tables.ExpireAll()
	r.log.Info("registry: closed tables", slog.Int("count", n))
	return nil
}

// CanonicalName lower-cases name and reports whether the result can be used
// as a table name.
func CanonicalName(name string) (string, error) {
	canon := strings.ToLower(name)
	if !namePattern.MatchString(canon) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return canon, nil
}

// acquire returns the cached table or opens it. Has to be called with lock!
func (r *Registry) acquire(name string, create bool) (*kvtable.Table, error) {
	t, err := r.tables.Get(name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, cache.ErrKeyNotFound) {
		return nil, err
	}

	path := r.path(name)
	if !create {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
			}
			return nil, fmt.Errorf("registry: stat %s: %w", name, err)
		}
	}

	t, err = kvtable.Open(path, r.topts)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", name, err)
	}
	if err := r.tables.Set(name, t); err != nil {
		_ = t.Close()
		return nil, err
	}
	r.log.Debug("registry: opened table", logging.Table(name))
	r.publish(realtime.EventTableOpened, name, nil)
	return t, nil
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.dir, name+FileExt)
}

func (r *Registry) onEvict(name string, _ *kvtable.Table) {
	r.log.Debug("registry: evicted table", logging.Table(name))
	r.publish(realtime.EventTableEvicted, name, nil)
}

func (r *Registry) onSweep(report cache.SweepReport) {
	r.log.Info("registry: maintenance sweep",
		slog.Int("synced", report.Synced),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration))
	r.publish(realtime.EventMaintenanceSweep, "", report)
}

func (r *Registry) publish(typ realtime.EventType, table string, payload any) {
	if r.pub == nil {
		return
	}
	r.pub.Publish(realtime.NewEvent(typ, table, payload))
}
