package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"table-cache-api/internal/logging"
	"table-cache-api/internal/recency"
)

// entry pairs a handle with the wall-clock time of its last touch.
// Ordering lives in the recency index; touchedAt only feeds maintenance.
type entry[H Handle] struct {
	handle    H
	touchedAt time.Time
}

// Cache is a bounded map from key to an open Handle with LRU eviction.
//
// Cache is NOT safe for concurrent use. Callers that share one across
// goroutines must serialize every call, for example behind a sync.Mutex.
//
// A handle returned by Get is borrowed: it stays owned by the cache and must
// not be used after a later Set, Resize or Close has evicted its key. Nothing
// here pins borrowed handles.
type Cache[H Handle] struct {
	maxEntries int
	entries    map[string]*entry[H]
	index      *recency.Index
	sched      scheduler
	stats      Stats

	log     *slog.Logger
	onEvict func(key string, h H)
	onSweep func(SweepReport)
}

// New constructs an empty cache.
func New[H Handle](cfg Config[H]) (*Cache[H], error) {
	if cfg.MaxEntries <= 0 {
		return nil, errors.New("cache: must provide a positive MaxEntries")
	}
	interval := cfg.MaintenanceInterval
	if interval <= 0 {
		interval = DefaultMaintenanceInterval
	}
	staleAfter := cfg.StalenessThreshold
	if staleAfter <= 0 {
		staleAfter = DefaultStalenessThreshold
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Cache[H]{
		maxEntries: cfg.MaxEntries,
		entries:    make(map[string]*entry[H]),
		index:      recency.New(),
		sched:      newScheduler(interval, staleAfter),
		log:        log,
		onEvict:    cfg.OnEvict,
		onSweep:    cfg.OnSweep,
	}, nil
}

// Contains reports whether key is cached without touching it.
func (c *Cache[H]) Contains(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Get returns the handle cached under key and marks it most recently used.
// It may run a maintenance sweep before returning.
func (c *Cache[H]) Get(key string) (H, error) {
	var zero H
	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if err := c.touch(key, e); err != nil {
		return zero, err
	}
	c.stats.Hits++
	c.maybeRunMaintenance()
	return e.handle, nil
}

// Peek returns the handle cached under key without touching it or running maintenance.
func (c *Cache[H]) Peek(key string) (H, bool) {
	e, ok := c.entries[key]
	if !ok {
		var zero H
		return zero, false
	}
	return e.handle, true
}

// Set takes ownership of h under key, then evicts down to capacity.
// If key is already cached, Set returns ErrDuplicateKey and leaves h alone.
func (c *Cache[H]) Set(key string, h H) error {
	if _, ok := c.entries[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	e := &entry[H]{handle: h}
	c.entries[key] = e
	if err := c.touch(key, e); err != nil {
		delete(c.entries, key)
		return err
	}
	c.maybeRunMaintenance()
	c.EvictDownTo(c.maxEntries)
	return nil
}

// Remove takes key out of the cache and hands its handle back to the caller
// without closing it.
func (c *Cache[H]) Remove(key string) (H, error) {
	var zero H
	e, ok := c.entries[key]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if err := c.index.Remove(key); err != nil {
		c.log.Error("cache: recency index out of sync", slog.String("key", key), logging.Err(err))
		return zero, fmt.Errorf("cache: remove %q: %w", key, err)
	}
	delete(c.entries, key)
	return e.handle, nil
}

// EvictDownTo closes least recently used handles until at most target remain.
// A failing Close is logged and does not stop the batch. It returns the number
// of entries evicted.
func (c *Cache[H]) EvictDownTo(target int) int {
	if target < 0 {
		target = 0
	}
	evicted := 0
	for len(c.entries) > target {
		key, err := c.index.PopLeastRecent()
		if err != nil {
			c.log.Error("cache: recency index exhausted before entries",
				slog.Int("entries", len(c.entries)), logging.Err(err))
			return evicted
		}
		e, ok := c.entries[key]
		if !ok {
			c.log.Error("cache: indexed key has no entry", slog.String("key", key))
			continue
		}
		delete(c.entries, key)
		c.release(key, e.handle)
		evicted++
	}
	return evicted
}

// Resize changes the capacity and evicts down to it.
func (c *Cache[H]) Resize(maxEntries int) (int, error) {
	if maxEntries <= 0 {
		return 0, errors.New("cache: must provide a positive MaxEntries")
	}
	c.maxEntries = maxEntries
	return c.EvictDownTo(maxEntries), nil
}

// ExpireAll evicts and closes every entry. The cache stays usable.
func (c *Cache[H]) ExpireAll() int {
	return c.EvictDownTo(0)
}

// Close is ExpireAll. It is safe to call more than once.
func (c *Cache[H]) Close() error {
	c.ExpireAll()
	return nil
}

// Len returns the number of cached entries.
func (c *Cache[H]) Len() int { return len(c.entries) }

// Cap returns the current capacity.
func (c *Cache[H]) Cap() int { return c.maxEntries }

// Keys returns the cached keys from least to most recently used.
func (c *Cache[H]) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for _, k := range c.index.Ascend() {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns a copy of the activity counters.
func (c *Cache[H]) Stats() Stats { return c.stats }

func (c *Cache[H]) touch(key string, e *entry[H]) error {
	if _, err := c.index.Touch(key); err != nil {
		c.log.Error("cache: recency index corrupt", slog.String("key", key), logging.Err(err))
		return fmt.Errorf("cache: touch %q: %w", key, err)
	}
	e.touchedAt = now()
	return nil
}

// release closes an evicted handle. Close errors usually mean the resource was
// already closed elsewhere, so they are only logged.
func (c *Cache[H]) release(key string, h H) {
	c.stats.Evictions++
	if err := h.Close(); err != nil {
		c.stats.CloseErrors++
		c.log.Warn("cache: close evicted handle", slog.String("key", key), logging.Err(err))
	}
	if c.onEvict != nil {
		c.onEvict(key, h)
	}
}
