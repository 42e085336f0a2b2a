package cache

import (
	"errors"
	"log/slog"
	"time"
)

const (
	// DefaultMaxEntries bounds the number of open handles when no size is configured.
	DefaultMaxEntries = 50

	// DefaultMaintenanceInterval is the minimum spacing between maintenance sweeps.
	DefaultMaintenanceInterval = 3 * time.Hour

	// DefaultStalenessThreshold is how long an entry must sit idle before a sweep syncs it.
	DefaultStalenessThreshold = time.Hour
)

var (
	// ErrKeyNotFound is returned by Get and Remove for an absent key.
	ErrKeyNotFound = errors.New("cache: key not found")

	// ErrDuplicateKey is returned by Set for a key that is already cached.
	// Remove the old handle first to replace it.
	ErrDuplicateKey = errors.New("cache: key already present")
)

// Handle is an opened resource the cache can own.
// Both methods must tolerate being called on a resource that is already closed;
// the cache logs and ignores their errors.
type Handle interface {
	// Close releases the resource.
	Close() error
	// Sync flushes pending state to durable storage.
	Sync() error
}

// Config controls capacity and maintenance.
//
// Zero durations select the defaults. MaxEntries must be positive.
type Config[H Handle] struct {
	MaxEntries          int
	MaintenanceInterval time.Duration
	StalenessThreshold  time.Duration

	// Logger receives close/sync failures. Defaults to slog.Default().
	Logger *slog.Logger

	// OnEvict is called after an evicted handle has been closed.
	// It is not called for Remove, which hands the handle back instead.
	OnEvict func(key string, h H)

	// OnSweep is called after every maintenance sweep.
	OnSweep func(SweepReport)
}

// Stats counts cache activity since construction.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	CloseErrors uint64 `json:"closeErrors"`
	Sweeps      uint64 `json:"sweeps"`
	Syncs       uint64 `json:"syncs"`
	SyncErrors  uint64 `json:"syncErrors"`
}
