package cache

import (
	"log/slog"
	"time"

	"table-cache-api/internal/logging"
)

// now is a small indirection to allow test stubbing.
var now = time.Now

// SweepReport describes one maintenance sweep.
type SweepReport struct {
	Started  time.Time     `json:"started"`
	Synced   int           `json:"synced"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// scheduler gates maintenance on wall-clock time. There is no goroutine:
// Get and Set call maybeRunMaintenance and the sweep runs inline.
type scheduler struct {
	interval   time.Duration
	staleAfter time.Duration
	lastRun    time.Time
	sweeping   bool
}

func newScheduler(interval, staleAfter time.Duration) scheduler {
	return scheduler{
		interval:   interval,
		staleAfter: staleAfter,
		lastRun:    now(),
	}
}

func (s *scheduler) due(t time.Time) bool {
	return !s.sweeping && t.Sub(s.lastRun) >= s.interval
}

// maybeRunMaintenance sweeps if a full interval has passed since the last sweep started.
func (c *Cache[H]) maybeRunMaintenance() {
	t := now()
	if !c.sched.due(t) {
		return
	}
	c.sched.sweeping = true
	c.sched.lastRun = t
	report := c.sweep(t)
	c.sched.sweeping = false

	c.log.Debug("cache: maintenance sweep",
		slog.Int("synced", report.Synced),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration))
	if c.onSweep != nil {
		c.onSweep(report)
	}
}

// sweep syncs entries idle for longer than staleAfter, oldest first. Entries
// are visited in touch order, so the first fresh one ends the sweep.
func (c *Cache[H]) sweep(t time.Time) SweepReport {
	report := SweepReport{Started: t}
	for _, key := range c.index.Ascend() {
		e, ok := c.entries[key]
		if !ok {
			continue
		}
		if t.Sub(e.touchedAt) <= c.sched.staleAfter {
			break
		}
		if err := e.handle.Sync(); err != nil {
			// most likely closed behind our back
			report.Failed++
			c.stats.SyncErrors++
			c.log.Warn("cache: sync idle handle", slog.String("key", key), logging.Err(err))
			continue
		}
		report.Synced++
		c.stats.Syncs++
	}
	c.stats.Sweeps++
	report.Duration = now().Sub(t)
	return report
}
