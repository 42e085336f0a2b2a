package cache

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"table-cache-api/internal/logging"
)

// fakeHandle counts Close and Sync calls.
type fakeHandle struct {
	name     string
	closes   int
	syncs    int
	closeErr error
	syncErr  error
}

func (h *fakeHandle) Close() error { h.closes++; return h.closeErr }
func (h *fakeHandle) Sync() error  { h.syncs++; return h.syncErr }

func newHandle(name string) *fakeHandle { return &fakeHandle{name: name} }

func newTestCache(t *testing.T, maxEntries int) *Cache[*fakeHandle] {
	t.Helper()
	c, err := New(Config[*fakeHandle]{MaxEntries: maxEntries, Logger: logging.Discard()})
	require.NoError(t, err)
	return c
}

// verify checks the structural invariants between the entry map and the index.
func verify(t *testing.T, c *Cache[*fakeHandle]) {
	t.Helper()
	require.Equal(t, len(c.entries), c.index.Len())
	require.NoError(t, c.index.Verify())
	for k := range c.entries {
		_, ok := c.index.Lookup(k)
		require.True(t, ok, "entry %q missing from index", k)
	}
}

func TestNew_RejectsNonPositiveCapacity(t *testing.T) {
	_, err := New(Config[*fakeHandle]{MaxEntries: 0})
	require.Error(t, err)
	_, err = New(Config[*fakeHandle]{MaxEntries: -3})
	require.Error(t, err)
}

func TestSet_EvictsLeastRecentlyInserted(t *testing.T) {
	c := newTestCache(t, 2)
	h1, h2, h3 := newHandle("a"), newHandle("b"), newHandle("c")

	require.NoError(t, c.Set("a", h1))
	require.NoError(t, c.Set("b", h2))
	require.NoError(t, c.Set("c", h3))

	require.Equal(t, 1, h1.closes)
	require.Equal(t, 0, h2.closes)
	require.Equal(t, 0, h3.closes)
	require.Equal(t, 2, c.Len())
	require.False(t, c.Contains("a"))
	verify(t, c)
}

func TestGet_RefreshesRecency(t *testing.T) {
	c := newTestCache(t, 2)
	h1, h2, h3 := newHandle("a"), newHandle("b"), newHandle("c")

	require.NoError(t, c.Set("a", h1))
	require.NoError(t, c.Set("b", h2))
	got, err := c.Get("a")
	require.NoError(t, err)
	require.Same(t, h1, got)
	require.NoError(t, c.Set("c", h3))

	require.Equal(t, 1, h2.closes)
	require.Equal(t, 0, h1.closes)
	require.True(t, c.Contains("a"))
	require.False(t, c.Contains("b"))
	require.Equal(t, []string{"a", "c"}, c.Keys())
	verify(t, c)
}

func TestGet_Missing(t *testing.T) {
	c := newTestCache(t, 2)
	_, err := c.Get("missing")
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.Equal(t, uint64(1), c.Stats().Misses)
}

func TestSet_DuplicateKeyLeavesBothHandlesAlone(t *testing.T) {
	c := newTestCache(t, 2)
	h1, h2 := newHandle("a1"), newHandle("a2")

	require.NoError(t, c.Set("a", h1))
	err := c.Set("a", h2)
	require.ErrorIs(t, err, ErrDuplicateKey)

	got, ok := c.Peek("a")
	require.True(t, ok)
	require.Same(t, h1, got)
	require.Equal(t, 0, h1.closes)
	require.Equal(t, 0, h2.closes)
	require.Equal(t, 0, h2.syncs)
	require.Equal(t, 1, c.Len())
	verify(t, c)
}

func TestRemove_ReturnsHandleWithoutClosing(t *testing.T) {
	c := newTestCache(t, 2)
	h1 := newHandle("a")
	require.NoError(t, c.Set("a", h1))

	got, err := c.Remove("a")
	require.NoError(t, err)
	require.Same(t, h1, got)
	require.Equal(t, 0, h1.closes)
	require.False(t, c.Contains("a"))
	verify(t, c)

	_, err = c.Remove("a")
	require.ErrorIs(t, err, ErrKeyNotFound)

	// removed handles are no longer the cache's to close
	c.ExpireAll()
	require.Equal(t, 0, h1.closes)
}

func TestPeek_DoesNotTouch(t *testing.T) {
	c := newTestCache(t, 2)
	h1, h2 := newHandle("a"), newHandle("b")
	require.NoError(t, c.Set("a", h1))
	require.NoError(t, c.Set("b", h2))

	_, ok := c.Peek("a")
	require.True(t, ok)
	require.NoError(t, c.Set("c", newHandle("c")))
	require.Equal(t, 1, h1.closes)

	_, ok = c.Peek("a")
	require.False(t, ok)
}

func TestClose_IdempotentTeardown(t *testing.T) {
	c := newTestCache(t, 3)
	handles := []*fakeHandle{newHandle("a"), newHandle("b"), newHandle("c")}
	for _, h := range handles {
		require.NoError(t, c.Set(h.name, h))
	}

	require.NoError(t, c.Close())
	require.Equal(t, 0, c.ExpireAll())
	require.NoError(t, c.Close())

	for _, h := range handles {
		require.Equal(t, 1, h.closes, h.name)
	}
	require.Equal(t, 0, c.Len())
	verify(t, c)

	// still usable after teardown
	require.NoError(t, c.Set("a", newHandle("a")))
	require.Equal(t, 1, c.Len())
}

func TestEvict_CloseErrorsDoNotAbortBatch(t *testing.T) {
	c := newTestCache(t, 4)
	var handles []*fakeHandle
	for i := 0; i < 4; i++ {
		h := newHandle(fmt.Sprintf("k%d", i))
		h.closeErr = errors.New("already closed")
		handles = append(handles, h)
		require.NoError(t, c.Set(h.name, h))
	}

	require.Equal(t, 4, c.ExpireAll())
	for _, h := range handles {
		require.Equal(t, 1, h.closes)
	}
	st := c.Stats()
	require.Equal(t, uint64(4), st.Evictions)
	require.Equal(t, uint64(4), st.CloseErrors)
}

func TestEvictDownTo_Target(t *testing.T) {
	c := newTestCache(t, 5)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), newHandle("")))
	}
	require.Equal(t, 3, c.EvictDownTo(2))
	require.Equal(t, []string{"k3", "k4"}, c.Keys())
	require.Equal(t, 0, c.EvictDownTo(2))
	require.Equal(t, 2, c.EvictDownTo(-1))
	verify(t, c)
}

func TestOnEvict(t *testing.T) {
	var evicted []string
	c, err := New(Config[*fakeHandle]{
		MaxEntries: 1,
		Logger:     logging.Discard(),
		OnEvict: func(key string, h *fakeHandle) {
			require.Equal(t, 1, h.closes, "handle must be closed before OnEvict")
			evicted = append(evicted, key)
		},
	})
	require.NoError(t, err)

	require.NoError(t, c.Set("a", newHandle("a")))
	require.NoError(t, c.Set("b", newHandle("b")))
	_, err = c.Remove("b")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, evicted)
}

func TestResize(t *testing.T) {
	c := newTestCache(t, 4)
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), newHandle("")))
	}
	n, err := c.Resize(1)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 1, c.Cap())
	require.Equal(t, []string{"k3"}, c.Keys())

	_, err = c.Resize(0)
	require.Error(t, err)
}

func TestRandomOps_InvariantsCapacityAndSingleClose(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	const capacity = 5
	c := newTestCache(t, capacity)
	var all []*fakeHandle
	removed := map[*fakeHandle]bool{}

	for i := 0; i < 3000; i++ {
		key := fmt.Sprintf("k%d", rng.IntN(12))
		switch rng.IntN(5) {
		case 0, 1:
			h := newHandle(key)
			err := c.Set(key, h)
			if err != nil {
				require.ErrorIs(t, err, ErrDuplicateKey)
			} else {
				all = append(all, h)
			}
			require.LessOrEqual(t, c.Len(), capacity)
		case 2:
			_, err := c.Get(key)
			if err != nil {
				require.ErrorIs(t, err, ErrKeyNotFound)
			}
		case 3:
			h, err := c.Remove(key)
			if err == nil {
				removed[h] = true
			}
		case 4:
			if rng.IntN(50) == 0 {
				c.ExpireAll()
			}
		}
		verify(t, c)
		for _, h := range all {
			require.LessOrEqual(t, h.closes, 1)
		}
	}

	c.ExpireAll()
	for _, h := range all {
		if removed[h] {
			require.Equal(t, 0, h.closes)
		} else {
			require.Equal(t, 1, h.closes)
		}
	}
}
