package kvtable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, name string) *Table {
	t.Helper()
	tbl, err := Open(filepath.Join(t.TempDir(), name+".db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl
}

func TestTable_PutGetDelete(t *testing.T) {
	tbl := openTemp(t, "users")
	require.Equal(t, "users", tbl.Name())

	require.NoError(t, tbl.Put("alice", []byte("1")))
	require.NoError(t, tbl.Put("bob", []byte("2")))
	require.NoError(t, tbl.Put("alice", []byte("3")))

	v, err := tbl.Get("alice")
	require.NoError(t, err)
	require.Equal(t, []byte("3"), v)

	n, err := tbl.Count()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, tbl.Delete("alice"))
	_, err = tbl.Get("alice")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, tbl.Delete("alice"), ErrNotFound)
}

func TestTable_KeysPaging(t *testing.T) {
	tbl := openTemp(t, "paged")
	for _, k := range []string{"d", "a", "c", "b", "e"} {
		require.NoError(t, tbl.Put(k, []byte(k)))
	}

	all, err := tbl.Keys(0, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, all)

	page, err := tbl.Keys(1, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, page)

	tail, err := tbl.Keys(3, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"d", "e"}, tail)
}

func TestTable_SyncAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	tbl, err := Open(path, Options{})
	require.NoError(t, err)

	require.NoError(t, tbl.Put("k", []byte("v")))
	require.NoError(t, tbl.Sync())
	require.NoError(t, tbl.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := Open(path, Options{})
	require.NoError(t, err)
	defer again.Close()
	v, err := again.Get("k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestTable_ClosedHandle(t *testing.T) {
	tbl, err := Open(filepath.Join(t.TempDir(), "closed.db"), Options{})
	require.NoError(t, err)

	require.NoError(t, tbl.Close())
	require.True(t, tbl.Closed())
	require.ErrorIs(t, tbl.Close(), ErrClosed)
	require.ErrorIs(t, tbl.Sync(), ErrClosed)
	require.ErrorIs(t, tbl.Put("k", nil), ErrClosed)
	_, err = tbl.Get("k")
	require.ErrorIs(t, err, ErrClosed)
	_, err = tbl.Keys(0, 10)
	require.ErrorIs(t, err, ErrClosed)
	_, err = tbl.Count()
	require.ErrorIs(t, err, ErrClosed)
}

func TestTable_CloseReleasesPool(t *testing.T) {
	tbl, err := Open(filepath.Join(t.TempDir(), "pool.db"), Options{})
	require.NoError(t, err)
	require.NoError(t, tbl.sqlDB.Ping())

	require.NoError(t, tbl.Close())
	require.True(t, tbl.Closed())
	require.Error(t, tbl.sqlDB.Ping())
}
