package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Put(ctx, "population", []byte(`{"v":1}`)))
			value, ok, err := store.Get(ctx, "population")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte(`{"v":1}`), value)

			// Put replaces the whole document.
			require.NoError(t, store.Put(ctx, "population", []byte(`{"v":2}`)))
			value, ok, err = store.Get(ctx, "population")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte(`{"v":2}`), value)
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "k", []byte("v")))
			require.NoError(t, store.Delete(ctx, "k"))
			_, ok, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting a missing key is not an error.
			require.NoError(t, store.Delete(ctx, "k"))
		})
	}
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "queue:fpo", []byte("a")))
			require.NoError(t, store.Put(ctx, "queue:describe", []byte("b")))
			require.NoError(t, store.Put(ctx, "population", []byte("c")))

			keys, err := store.List(ctx, "queue:")
			require.NoError(t, err)
			assert.Equal(t, []string{"queue:describe", "queue:fpo"}, keys)
		})
	}
}
