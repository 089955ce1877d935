package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFile(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	t.Cleanup(func() { fileStore.Close() })

	sqliteStore, err := NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestStoreConformance(t *testing.T) {
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("GetMissing", func(t *testing.T) {
				_, err := s.Get(ctx, "missing")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("SetGet", func(t *testing.T) {
				require.NoError(t, s.Set(ctx, "key", []byte("value-1")))
				got, err := s.Get(ctx, "key")
				require.NoError(t, err)
				assert.Equal(t, []byte("value-1"), got)
			})

			t.Run("SetReplaces", func(t *testing.T) {
				require.NoError(t, s.Set(ctx, "key", []byte("value-2")))
				got, err := s.Get(ctx, "key")
				require.NoError(t, err)
				assert.Equal(t, []byte("value-2"), got)
			})

			t.Run("Delete", func(t *testing.T) {
				require.NoError(t, s.Delete(ctx, "key"))
				_, err := s.Get(ctx, "key")
				assert.ErrorIs(t, err, ErrNotFound)

				// deleting an absent key is fine
				require.NoError(t, s.Delete(ctx, "key"))
			})

			t.Run("EmptyValue", func(t *testing.T) {
				require.NoError(t, s.Set(ctx, "empty", []byte{}))
				got, err := s.Get(ctx, "empty")
				require.NoError(t, err)
				assert.Empty(t, got)
			})
		})
	}
}

func TestFile_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")

	first, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "queue", []byte(`{"actions":[]}`)))
	require.NoError(t, first.Close())

	second, err := NewFile(dir)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "queue")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"actions":[]}`), got)
}

func TestFile_UnsafeKeysAreEncoded(t *testing.T) {
	ctx := context.Background()
	f, err := NewFile(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	defer f.Close()

	key := "../escape attempt/with spaces"
	require.NoError(t, f.Set(ctx, key, []byte("safe")))

	got, err := f.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("safe"), got)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "queue", []byte("persisted")))
	require.NoError(t, first.Close())

	second, err := NewSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "queue")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}
