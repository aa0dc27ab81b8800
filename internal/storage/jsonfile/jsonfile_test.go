package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/storage"
)

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "bookshelf.json")

	first := New(path)
	require.NoError(t, first.Initialize(ctx))
	require.NoError(t, first.Set(ctx, storage.KeyBookmarks, []byte(`["b1"]`)))
	require.NoError(t, first.Set(ctx, storage.KeySearchHistory, []byte(`["dune"]`)))
	require.NoError(t, first.Remove(ctx, storage.KeySearchHistory))
	require.NoError(t, first.Close())

	second := New(path)
	require.NoError(t, second.Initialize(ctx))

	value, err := second.Get(ctx, storage.KeyBookmarks)
	require.NoError(t, err)
	assert.Equal(t, `["b1"]`, string(value))

	_, err = second.Get(ctx, storage.KeySearchHistory)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	keys, err := second.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{storage.KeyBookmarks}, keys)
}

func TestStore_InitializeRejectsCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookshelf.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0644))

	err := New(path).Initialize(ctx)
	assert.Error(t, err)
}

func TestStore_EmptyFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookshelf.json")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s := New(path)
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
}
