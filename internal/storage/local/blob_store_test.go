package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/recipe-harvester/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("existing directory", func(t *testing.T) {
		t.Parallel()
		store, err := local.New(local.Config{Dir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "archive", "nested")
		_, err := local.New(local.Config{Dir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("empty dir", func(t *testing.T) {
		t.Parallel()
		_, err := local.New(local.Config{Dir: "  "})
		require.Error(t, err)
	})

	t.Run("path is a file", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{Dir: file})
		require.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	uri, err := store.PutObject(ctx, "backups/recipes.csv", "text/csv", strings.NewReader("hello"))
	require.NoError(t, err)
	want := filepath.Join(dir, "backups", "recipes.csv")
	assert.Equal(t, "file://"+want, uri)
	// #nosec G304 -- test reads from its own temp directory.
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = store.PutObject(ctx, "backups/recipes.csv", "text/csv", strings.NewReader("again"))
	require.NoError(t, err)
	// #nosec G304 -- test reads from its own temp directory.
	data, err = os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "again", string(data))

	_, err = store.PutObject(ctx, "", "text/csv", strings.NewReader("x"))
	require.Error(t, err)
	_, err = store.PutObject(ctx, "../escape.csv", "text/csv", strings.NewReader("x"))
	require.Error(t, err)
}
