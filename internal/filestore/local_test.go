package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := New("local", map[string]interface{}{"dir": dir})
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("archived original")
	require.NoError(t, store.Save(ctx, "abc123.txt", data))

	got, err := store.Open(ctx, "abc123.txt")
	require.NoError(t, err)
	require.Equal(t, data, got)

	onDisk, err := os.ReadFile(filepath.Join(dir, "abc123.txt"))
	require.NoError(t, err)
	require.Equal(t, data, onDisk)
}

func TestLocalStoreCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "archive")
	store, err := New("local", map[string]interface{}{"dir": dir})
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "doc.md", []byte("x")))
	_, err = os.Stat(filepath.Join(dir, "doc.md"))
	require.NoError(t, err)
}

func TestLocalStoreRejectsBadKeys(t *testing.T) {
	store, err := New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"", "a/b", `a\b`, "../escape"} {
		require.Error(t, store.Save(ctx, key, []byte("x")))
		_, err := store.Open(ctx, key)
		require.Error(t, err)
	}
}

func TestLocalStoreRequiresDir(t *testing.T) {
	_, err := New("local", map[string]interface{}{})
	require.Error(t, err)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New("tape", nil)
	require.Error(t, err)
}
