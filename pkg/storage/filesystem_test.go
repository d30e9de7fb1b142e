package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := store.SaveStream("a.png", bytes.NewReader([]byte("img")))
	require.NoError(t, err)
	assert.Equal(t, "a.png", key)

	f, err := store.Open(key)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	removed, err := store.Delete(key)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(key)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.Open(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../escape.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = store.Open("nested/file.png")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCleanKey(t *testing.T) {
	assert.Equal(t, "file.png", CleanKey("../../etc/file.png"))
	assert.Equal(t, "file.png", CleanKey(`..\..\file.png`))
	assert.Equal(t, "", CleanKey(".."))
	assert.Equal(t, "", CleanKey(""))
}

func TestCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("new.csv", []byte("b"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)
}
