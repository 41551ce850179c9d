package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStorage runs the behaviour every backend shares.
func testStorage(t *testing.T, s Storage) {
	t.Helper()
	c := context.Background()

	_, err := s.Get(c, KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(c, KeyCart, []byte(`[{"productId":"P1","quantity":2}]`)))
	require.NoError(t, s.Set(c, KeyToken, []byte(`"abc"`)))

	lines := []map[string]any{}
	found, err := GetJSON(c, s, KeyCart, &lines)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, lines, 1)
	assert.Equal(t, "P1", lines[0]["productId"])

	require.NoError(t, SetJSON(c, s, KeyCart, []string{}))
	found, err = GetJSON(c, s, KeyCart, &lines)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, lines)

	require.NoError(t, s.Delete(c, KeyCart))
	require.NoError(t, s.Delete(c, KeyCart))
	found, err = GetJSON(c, s, KeyCart, &lines)
	require.NoError(t, err)
	assert.False(t, found)

	token := ""
	found, err = GetJSON(c, s, KeyToken, &token)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", token)
}

func TestMemoryStorage(t *testing.T) {
	testStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	testStorage(t, s)

	reopened, err := NewFileStorage(dir)
	require.NoError(t, err)
	token := ""
	found, err := GetJSON(context.Background(), reopened, KeyToken, &token)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", token)
}

func TestFileStorageRejectsNonJSON(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Set(context.Background(), KeyCart, []byte("not json")))
}

func TestFileStorageCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("{broken"), 0o600))
	s, err := NewFileStorage(dir)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), KeyCart)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNamespace(t *testing.T) {
	c := context.Background()
	shared := NewMemoryStorage()
	a := Namespace(shared, "a")
	b := Namespace(shared, "b")
	testStorage(t, a)

	_, err := b.Get(c, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)

	raw, err := shared.Get(c, "session:a:"+KeyToken)
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(raw))
}

func TestGetJSONReportsCorruptValueAsFound(t *testing.T) {
	c := context.Background()
	s := NewMemoryStorage()
	require.NoError(t, s.Set(c, KeyCart, []byte("{broken")))

	lines := []map[string]any{}
	found, err := GetJSON(c, s, KeyCart, &lines)
	assert.True(t, found)
	assert.Error(t, err)
}
