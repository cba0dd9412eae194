package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveContentIsContentAddressed(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	first, err := store.SaveContent("Essay.PDF", strings.NewReader("same bytes"))
	require.NoError(t, err)
	second, err := store.SaveContent("copy.pdf", strings.NewReader("same bytes"))
	require.NoError(t, err)
	other, err := store.SaveContent("essay.pdf", strings.NewReader("different"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.True(t, strings.HasSuffix(first, ".pdf"))
	assert.Len(t, first, 64+len(".pdf"))

	f, err := store.Open(first)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "same bytes", string(body))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, store.Delete(".hidden"), ErrInvalidName)
}
