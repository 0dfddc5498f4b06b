package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := s.Upload(ctx, strings.NewReader("%PDF-1.7"), "exports/2025/01/run-1.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "exports/2025/01/run-1.pdf", key)

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Download(ctx, key)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.7", string(content))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Download(ctx, key)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStorage_TraversalStaysInsideBase(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(base, "store"))
	require.NoError(t, err)

	key, err := s.Upload(ctx, strings.NewReader("x"), "../../escape.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "escape.pdf", key)

	_, err = os.Stat(filepath.Join(base, "escape.pdf"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "store", "escape.pdf"))
	assert.NoError(t, err)
}

func TestLocalStorage_EmptyPath(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), strings.NewReader("x"), "", "application/pdf")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
