package vfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFs_WriteThenReadWithinRoot(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFs(dir, false)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "/sub/file.txt", []byte("content")))
	data, err := fs.Read(ctx, "/sub/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestLocalFs_RejectsEscapeAboveRoot(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFs(dir, false)
	require.NoError(t, err)

	_, err = fs.resolve("/../../../../etc/passwd")
	require.NoError(t, err) // Normalize already collapses ".." within the VFS path space

	// A symlink that points outside root must be rejected even though the
	// link itself lives inside root.
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(target, []byte("secret"), 0o644))
	linkPath := filepath.Join(dir, "escape")
	require.NoError(t, os.Symlink(target, linkPath))

	_, err = fs.Read(context.Background(), "/escape")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestLocalFs_ReadOnlyRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFs(dir, true)
	require.NoError(t, err)

	err = fs.Write(context.Background(), "/file.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestLocalFs_RealPath(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFs(dir, false)
	require.NoError(t, err)

	native, ok := fs.RealPath("/a/b.txt")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "a", "b.txt"), native)
}
