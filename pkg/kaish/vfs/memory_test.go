package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFs_WriteThenRead(t *testing.T) {
	fs := NewMemoryFs()
	ctx := context.Background()

	err := fs.Write(ctx, "/a/b/c.txt", []byte("hello"))
	require.NoError(t, err)

	data, err := fs.Read(ctx, "/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestMemoryFs_ReadMissing(t *testing.T) {
	fs := NewMemoryFs()
	_, err := fs.Read(context.Background(), "/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFs_ListOrdersByName(t *testing.T) {
	fs := NewMemoryFs()
	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, "/b.txt", []byte("2")))
	require.NoError(t, fs.Write(ctx, "/a.txt", []byte("1")))

	entries, err := fs.List(ctx, "/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, "b.txt", entries[1].Name)
}

func TestMemoryFs_RemoveNonEmptyDirRequiresRecursive(t *testing.T) {
	fs := NewMemoryFs()
	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, "/dir/file.txt", []byte("x")))

	err := fs.Remove(ctx, "/dir", false)
	assert.ErrorIs(t, err, ErrNotEmpty)

	err = fs.Remove(ctx, "/dir", true)
	assert.NoError(t, err)

	_, err = fs.Stat(ctx, "/dir/file.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFs_RenameMovesDirectorySubtree(t *testing.T) {
	fs := NewMemoryFs()
	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, "/src/file.txt", []byte("x")))

	require.NoError(t, fs.Rename(ctx, "/src", "/dst"))

	data, err := fs.Read(ctx, "/dst/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	_, err = fs.Stat(ctx, "/src")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFs_WriteOverDirectoryFails(t *testing.T) {
	fs := NewMemoryFs()
	ctx := context.Background()
	require.NoError(t, fs.Mkdir(ctx, "/dir"))

	err := fs.Write(ctx, "/dir", []byte("x"))
	assert.ErrorIs(t, err, ErrIsADirectory)
}
