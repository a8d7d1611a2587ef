package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinFs_ListsRegisteredNames(t *testing.T) {
	bfs := NewBuiltinFs(staticLister{})
	entries, err := bfs.List(context.Background(), "/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "cat", entries[0].Name)
	assert.Equal(t, "echo", entries[1].Name)
}

func TestBuiltinFs_IsReadOnly(t *testing.T) {
	bfs := NewBuiltinFs(staticLister{})
	assert.True(t, bfs.ReadOnly())
	assert.ErrorIs(t, bfs.Write(context.Background(), "/echo", nil), ErrReadOnly)
	assert.ErrorIs(t, bfs.Mkdir(context.Background(), "/x"), ErrReadOnly)
}

func TestBuiltinFs_StatUnknownName(t *testing.T) {
	bfs := NewBuiltinFs(staticLister{})
	_, err := bfs.Stat(context.Background(), "/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
