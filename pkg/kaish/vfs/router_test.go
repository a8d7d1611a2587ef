package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_LongestPrefixWins(t *testing.T) {
	r := NewRouter()
	root := NewMemoryFs()
	sub := NewMemoryFs()
	require.NoError(t, r.Mount("/", root))
	require.NoError(t, r.Mount("/tmp", sub))

	require.NoError(t, r.Write(context.Background(), "/tmp/file.txt", []byte("x")))

	_, err := root.Read(context.Background(), "/tmp/file.txt")
	assert.ErrorIs(t, err, ErrNotFound, "write under /tmp must land on the /tmp mount, not /")

	data, err := sub.Read(context.Background(), "/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestRouter_DuplicateMountRejected(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Mount("/v/bin", NewMemoryFs()))
	err := r.Mount("/v/bin", NewMemoryFs())
	assert.Error(t, err)
}

func TestRouter_ReadOnlyMountRejectsWrite(t *testing.T) {
	r := NewRouter()
	ro := NewBuiltinFs(staticLister{})
	require.NoError(t, r.Mount("/v/bin", ro))

	err := r.Write(context.Background(), "/v/bin/echo", []byte("x"))
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestRouter_CrossMountRenameUnsupported(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Mount("/", NewMemoryFs()))
	require.NoError(t, r.Mount("/tmp", NewMemoryFs()))

	err := r.Rename(context.Background(), "/a.txt", "/tmp/a.txt")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRouter_NoMountCoversPath(t *testing.T) {
	r := NewRouter()
	_, err := r.Read(context.Background(), "/anything")
	assert.Error(t, err)
}

type staticLister struct{}

func (staticLister) Names() []string { return []string{"echo", "cat"} }
