package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobs struct {
	byID map[int64]JobSnapshot
}

func (f fakeJobs) JobIDs() []int64 {
	ids := make([]int64, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	return ids
}

func (f fakeJobs) Snapshot(id int64) (JobSnapshot, bool) {
	s, ok := f.byID[id]
	return s, ok
}

func TestJobFs_ListRootEnumeratesIDs(t *testing.T) {
	jfs := NewJobFs(fakeJobs{byID: map[int64]JobSnapshot{
		1: {Command: "echo hi", Status: "done:0"},
	}})
	entries, err := jfs.List(context.Background(), "/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].Name)
	assert.Equal(t, KindDirectory, entries[0].Kind)
}

func TestJobFs_ReadPseudoFiles(t *testing.T) {
	jfs := NewJobFs(fakeJobs{byID: map[int64]JobSnapshot{
		7: {Command: "sleep 5 &", Status: "running", Stdout: []byte("out"), Stderr: []byte("err")},
	}})
	ctx := context.Background()

	cmd, err := jfs.Read(ctx, "/7/command")
	require.NoError(t, err)
	assert.Equal(t, "sleep 5 &", string(cmd))

	status, err := jfs.Read(ctx, "/7/status")
	require.NoError(t, err)
	assert.Equal(t, "running", string(status))

	out, err := jfs.Read(ctx, "/7/stdout")
	require.NoError(t, err)
	assert.Equal(t, "out", string(out))
}

func TestJobFs_ReadUnknownJobFails(t *testing.T) {
	jfs := NewJobFs(fakeJobs{byID: map[int64]JobSnapshot{}})
	_, err := jfs.Read(context.Background(), "/99/status")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobFs_IsReadOnly(t *testing.T) {
	jfs := NewJobFs(fakeJobs{byID: map[int64]JobSnapshot{}})
	assert.True(t, jfs.ReadOnly())
	assert.ErrorIs(t, jfs.Write(context.Background(), "/1/status", nil), ErrReadOnly)
}
