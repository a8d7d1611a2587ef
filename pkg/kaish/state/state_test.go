package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernel.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SetThenGetVariableRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetVariable(ctx, "X", ast.StringValue("hello")))

	v, ok, err := s.GetVariable(ctx, "X")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", v.Str)
}

func TestStore_SessionIDStableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.db")
	ctx := context.Background()

	s1, err := Open(ctx, path)
	require.NoError(t, err)
	id1 := s1.SessionID()
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	assert.Equal(t, id1, s2.SessionID())
}

func TestStore_CwdDefaultsToRoot(t *testing.T) {
	s := openTestStore(t)
	cwd, err := s.Cwd(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/", cwd)
}

func TestStore_SetCwdThenRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetCwd(ctx, "/mnt/local/project"))
	cwd, err := s.Cwd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/local/project", cwd)
}

func TestStore_HistoryAndCheckpoint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.AppendHistory(ctx, "echo a", "hash1", 0, true, "a\n", "", nil, 1)
	require.NoError(t, err)
	_, err = s.AppendHistory(ctx, "echo b", "hash2", 0, true, "b\n", "", nil, 1)
	require.NoError(t, err)

	cpID, err := s.CreateCheckpoint(ctx, "first", "covers echo a", id1, "{}", "{}")
	require.NoError(t, err)
	assert.Greater(t, cpID, int64(0))

	remaining, err := s.HistorySinceCheckpoint(ctx, id1)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "echo b", remaining[0].Code)
}

func TestStore_ResetClearsVariablesAndCwd(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetVariable(ctx, "X", ast.IntValue(1)))
	require.NoError(t, s.SetCwd(ctx, "/tmp"))

	require.NoError(t, s.Reset(ctx))

	_, ok, err := s.GetVariable(ctx, "X")
	require.NoError(t, err)
	assert.False(t, ok)

	cwd, err := s.Cwd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/", cwd)
}

func TestStore_ExportJSONIncludesVariablesAndCwd(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetVariable(ctx, "NAME", ast.StringValue("Amy")))
	require.NoError(t, s.SetCwd(ctx, "/work"))

	out, err := s.ExportJSON(ctx)
	require.NoError(t, err)
	assert.Contains(t, out, "Amy")
	assert.Contains(t, out, "/work")
}
