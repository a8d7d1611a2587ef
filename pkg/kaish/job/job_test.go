package job

import (
	"testing"

	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RegisterThenWait(t *testing.T) {
	m := NewManager()
	j := m.RegisterWithStreams("echo hi &", 0)

	status, ok := m.GetStatusString(j.ID)
	require.True(t, ok)
	assert.Equal(t, "running", status)

	j.Stdout.Write([]byte("hi\n"))
	m.Complete(j.ID, scope.Success("hi\n"))

	result, err := m.Wait(j.ID)
	require.NoError(t, err)
	assert.True(t, result.OK())

	status, ok = m.GetStatusString(j.ID)
	require.True(t, ok)
	assert.Equal(t, "done:0", status)
}

func TestManager_CompleteWithFailureStatus(t *testing.T) {
	m := NewManager()
	j := m.RegisterWithStreams("false &", 0)
	m.Complete(j.ID, scope.Failure(1, "boom"))

	status, _ := m.GetStatusString(j.ID)
	assert.Equal(t, "failed:1", status)
}

func TestManager_ListIDsPreservesRegistrationOrder(t *testing.T) {
	m := NewManager()
	a := m.RegisterWithStreams("a &", 0)
	b := m.RegisterWithStreams("b &", 0)
	assert.Equal(t, []int64{a.ID, b.ID}, m.ListIDs())
}

func TestManager_ExistsAndUnknownID(t *testing.T) {
	m := NewManager()
	assert.False(t, m.Exists(999))
	_, err := m.Wait(999)
	assert.Error(t, err)
}

func TestManager_SnapshotSatisfiesJobFsView(t *testing.T) {
	m := NewManager()
	j := m.RegisterWithStreams("echo x &", 0)
	j.Stdout.Write([]byte("x\n"))
	m.Complete(j.ID, scope.Success("x\n"))

	snap, ok := m.Snapshot(j.ID)
	require.True(t, ok)
	assert.Equal(t, "echo x &", snap.Command)
	assert.Equal(t, "done:0", snap.Status)
	assert.Equal(t, "x\n", string(snap.Stdout))
}
