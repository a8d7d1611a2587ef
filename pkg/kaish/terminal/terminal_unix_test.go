//go:build unix

package terminal

import (
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise WaitForeground's wait4/WUNTRACED decoding directly
// against a real child process group. They deliberately skip Init(),
// since that requires a controlling terminal this test process may not
// have (spec §4.11 job control is only meaningful in an interactive
// session with a tty).

func TestState_WaitForegroundDecodesCleanExit(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 0")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())

	s := &State{shellPgid: 0}
	ws := s.WaitForeground(cmd.Process.Pid)

	assert.True(t, ws.Exited)
	assert.Equal(t, 0, ws.Code)
}

func TestState_WaitForegroundDecodesNonzeroExit(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 7")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())

	s := &State{shellPgid: 0}
	ws := s.WaitForeground(cmd.Process.Pid)

	assert.True(t, ws.Exited)
	assert.Equal(t, 7, ws.Code)
}

func TestState_WaitForegroundDecodesSignal(t *testing.T) {
	cmd := exec.Command("sh", "-c", "kill -TERM $$; sleep 5")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())

	s := &State{shellPgid: 0}
	ws := s.WaitForeground(cmd.Process.Pid)

	assert.True(t, ws.Signaled)
	assert.Equal(t, int(syscall.SIGTERM), ws.Signal)
}
