//go:build unix

package pipeline

import (
	"os/exec"
	"syscall"
)

// setForegroundGroup puts cmd in its own new process group (pgid == its
// own pid once started) so terminal.State can hand the controlling
// terminal to it independently of the shell's own group.
func setForegroundGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
