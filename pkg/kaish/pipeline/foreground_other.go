//go:build !unix

package pipeline

import "os/exec"

// setForegroundGroup is a no-op on platforms without POSIX process
// groups; runExternalForeground is never reached there since Runner.Terminal
// can never be non-nil (terminal.Init always fails on !unix).
func setForegroundGroup(cmd *exec.Cmd) {}
