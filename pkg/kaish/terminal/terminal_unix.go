//go:build unix

// Package terminal implements interactive terminal and job control
// (spec §4.11, component C14): process group ownership, foreground
// terminal handoff, and WUNTRACED-aware waiting for Ctrl-Z. Unix only;
// non-Unix builds get the stub in terminal_other.go.
package terminal

import (
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// WaitStatus is the decoded outcome of waiting on a foreground process
// (spec §4.11 step 2).
type WaitStatus struct {
	Exited   bool
	Signaled bool
	Stopped  bool
	Code     int // valid when Exited
	Signal   int // valid when Signaled or Stopped
}

// State holds the shell's own process group and manages terminal
// ownership handoff to foreground job process groups.
type State struct {
	shellPgid int
}

// Init places the calling process in its own process group, ignores
// SIGTSTP/SIGTTOU/SIGTTIN so the shell itself cannot be stopped, and
// takes foreground ownership of stdin's controlling terminal (spec
// §4.11: "On start...").
func Init() (*State, error) {
	pid := unix.Getpid()

	if err := unix.Setpgid(pid, pid); err != nil && err != unix.EPERM {
		return nil, fmt.Errorf("terminal: setpgid: %w", err)
	}

	// SIGTTOU must be ignored before tcsetpgrp, or the kernel stops us for
	// adjusting terminal ownership from a background-ish state.
	signal.Ignore(syscall.SIGTTOU)
	if err := unix.IoctlSetPointerInt(0, unix.TIOCSPGRP, pid); err != nil {
		return nil, fmt.Errorf("terminal: tcsetpgrp(shell): %w", err)
	}
	signal.Ignore(syscall.SIGTSTP, syscall.SIGTTIN)

	return &State{shellPgid: pid}, nil
}

// GiveTerminalTo hands foreground ownership of the controlling terminal
// to pgid, called before waiting on a foreground external pipeline.
func (s *State) GiveTerminalTo(pgid int) error {
	if err := unix.IoctlSetPointerInt(0, unix.TIOCSPGRP, pgid); err != nil {
		return fmt.Errorf("terminal: tcsetpgrp(%d): %w", pgid, err)
	}
	return nil
}

// ReclaimTerminal restores foreground ownership to the shell's own
// process group, called after a foreground pipeline finishes or stops.
func (s *State) ReclaimTerminal() error {
	return s.GiveTerminalTo(s.shellPgid)
}

// WaitForeground blocks until pid exits, is signaled, or is stopped
// (spec §4.11 step 2: "waitpid(pid, WUNTRACED) loop").
func (s *State) WaitForeground(pid int) WaitStatus {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		if err == unix.ECHILD {
			return WaitStatus{Exited: true, Code: 0}
		}
		if err != nil {
			return WaitStatus{Exited: true, Code: 1}
		}
		switch {
		case ws.Exited():
			return WaitStatus{Exited: true, Code: ws.ExitStatus()}
		case ws.Signaled():
			return WaitStatus{Signaled: true, Signal: int(ws.Signal())}
		case ws.Stopped():
			return WaitStatus{Stopped: true, Signal: int(ws.StopSignal())}
		default:
			continue
		}
	}
}
