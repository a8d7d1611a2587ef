//go:build !unix

package terminal

import "errors"

// ErrUnsupported is returned by every operation on platforms without
// POSIX job control (spec §4.11: "interactive only (C14, Unix)").
var ErrUnsupported = errors.New("terminal: job control is unix-only")

type WaitStatus struct {
	Exited   bool
	Signaled bool
	Stopped  bool
	Code     int
	Signal   int
}

type State struct{}

func Init() (*State, error) { return nil, ErrUnsupported }

func (s *State) GiveTerminalTo(pgid int) error { return ErrUnsupported }

func (s *State) ReclaimTerminal() error { return ErrUnsupported }

func (s *State) WaitForeground(pid int) WaitStatus {
	return WaitStatus{Exited: true, Code: 1}
}
