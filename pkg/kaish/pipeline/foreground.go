package pipeline

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// runExternalForeground spawns name connected directly to the host's own
// stdio and hands it the controlling terminal, for the one case that
// needs real interactive job control (spec §4.11): a single-command,
// non-backgrounded pipeline running under a Runner with Terminal set.
// Ctrl-Z during the wait surfaces as a WaitStatus.Stopped, which this
// registers as a new stopped background job the same way `&` registers
// one, so the process stays tracked in the job table. No builtin resumes
// a stopped job: there is no `fg` or `bg`.
func (r *Runner) runExternalForeground(ec *tools.ExecContext, name string, args tools.ToolArgs) (scope.ExecResult, error) {
	argv := make([]string, 0, len(args.Positional))
	for _, v := range args.Positional {
		argv = append(argv, eval.FormatValue(v))
	}

	realCwd, ok := r.VFS.RealPath(ec.Cwd)
	if !ok {
		return scope.Failure(127, "unknown command: "+name+" (cwd not backed by host filesystem)"), nil
	}

	cmd := exec.CommandContext(ec.Context(), name, argv...)
	cmd.Dir = realCwd
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	setForegroundGroup(cmd)

	if err := cmd.Start(); err != nil {
		return scope.Failure(127, err.Error()), nil
	}
	pid := cmd.Process.Pid

	if err := r.Terminal.GiveTerminalTo(pid); err != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return scope.Failure(1, "kernel: give terminal: "+err.Error()), nil
	}

	ws := r.Terminal.WaitForeground(pid)
	_ = r.Terminal.ReclaimTerminal()

	switch {
	case ws.Stopped:
		j := r.Jobs.RegisterWithStreams(name, 0)
		r.Jobs.SetPgid(j.ID, pid)
		r.Jobs.MarkStopped(j.ID, ws.Signal)
		return scope.Success(fmt.Sprintf("[%d] stopped", j.ID)), nil
	case ws.Signaled:
		return scope.ExecResult{Code: 128 + ws.Signal}, nil
	default:
		return scope.ExecResult{Code: ws.Code}, nil
	}
}
