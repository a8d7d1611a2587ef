// Package pipeline implements the pipeline runner (spec §4.10, component
// C12): command resolution, argument binding, stdin/stdout/stderr
// wiring between pipeline stages, redirects, and background job
// registration. Runner also implements eval.Executor so the evaluator
// can perform command substitution without importing this package.
package pipeline

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/job"
	"github.com/kaishlang/kaish/pkg/kaish/outputlimit"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/terminal"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

// ToolLookup resolves a name to a Tool, satisfied by both tools.Registry
// (builtins) and whatever map the kernel keeps for user-defined tools.
type ToolLookup interface {
	Get(name string) (tools.Tool, bool)
}

// Policy controls resolution behavior the kernel configures (spec §4.10
// step 1: "reject unknown-if-external-disabled per policy").
type Policy struct {
	AllowExternal bool
}

// Runner builds the process graph for one pipeline at a time, wires
// stdin/stdout/stderr between stages, applies redirects, and collects
// the final ExecResult (spec §4.10).
type Runner struct {
	Builtins    *tools.Registry
	UserTools   ToolLookup
	VFS         *vfs.Router
	Jobs        *job.Manager
	OutputLimit *outputlimit.Limiter
	Policy      Policy

	// Terminal is set only by a host that actually owns an interactive
	// controlling terminal (spec §4.11). Left nil, every external
	// command runs through the buffered, non-interactive path below,
	// which is the right behavior for MCP-driven and scripted use.
	Terminal *terminal.State

	Eval *eval.Evaluator
}

// NewRunner wires a Runner and its own Evaluator together so command
// substitution (`$(...)`) recurses back through this same Runner.
func NewRunner(builtins *tools.Registry, userTools ToolLookup, v *vfs.Router, jobs *job.Manager, limiter *outputlimit.Limiter, policy Policy) *Runner {
	r := &Runner{
		Builtins:    builtins,
		UserTools:   userTools,
		VFS:         v,
		Jobs:        jobs,
		OutputLimit: limiter,
		Policy:      policy,
	}
	r.Eval = eval.New(r)
	return r
}

// Run is the top-level entry a kernel statement handler calls for a
// Pipeline statement (spec §4.10 steps 4-5): it runs the pipeline
// foreground, or registers it as a background job and returns a
// synthetic `[id]` success immediately.
func (r *Runner) Run(ctx context.Context, p *ast.Pipeline, s *scope.Scope, cwd string) scope.ExecResult {
	if !p.Background {
		interactive := r.Terminal != nil && len(p.Commands) == 1
		res, err := r.execute(ctx, p, s, cwd, nil, interactive)
		if err != nil {
			return scope.Failure(1, err.Error())
		}
		return res
	}

	src := sourceOf(p)
	j := r.Jobs.RegisterWithStreams(src, 0)
	go func() {
		res, err := r.execute(context.Background(), p, s, cwd, nil, false)
		if err != nil {
			res = scope.Failure(1, err.Error())
		}
		r.Jobs.Complete(j.ID, res)
	}()
	return scope.Success(fmt.Sprintf("[%d]", j.ID))
}

// Execute implements eval.Executor for command substitution: it always
// runs the pipeline foreground and returns its ExecResult, regardless of
// the pipeline's own Background flag (substitution never backgrounds).
// Never interactive: a nested substitution must not steal the terminal
// out from under the statement that invoked it.
func (r *Runner) Execute(p *ast.Pipeline, s *scope.Scope) (scope.ExecResult, error) {
	cwd := "/"
	if c, ok := s.Get("PWD"); ok {
		cwd = eval.FormatValue(c)
	}
	return r.execute(context.Background(), p, s, cwd, nil, false)
}

// execute runs every stage of p in sequence, piping each stage's stdout
// into the next stage's stdin as a buffered byte transfer (spec §4.10
// step 2's "in-memory string transfer" case, generalized to every
// adjacent pair so builtin/external stages compose uniformly). interactive
// is only ever true for a single-command foreground pipeline run under a
// Runner with Terminal set (see Run).
func (r *Runner) execute(ctx context.Context, p *ast.Pipeline, s *scope.Scope, cwd string, initialStdin []byte, interactive bool) (scope.ExecResult, error) {
	var stdin []byte = initialStdin
	var last scope.ExecResult

	for i, cmd := range p.Commands {
		ec := tools.NewExecContext(ctx, r.VFS, s, cwd)
		ec.Stdin = stdin
		ec.OutputLimit = r.OutputLimit
		ec.Jobs = r.Jobs

		for _, rd := range cmd.Redirects {
			if rd.Kind != ast.RedirectStdin {
				continue
			}
			target, err := r.Eval.Eval(rd.Target, s)
			if err != nil {
				return scope.ExecResult{}, err
			}
			path := resolveRedirectPath(cwd, eval.FormatValue(target))
			if ec.Stdin, err = r.VFS.Read(ctx, path); err != nil {
				return scope.ExecResult{}, fmt.Errorf("redirect <%s: %w", path, err)
			}
		}

		res, err := r.runCommand(ec, cmd, s, interactive)
		if err != nil {
			return scope.ExecResult{}, err
		}

		if err := r.applyRedirects(ec, cmd, &res); err != nil {
			return scope.ExecResult{}, err
		}

		if r.OutputLimit != nil {
			truncated, err := r.OutputLimit.ApplyPostHoc(res.Out, time.Now())
			if err != nil {
				return scope.ExecResult{}, err
			}
			res.Out = truncated
		}

		last = res
		stdin = []byte(res.Out)
		_ = i
	}
	return last, nil
}

// runCommand resolves cmd.Name against builtins, then user tools, then
// (if policy allows) an external host executable, and runs it.
func (r *Runner) runCommand(ec *tools.ExecContext, cmd *ast.Command, s *scope.Scope, interactive bool) (scope.ExecResult, error) {
	args, err := r.bindArgs(cmd, s)
	if err != nil {
		return scope.ExecResult{}, err
	}

	if t, ok := r.Builtins.Get(cmd.Name); ok {
		return t.Execute(args, ec), nil
	}
	if r.UserTools != nil {
		if t, ok := r.UserTools.Get(cmd.Name); ok {
			return t.Execute(args, ec), nil
		}
	}
	if !r.Policy.AllowExternal {
		return scope.Failure(127, "unknown command: "+cmd.Name), nil
	}
	if interactive {
		return r.runExternalForeground(ec, cmd.Name, args)
	}
	return r.runExternal(ec, cmd.Name, args)
}

// bindArgs evaluates every Command argument into a ToolArgs, splitting
// positional/named/flag forms per spec §4.7.
func (r *Runner) bindArgs(cmd *ast.Command, s *scope.Scope) (tools.ToolArgs, error) {
	out := tools.NewToolArgs()
	for _, a := range cmd.Args {
		switch a.Kind {
		case ast.ArgPositional:
			v, err := r.Eval.Eval(a.Value, s)
			if err != nil {
				return tools.ToolArgs{}, err
			}
			out.Positional = append(out.Positional, v)
		case ast.ArgNamed:
			v, err := r.Eval.Eval(a.Value, s)
			if err != nil {
				return tools.ToolArgs{}, err
			}
			out.Named[a.Key] = v
		case ast.ArgShortFlag, ast.ArgLongFlag:
			out.Flags[a.Key] = true
		}
	}
	return out, nil
}

// runExternal spawns cmd.Name as a host process when it resolves to
// neither a builtin nor a user tool. Requires ec.Cwd to be backed by a
// LocalFs mount (spec §4.7: exec is the only FS-escaping surface).
func (r *Runner) runExternal(ec *tools.ExecContext, name string, args tools.ToolArgs) (scope.ExecResult, error) {
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
	stdout, stderr, exitCode, runErr := runProcess(cmd, ec.Stdin)
	if runErr != nil {
		return scope.Failure(127, runErr.Error()), nil
	}
	return scope.ExecResult{Code: exitCode, Out: stdout, Err: stderr}, nil
}

func sourceOf(p *ast.Pipeline) string {
	names := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		names[i] = c.Name
	}
	if len(names) == 0 {
		return ""
	}
	out := names[0]
	for _, n := range names[1:] {
		out += " | " + n
	}
	return out
}
