// Package kernel implements the orchestrator described in spec §4.13
// (component C16): the single entry point a host (CLI, MCP server, test
// harness) drives. It owns the scope, tool registries, VFS router, job
// manager, pipeline runner, and optional state store, and dispatches
// parsed statements to their handlers.
package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/job"
	"github.com/kaishlang/kaish/pkg/kaish/outputlimit"
	"github.com/kaishlang/kaish/pkg/kaish/parser"
	"github.com/kaishlang/kaish/pkg/kaish/pipeline"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/state"
	"github.com/kaishlang/kaish/pkg/kaish/terminal"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/validator"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

// pwdVar is the scope variable the kernel and the pipeline runner's
// command-substitution path both treat as the single source of truth for
// the current working directory (see eval.Executor's own Execute, which
// reads "PWD" to resolve cwd for `$(...)`).
const pwdVar = "PWD"

// Options configures a Kernel at construction time (spec §4.13 settings
// normally sourced from internal/config.Config).
type Options struct {
	ValidateBeforeExecute bool
	ExitOnError           bool
	AllowExternal         bool
	OutputLimit           outputlimit.Config
	SpillDir              string
	State                 *state.Store // nil runs without persistence

	// Terminal is set only by a host that itself owns an interactive
	// controlling terminal and has already called terminal.Init(). Left
	// nil (the common case for MCP/scripted hosts), every external
	// command runs through the pipeline runner's buffered, non-interactive
	// path instead of attempting foreground terminal handoff.
	Terminal *terminal.State
}

// Kernel is the orchestrator spec §4.13 describes: "scope (guarded),
// tools (Arc), user_tools (guarded map), vfs (Arc), jobs (Arc), runner,
// exec_ctx (guarded), state (optional, guarded)".
type Kernel struct {
	mu sync.Mutex

	scope     *scope.Scope
	builtins  *tools.Registry
	userTools *userToolTable
	vfsRouter *vfs.Router
	jobs      *job.Manager
	runner    *pipeline.Runner
	eval      *eval.Evaluator
	state     *state.Store

	validateBeforeExecute bool
	exitOnError           bool
}

// New builds a Kernel. builtins must already hold every registered
// builtin tool (see tools/builtins.Register); the kernel adds no
// builtins of its own.
func New(builtins *tools.Registry, v *vfs.Router, opts Options) *Kernel {
	jobs := job.NewManager()
	userTools := newUserToolTable()
	limiter := outputlimit.New(opts.OutputLimit, opts.SpillDir)

	runner := pipeline.NewRunner(builtins, userTools, v, jobs, limiter, pipeline.Policy{
		AllowExternal: opts.AllowExternal,
	})
	runner.Terminal = opts.Terminal

	s := scope.New()
	s.Set(pwdVar, ast.StringValue("/"))
	s.SetExitOnError(opts.ExitOnError)

	k := &Kernel{
		scope:                 s,
		builtins:              builtins,
		userTools:             userTools,
		vfsRouter:             v,
		jobs:                  jobs,
		runner:                runner,
		eval:                  runner.Eval,
		state:                 opts.State,
		validateBeforeExecute: opts.ValidateBeforeExecute,
		exitOnError:           opts.ExitOnError,
	}
	userTools.kernel = k
	return k
}

// Execute parses source, validates it (unless ValidateBeforeExecute was
// turned off), and runs every top-level statement in order, returning the
// last statement's result (spec §4.13).
func (k *Kernel) Execute(ctx context.Context, source string) (scope.ExecResult, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	prog, err := parser.Parse(source)
	if err != nil {
		return scope.Failure(2, err.Error()), nil
	}

	if k.validateBeforeExecute {
		known := validator.KnownCommands{Builtins: namesToSet(k.builtins.Names())}
		for _, n := range k.userTools.Names() {
			known.Builtins[n] = true
		}
		issues := validator.Validate(prog, known)
		if validator.HasErrors(issues) {
			return scope.Failure(2, formatIssues(issues)), nil
		}
	}

	last := scope.Success("")
	for _, stmt := range prog.Statements {
		res, err := k.execStmt(ctx, stmt, k.scope)
		if err != nil {
			if _, ok := err.(*controlSignal); ok {
				// break/continue/return escaping every enclosing loop or
				// tool body is a program error (spec §4.3 flags this during
				// validation; defend here too for raw/unvalidated runs).
				return scope.Failure(2, "kernel: "+err.Error()), nil
			}
			return scope.Failure(1, err.Error()), nil
		}
		last = res
		k.scope.SetLastResult(res)
		if k.state != nil {
			_ = k.persistLastResult(ctx, res)
		}
		if k.exitOnError && !res.OK() {
			break
		}
	}
	return last, nil
}

func namesToSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func formatIssues(issues []validator.Issue) string {
	msg := ""
	for i, iss := range issues {
		if iss.Severity != validator.SeverityError {
			continue
		}
		if msg != "" {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: %s", iss.Code, iss.Message)
		_ = i
	}
	if msg == "" {
		msg = "validation failed"
	}
	return msg
}

func (k *Kernel) persistLastResult(ctx context.Context, res scope.ExecResult) error {
	var dataJSON *string
	if res.Data != nil {
		if raw, err := eval.ToJSON(*res.Data); err == nil {
			if b, err := json.Marshal(raw); err == nil {
				s := string(b)
				dataJSON = &s
			}
		}
	}
	return k.state.SetLastResult(ctx, res.Code, res.OK(), res.Err, res.Out, res.Err, dataJSON)
}

// GetVar returns the current value of a top-level variable.
func (k *Kernel) GetVar(name string) (ast.Value, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.scope.Get(name)
}

// SetVar sets a top-level variable directly, bypassing source parsing,
// and persists it when a state store is attached.
func (k *Kernel) SetVar(ctx context.Context, name string, v ast.Value) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.scope.Set(name, v)
	if k.state != nil {
		return k.state.SetVariable(ctx, name, v)
	}
	return nil
}

// ListVars returns every variable name visible at the top level.
func (k *Kernel) ListVars() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.scope.Names()
}

// Cwd returns the kernel's current working directory.
func (k *Kernel) Cwd() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cwdLocked()
}

func (k *Kernel) cwdLocked() string {
	if v, ok := k.scope.Get(pwdVar); ok {
		return eval.FormatValue(v)
	}
	return "/"
}

// SetCwd changes the kernel's working directory, verifying path is a
// directory in the VFS first.
func (k *Kernel) SetCwd(ctx context.Context, path string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	info, err := k.vfsRouter.Stat(ctx, path)
	if err != nil {
		return fmt.Errorf("kernel: set_cwd: %w", err)
	}
	if info.Kind != vfs.KindDirectory {
		return fmt.Errorf("kernel: set_cwd: %s is not a directory", path)
	}
	k.scope.Set(pwdVar, ast.StringValue(path))
	if k.state != nil {
		return k.state.SetCwd(ctx, path)
	}
	return nil
}

// LastResult returns the most recent top-level statement's result.
func (k *Kernel) LastResult() scope.ExecResult {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.scope.LastResult()
}

// ToolSchemas returns {name: schema} for every builtin and user-defined
// tool currently registered (spec §4.13 `tool_schemas`).
func (k *Kernel) ToolSchemas() map[string]*jsonschema.Schema {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := k.builtins.Schemas()
	for name, schema := range k.userTools.Schemas() {
		out[name] = schema
	}
	return out
}

// Jobs returns the kernel's job manager, backing a host's `/v/jobs` VFS
// mount and `kill`/`fg`/`bg` operations.
func (k *Kernel) Jobs() *job.Manager { return k.jobs }

// VFS returns the kernel's VFS router.
func (k *Kernel) VFS() *vfs.Router { return k.vfsRouter }

// Reset clears variables and cwd back to their initial state, and the
// corresponding rows of the state store when one is attached (spec
// §4.13: "reset clears variables + cwd and the corresponding rows of the
// state store").
func (k *Kernel) Reset(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.scope = scope.New()
	k.scope.Set(pwdVar, ast.StringValue("/"))
	k.scope.SetExitOnError(k.exitOnError)
	if k.state != nil {
		return k.state.Reset(ctx)
	}
	return nil
}

// Shutdown awaits every outstanding background job and releases the
// state store connection (spec §4.13: "shutdown awaits outstanding
// background jobs").
func (k *Kernel) Shutdown(ctx context.Context) error {
	k.mu.Lock()
	ids := k.jobs.ListIDs()
	k.mu.Unlock()

	for _, id := range ids {
		if status, ok := k.jobs.GetStatusString(id); ok && status == "running" {
			if _, err := k.jobs.Wait(id); err != nil {
				return err
			}
		}
	}
	if k.state != nil {
		return k.state.Close()
	}
	return nil
}
