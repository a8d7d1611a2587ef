// Package tools implements the tool registry and ToolArgs binding
// described in spec §4.7 (component C9). A tool is either a statically
// registered builtin or a user-defined `tool name(params) { body }`;
// both implement the same Execute contract.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/job"
	"github.com/kaishlang/kaish/pkg/kaish/outputlimit"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/state"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

// ArgKind distinguishes how an argument reached ToolArgs.
type ArgKind int

const (
	ArgPositional ArgKind = iota
	ArgNamed
	ArgFlag
)

// ToolArgs holds the positional values, named values, and flag set a
// command line resolves into, mirroring spec §4.7.
type ToolArgs struct {
	Positional []ast.Value
	Named      map[string]ast.Value
	Flags      map[string]bool
}

// NewToolArgs returns an empty, ready-to-populate ToolArgs.
func NewToolArgs() ToolArgs {
	return ToolArgs{Named: map[string]ast.Value{}, Flags: map[string]bool{}}
}

// Pos returns the i-th positional argument, or ok=false if absent.
func (a ToolArgs) Pos(i int) (ast.Value, bool) {
	if i < 0 || i >= len(a.Positional) {
		return ast.Value{}, false
	}
	return a.Positional[i], true
}

// PosString is a convenience accessor formatting the i-th positional
// argument as a string via its canonical formatter.
func (a ToolArgs) PosString(i int, formatter func(ast.Value) string) (string, bool) {
	v, ok := a.Pos(i)
	if !ok {
		return "", false
	}
	return formatter(v), true
}

// GetNamed looks up a named argument (`name=value` or `--name value`).
func (a ToolArgs) GetNamed(name string) (ast.Value, bool) {
	v, ok := a.Named[name]
	return v, ok
}

// Flag reports whether `-name` or `--name` was set.
func (a ToolArgs) Flag(name string) bool { return a.Flags[name] }

// ExecContext is the in-process execution environment builtins and
// user-tools run against (spec §3, §4.13): `ExecContext { vfs, scope,
// cwd, stdin, output_limit, jobs, state }`.
type ExecContext struct {
	ctx         context.Context
	VFS         *vfs.Router
	Scope       *scope.Scope
	Cwd         string
	Stdin       []byte
	OutputLimit *outputlimit.Limiter
	Jobs        *job.Manager
	State       *state.Store // nil when the kernel runs without persistence
}

// Context returns the context.Context this ExecContext was built with,
// used by tools to thread cancellation into VFS/job calls.
func (ec *ExecContext) Context() context.Context {
	if ec.ctx == nil {
		return context.Background()
	}
	return ec.ctx
}

// WithContext returns a copy of ec bound to a different context.Context,
// used when a builtin needs to narrow a deadline for one VFS call.
func (ec *ExecContext) WithContext(ctx context.Context) *ExecContext {
	clone := *ec
	clone.ctx = ctx
	return &clone
}

// NewExecContext builds an ExecContext bound to ctx.
func NewExecContext(ctx context.Context, v *vfs.Router, sc *scope.Scope, cwd string) *ExecContext {
	return &ExecContext{ctx: ctx, VFS: v, Scope: sc, Cwd: cwd}
}

// Tool is the execute contract every builtin and user-defined tool
// implements (spec §4.7).
type Tool interface {
	Name() string
	Schema() *jsonschema.Schema
	Execute(args ToolArgs, ec *ExecContext) scope.ExecResult
}

// Registry is an insertion-order-stable name→tool map (spec §4.7:
// "insertion-order-stable name map; lookup is O(1)"): a map for lookup
// plus an order slice for listing.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t, rejecting a duplicate name.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tools: tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tools: %q already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// MustRegister panics on registration error; used for the static set of
// builtins wired in at kernel construction time.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name in registration order,
// satisfying vfs.ToolLister so a Registry can back a BuiltinFs mount
// directly.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Schemas returns {name: schema} for every registered tool, backing the
// kernel's `tool_schemas` introspection operation (spec §4.13).
func (r *Registry) Schemas() map[string]*jsonschema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*jsonschema.Schema, len(r.order))
	for _, name := range r.order {
		out[name] = r.tools[name].Schema()
	}
	return out
}
