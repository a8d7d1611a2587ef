package kernel

import (
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// UserTool implements tools.Tool for one `tool NAME param... { body }`
// definition (spec §4.7): fresh isolated scope per call, named args take
// precedence over positional args, which take precedence over default
// expressions; parent-scope variables are not visible inside the body.
type UserTool struct {
	def    *ast.ToolDef
	kernel *Kernel
}

func (t *UserTool) Name() string { return t.def.Name }

// Schema synthesizes a minimal schema from the tool's declared
// parameters, since user tools have no Go struct to reflect from the
// way builtins do (spec §4.7 `tool_schemas` must still cover them).
func (t *UserTool) Schema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	required := make([]string, 0, len(t.def.Params))
	for _, p := range t.def.Params {
		props.Set(p.Name, &jsonschema.Schema{Type: jsonSchemaType(p.Type)})
		if p.Default == nil {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func jsonSchemaType(t ast.ParamType) string {
	switch t {
	case ast.ParamTypeInt:
		return "integer"
	case ast.ParamTypeFloat:
		return "number"
	case ast.ParamTypeBool:
		return "boolean"
	case ast.ParamTypeArray:
		return "array"
	case ast.ParamTypeObject:
		return "object"
	default:
		return "string"
	}
}

// Execute binds arguments into a brand-new Scope (not a pushed frame on
// the caller's scope, so outer variables stay invisible per spec §4.7),
// runs the body, and converts an escaping `return` control signal back
// into a normal ExecResult. The outer scope is untouched even when the
// body fails partway through, since it was never written to.
func (t *UserTool) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	bodyScope := scope.New()
	bodyScope.Set(pwdVar, ast.StringValue(ec.Cwd))

	for i, p := range t.def.Params {
		v, err := t.resolveParam(p, i, args, bodyScope)
		if err != nil {
			return scope.Failure(1, "tool "+t.def.Name+": "+err.Error())
		}
		bodyScope.Set(p.Name, v)
	}

	res, err := t.kernel.execBlock(ec.Context(), t.def.Body, bodyScope)
	if err != nil {
		if cs, ok := asControlSignal(err); ok && cs.kind == signalReturn {
			return cs.result
		}
		return scope.Failure(1, "tool "+t.def.Name+": "+err.Error())
	}
	return res
}

func (t *UserTool) resolveParam(p ast.Param, i int, args tools.ToolArgs, bodyScope *scope.Scope) (ast.Value, error) {
	if v, ok := args.GetNamed(p.Name); ok {
		return v, nil
	}
	if v, ok := args.Pos(i); ok {
		return v, nil
	}
	if p.Default != nil {
		return t.kernel.eval.Eval(p.Default, bodyScope)
	}
	return ast.Value{}, fmt.Errorf("missing required parameter '%s'", p.Name)
}

// userToolTable is the kernel's guarded map of user-defined tools,
// satisfying pipeline.ToolLookup directly.
type userToolTable struct {
	mu     sync.RWMutex
	byName map[string]*UserTool
	order  []string
	kernel *Kernel
}

func newUserToolTable() *userToolTable {
	return &userToolTable{byName: make(map[string]*UserTool)}
}

// Set registers or redefines a tool (spec §4.13 ToolDef: "register in
// user_tools keyed by name" — redefinition overwrites, unlike the
// builtin registry's register-once contract).
func (u *userToolTable) Set(def *ast.ToolDef) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.byName[def.Name]; !exists {
		u.order = append(u.order, def.Name)
	}
	u.byName[def.Name] = &UserTool{def: def, kernel: u.kernel}
}

// Get satisfies pipeline.ToolLookup and tools.Tool lookups.
func (u *userToolTable) Get(name string) (tools.Tool, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	t, ok := u.byName[name]
	return t, ok
}

// Names returns every user-defined tool name, sorted alphabetically.
func (u *userToolTable) Names() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]string, len(u.order))
	copy(out, u.order)
	sort.Strings(out)
	return out
}

// Schemas returns {name: schema} for every user-defined tool.
func (u *userToolTable) Schemas() map[string]*jsonschema.Schema {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make(map[string]*jsonschema.Schema, len(u.byName))
	for name, t := range u.byName {
		out[name] = t.Schema()
	}
	return out
}
