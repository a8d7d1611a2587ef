package builtins

import (
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

type MkdirArgs struct {
	Path string `json:"path" jsonschema:"description=directory to create"`
}

type Mkdir struct{}

func (Mkdir) Name() string { return "mkdir" }

func (Mkdir) Schema() *Schema { return schemaFor(&MkdirArgs{}) }

func (Mkdir) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	arg, ok := firstPositionalString(args)
	if !ok {
		return scope.Failure(2, "mkdir: missing path argument")
	}
	path := resolvePath(ec.Cwd, arg)
	if err := ec.VFS.Mkdir(ec.Context(), path); err != nil {
		return ioFailure("mkdir", path, err)
	}
	return scope.Success("")
}
