package builtins

import (
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

type RmArgs struct {
	Path      string `json:"path" jsonschema:"description=file or directory to remove"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"description=remove directories and their contents"`
}

type Rm struct{}

func (Rm) Name() string { return "rm" }

func (Rm) Schema() *Schema { return schemaFor(&RmArgs{}) }

func (Rm) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	arg, ok := firstPositionalString(args)
	if !ok {
		return scope.Failure(2, "rm: missing path argument")
	}
	path := resolvePath(ec.Cwd, arg)
	recursive := args.Flag("r") || args.Flag("recursive") || args.Flag("rf")
	if err := ec.VFS.Remove(ec.Context(), path, recursive); err != nil {
		return ioFailure("rm", path, err)
	}
	return scope.Success("")
}
