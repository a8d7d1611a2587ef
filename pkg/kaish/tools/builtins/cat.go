package builtins

import (
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

type CatArgs struct {
	Path string `json:"path" jsonschema:"description=file to read"`
}

type Cat struct{}

func (Cat) Name() string { return "cat" }

func (Cat) Schema() *Schema { return schemaFor(&CatArgs{}) }

func (Cat) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	arg, ok := firstPositionalString(args)
	if !ok {
		return scope.Failure(2, "cat: missing path argument")
	}
	path := resolvePath(ec.Cwd, arg)
	data, err := ec.VFS.Read(ec.Context(), path)
	if err != nil {
		return ioFailure("cat", path, err)
	}
	return scope.Success(string(data))
}
