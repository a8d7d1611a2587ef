package builtins

import (
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

type CdArgs struct {
	Path string `json:"path,omitempty" jsonschema:"description=directory to change into, defaults to /"`
}

type Cd struct{}

func (Cd) Name() string { return "cd" }

func (Cd) Schema() *Schema { return schemaFor(&CdArgs{}) }

func (Cd) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	arg, ok := firstPositionalString(args)
	if !ok {
		arg = "/"
	}
	path := resolvePath(ec.Cwd, arg)
	info, err := ec.VFS.Stat(ec.Context(), path)
	if err != nil {
		return ioFailure("cd", path, err)
	}
	if info.Kind != vfs.KindDirectory {
		return scope.Failure(1, "cd: "+path+": not a directory")
	}
	ec.Cwd = path
	if ec.State != nil {
		if err := ec.State.SetCwd(ec.Context(), path); err != nil {
			return scope.Failure(1, "cd: "+err.Error())
		}
	}
	return scope.Success("")
}

type PwdArgs struct{}

type Pwd struct{}

func (Pwd) Name() string { return "pwd" }

func (Pwd) Schema() *Schema { return schemaFor(&PwdArgs{}) }

func (Pwd) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	return scope.Success(ec.Cwd + "\n")
}
