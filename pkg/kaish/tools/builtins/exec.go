package builtins

import (
	"bytes"
	"errors"
	"os/exec"

	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// ExecArgs: exec PROGRAM [ARG...], the one builtin allowed to spawn a
// host process. It requires ec.Cwd to resolve to a real host directory
// through a LocalFs mount; kaish never shells out against the virtual
// filesystem itself.
type ExecArgs struct {
	Program string   `json:"program" jsonschema:"description=host executable to run"`
	Args    []string `json:"args,omitempty" jsonschema:"description=arguments passed to the program"`
}

type Exec struct{}

func (Exec) Name() string { return "exec" }

func (Exec) Schema() *Schema { return schemaFor(&ExecArgs{}) }

func (Exec) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	if len(args.Positional) == 0 {
		return scope.Failure(2, "exec: missing program argument")
	}
	program, _ := firstPositionalString(args)

	argv := make([]string, 0, len(args.Positional)-1)
	for i := 1; i < len(args.Positional); i++ {
		v, _ := args.Pos(i)
		argv = append(argv, eval.FormatValue(v))
	}

	realCwd, ok := ec.VFS.RealPath(ec.Cwd)
	if !ok {
		return scope.Failure(1, "exec: "+ec.Cwd+" is not backed by the host filesystem")
	}

	cmd := exec.CommandContext(ec.Context(), program, argv...)
	cmd.Dir = realCwd
	cmd.Stdin = bytes.NewReader(ec.Stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return scope.ExecResult{Code: 0, Out: stdout.String(), Err: stderr.String()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return scope.ExecResult{Code: exitErr.ExitCode(), Out: stdout.String(), Err: stderr.String()}
	}
	return scope.Failure(127, "exec: "+err.Error())
}
