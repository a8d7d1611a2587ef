package builtins

import (
	"strings"

	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// EchoArgs documents echo's schema: any number of positional values,
// space-joined, with an optional -n to suppress the trailing newline.
type EchoArgs struct {
	Values []string `json:"values" jsonschema:"description=values to print"`
	N      bool     `json:"n,omitempty" jsonschema:"description=suppress trailing newline"`
}

type Echo struct{}

func (Echo) Name() string { return "echo" }

func (Echo) Schema() *Schema { return schemaFor(&EchoArgs{}) }

func (Echo) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	parts := make([]string, 0, len(args.Positional))
	for _, v := range args.Positional {
		parts = append(parts, eval.FormatValue(v))
	}
	out := strings.Join(parts, " ")
	if !args.Flag("n") {
		out += "\n"
	}
	return scope.Success(out)
}
