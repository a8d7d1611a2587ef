package builtins

import (
	"encoding/json"

	"github.com/kaishlang/kaish/pkg/kaish/parser"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// KaishAstArgs: kaish-ast <source>, dumping the parsed program as JSON so
// an agent can introspect kaish's own grammar without re-implementing the
// parser.
type KaishAstArgs struct {
	Source string `json:"source" jsonschema:"description=kaish source text to parse"`
}

type KaishAst struct{}

func (KaishAst) Name() string { return "kaish-ast" }

func (KaishAst) Schema() *Schema { return schemaFor(&KaishAstArgs{}) }

func (KaishAst) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	src, ok := firstPositionalString(args)
	if !ok {
		return scope.Failure(2, "kaish-ast: missing source argument")
	}
	prog, err := parser.Parse(src)
	if err != nil {
		return scope.Failure(1, "kaish-ast: "+err.Error())
	}
	raw, err := json.Marshal(prog)
	if err != nil {
		return scope.Failure(1, "kaish-ast: "+err.Error())
	}
	return scope.Success(string(raw) + "\n")
}
