package builtins

import (
	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// WriteArgs: write <path> <content>, or write <path> with --stdin to take
// the pipeline's piped-in bytes as content instead of a second argument.
type WriteArgs struct {
	Path    string `json:"path" jsonschema:"description=file to write"`
	Content string `json:"content,omitempty" jsonschema:"description=bytes to write; omitted when --stdin is set"`
	Stdin   bool   `json:"stdin,omitempty" jsonschema:"description=write the command's stdin instead of a content argument"`
}

type Write struct{}

func (Write) Name() string { return "write" }

func (Write) Schema() *Schema { return schemaFor(&WriteArgs{}) }

func (Write) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	arg, ok := firstPositionalString(args)
	if !ok {
		return scope.Failure(2, "write: missing path argument")
	}
	path := resolvePath(ec.Cwd, arg)

	var content []byte
	if args.Flag("stdin") {
		content = ec.Stdin
	} else if v, ok := args.Pos(1); ok {
		content = []byte(eval.FormatValue(v))
	}

	if err := ec.VFS.Write(ec.Context(), path, content); err != nil {
		return ioFailure("write", path, err)
	}
	return scope.Success("")
}
