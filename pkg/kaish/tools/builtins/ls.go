package builtins

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

type LsArgs struct {
	Path string `json:"path,omitempty" jsonschema:"description=directory to list, defaults to cwd"`
	Long bool   `json:"long,omitempty" jsonschema:"description=show kind and size columns"`
}

type Ls struct{}

func (Ls) Name() string { return "ls" }

func (Ls) Schema() *Schema { return schemaFor(&LsArgs{}) }

func (Ls) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	arg, _ := firstPositionalString(args)
	path := resolvePath(ec.Cwd, arg)
	entries, err := ec.VFS.List(ec.Context(), path)
	if err != nil {
		return ioFailure("ls", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var b strings.Builder
	long := args.Flag("l") || args.Flag("long")
	for _, e := range entries {
		if long {
			fmt.Fprintf(&b, "%s\t%8d\t%s\n", kindLetter(e.Kind), e.Size, e.Name)
			continue
		}
		b.WriteString(e.Name)
		b.WriteByte('\n')
	}
	return scope.Success(b.String())
}

func kindLetter(k vfs.EntryKind) string {
	switch k {
	case vfs.KindDirectory:
		return "d"
	case vfs.KindSymlink:
		return "l"
	default:
		return "-"
	}
}
