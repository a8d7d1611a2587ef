package builtins

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// Lister is the slice of Registry that Help needs; kept narrow so this
// package never imports tools.Registry as a concrete type and the kernel
// can wire any registry-shaped value in at construction time.
type Lister interface {
	Names() []string
	Schemas() map[string]*Schema
}

type HelpArgs struct {
	Tool string `json:"tool,omitempty" jsonschema:"description=tool name to describe; omitted lists every tool"`
}

// Help lists registered tools, or describes one tool's schema when given
// a name. It is constructed with the registry it reports on, since a
// tool cannot introspect its own registry through ExecContext.
type Help struct {
	Registry Lister
}

func NewHelp(r Lister) *Help { return &Help{Registry: r} }

func (*Help) Name() string { return "help" }

func (*Help) Schema() *Schema { return schemaFor(&HelpArgs{}) }

func (h *Help) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	if name, ok := firstPositionalString(args); ok && name != "" {
		schemas := h.Registry.Schemas()
		s, ok := schemas[name]
		if !ok {
			return scope.Failure(1, "help: no such tool: "+name)
		}
		return scope.Success(fmt.Sprintf("%s\n%s\n", name, describeSchema(s)))
	}

	names := h.Registry.Names()
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	var b strings.Builder
	for _, n := range sorted {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return scope.Success(b.String())
}

func describeSchema(s *Schema) string {
	if s == nil || s.Description == "" {
		return "(no description)"
	}
	return s.Description
}
