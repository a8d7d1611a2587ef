package builtins

import (
	"regexp"
	"strings"

	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// GrepArgs: grep PATTERN, filtering ec.Stdin line by line. The pattern is
// validated as a compilable regex ahead of time by the validator.
type GrepArgs struct {
	Pattern string `json:"pattern" jsonschema:"description=regular expression"`
}

type Grep struct{}

func (Grep) Name() string { return "grep" }

func (Grep) Schema() *Schema { return schemaFor(&GrepArgs{}) }

func (Grep) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	pattern, ok := firstPositionalString(args)
	if !ok {
		return scope.Failure(2, "grep: missing pattern argument")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return scope.Failure(2, "grep: "+err.Error())
	}

	var b strings.Builder
	lines := strings.Split(string(ec.Stdin), "\n")
	for i, line := range lines {
		if i == len(lines)-1 && line == "" {
			break
		}
		if re.MatchString(line) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return scope.Success(b.String())
}

// MatchArgs: match PATTERN VALUE, reporting whether VALUE (formatted
// canonically) matches the regex, grounding the `=~`/`!~` operators'
// builtin-callable equivalent.
type MatchArgs struct {
	Pattern string `json:"pattern"`
	Value   string `json:"value"`
}

type Match struct{}

func (Match) Name() string { return "match" }

func (Match) Schema() *Schema { return schemaFor(&MatchArgs{}) }

func (Match) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	pattern, ok := firstPositionalString(args)
	if !ok {
		return scope.Failure(2, "match: missing pattern argument")
	}
	valueArg, ok := args.Pos(1)
	if !ok {
		return scope.Failure(2, "match: missing value argument")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return scope.Failure(2, "match: "+err.Error())
	}
	if re.MatchString(eval.FormatValue(valueArg)) {
		return scope.Success("true\n")
	}
	return scope.ExecResult{Code: 1, Out: "false\n"}
}
