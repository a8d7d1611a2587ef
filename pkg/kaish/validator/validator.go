// Package validator walks a parsed Program and flags errors/warnings
// before execution (spec §4.3, component C6). Errors block execution;
// warnings do not.
package validator

import (
	"fmt"
	"regexp"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
)

// Severity distinguishes blocking Errors from advisory Warnings.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue is one ValidationIssue (spec §4.3).
type Issue struct {
	Span    ast.Span
	Severity Severity
	Code    string
	Message string
}

// Code constants for the mandatory checks (spec §4.3).
const (
	CodeBreakOutsideLoop    = "break-outside-loop"
	CodeContinueOutsideLoop = "continue-outside-loop"
	CodeReturnOutsideTool   = "return-outside-tool"
	CodeInvalidRegex        = "invalid-regex"
	CodeZeroIncrement       = "zero-increment-seq"
	CodeUnknownCommand      = "unknown-command"
	CodeUnboundVariable     = "unbound-variable"
)

// regexBuiltins names builtins whose first positional argument is a regex
// pattern that must compile (spec §4.3: "Regex patterns passed to
// regex-accepting builtins").
var regexBuiltins = map[string]bool{
	"grep": true,
	"match": true,
}

// KnownCommands is the set of command names the validator treats as
// resolvable: builtins plus any user-defined tool names discovered while
// walking the program. The kernel passes its live builtin name set in.
type KnownCommands struct {
	Builtins map[string]bool
}

// Validate walks prog and returns every issue found. userDefined is filled
// in as ToolDef statements are encountered, so forward references within
// the same program are accepted.
func Validate(prog *ast.Program, known KnownCommands) []Issue {
	v := &validatorState{
		known:       known,
		userDefined: map[string]bool{},
		scopeStack:  []map[string]bool{{}},
	}
	// Pre-scan top-level ToolDefs so commands can reference tools defined
	// later in the same program.
	for _, s := range prog.Statements {
		if td, ok := s.(*ast.ToolDef); ok {
			v.userDefined[td.Name] = true
		}
	}
	for _, s := range prog.Statements {
		v.walkStmt(s)
	}
	return v.issues
}

type validatorState struct {
	known       KnownCommands
	userDefined map[string]bool
	loopDepth   int
	toolDepth   int
	scopeStack  []map[string]bool // pure name tracking, no values
	issues      []Issue
}

func (v *validatorState) emit(span ast.Span, sev Severity, code, format string, args ...any) {
	v.issues = append(v.issues, Issue{Span: span, Severity: sev, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (v *validatorState) pushScope() { v.scopeStack = append(v.scopeStack, map[string]bool{}) }
func (v *validatorState) popScope()  { v.scopeStack = v.scopeStack[:len(v.scopeStack)-1] }

func (v *validatorState) bind(name string) {
	v.scopeStack[len(v.scopeStack)-1][name] = true
}

func (v *validatorState) isBound(name string) bool {
	for i := len(v.scopeStack) - 1; i >= 0; i-- {
		if v.scopeStack[i][name] {
			return true
		}
	}
	return false
}

func (v *validatorState) walkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Assignment:
		v.walkExpr(n.Value)
		v.bind(n.Name)
	case *ast.Command:
		v.walkCommand(n)
	case *ast.Pipeline:
		for _, c := range n.Commands {
			v.walkCommand(c)
		}
	case *ast.If:
		v.walkExpr(n.Cond)
		v.pushScope()
		for _, st := range n.Then {
			v.walkStmt(st)
		}
		v.popScope()
		if n.Else != nil {
			v.pushScope()
			for _, st := range n.Else {
				v.walkStmt(st)
			}
			v.popScope()
		}
	case *ast.For:
		v.walkExpr(n.Iterable)
		v.loopDepth++
		v.pushScope()
		v.bind(n.Var)
		for _, st := range n.Body {
			v.walkStmt(st)
		}
		v.popScope()
		v.loopDepth--
	case *ast.ToolDef:
		v.userDefined[n.Name] = true
		v.toolDepth++
		v.pushScope()
		for _, p := range n.Params {
			v.bind(p.Name)
			if p.Default != nil {
				v.walkExpr(p.Default)
			}
		}
		for _, st := range n.Body {
			v.walkStmt(st)
		}
		v.popScope()
		v.toolDepth--
	case *ast.AndChain:
		v.walkStmt(n.Left)
		v.walkStmt(n.Right)
	case *ast.OrChain:
		v.walkStmt(n.Left)
		v.walkStmt(n.Right)
	case *ast.Empty:
		// nothing to check
	}
}

func (v *validatorState) walkCommand(c *ast.Command) {
	switch c.Name {
	case "break":
		if v.loopDepth == 0 {
			v.emit(c.Span(), SeverityError, CodeBreakOutsideLoop, "'break' used outside a loop")
		}
	case "continue":
		if v.loopDepth == 0 {
			v.emit(c.Span(), SeverityError, CodeContinueOutsideLoop, "'continue' used outside a loop")
		}
	case "return":
		if v.toolDepth == 0 {
			v.emit(c.Span(), SeverityError, CodeReturnOutsideTool, "'return' used outside a tool body")
		}
	case "seq":
		v.checkSeq(c)
	}
	if regexBuiltins[c.Name] {
		v.checkRegexArg(c)
	}
	if !v.known.Builtins[c.Name] && !v.userDefined[c.Name] {
		v.emit(c.Span(), SeverityWarning, CodeUnknownCommand, "unknown command %q", c.Name)
	}
	for _, a := range c.Args {
		if a.Value != nil {
			v.walkExpr(a.Value)
		}
	}
	for _, r := range c.Redirects {
		v.walkExpr(r.Target)
	}
}

// checkSeq flags `seq FIRST INC LAST` with INC == 0 (spec §4.3).
func (v *validatorState) checkSeq(c *ast.Command) {
	var positionals []ast.Expr
	for _, a := range c.Args {
		if a.Kind == ast.ArgPositional {
			positionals = append(positionals, a.Value)
		}
	}
	if len(positionals) != 3 {
		return
	}
	lit, ok := positionals[1].(*ast.Literal)
	if !ok {
		return
	}
	if (lit.Value.Kind == ast.KindInt && lit.Value.Int == 0) ||
		(lit.Value.Kind == ast.KindFloat && lit.Value.Float == 0) {
		v.emit(c.Span(), SeverityError, CodeZeroIncrement, "seq increment must not be zero")
	}
}

func (v *validatorState) checkRegexArg(c *ast.Command) {
	for _, a := range c.Args {
		if a.Kind != ast.ArgPositional {
			continue
		}
		lit, ok := a.Value.(*ast.Literal)
		if !ok || lit.Value.Kind != ast.KindString {
			continue
		}
		if _, err := regexp.Compile(lit.Value.Str); err != nil {
			v.emit(a.Value.Span(), SeverityError, CodeInvalidRegex, "invalid regex %q: %s", lit.Value.Str, err.Error())
		}
		return
	}
}

func (v *validatorState) walkExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Literal:
		switch n.Value.Kind {
		case ast.KindArray:
			for _, c := range n.Value.Array {
				v.walkExpr(c)
			}
		case ast.KindObject:
			if n.Value.Object != nil {
				for p := n.Value.Object.Oldest(); p != nil; p = p.Next() {
					v.walkExpr(p.Value)
				}
			}
		}
	case *ast.VarRef:
		v.checkVarRef(n)
	case *ast.Interpolated:
		for _, part := range n.Parts {
			if part.Kind == ast.StringPartVar {
				v.checkVarPath(n.Span(), part.Var)
			}
		}
	case *ast.BinaryOp:
		if n.Op == ast.OpMatch || n.Op == ast.OpNotMatch {
			if lit, ok := n.Right.(*ast.Literal); ok && lit.Value.Kind == ast.KindString {
				if _, err := regexp.Compile(lit.Value.Str); err != nil {
					v.emit(n.Right.Span(), SeverityError, CodeInvalidRegex, "invalid regex %q: %s", lit.Value.Str, err.Error())
				}
			}
		}
		v.walkExpr(n.Left)
		v.walkExpr(n.Right)
	case *ast.CommandSubst:
		for _, c := range n.Pipeline.Commands {
			v.walkCommand(c)
		}
	}
}

func (v *validatorState) checkVarRef(n *ast.VarRef) {
	v.checkVarPath(n.Span(), n.Path)
}

// checkVarPath flags unbound variable references, skipped for names
// starting with `_` (spec §4.3).
func (v *validatorState) checkVarPath(span ast.Span, path ast.VarPath) {
	if len(path.Segments) == 0 || path.IsLastResult() {
		return
	}
	root := path.Segments[0]
	if root.Kind != ast.SegField {
		return
	}
	if len(root.Field) > 0 && root.Field[0] == '_' {
		return
	}
	if !v.isBound(root.Field) {
		v.emit(span, SeverityWarning, CodeUnboundVariable, "unbound variable %q", root.Field)
	}
}

// HasErrors reports whether any issue in the slice is a blocking Error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
