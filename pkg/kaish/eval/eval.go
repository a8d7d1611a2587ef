// Package eval reduces an ast.Expr to an ast.Value against a scope
// (spec §4.4, component C5).
package eval

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
)

// Error is an EvalError (spec §7), tagged by Kind so callers can branch on
// the taxonomy without string matching.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newErr(kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Kinds from the EvalError taxonomy (spec §7).
const (
	KindUndefinedVariable = "UndefinedVariable"
	KindInvalidPath       = "InvalidPath"
	KindTypeError         = "TypeError"
	KindCommandFailed     = "CommandFailed"
	KindNoExecutor        = "NoExecutor"
	KindArithmeticError   = "ArithmeticError"
	KindRegexError        = "RegexError"
)

// Executor runs a Pipeline for command substitution. The evaluator is
// decoupled from the pipeline runner through this narrow interface
// (spec §9 "Executor trait for command substitution") so the two packages
// never import each other; tests can inject a NoOp executor that always
// returns KindNoExecutor.
type Executor interface {
	Execute(p *ast.Pipeline, s *scope.Scope) (scope.ExecResult, error)
}

// NoOpExecutor always fails with KindNoExecutor; useful in tests that
// evaluate expressions without a pipeline runner wired up.
type NoOpExecutor struct{}

func (NoOpExecutor) Execute(*ast.Pipeline, *scope.Scope) (scope.ExecResult, error) {
	return scope.ExecResult{}, newErr(KindNoExecutor, "no executor configured for command substitution")
}

// Evaluator reduces expressions to values.
type Evaluator struct {
	Exec Executor
}

// New creates an Evaluator backed by the given command-substitution
// Executor.
func New(exec Executor) *Evaluator {
	if exec == nil {
		exec = NoOpExecutor{}
	}
	return &Evaluator{Exec: exec}
}

// Eval reduces e to a Value against s.
func (ev *Evaluator) Eval(e ast.Expr, s *scope.Scope) (ast.Value, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return ev.evalLiteral(n.Value, s)
	case *ast.VarRef:
		v, err := s.ResolvePath(n.Path)
		if err != nil {
			return ast.Value{}, newErr(KindInvalidPath, "%s", err.Error())
		}
		return v, nil
	case *ast.Interpolated:
		return ev.evalInterpolated(n, s)
	case *ast.BinaryOp:
		return ev.evalBinaryOp(n, s)
	case *ast.CommandSubst:
		return ev.evalCommandSubst(n, s)
	default:
		return ast.Value{}, newErr(KindTypeError, "unknown expression node %T", e)
	}
}

// evalLiteral recursively evaluates Array/Object children into
// literal-wrapped values (spec §4.4); primitives return as-is.
func (ev *Evaluator) evalLiteral(v ast.Value, s *scope.Scope) (ast.Value, error) {
	switch v.Kind {
	case ast.KindArray:
		out := make([]ast.Expr, len(v.Array))
		for i, child := range v.Array {
			cv, err := ev.Eval(child, s)
			if err != nil {
				return ast.Value{}, err
			}
			out[i] = ast.NewLiteral(child.Span(), cv)
		}
		return ast.ArrayValue(out), nil
	case ast.KindObject:
		out := ast.NewObject()
		if v.Object != nil {
			for p := v.Object.Oldest(); p != nil; p = p.Next() {
				cv, err := ev.Eval(p.Value, s)
				if err != nil {
					return ast.Value{}, err
				}
				out.Set(p.Key, ast.NewLiteral(p.Value.Span(), cv))
			}
		}
		return ast.ObjectValue(out), nil
	default:
		return v, nil
	}
}

// evalInterpolated concatenates literal parts with FormatValue of each
// variable (spec §4.4).
func (ev *Evaluator) evalInterpolated(n *ast.Interpolated, s *scope.Scope) (ast.Value, error) {
	var out []byte
	for _, part := range n.Parts {
		switch part.Kind {
		case ast.StringPartLiteral:
			out = append(out, part.Literal...)
		case ast.StringPartVar:
			v, err := s.ResolvePath(part.Var)
			if err != nil {
				return ast.Value{}, newErr(KindInvalidPath, "%s", err.Error())
			}
			out = append(out, FormatValue(v)...)
		}
	}
	return ast.StringValue(string(out)), nil
}

// FormatValue is the shared canonical string-formatting routine behind
// interpolation and `echo`-style builtins: primitives render plainly,
// non-primitive values render as canonical JSON (spec §4.4, §9 —
// ported from the original's `format_string` helper).
func FormatValue(v ast.Value) string {
	switch v.Kind {
	case ast.KindNull:
		return ""
	case ast.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ast.KindInt:
		return fmt.Sprintf("%d", v.Int)
	case ast.KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case ast.KindString:
		return v.Str
	default:
		data, err := ToJSON(v)
		if err != nil {
			return ""
		}
		b, _ := json.Marshal(data)
		return string(b)
	}
}

// ToJSON converts a Value (with Literal-wrapped Array/Object children)
// into a plain any suitable for json.Marshal.
func ToJSON(v ast.Value) (any, error) {
	switch v.Kind {
	case ast.KindNull:
		return nil, nil
	case ast.KindBool:
		return v.Bool, nil
	case ast.KindInt:
		return v.Int, nil
	case ast.KindFloat:
		return v.Float, nil
	case ast.KindString:
		return v.Str, nil
	case ast.KindArray:
		out := make([]any, len(v.Array))
		for i, e := range v.Array {
			lit, ok := ast.AsLiteral(e)
			if !ok {
				return nil, newErr(KindTypeError, "array element is not a literal value")
			}
			jv, err := ToJSON(lit)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case ast.KindObject:
		out := make(map[string]any)
		order := []string{}
		if v.Object != nil {
			for p := v.Object.Oldest(); p != nil; p = p.Next() {
				lit, ok := ast.AsLiteral(p.Value)
				if !ok {
					return nil, newErr(KindTypeError, "object field %q is not a literal value", p.Key)
				}
				jv, err := ToJSON(lit)
				if err != nil {
					return nil, err
				}
				out[p.Key] = jv
				order = append(order, p.Key)
			}
		}
		return orderedJSON{keys: order, values: out}, nil
	default:
		return nil, newErr(KindTypeError, "unknown value kind")
	}
}

// orderedJSON marshals a map preserving field insertion order, since
// Go's map + encoding/json would otherwise sort keys alphabetically and
// violate the ordered-object invariant (spec §3).
type orderedJSON struct {
	keys   []string
	values map[string]any
}

func (o orderedJSON) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range o.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func (ev *Evaluator) evalBinaryOp(n *ast.BinaryOp, s *scope.Scope) (ast.Value, error) {
	switch n.Op {
	case ast.OpAnd:
		left, err := ev.Eval(n.Left, s)
		if err != nil {
			return ast.Value{}, err
		}
		if !left.Truthy() {
			return left, nil
		}
		return ev.Eval(n.Right, s)
	case ast.OpOr:
		left, err := ev.Eval(n.Left, s)
		if err != nil {
			return ast.Value{}, err
		}
		if left.Truthy() {
			return left, nil
		}
		return ev.Eval(n.Right, s)
	}

	left, err := ev.Eval(n.Left, s)
	if err != nil {
		return ast.Value{}, err
	}
	right, err := ev.Eval(n.Right, s)
	if err != nil {
		return ast.Value{}, err
	}

	switch n.Op {
	case ast.OpEq:
		return ast.BoolValue(ast.Equal(left, right)), nil
	case ast.OpNotEq:
		return ast.BoolValue(!ast.Equal(left, right)), nil
	case ast.OpLt, ast.OpGt, ast.OpLtEq, ast.OpGtEq:
		cmp, err := ast.Compare(left, right)
		if err != nil {
			if ce, ok := err.(*ast.CompareError); ok {
				kind := KindTypeError
				if ce.Arithmetic {
					kind = KindArithmeticError
				}
				return ast.Value{}, newErr(kind, "%s", ce.Reason)
			}
			return ast.Value{}, newErr(KindTypeError, "%s", err.Error())
		}
		switch n.Op {
		case ast.OpLt:
			return ast.BoolValue(cmp < 0), nil
		case ast.OpGt:
			return ast.BoolValue(cmp > 0), nil
		case ast.OpLtEq:
			return ast.BoolValue(cmp <= 0), nil
		default:
			return ast.BoolValue(cmp >= 0), nil
		}
	case ast.OpMatch, ast.OpNotMatch:
		return ev.evalMatch(left, right, n.Op == ast.OpNotMatch)
	default:
		return ast.Value{}, newErr(KindTypeError, "unknown binary operator")
	}
}

func (ev *Evaluator) evalMatch(left, right ast.Value, negate bool) (ast.Value, error) {
	if left.Kind != ast.KindString || right.Kind != ast.KindString {
		return ast.Value{}, newErr(KindTypeError, "regex match requires string operands")
	}
	re, err := regexp.Compile(right.Str)
	if err != nil {
		return ast.Value{}, newErr(KindRegexError, "invalid regex %q: %s", right.Str, err.Error())
	}
	matched := re.MatchString(left.Str)
	if negate {
		matched = !matched
	}
	return ast.BoolValue(matched), nil
}

// evalCommandSubst delegates to the Executor; the returned ExecResult both
// replaces scope.last_result and is returned as an Object value
// (spec §4.4).
func (ev *Evaluator) evalCommandSubst(n *ast.CommandSubst, s *scope.Scope) (ast.Value, error) {
	res, err := ev.Exec.Execute(n.Pipeline, s)
	if err != nil {
		if ee, ok := err.(*Error); ok {
			return ast.Value{}, ee
		}
		return ast.Value{}, newErr(KindCommandFailed, "%s", err.Error())
	}
	s.SetLastResult(res)
	return ResultToValue(res), nil
}

// ResultToValue renders an ExecResult as the Object shape spec §3 and §6
// describe: {code, ok, out, err, data?}.
func ResultToValue(r scope.ExecResult) ast.Value {
	fields := ast.NewObject()
	fields.Set("code", ast.NewLiteral(ast.Span{}, ast.IntValue(int64(r.Code))))
	fields.Set("ok", ast.NewLiteral(ast.Span{}, ast.BoolValue(r.OK())))
	fields.Set("out", ast.NewLiteral(ast.Span{}, ast.StringValue(r.Out)))
	fields.Set("err", ast.NewLiteral(ast.Span{}, ast.StringValue(r.Err)))
	if r.Data != nil {
		fields.Set("data", ast.NewLiteral(ast.Span{}, *r.Data))
	}
	return ast.ObjectValue(fields)
}

// ResultWithData JSON-parses out (when non-empty and valid) into Data,
// per the ExecResult invariant in spec §3.
func ResultWithData(r scope.ExecResult) scope.ExecResult {
	if r.Out == "" {
		return r
	}
	var raw any
	if err := json.Unmarshal([]byte(r.Out), &raw); err != nil {
		return r
	}
	v, err := FromJSON(raw)
	if err != nil {
		return r
	}
	r.Data = &v
	return r
}

// FromJSON converts a decoded JSON value (from encoding/json's any
// representation) into a literal-wrapped ast.Value.
func FromJSON(raw any) (ast.Value, error) {
	switch x := raw.(type) {
	case nil:
		return ast.Null(), nil
	case bool:
		return ast.BoolValue(x), nil
	case float64:
		if x == float64(int64(x)) {
			return ast.IntValue(int64(x)), nil
		}
		return ast.FloatValue(x), nil
	case string:
		return ast.StringValue(x), nil
	case []any:
		elems := make([]ast.Expr, len(x))
		for i, e := range x {
			v, err := FromJSON(e)
			if err != nil {
				return ast.Value{}, err
			}
			elems[i] = ast.NewLiteral(ast.Span{}, v)
		}
		return ast.ArrayValue(elems), nil
	case map[string]any:
		fields := ast.NewObject()
		for k, v := range x {
			cv, err := FromJSON(v)
			if err != nil {
				return ast.Value{}, err
			}
			fields.Set(k, ast.NewLiteral(ast.Span{}, cv))
		}
		return ast.ObjectValue(fields), nil
	default:
		return ast.Value{}, newErr(KindTypeError, "unsupported JSON value %T", raw)
	}
}
