package kernel

import (
	"context"
	"fmt"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
)

// execStmt dispatches one statement per spec §4.13's "Statement
// semantics" table. The returned error is either a real failure (source
// parse/eval error) or a *controlSignal (break/continue/return)
// propagating to whichever caller is positioned to catch it.
func (k *Kernel) execStmt(ctx context.Context, stmt ast.Stmt, s *scope.Scope) (scope.ExecResult, error) {
	switch n := stmt.(type) {
	case *ast.Empty:
		return scope.Success(""), nil

	case *ast.Assignment:
		return k.execAssignment(ctx, n, s)

	case *ast.Command:
		if sig, ok := k.interceptControlCommand(n, s); ok {
			return scope.ExecResult{}, sig
		}
		return k.execPipelineLike(ctx, ast.NewPipeline(n.Span(), []*ast.Command{n}, false), s)

	case *ast.Pipeline:
		return k.execPipelineLike(ctx, n, s)

	case *ast.If:
		return k.execIf(ctx, n, s)

	case *ast.For:
		return k.execFor(ctx, n, s)

	case *ast.ToolDef:
		return k.execToolDef(n)

	case *ast.AndChain:
		left, err := k.execStmt(ctx, n.Left, s)
		if err != nil {
			return left, err
		}
		s.SetLastResult(left)
		if !left.OK() {
			return left, nil
		}
		return k.execStmt(ctx, n.Right, s)

	case *ast.OrChain:
		left, err := k.execStmt(ctx, n.Left, s)
		if err != nil {
			return left, err
		}
		s.SetLastResult(left)
		if left.OK() {
			return left, nil
		}
		return k.execStmt(ctx, n.Right, s)

	default:
		return scope.Failure(1, fmt.Sprintf("kernel: unhandled statement type %T", stmt)), nil
	}
}

func (k *Kernel) execAssignment(ctx context.Context, n *ast.Assignment, s *scope.Scope) (scope.ExecResult, error) {
	v, err := k.eval.Eval(n.Value, s)
	if err != nil {
		return scope.Failure(1, err.Error()), nil
	}
	s.Set(n.Name, v)
	if k.state != nil {
		if err := k.state.SetVariable(ctx, n.Name, v); err != nil {
			return scope.Failure(1, "kernel: persist variable: "+err.Error()), nil
		}
	}
	return scope.Success(""), nil
}

func (k *Kernel) execPipelineLike(ctx context.Context, p *ast.Pipeline, s *scope.Scope) (scope.ExecResult, error) {
	cwd := k.cwdFromScope(s)
	res := k.runner.Run(ctx, p, s, cwd)
	return res, nil
}

// cwdFromScope reads the PWD convention both the kernel and the pipeline
// runner's command-substitution executor rely on.
func (k *Kernel) cwdFromScope(s *scope.Scope) string {
	if v, ok := s.Get(pwdVar); ok {
		return eval.FormatValue(v)
	}
	return "/"
}

func (k *Kernel) execIf(ctx context.Context, n *ast.If, s *scope.Scope) (scope.ExecResult, error) {
	cond, err := k.eval.Eval(n.Cond, s)
	if err != nil {
		return scope.Failure(1, err.Error()), nil
	}
	body := n.Else
	if cond.Truthy() {
		body = n.Then
	}
	return k.execBlock(ctx, body, s)
}

func (k *Kernel) execFor(ctx context.Context, n *ast.For, s *scope.Scope) (scope.ExecResult, error) {
	iterable, err := k.eval.Eval(n.Iterable, s)
	if err != nil {
		return scope.Failure(1, err.Error()), nil
	}
	if iterable.Kind != ast.KindArray {
		return scope.Failure(1, "for: iterable must be an array"), nil
	}

	last := scope.Success("")
	for _, elemExpr := range iterable.Array {
		elem, err := k.eval.Eval(elemExpr, s)
		if err != nil {
			return scope.Failure(1, err.Error()), nil
		}

		s.PushFrame()
		s.Set(n.Var, elem)
		res, err := k.execBlock(ctx, n.Body, s)
		s.PopFrame()

		if err != nil {
			if cs, ok := asControlSignal(err); ok {
				switch cs.kind {
				case signalBreak:
					if cs.levels > 1 {
						return res, &controlSignal{kind: signalBreak, levels: cs.levels - 1}
					}
					return last, nil
				case signalContinue:
					if cs.levels > 1 {
						return res, &controlSignal{kind: signalContinue, levels: cs.levels - 1}
					}
					continue
				}
			}
			return res, err
		}
		last = res
	}
	return last, nil
}

func (k *Kernel) execToolDef(n *ast.ToolDef) (scope.ExecResult, error) {
	k.userTools.Set(n)
	return scope.Success(""), nil
}

// execBlock runs a statement list in order, stopping at the first
// failing error (real or control signal). Scope frames are the caller's
// responsibility (If reuses the current frame; For pushes its own).
func (k *Kernel) execBlock(ctx context.Context, stmts []ast.Stmt, s *scope.Scope) (scope.ExecResult, error) {
	last := scope.Success("")
	for _, stmt := range stmts {
		res, err := k.execStmt(ctx, stmt, s)
		if err != nil {
			return res, err
		}
		s.SetLastResult(res)
		last = res
		if k.exitOnError && !res.OK() {
			break
		}
	}
	return last, nil
}

// interceptControlCommand recognizes break/continue/return as commands
// (spec's grammar has no dedicated AST node for them; the validator's
// Code{Break,Continue,Return}Outside* checks already treat them as plain
// command names) and turns them into a *controlSignal instead of
// resolving them against the tool registry.
func (k *Kernel) interceptControlCommand(c *ast.Command, s *scope.Scope) (*controlSignal, bool) {
	switch c.Name {
	case "break", "continue":
		levels := 1
		if v, ok := k.firstPositionalInt(c, s); ok && v > 0 {
			levels = v
		}
		kind := signalBreak
		if c.Name == "continue" {
			kind = signalContinue
		}
		return &controlSignal{kind: kind, levels: levels}, true
	case "return":
		result := scope.Success("")
		if v, ok := k.firstPositionalValue(c, s); ok {
			result = scope.Success(eval.FormatValue(v))
			result.Data = &v
		}
		return &controlSignal{kind: signalReturn, result: result}, true
	}
	return nil, false
}

func (k *Kernel) firstPositionalValue(c *ast.Command, s *scope.Scope) (ast.Value, bool) {
	for _, a := range c.Args {
		if a.Kind == ast.ArgPositional {
			v, err := k.eval.Eval(a.Value, s)
			if err != nil {
				return ast.Value{}, false
			}
			return v, true
		}
	}
	return ast.Value{}, false
}

func (k *Kernel) firstPositionalInt(c *ast.Command, s *scope.Scope) (int, bool) {
	v, ok := k.firstPositionalValue(c, s)
	if !ok {
		return 0, false
	}
	if v.Kind != ast.KindInt {
		return 0, false
	}
	return int(v.Int), true
}
