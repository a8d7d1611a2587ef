// Package scope implements the variable scope stack, positional
// parameters, and last-result cell described in spec §4.5 (component C4).
package scope

import (
	"fmt"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
)

// ExecResult is the structured outcome of any execution (spec §3).
type ExecResult struct {
	Code int
	Out  string
	Err  string
	Data *ast.Value // nil when out was empty or not valid JSON
}

// OK reports code == 0, the invariant spec §3 requires.
func (r ExecResult) OK() bool { return r.Code == 0 }

// Success builds a zero-code result with the given stdout text.
func Success(out string) ExecResult { return ExecResult{Code: 0, Out: out} }

// Failure builds a non-zero-code result with an error message.
func Failure(code int, errMsg string) ExecResult { return ExecResult{Code: code, Err: errMsg} }

// frame is one name->value mapping level of the scope stack.
type frame struct {
	vars map[string]ast.Value
}

func newFrame() *frame { return &frame{vars: make(map[string]ast.Value)} }

// Scope is the stack of frames, positional parameters, last-result cell,
// and execution flags (spec §4.5).
type Scope struct {
	frames     []*frame
	lastResult ExecResult
	positional []string // $0..$9, addressable individually; $@ is the full slice
	exitOnErr  bool
	rawMode    bool // validation bypass flag (spec §4.3)
}

// New creates a Scope with a single root frame.
func New() *Scope {
	return &Scope{frames: []*frame{newFrame()}}
}

// PushFrame pushes a new innermost frame, bounding the lexical extent of a
// loop body, user-tool call, or subshell.
func (s *Scope) PushFrame() {
	s.frames = append(s.frames, newFrame())
}

// PopFrame pops the innermost frame. Popping the root frame is forbidden
// (spec §3 invariant) and is a no-op protected by this guard.
func (s *Scope) PopFrame() {
	if len(s.frames) <= 1 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the number of frames currently on the stack.
func (s *Scope) Depth() int { return len(s.frames) }

// Set always writes to the innermost frame (spec §4.5).
func (s *Scope) Set(name string, v ast.Value) {
	s.frames[len(s.frames)-1].vars[name] = v
}

// Get searches innermost->outermost for name, per spec §3.
func (s *Scope) Get(name string) (ast.Value, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].vars[name]; ok {
			return v, true
		}
	}
	return ast.Value{}, false
}

// Names returns the set of variable names visible from the innermost
// frame outward (innermost shadows outer), in no particular order.
func (s *Scope) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for i := len(s.frames) - 1; i >= 0; i-- {
		for n := range s.frames[i].vars {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// LastResult returns the most recent ExecResult.
func (s *Scope) LastResult() ExecResult { return s.lastResult }

// SetLastResult replaces the last-result cell. The kernel calls it after
// every statement it runs, including statements inside blocks and the
// left side of `&&`/`||`; command substitution also calls it with the
// substituted pipeline's result.
func (s *Scope) SetLastResult(r ExecResult) { s.lastResult = r }

// SetPositional sets $0..$N and $@ from the given arguments.
func (s *Scope) SetPositional(args []string) { s.positional = args }

// Positional returns $N, or ("", false) if out of range.
func (s *Scope) Positional(n int) (string, bool) {
	if n < 0 || n >= len(s.positional) {
		return "", false
	}
	return s.positional[n], true
}

// PositionalAll returns $@.
func (s *Scope) PositionalAll() []string { return s.positional }

// PositionalCount returns $#.
func (s *Scope) PositionalCount() int { return len(s.positional) }

// SetExitOnError toggles the `set -e` equivalent flag.
func (s *Scope) SetExitOnError(v bool) { s.exitOnErr = v }

// ExitOnError reports whether exit-on-error is active.
func (s *Scope) ExitOnError() bool { return s.exitOnErr }

// SetRawMode toggles the validation-bypass flag (spec §4.3).
func (s *Scope) SetRawMode(v bool) { s.rawMode = v }

// RawMode reports whether validation should be skipped.
func (s *Scope) RawMode() bool { return s.rawMode }

// ErrInvalidPath is returned by ResolvePath when a path cannot be
// resolved against the current scope.
type ErrInvalidPath struct {
	Path string
}

func (e *ErrInvalidPath) Error() string { return fmt.Sprintf("invalid path: %s", e.Path) }

// ResolvePath resolves a VarPath against the scope (spec §4.5): the root
// segment is looked up innermost->outermost, then remaining segments walk
// through Array/Object children. `?` is special-cased to drill into the
// last-result cell instead of a stored variable.
func (s *Scope) ResolvePath(path ast.VarPath) (ast.Value, error) {
	if len(path.Segments) == 0 {
		return ast.Value{}, &ErrInvalidPath{Path: "<empty>"}
	}
	if path.IsLastResult() {
		return s.resolveLastResult(path.Segments[1:])
	}
	root := path.Segments[0]
	if root.Kind != ast.SegField {
		return ast.Value{}, &ErrInvalidPath{Path: "path must start with a field"}
	}
	v, ok := s.Get(root.Field)
	if !ok {
		return ast.Value{}, &ErrInvalidPath{Path: root.Field}
	}
	return walkSegments(v, path.Segments[1:])
}

// resolveLastResult implements `${?}`, `${?.ok}`, `${?.data.count}`, etc.
func (s *Scope) resolveLastResult(rest []ast.VarSegment) (ast.Value, error) {
	r := s.lastResult
	if len(rest) == 0 {
		return ast.IntValue(int64(r.Code)), nil
	}
	first := rest[0]
	if first.Kind != ast.SegField {
		return ast.Value{}, &ErrInvalidPath{Path: "?"}
	}
	var v ast.Value
	switch first.Field {
	case "code":
		v = ast.IntValue(int64(r.Code))
	case "ok":
		v = ast.BoolValue(r.OK())
	case "out":
		v = ast.StringValue(r.Out)
	case "err":
		v = ast.StringValue(r.Err)
	case "data":
		if r.Data == nil {
			v = ast.Null()
		} else {
			v = *r.Data
		}
	default:
		return ast.Value{}, &ErrInvalidPath{Path: "?." + first.Field}
	}
	return walkSegments(v, rest[1:])
}

func walkSegments(v ast.Value, segs []ast.VarSegment) (ast.Value, error) {
	cur := v
	for _, seg := range segs {
		switch seg.Kind {
		case ast.SegField:
			if cur.Kind != ast.KindObject || cur.Object == nil {
				return ast.Value{}, &ErrInvalidPath{Path: seg.Field}
			}
			child, ok := cur.Object.Get(seg.Field)
			if !ok {
				return ast.Value{}, &ErrInvalidPath{Path: seg.Field}
			}
			lit, ok := ast.AsLiteral(child)
			if !ok {
				return ast.Value{}, &ErrInvalidPath{Path: seg.Field}
			}
			cur = lit
		case ast.SegIndex:
			if cur.Kind != ast.KindArray || seg.Index >= len(cur.Array) {
				return ast.Value{}, &ErrInvalidPath{Path: fmt.Sprintf("[%d]", seg.Index)}
			}
			lit, ok := ast.AsLiteral(cur.Array[seg.Index])
			if !ok {
				return ast.Value{}, &ErrInvalidPath{Path: fmt.Sprintf("[%d]", seg.Index)}
			}
			cur = lit
		}
	}
	return cur, nil
}
