package kernel

import "github.com/kaishlang/kaish/pkg/kaish/scope"

// signalKind distinguishes the three non-local control transfers spec
// §4.13 names: "break/continue unwind N levels (stored as levels count
// in the propagated signal)" and tool-body `return`.
type signalKind int

const (
	signalBreak signalKind = iota
	signalContinue
	signalReturn
)

// controlSignal is how break/continue/return propagate up through
// statement execution. It is returned as the error half of execStmt's
// result rather than as a scope.ExecResult field, since neither is a
// program failure: the caller that catches it (execFor for
// break/continue, a user tool's Execute for return) converts it back
// into a normal result.
type controlSignal struct {
	kind   signalKind
	levels int
	result scope.ExecResult
}

func (s *controlSignal) Error() string {
	switch s.kind {
	case signalBreak:
		return "break outside of a loop"
	case signalContinue:
		return "continue outside of a loop"
	default:
		return "return outside of a tool body"
	}
}

// asControlSignal is a small helper so callers can pattern-match without
// repeating the type assertion.
func asControlSignal(err error) (*controlSignal, bool) {
	cs, ok := err.(*controlSignal)
	return cs, ok
}
