package builtins

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// SeqArgs: seq FIRST INC LAST, the three-argument form the validator's
// zero-increment check and the output-limit seed scenario both assume.
type SeqArgs struct {
	First int64 `json:"first"`
	Inc   int64 `json:"inc"`
	Last  int64 `json:"last"`
}

type Seq struct{}

func (Seq) Name() string { return "seq" }

func (Seq) Schema() *Schema { return schemaFor(&SeqArgs{}) }

func (Seq) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	if len(args.Positional) != 3 {
		return scope.Failure(2, "seq: expected FIRST INC LAST")
	}
	nums := make([]int64, 3)
	for i := 0; i < 3; i++ {
		v, _ := args.Pos(i)
		n, err := strconv.ParseInt(eval.FormatValue(v), 10, 64)
		if err != nil {
			return scope.Failure(2, "seq: non-integer argument "+eval.FormatValue(v))
		}
		nums[i] = n
	}
	first, inc, last := nums[0], nums[1], nums[2]
	if inc == 0 {
		return scope.Failure(2, "seq: increment must be nonzero")
	}

	var b strings.Builder
	if inc > 0 {
		for n := first; n <= last; n += inc {
			fmt.Fprintf(&b, "%d\n", n)
		}
	} else {
		for n := first; n >= last; n += inc {
			fmt.Fprintf(&b, "%d\n", n)
		}
	}
	return scope.Success(b.String())
}
