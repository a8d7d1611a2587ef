package builtins

import (
	"fmt"

	"github.com/kaishlang/kaish/pkg/kaish/outputlimit"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

type KaishOutputLimitArgs struct {
	Subcommand string `json:"subcommand" jsonschema:"enum=status,description=only 'status' is supported"`
}

// KaishOutputLimit reports the active output-limit configuration and how
// many spill files this process has written, per the component's own
// introspection surface (spec §4.9).
type KaishOutputLimit struct{}

func (KaishOutputLimit) Name() string { return "kaish-output-limit" }

func (KaishOutputLimit) Schema() *Schema { return schemaFor(&KaishOutputLimitArgs{}) }

func (KaishOutputLimit) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	sub, _ := firstPositionalString(args)
	if sub != "" && sub != "status" {
		return scope.Failure(2, "kaish-output-limit: unknown subcommand "+sub)
	}
	if ec.OutputLimit == nil {
		return scope.Success("output limiting disabled\n")
	}
	cfg := ec.OutputLimit.Config
	out := fmt.Sprintf(
		"max_bytes=%d head_bytes=%d tail_bytes=%d spill_dir=%s spills_written=%d\n",
		cfg.MaxBytes, cfg.HeadBytes, cfg.TailBytes, ec.OutputLimit.SpillDir, outputlimit.SpillCount(),
	)
	return scope.Success(out)
}
