package builtins

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
)

// JqArgs: jq '.field.path' reads JSON from stdin and extracts a value at
// a dotted field/index path, the minimal subset spec §9 anticipates
// ("downstream builtins like jq re-parse as needed").
type JqArgs struct {
	Path string `json:"path" jsonschema:"description=dotted field path, e.g. .items.0.name"`
}

type Jq struct{}

func (Jq) Name() string { return "jq" }

func (Jq) Schema() *Schema { return schemaFor(&JqArgs{}) }

func (Jq) Execute(args tools.ToolArgs, ec *tools.ExecContext) scope.ExecResult {
	path, ok := firstPositionalString(args)
	if !ok {
		return scope.Failure(2, "jq: missing path argument")
	}

	var doc any
	if err := json.Unmarshal(ec.Stdin, &doc); err != nil {
		return scope.Failure(1, "jq: invalid JSON input: "+err.Error())
	}

	val, err := jqWalk(doc, path)
	if err != nil {
		return scope.Failure(1, "jq: "+err.Error())
	}

	if s, ok := val.(string); ok {
		return scope.Success(s + "\n")
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return scope.Failure(1, "jq: "+err.Error())
	}
	return scope.Success(string(raw) + "\n")
}

func jqWalk(doc any, path string) (any, error) {
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return doc, nil
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("no element at index %d", idx)
			}
			cur = arr[idx]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot index non-object with field %q", seg)
		}
		v, ok := obj[seg]
		if !ok {
			return nil, fmt.Errorf("no field %q", seg)
		}
		cur = v
	}
	return cur, nil
}
