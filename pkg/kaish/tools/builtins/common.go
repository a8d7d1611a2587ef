// Package builtins implements the statically-registered tool set named in
// spec §4.7 and supplemented in SPEC_FULL.md: echo, cat, ls, cd, pwd,
// mkdir, rm, write, exec, help, seq, grep, match, jq, kaish-ast, and
// kaish-output-limit. Every builtin operates on the VFS, never the host
// filesystem directly, per the component's core rule.
package builtins

import (
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

var reflector = jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}

// Schema aliases the registry's schema type so individual builtin files
// don't each need to import invopop/jsonschema directly.
type Schema = jsonschema.Schema

// schemaFor reflects a typed args struct into the introspection schema a
// tool reports through Schema() (spec §4.7: "schema (for introspection/
// help)").
func schemaFor(example any) *Schema {
	return reflector.Reflect(example)
}

// ioFailure converts a VFS error into the ExecResult shape builtins must
// return instead of propagating (spec §7: "builtins never panic on
// input"; IoError maps to ExecResult{code: 1, err: <message>}).
func ioFailure(op, path string, err error) scope.ExecResult {
	return scope.Failure(1, fmt.Sprintf("%s %s: %s", op, path, describeVfsErr(err)))
}

func describeVfsErr(err error) string {
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		return "no such file or directory"
	case errors.Is(err, vfs.ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, vfs.ErrIsADirectory):
		return "is a directory"
	case errors.Is(err, vfs.ErrNotADirectory):
		return "not a directory"
	case errors.Is(err, vfs.ErrNotEmpty):
		return "directory not empty"
	case errors.Is(err, vfs.ErrReadOnly):
		return "read-only filesystem"
	case errors.Is(err, vfs.ErrAlreadyExists):
		return "already exists"
	default:
		return err.Error()
	}
}

// resolvePath joins a possibly-relative argument against ec.Cwd the way
// every path-taking builtin needs to.
func resolvePath(cwd, arg string) string {
	if arg == "" {
		return cwd
	}
	if arg[0] == '/' {
		return vfs.Normalize(arg)
	}
	if cwd == "/" {
		return vfs.Normalize("/" + arg)
	}
	return vfs.Normalize(cwd + "/" + arg)
}

// firstPositionalString extracts args.Positional[0] formatted as a
// string, the common case for single-path builtins.
func firstPositionalString(args tools.ToolArgs) (string, bool) {
	v, ok := args.Pos(0)
	if !ok {
		return "", false
	}
	return eval.FormatValue(v), true
}
