package pipeline

import (
	"fmt"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/eval"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

// applyRedirects implements spec §4.10 step 3 after a command has run:
// `>`, `>>`, `2>`, `&>` are applied by writing the command's ExecResult
// streams into VFS paths (builtins never touch a real file descriptor
// directly). `<` is read into the command's stdin by execute before the
// command runs.
func (r *Runner) applyRedirects(ec *tools.ExecContext, cmd *ast.Command, res *scope.ExecResult) error {
	for _, rd := range cmd.Redirects {
		target, err := r.Eval.Eval(rd.Target, ec.Scope)
		if err != nil {
			return err
		}
		path := resolveRedirectPath(ec.Cwd, eval.FormatValue(target))

		switch rd.Kind {
		case ast.RedirectStdin:
			data, err := r.VFS.Read(ec.Context(), path)
			if err != nil {
				return fmt.Errorf("redirect <%s: %w", path, err)
			}
			ec.Stdin = data
		case ast.RedirectStdoutOverwrite:
			if err := r.writeRedirect(ec, path, []byte(res.Out), false); err != nil {
				return err
			}
		case ast.RedirectStdoutAppend:
			if err := r.writeRedirect(ec, path, []byte(res.Out), true); err != nil {
				return err
			}
		case ast.RedirectStderr:
			if err := r.writeRedirect(ec, path, []byte(res.Err), false); err != nil {
				return err
			}
		case ast.RedirectBoth:
			combined := res.Out + res.Err
			if err := r.writeRedirect(ec, path, []byte(combined), false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) writeRedirect(ec *tools.ExecContext, path string, data []byte, appendTo bool) error {
	if appendTo {
		existing, err := r.VFS.Read(ec.Context(), path)
		if err == nil {
			data = append(existing, data...)
		}
	}
	if err := r.VFS.Write(ec.Context(), path, data); err != nil {
		return fmt.Errorf("redirect >%s: %w", path, err)
	}
	return nil
}

func resolveRedirectPath(cwd, arg string) string {
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
