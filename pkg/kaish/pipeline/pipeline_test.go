package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/job"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/tools/builtins"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*Runner, *scope.Scope) {
	t.Helper()
	router := vfs.NewRouter()
	require.NoError(t, router.Mount("/", vfs.NewMemoryFs()))

	registry := tools.NewRegistry()
	builtins.Register(registry)

	r := NewRunner(registry, nil, router, job.NewManager(), nil, Policy{AllowExternal: false})
	return r, scope.New()
}

func command(name string, positional ...ast.Value) *ast.Command {
	args := make([]ast.Arg, len(positional))
	for i, v := range positional {
		args[i] = ast.Arg{Kind: ast.ArgPositional, Value: ast.NewLiteral(ast.Span{}, v)}
	}
	return ast.NewCommand(ast.Span{}, name, args, nil)
}

func TestRunner_SingleBuiltinCommand(t *testing.T) {
	r, s := newTestRunner(t)
	p := ast.NewPipeline(ast.Span{}, []*ast.Command{command("echo", ast.StringValue("hi"))}, false)

	res := r.Run(context.Background(), p, s, "/")
	require.True(t, res.OK())
	assert.Equal(t, "hi\n", res.Out)
}

func TestRunner_PipesStdoutIntoNextStage(t *testing.T) {
	r, s := newTestRunner(t)
	p := ast.NewPipeline(ast.Span{}, []*ast.Command{
		command("echo", ast.StringValue("apple"), ast.StringValue("banana")),
		command("grep", ast.StringValue("^a")),
	}, false)

	res := r.Run(context.Background(), p, s, "/")
	require.True(t, res.OK())
	assert.Equal(t, "apple banana\n", res.Out)
}

func TestRunner_UnknownCommandWithExternalDisabled(t *testing.T) {
	r, s := newTestRunner(t)
	p := ast.NewPipeline(ast.Span{}, []*ast.Command{command("totally-unknown-tool")}, false)

	res := r.Run(context.Background(), p, s, "/")
	assert.False(t, res.OK())
	assert.Equal(t, 127, res.Code)
}

func TestRunner_BackgroundPipelineReturnsJobTag(t *testing.T) {
	r, s := newTestRunner(t)
	p := ast.NewPipeline(ast.Span{}, []*ast.Command{command("echo", ast.StringValue("bg"))}, true)

	res := r.Run(context.Background(), p, s, "/")
	require.True(t, res.OK())
	assert.Equal(t, "[1]", res.Out)

	require.Eventually(t, func() bool {
		status, ok := r.Jobs.GetStatusString(1)
		return ok && status == "done:0"
	}, time.Second, 5*time.Millisecond)
}

func TestRunner_StdoutRedirectWritesToVFS(t *testing.T) {
	r, s := newTestRunner(t)
	cmd := command("echo", ast.StringValue("logged"))
	cmd.Redirects = []ast.Redirect{{
		Kind:   ast.RedirectStdoutOverwrite,
		Target: ast.NewLiteral(ast.Span{}, ast.StringValue("/out.txt")),
	}}
	p := ast.NewPipeline(ast.Span{}, []*ast.Command{cmd}, false)

	res := r.Run(context.Background(), p, s, "/")
	require.True(t, res.OK())

	data, err := r.VFS.Read(context.Background(), "/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "logged\n", string(data))
}

func TestRunner_ExternalCommandWithoutTerminalStaysNonInteractive(t *testing.T) {
	router := vfs.NewRouter()
	require.NoError(t, router.Mount("/", vfs.NewMemoryFs()))
	local, err := vfs.NewLocalFs(t.TempDir(), false)
	require.NoError(t, err)
	require.NoError(t, router.Mount("/host", local))

	registry := tools.NewRegistry()
	builtins.Register(registry)
	r := NewRunner(registry, nil, router, job.NewManager(), nil, Policy{AllowExternal: true})
	require.Nil(t, r.Terminal)

	p := ast.NewPipeline(ast.Span{}, []*ast.Command{command("true")}, false)
	res := r.Run(context.Background(), p, scope.New(), "/host")
	assert.True(t, res.OK())
}
