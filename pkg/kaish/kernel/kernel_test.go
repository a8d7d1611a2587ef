package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaishlang/kaish/pkg/kaish/outputlimit"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/tools/builtins"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	router := vfs.NewRouter()
	require.NoError(t, router.Mount("/", vfs.NewMemoryFs()))
	require.NoError(t, router.Mkdir(context.Background(), "/sub"))

	registry := tools.NewRegistry()
	builtins.Register(registry)

	return New(registry, router, Options{
		ValidateBeforeExecute: true,
		OutputLimit:           outputlimit.DefaultConfig(),
	})
}

func TestKernel_AssignmentAndVarInterpolation(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	res, err := k.Execute(ctx, "set x = 5\necho ${x}\n")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "5\n", res.Out)

	v, ok := k.GetVar("x")
	require.True(t, ok)
	assert.Equal(t, int64(5), v.Int)
}

func TestKernel_IfElse(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	res, err := k.Execute(ctx, "if true; then\necho yes\nelse\necho no\nfi\n")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "yes\n", res.Out)

	res, err = k.Execute(ctx, "if false; then\necho yes\nelse\necho no\nfi\n")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "no\n", res.Out)
}

func TestKernel_ForLoopAccumulatesLastResult(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	res, err := k.Execute(ctx, "for i in [1, 2, 3]; do\necho ${i}\ndone\n")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "3\n", res.Out)
}

func TestKernel_ForLoopBreak(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	res, err := k.Execute(ctx, "for i in [1, 2, 3]; do\nif ${i} > 1; then\nbreak\nfi\necho ${i}\ndone\n")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "1\n", res.Out)
}

func TestKernel_ForLoopContinue(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	res, err := k.Execute(ctx, "for i in [1, 2, 3]; do\nif ${i} > 1; then\ncontinue\nfi\necho ${i}\ndone\n")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "1\n", res.Out)
}

func TestKernel_BreakOutsideLoopFails(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	res, err := k.Execute(ctx, "break\n")
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, 2, res.Code)
}

func TestKernel_UserToolDefinitionAndReturn(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	res, err := k.Execute(ctx, "tool double n:int {\nreturn ${n}\n}\ndouble n=21\n")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "21", res.Out)
}

func TestKernel_UserToolParentScopeIsolation(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	res, err := k.Execute(ctx, "set secret = 99\ntool leak {\necho ${secret}\n}\nleak\n")
	require.NoError(t, err)
	assert.False(t, res.OK())
}

func TestKernel_AndOrChainShortCircuit(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	res, err := k.Execute(ctx, "echo first && echo second\n")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "second\n", res.Out)

	res, err = k.Execute(ctx, "rm /nope || echo fallback\n")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "fallback\n", res.Out)
}

func TestKernel_SetCwdRejectsNonDirectory(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	require.NoError(t, k.SetCwd(ctx, "/sub"))
	assert.Equal(t, "/sub", k.Cwd())

	_, err := k.Execute(ctx, "write /file.txt hi\n")
	require.NoError(t, err)
	err = k.SetCwd(ctx, "/file.txt")
	assert.Error(t, err)
}

func TestKernel_ToolSchemasMergesBuiltinsAndUserTools(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	_, err := k.Execute(ctx, "tool greet name {\necho ${name}\n}\n")
	require.NoError(t, err)

	schemas := k.ToolSchemas()
	_, hasEcho := schemas["echo"]
	_, hasGreet := schemas["greet"]
	assert.True(t, hasEcho)
	assert.True(t, hasGreet)
}

func TestKernel_Reset(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	_, err := k.Execute(ctx, "set x = 1\n")
	require.NoError(t, err)
	require.NoError(t, k.SetCwd(ctx, "/sub"))

	require.NoError(t, k.Reset(ctx))

	_, ok := k.GetVar("x")
	assert.False(t, ok)
	assert.Equal(t, "/", k.Cwd())
}

func TestKernel_ShutdownWithIdleJobManager(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	require.NoError(t, k.Shutdown(ctx))
}
