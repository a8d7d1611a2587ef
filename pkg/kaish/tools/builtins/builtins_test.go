package builtins

import (
	"context"
	"testing"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/tools"
	"github.com/kaishlang/kaish/pkg/kaish/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecContext(t *testing.T) *tools.ExecContext {
	t.Helper()
	router := vfs.NewRouter()
	require.NoError(t, router.Mount("/", vfs.NewMemoryFs()))
	return tools.NewExecContext(context.Background(), router, nil, "/")
}

func argsOf(values ...ast.Value) tools.ToolArgs {
	a := tools.NewToolArgs()
	a.Positional = values
	return a
}

func TestEcho_JoinsAndAppendsNewline(t *testing.T) {
	ec := newTestExecContext(t)
	res := Echo{}.Execute(argsOf(ast.StringValue("hello"), ast.StringValue("world")), ec)
	assert.True(t, res.OK())
	assert.Equal(t, "hello world\n", res.Out)
}

func TestEcho_NFlagSuppressesNewline(t *testing.T) {
	ec := newTestExecContext(t)
	a := argsOf(ast.StringValue("hi"))
	a.Flags["n"] = true
	res := Echo{}.Execute(a, ec)
	assert.Equal(t, "hi", res.Out)
}

func TestWriteThenCat_RoundTrips(t *testing.T) {
	ec := newTestExecContext(t)

	w := Write{}.Execute(argsOf(ast.StringValue("/greeting.txt"), ast.StringValue("hi there")), ec)
	require.True(t, w.OK())

	res := Cat{}.Execute(argsOf(ast.StringValue("/greeting.txt")), ec)
	require.True(t, res.OK())
	assert.Equal(t, "hi there", res.Out)
}

func TestCat_MissingFileFails(t *testing.T) {
	ec := newTestExecContext(t)
	res := Cat{}.Execute(argsOf(ast.StringValue("/nope.txt")), ec)
	assert.False(t, res.OK())
	assert.Contains(t, res.Err, "no such file")
}

func TestMkdirThenLs_ListsEntry(t *testing.T) {
	ec := newTestExecContext(t)
	require.True(t, Mkdir{}.Execute(argsOf(ast.StringValue("/dir")), ec).OK())
	require.True(t, Write{}.Execute(argsOf(ast.StringValue("/dir/a.txt"), ast.StringValue("x")), ec).OK())

	res := Ls{}.Execute(argsOf(ast.StringValue("/dir")), ec)
	require.True(t, res.OK())
	assert.Contains(t, res.Out, "a.txt")
}

func TestCd_ChangesCwdAndRejectsFile(t *testing.T) {
	ec := newTestExecContext(t)
	require.True(t, Mkdir{}.Execute(argsOf(ast.StringValue("/proj")), ec).OK())

	res := Cd{}.Execute(argsOf(ast.StringValue("/proj")), ec)
	require.True(t, res.OK())
	assert.Equal(t, "/proj", ec.Cwd)

	require.True(t, Write{}.Execute(argsOf(ast.StringValue("/proj/f")), ec).OK())
	res = Cd{}.Execute(argsOf(ast.StringValue("/proj/f")), ec)
	assert.False(t, res.OK())
}

func TestPwd_ReportsCwd(t *testing.T) {
	ec := newTestExecContext(t)
	ec.Cwd = "/mnt/x"
	res := Pwd{}.Execute(tools.NewToolArgs(), ec)
	assert.Equal(t, "/mnt/x\n", res.Out)
}

func TestRm_RemovesFile(t *testing.T) {
	ec := newTestExecContext(t)
	require.True(t, Write{}.Execute(argsOf(ast.StringValue("/x")), ec).OK())
	require.True(t, Rm{}.Execute(argsOf(ast.StringValue("/x")), ec).OK())

	res := Cat{}.Execute(argsOf(ast.StringValue("/x")), ec)
	assert.False(t, res.OK())
}

func TestSeq_GeneratesAscendingRange(t *testing.T) {
	ec := newTestExecContext(t)
	res := Seq{}.Execute(argsOf(ast.IntValue(1), ast.IntValue(1), ast.IntValue(3)), ec)
	require.True(t, res.OK())
	assert.Equal(t, "1\n2\n3\n", res.Out)
}

func TestSeq_RejectsZeroIncrement(t *testing.T) {
	ec := newTestExecContext(t)
	res := Seq{}.Execute(argsOf(ast.IntValue(1), ast.IntValue(0), ast.IntValue(3)), ec)
	assert.False(t, res.OK())
}

func TestJq_ExtractsNestedField(t *testing.T) {
	ec := newTestExecContext(t)
	ec.Stdin = []byte(`{"a":{"b":[10,20,30]}}`)
	res := Jq{}.Execute(argsOf(ast.StringValue(".a.b.1")), ec)
	require.True(t, res.OK())
	assert.Equal(t, "20\n", res.Out)
}

func TestJq_MissingFieldFails(t *testing.T) {
	ec := newTestExecContext(t)
	ec.Stdin = []byte(`{"a":1}`)
	res := Jq{}.Execute(argsOf(ast.StringValue(".missing")), ec)
	assert.False(t, res.OK())
}

func TestGrep_FiltersMatchingLines(t *testing.T) {
	ec := newTestExecContext(t)
	ec.Stdin = []byte("apple\nbanana\navocado\n")
	res := Grep{}.Execute(argsOf(ast.StringValue("^a")), ec)
	require.True(t, res.OK())
	assert.Equal(t, "apple\navocado\n", res.Out)
}

func TestMatch_TrueAndFalseCodes(t *testing.T) {
	ec := newTestExecContext(t)
	ok := Match{}.Execute(argsOf(ast.StringValue("^a"), ast.StringValue("apple")), ec)
	assert.True(t, ok.OK())

	no := Match{}.Execute(argsOf(ast.StringValue("^a"), ast.StringValue("banana")), ec)
	assert.Equal(t, 1, no.Code)
}

func TestKaishAst_ParsesSource(t *testing.T) {
	ec := newTestExecContext(t)
	res := KaishAst{}.Execute(argsOf(ast.StringValue("echo hi")), ec)
	require.True(t, res.OK())
	assert.Contains(t, res.Out, "Statements")
}

func TestKaishOutputLimit_ReportsDisabledWithoutLimiter(t *testing.T) {
	ec := newTestExecContext(t)
	res := KaishOutputLimit{}.Execute(tools.NewToolArgs(), ec)
	require.True(t, res.OK())
	assert.Contains(t, res.Out, "disabled")
}

func TestHelp_ListsRegisteredNames(t *testing.T) {
	r := tools.NewRegistry()
	Register(r)
	ec := newTestExecContext(t)

	h, ok := r.Get("help")
	require.True(t, ok)
	res := h.Execute(tools.NewToolArgs(), ec)
	require.True(t, res.OK())
	assert.Contains(t, res.Out, "echo")
	assert.Contains(t, res.Out, "jq")
}
