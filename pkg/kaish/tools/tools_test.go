package tools

import (
	"context"
	"testing"

	"github.com/invopop/jsonschema"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct{ name string }

func (s stubTool) Name() string                                     { return s.name }
func (s stubTool) Schema() *jsonschema.Schema                       { return &jsonschema.Schema{} }
func (s stubTool) Execute(ToolArgs, *ExecContext) scope.ExecResult  { return scope.Success(s.name) }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubTool{"alpha"}))

	tool, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", tool.Name())
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubTool{"alpha"}))
	err := r.Register(stubTool{"alpha"})
	assert.Error(t, err)
}

func TestRegistry_NamesPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubTool{"beta"}))
	require.NoError(t, r.Register(stubTool{"alpha"}))
	assert.Equal(t, []string{"beta", "alpha"}, r.Names())
}

func TestRegistry_SchemasCoversEveryTool(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubTool{"alpha"}))
	require.NoError(t, r.Register(stubTool{"beta"}))
	schemas := r.Schemas()
	assert.Len(t, schemas, 2)
}

func TestToolArgs_AccessorsReportAbsence(t *testing.T) {
	a := NewToolArgs()
	_, ok := a.Pos(0)
	assert.False(t, ok)
	assert.False(t, a.Flag("x"))
	_, ok = a.GetNamed("x")
	assert.False(t, ok)
}

func TestToolArgs_PosStringFormatsWithGivenFormatter(t *testing.T) {
	a := ToolArgs{Positional: []ast.Value{ast.IntValue(42)}}
	s, ok := a.PosString(0, func(v ast.Value) string { return "N" })
	require.True(t, ok)
	assert.Equal(t, "N", s)
}

func TestExecContext_WithContextDoesNotMutateOriginal(t *testing.T) {
	ec := NewExecContext(context.Background(), nil, nil, "/")
	type key struct{}
	child := ec.WithContext(context.WithValue(context.Background(), key{}, "v"))
	assert.NotSame(t, ec, child)
	assert.Nil(t, ec.Context().Value(key{}))
	assert.Equal(t, "v", child.Context().Value(key{}))
}
