package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/workspace"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	return NewContext(context.Background(), workspace.NewMem(), nil, nil, "fc-1")
}

func echoTool() *FunctionTool {
	return NewFunctionTool(
		"echo",
		"Echo the input back.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ *Context, args map[string]any) (any, error) {
			return map[string]any{"echo": args["text"]}, nil
		},
	)
}

func TestRegistry_ExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	result, err := r.Execute(newTestContext(t), core.ToolCall{
		ID:        "call-1",
		Name:      "echo",
		Arguments: `{"text":"hi"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "call-1", result.CallID)
	assert.Equal(t, "echo", result.Name)
	assert.True(t, gjson.Get(result.Result, "success").Bool())
	assert.Equal(t, "hi", gjson.Get(result.Result, "echo").String())
}

func TestRegistry_ValidationFailure(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	result, err := r.Execute(newTestContext(t), core.ToolCall{
		ID:        "call-2",
		Name:      "echo",
		Arguments: `{"text":42}`,
	})
	require.Error(t, err)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.False(t, gjson.Get(result.Result, "success").Bool())
	assert.NotEmpty(t, gjson.Get(result.Result, "error").String())
}

func TestRegistry_MissingRequiredArgument(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	_, err := r.Execute(newTestContext(t), core.ToolCall{Name: "echo", Arguments: `{}`})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry()

	result, err := r.Execute(newTestContext(t), core.ToolCall{Name: "nope", Arguments: `{}`})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeNotFound, toolErr.Code)
	assert.False(t, gjson.Get(result.Result, "success").Bool())
}

func TestRegistry_PanicRecovery(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewFunctionTool(
		"boom", "Panics.",
		map[string]any{"type": "object"},
		func(*Context, map[string]any) (any, error) { panic("kaput") },
	)))

	result, err := r.Execute(newTestContext(t), core.ToolCall{Name: "boom", Arguments: `{}`})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "kaput")
	assert.False(t, gjson.Get(result.Result, "success").Bool())
}

func TestRegistry_WrapsPlainErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewFunctionTool(
		"fail", "Fails.",
		map[string]any{"type": "object"},
		func(*Context, map[string]any) (any, error) { return nil, errors.New("plain failure") },
	)))

	_, err := r.Execute(newTestContext(t), core.ToolCall{Name: "fail", Arguments: `{}`})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "plain failure")
}

func TestRegistry_DefinitionsOrder(t *testing.T) {
	r := DefaultRegistry()
	defs := r.Definitions()
	require.NotEmpty(t, defs)
	assert.Equal(t, "read_file", defs[0].Name)
	for _, def := range defs {
		assert.NotEmpty(t, def.Description, "tool %s has no description", def.Name)
		assert.NotNil(t, def.Parameters, "tool %s has no schema", def.Name)
	}
}
