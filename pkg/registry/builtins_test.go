package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins_Registered(t *testing.T) {
	r := NewWithBuiltins()
	assert.Equal(t, []string{TypeProps, TypeTemplate, TypeModel, TypeMemoryBuffer, TypeTool}, r.Types())
}

func TestMemoryBuffer(t *testing.T) {
	r := NewWithBuiltins()
	ctx := context.Background()

	obj, err := r.Resolve(ctx, TypeMemoryBuffer, nil)
	require.NoError(t, err)
	b := obj.(*MessageBuffer)
	assert.Equal(t, DefaultMaxMessages, b.MaxMessages)

	// JSON numbers arrive as float64
	obj, err = r.Resolve(ctx, TypeMemoryBuffer, map[string]any{"max_messages": float64(2)})
	require.NoError(t, err)
	b = obj.(*MessageBuffer)
	b.Add("a")
	b.Add("b")
	b.Add("c")
	assert.Equal(t, []any{"b", "c"}, b.Messages())
	assert.Equal(t, 2, b.Len())
	b.Clear()
	assert.Zero(t, b.Len())

	_, err = r.Resolve(ctx, TypeMemoryBuffer, map[string]any{"max_messages": 0})
	assert.Error(t, err)
}

func TestModelAndTool(t *testing.T) {
	r := NewWithBuiltins()
	ctx := context.Background()

	obj, err := r.Resolve(ctx, TypeModel, map[string]any{"model_name": "gpt-4o", "temperature": 0.2, "max_tokens": float64(256)})
	require.NoError(t, err)
	assert.Equal(t, &ModelConfig{ModelName: "gpt-4o", Temperature: 0.2, MaxTokens: 256}, obj)

	_, err = r.Resolve(ctx, TypeModel, map[string]any{})
	assert.Error(t, err, "model_name is required")

	obj, err = r.Resolve(ctx, TypeTool, map[string]any{"name": "search", "parameters": map[string]any{"q": "string"}})
	require.NoError(t, err)
	assert.Equal(t, &ToolSpec{Name: "search", Parameters: map[string]any{"q": "string"}}, obj)
}

func TestPropertyBag(t *testing.T) {
	r := NewWithBuiltins()
	props := map[string]any{"k": "v", "n": 1}

	obj, err := r.Resolve(context.Background(), TypeProps, props)
	require.NoError(t, err)
	bag := obj.(*PropertyBag)

	v, ok := bag.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, props, PrimaryOutput(bag))

	props["k"] = "changed"
	v, _ = bag.Get("k")
	assert.Equal(t, "v", v, "bag keeps its own copy")

	assert.Equal(t, map[string]any{}, NewPropertyBag(nil).Props())
}

func TestTemplate(t *testing.T) {
	r := NewWithBuiltins()
	ctx := context.Background()

	d, ok := r.Descriptor(TypeTemplate)
	require.True(t, ok)
	assert.True(t, d.Invocable)

	obj, err := r.Resolve(ctx, TypeTemplate, map[string]any{"template": "Hello {{.input}}"})
	require.NoError(t, err)
	inv, ok := obj.(Invocable)
	require.True(t, ok)

	mem := NewMessageBuffer(5)
	out, err := inv.Invoke(ctx, map[string]any{KwInput: "world", KwMemory: mem})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
	assert.Equal(t, []any{"world", "Hello world"}, mem.Messages())

	_, err = r.Resolve(ctx, TypeTemplate, map[string]any{"template": "{{"})
	assert.Error(t, err)
}
