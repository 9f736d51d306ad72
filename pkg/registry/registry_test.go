package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/schema"
)

func echo(_ context.Context, props map[string]any) (any, error) { return props, nil }

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := New()
	assert.False(t, r.Has("custom"))

	require.NoError(t, r.RegisterFunc("custom", echo))
	assert.True(t, r.Has("custom"))

	obj, err := r.Resolve(context.Background(), "custom", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, obj)
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterFunc("t", func(context.Context, map[string]any) (any, error) { return 1, nil }))
	require.NoError(t, r.RegisterFunc("t", func(context.Context, map[string]any) (any, error) { return 2, nil }))

	obj, err := r.Resolve(context.Background(), "t", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, obj)
}

func TestRegistry_UnknownTypeListsKnown(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterFunc("b", echo))
	require.NoError(t, r.RegisterFunc("a", echo))

	_, err := r.Resolve(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrResolutionMissing))

	var re *domain.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "missing", re.Type)
	assert.Equal(t, []string{"a", "b"}, re.Known)
}

func TestRegistry_RegisterChecksDescriptor(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"no type", Descriptor{Resolve: echo}},
		{"no resolver", Descriptor{Type: "t"}},
		{"nil prop type", Descriptor{Type: "t", Resolve: echo, Props: schema.Schema{"a": nil}}},
		{"undeclared default", Descriptor{Type: "t", Resolve: echo, Defaults: map[string]any{"a": 1}}},
		{"default of wrong type", Descriptor{
			Type: "t", Resolve: echo,
			Props:    schema.Schema{"a": schema.Int()},
			Defaults: map[string]any{"a": "one"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			assert.Error(t, r.Register(tt.d))
			assert.Empty(t, r.Types())
		})
	}
}

func TestRegistry_ResolveValidatesProps(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{
		Type:     "t",
		Props:    schema.Schema{"n": schema.Int(), "s": schema.Optional(schema.String())},
		Defaults: map[string]any{"s": "x"},
		Resolve:  echo,
	}))

	obj, err := r.Resolve(context.Background(), "t", map[string]any{"n": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 2, "s": "x"}, obj)

	_, err = r.Resolve(context.Background(), "t", map[string]any{"n": "two"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrResolutionMissing)
}

func TestRegistry_ResolverError(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	require.NoError(t, r.RegisterFunc("t", func(context.Context, map[string]any) (any, error) { return nil, boom }))
	_, err := r.Resolve(context.Background(), "t", nil)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_Annotate(t *testing.T) {
	r := NewWithBuiltins()
	g := domain.Graph{Nodes: []domain.Node{
		{ID: "spec:m", Name: "m", Role: domain.RoleDeclarative, NodeType: TypeMemoryBuffer},
		{ID: "spec:x", Name: "x", Role: domain.RoleDeclarative, NodeType: "unknown"},
		{ID: "node:a", Name: "a", Role: domain.RoleStep},
	}}

	out := r.Annotate(g)
	assert.Equal(t, []domain.Port{{Name: "output", Kind: domain.PortMemory}}, out.Nodes[0].Ports)
	assert.Nil(t, out.Nodes[1].Ports)
	assert.Nil(t, out.Nodes[2].Ports)
	assert.Nil(t, g.Nodes[0].Ports, "input graph must not change")
}

func TestDescriptor_Fallback(t *testing.T) {
	assert.Equal(t, "fallback", Descriptor{}.Fallback())
	assert.Equal(t, "prompt", Descriptor{FallbackProp: "prompt"}.Fallback())
}
