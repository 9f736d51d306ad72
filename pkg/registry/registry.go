// Package registry maps declarative node types to the resolvers that turn
// their literal props into runtime objects.
package registry

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/schema"
)

// Resolver builds the runtime object of a declarative node from its props.
type Resolver func(ctx context.Context, props map[string]any) (any, error)

// Invocable is implemented by runtime objects that run as graph steps of
// their own. They receive a keyword set instead of positional arguments.
type Invocable interface {
	Invoke(ctx context.Context, kwargs map[string]any) (any, error)
}

// Outputter lets a runtime object publish something other than itself on
// its output port.
type Outputter interface {
	Output() any
}

// Keyword names passed to an Invocable.
const (
	KwInput  = "input"
	KwModel  = "llm"
	KwTools  = "tools"
	KwMemory = "memory"
)

// DefaultFallbackProp is the prop an invocable node reads its input from
// when nothing is linked to its input port.
const DefaultFallbackProp = "fallback"

// Descriptor declares one node type. FallbackProp overrides
// DefaultFallbackProp for invocable types.
type Descriptor struct {
	Type         string         `json:"type" yaml:"type"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Props        schema.Schema  `json:"props,omitempty" yaml:"props,omitempty"`
	Defaults     map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Ports        []domain.Port  `json:"ports,omitempty" yaml:"ports,omitempty"`
	Invocable    bool           `json:"invocable" yaml:"invocable"`
	FallbackProp string         `json:"fallback_prop,omitempty" yaml:"fallback_prop,omitempty"`
	Resolve      Resolver       `json:"-" yaml:"-"`
}

// Fallback returns the prop name used when an invocable node has no input.
func (d Descriptor) Fallback() string {
	if d.FallbackProp != "" {
		return d.FallbackProp
	}
	return DefaultFallbackProp
}

func (d Descriptor) check() error {
	if d.Type == "" {
		return fmt.Errorf("descriptor has no type")
	}
	if d.Resolve == nil {
		return fmt.Errorf("type %s: resolver is nil", d.Type)
	}
	if err := d.Props.Check(); err != nil {
		return fmt.Errorf("type %s: %w", d.Type, err)
	}
	for key, v := range d.Defaults {
		typ, declared := d.Props[key]
		if !declared {
			return fmt.Errorf("type %s: default for undeclared prop %q", d.Type, key)
		}
		if err := typ.Validate(v); err != nil {
			return fmt.Errorf("type %s: default %q: %w", d.Type, key, err)
		}
	}
	return nil
}

// Registry holds the descriptors known to one engine. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Descriptor
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{types: make(map[string]Descriptor)}
}

// NewWithBuiltins returns a registry holding the builtin types.
func NewWithBuiltins() *Registry {
	r := New()
	for _, d := range Builtins() {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds or replaces a type. The descriptor's schema and defaults are
// checked here, before any node of the type is resolved.
func (r *Registry) Register(d Descriptor) error {
	if err := d.check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[d.Type] = d
	return nil
}

// RegisterFunc registers a type with no declared props.
func (r *Registry) RegisterFunc(typeID string, fn Resolver) error {
	return r.Register(Descriptor{Type: typeID, Resolve: fn})
}

// Has reports whether typeID has a resolver.
func (r *Registry) Has(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[typeID]
	return ok
}

// Descriptor returns the descriptor of typeID.
func (r *Registry) Descriptor(typeID string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[typeID]
	return d, ok
}

// Types returns the registered type ids, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.types))
}

// Descriptors returns every descriptor, sorted by type.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.types))
	for _, t := range slices.Sorted(maps.Keys(r.types)) {
		out = append(out, r.types[t])
	}
	return out
}

// Resolve builds the runtime object for a node of typeID. Unknown types
// return a *domain.ResolutionError listing the registered ones.
func (r *Registry) Resolve(ctx context.Context, typeID string, props map[string]any) (any, error) {
	d, ok := r.Descriptor(typeID)
	if !ok {
		return nil, &domain.ResolutionError{Type: typeID, Known: r.Types()}
	}
	props = schema.Fill(props, d.Defaults)
	if err := schema.Validate(d.Props, props); err != nil {
		return nil, fmt.Errorf("type %s: %w", typeID, err)
	}
	obj, err := d.Resolve(ctx, props)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", typeID, err)
	}
	return obj, nil
}

// Annotate returns a copy of g with the declared ports of every known
// declarative type filled in.
func (r *Registry) Annotate(g domain.Graph) domain.Graph {
	out := domain.Graph{Nodes: make([]domain.Node, len(g.Nodes)), Edges: g.Edges}
	for i, n := range g.Nodes {
		if n.Role == domain.RoleDeclarative && n.Ports == nil {
			if d, ok := r.Descriptor(n.NodeType); ok && len(d.Ports) > 0 {
				n.Ports = slices.Clone(d.Ports)
			}
		}
		out.Nodes[i] = n
	}
	return out
}

// PrimaryOutput is the value a resolved object publishes on its output port.
func PrimaryOutput(obj any) any {
	if o, ok := obj.(Outputter); ok {
		return o.Output()
	}
	return obj
}
