package module

import (
	"fmt"
	"go/ast"
	"maps"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/extract"
)

// Declaration is one annotated top-level declaration of a loaded module.
type Declaration struct {
	Name   string      `json:"name"`
	NodeID string      `json:"node_id"`
	Role   domain.Role `json:"role"`
	// Marker is the annotation as written, e.g. "holon.node".
	Marker string            `json:"marker,omitempty"`
	Args   map[string]string `json:"args,omitempty"`
	// Params lists the parameter names of steps and workflows.
	Params []string `json:"params,omitempty"`
	// NodeType and Props are set for declarative nodes.
	NodeType string         `json:"node_type,omitempty"`
	Props    map[string]any `json:"props,omitempty"`
}

// Module is a loaded workflow source.
type Module struct {
	graph     domain.Graph
	decls     []Declaration
	byName    map[string]int
	funcs     map[string]bool
	workflows map[string]*Workflow
	impls     map[string]Func
}

// Load parses src, plans every workflow and binds steps. Explicit bindings
// win over expression steps; bindings for names that are not steps are
// ignored.
func Load(src []byte, bindings Bindings) (*Module, error) {
	f, err := syntax.Parse(src)
	if err != nil {
		return nil, err
	}
	g, err := extract.Extract(src)
	if err != nil {
		return nil, err
	}

	m := &Module{
		graph:     g,
		byName:    make(map[string]int),
		funcs:     make(map[string]bool),
		workflows: make(map[string]*Workflow),
		impls:     make(map[string]Func),
	}
	for _, d := range f.AST.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Recv == nil {
			m.funcs[fn.Name.Name] = true
		}
	}

	decls := f.Decls()
	steps := make(map[string]bool)
	for _, d := range decls {
		if d.Kind == syntax.DeclStep {
			steps[d.Name] = true
		}
	}

	for _, d := range decls {
		decl := Declaration{Name: d.Name, Marker: d.Marker.Qualified, Args: d.Marker.Args}
		switch d.Kind {
		case syntax.DeclStep:
			decl.Role, decl.NodeID, decl.Params = domain.RoleStep, domain.StepID(d.Name), params(d.Func)
			if fn, ok := expressionStep(d.Func); ok {
				m.impls[d.Name] = fn
			}
		case syntax.DeclWorkflow:
			decl.Role, decl.NodeID, decl.Params = domain.RoleWorkflow, domain.WorkflowID(d.Name), params(d.Func)
			m.workflows[d.Name] = compileWorkflow(f, d.Func, steps)
		case syntax.DeclSpecCall, syntax.DeclSpecClass:
			id, ok := syntax.DeclarativeID(d)
			n, found := g.Node(id)
			if !ok || !found {
				// skipped by the extractor
				continue
			}
			decl.Role, decl.NodeID, decl.NodeType, decl.Props = domain.RoleDeclarative, id, n.NodeType, n.Props
		}
		if _, dup := m.byName[decl.Name]; !dup && decl.Name != "_" {
			m.byName[decl.Name] = len(m.decls)
		}
		m.decls = append(m.decls, decl)
	}

	for name, fn := range bindings {
		if steps[name] && fn != nil {
			m.impls[name] = fn
		}
	}
	return m, nil
}

// Graph returns the extracted graph.
func (m *Module) Graph() domain.Graph { return m.graph }

// Declarations returns every annotated declaration in source order.
func (m *Module) Declarations() []Declaration { return m.decls }

// Declaration looks a declaration up by its Go name.
func (m *Module) Declaration(name string) (Declaration, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Declaration{}, false
	}
	return m.decls[i], true
}

// Props returns the props of a declarative declaration.
func (m *Module) Props(name string) (map[string]any, bool) {
	d, ok := m.Declaration(name)
	if !ok || d.Role != domain.RoleDeclarative {
		return nil, false
	}
	return maps.Clone(d.Props), true
}

// Workflow returns the call plan of a workflow. A declaration of that name
// without the workflow annotation yields domain.ErrNotAWorkflow.
func (m *Module) Workflow(name string) (*Workflow, error) {
	if w, ok := m.workflows[name]; ok {
		return w, nil
	}
	if _, ok := m.byName[name]; ok || m.funcs[name] {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotAWorkflow, name)
	}
	return nil, &domain.NotFoundError{Kind: "workflow", Name: name}
}

// Workflows returns the workflow names in source order.
func (m *Module) Workflows() []string {
	var out []string
	for _, d := range m.decls {
		if d.Role == domain.RoleWorkflow {
			out = append(out, d.Name)
		}
	}
	return out
}

// Binding returns the implementation of a step.
func (m *Module) Binding(step string) (Func, bool) {
	fn, ok := m.impls[step]
	return fn, ok
}

// Params returns the parameter names of a step or workflow.
func (m *Module) Params(name string) []string {
	d, ok := m.Declaration(name)
	if !ok {
		return nil
	}
	return d.Params
}
