package extract

import (
	"fmt"
	"go/ast"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
)

// Extract parses src and returns the graph it describes.
// The only possible error wraps domain.ErrSyntaxInvalid.
func Extract(src []byte) (domain.Graph, error) {
	f, err := syntax.Parse(src)
	if err != nil {
		return domain.Graph{}, err
	}
	g, _ := build(f)
	return g, nil
}

// build runs the extraction and also returns what it had to skip, for Lint.
func build(f *syntax.File) (domain.Graph, []Issue) {
	var (
		g      = domain.Graph{Nodes: []domain.Node{}, Edges: []domain.Edge{}}
		issues []Issue
		seen   = make(map[string]bool)
		steps  = make(map[string]bool)
	)

	add := func(n domain.Node, line int) {
		if seen[n.ID] {
			issues = append(issues, Issue{Kind: IssueDuplicate, NodeID: n.ID, Line: line,
				Message: fmt.Sprintf("%s is declared more than once; the first declaration wins", n.ID)})
			return
		}
		seen[n.ID] = true
		g.Nodes = append(g.Nodes, n)
	}

	decls := f.Decls()
	for _, d := range decls {
		line := f.Fset.Position(f.AST.Package).Line
		if d.Func != nil {
			line = f.Fset.Position(d.Func.Pos()).Line
		} else if d.Spec != nil {
			line = f.Fset.Position(d.Spec.Pos()).Line
		}

		switch d.Kind {
		case syntax.DeclStep:
			steps[d.Name] = true
			add(domain.Node{ID: domain.StepID(d.Name), Name: d.Name, Role: domain.RoleStep}, line)
		case syntax.DeclWorkflow:
			add(domain.Node{ID: domain.WorkflowID(d.Name), Name: d.Name, Role: domain.RoleWorkflow}, line)
		case syntax.DeclSpecCall, syntax.DeclSpecClass:
			n, reason, ok := declarative(d)
			if !ok {
				issues = append(issues, Issue{Kind: IssueSkipped, NodeID: d.Name, Line: line, Message: reason})
				continue
			}
			add(n, line)
		}
	}

	edgeSeen := make(map[domain.Edge]bool)
	for _, d := range decls {
		if d.Kind != syntax.DeclWorkflow {
			continue
		}
		wf := domain.WorkflowID(d.Name)
		syntax.CallsInScope(d.Func.Body, func(call *ast.CallExpr, nested bool) {
			var e domain.Edge
			if args, ok := syntax.LinkArgs(call); ok {
				e = domain.LinkEdge(args[0], args[1], args[2], args[3])
			} else if name, ok := syntax.BareCallee(call); ok && !nested && steps[name] {
				e = domain.CallEdge(wf, domain.StepID(name))
			} else {
				return
			}
			if edgeSeen[e] {
				return
			}
			edgeSeen[e] = true
			if !g.Has(e.Source) || !g.Has(e.Target) {
				issues = append(issues, Issue{Kind: IssueDanglingLink, NodeID: wf,
					Line:    f.Fset.Position(call.Pos()).Line,
					Message: fmt.Sprintf("link %s.%s -> %s.%s references an unknown node", e.Source, e.SourcePort, e.Target, e.TargetPort)})
				return
			}
			g.Edges = append(g.Edges, e)
		})
	}

	return g, issues
}
