package extract

import (
	"fmt"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
)

// IssueKind classifies a lint finding.
type IssueKind string

const (
	IssueSkipped      IssueKind = "skipped_declaration"
	IssueDuplicate    IssueKind = "duplicate_id"
	IssueDanglingLink IssueKind = "dangling_link"
	IssueUnknownType  IssueKind = "unknown_type"
	IssueUnusedStep   IssueKind = "unused_step"
)

// Issue is something the extractor tolerated but a user probably wants to fix.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	NodeID  string    `json:"node_id,omitempty"`
	Line    int       `json:"line,omitempty"`
	Message string    `json:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", i.Line, i.Kind, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}

// Lint extracts src and reports everything the graph silently leaves out.
// known, when non-nil, tells whether a declarative type has a resolver.
func Lint(src []byte, known func(typeID string) bool) (domain.Graph, []Issue, error) {
	f, err := syntax.Parse(src)
	if err != nil {
		return domain.Graph{}, nil, err
	}
	g, issues := build(f)

	if known != nil {
		for _, n := range g.NodesByRole(domain.RoleDeclarative) {
			if !known(n.NodeType) {
				issues = append(issues, Issue{Kind: IssueUnknownType, NodeID: n.ID,
					Message: fmt.Sprintf("no resolver registered for type %q", n.NodeType)})
			}
		}
	}

	used := make(map[string]bool)
	for _, e := range g.Edges {
		used[e.Target] = true
		used[e.Source] = true
	}
	for _, n := range g.NodesByRole(domain.RoleStep) {
		if !used[n.ID] {
			issues = append(issues, Issue{Kind: IssueUnusedStep, NodeID: n.ID,
				Message: fmt.Sprintf("step %s is never called by a workflow", n.Name)})
		}
	}
	return g, issues, nil
}
