package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/holon/pkg/domain"
)

// GraphOverlay contains run state to visualize on the graph.
type GraphOverlay struct {
	// Executed lists node ids in execution order.
	Executed []string
	// Failed is the node that stopped the run, if any.
	Failed string
}

// OverlayFromResult builds an overlay from a finished run.
func OverlayFromResult(res *domain.RunResult) *GraphOverlay {
	if res == nil {
		return nil
	}
	return &GraphOverlay{Executed: res.Order, Failed: res.FailedNode}
}

// GenerateMermaid produces a Mermaid flowchart of a graph.
// It applies semantic styling:
// - Workflow: ([Stadium])
// - Step: [Rectangle]
// - Declarative: [/Parallelogram/] labelled with its type
// - Start pseudo-node: ((Circle)), only when a link uses it
// Call edges are solid arrows; explicit links are dotted and carry their
// ports. Overlay styles are applied when overlay is not nil.
func GenerateMermaid(g domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, e := range g.Edges {
		if e.Source == domain.StartNodeID || e.Target == domain.StartNodeID {
			fmt.Fprintf(&sb, "    %s((\"start\"))\n", sanitizeMermaidID(domain.StartNodeID))
			break
		}
	}

	for _, node := range g.Nodes {
		safeID := sanitizeMermaidID(node.ID)
		text := escapeLabel(node.Name)

		opener, closer := "[", "]"
		switch node.Role {
		case domain.RoleWorkflow:
			opener, closer = "([", "])"
		case domain.RoleDeclarative:
			opener, closer = "[/", "/]"
			name := node.Label
			if name == "" {
				name = node.ID
			}
			text = fmt.Sprintf("%s <br/> <i>%s</i>", escapeLabel(name), escapeLabel(node.NodeType))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, text, closer)
	}

	for _, e := range g.Edges {
		from, to := sanitizeMermaidID(e.Source), sanitizeMermaidID(e.Target)
		if e.Kind == domain.EdgeLink {
			ports := escapeLabel(fmt.Sprintf("%s → %s", e.SourcePort, e.TargetPort))
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, ports, to)
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme.
		sb.WriteString("    classDef executed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Executed {
			safeID := sanitizeMermaidID(id)
			if id == overlay.Failed || seen[safeID] || safeID == "" {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s executed;\n", safeID)
		}
		if overlay.Failed != "" {
			fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeMermaidID(overlay.Failed))
		}
	}

	return sb.String()
}

var idReplacer = strings.NewReplacer(
	".", "_",
	"-", "_",
	"/", "_",
	"\\", "_",
	":", "__",
	"@", "at_",
)

func sanitizeMermaidID(id string) string {
	return idReplacer.Replace(id)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
