package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/extract"
	"github.com/aretw0/holon/pkg/registry"
)

// GraphMarkdown lists the nodes and edges of a graph as markdown tables.
func GraphMarkdown(title string, g domain.Graph) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)

	fmt.Fprintf(&sb, "## Nodes (%d)\n\n", len(g.Nodes))
	if len(g.Nodes) == 0 {
		sb.WriteString("_none_\n\n")
	} else {
		sb.WriteString("| ID | Role | Type | Ports |\n|---|---|---|---|\n")
		for _, n := range g.Nodes {
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", n.ID, n.Role, cell(n.NodeType), cell(ports(n.Ports)))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## Edges (%d)\n\n", len(g.Edges))
	if len(g.Edges) == 0 {
		sb.WriteString("_none_\n")
		return sb.String()
	}
	sb.WriteString("| Source | Target | Kind |\n|---|---|---|\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "| `%s` | `%s` | %s |\n", endpoint(e.Source, e.SourcePort), endpoint(e.Target, e.TargetPort), e.Kind)
	}
	return sb.String()
}

// IssuesMarkdown lists lint findings, or states that there are none.
func IssuesMarkdown(issues []extract.Issue) string {
	if len(issues) == 0 {
		return "**No issues found.**\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%d issue(s) found.**\n\n| Line | Kind | Node | Message |\n|---|---|---|---|\n", len(issues))
	for _, i := range issues {
		line := ""
		if i.Line > 0 {
			line = fmt.Sprint(i.Line)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", cell(line), i.Kind, cell(i.NodeID), escapeCell(i.Message))
	}
	return sb.String()
}

func ports(ps []domain.Port) string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		dir := "out"
		if p.Input {
			dir = "in"
		}
		names = append(names, fmt.Sprintf("%s:%s", dir, p.Name))
	}
	return strings.Join(names, ", ")
}

func endpoint(id, port string) string {
	if port == "" {
		return id
	}
	return id + "." + port
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return escapeCell(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// TypesMarkdown lists registered declarative types with their props and ports.
func TypesMarkdown(descs []registry.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Types (%d)\n\n", len(descs))
	if len(descs) == 0 {
		sb.WriteString("_none_\n")
		return sb.String()
	}
	sb.WriteString("| Type | Props | Ports | Invocable | Description |\n|---|---|---|---|---|\n")
	for _, d := range descs {
		props := make([]string, 0, len(d.Props))
		for _, k := range slices.Sorted(maps.Keys(d.Props)) {
			props = append(props, k+": "+d.Props[k].Name())
		}
		invocable := "no"
		if d.Invocable {
			invocable = "yes"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | %s |\n",
			d.Type, cell(strings.Join(props, ", ")), cell(ports(d.Ports)), invocable, cell(d.Description))
	}
	return sb.String()
}
