package patch

import (
	"fmt"
	"go/ast"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
)

// NodeSpec describes a declarative node to insert.
type NodeSpec struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Label string         `json:"label,omitempty"`
	Props map[string]any `json:"props,omitempty"`
}

// Link is an explicit port wiring.
type Link struct {
	Source     string `json:"source_id"`
	SourcePort string `json:"source_port"`
	Target     string `json:"target_id"`
	TargetPort string `json:"target_port"`
}

// NewSpecID returns a fresh id for a declarative node of the given type.
func NewSpecID(nodeType string) string {
	return domain.SpecID(nodeType, uuid.NewString())
}

// AddDeclarativeNode inserts a standalone declaration right after the
// imports, importing the dsl package if needed. An empty id is replaced by
// NewSpecID; the id actually written is returned.
func AddDeclarativeNode(src []byte, n NodeSpec) ([]byte, string, error) {
	if n.Type == "" {
		return nil, "", fmt.Errorf("declarative node type is required")
	}
	if n.ID == "" {
		n.ID = NewSpecID(n.Type)
	}

	f, err := syntax.Parse(src)
	if err != nil {
		return nil, "", err
	}
	for _, d := range f.Decls() {
		if id, ok := syntax.DeclarativeID(d); ok && id == n.ID {
			return nil, "", fmt.Errorf("%w: %s", domain.ErrDuplicateNode, n.ID)
		}
	}

	qual, edits := dslImport(f)
	text, err := renderSpec(qual, n)
	if err != nil {
		return nil, "", err
	}
	at := afterImports(f)
	sep := "\n"
	if !endsLineAt(edits, at) {
		sep = lineBreakIfNeeded(f, at) + sep
	}
	edits = append(edits, insert(at, sep+text))

	out, err := finish(f, edits)
	if err != nil {
		return nil, "", err
	}
	return out, n.ID, nil
}

// AddLink inserts a Link statement into the named workflow, before its
// trailing return when there is one and as the last statement otherwise.
func AddLink(src []byte, workflow string, l Link) ([]byte, error) {
	f, err := syntax.Parse(src)
	if err != nil {
		return nil, err
	}
	wf, ok := syntax.Find(f.Decls(), syntax.DeclWorkflow, workflow)
	if !ok {
		if _, exists := f.FindFunc(workflow); exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotAWorkflow, workflow)
		}
		return nil, &domain.NotFoundError{Kind: "workflow", Name: workflow}
	}

	qual, edits := dslImport(f)
	stmt := renderLink(qual, l)
	body := wf.Func.Body
	indent := bodyIndent(f, wf.Func)

	var anchor ast.Stmt
	if n := len(body.List); n > 0 {
		if ret, ok := body.List[n-1].(*ast.ReturnStmt); ok {
			anchor = ret
		}
	}

	switch {
	case anchor != nil && onlySpaceBefore(f, f.Offset(anchor.Pos())):
		at := f.LineStart(f.Offset(anchor.Pos()))
		edits = append(edits, insert(at, indent+stmt+"\n"))
	case anchor != nil:
		edits = append(edits, insert(f.Offset(anchor.Pos()), stmt+"; "))
	default:
		rbrace := f.Offset(body.Rbrace)
		if onlySpaceBefore(f, rbrace) {
			edits = append(edits, insert(f.LineStart(rbrace), indent+stmt+"\n"))
		} else {
			// one-line body: the brace moves to its own line, so the
			// spaces before it would be left trailing
			ws := rbrace
			for ws > 0 && (f.Src[ws-1] == ' ' || f.Src[ws-1] == '\t') {
				ws--
			}
			span := syntax.Span{Start: ws, End: rbrace}
			edits = append(edits, replace(span, "\n"+indent+stmt+"\n"+f.Indent(f.Offset(wf.Func.Pos()))))
		}
	}
	return finish(f, edits)
}

// endsLineAt reports whether one of edits inserts text ending in a newline
// at offset at.
func endsLineAt(edits []edit, at int) bool {
	for _, e := range edits {
		if e.start == at && e.end == at && strings.HasSuffix(e.text, "\n") {
			return true
		}
	}
	return false
}

// bodyIndent returns the indentation of fn's statements: that of the first
// statement on its own line, or one tab deeper than the func keyword.
func bodyIndent(f *syntax.File, fn *ast.FuncDecl) string {
	for _, s := range fn.Body.List {
		off := f.Offset(s.Pos())
		if onlySpaceBefore(f, off) {
			return f.Indent(off)
		}
	}
	return f.Indent(f.Offset(fn.Pos())) + "\t"
}
