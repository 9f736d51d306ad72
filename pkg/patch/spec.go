package patch

import (
	"fmt"
	"go/ast"
	"strconv"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
)

// SpecPatch lists the fields of a declarative node to rewrite. Fields whose
// Set flag is false are left exactly as written. Setting Label to "" or
// Props to nil removes the field.
type SpecPatch struct {
	SetType  bool           `json:"set_type"`
	Type     string         `json:"type,omitempty"`
	SetLabel bool           `json:"set_label"`
	Label    string         `json:"label,omitempty"`
	SetProps bool           `json:"set_props"`
	Props    map[string]any `json:"props,omitempty"`
}

// PatchDeclarativeNode rewrites the flagged fields of the first standalone
// declaration whose literal ID is id.
func PatchDeclarativeNode(src []byte, id string, p SpecPatch) ([]byte, error) {
	if p.SetType && p.Type == "" {
		return nil, fmt.Errorf("declarative node %s: type cannot be empty", id)
	}

	f, err := syntax.Parse(src)
	if err != nil {
		return nil, err
	}
	var target syntax.Decl
	found := false
	for _, d := range f.Decls() {
		if got, ok := syntax.SpecCallID(d); ok && got == id {
			target, found = d, true
			break
		}
	}
	if !found {
		return nil, &domain.NotFoundError{Kind: "declarative node", Name: id}
	}
	qual, _ := f.DSLQualifier()

	var changes []fieldChange
	if p.SetType {
		changes = append(changes, fieldChange{key: "Type", value: strconv.Quote(p.Type)})
	}
	if p.SetLabel {
		c := fieldChange{key: "Label", drop: p.Label == ""}
		c.value = strconv.Quote(p.Label)
		changes = append(changes, c)
	}
	if p.SetProps {
		c := fieldChange{key: "Props", drop: p.Props == nil}
		if !c.drop {
			if c.value, err = renderProps(qual, p.Props); err != nil {
				return nil, err
			}
		}
		changes = append(changes, c)
	}
	if len(changes) == 0 {
		return src, nil
	}

	edits := literalEdits(f, target.Lit, changes)

	// Reformat the touched declaration on its own so inserted keys line up.
	span := f.DeclSpan(target)
	local := make([]edit, len(edits))
	for i, e := range edits {
		local[i] = edit{start: e.start - span.Start, end: e.end - span.Start, text: e.text}
	}
	text, err := apply(f.Src[span.Start:span.End], local)
	if err != nil {
		return nil, err
	}
	if !target.Gen.Lparen.IsValid() {
		text = []byte(trimNewline(formatDecl(string(text) + "\n")))
	}
	return finish(f, []edit{replace(span, string(text))})
}

type fieldChange struct {
	key   string
	value string
	drop  bool
}

// literalEdits turns field changes into edits on the keyed elements of lit.
func literalEdits(f *syntax.File, lit *ast.CompositeLit, changes []fieldChange) []edit {
	var edits []edit
	rbrace := f.Offset(lit.Rbrace)
	multiline := onlySpaceBefore(f, rbrace)
	indent := "\t"
	if len(lit.Elts) > 0 {
		indent = f.Indent(f.Offset(lit.Elts[0].Pos()))
	}

	for _, c := range changes {
		kv, exists := syntax.Field(lit, c.key)
		switch {
		case exists && c.drop:
			edits = append(edits, remove(elementSpan(f, kv)))
		case exists:
			edits = append(edits, replace(f.SpanOf(kv.Value), c.value))
		case c.drop:
		case multiline:
			edits = append(edits, insert(f.LineStart(rbrace), indent+c.key+": "+c.value+",\n"))
		case len(lit.Elts) == 0:
			edits = append(edits, insert(rbrace, c.key+": "+c.value))
		default:
			edits = append(edits, insert(f.Offset(lit.Elts[len(lit.Elts)-1].End()), ", "+c.key+": "+c.value))
		}
	}
	return edits
}

// elementSpan returns what to delete to drop kv from its literal: whole lines
// when it sits on its own, otherwise the element and one adjacent comma.
func elementSpan(f *syntax.File, kv *ast.KeyValueExpr) syntax.Span {
	s := f.SpanOf(kv)
	if onlySpaceBefore(f, s.Start) && restOfLineIsTrivia(f, s.End) {
		return syntax.Span{Start: f.LineStart(s.Start), End: f.LineEnd(s.End)}
	}
	src := f.Src
	end := s.End
	if end < len(src) && src[end] == ',' {
		end++
		for end < len(src) && src[end] == ' ' {
			end++
		}
		return syntax.Span{Start: s.Start, End: end}
	}
	start := s.Start
	for start > 0 && src[start-1] == ' ' {
		start--
	}
	if start > 0 && src[start-1] == ',' {
		start--
	}
	return syntax.Span{Start: start, End: s.End}
}

func trimNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}
