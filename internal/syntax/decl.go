package syntax

import (
	"go/ast"
	"go/token"

	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/dsl"
)

// DeclKind classifies a top-level declaration holon cares about.
type DeclKind int

const (
	DeclStep DeclKind = iota + 1
	DeclWorkflow
	// DeclSpecCall is `var _ = dsl.Spec(dsl.Decl{...})`.
	DeclSpecCall
	// DeclSpecClass is an annotated `var X = T{...}`.
	DeclSpecClass
)

// Decl is one recognized top-level declaration.
type Decl struct {
	Kind   DeclKind
	Name   string
	Marker Marker

	Func *ast.FuncDecl  // steps and workflows
	Gen  *ast.GenDecl   // declarative forms
	Spec *ast.ValueSpec // declarative forms

	// Lit is the dsl.Decl literal of a spec call, or the attribute literal
	// of a class-shaped declaration.
	Lit *ast.CompositeLit
}

// Decls returns the recognized top-level declarations in source order.
func (f *File) Decls() []Decl {
	var out []Decl
	for _, d := range f.AST.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil {
				continue
			}
			m, ok := FindMarker(d.Doc, dsl.MarkerNode, dsl.MarkerWorkflow)
			if !ok {
				continue
			}
			kind := DeclStep
			if m.Name == dsl.MarkerWorkflow {
				kind = DeclWorkflow
			}
			out = append(out, Decl{Kind: kind, Name: d.Name.Name, Marker: m, Func: d})

		case *ast.GenDecl:
			if d.Tok != token.VAR {
				continue
			}
			for _, s := range d.Specs {
				vs := s.(*ast.ValueSpec)
				if decl, ok := classifyVar(d, vs); ok {
					out = append(out, decl)
				}
			}
		}
	}
	return out
}

func classifyVar(gen *ast.GenDecl, vs *ast.ValueSpec) (Decl, bool) {
	if len(vs.Names) != 1 || len(vs.Values) != 1 {
		return Decl{}, false
	}
	name := vs.Names[0].Name

	if call, ok := vs.Values[0].(*ast.CallExpr); ok && IsCallTo(call, "Spec") {
		if len(call.Args) != 1 {
			return Decl{}, false
		}
		lit, ok := call.Args[0].(*ast.CompositeLit)
		if !ok {
			return Decl{}, false
		}
		return Decl{Kind: DeclSpecCall, Name: name, Gen: gen, Spec: vs, Lit: lit}, true
	}

	lit, ok := vs.Values[0].(*ast.CompositeLit)
	if !ok {
		return Decl{}, false
	}
	doc := vs.Doc
	if doc == nil && !gen.Lparen.IsValid() {
		doc = gen.Doc
	}
	m, ok := FindMarker(doc, dsl.MarkerNode)
	if !ok {
		return Decl{}, false
	}
	if _, typed := m.Arg("type"); !typed {
		return Decl{}, false
	}
	return Decl{Kind: DeclSpecClass, Name: name, Marker: m, Gen: gen, Spec: vs, Lit: lit}, true
}

// IsCallTo reports whether call invokes name bare or through a selector (pkg.name).
func IsCallTo(call *ast.CallExpr, name string) bool {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name == name
	case *ast.SelectorExpr:
		return fn.Sel.Name == name
	}
	return false
}

// BareCallee returns the identifier of a direct, unqualified call.
func BareCallee(call *ast.CallExpr) (string, bool) {
	id, ok := call.Fun.(*ast.Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}

// Field returns the value of a keyed element of a composite literal.
func Field(lit *ast.CompositeLit, key string) (*ast.KeyValueExpr, bool) {
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		if id, ok := kv.Key.(*ast.Ident); ok && id.Name == key {
			return kv, true
		}
	}
	return nil, false
}

// SpecCallID returns the literal ID of a spec call declaration.
func SpecCallID(d Decl) (string, bool) {
	if d.Kind != DeclSpecCall {
		return "", false
	}
	kv, ok := Field(d.Lit, "ID")
	if !ok {
		return "", false
	}
	return StringLit(kv.Value)
}

// DeclSpan returns the span of a whole declaration, doc comment included.
// For a var inside a parenthesized group only the value spec is covered.
func (f *File) DeclSpan(d Decl) Span {
	if d.Func != nil {
		start := d.Func.Pos()
		if d.Func.Doc != nil {
			start = d.Func.Doc.Pos()
		}
		return Span{Start: f.Offset(start), End: f.Offset(d.Func.End())}
	}
	if d.Gen.Lparen.IsValid() && len(d.Gen.Specs) > 1 {
		start := d.Spec.Pos()
		if d.Spec.Doc != nil {
			start = d.Spec.Doc.Pos()
		}
		end := d.Spec.End()
		if d.Spec.Comment != nil {
			end = d.Spec.Comment.End()
		}
		return Span{Start: f.Offset(start), End: f.Offset(end)}
	}
	start := d.Gen.Pos()
	if d.Gen.Doc != nil {
		start = d.Gen.Doc.Pos()
	}
	return Span{Start: f.Offset(start), End: f.Offset(d.Gen.End())}
}

// Find returns the first declaration of the given kind and name.
func Find(decls []Decl, kind DeclKind, name string) (Decl, bool) {
	for _, d := range decls {
		if d.Kind == kind && d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}

// FindFunc returns the first top-level function named name, annotated or not.
func (f *File) FindFunc(name string) (*ast.FuncDecl, bool) {
	for _, d := range f.AST.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Recv == nil && fn.Name.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// DeclarativeID returns the node id a declarative declaration produces,
// applying the class-shaped default when the annotation names none.
func DeclarativeID(d Decl) (string, bool) {
	switch d.Kind {
	case DeclSpecCall:
		return SpecCallID(d)
	case DeclSpecClass:
		if id, ok := d.Marker.Arg("id"); ok && id != "" {
			return id, true
		}
		typ, _ := d.Marker.Arg("type")
		if typ == "" {
			return "", false
		}
		return domain.SpecID(typ, d.Name), true
	}
	return "", false
}
