package extract

import (
	"go/ast"
	"go/token"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
)

// fields is the syntax-independent shape both declaration forms reduce to.
type fields struct {
	id       string
	nodeType string
	label    string
	props    map[string]any
}

// declarative normalizes either declaration form into one Node.
// reason explains a skip.
func declarative(d syntax.Decl) (domain.Node, string, bool) {
	var (
		fl     fields
		reason string
		ok     bool
	)
	switch d.Kind {
	case syntax.DeclSpecCall:
		fl, reason, ok = fromSpecCall(d.Lit)
	case syntax.DeclSpecClass:
		fl, reason, ok = fromClass(d)
	}
	if !ok {
		return domain.Node{}, reason, false
	}
	return newDeclarative(d.Name, fl), "", true
}

func newDeclarative(name string, fl fields) domain.Node {
	if name == "_" {
		name = fl.id
	}
	return domain.Node{
		ID:       fl.id,
		Name:     name,
		Role:     domain.RoleDeclarative,
		Label:    fl.label,
		NodeType: fl.nodeType,
		Props:    fl.props,
	}
}

// fromSpecCall reads Spec(Decl{ID, Type, Label, Props}).
// A non-literal anywhere in Props skips the whole declaration.
func fromSpecCall(lit *ast.CompositeLit) (fields, string, bool) {
	var fl fields

	kv, ok := syntax.Field(lit, "ID")
	if !ok {
		return fl, "spec declaration has no ID", false
	}
	if fl.id, ok = syntax.StringLit(kv.Value); !ok || fl.id == "" {
		return fl, "spec ID must be a non-empty string literal", false
	}

	kv, ok = syntax.Field(lit, "Type")
	if !ok {
		return fl, "spec " + fl.id + " has no Type", false
	}
	if fl.nodeType, ok = syntax.StringLit(kv.Value); !ok || fl.nodeType == "" {
		return fl, "spec " + fl.id + " Type must be a non-empty string literal", false
	}

	if kv, ok = syntax.Field(lit, "Label"); ok {
		if fl.label, ok = syntax.StringLit(kv.Value); !ok {
			return fl, "spec " + fl.id + " Label must be a string literal", false
		}
	}

	if kv, ok = syntax.Field(lit, "Props"); ok {
		v, isLit := syntax.LiteralValue(kv.Value)
		if !isLit {
			return fl, "spec " + fl.id + " has non-literal props", false
		}
		switch p := v.(type) {
		case map[string]any:
			fl.props = p
		case nil:
		default:
			return fl, "spec " + fl.id + " Props must be a mapping", false
		}
	}
	if fl.props == nil {
		fl.props = map[string]any{}
	}
	return fl, "", true
}

// fromClass reads an annotated `var X = T{Field: literal, ...}`.
// Exported keys holding literals become props; func literals and
// non-literal values are left out.
func fromClass(d syntax.Decl) (fields, string, bool) {
	fl := fields{props: map[string]any{}}
	fl.nodeType, _ = d.Marker.Arg("type")
	if fl.nodeType == "" {
		return fl, d.Name + " annotation has an empty type", false
	}

	fl.id = domain.SpecID(fl.nodeType, d.Name)
	if id, ok := d.Marker.Arg("id"); ok && id != "" {
		fl.id = id
	}
	fl.label = d.Name
	if label, ok := d.Marker.Arg("label"); ok {
		fl.label = label
	}

	for _, elt := range d.Lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok || !token.IsExported(key.Name) {
			continue
		}
		if _, callable := kv.Value.(*ast.FuncLit); callable {
			continue
		}
		v, ok := syntax.LiteralValue(kv.Value)
		if !ok {
			continue
		}
		fl.props[syntax.SnakeCase(key.Name)] = v
	}
	return fl, "", true
}
