package syntax

import (
	"go/ast"
	"go/token"
	"strconv"
)

// LiteralValue evaluates a constant expression to a JSON-like value:
// string, int, float64, bool, nil, []any or map[string]any.
// It reports false for anything that would need evaluation.
func LiteralValue(expr ast.Expr) (any, bool) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		return basicValue(e)
	case *ast.Ident:
		switch e.Name {
		case "true":
			return true, true
		case "false":
			return false, true
		case "nil":
			return nil, true
		}
	case *ast.ParenExpr:
		return LiteralValue(e.X)
	case *ast.UnaryExpr:
		if e.Op != token.SUB && e.Op != token.ADD {
			return nil, false
		}
		v, ok := LiteralValue(e.X)
		if !ok {
			return nil, false
		}
		switch n := v.(type) {
		case int:
			if e.Op == token.SUB {
				return -n, true
			}
			return n, true
		case float64:
			if e.Op == token.SUB {
				return -n, true
			}
			return n, true
		}
	case *ast.CompositeLit:
		return compositeValue(e)
	}
	return nil, false
}

// StringLit returns the value of a string literal expression.
func StringLit(expr ast.Expr) (string, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", false
	}
	return s, true
}

func basicValue(lit *ast.BasicLit) (any, bool) {
	switch lit.Kind {
	case token.STRING:
		s, err := strconv.Unquote(lit.Value)
		return s, err == nil
	case token.INT:
		n, err := strconv.ParseInt(lit.Value, 0, 0)
		if err != nil {
			return nil, false
		}
		return int(n), true
	case token.FLOAT:
		f, err := strconv.ParseFloat(lit.Value, 64)
		return f, err == nil
	}
	return nil, false
}

func compositeValue(lit *ast.CompositeLit) (any, bool) {
	switch lit.Type.(type) {
	case *ast.ArrayType:
		return listValue(lit)
	case *ast.MapType:
		return mapValue(lit)
	case nil:
		// elided element type: decide by shape
		if len(lit.Elts) > 0 {
			if _, keyed := lit.Elts[0].(*ast.KeyValueExpr); keyed {
				return mapValue(lit)
			}
		}
		return listValue(lit)
	}
	// named types such as dsl.Props
	return mapValue(lit)
}

func listValue(lit *ast.CompositeLit) (any, bool) {
	out := make([]any, 0, len(lit.Elts))
	for _, elt := range lit.Elts {
		if _, keyed := elt.(*ast.KeyValueExpr); keyed {
			return nil, false
		}
		v, ok := LiteralValue(elt)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

func mapValue(lit *ast.CompositeLit) (any, bool) {
	out := make(map[string]any, len(lit.Elts))
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			return nil, false
		}
		key, ok := StringLit(kv.Key)
		if !ok {
			return nil, false
		}
		v, ok := LiteralValue(kv.Value)
		if !ok {
			return nil, false
		}
		out[key] = v
	}
	return out, true
}
