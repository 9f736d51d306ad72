package syntax

import "go/ast"

// Calls visits every call expression in body in source order.
// When nested is false, function literals are not descended into.
func Calls(body *ast.BlockStmt, nested bool, visit func(*ast.CallExpr)) {
	if body == nil {
		return
	}
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return nested
		case *ast.CallExpr:
			visit(n)
		}
		return true
	})
}

// LinkArgs returns the four string literals of a Link call.
func LinkArgs(call *ast.CallExpr) ([4]string, bool) {
	var out [4]string
	if !IsCallTo(call, "Link") || len(call.Args) != 4 {
		return out, false
	}
	for i, a := range call.Args {
		s, ok := StringLit(a)
		if !ok {
			return out, false
		}
		out[i] = s
	}
	return out, true
}

// CallsInScope visits every call in body, reporting whether it sits inside a
// function literal.
func CallsInScope(body *ast.BlockStmt, visit func(call *ast.CallExpr, nested bool)) {
	if body == nil {
		return
	}
	var stack []ast.Node
	lits := 0
	ast.Inspect(body, func(n ast.Node) bool {
		if n == nil {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := top.(*ast.FuncLit); ok {
				lits--
			}
			return true
		}
		stack = append(stack, n)
		switch n := n.(type) {
		case *ast.FuncLit:
			lits++
		case *ast.CallExpr:
			visit(n, lits > 0)
		}
		return true
	})
}
