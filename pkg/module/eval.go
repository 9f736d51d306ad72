package module

import (
	"context"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
)

// expressionStep compiles a step whose body is a single `return expr` over
// its parameters. It reports false for any other shape.
func expressionStep(fn *ast.FuncDecl) (Func, bool) {
	if fn.Body == nil || len(fn.Body.List) != 1 {
		return nil, false
	}
	ret, ok := fn.Body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return nil, false
	}
	names := params(fn)
	types := paramTypes(fn)
	expr := ret.Results[0]
	if !evaluable(expr, names) {
		return nil, false
	}
	var resultType string
	if res := fn.Type.Results; res != nil && len(res.List) == 1 {
		resultType = typeName(res.List[0].Type)
	}

	return func(_ context.Context, c Call) (any, error) {
		env := make(map[string]constant.Value, len(names))
		for i, n := range names {
			var v any
			if i < len(c.Args) {
				v = c.Args[i]
			}
			if in, ok := c.Inputs[n]; ok {
				v = in
			}
			cv, err := toConstant(v, types[i])
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", n, err)
			}
			env[n] = cv
		}
		out, err := eval(expr, env)
		if err != nil {
			return nil, err
		}
		return fromConstant(out, resultType), nil
	}, true
}

// paramTypes returns the type name of every parameter, aligned with params.
func paramTypes(fn *ast.FuncDecl) []string {
	var out []string
	for _, field := range fn.Type.Params.List {
		for range field.Names {
			out = append(out, typeName(field.Type))
		}
	}
	return out
}

func typeName(e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func isIntType(name string) bool {
	switch name {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return true
	}
	return false
}

func isFloatType(name string) bool { return name == "float64" || name == "float32" }

// evaluable reports whether e only uses literals, parameters and operators.
func evaluable(e ast.Expr, names []string) bool {
	switch e := e.(type) {
	case *ast.BasicLit:
		return e.Kind != token.CHAR && e.Kind != token.IMAG
	case *ast.Ident:
		if e.Name == "true" || e.Name == "false" {
			return true
		}
		for _, n := range names {
			if n == e.Name {
				return true
			}
		}
		return false
	case *ast.ParenExpr:
		return evaluable(e.X, names)
	case *ast.UnaryExpr:
		return (e.Op == token.SUB || e.Op == token.ADD || e.Op == token.NOT) && evaluable(e.X, names)
	case *ast.BinaryExpr:
		return evaluable(e.X, names) && evaluable(e.Y, names)
	}
	return false
}

func eval(e ast.Expr, env map[string]constant.Value) (constant.Value, error) {
	switch e := e.(type) {
	case *ast.BasicLit:
		return constant.MakeFromLiteral(e.Value, e.Kind, 0), nil
	case *ast.Ident:
		switch e.Name {
		case "true":
			return constant.MakeBool(true), nil
		case "false":
			return constant.MakeBool(false), nil
		}
		return env[e.Name], nil
	case *ast.ParenExpr:
		return eval(e.X, env)
	case *ast.UnaryExpr:
		x, err := eval(e.X, env)
		if err != nil {
			return nil, err
		}
		if !operandOK(e.Op, x) {
			return nil, fmt.Errorf("invalid operation %s%s", e.Op, x.Kind())
		}
		return constant.UnaryOp(e.Op, x, 0), nil
	case *ast.BinaryExpr:
		x, err := eval(e.X, env)
		if err != nil {
			return nil, err
		}
		y, err := eval(e.Y, env)
		if err != nil {
			return nil, err
		}
		return binary(e.Op, x, y)
	}
	return nil, fmt.Errorf("cannot evaluate %T", e)
}

func operandOK(op token.Token, x constant.Value) bool {
	if op == token.NOT {
		return x.Kind() == constant.Bool
	}
	return x.Kind() == constant.Int || x.Kind() == constant.Float
}

func binary(op token.Token, x, y constant.Value) (constant.Value, error) {
	numeric := func(v constant.Value) bool { return v.Kind() == constant.Int || v.Kind() == constant.Float }
	switch op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		if x.Kind() != y.Kind() && !(numeric(x) && numeric(y)) {
			return nil, fmt.Errorf("cannot compare %s with %s", x.Kind(), y.Kind())
		}
		if x.Kind() == constant.Bool && op != token.EQL && op != token.NEQ {
			return nil, fmt.Errorf("cannot order booleans")
		}
		return constant.MakeBool(constant.Compare(x, op, y)), nil
	case token.LAND, token.LOR:
		if x.Kind() != constant.Bool || y.Kind() != constant.Bool {
			return nil, fmt.Errorf("%s needs booleans", op)
		}
	case token.ADD:
		if !(numeric(x) && numeric(y)) && !(x.Kind() == constant.String && y.Kind() == constant.String) {
			return nil, fmt.Errorf("cannot add %s and %s", x.Kind(), y.Kind())
		}
	case token.SUB, token.MUL, token.QUO, token.REM:
		if !numeric(x) || !numeric(y) {
			return nil, fmt.Errorf("invalid operation %s on %s and %s", op, x.Kind(), y.Kind())
		}
		if (op == token.QUO || op == token.REM) && constant.Sign(y) == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		ints := x.Kind() == constant.Int && y.Kind() == constant.Int
		if op == token.REM && !ints {
			return nil, fmt.Errorf("%% needs integers")
		}
		if op == token.QUO && ints {
			op = token.QUO_ASSIGN // integer division
		}
	default:
		return nil, fmt.Errorf("unsupported operator %s", op)
	}
	return constant.BinaryOp(x, op, y), nil
}

// toConstant converts an argument, following the declared parameter type
// where it names a number: JSON numbers arrive as float64 even for ints.
func toConstant(v any, typ string) (constant.Value, error) {
	switch v := v.(type) {
	case int:
		if isFloatType(typ) {
			return constant.MakeFloat64(float64(v)), nil
		}
		return constant.MakeInt64(int64(v)), nil
	case int64:
		if isFloatType(typ) {
			return constant.MakeFloat64(float64(v)), nil
		}
		return constant.MakeInt64(v), nil
	case float64:
		if isIntType(typ) && v == float64(int64(v)) {
			return constant.MakeInt64(int64(v)), nil
		}
		return constant.MakeFloat64(v), nil
	case string:
		return constant.MakeString(v), nil
	case bool:
		return constant.MakeBool(v), nil
	case nil:
		return nil, fmt.Errorf("missing value")
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

func fromConstant(v constant.Value, typ string) any {
	switch v.Kind() {
	case constant.Bool:
		return constant.BoolVal(v)
	case constant.String:
		return constant.StringVal(v)
	}
	if !isFloatType(typ) {
		if n, exact := constant.Int64Val(constant.ToInt(v)); exact && (v.Kind() == constant.Int || isIntType(typ)) {
			return int(n)
		}
	}
	f, _ := constant.Float64Val(v)
	return f
}
