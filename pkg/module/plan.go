package module

import (
	"go/ast"
	"go/token"
	"strconv"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
)

// ArgKind tells how a call-site argument gets its value.
type ArgKind int

const (
	// ArgLiteral is a constant written in the source.
	ArgLiteral ArgKind = iota
	// ArgVar names a workflow parameter or a variable bound earlier.
	ArgVar
	// ArgOpaque is an expression the plan cannot evaluate; it passes nil.
	ArgOpaque
)

// Arg is one argument of a call site.
type Arg struct {
	Kind  ArgKind `json:"kind"`
	Value any     `json:"value,omitempty"`
	Var   string  `json:"var,omitempty"`
	Expr  string  `json:"expr,omitempty"`
}

// CallSite is one invocation of a step inside a workflow body.
type CallSite struct {
	Step string `json:"step"`
	Args []Arg  `json:"args"`
	// Result is the variable the call's value is bound to, if any.
	Result string `json:"result,omitempty"`
}

// Workflow is the call plan of a workflow entry.
type Workflow struct {
	Name   string     `json:"name"`
	Params []string   `json:"params"`
	Calls  []CallSite `json:"calls"`
	// Consts holds variables assigned a literal in the body.
	Consts map[string]any `json:"consts,omitempty"`
	// Return is the value of the final return statement, when the plan can
	// name it.
	Return *Arg `json:"return,omitempty"`
	// Links are the explicit links written in this workflow's body, in
	// source order, without repeats.
	Links []domain.Edge `json:"links,omitempty"`
}

// Steps returns the distinct steps called, in first-call order.
func (w *Workflow) Steps() []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range w.Calls {
		if !seen[c.Step] {
			seen[c.Step] = true
			out = append(out, c.Step)
		}
	}
	return out
}

// FirstCall returns the first call site of step.
func (w *Workflow) FirstCall(step string) (CallSite, bool) {
	for _, c := range w.Calls {
		if c.Step == step {
			return c, true
		}
	}
	return CallSite{}, false
}

// Producers maps each bound variable to the step whose result it holds.
func (w *Workflow) Producers() map[string]string {
	out := make(map[string]string)
	for _, c := range w.Calls {
		if c.Result != "" {
			if _, bound := out[c.Result]; !bound {
				out[c.Result] = c.Step
			}
		}
	}
	return out
}

// planner compiles a workflow body into call sites. Nested function
// literals start their own scope and are not planned.
type planner struct {
	f     *syntax.File
	steps map[string]bool
	wf    *Workflow
	tmp   int
}

func compileWorkflow(f *syntax.File, fn *ast.FuncDecl, steps map[string]bool) *Workflow {
	p := &planner{f: f, steps: steps, wf: &Workflow{Name: fn.Name.Name, Params: params(fn), Consts: map[string]any{}}}
	if fn.Body != nil {
		p.block(fn.Body.List)
	}
	p.wf.Links = links(fn.Body)
	return p.wf
}

// links collects the Link calls anywhere in body, nested literals included.
func links(body *ast.BlockStmt) []domain.Edge {
	var out []domain.Edge
	seen := make(map[domain.Edge]bool)
	syntax.Calls(body, true, func(call *ast.CallExpr) {
		args, ok := syntax.LinkArgs(call)
		if !ok {
			return
		}
		e := domain.LinkEdge(args[0], args[1], args[2], args[3])
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	})
	return out
}

func params(fn *ast.FuncDecl) []string {
	var out []string
	for _, field := range fn.Type.Params.List {
		for _, n := range field.Names {
			out = append(out, n.Name)
		}
	}
	return out
}

func (p *planner) block(stmts []ast.Stmt) {
	for i, s := range stmts {
		p.stmt(s, i == len(stmts)-1)
	}
}

func (p *planner) stmt(s ast.Stmt, last bool) {
	switch s := s.(type) {
	case *ast.AssignStmt:
		if len(s.Lhs) == 1 && len(s.Rhs) == 1 {
			if id, ok := s.Lhs[0].(*ast.Ident); ok && id.Name != "_" {
				p.bind(id.Name, s.Rhs[0])
				return
			}
		}
		for _, e := range s.Rhs {
			p.expr(e)
		}
	case *ast.DeclStmt:
		gen, ok := s.Decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			return
		}
		for _, spec := range gen.Specs {
			vs := spec.(*ast.ValueSpec)
			if len(vs.Names) == 1 && len(vs.Values) == 1 {
				p.bind(vs.Names[0].Name, vs.Values[0])
				continue
			}
			for _, e := range vs.Values {
				p.expr(e)
			}
		}
	case *ast.ExprStmt:
		p.expr(s.X)
	case *ast.ReturnStmt:
		if len(s.Results) != 1 {
			for _, e := range s.Results {
				p.expr(e)
			}
			return
		}
		arg := p.arg(s.Results[0])
		if last {
			p.wf.Return = &arg
		}
	case *ast.BlockStmt:
		p.block(s.List)
	default:
		// control flow: plan the step calls in source order
		ast.Inspect(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FuncLit:
				return false
			case *ast.CallExpr:
				if p.isStep(n) {
					p.call(n, "", false)
					return false
				}
			}
			return true
		})
	}
}

// bind handles `name := rhs`.
func (p *planner) bind(name string, rhs ast.Expr) {
	if call, ok := rhs.(*ast.CallExpr); ok && p.isStep(call) {
		p.call(call, name, false)
		return
	}
	if v, ok := syntax.LiteralValue(rhs); ok {
		p.wf.Consts[name] = v
		return
	}
	p.expr(rhs)
}

// expr plans every step call inside e.
func (p *planner) expr(e ast.Expr) {
	if call, ok := e.(*ast.CallExpr); ok && p.isStep(call) {
		p.call(call, "", false)
		return
	}
	ast.Inspect(e, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.CallExpr:
			if p.isStep(n) {
				p.call(n, "", false)
				return false
			}
		}
		return true
	})
}

func (p *planner) isStep(call *ast.CallExpr) bool {
	name, ok := syntax.BareCallee(call)
	return ok && p.steps[name]
}

// call appends a call site, planning step calls nested in its arguments
// first. With temp set the result is bound to a fresh temporary.
func (p *planner) call(call *ast.CallExpr, result string, temp bool) string {
	name, _ := syntax.BareCallee(call)
	args := make([]Arg, 0, len(call.Args))
	for _, a := range call.Args {
		args = append(args, p.arg(a))
	}
	if temp {
		p.tmp++
		result = "$" + strconv.Itoa(p.tmp)
	}
	p.wf.Calls = append(p.wf.Calls, CallSite{Step: name, Args: args, Result: result})
	return result
}

func (p *planner) arg(e ast.Expr) Arg {
	if v, ok := syntax.LiteralValue(e); ok {
		return Arg{Kind: ArgLiteral, Value: v}
	}
	switch e := e.(type) {
	case *ast.Ident:
		return Arg{Kind: ArgVar, Var: e.Name}
	case *ast.ParenExpr:
		return p.arg(e.X)
	case *ast.CallExpr:
		if p.isStep(e) {
			return Arg{Kind: ArgVar, Var: p.call(e, "", true)}
		}
	}
	p.expr(e)
	return Arg{Kind: ArgOpaque, Expr: p.f.Text(e)}
}
