package patch

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
)

// Rename renames the callable step oldName to newName.
//
// Besides the declaration itself, only unqualified calls to oldName inside
// workflow bodies are rewritten, together with Link literals naming the
// step's id. Calls from plain functions keep the old name.
func Rename(src []byte, oldName, newName string) ([]byte, error) {
	if oldName == newName {
		return nil, fmt.Errorf("%w: %q", domain.ErrSameName, oldName)
	}
	if !token.IsIdentifier(newName) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidName, newName)
	}

	f, err := syntax.Parse(src)
	if err != nil {
		return nil, err
	}
	decls := f.Decls()
	step, ok := syntax.Find(decls, syntax.DeclStep, oldName)
	if !ok {
		return nil, &domain.NotFoundError{Kind: "step", Name: oldName}
	}
	if _, taken := f.FindFunc(newName); taken {
		return nil, fmt.Errorf("%w: a function named %q already exists", domain.ErrDuplicateNode, newName)
	}

	edits := []edit{replace(f.SpanOf(step.Func.Name), newName)}

	newID := strconv.Quote(domain.StepID(newName))
	for _, d := range decls {
		if d.Kind != syntax.DeclWorkflow {
			continue
		}
		syntax.Calls(d.Func.Body, true, func(call *ast.CallExpr) {
			if name, ok := syntax.BareCallee(call); ok && name == oldName {
				edits = append(edits, replace(f.SpanOf(call.Fun), newName))
				return
			}
			if _, ok := syntax.LinkArgs(call); !ok {
				return
			}
			for _, i := range []int{0, 2} {
				if id, _ := syntax.StringLit(call.Args[i]); id == domain.StepID(oldName) {
					edits = append(edits, replace(f.SpanOf(call.Args[i]), newID))
				}
			}
		})
	}

	return finish(f, edits)
}
