package patch

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
)

// PatchCallableBody replaces the whole declaration of step name with
// replacement, which must be exactly one top-level function without a
// receiver. When replacement carries no doc comment the existing one,
// annotation included, is kept.
func PatchCallableBody(src []byte, name, replacement string) ([]byte, error) {
	fn, err := parseReplacement(replacement)
	if err != nil {
		return nil, err
	}

	f, err := syntax.Parse(src)
	if err != nil {
		return nil, err
	}
	step, ok := syntax.Find(f.Decls(), syntax.DeclStep, name)
	if !ok {
		return nil, &domain.NotFoundError{Kind: "step", Name: name}
	}

	span := f.DeclSpan(step)
	if fn.Doc == nil {
		span = f.SpanOf(step.Func)
	}
	return finish(f, []edit{replace(span, strings.TrimSpace(replacement))})
}

func parseReplacement(text string) (*ast.FuncDecl, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: replacement is empty", domain.ErrInvalidReplacement)
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "replacement.go", snippetHeader+text, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidReplacement, err)
	}
	if len(file.Decls) != 1 {
		return nil, fmt.Errorf("%w: expected one declaration, got %d", domain.ErrInvalidReplacement, len(file.Decls))
	}
	fn, ok := file.Decls[0].(*ast.FuncDecl)
	if !ok || fn.Recv != nil {
		return nil, fmt.Errorf("%w: replacement must be a function declaration", domain.ErrInvalidReplacement)
	}
	return fn, nil
}
