package patch

import (
	"strings"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/domain"
)

// DeleteNode removes the declaration that produces node id. Edges that
// referenced it are left for the next extraction to drop.
func DeleteNode(src []byte, id string) ([]byte, error) {
	f, err := syntax.Parse(src)
	if err != nil {
		return nil, err
	}
	d, ok := findByID(f.Decls(), id)
	if !ok {
		return nil, &domain.NotFoundError{Kind: "node", Name: id}
	}

	span := wholeLines(f, f.DeclSpan(d))
	// Do not leave two blank lines where the declaration was.
	blankBefore := span.Start > 0 && f.BlankLine(f.LineStart(span.Start-1))
	switch {
	case span.Start != f.LineStart(span.Start):
	case f.BlankLine(span.End) && (span.Start == 0 || blankBefore):
		span.End = f.LineEnd(span.End)
	case span.End == len(f.Src) && blankBefore:
		span.Start = f.LineStart(span.Start - 1)
	}
	return finish(f, []edit{remove(span)})
}

func findByID(decls []syntax.Decl, id string) (syntax.Decl, bool) {
	switch {
	case strings.HasPrefix(id, domain.StepPrefix):
		return syntax.Find(decls, syntax.DeclStep, strings.TrimPrefix(id, domain.StepPrefix))
	case strings.HasPrefix(id, domain.WorkflowPrefix):
		return syntax.Find(decls, syntax.DeclWorkflow, strings.TrimPrefix(id, domain.WorkflowPrefix))
	}
	for _, d := range decls {
		if got, ok := syntax.DeclarativeID(d); ok && got == id {
			return d, true
		}
	}
	return syntax.Decl{}, false
}
