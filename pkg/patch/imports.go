package patch

import (
	"go/ast"
	"go/token"
	"strconv"

	"github.com/aretw0/holon/internal/syntax"
	"github.com/aretw0/holon/pkg/dsl"
)

// dslImport returns the qualifier to write dsl calls with and, when the
// package is not imported yet, the edit that adds it.
func dslImport(f *syntax.File) (string, []edit) {
	qual, ok := f.DSLQualifier()
	if ok {
		return qual, nil
	}
	// A blank import becomes a plain one instead of gaining a twin.
	for _, imp := range f.AST.Imports {
		if imp.Name == nil || imp.Name.Name != "_" {
			continue
		}
		if path, err := strconv.Unquote(imp.Path.Value); err == nil && path == dsl.ImportPath {
			span := syntax.Span{Start: f.Offset(imp.Name.Pos()), End: f.Offset(imp.Path.Pos())}
			return qual, []edit{replace(span, "")}
		}
	}
	line := strconv.Quote(dsl.ImportPath)

	// Prefer joining an existing import block.
	for _, d := range f.AST.Decls {
		gen, ok := d.(*ast.GenDecl)
		if !ok || gen.Tok != token.IMPORT || !gen.Lparen.IsValid() {
			continue
		}
		rparen := f.Offset(gen.Rparen)
		indent := "\t"
		if len(gen.Specs) > 0 {
			indent = f.Indent(f.Offset(gen.Specs[0].Pos()))
		}
		if onlySpaceBefore(f, rparen) {
			return qual, []edit{insert(f.LineStart(rparen), indent+line+"\n")}
		}
		return qual, []edit{insert(rparen, "\n"+indent+line+"\n")}
	}

	if last := lastImport(f); last != nil {
		at := f.LineEnd(f.Offset(last.End()))
		return qual, []edit{insert(at, lineBreakIfNeeded(f, at)+"import "+line+"\n")}
	}
	at := afterPackageClause(f)
	return qual, []edit{insert(at, lineBreakIfNeeded(f, at)+"\nimport "+line+"\n")}
}

func lastImport(f *syntax.File) *ast.GenDecl {
	var last *ast.GenDecl
	for _, d := range f.AST.Decls {
		if gen, ok := d.(*ast.GenDecl); ok && gen.Tok == token.IMPORT {
			last = gen
		}
	}
	return last
}

// afterImports is the offset of the line following the import section, or
// following the package clause when the file imports nothing.
func afterImports(f *syntax.File) int {
	if last := lastImport(f); last != nil {
		return f.LineEnd(f.Offset(last.End()))
	}
	return afterPackageClause(f)
}

func afterPackageClause(f *syntax.File) int {
	return f.LineEnd(f.Offset(f.AST.Name.End()))
}

// lineBreakIfNeeded returns "\n" when at is the end of a source without a
// final newline.
func lineBreakIfNeeded(f *syntax.File, at int) string {
	if at == len(f.Src) && at > 0 && f.Src[at-1] != '\n' {
		return "\n"
	}
	return ""
}
