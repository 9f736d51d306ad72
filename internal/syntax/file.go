// Package syntax reads holon workflow files with go/parser and exposes the
// pieces the extractor and the patcher share: annotation markers, literal
// values, top-level declaration classification and byte spans.
package syntax

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/aretw0/holon/pkg/domain"
)

// File is a parsed source buffer.
type File struct {
	Src  []byte
	Fset *token.FileSet
	AST  *ast.File
}

// Parse parses src as a Go file, keeping comments.
func Parse(src []byte) (*File, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "source.go", src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, &domain.SyntaxError{Err: err}
	}
	return &File{Src: src, Fset: fset, AST: f}, nil
}

// Span is a half-open byte range [Start, End) of the source.
type Span struct {
	Start int
	End   int
}

// Len returns the size of the span in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Offset converts a position to a byte offset in Src.
func (f *File) Offset(p token.Pos) int {
	return f.Fset.Position(p).Offset
}

// SpanOf returns the byte span of a node.
func (f *File) SpanOf(n ast.Node) Span {
	return Span{Start: f.Offset(n.Pos()), End: f.Offset(n.End())}
}

// Text returns the exact source text of a node.
func (f *File) Text(n ast.Node) string {
	s := f.SpanOf(n)
	return string(f.Src[s.Start:s.End])
}

// LineStart returns the offset of the first byte of the line containing off.
func (f *File) LineStart(off int) int {
	i := bytes.LastIndexByte(f.Src[:off], '\n')
	return i + 1
}

// LineEnd returns the offset just past the newline ending the line containing off,
// or len(Src) on the last line.
func (f *File) LineEnd(off int) int {
	i := bytes.IndexByte(f.Src[off:], '\n')
	if i < 0 {
		return len(f.Src)
	}
	return off + i + 1
}

// Indent returns the leading whitespace of the line containing off.
func (f *File) Indent(off int) string {
	start := f.LineStart(off)
	end := start
	for end < len(f.Src) && (f.Src[end] == ' ' || f.Src[end] == '\t') {
		end++
	}
	return string(f.Src[start:end])
}

// BlankLine reports whether the line starting at off holds only whitespace.
func (f *File) BlankLine(off int) bool {
	if off >= len(f.Src) {
		return false
	}
	end := f.LineEnd(off)
	return len(bytes.TrimSpace(f.Src[off:end])) == 0
}
