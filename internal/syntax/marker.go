package syntax

import (
	"go/ast"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
)

// Marker is a parsed `//@name(args)` annotation line.
type Marker struct {
	// Name is the final dotted segment, the part that decides what the marker means.
	Name string
	// Qualified is the full marker as written, e.g. "holon.node".
	Qualified string
	// Args holds call-style arguments; nil for a bare marker.
	Args map[string]string
}

// Arg returns a call-style argument.
func (m Marker) Arg(key string) (string, bool) {
	v, ok := m.Args[key]
	return v, ok
}

const markerPrefix = "//@"

// ParseMarker parses one comment line. Lines that are not markers, or whose
// argument list does not parse, return ok=false.
func ParseMarker(line string) (Marker, bool) {
	if !strings.HasPrefix(line, markerPrefix) {
		return Marker{}, false
	}
	body := strings.TrimSpace(line[len(markerPrefix):])

	qualified, rest := body, ""
	if i := strings.IndexByte(body, '('); i >= 0 {
		qualified, rest = strings.TrimSpace(body[:i]), body[i:]
	}
	if !validQualified(qualified) {
		return Marker{}, false
	}

	m := Marker{Qualified: qualified, Name: qualified[strings.LastIndexByte(qualified, '.')+1:]}
	if rest == "" {
		return m, true
	}
	if !strings.HasSuffix(rest, ")") {
		return Marker{}, false
	}
	args, ok := parseArgs(rest[1 : len(rest)-1])
	if !ok {
		return Marker{}, false
	}
	m.Args = args
	return m, true
}

func validQualified(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !token.IsIdentifier(part) {
			return false
		}
	}
	return true
}

// parseArgs reads `key="value", key2=3` using the Go scanner.
// Keys may be keywords, so `type=` is accepted.
func parseArgs(src string) (map[string]string, bool) {
	args := make(map[string]string)
	var s scanner.Scanner
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	failed := false
	s.Init(file, []byte(src), func(token.Position, string) { failed = true }, 0)

	next := func() (token.Token, string) {
		_, tok, lit := s.Scan()
		// the scanner inserts semicolons at line ends
		for tok == token.SEMICOLON && lit == "\n" {
			_, tok, lit = s.Scan()
		}
		if lit == "" {
			lit = tok.String()
		}
		return tok, lit
	}

	for {
		tok, key := next()
		if tok == token.EOF {
			break
		}
		if tok != token.IDENT && !tok.IsKeyword() {
			return nil, false
		}
		if tok, _ := next(); tok != token.ASSIGN {
			return nil, false
		}
		tok, lit := next()
		switch tok {
		case token.STRING:
			v, err := strconv.Unquote(lit)
			if err != nil {
				return nil, false
			}
			args[key] = v
		case token.INT, token.FLOAT, token.IDENT:
			args[key] = lit
		default:
			return nil, false
		}
		tok, _ = next()
		if tok == token.EOF {
			break
		}
		if tok != token.COMMA {
			return nil, false
		}
	}
	return args, !failed
}

// FindMarker returns the first marker in doc whose name is one of names.
func FindMarker(doc *ast.CommentGroup, names ...string) (Marker, bool) {
	if doc == nil {
		return Marker{}, false
	}
	for _, c := range doc.List {
		m, ok := ParseMarker(c.Text)
		if !ok {
			continue
		}
		for _, n := range names {
			if m.Name == n {
				return m, true
			}
		}
	}
	return Marker{}, false
}
