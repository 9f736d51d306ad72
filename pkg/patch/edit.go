package patch

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/aretw0/holon/internal/syntax"
)

// edit replaces src[start:end] with text. start == end is an insertion.
type edit struct {
	start, end int
	text       string
}

func replace(s syntax.Span, text string) edit { return edit{start: s.Start, end: s.End, text: text} }

func insert(at int, text string) edit { return edit{start: at, end: at, text: text} }

func remove(s syntax.Span) edit { return edit{start: s.Start, end: s.End} }

// apply splices edits into src. Insertions at the same offset keep the order
// they were given in. Overlapping edits are a programming error.
func apply(src []byte, edits []edit) ([]byte, error) {
	slices.SortStableFunc(edits, func(a, b edit) int { return a.start - b.start })

	var out bytes.Buffer
	out.Grow(len(src))
	cursor := 0
	for _, e := range edits {
		if e.start < cursor || e.end < e.start || e.end > len(src) {
			return nil, fmt.Errorf("overlapping edit at offset %d", e.start)
		}
		out.Write(src[cursor:e.start])
		out.WriteString(e.text)
		cursor = e.end
	}
	out.Write(src[cursor:])
	return out.Bytes(), nil
}

// finish applies edits and checks the result still parses.
func finish(f *syntax.File, edits []edit) ([]byte, error) {
	out, err := apply(f.Src, edits)
	if err != nil {
		return nil, err
	}
	if _, err := syntax.Parse(out); err != nil {
		return nil, fmt.Errorf("patched source does not parse: %w", err)
	}
	return out, nil
}

// onlySpaceBefore reports whether off is preceded by nothing but indentation on its line.
func onlySpaceBefore(f *syntax.File, off int) bool {
	return len(bytes.TrimSpace(f.Src[f.LineStart(off):off])) == 0
}

// restOfLineIsTrivia reports whether only whitespace, a comma or a line
// comment follows off on its line.
func restOfLineIsTrivia(f *syntax.File, off int) bool {
	rest := bytes.TrimSpace(f.Src[off:f.LineEnd(off)])
	rest = bytes.TrimPrefix(rest, []byte(","))
	rest = bytes.TrimSpace(rest)
	return len(rest) == 0 || bytes.HasPrefix(rest, []byte("//"))
}

// wholeLines widens s to full lines when it is the only thing on them.
func wholeLines(f *syntax.File, s syntax.Span) syntax.Span {
	if onlySpaceBefore(f, s.Start) && restOfLineIsTrivia(f, s.End) {
		return syntax.Span{Start: f.LineStart(s.Start), End: f.LineEnd(s.End)}
	}
	return s
}
