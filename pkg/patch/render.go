package patch

import (
	"encoding/json"
	"fmt"
	"go/format"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// renderValue writes v as a Go literal the extractor reads back to an equal value.
func renderValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "nil", nil
	case string:
		return strconv.Quote(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			s, err := renderValue(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[]any{" + strings.Join(parts, ", ") + "}", nil
	case map[string]any:
		body, err := renderEntries(v)
		if err != nil {
			return "", err
		}
		return "map[string]any{" + body + "}", nil
	}
	return "", fmt.Errorf("value of type %T cannot be written as a literal", v)
}

// renderEntries writes the keyed elements of a map literal, sorted by key.
func renderEntries(m map[string]any) (string, error) {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		s, err := renderValue(m[k])
		if err != nil {
			return "", fmt.Errorf("prop %q: %w", k, err)
		}
		parts = append(parts, strconv.Quote(k)+": "+s)
	}
	return strings.Join(parts, ", "), nil
}

func renderProps(qual string, props map[string]any) (string, error) {
	body, err := renderEntries(props)
	if err != nil {
		return "", err
	}
	return qual + "Props{" + body + "}", nil
}

// renderSpec writes a standalone declarative declaration.
func renderSpec(qual string, n NodeSpec) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "var _ = %sSpec(%sDecl{\n", qual, qual)
	fmt.Fprintf(&b, "\tID: %s,\n", strconv.Quote(n.ID))
	fmt.Fprintf(&b, "\tType: %s,\n", strconv.Quote(n.Type))
	if n.Label != "" {
		fmt.Fprintf(&b, "\tLabel: %s,\n", strconv.Quote(n.Label))
	}
	if len(n.Props) > 0 {
		props, err := renderProps(qual, n.Props)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\tProps: %s,\n", props)
	}
	b.WriteString("})\n")
	return formatDecl(b.String()), nil
}

func renderLink(qual string, l Link) string {
	return fmt.Sprintf("%sLink(%s, %s, %s, %s)", qual,
		strconv.Quote(l.Source), strconv.Quote(l.SourcePort),
		strconv.Quote(l.Target), strconv.Quote(l.TargetPort))
}

const snippetHeader = "package p\n\n"

// formatDecl gofmts a single top-level declaration. Text that does not
// format on its own is returned as is.
func formatDecl(text string) string {
	out, err := format.Source([]byte(snippetHeader + text))
	if err != nil {
		return text
	}
	return strings.TrimPrefix(string(out), snippetHeader)
}
