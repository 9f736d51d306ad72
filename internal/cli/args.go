package cli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseArgs reads repeated key=value workflow arguments. Values are decoded
// as JSON when they parse, otherwise kept as strings, so n=41 is a number
// and name=ada is text.
func ParseArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", pair)
		}
		args[key] = parseValue(raw)
	}
	return args, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
