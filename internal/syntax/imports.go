package syntax

import (
	"strconv"

	"github.com/aretw0/holon/pkg/dsl"
)

// DSLQualifier returns the prefix workflow code uses for the dsl package:
// "dsl.", an alias such as "h.", or "" for a dot import.
// ok is false when the package is not imported.
func (f *File) DSLQualifier() (string, bool) {
	for _, imp := range f.AST.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || path != dsl.ImportPath {
			continue
		}
		if imp.Name == nil {
			return "dsl.", true
		}
		switch imp.Name.Name {
		case "_":
			continue
		case ".":
			return "", true
		}
		return imp.Name.Name + ".", true
	}
	return "dsl.", false
}
