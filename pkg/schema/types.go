package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Type validates one prop value.
type Type interface {
	// Name is the string form of the type, as accepted by ParseType.
	Name() string
	Validate(value any) error
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

type intType struct{}

func (intType) Name() string { return "int" }

func (intType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return nil
	case float64:
		// JSON numbers arrive as float64
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected int, got fractional number %v", v)
	}
	return fmt.Errorf("expected int, got %T", value)
}

type floatType struct{}

func (floatType) Name() string { return "float" }

func (floatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return nil
	}
	return fmt.Errorf("expected number, got %T", value)
}

type boolType struct{}

func (boolType) Name() string { return "bool" }

func (boolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

type mapType struct{}

func (mapType) Name() string { return "map" }

func (mapType) Validate(value any) error {
	if _, ok := value.(map[string]any); !ok {
		return fmt.Errorf("expected mapping, got %T", value)
	}
	return nil
}

type anyType struct{}

func (anyType) Name() string { return "any" }

func (anyType) Validate(any) error { return nil }

type sliceType struct {
	elem Type
}

func (t sliceType) Name() string { return "[" + t.elem.Name() + "]" }

func (t sliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// optionalType accepts a missing key or nil as well as values of its inner type.
type optionalType struct {
	inner Type
}

func (t optionalType) Name() string { return t.inner.Name() + "?" }

func (t optionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.inner.Validate(value)
}

type customType struct {
	name     string
	validate func(any) error
}

func (t customType) Name() string { return t.name }

func (t customType) Validate(value any) error { return t.validate(value) }

func String() Type { return stringType{} }
func Int() Type    { return intType{} }
func Float() Type  { return floatType{} }
func Bool() Type   { return boolType{} }
func Map() Type    { return mapType{} }
func Any() Type    { return anyType{} }

// Slice accepts lists whose elements all satisfy elem.
func Slice(elem Type) Type { return sliceType{elem: elem} }

// Optional marks a prop that may be absent or null.
func Optional(t Type) Type {
	if IsOptional(t) {
		return t
	}
	return optionalType{inner: t}
}

// IsOptional reports whether a missing value satisfies t.
func IsOptional(t Type) bool {
	_, ok := t.(optionalType)
	return ok
}

// Custom wraps a validation function. Custom types do not parse back from
// their name.
func Custom(name string, validate func(any) error) Type {
	return customType{name: name, validate: validate}
}

// ParseType reads the string form of a type: string, int, float, bool, map,
// any, [T] for lists and a trailing ? for optional.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if inner, ok := strings.CutSuffix(s, "?"); ok {
		t, err := ParseType(inner)
		if err != nil {
			return nil, err
		}
		return Optional(t), nil
	}
	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		elem, err := ParseType(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elem), nil
	}
	switch s {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float", "number":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "map":
		return Map(), nil
	case "any":
		return Any(), nil
	}
	return nil, fmt.Errorf("unsupported type %q", s)
}

// ParseTypeMap builds a Schema from field names mapped to type strings.
func ParseTypeMap(m map[string]string) (Schema, error) {
	out := make(Schema, len(m))
	for key, s := range m {
		t, err := ParseType(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		out[key] = t
	}
	return out, nil
}
