package schema

import (
	"fmt"
	"maps"
	"slices"
)

// Schema maps prop names to their types.
type Schema map[string]Type

// Keys returns the prop names in sorted order.
func (s Schema) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Check reports a malformed schema: empty names or nil types.
func (s Schema) Check() error {
	for _, key := range s.Keys() {
		if key == "" {
			return fmt.Errorf("schema has an empty field name")
		}
		if s[key] == nil {
			return fmt.Errorf("field %s: type is nil", key)
		}
	}
	return nil
}

// Validate checks data against schema, reporting every failing field in
// key order. Keys of data the schema does not mention are accepted.
func Validate(schema Schema, data map[string]any) error {
	var errs []error
	for _, key := range schema.Keys() {
		typ := schema[key]
		value, exists := data[key]
		if !exists {
			if !IsOptional(typ) {
				errs = append(errs, &ValidationError{Key: key, Reason: "required"})
			}
			continue
		}
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: value})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Fill returns a copy of data with defaults added for missing keys.
func Fill(data, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(data)+len(defaults))
	maps.Copy(out, defaults)
	maps.Copy(out, data)
	return out
}
