// Package schema declares the properties a declarative node type accepts.
//
// A type registers a Schema next to its resolver. The registry checks the
// schema itself when the type is registered and validates a node's literal
// props against it before resolving:
//
//	props := schema.Schema{
//	    "model_name":  schema.String(),
//	    "temperature": schema.Optional(schema.Float()),
//	    "stop":        schema.Optional(schema.Slice(schema.String())),
//	}
//
// Schemas round-trip through their string form ("string", "int?", "[string]",
// "map", "any"), which is how they appear in JSON and YAML listings.
package schema
