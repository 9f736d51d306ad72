/*
Package dsl is the vocabulary holon workflow files are written in, plus a
fluent builder for constructing graphs directly in Go.

A workflow file is ordinary Go. Steps and workflows are plain functions
carrying a doc-comment annotation; declarative nodes and port links are
calls into this package that the extractor reads statically:

	package flows

	import "github.com/aretw0/holon/pkg/dsl"

	var _ = dsl.Spec(dsl.Decl{
		ID:    "spec:memory.buffer:chat",
		Type:  "memory.buffer",
		Props: dsl.Props{"max_messages": 20},
	})

	//@node
	func add(x, y int) int { return x + y }

	//@workflow
	func main() int {
		s := add(5, 3)
		dsl.Link("node:add", "output", "spec:agent:writer", "input")
		return s
	}

The Builder produces the same domain.Graph without any source text, which
is handy for embedding and for tests:

	g := dsl.New().
		Step("add").
		Workflow("main", "add").
		Link("node:add", "output", "node:multiply", "x").
		Graph()
*/
package dsl
