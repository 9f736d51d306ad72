/*
Package domain contains the core models of the holon graph.

It defines the entities the extractor produces and the execution engine
consumes. This package is kept pure and free of external dependencies like
I/O or parsing, following Hexagonal Architecture principles.

# Key Entities

  - Node: A declaration found in source text (callable step, workflow entry or declarative node).
  - Edge: A directed link between two nodes, either an implicit call or an explicit port link.
  - Graph: The ordered set of nodes and edges extracted from one source buffer.
  - TraceEntry: The per-node outcome recorded while a graph runs.
*/
package domain
