/*
Package extract turns holon workflow source into a domain.Graph.

Extraction is a pure syntactic scan: nothing in the source is executed, and
the same text always yields the same graph, node and edge order included.
Nodes appear in declaration order. Edges appear in the order their call or
link statements occur inside workflow bodies, workflow by workflow.
*/
package extract
