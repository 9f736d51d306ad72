// Package module turns a workflow source buffer into something the engine
// can run: the extracted graph, the declarations by name, a call plan for
// every workflow and the Go functions bound to each step.
//
// Step implementations come from three places, in order: explicit Bindings,
// and for steps whose body is a single return of an arithmetic or comparison
// expression over their parameters, an evaluator compiled from that
// expression. A step with neither fails when the engine reaches it.
package module
