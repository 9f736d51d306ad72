/*
Package holon turns annotated Go source files into executable graphs and
edits those files in place without losing comments or formatting.

A workflow file is ordinary Go. Functions annotated //@node are callable
steps, functions annotated //@workflow orchestrate them, and dsl.Spec
declarations describe typed nodes by literal properties alone:

	package flows

	import "github.com/aretw0/holon/pkg/dsl"

	var _ = dsl.Spec(dsl.Decl{
		ID:    "spec:llm.model:gpt",
		Type:  "llm.model",
		Props: dsl.Props{"model_name": "gpt-4o"},
	})

	//@node
	func add(x, y int) int { return x + y }

	//@node
	func multiply(x, f int) int { return x * f }

	//@workflow
	func main() int {
		s := add(5, 3)
		return multiply(s, 2)
	}

# Usage

The Engine reads sources from a ports.SourceStore (a directory by default),
extracts their graph, applies structural edits and runs workflows:

	eng, err := holon.New("./flows")
	if err != nil {
		log.Fatal(err)
	}

	g, _ := eng.Graph(ctx, "main.go")
	fmt.Println(len(g.Nodes), "nodes")

	res, err := eng.Run(ctx, "main.go", "main", nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Output) // 16

Steps whose body is a single arithmetic return are evaluated directly;
anything else needs a binding (WithBindings, or process-backed bindings
from pkg/adapters/process).

# Edits

Rename, AddDeclarativeNode, AddLink, PatchDeclarativeNode,
PatchCallableBody and DeleteNode rewrite only the affected byte ranges.
Each edit is a read-modify-write on the store, serialized by the
configured ports.DistributedLocker when one is set.
*/
package holon
