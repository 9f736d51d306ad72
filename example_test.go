package holon_test

import (
	"context"
	"fmt"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/pkg/adapters/memory"
)

func Example() {
	store := memory.NewStoreFrom(map[string]string{"main.go": `package flows

//@node
func add(x, y int) int { return x + y }

//@node
func multiply(x, f int) int { return x * f }

//@workflow
func main() int {
	s := add(5, 3)
	return multiply(s, 2)
}
`})

	eng, err := holon.New("", holon.WithSourceStore(store))
	if err != nil {
		panic(err)
	}

	res, err := eng.Run(context.Background(), "main.go", "main", nil)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Order)
	fmt.Println(res.Output)
	// Output:
	// [node:add node:multiply]
	// 16
}
