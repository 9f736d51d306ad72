package runtime

import (
	"fmt"
	"slices"

	"github.com/aretw0/holon/pkg/domain"
)

// CyclePolicy decides what ordering does when no node is ready.
type CyclePolicy int

const (
	// CycleFail aborts the run with a *domain.CycleError before any step runs.
	CycleFail CyclePolicy = iota
	// CycleBreakLowestID schedules the remaining node with the lowest id and
	// carries on.
	CycleBreakLowestID
)

func (p CyclePolicy) String() string {
	switch p {
	case CycleFail:
		return "fail"
	case CycleBreakLowestID:
		return "break-lowest-id"
	}
	return fmt.Sprintf("CyclePolicy(%d)", int(p))
}

// ParseCyclePolicy reads the String form of a policy.
func ParseCyclePolicy(s string) (CyclePolicy, error) {
	switch s {
	case "", "fail":
		return CycleFail, nil
	case "break-lowest-id", "lowest-id":
		return CycleBreakLowestID, nil
	}
	return CycleFail, fmt.Errorf("unknown cycle policy %q", s)
}

// Order computes a ready-set topological order of nodes. deps lists, per
// node, the nodes it waits for; dependencies outside nodes are ignored.
// Each round appends every ready node, in the order of nodes.
func Order(nodes []string, deps map[string][]string, policy CyclePolicy) ([]string, error) {
	inSet := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		inSet[n] = true
	}
	done := make(map[string]bool, len(nodes))
	order := make([]string, 0, len(nodes))

	for len(order) < len(nodes) {
		var ready []string
		for _, n := range nodes {
			if done[n] {
				continue
			}
			blocked := false
			for _, d := range deps[n] {
				if inSet[d] && !done[d] {
					blocked = true
					break
				}
			}
			if !blocked {
				ready = append(ready, n)
			}
		}

		if len(ready) == 0 {
			var remaining []string
			for _, n := range nodes {
				if !done[n] {
					remaining = append(remaining, n)
				}
			}
			if policy != CycleBreakLowestID {
				return order, &domain.CycleError{Remaining: remaining}
			}
			ready = []string{slices.Min(remaining)}
		}

		for _, n := range ready {
			done[n] = true
			order = append(order, n)
		}
	}
	return order, nil
}
