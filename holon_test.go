package holon_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/pkg/adapters/memory"
	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/extract"
	"github.com/aretw0/holon/pkg/module"
	"github.com/aretw0/holon/pkg/patch"
)

const flow = `package flows

//@node
func add(x, y int) int { return x + y }

//@node
func multiply(x, f int) int { return x * f }

//@workflow
func main() int {
	s := add(5, 3)
	p := multiply(s, 2)
	return p
}
`

func newEngine(t *testing.T, opts ...holon.Option) *holon.Engine {
	t.Helper()
	store := memory.NewStoreFrom(map[string]string{"main.go": flow})
	eng, err := holon.New("", append([]holon.Option{holon.WithSourceStore(store)}, opts...)...)
	require.NoError(t, err)
	return eng
}

func TestNew_RequiresDirOrStore(t *testing.T) {
	_, err := holon.New("")
	assert.Error(t, err)
}

func TestEngine_Run(t *testing.T) {
	eng := newEngine(t)

	res, err := eng.Run(context.Background(), "main.go", "main", nil)
	require.NoError(t, err)
	assert.Equal(t, 16, res.Output)
	assert.Equal(t, []string{"node:add", "node:multiply"}, res.Order)
}

func TestEngine_RunMissingSource(t *testing.T) {
	_, err := newEngine(t).Run(context.Background(), "nope.go", "main", nil)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestEngine_RunsOfOneSourceDoNotOverlap(t *testing.T) {
	var active, peak atomic.Int32
	eng := newEngine(t, holon.WithBindings(module.Bindings{
		"add": module.MustFunc(func(x, y int) int {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return x + y
		}),
	}))

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = eng.Run(context.Background(), "main.go", "main", nil)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), peak.Load())
}

func TestEngine_BindingsOverrideExpressionSteps(t *testing.T) {
	eng := newEngine(t, holon.WithBindings(module.Bindings{
		"add": module.MustFunc(func(x, y int) int { return x - y }),
	}))

	res, err := eng.Run(context.Background(), "main.go", "main", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Output)
}

func TestEngine_Graph(t *testing.T) {
	g, err := newEngine(t).Graph(context.Background(), "main.go")
	require.NoError(t, err)

	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"node:add", "node:multiply", "workflow:main"}, ids)
	assert.Len(t, g.Edges, 2)
}

func TestEngine_EditsPersist(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, holon.WithLocker(memory.NewLocker()))

	require.NoError(t, eng.Rename(ctx, "main.go", "add", "sum"))

	id, err := eng.AddDeclarativeNode(ctx, "main.go", patch.NodeSpec{
		ID: "spec:mem", Type: "memory.buffer", Props: map[string]any{"max_messages": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "spec:mem", id)

	require.NoError(t, eng.AddLink(ctx, "main.go", "main", patch.Link{
		Source: "node:sum", SourcePort: "output", Target: "node:multiply", TargetPort: "x",
	}))

	g, err := eng.Graph(ctx, "main.go")
	require.NoError(t, err)
	assert.True(t, g.Has("node:sum"))
	assert.False(t, g.Has("node:add"))
	assert.True(t, g.Has("spec:mem"))
	assert.Len(t, g.Links(), 1)

	res, err := eng.Run(ctx, "main.go", "main", nil)
	require.NoError(t, err)
	assert.Equal(t, 16, res.Output)

	require.NoError(t, eng.DeleteNode(ctx, "main.go", "spec:mem"))
	g, err = eng.Graph(ctx, "main.go")
	require.NoError(t, err)
	assert.False(t, g.Has("spec:mem"))
}

func TestEngine_FailedEditLeavesSourceUntouched(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	before, err := eng.Source(ctx, "main.go")
	require.NoError(t, err)

	err = eng.Rename(ctx, "main.go", "ghost", "other")
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)

	after, err := eng.Source(ctx, "main.go")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	err = eng.Edit(ctx, "main.go", func([]byte) ([]byte, error) { return nil, errors.New("nope") })
	assert.EqualError(t, err, "nope")
}

func TestEngine_Lint(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	require.NoError(t, eng.SaveSource(ctx, "lint.go", []byte(`package flows

var _ = dsl.Spec(dsl.Decl{ID: "spec:x", Type: "unknown.kind"})

//@node
func lonely() int { return 1 }
`)))

	_, issues, err := eng.Lint(ctx, "lint.go")
	require.NoError(t, err)
	kinds := make([]extract.IssueKind, 0, len(issues))
	for _, is := range issues {
		kinds = append(kinds, is.Kind)
	}
	assert.ElementsMatch(t, []extract.IssueKind{extract.IssueUnknownType, extract.IssueUnusedStep}, kinds)
}

func TestEngine_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng := newEngine(t)

	events, err := eng.Watch(ctx)
	require.NoError(t, err)
	require.NoError(t, eng.Rename(ctx, "main.go", "add", "plus"))
	assert.Equal(t, "main.go", <-events)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var phases []domain.Phase
	eng := newEngine(t, holon.WithLifecycleHooks(domain.LifecycleHooks{
		OnPhase: func(_ context.Context, ev *domain.PhaseEvent) { phases = append(phases, ev.To) },
	}))

	_, err := eng.Run(context.Background(), "main.go", "main", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, phases[len(phases)-1])
}
