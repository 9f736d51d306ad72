package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/internal/logging"
	"github.com/aretw0/holon/pkg/adapters/memory"
	"github.com/aretw0/holon/pkg/domain"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{name: "number", pairs: []string{"n=41"}, want: map[string]any{"n": float64(41)}},
		{name: "string fallback", pairs: []string{"name=ada"}, want: map[string]any{"name": "ada"}},
		{name: "json object", pairs: []string{`cfg={"a":true}`}, want: map[string]any{"cfg": map[string]any{"a": true}}},
		{name: "quoted string", pairs: []string{`s="7"`}, want: map[string]any{"s": "7"}},
		{name: "equals in value", pairs: []string{"q=a=b"}, want: map[string]any{"q": "a=b"}},
		{name: "empty value", pairs: []string{"e="}, want: map[string]any{"e": ""}},
		{name: "missing equals", pairs: []string{"n"}, wantErr: true},
		{name: "missing key", pairs: []string{"=1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintResult(t *testing.T) {
	res := &domain.RunResult{
		Output: 42,
		Order:  []string{"node:add"},
		Trace:  []domain.TraceEntry{{NodeID: "node:add", Status: domain.StatusSuccess}},
		Phase:  domain.PhaseCompleted,
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintResult(&buf, res, false))
		assert.Contains(t, buf.String(), "ok    node:add")
		assert.Contains(t, buf.String(), "42\n")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintResult(&buf, res, true))
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, float64(42), decoded["output"])
		assert.Equal(t, "completed", decoded["phase"])
	})

	t.Run("failed", func(t *testing.T) {
		failed := &domain.RunResult{
			Trace:      []domain.TraceEntry{{NodeID: "node:boom", Status: domain.StatusError, Error: "bad"}},
			Phase:      domain.PhaseFailed,
			FailedNode: "node:boom",
			Error:      "bad",
		}
		var buf bytes.Buffer
		require.NoError(t, PrintResult(&buf, failed, false))
		assert.Contains(t, buf.String(), "error node:boom")
		assert.Contains(t, buf.String(), ">>> Run failed at 'node:boom' node.")
	})
}

func TestExecute_ReturnsRunFailure(t *testing.T) {
	src := `package flows

//@node
func fetch() string { return "x" }

//@workflow
func main() string {
	return fetch()
}
`
	store := memory.NewStoreFrom(map[string]string{"main.go": src})
	eng, err := holon.New("", holon.WithSourceStore(store))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Execute(context.Background(), eng, RunOptions{Source: "main.go", Workflow: "nope"}, &buf)
	assert.Error(t, err)
}

func TestWatch_RerunsOnChange(t *testing.T) {
	store := memory.NewStoreFrom(map[string]string{"main.go": flow})
	eng, err := holon.New("", holon.WithSourceStore(store))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, eng, RunOptions{Source: "main.go", Workflow: "main", Args: map[string]any{"n": 1}}, out, logging.NewNop())
	}()

	require.Eventually(t, func() bool {
		return bytes.Count(out.Bytes(), []byte("Waiting for changes")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	changed := []byte(`package flows

//@node
func add(x, y int) int { return x + y + 100 }

//@workflow
func main(n int) int {
	return add(n, 1)
}
`)
	require.NoError(t, store.Save(context.Background(), "main.go", changed))

	require.Eventually(t, func() bool {
		return bytes.Contains(out.Bytes(), []byte("102\n"))
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}
