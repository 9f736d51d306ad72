package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/pkg/adapters/memory"
	"github.com/aretw0/holon/pkg/persistence/middleware"
	"github.com/aretw0/holon/pkg/ports"
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

func newEngine(t *testing.T, store ports.SourceStore) *holon.Engine {
	t.Helper()
	eng, err := holon.New("", holon.WithSourceStore(store))
	require.NoError(t, err)
	return eng
}

func newTestHandler(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStoreFrom(map[string]string{"main.go": flow})
	return NewHandler(newEngine(t, store), "main.go"), store
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, path := range []string{"/", "/health"} {
		w, out := do(t, h, "GET", path, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, out["ok"])
		assert.Equal(t, "main.go", out["file"])
		assert.Contains(t, out["endpoints"], "execute_workflow")
	}
}

func TestInfo(t *testing.T) {
	h, _ := newTestHandler(t)
	_, out := do(t, h, "GET", "/info", nil)
	assert.Equal(t, "holon-http", out["app"])
	assert.Equal(t, "0.4.0", out["api_version"])
}

func TestOpenAPISpecIsValid(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.NotNil(t, doc.Paths.Find("/api/execute_workflow"))
}

func TestNotFoundAndCORS(t *testing.T) {
	h, _ := newTestHandler(t)

	w, out := do(t, h, "GET", "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", out["error"])

	w, _ = do(t, h, "DELETE", "/api/source", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, h, "OPTIONS", "/api/source", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSource_GetPut(t *testing.T) {
	h, store := newTestHandler(t)

	_, out := do(t, h, "GET", "/api/source", nil)
	assert.Equal(t, flow, out["source"])

	w, out := do(t, h, "PUT", "/api/source", map[string]string{"file": "other.go", "source": "package flows\n"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["ok"])

	got, err := store.Load(context.Background(), "other.go")
	require.NoError(t, err)
	assert.Equal(t, "package flows\n", string(got))

	w, out = do(t, h, "GET", "/api/source?file=missing.go", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, out["error"])
}

func TestParse(t *testing.T) {
	h, _ := newTestHandler(t)

	_, out := do(t, h, "POST", "/api/parse", nil)
	graph := out["graph"].(map[string]any)
	assert.Len(t, graph["nodes"], 3)

	_, out = do(t, h, "POST", "/api/parse", map[string]string{"source": "package flows\n\n//@node\nfunc a() {}\n"})
	graph = out["graph"].(map[string]any)
	assert.Len(t, graph["nodes"], 1)

	w, out := do(t, h, "POST", "/api/parse", map[string]string{"source": "not go"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, out["error"])
}

func TestEdits(t *testing.T) {
	h, store := newTestHandler(t)

	t.Run("rename", func(t *testing.T) {
		w, out := do(t, h, "POST", "/api/rename_node", map[string]string{"old_name": "add", "new_name": "sum"})
		require.Equal(t, http.StatusOK, w.Code, out)
		assert.Contains(t, out["source"], "func sum(x, y int)")
		assert.Contains(t, out["source"], "s := sum(5, 3)")
	})

	t.Run("add spec node", func(t *testing.T) {
		w, out := do(t, h, "POST", "/api/add_spec_node", map[string]any{
			"node_id":   "spec:llm",
			"node_type": "llm.model",
			"props":     map[string]any{"model": "gpt-4o"},
		})
		require.Equal(t, http.StatusOK, w.Code, out)
		assert.Equal(t, "spec:llm", out["node_id"])
		assert.Contains(t, out["source"], `"spec:llm"`)
	})

	t.Run("patch spec node", func(t *testing.T) {
		w, out := do(t, h, "POST", "/api/patch_spec_node", map[string]any{
			"node_id":   "spec:llm",
			"label":     "Model",
			"set_label": true,
		})
		require.Equal(t, http.StatusOK, w.Code, out)
		assert.Contains(t, out["source"], `"Model"`)
	})

	t.Run("patch body", func(t *testing.T) {
		w, out := do(t, h, "POST", "/api/patch_node", map[string]string{
			"node_name":         "multiply",
			"new_function_code": "func multiply(x, f int) int { return x * f * 10 }",
		})
		require.Equal(t, http.StatusOK, w.Code, out)
		assert.Contains(t, out["source"], "x * f * 10")
	})

	t.Run("delete", func(t *testing.T) {
		w, out := do(t, h, "POST", "/api/delete_node", map[string]string{"node_id": "spec:llm"})
		require.Equal(t, http.StatusOK, w.Code, out)
		assert.NotContains(t, out["source"], "spec:llm")
	})

	t.Run("invalid request leaves source alone", func(t *testing.T) {
		before, err := store.Load(context.Background(), "main.go")
		require.NoError(t, err)

		w, out := do(t, h, "POST", "/api/add_link", map[string]string{"workflow_name": "main"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, out["error"], "missing required fields")

		w, _ = do(t, h, "POST", "/api/rename_node", map[string]string{"old_name": "ghost", "new_name": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		after, err := store.Load(context.Background(), "main.go")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestExecuteWorkflow(t *testing.T) {
	h, _ := newTestHandler(t)

	w, out := do(t, h, "POST", "/api/execute_workflow", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 16.0, out["output"])
	result := out["result"].(map[string]any)
	assert.Equal(t, "completed", result["phase"])

	w, out = do(t, h, "POST", "/api/execute_workflow", map[string]string{"workflow_name": "nope"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, out["output"], "error")
	assert.Nil(t, out["result"])
}

func TestExecuteWorkflow_NoFile(t *testing.T) {
	store := memory.NewStoreFrom(map[string]string{"main.go": flow})
	h := NewHandler(newEngine(t, store), "")

	w, out := do(t, h, "POST", "/api/execute_workflow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "no source file")

	_, out = do(t, h, "POST", "/api/execute_workflow", map[string]string{"file": "main.go"})
	assert.Equal(t, 16.0, out["output"])
}

func TestCredentials(t *testing.T) {
	h, _ := newTestHandler(t)

	w, out := do(t, h, "POST", "/api/credentials", map[string]any{
		"provider":    "openai",
		"credentials": map[string]string{"api_key": "sk-test"},
	})
	require.Equal(t, http.StatusOK, w.Code, out)

	_, out = do(t, h, "GET", "/api/credentials/openai", nil)
	assert.Equal(t, "sk-test", out["api_key"])

	_, out = do(t, h, "GET", "/api/credentials/unknown", nil)
	assert.Empty(t, out)

	_, out = do(t, h, "GET", "/api/credentials", nil)
	assert.Contains(t, out, "openai")

	w, _ = do(t, h, "POST", "/api/credentials", map[string]string{"provider": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsMount(t *testing.T) {
	store := memory.NewStoreFrom(map[string]string{"main.go": flow})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("holon_runs_total 1\n"))
	})
	h := NewHandler(newEngine(t, store), "main.go", WithMetrics(metrics))

	w, _ := do(t, h, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "holon_runs_total")
}

// readEvent returns the next data line of an SSE stream.
func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	lines := make(chan string, 1)
	go func() {
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			if strings.HasPrefix(line, "data: ") {
				lines <- strings.TrimSpace(strings.TrimPrefix(line, "data: "))
				return
			}
		}
	}()
	select {
	case line, ok := <-lines:
		require.True(t, ok, "stream closed")
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func subscribe(t *testing.T, url string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readEvent(t, r))
	return r
}

func TestSubscribeEvents_Watch(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	events := subscribe(t, srv.URL+"/events?file=main.go")

	put := func(file string) {
		body := strings.NewReader(`{"file":"` + file + `","source":"package flows\n"}`)
		req, err := http.NewRequest("PUT", srv.URL+"/api/source", body)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}
	put("other.go")
	put("main.go")

	assert.Equal(t, "main.go", readEvent(t, events))
}

// unwatchable hides Watch from the wrapped store.
type unwatchable struct{ ports.SourceStore }

func TestSubscribeEvents_APIEditsWithoutWatch(t *testing.T) {
	store := unwatchable{memory.NewStoreFrom(map[string]string{"main.go": flow})}
	srv := httptest.NewServer(NewHandler(newEngine(t, store), "main.go"))
	defer srv.Close()

	events := subscribe(t, srv.URL+"/events")

	resp, err := http.Post(srv.URL+"/api/rename_node", "application/json",
		strings.NewReader(`{"old_name":"add","new_name":"sum"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "main.go", readEvent(t, events))
}

func TestCredentials_RedactedView(t *testing.T) {
	store := memory.NewStoreFrom(map[string]string{"main.go": flow})
	eng := newEngine(t, store)
	view := middleware.NewRedactionMiddleware(middleware.DefaultSecretPatterns)(eng.Credentials())
	h := NewHandler(eng, "main.go", WithCredentialStore(view))

	do(t, h, "POST", "/api/credentials", map[string]any{
		"provider":    "openai",
		"credentials": map[string]string{"api_key": "sk-test"},
	})
	_, out := do(t, h, "GET", "/api/credentials/openai", nil)
	assert.Equal(t, middleware.Mask, out["api_key"])

	raw, err := eng.Credentials().Get(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", raw["api_key"])
}
