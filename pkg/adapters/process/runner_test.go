package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon/pkg/module"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestRunner_Execute(t *testing.T) {
	requireShell(t)
	r := NewRunner()
	r.Register("args", "sh", "-c", `echo "$HOLON_ARG_0-$HOLON_ARG_1"`)
	r.Register("input", "sh", "-c", `echo "$HOLON_INPUT_USER_NAME"`)
	r.Register("stdin", "cat")
	r.Register("object", "sh", "-c", `echo '{"ok": true}'`)
	r.Register("fail", "sh", "-c", `echo broken >&2; exit 3`)

	ctx := context.Background()

	t.Run("positional args as env", func(t *testing.T) {
		out, err := r.Execute(ctx, "args", module.Call{Args: []any{"a", 2}})
		require.NoError(t, err)
		assert.Equal(t, "a-2", out)
	})

	t.Run("inputs as env", func(t *testing.T) {
		out, err := r.Execute(ctx, "input", module.Call{Inputs: map[string]any{"user-name": "ana"}})
		require.NoError(t, err)
		assert.Equal(t, "ana", out)
	})

	t.Run("args as JSON on stdin", func(t *testing.T) {
		out, err := r.Execute(ctx, "stdin", module.Call{Args: []any{"x", 1}})
		require.NoError(t, err)
		assert.Equal(t, []any{"x", float64(1)}, out)
	})

	t.Run("JSON output decoded", func(t *testing.T) {
		out, err := r.Execute(ctx, "object", module.Call{})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ok": true}, out)
	})

	t.Run("failure carries stderr", func(t *testing.T) {
		_, err := r.Execute(ctx, "fail", module.Call{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
	})

	t.Run("unregistered step", func(t *testing.T) {
		_, err := r.Execute(ctx, "hacker_script", module.Call{})
		assert.ErrorContains(t, err, "not registered")
	})
}

func TestRunner_BindingsDriveAModule(t *testing.T) {
	requireShell(t)
	src := `package flows

//@node
func shout(msg string) string {
	panic("bound externally")
}

//@workflow
func main() string {
	return shout("hi")
}
`
	r := NewRunner()
	r.Register("shout", "sh", "-c", `echo "$HOLON_ARG_0!"`)

	m, err := module.Load([]byte(src), r.Bindings())
	require.NoError(t, err)
	fn, ok := m.Binding("shout")
	require.True(t, ok)

	out, err := fn(context.Background(), module.Call{Args: []any{"hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
}

func TestLoadSteps(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(yamlPath, []byte(`steps:
  - name: fetch
    command: curl
    args: ["-s"]
    env:
      TOKEN: x
  - command: ignored-without-name
`), 0o644))

	steps, err := LoadSteps(yamlPath)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, StepConfig{
		Name: "fetch", Command: "curl", Args: []string{"-s"}, Environment: map[string]string{"TOKEN": "x"},
	}, steps["fetch"])

	jsonPath := filepath.Join(dir, "steps.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"steps":[{"name":"a","command":"true"}]}`), 0o644))
	steps, err = LoadSteps(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, steps, "a")

	steps, err = LoadSteps(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, steps)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("steps:\n  - name: x\n"), 0o644))
	_, err = LoadSteps(bad)
	assert.ErrorContains(t, err, "command is required")
}
