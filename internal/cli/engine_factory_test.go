package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon/internal/config"
	"github.com/aretw0/holon/internal/logging"
	"github.com/aretw0/holon/pkg/adapters/file"
)

const flow = `package flows

//@node
func add(x, y int) int { return x + y }

//@workflow
func main(n int) int {
	return add(n, 1)
}
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(flow), 0o644))
	return dir
}

func projectConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.Dir = dir
	cfg.StepsFile = filepath.Join(dir, "holon.steps.yaml")
	return cfg
}

func TestNewEngine_FileBackend(t *testing.T) {
	dir := writeProject(t)

	setup, err := NewEngine(projectConfig(dir), logging.NewNop())
	require.NoError(t, err)
	defer setup.Close()

	var out bytes.Buffer
	err = Execute(context.Background(), setup.Engine, RunOptions{
		Source:   "main.go",
		Workflow: "main",
		Args:     map[string]any{"n": 41},
	}, &out)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.String(), "42\n"), out.String())
}

func TestNewEngine_MemoryBackendDoesNotWriteBack(t *testing.T) {
	dir := writeProject(t)
	cfg := projectConfig(dir)
	cfg.Store.Backend = config.BackendMemory

	setup, err := NewEngine(cfg, logging.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, setup.Engine.Rename(ctx, "main.go", "add", "plus"))

	edited, err := setup.Engine.Source(ctx, "main.go")
	require.NoError(t, err)
	assert.Contains(t, string(edited), "func plus(")

	disk, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, flow, string(disk))
}

func TestNewEngine_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.StepsFile = ""
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.Addr = mr.Addr()

	setup, err := NewEngine(cfg, logging.NewNop())
	require.NoError(t, err)
	defer setup.Close()

	ctx := context.Background()
	require.NoError(t, setup.Engine.SaveSource(ctx, "main.go", []byte(flow)))
	assert.True(t, mr.Exists("holon:source:main.go"))

	res, err := setup.Engine.Run(ctx, "main.go", "main", map[string]any{"n": 1})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	require.NoError(t, setup.Credentials.Set(ctx, "openai", map[string]string{"api_key": "sk"}))
	got, err := setup.Credentials.Get(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk", got["api_key"])
}

func TestNewEngine_EncryptedCredentialsFile(t *testing.T) {
	dir := writeProject(t)
	keyFile := filepath.Join(dir, "keys")
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, os.WriteFile(keyFile, []byte(key+"\n"), 0o600))

	cfg := projectConfig(dir)
	cfg.Credentials.File = filepath.Join(dir, "credentials.json")
	cfg.Credentials.KeyFile = keyFile

	setup, err := NewEngine(cfg, logging.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, setup.Credentials.Set(ctx, "openai", map[string]string{"api_key": "sk-secret"}))

	got, err := setup.Engine.Credentials().Get(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", got["api_key"])

	raw, err := os.ReadFile(cfg.Credentials.File)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-secret")

	plain, err := file.NewCredentialStore(cfg.Credentials.File).Get(ctx, "openai")
	require.NoError(t, err)
	assert.NotContains(t, plain, "api_key")
}

func TestNewEngine_StepBindings(t *testing.T) {
	dir := writeProject(t)
	steps := "steps:\n  - name: add\n    command: echo\n    args: [\"7\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "holon.steps.yaml"), []byte(steps), 0o644))

	setup, err := NewEngine(projectConfig(dir), logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"add"}, setup.Steps)
}

func TestNewEngine_InvalidCyclePolicy(t *testing.T) {
	cfg := config.Default()
	cfg.CyclePolicy = "spin"
	_, err := NewEngine(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestSourceName(t *testing.T) {
	dir := writeProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "x.go"), []byte(flow), 0o644))
	other := writeProject(t)

	t.Run("inside dir", func(t *testing.T) {
		cfg := projectConfig(dir)
		name, err := SourceName(&cfg, filepath.Join(dir, "sub", "x.go"))
		require.NoError(t, err)
		assert.Equal(t, "sub/x.go", name)
		assert.Equal(t, dir, cfg.Dir)
	})

	t.Run("outside dir moves dir", func(t *testing.T) {
		cfg := projectConfig(dir)
		name, err := SourceName(&cfg, filepath.Join(other, "main.go"))
		require.NoError(t, err)
		assert.Equal(t, "main.go", name)
		assert.Equal(t, other, cfg.Dir)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := projectConfig(dir)
		_, err := SourceName(&cfg, filepath.Join(dir, "nope.go"))
		assert.Error(t, err)
	})

	t.Run("redis names pass through", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Backend = config.BackendRedis
		name, err := SourceName(&cfg, "flows/a.go")
		require.NoError(t, err)
		assert.Equal(t, "flows/a.go", name)
	})
}
