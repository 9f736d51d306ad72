package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon/pkg/adapters/file"
	"github.com/aretw0/holon/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSourceStoreContract(t, file.New(t.TempDir()))
}

func TestFileCredentialStore_Contract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	ports.RunCredentialStoreContract(t, file.NewCredentialStore(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestFileStore_RejectsEscapingNames(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"../outside.go", "/abs.go", "notes.txt", ""} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, store.Save(ctx, name, []byte("package p\n")))
		})
	}
}

func TestFileStore_ListSkipsTestsAndHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"main.go", "main_test.go", ".cache/x.go", "_examples/y.go", "sub/z.go", "README.md"} {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("package p\n"), 0o644))
	}

	names, err := file.New(dir).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "sub/z.go"}, names)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	names, err := file.New(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFileStore_Watch(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "flow.go"), []byte("package p\n"), 0o644))

	select {
	case name := <-events:
		assert.Equal(t, "flow.go", name)
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
}
