package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon/pkg/domain"
)

// RunSourceStoreContract runs a suite of tests to verify that a SourceStore implementation
// adheres to the defined interface contract. The store must start empty.
func RunSourceStoreContract(t *testing.T, store SourceStore) {
	ctx := context.Background()
	src := []byte("package flows\n\n//@node\nfunc add(x, y int) int { return x + y }\n")

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "main.go", src))

		loaded, err := store.Load(ctx, "main.go")
		require.NoError(t, err)
		assert.Equal(t, src, loaded)
	})

	t.Run("Save replaces", func(t *testing.T) {
		next := append([]byte(nil), src...)
		next = append(next, "\n// edited\n"...)
		require.NoError(t, store.Save(ctx, "main.go", next))

		loaded, err := store.Load(ctx, "main.go")
		require.NoError(t, err)
		assert.Equal(t, next, loaded)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing.go")
		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "nested/other.go", src))

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"main.go", "nested/other.go"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "nested/other.go"))
		require.NoError(t, store.Delete(ctx, "nested/other.go"), "deleting twice is not an error")

		_, err := store.Load(ctx, "nested/other.go")
		assert.ErrorIs(t, err, domain.ErrSourceNotFound)

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"main.go"}, names)
	})
}

// RunCredentialStoreContract verifies a CredentialStore implementation.
// The store must start empty.
func RunCredentialStoreContract(t *testing.T, store CredentialStore) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "openai", map[string]string{"api_key": "sk-1"}))

		got, err := store.Get(ctx, "openai")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"api_key": "sk-1"}, got)
	})

	t.Run("Returned map is a copy", func(t *testing.T) {
		got, err := store.Get(ctx, "openai")
		require.NoError(t, err)
		got["api_key"] = "tampered"

		again, err := store.Get(ctx, "openai")
		require.NoError(t, err)
		assert.Equal(t, "sk-1", again["api_key"])
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
	})

	t.Run("List and Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "anthropic", map[string]string{"api_key": "a"}))

		providers, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"anthropic", "openai"}, providers)

		require.NoError(t, store.Delete(ctx, "anthropic"))
		require.NoError(t, store.Delete(ctx, "anthropic"))
		_, err = store.Get(ctx, "anthropic")
		assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
	})
}

// RunLockerContract verifies that a DistributedLocker excludes concurrent holders.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	ctx := context.Background()

	t.Run("Mutual exclusion", func(t *testing.T) {
		var (
			mu      sync.Mutex
			holders int
			peak    int
			wg      sync.WaitGroup
		)
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(ctx, "contract.go", time.Second)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				holders++
				peak = max(peak, holders)
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				holders--
				mu.Unlock()
				assert.NoError(t, unlock(ctx))
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, peak)
	})

	t.Run("Cancelled wait", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "held.go", 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = unlock(ctx) }()

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "held.go", 5*time.Second)
		assert.Error(t, err)
	})
}
