package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/internal/config"
	"github.com/aretw0/holon/pkg/adapters/file"
	"github.com/aretw0/holon/pkg/adapters/memory"
	"github.com/aretw0/holon/pkg/adapters/process"
	"github.com/aretw0/holon/pkg/adapters/redis"
	"github.com/aretw0/holon/pkg/persistence/middleware"
	"github.com/aretw0/holon/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Setup is an engine built from the project configuration together with
// the resources the commands need to release.
type Setup struct {
	Engine      *holon.Engine
	Credentials ports.CredentialStore
	Steps       []string
	closers     []func() error
}

// Close releases the backend connections opened by NewEngine.
func (s *Setup) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewEngine initializes a holon engine with the CLI conventions: sources
// from the configured backend, credentials from the configured file
// (encrypted when a key file is set), process step bindings from the steps
// file and the property-bag fallback unless the project is strict.
func NewEngine(cfg config.Config, logger *slog.Logger, extra ...holon.Option) (*Setup, error) {
	setup := &Setup{}
	opts := []holon.Option{holon.WithLogger(logger)}

	policy, err := holon.ParseCyclePolicy(cfg.CyclePolicy)
	if err != nil {
		return nil, err
	}
	opts = append(opts, holon.WithCyclePolicy(policy), holon.WithPropertyBagFallback(!cfg.Strict))

	var client *backend.Client
	switch cfg.Store.Backend {
	case config.BackendRedis:
		rc := cfg.Store.Redis
		client = backend.NewClient(&backend.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		setup.closers = append(setup.closers, client.Close)
		store := redis.NewFromClient(client, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		opts = append(opts,
			holon.WithSourceStore(store),
			holon.WithLocker(redis.NewLocker(client, rc.Prefix)),
		)
		logger.Debug("using redis source store", "addr", rc.Addr, "prefix", rc.Prefix)
	case config.BackendMemory:
		store, err := snapshot(cfg.Dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, holon.WithSourceStore(store), holon.WithLocker(memory.NewLocker()))
	default:
		opts = append(opts, holon.WithLocker(memory.NewLocker()))
	}

	creds, err := credentialStore(cfg.Credentials, client, cfg.Store.Redis.Prefix)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		setup.Credentials = creds
		opts = append(opts, holon.WithCredentialStore(creds))
	}

	if cfg.StepsFile != "" {
		steps, err := process.LoadSteps(cfg.StepsFile)
		if err != nil {
			return nil, err
		}
		if len(steps) > 0 {
			runner := process.NewRunner(process.WithSteps(steps), process.WithBaseDir(filepath.Dir(cfg.StepsFile)))
			setup.Steps = runner.Steps()
			opts = append(opts, holon.WithBindings(runner.Bindings()))
			logger.Debug("loaded step bindings", "file", cfg.StepsFile, "count", len(steps))
		}
	}

	eng, err := holon.New(cfg.Dir, append(opts, extra...)...)
	if err != nil {
		_ = setup.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	setup.Engine = eng
	if setup.Credentials == nil {
		setup.Credentials = eng.Credentials()
	}
	return setup, nil
}

// credentialStore returns nil when credentials stay in process memory.
func credentialStore(cfg config.CredentialsConfig, client *backend.Client, prefix string) (ports.CredentialStore, error) {
	var store ports.CredentialStore
	switch {
	case cfg.File != "":
		store = file.NewCredentialStore(cfg.File)
	case client != nil:
		store = redis.NewCredentialStore(client, prefix)
	case cfg.KeyFile != "":
		store = memory.NewCredentialStore()
	default:
		return nil, nil
	}

	if cfg.KeyFile != "" {
		keys, err := middleware.LoadKeys(cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(keys))
	}
	return store, nil
}

// snapshot copies the sources below dir into a memory store. Edits made
// through the engine are not written back.
func snapshot(dir string) (*memory.Store, error) {
	ctx := context.Background()
	disk := file.New(dir)
	names, err := disk.List(ctx)
	if err != nil {
		return nil, err
	}
	sources := make(map[string]string, len(names))
	for _, name := range names {
		src, err := disk.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		sources[name] = string(src)
	}
	return memory.NewStoreFrom(sources), nil
}

// SourceName maps a workflow file argument to a store name. For the file
// and memory backends a path outside cfg.Dir moves cfg.Dir to the file's
// directory; the redis backend takes names as they are.
func SourceName(cfg *config.Config, arg string) (string, error) {
	if arg == "" {
		return "", errors.New("a workflow file is required")
	}
	if cfg.Store.Backend == config.BackendRedis {
		return filepath.ToSlash(arg), nil
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("workflow file %s: %w", arg, err)
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		cfg.Dir = filepath.Dir(abs)
		return filepath.Base(abs), nil
	}
	return filepath.ToSlash(rel), nil
}
