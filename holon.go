package holon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/holon/internal/runtime"
	"github.com/aretw0/holon/pkg/adapters/file"
	"github.com/aretw0/holon/pkg/adapters/memory"
	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/extract"
	"github.com/aretw0/holon/pkg/module"
	"github.com/aretw0/holon/pkg/patch"
	"github.com/aretw0/holon/pkg/ports"
	"github.com/aretw0/holon/pkg/registry"
)

// CyclePolicy decides what a run does when its nodes depend on each other
// in a loop.
type CyclePolicy = runtime.CyclePolicy

const (
	CycleFail          = runtime.CycleFail
	CycleBreakLowestID = runtime.CycleBreakLowestID
)

// ParseCyclePolicy reads "fail" or "break-lowest-id".
func ParseCyclePolicy(s string) (CyclePolicy, error) { return runtime.ParseCyclePolicy(s) }

// DefaultLockTTL bounds how long an edit may hold a source lock.
const DefaultLockTTL = 10 * time.Second

// Engine is the high-level entry point for the holon library.
// It ties a source store to the extractor, the patcher and the runtime.
type Engine struct {
	store       ports.SourceStore
	locker      ports.DistributedLocker
	credentials ports.CredentialStore
	registry    *registry.Registry
	bindings    module.Bindings
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	cycles      CyclePolicy
	fallback    bool
	lockTTL     time.Duration

	mu      sync.Mutex
	sources map[string]*sourceState

	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSourceStore replaces the default directory store.
func WithSourceStore(s ports.SourceStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker serializes edits across processes sharing the store.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLockTTL sets how long an edit lock lives before expiring.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithCredentialStore sets where provider credentials are kept.
func WithCredentialStore(s ports.CredentialStore) Option {
	return func(e *Engine) {
		e.credentials = s
	}
}

// WithRegistry sets the declarative type registry (builtins by default).
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithBindings adds step implementations. Later options win per name.
func WithBindings(b module.Bindings) Option {
	return func(e *Engine) {
		if e.bindings == nil {
			e.bindings = make(module.Bindings, len(b))
		}
		maps.Copy(e.bindings, b)
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCyclePolicy sets the cycle policy of runs.
func WithCyclePolicy(p CyclePolicy) Option {
	return func(e *Engine) {
		e.cycles = p
	}
}

// WithPropertyBagFallback lets runs resolve unknown declarative types to
// their raw props instead of failing.
func WithPropertyBagFallback(enabled bool) Option {
	return func(e *Engine) {
		e.fallback = enabled
	}
}

// New initializes an Engine. By default sources are the .go files below
// dir; with WithSourceStore, dir only names the engine and may be empty.
func New(dir string, opts ...Option) (*Engine, error) {
	eng := &Engine{sources: make(map[string]*sourceState)}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		if dir == "" {
			return nil, errors.New("dir is required when no source store is provided")
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.store = file.New(abs)
		eng.Name = filepath.Base(abs)
	} else if dir != "" {
		eng.Name = filepath.Base(dir)
	}

	if eng.credentials == nil {
		eng.credentials = memory.NewCredentialStore()
	}
	if eng.registry == nil {
		eng.registry = registry.NewWithBuiltins()
	}
	if eng.lockTTL == 0 {
		eng.lockTTL = DefaultLockTTL
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("project", eng.Name)
	}
	return eng, nil
}

// Store returns the source store.
func (e *Engine) Store() ports.SourceStore { return e.store }

// Credentials returns the credential store. It is process memory unless
// WithCredentialStore says otherwise.
func (e *Engine) Credentials() ports.CredentialStore { return e.credentials }

// Registry returns the declarative type registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Sources lists the stored workflow files.
func (e *Engine) Sources(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// Source returns the text of one workflow file.
func (e *Engine) Source(ctx context.Context, name string) ([]byte, error) {
	return e.store.Load(ctx, name)
}

// SaveSource replaces the text of one workflow file as is.
func (e *Engine) SaveSource(ctx context.Context, name string, src []byte) error {
	return e.store.Save(ctx, name, src)
}

// Graph extracts the graph of a stored file, with the declared ports of
// known types filled in.
func (e *Engine) Graph(ctx context.Context, name string) (domain.Graph, error) {
	src, err := e.store.Load(ctx, name)
	if err != nil {
		return domain.Graph{}, err
	}
	return e.Parse(src)
}

// Parse extracts the graph of source text that is not stored.
func (e *Engine) Parse(src []byte) (domain.Graph, error) {
	g, err := extract.Extract(src)
	if err != nil {
		return domain.Graph{}, err
	}
	return e.registry.Annotate(g), nil
}

// Lint extracts the graph of a stored file and reports what would make it
// misbehave: skipped or duplicate declarations, dangling links, unknown
// types and steps no workflow calls.
func (e *Engine) Lint(ctx context.Context, name string) (domain.Graph, []extract.Issue, error) {
	src, err := e.store.Load(ctx, name)
	if err != nil {
		return domain.Graph{}, nil, err
	}
	return extract.Lint(src, e.registry.Has)
}

// Load builds the runnable module of a stored file.
func (e *Engine) Load(ctx context.Context, name string) (*module.Module, error) {
	src, err := e.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return module.Load(src, e.bindings)
}

// Run executes workflow from a stored file. Resolved declarative nodes are
// cached per file and reused while their type and props are unchanged.
// Runs of one file are serialized since they share those cached instances;
// runs of different files proceed concurrently.
func (e *Engine) Run(ctx context.Context, name, workflow string, args map[string]any) (*domain.RunResult, error) {
	mod, err := e.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	st := e.source(name)
	st.runMu.Lock()
	defer st.runMu.Unlock()

	rt := runtime.NewEngine(mod,
		runtime.WithRegistry(e.registry),
		runtime.WithLogger(e.logger.With("source", name)),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithCyclePolicy(e.cycles),
		runtime.WithPropertyBagFallback(e.fallback),
		runtime.WithCache(st.cache),
	)
	return rt.Run(ctx, workflow, args)
}

// sourceState is the per-file run state. runMu serializes runs that use the
// instances held by cache.
type sourceState struct {
	runMu sync.Mutex
	cache *runtime.ResolutionCache
}

func (e *Engine) source(name string) *sourceState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.sources[name]
	if !ok {
		st = &sourceState{cache: runtime.NewResolutionCache()}
		e.sources[name] = st
	}
	return st
}

// Watch reports changed sources when the store supports it.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.store.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, errors.New("current source store does not support watching")
}

// Edit applies fn to a stored file and saves the result. The read and the
// write happen under the source lock when a locker is configured.
func (e *Engine) Edit(ctx context.Context, name string, fn func(src []byte) ([]byte, error)) error {
	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, name, e.lockTTL)
		if err != nil {
			return fmt.Errorf("lock %s: %w", name, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("failed to release source lock", "source", name, "err", err)
			}
		}()
	}

	src, err := e.store.Load(ctx, name)
	if err != nil {
		return err
	}
	out, err := fn(src)
	if err != nil {
		return err
	}
	if err := e.store.Save(ctx, name, out); err != nil {
		return err
	}
	e.logger.Debug("source edited", "source", name)
	return nil
}

// Rename renames a step and every reference to it.
func (e *Engine) Rename(ctx context.Context, name, oldName, newName string) error {
	return e.Edit(ctx, name, func(src []byte) ([]byte, error) {
		return patch.Rename(src, oldName, newName)
	})
}

// AddDeclarativeNode appends a declarative node and returns its id.
func (e *Engine) AddDeclarativeNode(ctx context.Context, name string, n patch.NodeSpec) (string, error) {
	var id string
	err := e.Edit(ctx, name, func(src []byte) ([]byte, error) {
		out, newID, err := patch.AddDeclarativeNode(src, n)
		id = newID
		return out, err
	})
	return id, err
}

// AddLink adds an explicit port link to a workflow.
func (e *Engine) AddLink(ctx context.Context, name, workflow string, l patch.Link) error {
	return e.Edit(ctx, name, func(src []byte) ([]byte, error) {
		return patch.AddLink(src, workflow, l)
	})
}

// PatchDeclarativeNode changes the flagged fields of a declarative node.
func (e *Engine) PatchDeclarativeNode(ctx context.Context, name, id string, p patch.SpecPatch) error {
	return e.Edit(ctx, name, func(src []byte) ([]byte, error) {
		return patch.PatchDeclarativeNode(src, id, p)
	})
}

// PatchCallableBody replaces one function declaration.
func (e *Engine) PatchCallableBody(ctx context.Context, name, step, replacement string) error {
	return e.Edit(ctx, name, func(src []byte) ([]byte, error) {
		return patch.PatchCallableBody(src, step, replacement)
	})
}

// DeleteNode removes a step, workflow or declarative node by id.
func (e *Engine) DeleteNode(ctx context.Context, name, id string) error {
	err := e.Edit(ctx, name, func(src []byte) ([]byte, error) {
		return patch.DeleteNode(src, id)
	})
	if err == nil {
		e.source(name).cache.Invalidate(id)
	}
	return err
}
