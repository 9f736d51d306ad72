// Package runtime executes the graph of a loaded module: it registers port
// connections, resolves declarative nodes, orders the executable nodes and
// runs them one at a time.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/module"
	"github.com/aretw0/holon/pkg/registry"
)

// Engine runs the workflows of one module. Runs are serialized; the
// resolution cache survives between runs until Invalidate or Reset.
type Engine struct {
	mu       sync.Mutex
	mod      *module.Module
	registry *registry.Registry
	cache    *ResolutionCache
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	cycles   CyclePolicy
	fallback bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the type registry. The default holds the builtins.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithCyclePolicy sets what happens when the executable nodes form a cycle.
func WithCyclePolicy(p CyclePolicy) Option {
	return func(e *Engine) {
		e.cycles = p
	}
}

// WithPropertyBagFallback resolves nodes of unregistered types to a
// registry.PropertyBag of their props instead of failing the run.
func WithPropertyBagFallback(enabled bool) Option {
	return func(e *Engine) {
		e.fallback = enabled
	}
}

// WithCache shares a resolution cache, e.g. across engines of successive
// versions of the same source.
func WithCache(c *ResolutionCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// NewEngine creates an engine for mod.
func NewEngine(mod *module.Module, opts ...Option) *Engine {
	e := &Engine{mod: mod}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = registry.NewWithBuiltins()
	}
	if e.cache == nil {
		e.cache = NewResolutionCache()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return e
}

// Module returns the module the engine runs.
func (e *Engine) Module() *module.Module { return e.mod }

// Cache returns the resolution cache.
func (e *Engine) Cache() *ResolutionCache { return e.cache }

// Invalidate drops the cached resolution of one node.
func (e *Engine) Invalidate(nodeID string) { e.cache.Invalidate(nodeID) }

// Reset drops every cached resolution.
func (e *Engine) Reset() { e.cache.Reset() }

// Run executes workflow with args bound to its parameters and to the ports
// of the start pseudo-node. An empty workflow runs every callable step.
//
// Caller errors (unknown workflow, not a workflow) return a nil result.
// Once execution starts the result is always returned, and err is set when
// the run failed; it wraps domain.ErrExecutionFailure for step failures.
func (e *Engine) Run(ctx context.Context, workflow string, args map[string]any) (*domain.RunResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var plan *module.Workflow
	if workflow != "" {
		var err error
		if plan, err = e.mod.Workflow(workflow); err != nil {
			return nil, err
		}
	}

	r := &run{
		Engine:   e,
		id:       uuid.NewString(),
		graph:    e.mod.Graph(),
		plan:     plan,
		ports:    NewPortRegistry(),
		env:      make(map[string]any),
		resolved: make(map[string]*ResolvedNode),
		result:   &domain.RunResult{Phase: domain.PhaseIdle, Order: []string{}, Trace: []domain.TraceEntry{}},
	}
	return r.execute(ctx, args)
}

// run is the state of one execution.
type run struct {
	*Engine
	id       string
	graph    domain.Graph
	plan     *module.Workflow
	ports    *PortRegistry
	env      map[string]any
	resolved map[string]*ResolvedNode
	result   *domain.RunResult
}

func (r *run) execute(ctx context.Context, args map[string]any) (*domain.RunResult, error) {
	logger := r.logger.With("run_id", r.id)

	// connections and run arguments
	for _, edge := range r.links() {
		r.ports.AddConnection(Connection{
			SourceNode: edge.Source, SourcePort: edge.SourcePort,
			TargetNode: edge.Target, TargetPort: edge.TargetPort,
		})
	}
	for k, v := range args {
		r.ports.Set(domain.StartNodeID, k, v)
	}
	if r.plan != nil {
		maps.Copy(r.env, r.plan.Consts)
		for _, p := range r.plan.Params {
			if v, ok := args[p]; ok {
				r.env[p] = v
			}
		}
	}
	r.setPhase(ctx, domain.PhaseConnectionsRegistered)

	// declarative nodes, eagerly, in node order
	for _, n := range r.graph.NodesByRole(domain.RoleDeclarative) {
		rn, err := r.resolve(ctx, n)
		if err != nil {
			r.trace(n.ID, 0, err)
			return r.fail(ctx, n.ID, fmt.Errorf("resolve %s: %w", n.ID, err))
		}
		r.resolved[n.ID] = rn
		r.ports.Set(n.ID, domain.OutputPort, registry.PrimaryOutput(rn.Object))
	}
	r.setPhase(ctx, domain.PhaseSpecsResolved)

	nodes := r.executable()
	order, err := Order(nodes, r.dependencies(nodes), r.cycles)
	if err != nil {
		return r.fail(ctx, "", err)
	}
	r.result.Order = order
	r.setPhase(ctx, domain.PhaseOrdered)
	logger.Debug("execution order", "order", order)

	r.setPhase(ctx, domain.PhaseRunning)
	var last any
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, "", fmt.Errorf("run interrupted before %s: %w", id, err))
		}
		n, _ := r.graph.Node(id)

		r.stepEvent(ctx, r.hooks.OnStepStart, n, "", 0, nil)
		start := time.Now()
		out, err := r.executeNode(ctx, n)
		elapsed := time.Since(start)
		r.trace(id, elapsed, err)

		if err != nil {
			r.stepEvent(ctx, r.hooks.OnStepFinish, n, domain.StatusError, elapsed, err)
			return r.fail(ctx, id, &domain.ExecutionError{NodeID: id, Err: err})
		}
		r.stepEvent(ctx, r.hooks.OnStepFinish, n, domain.StatusSuccess, elapsed, nil)
		logger.Info("step finished", "node_id", id, "duration", elapsed)

		r.ports.Set(id, domain.OutputPort, out)
		r.bindResults(n, out)
		last = out
	}

	r.result.Output = r.output(last)
	r.setPhase(ctx, domain.PhaseCompleted)
	return r.result, nil
}

func (r *run) resolve(ctx context.Context, n domain.Node) (*ResolvedNode, error) {
	if rn, ok := r.cache.Lookup(n.ID, n.NodeType, n.Props); ok {
		return rn, nil
	}
	obj, err := r.registry.Resolve(ctx, n.NodeType, n.Props)
	if err != nil {
		if !r.fallback || !errors.Is(err, domain.ErrResolutionMissing) {
			return nil, err
		}
		r.logger.Warn("no resolver, using property bag", "node_id", n.ID, "node_type", n.NodeType)
		bag := registry.NewPropertyBag(n.Props)
		bag.Type = n.NodeType
		obj = bag
	}
	rn := &ResolvedNode{NodeID: n.ID, NodeType: n.NodeType, Props: n.Props, Object: obj}
	r.cache.Store(rn)
	return rn, nil
}

// executable returns, in node order, the steps the run calls and the
// invocable declarative nodes.
func (r *run) executable() []string {
	want := make(map[string]bool)
	if r.plan == nil {
		for _, n := range r.graph.NodesByRole(domain.RoleStep) {
			want[n.ID] = true
		}
	} else {
		for _, s := range r.plan.Steps() {
			want[domain.StepID(s)] = true
		}
		for _, e := range r.links() {
			for _, id := range []string{e.Source, e.Target} {
				if n, ok := r.graph.Node(id); ok && n.Role == domain.RoleStep {
					want[id] = true
				}
			}
		}
	}
	for id, rn := range r.resolved {
		if _, ok := rn.Object.(registry.Invocable); ok {
			want[id] = true
		}
	}

	var out []string
	for _, n := range r.graph.Nodes {
		if want[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// links returns the explicit links in scope: those of the entered workflow,
// or every link of the graph when no workflow is entered. Links the graph
// dropped as dangling stay out.
func (r *run) links() []domain.Edge {
	all := r.graph.Links()
	if r.plan == nil {
		return all
	}
	var out []domain.Edge
	for _, e := range r.plan.Links {
		if slices.Contains(all, e) {
			out = append(out, e)
		}
	}
	return out
}

// dependencies combines port connections with the data flow of the call
// plan: a step whose argument names another step's result waits for it.
func (r *run) dependencies(nodes []string) map[string][]string {
	deps := make(map[string][]string, len(nodes))
	var producers map[string]string
	if r.plan != nil {
		producers = r.plan.Producers()
	}
	for _, id := range nodes {
		d := r.ports.Dependencies(id)
		if r.plan != nil {
			n, _ := r.graph.Node(id)
			if cs, ok := r.plan.FirstCall(n.Name); ok && n.Role == domain.RoleStep {
				for _, a := range cs.Args {
					if a.Kind != module.ArgVar {
						continue
					}
					if p, ok := producers[a.Var]; ok && p != n.Name {
						if dep := domain.StepID(p); !slices.Contains(d, dep) {
							d = append(d, dep)
						}
					}
				}
			}
		}
		deps[id] = d
	}
	return deps
}

func (r *run) executeNode(ctx context.Context, n domain.Node) (any, error) {
	if n.Role == domain.RoleDeclarative {
		return r.invoke(ctx, n)
	}

	fn, ok := r.mod.Binding(n.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBindingMissing, n.Name)
	}
	inputs := r.ports.InputsFor(n.ID)

	var args []any
	if r.plan != nil {
		if cs, ok := r.plan.FirstCall(n.Name); ok {
			args = r.evalArgs(cs.Args)
		}
	}
	// linked input ports fill the parameter of the same name
	for i, p := range r.mod.Params(n.Name) {
		v, ok := inputs[p]
		if !ok {
			continue
		}
		for len(args) <= i {
			args = append(args, nil)
		}
		args[i] = v
	}
	return fn(ctx, module.Call{Args: args, Inputs: inputs})
}

func (r *run) invoke(ctx context.Context, n domain.Node) (any, error) {
	rn := r.resolved[n.ID]
	inv, ok := rn.Object.(registry.Invocable)
	if !ok {
		return nil, fmt.Errorf("node type %s is not invocable", n.NodeType)
	}

	fallback := registry.DefaultFallbackProp
	var multiple []string
	if d, ok := r.registry.Descriptor(n.NodeType); ok {
		fallback = d.Fallback()
		for _, p := range d.Ports {
			if p.Multiple {
				multiple = append(multiple, p.Name)
			}
		}
	}

	kwargs := r.ports.InputsFor(n.ID, multiple...)
	if _, ok := kwargs[registry.KwInput]; !ok {
		if v, ok := n.Props[fallback]; ok {
			kwargs[registry.KwInput] = v
		}
	}
	for _, k := range []string{registry.KwInput, registry.KwModel, registry.KwTools, registry.KwMemory} {
		if _, ok := kwargs[k]; !ok {
			kwargs[k] = nil
		}
	}
	return inv.Invoke(ctx, kwargs)
}

func (r *run) evalArgs(args []module.Arg) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch a.Kind {
		case module.ArgLiteral:
			out[i] = a.Value
		case module.ArgVar:
			out[i] = r.env[a.Var]
		}
	}
	return out
}

// bindResults assigns a step's output to every variable its call sites bind.
func (r *run) bindResults(n domain.Node, out any) {
	if r.plan == nil || n.Role != domain.RoleStep {
		return
	}
	for _, c := range r.plan.Calls {
		if c.Step == n.Name && c.Result != "" {
			r.env[c.Result] = out
		}
	}
}

// output is the workflow's return value when the plan can name it, and the
// last executed node's output otherwise.
func (r *run) output(last any) any {
	if r.plan == nil || r.plan.Return == nil {
		return last
	}
	switch ret := r.plan.Return; ret.Kind {
	case module.ArgLiteral:
		return ret.Value
	case module.ArgVar:
		if v, ok := r.env[ret.Var]; ok {
			return v
		}
	}
	return last
}

func (r *run) trace(id string, d time.Duration, err error) {
	entry := domain.TraceEntry{NodeID: id, Status: domain.StatusSuccess, Duration: d}
	if err != nil {
		entry.Status = domain.StatusError
		entry.Error = err.Error()
	}
	r.result.Trace = append(r.result.Trace, entry)
}

func (r *run) fail(ctx context.Context, nodeID string, err error) (*domain.RunResult, error) {
	r.result.FailedNode = nodeID
	r.result.Error = err.Error()
	r.setPhase(ctx, domain.PhaseFailed)
	r.logger.Error("run failed", "run_id", r.id, "node_id", nodeID, "error", err)
	return r.result, err
}

func (r *run) setPhase(ctx context.Context, to domain.Phase) {
	from := r.result.Phase
	r.result.Phase = to
	r.logger.Debug("phase", "run_id", r.id, "from", from, "to", to)
	if r.hooks.OnPhase != nil {
		r.hooks.OnPhase(ctx, &domain.PhaseEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventPhase, RunID: r.id},
			From:      from,
			To:        to,
		})
	}
}

func (r *run) stepEvent(ctx context.Context, hook func(context.Context, *domain.StepEvent), n domain.Node, status domain.Status, d time.Duration, err error) {
	if hook == nil {
		return
	}
	typ := domain.EventStepFinish
	if status == "" {
		typ = domain.EventStepStart
	}
	hook(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, RunID: r.id},
		NodeID:    n.ID,
		Role:      n.Role,
		NodeType:  n.NodeType,
		Status:    status,
		Duration:  d,
		Err:       err,
	})
}
