// Package process binds callable steps to external commands.
//
// Only commands registered up front (from holon.steps.yaml or Register)
// can run. Arguments never become command-line flags: positional arguments
// are passed as HOLON_ARG_<i> environment variables and as a JSON array on
// stdin, linked inputs as HOLON_INPUT_<PORT>. Standard output is decoded as
// JSON when it looks like JSON and returned as trimmed text otherwise.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os/exec"
	"slices"
	"strings"

	"github.com/aretw0/holon/pkg/module"
)

// Runner executes allow-listed commands on behalf of steps.
type Runner struct {
	registry map[string]StepConfig
	baseDir  string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithSteps populates the allow-list from a loaded config.
func WithSteps(steps map[string]StepConfig) RunnerOption {
	return func(r *Runner) {
		for _, step := range steps {
			r.registry[step.Name] = step
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{registry: make(map[string]StepConfig)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list under a step name.
func (r *Runner) Register(name, command string, args ...string) {
	r.registry[name] = StepConfig{Name: name, Command: command, Args: args}
}

// Steps returns the registered step names, sorted.
func (r *Runner) Steps() []string {
	return slices.Sorted(maps.Keys(r.registry))
}

// Bindings returns a module binding for every registered step.
func (r *Runner) Bindings() module.Bindings {
	b := make(module.Bindings, len(r.registry))
	for name := range r.registry {
		b[name] = r.Func(name)
	}
	return b
}

// Func returns the binding of one step. Calling it for an unregistered
// name fails at run time.
func (r *Runner) Func(name string) module.Func {
	return func(ctx context.Context, c module.Call) (any, error) {
		return r.Execute(ctx, name, c)
	}
}

// Execute runs the command registered for step.
func (r *Runner) Execute(ctx context.Context, step string, c module.Call) (any, error) {
	proc, ok := r.registry[step]
	if !ok {
		return nil, fmt.Errorf("process step not registered: %s", step)
	}

	stdin, err := json.Marshal(argsOrEmpty(c.Args))
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Stdin = bytes.NewReader(stdin)

	env := cmd.Environ()
	for k, v := range proc.Environment {
		env = append(env, k+"="+v)
	}
	for i, v := range c.Args {
		env = append(env, fmt.Sprintf("HOLON_ARG_%d=%s", i, envValue(v)))
	}
	for port, v := range c.Inputs {
		env = append(env, fmt.Sprintf("HOLON_INPUT_%s=%s", envKey(port), envValue(v)))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", step, err, strings.TrimSpace(stderr.String()))
	}
	return decodeOutput(stdout.String()), nil
}

func argsOrEmpty(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

// envValue renders primitives as text and everything else as JSON.
func envValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprint(v)
}

// envKey upper-cases a port name and replaces anything outside [A-Z0-9_].
func envKey(port string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, port)
}

func decodeOutput(out string) any {
	trimmed := strings.TrimSpace(out)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}
