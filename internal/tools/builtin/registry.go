// Package builtin provides the agent's tool set: command execution and file
// access inside the run's sandbox. Tool-level failures are returned to the
// model as text; only sandbox infrastructure failures propagate.
package builtin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AAsriyan/vibe/internal/agent/ports"
)

// Registry is an ordered tool registry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ports.ToolExecutor
	order []string
}

var _ ports.ToolRegistry = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]ports.ToolExecutor)}
}

// Register adds a tool, rejecting duplicate names.
func (r *Registry) Register(tool ports.ToolExecutor) error {
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (ports.ToolExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return tool, nil
}

// List returns tool definitions in registration order.
func (r *Registry) List() []ports.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ports.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// SandboxEnv bundles the per-run sandbox access shared by all tools: the
// provider client, the run's sandbox id, and the timeout re-asserted on every
// reconnect.
type SandboxEnv struct {
	Client    ports.SandboxClient
	SandboxID string
	Timeout   time.Duration
}

// reconnect re-attaches to the run's sandbox and re-applies its timeout.
// Handles are not long-lived, so every tool call goes through here.
func (e SandboxEnv) reconnect(ctx context.Context) (ports.SandboxHandle, error) {
	handle, err := e.Client.Connect(ctx, e.SandboxID)
	if err != nil {
		return nil, err
	}
	if err := handle.SetTimeout(ctx, e.Timeout); err != nil {
		return nil, err
	}
	return handle, nil
}
