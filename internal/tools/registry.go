// Package tools provides the registry for LLM-callable tools: schema
// validation at registration, argument validation at execution, and
// definition export in the function-calling format.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/driftbot/driftbot/internal/schema"
)

var (
	// ErrDuplicateTool is returned when a tool name is already registered.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrSchemaMismatch is returned when a tool's parameter schema is not a
	// valid function-calling object schema.
	ErrSchemaMismatch = errors.New("tool schema mismatch")
	// ErrUnknownTool is returned when executing a name that was never registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when call arguments do not satisfy the
	// tool's declared schema. The callable is never invoked in that case.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// ExecError wraps an error raised by a tool's own callable.
type ExecError struct {
	Tool string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.Tool, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// entry pairs a registered tool with its parameter schema as parsed and
// validated at registration time. Execution validates against this
// schema, not a re-read of the tool's Parameters.
type entry struct {
	tool   schema.Tool
	params *paramSchema
}

// Registry is a thread-safe store of tools keyed by name.
//
// Registration is expected to happen once at startup; Execute may be
// called concurrently afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds a tool after validating its definition.
// Re-registration under an existing name is rejected, never overwritten.
func (r *Registry) Register(tool schema.Tool) error {
	ps, err := parseParamSchema(tool.Name(), tool.Parameters())
	if err != nil {
		return err
	}
	if err := ps.validate(tool.Name()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, tool.Name())
	}
	r.tools[tool.Name()] = entry{tool: tool, params: ps}
	r.order = append(r.order, tool.Name())
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (schema.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return e.tool, nil
}

// Execute validates args against the tool's registered schema and
// invokes it. Callable failures are wrapped in *ExecError; validation
// failures never reach the callable.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	if err := e.params.validateArgs(name, args); err != nil {
		return "", err
	}

	result, err := e.tool.Execute(ctx, args)
	if err != nil {
		return "", &ExecError{Tool: name, Err: err}
	}
	return result, nil
}

// Definitions returns one definition per registered tool, in registration
// order, ready for inclusion in a chat-completion request.
func (r *Registry) Definitions() []schema.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]schema.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name].tool
		defs = append(defs, schema.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
