// Package reg holds the tool registry: built-in tools registered at startup and
// plugin tools loaded from configuration.
package reg

import (
	"context"
	"errors"
	"fmt"

	"github.com/santoshkal/mcp-server-http-time/pkg/mcp"
	"github.com/santoshkal/mcp-server-http-time/pkg/schema"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Handler executes a tool with validated arguments. A string result becomes the
// text of the tool result; mcp.ToolResult is used as is; anything else is encoded as JSON.
type Handler func(ctx context.Context, args schema.Args) (interface{}, error)

// Tool holds metadata and the handler for a tool.
type Tool struct {
	Name        string
	Title       string
	Description string
	Schema      schema.Schema
	Handler     Handler
}

// Describe renders the tools/list entry for t.
func (t Tool) Describe() mcp.Tool {
	return mcp.Tool{
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description,
		InputSchema: t.Schema.JSONSchema(),
	}
}

// Registrar accepts tool registrations.
type Registrar interface {
	Register(tool Tool) error
}

// Registry is an ordered set of tools. It is filled at startup and only read afterwards,
// so lookups need no locking.
type Registry struct {
	tools []Tool
	index map[string]int
}

var _ Registrar = (*Registry)(nil)

// New returns an empty registry.
func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds tool. Names must be unique.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s: handler must not be nil", tool.Name)
	}
	if _, exists := r.index[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name)
	}
	if err := tool.Schema.Check(); err != nil {
		return fmt.Errorf("tool %s: %w", tool.Name, err)
	}
	logger.Debugf("Registering tool: %s", tool.Name)
	r.index[tool.Name] = len(r.tools)
	r.tools = append(r.tools, tool)
	return nil
}

// MustRegister registers every tool and panics on the first failure.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}
