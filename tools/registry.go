// Tool management and registration.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Registration and discovery mechanisms abstracted

package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry manages available tools with dynamic registration.
// It implements the orchestrator's ToolRunner port.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for all registered tools.
func (r *Registry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		metadata = append(metadata, tool.Metadata())
	}
	return metadata
}

// Execute resolves a tool by name, validates the arguments, and runs it.
// An unknown tool name or execution failure is returned as an error; the
// reasoning loop treats these as fatal for the turn.
func (r *Registry) Execute(ctx context.Context, name string, arguments map[string]any) (any, error) {
	tool, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("tool '%s' not registered", name)
	}

	if err := tool.Validate(arguments); err != nil {
		return nil, fmt.Errorf("tool '%s' validation failed: %w", name, err)
	}

	result, err := tool.Execute(ctx, arguments)
	if err != nil {
		return nil, fmt.Errorf("tool '%s' failed: %w", name, err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("tool '%s' failed: %w", name, result.Error)
	}
	return result.Output, nil
}

// Description returns a formatted description of all tools for LLM prompts.
func (r *Registry) Description() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var descriptions []string
	for _, tool := range r.tools {
		meta := tool.Metadata()
		var params []string
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			params = append(params, fmt.Sprintf("  - %s (%s): %s [%s]",
				p.Name, p.ParamType, p.Description, required))
		}

		paramStr := strings.Join(params, "\n")
		descriptions = append(descriptions, fmt.Sprintf(
			"Tool: %s\nDescription: %s\nParameters:\n%s",
			meta.Name, meta.Description, paramStr))
	}

	return strings.Join(descriptions, "\n\n")
}

// WithDefaults creates a registry with the built-in local tools.
// Returns error if any tool registration fails.
func WithDefaults(dataDir string) (*Registry, error) {
	registry := NewRegistry()

	tools := []Tool{
		NewStatusTool(),
		NewMemoryBankTool(dataDir),
		NewSequentialThinkingTool(dataDir),
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register default tools: %w", err)
		}
	}

	return registry, nil
}
