// Package tool implements the tool table bound to a research loop: static
// in-process tools, tools discovered from MCP servers, and the execution
// protocol that keeps the loop alive when an individual call fails.
package tool

import (
	"context"
	"fmt"

	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/rerrors"
)

// Tool is one callable capability exposed to the reasoning model.
type Tool struct {
	Name        string
	Description string
	Schema      llm.ToolParameterSchema
	Invoke      func(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry is a name-indexed tool table. Tools are surfaced to the model in
// registration order so prompt caching stays stable across turns.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from the given tools. Duplicate names are
// rejected with ErrDuplicateTool rather than silently shadowed.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool)}
	if err := r.Add(tools...); err != nil {
		return nil, err
	}
	return r, nil
}

// Add merges more tools into the registry, e.g. the discovery result of an
// MCP server on top of the static set.
func (r *Registry) Add(tools ...Tool) error {
	for _, t := range tools {
		if t.Name == "" {
			return fmt.Errorf("tool with empty name")
		}
		if _, exists := r.tools[t.Name]; exists {
			return fmt.Errorf("%w: %s", rerrors.ErrDuplicateTool, t.Name)
		}
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return nil
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Schemas returns the tool schemas in registration order, ready to bind to a
// model call via llm.WithTools.
func (r *Registry) Schemas() []llm.ToolSchema {
	schemas := make([]llm.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		schemas = append(schemas, llm.ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema,
		})
	}
	return schemas
}

// Execute runs one requested tool call and returns the text destined for the
// tool-result turn. Failures never escape as errors: an unknown name or a
// failing tool produces diagnostic text the model can read and route around.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) string {
	t, ok := r.tools[call.Name]
	if !ok {
		return fmt.Sprintf("Unknown tool: %s", call.Name)
	}

	result, err := t.Invoke(ctx, call.Arguments)
	if err != nil {
		return fmt.Sprintf("Tool execution error: %v", err)
	}
	return result
}
