package llm

import (
	"context"
	"strings"
)

// Message represents a chat turn in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system", "tool"
	Content string

	// ToolCalls carries the tool invocations requested by an assistant turn.
	ToolCalls []ToolCall

	// ToolCallID correlates a "tool" turn back to the assistant request.
	ToolCallID string
	// Name is the tool name on a "tool" turn.
	Name string
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToolSchema describes a callable tool in the JSON-schema subset the chat
// APIs understand.
type ToolSchema struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Parameters  ToolParameterSchema `json:"parameters"`
}

type ToolParameterSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]ToolProperty `json:"properties,omitempty"`
	Required   []string                `json:"required,omitempty"`
}

type ToolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ChatResponse is the assistant turn returned by a provider. ToolCalls is
// empty when the model answered in plain text.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	Tools       []ToolSchema
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

// WithTools binds tool schemas to the call so the model may request
// invocations.
func WithTools(tools []ToolSchema) Option {
	return func(o *Options) {
		o.Tools = tools
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response,
	// including any tool invocation requests
	Chat(ctx context.Context, history []Message, options ...Option) (*ChatResponse, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// ModelName strips the provider qualifier from a model id, e.g.
// "openai:gpt-4o-mini" -> "gpt-4o-mini". Qualified ids flow through the
// system so cost records stay keyed by provider, but the wire APIs want the
// bare name.
func ModelName(qualified string) string {
	if idx := strings.Index(qualified, ":"); idx >= 0 {
		return qualified[idx+1:]
	}
	return qualified
}
