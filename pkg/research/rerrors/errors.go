// Package rerrors defines the typed errors shared across the research
// pipeline. Handlers use errors.Is/errors.As against these types to decide
// HTTP statuses and user-facing guidance.
package rerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for malformed or unresolvable requests.
var (
	// ErrEmptyQuery is returned when a research request carries no query text.
	ErrEmptyQuery = errors.New("research query is empty")

	// ErrUnknownMode is returned when a request names a research mode that is
	// not registered with the dispatcher.
	ErrUnknownMode = errors.New("unknown research mode")

	// ErrDuplicateTool is returned when merging tool sources produces two
	// tools with the same name.
	ErrDuplicateTool = errors.New("duplicate tool name")

	// ErrSessionNotFound is returned when a session id has no archived record.
	ErrSessionNotFound = errors.New("session not found")
)

// ClarificationError is the normal terminal outcome of the scoping stage when
// the query is too ambiguous to research. It is not a failure: the caller
// should surface Question to the user and wait for a refined query.
type ClarificationError struct {
	Question string
}

func (e *ClarificationError) Error() string {
	return "clarification needed before research can start"
}

// ConfigurationError signals missing or invalid configuration (API keys,
// model names, server commands). It is fatal for the operation that hit it.
type ConfigurationError struct {
	Setting string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error (%s): %v", e.Setting, e.Cause)
	}
	return fmt.Sprintf("configuration error (%s)", e.Setting)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Guidance returns the remediation hint shown alongside configuration errors.
func (e *ConfigurationError) Guidance() string {
	return "Please check your .env file contains valid API keys."
}

// ModelError signals that a reasoning or compression model invocation failed.
// It is fatal: the loop cannot make progress without the model.
type ModelError struct {
	Model     string
	Operation string
	Cause     error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s failed during %s: %v", e.Model, e.Operation, e.Cause)
}

func (e *ModelError) Unwrap() error {
	return e.Cause
}

// ToolError signals a failure while talking to a tool server (connection,
// discovery, protocol). Per-call tool failures inside the loop are recovered
// as transcript text and never surface as ToolError.
type ToolError struct {
	Tool  string
	Cause error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Cause)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// IsConfiguration reports whether err should be treated as a configuration
// problem. Besides typed ConfigurationErrors it classifies by message, since
// providers report bad credentials as plain errors mentioning authentication
// or api_key.
func IsConfiguration(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authentication") || strings.Contains(msg, "api_key")
}
