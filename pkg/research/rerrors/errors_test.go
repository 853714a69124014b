package rerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClarificationErrorAs(t *testing.T) {
	var err error = &ClarificationError{Question: "Which time period?"}
	wrapped := fmt.Errorf("scoping: %w", err)

	var ce *ClarificationError
	if !errors.As(wrapped, &ce) {
		t.Fatal("expected errors.As to find ClarificationError")
	}
	if ce.Question != "Which time period?" {
		t.Errorf("question = %q", ce.Question)
	}
}

func TestModelErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ModelError{Model: "openai:gpt-4o-mini", Operation: "research", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if got := err.Error(); got != "model openai:gpt-4o-mini failed during research: connection refused" {
		t.Errorf("message = %q", got)
	}
}

func TestIsConfiguration(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"typed", &ConfigurationError{Setting: "TAVILY_API_KEY"}, true},
		{"wrapped typed", fmt.Errorf("boot: %w", &ConfigurationError{Setting: "OPENAI_API_KEY"}), true},
		{"authentication message", errors.New("401 Authentication failed"), true},
		{"api_key message", errors.New("invalid api_key provided"), true},
		{"unrelated", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConfiguration(tt.err); got != tt.want {
				t.Errorf("IsConfiguration(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSentinelIdentity(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", ErrUnknownMode)
	if !errors.Is(wrapped, ErrUnknownMode) {
		t.Error("expected wrapped sentinel to match ErrUnknownMode")
	}
}
