package loop

import (
	"strings"

	"ai-research-be/pkg/llm"
)

// Transcript is the append-only message history of one research loop: the
// system instructions, the query, then alternating assistant and tool-result
// turns.
type Transcript []llm.Message

// NewTranscript seeds a transcript with system instructions and the query.
func NewTranscript(systemPrompt, query string) Transcript {
	return Transcript{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: query},
	}
}

// LastAssistantText returns the content of the most recent assistant turn,
// or "" when the model has not spoken yet.
func (t Transcript) LastAssistantText() string {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == "assistant" {
			return t[i].Content
		}
	}
	return ""
}

// WithoutSystem returns the turns minus the leading system instruction, the
// shape the compression call wants.
func (t Transcript) WithoutSystem() []llm.Message {
	if len(t) > 0 && t[0].Role == "system" {
		return t[1:]
	}
	return t
}

// Text joins every turn's content for token estimation.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t))
	for _, msg := range t {
		if msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, " ")
}
