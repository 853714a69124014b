package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/utils"
)

const summarizePrompt = `You are tasked with summarizing the raw content of a webpage retrieved from a web search. Today's date is %s.

<webpage_content>
%s
</webpage_content>

Your goal is to produce a summary that preserves the most important information from the original page, so a researcher can rely on it instead of the full text. Keep the key facts, figures, dates, names and conclusions. Also pull out the few passages worth quoting verbatim.

Respond with ONLY valid JSON in this exact structure:

{
  "summary": "a concise summary of the webpage content",
  "key_excerpts": "the most important verbatim quotes and excerpts, separated by newlines"
}

IMPORTANT: Output ONLY the JSON. No preamble, no explanation outside the JSON.`

// summaryPayload is the structured shape the model is asked to return.
type summaryPayload struct {
	Summary     string `json:"summary"`
	KeyExcerpts string `json:"key_excerpts"`
}

// Summarizer reduces raw webpage content into a compact two-section artifact
// so tool outputs stay small enough to keep feeding back into the loop.
type Summarizer struct {
	provider llm.LLMProvider
	model    string // qualified id, e.g. "openai:gpt-4o-mini"
	ledger   *costs.Ledger
	session  *costs.Session
}

func New(provider llm.LLMProvider, model string) *Summarizer {
	return &Summarizer{provider: provider, model: model}
}

// WithBilling returns a copy whose successful model calls are recorded against
// the given session.
func (s *Summarizer) WithBilling(ledger *costs.Ledger, session *costs.Session) *Summarizer {
	return &Summarizer{provider: s.provider, model: s.model, ledger: ledger, session: session}
}

// Model returns the qualified model identifier this summarizer bills against.
func (s *Summarizer) Model() string {
	return s.model
}

// Summarize invokes a structured summarization call and wraps the result in a
// fixed two-section envelope. It never fails: any model or parse error falls
// back to the truncated raw content, since summarization must not be a hard
// failure point for the pipeline.
func (s *Summarizer) Summarize(ctx context.Context, content string) string {
	prompt := fmt.Sprintf(summarizePrompt, time.Now().Format("Mon Jan 2, 2006"), content)

	response, err := s.provider.Generate(ctx, prompt, llm.WithModel(s.model))
	if err != nil {
		return fallback(content)
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil || payload.Summary == "" {
		return fallback(content)
	}

	if s.ledger != nil {
		s.ledger.RecordModelCall(s.session, s.model,
			costs.EstimateTokens(prompt), costs.EstimateTokens(response), "summarize")
	}

	return fmt.Sprintf("<summary>\n%s\n</summary>\n\n<key_excerpts>\n%s\n</key_excerpts>",
		payload.Summary, payload.KeyExcerpts)
}

func fallback(content string) string {
	return utils.Truncate(content, 1000)
}

// extractJSON isolates JSON content from a response that may carry prose
// around it.
func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return response
	}

	return response[startIdx : endIdx+1]
}
