package loop

import (
	"context"
	"fmt"
	"strings"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/rerrors"
)

// DefaultCompressionModel is the larger-context model used to synthesize the
// final deliverable.
const DefaultCompressionModel = "openai:gpt-4.1"

// DefaultCompressionMaxTokens bounds the synthesis output.
const DefaultCompressionMaxTokens = 32000

// Compressor turns a finished transcript into the final synthesized text.
type Compressor struct {
	provider  llm.LLMProvider
	model     string
	maxTokens int
	ledger    *costs.Ledger
	session   *costs.Session
}

// NewCompressor builds a compressor, falling back to the stock model and
// token bound for zero values.
func NewCompressor(provider llm.LLMProvider, model string, maxTokens int) *Compressor {
	if model == "" {
		model = DefaultCompressionModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultCompressionMaxTokens
	}
	return &Compressor{provider: provider, model: model, maxTokens: maxTokens}
}

// WithBilling records each compression call against session.
func (c *Compressor) WithBilling(ledger *costs.Ledger, session *costs.Session) *Compressor {
	c.ledger = ledger
	c.session = session
	return c
}

// Model returns the qualified compression model id.
func (c *Compressor) Model() string {
	return c.model
}

// Compress invokes the compression model over the whole transcript. A
// failure here is fatal and typed: without compression there is no
// deliverable.
func (c *Compressor) Compress(ctx context.Context, t Transcript, topic string) (string, error) {
	messages := make([]llm.Message, 0, len(t)+2)
	messages = append(messages,
		llm.Message{Role: "system", Content: fmt.Sprintf(compressSystemPrompt, Today())},
		llm.Message{Role: "user", Content: fmt.Sprintf(compressHumanPrompt, topic)},
	)
	messages = append(messages, t.WithoutSystem()...)

	resp, err := c.provider.Chat(ctx, messages,
		llm.WithModel(llm.ModelName(c.model)),
		llm.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", &rerrors.ModelError{Model: c.model, Operation: "compress", Cause: err}
	}

	if c.ledger != nil {
		var sent strings.Builder
		for _, m := range messages {
			sent.WriteString(m.Content)
			sent.WriteString(" ")
		}
		c.ledger.RecordModelCall(c.session, c.model,
			costs.EstimateTokens(sent.String()), costs.EstimateTokens(resp.Content), "compress")
	}

	return resp.Content, nil
}
