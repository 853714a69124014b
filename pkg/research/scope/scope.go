// Package scope implements the clarification stage that runs before
// research: a single scoping model call whose response is classified as a
// research brief, a clarifying question, or an implicit go-ahead.
package scope

import (
	"context"
	"log"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/rerrors"
)

const systemPrompt = `You are a helpful research assistant that helps users clarify and refine their research questions through conversation.

Your role:
1. Ask clarifying questions to understand what the user really wants to research
2. Help them be more specific about scope, timeframe, geography, or focus areas
3. Suggest improvements to make their query more research-friendly
4. When their query is well-defined, generate a clear research brief

Guidelines:
- Be conversational and friendly
- Ask one focused question at a time
- Provide examples when helpful
- Don't overwhelm with too many questions
- When the query is clear enough, say "Great! I think we have a clear research direction now." and provide a research brief

Current conversation context: The user wants to do research but needs help clarifying their query to get the best results.`

// DefaultModel handles scoping; a small model is enough for classification.
const DefaultModel = "openai:gpt-4o-mini"

// Outcome is the scoping verdict for one query. Exactly one of ResearchBrief
// and ClarificationNeeded is meaningful; when both are empty/false the
// response was an implicit verification and research may proceed on the
// original query.
type Outcome struct {
	AIResponse          string
	ResearchBrief       string
	ClarificationNeeded bool
}

// EffectiveQuery returns the query research should run on: the brief when
// one was produced, otherwise the original verbatim.
func (o *Outcome) EffectiveQuery(original string) string {
	if o.ResearchBrief != "" {
		return o.ResearchBrief
	}
	return original
}

// Scoper performs the single-shot scoping call. This stage never loops;
// multi-turn clarification belongs to the conversational surface upstream.
type Scoper struct {
	provider llm.LLMProvider
	model    string
	ledger   *costs.Ledger
	session  *costs.Session
	logger   *log.Logger
}

// New builds a scoper on the given provider, defaulting the model.
func New(provider llm.LLMProvider, model string) *Scoper {
	if model == "" {
		model = DefaultModel
	}
	return &Scoper{provider: provider, model: model, logger: log.Default()}
}

// WithBilling records scoping calls against session.
func (s *Scoper) WithBilling(ledger *costs.Ledger, session *costs.Session) *Scoper {
	s.ledger = ledger
	s.session = session
	return s
}

// WithLogger overrides the destination for stage logs.
func (s *Scoper) WithLogger(logger *log.Logger) *Scoper {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Scope classifies query readiness. Model failures are typed; callers decide
// whether to surface configuration guidance.
func (s *Scoper) Scope(ctx context.Context, query string) (*Outcome, error) {
	resp, err := s.provider.Chat(ctx,
		[]llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: query},
		},
		llm.WithModel(llm.ModelName(s.model)),
		llm.WithTemperature(0.1),
		llm.WithMaxTokens(800),
	)
	if err != nil {
		return nil, &rerrors.ModelError{Model: s.model, Operation: "scope", Cause: err}
	}

	if s.ledger != nil {
		s.ledger.RecordModelCall(s.session, s.model,
			costs.EstimateTokens(systemPrompt+" "+query), costs.EstimateTokens(resp.Content), "clarification_chat")
	}

	response := resp.Content
	if brief, ok := ExtractBrief(response, query); ok {
		s.logger.Printf("[SCOPE] Research brief generated (%d chars)", len(brief))
		return &Outcome{AIResponse: response, ResearchBrief: brief}, nil
	}
	if LooksLikeClarification(response) {
		s.logger.Printf("[SCOPE] Clarification needed")
		return &Outcome{AIResponse: response, ClarificationNeeded: true}, nil
	}

	s.logger.Printf("[SCOPE] Query verified, proceeding")
	return &Outcome{AIResponse: response}, nil
}
