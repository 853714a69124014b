package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/loop"
	"ai-research-be/pkg/research/rerrors"
	"ai-research-be/pkg/research/tool"

	"github.com/sourcegraph/conc"
)

// runMultiAgent is the full pipeline: a supervisor model decomposes the
// query into sub-questions, parallel web researchers work them under the
// bounded policy, and a final compression pass merges the findings into one
// report. Sub-researcher failures degrade into failure notes instead of
// aborting the whole run.
func (d *Dispatcher) runMultiAgent(ctx context.Context, query string, session *costs.Session, progress loop.Progress) (string, error) {
	if d.deps.SearchProvider == nil {
		return "", &rerrors.ConfigurationError{Setting: "TAVILY_API_KEY", Cause: fmt.Errorf("search provider not configured")}
	}

	subQueries, err := d.decompose(ctx, query, session)
	if err != nil {
		return "", err
	}
	d.deps.Logger.Printf("[DISPATCH] Supervisor planned %d sub-researchers", len(subQueries))

	findings := make([]string, len(subQueries))
	var wg conc.WaitGroup
	for i, sub := range subQueries {
		i, sub := i, sub
		wg.Go(func() {
			result, err := d.runSubResearcher(ctx, sub, session, progress)
			if err != nil {
				d.deps.Logger.Printf("[DISPATCH] Sub-researcher %d failed: %v", i+1, err)
				findings[i] = fmt.Sprintf("Research failed for %q: %v", sub, err)
				return
			}
			findings[i] = result
		})
	}
	wg.Wait()

	return d.finalReport(ctx, query, subQueries, findings, session)
}

// decompose asks the supervisor model for sub-questions. Anything that does
// not parse as a JSON string array degrades to researching the query as-is.
func (d *Dispatcher) decompose(ctx context.Context, query string, session *costs.Session) ([]string, error) {
	prompt := fmt.Sprintf(supervisorPrompt, loop.Today(), d.cfg.MaxSubResearchers, query)

	resp, err := d.deps.Provider.Generate(ctx, prompt,
		llm.WithModel(llm.ModelName(d.cfg.ResearchModel)),
		llm.WithTemperature(0.1),
	)
	if err != nil {
		return nil, &rerrors.ModelError{Model: d.cfg.ResearchModel, Operation: "supervisor", Cause: err}
	}

	if d.deps.Ledger != nil {
		d.deps.Ledger.RecordModelCall(session, d.cfg.ResearchModel,
			costs.EstimateTokens(prompt), costs.EstimateTokens(resp), "supervisor")
	}

	subQueries := parseSubQueries(resp, d.cfg.MaxSubResearchers)
	if len(subQueries) == 0 {
		subQueries = []string{query}
	}
	return subQueries, nil
}

// runSubResearcher runs one bounded web loop for a sub-question.
func (d *Dispatcher) runSubResearcher(ctx context.Context, subQuery string, session *costs.Session, progress loop.Progress) (string, error) {
	registry, err := tool.NewRegistry(
		tool.TavilySearch(d.adapterFor(session), d.deps.Ledger, session),
		tool.Think(d.deps.Ledger, session),
	)
	if err != nil {
		return "", err
	}
	policy := loop.NewBounded(d.cfg.TurnCap, d.cfg.CompletionPhrases)
	return d.runLoop(ctx, registry, policy, WebPrompt(), subQuery, session, progress)
}

// finalReport merges the sub-researchers' findings through the compressor.
func (d *Dispatcher) finalReport(ctx context.Context, query string, subQueries, findings []string, session *costs.Session) (string, error) {
	transcript := loop.NewTranscript("", query)
	for i, finding := range findings {
		transcript = append(transcript, llm.Message{
			Role:    "user",
			Content: fmt.Sprintf("Findings from researcher %d (%s):\n\n%s", i+1, subQueries[i], finding),
		})
	}

	report, err := d.compressorFor(session).Compress(ctx, transcript, query)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(report) == "" {
		return loop.NoResultsSentinel, nil
	}
	return report, nil
}

// parseSubQueries accepts a bare JSON array or one wrapped in stray prose.
func parseSubQueries(response string, limit int) []string {
	raw := response
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			raw = raw[start : end+1]
		}
	}

	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}

	subQueries := make([]string, 0, len(parsed))
	for _, q := range parsed {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		subQueries = append(subQueries, q)
		if len(subQueries) == limit {
			break
		}
	}
	return subQueries
}
