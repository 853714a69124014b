package costs

// Estimate is a pre-flight cost preview (see EstimateResearchCost). Display
// only; the ledger never reconciles estimates against recorded usage.
type Estimate struct {
	EstimatedTotalUSD     float64 `json:"estimated_total_usd"`
	EstimatedInputTokens  int     `json:"estimated_input_tokens"`
	EstimatedOutputTokens int     `json:"estimated_output_tokens"`
	EstimatedSearches     int     `json:"estimated_searches"`
	ModelCostUSD          float64 `json:"model_cost_usd"`
	SearchCostUSD         float64 `json:"search_cost_usd"`
}

type modeEstimate struct {
	searches            int
	searchCalls         int // LLM calls for search planning
	summarizationCalls  int // content processing
	compressionCalls    int
	inputTokensPerCall  int
	outputTokensPerCall int
}

// Base estimates per research mode, derived from typical usage patterns.
var modeEstimates = map[string]modeEstimate{
	"Basic Research":        {searches: 2, searchCalls: 3, summarizationCalls: 4, compressionCalls: 1, inputTokensPerCall: 1500, outputTokensPerCall: 800},
	"MCP Research":          {searches: 0, searchCalls: 2, summarizationCalls: 3, compressionCalls: 1, inputTokensPerCall: 2000, outputTokensPerCall: 1000},
	"Enhanced MCP Research": {searches: 1, searchCalls: 4, summarizationCalls: 6, compressionCalls: 1, inputTokensPerCall: 2500, outputTokensPerCall: 1200},
	"Full Research":         {searches: 3, searchCalls: 6, summarizationCalls: 8, compressionCalls: 2, inputTokensPerCall: 3000, outputTokensPerCall: 1500},
}

// EstimateResearchCost previews the cost of a research mode before
// execution. A lookup over static per-mode call counts, independent of
// ledger state; unknown modes fall back to the Basic Research row. The query
// length is part of the contract but does not currently weight the table.
func (l *Ledger) EstimateResearchCost(researchMode string, queryLength int) Estimate {
	mode, ok := modeEstimates[researchMode]
	if !ok {
		mode = modeEstimates["Basic Research"]
	}

	totalLLMCalls := mode.searchCalls + mode.summarizationCalls + mode.compressionCalls
	inputTokens := totalLLMCalls * mode.inputTokensPerCall
	outputTokens := totalLLMCalls * mode.outputTokensPerCall

	// Basic Research runs on the optimized small model; every other mode is
	// priced at the large reasoning model.
	pricingModel := "anthropic:claude-sonnet-4-20250514"
	if researchMode == "Basic Research" {
		pricingModel = "openai:gpt-4o-mini"
	}

	modelCost := l.pricing.Cost(pricingModel, inputTokens, outputTokens)
	searchCost := float64(mode.searches) * 0.005

	return Estimate{
		EstimatedTotalUSD:     modelCost + searchCost,
		EstimatedInputTokens:  inputTokens,
		EstimatedOutputTokens: outputTokens,
		EstimatedSearches:     mode.searches,
		ModelCostUSD:          modelCost,
		SearchCostUSD:         searchCost,
	}
}
