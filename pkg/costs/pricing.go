package costs

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModelPricing holds USD rates per 1K tokens, or a flat per-search rate for
// non-token services.
type ModelPricing struct {
	Input     float64 `json:"input"`
	Output    float64 `json:"output"`
	PerSearch float64 `json:"per_search,omitempty"`
}

// PriceTable maps a provider-qualified model identifier to its pricing.
type PriceTable map[string]ModelPricing

// fallbackPricing is the tier applied to model identifiers missing from the
// table. Unknown models never error.
var fallbackPricing = ModelPricing{Input: 0.001, Output: 0.002}

// DefaultPriceTable returns the built-in pricing (USD per 1K tokens,
// updated Dec 2024).
func DefaultPriceTable() PriceTable {
	return PriceTable{
		"openai:gpt-4o-mini":                  {Input: 0.00015, Output: 0.0006},
		"openai:gpt-4o":                       {Input: 0.0025, Output: 0.010},
		"openai:gpt-4.1":                      {Input: 0.03, Output: 0.06},
		"openai:gpt-4.1-mini":                 {Input: 0.0015, Output: 0.006},
		"anthropic:claude-sonnet-4-20250514":  {Input: 0.003, Output: 0.015},
		"anthropic:claude-haiku-4":            {Input: 0.0008, Output: 0.004},
		"tavily:search":                       {PerSearch: 0.005},
	}
}

// LoadPriceTable overlays entries from a JSON file onto the defaults. The
// file maps model identifiers to ModelPricing objects.
func LoadPriceTable(path string) (PriceTable, error) {
	table := DefaultPriceTable()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price table: %w", err)
	}

	var overrides PriceTable
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse price table: %w", err)
	}

	for model, pricing := range overrides {
		table[model] = pricing
	}
	return table, nil
}

// Cost computes the USD cost of one model call. Unknown models fall back to
// the default tier rather than erroring.
func (t PriceTable) Cost(modelName string, inputTokens, outputTokens int) float64 {
	pricing, ok := t[modelName]
	if !ok {
		pricing = fallbackPricing
	}

	inputCost := (float64(inputTokens) / 1000) * pricing.Input
	outputCost := (float64(outputTokens) / 1000) * pricing.Output

	return inputCost + outputCost
}

// SearchRate returns the flat per-search rate, defaulting to 0.005 when the
// table has no tavily entry.
func (t PriceTable) SearchRate() float64 {
	if pricing, ok := t["tavily:search"]; ok && pricing.PerSearch > 0 {
		return pricing.PerSearch
	}
	return 0.005
}
