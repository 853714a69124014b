package dto

import (
	"time"

	"ai-research-be/pkg/costs"
)

type StartResearchRequest struct {
	Query string `json:"query" validate:"required,min=3"`
	Mode  string `json:"mode" validate:"required"`
	// Scoped runs the clarification stage before research starts. A query
	// the scoper finds ambiguous ends the run with a clarification question
	// instead of a report.
	Scoped bool `json:"scoped"`
}

type StartResearchResponse struct {
	SessionId string         `json:"session_id"`
	Mode      string         `json:"mode"`
	Status    string         `json:"status"`
	Estimate  costs.Estimate `json:"estimate"`
}

type ScopeRequest struct {
	Query string `json:"query" validate:"required,min=3"`
}

type ScopeResponse struct {
	AIResponse          string `json:"ai_response"`
	ResearchBrief       string `json:"research_brief,omitempty"`
	ClarificationNeeded bool   `json:"clarification_needed"`
}

type EstimateResponse struct {
	Mode     string         `json:"mode"`
	Estimate costs.Estimate `json:"estimate"`
}

// ResearchSessionResponse is the merged live/archived view of one run.
type ResearchSessionResponse struct {
	SessionId     string     `json:"session_id"`
	Mode          string     `json:"mode"`
	Query         string     `json:"query"`
	Status        string     `json:"status"`
	Stage         string     `json:"stage,omitempty"`
	Result        string     `json:"result,omitempty"`
	Clarification string     `json:"clarification,omitempty"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`

	InputTokens  int                      `json:"input_tokens"`
	OutputTokens int                      `json:"output_tokens"`
	TotalCostUSD float64                  `json:"total_cost_usd"`
	Breakdown    []costs.CostBreakdownRow `json:"cost_breakdown,omitempty"`
}

type ResearchSessionListItem struct {
	SessionId    string     `json:"session_id"`
	Mode         string     `json:"mode"`
	Query        string     `json:"query"`
	Status       string     `json:"status"`
	TotalCostUSD float64    `json:"total_cost_usd"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// ResearchProgressMessage is the watermill payload for one progress update.
// The consumer fans it out to websocket subscribers and, when enabled, NATS.
type ResearchProgressMessage struct {
	SessionId       string    `json:"session_id"`
	EventType       string    `json:"event_type"`
	Mode            string    `json:"mode,omitempty"`
	Query           string    `json:"query,omitempty"`
	Stage           string    `json:"stage,omitempty"`
	Detail          string    `json:"detail,omitempty"`
	Result          string    `json:"result,omitempty"`
	Error           string    `json:"error,omitempty"`
	CostUSD         float64   `json:"cost_usd,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
