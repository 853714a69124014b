package entity

import (
	"time"

	"github.com/google/uuid"
)

// ResearchSession is an archived research run: the closed cost session plus
// the terminal outcome. Live runs never touch this entity; the service
// archives exactly once, when the run reaches a terminal status.
type ResearchSession struct {
	Id            uuid.UUID
	SessionKey    string // ledger id, e.g. session_1712345678_a1b2c3d4
	Mode          string
	Query         string
	Status        string
	Result        string
	Clarification string
	FailureReason string

	InputTokens  int
	OutputTokens int
	TotalCostUSD float64
	Breakdown    []ResearchCallRecord

	StartedAt  time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
}

// ResearchCallRecord is one billed call inside an archived session.
type ResearchCallRecord struct {
	Model        string    `json:"model"`
	Operation    string    `json:"operation"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	Timestamp    time.Time `json:"timestamp"`
}
