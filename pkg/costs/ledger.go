package costs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ModelCall is one billable unit of work: a model invocation or a search
// call. Records are immutable once appended to a session.
type ModelCall struct {
	ModelName    string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	Timestamp    time.Time `json:"timestamp"`
	Operation    string    `json:"operation"` // e.g. "search", "summarize", "compress", "reflect"
}

// Session tracks costs for one end-to-end research run. Callers hold the
// handle and pass it into every record call; the ledger keeps no process-wide
// "current session" slot, so independent sessions can run concurrently.
type Session struct {
	ID           string      `json:"session_id"`
	ResearchMode string      `json:"research_mode"`
	Query        string      `json:"query"`
	StartTime    time.Time   `json:"start_time"`
	EndTime      time.Time   `json:"end_time,omitempty"` // zero until closed
	Calls        []ModelCall `json:"model_calls"`
}

func (s *Session) TotalInputTokens() int {
	total := 0
	for _, call := range s.Calls {
		total += call.InputTokens
	}
	return total
}

func (s *Session) TotalOutputTokens() int {
	total := 0
	for _, call := range s.Calls {
		total += call.OutputTokens
	}
	return total
}

func (s *Session) TotalCostUSD() float64 {
	total := 0.0
	for _, call := range s.Calls {
		total += call.CostUSD
	}
	return total
}

// DurationSeconds reports elapsed time; open sessions measure against now so
// partial sessions stay queryable.
func (s *Session) DurationSeconds() float64 {
	if !s.EndTime.IsZero() {
		return s.EndTime.Sub(s.StartTime).Seconds()
	}
	return time.Since(s.StartTime).Seconds()
}

// Ledger is pure accounting: it prices calls, appends them to sessions and
// aggregates history. It has no control-flow dependency on anything else.
type Ledger struct {
	mu      sync.Mutex
	pricing PriceTable
	history []*Session
}

func NewLedger(pricing PriceTable) *Ledger {
	if pricing == nil {
		pricing = DefaultPriceTable()
	}
	return &Ledger{pricing: pricing}
}

// StartSession opens a new session and returns its handle. The uuid suffix
// keeps ids unique when sessions start within the same second.
func (l *Ledger) StartSession(researchMode, query string) *Session {
	return &Session{
		ID:           fmt.Sprintf("session_%d_%s", time.Now().Unix(), uuid.NewString()[:8]),
		ResearchMode: researchMode,
		Query:        query,
		StartTime:    time.Now(),
	}
}

// RecordModelCall prices and appends one model invocation. The record is
// returned even when session is nil; it is simply dropped from aggregation.
func (l *Ledger) RecordModelCall(session *Session, modelName string, inputTokens, outputTokens int, operation string) ModelCall {
	l.mu.Lock()
	defer l.mu.Unlock()

	usage := ModelCall{
		ModelName:    modelName,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      l.pricing.Cost(modelName, inputTokens, outputTokens),
		Timestamp:    time.Now(),
		Operation:    operation,
	}

	if session != nil {
		session.Calls = append(session.Calls, usage)
	}
	return usage
}

// RecordSearchCall bills flat-rate search API usage. No token cost.
func (l *Ledger) RecordSearchCall(session *Session, numSearches int) ModelCall {
	l.mu.Lock()
	defer l.mu.Unlock()

	usage := ModelCall{
		ModelName: "tavily:search",
		CostUSD:   l.pricing.SearchRate() * float64(numSearches),
		Timestamp: time.Now(),
		Operation: "web_search",
	}

	if session != nil {
		session.Calls = append(session.Calls, usage)
	}
	return usage
}

// EndSession closes the session (end time set exactly once) and archives it
// into history. Calling it again on a closed session is a no-op.
func (l *Ledger) EndSession(session *Session) *Session {
	if session == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !session.EndTime.IsZero() {
		return session
	}
	session.EndTime = time.Now()
	l.history = append(l.history, session)
	return session
}

// CostBreakdownRow is one line of a session summary.
type CostBreakdownRow struct {
	Model        string  `json:"model"`
	Operation    string  `json:"operation"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// SessionSummary is a pure read over one session.
type SessionSummary struct {
	SessionID         string             `json:"session_id"`
	ResearchMode      string             `json:"research_mode"`
	Query             string             `json:"query"`
	DurationSeconds   float64            `json:"duration_seconds"`
	TotalInputTokens  int                `json:"total_input_tokens"`
	TotalOutputTokens int                `json:"total_output_tokens"`
	TotalCostUSD      float64            `json:"total_cost_usd"`
	ModelCallsCount   int                `json:"model_calls_count"`
	CostBreakdown     []CostBreakdownRow `json:"cost_breakdown"`
}

// SummarizeSession reports the session's totals and per-call breakdown.
// Long queries are truncated for display.
func (l *Ledger) SummarizeSession(session *Session) *SessionSummary {
	if session == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	query := session.Query
	if len(query) > 100 {
		query = query[:100] + "..."
	}

	breakdown := make([]CostBreakdownRow, 0, len(session.Calls))
	for _, call := range session.Calls {
		breakdown = append(breakdown, CostBreakdownRow{
			Model:        call.ModelName,
			Operation:    call.Operation,
			InputTokens:  call.InputTokens,
			OutputTokens: call.OutputTokens,
			CostUSD:      call.CostUSD,
		})
	}

	return &SessionSummary{
		SessionID:         session.ID,
		ResearchMode:      session.ResearchMode,
		Query:             query,
		DurationSeconds:   session.DurationSeconds(),
		TotalInputTokens:  session.TotalInputTokens(),
		TotalOutputTokens: session.TotalOutputTokens(),
		TotalCostUSD:      session.TotalCostUSD(),
		ModelCallsCount:   len(session.Calls),
		CostBreakdown:     breakdown,
	}
}

// ModeStats aggregates archived sessions per research mode.
type ModeStats struct {
	Sessions    int     `json:"sessions"`
	TotalCost   float64 `json:"total_cost"`
	TotalTokens int     `json:"total_tokens"`
}

// DailySummary is a pure reducer over today's archived sessions. Zero
// sessions yield an all-zero summary.
type DailySummary struct {
	TotalCostUSD          float64              `json:"total_cost_usd"`
	TotalInputTokens      int                  `json:"total_input_tokens"`
	TotalOutputTokens     int                  `json:"total_output_tokens"`
	TotalSessions         int                  `json:"total_sessions"`
	AverageCostPerSession float64              `json:"average_cost_per_session"`
	ModeBreakdown         map[string]ModeStats `json:"mode_breakdown,omitempty"`
}

func (l *Ledger) DailySummary() DailySummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := time.Now()
	var todaySessions []*Session
	for _, session := range l.history {
		if sameDay(session.StartTime, today) {
			todaySessions = append(todaySessions, session)
		}
	}

	if len(todaySessions) == 0 {
		return DailySummary{}
	}

	summary := DailySummary{
		TotalSessions: len(todaySessions),
		ModeBreakdown: make(map[string]ModeStats),
	}
	for _, session := range todaySessions {
		summary.TotalCostUSD += session.TotalCostUSD()
		summary.TotalInputTokens += session.TotalInputTokens()
		summary.TotalOutputTokens += session.TotalOutputTokens()

		stats := summary.ModeBreakdown[session.ResearchMode]
		stats.Sessions++
		stats.TotalCost += session.TotalCostUSD()
		stats.TotalTokens += session.TotalInputTokens() + session.TotalOutputTokens()
		summary.ModeBreakdown[session.ResearchMode] = stats
	}
	summary.AverageCostPerSession = summary.TotalCostUSD / float64(len(todaySessions))

	return summary
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
