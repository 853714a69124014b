package events

import "time"

// Research lifecycle event codes. NATS subjects derive from these
// ("research." + type), so renaming one is a wire-format change.
const (
	TypeResearchStarted       = "RESEARCH_STARTED"
	TypeResearchStageChanged  = "RESEARCH_STAGE_CHANGED"
	TypeResearchClarification = "RESEARCH_CLARIFICATION"
	TypeResearchCompleted     = "RESEARCH_COMPLETED"
	TypeResearchFailed        = "RESEARCH_FAILED"
)

func NewResearchStarted(sessionID, mode, query string) Event {
	return BaseEvent{
		Type: TypeResearchStarted,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"mode":       mode,
			"query":      query,
		},
		OccurredAt: time.Now(),
	}
}

func NewResearchStageChanged(sessionID, stage, detail string) Event {
	return BaseEvent{
		Type: TypeResearchStageChanged,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"stage":      stage,
			"detail":     detail,
		},
		OccurredAt: time.Now(),
	}
}

func NewResearchClarification(sessionID, question string) Event {
	return BaseEvent{
		Type: TypeResearchClarification,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"question":   question,
		},
		OccurredAt: time.Now(),
	}
}

func NewResearchCompleted(sessionID string, costUSD, durationSeconds float64) Event {
	return BaseEvent{
		Type: TypeResearchCompleted,
		Data: map[string]interface{}{
			"session_id":       sessionID,
			"cost_usd":         costUSD,
			"duration_seconds": durationSeconds,
		},
		OccurredAt: time.Now(),
	}
}

func NewResearchFailed(sessionID, reason string) Event {
	return BaseEvent{
		Type: TypeResearchFailed,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}
