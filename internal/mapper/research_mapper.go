package mapper

import (
	"encoding/json"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/model"
)

type ResearchMapper struct{}

func NewResearchMapper() *ResearchMapper {
	return &ResearchMapper{}
}

func (m *ResearchMapper) SessionToEntity(s *model.ResearchSession) *entity.ResearchSession {
	if s == nil {
		return nil
	}

	var breakdown []entity.ResearchCallRecord
	if len(s.Breakdown) > 0 {
		// A corrupt column degrades to an empty breakdown; totals stay intact.
		_ = json.Unmarshal(s.Breakdown, &breakdown)
	}

	return &entity.ResearchSession{
		Id:            s.Id,
		SessionKey:    s.SessionKey,
		Mode:          s.Mode,
		Query:         s.Query,
		Status:        s.Status,
		Result:        s.Result,
		Clarification: s.Clarification,
		FailureReason: s.FailureReason,
		InputTokens:   s.InputTokens,
		OutputTokens:  s.OutputTokens,
		TotalCostUSD:  s.TotalCostUSD,
		Breakdown:     breakdown,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		CreatedAt:     s.CreatedAt,
	}
}

func (m *ResearchMapper) SessionToModel(s *entity.ResearchSession) *model.ResearchSession {
	if s == nil {
		return nil
	}

	var breakdown []byte
	if len(s.Breakdown) > 0 {
		breakdown, _ = json.Marshal(s.Breakdown)
	}

	return &model.ResearchSession{
		Id:            s.Id,
		SessionKey:    s.SessionKey,
		Mode:          s.Mode,
		Query:         s.Query,
		Status:        s.Status,
		Result:        s.Result,
		Clarification: s.Clarification,
		FailureReason: s.FailureReason,
		InputTokens:   s.InputTokens,
		OutputTokens:  s.OutputTokens,
		TotalCostUSD:  s.TotalCostUSD,
		Breakdown:     breakdown,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		CreatedAt:     s.CreatedAt,
	}
}
