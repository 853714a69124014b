// FILE: internal/service/research_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/entity"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/internal/repository/contract"
	"ai-research-be/internal/repository/memory"
	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/events"
	"ai-research-be/pkg/research/dispatch"
	"ai-research-be/pkg/research/loop"
	"ai-research-be/pkg/research/rerrors"
	"ai-research-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IResearchService interface {
	// Start launches a research run in the background and returns
	// immediately with the session id and a pre-flight cost estimate.
	Start(ctx context.Context, req *dto.StartResearchRequest) (*dto.StartResearchResponse, error)
	// Scope runs the clarification stage synchronously, without starting
	// research.
	Scope(ctx context.Context, req *dto.ScopeRequest) (*dto.ScopeResponse, error)
	Estimate(mode string, query string) (*dto.EstimateResponse, error)
	DailyCosts() costs.DailySummary
	GetSession(ctx context.Context, sessionId string) (*dto.ResearchSessionResponse, error)
	ListSessions(ctx context.Context, limit int) ([]*dto.ResearchSessionListItem, error)
}

type researchService struct {
	dispatcher  *dispatch.Dispatcher
	ledger      *costs.Ledger
	runRepo     *memory.RunRepository
	archiveRepo contract.ResearchSessionRepository
	pubSub      *gochannel.GoChannel
	topicName   string
	logger      logger.ILogger

	// Live cost sessions, keyed by session id. Entries exist only while a
	// run is executing; reads go through ledger.SummarizeSession, which
	// shares the ledger mutex with the recorders.
	mu     sync.Mutex
	active map[string]*costs.Session
}

func NewResearchService(
	dispatcher *dispatch.Dispatcher,
	ledger *costs.Ledger,
	runRepo *memory.RunRepository,
	archiveRepo contract.ResearchSessionRepository,
	pubSub *gochannel.GoChannel,
	topicName string,
	log logger.ILogger,
) IResearchService {
	return &researchService{
		dispatcher:  dispatcher,
		ledger:      ledger,
		runRepo:     runRepo,
		archiveRepo: archiveRepo,
		pubSub:      pubSub,
		topicName:   topicName,
		logger:      log,
		active:      make(map[string]*costs.Session),
	}
}

func (s *researchService) Start(ctx context.Context, req *dto.StartResearchRequest) (*dto.StartResearchResponse, error) {
	mode, scoped, err := dispatch.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	scoped = scoped || req.Scoped

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, rerrors.ErrEmptyQuery
	}

	session := s.ledger.StartSession(mode.EstimateAlias(), query)
	estimate := s.dispatcher.Estimate(mode, len(query))

	run := store.Run{
		ID:        session.ID,
		Mode:      string(mode),
		Query:     query,
		Status:    store.StatusRunning,
		Stage:     store.StageAwaitingModel,
		StartedAt: session.StartTime,
	}
	if scoped {
		run.Stage = store.StageScoping
	}
	s.saveRun(run)

	s.mu.Lock()
	s.active[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("ResearchService", "Research run started", map[string]interface{}{
		"session_id": session.ID,
		"mode":       string(mode),
		"scoped":     scoped,
	})

	s.publishProgress(dto.ResearchProgressMessage{
		SessionId: session.ID,
		EventType: events.TypeResearchStarted,
		Mode:      string(mode),
		Query:     query,
	})

	// The run outlives the HTTP request; progress reaches clients through
	// the websocket hub and the status endpoint.
	go s.execute(context.Background(), run, session, mode, scoped)

	return &dto.StartResearchResponse{
		SessionId: session.ID,
		Mode:      string(mode),
		Status:    store.StatusRunning,
		Estimate:  estimate,
	}, nil
}

// execute drives one research run to a terminal status. The run value is
// copied on every update so readers never observe a half-written snapshot.
func (s *researchService) execute(ctx context.Context, run store.Run, session *costs.Session, mode dispatch.Mode, scoped bool) {
	progress := func(state loop.State, detail string) {
		run.Stage = state.String()
		s.saveRun(run)
		s.publishProgress(dto.ResearchProgressMessage{
			SessionId: run.ID,
			EventType: events.TypeResearchStageChanged,
			Stage:     run.Stage,
			Detail:    detail,
		})
	}

	var (
		result string
		err    error
	)
	if scoped {
		result, err = s.dispatcher.RunScoped(ctx, mode, run.Query, session, progress)
	} else {
		result, err = s.dispatcher.Run(ctx, mode, run.Query, session, progress)
	}

	s.ledger.EndSession(session)
	summary := s.ledger.SummarizeSession(session)

	run.FinishedAt = time.Now()

	var terminalMsg dto.ResearchProgressMessage
	var clarification *rerrors.ClarificationError
	switch {
	case errors.As(err, &clarification):
		run.Status = store.StatusClarifying
		run.Clarification = clarification.Question
		terminalMsg = dto.ResearchProgressMessage{
			SessionId: run.ID,
			EventType: events.TypeResearchClarification,
			Detail:    clarification.Question,
		}
	case err != nil:
		run.Status = store.StatusFailed
		run.Error = err.Error()
		s.logger.Error("ResearchService", "Research run failed", map[string]interface{}{
			"session_id": run.ID,
			"error":      err.Error(),
		})
		terminalMsg = dto.ResearchProgressMessage{
			SessionId: run.ID,
			EventType: events.TypeResearchFailed,
			Error:     err.Error(),
		}
	default:
		run.Status = store.StatusCompleted
		run.Stage = store.StageDone
		run.Result = result
		s.logger.Info("ResearchService", "Research run completed", map[string]interface{}{
			"session_id": run.ID,
			"cost_usd":   summary.TotalCostUSD,
		})
		terminalMsg = dto.ResearchProgressMessage{
			SessionId:       run.ID,
			EventType:       events.TypeResearchCompleted,
			Result:          result,
			CostUSD:         summary.TotalCostUSD,
			DurationSeconds: summary.DurationSeconds,
		}
	}
	s.saveRun(run)

	s.mu.Lock()
	delete(s.active, run.ID)
	s.mu.Unlock()

	// Archive before announcing: a client reacting to the terminal event
	// must be able to read the finished session.
	s.archive(ctx, run, session, summary)
	s.publishProgress(terminalMsg)
}

// archive persists the terminal run. Failures are logged, not returned: the
// run already finished and its outcome stays readable from the live cache.
func (s *researchService) archive(ctx context.Context, run store.Run, session *costs.Session, summary *costs.SessionSummary) {
	breakdown := make([]entity.ResearchCallRecord, 0, len(session.Calls))
	for _, call := range session.Calls {
		breakdown = append(breakdown, entity.ResearchCallRecord{
			Model:        call.ModelName,
			Operation:    call.Operation,
			InputTokens:  call.InputTokens,
			OutputTokens: call.OutputTokens,
			CostUSD:      call.CostUSD,
			Timestamp:    call.Timestamp,
		})
	}

	finishedAt := session.EndTime
	archived := &entity.ResearchSession{
		SessionKey:    run.ID,
		Mode:          run.Mode,
		Query:         run.Query,
		Status:        run.Status,
		Result:        run.Result,
		Clarification: run.Clarification,
		FailureReason: run.Error,
		InputTokens:   summary.TotalInputTokens,
		OutputTokens:  summary.TotalOutputTokens,
		TotalCostUSD:  summary.TotalCostUSD,
		Breakdown:     breakdown,
		StartedAt:     session.StartTime,
		FinishedAt:    &finishedAt,
	}

	if err := s.archiveRepo.Create(ctx, archived); err != nil {
		s.logger.Error("ResearchService", "Failed to archive research session", map[string]interface{}{
			"session_id": run.ID,
			"error":      err.Error(),
		})
	}
}

func (s *researchService) Scope(ctx context.Context, req *dto.ScopeRequest) (*dto.ScopeResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, rerrors.ErrEmptyQuery
	}

	// Scoping is cheap and synchronous; it gets its own throwaway session so
	// the call still lands in the daily ledger.
	session := s.ledger.StartSession("Scoping", query)
	outcome, err := s.dispatcher.Scope(ctx, query, session)
	s.ledger.EndSession(session)
	if err != nil {
		return nil, err
	}

	return &dto.ScopeResponse{
		AIResponse:          outcome.AIResponse,
		ResearchBrief:       outcome.ResearchBrief,
		ClarificationNeeded: outcome.ClarificationNeeded,
	}, nil
}

func (s *researchService) Estimate(mode string, query string) (*dto.EstimateResponse, error) {
	parsed, _, err := dispatch.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	return &dto.EstimateResponse{
		Mode:     string(parsed),
		Estimate: s.dispatcher.Estimate(parsed, len(query)),
	}, nil
}

func (s *researchService) DailyCosts() costs.DailySummary {
	return s.ledger.DailySummary()
}

func (s *researchService) GetSession(ctx context.Context, sessionId string) (*dto.ResearchSessionResponse, error) {
	// Live runs first: the cache holds the freshest state, including runs
	// that finished moments ago.
	if run, found := s.runRepo.Get(sessionId); found {
		res := &dto.ResearchSessionResponse{
			SessionId:     run.ID,
			Mode:          run.Mode,
			Query:         run.Query,
			Status:        run.Status,
			Stage:         run.Stage,
			Result:        run.Result,
			Clarification: run.Clarification,
			Error:         run.Error,
			StartedAt:     run.StartedAt,
		}
		if !run.FinishedAt.IsZero() {
			finishedAt := run.FinishedAt
			res.FinishedAt = &finishedAt
		}

		s.mu.Lock()
		session := s.active[sessionId]
		s.mu.Unlock()
		if session == nil {
			// Terminal: totals come from the archive row written at
			// completion.
			if archived, err := s.archiveRepo.FindByKey(ctx, sessionId); err == nil && archived != nil {
				res.InputTokens = archived.InputTokens
				res.OutputTokens = archived.OutputTokens
				res.TotalCostUSD = archived.TotalCostUSD
				res.Breakdown = breakdownRows(archived.Breakdown)
			}
			return res, nil
		}

		if summary := s.ledger.SummarizeSession(session); summary != nil {
			res.InputTokens = summary.TotalInputTokens
			res.OutputTokens = summary.TotalOutputTokens
			res.TotalCostUSD = summary.TotalCostUSD
			res.Breakdown = summary.CostBreakdown
		}
		return res, nil
	}

	archived, err := s.archiveRepo.FindByKey(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if archived == nil {
		return nil, rerrors.ErrSessionNotFound
	}

	return &dto.ResearchSessionResponse{
		SessionId:     archived.SessionKey,
		Mode:          archived.Mode,
		Query:         archived.Query,
		Status:        archived.Status,
		Result:        archived.Result,
		Clarification: archived.Clarification,
		Error:         archived.FailureReason,
		StartedAt:     archived.StartedAt,
		FinishedAt:    archived.FinishedAt,
		InputTokens:   archived.InputTokens,
		OutputTokens:  archived.OutputTokens,
		TotalCostUSD:  archived.TotalCostUSD,
		Breakdown:     breakdownRows(archived.Breakdown),
	}, nil
}

func (s *researchService) ListSessions(ctx context.Context, limit int) ([]*dto.ResearchSessionListItem, error) {
	if limit <= 0 {
		limit = 20
	}

	sessions, err := s.archiveRepo.FindRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ResearchSessionListItem, 0, len(sessions))
	for _, archived := range sessions {
		items = append(items, &dto.ResearchSessionListItem{
			SessionId:    archived.SessionKey,
			Mode:         archived.Mode,
			Query:        archived.Query,
			Status:       archived.Status,
			TotalCostUSD: archived.TotalCostUSD,
			StartedAt:    archived.StartedAt,
			FinishedAt:   archived.FinishedAt,
		})
	}
	return items, nil
}

func (s *researchService) saveRun(run store.Run) {
	snapshot := run
	s.runRepo.Save(&snapshot)
}

func (s *researchService) publishProgress(payload dto.ResearchProgressMessage) {
	payload.OccurredAt = time.Now()

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("ResearchService", "Failed to marshal progress message", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	// Progress is auxiliary; a publish failure must not abort the run.
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		s.logger.Warn("ResearchService", "Failed to publish progress message", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
	}
}

func breakdownRows(records []entity.ResearchCallRecord) []costs.CostBreakdownRow {
	if len(records) == 0 {
		return nil
	}
	rows := make([]costs.CostBreakdownRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, costs.CostBreakdownRow{
			Model:        record.Model,
			Operation:    record.Operation,
			InputTokens:  record.InputTokens,
			OutputTokens: record.OutputTokens,
			CostUSD:      record.CostUSD,
		})
	}
	return rows
}
