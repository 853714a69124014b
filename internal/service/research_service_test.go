package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/repository/memory"
	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/events"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/dispatch"
	"ai-research-be/pkg/research/rerrors"
	"ai-research-be/pkg/search"
	"ai-research-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type scriptedProvider struct {
	mu     sync.Mutex
	script []*llm.ChatResponse
	calls  int
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	step := p.calls
	if step >= len(p.script) {
		step = len(p.script) - 1
	}
	p.calls++
	return p.script[step], nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	resp, err := p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

type stubSearch struct{}

func (stubSearch) Search(ctx context.Context, query string, maxResults int, topic string, includeRaw bool) ([]search.Result, error) {
	return []search.Result{{Title: "Doc", URL: "https://example.com/doc", Content: "snippet"}}, nil
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

const testTopic = "RESEARCH_PROGRESS_TEST"

type serviceHarness struct {
	svc     IResearchService
	ledger  *costs.Ledger
	pubSub  *gochannel.GoChannel
	archive *memory.ArchiveRepository
}

func newServiceHarness(t *testing.T, script []*llm.ChatResponse) *serviceHarness {
	t.Helper()

	ledger := costs.NewLedger(costs.DefaultPriceTable())
	dispatcher, err := dispatch.New(
		dispatch.Deps{
			Provider:       &scriptedProvider{script: script},
			SearchProvider: stubSearch{},
			Ledger:         ledger,
			Logger:         log.New(io.Discard, "", 0),
		},
		dispatch.Config{
			TurnCap:           4,
			CompletionPhrases: []string{"research complete"},
		},
	)
	if err != nil {
		t.Fatalf("dispatch.New: %v", err)
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	archive := memory.NewArchiveRepository().(*memory.ArchiveRepository)

	svc := NewResearchService(
		dispatcher,
		ledger,
		memory.NewRunRepository(),
		archive,
		pubSub,
		testTopic,
		nopLogger{},
	)

	return &serviceHarness{svc: svc, ledger: ledger, pubSub: pubSub, archive: archive}
}

// drainUntil reads progress messages until one matches eventType. Every
// message is acked so the channel keeps flowing.
func drainUntil(t *testing.T, messages <-chan *message.Message, eventType string) dto.ResearchProgressMessage {
	t.Helper()

	deadline := time.After(5 * time.Second)
	var seen []string
	for {
		select {
		case msg := <-messages:
			var payload dto.ResearchProgressMessage
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				t.Fatalf("bad progress payload: %v", err)
			}
			msg.Ack()
			seen = append(seen, payload.EventType)
			if payload.EventType == eventType {
				return payload
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s, saw %v", eventType, seen)
		}
	}
}

func TestStartResearchCompletes(t *testing.T) {
	h := newServiceHarness(t, []*llm.ChatResponse{
		{Content: "Research complete."},
		{Content: "Solar panel efficiency records improved steadily through 2024."},
	})

	messages, err := h.pubSub.Subscribe(context.Background(), testTopic)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	res, err := h.svc.Start(context.Background(), &dto.StartResearchRequest{
		Query: "solar panel efficiency records",
		Mode:  "basic",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.SessionId == "" {
		t.Fatal("expected a session id")
	}
	if res.Status != store.StatusRunning {
		t.Fatalf("status = %q, want %q", res.Status, store.StatusRunning)
	}
	if res.Estimate.EstimatedTotalUSD <= 0 {
		t.Fatalf("estimate total = %v, want > 0", res.Estimate.EstimatedTotalUSD)
	}

	started := drainUntil(t, messages, events.TypeResearchStarted)
	if started.SessionId != res.SessionId {
		t.Fatalf("started event session = %q, want %q", started.SessionId, res.SessionId)
	}

	completed := drainUntil(t, messages, events.TypeResearchCompleted)
	if completed.CostUSD <= 0 {
		t.Fatalf("completed event cost = %v, want > 0", completed.CostUSD)
	}
	if !strings.Contains(completed.Result, "efficiency records") {
		t.Fatalf("completed event result = %q", completed.Result)
	}

	session, err := h.svc.GetSession(context.Background(), res.SessionId)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != store.StatusCompleted {
		t.Fatalf("session status = %q, want %q", session.Status, store.StatusCompleted)
	}
	if session.FinishedAt == nil {
		t.Fatal("expected FinishedAt to be set")
	}
	if session.TotalCostUSD <= 0 {
		t.Fatalf("session cost = %v, want > 0", session.TotalCostUSD)
	}
	if len(session.Breakdown) == 0 {
		t.Fatal("expected a cost breakdown")
	}

	items, err := h.svc.ListSessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(items) != 1 || items[0].SessionId != res.SessionId {
		t.Fatalf("archive listing = %+v", items)
	}

	daily := h.svc.DailyCosts()
	if daily.TotalSessions != 1 {
		t.Fatalf("daily sessions = %d, want 1", daily.TotalSessions)
	}
}

func TestStartScopedEndsClarifying(t *testing.T) {
	h := newServiceHarness(t, []*llm.ChatResponse{
		{Content: "Could you clarify which region you mean?"},
	})

	messages, err := h.pubSub.Subscribe(context.Background(), testTopic)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	res, err := h.svc.Start(context.Background(), &dto.StartResearchRequest{
		Query: "renewable adoption",
		Mode:  "scoped-basic",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	clar := drainUntil(t, messages, events.TypeResearchClarification)
	if !strings.Contains(clar.Detail, "clarify") {
		t.Fatalf("clarification detail = %q", clar.Detail)
	}

	session, err := h.svc.GetSession(context.Background(), res.SessionId)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != store.StatusClarifying {
		t.Fatalf("session status = %q, want %q", session.Status, store.StatusClarifying)
	}
	if session.Clarification == "" {
		t.Fatal("expected the clarification question on the session")
	}
	if session.Result != "" {
		t.Fatalf("clarifying session should have no result, got %q", session.Result)
	}

	// Clarified runs are archived too; the user may come back later.
	archived, err := h.archive.FindByKey(context.Background(), res.SessionId)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if archived == nil || archived.Status != store.StatusClarifying {
		t.Fatalf("archived = %+v", archived)
	}
}

func TestStartRejectsUnknownMode(t *testing.T) {
	h := newServiceHarness(t, []*llm.ChatResponse{{Content: "unused"}})

	_, err := h.svc.Start(context.Background(), &dto.StartResearchRequest{
		Query: "anything at all",
		Mode:  "telepathy",
	})
	if !errors.Is(err, rerrors.ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
}

func TestStartRejectsEmptyQuery(t *testing.T) {
	h := newServiceHarness(t, []*llm.ChatResponse{{Content: "unused"}})

	_, err := h.svc.Start(context.Background(), &dto.StartResearchRequest{
		Query: "   ",
		Mode:  "basic",
	})
	if !errors.Is(err, rerrors.ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestGetSessionUnknown(t *testing.T) {
	h := newServiceHarness(t, []*llm.ChatResponse{{Content: "unused"}})

	_, err := h.svc.GetSession(context.Background(), "session_0_missing")
	if !errors.Is(err, rerrors.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestScopeReturnsBrief(t *testing.T) {
	h := newServiceHarness(t, []*llm.ChatResponse{
		{Content: "Great! Research brief: Heat pump adoption in Nordic countries since 2020."},
	})

	res, err := h.svc.Scope(context.Background(), &dto.ScopeRequest{Query: "heat pumps"})
	if err != nil {
		t.Fatalf("Scope: %v", err)
	}
	if res.ClarificationNeeded {
		t.Fatal("expected no clarification")
	}
	if res.ResearchBrief != "Heat pump adoption in Nordic countries since 2020." {
		t.Fatalf("brief = %q", res.ResearchBrief)
	}

	// The scoping call is billed into the daily ledger.
	if daily := h.svc.DailyCosts(); daily.TotalSessions != 1 {
		t.Fatalf("daily sessions = %d, want 1", daily.TotalSessions)
	}
}

func TestEstimateParsesMode(t *testing.T) {
	h := newServiceHarness(t, []*llm.ChatResponse{{Content: "unused"}})

	res, err := h.svc.Estimate("enhanced", "grid storage capacity forecasts")
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if res.Mode != string(dispatch.ModeLocalDocsPlusStats) {
		t.Fatalf("mode = %q, want %q", res.Mode, dispatch.ModeLocalDocsPlusStats)
	}
	if res.Estimate.EstimatedTotalUSD <= 0 {
		t.Fatalf("estimate total = %v, want > 0", res.Estimate.EstimatedTotalUSD)
	}

	if _, err := h.svc.Estimate("telepathy", "q"); !errors.Is(err, rerrors.ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
}
