package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
)

type scriptedProvider struct {
	response string
	err      error
}

func (s *scriptedProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.response}, nil
}

func (s *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestSummarizeWrapsStructuredOutput(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"summary": "EV sales grew 30% in 2024.", "key_excerpts": "Sales rose sharply."}`,
	}
	s := New(provider, "openai:gpt-4o-mini")

	got := s.Summarize(context.Background(), "long raw page text")

	want := "<summary>\nEV sales grew 30% in 2024.\n</summary>\n\n<key_excerpts>\nSales rose sharply.\n</key_excerpts>"
	if got != want {
		t.Errorf("Summarize = %q, want %q", got, want)
	}
}

func TestSummarizeExtractsWrappedJSON(t *testing.T) {
	provider := &scriptedProvider{
		response: "Here you go:\n{\"summary\": \"S\", \"key_excerpts\": \"K\"}\nHope that helps!",
	}
	s := New(provider, "openai:gpt-4o-mini")

	got := s.Summarize(context.Background(), "raw")
	if !strings.Contains(got, "<summary>\nS\n</summary>") {
		t.Errorf("wrapped JSON not extracted: %q", got)
	}
}

func TestSummarizeFallsBackOnModelError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("rate limited")}
	s := New(provider, "openai:gpt-4o-mini")

	short := "short content"
	if got := s.Summarize(context.Background(), short); got != short {
		t.Errorf("short fallback = %q, want raw content unchanged", got)
	}

	long := strings.Repeat("a", 1500)
	got := s.Summarize(context.Background(), long)
	if len([]rune(got)) != 1003 || !strings.HasSuffix(got, "...") {
		t.Errorf("long fallback length = %d, want 1000 chars plus ellipsis", len([]rune(got)))
	}
}

func TestSummarizeFallsBackOnMalformedJSON(t *testing.T) {
	provider := &scriptedProvider{response: "I could not produce JSON, sorry."}
	s := New(provider, "openai:gpt-4o-mini")

	raw := "original body"
	if got := s.Summarize(context.Background(), raw); got != raw {
		t.Errorf("Summarize = %q, want raw fallback", got)
	}
}

func TestSummarizeRecordsBilling(t *testing.T) {
	provider := &scriptedProvider{
		response: `{"summary": "S", "key_excerpts": "K"}`,
	}
	ledger := costs.NewLedger(nil)
	session := ledger.StartSession("Basic Research", "q")

	s := New(provider, "openai:gpt-4o-mini").WithBilling(ledger, session)
	s.Summarize(context.Background(), "raw page")

	if len(session.Calls) != 1 {
		t.Fatalf("calls recorded = %d, want 1", len(session.Calls))
	}
	call := session.Calls[0]
	if call.Operation != "summarize" || call.ModelName != "openai:gpt-4o-mini" {
		t.Errorf("call = %+v", call)
	}
	if call.InputTokens == 0 || call.OutputTokens == 0 {
		t.Errorf("token estimates should be non-zero: %+v", call)
	}
}

func TestSummarizeDoesNotBillFailedCalls(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("boom")}
	ledger := costs.NewLedger(nil)
	session := ledger.StartSession("Basic Research", "q")

	s := New(provider, "openai:gpt-4o-mini").WithBilling(ledger, session)
	s.Summarize(context.Background(), "raw page")

	if len(session.Calls) != 0 {
		t.Errorf("calls recorded = %d, want 0 for a failed call", len(session.Calls))
	}
}
