package loop

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/rerrors"
	"ai-research-be/pkg/research/tool"
)

// fakeProvider replays scripted chat responses. Once the script runs out it
// repeats the final step, which lets always-tool-calling scenarios run until
// the policy cuts them off.
type fakeProvider struct {
	mu        sync.Mutex
	script    []fakeStep
	calls     int
	histories [][]llm.Message
}

type fakeStep struct {
	resp *llm.ChatResponse
	err  error
}

func (p *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make([]llm.Message, len(history))
	copy(snapshot, history)
	p.histories = append(p.histories, snapshot)

	idx := p.calls
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	p.calls++

	step := p.script[idx]
	return step.resp, step.err
}

func (p *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	resp, err := p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func assistant(content string, calls ...llm.ToolCall) fakeStep {
	return fakeStep{resp: &llm.ChatResponse{Content: content, ToolCalls: calls}}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func echoRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	r, err := tool.NewRegistry(tool.Tool{
		Name:        "echo",
		Description: "echoes text",
		Schema:      llm.ToolParameterSchema{Type: "object"},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			text, _ := args["text"].(string)
			return "echo: " + text, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRunNoToolCallsCompressesImmediately(t *testing.T) {
	provider := &fakeProvider{script: []fakeStep{
		assistant("Berlin is the capital of Germany."),
		assistant("Compressed: Berlin is the capital of Germany."),
	}}
	ledger := costs.NewLedger(costs.DefaultPriceTable())
	session := ledger.StartSession("Basic", "capital of germany")

	l, err := New(Config{
		Provider:     provider,
		Model:        "openai:gpt-4o-mini",
		SystemPrompt: "You are a researcher.",
		Compressor:   NewCompressor(provider, "", 0).WithBilling(ledger, session),
		Ledger:       ledger,
		Session:      session,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := l.Run(context.Background(), "capital of germany")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Compressed: Berlin is the capital of Germany." {
		t.Errorf("result = %q", got)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (one research turn + compression)", provider.calls)
	}

	ops := operations(session)
	if ops["research"] != 1 || ops["compress"] != 1 {
		t.Errorf("ledger operations = %v", ops)
	}
}

func TestRunSearchThenStop(t *testing.T) {
	provider := &fakeProvider{script: []fakeStep{
		assistant("", llm.ToolCall{ID: "call_1", Name: "echo", Arguments: map[string]interface{}{"text": "qubits"}}),
		assistant("Found what I needed."),
		assistant("Final synthesis about qubits."),
	}}

	var stages []string
	l, err := New(Config{
		Provider:     provider,
		Registry:     echoRegistry(t),
		Model:        "anthropic:claude-sonnet-4-20250514",
		SystemPrompt: "You are a researcher.",
		Compressor:   NewCompressor(provider, "", 0),
		Progress: func(state State, detail string) {
			stages = append(stages, state.String())
		},
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := l.Run(context.Background(), "quantum computing")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Final synthesis about qubits." {
		t.Errorf("result = %q", got)
	}

	wantStages := []string{"AWAITING_MODEL", "EXECUTING_TOOLS", "AWAITING_MODEL", "COMPRESSING", "DONE"}
	if strings.Join(stages, ",") != strings.Join(wantStages, ",") {
		t.Errorf("stages = %v, want %v", stages, wantStages)
	}

	// The compression call sees the full transcript: the tool-result turn
	// must directly follow its requesting assistant turn, correlated by id.
	last := provider.histories[len(provider.histories)-1]
	var assistantIdx, toolIdx = -1, -1
	for i, msg := range last {
		if msg.Role == "assistant" && len(msg.ToolCalls) > 0 && assistantIdx == -1 {
			assistantIdx = i
		}
		if msg.Role == "tool" && toolIdx == -1 {
			toolIdx = i
		}
	}
	if assistantIdx == -1 || toolIdx != assistantIdx+1 {
		t.Fatalf("tool turn at %d, requesting assistant at %d", toolIdx, assistantIdx)
	}
	if last[toolIdx].ToolCallID != "call_1" {
		t.Errorf("tool turn correlation id = %q", last[toolIdx].ToolCallID)
	}
	if last[toolIdx].Content != "echo: qubits" {
		t.Errorf("tool turn content = %q", last[toolIdx].Content)
	}
}

func TestRunBoundedPolicyStopsAlwaysToolModel(t *testing.T) {
	// The single scripted step keeps requesting tools forever; only the cap
	// can terminate this run.
	provider := &fakeProvider{script: []fakeStep{
		assistant("digging deeper", llm.ToolCall{ID: "call_n", Name: "echo", Arguments: map[string]interface{}{"text": "more"}}),
	}}
	ledger := costs.NewLedger(costs.DefaultPriceTable())
	session := ledger.StartSession("LocalDocs", "q")

	l, err := New(Config{
		Provider:     provider,
		Registry:     echoRegistry(t),
		Policy:       NewBounded(6, nil),
		Model:        "anthropic:claude-sonnet-4-20250514",
		SystemPrompt: "You are a researcher.",
		Compressor:   NewCompressor(provider, "", 0).WithBilling(ledger, session),
		Ledger:       ledger,
		Session:      session,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := l.Run(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}

	// Transcript growth: 2 seed turns, then (assistant, tool) pairs. With a
	// cap of 6 the third assistant turn pushes the length to 7 and stops the
	// loop: exactly 3 research turns, then compression.
	ops := operations(session)
	if ops["research"] != 3 {
		t.Errorf("research turns = %d, want 3", ops["research"])
	}
	if ops["compress"] != 1 {
		t.Errorf("compress calls = %d, want 1", ops["compress"])
	}
}

func TestRunCompletionPhraseStopsDespitePendingToolCalls(t *testing.T) {
	provider := &fakeProvider{script: []fakeStep{
		assistant("Gathering sources", llm.ToolCall{ID: "call_1", Name: "echo", Arguments: map[string]interface{}{"text": "a"}}),
		assistant("Research complete, no more information needed.",
			llm.ToolCall{ID: "call_2", Name: "echo", Arguments: map[string]interface{}{"text": "b"}}),
		assistant("Synthesis."),
	}}

	l, err := New(Config{
		Provider:     provider,
		Registry:     echoRegistry(t),
		Policy:       NewBounded(0, nil),
		Model:        "anthropic:claude-sonnet-4-20250514",
		SystemPrompt: "You are a researcher.",
		Compressor:   NewCompressor(provider, "", 0),
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := l.Run(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Synthesis." {
		t.Errorf("result = %q", got)
	}
	// call_2 must never execute: the completion phrase forces compression.
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
}

func TestRunToolFailureKeepsLoopAlive(t *testing.T) {
	registry, err := tool.NewRegistry(tool.Tool{
		Name:   "flaky",
		Schema: llm.ToolParameterSchema{Type: "object"},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "", errors.New("upstream timeout")
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	provider := &fakeProvider{script: []fakeStep{
		assistant("", llm.ToolCall{ID: "call_1", Name: "flaky", Arguments: map[string]interface{}{}}),
		assistant("Working around the failure."),
		assistant("Synthesis despite the failure."),
	}}

	l, err := New(Config{
		Provider:     provider,
		Registry:     registry,
		Model:        "openai:gpt-4o-mini",
		SystemPrompt: "You are a researcher.",
		Compressor:   NewCompressor(provider, "", 0),
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := l.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("tool failure must not abort the run: %v", err)
	}
	if got != "Synthesis despite the failure." {
		t.Errorf("result = %q", got)
	}

	// The failure is visible to the model as a tool-result turn.
	second := provider.histories[1]
	lastTurn := second[len(second)-1]
	if lastTurn.Role != "tool" || lastTurn.Content != "Tool execution error: upstream timeout" {
		t.Errorf("tool turn = %+v", lastTurn)
	}
}

func TestRunUnknownToolProducesDiagnosticTurn(t *testing.T) {
	provider := &fakeProvider{script: []fakeStep{
		assistant("", llm.ToolCall{ID: "call_1", Name: "missing_tool"}),
		assistant("Moving on."),
		assistant("Synthesis."),
	}}

	l, err := New(Config{
		Provider:     provider,
		Model:        "openai:gpt-4o-mini",
		SystemPrompt: "You are a researcher.",
		Compressor:   NewCompressor(provider, "", 0),
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := l.Run(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}

	second := provider.histories[1]
	lastTurn := second[len(second)-1]
	if lastTurn.Content != "Unknown tool: missing_tool" {
		t.Errorf("tool turn content = %q", lastTurn.Content)
	}
}

func TestRunEmptyCompressionYieldsSentinel(t *testing.T) {
	provider := &fakeProvider{script: []fakeStep{
		assistant("nothing to report"),
		assistant("   "),
	}}

	l, err := New(Config{
		Provider:     provider,
		Model:        "openai:gpt-4o-mini",
		SystemPrompt: "You are a researcher.",
		Compressor:   NewCompressor(provider, "", 0),
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := l.Run(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if got != NoResultsSentinel {
		t.Errorf("result = %q, want sentinel", got)
	}
}

func TestRunModelFailureIsFatalAndTyped(t *testing.T) {
	provider := &fakeProvider{script: []fakeStep{
		{err: errors.New("connection refused")},
	}}

	l, err := New(Config{
		Provider:     provider,
		Model:        "openai:gpt-4o-mini",
		SystemPrompt: "You are a researcher.",
		Compressor:   NewCompressor(provider, "", 0),
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = l.Run(context.Background(), "q")
	var me *rerrors.ModelError
	if !errors.As(err, &me) {
		t.Fatalf("expected ModelError, got %v", err)
	}
	if me.Operation != "research" {
		t.Errorf("operation = %q", me.Operation)
	}
}

func TestRunEmptyQuery(t *testing.T) {
	provider := &fakeProvider{script: []fakeStep{assistant("x")}}
	l, err := New(Config{
		Provider:     provider,
		Model:        "openai:gpt-4o-mini",
		SystemPrompt: "s",
		Compressor:   NewCompressor(provider, "", 0),
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := l.Run(context.Background(), "   "); !errors.Is(err, rerrors.ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestBoundedPolicy(t *testing.T) {
	tests := []struct {
		name       string
		transcript Transcript
		limit      int
		want       bool
	}{
		{
			name:       "under cap without phrase",
			transcript: Transcript{{Role: "system"}, {Role: "user"}, {Role: "assistant", Content: "still looking"}},
			limit:      10,
			want:       true,
		},
		{
			name: "at cap",
			transcript: Transcript{
				{Role: "system"}, {Role: "user"}, {Role: "assistant"}, {Role: "tool"}, {Role: "assistant"},
			},
			limit: 5,
			want:  false,
		},
		{
			name:       "completion phrase, case-insensitive",
			transcript: Transcript{{Role: "system"}, {Role: "user"}, {Role: "assistant", Content: "RESEARCH COMPLETE. Summary follows."}},
			limit:      10,
			want:       false,
		},
		{
			name:       "phrase in tool turn is ignored",
			transcript: Transcript{{Role: "system"}, {Role: "user"}, {Role: "assistant", Content: "checking"}, {Role: "tool", Content: "research complete"}},
			limit:      10,
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBounded(tt.limit, nil)
			if got := b.Continue(tt.transcript); got != tt.want {
				t.Errorf("Continue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelfStopAlwaysContinues(t *testing.T) {
	long := make(Transcript, 100)
	if !(SelfStop{}).Continue(long) {
		t.Error("SelfStop must never force a stop")
	}
}

func TestHasCompletionPhrase(t *testing.T) {
	phrases := DefaultCompletionPhrases()

	if !HasCompletionPhrase("The analysis finished ahead of schedule", phrases) {
		t.Error("expected substring match")
	}
	if HasCompletionPhrase("still analyzing", phrases) {
		t.Error("unexpected match")
	}
	if HasCompletionPhrase("", phrases) {
		t.Error("empty text must not match")
	}
}

func operations(session *costs.Session) map[string]int {
	ops := make(map[string]int)
	for _, call := range session.Calls {
		ops[call.Operation]++
	}
	return ops
}
