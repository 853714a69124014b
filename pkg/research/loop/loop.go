// Package loop implements the agentic research state machine: the reasoning
// model proposes tool calls, tools execute, results feed back into the
// transcript, and a continuation policy decides when to hand the accumulated
// findings to the compression model.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/rerrors"
	"ai-research-be/pkg/research/tool"
)

// State identifies a phase of the research loop.
type State int

const (
	StateAwaitingModel State = iota
	StateExecutingTools
	StateCompressing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateExecutingTools:
		return "EXECUTING_TOOLS"
	case StateCompressing:
		return "COMPRESSING"
	case StateDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// NoResultsSentinel is the loop output when compression yields no content.
const NoResultsSentinel = "No research results found"

// Progress receives state transitions for streaming surfaces. Callbacks run
// on the loop goroutine and must not block.
type Progress func(state State, detail string)

// Config assembles the collaborators of one research loop.
type Config struct {
	Provider llm.LLMProvider
	Registry *tool.Registry
	Policy   Policy

	// Model is the qualified reasoning model id, e.g.
	// "anthropic:claude-sonnet-4-20250514".
	Model        string
	SystemPrompt string

	// Compressor defaults to the stock compression model on Provider.
	Compressor *Compressor

	Ledger  *costs.Ledger
	Session *costs.Session

	Progress Progress
	Logger   *log.Logger
}

// Loop drives one research run to completion.
type Loop struct {
	cfg Config
}

// New validates the configuration and fills defaults: SelfStop policy, an
// empty registry, and a compressor on the reasoning provider.
func New(cfg Config) (*Loop, error) {
	if cfg.Provider == nil {
		return nil, errors.New("loop: provider is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("loop: reasoning model is required")
	}
	if cfg.Registry == nil {
		cfg.Registry, _ = tool.NewRegistry()
	}
	if cfg.Policy == nil {
		cfg.Policy = SelfStop{}
	}
	if cfg.Compressor == nil {
		cfg.Compressor = NewCompressor(cfg.Provider, "", 0).WithBilling(cfg.Ledger, cfg.Session)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Loop{cfg: cfg}, nil
}

// Run executes the state machine for query and returns the compressed
// synthesis. Model failures (reasoning or compression) are fatal and typed;
// individual tool failures degrade into transcript text and never abort the
// run.
func (l *Loop) Run(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", rerrors.ErrEmptyQuery
	}

	transcript := NewTranscript(l.cfg.SystemPrompt, query)
	state := StateAwaitingModel
	var pending []llm.ToolCall
	turn := 0

	for {
		switch state {
		case StateAwaitingModel:
			turn++
			l.emit(StateAwaitingModel, fmt.Sprintf("turn %d", turn))
			l.cfg.Logger.Printf("[LOOP] Turn %d: invoking %s with %d tools bound", turn, l.cfg.Model, l.cfg.Registry.Len())

			resp, err := l.cfg.Provider.Chat(ctx, transcript,
				llm.WithModel(llm.ModelName(l.cfg.Model)),
				llm.WithTools(l.cfg.Registry.Schemas()),
			)
			if err != nil {
				return "", &rerrors.ModelError{Model: l.cfg.Model, Operation: "research", Cause: err}
			}
			l.bill(transcript, resp)

			transcript = append(transcript, llm.Message{
				Role:      "assistant",
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
			})

			switch {
			case !l.cfg.Policy.Continue(transcript):
				// Cap or completion phrase: compress regardless of
				// pending tool calls.
				l.cfg.Logger.Printf("[LOOP] Turn %d: continuation policy stopped the loop", turn)
				state = StateCompressing
			case len(resp.ToolCalls) == 0:
				state = StateCompressing
			default:
				pending = resp.ToolCalls
				state = StateExecutingTools
			}

		case StateExecutingTools:
			l.emit(StateExecutingTools, fmt.Sprintf("%d tool calls", len(pending)))
			for _, call := range pending {
				l.cfg.Logger.Printf("[LOOP] Executing tool %s (%s)", call.Name, call.ID)
				result := l.cfg.Registry.Execute(ctx, call)
				transcript = append(transcript, llm.Message{
					Role:       "tool",
					Content:    result,
					ToolCallID: call.ID,
					Name:       call.Name,
				})
			}
			pending = nil
			state = StateAwaitingModel

		case StateCompressing:
			l.emit(StateCompressing, "synthesizing findings")
			result, err := l.cfg.Compressor.Compress(ctx, transcript, query)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(result) == "" {
				result = NoResultsSentinel
			}
			l.emit(StateDone, fmt.Sprintf("%d turns", turn))
			return result, nil
		}
	}
}

func (l *Loop) emit(state State, detail string) {
	if l.cfg.Progress != nil {
		l.cfg.Progress(state, detail)
	}
}

func (l *Loop) bill(sent Transcript, resp *llm.ChatResponse) {
	if l.cfg.Ledger == nil {
		return
	}
	l.cfg.Ledger.RecordModelCall(l.cfg.Session, l.cfg.Model,
		costs.EstimateTokens(sent.Text()), costs.EstimateTokens(resp.Content), "research")
}
