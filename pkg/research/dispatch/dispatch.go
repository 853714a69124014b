// Package dispatch maps research modes to assembled research loops: it picks
// the tool set, continuation policy and system prompt for each mode, wires
// per-run billing, and exposes the scope-first wrappers.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/loop"
	"ai-research-be/pkg/research/rerrors"
	"ai-research-be/pkg/research/scope"
	"ai-research-be/pkg/research/tool"
	"ai-research-be/pkg/search"
	"ai-research-be/pkg/summarize"
)

// Deps carries the long-lived collaborators every mode draws from.
type Deps struct {
	Provider       llm.LLMProvider
	SearchProvider search.Provider
	Ledger         *costs.Ledger

	// Connected MCP servers; nil disables the modes that need them
	// (DataCommons degrades LocalDocsPlusStats to filesystem-only).
	Filesystem  *tool.Server
	DataCommons *tool.Server

	Logger *log.Logger
}

// Config tunes how modes assemble their loops. Zero values fall back to the
// stock models, cap and phrases.
type Config struct {
	ResearchModel        string
	CompressionModel     string
	CompressionMaxTokens int
	SummarizationModel   string
	ScopingModel         string
	TurnCap              int
	CompletionPhrases    []string

	// MaxSubResearchers bounds the MultiAgent fan-out.
	MaxSubResearchers int
}

type runner func(ctx context.Context, query string, session *costs.Session, progress loop.Progress) (string, error)

// Dispatcher owns the mode table.
type Dispatcher struct {
	deps  Deps
	cfg   Config
	modes map[Mode]runner
}

// DefaultResearchModel drives reasoning turns when configuration is silent.
const DefaultResearchModel = "openai:gpt-4o-mini"

// DefaultMaxSubResearchers bounds the MultiAgent fan-out by default.
const DefaultMaxSubResearchers = 3

// New validates deps and builds the dispatcher.
func New(deps Deps, cfg Config) (*Dispatcher, error) {
	if deps.Provider == nil {
		return nil, errors.New("dispatch: llm provider is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("dispatch: ledger is required")
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if cfg.ResearchModel == "" {
		cfg.ResearchModel = DefaultResearchModel
	}
	if cfg.MaxSubResearchers <= 0 {
		cfg.MaxSubResearchers = DefaultMaxSubResearchers
	}

	d := &Dispatcher{deps: deps, cfg: cfg}
	d.modes = map[Mode]runner{
		ModeBasic:              d.runBasic,
		ModeLocalDocs:          d.runLocalDocs,
		ModeLocalDocsPlusStats: d.runLocalDocsPlusStats,
		ModeMultiAgent:         d.runMultiAgent,
	}
	return d, nil
}

// Modes lists the registered research modes.
func (d *Dispatcher) Modes() []Mode {
	return []Mode{ModeBasic, ModeLocalDocs, ModeLocalDocsPlusStats, ModeMultiAgent}
}

// Estimate returns the pre-flight cost estimate for a mode.
func (d *Dispatcher) Estimate(mode Mode, queryLength int) costs.Estimate {
	return d.deps.Ledger.EstimateResearchCost(mode.EstimateAlias(), queryLength)
}

// Run executes one research mode against query, billing into session.
func (d *Dispatcher) Run(ctx context.Context, mode Mode, query string, session *costs.Session, progress loop.Progress) (string, error) {
	run, ok := d.modes[mode]
	if !ok {
		return "", fmt.Errorf("%w: %s", rerrors.ErrUnknownMode, string(mode))
	}
	d.deps.Logger.Printf("[DISPATCH] Mode %s: %.60s", mode, query)
	return run(ctx, query, session, progress)
}

// RunScoped scopes first, then researches. A clarification outcome returns a
// typed ClarificationError and research never starts; otherwise the brief
// (or the original query verbatim) feeds the loop.
func (d *Dispatcher) RunScoped(ctx context.Context, mode Mode, query string, session *costs.Session, progress loop.Progress) (string, error) {
	outcome, err := d.Scope(ctx, query, session)
	if err != nil {
		return "", err
	}
	if outcome.ClarificationNeeded {
		d.deps.Logger.Printf("[DISPATCH] Mode %s: clarification requested, research not started", mode)
		return "", &rerrors.ClarificationError{Question: outcome.AIResponse}
	}
	return d.Run(ctx, mode, outcome.EffectiveQuery(query), session, progress)
}

// Scope runs the clarification stage on its own, billing into session when
// one is given.
func (d *Dispatcher) Scope(ctx context.Context, query string, session *costs.Session) (*scope.Outcome, error) {
	scoper := scope.New(d.deps.Provider, d.cfg.ScopingModel).WithLogger(d.deps.Logger)
	if session != nil {
		scoper = scoper.WithBilling(d.deps.Ledger, session)
	}
	return scoper.Scope(ctx, query)
}

// adapterFor builds a search adapter whose raw-content summarization bills
// into the run's session.
func (d *Dispatcher) adapterFor(session *costs.Session) *search.Adapter {
	summarizer := summarize.New(d.deps.Provider, d.cfg.SummarizationModel).
		WithBilling(d.deps.Ledger, session)
	return search.NewAdapter(d.deps.SearchProvider, summarizer)
}

// compressorFor builds the compression step for one run.
func (d *Dispatcher) compressorFor(session *costs.Session) *loop.Compressor {
	return loop.NewCompressor(d.deps.Provider, d.cfg.CompressionModel, d.cfg.CompressionMaxTokens).
		WithBilling(d.deps.Ledger, session)
}

func (d *Dispatcher) runLoop(ctx context.Context, registry *tool.Registry, policy loop.Policy, systemPrompt, query string, session *costs.Session, progress loop.Progress) (string, error) {
	l, err := loop.New(loop.Config{
		Provider:     d.deps.Provider,
		Registry:     registry,
		Policy:       policy,
		Model:        d.cfg.ResearchModel,
		SystemPrompt: systemPrompt,
		Compressor:   d.compressorFor(session),
		Ledger:       d.deps.Ledger,
		Session:      session,
		Progress:     progress,
		Logger:       d.deps.Logger,
	})
	if err != nil {
		return "", err
	}
	return l.Run(ctx, query)
}

// runBasic is direct web research: search + reflection tools, self-stopping.
func (d *Dispatcher) runBasic(ctx context.Context, query string, session *costs.Session, progress loop.Progress) (string, error) {
	if d.deps.SearchProvider == nil {
		return "", &rerrors.ConfigurationError{Setting: "TAVILY_API_KEY", Cause: errors.New("search provider not configured")}
	}

	registry, err := tool.NewRegistry(
		tool.TavilySearch(d.adapterFor(session), d.deps.Ledger, session),
		tool.Think(d.deps.Ledger, session),
		tool.AcademicSearchHelper(),
	)
	if err != nil {
		return "", err
	}
	return d.runLoop(ctx, registry, loop.SelfStop{}, WebPrompt(), query, session, progress)
}

// runLocalDocs researches against the filesystem tool server under the
// bounded policy.
func (d *Dispatcher) runLocalDocs(ctx context.Context, query string, session *costs.Session, progress loop.Progress) (string, error) {
	registry, err := d.mcpRegistry(ctx, session, false)
	if err != nil {
		return "", err
	}
	policy := loop.NewBounded(d.cfg.TurnCap, d.cfg.CompletionPhrases)
	return d.runLoop(ctx, registry, policy, FilesPrompt(), query, session, progress)
}

// runLocalDocsPlusStats adds the statistical-dataset server when configured,
// degrading to filesystem-only research when its API key is absent.
func (d *Dispatcher) runLocalDocsPlusStats(ctx context.Context, query string, session *costs.Session, progress loop.Progress) (string, error) {
	registry, err := d.mcpRegistry(ctx, session, true)
	if err != nil {
		return "", err
	}
	policy := loop.NewBounded(d.cfg.TurnCap, d.cfg.CompletionPhrases)
	return d.runLoop(ctx, registry, policy, EnhancedPrompt(), query, session, progress)
}

// mcpRegistry merges the reflection tool with the tool servers' discovered
// tools. Duplicate names across servers are rejected, not shadowed.
func (d *Dispatcher) mcpRegistry(ctx context.Context, session *costs.Session, withStats bool) (*tool.Registry, error) {
	if d.deps.Filesystem == nil {
		return nil, &rerrors.ConfigurationError{
			Setting: "filesystem tool server",
			Cause:   errors.New("local-document research requires the filesystem MCP server"),
		}
	}

	registry, err := tool.NewRegistry(tool.Think(d.deps.Ledger, session))
	if err != nil {
		return nil, err
	}

	fsTools, err := d.deps.Filesystem.Tools(ctx)
	if err != nil {
		return nil, err
	}
	if err := registry.Add(fsTools...); err != nil {
		return nil, err
	}

	if withStats {
		if d.deps.DataCommons == nil {
			d.deps.Logger.Printf("[DISPATCH] Data Commons server not configured, using filesystem-only tools")
			return registry, nil
		}
		dcTools, err := d.deps.DataCommons.Tools(ctx)
		if err != nil {
			return nil, err
		}
		if err := registry.Add(dcTools...); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
