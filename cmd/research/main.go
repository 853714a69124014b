package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-research-be/internal/config"
	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm/factory"
	"ai-research-be/pkg/research/dispatch"
	"ai-research-be/pkg/research/loop"
	"ai-research-be/pkg/research/rerrors"
	"ai-research-be/pkg/research/tool"
	"ai-research-be/pkg/search"

	"github.com/fatih/color"
)

func main() {
	queryFlag := flag.String("query", "", "research question (required)")
	modeFlag := flag.String("mode", "basic", "research mode: basic, mcp, enhanced, full (prefix with scoped- to clarify first)")
	estimateOnly := flag.Bool("estimate-only", false, "print the cost estimate and exit without running")
	flag.Parse()

	if strings.TrimSpace(*queryFlag) == "" {
		color.Red("Error: -query is required")
		flag.Usage()
		os.Exit(1)
	}

	mode, scoped, err := dispatch.ParseMode(*modeFlag)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	query := strings.TrimSpace(*queryFlag)

	cfg := config.Load()
	ledger := newLedger(cfg)

	dispatcher, cleanup, err := buildDispatcher(cfg, ledger, mode)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	// Pre-flight estimate
	estimate := dispatcher.Estimate(mode, len(query))
	color.Cyan("🔬 %s", mode.EstimateAlias())
	color.Yellow("\nEstimated cost for this run:")
	fmt.Printf("  Model:    $%.4f (%d in / %d out tokens)\n",
		estimate.ModelCostUSD, estimate.EstimatedInputTokens, estimate.EstimatedOutputTokens)
	fmt.Printf("  Search:   $%.4f (%d searches)\n", estimate.SearchCostUSD, estimate.EstimatedSearches)
	fmt.Printf("  Total:    $%.4f\n", estimate.EstimatedTotalUSD)

	if *estimateOnly {
		return
	}

	// Run
	session := ledger.StartSession(mode.EstimateAlias(), query)
	progress := func(state loop.State, detail string) {
		line := fmt.Sprintf("  [%s]", state)
		if detail != "" {
			line += " " + detail
		}
		color.Blue("%s", line)
	}

	color.Yellow("\nResearching: %s\n", query)
	start := time.Now()

	var result string
	ctx := context.Background()
	if scoped {
		result, err = dispatcher.RunScoped(ctx, mode, query, session, progress)
	} else {
		result, err = dispatcher.Run(ctx, mode, query, session, progress)
	}
	ledger.EndSession(session)

	var clarification *rerrors.ClarificationError
	switch {
	case errors.As(err, &clarification):
		color.Yellow("\n❓ Clarification needed before research can start:")
		fmt.Println(clarification.Question)
		return
	case err != nil:
		color.Red("\nResearch failed: %v", err)
		var confErr *rerrors.ConfigurationError
		if errors.As(err, &confErr) {
			color.Yellow("Hint: %s", confErr.Guidance())
		}
		os.Exit(1)
	}

	color.Green("\n✅ Research complete in %s\n", time.Since(start).Round(time.Second))
	fmt.Println(result)

	printCostSummary(ledger.SummarizeSession(session))
}

func newLedger(cfg *config.Config) *costs.Ledger {
	pricing := costs.DefaultPriceTable()
	if cfg.Research.PricingPath != "" {
		loaded, err := costs.LoadPriceTable(cfg.Research.PricingPath)
		if err != nil {
			log.Printf("Warn: failed to load price table %s: %v (using defaults)", cfg.Research.PricingPath, err)
		} else {
			pricing = loaded
		}
	}
	return costs.NewLedger(pricing)
}

// buildDispatcher wires only what the chosen mode needs; a basic run should
// not pay MCP server startup.
func buildDispatcher(cfg *config.Config, ledger *costs.Ledger, mode dispatch.Mode) (*dispatch.Dispatcher, func(), error) {
	baseURL := cfg.Ai.OpenAIBaseURL
	if cfg.Ai.LLMProvider == "ollama" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	provider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.ResearchModel, baseURL, cfg.Keys.OpenAI)
	if err != nil {
		return nil, nil, err
	}

	var searchProvider search.Provider
	if cfg.Keys.Tavily != "" {
		searchProvider = search.NewTavily(cfg.Keys.Tavily)
	}

	discoveryTTL := time.Duration(cfg.Research.ToolCacheTTLSeconds) * time.Second
	var servers []*tool.Server
	cleanup := func() {
		for _, s := range servers {
			s.Close()
		}
	}

	var fsServer, dcServer *tool.Server
	if mode == dispatch.ModeLocalDocs || mode == dispatch.ModeLocalDocsPlusStats {
		fsServer, err = tool.StartServer(tool.FilesystemServer(cfg.Research.DocsDir), discoveryTTL)
		if err != nil {
			return nil, nil, err
		}
		servers = append(servers, fsServer)
	}
	if mode == dispatch.ModeLocalDocsPlusStats && cfg.Keys.DataCommons != "" {
		dcServer, err = tool.StartServer(tool.DataCommonsServer(cfg.Keys.DataCommons), discoveryTTL)
		if err != nil {
			log.Printf("Warn: Data Commons MCP server unavailable: %v", err)
		} else {
			servers = append(servers, dcServer)
		}
	}

	dispatcher, err := dispatch.New(
		dispatch.Deps{
			Provider:       provider,
			SearchProvider: searchProvider,
			Ledger:         ledger,
			Filesystem:     fsServer,
			DataCommons:    dcServer,
			Logger:         pipelineLogger(),
		},
		dispatch.Config{
			ResearchModel:        cfg.Ai.ResearchModel,
			CompressionModel:     cfg.Ai.CompressionModel,
			CompressionMaxTokens: cfg.Ai.CompressionMaxTokens,
			SummarizationModel:   cfg.Ai.SummarizationModel,
			ScopingModel:         cfg.Ai.ScopingModel,
			TurnCap:              cfg.Research.TurnCap,
			CompletionPhrases:    splitPhrases(cfg.Research.CompletionPhrases),
		},
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return dispatcher, cleanup, nil
}

func printCostSummary(summary *costs.SessionSummary) {
	if summary == nil {
		return
	}

	color.Yellow("\nSession cost summary (%s):", summary.SessionID)
	fmt.Printf("  Duration: %.1fs\n", summary.DurationSeconds)
	fmt.Printf("  Tokens:   %d in / %d out\n", summary.TotalInputTokens, summary.TotalOutputTokens)
	fmt.Printf("  Calls:    %d\n", summary.ModelCallsCount)
	for _, row := range summary.CostBreakdown {
		fmt.Printf("    %-28s %-12s $%.4f\n", row.Model, row.Operation, row.CostUSD)
	}
	color.Green("  Total:    $%.4f", summary.TotalCostUSD)
}

func pipelineLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "research_pipeline.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

func splitPhrases(csv string) []string {
	parts := strings.Split(csv, ",")
	phrases := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			phrases = append(phrases, trimmed)
		}
	}
	return phrases
}
