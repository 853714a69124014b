package bootstrap

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-research-be/internal/config"
	"ai-research-be/internal/controller"
	"ai-research-be/internal/handler"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/internal/repository/contract"
	"ai-research-be/internal/repository/implementation"
	"ai-research-be/internal/repository/memory"
	"ai-research-be/internal/service"
	"ai-research-be/internal/websocket"
	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm/factory"
	"ai-research-be/pkg/research/dispatch"
	"ai-research-be/pkg/research/tool"
	"ai-research-be/pkg/search"

	pkgNats "ai-research-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ResearchController controller.IResearchController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Progress
	ProgressHandler *handler.ProgressHandler
	WebSocketHub    *websocket.Hub

	// Held for shutdown
	mcpServers []*tool.Server
	natsPub    *pkgNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Cost Ledger
	pricing := costs.DefaultPriceTable()
	if cfg.Research.PricingPath != "" {
		loaded, err := costs.LoadPriceTable(cfg.Research.PricingPath)
		if err != nil {
			log.Printf("[WARN] Failed to load price table %s: %v (using defaults)", cfg.Research.PricingPath, err)
		} else {
			pricing = loaded
			log.Printf("[INFO] Loaded price table from %s", cfg.Research.PricingPath)
		}
	}
	ledger := costs.NewLedger(pricing)

	// 4. LLM Provider
	baseURL := cfg.Ai.OpenAIBaseURL
	if cfg.Ai.LLMProvider == "ollama" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.ResearchModel,
		baseURL,
		cfg.Keys.OpenAI,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.ResearchModel)

	// 5. Search Provider
	var searchProvider search.Provider
	if cfg.Keys.Tavily != "" {
		searchProvider = search.NewTavily(cfg.Keys.Tavily)
		log.Printf("[INFO] Web search enabled (Tavily)")
	} else {
		log.Printf("[WARN] TAVILY_API_KEY not set; web search tool disabled")
	}

	// 6. MCP Tool Servers
	// A missing MCP binary only disables the modes that need it; the server
	// must still boot for basic research.
	discoveryTTL := time.Duration(cfg.Research.ToolCacheTTLSeconds) * time.Second
	var mcpServers []*tool.Server

	fsServer, err := tool.StartServer(tool.FilesystemServer(cfg.Research.DocsDir), discoveryTTL)
	if err != nil {
		log.Printf("[WARN] Filesystem MCP server unavailable: %v", err)
		fsServer = nil
	} else {
		mcpServers = append(mcpServers, fsServer)
		log.Printf("[INFO] Filesystem MCP server connected (%s)", cfg.Research.DocsDir)
	}

	var dcServer *tool.Server
	if cfg.Keys.DataCommons != "" {
		dcServer, err = tool.StartServer(tool.DataCommonsServer(cfg.Keys.DataCommons), discoveryTTL)
		if err != nil {
			log.Printf("[WARN] Data Commons MCP server unavailable: %v", err)
			dcServer = nil
		} else {
			mcpServers = append(mcpServers, dcServer)
			log.Printf("[INFO] Data Commons MCP server connected")
		}
	}

	// 7. Research Dispatcher
	pipelineLogger := initPipelineLogger()
	dispatcher, err := dispatch.New(
		dispatch.Deps{
			Provider:       llmProvider,
			SearchProvider: searchProvider,
			Ledger:         ledger,
			Filesystem:     fsServer,
			DataCommons:    dcServer,
			Logger:         pipelineLogger,
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
		log.Fatalf("[FATAL] Failed to build research dispatcher: %v", err)
	}

	// 8. Repositories
	runRepo := memory.NewRunRepository()

	var archiveRepo contract.ResearchSessionRepository
	if db != nil {
		archiveRepo = implementation.NewResearchSessionRepository(db)
	} else {
		archiveRepo = memory.NewArchiveRepository()
		log.Printf("[INFO] No database configured; archiving sessions in memory")
	}

	// 9. NATS (optional event mirror)
	var natsPub *pkgNats.Publisher
	if cfg.App.NatsEnabled {
		natsPub, err = pkgNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
	}

	// 10. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/progress.log")
	wsHub := websocket.NewHub(wsLogger)
	go wsHub.Run()

	// 11. Services
	researchService := service.NewResearchService(
		dispatcher,
		ledger,
		runRepo,
		archiveRepo,
		pubSub,
		cfg.Research.ProgressTopic,
		sysLogger,
	)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Research.ProgressTopic,
		wsHub,
		natsPub,
	)

	// 12. Handler + Controller
	progressHandler := handler.NewProgressHandler(researchService, wsHub, wsLogger)

	return &Container{
		ResearchController: controller.NewResearchController(researchService),
		ConsumerService:    consumerService,
		ProgressHandler:    progressHandler,
		WebSocketHub:       wsHub,

		mcpServers: mcpServers,
		natsPub:    natsPub,
	}
}

// Close releases external processes and connections. Safe to call once at
// shutdown.
func (c *Container) Close() {
	for _, server := range c.mcpServers {
		server.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
}

// initPipelineLogger writes the verbose pipeline trace to its own file so the
// structured app log stays readable.
func initPipelineLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "research_pipeline.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[RESEARCH] ", log.LstdFlags)
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
