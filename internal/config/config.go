package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Research ResearchConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	NatsEnabled        bool
}

type DatabaseConfig struct {
	// Connection string for the session archive. Empty keeps the
	// in-memory repository.
	Connection string
}

type APIKeys struct {
	Tavily      string
	OpenAI      string
	DataCommons string
	// APISecret guards the HTTP surface when set. Empty disables auth.
	APISecret string
}

type AIConfig struct {
	LLMProvider          string // "openai" or "ollama"
	OpenAIBaseURL        string
	OllamaBaseURL        string
	ResearchModel        string // reasoning model driving the loop
	CompressionModel     string // larger-context model for the final synthesis
	SummarizationModel   string
	ScopingModel         string
	CompressionMaxTokens int
}

type ResearchConfig struct {
	// TurnCap bounds the transcript length for bounded-policy modes.
	TurnCap int
	// CompletionPhrases is a comma-separated list; any phrase appearing in
	// the last assistant text forces compression.
	CompletionPhrases string
	MaxSearchResults  int
	// DocsDir is the root handed to the filesystem tool server.
	DocsDir string
	// PricingPath optionally overrides the built-in price table (JSON).
	PricingPath string
	// ToolCacheTTLSeconds controls how long discovered tool lists are reused.
	ToolCacheTTLSeconds int
	ProgressTopic       string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "research.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			NatsEnabled:        getEnvAsBool("NATS_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			Tavily:      getEnv("TAVILY_API_KEY", ""),
			OpenAI:      getEnv("OPENAI_API_KEY", ""),
			DataCommons: getEnv("DC_API_KEY", ""),
			APISecret:   getEnv("RESEARCH_API_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:          getEnv("LLM_PROVIDER", "openai"),
			OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			ResearchModel:        getEnv("RESEARCH_MODEL", "openai:gpt-4o"),
			CompressionModel:     getEnv("COMPRESSION_MODEL", "openai:gpt-4.1"),
			SummarizationModel:   getEnv("SUMMARIZATION_MODEL", "openai:gpt-4o-mini"),
			ScopingModel:         getEnv("SCOPING_MODEL", "openai:gpt-4o-mini"),
			CompressionMaxTokens: getEnvAsInt("COMPRESSION_MAX_TOKENS", 32000),
		},
		Research: ResearchConfig{
			TurnCap: getEnvAsInt("RESEARCH_TURN_CAP", 10),
			CompletionPhrases: getEnv("RESEARCH_COMPLETION_PHRASES",
				"research complete,analysis finished,investigation concluded,no more information needed,comprehensive overview provided"),
			MaxSearchResults:    getEnvAsInt("RESEARCH_MAX_SEARCH_RESULTS", 3),
			DocsDir:             getEnv("RESEARCH_DOCS_DIR", "./files"),
			PricingPath:         getEnv("PRICING_PATH", ""),
			ToolCacheTTLSeconds: getEnvAsInt("TOOL_CACHE_TTL_SECONDS", 300),
			ProgressTopic:       getEnv("RESEARCH_PROGRESS_TOPIC", "RESEARCH_PROGRESS"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
