package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	flag "github.com/spf13/pflag"

	"github.com/stupiduntilnot/omnichat/internal/config"
	"github.com/stupiduntilnot/omnichat/internal/dummy"
	"github.com/stupiduntilnot/omnichat/internal/gemini"
	"github.com/stupiduntilnot/omnichat/internal/history"
	"github.com/stupiduntilnot/omnichat/internal/model"
	"github.com/stupiduntilnot/omnichat/internal/openai"
	"github.com/stupiduntilnot/omnichat/internal/orchestrator"
	"github.com/stupiduntilnot/omnichat/internal/repl"
)

func main() {
	var (
		dbPath       string
		providerName string
		modelName    string
		session      string
		memoryLimit  int
		newSession   bool
		reset        bool
	)

	flag.StringVar(&dbPath, "db", "", "SQLite database path (default OMNICHAT_DB_PATH)")
	flag.StringVar(&providerName, "provider", "", "model provider: gemini, openai or dummy (default OMNICHAT_PROVIDER)")
	flag.StringVar(&modelName, "model", "", "model name (default OMNICHAT_MODEL or provider default)")
	flag.StringVar(&session, "session", "", "conversation session key (default OMNICHAT_SESSION)")
	flag.IntVar(&memoryLimit, "memory-limit", -1, "turns of history sent as context, >= 0 (default OMNICHAT_MEMORY_LIMIT)")
	flag.BoolVar(&newSession, "new-session", false, "start a fresh session with a generated key")
	flag.BoolVar(&reset, "reset", false, "delete the session's stored history before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[omnichat] %v", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if providerName != "" {
		cfg.Provider = providerName
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if session != "" {
		cfg.Session = session
	}
	if memoryLimit >= 0 {
		cfg.MemoryLimit = memoryLimit
	}
	if newSession {
		cfg.Session = uuid.NewString()
		log.Printf("[omnichat] new session %s", cfg.Session)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[omnichat] %v", err)
	}

	store, err := history.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("[omnichat] %v", err)
	}
	defer store.Close()
	if err := store.Init(); err != nil {
		log.Fatalf("[omnichat] %v", err)
	}
	if reset {
		if err := store.Clear(cfg.Session); err != nil {
			log.Fatalf("[omnichat] %v", err)
		}
	}

	provider, err := newProvider(&cfg)
	if err != nil {
		log.Fatalf("[omnichat] %v", err)
	}

	orch := orchestrator.New(store, provider, cfg.Session, cfg.SystemPrompt, cfg.MemoryLimit)
	if err := repl.New(os.Stdin, os.Stdout, orch).Run(); err != nil {
		log.Fatalf("[omnichat] %v", err)
	}
}

func newProvider(cfg *config.Config) (model.Provider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case config.ProviderGemini:
		baseURL := cfg.GeminiBaseURL
		if baseURL == "" {
			baseURL = gemini.DefaultBaseURL
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = gemini.DefaultModel
		}
		return gemini.NewClient(cfg.GeminiAPIKey, baseURL, modelName, timeout), nil
	case config.ProviderOpenAI:
		url := cfg.OpenAIURL
		if url == "" {
			url = openai.DefaultURL
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = openai.DefaultModel
		}
		return openai.NewClient(cfg.OpenAIAPIKey, url, modelName, timeout), nil
	case config.ProviderDummy:
		return dummy.NewProvider(cfg.DummyScript)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}
