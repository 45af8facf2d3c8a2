package config

import (
	"fmt"
	"os"
	"strconv"
)

// Provider names accepted by OMNICHAT_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderDummy  = "dummy"
)

// DefaultSystemPrompt asks the model for the JSON reply envelope so output
// survives models that wrap answers in prose or code fences.
const DefaultSystemPrompt = "You are a helpful assistant. " +
	"Always respond with valid JSON of the form {\"type\": \"reply\", \"text\": \"your answer here\"}."

// Config holds configuration for the chat process.
type Config struct {
	Provider       string
	GeminiAPIKey   string
	GeminiBaseURL  string
	OpenAIAPIKey   string
	OpenAIURL      string
	Model          string
	DBPath         string
	MemoryLimit    int
	Session        string
	SystemPrompt   string
	TimeoutSeconds int
	DummyScript    string
}

// Load reads configuration from environment variables. Flag overrides may be
// applied afterwards; call Validate before using the result.
func Load() (Config, error) {
	memoryLimit := envIntOrDefault("OMNICHAT_MEMORY_LIMIT", 10)
	if memoryLimit < 0 {
		return Config{}, fmt.Errorf("OMNICHAT_MEMORY_LIMIT must be >= 0, got %d", memoryLimit)
	}

	return Config{
		Provider:       envOrDefault("OMNICHAT_PROVIDER", ProviderGemini),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:  os.Getenv("GEMINI_BASE_URL"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIURL:      os.Getenv("OPENAI_CHAT_COMPLETIONS_URL"),
		Model:          os.Getenv("OMNICHAT_MODEL"),
		DBPath:         envOrDefault("OMNICHAT_DB_PATH", "chat_history.db"),
		MemoryLimit:    memoryLimit,
		Session:        envOrDefault("OMNICHAT_SESSION", "default"),
		SystemPrompt:   envOrDefault("OMNICHAT_SYSTEM_PROMPT", DefaultSystemPrompt),
		TimeoutSeconds: envIntOrDefault("OMNICHAT_TIMEOUT_SECONDS", 60),
		DummyScript:    envOrDefault("OMNICHAT_DUMMY_SCRIPT", "ok"),
	}, nil
}

// Validate checks that the selected provider is known and that its API key is
// present. A missing credential is a startup error.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required in environment when provider is gemini")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required in environment when provider is openai")
		}
	case ProviderDummy:
	default:
		return fmt.Errorf("unsupported model provider: %s", c.Provider)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
