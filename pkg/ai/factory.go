package ai

import (
	"fmt"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "openai", "ollama" or "auto"

	// OpenAI config
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Ollama config, read on every call so the settings API can change it
	GetOllamaBaseURL func() string
	GetOllamaModel   func() string
}

// NewService creates a Service based on the config.
// This is the factory function - switch AI provider by changing cfg.Provider
func NewService(cfg Config) (Service, error) {
	ollama := func() *OllamaService {
		if cfg.GetOllamaBaseURL == nil || cfg.GetOllamaModel == nil {
			return NewOllamaService("", "")
		}
		return NewOllamaServiceWithGetters(cfg.GetOllamaBaseURL, cfg.GetOllamaModel)
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil

	case ProviderOllama:
		return ollama(), nil

	case ProviderAuto, "":
		// Both when a key is present, so either can cover for the other
		if cfg.OpenAIAPIKey != "" {
			return NewFallbackService(NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), ollama()), nil
		}
		return ollama(), nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
