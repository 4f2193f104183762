package factory

import (
	"fmt"
	"time"

	"nana-be/pkg/llm"
	"nana-be/pkg/llm/gemini"
	"nana-be/pkg/llm/ollama"
)

// ProviderFactory builds a provider bound to one request's credential.
type ProviderFactory func(apiKey string) (llm.LLMProvider, error)

func NewLLMProvider(providerType, apiKey, modelName, baseURL string, timeout time.Duration) (llm.LLMProvider, error) {
	switch providerType {
	case "", "gemini":
		return gemini.NewGeminiProvider(apiKey, baseURL, modelName, timeout), nil
	case "ollama":
		return ollama.NewOllamaProvider(baseURL, modelName, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// NewProviderFactory fixes everything except the credential.
func NewProviderFactory(providerType, modelName, baseURL string, timeout time.Duration) ProviderFactory {
	return func(apiKey string) (llm.LLMProvider, error) {
		return NewLLMProvider(providerType, apiKey, modelName, baseURL, timeout)
	}
}
