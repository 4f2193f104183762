package factory

import (
	"testing"
	"time"

	"nana-be/pkg/llm/gemini"
	"nana-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider("gemini", "k", "gemini-x", "", time.Second)
	require.NoError(t, err)
	g, ok := p.(*gemini.GeminiProvider)
	require.True(t, ok)
	assert.Equal(t, "k", g.APIKey)
	assert.Equal(t, gemini.DefaultBaseURL, g.BaseURL)

	p, err = NewLLMProvider("ollama", "", "llama3", "", time.Second)
	require.NoError(t, err)
	o, ok := p.(*ollama.OllamaProvider)
	require.True(t, ok)
	assert.Equal(t, ollama.DefaultBaseURL, o.BaseURL)

	_, err = NewLLMProvider("openai", "", "", "", time.Second)
	assert.EqualError(t, err, "unsupported LLM provider: openai")
}

func TestProviderFactoryBindsKey(t *testing.T) {
	f := NewProviderFactory("gemini", "gemini-x", "http://example.test", time.Second)
	p, err := f("per-request")
	require.NoError(t, err)
	assert.Equal(t, "per-request", p.(*gemini.GeminiProvider).APIKey)
	assert.Equal(t, "gemini-x", p.(*gemini.GeminiProvider).ModelName)
}
