package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nana-be/pkg/llm"
)

const DefaultBaseURL = "http://localhost:11434"

// OllamaProvider talks to a local Ollama server. It is text-only: requests
// carrying binary parts are rejected before any network call.
type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   map[string]any  `json:"format,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) Generate(ctx context.Context, parts []llm.Part, opts ...llm.Option) (*llm.Response, error) {
	options := llm.ApplyOptions(opts...)

	var prompt strings.Builder
	for i, p := range parts {
		if p.IsBlob() {
			return nil, llm.NewServiceError(0, fmt.Sprintf("ollama does not accept %s attachments", p.MimeType), nil)
		}
		if i > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(p.Text)
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	reqPayload := ollamaChatRequest{
		Model:    model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt.String()}},
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
		},
	}
	if options.Schema != nil {
		reqPayload.Format = options.Schema.JSONSchema()
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, llm.NewServiceError(0, "", fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/chat", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, llm.NewServiceError(0, "", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, llm.NewServiceError(0, "", fmt.Errorf("ollama request failed: %w", err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewServiceError(resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, llm.NewServiceError(resp.StatusCode,
			fmt.Sprintf("ollama error: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))), nil)
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return nil, llm.NewServiceError(resp.StatusCode, "", fmt.Errorf("unmarshal response: %w", err))
	}

	return &llm.Response{
		Text:  ollamaResp.Message.Content,
		Model: model,
		Usage: &llm.Usage{
			PromptTokens:    ollamaResp.PromptEvalCount,
			CandidateTokens: ollamaResp.EvalCount,
			TotalTokens:     ollamaResp.PromptEvalCount + ollamaResp.EvalCount,
		},
	}, nil
}
