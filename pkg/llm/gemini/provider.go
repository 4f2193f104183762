package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nana-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiProvider struct {
	APIKey    string
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure GeminiProvider implements LLMProvider
var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(apiKey, baseURL, modelName string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeminiProvider{
		APIKey:    apiKey,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64    `json:"temperature,omitempty"`
	MaxOutputTokens  int         `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string      `json:"responseMimeType,omitempty"`
	ResponseSchema   *llm.Schema `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      *geminiContent `json:"content"`
	FinishReason string         `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata"`
	ModelVersion  string            `json:"modelVersion"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// --- Interface Implementation ---

func (g *GeminiProvider) Generate(ctx context.Context, parts []llm.Part, opts ...llm.Option) (*llm.Response, error) {
	options := llm.ApplyOptions(opts...)

	model := g.ModelName
	if options.Model != "" {
		model = options.Model
	}

	ctx, span := otel.Tracer("nana-be/gemini").Start(ctx, "gemini.generateContent")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.parts", len(parts)),
	)

	payload := buildRequest(parts, options)
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, llm.NewServiceError(0, "", fmt.Errorf("marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, llm.NewServiceError(0, "", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, recordErr(span, llm.NewServiceError(0, "", err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, recordErr(span, llm.NewServiceError(resp.StatusCode, "", fmt.Errorf("read response: %w", err)))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, recordErr(span, llm.NewServiceError(resp.StatusCode, errorMessage(resp.StatusCode, bodyBytes), nil))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(bodyBytes, &geminiResp); err != nil {
		return nil, recordErr(span, llm.NewServiceError(resp.StatusCode, "", fmt.Errorf("unmarshal response: %w", err)))
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, recordErr(span, llm.NewServiceError(resp.StatusCode, "Gemini returned no candidates", nil))
	}

	// A candidate cut off by maxOutputTokens may carry no content at all.
	var text strings.Builder
	if content := geminiResp.Candidates[0].Content; content != nil {
		for _, p := range content.Parts {
			text.WriteString(p.Text)
		}
	}

	out := &llm.Response{Text: text.String(), Model: model}
	if u := geminiResp.UsageMetadata; u != nil {
		out.Usage = &llm.Usage{
			PromptTokens:    u.PromptTokenCount,
			CandidateTokens: u.CandidatesTokenCount,
			TotalTokens:     u.TotalTokenCount,
		}
		span.SetAttributes(attribute.Int("llm.tokens.total", u.TotalTokenCount))
	}
	return out, nil
}

func buildRequest(parts []llm.Part, options *llm.Options) geminiRequest {
	gParts := make([]geminiPart, 0, len(parts))
	for _, p := range parts {
		if p.IsBlob() {
			gParts = append(gParts, geminiPart{InlineData: &geminiInlineData{
				MimeType: p.MimeType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		gParts = append(gParts, geminiPart{Text: p.Text})
	}

	cfg := &geminiGenerationConfig{
		Temperature:     options.Temperature,
		MaxOutputTokens: options.MaxTokens,
	}
	if options.Schema != nil {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseSchema = options.Schema
	}

	return geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: gParts}},
		GenerationConfig: cfg,
	}
}

func errorMessage(status int, body []byte) string {
	var eb geminiErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		if eb.Error.Status != "" {
			return fmt.Sprintf("%s: %s", eb.Error.Status, eb.Error.Message)
		}
		return eb.Error.Message
	}
	return fmt.Sprintf("status %d, body: %s", status, strings.TrimSpace(string(body)))
}

func recordErr(span trace.Span, err *llm.ServiceError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("llm.error_kind", string(err.Kind)))
	return err
}
