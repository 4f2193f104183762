package llm

import (
	"context"
)

// Part is one ordered segment of a request: either text or a binary blob.
type Part struct {
	Text     string
	Data     []byte
	MimeType string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func BlobPart(data []byte, mimeType string) Part {
	return Part{Data: data, MimeType: mimeType}
}

func (p Part) IsBlob() bool {
	return p.Data != nil
}

// Usage is the token accounting reported by the service, when it reports any.
type Usage struct {
	PromptTokens    int `json:"prompt_tokens"`
	CandidateTokens int `json:"candidate_tokens"`
	TotalTokens     int `json:"total_tokens"`
}

type Response struct {
	Text  string
	Model string
	Usage *Usage
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature *float64
	MaxTokens   int
	Model       string  // Override default model
	Schema      *Schema // Structured output contract
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = &temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithSchema asks the service for JSON output conforming to schema.
func WithSchema(schema *Schema) Option {
	return func(o *Options) {
		o.Schema = schema
	}
}

func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LLMProvider defines the contract for any generative backend.
type LLMProvider interface {
	// Generate sends the parts as a single user turn and returns the raw result.
	// Any transport or service failure is returned as *ServiceError.
	Generate(ctx context.Context, parts []Part, options ...Option) (*Response, error)
}
