// Package llmtest provides an in-memory LLMProvider for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"sync"

	"nana-be/pkg/llm"
)

type Call struct {
	APIKey  string
	Parts   []llm.Part
	Options *llm.Options
}

// Result is one scripted outcome. Err takes precedence over Response.
type Result struct {
	Response *llm.Response
	Err      error
}

// FakeProvider replays queued results in order. Once the queue is empty it
// falls back to Handler, then to an empty JSON object.
type FakeProvider struct {
	mu      sync.Mutex
	apiKey  string
	calls   []Call
	queue   []Result
	keys    []string
	Handler func(ctx context.Context, parts []llm.Part, opts *llm.Options) (*llm.Response, error)
}

var _ llm.LLMProvider = &FakeProvider{}

func NewFakeProvider(results ...Result) *FakeProvider {
	return &FakeProvider{queue: results}
}

func (f *FakeProvider) Queue(results ...Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, results...)
}

func (f *FakeProvider) Generate(ctx context.Context, parts []llm.Part, opts ...llm.Option) (*llm.Response, error) {
	options := llm.ApplyOptions(opts...)

	f.mu.Lock()
	f.calls = append(f.calls, Call{APIKey: f.apiKey, Parts: parts, Options: options})
	var next *Result
	if len(f.queue) > 0 {
		r := f.queue[0]
		f.queue = f.queue[1:]
		next = &r
	}
	handler := f.Handler
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, llm.NewServiceError(0, "", err)
	}
	if next != nil {
		if next.Err != nil {
			return nil, next.Err
		}
		return withModel(next.Response, options), nil
	}
	if handler != nil {
		return handler(ctx, parts, options)
	}
	return withModel(&llm.Response{Text: "{}"}, options), nil
}

func withModel(resp *llm.Response, options *llm.Options) *llm.Response {
	out := *resp
	if out.Model == "" {
		out.Model = options.Model
	}
	return &out
}

func (f *FakeProvider) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeProvider) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *FakeProvider) LastCall() Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return Call{}
	}
	return f.calls[len(f.calls)-1]
}

// Keys lists the credentials handed to Factory, in order.
func (f *FakeProvider) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// Factory returns a ProviderFactory-compatible func that always yields f.
func (f *FakeProvider) Factory() func(apiKey string) (llm.LLMProvider, error) {
	return func(apiKey string) (llm.LLMProvider, error) {
		f.mu.Lock()
		f.keys = append(f.keys, apiKey)
		f.apiKey = apiKey
		f.mu.Unlock()
		return f, nil
	}
}

// JSON wraps v as a successful response with token usage.
func JSON(v any) Result {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Result{Response: &llm.Response{
		Text:  string(b),
		Usage: &llm.Usage{PromptTokens: 10, CandidateTokens: 5, TotalTokens: 15},
	}}
}

func Text(s string) Result {
	return Result{Response: &llm.Response{Text: s}}
}

func Fail(err error) Result {
	return Result{Err: err}
}
