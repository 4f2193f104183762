package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"nana-be/internal/pkg/logger"
	"nana-be/pkg/debuglog"
	"nana-be/pkg/events"
	"nana-be/pkg/llm/llmtest"
	"nana-be/pkg/prompt"
)

const testModel = "gemini-test-model"

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, payload []byte) error { return nil }

func (p *fakePublisher) PublishEvent(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type testEnv struct {
	fake      *llmtest.FakeProvider
	publisher *fakePublisher
	deps      AIDeps
	prompts   *prompt.Loader
	debugDir  string
}

func newTestEnv(t *testing.T, results ...llmtest.Result) *testEnv {
	t.Helper()
	fake := llmtest.NewFakeProvider(results...)
	pub := &fakePublisher{}
	dir := t.TempDir()
	rec, err := debuglog.NewFileRecorder(dir, logger.NewNopLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	clock := time.Date(2025, 5, 6, 7, 8, 9, 0, time.Local)
	return &testEnv{
		fake:      fake,
		publisher: pub,
		prompts:   prompt.NewLoader("../../prompts"),
		debugDir:  dir,
		deps: AIDeps{
			Providers: fake.Factory(),
			Recorder:  rec,
			Publisher: pub,
			Logger:    logger.NewNopLogger(),
			Model:     testModel,
			Now:       func() time.Time { return clock },
		},
	}
}

func strPtr(s string) *string { return &s }
