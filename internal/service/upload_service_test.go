package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nana-be/internal/dto"
	"nana-be/internal/pkg/serverutils"
	"nana-be/pkg/llm"
	"nana-be/pkg/llm/llmtest"
	"nana-be/pkg/workerpool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxBytes = 50 * 1024 * 1024

var samplePDF = []byte("%PDF-1.7 sample")

func extractionResult() llmtest.Result {
	return llmtest.JSON(dto.ExtractionResult{Pages: []dto.PageContent{
		{PageNumber: 1, Text: "Intro", HasImages: true},
		{PageNumber: 2, Text: "Details", HasTables: true},
	}})
}

const profileJSON = `{"prior_expertise":"Novice","math_comfort":"No equations","detail_level":"Concise","primary_goal":"Exam prep"}`

type recordedStream struct {
	mu     sync.Mutex
	events []dto.UploadProgressEvent
	failAt dto.UploadStep
}

func (r *recordedStream) emit(ev dto.UploadProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAt != "" && ev.Step == r.failAt {
		return errors.New("client gone")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordedStream) steps() []dto.UploadStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dto.UploadStep, len(r.events))
	for i, e := range r.events {
		out[i] = e.Step
	}
	return out
}

func (r *recordedStream) last() dto.UploadProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newUploadService(env *testEnv) IUploadService {
	return NewUploadService(env.deps, env.prompts, workerpool.New(2), testMaxBytes)
}

func TestProcessStreamWithoutProfile(t *testing.T) {
	env := newTestEnv(t, extractionResult())
	svc := newUploadService(env)
	rec := &recordedStream{}

	svc.ProcessStream(context.Background(), "k", &dto.UploadFile{Filename: "Lecture.PDF", Content: samplePDF}, "", rec.emit)

	assert.Equal(t, []dto.UploadStep{
		dto.StepValidating, dto.StepExtracting, dto.StepParsing, dto.StepComplete,
	}, rec.steps())
	assert.NotContains(t, rec.steps(), dto.StepGeneratingOverview)

	done := rec.last()
	assert.Equal(t, 100, done.ProgressPercent)
	assert.Equal(t, "Upload complete!", done.Message)
	require.NotNil(t, done.Data)
	assert.Equal(t, 2, done.Data.TotalPages)
	assert.Equal(t, "Lecture.PDF", done.Data.OriginalFilename)
	assert.Equal(t, "20250506_070809", done.Data.SessionId)
	assert.Len(t, done.Data.ContentHash, 16)
	assert.Nil(t, done.Data.Overview)

	for _, ev := range rec.events[:len(rec.events)-1] {
		assert.Nil(t, ev.Data, "only the complete event carries data")
	}

	call := env.fake.LastCall()
	require.Len(t, call.Parts, 2)
	assert.True(t, call.Parts[0].IsBlob())
	assert.Equal(t, "application/pdf", call.Parts[0].MimeType)
	assert.Contains(t, call.Parts[1].Text, "Extract ALL pages.")
	assert.Same(t, ExtractionSchema, call.Options.Schema)
	assert.Contains(t, env.publisher.types(), "UPLOAD_COMPLETED")
}

func TestProcessStreamWithProfileGeneratesOverview(t *testing.T) {
	env := newTestEnv(t, extractionResult(), llmtest.JSON(dto.DocumentOverview{
		Content: "```\nIntro -> Details\n```", VisualizationType: "outline", DocumentType: "presentation",
	}))
	svc := newUploadService(env)
	rec := &recordedStream{}

	svc.ProcessStream(context.Background(), "k", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, profileJSON, rec.emit)

	assert.Equal(t, []dto.UploadStep{
		dto.StepValidating, dto.StepExtracting, dto.StepParsing, dto.StepGeneratingOverview, dto.StepComplete,
	}, rec.steps())
	require.NotNil(t, rec.last().Data.Overview)
	assert.Equal(t, "outline", rec.last().Data.Overview.VisualizationType)

	overviewPrompt := env.fake.LastCall().Parts[0].Text
	assert.Contains(t, overviewPrompt, "--- Page 1 ---\nIntro\n\n--- Page 2 ---\nDetails")
	assert.Contains(t, overviewPrompt, "None provided")
}

func TestProcessStreamOverviewFailureStillCompletes(t *testing.T) {
	env := newTestEnv(t, extractionResult(), llmtest.Fail(llm.NewServiceError(500, "boom", nil)))
	svc := newUploadService(env)
	rec := &recordedStream{}

	svc.ProcessStream(context.Background(), "k", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, profileJSON, rec.emit)

	assert.Equal(t, dto.StepComplete, rec.last().Step)
	assert.Contains(t, rec.steps(), dto.StepGeneratingOverview)
	assert.Nil(t, rec.last().Data.Overview)
}

func TestProcessStreamValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		file    *dto.UploadFile
		profile string
		wantMsg string
	}{
		{"not a pdf", &dto.UploadFile{Filename: "notes.docx", Content: samplePDF}, "", "Only PDF files are accepted"},
		{"pdf bytes with wrong name", &dto.UploadFile{Filename: "scan.pdf.txt", Content: samplePDF}, "", "Only PDF files are accepted"},
		{"too large", &dto.UploadFile{Filename: "big.pdf", Content: make([]byte, testMaxBytes+1)}, "", "PDF exceeds 50MB limit. Please upload a smaller file."},
		{"malformed profile", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, "{not json", "Invalid user_profile: "},
		{"incomplete profile", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, `{"prior_expertise":"Novice"}`, "Invalid user_profile: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, extractionResult())
			svc := newUploadService(env)
			rec := &recordedStream{}

			svc.ProcessStream(context.Background(), "k", tt.file, tt.profile, rec.emit)

			assert.Equal(t, []dto.UploadStep{dto.StepValidating, dto.StepError}, rec.steps())
			assert.Contains(t, rec.last().Message, tt.wantMsg)
			assert.Equal(t, 0, rec.last().ProgressPercent)
			assert.Equal(t, 0, env.fake.CallCount(), "no AI call before validation passes")
			assert.Equal(t, []string{"UPLOAD_FAILED"}, env.publisher.types())
		})
	}
}

func TestProcessStreamExtractionFailure(t *testing.T) {
	env := newTestEnv(t, llmtest.Fail(llm.NewServiceError(429, "RESOURCE_EXHAUSTED: quota", nil)))
	svc := newUploadService(env)
	rec := &recordedStream{}

	svc.ProcessStream(context.Background(), "k", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, profileJSON, rec.emit)

	assert.Equal(t, []dto.UploadStep{dto.StepValidating, dto.StepExtracting, dto.StepError}, rec.steps())
	assert.Equal(t, "Gemini API error: RESOURCE_EXHAUSTED: quota", rec.last().Message)
	assert.Equal(t, 1, env.fake.CallCount(), "no retry")
}

func TestProcessStreamParseFailure(t *testing.T) {
	env := newTestEnv(t, llmtest.Text(`{"pages":"nope"}`))
	svc := newUploadService(env)
	rec := &recordedStream{}

	svc.ProcessStream(context.Background(), "k", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, "", rec.emit)

	assert.Equal(t, []dto.UploadStep{dto.StepValidating, dto.StepExtracting, dto.StepParsing, dto.StepError}, rec.steps())
	assert.Contains(t, rec.last().Message, "Failed to parse Gemini response: ")
}

func TestProcessStreamRejectsNonPositivePageNumbers(t *testing.T) {
	tests := []struct {
		name       string
		pageNumber int
	}{
		{"zero", 0},
		{"negative", -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, llmtest.JSON(dto.ExtractionResult{Pages: []dto.PageContent{
				{PageNumber: 1, Text: "Intro"},
				{PageNumber: tt.pageNumber, Text: "Broken"},
			}}))
			svc := newUploadService(env)
			rec := &recordedStream{}

			svc.ProcessStream(context.Background(), "k", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, "", rec.emit)

			assert.Equal(t, []dto.UploadStep{dto.StepValidating, dto.StepExtracting, dto.StepParsing, dto.StepError}, rec.steps())
			assert.Contains(t, rec.last().Message, "Failed to parse Gemini response: ")
			assert.Contains(t, rec.last().Message, "PageNumber must be >= 1")
			assert.Nil(t, rec.last().Data)
		})
	}
}

func TestProcessStreamStopsWhenClientGone(t *testing.T) {
	env := newTestEnv(t, extractionResult())
	svc := newUploadService(env)
	rec := &recordedStream{failAt: dto.StepExtracting}

	svc.ProcessStream(context.Background(), "k", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, profileJSON, rec.emit)

	assert.Equal(t, []dto.UploadStep{dto.StepValidating}, rec.steps())
	assert.Equal(t, 0, env.fake.CallCount())
}

func TestProcessStreamCancelDuringExtraction(t *testing.T) {
	env := newTestEnv(t)
	started := make(chan struct{})
	env.fake.Handler = func(ctx context.Context, parts []llm.Part, opts *llm.Options) (*llm.Response, error) {
		close(started)
		<-ctx.Done()
		return nil, llm.NewServiceError(0, "", ctx.Err())
	}
	svc := newUploadService(env)
	rec := &recordedStream{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.ProcessStream(ctx, "k", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, profileJSON, rec.emit)
	}()

	<-started
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}

	assert.Equal(t, []dto.UploadStep{dto.StepValidating, dto.StepExtracting}, rec.steps())
	assert.Equal(t, 1, env.fake.CallCount(), "later stages never start")
}

func TestProcess(t *testing.T) {
	env := newTestEnv(t, extractionResult())
	svc := newUploadService(env)

	got, err := svc.Process(context.Background(), "k", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF})
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalPages)
	assert.Nil(t, got.Overview)
	assert.Equal(t, 1, env.fake.CallCount())
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name       string
		file       *dto.UploadFile
		result     llmtest.Result
		wantStatus int
	}{
		{"bad name", &dto.UploadFile{Filename: "a.png", Content: samplePDF}, extractionResult(), 400},
		{"rejected key", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, llmtest.Fail(llm.NewServiceError(403, "forbidden", nil)), 401},
		{"service error", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, llmtest.Fail(llm.NewServiceError(500, "down", nil)), 500},
		{"parse error", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, llmtest.Text("not json"), 500},
		{"page number zero", &dto.UploadFile{Filename: "a.pdf", Content: samplePDF}, llmtest.JSON(dto.ExtractionResult{Pages: []dto.PageContent{{PageNumber: 0, Text: "x"}}}), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.result)
			_, err := newUploadService(env).Process(context.Background(), "k", tt.file)
			var appErr *serverutils.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantStatus, appErr.Code)
		})
	}
}
