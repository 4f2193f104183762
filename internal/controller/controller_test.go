package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nana-be/internal/dto"
	"nana-be/internal/pkg/logger"
	"nana-be/internal/pkg/serverutils"
	"nana-be/internal/service"
	"nana-be/pkg/debuglog"
	"nana-be/pkg/llm/llmtest"
	"nana-be/pkg/prompt"
	"nana-be/pkg/workerpool"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const testModel = "gemini-test-model"

type testApp struct {
	app  *fiber.App
	fake *llmtest.FakeProvider
}

func newTestApp(t *testing.T, serverKey string, prod bool, results ...llmtest.Result) *testApp {
	t.Helper()
	fake := llmtest.NewFakeProvider(results...)
	log := logger.NewNopLogger()
	prompts := prompt.NewLoader("../../prompts")
	deps := service.AIDeps{
		Providers: fake.Factory(),
		Recorder:  debuglog.NopRecorder{},
		Logger:    log,
		Model:     testModel,
	}

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandlerMiddleware()})
	keyMiddleware := serverutils.APIKeyMiddleware(serverKey, prod)

	NewHealthController().RegisterRoutes(app)
	api := app.Group("/api")
	NewUploadController(
		service.NewUploadService(deps, prompts, workerpool.New(2), 50*1024*1024),
		time.Hour,
		log,
	).RegisterRoutes(api, keyMiddleware)
	NewNotesController(
		service.NewNotesService(deps, prompts),
		service.NewInlineCommandService(deps, prompts),
		service.NewEmphasisService(deps, prompts),
	).RegisterRoutes(api, keyMiddleware)
	NewDebugController(service.NewDebugService(debuglog.NopRecorder{}, nil, log)).RegisterRoutes(api)
	NewAPIKeyController(service.NewAPIKeyService(fake.Factory(), testModel, log)).RegisterRoutes(api)

	return &testApp{app: app, fake: fake}
}

func (a *testApp) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func jsonRequest(method, path string, body any, apiKey string) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(serverutils.APIKeyHeader, apiKey)
	}
	return req
}

func uploadRequest(t *testing.T, path, filename string, content []byte, profile string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	if profile != "" {
		require.NoError(t, w.WriteField("user_profile", profile))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(serverutils.APIKeyHeader, "user-key")
	return req
}

var profile = map[string]any{
	"prior_expertise": "Software Engineering",
	"math_comfort":    "Comfortable with algebra",
	"detail_level":    "Balanced",
	"primary_goal":    "Deep understanding",
}

func TestNotesEndpoint(t *testing.T) {
	a := newTestApp(t, "", true, llmtest.JSON(dto.NotesResponse{
		Markdown:       "# Transformers\n\nSelf-attention lets every token look at every other token.",
		TopicLabels:    []string{"transformer", "self-attention"},
		PageReferences: []int{2},
	}))

	resp, body := a.do(t, jsonRequest(http.MethodPost, "/api/notes", map[string]any{
		"current_page":  map[string]any{"page_number": 2, "text": "Transformers are deep learning models...", "has_images": false, "has_tables": false},
		"user_profile":  profile,
		"topic_mastery": map[string]any{},
	}, "user-key"))

	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{
		"markdown": "# Transformers\n\nSelf-attention lets every token look at every other token.",
		"topic_labels": ["transformer", "self-attention"],
		"page_references": [2]
	}`, string(body))

	require.Equal(t, 1, a.fake.CallCount())
	call := a.fake.LastCall()
	assert.Equal(t, "user-key", call.APIKey)
	assert.Equal(t, testModel, call.Options.Model)
	assert.Same(t, service.NotesResponseSchema, call.Options.Schema)
}

func TestNotesEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		serverKey  string
		prod       bool
		apiKey     string
		body       any
		wantStatus int
		wantDetail string
	}{
		{
			name:       "no key in production",
			prod:       true,
			body:       map[string]any{},
			wantStatus: http.StatusUnauthorized,
			wantDetail: "API key required. Please provide your Gemini API key.",
		},
		{
			name:       "no key in development",
			body:       map[string]any{},
			wantStatus: http.StatusInternalServerError,
			wantDetail: "GOOGLE_API_KEY not configured",
		},
		{
			name:       "missing profile fields",
			apiKey:     "k",
			body:       map[string]any{"current_page": map[string]any{"page_number": 1, "text": "x"}},
			wantStatus: http.StatusBadRequest,
			wantDetail: "user_profile.prior_expertise is required",
		},
		{
			name:       "invalid page number",
			serverKey:  "server-key",
			body:       map[string]any{"current_page": map[string]any{"page_number": 0}, "user_profile": profile},
			wantStatus: http.StatusBadRequest,
			wantDetail: "current_page.page_number must be >= 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t, tt.serverKey, tt.prod)
			resp, body := a.do(t, jsonRequest(http.MethodPost, "/api/notes", tt.body, tt.apiKey))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var eb serverutils.ErrorBody
			require.NoError(t, json.Unmarshal(body, &eb))
			assert.Equal(t, tt.wantStatus, eb.Code)
			assert.Contains(t, eb.Detail, tt.wantDetail)
			assert.Equal(t, 0, a.fake.CallCount())
		})
	}
}

func TestNotesEndpointMalformedJSON(t *testing.T) {
	a := newTestApp(t, "", false)
	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(serverutils.APIKeyHeader, "k")

	resp, body := a.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid request body")
}

func TestInlineCommandEndpoint(t *testing.T) {
	a := newTestApp(t, "", false, llmtest.JSON(map[string]string{"content": "Think of it as a lookup table."}))

	resp, body := a.do(t, jsonRequest(http.MethodPost, "/api/inline-command", map[string]any{
		"command_type":  "analogy",
		"selected_text": "attention",
		"page_number":   3,
		"page_text":     "Attention weights...",
		"user_profile":  profile,
	}, "k"))

	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"content":"Think of it as a lookup table.","command_type":"analogy"}`, string(body))

	resp, body = a.do(t, jsonRequest(http.MethodPost, "/api/inline-command", map[string]any{
		"command_type":  "translate",
		"selected_text": "attention",
		"page_number":   3,
		"user_profile":  profile,
	}, "k"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "command_type must be one of [elaborate simplify analogy]")
}

func TestIntegrateEmphasisEndpoint(t *testing.T) {
	a := newTestApp(t, "", false, llmtest.JSON(dto.NotesResponse{
		Markdown:       "## Gradients\n\n**Exam focus**",
		TopicLabels:    []string{"gradients"},
		PageReferences: []int{4},
	}))

	resp, body := a.do(t, jsonRequest(http.MethodPost, "/api/integrate-emphasis", map[string]any{
		"page_number":      4,
		"existing_notes":   "## Gradients",
		"emphasis_content": "This will be on the exam",
		"user_profile":     profile,
	}, "k"))

	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var got dto.NotesResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []int{4}, got.PageReferences)
}

func TestUploadEndpoint(t *testing.T) {
	a := newTestApp(t, "", false, llmtest.JSON(dto.ExtractionResult{Pages: []dto.PageContent{{PageNumber: 1, Text: "Intro"}}}))

	resp, body := a.do(t, uploadRequest(t, "/api/upload", "lecture.pdf", []byte("%PDF-1.7"), ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var got dto.ParsedPDF
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "lecture.pdf", got.OriginalFilename)
	assert.Equal(t, 1, got.TotalPages)
	assert.Len(t, got.ContentHash, 16)
	assert.Nil(t, got.Overview)
}

func TestUploadEndpointRejectsNonPDF(t *testing.T) {
	a := newTestApp(t, "", false)

	resp, body := a.do(t, uploadRequest(t, "/api/upload", "notes.txt", []byte("%PDF-1.7"), ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"code":400,"detail":"Only PDF files are accepted"}`, string(body))
	assert.Equal(t, 0, a.fake.CallCount())
}

func TestUploadEndpointRequiresFile(t *testing.T) {
	a := newTestApp(t, "", false)
	req := jsonRequest(http.MethodPost, "/api/upload", map[string]any{}, "k")

	resp, _ := a.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func parseSSE(t *testing.T, body []byte) []dto.UploadProgressEvent {
	t.Helper()
	var out []dto.UploadProgressEvent
	for _, frame := range strings.Split(string(body), "\n\n") {
		if !strings.HasPrefix(frame, "data: ") {
			continue
		}
		var ev dto.UploadProgressEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev))
		out = append(out, ev)
	}
	return out
}

func TestUploadStreamEndpoint(t *testing.T) {
	a := newTestApp(t, "", false, llmtest.JSON(dto.ExtractionResult{Pages: []dto.PageContent{
		{PageNumber: 1, Text: "Intro"},
		{PageNumber: 2, Text: "Details"},
	}}))

	resp, body := a.do(t, uploadRequest(t, "/api/upload-stream", "lecture.pdf", []byte("%PDF-1.7"), ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	events := parseSSE(t, body)
	steps := make([]dto.UploadStep, len(events))
	percents := make([]int, len(events))
	for i, ev := range events {
		steps[i] = ev.Step
		percents[i] = ev.ProgressPercent
	}
	assert.Equal(t, []dto.UploadStep{dto.StepValidating, dto.StepExtracting, dto.StepParsing, dto.StepComplete}, steps)
	assert.Equal(t, []int{5, 15, 75, 100}, percents)
	require.NotNil(t, events[3].Data)
	assert.Equal(t, 2, events[3].Data.TotalPages)
}

func TestUploadStreamEndpointInvalidProfile(t *testing.T) {
	a := newTestApp(t, "", false)

	resp, body := a.do(t, uploadRequest(t, "/api/upload-stream", "lecture.pdf", []byte("%PDF-1.7"), "{oops"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := parseSSE(t, body)
	require.Len(t, events, 2)
	assert.Equal(t, dto.StepError, events[1].Step)
	assert.Contains(t, events[1].Message, "Invalid user_profile")
	assert.Equal(t, 0, a.fake.CallCount())
}

func TestStreamErrorHandler(t *testing.T) {
	app := fiber.New()
	handler := StreamErrorHandler(serverutils.ErrorHandlerMiddleware())

	tests := []struct {
		name        string
		path        string
		err         error
		wantStatus  int
		wantType    string
		wantEvents  []dto.UploadStep
		wantMessage string
	}{
		{
			name:        "oversized upload stream",
			path:        "/api/upload-stream",
			err:         fiber.ErrRequestEntityTooLarge,
			wantStatus:  http.StatusOK,
			wantType:    "text/event-stream",
			wantEvents:  []dto.UploadStep{dto.StepValidating, dto.StepError},
			wantMessage: "PDF exceeds 50MB limit. Please upload a smaller file.",
		},
		{
			name:       "oversized plain upload",
			path:       "/api/upload",
			err:        fiber.ErrRequestEntityTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   fiber.MIMEApplicationJSON,
		},
		{
			name:       "other error on upload stream",
			path:       "/api/upload-stream",
			err:        fiber.ErrBadRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   fiber.MIMEApplicationJSON,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fctx := &fasthttp.RequestCtx{}
			fctx.Request.Header.SetMethod(fiber.MethodPost)
			fctx.Request.SetRequestURI(tt.path)
			c := app.AcquireCtx(fctx)
			defer app.ReleaseCtx(c)

			require.NoError(t, handler(c, tt.err))

			assert.Equal(t, tt.wantStatus, fctx.Response.StatusCode())
			assert.Contains(t, string(fctx.Response.Header.ContentType()), tt.wantType)
			if tt.wantEvents == nil {
				return
			}
			events := parseSSE(t, fctx.Response.Body())
			steps := make([]dto.UploadStep, len(events))
			for i, ev := range events {
				steps[i] = ev.Step
			}
			assert.Equal(t, tt.wantEvents, steps)
			assert.Equal(t, tt.wantMessage, events[len(events)-1].Message)
			assert.Equal(t, "no-cache", string(fctx.Response.Header.Peek("Cache-Control")))
		})
	}
}

func TestValidateKeyEndpoint(t *testing.T) {
	a := newTestApp(t, "server-key", false, llmtest.Text("pong"))

	resp, body := a.do(t, jsonRequest(http.MethodPost, "/api/validate-key", nil, ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "server key is not a fallback")
	assert.Contains(t, string(body), "X-API-Key header is required")

	resp, body = a.do(t, jsonRequest(http.MethodPost, "/api/validate-key", nil, "user-key"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"valid":true,"message":"API key is valid"}`, string(body))
	assert.Equal(t, []string{"user-key"}, a.fake.Keys())
}

func TestDebugEndpoints(t *testing.T) {
	a := newTestApp(t, "", false)

	resp, body := a.do(t, jsonRequest(http.MethodPost, "/api/debug/cache-hits", map[string]any{
		"document_name": "lecture.pdf",
		"cached_pages":  []int{1, 2},
		"total_pages":   5,
	}, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"logged":true,"message":"Logged 2 cached pages for lecture.pdf"}`, string(body))

	resp, _ = a.do(t, httptest.NewRequest(http.MethodGet, "/api/debug/logs?level=TRACE", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = a.do(t, httptest.NewRequest(http.MethodGet, "/api/debug/logs?level=ERROR&limit=10", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"code":200,"message":"Success get logs","data":[]}`, string(body))
}

func TestHealthEndpoints(t *testing.T) {
	a := newTestApp(t, "", false)

	resp, body := a.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))

	resp, body = a.do(t, httptest.NewRequest(http.MethodGet, "/test-text", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"NANA backend is running"}`, string(body))
}
