package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nana-be/internal/constant"
	"nana-be/internal/dto"
	"nana-be/internal/pkg/serverutils"
	"nana-be/pkg/events"
	"nana-be/pkg/llm"
	"nana-be/pkg/prompt"
	"nana-be/pkg/workerpool"
)

// ProgressEmitter delivers one progress event to the client. A non-nil error
// means the client is gone and the pipeline must stop.
type ProgressEmitter func(event dto.UploadProgressEvent) error

type IUploadService interface {
	// ProcessStream runs validate, extract, parse, optional overview and
	// complete, reporting each stage through emit. Fatal problems end the
	// stream with a single error event.
	ProcessStream(ctx context.Context, apiKey string, file *dto.UploadFile, rawProfile string, emit ProgressEmitter)
	// Process is the non-streaming variant without the overview stage.
	Process(ctx context.Context, apiKey string, file *dto.UploadFile) (*dto.ParsedPDF, error)
}

type uploadService struct {
	ai       *aiCaller
	prompts  *prompt.Loader
	pool     *workerpool.Pool
	maxBytes int64
}

func NewUploadService(deps AIDeps, prompts *prompt.Loader, pool *workerpool.Pool, maxBytes int64) IUploadService {
	return &uploadService{
		ai:       newAICaller(deps),
		prompts:  prompts,
		pool:     pool,
		maxBytes: maxBytes,
	}
}

// stageError is a fatal pipeline failure. message is client-facing.
type stageError struct {
	step    dto.UploadStep
	message string
	err     error
}

func (e *stageError) Error() string { return e.message }

func (e *stageError) Unwrap() error { return e.err }

func (s *uploadService) ProcessStream(ctx context.Context, apiKey string, file *dto.UploadFile, rawProfile string, emit ProgressEmitter) {
	send := func(step dto.UploadStep, message string, data *dto.ParsedPDF) bool {
		if ctx.Err() != nil {
			return false
		}
		err := emit(dto.UploadProgressEvent{
			Step:            step,
			Message:         message,
			ProgressPercent: step.Percent(),
			Data:            data,
		})
		return err == nil
	}
	fail := func(se *stageError, sessionID string) {
		s.publishFailed(ctx, sessionID, file.Filename, se)
		send(dto.StepError, se.message, nil)
	}

	if !send(dto.StepValidating, constant.MsgValidating, nil) {
		return
	}
	if se := s.validate(file); se != nil {
		fail(se, "")
		return
	}
	profile, se := parseProfile(rawProfile)
	if se != nil {
		fail(se, "")
		return
	}

	session := s.newSession(file)

	if !send(dto.StepExtracting, constant.MsgExtracting, nil) {
		return
	}
	pages, err := s.extract(ctx, apiKey, file, session)
	if err != nil {
		if ctx.Err() != nil {
			s.logDisconnect(session, dto.StepExtracting)
			return
		}
		var se *stageError
		if !errors.As(err, &se) {
			se = &stageError{step: dto.StepExtracting, message: err.Error(), err: err}
		}
		if se.step == dto.StepParsing && !send(dto.StepParsing, constant.MsgParsing, nil) {
			return
		}
		fail(se, session.SessionId)
		return
	}

	if !send(dto.StepParsing, constant.MsgParsing, nil) {
		return
	}
	session.Pages = pages
	session.TotalPages = len(pages)

	if profile != nil {
		if !send(dto.StepGeneratingOverview, constant.MsgGeneratingOverview, nil) {
			return
		}
		session.Overview = s.overview(ctx, apiKey, profile, session)
		if ctx.Err() != nil {
			s.logDisconnect(session, dto.StepGeneratingOverview)
			return
		}
	}

	s.publishCompleted(ctx, session)
	send(dto.StepComplete, constant.MsgComplete, session)
}

func (s *uploadService) Process(ctx context.Context, apiKey string, file *dto.UploadFile) (*dto.ParsedPDF, error) {
	if se := s.validate(file); se != nil {
		s.publishFailed(ctx, "", file.Filename, se)
		return nil, serverutils.BadRequest(se.message, se.err)
	}

	session := s.newSession(file)
	pages, err := s.extract(ctx, apiKey, file, session)
	if err != nil {
		var se *stageError
		if !errors.As(err, &se) {
			return nil, toHTTPError(err)
		}
		s.publishFailed(ctx, session.SessionId, file.Filename, se)
		if se.step == dto.StepParsing {
			return nil, serverutils.Internal(se.message, se.err)
		}
		if svc, ok := llm.AsServiceError(se.err); ok && svc.Kind == llm.KindInvalidKey {
			return nil, serverutils.Unauthorized(se.message, se.err)
		}
		return nil, serverutils.Internal(se.message, se.err)
	}

	session.Pages = pages
	session.TotalPages = len(pages)
	s.publishCompleted(ctx, session)
	return session, nil
}

func (s *uploadService) validate(file *dto.UploadFile) *stageError {
	if file == nil || !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return &stageError{step: dto.StepValidating, message: constant.ErrMsgNotPDF}
	}
	if int64(len(file.Content)) > s.maxBytes {
		return &stageError{step: dto.StepValidating, message: constant.ErrMsgTooLarge}
	}
	return nil
}

// parseProfile returns nil, nil when no profile was sent.
func parseProfile(raw string) (*dto.UserProfile, *stageError) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var p dto.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, &stageError{step: dto.StepValidating, message: fmt.Sprintf(constant.ErrMsgInvalidProfile, err.Error()), err: err}
	}
	if err := serverutils.ValidateRequest(p); err != nil {
		return nil, &stageError{step: dto.StepValidating, message: fmt.Sprintf(constant.ErrMsgInvalidProfile, err.Error()), err: err}
	}
	return &p, nil
}

func (s *uploadService) newSession(file *dto.UploadFile) *dto.ParsedPDF {
	sum := sha256.Sum256(file.Content)
	return &dto.ParsedPDF{
		OriginalFilename: file.Filename,
		Pages:            []dto.PageContent{},
		SessionId:        s.ai.now().Format("20060102_150405"),
		ContentHash:      hex.EncodeToString(sum[:])[:16],
	}
}

// extract runs the extraction call on the worker pool. A schema mismatch is
// reported as a parsing-stage failure; everything else as an AI failure.
func (s *uploadService) extract(ctx context.Context, apiKey string, file *dto.UploadFile, session *dto.ParsedPDF) ([]dto.PageContent, error) {
	provider, err := s.ai.provider(apiKey)
	if err != nil {
		return nil, err
	}

	start := s.ai.now()
	res, err := workerpool.Submit(ctx, s.pool, func(ctx context.Context) (dto.ExtractionResult, error) {
		var out dto.ExtractionResult
		err := s.ai.call(ctx, provider, aiRequest{
			name:      "pdf_extraction",
			sessionID: session.SessionId,
			parts: []llm.Part{
				llm.BlobPart(file.Content, constant.PDFMimeType),
				llm.TextPart(constant.ExtractionPrompt),
			},
			schema: ExtractionSchema,
		}, &out)
		return out, err
	})
	if err == nil {
		if err := serverutils.ValidateRequest(res); err != nil {
			return nil, &stageError{step: dto.StepParsing, message: fmt.Sprintf(constant.ErrMsgParse, err.Error()), err: err}
		}
		if res.Pages == nil {
			res.Pages = []dto.PageContent{}
		}
		return res.Pages, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, llm.ErrSchemaMismatch) {
		return nil, &stageError{step: dto.StepParsing, message: fmt.Sprintf(constant.ErrMsgParse, err.Error()), err: err}
	}

	s.ai.logger.Error("UPLOAD", "PDF extraction failed", map[string]interface{}{
		"file":        file.Filename,
		"size_mb":     fmt.Sprintf("%.2f", float64(len(file.Content))/(1024*1024)),
		"session":     session.SessionId,
		"duration_ms": s.ai.now().Sub(start).Milliseconds(),
		"error":       err.Error(),
	})
	return nil, &stageError{step: dto.StepExtracting, message: fmt.Sprintf(constant.ErrMsgGemini, err.Error()), err: err}
}

// overview is best-effort: any failure yields nil.
func (s *uploadService) overview(ctx context.Context, apiKey string, profile *dto.UserProfile, session *dto.ParsedPDF) *dto.DocumentOverview {
	pageTexts := make([]string, 0, len(session.Pages))
	for _, p := range session.Pages {
		pageTexts = append(pageTexts, formatPage(p))
	}
	values := profileValues(*profile)
	values["additional_context"] = derefOr(profile.AdditionalContext, constant.OverviewNoContext)
	values["document_text"] = strings.Join(pageTexts, "\n\n")

	filled, err := s.prompts.Fill(constant.PromptDocumentOverview, values)
	if err != nil {
		s.warnOverview(session, err)
		return nil
	}
	provider, err := s.ai.provider(apiKey)
	if err != nil {
		s.warnOverview(session, err)
		return nil
	}

	res, err := workerpool.Submit(ctx, s.pool, func(ctx context.Context) (*dto.DocumentOverview, error) {
		var out dto.DocumentOverview
		if err := s.ai.call(ctx, provider, aiRequest{
			name:      "document_overview",
			sessionID: session.SessionId,
			parts:     []llm.Part{llm.TextPart(filled)},
			schema:    DocumentOverviewSchema,
		}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		s.warnOverview(session, err)
		return nil
	}
	return res
}

func (s *uploadService) warnOverview(session *dto.ParsedPDF, err error) {
	s.ai.logger.Warn("UPLOAD", "Overview generation failed", map[string]interface{}{
		"session": session.SessionId,
		"error":   err.Error(),
	})
}

func (s *uploadService) logDisconnect(session *dto.ParsedPDF, step dto.UploadStep) {
	s.ai.logger.Info("UPLOAD", "Client disconnected, pipeline cancelled", map[string]interface{}{
		"session": session.SessionId,
		"file":    session.OriginalFilename,
		"step":    string(step),
	})
}

func (s *uploadService) publishCompleted(ctx context.Context, session *dto.ParsedPDF) {
	s.ai.publish(ctx, events.NewUploadCompletedEvent(
		session.SessionId, session.OriginalFilename, session.TotalPages, session.Overview != nil, s.ai.now()))
}

func (s *uploadService) publishFailed(ctx context.Context, sessionID, filename string, se *stageError) {
	s.ai.publish(ctx, events.NewUploadFailedEvent(sessionID, filename, string(se.step), se.message, s.ai.now()))
}
