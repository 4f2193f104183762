package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nana-be/internal/constant"
	"nana-be/internal/pkg/logger"
	"nana-be/internal/pkg/serverutils"
	"nana-be/pkg/debuglog"
	"nana-be/pkg/events"
	"nana-be/pkg/llm"
	"nana-be/pkg/llm/factory"
	"nana-be/pkg/prompt"
)

// aiCaller runs one structured AI call and records it in the debug log and
// on the usage bus. Every handler and the upload pipeline go through it.
type aiCaller struct {
	providers factory.ProviderFactory
	recorder  debuglog.Recorder
	publisher IPublisherService
	logger    logger.ILogger
	model     string
	now       func() time.Time
}

type AIDeps struct {
	Providers factory.ProviderFactory
	Recorder  debuglog.Recorder
	Publisher IPublisherService
	Logger    logger.ILogger
	Model     string
	Now       func() time.Time
}

func newAICaller(deps AIDeps) *aiCaller {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = debuglog.NopRecorder{}
	}
	var log logger.ILogger = deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &aiCaller{
		providers: deps.Providers,
		recorder:  recorder,
		publisher: deps.Publisher,
		logger:    log,
		model:     deps.Model,
		now:       now,
	}
}

type aiRequest struct {
	name        string
	sessionID   string
	parts       []llm.Part
	schema      *llm.Schema
	temperature *float64
}

func temperature(t float64) *float64 { return &t }

func (a *aiCaller) provider(apiKey string) (llm.LLMProvider, error) {
	p, err := a.providers(apiKey)
	if err != nil {
		return nil, serverutils.Internal("Failed to initialise AI provider", err)
	}
	return p, nil
}

// call returns the raw provider error (a *llm.ServiceError) or a wrapped
// llm.ErrSchemaMismatch; callers decide how to surface them.
func (a *aiCaller) call(ctx context.Context, provider llm.LLMProvider, req aiRequest, out any) error {
	opts := []llm.Option{llm.WithModel(a.model), llm.WithSchema(req.schema)}
	if req.temperature != nil {
		opts = append(opts, llm.WithTemperature(*req.temperature))
	}

	start := a.now()
	resp, err := provider.Generate(ctx, req.parts, opts...)
	end := a.now()

	interaction := debuglog.Interaction{
		Name:      req.name,
		SessionID: req.sessionID,
		Parts:     req.parts,
		Response:  resp,
		Start:     start,
		End:       end,
		Err:       err,
	}
	if err == nil {
		err = llm.Decode(resp, req.schema, out)
		if err == nil {
			interaction.Parsed = out
		}
	}
	a.recorder.LogInteraction(interaction)
	a.publishCall(ctx, req, resp, err, start, end)
	return err
}

func (a *aiCaller) publishCall(ctx context.Context, req aiRequest, resp *llm.Response, err error, start, end time.Time) {
	c := events.AICall{
		Operation:  req.name,
		SessionID:  req.sessionID,
		Model:      a.model,
		DurationMs: end.Sub(start).Milliseconds(),
	}
	if resp != nil && resp.Usage != nil {
		c.PromptTokens = resp.Usage.PromptTokens
		c.OutputTokens = resp.Usage.CandidateTokens
		c.TotalTokens = resp.Usage.TotalTokens
	}
	if err != nil {
		c.Error = err.Error()
		c.ErrorKind = errorKind(err)
	}
	a.publish(ctx, events.NewAICallEvent(c, end))
}

func (a *aiCaller) publish(ctx context.Context, event events.Event) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishEvent(ctx, event); err != nil {
		a.logger.Warn("USAGE", "Failed to publish usage event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

func errorKind(err error) string {
	if se, ok := llm.AsServiceError(err); ok {
		return string(se.Kind)
	}
	if errors.Is(err, llm.ErrSchemaMismatch) {
		return "schema_mismatch"
	}
	return string(llm.KindOther)
}

// toHTTPError maps template, AI-service and schema failures onto the
// client-facing error model.
func toHTTPError(err error) error {
	var appErr *serverutils.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, prompt.ErrTemplateNotFound),
		errors.Is(err, prompt.ErrMissingKey),
		errors.Is(err, prompt.ErrMalformed):
		return serverutils.Internal(err.Error(), err)
	case errors.Is(err, llm.ErrSchemaMismatch):
		return serverutils.Internal(constant.ErrMsgSchema, err)
	}
	msg := fmt.Sprintf(constant.ErrMsgGemini, err.Error())
	if se, ok := llm.AsServiceError(err); ok && se.Kind == llm.KindInvalidKey {
		return serverutils.Unauthorized(msg, err)
	}
	return serverutils.Internal(msg, err)
}
