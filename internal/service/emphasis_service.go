package service

import (
	"context"
	"strconv"

	"nana-be/internal/constant"
	"nana-be/internal/dto"
	"nana-be/pkg/llm"
	"nana-be/pkg/prompt"
)

type IEmphasisService interface {
	Integrate(ctx context.Context, apiKey string, req *dto.IntegrateEmphasisRequest) (*dto.NotesResponse, error)
}

type emphasisService struct {
	ai      *aiCaller
	prompts *prompt.Loader
}

func NewEmphasisService(deps AIDeps, prompts *prompt.Loader) IEmphasisService {
	return &emphasisService{
		ai:      newAICaller(deps),
		prompts: prompts,
	}
}

func (s *emphasisService) Integrate(ctx context.Context, apiKey string, req *dto.IntegrateEmphasisRequest) (*dto.NotesResponse, error) {
	pageText := constant.PageContentUnavailable
	if req.PageContent != nil {
		pageText = req.PageContent.Text
	}

	values := profileValues(req.UserProfile)
	values["page_number"] = strconv.Itoa(req.PageNumber)
	values["page_text"] = pageText
	values["existing_notes"] = req.ExistingNotes
	values["emphasis_content"] = req.EmphasisContent

	filled, err := s.prompts.Fill(constant.PromptIntegrateEmphasis, values)
	if err != nil {
		return nil, toHTTPError(err)
	}

	provider, err := s.ai.provider(apiKey)
	if err != nil {
		return nil, err
	}

	start := s.ai.now()
	var res dto.NotesResponse
	err = s.ai.call(ctx, provider, aiRequest{
		name:        "integrate_emphasis",
		sessionID:   deref(req.SessionId),
		parts:       []llm.Part{llm.TextPart(filled)},
		schema:      NotesResponseSchema,
		temperature: temperature(constant.EmphasisTemperature),
	}, &res)
	if err != nil {
		s.ai.logger.Error("EMPHASIS", "Emphasis integration failed", map[string]interface{}{
			"page":        req.PageNumber,
			"session":     deref(req.SessionId),
			"duration_ms": s.ai.now().Sub(start).Milliseconds(),
			"error":       err.Error(),
		})
		return nil, toHTTPError(err)
	}

	normalizeNotes(&res)
	return &res, nil
}
